// Package smartalpha orders strings the way people read them: runs of digits
// compare by numeric value and everything else compares case-insensitively,
// so "Chr2" sorts before "Chr10".
//
// Every function here is pure and safe for concurrent use.
package smartalpha

import (
	"slices"
	"strings"
	"unicode"
	"unicode/utf8"
)

// Compare returns -1, 0 or +1 depending on whether a sorts before, equal to or
// after b. Strings that are equal under the smart ordering (for example
// "abc" and "ABC", or "x7" and "x007") fall back to a byte comparison so the
// ordering stays total.
func Compare(a, b string) int {
	if c := compareRuns(a, b); c != 0 {
		return c
	}
	return strings.Compare(a, b)
}

// Less reports whether a sorts strictly before b.
func Less(a, b string) bool { return Compare(a, b) < 0 }

// Sort orders values in place.
func Sort(values []string) {
	slices.SortStableFunc(values, Compare)
}

// Sorted returns a sorted copy of values, leaving the input untouched.
func Sorted(values []string) []string {
	out := slices.Clone(values)
	Sort(out)
	return out
}

// By adapts Compare to an arbitrary element type using a key extractor.
func By[T any](key func(T) string) func(a, b T) int {
	return func(a, b T) int { return Compare(key(a), key(b)) }
}

func compareRuns(a, b string) int {
	i, j := 0, 0
	for i < len(a) && j < len(b) {
		if isDigit(a[i]) && isDigit(b[j]) {
			si, sj := i, j
			for i < len(a) && isDigit(a[i]) {
				i++
			}
			for j < len(b) && isDigit(b[j]) {
				j++
			}
			if c := compareDigits(a[si:i], b[sj:j]); c != 0 {
				return c
			}
			continue
		}
		ra, wa := utf8.DecodeRuneInString(a[i:])
		rb, wb := utf8.DecodeRuneInString(b[j:])
		if la, lb := unicode.ToLower(ra), unicode.ToLower(rb); la != lb {
			if la < lb {
				return -1
			}
			return 1
		}
		i += wa
		j += wb
	}
	switch {
	case i < len(a):
		return 1
	case j < len(b):
		return -1
	}
	return 0
}

// compareDigits compares two digit runs by value without converting them, so
// runs longer than an int64 still order correctly.
func compareDigits(a, b string) int {
	a = strings.TrimLeft(a, "0")
	b = strings.TrimLeft(b, "0")
	if len(a) != len(b) {
		if len(a) < len(b) {
			return -1
		}
		return 1
	}
	return strings.Compare(a, b)
}

func isDigit(c byte) bool { return c >= '0' && c <= '9' }
