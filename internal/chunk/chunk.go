// Package chunk partitions a primary-key domain into fixed-size half-open
// ranges so that each indexer only holds one slice of the source data in
// memory at a time.
//
// Every range is [Start, End). Queries scoped by a range must use
// "key >= start AND key < end"; Args returns the bind values in that order.
package chunk

import (
	"fmt"
	"math"
)

// Range is the half-open key interval [Start, End).
type Range struct {
	Start int64
	End   int64
}

// Contains reports whether key falls inside the range.
func (r Range) Contains(key int64) bool { return key >= r.Start && key < r.End }

// Args returns the bind arguments for a "key >= $1 AND key < $2" predicate.
func (r Range) Args() []any { return []any{r.Start, r.End} }

// Len returns the number of keys the range spans.
func (r Range) Len() int64 { return r.End - r.Start }

func (r Range) String() string { return fmt.Sprintf("[%d,%d)", r.Start, r.End) }

// Ranges splits [min, max] into consecutive ranges of size keys each. The
// last range may extend past max; per-range queries filter against real data
// so the overshoot only ever yields fewer rows. min > max or size <= 0
// produce no ranges.
//
// End is exclusive, so no range can hold math.MaxInt64 itself: when max is
// math.MaxInt64 the last range is [start, math.MaxInt64) and that single key
// is not covered.
func Ranges(min, max, size int64) []Range {
	if min > max || size <= 0 {
		return nil
	}
	n := uint64(max-min)/uint64(size) + 1
	out := make([]Range, 0, min64(n, 1<<16))
	for start := min; start <= max; start += size {
		end := start + size
		if start > math.MaxInt64-size {
			end = math.MaxInt64
		}
		out = append(out, Range{Start: start, End: end})
		if start > max-size {
			// next start would be past max (also guards int64 overflow)
			break
		}
	}
	return out
}

func min64(a, b uint64) int {
	if a < b {
		return int(a)
	}
	return int(b)
}

// Bounds is the observed key span of a primary table. Empty is true when the
// table has no rows, in which case Min and Max are meaningless.
type Bounds struct {
	Min   int64
	Max   int64
	Empty bool
}

// Ranges splits the bounds using the given chunk size.
func (b Bounds) Ranges(size int64) []Range {
	if b.Empty {
		return nil
	}
	return Ranges(b.Min, b.Max, size)
}
