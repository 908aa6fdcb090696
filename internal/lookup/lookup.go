// Package lookup holds the key → values tables every indexer builds from
// auxiliary queries before it assembles documents.
//
// A Map never reports an error for a key it does not hold: a missing key
// simply has no values. Values are kept as an insertion-ordered set, so
// folding the same relation in twice, or reaching a value along two query
// paths, never duplicates it.
package lookup

import (
	"context"
	"database/sql"
	"slices"

	"mgiindexer/internal/source"
)

// Map is a multi-valued lookup table from owning key to an ordered set of values.
// The zero value is not usable; call New.
type Map[K comparable, V comparable] struct {
	values map[K][]V
	seen   map[K]map[V]struct{}
}

// New returns an empty Map.
func New[K comparable, V comparable]() *Map[K, V] {
	return &Map[K, V]{
		values: make(map[K][]V),
		seen:   make(map[K]map[V]struct{}),
	}
}

// Add appends v to the values of k unless it is already present. It reports
// whether the value was new.
func (m *Map[K, V]) Add(k K, v V) bool {
	set, ok := m.seen[k]
	if !ok {
		set = make(map[V]struct{})
		m.seen[k] = set
	}
	if _, dup := set[v]; dup {
		return false
	}
	set[v] = struct{}{}
	m.values[k] = append(m.values[k], v)
	return true
}

// AddAll adds every value to k.
func (m *Map[K, V]) AddAll(k K, vs ...V) {
	for _, v := range vs {
		m.Add(k, v)
	}
}

// Get returns the values of k in insertion order, or nil when k is absent.
// The returned slice must not be modified.
func (m *Map[K, V]) Get(k K) []V {
	if m == nil {
		return nil
	}
	return m.values[k]
}

// First returns the first value added for k.
func (m *Map[K, V]) First(k K) (V, bool) {
	vs := m.Get(k)
	if len(vs) == 0 {
		var zero V
		return zero, false
	}
	return vs[0], true
}

// Has reports whether k has at least one value.
func (m *Map[K, V]) Has(k K) bool { return len(m.Get(k)) > 0 }

// Contains reports whether v is one of k's values.
func (m *Map[K, V]) Contains(k K, v V) bool {
	if m == nil {
		return false
	}
	_, ok := m.seen[k][v]
	return ok
}

// Count returns the number of distinct values held for k.
func (m *Map[K, V]) Count(k K) int { return len(m.Get(k)) }

// Len returns the number of keys with values.
func (m *Map[K, V]) Len() int {
	if m == nil {
		return 0
	}
	return len(m.values)
}

// Keys returns the keys in unspecified order.
func (m *Map[K, V]) Keys() []K {
	if m == nil {
		return nil
	}
	out := make([]K, 0, len(m.values))
	for k := range m.values {
		out = append(out, k)
	}
	return out
}

// Sorted returns a sorted copy of k's values.
func (m *Map[K, V]) Sorted(k K, cmp func(a, b V) int) []V {
	out := slices.Clone(m.Get(k))
	slices.SortStableFunc(out, cmp)
	return out
}

// Merge folds every entry of other into m.
func (m *Map[K, V]) Merge(other *Map[K, V]) {
	if other == nil {
		return
	}
	for k, vs := range other.values {
		m.AddAll(k, vs...)
	}
}

// Scanner converts the current row into a key/value pair.
type Scanner[K comparable, V comparable] func(rows *sql.Rows) (K, V, error)

// Build runs query and folds its rows into a new Map.
func Build[K comparable, V comparable](ctx context.Context, q source.Querier, name, query string, args []any, scan Scanner[K, V]) (*Map[K, V], error) {
	m := New[K, V]()
	if err := Fold(ctx, q, m, name, query, args, scan); err != nil {
		return nil, err
	}
	return m, nil
}

// Fold runs query and adds its rows to m, keeping whatever m already holds.
func Fold[K comparable, V comparable](ctx context.Context, q source.Querier, m *Map[K, V], name, query string, args []any, scan Scanner[K, V]) error {
	return source.Each(ctx, q, name, query, args, func(rows *sql.Rows) error {
		k, v, err := scan(rows)
		if err != nil {
			return err
		}
		m.Add(k, v)
		return nil
	})
}

// Expand adds, for every (k, v) in src, all values of via[v] to dst[k].
// It is how direct annotations pick up their ancestor terms or synonyms.
// dst and src may be the same Map; values added during the pass are not
// expanded again.
func Expand[K comparable, V comparable](dst, src *Map[K, V], via *Map[V, V]) {
	for _, k := range src.Keys() {
		direct := slices.Clone(src.Get(k))
		for _, v := range direct {
			dst.AddAll(k, via.Get(v)...)
		}
	}
}

// Translate adds, for every (k, v) in src, all values of via[v] to a new map.
// Keys whose values have no translation are absent from the result.
func Translate[K comparable, V comparable, W comparable](src *Map[K, V], via *Map[V, W]) *Map[K, W] {
	out := New[K, W]()
	for _, k := range src.Keys() {
		for _, v := range src.Get(k) {
			out.AddAll(k, via.Get(v)...)
		}
	}
	return out
}
