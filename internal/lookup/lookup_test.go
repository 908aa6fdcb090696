package lookup_test

import (
	"context"
	"database/sql"
	"errors"
	"slices"
	"sort"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"mgiindexer/internal/chunk"
	"mgiindexer/internal/lookup"
	"mgiindexer/internal/source"
	"mgiindexer/pkg/smartalpha"
	"mgiindexer/testutil/sourcedb"
)

func TestMissingKeyHasNoValues(t *testing.T) {
	m := lookup.New[int64, string]()
	m.Add(1, "a")
	for _, k := range []int64{0, 2, -7, 1 << 40} {
		assert.Nil(t, m.Get(k))
		assert.False(t, m.Has(k))
		assert.Zero(t, m.Count(k))
		_, ok := m.First(k)
		assert.False(t, ok)
	}
	var nilMap *lookup.Map[int64, string]
	assert.Nil(t, nilMap.Get(1))
	assert.Zero(t, nilMap.Len())
	assert.False(t, nilMap.Contains(1, "a"))
}

func TestAddKeepsInsertionOrderAndDedups(t *testing.T) {
	m := lookup.New[int64, string]()
	assert.True(t, m.Add(1, "b"))
	assert.True(t, m.Add(1, "a"))
	assert.False(t, m.Add(1, "b"))
	m.AddAll(1, "c", "a")
	assert.Equal(t, []string{"b", "a", "c"}, m.Get(1))
	assert.True(t, m.Contains(1, "c"))
	first, ok := m.First(1)
	require.True(t, ok)
	assert.Equal(t, "b", first)
}

func TestMergeNeverReplaces(t *testing.T) {
	a := lookup.New[int64, string]()
	a.AddAll(1, "x", "y")
	b := lookup.New[int64, string]()
	b.AddAll(1, "y", "z")
	b.Add(2, "w")
	a.Merge(b)
	assert.Equal(t, []string{"x", "y", "z"}, a.Get(1))
	assert.Equal(t, []string{"w"}, a.Get(2))
	assert.Equal(t, 2, a.Len())
}

func TestSortedUsesComparator(t *testing.T) {
	m := lookup.New[int64, string]()
	m.AddAll(1, "Sey", "AEY11", "Dey", "AEY2")
	assert.Equal(t, []string{"AEY2", "AEY11", "Dey", "Sey"}, m.Sorted(1, smartalpha.Compare))
	assert.Equal(t, []string{"Sey", "AEY11", "Dey", "AEY2"}, m.Get(1), "Sorted must not reorder the map")
}

func TestExpandAddsAncestors(t *testing.T) {
	direct := lookup.New[int64, int64]()
	direct.AddAll(10, 102, 104)
	closure := lookup.New[int64, int64]()
	closure.AddAll(102, 101, 100)
	closure.AddAll(104, 100)
	closure.AddAll(101, 100)

	lookup.Expand(direct, direct, closure)
	assert.Equal(t, []int64{102, 104, 101, 100}, direct.Get(10))
}

func TestTranslate(t *testing.T) {
	terms := lookup.New[int64, int64]()
	terms.AddAll(1, 100, 101, 999)
	labels := lookup.New[int64, string]()
	labels.Add(100, "root")
	labels.Add(101, "child")
	out := lookup.Translate(terms, labels)
	assert.Equal(t, []string{"root", "child"}, out.Get(1))
}

func TestBuildAndFoldFromSource(t *testing.T) {
	db := sourcedb.Open(t)
	ctx := context.Background()
	r := chunk.Range{Start: 10, End: 12}

	syn, err := lookup.Build(ctx, db, "marker synonyms",
		"SELECT marker_key, synonym FROM mrk_synonym WHERE marker_key >= $1 AND marker_key < $2",
		r.Args(), lookup.KeyString)
	require.NoError(t, err)
	got := slices.Clone(syn.Get(10))
	sort.Strings(got)
	assert.Equal(t, []string{"AEY11", "AEY2", "Dey", "Sey"}, got)
	assert.Equal(t, []string{"W"}, syn.Get(11))
	assert.Nil(t, syn.Get(12), "key outside the chunk must not be present")

	err = lookup.Fold(ctx, db, syn, "marker symbols as synonyms",
		"SELECT marker_key, symbol FROM mrk_marker WHERE marker_key >= $1 AND marker_key < $2",
		r.Args(), lookup.KeyString)
	require.NoError(t, err)
	assert.True(t, syn.Contains(10, "Pax6"))
	assert.True(t, syn.Contains(10, "Sey"), "fold must add to, not replace, existing values")
}

func TestBuildPropagatesQueryFailure(t *testing.T) {
	db := sourcedb.Open(t)
	_, err := lookup.Build(context.Background(), db, "bad", "SELECT * FROM no_such_table", nil, lookup.KeyString)
	var qe *source.QueryError
	require.ErrorAs(t, err, &qe)
	assert.Equal(t, "bad", qe.Name)

	scanErr := errors.New("scan failed")
	_, err = lookup.Build(context.Background(), db, "scan", "SELECT marker_key, symbol FROM mrk_marker", nil,
		func(*sql.Rows) (int64, string, error) { return 0, "", scanErr })
	assert.ErrorIs(t, err, scanErr)
}

func TestRanksSentinel(t *testing.T) {
	names := []string{"Waardenburg syndrome type 10", "aniridia", "Waardenburg syndrome type 2", "microphthalmia"}
	smartalpha.Sort(names)
	ranks := lookup.RanksOf(names)

	assert.Equal(t, 1, ranks.Rank("aniridia"))
	assert.Equal(t, 3, ranks.Rank("Waardenburg syndrome type 2"))
	assert.Equal(t, 4, ranks.Rank("Waardenburg syndrome type 10"))
	assert.Equal(t, lookup.SentinelRank, ranks.Rank("not a disease"))
	assert.Equal(t, 9_999_999, lookup.SentinelRank)

	for _, n := range names {
		assert.Less(t, ranks.Rank(n), lookup.SentinelRank)
	}
	assert.Equal(t, 3, ranks.Best([]string{"Waardenburg syndrome type 10", "Waardenburg syndrome type 2"}))
	assert.Equal(t, lookup.SentinelRank, ranks.Best(nil))

	var none *lookup.Ranks[string]
	assert.Equal(t, lookup.SentinelRank, none.Rank("x"))
}

func TestRanksOfKeepsFirstOccurrence(t *testing.T) {
	r := lookup.RanksOf([]int64{5, 3, 5, 9})
	assert.Equal(t, 1, r.Rank(5))
	assert.Equal(t, 2, r.Rank(3))
	assert.Equal(t, 3, r.Rank(9))
	assert.Equal(t, 3, r.Len())
}

func TestPreferredTieBreak(t *testing.T) {
	p := lookup.NewPreferred[int64, string]()
	assert.True(t, p.Offer(1, "coordinate", 2))
	assert.True(t, p.Offer(1, "cytoband", 1))
	assert.False(t, p.Offer(1, "other cytoband", 1), "equal precedence keeps the first offer")
	assert.True(t, p.Offer(1, "centimorgan", 0))
	assert.False(t, p.Offer(1, "coordinate again", 2))

	v, ok := p.Get(1)
	require.True(t, ok)
	assert.Equal(t, "centimorgan", v)
	_, ok = p.Get(2)
	assert.False(t, ok)
	assert.Equal(t, 1, p.Len())
}
