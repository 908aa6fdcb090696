package vocab_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"mgiindexer/internal/chunk"
	"mgiindexer/internal/indexer"
	"mgiindexer/internal/vocab"
	"mgiindexer/testutil/sourcedb"
)

const (
	vocabGO = 1
	vocabMP = 2
)

func TestLoadMultiParentHierarchy(t *testing.T) {
	db := sourcedb.Open(t)
	g, err := vocab.Load(context.Background(), db, vocabMP)
	require.NoError(t, err)

	assert.Equal(t, 5, g.Len())
	assert.Equal(t, []int64{200}, g.Roots())
	// abnormal eye morphology < nervous system phenotype
	assert.Equal(t, []int64{203, 201}, g.Parents(204))
	assert.Equal(t, []int64{203, 201}, g.Children(200))
	assert.ElementsMatch(t, []int64{200, 203, 201}, g.Ancestors(204))
	assert.Equal(t, 0, g.Depth(200))
	assert.Equal(t, 1, g.Depth(201))
	assert.Equal(t, 2, g.Depth(204))
	assert.True(t, g.HasChildren(201))
	assert.False(t, g.HasChildren(204))

	n, ok := g.Node(204)
	require.True(t, ok)
	assert.Equal(t, "MP:0001325", n.ID)

	label, ok := g.EdgeLabel(204, 201)
	require.True(t, ok)
	assert.Equal(t, "is-a", label)
}

func TestLoadSkipsObsoleteTermWithoutID(t *testing.T) {
	db := sourcedb.Open(t)
	g, err := vocab.Load(context.Background(), db, vocabGO)
	require.NoError(t, err)
	assert.Equal(t, []int64{103}, g.Skipped())
	assert.False(t, g.Has(103))
	assert.Equal(t, 4, g.Len())
	assert.Equal(t, 2, g.Depth(102))

	var keys []int64
	for _, n := range g.Terms() {
		keys = append(keys, n.Key)
	}
	assert.Equal(t, []int64{100, 101, 102, 104}, keys, "terms keep sequence order")
}

func TestLiveTermWithoutIDIsAnomaly(t *testing.T) {
	db := sourcedb.Open(t, `INSERT INTO voc_term VALUES (105, 1, 'orphan process', NULL, NULL, 0, 6);`)
	_, err := vocab.Load(context.Background(), db, vocabGO)
	require.Error(t, err)
	var anomaly *indexer.AnomalyError
	require.ErrorAs(t, err, &anomaly)
	assert.Equal(t, int64(105), anomaly.Key)
	assert.True(t, indexer.IsAnomaly(err))
}

func TestChildrenUseSmartAlphaOrder(t *testing.T) {
	g, err := vocab.Build([]vocab.Term{
		{Key: 1, ID: "X:1", Label: "embryo"},
		{Key: 2, ID: "X:2", Label: "Theiler stage 10"},
		{Key: 3, ID: "X:3", Label: "Theiler stage 2"},
		{Key: 4, ID: "X:4", Label: "theiler stage 2"},
	}, []vocab.Edge{
		{Child: 2, Parent: 1}, {Child: 3, Parent: 1}, {Child: 4, Parent: 1},
		{Child: 9, Parent: 1}, // unknown child
	}, nil)
	require.NoError(t, err)
	assert.Equal(t, []int64{3, 4, 2}, g.Children(1))
	assert.Nil(t, g.Children(9))
	assert.Equal(t, -1, g.Depth(9))
}

func TestCycleLeavesDepthUnknown(t *testing.T) {
	g, err := vocab.Build([]vocab.Term{
		{Key: 1, ID: "X:1", Label: "root"},
		{Key: 2, ID: "X:2", Label: "a"},
		{Key: 3, ID: "X:3", Label: "b"},
	}, []vocab.Edge{{Child: 2, Parent: 3}, {Child: 3, Parent: 2}}, nil)
	require.NoError(t, err)
	assert.Equal(t, []int64{1}, g.Roots())
	assert.Equal(t, -1, g.Depth(2))
	assert.Equal(t, -1, g.Depth(3))
}

func TestTermsInFollowsKeyOrder(t *testing.T) {
	db := sourcedb.Open(t)
	g, err := vocab.Load(context.Background(), db, vocabGO)
	require.NoError(t, err)

	keys := func(r chunk.Range) []int64 {
		var out []int64
		for _, n := range g.TermsIn(r) {
			out = append(out, n.Key)
		}
		return out
	}
	assert.Equal(t, []int64{100, 101}, keys(chunk.Range{Start: 100, End: 102}))
	assert.Equal(t, []int64{102, 104}, keys(chunk.Range{Start: 102, End: 105}), "skipped term 103 is absent")
	assert.Empty(t, keys(chunk.Range{Start: 105, End: 200}))

	var all []int64
	for _, r := range chunk.Ranges(100, 104, 1) {
		all = append(all, keys(r)...)
	}
	assert.Equal(t, []int64{100, 101, 102, 104}, all)
}

func TestLoadDetailsIsRangeScoped(t *testing.T) {
	db := sourcedb.Open(t,
		`INSERT INTO voc_synonym VALUES (204, 'retinal defect 10');`,
		`INSERT INTO voc_synonym VALUES (204, 'retinal defect 2');`,
		`INSERT INTO voc_synonym VALUES (204, 'retinal defect 2');`,
	)
	ctx := context.Background()

	d, err := vocab.LoadDetails(ctx, db, vocabMP, chunk.Range{Start: 203, End: 205})
	require.NoError(t, err)
	assert.Equal(t, []string{"retina abnormalities", "retinal defect 2", "retinal defect 10"}, d.Synonyms(204))
	assert.Equal(t, []string{"HP:0000479"}, d.XRefs(204))
	assert.Nil(t, d.Synonyms(202), "outside the range")

	d, err = vocab.LoadDetails(ctx, db, vocabGO, chunk.Range{Start: 100, End: 101})
	require.NoError(t, err)
	assert.Equal(t, "A biological process.", d.Definition(100))
	assert.Empty(t, d.Definition(101))
	assert.Nil(t, d.Synonyms(101))
}
