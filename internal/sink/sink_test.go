package sink_test

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"mgiindexer/internal/blob"
	"mgiindexer/internal/document"
	"mgiindexer/internal/infra/index/archive"
	"mgiindexer/internal/infra/index/memory"
	"mgiindexer/internal/sink"
)

func docs(n int) []*document.Document {
	out := make([]*document.Document, n)
	for i := range out {
		d := document.New()
		d.Set("key", i)
		out[i] = d
	}
	return out
}

func TestFlushCountAndOrder(t *testing.T) {
	cases := []struct{ n, k, flushes int }{
		{0, 3, 0},
		{1, 3, 1},
		{3, 3, 1},
		{7, 3, 3},
		{9, 3, 3},
		{10, 1, 10},
		{2500, 1000, 3},
	}
	for _, tc := range cases {
		t.Run(fmt.Sprintf("N=%d,K=%d", tc.n, tc.k), func(t *testing.T) {
			ctx := context.Background()
			idx := memory.New("test")
			var hooked int
			w := sink.NewWriter(idx, tc.k, sink.WithFlushHook(func(n int) { hooked += n }))
			input := docs(tc.n)
			for _, d := range input {
				require.NoError(t, w.Write(ctx, d))
			}
			require.NoError(t, w.Close(ctx))

			batches := idx.Batches()
			assert.Len(t, batches, tc.flushes)
			assert.Equal(t, 1, idx.Commits())

			var concat []*document.Document
			for i, b := range batches {
				if i < len(batches)-1 {
					assert.Len(t, b, tc.k, "only the last batch may be partial")
				}
				concat = append(concat, b...)
			}
			if tc.n == 0 {
				assert.Empty(t, concat)
			} else {
				assert.Equal(t, input, concat)
			}
			assert.Equal(t, tc.n, hooked)
			st := w.Stats()
			assert.Equal(t, tc.flushes, st.Flushes)
			assert.Equal(t, tc.n, st.Documents)
			assert.True(t, st.Committed)
		})
	}
}

func TestWriteFreezesDocument(t *testing.T) {
	w := sink.NewWriter(memory.New("x"), 10)
	d := document.New()
	require.NoError(t, w.Write(context.Background(), d))
	assert.True(t, d.Frozen())
	assert.Equal(t, 1, w.Pending())
}

func TestCloseIsIdempotentAndBlocksWrites(t *testing.T) {
	ctx := context.Background()
	idx := memory.New("x")
	w := sink.NewWriter(idx, 0)
	assert.Equal(t, sink.DefaultBatchSize, w.BatchSize())
	require.NoError(t, w.Close(ctx))
	require.NoError(t, w.Close(ctx))
	assert.Equal(t, 1, idx.Commits())
	assert.ErrorIs(t, w.Write(ctx, document.New()), sink.ErrClosed)
}

func TestFlushFailureIsFatal(t *testing.T) {
	ctx := context.Background()
	idx := memory.New("allele")
	boom := errors.New("connection reset")
	idx.FailAdd(boom)
	w := sink.NewWriter(idx, 2)
	require.NoError(t, w.Write(ctx, document.New()))
	err := w.Write(ctx, document.New())
	require.ErrorIs(t, err, boom)
	var fe *sink.FlushError
	require.ErrorAs(t, err, &fe)
	assert.Equal(t, "allele", fe.Index)
	assert.Equal(t, 1, fe.Batch)
	assert.Zero(t, idx.Commits())
}

func TestCommitFailure(t *testing.T) {
	ctx := context.Background()
	idx := memory.New("marker")
	idx.FailCommit(errors.New("read only"))
	w := sink.NewWriter(idx, 2)
	require.NoError(t, w.Write(ctx, document.New()))
	err := w.Close(ctx)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "commit marker")
	assert.False(t, w.Stats().Committed)
}

func TestOpenBackends(t *testing.T) {
	rec := memory.NewRecorder()
	idx, err := sink.Open(sink.Config{Backend: sink.BackendMemory, Recorder: rec}, "allele", "run")
	require.NoError(t, err)
	assert.Same(t, rec.Index("allele"), idx)

	idx, err = sink.Open(sink.Config{Backend: sink.BackendArchive, Store: blob.NewMemory(), Prefix: "p"}, "marker", "run")
	require.NoError(t, err)
	assert.IsType(t, &archive.Index{}, idx)

	idx, err = sink.Open(sink.Config{Backend: sink.BackendSolr, URL: "http://solr:8983/solr"}, "reference", "run")
	require.NoError(t, err)
	assert.Equal(t, "reference", idx.Name())

	_, err = sink.Open(sink.Config{Backend: sink.BackendArchive}, "x", "run")
	assert.Error(t, err)
	_, err = sink.Open(sink.Config{Backend: "kafka"}, "x", "run")
	assert.Error(t, err)
}
