package metrics

import (
	"context"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestJobMetrics(t *testing.T) {
	r := NewRegistry()
	r.now = func() time.Time { return time.Unix(1700000000, 0) }
	m := r.Job("allele")

	m.Chunk()
	m.Chunk()
	m.Rows(6)
	m.Rows(0)
	m.Flushed(5)
	m.Flushed(1)
	m.Finished(1500*time.Millisecond, nil)

	assert.Equal(t, 2.0, testutil.ToFloat64(r.Chunks.WithLabelValues("allele")))
	assert.Equal(t, 6.0, testutil.ToFloat64(r.Rows.WithLabelValues("allele")))
	assert.Equal(t, 2.0, testutil.ToFloat64(r.Flushes.WithLabelValues("allele")))
	assert.Equal(t, 6.0, testutil.ToFloat64(r.Documents.WithLabelValues("allele")))
	assert.Equal(t, 1.5, testutil.ToFloat64(r.Duration.WithLabelValues("allele")))
	assert.Equal(t, 1700000000.0, testutil.ToFloat64(r.LastSuccess.WithLabelValues("allele")))
	assert.Equal(t, 0.0, testutil.ToFloat64(r.Failures.WithLabelValues("allele")))
}

func TestFailureLeavesLastSuccessAlone(t *testing.T) {
	r := NewRegistry()
	m := r.Job("marker")
	m.Finished(time.Second, errors.New("boom"))
	assert.Equal(t, 1.0, testutil.ToFloat64(r.Failures.WithLabelValues("marker")))
	assert.Equal(t, 0, testutil.CollectAndCount(r.LastSuccess))
}

func TestNilJobMetricsIsNoop(t *testing.T) {
	var m *JobMetrics
	assert.NotPanics(t, func() {
		m.Chunk()
		m.Rows(3)
		m.Flushed(3)
		m.Finished(time.Second, nil)
	})
}

func TestExposition(t *testing.T) {
	r := NewRegistry()
	r.Job("reference").Flushed(3)
	err := testutil.GatherAndCompare(r.Prometheus(), strings.NewReader(`
# HELP mgiindexer_documents_total Documents delivered to the index
# TYPE mgiindexer_documents_total counter
mgiindexer_documents_total{index="reference"} 3
`), "mgiindexer_documents_total")
	require.NoError(t, err)
}

func TestPush(t *testing.T) {
	var gotPath, gotBody string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, req *http.Request) {
		gotPath = req.URL.Path
		b, _ := io.ReadAll(req.Body)
		gotBody = string(b)
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	r := NewRegistry()
	r.Job("sequence").Chunk()
	require.NoError(t, r.Push(context.Background(), srv.URL, "mgiindexer", "run-1"))
	assert.Equal(t, "/metrics/job/mgiindexer/run/run-1", gotPath)
	assert.Contains(t, gotBody, "mgiindexer_chunks_total")
}

func TestPushFailure(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer srv.Close()
	err := NewRegistry().Push(context.Background(), srv.URL, "mgiindexer", "run-1")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "push metrics")
}
