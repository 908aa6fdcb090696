// Package metrics holds the per-run prometheus registry of the indexer and
// pushes it to a Pushgateway when the run ends.
package metrics

import (
	"context"
	"fmt"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/push"
)

const namespace = "mgiindexer"

// Registry is the set of indexer metrics, all labelled by index.
type Registry struct {
	reg *prometheus.Registry

	Documents   *prometheus.CounterVec
	Flushes     *prometheus.CounterVec
	Chunks      *prometheus.CounterVec
	Rows        *prometheus.CounterVec
	Failures    *prometheus.CounterVec
	Duration    *prometheus.GaugeVec
	LastSuccess *prometheus.GaugeVec

	now func() time.Time
}

// NewRegistry creates a registry with the indexer metrics and the Go runtime
// collector registered.
func NewRegistry() *Registry {
	counter := func(name, help string) *prometheus.CounterVec {
		return prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      name,
			Help:      help,
		}, []string{"index"})
	}
	gauge := func(name, help string) *prometheus.GaugeVec {
		return prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      name,
			Help:      help,
		}, []string{"index"})
	}
	r := &Registry{
		reg:         prometheus.NewRegistry(),
		Documents:   counter("documents_total", "Documents delivered to the index"),
		Flushes:     counter("flushes_total", "Batches delivered to the index"),
		Chunks:      counter("chunks_total", "Key-range chunks processed"),
		Rows:        counter("rows_total", "Primary rows read from the source database"),
		Failures:    counter("job_failures_total", "Jobs that ended in error"),
		Duration:    gauge("job_duration_seconds", "Wall time of the last run of the job"),
		LastSuccess: gauge("last_success_timestamp_seconds", "Unix time the job last completed"),
		now:         time.Now,
	}
	r.reg.MustRegister(
		r.Documents, r.Flushes, r.Chunks, r.Rows, r.Failures, r.Duration, r.LastSuccess,
		collectors.NewGoCollector(),
	)
	return r
}

// Prometheus returns the underlying registry.
func (r *Registry) Prometheus() *prometheus.Registry { return r.reg }

// Job returns the metrics handle of one index. A nil registry yields a nil
// handle.
func (r *Registry) Job(index string) *JobMetrics {
	if r == nil {
		return nil
	}
	return &JobMetrics{r: r, index: index}
}

// Push delivers every metric to a Pushgateway under job name job, replacing
// the previous push of the same grouping.
func (r *Registry) Push(ctx context.Context, gatewayURL, job, runID string) error {
	err := push.New(gatewayURL, job).
		Gatherer(r.reg).
		Grouping("run", runID).
		PushContext(ctx)
	if err != nil {
		return fmt.Errorf("push metrics: %w", err)
	}
	return nil
}

// JobMetrics records one job's progress. A nil *JobMetrics discards
// everything.
type JobMetrics struct {
	r     *Registry
	index string
}

// Flushed counts a delivered batch of docs documents.
func (m *JobMetrics) Flushed(docs int) {
	if m == nil {
		return
	}
	m.r.Flushes.WithLabelValues(m.index).Inc()
	m.r.Documents.WithLabelValues(m.index).Add(float64(docs))
}

// Chunk counts a processed chunk.
func (m *JobMetrics) Chunk() {
	if m == nil {
		return
	}
	m.r.Chunks.WithLabelValues(m.index).Inc()
}

// Rows counts primary rows read.
func (m *JobMetrics) Rows(n int) {
	if m == nil || n <= 0 {
		return
	}
	m.r.Rows.WithLabelValues(m.index).Add(float64(n))
}

// Finished records the outcome of the job.
func (m *JobMetrics) Finished(elapsed time.Duration, err error) {
	if m == nil {
		return
	}
	m.r.Duration.WithLabelValues(m.index).Set(elapsed.Seconds())
	if err != nil {
		m.r.Failures.WithLabelValues(m.index).Inc()
		return
	}
	m.r.LastSuccess.WithLabelValues(m.index).Set(float64(m.r.now().Unix()))
}
