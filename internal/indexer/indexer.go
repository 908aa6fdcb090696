// Package indexer runs index rebuild jobs: each job reads the source
// database chunk by chunk, assembles documents and hands them to a batch
// writer that flushes to one search index and commits once at the end.
package indexer

import (
	"context"
	"fmt"
	"log/slog"
	"sort"
	"strings"

	"mgiindexer/internal/chunk"
	"mgiindexer/internal/document"
	"mgiindexer/internal/metrics"
	"mgiindexer/internal/sink"
	"mgiindexer/internal/source"
)

// Job rebuilds one search index.
type Job interface {
	// Name is the target index name and the name used on the command line.
	Name() string
	// Index reads the source and writes every document through env.Writer.
	// The runner closes the writer once Index returns nil.
	Index(ctx context.Context, env *Env) error
}

// Env is everything a job may touch during one run. The DB is a single
// session for the whole job so temporary tables stay visible.
type Env struct {
	DB        source.Querier
	Writer    *sink.Writer
	Log       *slog.Logger
	Metrics   *metrics.JobMetrics
	ChunkSize int64
	RunID     string
}

// Emit hands a finished document to the batch writer.
func (e *Env) Emit(ctx context.Context, d *document.Document) error {
	return e.Writer.Write(ctx, d)
}

// Chunked runs boundsQuery with args, splits the key span into ranges of
// env.ChunkSize and calls fn for each range in ascending order. The first
// error stops the walk.
func Chunked(ctx context.Context, env *Env, name, boundsQuery string, args []any, fn func(context.Context, chunk.Range) error) error {
	bounds, err := source.Bounds(ctx, env.DB, name+" bounds", boundsQuery, args...)
	if err != nil {
		return err
	}
	if bounds.Empty {
		env.Log.Info("no rows to index", "table", name)
		return nil
	}
	ranges := bounds.Ranges(env.ChunkSize)
	env.Log.Debug("chunking", "table", name, "min", bounds.Min, "max", bounds.Max, "chunks", len(ranges))
	for i, r := range ranges {
		if err := ctx.Err(); err != nil {
			return err
		}
		if err := fn(ctx, r); err != nil {
			return fmt.Errorf("chunk %s: %w", r, err)
		}
		env.Metrics.Chunk()
		env.Log.Debug("chunk done", "range", r.String(), "n", i+1, "of", len(ranges))
	}
	return nil
}

// Registry maps job names to jobs. Lookups ignore case.
type Registry struct {
	jobs map[string]Job
}

// NewRegistry registers jobs, failing on duplicate names.
func NewRegistry(jobs ...Job) (*Registry, error) {
	r := &Registry{jobs: make(map[string]Job, len(jobs))}
	for _, j := range jobs {
		if err := r.Register(j); err != nil {
			return nil, err
		}
	}
	return r, nil
}

// Register adds a job.
func (r *Registry) Register(j Job) error {
	key := strings.ToLower(j.Name())
	if _, ok := r.jobs[key]; ok {
		return fmt.Errorf("job %q already registered", j.Name())
	}
	r.jobs[key] = j
	return nil
}

// Get returns the named job or an error wrapping ErrUnknownJob.
func (r *Registry) Get(name string) (Job, error) {
	j, ok := r.jobs[strings.ToLower(name)]
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrUnknownJob, name)
	}
	return j, nil
}

// Resolve looks up every name, keeping the given order and dropping repeats.
func (r *Registry) Resolve(names []string) ([]Job, error) {
	seen := make(map[string]struct{}, len(names))
	out := make([]Job, 0, len(names))
	for _, name := range names {
		j, err := r.Get(name)
		if err != nil {
			return nil, err
		}
		if _, dup := seen[j.Name()]; dup {
			continue
		}
		seen[j.Name()] = struct{}{}
		out = append(out, j)
	}
	return out, nil
}

// Names returns the registered job names sorted.
func (r *Registry) Names() []string {
	out := make([]string, 0, len(r.jobs))
	for _, j := range r.jobs {
		out = append(out, j.Name())
	}
	sort.Strings(out)
	return out
}

// Jobs returns every registered job in name order.
func (r *Registry) Jobs() []Job {
	names := r.Names()
	out := make([]Job, len(names))
	for i, n := range names {
		out[i] = r.jobs[strings.ToLower(n)]
	}
	return out
}
