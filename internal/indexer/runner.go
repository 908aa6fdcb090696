package indexer

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"mgiindexer/internal/metrics"
	"mgiindexer/internal/sink"
)

// Status describes the lifecycle stage of one job in a run.
type Status string

const (
	StatusQueued    Status = "queued"
	StatusRunning   Status = "running"
	StatusSucceeded Status = "succeeded"
	StatusFailed    Status = "failed"
)

// Result is the outcome of one job. Jobs that never started because an
// earlier job failed stay queued.
type Result struct {
	Job       string
	Status    Status
	Documents int
	Flushes   int
	Elapsed   time.Duration
	Err       error
}

// Default sizes used when Runner.Sizes is nil.
const (
	DefaultChunkSize = 10000
	DefaultBatchSize = sink.DefaultBatchSize
)

// Runner executes jobs against one source database and one index backend.
type Runner struct {
	DB       *sql.DB
	Registry *Registry
	Sink     sink.Config
	Metrics  *metrics.Registry
	Log      *slog.Logger

	// Parallel bounds how many jobs run at once. Values below 1 mean 1.
	Parallel int
	// Sizes returns the chunk and batch size of a job.
	Sizes func(job string) (chunkSize, batchSize int)
	// Pushgateway, when set, receives the metrics once the run ends.
	Pushgateway string
	PushJob     string
	// RunID identifies the run; a random UUID is used when empty.
	RunID string
}

// Run resolves names and runs the jobs. The first failure cancels jobs
// that have not started yet and is returned.
func (r *Runner) Run(ctx context.Context, names []string) ([]Result, error) {
	if len(names) == 0 {
		return nil, errors.New("no jobs selected")
	}
	jobs, err := r.Registry.Resolve(names)
	if err != nil {
		return nil, err
	}
	if r.RunID == "" {
		r.RunID = uuid.NewString()
	}
	log := r.logger().With("run", r.RunID)
	parallel := max(r.Parallel, 1)
	log.Info("run started", "jobs", len(jobs), "parallel", parallel, "backend", string(r.Sink.Backend))

	results := make([]Result, len(jobs))
	for i, j := range jobs {
		results[i] = Result{Job: j.Name(), Status: StatusQueued}
	}

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(parallel)
	for i, j := range jobs {
		i, j := i, j
		g.Go(func() error {
			if gctx.Err() != nil {
				return nil
			}
			return r.runJob(gctx, j, &results[i], log.With("job", j.Name()))
		})
	}
	runErr := g.Wait()

	if r.Pushgateway != "" && r.Metrics != nil {
		job := r.PushJob
		if job == "" {
			job = "mgiindexer"
		}
		if err := r.Metrics.Push(ctx, r.Pushgateway, job, r.RunID); err != nil {
			log.Warn("metrics push failed", "error", err)
		}
	}
	if runErr != nil {
		return results, runErr
	}
	log.Info("run finished", "jobs", len(jobs))
	return results, nil
}

func (r *Runner) runJob(ctx context.Context, j Job, res *Result, log *slog.Logger) (err error) {
	res.Status = StatusRunning
	start := time.Now()
	jm := r.Metrics.Job(j.Name())
	defer func() {
		res.Elapsed = time.Since(start)
		jm.Finished(res.Elapsed, err)
		if err != nil {
			err = fmt.Errorf("job %s: %w", j.Name(), err)
			res.Status, res.Err = StatusFailed, err
			log.Debug("job failed", "elapsed", res.Elapsed)
			return
		}
		res.Status = StatusSucceeded
		log.Info("job finished", "documents", res.Documents, "flushes", res.Flushes, "elapsed", res.Elapsed)
	}()

	chunkSize, batchSize := DefaultChunkSize, DefaultBatchSize
	if r.Sizes != nil {
		chunkSize, batchSize = r.Sizes(j.Name())
	}

	conn, err := r.DB.Conn(ctx)
	if err != nil {
		return fmt.Errorf("acquire connection: %w", err)
	}
	defer func() { _ = conn.Close() }()

	idx, err := sink.Open(r.Sink, j.Name(), r.RunID)
	if err != nil {
		return err
	}
	if err := idx.Clear(ctx); err != nil {
		return fmt.Errorf("clear index: %w", err)
	}
	w := sink.NewWriter(idx, batchSize, sink.WithFlushHook(jm.Flushed))
	env := &Env{
		DB:        conn,
		Writer:    w,
		Log:       log,
		Metrics:   jm,
		ChunkSize: int64(chunkSize),
		RunID:     r.RunID,
	}
	log.Info("job started", "chunk_size", chunkSize, "batch_size", batchSize)
	if err := j.Index(ctx, env); err != nil {
		return err
	}
	if err := w.Close(ctx); err != nil {
		return err
	}
	stats := w.Stats()
	res.Documents, res.Flushes = stats.Documents, stats.Flushes
	return nil
}

func (r *Runner) logger() *slog.Logger {
	if r.Log != nil {
		return r.Log
	}
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}
