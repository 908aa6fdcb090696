// Package sink buffers assembled documents and delivers them to a search
// index in fixed-size batches, followed by one commit.
package sink

import (
	"context"
	"errors"
	"fmt"

	"mgiindexer/internal/document"
)

// Index is the destination of a full rebuild.
type Index interface {
	Name() string
	// Clear removes every document so the rebuild starts from nothing.
	Clear(ctx context.Context) error
	// Add sends one batch.
	Add(ctx context.Context, docs []*document.Document) error
	// Commit makes added documents visible.
	Commit(ctx context.Context) error
}

// FlushError reports a failed batch delivery.
type FlushError struct {
	Index string
	Batch int
	Err   error
}

func (e *FlushError) Error() string {
	return fmt.Sprintf("flush %s batch %d: %v", e.Index, e.Batch, e.Err)
}

func (e *FlushError) Unwrap() error { return e.Err }

// ErrClosed is returned when writing to a closed Writer.
var ErrClosed = errors.New("sink: writer closed")

// DefaultBatchSize is used when a Writer is built with a non-positive size.
const DefaultBatchSize = 1000

// Stats summarises what a Writer delivered.
type Stats struct {
	Documents int
	Flushes   int
	Committed bool
}

// Writer accumulates documents and flushes synchronously once BatchSize
// are pending. It is owned by a single job.
type Writer struct {
	index   Index
	size    int
	buf     []*document.Document
	stats   Stats
	closed  bool
	onFlush func(docs int)
}

// Option configures a Writer.
type Option func(*Writer)

// WithFlushHook registers fn to be called after every successful flush.
func WithFlushHook(fn func(docs int)) Option {
	return func(w *Writer) { w.onFlush = fn }
}

// NewWriter returns a Writer for idx.
func NewWriter(idx Index, batchSize int, opts ...Option) *Writer {
	if batchSize <= 0 {
		batchSize = DefaultBatchSize
	}
	w := &Writer{index: idx, size: batchSize, buf: make([]*document.Document, 0, batchSize)}
	for _, opt := range opts {
		opt(w)
	}
	return w
}

// Index returns the destination index.
func (w *Writer) Index() Index { return w.index }

// BatchSize returns the flush threshold.
func (w *Writer) BatchSize() int { return w.size }

// Write freezes d and queues it, flushing when the buffer is full.
func (w *Writer) Write(ctx context.Context, d *document.Document) error {
	if w.closed {
		return ErrClosed
	}
	d.Freeze()
	w.buf = append(w.buf, d)
	if len(w.buf) >= w.size {
		return w.Flush(ctx)
	}
	return nil
}

// Flush sends pending documents, if any.
func (w *Writer) Flush(ctx context.Context) error {
	if len(w.buf) == 0 {
		return nil
	}
	batch := w.buf
	if err := w.index.Add(ctx, batch); err != nil {
		return &FlushError{Index: w.index.Name(), Batch: w.stats.Flushes + 1, Err: err}
	}
	w.stats.Flushes++
	w.stats.Documents += len(batch)
	w.buf = make([]*document.Document, 0, w.size)
	if w.onFlush != nil {
		w.onFlush(len(batch))
	}
	return nil
}

// Close flushes the partial tail and commits exactly once. Subsequent calls
// are no-ops.
func (w *Writer) Close(ctx context.Context) error {
	if w.closed {
		return nil
	}
	if err := w.Flush(ctx); err != nil {
		return err
	}
	w.closed = true
	if err := w.index.Commit(ctx); err != nil {
		return fmt.Errorf("commit %s: %w", w.index.Name(), err)
	}
	w.stats.Committed = true
	return nil
}

// Pending returns the number of buffered documents.
func (w *Writer) Pending() int { return len(w.buf) }

// Stats returns delivery counters.
func (w *Writer) Stats() Stats { return w.stats }
