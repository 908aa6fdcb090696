// Package memory implements an in-process search index that records every
// batch and commit. It backs tests and dry runs.
package memory

import (
	"context"
	"sort"
	"sync"

	"mgiindexer/internal/document"
)

// Index records the batches delivered to one named index.
type Index struct {
	name string

	mu       sync.Mutex
	batches  [][]*document.Document
	visible  []*document.Document
	commits  int
	clears   int
	failAdd  error
	failComm error
}

// New returns an empty index.
func New(name string) *Index { return &Index{name: name} }

// Name returns the index name.
func (x *Index) Name() string { return x.name }

// Clear drops all recorded and visible documents.
func (x *Index) Clear(context.Context) error {
	x.mu.Lock()
	defer x.mu.Unlock()
	x.batches = nil
	x.visible = nil
	x.clears++
	return nil
}

// Add records one batch.
func (x *Index) Add(_ context.Context, docs []*document.Document) error {
	x.mu.Lock()
	defer x.mu.Unlock()
	if x.failAdd != nil {
		return x.failAdd
	}
	x.batches = append(x.batches, append([]*document.Document(nil), docs...))
	return nil
}

// Commit makes every recorded batch visible.
func (x *Index) Commit(context.Context) error {
	x.mu.Lock()
	defer x.mu.Unlock()
	if x.failComm != nil {
		return x.failComm
	}
	x.visible = x.visible[:0]
	for _, b := range x.batches {
		x.visible = append(x.visible, b...)
	}
	x.commits++
	return nil
}

// FailAdd makes subsequent Add calls return err.
func (x *Index) FailAdd(err error) {
	x.mu.Lock()
	x.failAdd = err
	x.mu.Unlock()
}

// FailCommit makes subsequent Commit calls return err.
func (x *Index) FailCommit(err error) {
	x.mu.Lock()
	x.failComm = err
	x.mu.Unlock()
}

// Batches returns the recorded batches in delivery order.
func (x *Index) Batches() [][]*document.Document {
	x.mu.Lock()
	defer x.mu.Unlock()
	out := make([][]*document.Document, len(x.batches))
	copy(out, x.batches)
	return out
}

// Documents returns the documents visible as of the last commit.
func (x *Index) Documents() []*document.Document {
	x.mu.Lock()
	defer x.mu.Unlock()
	return append([]*document.Document(nil), x.visible...)
}

// Commits returns how many times Commit succeeded.
func (x *Index) Commits() int {
	x.mu.Lock()
	defer x.mu.Unlock()
	return x.commits
}

// Clears returns how many times Clear was called.
func (x *Index) Clears() int {
	x.mu.Lock()
	defer x.mu.Unlock()
	return x.clears
}

// Recorder hands out one Index per name so a whole run can be inspected.
type Recorder struct {
	mu      sync.Mutex
	indexes map[string]*Index
}

// NewRecorder returns an empty Recorder.
func NewRecorder() *Recorder { return &Recorder{indexes: make(map[string]*Index)} }

// Index returns the index for name, creating it on first use.
func (r *Recorder) Index(name string) *Index {
	r.mu.Lock()
	defer r.mu.Unlock()
	x, ok := r.indexes[name]
	if !ok {
		x = New(name)
		r.indexes[name] = x
	}
	return x
}

// Names returns the names of every index handed out, sorted.
func (r *Recorder) Names() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]string, 0, len(r.indexes))
	for n := range r.indexes {
		out = append(out, n)
	}
	sort.Strings(out)
	return out
}
