// Package archive stores index batches as JSON-lines objects in a blob
// store. A run is laid out as
//
//	<prefix>/<index>/<runID>/batch-000001.jsonl
//	<prefix>/<index>/<runID>/manifest.json
//
// and is only complete once the manifest exists.
package archive

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"path"
	"time"

	"mgiindexer/internal/blob"
	"mgiindexer/internal/document"
)

const (
	ManifestName = "manifest.json"
	jsonLines    = "application/x-ndjson"
)

// Manifest describes one committed run.
type Manifest struct {
	Index       string    `json:"index"`
	RunID       string    `json:"run_id"`
	Batches     []string  `json:"batches"`
	Documents   int       `json:"documents"`
	CommittedAt time.Time `json:"committed_at"`
}

// Index writes one run of one index.
type Index struct {
	store  blob.Store
	prefix string
	name   string
	runID  string

	batches   []string
	documents int
	now       func() time.Time
}

// New returns an archive index writing under prefix.
func New(store blob.Store, prefix, name, runID string) *Index {
	return &Index{store: store, prefix: prefix, name: name, runID: runID, now: time.Now}
}

// Name returns the index name.
func (x *Index) Name() string { return x.name }

// RunDir returns the key prefix of this run.
func (x *Index) RunDir() string { return path.Join(x.prefix, x.name, x.runID) }

// Clear deletes every object previously archived for the index.
func (x *Index) Clear(ctx context.Context) error {
	infos, err := x.store.List(ctx, path.Join(x.prefix, x.name)+"/")
	if err != nil {
		return fmt.Errorf("list %s: %w", x.name, err)
	}
	for _, info := range infos {
		if _, err := x.store.Delete(ctx, info.Key); err != nil {
			return fmt.Errorf("delete %s: %w", info.Key, err)
		}
	}
	x.batches = nil
	x.documents = 0
	return nil
}

// Add writes one batch object.
func (x *Index) Add(ctx context.Context, docs []*document.Document) error {
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	for _, d := range docs {
		if err := enc.Encode(d); err != nil {
			return fmt.Errorf("encode document: %w", err)
		}
	}
	key := path.Join(x.RunDir(), fmt.Sprintf("batch-%06d.jsonl", len(x.batches)+1))
	if _, err := x.store.Put(ctx, key, bytes.NewReader(buf.Bytes()), blob.PutOptions{
		ContentType: jsonLines,
		Metadata:    map[string]string{"index": x.name, "run": x.runID},
	}); err != nil {
		return err
	}
	x.batches = append(x.batches, path.Base(key))
	x.documents += len(docs)
	return nil
}

// Commit writes the manifest.
func (x *Index) Commit(ctx context.Context) error {
	m := Manifest{
		Index:       x.name,
		RunID:       x.runID,
		Batches:     append([]string{}, x.batches...),
		Documents:   x.documents,
		CommittedAt: x.now().UTC(),
	}
	b, err := json.MarshalIndent(m, "", "  ")
	if err != nil {
		return err
	}
	_, err = x.store.Put(ctx, path.Join(x.RunDir(), ManifestName), bytes.NewReader(b), blob.PutOptions{ContentType: "application/json"})
	return err
}

// ReadManifest loads the manifest of a committed run.
func ReadManifest(ctx context.Context, store blob.Store, prefix, name, runID string) (Manifest, error) {
	_, rc, err := store.Get(ctx, path.Join(prefix, name, runID, ManifestName))
	if err != nil {
		return Manifest{}, err
	}
	defer func() { _ = rc.Close() }()
	var m Manifest
	if err := json.NewDecoder(rc).Decode(&m); err != nil {
		return Manifest{}, fmt.Errorf("decode manifest: %w", err)
	}
	return m, nil
}
