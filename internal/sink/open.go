package sink

import (
	"fmt"
	"net/http"

	"mgiindexer/internal/blob"
	"mgiindexer/internal/infra/index/archive"
	"mgiindexer/internal/infra/index/memory"
	"mgiindexer/internal/infra/index/solr"
)

// Backend names an index implementation.
type Backend string

const (
	BackendSolr    Backend = "solr"
	BackendArchive Backend = "archive"
	BackendMemory  Backend = "memory"
)

// Config selects and parameterises the index backend.
type Config struct {
	Backend Backend

	// solr
	URL        string
	HTTPClient *http.Client

	// archive
	Store  blob.Store
	Prefix string

	// memory; a nil Recorder yields throwaway indexes
	Recorder *memory.Recorder
}

// Open returns the named index on the configured backend. runID keys the
// archive layout.
func Open(cfg Config, name, runID string) (Index, error) {
	switch cfg.Backend {
	case BackendSolr:
		return solr.New(cfg.URL, name, cfg.HTTPClient)
	case BackendArchive:
		if cfg.Store == nil {
			return nil, fmt.Errorf("archive backend requires a blob store")
		}
		return archive.New(cfg.Store, cfg.Prefix, name, runID), nil
	case BackendMemory:
		if cfg.Recorder != nil {
			return cfg.Recorder.Index(name), nil
		}
		return memory.New(name), nil
	default:
		return nil, fmt.Errorf("unknown index backend %q", cfg.Backend)
	}
}
