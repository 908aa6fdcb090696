// Package blob selects and constructs the object store that backs the
// archive index. Implementations live under internal/infra/blob.
package blob

import (
	"context"
	"fmt"

	"mgiindexer/internal/blob/core"
	"mgiindexer/internal/infra/blob/fs"
	memorystore "mgiindexer/internal/infra/blob/memory"
	infraS3 "mgiindexer/internal/infra/blob/s3"
)

type (
	// Driver identifies a blob backend driver.
	Driver = core.Driver
	// PutOptions configures a blob write.
	PutOptions = core.PutOptions
	// Info describes stored blob metadata.
	Info = core.Info
	// Store is the interface for blob storage backends.
	Store = core.Store
	// S3Config configures the S3 driver.
	S3Config = infraS3.Config
)

const (
	DriverFilesystem = core.DriverFilesystem
	DriverS3         = core.DriverS3
	DriverMemory     = core.DriverMemory
)

var (
	ErrExists   = core.ErrExists
	ErrNotFound = core.ErrNotFound
)

// Config selects a driver and carries its settings.
type Config struct {
	Driver Driver
	Root   string // fs driver
	S3     S3Config
}

// Open constructs the configured store. An empty driver means fs.
func Open(ctx context.Context, cfg Config) (Store, error) {
	switch cfg.Driver {
	case "", DriverFilesystem:
		return fs.New(cfg.Root)
	case DriverS3:
		return infraS3.New(ctx, cfg.S3)
	case DriverMemory:
		return memorystore.New(), nil
	default:
		return nil, fmt.Errorf("unknown blob driver %q", cfg.Driver)
	}
}

// NewMemory returns an in-memory store.
func NewMemory() Store { return memorystore.New() }

// NewMockS3ForTests exposes the S3 driver over a fake transport for
// cross-package tests.
func NewMockS3ForTests() Store { return infraS3.NewMockForTests() }
