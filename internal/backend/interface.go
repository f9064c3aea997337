package backend

import (
	"context"

	"cuotas/internal/services"
	"cuotas/internal/sheets"
)

// BackendType selects where the ledger is stored.
type BackendType string

const (
	MemoryBackend BackendType = "memory"
	SQLiteBackend BackendType = "sqlite"
)

func (t BackendType) IsValid() bool {
	return t == MemoryBackend || t == SQLiteBackend
}

func (t BackendType) String() string {
	return string(t)
}

// CleanupFunc represents a cleanup function for resources
type CleanupFunc func() error

// BackendResult carries the store, the optional event publisher and the
// function that releases both.
type BackendResult struct {
	Store   services.Store
	Events  services.EventPublisher
	Cleanup CleanupFunc
}

// Mirror is the spreadsheet copy of the ledger kept by the sync worker.
type Mirror struct {
	Writer sheets.LedgerWriter
	Reader sheets.LedgerReader
	Remote bool
}

// Factory creates backends based on configuration
type Factory interface {
	CreateBackend(ctx context.Context, config Config) (*BackendResult, error)
	CreateMirror(ctx context.Context, config Config) (*Mirror, error)
}
