package backend

import (
	"context"

	"tripspese/internal/sheets"
	"tripspese/internal/storage"
)

// Factory creates the ledger store and the report writer from configuration.
type Factory interface {
	// CreateStore opens the store selected by config.Type.
	CreateStore(ctx context.Context, config Config) (storage.Store, error)

	// CreateReportWriter returns the Google Sheets writer when a spreadsheet
	// is configured and an in-process writer otherwise.
	CreateReportWriter(ctx context.Context, config Config) (sheets.ReportWriter, error)
}

// BackendType represents the type of backend
type BackendType string

const (
	SQLiteBackend BackendType = "sqlite"
	MongoBackend  BackendType = "mongo"
	MemoryBackend BackendType = "memory"
)

// String implements fmt.Stringer
func (bt BackendType) String() string {
	return string(bt)
}

// IsValid returns true if the backend type is valid
func (bt BackendType) IsValid() bool {
	switch bt {
	case SQLiteBackend, MongoBackend, MemoryBackend:
		return true
	default:
		return false
	}
}
