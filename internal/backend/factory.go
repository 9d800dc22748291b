package backend

import (
	"context"
	"fmt"
	"log/slog"

	"tripspese/internal/sheets"
	gsheet "tripspese/internal/sheets/google"
	sheetsmem "tripspese/internal/sheets/memory"
	"tripspese/internal/storage"
	"tripspese/internal/storage/memory"
	"tripspese/internal/storage/mongo"
	"tripspese/internal/storage/sqlite"
)

// DefaultFactory implements the Factory interface
type DefaultFactory struct {
	logger *slog.Logger
}

// NewFactory creates a new backend factory
func NewFactory(logger *slog.Logger) Factory {
	if logger == nil {
		logger = slog.Default()
	}
	return &DefaultFactory{
		logger: logger,
	}
}

// CreateStore implements Factory.CreateStore
func (f *DefaultFactory) CreateStore(ctx context.Context, config Config) (storage.Store, error) {
	if err := config.Validate(); err != nil {
		return nil, err
	}

	switch config.Type {
	case SQLiteBackend:
		return f.createSQLiteStore(config)
	case MongoBackend:
		return f.createMongoStore(ctx, config)
	case MemoryBackend:
		return f.createMemoryStore(config)
	default:
		return nil, fmt.Errorf("unsupported backend type: %s", config.Type)
	}
}

func (f *DefaultFactory) createSQLiteStore(config Config) (storage.Store, error) {
	repo, err := sqlite.NewRepository(config.SQLiteDBPath)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize SQLite repository: %w", err)
	}
	f.logger.Info("Initialized SQLite backend", "db_path", config.SQLiteDBPath)
	return repo, nil
}

func (f *DefaultFactory) createMongoStore(ctx context.Context, config Config) (storage.Store, error) {
	store, err := mongo.New(ctx, config.MongoURI, config.MongoDatabase)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize MongoDB store: %w", err)
	}
	// the URI may carry credentials, so only the database is logged
	f.logger.Info("Initialized MongoDB backend", "database", config.MongoDatabase)
	return store, nil
}

func (f *DefaultFactory) createMemoryStore(config Config) (storage.Store, error) {
	if config.DataDirectory == "" {
		f.logger.Info("Initialized memory backend without seed data")
		return memory.New(), nil
	}
	store, err := memory.NewFromFiles(config.DataDirectory)
	if err != nil {
		return nil, fmt.Errorf("failed to seed memory backend: %w", err)
	}
	f.logger.Info("Initialized memory backend", "data_directory", config.DataDirectory)
	return store, nil
}

// CreateReportWriter implements Factory.CreateReportWriter
func (f *DefaultFactory) CreateReportWriter(ctx context.Context, config Config) (sheets.ReportWriter, error) {
	if !config.SheetsEnabled() {
		f.logger.Warn("No spreadsheet configured, reports are kept in memory only")
		return sheetsmem.New(), nil
	}

	svc, err := gsheet.NewService(ctx, gsheet.Credentials{
		JSON: config.GoogleServiceAccountJSON,
		File: config.GoogleServiceAccountFile,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to initialize Google Sheets service: %w", err)
	}
	client, err := gsheet.NewClient(svc, config.GoogleSpreadsheetID, config.GoogleSheetName, config.GoogleTotalsSheetName)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize Google Sheets client: %w", err)
	}
	f.logger.Info("Initialized Google Sheets report writer",
		"expenses_sheet", config.GoogleSheetName,
		"totals_sheet", config.GoogleTotalsSheetName)
	return client, nil
}
