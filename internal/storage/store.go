// Package storage defines the ledger store port shared by the SQLite,
// MongoDB and in-memory backends.
package storage

import (
	"context"
	"time"

	"tripspese/internal/core"
)

// Filter narrows a query. Every query is implicitly restricted to active
// records, where a record without an active flag counts as active.
type Filter struct {
	Category    string // exact match when non-empty
	Participant string // membership when non-empty
}

// FindOptions bounds a listing. A zero Limit means no limit.
type FindOptions struct {
	Skip  int
	Limit int
}

// Totals is the raw aggregate of the records matching a filter.
type Totals struct {
	Amount float64
	Count  int
}

// Store is the durable expense collection. Implementations order listings by
// CreatedAt descending with insertion order as the tie-break, and must make
// SoftDelete a single conditional write so concurrent deletes of the same id
// resolve to one success and core.ErrNotFound for the rest.
type Store interface {
	// Insert persists a new record.
	Insert(ctx context.Context, e core.Expense) error

	// Get returns a record by id regardless of its lifecycle state.
	Get(ctx context.Context, id string) (core.Expense, error)

	// SoftDelete flips an active record to inactive and stamps UpdatedAt.
	// It returns core.ErrNotFound when no active record has that id.
	SoftDelete(ctx context.Context, id string, at time.Time) (core.Expense, error)

	// Find lists active records matching f.
	Find(ctx context.Context, f Filter, opts FindOptions) ([]core.Expense, error)

	// Count returns the number of active records matching f.
	Count(ctx context.Context, f Filter) (int, error)

	// Totals sums the amounts of active records matching f.
	Totals(ctx context.Context, f Filter) (Totals, error)

	// Stats counts records by lifecycle state.
	Stats(ctx context.Context) (core.Stats, error)

	// Ping checks connectivity.
	Ping(ctx context.Context) error

	// Close releases any resources held by the store.
	Close() error
}
