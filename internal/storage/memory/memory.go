// Package memory is an in-process ledger store used for local development
// and tests. It can be seeded from a JSON file whose entries may predate the
// active flag.
package memory

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"slices"
	"sync"
	"time"

	"tripspese/internal/core"
	"tripspese/internal/storage"
)

// SeedFile is the file name looked up by NewFromFiles.
const SeedFile = "seed_expenses.json"

var _ storage.Store = (*Store)(nil)

type record struct {
	exp    core.Expense
	active *bool // nil for legacy entries
}

func (r *record) isActive() bool {
	return r.active == nil || *r.active
}

func (r *record) snapshot() core.Expense {
	e := r.exp.Clone()
	e.Active = r.isActive()
	return e
}

type Store struct {
	mu    sync.Mutex
	items []*record // insertion order
	byID  map[string]*record
}

func New() *Store {
	return &Store{byID: make(map[string]*record)}
}

// seedEntry mirrors the exported JSON shape of a record. Active is a pointer
// so entries without the field stay legacy.
type seedEntry struct {
	ID           string    `json:"id"`
	Category     string    `json:"category"`
	Participants []string  `json:"participants"`
	Note         string    `json:"note"`
	Amount       float64   `json:"amount"`
	ShareAmount  float64   `json:"shareAmount"`
	CreatedBy    string    `json:"createdBy"`
	CreatedAt    time.Time `json:"createdAt"`
	UpdatedAt    time.Time `json:"updatedAt"`
	Active       *bool     `json:"active"`
}

// NewFromFiles builds a store seeded from base/seed_expenses.json. A missing
// file yields an empty store.
func NewFromFiles(base string) (*Store, error) {
	s := New()
	b, err := os.ReadFile(filepath.Join(base, SeedFile))
	if errors.Is(err, os.ErrNotExist) {
		return s, nil
	}
	if err != nil {
		return nil, fmt.Errorf("read seed file: %w", err)
	}
	var entries []seedEntry
	if err := json.Unmarshal(b, &entries); err != nil {
		return nil, fmt.Errorf("decode seed file: %w", err)
	}
	for i, se := range entries {
		// stored in canonical form so lookups by a parsed id find it
		id, err := core.ParseID(se.ID)
		if err != nil {
			return nil, fmt.Errorf("seed entry %d: %w", i, err)
		}
		if _, dup := s.byID[id]; dup {
			return nil, fmt.Errorf("seed entry %d: duplicate id %s", i, id)
		}
		e := core.NewExpense(id, se.Category, se.Participants, se.Note, se.Amount, se.CreatedBy, se.CreatedAt)
		if se.ShareAmount != 0 {
			e.ShareAmount = se.ShareAmount
		}
		if !se.UpdatedAt.IsZero() {
			e.UpdatedAt = se.UpdatedAt
		}
		s.add(e, se.Active)
	}
	return s, nil
}

func (s *Store) add(e core.Expense, active *bool) {
	r := &record{exp: e.Clone(), active: active}
	s.items = append(s.items, r)
	s.byID[e.ID] = r
}

func (s *Store) Insert(_ context.Context, e core.Expense) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, dup := s.byID[e.ID]; dup {
		return fmt.Errorf("insert expense: duplicate id %s", e.ID)
	}
	active := e.Active
	s.add(e, &active)
	return nil
}

func (s *Store) Get(_ context.Context, id string) (core.Expense, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	r, ok := s.byID[id]
	if !ok {
		return core.Expense{}, core.ErrNotFound
	}
	return r.snapshot(), nil
}

func (s *Store) SoftDelete(_ context.Context, id string, at time.Time) (core.Expense, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	r, ok := s.byID[id]
	if !ok || !r.isActive() {
		return core.Expense{}, core.ErrNotFound
	}
	inactive := false
	r.active = &inactive
	r.exp.UpdatedAt = at
	return r.snapshot(), nil
}

// matching returns active records for f, newest first, with insertion order
// kept among equal timestamps.
func (s *Store) matching(f storage.Filter) []*record {
	var out []*record
	for _, r := range s.items {
		if !r.isActive() {
			continue
		}
		if f.Category != "" && r.exp.Category != f.Category {
			continue
		}
		if f.Participant != "" && !r.exp.HasParticipant(f.Participant) {
			continue
		}
		out = append(out, r)
	}
	slices.SortStableFunc(out, func(a, b *record) int {
		return b.exp.CreatedAt.Compare(a.exp.CreatedAt)
	})
	return out
}

func (s *Store) Find(_ context.Context, f storage.Filter, opts storage.FindOptions) ([]core.Expense, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	recs := s.matching(f)
	if opts.Skip > 0 {
		if opts.Skip >= len(recs) {
			return []core.Expense{}, nil
		}
		recs = recs[opts.Skip:]
	}
	if opts.Limit > 0 && opts.Limit < len(recs) {
		recs = recs[:opts.Limit]
	}
	out := make([]core.Expense, 0, len(recs))
	for _, r := range recs {
		out = append(out, r.snapshot())
	}
	return out, nil
}

func (s *Store) Count(_ context.Context, f storage.Filter) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.matching(f)), nil
}

func (s *Store) Totals(_ context.Context, f storage.Filter) (storage.Totals, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var t storage.Totals
	for _, r := range s.matching(f) {
		t.Amount += r.exp.Amount
		t.Count++
	}
	return t, nil
}

func (s *Store) Stats(_ context.Context) (core.Stats, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	st := core.Stats{Total: len(s.items)}
	for _, r := range s.items {
		if r.isActive() {
			st.Active++
		} else {
			st.Deleted++
		}
	}
	return st, nil
}

func (s *Store) Ping(context.Context) error { return nil }

func (s *Store) Close() error { return nil }
