// Package storagetest holds the behavioural contract every storage.Store
// backend must satisfy. Backends run it from their own tests.
package storagetest

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/stretchr/testify/suite"

	"tripspese/internal/core"
	"tripspese/internal/storage"
)

// StoreSuite exercises a fresh store per test.
type StoreSuite struct {
	suite.Suite
	NewStore func() storage.Store

	store storage.Store
	ctx   context.Context
	base  time.Time
}

// New returns a suite that builds stores with newStore.
func New(newStore func() storage.Store) *StoreSuite {
	return &StoreSuite{NewStore: newStore}
}

func (s *StoreSuite) SetupTest() {
	s.store = s.NewStore()
	s.ctx = context.Background()
	s.base = time.Date(2025, 1, 10, 12, 0, 0, 0, time.UTC)
}

func (s *StoreSuite) TearDownTest() {
	if s.store != nil {
		s.Require().NoError(s.store.Close())
	}
}

func (s *StoreSuite) insert(category string, amount float64, at time.Time, participants ...string) core.Expense {
	e := core.NewExpense(core.NewID(), category, participants, "note "+category, amount, "", at)
	s.Require().NoError(s.store.Insert(s.ctx, e))
	return e
}

func (s *StoreSuite) TestInsertAndGet() {
	e := s.insert("food", 100, s.base, "Dattu", "Ganesh")

	got, err := s.store.Get(s.ctx, e.ID)
	s.Require().NoError(err)
	s.Equal(e.ID, got.ID)
	s.Equal("food", got.Category)
	s.Equal([]string{"Dattu", "Ganesh"}, got.Participants)
	s.InDelta(50.0, got.ShareAmount, 1e-9)
	s.True(got.Active)
	s.True(e.CreatedAt.Equal(got.CreatedAt), "createdAt %v != %v", e.CreatedAt, got.CreatedAt)

	_, err = s.store.Get(s.ctx, core.NewID())
	s.Require().ErrorIs(err, core.ErrNotFound)
}

func (s *StoreSuite) TestParticipantOrderPreserved() {
	e := s.insert("fuel", 30, s.base, "Shubham", "Dattu", "Jalindar")
	got, err := s.store.Get(s.ctx, e.ID)
	s.Require().NoError(err)
	s.Equal([]string{"Shubham", "Dattu", "Jalindar"}, got.Participants)
}

func (s *StoreSuite) TestFindOrdersNewestFirstWithStableTies() {
	older := s.insert("food", 1, s.base, "Dattu")
	tieA := s.insert("food", 2, s.base.Add(time.Hour), "Dattu")
	tieB := s.insert("food", 3, s.base.Add(time.Hour), "Dattu")
	newest := s.insert("food", 4, s.base.Add(2*time.Hour), "Dattu")

	got, err := s.store.Find(s.ctx, storage.Filter{}, storage.FindOptions{})
	s.Require().NoError(err)
	s.Require().Len(got, 4)
	s.Equal([]string{newest.ID, tieA.ID, tieB.ID, older.ID}, ids(got))
}

func (s *StoreSuite) TestFindFilters() {
	s.insert("food", 10, s.base, "Dattu", "Ganesh")
	s.insert("fuel", 20, s.base.Add(time.Minute), "Ganesh")
	s.insert("food", 30, s.base.Add(2*time.Minute), "Shubham")

	byCat, err := s.store.Find(s.ctx, storage.Filter{Category: "food"}, storage.FindOptions{})
	s.Require().NoError(err)
	s.Len(byCat, 2)

	byPerson, err := s.store.Find(s.ctx, storage.Filter{Participant: "Ganesh"}, storage.FindOptions{})
	s.Require().NoError(err)
	s.Len(byPerson, 2)

	both, err := s.store.Find(s.ctx, storage.Filter{Category: "food", Participant: "Ganesh"}, storage.FindOptions{})
	s.Require().NoError(err)
	s.Require().Len(both, 1)
	s.InDelta(10.0, both[0].Amount, 1e-9)

	n, err := s.store.Count(s.ctx, storage.Filter{Category: "food"})
	s.Require().NoError(err)
	s.Equal(2, n)

	none, err := s.store.Find(s.ctx, storage.Filter{Category: "lodging"}, storage.FindOptions{})
	s.Require().NoError(err)
	s.Empty(none)
}

func (s *StoreSuite) TestFindSkipLimit() {
	for i := 0; i < 15; i++ {
		s.insert("food", float64(i+1), s.base.Add(time.Duration(i)*time.Minute), "Dattu")
	}

	page2, err := s.store.Find(s.ctx, storage.Filter{}, storage.FindOptions{Skip: 10, Limit: 10})
	s.Require().NoError(err)
	s.Len(page2, 5)
	// oldest five, newest first
	s.InDelta(5.0, page2[0].Amount, 1e-9)
	s.InDelta(1.0, page2[4].Amount, 1e-9)

	beyond, err := s.store.Find(s.ctx, storage.Filter{}, storage.FindOptions{Skip: 20, Limit: 10})
	s.Require().NoError(err)
	s.Empty(beyond)

	n, err := s.store.Count(s.ctx, storage.Filter{})
	s.Require().NoError(err)
	s.Equal(15, n)
}

func (s *StoreSuite) TestTotals() {
	empty, err := s.store.Totals(s.ctx, storage.Filter{})
	s.Require().NoError(err)
	s.Equal(0, empty.Count)
	s.InDelta(0.0, empty.Amount, 1e-9)

	s.insert("food", 10.5, s.base, "Dattu")
	s.insert("food", 20.25, s.base, "Ganesh")
	s.insert("fuel", 100, s.base, "Ganesh")

	t, err := s.store.Totals(s.ctx, storage.Filter{Category: "food"})
	s.Require().NoError(err)
	s.Equal(2, t.Count)
	s.InDelta(30.75, t.Amount, 1e-9)
}

func (s *StoreSuite) TestSoftDeleteLifecycle() {
	e := s.insert("food", 100, s.base, "Dattu", "Ganesh")
	other := s.insert("fuel", 40, s.base, "Dattu")
	at := s.base.Add(24 * time.Hour)

	deleted, err := s.store.SoftDelete(s.ctx, e.ID, at)
	s.Require().NoError(err)
	s.False(deleted.Active)
	s.True(at.Equal(deleted.UpdatedAt), "updatedAt %v", deleted.UpdatedAt)
	s.True(e.CreatedAt.Equal(deleted.CreatedAt), "createdAt must not change")

	_, err = s.store.SoftDelete(s.ctx, e.ID, at)
	s.Require().ErrorIs(err, core.ErrNotFound)

	_, err = s.store.SoftDelete(s.ctx, core.NewID(), at)
	s.Require().ErrorIs(err, core.ErrNotFound)

	got, err := s.store.Get(s.ctx, e.ID)
	s.Require().NoError(err)
	s.False(got.Active)

	listed, err := s.store.Find(s.ctx, storage.Filter{}, storage.FindOptions{})
	s.Require().NoError(err)
	s.Equal([]string{other.ID}, ids(listed))

	st, err := s.store.Stats(s.ctx)
	s.Require().NoError(err)
	s.Equal(core.Stats{Total: 2, Active: 1, Deleted: 1}, st)
}

func (s *StoreSuite) TestConcurrentSoftDeleteHasOneWinner() {
	e := s.insert("food", 100, s.base, "Dattu")

	const workers = 8
	var (
		wg        sync.WaitGroup
		successes atomic.Int32
		notFound  atomic.Int32
		other     atomic.Value
	)
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := s.store.SoftDelete(s.ctx, e.ID, time.Now().UTC())
			switch {
			case err == nil:
				successes.Add(1)
			case errors.Is(err, core.ErrNotFound):
				notFound.Add(1)
			default:
				other.Store(fmt.Sprint(err))
			}
		}()
	}
	wg.Wait()

	s.Nil(other.Load())
	s.Equal(int32(1), successes.Load())
	s.Equal(int32(workers-1), notFound.Load())
}

func (s *StoreSuite) TestPing() {
	s.NoError(s.store.Ping(s.ctx))
}

func ids(es []core.Expense) []string {
	out := make([]string, 0, len(es))
	for _, e := range es {
		out = append(out, e.ID)
	}
	return out
}
