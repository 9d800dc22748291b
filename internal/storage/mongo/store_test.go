package mongo

import (
	"context"
	"os"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
	"github.com/stretchr/testify/suite"
	"go.mongodb.org/mongo-driver/v2/bson"

	"tripspese/internal/core"
	"tripspese/internal/storage"
	"tripspese/internal/storage/storagetest"
)

// Set MONGODB_TEST_URI to run these against a live server. Each store gets
// its own throwaway database.
func newTestStore(t *testing.T) *Store {
	t.Helper()
	uri := os.Getenv("MONGODB_TEST_URI")
	if uri == "" {
		t.Skip("MONGODB_TEST_URI not set")
	}
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	db := "tripspese_test_" + strings.ReplaceAll(uuid.NewString(), "-", "")[:12]
	s, err := New(ctx, uri, db)
	require.NoError(t, err)
	s.dropOnClose = true
	return s
}

func TestMongoStoreContract(t *testing.T) {
	if os.Getenv("MONGODB_TEST_URI") == "" {
		t.Skip("MONGODB_TEST_URI not set")
	}
	s := storagetest.New(nil)
	s.NewStore = func() storage.Store { return newTestStore(s.T()) }
	suite.Run(t, s)
}

func TestLegacyDocumentsWithoutActiveField(t *testing.T) {
	s := newTestStore(t)
	defer s.Close()
	ctx := context.Background()

	id := core.NewID()
	_, err := s.expenses.InsertOne(ctx, bson.M{
		"_id":          id,
		"seq":          int64(0),
		"category":     "food",
		"participants": bson.A{"Dattu", "Ganesh"},
		"amount":       100.0,
		"created_at":   time.Date(2024, 11, 2, 10, 0, 0, 0, time.UTC),
	})
	require.NoError(t, err)

	listed, err := s.Find(ctx, storage.Filter{Participant: "Dattu"}, storage.FindOptions{})
	require.NoError(t, err)
	require.Len(t, listed, 1)
	require.True(t, listed[0].Active)
	require.InDelta(t, 50.0, listed[0].ShareAmount, 1e-9)
	require.Equal(t, core.DefaultCreatedBy, listed[0].CreatedBy)

	deleted, err := s.SoftDelete(ctx, id, time.Now().UTC())
	require.NoError(t, err)
	require.False(t, deleted.Active)

	_, err = s.SoftDelete(ctx, id, time.Now().UTC())
	require.ErrorIs(t, err, core.ErrNotFound)
}

func TestToFilter(t *testing.T) {
	f := toFilter(storage.Filter{Category: "fuel", Participant: "Shubham"})
	require.Equal(t, "fuel", f["category"])
	require.Equal(t, "Shubham", f["participants"])
	require.Contains(t, f, "$or")

	bare := toFilter(storage.Filter{})
	require.Len(t, bare, 1)
}

func TestModelRoundTripDefaults(t *testing.T) {
	m := expenseModel{ID: "x", Amount: 90, Participants: []string{"A", "B", "C"}}
	e := m.toExpense()
	require.True(t, e.Active)
	require.InDelta(t, 30.0, e.ShareAmount, 1e-9)
	require.Equal(t, core.DefaultCreatedBy, e.CreatedBy)

	inactive := false
	m.Active = &inactive
	require.False(t, m.toExpense().Active)

	e = core.NewExpense(core.NewID(), "food", []string{"Dattu"}, "", 10, "", time.Now())
	back := toModel(e, 7)
	require.Equal(t, int64(7), back.Seq)
	require.NotNil(t, back.Active)
	require.True(t, *back.Active)
}
