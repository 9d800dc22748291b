// Package mongo stores the ledger in a MongoDB collection. Documents written
// before the active flag existed have no such field and are read as active.
package mongo

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"go.mongodb.org/mongo-driver/v2/bson"
	"go.mongodb.org/mongo-driver/v2/mongo"
	"go.mongodb.org/mongo-driver/v2/mongo/options"

	"tripspese/internal/core"
	"tripspese/internal/storage"
)

const (
	colExpenses = "expenses"
	colCounters = "counters"
)

var _ storage.Store = (*Store)(nil)

type Store struct {
	client   *mongo.Client
	db       *mongo.Database
	expenses *mongo.Collection
	counters *mongo.Collection

	dropOnClose bool
}

// New connects to uri, selects database and ensures indexes exist.
func New(ctx context.Context, uri, database string) (*Store, error) {
	client, err := mongo.Connect(options.Client().ApplyURI(uri))
	if err != nil {
		return nil, fmt.Errorf("mongo connect: %w", err)
	}
	if err := client.Ping(ctx, nil); err != nil {
		_ = client.Disconnect(context.Background())
		return nil, fmt.Errorf("mongo ping: %w", err)
	}

	db := client.Database(database)
	s := &Store{
		client:   client,
		db:       db,
		expenses: db.Collection(colExpenses),
		counters: db.Collection(colCounters),
	}
	if err := s.Migrate(ctx); err != nil {
		_ = client.Disconnect(context.Background())
		return nil, err
	}
	slog.Debug("MongoDB ledger ready", "database", database)
	return s, nil
}

// Migrate creates the indexes used by listings and filters.
func (s *Store) Migrate(ctx context.Context) error {
	_, err := s.expenses.Indexes().CreateMany(ctx, []mongo.IndexModel{
		{Keys: bson.D{{Key: "created_at", Value: -1}, {Key: "seq", Value: 1}}},
		{Keys: bson.D{{Key: "category", Value: 1}, {Key: "active", Value: 1}}},
		{Keys: bson.D{{Key: "participants", Value: 1}}},
	})
	if err != nil {
		return fmt.Errorf("mongo: migrate %s indexes: %w", colExpenses, err)
	}
	return nil
}

func (s *Store) Ping(ctx context.Context) error {
	return s.client.Ping(ctx, nil)
}

func (s *Store) Close() error {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if s.dropOnClose {
		if err := s.db.Drop(ctx); err != nil {
			slog.Warn("Failed to drop database", "database", s.db.Name(), "error", err)
		}
	}
	return s.client.Disconnect(ctx)
}

// nextSeq hands out the insertion sequence used to break createdAt ties.
func (s *Store) nextSeq(ctx context.Context) (int64, error) {
	var c struct {
		Seq int64 `bson:"seq"`
	}
	err := s.counters.FindOneAndUpdate(ctx,
		bson.M{"_id": colExpenses},
		bson.M{"$inc": bson.M{"seq": 1}},
		options.FindOneAndUpdate().SetUpsert(true).SetReturnDocument(options.After),
	).Decode(&c)
	if err != nil {
		return 0, fmt.Errorf("mongo: next sequence: %w", err)
	}
	return c.Seq, nil
}

func (s *Store) Insert(ctx context.Context, e core.Expense) error {
	seq, err := s.nextSeq(ctx)
	if err != nil {
		return err
	}
	if _, err := s.expenses.InsertOne(ctx, toModel(e, seq)); err != nil {
		return fmt.Errorf("mongo: insert expense: %w", err)
	}
	return nil
}

func (s *Store) Get(ctx context.Context, id string) (core.Expense, error) {
	var m expenseModel
	if err := s.expenses.FindOne(ctx, bson.M{"_id": id}).Decode(&m); err != nil {
		if isNoDocuments(err) {
			return core.Expense{}, core.ErrNotFound
		}
		return core.Expense{}, fmt.Errorf("mongo: get expense: %w", err)
	}
	return m.toExpense(), nil
}

func (s *Store) SoftDelete(ctx context.Context, id string, at time.Time) (core.Expense, error) {
	filter := activeFilter()
	filter["_id"] = id

	var m expenseModel
	err := s.expenses.FindOneAndUpdate(ctx, filter,
		bson.M{"$set": bson.M{"active": false, "updated_at": at}},
		options.FindOneAndUpdate().SetReturnDocument(options.After),
	).Decode(&m)
	if err != nil {
		if isNoDocuments(err) {
			return core.Expense{}, core.ErrNotFound
		}
		return core.Expense{}, fmt.Errorf("mongo: soft delete expense: %w", err)
	}
	return m.toExpense(), nil
}

func (s *Store) Find(ctx context.Context, f storage.Filter, opts storage.FindOptions) ([]core.Expense, error) {
	fo := options.Find().SetSort(bson.D{{Key: "created_at", Value: -1}, {Key: "seq", Value: 1}})
	if opts.Skip > 0 {
		fo.SetSkip(int64(opts.Skip))
	}
	if opts.Limit > 0 {
		fo.SetLimit(int64(opts.Limit))
	}

	cursor, err := s.expenses.Find(ctx, toFilter(f), fo)
	if err != nil {
		return nil, fmt.Errorf("mongo: find expenses: %w", err)
	}
	defer cursor.Close(ctx)

	var models []expenseModel
	if err := cursor.All(ctx, &models); err != nil {
		return nil, fmt.Errorf("mongo: decode expenses: %w", err)
	}
	out := make([]core.Expense, 0, len(models))
	for i := range models {
		out = append(out, models[i].toExpense())
	}
	return out, nil
}

func (s *Store) Count(ctx context.Context, f storage.Filter) (int, error) {
	n, err := s.expenses.CountDocuments(ctx, toFilter(f))
	if err != nil {
		return 0, fmt.Errorf("mongo: count expenses: %w", err)
	}
	return int(n), nil
}

func (s *Store) Totals(ctx context.Context, f storage.Filter) (storage.Totals, error) {
	pipeline := bson.A{
		bson.M{"$match": toFilter(f)},
		bson.M{"$group": bson.M{
			"_id":   nil,
			"total": bson.M{"$sum": "$amount"},
			"count": bson.M{"$sum": 1},
		}},
	}
	cursor, err := s.expenses.Aggregate(ctx, pipeline)
	if err != nil {
		return storage.Totals{}, fmt.Errorf("mongo: aggregate totals: %w", err)
	}
	defer cursor.Close(ctx)

	var results []struct {
		Total float64 `bson:"total"`
		Count int64   `bson:"count"`
	}
	if err := cursor.All(ctx, &results); err != nil {
		return storage.Totals{}, fmt.Errorf("mongo: decode totals: %w", err)
	}
	if len(results) == 0 {
		return storage.Totals{}, nil
	}
	return storage.Totals{Amount: results[0].Total, Count: int(results[0].Count)}, nil
}

func (s *Store) Stats(ctx context.Context) (core.Stats, error) {
	total, err := s.expenses.CountDocuments(ctx, bson.M{})
	if err != nil {
		return core.Stats{}, fmt.Errorf("mongo: count all expenses: %w", err)
	}
	active, err := s.expenses.CountDocuments(ctx, activeFilter())
	if err != nil {
		return core.Stats{}, fmt.Errorf("mongo: count active expenses: %w", err)
	}
	return core.Stats{Total: int(total), Active: int(active), Deleted: int(total - active)}, nil
}

// activeFilter matches active documents and legacy ones without the field.
func activeFilter() bson.M {
	return bson.M{"$or": bson.A{
		bson.M{"active": true},
		bson.M{"active": bson.M{"$exists": false}},
	}}
}

func toFilter(f storage.Filter) bson.M {
	filter := activeFilter()
	if f.Category != "" {
		filter["category"] = f.Category
	}
	if f.Participant != "" {
		filter["participants"] = f.Participant
	}
	return filter
}

func isNoDocuments(err error) bool {
	return errors.Is(err, mongo.ErrNoDocuments)
}
