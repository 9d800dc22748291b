// Package sqlite stores the ledger in a single SQLite file using the pure-Go
// modernc driver. Participants live in a side table so membership filters
// stay indexable and their order is kept.
package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"tripspese/internal/core"
	"tripspese/internal/storage"

	_ "modernc.org/sqlite"
)

var _ storage.Store = (*Repository)(nil)

// activeClause treats rows without an active flag as active.
const activeClause = "(e.active IS NULL OR e.active = 1)"

const selectColumns = `e.id, e.category, e.note, e.amount, e.share_amount, e.created_by, e.created_at, e.updated_at, e.active`

type Repository struct {
	db *sql.DB
}

// NewRepository opens dbPath, creating parent directories, and migrates it.
func NewRepository(dbPath string) (*Repository, error) {
	if err := os.MkdirAll(filepath.Dir(dbPath), 0o755); err != nil {
		return nil, fmt.Errorf("create db directory: %w", err)
	}

	if err := RunMigrations(dbPath); err != nil {
		return nil, err
	}

	db, err := sql.Open("sqlite", dbPath+"?_pragma=busy_timeout(5000)&_pragma=foreign_keys(1)")
	if err != nil {
		return nil, fmt.Errorf("open sqlite database: %w", err)
	}
	// One writer at a time; SQLite serializes them anyway and this keeps
	// conditional updates free of SQLITE_BUSY churn.
	db.SetMaxOpenConns(1)

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}

	slog.Debug("SQLite ledger ready", "path", dbPath)
	return &Repository{db: db}, nil
}

func (r *Repository) Close() error {
	if r.db != nil {
		return r.db.Close()
	}
	return nil
}

func (r *Repository) Ping(ctx context.Context) error {
	return r.db.PingContext(ctx)
}

func (r *Repository) Insert(ctx context.Context, e core.Expense) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin insert: %w", err)
	}
	defer tx.Rollback()

	_, err = tx.ExecContext(ctx, `
		INSERT INTO expenses (id, category, note, amount, share_amount, created_by, created_at, updated_at, active)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		e.ID, e.Category, e.Note, e.Amount, e.ShareAmount, e.CreatedBy,
		e.CreatedAt.UnixNano(), e.UpdatedAt.UnixNano(), boolToInt(e.Active))
	if err != nil {
		return fmt.Errorf("insert expense: %w", err)
	}

	for i, name := range e.Participants {
		if _, err := tx.ExecContext(ctx,
			`INSERT INTO expense_participants (expense_id, position, name) VALUES (?, ?, ?)`,
			e.ID, i, name); err != nil {
			return fmt.Errorf("insert participant %q: %w", name, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit insert: %w", err)
	}
	return nil
}

func (r *Repository) Get(ctx context.Context, id string) (core.Expense, error) {
	return getExpense(ctx, r.db, id)
}

type querier interface {
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

func getExpense(ctx context.Context, q querier, id string) (core.Expense, error) {
	row := q.QueryRowContext(ctx, `SELECT `+selectColumns+` FROM expenses e WHERE e.id = ?`, id)
	e, err := scanExpense(row)
	if errors.Is(err, sql.ErrNoRows) {
		return core.Expense{}, core.ErrNotFound
	}
	if err != nil {
		return core.Expense{}, fmt.Errorf("get expense: %w", err)
	}
	out := []core.Expense{e}
	if err := loadParticipants(ctx, q, out); err != nil {
		return core.Expense{}, err
	}
	return out[0], nil
}

func (r *Repository) SoftDelete(ctx context.Context, id string, at time.Time) (core.Expense, error) {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return core.Expense{}, fmt.Errorf("begin soft delete: %w", err)
	}
	defer tx.Rollback()

	res, err := tx.ExecContext(ctx,
		`UPDATE expenses SET active = 0, updated_at = ? WHERE id = ? AND (active IS NULL OR active = 1)`,
		at.UnixNano(), id)
	if err != nil {
		return core.Expense{}, fmt.Errorf("soft delete expense: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return core.Expense{}, fmt.Errorf("soft delete rows affected: %w", err)
	}
	if n == 0 {
		return core.Expense{}, core.ErrNotFound
	}

	e, err := getExpense(ctx, tx, id)
	if err != nil {
		return core.Expense{}, err
	}
	if err := tx.Commit(); err != nil {
		return core.Expense{}, fmt.Errorf("commit soft delete: %w", err)
	}
	return e, nil
}

func whereClause(f storage.Filter) (string, []any) {
	clauses := []string{activeClause}
	var args []any
	if f.Category != "" {
		clauses = append(clauses, "e.category = ?")
		args = append(args, f.Category)
	}
	if f.Participant != "" {
		clauses = append(clauses, "EXISTS (SELECT 1 FROM expense_participants p WHERE p.expense_id = e.id AND p.name = ?)")
		args = append(args, f.Participant)
	}
	return " WHERE " + strings.Join(clauses, " AND "), args
}

func (r *Repository) Find(ctx context.Context, f storage.Filter, opts storage.FindOptions) ([]core.Expense, error) {
	where, args := whereClause(f)
	limit := -1
	if opts.Limit > 0 {
		limit = opts.Limit
	}
	args = append(args, limit, max(opts.Skip, 0))

	rows, err := r.db.QueryContext(ctx,
		`SELECT `+selectColumns+` FROM expenses e`+where+
			` ORDER BY e.created_at DESC, e.seq ASC LIMIT ? OFFSET ?`, args...)
	if err != nil {
		return nil, fmt.Errorf("find expenses: %w", err)
	}
	out := []core.Expense{}
	for rows.Next() {
		e, err := scanExpense(rows)
		if err != nil {
			rows.Close()
			return nil, fmt.Errorf("scan expense: %w", err)
		}
		out = append(out, e)
	}
	if err := rows.Err(); err != nil {
		rows.Close()
		return nil, fmt.Errorf("iterate expenses: %w", err)
	}
	// Release the connection before the participants query.
	rows.Close()

	if err := loadParticipants(ctx, r.db, out); err != nil {
		return nil, err
	}
	return out, nil
}

func (r *Repository) Count(ctx context.Context, f storage.Filter) (int, error) {
	where, args := whereClause(f)
	var n int
	if err := r.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM expenses e`+where, args...).Scan(&n); err != nil {
		return 0, fmt.Errorf("count expenses: %w", err)
	}
	return n, nil
}

func (r *Repository) Totals(ctx context.Context, f storage.Filter) (storage.Totals, error) {
	where, args := whereClause(f)
	var t storage.Totals
	err := r.db.QueryRowContext(ctx,
		`SELECT COALESCE(SUM(e.amount), 0), COUNT(*) FROM expenses e`+where, args...).
		Scan(&t.Amount, &t.Count)
	if err != nil {
		return storage.Totals{}, fmt.Errorf("sum expenses: %w", err)
	}
	return t, nil
}

func (r *Repository) Stats(ctx context.Context) (core.Stats, error) {
	var st core.Stats
	err := r.db.QueryRowContext(ctx, `
		SELECT COUNT(*),
		       COALESCE(SUM(CASE WHEN `+activeClause+` THEN 1 ELSE 0 END), 0)
		FROM expenses e`).Scan(&st.Total, &st.Active)
	if err != nil {
		return core.Stats{}, fmt.Errorf("expense stats: %w", err)
	}
	st.Deleted = st.Total - st.Active
	return st, nil
}

type scanner interface {
	Scan(dest ...any) error
}

func scanExpense(s scanner) (core.Expense, error) {
	var (
		e                  core.Expense
		createdAt, updated int64
		active             sql.NullInt64
	)
	if err := s.Scan(&e.ID, &e.Category, &e.Note, &e.Amount, &e.ShareAmount, &e.CreatedBy,
		&createdAt, &updated, &active); err != nil {
		return core.Expense{}, err
	}
	e.CreatedAt = time.Unix(0, createdAt).UTC()
	e.UpdatedAt = time.Unix(0, updated).UTC()
	e.Active = !active.Valid || active.Int64 == 1
	return e, nil
}

// loadParticipants fills Participants for every expense in one query.
func loadParticipants(ctx context.Context, q querier, es []core.Expense) error {
	if len(es) == 0 {
		return nil
	}
	idx := make(map[string]int, len(es))
	args := make([]any, 0, len(es))
	for i := range es {
		idx[es[i].ID] = i
		es[i].Participants = []string{}
		args = append(args, es[i].ID)
	}
	placeholders := strings.TrimSuffix(strings.Repeat("?,", len(es)), ",")

	rows, err := q.QueryContext(ctx,
		`SELECT expense_id, name FROM expense_participants WHERE expense_id IN (`+placeholders+`) ORDER BY expense_id, position`,
		args...)
	if err != nil {
		return fmt.Errorf("load participants: %w", err)
	}
	defer rows.Close()
	for rows.Next() {
		var id, name string
		if err := rows.Scan(&id, &name); err != nil {
			return fmt.Errorf("scan participant: %w", err)
		}
		if i, ok := idx[id]; ok {
			es[i].Participants = append(es[i].Participants, name)
		}
	}
	if err := rows.Err(); err != nil {
		return fmt.Errorf("iterate participants: %w", err)
	}
	return nil
}

func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}
