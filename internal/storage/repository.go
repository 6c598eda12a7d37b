// Package storage implements the ledger and auth persistence ports on
// SQLite. Owner scoping happens in every predicate: no query returns rows
// outside the caller's user_id.
package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	_ "modernc.org/sqlite"

	"finanzas/internal/core"
	"finanzas/internal/ledger"
)

const dateLayout = "2006-01-02"

type SQLiteRepository struct {
	db *sql.DB
}

// NewSQLiteRepository opens (creating if needed) the database at dbPath and
// applies pending migrations.
func NewSQLiteRepository(dbPath string) (*SQLiteRepository, error) {
	if dir := filepath.Dir(dbPath); dir != "." && dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("create db directory: %w", err)
		}
	}

	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("open sqlite database: %w", err)
	}
	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}
	if err := RunMigrations(dbPath); err != nil {
		db.Close()
		return nil, fmt.Errorf("run migrations: %w", err)
	}
	return &SQLiteRepository{db: db}, nil
}

func (r *SQLiteRepository) Close() error {
	if r.db != nil {
		return r.db.Close()
	}
	return nil
}

// unavailable tags a driver failure so callers can match it with
// errors.Is(err, ledger.ErrStoreUnavailable).
func unavailable(op string, err error) error {
	return fmt.Errorf("%s: %w: %v", op, ledger.ErrStoreUnavailable, err)
}

func isUniqueViolation(err error) bool {
	return err != nil && strings.Contains(err.Error(), "UNIQUE constraint failed")
}

// Categories implements ledger.Repository.
func (r *SQLiteRepository) Categories(ctx context.Context, ownerID string) ([]core.Category, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT id, user_id, name, kind FROM categories WHERE user_id = ? ORDER BY name`, ownerID)
	if err != nil {
		return nil, unavailable("select categories", err)
	}
	defer rows.Close()

	cats := []core.Category{}
	for rows.Next() {
		var c core.Category
		var kind string
		if err := rows.Scan(&c.ID, &c.OwnerID, &c.Name, &kind); err != nil {
			return nil, unavailable("scan category", err)
		}
		c.Kind = core.Kind(kind)
		cats = append(cats, c)
	}
	if err := rows.Err(); err != nil {
		return nil, unavailable("iterate categories", err)
	}
	return cats, nil
}

// InsertCategory implements ledger.Repository.
func (r *SQLiteRepository) InsertCategory(ctx context.Context, c core.Category) error {
	_, err := r.db.ExecContext(ctx,
		`INSERT INTO categories (id, user_id, name, kind) VALUES (?, ?, ?, ?)`,
		c.ID, c.OwnerID, c.Name, string(c.Kind))
	if isUniqueViolation(err) {
		return fmt.Errorf("%w: %s", ledger.ErrDuplicateCategory, c.Name)
	}
	if err != nil {
		return unavailable("insert category", err)
	}
	return nil
}

// SeedCategories implements ledger.Repository. The whole seed is one
// transaction and INSERT OR IGNORE rides the (user_id, name) constraint,
// so concurrent first logins cannot produce duplicate rows.
func (r *SQLiteRepository) SeedCategories(ctx context.Context, ownerID string, defaults []core.Category) (int, error) {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, unavailable("begin seed", err)
	}
	defer tx.Rollback()

	inserted := 0
	for _, c := range defaults {
		res, err := tx.ExecContext(ctx,
			`INSERT OR IGNORE INTO categories (id, user_id, name, kind) VALUES (?, ?, ?, ?)`,
			c.ID, ownerID, c.Name, string(c.Kind))
		if err != nil {
			return 0, unavailable("seed category", err)
		}
		if n, err := res.RowsAffected(); err == nil {
			inserted += int(n)
		}
	}
	if err := tx.Commit(); err != nil {
		return 0, unavailable("commit seed", err)
	}
	return inserted, nil
}

// DeleteCategory implements ledger.Repository. The reference check, the
// reassignment and the delete run inside a single transaction: either the
// category disappears with no orphaned references left behind, or nothing
// changes.
func (r *SQLiteRepository) DeleteCategory(ctx context.Context, ownerID, name, reassignTo string) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return unavailable("begin delete category", err)
	}
	defer tx.Rollback()

	var refs int
	err = tx.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM transactions WHERE user_id = ? AND category = ?`,
		ownerID, name).Scan(&refs)
	if err != nil {
		return unavailable("count category references", err)
	}

	if refs > 0 {
		if reassignTo == "" {
			return fmt.Errorf("%w: %s has %d transactions", ledger.ErrCategoryInUse, name, refs)
		}
		if reassignTo == name {
			return fmt.Errorf("%w: cannot reassign %s to itself", ledger.ErrCategoryInUse, name)
		}
		var exists bool
		err = tx.QueryRowContext(ctx,
			`SELECT EXISTS(SELECT 1 FROM categories WHERE user_id = ? AND name = ?)`,
			ownerID, reassignTo).Scan(&exists)
		if err != nil {
			return unavailable("check reassign target", err)
		}
		if !exists {
			return fmt.Errorf("%w: reassign target %s", ledger.ErrNotFound, reassignTo)
		}
		if _, err := tx.ExecContext(ctx,
			`UPDATE transactions SET category = ? WHERE user_id = ? AND category = ?`,
			reassignTo, ownerID, name); err != nil {
			return unavailable("reassign transactions", err)
		}
	}

	if _, err := tx.ExecContext(ctx,
		`DELETE FROM categories WHERE user_id = ? AND name = ?`, ownerID, name); err != nil {
		return unavailable("delete category", err)
	}
	if err := tx.Commit(); err != nil {
		return unavailable("commit delete category", err)
	}
	return nil
}

// Transactions implements ledger.Repository. Amounts are scanned as raw
// text: a value that fails numeric coercion is normalized to zero cents
// with a warning instead of failing the whole load. Rows whose date cannot
// be parsed are dropped with a warning.
func (r *SQLiteRepository) Transactions(ctx context.Context, ownerID string) ([]core.Transaction, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT id, user_id, tdate, CAST(amount_cents AS TEXT), kind, category, note
		 FROM transactions WHERE user_id = ? ORDER BY tdate ASC, created_at ASC`, ownerID)
	if err != nil {
		return nil, unavailable("select transactions", err)
	}
	defer rows.Close()

	txs := []core.Transaction{}
	for rows.Next() {
		var t core.Transaction
		var tdate, amount, kind string
		if err := rows.Scan(&t.ID, &t.OwnerID, &tdate, &amount, &kind, &t.Category, &t.Note); err != nil {
			return nil, unavailable("scan transaction", err)
		}
		t.Kind = core.Kind(kind)

		cents, err := strconv.ParseInt(strings.TrimSpace(amount), 10, 64)
		if err != nil {
			slog.WarnContext(ctx, "Transaction amount failed numeric coercion, using zero",
				"id", t.ID, "raw", amount)
			cents = 0
		}
		t.Amount = core.Money{Cents: cents}

		d, err := time.ParseInLocation(dateLayout, tdate, time.UTC)
		if err != nil {
			slog.WarnContext(ctx, "Transaction date unparseable, dropping row",
				"id", t.ID, "raw", tdate)
			continue
		}
		t.Date = d
		txs = append(txs, t)
	}
	if err := rows.Err(); err != nil {
		return nil, unavailable("iterate transactions", err)
	}
	return txs, nil
}

// InsertTransaction implements ledger.Repository.
func (r *SQLiteRepository) InsertTransaction(ctx context.Context, t core.Transaction) error {
	_, err := r.db.ExecContext(ctx,
		`INSERT INTO transactions (id, user_id, tdate, amount_cents, kind, category, note)
		 VALUES (?, ?, ?, ?, ?, ?, ?)`,
		t.ID, t.OwnerID, t.Date.Format(dateLayout), t.Amount.Cents, string(t.Kind), t.Category, t.Note)
	if err != nil {
		return unavailable("insert transaction", err)
	}
	return nil
}

// DeleteTransaction implements ledger.Repository. Zero rows affected
// (unknown id, or another owner's row) is success.
func (r *SQLiteRepository) DeleteTransaction(ctx context.Context, ownerID, id string) error {
	_, err := r.db.ExecContext(ctx,
		`DELETE FROM transactions WHERE user_id = ? AND id = ?`, ownerID, id)
	if err != nil {
		return unavailable("delete transaction", err)
	}
	return nil
}

// GetTransaction implements ledger.Repository.
func (r *SQLiteRepository) GetTransaction(ctx context.Context, ownerID, id string) (core.Transaction, error) {
	var t core.Transaction
	var tdate, kind string
	err := r.db.QueryRowContext(ctx,
		`SELECT id, user_id, tdate, amount_cents, kind, category, note
		 FROM transactions WHERE user_id = ? AND id = ?`, ownerID, id).
		Scan(&t.ID, &t.OwnerID, &tdate, &t.Amount.Cents, &kind, &t.Category, &t.Note)
	if errors.Is(err, sql.ErrNoRows) {
		return core.Transaction{}, fmt.Errorf("%w: transaction %s", ledger.ErrNotFound, id)
	}
	if err != nil {
		return core.Transaction{}, unavailable("get transaction", err)
	}
	t.Kind = core.Kind(kind)
	if d, err := time.ParseInLocation(dateLayout, tdate, time.UTC); err == nil {
		t.Date = d
	}
	return t, nil
}
