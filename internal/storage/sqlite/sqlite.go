// Package sqlite implements the order store on an embedded SQLite database.
//
// It serves the same contract as the Postgres store and is meant for local
// runs without a database server. The schema is expected to exist already:
// products(id, name, price[, description][, available]), orders(id,
// customer_name, customer_email, status, created_at) and
// order_items(order_id, product_id, quantity, unit_price).
package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync/atomic"
	"time"

	_ "modernc.org/sqlite"
)

const driverName = "sqlite"

type Storage struct {
	db     *sql.DB
	logger *slog.Logger

	hasAvailable   atomic.Bool
	hasDescription atomic.Bool
}

// querier is satisfied by both *sql.DB and *sql.Tx.
type querier interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

func openDatabase(path string) (*sql.DB, error) {
	db, err := sql.Open(driverName, path)
	if err != nil {
		return nil, err
	}

	// Single writer; pragmas below stick to the one connection.
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)
	db.SetConnMaxLifetime(0)

	if _, err := db.Exec("PRAGMA journal_mode=WAL"); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("enable WAL mode: %w", err)
	}
	if _, err := db.Exec("PRAGMA foreign_keys=ON"); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("enable foreign keys: %w", err)
	}

	return db, nil
}

func NewSQLiteStorage(ctx context.Context, log *slog.Logger, path string) (*Storage, error) {
	db, err := openDatabase(path)
	if err != nil {
		return nil, fmt.Errorf("open sqlite %s: %w", path, err)
	}

	s := &Storage{db: db, logger: log}
	if err = s.probeCapabilities(ctx); err != nil {
		_ = db.Close()
		return nil, err
	}
	return s, nil
}

func (s *Storage) probeCapabilities(ctx context.Context) error {
	var available, description bool
	query := `SELECT
                  coalesce(sum(name = 'available'), 0) > 0,
                  coalesce(sum(name = 'description'), 0) > 0
              FROM pragma_table_info('products')`
	if err := s.db.QueryRowContext(ctx, query).Scan(&available, &description); err != nil {
		return fmt.Errorf("probe products columns: %w", err)
	}

	s.hasAvailable.Store(available)
	s.hasDescription.Store(description)
	s.logger.Info("schema capabilities detected",
		slog.Bool("products_available_column", available),
		slog.Bool("products_description_column", description))
	return nil
}

func (s *Storage) Close() {
	if err := s.db.Close(); err != nil {
		s.logger.Error("close sqlite", slog.Any("error", err))
	}
}

func (s *Storage) runInTx(ctx context.Context, fn func(q querier) error) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer func() {
		if rbErr := tx.Rollback(); rbErr != nil && !errors.Is(rbErr, sql.ErrTxDone) {
			s.logger.Error("rollback failed", slog.Any("error", rbErr))
		}
	}()

	if err = fn(tx); err != nil {
		return err
	}
	if err = tx.Commit(); err != nil {
		return fmt.Errorf("commit tx: %w", err)
	}
	return nil
}

func isNoSuchColumn(err error) bool {
	return err != nil && strings.Contains(err.Error(), "no such column")
}

var timestampLayouts = []string{
	time.RFC3339Nano,
	"2006-01-02 15:04:05.999999999-07:00",
	"2006-01-02 15:04:05.999999999",
	"2006-01-02 15:04:05",
}

// parseTimestamp accepts both the driver's time rendering and SQLite's
// CURRENT_TIMESTAMP text.
func parseTimestamp(v string) (time.Time, error) {
	for _, layout := range timestampLayouts {
		if t, err := time.Parse(layout, v); err == nil {
			return t, nil
		}
	}
	return time.Time{}, fmt.Errorf("unrecognised timestamp %q", v)
}
