package pg

import (
	"context"
	"fmt"
	"log/slog"
	"slices"
	"sync/atomic"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	pgxdecimal "github.com/jackc/pgx-shopspring-decimal"
)

type StorageConfig struct {
	DSN             string
	MaxConns        int32
	MinConns        int32
	MaxConnLife     time.Duration
	MaxConnIdleTime time.Duration
}

type Storage struct {
	logger *slog.Logger
	pool   *pgxpool.Pool

	// Optional products columns, detected by probeCapabilities.
	hasAvailable   atomic.Bool
	hasDescription atomic.Bool
}

func NewPGStorage(ctx context.Context, log *slog.Logger, cfg *StorageConfig) (*Storage, error) {
	pgConfig, err := pgxpool.ParseConfig(cfg.DSN)
	if err != nil {
		return nil, fmt.Errorf("parse config: %w", err)
	}

	if cfg.MaxConns > 0 {
		pgConfig.MaxConns = cfg.MaxConns
	}
	pgConfig.MinConns = cfg.MinConns
	pgConfig.MaxConnLifetime = cfg.MaxConnLife
	pgConfig.MaxConnIdleTime = cfg.MaxConnIdleTime
	pgConfig.AfterConnect = func(_ context.Context, conn *pgx.Conn) error {
		pgxdecimal.Register(conn.TypeMap())
		return nil
	}

	pool, err := pgxpool.NewWithConfig(ctx, pgConfig)
	if err != nil {
		return nil, fmt.Errorf("create pgx pool: %w", err)
	}

	if err = pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("postgres ping: %w", err)
	}

	s := &Storage{pool: pool, logger: log}

	if err = s.probeCapabilities(ctx); err != nil {
		pool.Close()
		return nil, err
	}

	return s, nil
}

// probeCapabilities detects optional products columns. It runs at startup
// and again when a listing hits a column that no longer exists.
func (s *Storage) probeCapabilities(ctx context.Context) error {
	query := `SELECT column_name::text
              FROM information_schema.columns
              WHERE table_schema = current_schema()
                AND table_name = 'products'
                AND column_name IN ('available', 'description')`

	rows, err := s.pool.Query(ctx, query)
	if err != nil {
		return fmt.Errorf("probe products columns: %w", err)
	}
	columns, err := pgx.CollectRows(rows, pgx.RowTo[string])
	if err != nil {
		return fmt.Errorf("probe products columns: %w", err)
	}

	s.hasAvailable.Store(slices.Contains(columns, "available"))
	s.hasDescription.Store(slices.Contains(columns, "description"))
	s.logger.Info("schema capabilities detected",
		slog.Bool("products_available_column", s.hasAvailable.Load()),
		slog.Bool("products_description_column", s.hasDescription.Load()))
	return nil
}

func (s *Storage) Close() {
	s.pool.Close()
}
