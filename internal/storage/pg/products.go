package pg

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/jackc/pgerrcode"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"

	"github.com/sanchey92/order-intake/internal/domain/model"
)

// ListAvailableProducts returns products flagged available, or every product
// when the schema has no availability column. Optional columns that vanish
// after startup trigger one re-probe and retry.
func (s *Storage) ListAvailableProducts(ctx context.Context) ([]model.Product, error) {
	products, err := s.queryProducts(ctx)
	if err == nil {
		return products, nil
	}
	if !isUndefinedColumn(err) {
		return nil, fmt.Errorf("list available products: %w", err)
	}

	s.logger.Warn("products schema changed, re-probing columns", slog.Any("error", err))
	if err = s.probeCapabilities(ctx); err != nil {
		return nil, err
	}

	products, err = s.queryProducts(ctx)
	if err != nil {
		return nil, fmt.Errorf("list products: %w", err)
	}
	return products, nil
}

func (s *Storage) queryProducts(ctx context.Context) ([]model.Product, error) {
	filtered := s.hasAvailable.Load()
	described := s.hasDescription.Load()

	rows, err := s.conn(ctx).Query(ctx, productsQuery(filtered, described))
	if err != nil {
		return nil, err
	}

	return pgx.CollectRows(rows, func(row pgx.CollectableRow) (model.Product, error) {
		var p model.Product
		dest := []any{&p.ID, &p.Name, &p.Price}
		if described {
			dest = append(dest, &p.Description)
		}
		if filtered {
			dest = append(dest, &p.Available)
		}
		return p, row.Scan(dest...)
	})
}

func productsQuery(filtered, described bool) string {
	var b strings.Builder
	b.WriteString("SELECT id, name, price")
	if described {
		b.WriteString(", description")
	}
	if filtered {
		b.WriteString(", available FROM products WHERE available = TRUE")
	} else {
		b.WriteString(" FROM products")
	}
	b.WriteString(" ORDER BY id")
	return b.String()
}

func isUndefinedColumn(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == pgerrcode.UndefinedColumn
}
