package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"

	"github.com/sanchey92/order-intake/internal/domain/model"
)

func (s *Storage) ListAvailableProducts(ctx context.Context) ([]model.Product, error) {
	products, err := s.queryProducts(ctx)
	if err == nil {
		return products, nil
	}
	if !isNoSuchColumn(err) {
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

	query := "SELECT id, name, price"
	if described {
		query += ", description"
	}
	if filtered {
		query += ", available FROM products WHERE available = 1"
	} else {
		query += " FROM products"
	}
	query += " ORDER BY id"

	rows, err := s.db.QueryContext(ctx, query)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	products := []model.Product{}
	for rows.Next() {
		var (
			p           model.Product
			description sql.NullString
			available   sql.NullBool
		)
		dest := []any{&p.ID, &p.Name, &p.Price}
		if described {
			dest = append(dest, &description)
		}
		if filtered {
			dest = append(dest, &available)
		}
		if err = rows.Scan(dest...); err != nil {
			return nil, fmt.Errorf("scan product: %w", err)
		}
		if description.Valid {
			p.Description = &description.String
		}
		if available.Valid {
			p.Available = &available.Bool
		}
		products = append(products, p)
	}
	if err = rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate products: %w", err)
	}

	return products, nil
}
