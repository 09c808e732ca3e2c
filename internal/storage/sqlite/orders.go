package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/shopspring/decimal"

	"github.com/sanchey92/order-intake/internal/domain/model"
)

func (s *Storage) CreateOrder(ctx context.Context, customerName, customerEmail string, items []model.LineItem) (int64, error) {
	var orderID int64

	err := s.runInTx(ctx, func(q querier) error {
		res, err := q.ExecContext(ctx,
			`INSERT INTO orders (customer_name, customer_email) VALUES (?, ?)`,
			customerName, customerEmail)
		if err != nil {
			return fmt.Errorf("insert order: %w", err)
		}
		id, err := res.LastInsertId()
		if err != nil {
			return fmt.Errorf("order id: %w", err)
		}

		for _, item := range items {
			var price decimal.Decimal
			err = q.QueryRowContext(ctx, `SELECT price FROM products WHERE id = ?`, item.ProductID).Scan(&price)
			if errors.Is(err, sql.ErrNoRows) {
				return &model.ProductNotFoundError{ProductID: item.ProductID}
			}
			if err != nil {
				return fmt.Errorf("select product price: %w", err)
			}

			_, err = q.ExecContext(ctx,
				`INSERT INTO order_items (order_id, product_id, quantity, unit_price) VALUES (?, ?, ?, ?)`,
				id, item.ProductID, item.Quantity, price)
			if err != nil {
				return fmt.Errorf("insert order item: %w", err)
			}
		}

		orderID = id
		return nil
	})
	if err != nil {
		return 0, fmt.Errorf("create order: %w", err)
	}

	return orderID, nil
}

func (s *Storage) GetOrderWithItems(ctx context.Context, orderID int64) (*model.OrderDetail, error) {
	query := `
		SELECT o.id, o.customer_name, o.status, o.created_at,
		       oi.product_id, p.name, oi.quantity, oi.unit_price
		FROM orders o
		JOIN order_items oi ON o.id = oi.order_id
		JOIN products p ON oi.product_id = p.id
		WHERE o.id = ?
		ORDER BY oi.rowid
	`
	rows, err := s.db.QueryContext(ctx, query, orderID)
	if err != nil {
		return nil, fmt.Errorf("get order %d: %w", orderID, err)
	}
	defer rows.Close()

	var d *model.OrderDetail
	for rows.Next() {
		var (
			header    model.OrderDetail
			createdAt string
			item      model.OrderItemDetail
		)
		if err = rows.Scan(&header.ID, &header.CustomerName, &header.Status, &createdAt,
			&item.ProductID, &item.ProductName, &item.Quantity, &item.UnitPrice); err != nil {
			return nil, fmt.Errorf("scan order row: %w", err)
		}

		if d == nil {
			if header.CreatedAt, err = parseTimestamp(createdAt); err != nil {
				return nil, err
			}
			d = &header
		}
		d.Items = append(d.Items, item)
	}
	if err = rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate order rows: %w", err)
	}

	if d == nil {
		return nil, model.ErrOrderNotFound
	}
	return d, nil
}
