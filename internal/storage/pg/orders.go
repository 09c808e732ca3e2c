package pg

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/shopspring/decimal"

	"github.com/sanchey92/order-intake/internal/domain/model"
)

// CreateOrder inserts the order header and one item per line in a single
// transaction. Each item's unit price is copied from the product row.
func (s *Storage) CreateOrder(ctx context.Context, customerName, customerEmail string, items []model.LineItem) (int64, error) {
	var orderID int64

	err := s.RunInTx(ctx, func(ctx context.Context) error {
		id, err := s.insertOrder(ctx, customerName, customerEmail)
		if err != nil {
			return err
		}

		for _, item := range items {
			price, err := s.productPrice(ctx, item.ProductID)
			if err != nil {
				return err
			}
			if err = s.insertOrderItem(ctx, id, item, price); err != nil {
				return err
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

func (s *Storage) insertOrder(ctx context.Context, customerName, customerEmail string) (int64, error) {
	query := `INSERT INTO orders (customer_name, customer_email)
              VALUES ($1, $2)
              RETURNING id`

	var id int64
	if err := s.conn(ctx).QueryRow(ctx, query, customerName, customerEmail).Scan(&id); err != nil {
		return 0, fmt.Errorf("insert order: %w", err)
	}
	return id, nil
}

func (s *Storage) productPrice(ctx context.Context, productID int64) (decimal.Decimal, error) {
	query := `SELECT price FROM products WHERE id = $1`

	var price decimal.Decimal
	err := s.conn(ctx).QueryRow(ctx, query, productID).Scan(&price)
	if errors.Is(err, pgx.ErrNoRows) {
		return decimal.Zero, &model.ProductNotFoundError{ProductID: productID}
	}
	if err != nil {
		return decimal.Zero, fmt.Errorf("select product price: %w", err)
	}
	return price, nil
}

func (s *Storage) insertOrderItem(ctx context.Context, orderID int64, item model.LineItem, price decimal.Decimal) error {
	query := `INSERT INTO order_items (order_id, product_id, quantity, unit_price)
              VALUES ($1, $2, $3, $4)`

	if _, err := s.conn(ctx).Exec(ctx, query, orderID, item.ProductID, item.Quantity, price); err != nil {
		return fmt.Errorf("insert order item: %w", err)
	}
	return nil
}

// GetOrderWithItems returns the order with its items aggregated. The join is
// inner, so an order without items reports model.ErrOrderNotFound.
func (s *Storage) GetOrderWithItems(ctx context.Context, orderID int64) (*model.OrderDetail, error) {
	query := `SELECT o.id, o.customer_name, o.status, o.created_at,
                     json_agg(json_build_object(
                         'product_id', oi.product_id,
                         'product_name', p.name,
                         'quantity', oi.quantity,
                         'unit_price', oi.unit_price
                     )) AS items
              FROM orders o
              JOIN order_items oi ON o.id = oi.order_id
              JOIN products p ON oi.product_id = p.id
              WHERE o.id = $1
              GROUP BY o.id`

	var d model.OrderDetail
	err := s.conn(ctx).QueryRow(ctx, query, orderID).Scan(&d.ID, &d.CustomerName, &d.Status, &d.CreatedAt, &d.Items)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, model.ErrOrderNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get order %d: %w", orderID, err)
	}

	return &d, nil
}
