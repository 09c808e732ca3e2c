package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"io"
	"log/slog"
	"path/filepath"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sanchey92/order-intake/internal/domain/model"
)

const (
	productsWithAvailable = `
CREATE TABLE products (
    id INTEGER PRIMARY KEY,
    name TEXT NOT NULL,
    price NUMERIC NOT NULL,
    available BOOLEAN NOT NULL DEFAULT 1
);`
	productsWithDescription = `
CREATE TABLE products (
    id INTEGER PRIMARY KEY,
    name TEXT NOT NULL,
    description TEXT,
    price NUMERIC NOT NULL,
    available BOOLEAN NOT NULL DEFAULT 1
);`
	productsPlain = `
CREATE TABLE products (
    id INTEGER PRIMARY KEY,
    name TEXT NOT NULL,
    price NUMERIC NOT NULL
);`
	ordersSchema = `
CREATE TABLE orders (
    id INTEGER PRIMARY KEY AUTOINCREMENT,
    customer_name TEXT NOT NULL,
    customer_email TEXT NOT NULL,
    status TEXT NOT NULL DEFAULT 'pending',
    created_at TIMESTAMP NOT NULL DEFAULT CURRENT_TIMESTAMP
);
CREATE TABLE order_items (
    id INTEGER PRIMARY KEY AUTOINCREMENT,
    order_id INTEGER NOT NULL REFERENCES orders(id),
    product_id INTEGER NOT NULL REFERENCES products(id),
    quantity INTEGER NOT NULL,
    unit_price NUMERIC NOT NULL
);`
)

func setupTestDB(t *testing.T, productsSchema string) *Storage {
	t.Helper()
	path := filepath.Join(t.TempDir(), "bakery.db")

	raw, err := sql.Open(driverName, path)
	require.NoError(t, err)
	_, err = raw.Exec(productsSchema + ordersSchema)
	require.NoError(t, err)
	require.NoError(t, raw.Close())

	s, err := NewSQLiteStorage(context.Background(), slog.New(slog.NewTextHandler(io.Discard, nil)), path)
	require.NoError(t, err)
	t.Cleanup(s.Close)
	return s
}

func exec(t *testing.T, s *Storage, query string, args ...any) {
	t.Helper()
	_, err := s.db.Exec(query, args...)
	require.NoError(t, err)
}

func count(t *testing.T, s *Storage, table string) int {
	t.Helper()
	var n int
	require.NoError(t, s.db.QueryRow("SELECT count(*) FROM "+table).Scan(&n))
	return n
}

func TestNewSQLiteStorage_ProbesAvailableColumn(t *testing.T) {
	assert.True(t, setupTestDB(t, productsWithAvailable).hasAvailable.Load())
	assert.False(t, setupTestDB(t, productsPlain).hasAvailable.Load())
	assert.False(t, setupTestDB(t, productsPlain).hasDescription.Load())
}

func TestListAvailableProducts_EmptyTable(t *testing.T) {
	s := setupTestDB(t, productsWithAvailable)

	products, err := s.ListAvailableProducts(context.Background())
	require.NoError(t, err)
	assert.NotNil(t, products)
	assert.Empty(t, products)
}

func TestListAvailableProducts_FiltersUnavailable(t *testing.T) {
	s := setupTestDB(t, productsWithAvailable)
	exec(t, s, `INSERT INTO products (id, name, price, available) VALUES
	            (3, 'Croissant', '2.75', 1), (1, 'Baguette', '3.50', 1), (2, 'Stale loaf', '1.00', 0)`)

	products, err := s.ListAvailableProducts(context.Background())
	require.NoError(t, err)
	require.Len(t, products, 2)
	assert.Equal(t, int64(1), products[0].ID)
	assert.Equal(t, "Baguette", products[0].Name)
	assert.True(t, products[0].Price.Equal(decimal.RequireFromString("3.50")))
	require.NotNil(t, products[0].Available)
	assert.True(t, *products[0].Available)
	assert.Equal(t, int64(3), products[1].ID)
}

func TestListAvailableProducts_WithoutAvailableColumn(t *testing.T) {
	s := setupTestDB(t, productsPlain)
	exec(t, s, `INSERT INTO products (id, name, price) VALUES (2, 'Rye', '4.00'), (1, 'Baguette', '3.50')`)

	products, err := s.ListAvailableProducts(context.Background())
	require.NoError(t, err)
	require.Len(t, products, 2)
	assert.Equal(t, int64(1), products[0].ID)
	assert.Equal(t, int64(2), products[1].ID)
	assert.Nil(t, products[0].Available)
}

func TestListAvailableProducts_ColumnDroppedAfterProbe(t *testing.T) {
	s := setupTestDB(t, productsWithAvailable)
	exec(t, s, `INSERT INTO products (id, name, price, available) VALUES (1, 'Baguette', '3.50', 0)`)
	exec(t, s, `ALTER TABLE products DROP COLUMN available`)

	products, err := s.ListAvailableProducts(context.Background())
	require.NoError(t, err)
	require.Len(t, products, 1)
	assert.False(t, s.hasAvailable.Load())
}

func TestListAvailableProducts_IncludesDescription(t *testing.T) {
	s := setupTestDB(t, productsWithDescription)
	require.True(t, s.hasDescription.Load())
	exec(t, s, `INSERT INTO products (id, name, description, price) VALUES
	            (1, 'Baguette', 'Crusty French loaf', '3.50'), (2, 'Rye', NULL, '4.00')`)

	products, err := s.ListAvailableProducts(context.Background())
	require.NoError(t, err)
	require.Len(t, products, 2)
	require.NotNil(t, products[0].Description)
	assert.Equal(t, "Crusty French loaf", *products[0].Description)
	assert.Nil(t, products[1].Description)
}

func TestListAvailableProducts_DescriptionDroppedAtRuntime(t *testing.T) {
	s := setupTestDB(t, productsWithDescription)
	exec(t, s, `INSERT INTO products (id, name, description, price) VALUES (1, 'Baguette', 'Crusty', '3.50')`)
	exec(t, s, `ALTER TABLE products DROP COLUMN description`)

	products, err := s.ListAvailableProducts(context.Background())
	require.NoError(t, err)
	require.Len(t, products, 1)
	assert.Nil(t, products[0].Description)
	assert.False(t, s.hasDescription.Load())
	assert.True(t, s.hasAvailable.Load())
}

func TestCreateOrder_PersistsOrderAndItems(t *testing.T) {
	s := setupTestDB(t, productsWithAvailable)
	ctx := context.Background()
	exec(t, s, `INSERT INTO products (id, name, price) VALUES (1, 'Baguette', '3.50'), (2, 'Rye', '4.25')`)

	id, err := s.CreateOrder(ctx, "Ann", "a@x.com", []model.LineItem{
		{ProductID: 1, Quantity: 2},
		{ProductID: 2, Quantity: 1},
	})
	require.NoError(t, err)
	assert.Positive(t, id)
	assert.Equal(t, 1, count(t, s, "orders"))
	assert.Equal(t, 2, count(t, s, "order_items"))

	d, err := s.GetOrderWithItems(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, id, d.ID)
	assert.Equal(t, "Ann", d.CustomerName)
	assert.Equal(t, "pending", d.Status)
	assert.WithinDuration(t, time.Now().UTC(), d.CreatedAt, 24*time.Hour)
	require.Len(t, d.Items, 2)

	assert.Equal(t, model.OrderItemDetail{
		ProductID:   1,
		ProductName: "Baguette",
		Quantity:    2,
		UnitPrice:   d.Items[0].UnitPrice,
	}, d.Items[0])
	assert.True(t, d.Items[0].UnitPrice.Equal(decimal.RequireFromString("3.50")))
	assert.Equal(t, int64(2), d.Items[1].ProductID)
	assert.True(t, d.Items[1].UnitPrice.Equal(decimal.RequireFromString("4.25")))
}

func TestCreateOrder_UnitPriceFrozen(t *testing.T) {
	s := setupTestDB(t, productsWithAvailable)
	ctx := context.Background()
	exec(t, s, `INSERT INTO products (id, name, price) VALUES (1, 'Baguette', '10.00')`)

	id, err := s.CreateOrder(ctx, "Ann", "a@x.com", []model.LineItem{{ProductID: 1, Quantity: 1}})
	require.NoError(t, err)

	exec(t, s, `UPDATE products SET price = '20.00' WHERE id = 1`)

	d, err := s.GetOrderWithItems(ctx, id)
	require.NoError(t, err)
	require.Len(t, d.Items, 1)
	assert.True(t, d.Items[0].UnitPrice.Equal(decimal.RequireFromString("10.00")),
		"got %s", d.Items[0].UnitPrice)
}

func TestCreateOrder_MissingProductLeavesNoRows(t *testing.T) {
	s := setupTestDB(t, productsWithAvailable)
	exec(t, s, `INSERT INTO products (id, name, price) VALUES (1, 'Baguette', '3.50')`)

	_, err := s.CreateOrder(context.Background(), "Ann", "a@x.com", []model.LineItem{
		{ProductID: 1, Quantity: 1},
		{ProductID: 42, Quantity: 3},
	})
	require.Error(t, err)
	assert.ErrorIs(t, err, model.ErrProductNotFound)

	var pnf *model.ProductNotFoundError
	require.True(t, errors.As(err, &pnf))
	assert.Equal(t, int64(42), pnf.ProductID)
	assert.Contains(t, err.Error(), "Product with ID 42 not found")

	assert.Equal(t, 0, count(t, s, "orders"))
	assert.Equal(t, 0, count(t, s, "order_items"))
}

func TestGetOrderWithItems_NotFound(t *testing.T) {
	s := setupTestDB(t, productsWithAvailable)

	_, err := s.GetOrderWithItems(context.Background(), 999)
	assert.ErrorIs(t, err, model.ErrOrderNotFound)
}

func TestGetOrderWithItems_ItemlessOrderIsNotFound(t *testing.T) {
	s := setupTestDB(t, productsWithAvailable)
	exec(t, s, `INSERT INTO orders (id, customer_name, customer_email) VALUES (5, 'Bob', 'b@x.com')`)

	_, err := s.GetOrderWithItems(context.Background(), 5)
	assert.ErrorIs(t, err, model.ErrOrderNotFound)
}

func TestParseTimestamp(t *testing.T) {
	ts, err := parseTimestamp("2026-10-19 08:30:00")
	require.NoError(t, err)
	assert.Equal(t, time.Date(2026, 10, 19, 8, 30, 0, 0, time.UTC), ts)

	ts, err = parseTimestamp("2026-10-19T08:30:00Z")
	require.NoError(t, err)
	assert.Equal(t, 8, ts.Hour())

	_, err = parseTimestamp("yesterday")
	assert.Error(t, err)
}
