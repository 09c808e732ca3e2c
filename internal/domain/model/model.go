package model

import (
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/shopspring/decimal"
)

// NotificationTimeLayout is the second-precision timestamp carried by
// OrderNotification.
const NotificationTimeLayout = "2006-01-02 15:04:05"

var (
	ErrOrderNotFound   = errors.New("order not found")
	ErrProductNotFound = errors.New("product not found")
)

// ProductNotFoundError reports the product id that aborted an order.
type ProductNotFoundError struct {
	ProductID int64
}

func (e *ProductNotFoundError) Error() string {
	return fmt.Sprintf("Product with ID %d not found", e.ProductID)
}

func (e *ProductNotFoundError) Is(target error) bool {
	return target == ErrProductNotFound
}

// PriceScale is the number of decimal places prices are rendered with.
const PriceScale = 2

type Product struct {
	ID          int64           `json:"id"`
	Name        string          `json:"name"`
	Description *string         `json:"description,omitempty"`
	Price       decimal.Decimal `json:"price"`
	Available   *bool           `json:"available,omitempty"` // nil when the column is absent
}

// MarshalJSON renders the price as a fixed two-place string, e.g. "3.50".
func (p Product) MarshalJSON() ([]byte, error) {
	type product Product
	return json.Marshal(struct {
		product
		Price string `json:"price"`
	}{product(p), p.Price.StringFixed(PriceScale)})
}

// LineItem is a requested product and quantity, before prices are resolved.
type LineItem struct {
	ProductID int64 `json:"product_id" binding:"required,gt=0"`
	Quantity  int   `json:"quantity"   binding:"required,gt=0"`
}

type PlaceOrderCommand struct {
	CustomerName  string     `json:"customer_name"`
	CustomerEmail string     `json:"customer_email"`
	Items         []LineItem `json:"items"`
}

type OrderItemDetail struct {
	ProductID   int64           `json:"product_id"`
	ProductName string          `json:"product_name"`
	Quantity    int             `json:"quantity"`
	UnitPrice   decimal.Decimal `json:"unit_price"`
}

// MarshalJSON renders the unit price as a JSON number with two places,
// e.g. 3.50.
func (d OrderItemDetail) MarshalJSON() ([]byte, error) {
	type item OrderItemDetail
	return json.Marshal(struct {
		item
		UnitPrice json.Number `json:"unit_price"`
	}{item(d), json.Number(d.UnitPrice.StringFixed(PriceScale))})
}

// OrderDetail is the order header joined with its items and product names.
type OrderDetail struct {
	ID           int64             `json:"id"`
	CustomerName string            `json:"customer_name"`
	Status       string            `json:"status"`
	CreatedAt    time.Time         `json:"created_at"`
	Items        []OrderItemDetail `json:"items"`
}

// OrderNotification is published to the broker after an order commits.
type OrderNotification struct {
	OrderID      int64  `json:"order_id"`
	CustomerName string `json:"customer_name"`
	Time         string `json:"time"`
}

func NewOrderNotification(orderID int64, customerName string, at time.Time) *OrderNotification {
	return &OrderNotification{
		OrderID:      orderID,
		CustomerName: customerName,
		Time:         at.Format(NotificationTimeLayout),
	}
}
