package order

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sanchey92/order-intake/internal/domain/model"
)

type fakeStore struct {
	products  []model.Product
	detail    *model.OrderDetail
	nextID    int64
	err       error
	created   []model.PlaceOrderCommand
	listCalls int
}

func (f *fakeStore) ListAvailableProducts(context.Context) ([]model.Product, error) {
	f.listCalls++
	return f.products, f.err
}

func (f *fakeStore) CreateOrder(_ context.Context, name, email string, items []model.LineItem) (int64, error) {
	if f.err != nil {
		return 0, f.err
	}
	f.created = append(f.created, model.PlaceOrderCommand{CustomerName: name, CustomerEmail: email, Items: items})
	return f.nextID, nil
}

func (f *fakeStore) GetOrderWithItems(_ context.Context, id int64) (*model.OrderDetail, error) {
	if f.err != nil {
		return nil, f.err
	}
	if f.detail == nil || f.detail.ID != id {
		return nil, model.ErrOrderNotFound
	}
	return f.detail, nil
}

type fakeNotifier struct {
	err       error
	ensureErr error
	sent      []*model.OrderNotification
	ctxErrs   []error
	ensured   int
}

func (f *fakeNotifier) EnsureQueue(context.Context) error {
	f.ensured++
	return f.ensureErr
}

func (f *fakeNotifier) Notify(ctx context.Context, n *model.OrderNotification) error {
	f.sent = append(f.sent, n)
	f.ctxErrs = append(f.ctxErrs, ctx.Err())
	return f.err
}

func newTestService(store Store, n Notifier) *Service {
	s := NewOrderService(slog.New(slog.NewTextHandler(io.Discard, nil)), store, n, time.Second)
	s.now = func() time.Time { return time.Date(2026, 10, 19, 14, 3, 9, 500, time.Local) }
	return s
}

var annCmd = &model.PlaceOrderCommand{
	CustomerName:  "Ann",
	CustomerEmail: "a@x.com",
	Items:         []model.LineItem{{ProductID: 1, Quantity: 2}},
}

func TestPlace_CommitsThenNotifies(t *testing.T) {
	store := &fakeStore{nextID: 41}
	n := &fakeNotifier{}
	s := newTestService(store, n)

	id, err := s.Place(context.Background(), annCmd)
	require.NoError(t, err)
	assert.Equal(t, int64(41), id)

	require.Len(t, store.created, 1)
	assert.Equal(t, "a@x.com", store.created[0].CustomerEmail)

	require.Len(t, n.sent, 1)
	assert.Equal(t, &model.OrderNotification{
		OrderID:      41,
		CustomerName: "Ann",
		Time:         "2026-10-19 14:03:09",
	}, n.sent[0])
}

func TestPlace_NotifyFailureDoesNotFailOrder(t *testing.T) {
	store := &fakeStore{nextID: 7}
	n := &fakeNotifier{err: errors.New("connection refused")}
	s := newTestService(store, n)

	id, err := s.Place(context.Background(), annCmd)
	require.NoError(t, err)
	assert.Equal(t, int64(7), id)
	assert.Len(t, n.sent, 1)
}

func TestPlace_StoreFailureSkipsNotification(t *testing.T) {
	pnf := &model.ProductNotFoundError{ProductID: 9}
	store := &fakeStore{err: pnf}
	n := &fakeNotifier{}
	s := newTestService(store, n)

	_, err := s.Place(context.Background(), annCmd)
	require.Error(t, err)
	assert.ErrorIs(t, err, model.ErrProductNotFound)
	assert.Empty(t, n.sent)
}

func TestPlace_NotifySurvivesCancelledRequest(t *testing.T) {
	store := &fakeStore{nextID: 3}
	n := &fakeNotifier{}
	s := newTestService(store, n)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := s.Place(ctx, annCmd)
	require.NoError(t, err)
	require.Len(t, n.ctxErrs, 1)
	assert.NoError(t, n.ctxErrs[0])
}

func TestProducts(t *testing.T) {
	store := &fakeStore{products: []model.Product{{ID: 1, Name: "Baguette", Price: decimal.RequireFromString("3.50")}}}
	s := newTestService(store, &fakeNotifier{})

	products, err := s.Products(context.Background())
	require.NoError(t, err)
	assert.Len(t, products, 1)
	assert.Equal(t, 1, store.listCalls)
}

func TestStatus(t *testing.T) {
	store := &fakeStore{detail: &model.OrderDetail{ID: 5, CustomerName: "Ann"}}
	s := newTestService(store, &fakeNotifier{})

	d, err := s.Status(context.Background(), 5)
	require.NoError(t, err)
	assert.Equal(t, "Ann", d.CustomerName)

	_, err = s.Status(context.Background(), 6)
	assert.ErrorIs(t, err, model.ErrOrderNotFound)
}

func TestBootstrap_SwallowsFailure(t *testing.T) {
	n := &fakeNotifier{ensureErr: errors.New("unreachable")}
	s := newTestService(&fakeStore{}, n)

	assert.NotPanics(t, func() { s.Bootstrap(context.Background()) })
	s.Bootstrap(context.Background())
	assert.Equal(t, 2, n.ensured)
}
