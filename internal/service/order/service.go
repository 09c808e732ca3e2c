package order

import (
	"context"
	"log/slog"
	"time"

	"github.com/sanchey92/order-intake/internal/domain/model"
)

type Store interface {
	ListAvailableProducts(ctx context.Context) ([]model.Product, error)
	CreateOrder(ctx context.Context, customerName, customerEmail string, items []model.LineItem) (int64, error)
	GetOrderWithItems(ctx context.Context, orderID int64) (*model.OrderDetail, error)
}

type Notifier interface {
	EnsureQueue(ctx context.Context) error
	Notify(ctx context.Context, n *model.OrderNotification) error
}

type Service struct {
	logger         *slog.Logger
	store          Store
	notifier       Notifier
	publishTimeout time.Duration
	now            func() time.Time
}

func NewOrderService(l *slog.Logger, store Store, notifier Notifier, publishTimeout time.Duration) *Service {
	return &Service{
		logger:         l,
		store:          store,
		notifier:       notifier,
		publishTimeout: publishTimeout,
		now:            time.Now,
	}
}

func (s *Service) Products(ctx context.Context) ([]model.Product, error) {
	return s.store.ListAvailableProducts(ctx)
}

func (s *Service) Status(ctx context.Context, orderID int64) (*model.OrderDetail, error) {
	return s.store.GetOrderWithItems(ctx, orderID)
}

// Bootstrap makes sure the notification queue exists. A broker that is not
// reachable yet does not stop the service.
func (s *Service) Bootstrap(ctx context.Context) {
	if err := s.notifier.EnsureQueue(ctx); err != nil {
		s.logger.Error("queue setup failed", slog.Any("error", err))
		return
	}
	s.logger.Info("queue setup complete")
}
