package order

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/sanchey92/order-intake/internal/domain/model"
)

// Place commits the order, then announces it. The announcement is outside
// the transaction and its outcome never changes the result of Place.
func (s *Service) Place(ctx context.Context, cmd *model.PlaceOrderCommand) (int64, error) {
	orderID, err := s.store.CreateOrder(ctx, cmd.CustomerName, cmd.CustomerEmail, cmd.Items)
	if err != nil {
		return 0, fmt.Errorf("service.Place: %w", err)
	}

	s.logger.Info("order placed",
		slog.Int64("order_id", orderID),
		slog.Int("items", len(cmd.Items)))

	s.announce(ctx, model.NewOrderNotification(orderID, cmd.CustomerName, s.now()))

	return orderID, nil
}

// announce publishes n at most once and swallows any failure. It runs
// detached from request cancellation, bounded by publishTimeout.
func (s *Service) announce(ctx context.Context, n *model.OrderNotification) {
	ctx = context.WithoutCancel(ctx)
	if s.publishTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, s.publishTimeout)
		defer cancel()
	}

	if err := s.notifier.Notify(ctx, n); err != nil {
		s.logger.Error("order notification failed",
			slog.Int64("order_id", n.OrderID),
			slog.Any("error", err))
		return
	}

	s.logger.Debug("order notification sent", slog.Int64("order_id", n.OrderID))
}
