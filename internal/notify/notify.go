// Package notify announces placed orders to downstream consumers through a
// message broker.
//
// Every Notify call opens its own broker session and closes it before
// returning. Callers decide what a failure means; the order service treats
// it as best effort.
package notify

import (
	"context"
	"log/slog"

	"github.com/sanchey92/order-intake/internal/domain/model"
)

// EventOrderPlaced tags notifications on transports that carry headers.
const EventOrderPlaced = "OrderPlaced"

type Notifier interface {
	// EnsureQueue idempotently creates the destination queue or topic.
	EnsureQueue(ctx context.Context) error
	Notify(ctx context.Context, n *model.OrderNotification) error
}

var (
	_ Notifier = (*Nop)(nil)
	_ Notifier = (*AMQP)(nil)
	_ Notifier = (*Kafka)(nil)
)

// Nop logs notifications instead of publishing them.
type Nop struct {
	logger *slog.Logger
}

func NewNop(log *slog.Logger) *Nop {
	return &Nop{logger: log}
}

func (n *Nop) EnsureQueue(context.Context) error {
	n.logger.Info("broker disabled, skipping queue setup")
	return nil
}

func (n *Nop) Notify(_ context.Context, msg *model.OrderNotification) error {
	n.logger.Info("broker disabled, notification dropped", slog.Int64("order_id", msg.OrderID))
	return nil
}
