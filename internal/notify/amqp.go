package notify

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"

	"github.com/google/uuid"

	"github.com/sanchey92/order-intake/internal/domain/model"
	"github.com/sanchey92/order-intake/pkg/rabbitmq"
)

// Dialer opens a broker session; *rabbitmq.Client satisfies it.
type Dialer interface {
	Dial(ctx context.Context) (*rabbitmq.Session, error)
}

type AMQP struct {
	dialer  Dialer
	queue   string
	durable bool
	logger  *slog.Logger
}

func NewAMQP(d Dialer, queue string, durable bool, log *slog.Logger) *AMQP {
	return &AMQP{dialer: d, queue: queue, durable: durable, logger: log}
}

func (a *AMQP) EnsureQueue(ctx context.Context) error {
	s, err := a.dialer.Dial(ctx)
	if err != nil {
		return err
	}
	defer a.close(s)

	if err = s.DeclareQueue(a.queue, a.durable); err != nil {
		return err
	}

	a.logger.Info("rabbitmq queue ready", slog.String("queue", a.queue))
	return nil
}

func (a *AMQP) Notify(ctx context.Context, n *model.OrderNotification) error {
	body, err := json.Marshal(n)
	if err != nil {
		return fmt.Errorf("marshal notification: %w", err)
	}

	s, err := a.dialer.Dial(ctx)
	if err != nil {
		return err
	}
	defer a.close(s)

	if err = s.Publish(ctx, a.queue, uuid.NewString(), body); err != nil {
		return fmt.Errorf("publish order %d: %w", n.OrderID, err)
	}
	return nil
}

func (a *AMQP) close(s *rabbitmq.Session) {
	if err := s.Close(); err != nil {
		a.logger.Warn("close rabbitmq session", slog.Any("error", err))
	}
}
