package notify

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"strconv"

	"github.com/sanchey92/order-intake/internal/domain/model"
	"github.com/sanchey92/order-intake/pkg/kafka"
	"github.com/sanchey92/order-intake/pkg/retry"
)

type KafkaConfig struct {
	Producer kafka.ProducerConfig
	Topic    kafka.TopicConfig
	Retry    retry.Config
}

// Kafka publishes notifications to a topic named after the queue. The
// producer is created per notification, keyed by order id, and flushed
// within the caller's deadline on close.
type Kafka struct {
	cfg    *KafkaConfig
	logger *slog.Logger
}

func NewKafka(cfg *KafkaConfig, log *slog.Logger) *Kafka {
	return &Kafka{cfg: cfg, logger: log}
}

func (k *Kafka) EnsureQueue(ctx context.Context) error {
	onRetry := func(attempt, left int, err error) {
		k.logger.Warn("failed to reach kafka",
			slog.Int("attempt", attempt),
			slog.Int("retries_left", left),
			slog.Any("error", err))
	}

	_, err := retry.Do(ctx, k.cfg.Retry, onRetry, func(ctx context.Context) (struct{}, error) {
		return struct{}{}, kafka.EnsureTopic(ctx, &k.cfg.Topic)
	})
	if err != nil {
		return fmt.Errorf("ensure topic %q: %w", k.cfg.Topic.Topic, err)
	}

	k.logger.Info("kafka topic ready", slog.String("topic", k.cfg.Topic.Topic))
	return nil
}

func (k *Kafka) Notify(ctx context.Context, n *model.OrderNotification) error {
	body, err := json.Marshal(n)
	if err != nil {
		return fmt.Errorf("marshal notification: %w", err)
	}

	p, err := kafka.NewProducer(&k.cfg.Producer, k.logger)
	if err != nil {
		return err
	}
	defer p.Close(ctx)

	err = p.Send(ctx, &kafka.Event{
		Topic: k.cfg.Topic.Topic,
		Key:   strconv.FormatInt(n.OrderID, 10),
		Type:  EventOrderPlaced,
		Body:  body,
	})
	if err != nil {
		return fmt.Errorf("publish order %d: %w", n.OrderID, err)
	}
	return nil
}
