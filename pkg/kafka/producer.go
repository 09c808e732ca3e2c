package kafka

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/confluentinc/confluent-kafka-go/v2/kafka"
	"github.com/google/uuid"
)

const (
	HeaderEventType = "event-type"
	HeaderMessageID = "message-id"

	defaultDeliveryTimeout = 30 * time.Second
	maxFlushTimeout        = 10 * time.Second
)

type ProducerConfig struct {
	Brokers     string
	Acks        string
	LingerMs    int
	Compression string
	// DeliveryTimeout bounds how long librdkafka keeps retrying a message.
	DeliveryTimeout time.Duration
}

// Event is one keyed record tagged with its event type.
type Event struct {
	Topic string
	Key   string
	Type  string
	Body  []byte
}

func (e *Event) message() *kafka.Message {
	return &kafka.Message{
		TopicPartition: kafka.TopicPartition{
			Topic:     &e.Topic,
			Partition: kafka.PartitionAny,
		},
		Key:   []byte(e.Key),
		Value: e.Body,
		Headers: []kafka.Header{
			{Key: HeaderEventType, Value: []byte(e.Type)},
			{Key: HeaderMessageID, Value: []byte(uuid.NewString())},
		},
		Timestamp: time.Now(),
	}
}

// Producer sends events one at a time and waits for each delivery report.
type Producer struct {
	p      *kafka.Producer
	logger *slog.Logger
}

func NewProducer(cfg *ProducerConfig, log *slog.Logger) (*Producer, error) {
	deliveryTimeout := cfg.DeliveryTimeout
	if deliveryTimeout <= 0 {
		deliveryTimeout = defaultDeliveryTimeout
	}

	p, err := kafka.NewProducer(&kafka.ConfigMap{
		"bootstrap.servers":   cfg.Brokers,
		"client.id":           "order-intake",
		"acks":                cfg.Acks,
		"enable.idempotence":  true,
		"linger.ms":           cfg.LingerMs,
		"compression.type":    cfg.Compression,
		"delivery.timeout.ms": int(deliveryTimeout.Milliseconds()),
	})
	if err != nil {
		return nil, fmt.Errorf("create kafka producer: %w", err)
	}

	return &Producer{p: p, logger: log}, nil
}

// Send enqueues e and blocks until the broker acknowledges it or ctx ends.
func (p *Producer) Send(ctx context.Context, e *Event) error {
	ch := make(chan kafka.Event, 1)
	if err := p.p.Produce(e.message(), ch); err != nil {
		return fmt.Errorf("enqueue %s: %w", e.Type, err)
	}

	select {
	case ev := <-ch:
		m, ok := ev.(*kafka.Message)
		if !ok {
			return fmt.Errorf("unexpected event type: %T", ev)
		}
		if m.TopicPartition.Error != nil {
			return fmt.Errorf("deliver %s to %s: %w", e.Type, e.Topic, m.TopicPartition.Error)
		}
		p.logger.Debug("kafka event delivered",
			slog.String("topic", e.Topic),
			slog.String("key", e.Key),
			slog.Int("partition", int(m.TopicPartition.Partition)),
			slog.Any("offset", m.TopicPartition.Offset))
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Close flushes outstanding messages for at most the time ctx has left and
// releases the producer.
func (p *Producer) Close(ctx context.Context) {
	if remaining := p.p.Flush(int(flushTimeout(ctx).Milliseconds())); remaining > 0 {
		p.logger.Warn("dropping unflushed kafka messages", slog.Int("remaining", remaining))
	}
	p.p.Close()
}

func flushTimeout(ctx context.Context) time.Duration {
	if ctx.Err() != nil {
		return 0
	}
	timeout := maxFlushTimeout
	if deadline, ok := ctx.Deadline(); ok {
		timeout = min(timeout, time.Until(deadline))
	}
	return max(timeout, 0)
}
