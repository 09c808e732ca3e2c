package kafka

import (
	"context"
	"fmt"
	"time"

	"github.com/confluentinc/confluent-kafka-go/v2/kafka"
)

type TopicConfig struct {
	Brokers           string
	Topic             string
	Partitions        int
	ReplicationFactor int
	Timeout           time.Duration
}

// EnsureTopic creates the topic if it does not exist yet.
func EnsureTopic(ctx context.Context, cfg *TopicConfig) error {
	admin, err := kafka.NewAdminClient(&kafka.ConfigMap{"bootstrap.servers": cfg.Brokers})
	if err != nil {
		return fmt.Errorf("kafka.NewAdminClient: %w", err)
	}
	defer admin.Close()

	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 10 * time.Second
	}

	results, err := admin.CreateTopics(ctx, []kafka.TopicSpecification{{
		Topic:             cfg.Topic,
		NumPartitions:     max(cfg.Partitions, 1),
		ReplicationFactor: max(cfg.ReplicationFactor, 1),
	}}, kafka.SetAdminOperationTimeout(timeout))
	if err != nil {
		return fmt.Errorf("create topics: %w", err)
	}

	for _, r := range results {
		switch r.Error.Code() {
		case kafka.ErrNoError, kafka.ErrTopicAlreadyExists:
		default:
			return fmt.Errorf("create topic %q: %w", r.Topic, r.Error)
		}
	}
	return nil
}
