package rabbitmq

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"

	"github.com/sanchey92/order-intake/pkg/retry"
)

const defaultDialTimeout = 10 * time.Second

var ErrNotConfirmed = errors.New("publish not confirmed by broker")

type Config struct {
	URL         string
	DialTimeout time.Duration
	Retry       retry.Config
}

// Client opens short-lived sessions against a broker. It holds no connection
// itself, so it is safe for concurrent use.
type Client struct {
	cfg    *Config
	logger *slog.Logger
}

func NewClient(cfg *Config, log *slog.Logger) *Client {
	return &Client{cfg: cfg, logger: log}
}

// Session is one connection with one confirm-mode channel. Callers must Close it.
type Session struct {
	conn *amqp.Connection
	ch   *amqp.Channel
}

// Dial connects to the broker, retrying with the configured fixed delay.
func (c *Client) Dial(ctx context.Context) (*Session, error) {
	onRetry := func(attempt, left int, err error) {
		c.logger.Warn("failed to connect to rabbitmq",
			slog.Int("attempt", attempt),
			slog.Int("retries_left", left),
			slog.Any("error", err))
	}

	s, err := retry.Do(ctx, c.cfg.Retry, onRetry, c.open)
	if err != nil {
		return nil, fmt.Errorf("rabbitmq dial: %w", err)
	}
	return s, nil
}

func (c *Client) open(ctx context.Context) (*Session, error) {
	conn, err := amqp.DialConfig(c.cfg.URL, amqp.Config{
		Dial:       c.dialFunc(ctx),
		Properties: amqp.Table{"connection_name": "order-intake"},
	})
	if err != nil {
		return nil, err
	}

	ch, err := conn.Channel()
	if err != nil {
		_ = conn.Close()
		return nil, fmt.Errorf("open channel: %w", err)
	}

	if err = ch.Confirm(false); err != nil {
		_ = conn.Close()
		return nil, fmt.Errorf("confirm mode: %w", err)
	}

	return &Session{conn: conn, ch: ch}, nil
}

// dialFunc returns a TCP dialer bound to ctx. The socket deadline covers the
// AMQP handshake and is the earlier of the dial timeout and ctx's deadline;
// the library clears it once the connection is open.
func (c *Client) dialFunc(ctx context.Context) func(network, addr string) (net.Conn, error) {
	timeout := c.cfg.DialTimeout
	if timeout <= 0 {
		timeout = defaultDialTimeout
	}

	return func(network, addr string) (net.Conn, error) {
		deadline := time.Now().Add(timeout)
		if d, ok := ctx.Deadline(); ok && d.Before(deadline) {
			deadline = d
		}

		d := net.Dialer{Deadline: deadline}
		conn, err := d.DialContext(ctx, network, addr)
		if err != nil {
			return nil, err
		}
		if err = conn.SetDeadline(deadline); err != nil {
			_ = conn.Close()
			return nil, err
		}
		return conn, nil
	}
}

// DeclareQueue creates the queue if absent. Declaring an existing queue with
// the same arguments is a no-op.
func (s *Session) DeclareQueue(name string, durable bool) error {
	if _, err := s.ch.QueueDeclare(name, durable, false, false, false, nil); err != nil {
		return fmt.Errorf("declare queue %q: %w", name, err)
	}
	return nil
}

// InspectQueue returns the number of messages ready in an existing queue.
func (s *Session) InspectQueue(name string) (int, error) {
	q, err := s.ch.QueueDeclarePassive(name, false, false, false, false, nil)
	if err != nil {
		return 0, fmt.Errorf("inspect queue %q: %w", name, err)
	}
	return q.Messages, nil
}

// Publish sends body through the default exchange with the queue name as
// routing key and waits for the broker confirm.
func (s *Session) Publish(ctx context.Context, queue, messageID string, body []byte) error {
	conf, err := s.ch.PublishWithDeferredConfirmWithContext(ctx, "", queue, false, false, amqp.Publishing{
		ContentType:  "application/json",
		DeliveryMode: amqp.Persistent,
		MessageId:    messageID,
		Timestamp:    time.Now().UTC(),
		Body:         body,
	})
	if err != nil {
		return fmt.Errorf("publish: %w", err)
	}

	acked, err := conf.WaitContext(ctx)
	if err != nil {
		return fmt.Errorf("await confirm: %w", err)
	}
	if !acked {
		return ErrNotConfirmed
	}
	return nil
}

func (s *Session) Close() error {
	if err := s.ch.Close(); err != nil && !errors.Is(err, amqp.ErrClosed) {
		_ = s.conn.Close()
		return fmt.Errorf("close channel: %w", err)
	}
	if err := s.conn.Close(); err != nil && !errors.Is(err, amqp.ErrClosed) {
		return fmt.Errorf("close connection: %w", err)
	}
	return nil
}
