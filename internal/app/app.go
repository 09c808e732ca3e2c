package app

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/sanchey92/order-intake/internal/config"
	"github.com/sanchey92/order-intake/internal/http/router"
	"github.com/sanchey92/order-intake/internal/notify"
	"github.com/sanchey92/order-intake/internal/service/order"
	"github.com/sanchey92/order-intake/internal/storage/pg"
	"github.com/sanchey92/order-intake/internal/storage/sqlite"
	"github.com/sanchey92/order-intake/pkg/kafka"
	"github.com/sanchey92/order-intake/pkg/rabbitmq"
	"github.com/sanchey92/order-intake/pkg/retry"
)

type store interface {
	order.Store
	Close()
}

type App struct {
	cfg      *config.Config
	logger   *slog.Logger
	store    store
	service  *order.Service
	server   *http.Server
	shutdown time.Duration
}

func New(cfg *config.Config) (*App, error) {
	if cfg == nil {
		return nil, fmt.Errorf("config required")
	}

	ctx := context.Background()

	// Logger initialisation
	logger := newLogger(cfg.App.LogLevel, cfg.App.Name)
	slog.SetDefault(logger)
	logger.Info("initialising",
		slog.String("store", cfg.Store.Driver),
		slog.String("broker", cfg.Broker.Driver))

	st, err := newStore(ctx, cfg, logger)
	if err != nil {
		return nil, fmt.Errorf("app creation: %w", err)
	}
	logger.Info("store connected", slog.String("driver", cfg.Store.Driver))

	notifier := newNotifier(cfg, logger)
	svc := order.NewOrderService(logger, st, notifier, cfg.Broker.PublishTimeout)

	server := &http.Server{
		Addr:         ":" + strconv.Itoa(cfg.HTTP.Port),
		Handler:      router.New(logger, svc, cfg.HTTP.CORSOrigin),
		ReadTimeout:  cfg.HTTP.ReadTimeout,
		WriteTimeout: cfg.HTTP.WriteTimeout,
	}

	return &App{
		cfg:      cfg,
		logger:   logger,
		store:    st,
		service:  svc,
		server:   server,
		shutdown: cfg.HTTP.ShutdownTimeout,
	}, nil
}

// Run waits for the broker, prepares the queue, then serves until ctx is
// cancelled or the process receives SIGINT/SIGTERM.
func (a *App) Run(ctx context.Context) error {
	defer a.store.Close()

	ctx, stop := signal.NotifyContext(ctx, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if !a.bootstrap(ctx) {
		a.logger.Info("stopped during startup")
		return nil
	}

	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		a.logger.Info("http server listening", slog.String("addr", a.server.Addr))
		if err := a.server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("http server: %w", err)
		}
		return nil
	})

	g.Go(func() error {
		<-gctx.Done()
		a.logger.Info("shutting down")

		shutdownCtx, cancel := context.WithTimeout(context.Background(), a.shutdown)
		defer cancel()
		if err := a.server.Shutdown(shutdownCtx); err != nil {
			return fmt.Errorf("http shutdown: %w", err)
		}
		return nil
	})

	return g.Wait()
}

// bootstrap sleeps for the broker startup delay and ensures the queue. It
// reports false when ctx ends first.
func (a *App) bootstrap(ctx context.Context) bool {
	if d := a.cfg.Broker.StartupDelay; d > 0 {
		a.logger.Info("waiting for broker", slog.Duration("delay", d))
		timer := time.NewTimer(d)
		select {
		case <-ctx.Done():
			timer.Stop()
			return false
		case <-timer.C:
		}
	}

	a.service.Bootstrap(ctx)
	return ctx.Err() == nil
}

func newStore(ctx context.Context, cfg *config.Config, logger *slog.Logger) (store, error) {
	if cfg.Store.Driver == config.StoreSQLite {
		s, err := sqlite.NewSQLiteStorage(ctx, logger, cfg.SQLite.Path)
		if err != nil {
			return nil, err
		}
		return s, nil
	}

	s, err := pg.NewPGStorage(ctx, logger, &pg.StorageConfig{
		DSN:             cfg.Postgres.DSN,
		MaxConns:        cfg.Postgres.MaxConns,
		MinConns:        cfg.Postgres.MinConns,
		MaxConnLife:     cfg.Postgres.MaxConnLifetime,
		MaxConnIdleTime: cfg.Postgres.MaxConnIdleTime,
	})
	if err != nil {
		return nil, err
	}
	return s, nil
}

func newNotifier(cfg *config.Config, logger *slog.Logger) notify.Notifier {
	connectRetry := retry.Fixed(cfg.Broker.ConnectAttempts, cfg.Broker.ConnectDelay)

	switch cfg.Broker.Driver {
	case config.BrokerNone:
		return notify.NewNop(logger)
	case config.BrokerKafka:
		return notify.NewKafka(&notify.KafkaConfig{
			Producer: kafka.ProducerConfig{
				Brokers:         cfg.Kafka.Brokers,
				Acks:            cfg.Kafka.Acks,
				LingerMs:        cfg.Kafka.LingerMs,
				Compression:     cfg.Kafka.Compression,
				DeliveryTimeout: cfg.Broker.PublishTimeout,
			},
			Topic: kafka.TopicConfig{
				Brokers:           cfg.Kafka.Brokers,
				Topic:             cfg.Broker.Queue,
				Partitions:        cfg.Kafka.Partitions,
				ReplicationFactor: cfg.Kafka.ReplicationFactor,
			},
			Retry: connectRetry,
		}, logger)
	default:
		client := rabbitmq.NewClient(&rabbitmq.Config{
			URL:   cfg.RabbitMQ.URL(),
			Retry: connectRetry,
		}, logger)
		return notify.NewAMQP(client, cfg.Broker.Queue, cfg.RabbitMQ.DurableQueue, logger)
	}
}

// newLogger builds the JSON logger. Unknown levels fall back to info; debug
// also records source positions.
func newLogger(level, service string) *slog.Logger {
	var lvl slog.Level
	if err := lvl.UnmarshalText([]byte(level)); err != nil {
		lvl = slog.LevelInfo
	}

	handler := slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
		Level:     lvl,
		AddSource: lvl <= slog.LevelDebug,
	})
	return slog.New(handler).With(slog.String("service", service))
}
