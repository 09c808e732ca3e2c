package config

import (
	"fmt"
	"net"
	"net/url"
	"os"
	"strconv"
	"time"

	"github.com/ilyakaznacheev/cleanenv"
)

type Config struct {
	App      App      `yaml:"app"`
	HTTP     HTTP     `yaml:"http"`
	Store    Store    `yaml:"store"`
	Postgres Postgres `yaml:"postgres"`
	SQLite   SQLite   `yaml:"sqlite"`
	Broker   Broker   `yaml:"broker"`
	RabbitMQ RabbitMQ `yaml:"rabbitmq"`
	Kafka    Kafka    `yaml:"kafka"`
}

type App struct {
	Name     string `yaml:"name"      env:"APP_NAME"      env-default:"order-intake"`
	LogLevel string `yaml:"log_level" env:"APP_LOG_LEVEL" env-default:"info"`
}

type HTTP struct {
	Port            int           `yaml:"port"             env:"HTTP_PORT"             env-default:"5000"`
	ReadTimeout     time.Duration `yaml:"read_timeout"     env:"HTTP_READ_TIMEOUT"     env-default:"10s"`
	WriteTimeout    time.Duration `yaml:"write_timeout"    env:"HTTP_WRITE_TIMEOUT"    env-default:"60s"`
	ShutdownTimeout time.Duration `yaml:"shutdown_timeout" env:"HTTP_SHUTDOWN_TIMEOUT" env-default:"15s"`
	CORSOrigin      string        `yaml:"cors_origin"      env:"HTTP_CORS_ORIGIN"      env-default:"*"`
}

const (
	StorePostgres = "postgres"
	StoreSQLite   = "sqlite"
)

type Store struct {
	Driver string `yaml:"driver" env:"STORE_DRIVER" env-default:"postgres"`
}

type Postgres struct {
	DSN             string        `yaml:"dsn"                env:"DATABASE_URL"                env-default:"postgresql://vibhav:12345@db:5432/bakery"`
	MaxConns        int32         `yaml:"max_conns"          env:"POSTGRES_MAX_CONNS"          env-default:"20"`
	MinConns        int32         `yaml:"min_conns"          env:"POSTGRES_MIN_CONNS"          env-default:"2"`
	MaxConnLifetime time.Duration `yaml:"max_conn_lifetime"  env:"POSTGRES_MAX_CONN_LIFETIME"  env-default:"30m"`
	MaxConnIdleTime time.Duration `yaml:"max_conn_idle_time" env:"POSTGRES_MAX_CONN_IDLE_TIME" env-default:"5m"`
}

type SQLite struct {
	Path string `yaml:"path" env:"SQLITE_PATH" env-default:"bakery.db"`
}

const (
	BrokerAMQP  = "amqp"
	BrokerKafka = "kafka"
	BrokerNone  = "none"
)

type Broker struct {
	Driver          string        `yaml:"driver"           env:"BROKER_DRIVER"           env-default:"amqp"`
	Queue           string        `yaml:"queue"            env:"BROKER_QUEUE"            env-default:"orders"`
	ConnectAttempts int           `yaml:"connect_attempts" env:"BROKER_CONNECT_ATTEMPTS" env-default:"5"`
	ConnectDelay    time.Duration `yaml:"connect_delay"    env:"BROKER_CONNECT_DELAY"    env-default:"5s"`
	StartupDelay    time.Duration `yaml:"startup_delay"    env:"BROKER_STARTUP_DELAY"    env-default:"15s"`
	PublishTimeout  time.Duration `yaml:"publish_timeout"  env:"BROKER_PUBLISH_TIMEOUT"  env-default:"40s"`
}

type RabbitMQ struct {
	Host         string `yaml:"host"          env:"RABBITMQ_HOST"          env-default:"rabbitmq"`
	Port         int    `yaml:"port"          env:"RABBITMQ_PORT"          env-default:"5672"`
	User         string `yaml:"user"          env:"RABBITMQ_USER"          env-default:"guest"`
	Password     string `yaml:"password"      env:"RABBITMQ_PASSWORD"      env-default:"guest"`
	VHost        string `yaml:"vhost"         env:"RABBITMQ_VHOST"         env-default:"/"`
	DurableQueue bool   `yaml:"durable_queue" env:"RABBITMQ_DURABLE_QUEUE" env-default:"true"`
}

// URL renders the AMQP connection URL.
func (r RabbitMQ) URL() string {
	u := url.URL{
		Scheme: "amqp",
		User:   url.UserPassword(r.User, r.Password),
		Host:   net.JoinHostPort(r.Host, strconv.Itoa(r.Port)),
		Path:   "/",
	}
	if r.VHost != "" && r.VHost != "/" {
		u.Path = "/" + r.VHost
	}
	return u.String()
}

type Kafka struct {
	Brokers           string `yaml:"brokers"            env:"KAFKA_BROKERS"            env-default:"localhost:29092"`
	Acks              string `yaml:"acks"               env:"KAFKA_ACKS"               env-default:"all"`
	LingerMs          int    `yaml:"linger_ms"          env:"KAFKA_LINGER_MS"          env-default:"0"`
	Compression       string `yaml:"compression"        env:"KAFKA_COMPRESSION"        env-default:"none"`
	Partitions        int    `yaml:"partitions"         env:"KAFKA_PARTITIONS"         env-default:"1"`
	ReplicationFactor int    `yaml:"replication_factor" env:"KAFKA_REPLICATION_FACTOR" env-default:"1"`
}

// MustLoad reads the YAML file at path (if any) and applies environment
// overrides. An empty path means environment only.
func MustLoad(path string) *Config {
	cfg, err := Load(path)
	if err != nil {
		panic(err)
	}
	return cfg
}

func Load(path string) (*Config, error) {
	var cfg Config

	if path == "" {
		if err := cleanenv.ReadEnv(&cfg); err != nil {
			return nil, fmt.Errorf("reading env: %w", err)
		}
		return &cfg, cfg.validate()
	}

	if _, err := os.Stat(path); os.IsNotExist(err) {
		return nil, fmt.Errorf("file does not exists: %s: %w", path, err)
	}

	if err := cleanenv.ReadConfig(path, &cfg); err != nil {
		return nil, fmt.Errorf("reading config: %s: %w", path, err)
	}

	return &cfg, cfg.validate()
}

func (c *Config) validate() error {
	switch c.Store.Driver {
	case StorePostgres, StoreSQLite:
	default:
		return fmt.Errorf("unknown store driver %q", c.Store.Driver)
	}

	switch c.Broker.Driver {
	case BrokerAMQP, BrokerKafka, BrokerNone:
	default:
		return fmt.Errorf("unknown broker driver %q", c.Broker.Driver)
	}

	if c.Broker.ConnectAttempts < 1 {
		return fmt.Errorf("broker connect attempts must be positive, got %d", c.Broker.ConnectAttempts)
	}
	return nil
}
