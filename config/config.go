package config

import (
	"errors"
	"fmt"
	"io/fs"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

const envPrefix = "DISPATCHER"

// Fault sinks understood by Validate.
const (
	SinkLog      = "log"
	SinkMemory   = "memory"
	SinkNATS     = "nats"
	SinkKafka    = "kafka"
	SinkRabbitMQ = "rabbitmq"
)

// ErrInvalid is returned by Validate for an unusable configuration.
var ErrInvalid = errors.New("config: invalid")

// Config holds everything needed to wire a dispatcher into a process.
type Config struct {
	Log      LogConfig      `mapstructure:"log"`
	Faults   FaultsConfig   `mapstructure:"faults"`
	NATS     NATSConfig     `mapstructure:"nats"`
	Kafka    KafkaConfig    `mapstructure:"kafka"`
	RabbitMQ RabbitMQConfig `mapstructure:"rabbitmq"`
	Metrics  MetricsConfig  `mapstructure:"metrics"`
}

type LogConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"`
}

// FaultsConfig selects where subscriber faults are reported.
type FaultsConfig struct {
	Sink    string        `mapstructure:"sink"`
	Subject string        `mapstructure:"subject"` // NATS subject override
	Timeout time.Duration `mapstructure:"timeout"` // per-report deadline
}

type NATSConfig struct {
	URL           string        `mapstructure:"url"`
	Name          string        `mapstructure:"name"`
	ConnTimeout   time.Duration `mapstructure:"conn_timeout"`
	MaxReconnects int           `mapstructure:"max_reconnects"`
}

type KafkaConfig struct {
	Brokers  []string `mapstructure:"brokers"`
	ClientID string   `mapstructure:"client_id"`
	Topic    string   `mapstructure:"topic"`
}

type RabbitMQConfig struct {
	URL         string        `mapstructure:"url"`
	ConnTimeout time.Duration `mapstructure:"conn_timeout"`
	Exchange    string        `mapstructure:"exchange"`
}

type MetricsConfig struct {
	Enabled    bool   `mapstructure:"enabled"`
	ListenAddr string `mapstructure:"listen_addr"`
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "text")
	v.SetDefault("faults.sink", SinkLog)
	v.SetDefault("faults.subject", "")
	v.SetDefault("faults.timeout", 5*time.Second)
	v.SetDefault("nats.url", "")
	v.SetDefault("nats.name", "scg-topic-dispatcher")
	v.SetDefault("nats.conn_timeout", 5*time.Second)
	v.SetDefault("nats.max_reconnects", 60)
	v.SetDefault("kafka.brokers", []string{})
	v.SetDefault("kafka.client_id", "scg-topic-dispatcher")
	v.SetDefault("kafka.topic", "dispatcher.faults")
	v.SetDefault("rabbitmq.url", "")
	v.SetDefault("rabbitmq.conn_timeout", 5*time.Second)
	v.SetDefault("rabbitmq.exchange", "dispatcher.faults")
	v.SetDefault("metrics.enabled", false)
	v.SetDefault("metrics.listen_addr", ":9090")
}

// Load reads configuration from defaults, an optional YAML file at path, a .env file in the
// working directory and DISPATCHER_* environment variables, later sources winning.
func Load(path string) (*Config, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("config: load .env: %w", err)
	}

	v := viper.New()
	setDefaults(v)

	v.SetEnvPrefix(envPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if path != "" {
		v.SetConfigFile(path)

		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("config: read %s: %w", path, err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("config: decode: %w", err)
	}

	return &cfg, nil
}

// Validate rejects an unknown sink or a transport sink without an endpoint.
func (c *Config) Validate() error {
	switch c.Faults.Sink {
	case SinkLog, SinkMemory:
	case SinkNATS:
		if c.NATS.URL == "" {
			return fmt.Errorf("%w: nats.url required for sink %q", ErrInvalid, c.Faults.Sink)
		}
	case SinkKafka:
		if len(c.Kafka.Brokers) == 0 {
			return fmt.Errorf("%w: kafka.brokers required for sink %q", ErrInvalid, c.Faults.Sink)
		}
	case SinkRabbitMQ:
		if c.RabbitMQ.URL == "" {
			return fmt.Errorf("%w: rabbitmq.url required for sink %q", ErrInvalid, c.Faults.Sink)
		}
	default:
		return fmt.Errorf("%w: unknown fault sink %q", ErrInvalid, c.Faults.Sink)
	}

	if c.Metrics.Enabled && c.Metrics.ListenAddr == "" {
		return fmt.Errorf("%w: metrics.listen_addr required when metrics are enabled", ErrInvalid)
	}

	return nil
}
