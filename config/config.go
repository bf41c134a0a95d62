package config

import (
	"fmt"
	"os"
	"time"

	"github.com/caarlos0/env/v11"
	"github.com/joho/godotenv"
	"github.com/pkg/errors"
	"gopkg.in/yaml.v3"
)

// Config is shared by all binaries. Values come from, in order of
// precedence: MBO_* environment variables (and a .env file), an optional
// YAML file, and the defaults below.
type Config struct {
	Log     LogConfig     `yaml:"log" envPrefix:"LOG_"`
	Feed    FeedConfig    `yaml:"feed" envPrefix:"FEED_"`
	Capture CaptureConfig `yaml:"capture" envPrefix:"CAPTURE_"`
	Kafka   KafkaConfig   `yaml:"kafka" envPrefix:"KAFKA_"`
	Outbox  OutboxConfig  `yaml:"outbox" envPrefix:"OUTBOX_"`
	Redis   RedisConfig   `yaml:"redis" envPrefix:"REDIS_"`
	Metrics MetricsConfig `yaml:"metrics" envPrefix:"METRICS_"`
	Export  ExportConfig  `yaml:"export" envPrefix:"EXPORT_"`
}

type LogConfig struct {
	Level      string `yaml:"level" env:"LEVEL"`
	File       string `yaml:"file" env:"FILE"`
	MaxSizeMB  int    `yaml:"max_size_mb" env:"MAX_SIZE_MB"`
	MaxBackups int    `yaml:"max_backups" env:"MAX_BACKUPS"`
}

type FeedConfig struct {
	// Addr is the streamer bind address and the consumer dial address.
	Addr   string `yaml:"addr" env:"ADDR"`
	Mode   string `yaml:"mode" env:"MODE"`
	Source string `yaml:"source" env:"SOURCE"`
	Inbox  int    `yaml:"inbox" env:"INBOX"`
}

type CaptureConfig struct {
	Dir             string        `yaml:"dir" env:"DIR"`
	SegmentSize     int64         `yaml:"segment_size" env:"SEGMENT_SIZE"`
	SegmentDuration time.Duration `yaml:"segment_duration" env:"SEGMENT_DURATION"`
}

type KafkaConfig struct {
	Brokers     []string `yaml:"brokers" env:"BROKERS" envSeparator:","`
	EventsTopic string   `yaml:"events_topic" env:"EVENTS_TOPIC"`
	QuotesTopic string   `yaml:"quotes_topic" env:"QUOTES_TOPIC"`
	GroupID     string   `yaml:"group_id" env:"GROUP_ID"`
}

type OutboxConfig struct {
	Dir      string        `yaml:"dir" env:"DIR"`
	Interval time.Duration `yaml:"interval" env:"INTERVAL"`
}

type RedisConfig struct {
	Addr     string        `yaml:"addr" env:"ADDR"`
	Password string        `yaml:"password" env:"PASSWORD"`
	DB       int           `yaml:"db" env:"DB"`
	TTL      time.Duration `yaml:"ttl" env:"TTL"`
}

type MetricsConfig struct {
	Addr string `yaml:"addr" env:"ADDR"`
}

type ExportConfig struct {
	Path          string        `yaml:"path" env:"PATH"`
	IncludeOrders bool          `yaml:"include_orders" env:"INCLUDE_ORDERS"`
	Interval      time.Duration `yaml:"interval" env:"INTERVAL"`
}

func Default() Config {
	return Config{
		Log: LogConfig{
			Level:      "info",
			MaxSizeMB:  100,
			MaxBackups: 3,
		},
		Feed: FeedConfig{
			Addr:   "127.0.0.1:5000",
			Mode:   "buffered",
			Source: "tcp",
			Inbox:  4096,
		},
		Capture: CaptureConfig{
			SegmentSize:     64 << 20,
			SegmentDuration: time.Hour,
		},
		Kafka: KafkaConfig{
			EventsTopic: "mbo.events",
			QuotesTopic: "mbo.quotes",
			GroupID:     "mbo-consumer",
		},
		Outbox: OutboxConfig{
			Interval: 250 * time.Millisecond,
		},
		Redis: RedisConfig{
			TTL: time.Minute,
		},
		Export: ExportConfig{
			Path: "order_book.json",
		},
	}
}

// Load builds the configuration. path may be empty, in which case MBO_CONFIG
// is consulted; a missing file is an error only when explicitly named.
func Load(path string) (*Config, error) {
	cfg := Default()

	if path == "" {
		path = os.Getenv("MBO_CONFIG")
	}
	if path != "" {
		raw, err := os.ReadFile(path)
		if err != nil {
			return nil, errors.Wrap(err, "read config file")
		}
		if err := yaml.Unmarshal(raw, &cfg); err != nil {
			return nil, errors.Wrapf(err, "parse config file %s", path)
		}
	}

	// Load .env file if it exists
	_ = godotenv.Load()

	if err := env.ParseWithOptions(&cfg, env.Options{Prefix: "MBO_"}); err != nil {
		return nil, errors.Wrap(err, "parse environment")
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func (c *Config) Validate() error {
	switch c.Feed.Mode {
	case "buffered", "streaming":
	default:
		return fmt.Errorf("config: feed.mode must be buffered or streaming, got %q", c.Feed.Mode)
	}
	switch c.Feed.Source {
	case "tcp", "kafka":
	default:
		return fmt.Errorf("config: feed.source must be tcp or kafka, got %q", c.Feed.Source)
	}
	if c.Feed.Source == "kafka" && len(c.Kafka.Brokers) == 0 {
		return fmt.Errorf("config: kafka source needs kafka.brokers")
	}
	if c.Feed.Inbox <= 0 {
		return fmt.Errorf("config: feed.inbox must be positive")
	}
	if c.Capture.SegmentSize < 0 {
		return fmt.Errorf("config: capture.segment_size must not be negative")
	}
	if c.Outbox.Dir != "" && c.Outbox.Interval <= 0 {
		return fmt.Errorf("config: outbox.interval must be positive")
	}
	return nil
}
