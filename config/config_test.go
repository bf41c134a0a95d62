package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadDefaults(t *testing.T) {
	t.Setenv("MBO_CONFIG", "")
	cfg, err := Load("")
	require.NoError(t, err)
	assert.Equal(t, "info", cfg.Log.Level)
	assert.Equal(t, "127.0.0.1:5000", cfg.Feed.Addr)
	assert.Equal(t, "mbo.quotes", cfg.Kafka.QuotesTopic)
	assert.Equal(t, int64(64<<20), cfg.Capture.SegmentSize)
}

func TestLoadFileThenEnv(t *testing.T) {
	path := filepath.Join(t.TempDir(), "mbo.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
log:
  level: debug
feed:
  addr: 0.0.0.0:6000
  mode: streaming
kafka:
  brokers: [k1:9092]
capture:
  segment_duration: 5m
`), 0o644))

	t.Setenv("MBO_FEED_ADDR", "10.0.0.1:7000")
	t.Setenv("MBO_KAFKA_BROKERS", "a:9092,b:9092")

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, "debug", cfg.Log.Level)
	assert.Equal(t, "streaming", cfg.Feed.Mode)
	assert.Equal(t, "10.0.0.1:7000", cfg.Feed.Addr, "environment wins over the file")
	assert.Equal(t, []string{"a:9092", "b:9092"}, cfg.Kafka.Brokers)
	assert.Equal(t, 5*time.Minute, cfg.Capture.SegmentDuration)
	assert.Equal(t, "mbo.events", cfg.Kafka.EventsTopic, "defaults survive partial files")
}

func TestLoadMissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "nope.yaml"))
	assert.Error(t, err)
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr bool
	}{
		{"defaults", func(*Config) {}, false},
		{"bad mode", func(c *Config) { c.Feed.Mode = "turbo" }, true},
		{"bad source", func(c *Config) { c.Feed.Source = "udp" }, true},
		{"kafka without brokers", func(c *Config) { c.Feed.Source = "kafka" }, true},
		{"kafka with brokers", func(c *Config) {
			c.Feed.Source = "kafka"
			c.Kafka.Brokers = []string{"k:9092"}
		}, false},
		{"zero inbox", func(c *Config) { c.Feed.Inbox = 0 }, true},
		{"outbox without interval", func(c *Config) {
			c.Outbox.Dir = "x"
			c.Outbox.Interval = 0
		}, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := Default()
			tt.mutate(&cfg)
			err := cfg.Validate()
			if tt.wantErr {
				assert.Error(t, err)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}
