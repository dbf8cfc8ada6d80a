package config

import (
	"fmt"
	"time"

	"github.com/kelseyhightower/envconfig"
)

// Config holds all application configuration.
type Config struct {
	Server    ServerConfig
	Storage   StorageConfig
	Delivery  DeliveryConfig
	Watcher   WatcherConfig
	Logging   LogConfig
	RateLimit RateLimitConfig
}

// ServerConfig holds HTTP server configuration.
type ServerConfig struct {
	Port string `envconfig:"PORT" default:"8000"`
	Host string `envconfig:"HOST" default:"0.0.0.0"`
}

// StorageConfig holds segment storage configuration.
type StorageConfig struct {
	DatasetsRoot string `envconfig:"DATASETS_ROOT" default:"/tmp/harbor-datasets"`
}

// DeliveryConfig holds push delivery configuration.
type DeliveryConfig struct {
	// PushTimeout bounds each push POST. Endpoints are untrusted and may hang.
	PushTimeout time.Duration `envconfig:"PUSH_TIMEOUT" default:"10s"`
}

// WatcherConfig holds client-side ingestion agent configuration.
type WatcherConfig struct {
	WatchDir           string        `envconfig:"WATCH_DIR" default:".harbor/watch"`
	MinBatchUploadSize int           `envconfig:"MIN_BATCH_UPLOAD_SIZE" default:"64"`
	ServerURL          string        `envconfig:"SERVER_URL" default:"http://localhost:8000"`
	NamespaceID        string        `envconfig:"NAMESPACE_ID"`
	DatasetID          string        `envconfig:"DATASET_ID"`
	Timeout            time.Duration `envconfig:"CLIENT_TIMEOUT" default:"60s"`
}

// LogConfig holds logging configuration.
type LogConfig struct {
	Level       string `envconfig:"LOG_LEVEL" default:"info"`
	Development bool   `envconfig:"LOG_DEV" default:"false"`
}

// RateLimitConfig holds rate limiting configuration.
type RateLimitConfig struct {
	RequestsPerSecond int  `envconfig:"RATE_LIMIT_RPS" default:"100"`
	Burst             int  `envconfig:"RATE_LIMIT_BURST" default:"200"`
	Enabled           bool `envconfig:"RATE_LIMIT_ENABLED" default:"true"`
}

// Load loads configuration from environment variables.
func Load() (*Config, error) {
	var cfg Config
	if err := envconfig.Process("HARBOR", &cfg); err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}
	return &cfg, nil
}

// LoadOrDefault loads configuration from environment or returns default.
func LoadOrDefault() *Config {
	cfg, err := Load()
	if err != nil {
		return Default()
	}
	return cfg
}

// Default returns default configuration.
func Default() *Config {
	return &Config{
		Server: ServerConfig{
			Port: "8000",
			Host: "0.0.0.0",
		},
		Storage: StorageConfig{
			DatasetsRoot: "/tmp/harbor-datasets",
		},
		Delivery: DeliveryConfig{
			PushTimeout: 10 * time.Second,
		},
		Watcher: WatcherConfig{
			WatchDir:           ".harbor/watch",
			MinBatchUploadSize: 64,
			ServerURL:          "http://localhost:8000",
			Timeout:            60 * time.Second,
		},
		Logging: LogConfig{
			Level:       "info",
			Development: false,
		},
		RateLimit: RateLimitConfig{
			RequestsPerSecond: 100,
			Burst:             200,
			Enabled:           true,
		},
	}
}
