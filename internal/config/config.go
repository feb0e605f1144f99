// Package config loads and validates app config from env and an optional .env file using Viper.
package config

import (
	"errors"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Config holds application configuration loaded from the environment.
type Config struct {
	// GRPCAddr is the address the worker's gRPC health server listens on (e.g. :8080).
	GRPCAddr string `mapstructure:"GRPC_ADDR"`
	// DatabaseURL is the Postgres DSN for the document store.
	DatabaseURL string `mapstructure:"DATABASE_URL"`

	// KafkaBrokers is a comma-separated list of Kafka broker addresses (e.g. "localhost:9092").
	KafkaBrokers string `mapstructure:"KAFKA_BROKERS"`
	// CDCTopic is the Kafka topic carrying change-data-capture envelopes (default classtrack-cdc).
	CDCTopic string `mapstructure:"CDC_TOPIC"`
	// KafkaGroupID is the consumer group ID for the propagation worker.
	KafkaGroupID string `mapstructure:"KAFKA_GROUP_ID"`
	// DeadLetterTopic is the topic malformed envelopes are published to (default classtrack-cdc-dlq).
	// Empty disables dead-letter publishing; malformed envelopes are then only logged.
	DeadLetterTopic string `mapstructure:"DEAD_LETTER_TOPIC"`

	// MirrorEndpoint is the S3-compatible endpoint for the blob mirror (e.g. localhost:9000).
	MirrorEndpoint string `mapstructure:"MIRROR_ENDPOINT"`
	// MirrorBucket is the bucket holding license and student mirror blobs.
	MirrorBucket string `mapstructure:"MIRROR_BUCKET"`
	// MirrorAccessKey and MirrorSecretKey authenticate against the mirror endpoint.
	MirrorAccessKey string `mapstructure:"MIRROR_ACCESS_KEY"`
	MirrorSecretKey string `mapstructure:"MIRROR_SECRET_KEY"`
	// MirrorUseSSL selects https for the mirror endpoint.
	MirrorUseSSL bool `mapstructure:"MIRROR_USE_SSL"`

	// WorkflowURL is the base URL of the workflow orchestrator (e.g. http://localhost:4200).
	WorkflowURL string `mapstructure:"WORKFLOW_URL"`
	// TemplateURL is the base URL of the template engine (e.g. http://localhost:4300).
	TemplateURL string `mapstructure:"TEMPLATE_URL"`
	// ServiceTokenSecret signs HS256 service tokens for the workflow and template clients.
	// Required when WorkflowURL or TemplateURL is set.
	ServiceTokenSecret string `mapstructure:"SERVICE_TOKEN_SECRET"`
	// ServiceTokenTTL is the lifetime of a service token (e.g. "5m").
	ServiceTokenTTL string `mapstructure:"SERVICE_TOKEN_TTL"`

	// ScanPageSize is the page size for full scans (orphan scanner, backfill driver).
	ScanPageSize int `mapstructure:"SCAN_PAGE_SIZE"`
	// TemplateBatchSize bounds concurrent template applications per batch.
	TemplateBatchSize int `mapstructure:"TEMPLATE_BATCH_SIZE"`

	// OTLPEndpoint is the OTLP gRPC collector endpoint; empty disables telemetry export.
	OTLPEndpoint string `mapstructure:"OTLP_ENDPOINT"`
	// OTLPInsecure forces plaintext OTLP even for https endpoints.
	OTLPInsecure bool `mapstructure:"OTLP_INSECURE"`

	// Env is the application environment (e.g. "development", "production").
	Env string `mapstructure:"APP_ENV"`
}

// Load reads .env (if present), then builds and validates Config from the environment via Viper.
// Missing .env is ignored (e.g. in CI). Env vars override .env. Returns an error if required fields are invalid.
func Load() (*Config, error) {
	v := viper.New()

	v.SetConfigFile(".env")
	v.SetConfigType("env")
	_ = v.ReadInConfig() // ignore ErrConfigFileNotFound

	v.AutomaticEnv()

	v.SetDefault("GRPC_ADDR", ":8080")
	v.SetDefault("DATABASE_URL", "")
	v.SetDefault("KAFKA_BROKERS", "")
	v.SetDefault("CDC_TOPIC", "classtrack-cdc")
	v.SetDefault("KAFKA_GROUP_ID", "classtrack-propagation-worker")
	v.SetDefault("DEAD_LETTER_TOPIC", "classtrack-cdc-dlq")
	v.SetDefault("MIRROR_ENDPOINT", "")
	v.SetDefault("MIRROR_BUCKET", "classtrack-mirror")
	v.SetDefault("MIRROR_ACCESS_KEY", "")
	v.SetDefault("MIRROR_SECRET_KEY", "")
	v.SetDefault("MIRROR_USE_SSL", false)
	v.SetDefault("WORKFLOW_URL", "")
	v.SetDefault("TEMPLATE_URL", "")
	v.SetDefault("SERVICE_TOKEN_SECRET", "")
	v.SetDefault("SERVICE_TOKEN_TTL", "5m")
	v.SetDefault("SCAN_PAGE_SIZE", 100)
	v.SetDefault("TEMPLATE_BATCH_SIZE", 10)
	v.SetDefault("OTLP_ENDPOINT", "")
	v.SetDefault("OTLP_INSECURE", false)
	v.SetDefault("APP_ENV", "")

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, err
	}

	if cfg.GRPCAddr == "" {
		return nil, errors.New("config: GRPC_ADDR must be set")
	}
	if cfg.ScanPageSize <= 0 {
		return nil, errors.New("config: SCAN_PAGE_SIZE must be positive")
	}
	if cfg.TemplateBatchSize <= 0 {
		return nil, errors.New("config: TEMPLATE_BATCH_SIZE must be positive")
	}
	if (cfg.WorkflowURL != "" || cfg.TemplateURL != "") && cfg.ServiceTokenSecret == "" {
		return nil, errors.New("config: SERVICE_TOKEN_SECRET is required when WORKFLOW_URL or TEMPLATE_URL is set")
	}

	return &cfg, nil
}

// KafkaBrokersList returns Kafka broker addresses from the comma-separated config.
// Used to decide if the consumer/producer is enabled (non-empty list).
func (c *Config) KafkaBrokersList() []string {
	if c == nil || c.KafkaBrokers == "" {
		return nil
	}
	parts := strings.Split(c.KafkaBrokers, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if s := strings.TrimSpace(p); s != "" {
			out = append(out, s)
		}
	}
	return out
}

// ServiceTokenLifetime parses ServiceTokenTTL as a time.Duration. Returns 5m if unset or invalid.
func (c *Config) ServiceTokenLifetime() time.Duration {
	d, err := time.ParseDuration(c.ServiceTokenTTL)
	if err != nil || d <= 0 {
		return 5 * time.Minute
	}
	return d
}
