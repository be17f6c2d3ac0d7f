package kafka_config

import (
	"fmt"
	"os"
	"slices"
	"strconv"
	"strings"
	"time"

	"concierge/pkg/logger"
)

// Config is shared by the appointment event producer and the calendar-sync
// consumer.
type Config struct {
	Brokers          []string
	Producer         ProducerConfig
	Consumer         ConsumerConfig
	EnableMiddleware bool
}

type ProducerConfig struct {
	MaxAttempts  int
	BatchTimeout time.Duration
	RequireAcks  int    // -1 all replicas, 0 none, 1 leader
	Compression  string // none, gzip, snappy, lz4, zstd
	Async        bool
}

type ConsumerConfig struct {
	StartOffset       int64 // -1 newest, -2 oldest
	MinBytes          int
	MaxBytes          int
	MaxWait           time.Duration
	CommitInterval    time.Duration
	HeartbeatInterval time.Duration
	SessionTimeout    time.Duration
	RebalanceTimeout  time.Duration
	MaxRetries        int
	RetryBackoff      time.Duration
}

var compressions = []string{"none", "gzip", "snappy", "lz4", "zstd"}

// Load reads the Kafka settings from the environment and validates them.
func Load() (*Config, error) {
	cfg := &Config{
		Brokers:          splitBrokers(getEnvStr(EnvBrokers, DefaultBrokers)),
		EnableMiddleware: getEnvBool(EnvEnableMiddleware, DefaultEnableMiddleware),
		Producer: ProducerConfig{
			MaxAttempts:  getEnvInt(EnvProducerMaxAttempts, DefaultProducerMaxAttempts),
			BatchTimeout: getEnvDuration(EnvProducerBatchTimeout, DefaultProducerBatchTimeout),
			RequireAcks:  getEnvInt(EnvProducerRequireAcks, DefaultProducerRequireAcks),
			Compression:  getEnvStr(EnvProducerCompression, DefaultProducerCompression),
			Async:        getEnvBool(EnvProducerAsync, DefaultProducerAsync),
		},
		Consumer: ConsumerConfig{
			StartOffset:       int64(getEnvInt(EnvConsumerStartOffset, DefaultConsumerStartOffset)),
			MinBytes:          getEnvInt(EnvConsumerMinBytes, DefaultConsumerMinBytes),
			MaxBytes:          getEnvInt(EnvConsumerMaxBytes, DefaultConsumerMaxBytes),
			MaxWait:           getEnvDuration(EnvConsumerMaxWait, DefaultConsumerMaxWait),
			CommitInterval:    getEnvDuration(EnvConsumerCommitInterval, DefaultConsumerCommitInterval),
			HeartbeatInterval: getEnvDuration(EnvConsumerHeartbeatInterval, DefaultConsumerHeartbeatInterval),
			SessionTimeout:    getEnvDuration(EnvConsumerSessionTimeout, DefaultConsumerSessionTimeout),
			RebalanceTimeout:  getEnvDuration(EnvConsumerRebalanceTimeout, DefaultConsumerRebalanceTimeout),
			MaxRetries:        getEnvInt(EnvConsumerMaxRetries, DefaultConsumerMaxRetries),
			RetryBackoff:      getEnvDuration(EnvConsumerRetryBackoff, DefaultConsumerRetryBackoff),
		},
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("kafka configuration: %w", err)
	}
	return cfg, nil
}

func (cfg *Config) Validate() error {
	var errors []string

	if len(cfg.Brokers) == 0 {
		errors = append(errors, "At least one Kafka broker is required")
	}
	if slices.Contains(cfg.Brokers, "") {
		errors = append(errors, "Broker addresses cannot be empty")
	}

	p := cfg.Producer
	if p.MaxAttempts <= 0 {
		errors = append(errors, fmt.Sprintf("Producer.MaxAttempts must be positive, got: %d", p.MaxAttempts))
	}
	if !slices.Contains(compressions, p.Compression) {
		errors = append(errors, fmt.Sprintf("Producer.Compression must be one of %v, got: %s", compressions, p.Compression))
	}
	if p.RequireAcks < -1 || p.RequireAcks > 1 {
		errors = append(errors, fmt.Sprintf("Producer.RequireAcks must be -1, 0, or 1, got: %d", p.RequireAcks))
	}

	c := cfg.Consumer
	if c.StartOffset < -2 {
		errors = append(errors, fmt.Sprintf("Consumer.StartOffset must be -1 (newest), -2 (oldest), or >= 0, got: %d", c.StartOffset))
	}
	if c.MinBytes <= 0 || c.MaxBytes < c.MinBytes {
		errors = append(errors, fmt.Sprintf("Consumer byte bounds must satisfy 0 < MinBytes <= MaxBytes, got: %d..%d", c.MinBytes, c.MaxBytes))
	}
	if c.MaxRetries < 0 {
		errors = append(errors, fmt.Sprintf("Consumer.MaxRetries cannot be negative, got: %d", c.MaxRetries))
	}
	if c.RetryBackoff < 0 {
		errors = append(errors, fmt.Sprintf("Consumer.RetryBackoff cannot be negative, got: %s", c.RetryBackoff))
	}

	durations := []struct {
		name  string
		value time.Duration
	}{
		{"Producer.BatchTimeout", p.BatchTimeout},
		{"Consumer.MaxWait", c.MaxWait},
		{"Consumer.CommitInterval", c.CommitInterval},
		{"Consumer.HeartbeatInterval", c.HeartbeatInterval},
		{"Consumer.SessionTimeout", c.SessionTimeout},
		{"Consumer.RebalanceTimeout", c.RebalanceTimeout},
	}
	for _, d := range durations {
		if d.value <= 0 {
			errors = append(errors, fmt.Sprintf("%s must be positive, got: %s", d.name, d.value))
		}
	}

	if len(errors) > 0 {
		errMsg := "Configuration validation failed:\n"
		for i, err := range errors {
			errMsg += fmt.Sprintf("  %d. %s\n", i+1, err)
		}
		return fmt.Errorf("%s", errMsg)
	}
	return nil
}

func (cfg *Config) LogConfiguration(log *logger.Logger) {
	if log == nil {
		return
	}
	log.Info("Kafka configuration loaded successfully",
		"brokers", cfg.Brokers,
		"enable_middleware", cfg.EnableMiddleware,
		"producer", fmt.Sprintf("%+v", cfg.Producer),
		"consumer", fmt.Sprintf("%+v", cfg.Consumer),
	)
}

func splitBrokers(raw string) []string {
	var brokers []string
	for _, b := range strings.Split(raw, ",") {
		brokers = append(brokers, strings.TrimSpace(b))
	}
	return brokers
}

func getEnvStr(key, fallback string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return fallback
}

func getEnvInt(key string, fallback int) int {
	if value := os.Getenv(key); value != "" {
		if n, err := strconv.Atoi(value); err == nil {
			return n
		}
	}
	return fallback
}

func getEnvBool(key string, fallback bool) bool {
	if value := os.Getenv(key); value != "" {
		if b, err := strconv.ParseBool(value); err == nil {
			return b
		}
	}
	return fallback
}

func getEnvDuration(key string, fallback time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if d, err := time.ParseDuration(value); err == nil {
			return d
		}
	}
	return fallback
}
