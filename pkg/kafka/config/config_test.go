package kafka_config

import (
	"strings"
	"testing"
	"time"
)

func TestLoad(t *testing.T) {
	t.Setenv(EnvBrokers, "kafka-1:9092, kafka-2:9092")
	t.Setenv(EnvProducerCompression, "zstd")
	t.Setenv(EnvConsumerMaxRetries, "2")
	t.Setenv(EnvConsumerRetryBackoff, "250ms")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}

	if len(cfg.Brokers) != 2 || cfg.Brokers[1] != "kafka-2:9092" {
		t.Errorf("Brokers = %v", cfg.Brokers)
	}
	if cfg.Producer.Compression != "zstd" {
		t.Errorf("Compression = %s", cfg.Producer.Compression)
	}
	if cfg.Consumer.MaxRetries != 2 || cfg.Consumer.RetryBackoff != 250*time.Millisecond {
		t.Errorf("retry settings = %d/%s", cfg.Consumer.MaxRetries, cfg.Consumer.RetryBackoff)
	}
	if cfg.Consumer.StartOffset != DefaultConsumerStartOffset {
		t.Errorf("StartOffset = %d", cfg.Consumer.StartOffset)
	}
}

func TestLoad_Invalid(t *testing.T) {
	t.Setenv(EnvProducerCompression, "brotli")

	_, err := Load()
	if err == nil || !strings.Contains(err.Error(), "Producer.Compression") {
		t.Fatalf("Load() error = %v", err)
	}
}

func TestValidate(t *testing.T) {
	valid := func() *Config {
		return &Config{
			Brokers: []string{"localhost:9092"},
			Producer: ProducerConfig{
				MaxAttempts:  1,
				BatchTimeout: time.Millisecond,
				RequireAcks:  -1,
				Compression:  "none",
			},
			Consumer: ConsumerConfig{
				StartOffset:       -1,
				MinBytes:          1,
				MaxBytes:          10,
				MaxWait:           time.Second,
				CommitInterval:    time.Second,
				HeartbeatInterval: time.Second,
				SessionTimeout:    time.Second,
				RebalanceTimeout:  time.Second,
			},
		}
	}

	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr string
	}{
		{"valid", func(*Config) {}, ""},
		{"no brokers", func(c *Config) { c.Brokers = nil }, "At least one Kafka broker"},
		{"empty broker", func(c *Config) { c.Brokers = []string{"a:1", ""} }, "cannot be empty"},
		{"acks", func(c *Config) { c.Producer.RequireAcks = 2 }, "Producer.RequireAcks"},
		{"offset", func(c *Config) { c.Consumer.StartOffset = -3 }, "Consumer.StartOffset"},
		{"byte bounds", func(c *Config) { c.Consumer.MaxBytes = 0 }, "byte bounds"},
		{"negative retries", func(c *Config) { c.Consumer.MaxRetries = -1 }, "Consumer.MaxRetries"},
		{"zero session timeout", func(c *Config) { c.Consumer.SessionTimeout = 0 }, "Consumer.SessionTimeout must be positive"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := valid()
			tt.mutate(cfg)
			err := cfg.Validate()
			if tt.wantErr == "" {
				if err != nil {
					t.Fatalf("Validate() error = %v", err)
				}
				return
			}
			if err == nil || !strings.Contains(err.Error(), tt.wantErr) {
				t.Errorf("Validate() error = %v, want mention of %q", err, tt.wantErr)
			}
		})
	}
}
