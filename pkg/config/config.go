package config

import (
	"fmt"
	"os"
	"regexp"
	"strconv"
	"time"

	"concierge/pkg/client"
	"concierge/pkg/logger"
)

type Config struct {
	Port     string
	LogLevel string

	StoreBackend string

	MongoURI          string
	MongoDatabaseName string
	MongoConnTimeout  time.Duration

	PostgresURL      string
	PostgresMaxConns int

	RedisAddr     string
	RedisPassword string
	RedisDB       int

	TenantConfigFile string

	LLMProvider    string
	LLMTimeout     time.Duration
	LLMTemperature float64
	ToolRoundCap   int
	OpenAIAPIKey   string
	OpenAIModel    string
	GeminiAPIKey   string
	GeminiModel    string

	HistoryWindow int
	HistoryTTL    time.Duration

	WhatsAppAppSecret     string
	WhatsAppVerifyToken   string
	WhatsAppAccessToken   string
	WhatsAppPhoneNumberID string
	WhatsAppAPIBaseURL    string

	CalendarSyncMode      string
	CalendarSyncTimeout   time.Duration
	GoogleCalendarID      string
	GoogleCredentialsFile string

	AppointmentEventsTopic    string
	AppointmentEventsDLQTopic string
	CalendarSyncGroupID       string

	RateLimitRequests  int
	RateLimitWindow    time.Duration
	MessageDedupTTL    time.Duration
	MaxConcurrentTurns int

	RequestTimeout time.Duration
	MaxRequestSize int

	ReadTimeout     time.Duration
	WriteTimeout    time.Duration
	IdleTimeout     time.Duration
	ShutdownTimeout time.Duration

	Log    *logger.Logger
	Client *client.Client
}

// Load reads the environment, exits the process on invalid configuration and
// logs the resolved values.
func Load(serviceName string) *Config {
	cfg := FromEnv(serviceName)
	if err := cfg.Validate(); err != nil {
		cfg.Log.Fatal(err.Error())
	}
	cfg.LogConfiguration()
	return cfg
}

// FromEnv builds a Config from the environment without validating it.
func FromEnv(serviceName string) *Config {
	return &Config{
		Port:     getEnvStr(EnvPort, DefaultPort),
		LogLevel: getEnvStr(EnvLogLevel, DefaultLogLevel),

		StoreBackend: getEnvStr(EnvStoreBackend, DefaultStoreBackend),

		MongoURI:          getEnvStr(EnvMongoURI, DefaultMongoURI),
		MongoDatabaseName: getEnvStr(EnvMongoDatabaseName, DefaultMongoDatabaseName),
		MongoConnTimeout:  getEnvDuration(EnvMongoConnTimeout, DefaultMongoConnTimeout),

		PostgresURL:      getEnvStr(EnvPostgresURL, DefaultPostgresURL),
		PostgresMaxConns: getEnvNum(EnvPostgresMaxConns, DefaultPostgresMaxConns),

		RedisAddr:     getEnvStr(EnvRedisAddr, DefaultRedisAddr),
		RedisPassword: getEnvStr(EnvRedisPassword, ""),
		RedisDB:       getEnvNum(EnvRedisDB, DefaultRedisDB),

		TenantConfigFile: getEnvStr(EnvTenantConfigFile, ""),

		LLMProvider:    getEnvStr(EnvLLMProvider, DefaultLLMProvider),
		LLMTimeout:     getEnvDuration(EnvLLMTimeout, DefaultLLMTimeout),
		LLMTemperature: getEnvFloat(EnvLLMTemperature, DefaultLLMTemperature),
		ToolRoundCap:   getEnvNum(EnvToolRoundCap, DefaultToolRoundCap),
		OpenAIAPIKey:   getEnvStr(EnvOpenAIAPIKey, ""),
		OpenAIModel:    getEnvStr(EnvOpenAIModel, DefaultOpenAIModel),
		GeminiAPIKey:   getEnvStr(EnvGeminiAPIKey, ""),
		GeminiModel:    getEnvStr(EnvGeminiModel, DefaultGeminiModel),

		HistoryWindow: getEnvNum(EnvHistoryWindow, DefaultHistoryWindow),
		HistoryTTL:    getEnvDuration(EnvHistoryTTL, DefaultHistoryTTL),

		WhatsAppAppSecret:     getEnvStr(EnvWhatsAppAppSecret, ""),
		WhatsAppVerifyToken:   getEnvStr(EnvWhatsAppVerifyToken, ""),
		WhatsAppAccessToken:   getEnvStr(EnvWhatsAppAccessToken, ""),
		WhatsAppPhoneNumberID: getEnvStr(EnvWhatsAppPhoneNumberID, ""),
		WhatsAppAPIBaseURL:    getEnvStr(EnvWhatsAppAPIBaseURL, DefaultWhatsAppAPIBaseURL),

		CalendarSyncMode:      getEnvStr(EnvCalendarSyncMode, DefaultCalendarSyncMode),
		CalendarSyncTimeout:   getEnvDuration(EnvCalendarSyncTimeout, DefaultCalendarSyncTimeout),
		GoogleCalendarID:      getEnvStr(EnvGoogleCalendarID, DefaultGoogleCalendarID),
		GoogleCredentialsFile: getEnvStr(EnvGoogleCredentialsFile, ""),

		AppointmentEventsTopic:    getEnvStr(EnvAppointmentEventsTopic, DefaultAppointmentEventsTopic),
		AppointmentEventsDLQTopic: getEnvStr(EnvAppointmentEventsDLQTopic, DefaultAppointmentEventsDLQTopic),
		CalendarSyncGroupID:       getEnvStr(EnvCalendarSyncGroupID, DefaultCalendarSyncGroupID),

		RateLimitRequests:  getEnvNum(EnvRateLimitRequests, DefaultRateLimitRequests),
		RateLimitWindow:    getEnvDuration(EnvRateLimitWindow, DefaultRateLimitWindow),
		MessageDedupTTL:    getEnvDuration(EnvMessageDedupTTL, DefaultMessageDedupTTL),
		MaxConcurrentTurns: getEnvNum(EnvMaxConcurrentTurns, DefaultMaxConcurrentTurns),

		RequestTimeout: getEnvDuration(EnvRequestTimeout, DefaultRequestTimeout),
		MaxRequestSize: getEnvNum(EnvMaxRequestSize, DefaultMaxRequestSize),

		ReadTimeout:     getEnvDuration(EnvReadTimeout, DefaultReadTimeout),
		WriteTimeout:    getEnvDuration(EnvWriteTimeout, DefaultWriteTimeout),
		IdleTimeout:     getEnvDuration(EnvIdleTimeout, DefaultIdleTimeout),
		ShutdownTimeout: getEnvDuration(EnvShutdownTimeout, DefaultShutdownTimeout),

		Log: logger.New(logger.Config{
			Level:     getEnvStr(EnvLogLevel, DefaultLogLevel),
			Format:    logger.JSON,
			AddSource: true,
			Service:   serviceName,
		}),
		Client: client.NewClient(),
	}
}

func (cfg *Config) SetMongo() {
	cfg.Client.SetMongo(cfg.Log, cfg.MongoURI, cfg.MongoConnTimeout)
}

func (cfg *Config) SetPostgres() {
	cfg.Client.SetPostgres(cfg.Log, cfg.PostgresURL, int32(cfg.PostgresMaxConns), cfg.MongoConnTimeout)
}

// SetStore connects the configured appointment store backend.
func (cfg *Config) SetStore() {
	if cfg.StoreBackend == StorePostgres {
		cfg.SetPostgres()
		return
	}
	cfg.SetMongo()
}

func (cfg *Config) SetRedis() {
	cfg.Client.SetRedis(cfg.Log, cfg.RedisAddr, cfg.RedisPassword, cfg.RedisDB, cfg.MongoConnTimeout)
}

func (cfg *Config) Validate() error {
	var errors []string

	if port, err := strconv.Atoi(cfg.Port); err != nil || port < 1 || port > 65535 {
		errors = append(errors, fmt.Sprintf("Port must be between 1 and 65535, got: %s", cfg.Port))
	}

	switch cfg.StoreBackend {
	case StoreMongo:
		if cfg.MongoURI == "" {
			errors = append(errors, "MongoURI cannot be empty")
		} else if !regexp.MustCompile(`^mongodb(\+srv)?://`).MatchString(cfg.MongoURI) {
			errors = append(errors, fmt.Sprintf("MongoURI must start with 'mongodb://' or 'mongodb+srv://', got: %s", redactURI(cfg.MongoURI)))
		}
		if cfg.MongoDatabaseName == "" {
			errors = append(errors, "MongoDatabaseName cannot be empty")
		}
	case StorePostgres:
		if !regexp.MustCompile(`^postgres(ql)?://`).MatchString(cfg.PostgresURL) {
			errors = append(errors, fmt.Sprintf("PostgresURL must start with 'postgres://' or 'postgresql://', got: %s", redactURI(cfg.PostgresURL)))
		}
		if cfg.PostgresMaxConns <= 0 {
			errors = append(errors, fmt.Sprintf("PostgresMaxConns must be positive, got: %d", cfg.PostgresMaxConns))
		}
	default:
		errors = append(errors, fmt.Sprintf("StoreBackend must be one of [%s, %s], got: %s", StoreMongo, StorePostgres, cfg.StoreBackend))
	}

	if cfg.RedisAddr == "" {
		errors = append(errors, "RedisAddr cannot be empty")
	}

	switch cfg.LLMProvider {
	case ProviderOpenAI:
		if cfg.OpenAIAPIKey == "" {
			errors = append(errors, "OpenAIAPIKey is required when LLMProvider is openai")
		}
	case ProviderGemini:
		if cfg.GeminiAPIKey == "" {
			errors = append(errors, "GeminiAPIKey is required when LLMProvider is gemini")
		}
	default:
		errors = append(errors, fmt.Sprintf("LLMProvider must be one of [%s, %s], got: %s", ProviderOpenAI, ProviderGemini, cfg.LLMProvider))
	}
	if cfg.ToolRoundCap < 1 || cfg.ToolRoundCap > 10 {
		errors = append(errors, fmt.Sprintf("ToolRoundCap must be between 1 and 10, got: %d", cfg.ToolRoundCap))
	}
	if cfg.LLMTemperature < 0 || cfg.LLMTemperature > 2 {
		errors = append(errors, fmt.Sprintf("LLMTemperature must be between 0 and 2, got: %v", cfg.LLMTemperature))
	}

	if cfg.HistoryWindow < 2 {
		errors = append(errors, fmt.Sprintf("HistoryWindow must be at least 2, got: %d", cfg.HistoryWindow))
	}

	switch cfg.CalendarSyncMode {
	case SyncOff, SyncKafka:
	case SyncInline:
		if cfg.GoogleCalendarID == "" {
			errors = append(errors, "GoogleCalendarID is required when CalendarSyncMode is inline")
		}
	default:
		errors = append(errors, fmt.Sprintf("CalendarSyncMode must be one of [%s, %s, %s], got: %s", SyncOff, SyncInline, SyncKafka, cfg.CalendarSyncMode))
	}
	if cfg.CalendarSyncMode == SyncKafka && cfg.AppointmentEventsTopic == "" {
		errors = append(errors, "AppointmentEventsTopic is required when CalendarSyncMode is kafka")
	}

	durations := []struct {
		name  string
		value time.Duration
	}{
		{"MongoConnTimeout", cfg.MongoConnTimeout},
		{"LLMTimeout", cfg.LLMTimeout},
		{"HistoryTTL", cfg.HistoryTTL},
		{"CalendarSyncTimeout", cfg.CalendarSyncTimeout},
		{"RateLimitWindow", cfg.RateLimitWindow},
		{"MessageDedupTTL", cfg.MessageDedupTTL},
		{"RequestTimeout", cfg.RequestTimeout},
		{"ReadTimeout", cfg.ReadTimeout},
		{"WriteTimeout", cfg.WriteTimeout},
		{"IdleTimeout", cfg.IdleTimeout},
		{"ShutdownTimeout", cfg.ShutdownTimeout},
	}
	for _, d := range durations {
		if d.value <= 0 {
			errors = append(errors, fmt.Sprintf("%s must be positive, got: %s", d.name, d.value))
		}
	}

	if cfg.RateLimitRequests <= 0 {
		errors = append(errors, fmt.Sprintf("RateLimitRequests must be positive, got: %d", cfg.RateLimitRequests))
	}
	if cfg.MaxRequestSize <= 0 {
		errors = append(errors, fmt.Sprintf("MaxRequestSize must be positive, got: %d", cfg.MaxRequestSize))
	}
	if cfg.MaxConcurrentTurns <= 0 {
		errors = append(errors, fmt.Sprintf("MaxConcurrentTurns must be positive, got: %d", cfg.MaxConcurrentTurns))
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

func (cfg *Config) LogConfiguration() {
	cfg.Log.Info("Configuration loaded successfully",
		"port", cfg.Port,
		"store_backend", cfg.StoreBackend,
		"mongo_uri", redactURI(cfg.MongoURI),
		"mongo_database", cfg.MongoDatabaseName,
		"postgres_url", redactURI(cfg.PostgresURL),
		"redis_addr", cfg.RedisAddr,
		"tenant_config_file", cfg.TenantConfigFile,
		"llm_provider", cfg.LLMProvider,
		"openai_model", cfg.OpenAIModel,
		"gemini_model", cfg.GeminiModel,
		"llm_timeout", cfg.LLMTimeout,
		"llm_temperature", cfg.LLMTemperature,
		"tool_round_cap", cfg.ToolRoundCap,
		"history_window", cfg.HistoryWindow,
		"history_ttl", cfg.HistoryTTL,
		"whatsapp_secret_set", cfg.WhatsAppAppSecret != "",
		"whatsapp_token_set", cfg.WhatsAppAccessToken != "",
		"whatsapp_phone_number_id", cfg.WhatsAppPhoneNumberID,
		"calendar_sync_mode", cfg.CalendarSyncMode,
		"calendar_sync_timeout", cfg.CalendarSyncTimeout,
		"google_calendar_id", cfg.GoogleCalendarID,
		"appointment_events_topic", cfg.AppointmentEventsTopic,
		"rate_limit_requests", cfg.RateLimitRequests,
		"rate_limit_window", cfg.RateLimitWindow,
		"message_dedup_ttl", cfg.MessageDedupTTL,
		"max_concurrent_turns", cfg.MaxConcurrentTurns,
		"request_timeout", cfg.RequestTimeout,
		"max_request_size", cfg.MaxRequestSize,
		"read_timeout", cfg.ReadTimeout,
		"write_timeout", cfg.WriteTimeout,
		"idle_timeout", cfg.IdleTimeout,
		"shutdown_timeout", cfg.ShutdownTimeout,
	)
}

func (cfg *Config) GracefulShutdown() {
	cfg.Client.GracefulShutdown(cfg.Log)
}

var credentialRegex = regexp.MustCompile(`^([a-z+]+://)[^:/@]+:[^@]+@`)

func redactURI(uri string) string {
	return credentialRegex.ReplaceAllString(uri, "${1}***:***@")
}

func getEnvStr(key, fallback string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return fallback
}

func getEnvNum(key string, fallback int) int {
	if value := os.Getenv(key); value != "" {
		if n, err := strconv.Atoi(value); err == nil {
			return n
		}
	}
	return fallback
}

func getEnvFloat(key string, fallback float64) float64 {
	if value := os.Getenv(key); value != "" {
		if f, err := strconv.ParseFloat(value, 64); err == nil {
			return f
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
