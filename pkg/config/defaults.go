package config

import "time"

const (
	StoreMongo    = "mongo"
	StorePostgres = "postgres"

	ProviderOpenAI = "openai"
	ProviderGemini = "gemini"

	SyncOff    = "off"
	SyncInline = "inline"
	SyncKafka  = "kafka"
)

const (
	DefaultPort     = "8080"
	DefaultLogLevel = "info"

	DefaultStoreBackend = StoreMongo

	DefaultMongoURI          = "mongodb://localhost:27017"
	DefaultMongoDatabaseName = "concierge"
	DefaultMongoConnTimeout  = 10 * time.Second

	DefaultPostgresURL      = "postgres://localhost:5432/concierge?sslmode=disable"
	DefaultPostgresMaxConns = 10

	DefaultRedisAddr = "localhost:6379"
	DefaultRedisDB   = 0

	DefaultLLMProvider    = ProviderOpenAI
	DefaultLLMTimeout     = 45 * time.Second
	DefaultLLMTemperature = 0.0
	DefaultToolRoundCap   = 3
	DefaultOpenAIModel    = "gpt-4o"
	DefaultGeminiModel    = "gemini-2.0-flash"

	DefaultHistoryWindow = 10
	DefaultHistoryTTL    = 24 * time.Hour

	DefaultWhatsAppAPIBaseURL = "https://graph.facebook.com/v18.0"

	DefaultCalendarSyncMode    = SyncOff
	DefaultCalendarSyncTimeout = 10 * time.Second
	DefaultGoogleCalendarID    = "primary"

	DefaultAppointmentEventsTopic    = "appointments.events"
	DefaultAppointmentEventsDLQTopic = "appointments.events.dlq"
	DefaultCalendarSyncGroupID       = "calendar-sync"

	DefaultRateLimitRequests  = 10
	DefaultRateLimitWindow    = 1 * time.Minute
	DefaultMessageDedupTTL    = 24 * time.Hour
	DefaultMaxConcurrentTurns = 40

	DefaultRequestTimeout = 60 * time.Second
	DefaultMaxRequestSize = 1 * 1024 * 1024 // 1MB

	DefaultReadTimeout     = 15 * time.Second
	DefaultWriteTimeout    = 75 * time.Second
	DefaultIdleTimeout     = 60 * time.Second
	DefaultShutdownTimeout = 30 * time.Second
)
