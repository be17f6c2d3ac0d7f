package config

const (
	EnvPort     = "PORT"
	EnvLogLevel = "LOG_LEVEL"

	EnvStoreBackend = "STORE_BACKEND"

	EnvMongoURI          = "MONGO_URI"
	EnvMongoDatabaseName = "MONGO_DATABASE_NAME"
	EnvMongoConnTimeout  = "MONGO_CONN_TIMEOUT"

	EnvPostgresURL      = "POSTGRES_URL"
	EnvPostgresMaxConns = "POSTGRES_MAX_CONNS"

	EnvRedisAddr     = "REDIS_ADDR"
	EnvRedisPassword = "REDIS_PASSWORD"
	EnvRedisDB       = "REDIS_DB"

	EnvTenantConfigFile = "TENANT_CONFIG_FILE"

	EnvLLMProvider    = "LLM_PROVIDER"
	EnvLLMTimeout     = "LLM_TIMEOUT"
	EnvLLMTemperature = "LLM_TEMPERATURE"
	EnvToolRoundCap   = "TOOL_ROUND_CAP"
	EnvOpenAIAPIKey   = "OPENAI_API_KEY"
	EnvOpenAIModel    = "OPENAI_MODEL"
	EnvGeminiAPIKey   = "GEMINI_API_KEY"
	EnvGeminiModel    = "GEMINI_MODEL"

	EnvHistoryWindow = "HISTORY_WINDOW"
	EnvHistoryTTL    = "HISTORY_TTL"

	EnvWhatsAppAppSecret     = "WHATSAPP_APP_SECRET"
	EnvWhatsAppVerifyToken   = "WHATSAPP_VERIFY_TOKEN"
	EnvWhatsAppAccessToken   = "WHATSAPP_ACCESS_TOKEN"
	EnvWhatsAppPhoneNumberID = "WHATSAPP_PHONE_NUMBER_ID"
	EnvWhatsAppAPIBaseURL    = "WHATSAPP_API_BASE_URL"

	EnvCalendarSyncMode      = "CALENDAR_SYNC_MODE"
	EnvCalendarSyncTimeout   = "CALENDAR_SYNC_TIMEOUT"
	EnvGoogleCalendarID      = "GOOGLE_CALENDAR_ID"
	EnvGoogleCredentialsFile = "GOOGLE_CREDENTIALS_FILE"

	EnvAppointmentEventsTopic    = "KAFKA_APPOINTMENT_EVENTS_TOPIC"
	EnvAppointmentEventsDLQTopic = "KAFKA_APPOINTMENT_EVENTS_DLQ_TOPIC"
	EnvCalendarSyncGroupID       = "KAFKA_CALENDAR_SYNC_GROUP_ID"

	EnvRateLimitRequests  = "RATE_LIMIT_REQUESTS"
	EnvRateLimitWindow    = "RATE_LIMIT_WINDOW"
	EnvMessageDedupTTL    = "MESSAGE_DEDUP_TTL"
	EnvMaxConcurrentTurns = "MAX_CONCURRENT_TURNS"

	EnvRequestTimeout = "REQUEST_TIMEOUT"
	EnvMaxRequestSize = "MAX_REQUEST_SIZE"

	EnvReadTimeout     = "READ_TIMEOUT"
	EnvWriteTimeout    = "WRITE_TIMEOUT"
	EnvIdleTimeout     = "IDLE_TIMEOUT"
	EnvShutdownTimeout = "SHUTDOWN_TIMEOUT"
)
