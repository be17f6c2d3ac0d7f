package main

import (
	"context"
	"time"

	"concierge/internal/appointments/repository"
	appointmentservice "concierge/internal/appointments/service"
	"concierge/internal/assistant/llm"
	"concierge/internal/assistant/llm/gemini"
	"concierge/internal/assistant/llm/openai"
	assistantservice "concierge/internal/assistant/service"
	"concierge/internal/assistant/tools"
	"concierge/internal/calendarsync"
	"concierge/internal/history"
	"concierge/internal/tenant"
	"concierge/internal/whatsapp"
	"concierge/pkg/app"
	"concierge/pkg/config"
	"concierge/pkg/contracts"
	"concierge/pkg/kafka"
	kafka_config "concierge/pkg/kafka/config"
	kafkamw "concierge/pkg/kafka/middleware"
)

const (
	ServiceName = "assistant"

	sendTimeout = 15 * time.Second
)

func main() {
	cfg := config.Load(ServiceName)
	cfg.SetStore()
	cfg.SetRedis()

	t, err := tenant.Load(cfg.TenantConfigFile)
	if err != nil {
		cfg.Log.Fatal("Failed to load tenant profile", "error", err)
	}

	store, err := repository.New(cfg)
	if err != nil {
		cfg.Log.Fatal("Failed to build appointment store", "error", err)
	}

	serverApp := app.NewApplication(cfg)

	syncer, syncHooks := initSyncer(cfg, store, t)

	cfg.Log.Info("Starting assistant service",
		"business", t.Business.Name,
		"store_backend", cfg.StoreBackend,
		"llm_provider", cfg.LLMProvider,
		"calendar_sync", cfg.CalendarSyncMode,
	)

	// Turns finish before the syncer flushes, so their calendar changes are
	// still tracked when it waits.
	webhook := initWebhook(cfg, store, syncer, t)
	serverApp.OnShutdown(webhook.Close)
	serverApp.OnShutdown(syncHooks...)
	serverApp.SetApp(webhook,
		contracts.DependencyFunc{DependencyName: cfg.StoreBackend, PingFunc: store.Ping},
		contracts.DependencyFunc{DependencyName: "redis", PingFunc: func(ctx context.Context) error {
			return cfg.Client.Redis.Ping(ctx).Err()
		}},
	)
	serverApp.Run()
}

func initWebhook(cfg *config.Config, store repository.Store, syncer calendarsync.Syncer, t *tenant.Tenant) *whatsapp.Handler {
	appointments := appointmentservice.NewAppointmentService(store, t, syncer, cfg.Log)
	dispatcher := tools.NewDispatcher(appointments, t, cfg.Log)

	assistant, err := assistantservice.NewAssistant(
		initModel(cfg),
		dispatcher,
		history.NewRedisStore(cfg.Client.Redis, cfg.HistoryWindow, cfg.HistoryTTL),
		t,
		assistantservice.Config{RoundCap: cfg.ToolRoundCap, Temperature: cfg.LLMTemperature},
		cfg.Log,
		assistantservice.WithProfiles(appointments),
	)
	if err != nil {
		cfg.Log.Fatal("Failed to build assistant", "error", err)
	}

	// One turn makes at most RoundCap+1 model calls.
	turnTimeout := cfg.LLMTimeout*time.Duration(cfg.ToolRoundCap+1) + sendTimeout

	return whatsapp.NewHandler(
		assistant,
		whatsapp.NewSender(cfg.WhatsAppAPIBaseURL, cfg.WhatsAppAccessToken, cfg.WhatsAppPhoneNumberID, sendTimeout),
		whatsapp.NewRedisDeduper(cfg.Client.Redis, cfg.MessageDedupTTL),
		whatsapp.NewRedisRateLimiter(cfg.Client.Redis, cfg.RateLimitRequests, cfg.RateLimitWindow),
		t,
		whatsapp.Config{
			VerifyToken:        cfg.WhatsAppVerifyToken,
			MaxConcurrentTurns: cfg.MaxConcurrentTurns,
			TurnTimeout:        turnTimeout,
		},
		cfg.Log,
	)
}

func initModel(cfg *config.Config) llm.ChatModel {
	switch cfg.LLMProvider {
	case config.ProviderGemini:
		ctx, cancel := context.WithTimeout(context.Background(), cfg.LLMTimeout)
		defer cancel()
		model, err := gemini.New(ctx, cfg.GeminiAPIKey, cfg.GeminiModel)
		if err != nil {
			cfg.Log.Fatal("Failed to create Gemini client", "error", err)
		}
		cfg.Log.Info("Using Gemini model", "model", cfg.GeminiModel)
		return model
	default:
		cfg.Log.Info("Using OpenAI model", "model", cfg.OpenAIModel)
		return openai.New(cfg.OpenAIAPIKey, cfg.OpenAIModel, cfg.LLMTimeout)
	}
}

// initSyncer picks how confirmed changes reach the shop calendar and returns
// the hooks that flush it on shutdown, in the order they must run.
func initSyncer(cfg *config.Config, store repository.Store, t *tenant.Tenant) (calendarsync.Syncer, []app.ShutdownHook) {
	switch cfg.CalendarSyncMode {
	case config.SyncInline:
		ctx, cancel := context.WithTimeout(context.Background(), cfg.CalendarSyncTimeout)
		defer cancel()
		gcal, err := calendarsync.NewGoogleCalendar(ctx, cfg.GoogleCalendarID, cfg.GoogleCredentialsFile)
		if err != nil {
			cfg.Log.Fatal("Failed to create Google Calendar client", "error", err)
		}
		mirror := calendarsync.NewMirror(calendarsync.NewReconciler(store, gcal, t, cfg.Log), cfg.CalendarSyncTimeout, cfg.Log)
		cfg.Log.Info("Calendar sync runs inline", "calendar_id", cfg.GoogleCalendarID)
		return mirror, []app.ShutdownHook{mirror.Close}

	case config.SyncKafka:
		kcfg, err := kafka_config.Load()
		if err != nil {
			cfg.Log.Fatal("Invalid Kafka configuration", "error", err)
		}
		kcfg.LogConfiguration(cfg.Log)

		producer, err := kafka.NewProducer(kcfg, cfg.Log, cfg.AppointmentEventsTopic, cfg.AppointmentEventsDLQTopic)
		if err != nil {
			cfg.Log.Fatal("Failed to create Kafka producer", "error", err)
		}
		if kcfg.EnableMiddleware {
			producer.Use(kafkamw.LoggingProducerMiddleware(cfg.Log))
		}
		cfg.Log.Info("Calendar sync runs through Kafka", "topic", cfg.AppointmentEventsTopic)
		publisher := calendarsync.NewPublisher(producer, ServiceName, cfg.CalendarSyncTimeout, cfg.Log)
		return publisher, []app.ShutdownHook{
			publisher.Close,
			func(context.Context) error { return producer.Close() },
		}

	default:
		return calendarsync.Noop{}, nil
	}
}
