package main

import (
	"context"
	"errors"
	"os"
	"os/signal"
	"syscall"

	"concierge/internal/appointments/repository"
	"concierge/internal/calendarsync"
	"concierge/internal/tenant"
	"concierge/pkg/config"
	"concierge/pkg/kafka"
	kafka_config "concierge/pkg/kafka/config"
	kafkamw "concierge/pkg/kafka/middleware"
)

const ServiceName = "calendar-sync"

func main() {
	// The worker needs no LLM or WhatsApp settings, so the service-wide
	// validation does not apply.
	cfg := config.FromEnv(ServiceName)
	cfg.SetStore()
	defer cfg.GracefulShutdown()

	if cfg.GoogleCalendarID == "" {
		cfg.Log.Fatal("GoogleCalendarID is required")
	}

	t, err := tenant.Load(cfg.TenantConfigFile)
	if err != nil {
		cfg.Log.Fatal("Failed to load tenant profile", "error", err)
	}

	store, err := repository.New(cfg)
	if err != nil {
		cfg.Log.Fatal("Failed to build appointment store", "error", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	gcal, err := calendarsync.NewGoogleCalendar(ctx, cfg.GoogleCalendarID, cfg.GoogleCredentialsFile)
	if err != nil {
		cfg.Log.Fatal("Failed to create Google Calendar client", "error", err)
	}
	reconciler := calendarsync.NewReconciler(store, gcal, t, cfg.Log)

	kcfg, err := kafka_config.Load()
	if err != nil {
		cfg.Log.Fatal("Invalid Kafka configuration", "error", err)
	}
	kcfg.LogConfiguration(cfg.Log)

	consumer, err := kafka.NewConsumer(
		kcfg,
		cfg.Log,
		cfg.AppointmentEventsTopic,
		cfg.CalendarSyncGroupID,
		cfg.AppointmentEventsDLQTopic,
		calendarsync.NewEventHandler(reconciler, cfg.Log),
	)
	if err != nil {
		cfg.Log.Fatal("Failed to create Kafka consumer", "error", err)
	}
	if kcfg.EnableMiddleware {
		consumer.Use(kafkamw.LoggingConsumerMiddleware(cfg.Log))
	}

	cfg.Log.Info("Starting calendar sync worker",
		"topic", cfg.AppointmentEventsTopic,
		"group_id", cfg.CalendarSyncGroupID,
		"calendar_id", cfg.GoogleCalendarID,
	)

	if err := consumer.Start(ctx); err != nil && !errors.Is(err, context.Canceled) {
		cfg.Log.Error("Consumer stopped", "error", err)
	}

	if err := consumer.Close(); err != nil {
		cfg.Log.Error("Failed to close consumer", "error", err)
	}
	cfg.Log.Info("Calendar sync worker stopped")
}
