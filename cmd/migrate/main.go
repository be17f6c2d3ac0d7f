package main

import (
	"context"
	"time"

	mongoMigration "concierge/internal/migrations/mongo"
	pgMigration "concierge/internal/migrations/postgres"
	"concierge/pkg/config"
)

const JobName = "concierge-migrate"

func main() {
	ctx, cancel := context.WithTimeout(context.Background(), 120*time.Second)
	defer cancel()

	// The migration job only needs storage settings, so the full service
	// validation is skipped.
	cfg := config.FromEnv(JobName)
	cfg.SetStore()
	defer cfg.GracefulShutdown()

	cfg.Log.Info("Starting migration job", "store_backend", cfg.StoreBackend)

	var err error
	switch cfg.StoreBackend {
	case config.StorePostgres:
		err = pgMigration.RunMigration(ctx, cfg.Log, cfg.Client.Postgres)
	default:
		err = mongoMigration.RunMigration(ctx, cfg.Log, cfg.Client.Mongo, cfg.MongoDatabaseName)
	}
	if err != nil {
		cfg.GracefulShutdown()
		cfg.Log.Fatal("Migration failed", "error", err)
	}

	cfg.Log.Info("Migration completed successfully")
}
