package postgres

import (
	"context"
	"fmt"

	"concierge/pkg/logger"

	"github.com/jackc/pgx/v5/pgxpool"
)

// Statements are applied in order and are safe to re-run.
var Statements = []string{
	`CREATE TABLE IF NOT EXISTS appointments (
		id                BIGSERIAL PRIMARY KEY,
		phone             TEXT NOT NULL CHECK (phone ~ '^[0-9]+$'),
		customer_name     TEXT NOT NULL CHECK (length(customer_name) BETWEEN 1 AND 100),
		service_code      TEXT NOT NULL,
		"date"            TEXT NOT NULL CHECK ("date" ~ '^\d{4}-\d{2}-\d{2}$'),
		"time"            TEXT NOT NULL CHECK ("time" ~ '^([01][0-9]|2[0-3]):[0-5][0-9]$'),
		duration_minutes  INTEGER NOT NULL CHECK (duration_minutes > 0),
		price             DOUBLE PRECISION NOT NULL CHECK (price >= 0),
		status            TEXT NOT NULL CHECK (status IN ('confirmed', 'cancelled')),
		external_event_id TEXT,
		created_at        TIMESTAMPTZ NOT NULL DEFAULT now(),
		updated_at        TIMESTAMPTZ NOT NULL DEFAULT now(),
		cancelled_at      TIMESTAMPTZ
	)`,
	`CREATE UNIQUE INDEX IF NOT EXISTS uniq_confirmed_slot
		ON appointments ("date", "time")
		WHERE status = 'confirmed'`,
	`CREATE INDEX IF NOT EXISTS idx_appointments_phone_active
		ON appointments (phone, status, "date", "time")`,
}

func RunMigration(ctx context.Context, log *logger.Logger, pool *pgxpool.Pool) error {
	log.Info("Running Postgres migrations", "statements", len(Statements))
	for i, stmt := range Statements {
		if _, err := pool.Exec(ctx, stmt); err != nil {
			return fmt.Errorf("failed to apply statement %d: %w", i+1, err)
		}
	}
	log.Info("All Postgres migrations applied")
	return nil
}
