package repository

import (
	"context"
	"errors"
	"fmt"

	appointmentserrors "concierge/internal/appointments/errors"
	"concierge/pkg/config"
	"concierge/pkg/model"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
)

const pgUniqueViolation = "23505"

const appointmentColumns = `id, phone, customer_name, service_code, "date", "time",
	duration_minutes, price, status, COALESCE(external_event_id, ''),
	created_at, updated_at, cancelled_at`

type postgresAppointmentRepository struct {
	cfg  *config.Config
	pool *pgxpool.Pool
}

func NewPostgresAppointmentRepository(cfg *config.Config) Store {
	return &postgresAppointmentRepository{
		cfg:  cfg,
		pool: cfg.Client.Postgres,
	}
}

func (r *postgresAppointmentRepository) Insert(ctx context.Context, appt *model.Appointment) (*model.Appointment, error) {
	ctx, cancel := withTimeout(ctx, r.cfg.WriteTimeout)
	defer cancel()

	status := appt.Status
	if status == "" {
		status = model.StatusConfirmed
	}
	ts := now()

	row := r.pool.QueryRow(ctx, `
		INSERT INTO appointments
			(phone, customer_name, service_code, "date", "time", duration_minutes, price, status, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $9)
		RETURNING `+appointmentColumns,
		appt.Phone, appt.CustomerName, appt.ServiceCode, appt.Date, appt.Time,
		appt.DurationMinutes, appt.Price, status, ts,
	)
	created, err := scanAppointment(row)
	if err != nil {
		return nil, translatePgError("failed to insert appointment", err)
	}
	return created, nil
}

func (r *postgresAppointmentRepository) FindOwned(ctx context.Context, id int64, phone string) (*model.Appointment, error) {
	ctx, cancel := withTimeout(ctx, r.cfg.ReadTimeout)
	defer cancel()

	row := r.pool.QueryRow(ctx, `
		SELECT `+appointmentColumns+`
		FROM appointments
		WHERE id = $1 AND phone = $2 AND status = 'confirmed'
	`, id, phone)
	appt, err := scanAppointment(row)
	if err != nil {
		return nil, translatePgError("failed to find appointment", err)
	}
	return appt, nil
}

func (r *postgresAppointmentRepository) FindByID(ctx context.Context, id int64) (*model.Appointment, error) {
	ctx, cancel := withTimeout(ctx, r.cfg.ReadTimeout)
	defer cancel()

	row := r.pool.QueryRow(ctx, `SELECT `+appointmentColumns+` FROM appointments WHERE id = $1`, id)
	appt, err := scanAppointment(row)
	if err != nil {
		return nil, translatePgError("failed to find appointment", err)
	}
	return appt, nil
}

func (r *postgresAppointmentRepository) IsSlotTaken(ctx context.Context, date, clock string, excludeID int64) (bool, error) {
	ctx, cancel := withTimeout(ctx, r.cfg.ReadTimeout)
	defer cancel()

	var taken bool
	err := r.pool.QueryRow(ctx, `
		SELECT EXISTS (
			SELECT 1 FROM appointments
			WHERE "date" = $1 AND "time" = $2 AND status = 'confirmed' AND id <> $3
		)
	`, date, clock, excludeID).Scan(&taken)
	if err != nil {
		return false, fmt.Errorf("failed to check slot: %w", err)
	}
	return taken, nil
}

func (r *postgresAppointmentRepository) BookedTimes(ctx context.Context, date string) ([]string, error) {
	ctx, cancel := withTimeout(ctx, r.cfg.ReadTimeout)
	defer cancel()

	rows, err := r.pool.Query(ctx, `
		SELECT "time" FROM appointments
		WHERE "date" = $1 AND status = 'confirmed'
		ORDER BY "time" ASC
	`, date)
	if err != nil {
		return nil, fmt.Errorf("failed to find booked times: %w", err)
	}

	times, err := pgx.CollectRows(rows, pgx.RowTo[string])
	if err != nil {
		return nil, fmt.Errorf("failed to decode booked times: %w", err)
	}
	return times, nil
}

func (r *postgresAppointmentRepository) UpdateSlot(ctx context.Context, id int64, phone string, change model.SlotChange) (*model.Appointment, error) {
	ctx, cancel := withTimeout(ctx, r.cfg.WriteTimeout)
	defer cancel()

	row := r.pool.QueryRow(ctx, `
		UPDATE appointments
		SET "date" = $3,
			"time" = $4,
			service_code = $5,
			duration_minutes = $6,
			price = $7,
			updated_at = $8
		WHERE id = $1 AND phone = $2 AND status = 'confirmed'
		RETURNING `+appointmentColumns,
		id, phone, change.Date, change.Time, change.ServiceCode, change.DurationMinutes, change.Price, now(),
	)
	appt, err := scanAppointment(row)
	if err != nil {
		return nil, translatePgError("failed to update appointment", err)
	}
	return appt, nil
}

func (r *postgresAppointmentRepository) Cancel(ctx context.Context, id int64, phone string) (*model.Appointment, error) {
	ctx, cancel := withTimeout(ctx, r.cfg.WriteTimeout)
	defer cancel()

	row := r.pool.QueryRow(ctx, `
		UPDATE appointments
		SET status = 'cancelled',
			cancelled_at = $3,
			updated_at = $3
		WHERE id = $1 AND phone = $2 AND status = 'confirmed'
		RETURNING `+appointmentColumns,
		id, phone, now(),
	)
	appt, err := scanAppointment(row)
	if err != nil {
		return nil, translatePgError("failed to cancel appointment", err)
	}
	return appt, nil
}

func (r *postgresAppointmentRepository) ListActive(ctx context.Context, phone, today, clock string) ([]*model.Appointment, error) {
	ctx, cancel := withTimeout(ctx, r.cfg.ReadTimeout)
	defer cancel()

	rows, err := r.pool.Query(ctx, `
		SELECT `+appointmentColumns+`
		FROM appointments
		WHERE phone = $1
			AND status = 'confirmed'
			AND ("date" > $2 OR ("date" = $2 AND "time" > $3))
		ORDER BY "date" ASC, "time" ASC
	`, phone, today, clock)
	if err != nil {
		return nil, fmt.Errorf("failed to list appointments: %w", err)
	}
	defer rows.Close()

	appts := []*model.Appointment{}
	for rows.Next() {
		appt, err := scanAppointment(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to decode appointment: %w", err)
		}
		appts = append(appts, appt)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to list appointments: %w", err)
	}
	return appts, nil
}

func (r *postgresAppointmentRepository) CustomerProfile(ctx context.Context, phone, today string) (*model.CustomerProfile, error) {
	ctx, cancel := withTimeout(ctx, r.cfg.ReadTimeout)
	defer cancel()

	var name *string
	profile := &model.CustomerProfile{Phone: phone}
	err := r.pool.QueryRow(ctx, `
		SELECT
			(SELECT customer_name FROM appointments WHERE phone = $1 ORDER BY id DESC LIMIT 1),
			COUNT(*) FILTER (WHERE status = 'confirmed'),
			COALESCE(MAX("date") FILTER (WHERE status = 'confirmed' AND "date" <= $2), '')
		FROM appointments
		WHERE phone = $1
	`, phone, today).Scan(&name, &profile.Bookings, &profile.LastVisit)
	if err != nil {
		return nil, fmt.Errorf("failed to load customer profile: %w", err)
	}
	if name == nil {
		return nil, appointmentserrors.ErrNotFound
	}
	profile.Name = *name
	return profile, nil
}

func (r *postgresAppointmentRepository) SetExternalEventID(ctx context.Context, id int64, eventID string) error {
	ctx, cancel := withTimeout(ctx, r.cfg.WriteTimeout)
	defer cancel()

	tag, err := r.pool.Exec(ctx, `
		UPDATE appointments
		SET external_event_id = NULLIF($2, ''), updated_at = $3
		WHERE id = $1
	`, id, eventID, now())
	if err != nil {
		return fmt.Errorf("failed to set external event id: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return appointmentserrors.ErrNotFound
	}
	return nil
}

func (r *postgresAppointmentRepository) Ping(ctx context.Context) error {
	ctx, cancel := withTimeout(ctx, r.cfg.ReadTimeout)
	defer cancel()
	return r.pool.Ping(ctx)
}

func scanAppointment(row pgx.Row) (*model.Appointment, error) {
	var appt model.Appointment
	err := row.Scan(
		&appt.ID,
		&appt.Phone,
		&appt.CustomerName,
		&appt.ServiceCode,
		&appt.Date,
		&appt.Time,
		&appt.DurationMinutes,
		&appt.Price,
		&appt.Status,
		&appt.ExternalEventID,
		&appt.CreatedAt,
		&appt.UpdatedAt,
		&appt.CancelledAt,
	)
	if err != nil {
		return nil, err
	}
	return &appt, nil
}

func translatePgError(op string, err error) error {
	if errors.Is(err, pgx.ErrNoRows) {
		return appointmentserrors.ErrNotFound
	}
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) && pgErr.Code == pgUniqueViolation {
		return appointmentserrors.ErrDuplicateSlot
	}
	return fmt.Errorf("%s: %w", op, err)
}
