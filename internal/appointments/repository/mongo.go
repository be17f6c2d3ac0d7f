package repository

import (
	"context"
	"errors"
	"fmt"

	appointmentserrors "concierge/internal/appointments/errors"
	"concierge/pkg/config"
	"concierge/pkg/model"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

type mongoAppointmentRepository struct {
	cfg        *config.Config
	client     *mongo.Client
	collection *mongo.Collection
	counters   *mongo.Collection
}

func NewMongoAppointmentRepository(cfg *config.Config) Store {
	db := cfg.Client.Mongo.Database(cfg.MongoDatabaseName)
	return &mongoAppointmentRepository{
		cfg:        cfg,
		client:     cfg.Client.Mongo,
		collection: db.Collection(AppointmentsCollection),
		counters:   db.Collection(CountersCollection),
	}
}

func (r *mongoAppointmentRepository) nextID(ctx context.Context) (int64, error) {
	var counter struct {
		Seq int64 `bson:"seq"`
	}
	opts := options.FindOneAndUpdate().
		SetUpsert(true).
		SetReturnDocument(options.After)
	err := r.counters.FindOneAndUpdate(ctx,
		bson.M{"_id": appointmentsCounterID},
		bson.M{"$inc": bson.M{"seq": int64(1)}},
		opts,
	).Decode(&counter)
	if err != nil {
		return 0, fmt.Errorf("failed to allocate appointment id: %w", err)
	}
	return counter.Seq, nil
}

func (r *mongoAppointmentRepository) Insert(ctx context.Context, appt *model.Appointment) (*model.Appointment, error) {
	ctx, cancel := withTimeout(ctx, r.cfg.WriteTimeout)
	defer cancel()

	id, err := r.nextID(ctx)
	if err != nil {
		return nil, err
	}

	row := *appt
	row.ID = id
	if row.Status == "" {
		row.Status = model.StatusConfirmed
	}
	row.CreatedAt = now()
	row.UpdatedAt = row.CreatedAt

	if _, err := r.collection.InsertOne(ctx, &row); err != nil {
		return nil, translateMongoWriteError("failed to insert appointment", err)
	}
	return &row, nil
}

func (r *mongoAppointmentRepository) FindOwned(ctx context.Context, id int64, phone string) (*model.Appointment, error) {
	return r.findOne(ctx, bson.M{"_id": id, "phone": phone, "status": model.StatusConfirmed})
}

func (r *mongoAppointmentRepository) FindByID(ctx context.Context, id int64) (*model.Appointment, error) {
	return r.findOne(ctx, bson.M{"_id": id})
}

func (r *mongoAppointmentRepository) findOne(ctx context.Context, filter bson.M) (*model.Appointment, error) {
	ctx, cancel := withTimeout(ctx, r.cfg.ReadTimeout)
	defer cancel()

	var appt model.Appointment
	if err := r.collection.FindOne(ctx, filter).Decode(&appt); err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, appointmentserrors.ErrNotFound
		}
		return nil, fmt.Errorf("failed to find appointment: %w", err)
	}
	return &appt, nil
}

func (r *mongoAppointmentRepository) IsSlotTaken(ctx context.Context, date, clock string, excludeID int64) (bool, error) {
	ctx, cancel := withTimeout(ctx, r.cfg.ReadTimeout)
	defer cancel()

	filter := bson.M{"date": date, "time": clock, "status": model.StatusConfirmed}
	if excludeID > 0 {
		filter["_id"] = bson.M{"$ne": excludeID}
	}

	count, err := r.collection.CountDocuments(ctx, filter, options.Count().SetLimit(1))
	if err != nil {
		return false, fmt.Errorf("failed to check slot: %w", err)
	}
	return count > 0, nil
}

func (r *mongoAppointmentRepository) BookedTimes(ctx context.Context, date string) ([]string, error) {
	ctx, cancel := withTimeout(ctx, r.cfg.ReadTimeout)
	defer cancel()

	opts := options.Find().
		SetProjection(bson.M{"time": 1}).
		SetSort(bson.D{{Key: "time", Value: 1}})
	cursor, err := r.collection.Find(ctx, bson.M{"date": date, "status": model.StatusConfirmed}, opts)
	if err != nil {
		return nil, fmt.Errorf("failed to find booked times: %w", err)
	}
	defer cursor.Close(ctx)

	var rows []struct {
		Time string `bson:"time"`
	}
	if err := cursor.All(ctx, &rows); err != nil {
		return nil, fmt.Errorf("failed to decode booked times: %w", err)
	}

	times := make([]string, 0, len(rows))
	for _, row := range rows {
		times = append(times, row.Time)
	}
	return times, nil
}

func (r *mongoAppointmentRepository) UpdateSlot(ctx context.Context, id int64, phone string, change model.SlotChange) (*model.Appointment, error) {
	ctx, cancel := withTimeout(ctx, r.cfg.WriteTimeout)
	defer cancel()

	filter := bson.M{"_id": id, "phone": phone, "status": model.StatusConfirmed}
	update := bson.M{
		"$set": bson.M{
			"date":             change.Date,
			"time":             change.Time,
			"service_code":     change.ServiceCode,
			"duration_minutes": change.DurationMinutes,
			"price":            change.Price,
			"updated_at":       now(),
		},
	}
	return r.findOneAndUpdate(ctx, filter, update, "failed to update appointment")
}

func (r *mongoAppointmentRepository) Cancel(ctx context.Context, id int64, phone string) (*model.Appointment, error) {
	ctx, cancel := withTimeout(ctx, r.cfg.WriteTimeout)
	defer cancel()

	ts := now()
	filter := bson.M{"_id": id, "phone": phone, "status": model.StatusConfirmed}
	update := bson.M{
		"$set": bson.M{
			"status":       model.StatusCancelled,
			"cancelled_at": ts,
			"updated_at":   ts,
		},
	}
	return r.findOneAndUpdate(ctx, filter, update, "failed to cancel appointment")
}

func (r *mongoAppointmentRepository) findOneAndUpdate(ctx context.Context, filter, update bson.M, op string) (*model.Appointment, error) {
	var appt model.Appointment
	opts := options.FindOneAndUpdate().SetReturnDocument(options.After)
	err := r.collection.FindOneAndUpdate(ctx, filter, update, opts).Decode(&appt)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, appointmentserrors.ErrNotFound
		}
		return nil, translateMongoWriteError(op, err)
	}
	return &appt, nil
}

func (r *mongoAppointmentRepository) ListActive(ctx context.Context, phone, today, clock string) ([]*model.Appointment, error) {
	ctx, cancel := withTimeout(ctx, r.cfg.ReadTimeout)
	defer cancel()

	filter := bson.M{
		"phone":  phone,
		"status": model.StatusConfirmed,
		"$or": bson.A{
			bson.M{"date": bson.M{"$gt": today}},
			bson.M{"date": today, "time": bson.M{"$gt": clock}},
		},
	}
	opts := options.Find().SetSort(bson.D{{Key: "date", Value: 1}, {Key: "time", Value: 1}})

	cursor, err := r.collection.Find(ctx, filter, opts)
	if err != nil {
		return nil, fmt.Errorf("failed to list appointments: %w", err)
	}
	defer cursor.Close(ctx)

	appts := []*model.Appointment{}
	if err := cursor.All(ctx, &appts); err != nil {
		return nil, fmt.Errorf("failed to decode appointments: %w", err)
	}
	return appts, nil
}

func (r *mongoAppointmentRepository) CustomerProfile(ctx context.Context, phone, today string) (*model.CustomerProfile, error) {
	ctx, cancel := withTimeout(ctx, r.cfg.ReadTimeout)
	defer cancel()

	var latest model.Appointment
	err := r.collection.FindOne(ctx, bson.M{"phone": phone},
		options.FindOne().SetSort(bson.D{{Key: "_id", Value: -1}}).SetProjection(bson.M{"customer_name": 1}),
	).Decode(&latest)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, appointmentserrors.ErrNotFound
		}
		return nil, fmt.Errorf("failed to load customer profile: %w", err)
	}

	confirmed := bson.M{"phone": phone, "status": model.StatusConfirmed}
	count, err := r.collection.CountDocuments(ctx, confirmed)
	if err != nil {
		return nil, fmt.Errorf("failed to count bookings: %w", err)
	}

	profile := &model.CustomerProfile{Phone: phone, Name: latest.CustomerName, Bookings: int(count)}

	var last model.Appointment
	err = r.collection.FindOne(ctx,
		bson.M{"phone": phone, "status": model.StatusConfirmed, "date": bson.M{"$lte": today}},
		options.FindOne().SetSort(bson.D{{Key: "date", Value: -1}}).SetProjection(bson.M{"date": 1}),
	).Decode(&last)
	switch {
	case err == nil:
		profile.LastVisit = last.Date
	case !errors.Is(err, mongo.ErrNoDocuments):
		return nil, fmt.Errorf("failed to find last visit: %w", err)
	}
	return profile, nil
}

func (r *mongoAppointmentRepository) SetExternalEventID(ctx context.Context, id int64, eventID string) error {
	ctx, cancel := withTimeout(ctx, r.cfg.WriteTimeout)
	defer cancel()

	update := bson.M{"$set": bson.M{"external_event_id": eventID, "updated_at": now()}}
	if eventID == "" {
		update = bson.M{
			"$unset": bson.M{"external_event_id": ""},
			"$set":   bson.M{"updated_at": now()},
		}
	}

	result, err := r.collection.UpdateOne(ctx, bson.M{"_id": id}, update)
	if err != nil {
		return fmt.Errorf("failed to set external event id: %w", err)
	}
	if result.MatchedCount == 0 {
		return appointmentserrors.ErrNotFound
	}
	return nil
}

func (r *mongoAppointmentRepository) Ping(ctx context.Context) error {
	ctx, cancel := withTimeout(ctx, r.cfg.ReadTimeout)
	defer cancel()
	return r.client.Ping(ctx, nil)
}

func translateMongoWriteError(op string, err error) error {
	if mongo.IsDuplicateKeyError(err) {
		return appointmentserrors.ErrDuplicateSlot
	}
	return fmt.Errorf("%s: %w", op, err)
}
