package mongo

import (
	"context"
	"fmt"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"concierge/internal/appointments/repository"
	"concierge/internal/migrations/mongo/validators"
	"concierge/pkg/logger"
	"concierge/pkg/model"
)

const ConfirmedSlotIndex = "uniq_confirmed_slot"

var AppointmentsIndexes = []mongo.IndexModel{
	{
		Keys: bson.D{{Key: "date", Value: 1}, {Key: "time", Value: 1}},
		Options: options.Index().
			SetName(ConfirmedSlotIndex).
			SetUnique(true).
			SetPartialFilterExpression(bson.M{"status": model.StatusConfirmed}),
	},
	{
		Keys: bson.D{
			{Key: "phone", Value: 1},
			{Key: "status", Value: 1},
			{Key: "date", Value: 1},
			{Key: "time", Value: 1},
		},
	},
}

func RunMigration(ctx context.Context, log *logger.Logger, client *mongo.Client, dbName string) error {
	db := client.Database(dbName)
	log.Info("Running Mongo migrations", "database", dbName)

	collections := []struct {
		Name      string
		Indexes   []mongo.IndexModel
		Validator bson.M
	}{
		{
			Name:      repository.AppointmentsCollection,
			Indexes:   AppointmentsIndexes,
			Validator: validators.AppointmentValidator,
		},
		{
			Name: repository.CountersCollection,
		},
	}

	for _, def := range collections {
		if err := ensureCollection(ctx, log, db, def.Name, def.Validator); err != nil {
			return fmt.Errorf("failed to ensure collection %s: %w", def.Name, err)
		}
		if len(def.Indexes) == 0 {
			continue
		}
		if err := ensureIndexes(ctx, log, db, def.Name, def.Indexes); err != nil {
			return fmt.Errorf("failed to ensure indexes for %s: %w", def.Name, err)
		}
	}

	log.Info("All Mongo migrations applied")
	return nil
}

func ensureCollection(ctx context.Context, log *logger.Logger, db *mongo.Database, name string, validator bson.M) error {
	existing, err := db.ListCollectionNames(ctx, bson.D{{Key: "name", Value: name}})
	if err != nil {
		return err
	}

	if len(existing) == 0 {
		log.Info("Creating collection", "collection", name)
		opts := options.CreateCollection()
		if validator != nil {
			opts.SetValidator(validator)
		}
		if err := db.CreateCollection(ctx, name, opts); err != nil {
			return fmt.Errorf("failed creating %s: %w", name, err)
		}
		return nil
	}

	if validator == nil {
		return nil
	}
	log.Info("Collection exists, updating validator", "collection", name)
	command := bson.D{
		{Key: "collMod", Value: name},
		{Key: "validator", Value: validator},
	}
	if err := db.RunCommand(ctx, command).Err(); err != nil {
		log.Warn("Failed updating validator", "collection", name, "error", err)
	}
	return nil
}

func ensureIndexes(ctx context.Context, log *logger.Logger, db *mongo.Database, name string, models []mongo.IndexModel) error {
	if _, err := db.Collection(name).Indexes().CreateMany(ctx, models); err != nil {
		return err
	}
	log.Info("Ensured indexes", "collection", name, "count", len(models))
	return nil
}
