package repository

import (
	"context"
	"errors"
	"fmt"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"go.uber.org/zap"

	"github.com/TELY01-DEV/stardust-my-firstcare-com-sub004/internal/models"
)

// StatusRepository persists the per-device status documents.
type StatusRepository struct {
	coll   *mongo.Collection
	logger *zap.Logger
}

// NewStatusRepository creates a status repository.
func NewStatusRepository(db *mongo.Database, logger *zap.Logger) *StatusRepository {
	return &StatusRepository{
		coll:   db.Collection("device_status"),
		logger: logger,
	}
}

// Get loads the status document for a device, nil when the device has never
// been seen.
func (r *StatusRepository) Get(ctx context.Context, deviceID string) (*models.DeviceStatus, error) {
	var status models.DeviceStatus
	err := r.coll.FindOne(ctx, bson.M{"device_id": deviceID}).Decode(&status)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load device status: %w", err)
	}
	return &status, nil
}

// Apply upserts one message's contribution to the status document. Only the
// populated fields are $set, alerts as per-flag subdocuments and last_seen
// with $max, so concurrent writers to the same device commute instead of
// overwriting each other's fields from stale reads.
func (r *StatusRepository) Apply(ctx context.Context, deviceID string, update *models.StatusUpdate) error {
	set := bson.M{"updated_at": update.UpdatedAt}
	if update.Family != "" {
		set["family"] = update.Family
	}
	if update.BatteryPercent != nil {
		set["battery_percent"] = *update.BatteryPercent
	}
	if update.SignalPercent != nil {
		set["signal_percent"] = *update.SignalPercent
	}
	if update.ConnectionQuality != nil {
		set["connection_quality"] = *update.ConnectionQuality
	}
	for kind, state := range update.Alerts {
		set["alerts."+string(kind)] = state
	}

	doc := bson.M{
		"$set": set,
		"$setOnInsert": bson.M{
			"device_id":  deviceID,
			"created_at": update.UpdatedAt,
		},
	}
	if !update.LastSeen.IsZero() {
		set["online"] = true
		doc["$max"] = bson.M{"last_seen": update.LastSeen}
	}

	filter := bson.M{"device_id": deviceID}
	if _, err := r.coll.UpdateOne(ctx, filter, doc, options.Update().SetUpsert(true)); err != nil {
		return fmt.Errorf("failed to update device status: %w", err)
	}
	return nil
}
