package repository

import (
	"context"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"go.uber.org/zap"

	"github.com/TELY01-DEV/stardust-my-firstcare-com-sub004/internal/models"
)

// HistoryRepository appends immutable records to the per-kind history
// collections. Idempotence lives here: every collection carries a unique
// compound index on (patient_id, device_id, timestamp), so a replayed
// message hits a duplicate-key error instead of creating a second record.
type HistoryRepository struct {
	db     *mongo.Database
	logger *zap.Logger
}

// NewHistoryRepository creates a history repository.
func NewHistoryRepository(db *mongo.Database, logger *zap.Logger) *HistoryRepository {
	return &HistoryRepository{db: db, logger: logger}
}

// allKinds lists every vital-sign kind with a history collection.
var allKinds = []models.VitalKind{
	models.KindBloodPressure,
	models.KindSpO2,
	models.KindBloodSugar,
	models.KindBodyTemperature,
	models.KindWeight,
	models.KindUricAcid,
	models.KindCholesterol,
	models.KindHeartRate,
	models.KindSteps,
	models.KindSleep,
	models.KindLocation,
	models.KindEmergencyAlert,
}

// EnsureIndexes creates the uniqueness indexes on every history collection.
// Safe to call on every startup.
func (r *HistoryRepository) EnsureIndexes(ctx context.Context) error {
	model := mongo.IndexModel{
		Keys: bson.D{
			{Key: "patient_id", Value: 1},
			{Key: "device_id", Value: 1},
			{Key: "timestamp", Value: 1},
		},
		Options: options.Index().SetUnique(true).SetName("uniq_patient_device_ts"),
	}

	for _, kind := range allKinds {
		coll := r.db.Collection(models.HistoryCollection(kind))
		if _, err := coll.Indexes().CreateOne(ctx, model); err != nil {
			return fmt.Errorf("failed to ensure index on %s: %w", coll.Name(), err)
		}
	}
	return nil
}

// Insert appends one history record. A duplicate of an existing
// (patient, device, timestamp) tuple reports inserted=false without error.
func (r *HistoryRepository) Insert(ctx context.Context, kind models.VitalKind, record *models.HistoryRecord) (bool, error) {
	record.CreatedAt = time.Now().UTC()
	coll := r.db.Collection(models.HistoryCollection(kind))

	if _, err := coll.InsertOne(ctx, record); err != nil {
		if mongo.IsDuplicateKeyError(err) {
			r.logger.Debug("Duplicate history record skipped",
				zap.String("kind", string(kind)),
				zap.String("device_id", record.DeviceID),
				zap.Time("timestamp", record.Timestamp),
			)
			return false, nil
		}
		return false, fmt.Errorf("failed to insert %s history: %w", kind, err)
	}
	return true, nil
}
