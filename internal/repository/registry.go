package repository

import (
	"context"
	"errors"
	"fmt"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.uber.org/zap"
)

// RegistryRepository reads the device registries. Both registries are
// maintained by the admin surface and are read-only here; a miss is a valid,
// expected outcome (unmapped device).
type RegistryRepository struct {
	devices *mongo.Collection // amy_devices: hub sub-device MAC slots per vital-sign kind
	watches *mongo.Collection // watches: IMEI -> patient
	logger  *zap.Logger
}

// NewRegistryRepository creates a registry repository.
func NewRegistryRepository(db *mongo.Database, logger *zap.Logger) *RegistryRepository {
	return &RegistryRepository{
		devices: db.Collection("amy_devices"),
		watches: db.Collection("watches"),
		logger:  logger,
	}
}

// FindPatientBySubDevice looks up the patient owning a BLE sub-device. The
// registry keys sub-devices per vital-sign kind (mac_bps, mac_gluc, ...), so
// the caller supplies the field name for the kind being resolved.
func (r *RegistryRepository) FindPatientBySubDevice(ctx context.Context, macField, bleAddr string) (primitive.ObjectID, bool, error) {
	var entry struct {
		PatientID primitive.ObjectID `bson:"patient_id"`
	}
	err := r.devices.FindOne(ctx, bson.M{macField: bleAddr}).Decode(&entry)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return primitive.NilObjectID, false, nil
	}
	if err != nil {
		return primitive.NilObjectID, false, fmt.Errorf("failed to look up sub-device %s: %w", bleAddr, err)
	}
	return entry.PatientID, true, nil
}

// FindPatientByWatchIMEI is the registry tier of the watch lookup.
func (r *RegistryRepository) FindPatientByWatchIMEI(ctx context.Context, imei string) (primitive.ObjectID, bool, error) {
	var watch struct {
		PatientID primitive.ObjectID `bson:"patient_id"`
	}
	err := r.watches.FindOne(ctx, bson.M{"imei": imei}).Decode(&watch)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return primitive.NilObjectID, false, nil
	}
	if err != nil {
		return primitive.NilObjectID, false, fmt.Errorf("failed to look up watch %s: %w", imei, err)
	}
	if watch.PatientID.IsZero() {
		// registered watch without an assignment; fall through to the
		// patient-record tier
		return primitive.NilObjectID, false, nil
	}
	return watch.PatientID, true, nil
}
