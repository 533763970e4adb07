package repository

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.uber.org/zap"

	"github.com/TELY01-DEV/stardust-my-firstcare-com-sub004/internal/models"
)

// PatientRepository reads and writes patient documents.
type PatientRepository struct {
	coll   *mongo.Collection
	logger *zap.Logger
}

// NewPatientRepository creates a patient repository.
func NewPatientRepository(db *mongo.Database, logger *zap.Logger) *PatientRepository {
	return &PatientRepository{
		coll:   db.Collection("patients"),
		logger: logger,
	}
}

// FindByID loads a patient by ObjectID.
func (r *PatientRepository) FindByID(ctx context.Context, id primitive.ObjectID) (*models.Patient, error) {
	return r.findOne(ctx, bson.M{"_id": id})
}

// FindByCitizenID looks up a patient by national citizen ID.
func (r *PatientRepository) FindByCitizenID(ctx context.Context, citizenID string) (*models.Patient, error) {
	return r.findOne(ctx, bson.M{"id_card": citizenID})
}

// FindByHubMAC looks up a patient by the MAC of their AVA4 hub.
func (r *PatientRepository) FindByHubMAC(ctx context.Context, mac string) (*models.Patient, error) {
	return r.findOne(ctx, bson.M{"ava_mac_address": mac})
}

// FindByWatchIMEI looks up a patient by the IMEI stored directly on the
// patient record (the fallback tier of the watch lookup).
func (r *PatientRepository) FindByWatchIMEI(ctx context.Context, imei string) (*models.Patient, error) {
	return r.findOne(ctx, bson.M{"watch_imei": imei})
}

func (r *PatientRepository) findOne(ctx context.Context, filter bson.M) (*models.Patient, error) {
	var patient models.Patient
	err := r.coll.FindOne(ctx, filter).Decode(&patient)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to find patient: %w", err)
	}
	return &patient, nil
}

// CreateProvisional synthesizes a patient record from a terminal message's
// demographic claims. Called only when a citizen ID has no existing record.
func (r *PatientRepository) CreateProvisional(ctx context.Context, claims models.CitizenClaims) (*models.Patient, error) {
	now := time.Now().UTC()
	patient := &models.Patient{
		CitizenID:          claims.CitizenID,
		NameTH:             claims.NameTH,
		NameEN:             claims.NameEN,
		BirthDate:          claims.BirthDate,
		DOB:                parseBuddhistDate(claims.BirthDate),
		Gender:             claims.Gender,
		RegistrationStatus: models.RegistrationProvisional,
		CreatedAt:          now,
		UpdatedAt:          now,
	}

	res, err := r.coll.InsertOne(ctx, patient)
	if err != nil {
		return nil, fmt.Errorf("failed to create provisional patient: %w", err)
	}
	if oid, ok := res.InsertedID.(primitive.ObjectID); ok {
		patient.ID = oid
	}

	r.logger.Info("Created provisional patient",
		zap.String("patient_id", patient.ID.Hex()),
		zap.String("citizen_id", maskCitizenID(claims.CitizenID)),
	)
	return patient, nil
}

// SetLastObservation upserts one "last value" slot on the patient record.
func (r *PatientRepository) SetLastObservation(ctx context.Context, patientID primitive.ObjectID, slotField string, slot models.LastObservation) error {
	update := bson.M{
		"$set": bson.M{
			slotField:    slot,
			"updated_at": time.Now().UTC(),
		},
	}
	if _, err := r.coll.UpdateOne(ctx, bson.M{"_id": patientID}, update); err != nil {
		return fmt.Errorf("failed to update %s: %w", slotField, err)
	}
	return nil
}

// parseBuddhistDate converts the terminal's compact Buddhist-era yyyymmdd
// birth date to a Gregorian time. Unparseable input yields the zero time;
// onboarding stays permissive because provisional creation must not fail on
// bad demographics.
func parseBuddhistDate(s string) time.Time {
	if len(s) != 8 {
		return time.Time{}
	}
	year, err1 := strconv.Atoi(s[0:4])
	month, err2 := strconv.Atoi(s[4:6])
	day, err3 := strconv.Atoi(s[6:8])
	if err1 != nil || err2 != nil || err3 != nil {
		return time.Time{}
	}
	if month < 1 || month > 12 || day < 1 || day > 31 {
		return time.Time{}
	}
	// Buddhist era = Gregorian + 543
	return time.Date(year-543, time.Month(month), day, 0, 0, 0, 0, time.UTC)
}

// maskCitizenID redacts all but the last three digits for logging.
func maskCitizenID(id string) string {
	if len(id) <= 3 {
		return "***"
	}
	masked := make([]byte, len(id)-3)
	for i := range masked {
		masked[i] = '*'
	}
	return string(masked) + id[len(id)-3:]
}
