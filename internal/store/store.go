// Package store persists canonical observations: the "last value" slot on
// the patient record and the append-only per-kind history collection.
package store

import (
	"context"
	"fmt"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.uber.org/zap"

	"github.com/TELY01-DEV/stardust-my-firstcare-com-sub004/internal/models"
)

// PatientWriter updates the last-value slots on patient records.
type PatientWriter interface {
	SetLastObservation(ctx context.Context, patientID primitive.ObjectID, slotField string, slot models.LastObservation) error
}

// HistoryAppender appends idempotently to the per-kind history collections.
type HistoryAppender interface {
	Insert(ctx context.Context, kind models.VitalKind, record *models.HistoryRecord) (bool, error)
}

// AlertTrigger is the device-status surface emergency alerts write through.
type AlertTrigger interface {
	TriggerAlert(ctx context.Context, deviceID string, family models.DeviceFamily, kind models.AlertKind) error
}

// Store writes observations. Both write legs are attempted even when the
// first fails, so a partial failure never silently loses the other leg.
type Store struct {
	patients PatientWriter
	history  HistoryAppender
	alerts   AlertTrigger
	logger   *zap.Logger
}

// New creates an observation store.
func New(patients PatientWriter, history HistoryAppender, alerts AlertTrigger, logger *zap.Logger) *Store {
	return &Store{
		patients: patients,
		history:  history,
		alerts:   alerts,
		logger:   logger,
	}
}

// Store persists one observation for a patient. Replays of the same
// (patient, device, timestamp) tuple do not duplicate history; the unique
// index downstream enforces that, not this caller.
//
// Emergency alerts have no "latest value" slot: they set the matching alert
// flag on the device status record instead, and still land in history.
func (s *Store) Store(ctx context.Context, patient *models.Patient, obs *models.Observation) error {
	var slotErr error
	if obs.Kind == models.KindEmergencyAlert {
		slotErr = s.triggerAlert(ctx, obs)
	} else {
		slotErr = s.updateLastSlot(ctx, patient, obs)
	}

	record := &models.HistoryRecord{
		PatientID: patient.ID,
		DeviceID:  obs.DeviceID,
		Family:    obs.Family,
		Data:      obs.Data(),
		Timestamp: obs.Timestamp,
	}
	inserted, histErr := s.history.Insert(ctx, obs.Kind, record)
	if histErr == nil && !inserted {
		s.logger.Debug("Observation replay, history unchanged",
			zap.String("kind", string(obs.Kind)),
			zap.String("device_id", obs.DeviceID),
		)
	}

	if slotErr != nil {
		return fmt.Errorf("%w: %v", models.ErrStore, slotErr)
	}
	if histErr != nil {
		return fmt.Errorf("%w: %v", models.ErrStore, histErr)
	}
	return nil
}

func (s *Store) updateLastSlot(ctx context.Context, patient *models.Patient, obs *models.Observation) error {
	slotField := models.LastSlotField(obs.Kind)
	if slotField == "" {
		return fmt.Errorf("kind %s has no last-value slot", obs.Kind)
	}

	data, err := toDoc(obs.Data())
	if err != nil {
		return fmt.Errorf("failed to encode %s slot: %w", slotField, err)
	}

	return s.patients.SetLastObservation(ctx, patient.ID, slotField, models.LastObservation{
		Data:      data,
		DeviceID:  obs.DeviceID,
		Family:    string(obs.Family),
		UpdatedAt: obs.Timestamp,
	})
}

func (s *Store) triggerAlert(ctx context.Context, obs *models.Observation) error {
	var kind models.AlertKind
	switch obs.EmergencyAlert.Kind {
	case models.AlertSOS:
		kind = models.AlertSOSActive
	case models.AlertFall:
		kind = models.AlertFallActive
	default:
		return fmt.Errorf("unknown emergency alert kind %q", obs.EmergencyAlert.Kind)
	}
	return s.alerts.TriggerAlert(ctx, obs.DeviceID, obs.Family, kind)
}

// toDoc converts a typed observation variant to the bson document stored in
// the patient's last-value slot.
func toDoc(v interface{}) (bson.M, error) {
	raw, err := bson.Marshal(v)
	if err != nil {
		return nil, err
	}
	var doc bson.M
	if err := bson.Unmarshal(raw, &doc); err != nil {
		return nil, err
	}
	return doc, nil
}
