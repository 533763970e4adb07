// Package tracker maintains the per-device status documents: online flag,
// last-seen, battery, signal quality and alert flags. Threshold alerts are
// derived here, not by callers, from the centralized config thresholds.
package tracker

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/TELY01-DEV/stardust-my-firstcare-com-sub004/internal/models"
)

// StatusStore is the persistence surface the tracker writes through. Apply
// must write only the fields the update populates, atomically, so writes
// from concurrent messages to the same device commute.
type StatusStore interface {
	Get(ctx context.Context, deviceID string) (*models.DeviceStatus, error)
	Apply(ctx context.Context, deviceID string, update *models.StatusUpdate) error
}

// Thresholds below which battery/signal alerts go active.
type Thresholds struct {
	LowBatteryPercent int
	PoorSignalPercent int
}

// StatusFields is what one message contributes to the device status. Absent
// fields leave the stored values untouched.
type StatusFields struct {
	BatteryPercent    *int
	SignalPercent     *int
	ConnectionQuality *string
}

// Tracker upserts one status document per physical device.
type Tracker struct {
	store      StatusStore
	thresholds Thresholds
	logger     *zap.Logger
	now        func() time.Time
}

// New creates a tracker.
func New(store StatusStore, thresholds Thresholds, logger *zap.Logger) *Tracker {
	return &Tracker{
		store:      store,
		thresholds: thresholds,
		logger:     logger,
		now:        time.Now,
	}
}

// Touch records a message from a device: marks it online, bumps last-seen,
// merges the reported status fields and re-derives the threshold alerts.
// Every message touches, pure heartbeats included. Devices are never marked
// offline here; a staleness sweep does that elsewhere.
func (t *Tracker) Touch(ctx context.Context, deviceID string, family models.DeviceFamily, fields StatusFields) error {
	now := t.now().UTC()

	status, err := t.store.Get(ctx, deviceID)
	if err != nil {
		return fmt.Errorf("%w: %v", models.ErrStore, err)
	}

	update := &models.StatusUpdate{
		Family:            family,
		LastSeen:          now,
		BatteryPercent:    fields.BatteryPercent,
		SignalPercent:     fields.SignalPercent,
		ConnectionQuality: fields.ConnectionQuality,
		UpdatedAt:         now,
	}
	if fields.BatteryPercent != nil {
		transitionAlert(update, status, models.AlertLowBattery, *fields.BatteryPercent < t.thresholds.LowBatteryPercent, now)
	}
	if fields.SignalPercent != nil {
		transitionAlert(update, status, models.AlertPoorSignal, *fields.SignalPercent < t.thresholds.PoorSignalPercent, now)
	}

	if err := t.store.Apply(ctx, deviceID, update); err != nil {
		return fmt.Errorf("%w: %v", models.ErrStore, err)
	}
	return nil
}

// TriggerAlert sets an explicit alert (SOS, fall) on the device record,
// creating the record on first contact.
func (t *Tracker) TriggerAlert(ctx context.Context, deviceID string, family models.DeviceFamily, kind models.AlertKind) error {
	now := t.now().UTC()

	status, err := t.store.Get(ctx, deviceID)
	if err != nil {
		return fmt.Errorf("%w: %v", models.ErrStore, err)
	}

	update := &models.StatusUpdate{
		Family:    family,
		LastSeen:  now,
		UpdatedAt: now,
	}
	transitionAlert(update, status, kind, true, now)

	t.logger.Warn("Device alert triggered",
		zap.String("device_id", deviceID),
		zap.String("alert", string(kind)),
	)

	if err := t.store.Apply(ctx, deviceID, update); err != nil {
		return fmt.Errorf("%w: %v", models.ErrStore, err)
	}
	return nil
}

// ClearAlert deactivates an alert flag. Unknown devices and already-clear
// flags are no-ops.
func (t *Tracker) ClearAlert(ctx context.Context, deviceID string, kind models.AlertKind) error {
	status, err := t.store.Get(ctx, deviceID)
	if err != nil {
		return fmt.Errorf("%w: %v", models.ErrStore, err)
	}
	if status == nil || !status.Alert(kind).Active {
		return nil
	}

	now := t.now().UTC()
	update := &models.StatusUpdate{
		Alerts:    map[models.AlertKind]models.AlertState{kind: {Active: false, ChangedAt: now}},
		UpdatedAt: now,
	}
	if err := t.store.Apply(ctx, deviceID, update); err != nil {
		return fmt.Errorf("%w: %v", models.ErrStore, err)
	}
	return nil
}

// transitionAlert records an alert write only when the desired state differs
// from the stored one, stamping changed_at at the transition. Absent entries
// count as inactive, so inactive states are not written until the flag has
// been active once, and flags this message does not transition are never
// written at all.
func transitionAlert(update *models.StatusUpdate, current *models.DeviceStatus, kind models.AlertKind, active bool, now time.Time) {
	if current.Alert(kind).Active == active {
		return
	}
	if update.Alerts == nil {
		update.Alerts = map[models.AlertKind]models.AlertState{}
	}
	update.Alerts[kind] = models.AlertState{Active: active, ChangedAt: now}
}
