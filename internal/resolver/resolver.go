// Package resolver maps a device message to the patient it belongs to.
// Each family has its own lookup strategy behind one Resolve entry point so
// the pipeline's control flow does not branch on family beyond dispatch.
package resolver

import (
	"context"
	"fmt"

	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.uber.org/zap"

	"github.com/TELY01-DEV/stardust-my-firstcare-com-sub004/internal/models"
)

// Outcome of an identity resolution.
type Outcome string

const (
	// OutcomeResolved means a patient record was found (or, for the
	// terminal family, created).
	OutcomeResolved Outcome = "resolved"
	// OutcomeUnmapped means no patient owns this device. The message is
	// dropped after tracing, never retried.
	OutcomeUnmapped Outcome = "unmapped_device"
	// OutcomeMalformed means the required identity field was absent.
	OutcomeMalformed Outcome = "malformed"
)

// Resolution is the result of resolving one message.
type Resolution struct {
	Patient  *models.Patient
	DeviceID string
	Outcome  Outcome
	Reason   string
}

// PatientFinder is the slice of the patient repository the resolver needs.
type PatientFinder interface {
	FindByID(ctx context.Context, id primitive.ObjectID) (*models.Patient, error)
	FindByCitizenID(ctx context.Context, citizenID string) (*models.Patient, error)
	FindByHubMAC(ctx context.Context, mac string) (*models.Patient, error)
	FindByWatchIMEI(ctx context.Context, imei string) (*models.Patient, error)
	CreateProvisional(ctx context.Context, claims models.CitizenClaims) (*models.Patient, error)
}

// RegistryLookup is the device-registry read surface.
type RegistryLookup interface {
	FindPatientBySubDevice(ctx context.Context, macField, bleAddr string) (primitive.ObjectID, bool, error)
	FindPatientByWatchIMEI(ctx context.Context, imei string) (primitive.ObjectID, bool, error)
}

// strategy resolves one family's messages.
type strategy interface {
	Resolve(ctx context.Context, msg *models.InboundMessage) (*Resolution, error)
}

// Resolver dispatches to the per-family strategies.
type Resolver struct {
	strategies map[models.DeviceFamily]strategy
	logger     *zap.Logger
}

// New creates a resolver over the patient and registry repositories.
func New(patients PatientFinder, registry RegistryLookup, logger *zap.Logger) *Resolver {
	return &Resolver{
		strategies: map[models.DeviceFamily]strategy{
			models.FamilyAVA4: &hubStrategy{patients: patients, registry: registry, logger: logger},
			models.FamilyKati: &watchStrategy{patients: patients, registry: registry, logger: logger},
			models.FamilyQube: &terminalStrategy{patients: patients, logger: logger},
		},
		logger: logger,
	}
}

// Resolve determines the patient a message belongs to. The only side effect
// is provisional-patient creation on the terminal path; lookup failures from
// the store are returned as errors, everything else is an Outcome.
func (r *Resolver) Resolve(ctx context.Context, msg *models.InboundMessage) (*Resolution, error) {
	s, ok := r.strategies[msg.Family]
	if !ok {
		return nil, fmt.Errorf("no resolution strategy for family %q", msg.Family)
	}
	return s.Resolve(ctx, msg)
}

func unmapped(deviceID, reason string) *Resolution {
	return &Resolution{DeviceID: deviceID, Outcome: OutcomeUnmapped, Reason: reason}
}

func malformed(reason string) *Resolution {
	return &Resolution{Outcome: OutcomeMalformed, Reason: reason}
}
