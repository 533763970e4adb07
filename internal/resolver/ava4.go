package resolver

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/TELY01-DEV/stardust-my-firstcare-com-sub004/internal/models"
	"github.com/TELY01-DEV/stardust-my-firstcare-com-sub004/internal/normalizer"
)

// hubStrategy resolves AVA4 messages. Hub-level status messages resolve via
// the hub's own MAC on the patient record; sub-device data resolves via the
// registry slot for the attribute's vital-sign kind, because each kind has
// its own MAC field (mac_bps, mac_gluc, ...), not one generic MAC.
type hubStrategy struct {
	patients PatientFinder
	registry RegistryLookup
	logger   *zap.Logger
}

func (s *hubStrategy) Resolve(ctx context.Context, msg *models.InboundMessage) (*Resolution, error) {
	env := msg.Gateway
	if env.MAC == "" {
		return malformed("hub message without gateway MAC"), nil
	}

	if msg.Topic == models.TopicHubStatus {
		return s.resolveHub(ctx, env)
	}
	return s.resolveSubDevice(ctx, env)
}

func (s *hubStrategy) resolveHub(ctx context.Context, env *models.GatewayEnvelope) (*Resolution, error) {
	patient, err := s.patients.FindByHubMAC(ctx, env.MAC)
	if err != nil {
		return nil, err
	}
	if patient == nil {
		return unmapped(env.MAC, "no patient owns hub "+env.MAC), nil
	}
	return &Resolution{Patient: patient, DeviceID: env.MAC, Outcome: OutcomeResolved}, nil
}

func (s *hubStrategy) resolveSubDevice(ctx context.Context, env *models.GatewayEnvelope) (*Resolution, error) {
	tag := env.Data.Attribute
	if tag == "" {
		return malformed("sub-device message without attribute tag"), nil
	}

	deviceID := env.Data.MAC
	if deviceID == "" {
		deviceID = env.MAC
	}

	// pick the registry slot for this attribute's kind; unknown tags fall
	// back to the gateway slot so heartbeat-equivalent traffic from paired
	// hubs still resolves
	macField := "mac_gw"
	lookupAddr := env.MAC
	if kind, ok := normalizer.KindForAttribute(models.FamilyAVA4, tag); ok {
		if field := models.RegistryMacField(kind); field != "" {
			macField = field
			lookupAddr = deviceID
		}
	}

	patientID, found, err := s.registry.FindPatientBySubDevice(ctx, macField, lookupAddr)
	if err != nil {
		return nil, err
	}
	if !found {
		return unmapped(deviceID, fmt.Sprintf("no registry entry for %s=%s", macField, lookupAddr)), nil
	}

	patient, err := s.patients.FindByID(ctx, patientID)
	if err != nil {
		return nil, err
	}
	if patient == nil {
		s.logger.Warn("Registry entry references missing patient",
			zap.String("patient_id", patientID.Hex()),
			zap.String(macField, lookupAddr),
		)
		return unmapped(deviceID, "registry entry references missing patient"), nil
	}

	return &Resolution{Patient: patient, DeviceID: deviceID, Outcome: OutcomeResolved}, nil
}
