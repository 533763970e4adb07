package resolver

import (
	"context"

	"go.uber.org/zap"

	"github.com/TELY01-DEV/stardust-my-firstcare-com-sub004/internal/models"
)

// watchStrategy resolves Kati watch messages by IMEI: the watch registry
// first, then the patient record's own watch_imei field. The fallback also
// covers registry entries pointing at deleted patients.
type watchStrategy struct {
	patients PatientFinder
	registry RegistryLookup
	logger   *zap.Logger
}

func (s *watchStrategy) Resolve(ctx context.Context, msg *models.InboundMessage) (*Resolution, error) {
	imei := msg.Watch.IMEI
	if imei == "" {
		return malformed("watch message without IMEI"), nil
	}

	patientID, found, err := s.registry.FindPatientByWatchIMEI(ctx, imei)
	if err != nil {
		return nil, err
	}
	if found {
		patient, err := s.patients.FindByID(ctx, patientID)
		if err != nil {
			return nil, err
		}
		if patient != nil {
			return &Resolution{Patient: patient, DeviceID: imei, Outcome: OutcomeResolved}, nil
		}
		s.logger.Warn("Watch registry references missing patient",
			zap.String("imei", imei),
			zap.String("patient_id", patientID.Hex()),
		)
	}

	patient, err := s.patients.FindByWatchIMEI(ctx, imei)
	if err != nil {
		return nil, err
	}
	if patient == nil {
		return unmapped(imei, "no patient owns watch "+imei), nil
	}
	return &Resolution{Patient: patient, DeviceID: imei, Outcome: OutcomeResolved}, nil
}
