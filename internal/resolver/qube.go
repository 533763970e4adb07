package resolver

import (
	"context"

	"go.uber.org/zap"

	"github.com/TELY01-DEV/stardust-my-firstcare-com-sub004/internal/models"
)

// terminalStrategy resolves Qube-Vital messages by the citizen ID carried in
// the payload. Unlike the other families it cannot end in "unmapped": an
// unknown citizen gets a provisional patient synthesized from the
// demographic claims in the same envelope.
type terminalStrategy struct {
	patients PatientFinder
	logger   *zap.Logger
}

func (s *terminalStrategy) Resolve(ctx context.Context, msg *models.InboundMessage) (*Resolution, error) {
	env := msg.Gateway
	citizenID := env.Data.Citizen
	if citizenID == "" {
		return malformed("terminal report without citizen ID"), nil
	}

	patient, err := s.patients.FindByCitizenID(ctx, citizenID)
	if err != nil {
		return nil, err
	}
	if patient == nil {
		patient, err = s.patients.CreateProvisional(ctx, env.Data.Claims())
		if err != nil {
			return nil, err
		}
	}

	return &Resolution{Patient: patient, DeviceID: env.MAC, Outcome: OutcomeResolved}, nil
}
