package fhir

import (
	"context"
	"fmt"
	"time"

	"github.com/go-resty/resty/v2"
	"go.uber.org/zap"

	"github.com/TELY01-DEV/stardust-my-firstcare-com-sub004/internal/models"
)

// Publisher hands projected resources to the clinical-interoperability
// endpoint. Projection is best-effort: failures are logged by the caller and
// never affect pipeline outcome.
type Publisher struct {
	client *resty.Client
	logger *zap.Logger
}

// NewPublisher creates a publisher for the configured endpoint.
func NewPublisher(endpointURL string, timeout time.Duration, logger *zap.Logger) *Publisher {
	if timeout <= 0 {
		timeout = 5 * time.Second
	}
	client := resty.New().
		SetBaseURL(endpointURL).
		SetTimeout(timeout).
		SetRetryCount(1).
		SetHeader("Content-Type", "application/fhir+json")
	return &Publisher{client: client, logger: logger}
}

// Publish projects and pushes one observation. Returns projected=false when
// the kind does not feed the clinical projection.
func (p *Publisher) Publish(ctx context.Context, patient *models.Patient, obs *models.Observation) (bool, error) {
	resource, err := Project(patient, obs)
	if err != nil {
		return false, err
	}
	if resource == nil {
		return false, nil
	}

	resp, err := p.client.R().
		SetContext(ctx).
		SetBody(resource).
		Post("")
	if err != nil {
		return true, fmt.Errorf("failed to push FHIR observation: %w", err)
	}
	if resp.IsError() {
		return true, fmt.Errorf("FHIR endpoint rejected observation: %s", resp.Status())
	}

	p.logger.Debug("Projected observation",
		zap.String("kind", string(obs.Kind)),
		zap.String("patient_id", patient.ID.Hex()),
	)
	return true, nil
}
