// Package pipeline orchestrates one message end to end: parse, resolve the
// patient, touch device status, normalize, persist, project. Every stage is
// traced, success or failure. The pipeline is stateless between messages;
// the only error it returns is a store failure, which the transport layer
// may retry. Everything else is terminal for the message.
package pipeline

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/TELY01-DEV/stardust-my-firstcare-com-sub004/internal/coerce"
	"github.com/TELY01-DEV/stardust-my-firstcare-com-sub004/internal/fhir"
	"github.com/TELY01-DEV/stardust-my-firstcare-com-sub004/internal/models"
	"github.com/TELY01-DEV/stardust-my-firstcare-com-sub004/internal/resolver"
	"github.com/TELY01-DEV/stardust-my-firstcare-com-sub004/internal/tracker"
)

// IdentityResolver maps a message to its patient.
type IdentityResolver interface {
	Resolve(ctx context.Context, msg *models.InboundMessage) (*resolver.Resolution, error)
}

// Normalizer decodes a message into canonical observations.
type Normalizer interface {
	Normalize(msg *models.InboundMessage, receivedAt time.Time) ([]models.Observation, error)
}

// ObservationStore persists one observation.
type ObservationStore interface {
	Store(ctx context.Context, patient *models.Patient, obs *models.Observation) error
}

// StatusTracker upserts the per-device status document.
type StatusTracker interface {
	Touch(ctx context.Context, deviceID string, family models.DeviceFamily, fields tracker.StatusFields) error
}

// Projector hands stored observations to the clinical endpoint. Nil when
// projection is not configured.
type Projector interface {
	Publish(ctx context.Context, patient *models.Patient, obs *models.Observation) (bool, error)
}

// TraceEmitter forwards pipeline stage events, fire-and-forget.
type TraceEmitter interface {
	Emit(event *models.TraceEvent)
}

// Pipeline processes inbound device messages.
type Pipeline struct {
	resolver   IdentityResolver
	normalizer Normalizer
	store      ObservationStore
	tracker    StatusTracker
	projector  Projector
	emitter    TraceEmitter

	storeTimeout time.Duration
	logger       *zap.Logger
	now          func() time.Time
}

// New wires a pipeline. projector may be nil to disable projection.
func New(
	res IdentityResolver,
	norm Normalizer,
	store ObservationStore,
	track StatusTracker,
	projector Projector,
	emitter TraceEmitter,
	storeTimeout time.Duration,
	logger *zap.Logger,
) *Pipeline {
	if storeTimeout <= 0 {
		storeTimeout = 5 * time.Second
	}
	return &Pipeline{
		resolver:     res,
		normalizer:   norm,
		store:        store,
		tracker:      track,
		projector:    projector,
		emitter:      emitter,
		storeTimeout: storeTimeout,
		logger:       logger,
		now:          time.Now,
	}
}

// Process handles one raw transport message. A returned error means a store
// write failed and the message is safe to redeliver; every other failure is
// traced, logged and absorbed here.
func (p *Pipeline) Process(ctx context.Context, topic string, payload []byte) error {
	receivedAt := p.now().UTC()

	family, known := models.FamilyForTopic(topic)
	p.emit(models.TraceEvent{Step: models.StepReceived, Status: models.TraceSuccess, Family: family, Topic: topic})

	if !known {
		p.logger.Warn("Message on unrecognized topic dropped", zap.String("topic", topic))
		p.emit(models.TraceEvent{Step: models.StepParsed, Status: models.TraceError, Topic: topic,
			Error: "unrecognized topic"})
		return nil
	}

	msg, err := parse(topic, family, payload)
	if err != nil {
		p.logger.Warn("Failed to parse payload",
			zap.String("topic", topic),
			zap.Error(err),
		)
		p.emit(models.TraceEvent{Step: models.StepParsed, Status: models.TraceError, Family: family, Topic: topic,
			Error: err.Error()})
		return nil
	}
	p.emit(models.TraceEvent{Step: models.StepParsed, Status: models.TraceSuccess, Family: family, Topic: topic,
		Payload: snapshot(msg)})

	// Terminal heartbeats carry no citizen block, so there is no identity to
	// resolve; the device still gets its status touch.
	if family == models.FamilyQube && msg.Gateway.Type != models.MsgTypeReportAttribute {
		if msg.Gateway.MAC == "" {
			p.emit(models.TraceEvent{Step: models.StepIdentityResolved, Status: models.TraceError, Family: family,
				Topic: topic, Error: "terminal heartbeat without MAC"})
			p.emit(models.TraceEvent{Step: models.StepRecordUpdated, Status: models.TraceSkipped, Family: family, Topic: topic})
			return nil
		}
		p.emit(models.TraceEvent{Step: models.StepIdentityResolved, Status: models.TraceSkipped, Family: family, Topic: topic})
		return p.touchAndFinish(ctx, msg, msg.Gateway.MAC)
	}

	res, err := p.resolver.Resolve(ctx, msg)
	if err != nil {
		p.emit(models.TraceEvent{Step: models.StepIdentityResolved, Status: models.TraceError, Family: family, Topic: topic,
			Error: err.Error()})
		return fmt.Errorf("identity resolution failed: %w", err)
	}
	if res.Outcome != resolver.OutcomeResolved {
		p.logger.Info("Message dropped without a patient",
			zap.String("topic", topic),
			zap.String("outcome", string(res.Outcome)),
			zap.String("reason", res.Reason),
		)
		p.emit(models.TraceEvent{Step: models.StepIdentityResolved, Status: models.TraceError, Family: family, Topic: topic,
			Outcome: string(res.Outcome), Error: res.Reason})
		p.emit(models.TraceEvent{Step: models.StepRecordUpdated, Status: models.TraceSkipped, Family: family, Topic: topic})
		return nil
	}
	p.emit(models.TraceEvent{Step: models.StepIdentityResolved, Status: models.TraceSuccess, Family: family, Topic: topic,
		Outcome: string(res.Outcome)})

	if err := p.touch(ctx, msg, res.DeviceID); err != nil {
		return err
	}

	observations, err := p.normalizer.Normalize(msg, receivedAt)
	if err != nil {
		p.logger.Warn("Failed to decode observation",
			zap.String("topic", topic),
			zap.Error(err),
		)
		p.emit(models.TraceEvent{Step: models.StepObservationStored, Status: models.TraceError, Family: family, Topic: topic,
			Error: err.Error()})
		return nil
	}
	if len(observations) == 0 {
		p.emit(models.TraceEvent{Step: models.StepObservationStored, Status: models.TraceSkipped, Family: family, Topic: topic})
		return nil
	}

	for i := range observations {
		obs := &observations[i]
		if err := p.storeOne(ctx, res.Patient, obs); err != nil {
			p.emit(models.TraceEvent{Step: models.StepObservationStored, Status: models.TraceError, Family: family,
				Topic: topic, Kind: obs.Kind, Error: err.Error()})
			return err
		}
		p.emit(models.TraceEvent{Step: models.StepObservationStored, Status: models.TraceSuccess, Family: family,
			Topic: topic, Kind: obs.Kind})

		p.project(ctx, msg, res.Patient, obs)
	}
	return nil
}

// touchAndFinish is the heartbeat-only tail: status touch, then the
// observation stage is skipped.
func (p *Pipeline) touchAndFinish(ctx context.Context, msg *models.InboundMessage, deviceID string) error {
	if err := p.touch(ctx, msg, deviceID); err != nil {
		return err
	}
	p.emit(models.TraceEvent{Step: models.StepObservationStored, Status: models.TraceSkipped, Family: msg.Family, Topic: msg.Topic})
	return nil
}

func (p *Pipeline) touch(ctx context.Context, msg *models.InboundMessage, deviceID string) error {
	touchCtx, cancel := context.WithTimeout(ctx, p.storeTimeout)
	defer cancel()

	if err := p.tracker.Touch(touchCtx, deviceID, msg.Family, statusFields(msg)); err != nil {
		p.emit(models.TraceEvent{Step: models.StepRecordUpdated, Status: models.TraceError, Family: msg.Family,
			Topic: msg.Topic, Error: err.Error()})
		return fmt.Errorf("device status update failed: %w", err)
	}
	p.emit(models.TraceEvent{Step: models.StepRecordUpdated, Status: models.TraceSuccess, Family: msg.Family, Topic: msg.Topic})
	return nil
}

func (p *Pipeline) storeOne(ctx context.Context, patient *models.Patient, obs *models.Observation) error {
	storeCtx, cancel := context.WithTimeout(ctx, p.storeTimeout)
	defer cancel()
	return p.store.Store(storeCtx, patient, obs)
}

// project is best-effort: failures are traced and logged, never returned.
func (p *Pipeline) project(ctx context.Context, msg *models.InboundMessage, patient *models.Patient, obs *models.Observation) {
	if p.projector == nil || !fhir.Projects(obs.Kind) {
		return
	}
	projected, err := p.projector.Publish(ctx, patient, obs)
	if !projected && err == nil {
		return
	}
	if err != nil {
		p.logger.Warn("Observation projection failed",
			zap.String("kind", string(obs.Kind)),
			zap.Error(err),
		)
		p.emit(models.TraceEvent{Step: models.StepProjected, Status: models.TraceError, Family: msg.Family,
			Topic: msg.Topic, Kind: obs.Kind, Error: err.Error()})
		return
	}
	p.emit(models.TraceEvent{Step: models.StepProjected, Status: models.TraceSuccess, Family: msg.Family,
		Topic: msg.Topic, Kind: obs.Kind})
}

func (p *Pipeline) emit(event models.TraceEvent) {
	if p.emitter == nil {
		return
	}
	p.emitter.Emit(&event)
}

// parse decodes the family's envelope shape.
func parse(topic string, family models.DeviceFamily, payload []byte) (*models.InboundMessage, error) {
	msg := &models.InboundMessage{Topic: topic, Family: family}
	switch family {
	case models.FamilyAVA4, models.FamilyQube:
		env, err := models.ParseGatewayEnvelope(payload)
		if err != nil {
			return nil, fmt.Errorf("%w: %v", models.ErrMalformed, err)
		}
		msg.Gateway = env
	case models.FamilyKati:
		env, err := models.ParseWatchEnvelope(payload)
		if err != nil {
			return nil, fmt.Errorf("%w: %v", models.ErrMalformed, err)
		}
		msg.Watch = env
	default:
		return nil, fmt.Errorf("%w: no envelope for family %q", models.ErrMalformed, family)
	}
	return msg, nil
}

// snapshot extracts the trace payload for the parsed step. The emitter
// redacts identity fields before the event leaves the process.
func snapshot(msg *models.InboundMessage) map[string]interface{} {
	if msg.Watch != nil {
		return map[string]interface{}{"IMEI": msg.Watch.IMEI}
	}
	env := msg.Gateway
	snap := map[string]interface{}{
		"type": env.Type,
		"mac":  env.MAC,
	}
	if env.Data.Attribute != "" {
		snap["attribute"] = env.Data.Attribute
	}
	if env.Data.Citizen != "" {
		snap["citiz"] = env.Data.Citizen
		snap["nameTH"] = env.Data.NameTH
		snap["brith"] = env.Data.Birth
	}
	return snap
}

// statusFields pulls the battery/signal readings a message carries. Watch
// payloads report them alongside the vitals; gateway envelopes do not.
func statusFields(msg *models.InboundMessage) tracker.StatusFields {
	var fields tracker.StatusFields
	if msg.Watch == nil {
		return fields
	}
	if battery, err := coerce.OptionalInt(msg.Watch.Raw, "battery"); err == nil {
		fields.BatteryPercent = battery
	}
	if signal, err := coerce.OptionalInt(msg.Watch.Raw, "signalGSM"); err == nil {
		fields.SignalPercent = signal
	}
	if mode := coerce.OptionalString(msg.Watch.Raw, "workingMode"); mode != nil {
		fields.ConnectionQuality = mode
	}
	return fields
}
