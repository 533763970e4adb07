// Package normalizer turns raw device payloads into canonical vital-sign
// observations. Dispatch is two-level: the device family selects a decoder
// table, the attribute tag (or watch topic) selects the decoder. Unknown
// tags are an explicit no-op, distinguished from decode errors.
package normalizer

import (
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/TELY01-DEV/stardust-my-firstcare-com-sub004/internal/models"
)

// Normalizer aggregates the per-family decoders.
type Normalizer struct {
	hub      *HubNormalizer
	watch    *WatchNormalizer
	terminal *TerminalNormalizer
	logger   *zap.Logger
}

// New creates a normalizer with all three family decoder tables.
func New(logger *zap.Logger) *Normalizer {
	return &Normalizer{
		hub:      NewHubNormalizer(logger),
		watch:    NewWatchNormalizer(logger),
		terminal: NewTerminalNormalizer(logger),
		logger:   logger,
	}
}

// Normalize decodes one inbound message into zero or more observations.
// A nil, nil return means the message carried nothing to normalize (unknown
// attribute tag or a pure heartbeat); an error means a recognized attribute
// could not be decoded.
func (n *Normalizer) Normalize(msg *models.InboundMessage, receivedAt time.Time) ([]models.Observation, error) {
	switch msg.Family {
	case models.FamilyAVA4:
		if msg.Topic == models.TopicHubStatus {
			return nil, nil // hub heartbeat, no observation
		}
		return n.hub.Normalize(msg.Gateway, receivedAt)
	case models.FamilyKati:
		return n.watch.Normalize(msg.Topic, msg.Watch, receivedAt)
	case models.FamilyQube:
		if msg.Gateway.Type != models.MsgTypeReportAttribute {
			return nil, nil // terminal heartbeat
		}
		return n.terminal.Normalize(msg.Gateway, receivedAt)
	default:
		return nil, fmt.Errorf("%w: unknown family %q", models.ErrMalformed, msg.Family)
	}
}

// KindForAttribute maps a gateway attribute tag to its vital-sign kind.
// Used by the resolver to pick the registry MAC slot before decoding.
func KindForAttribute(family models.DeviceFamily, tag string) (models.VitalKind, bool) {
	switch family {
	case models.FamilyAVA4:
		kind, ok := hubAttributeKinds[tag]
		return kind, ok
	case models.FamilyQube:
		kind, ok := qubeAttributeKinds[tag]
		return kind, ok
	default:
		return "", false
	}
}
