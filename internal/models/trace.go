package models

import "time"

// Pipeline trace steps, in expected per-message order.
type TraceStep string

const (
	StepReceived          TraceStep = "received"
	StepParsed            TraceStep = "parsed"
	StepIdentityResolved  TraceStep = "identity_resolved"
	StepRecordUpdated     TraceStep = "record_updated"
	StepObservationStored TraceStep = "observation_stored"
	StepProjected         TraceStep = "projected"
)

// Trace statuses.
type TraceStatus string

const (
	TraceSuccess TraceStatus = "success"
	TraceError   TraceStatus = "error"
	TraceSkipped TraceStatus = "skipped"
)

// TraceEvent is one diagnostic record describing a pipeline stage for one
// message. Ephemeral: forwarded to the observability sink, never persisted.
type TraceEvent struct {
	ID        string                 `json:"id"`
	Step      TraceStep              `json:"step"`
	Status    TraceStatus            `json:"status"`
	Family    DeviceFamily           `json:"family,omitempty"`
	Topic     string                 `json:"topic"`
	Timestamp time.Time              `json:"timestamp"`
	Outcome   string                 `json:"outcome,omitempty"` // e.g. "unmapped_device"
	Kind      VitalKind              `json:"kind,omitempty"`
	Payload   map[string]interface{} `json:"payload,omitempty"` // redacted snapshot
	Error     string                 `json:"error,omitempty"`
}
