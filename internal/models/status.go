package models

import "time"

// Alert kinds tracked on a device status record.
type AlertKind string

const (
	AlertLowBattery AlertKind = "low_battery"
	AlertPoorSignal AlertKind = "poor_signal"
	AlertSOSActive  AlertKind = "sos"
	AlertFallActive AlertKind = "fall"
)

// AlertState is one alert flag with the time it last flipped.
type AlertState struct {
	Active    bool      `bson:"active"`
	ChangedAt time.Time `bson:"changed_at"`
}

// DeviceStatus is the per-device health document (collection: device_status),
// keyed by the device identifier (hub MAC, watch IMEI or terminal MAC).
// Created on first message, updated on every message. The core only ever
// marks devices online; the staleness sweep that marks them offline runs
// elsewhere.
type DeviceStatus struct {
	DeviceID          string       `bson:"device_id"`
	Family            DeviceFamily `bson:"family"`
	Online            bool         `bson:"online"`
	LastSeen          time.Time    `bson:"last_seen"`
	BatteryPercent    *int         `bson:"battery_percent,omitempty"`
	SignalPercent     *int         `bson:"signal_percent,omitempty"`
	ConnectionQuality *string      `bson:"connection_quality,omitempty"`

	Alerts map[AlertKind]AlertState `bson:"alerts,omitempty"`

	CreatedAt time.Time `bson:"created_at,omitempty"`
	UpdatedAt time.Time `bson:"updated_at,omitempty"`
}

// Alert reports the state of one alert flag, absent flags being inactive.
func (s *DeviceStatus) Alert(kind AlertKind) AlertState {
	if s == nil || s.Alerts == nil {
		return AlertState{}
	}
	return s.Alerts[kind]
}

// StatusUpdate is the partial update one message contributes to a device
// status document. Only populated fields are written, and Alerts carries
// only the flags this message transitions, so concurrent writers to the
// same device never erase each other's fields.
type StatusUpdate struct {
	Family            DeviceFamily
	LastSeen          time.Time // applied with $max; zero leaves online/last_seen untouched
	BatteryPercent    *int
	SignalPercent     *int
	ConnectionQuality *string
	Alerts            map[AlertKind]AlertState
	UpdatedAt         time.Time
}
