package models

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// DeviceFamily identifies one of the three device ecosystems.
type DeviceFamily string

const (
	FamilyAVA4 DeviceFamily = "AVA4" // BLE gateway hub and its sub-devices
	FamilyKati DeviceFamily = "Kati" // cellular GPS health watch
	FamilyQube DeviceFamily = "Qube" // hospital vital-signs terminal
)

// RegistryEntry maps an AVA4 hub and its BLE sub-devices to an owning patient.
// Each vital-sign kind has its own MAC slot because a patient pairs one
// sensor per kind with the hub (collection: amy_devices).
type RegistryEntry struct {
	ID        primitive.ObjectID `bson:"_id,omitempty"`
	PatientID primitive.ObjectID `bson:"patient_id"`
	MacGw     string             `bson:"mac_gw,omitempty"`
	MacBps    string             `bson:"mac_bps,omitempty"`
	MacOxy    string             `bson:"mac_oxymeter,omitempty"`
	MacGluc   string             `bson:"mac_gluc,omitempty"`
	MacTemp   string             `bson:"mac_body_temp,omitempty"`
	MacWeight string             `bson:"mac_weight,omitempty"`
	MacUA     string             `bson:"mac_ua,omitempty"`
	MacChol   string             `bson:"mac_chol,omitempty"`
	UpdatedAt time.Time          `bson:"updated_at,omitempty"`
}

// Watch maps a Kati watch IMEI to an owning patient (collection: watches).
type Watch struct {
	ID        primitive.ObjectID `bson:"_id,omitempty"`
	IMEI      string             `bson:"imei"`
	PatientID primitive.ObjectID `bson:"patient_id,omitempty"`
}

// RegistryMacField returns the amy_devices field holding the sub-device MAC
// for a vital-sign kind, or "" when the kind has no registry slot.
func RegistryMacField(kind VitalKind) string {
	switch kind {
	case KindBloodPressure:
		return "mac_bps"
	case KindSpO2:
		return "mac_oxymeter"
	case KindBloodSugar:
		return "mac_gluc"
	case KindBodyTemperature:
		return "mac_body_temp"
	case KindWeight:
		return "mac_weight"
	case KindUricAcid:
		return "mac_ua"
	case KindCholesterol:
		return "mac_chol"
	default:
		return ""
	}
}
