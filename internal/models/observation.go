package models

import "time"

// VitalKind identifies a canonical observation variant.
type VitalKind string

const (
	KindBloodPressure   VitalKind = "blood_pressure"
	KindSpO2            VitalKind = "spo2"
	KindBloodSugar      VitalKind = "blood_sugar"
	KindBodyTemperature VitalKind = "body_temperature"
	KindWeight          VitalKind = "weight"
	KindUricAcid        VitalKind = "uric_acid"
	KindCholesterol     VitalKind = "cholesterol"
	KindHeartRate       VitalKind = "heart_rate"
	KindSteps           VitalKind = "steps"
	KindSleep           VitalKind = "sleep"
	KindLocation        VitalKind = "location"
	KindEmergencyAlert  VitalKind = "emergency_alert"
)

// Observation is the canonical normalized reading. Exactly one variant
// pointer is non-nil, selected by Kind.
type Observation struct {
	Kind      VitalKind
	Timestamp time.Time
	DeviceID  string
	Family    DeviceFamily

	BloodPressure  *BloodPressure
	SpO2           *SpO2
	Glucose        *Glucose
	Temperature    *Temperature
	Weight         *Weight
	UricAcid       *UricAcid
	Cholesterol    *Cholesterol
	HeartRate      *HeartRate
	Steps          *Steps
	Sleep          *Sleep
	Location       *Location
	EmergencyAlert *EmergencyAlert
}

// BloodPressure in mmHg, pulse in bpm.
type BloodPressure struct {
	Systolic  int  `bson:"systolic" json:"systolic"`
	Diastolic int  `bson:"diastolic" json:"diastolic"`
	Pulse     *int `bson:"pulse,omitempty" json:"pulse,omitempty"`
}

// SpO2 oxygen saturation. PerfusionIndex is absent on sensors that do not report it.
type SpO2 struct {
	Percent        int      `bson:"percent" json:"percent"`
	PulseRate      *int     `bson:"pulse_rate,omitempty" json:"pulse_rate,omitempty"`
	PerfusionIndex *float64 `bson:"perfusion_index,omitempty" json:"perfusion_index,omitempty"`
}

// Glucose in mg/dL. MealMarker is the meter's before/after-meal tag when present.
type Glucose struct {
	MgPerDl    float64 `bson:"mg_per_dl" json:"mg_per_dl"`
	MealMarker *string `bson:"meal_marker,omitempty" json:"meal_marker,omitempty"`
}

// Temperature in Celsius. Mode distinguishes body vs surface measurement on IR thermometers.
type Temperature struct {
	Celsius float64 `bson:"celsius" json:"celsius"`
	Mode    *string `bson:"mode,omitempty" json:"mode,omitempty"`
}

// Weight in kilograms.
type Weight struct {
	Kg         float64  `bson:"kg" json:"kg"`
	BMI        *float64 `bson:"bmi,omitempty" json:"bmi,omitempty"`
	BodyFat    *float64 `bson:"body_fat,omitempty" json:"body_fat,omitempty"`
	Resistance *float64 `bson:"resistance,omitempty" json:"resistance,omitempty"`
}

// UricAcid in mg/dL.
type UricAcid struct {
	MgPerDl float64 `bson:"mg_per_dl" json:"mg_per_dl"`
}

// Cholesterol in mg/dL.
type Cholesterol struct {
	MgPerDl float64 `bson:"mg_per_dl" json:"mg_per_dl"`
}

// HeartRate in bpm.
type HeartRate struct {
	Bpm int `bson:"bpm" json:"bpm"`
}

// Steps is the cumulative step count reported with a watch heartbeat.
type Steps struct {
	Count int `bson:"count" json:"count"`
}

// Sleep is one reported sleep session. Pattern is the watch's per-interval
// stage string, Period its "HHMM@HHMM" start/end window.
type Sleep struct {
	Period  string `bson:"period" json:"period"`
	Pattern string `bson:"pattern" json:"pattern"`
	Samples int    `bson:"samples" json:"samples"`
}

// Location is a positioning fix; any subset of the three sources may be present.
type Location struct {
	GPS  *GPSFix                `bson:"gps,omitempty" json:"gps,omitempty"`
	WiFi map[string]interface{} `bson:"wifi,omitempty" json:"wifi,omitempty"`
	LBS  map[string]interface{} `bson:"lbs,omitempty" json:"lbs,omitempty"`
}

// GPSFix is a satellite position fix.
type GPSFix struct {
	Latitude  float64  `bson:"latitude" json:"latitude"`
	Longitude float64  `bson:"longitude" json:"longitude"`
	Speed     *float64 `bson:"speed,omitempty" json:"speed,omitempty"`
	Heading   *float64 `bson:"heading,omitempty" json:"heading,omitempty"`
}

// Alert kinds carried by EmergencyAlert observations.
const (
	AlertSOS  = "sos"
	AlertFall = "fall"
)

// EmergencyAlert is an SOS or fall-detection event. Not a vital sign: it has
// no "last value" slot and instead drives the device status alert flags.
type EmergencyAlert struct {
	Kind     string    `bson:"kind" json:"kind"`
	Location *Location `bson:"location,omitempty" json:"location,omitempty"`
}

// Data returns the active variant for persistence.
func (o *Observation) Data() interface{} {
	switch o.Kind {
	case KindBloodPressure:
		return o.BloodPressure
	case KindSpO2:
		return o.SpO2
	case KindBloodSugar:
		return o.Glucose
	case KindBodyTemperature:
		return o.Temperature
	case KindWeight:
		return o.Weight
	case KindUricAcid:
		return o.UricAcid
	case KindCholesterol:
		return o.Cholesterol
	case KindHeartRate:
		return o.HeartRate
	case KindSteps:
		return o.Steps
	case KindSleep:
		return o.Sleep
	case KindLocation:
		return o.Location
	case KindEmergencyAlert:
		return o.EmergencyAlert
	default:
		return nil
	}
}

// HistoryCollection returns the per-kind history collection name.
func HistoryCollection(kind VitalKind) string {
	return string(kind) + "_histories"
}

// LastSlotField returns the patient-record "last value" field for a kind,
// or "" for kinds that have no latest-value concept (emergency alerts).
func LastSlotField(kind VitalKind) string {
	if kind == KindEmergencyAlert {
		return ""
	}
	return "last_" + string(kind)
}
