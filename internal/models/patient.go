package models

import (
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

// Registration status of a patient record.
const (
	RegistrationRegistered  = "registered"
	RegistrationProvisional = "provisional" // synthesized from a terminal message, pending review
)

// LastObservation is one "latest value" slot on the patient record.
type LastObservation struct {
	Data      bson.M    `bson:"data"`
	DeviceID  string    `bson:"device_id"`
	Family    string    `bson:"family"`
	UpdatedAt time.Time `bson:"updated_at"`
}

// Patient is the patient document (collection: patients). The core reads the
// identity anchors and writes only the last_* slots; everything else belongs
// to the admin surface.
type Patient struct {
	ID primitive.ObjectID `bson:"_id,omitempty"`

	// identity anchors
	CitizenID     string `bson:"id_card,omitempty"`
	AVAMacAddress string `bson:"ava_mac_address,omitempty"`
	WatchIMEI     string `bson:"watch_imei,omitempty"`

	// demographics
	FirstName string    `bson:"first_name,omitempty"`
	LastName  string    `bson:"last_name,omitempty"`
	NameTH    string    `bson:"name_th,omitempty"`
	NameEN    string    `bson:"name_en,omitempty"`
	BirthDate string    `bson:"birth_date,omitempty"` // compact numeric form as received
	DOB       time.Time `bson:"dob,omitempty"`
	Gender    string    `bson:"gender,omitempty"`

	RegistrationStatus string `bson:"registration_status,omitempty"`

	LastBloodPressure   *LastObservation `bson:"last_blood_pressure,omitempty"`
	LastSpO2            *LastObservation `bson:"last_spo2,omitempty"`
	LastBloodSugar      *LastObservation `bson:"last_blood_sugar,omitempty"`
	LastBodyTemperature *LastObservation `bson:"last_body_temperature,omitempty"`
	LastWeight          *LastObservation `bson:"last_weight,omitempty"`
	LastUricAcid        *LastObservation `bson:"last_uric_acid,omitempty"`
	LastCholesterol     *LastObservation `bson:"last_cholesterol,omitempty"`
	LastHeartRate       *LastObservation `bson:"last_heart_rate,omitempty"`
	LastSteps           *LastObservation `bson:"last_steps,omitempty"`
	LastSleep           *LastObservation `bson:"last_sleep,omitempty"`
	LastLocation        *LastObservation `bson:"last_location,omitempty"`

	CreatedAt time.Time `bson:"created_at,omitempty"`
	UpdatedAt time.Time `bson:"updated_at,omitempty"`
}

// CitizenClaims is the demographic block a hospital terminal attaches to every
// report, used to synthesize a provisional patient for an unknown citizen ID.
type CitizenClaims struct {
	CitizenID string
	NameTH    string
	NameEN    string
	BirthDate string // Buddhist-era yyyymmdd, e.g. "25200331"
	Gender    string // "1" male, "2" female per the terminal firmware
}
