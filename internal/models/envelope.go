package models

import (
	"encoding/json"
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// GatewayEnvelope is the wire shape shared by the AVA4 hub (topics
// ESP32_BLE_GW_TX / dusun_sub) and the Qube-Vital terminal (CM4_BLE_GW_TX).
type GatewayEnvelope struct {
	From       string      `json:"from"`
	To         string      `json:"to"`
	Name       string      `json:"name,omitempty"`
	Time       int64       `json:"time"`
	MAC        string      `json:"mac"`
	IMEI       string      `json:"IMEI,omitempty"`
	ICCID      string      `json:"ICCID,omitempty"`
	Type       string      `json:"type"` // "reportAttribute" or "HB_Msg"
	Device     string      `json:"device,omitempty"`
	DeviceCode string      `json:"deviceCode,omitempty"`
	Data       GatewayData `json:"data"`
}

// Gateway message types.
const (
	MsgTypeReportAttribute = "reportAttribute"
	MsgTypeHeartbeat       = "HB_Msg"
)

// GatewayData is the data block of a gateway envelope. The citizen fields are
// only present on terminal messages, which carry identity and measurement in
// one envelope.
type GatewayData struct {
	Msg       string       `json:"msg,omitempty"`
	Attribute string       `json:"attribute,omitempty"`
	MAC       string       `json:"mac,omitempty"`
	Value     GatewayValue `json:"value,omitempty"`

	Citizen string `json:"citiz,omitempty"`
	NameTH  string `json:"nameTH,omitempty"`
	NameEN  string `json:"nameEN,omitempty"`
	Birth   string `json:"brith,omitempty"` // field name as transmitted by the firmware
	Gender  string `json:"gender,omitempty"`
}

// GatewayValue carries one scan list. Entries stay untyped: field names and
// value representations vary per sensor model, so decoders coerce per field.
type GatewayValue struct {
	DeviceList []map[string]interface{} `json:"device_list"`
}

// Claims extracts the citizen demographic block of a terminal message.
func (d *GatewayData) Claims() CitizenClaims {
	return CitizenClaims{
		CitizenID: d.Citizen,
		NameTH:    d.NameTH,
		NameEN:    d.NameEN,
		BirthDate: d.Birth,
		Gender:    d.Gender,
	}
}

// ParseGatewayEnvelope decodes an AVA4 or Qube payload.
func ParseGatewayEnvelope(payload []byte) (*GatewayEnvelope, error) {
	var env GatewayEnvelope
	if err := json.Unmarshal(payload, &env); err != nil {
		return nil, err
	}
	return &env, nil
}

// WatchEnvelope is a Kati watch payload. The watch topics share only the IMEI
// field; everything else is topic-specific and decoded permissively.
type WatchEnvelope struct {
	IMEI string
	Raw  map[string]interface{}
}

// ParseWatchEnvelope decodes a Kati payload, keeping the full document for
// the topic decoders.
func ParseWatchEnvelope(payload []byte) (*WatchEnvelope, error) {
	var raw map[string]interface{}
	if err := json.Unmarshal(payload, &raw); err != nil {
		return nil, err
	}
	imei, _ := raw["IMEI"].(string)
	return &WatchEnvelope{IMEI: imei, Raw: raw}, nil
}

// HistoryRecord is one append-only entry in a per-kind history collection.
type HistoryRecord struct {
	ID        primitive.ObjectID `bson:"_id,omitempty"`
	PatientID primitive.ObjectID `bson:"patient_id"`
	DeviceID  string             `bson:"device_id"`
	Family    DeviceFamily       `bson:"family"`
	Data      interface{}        `bson:"data"`
	Timestamp time.Time          `bson:"timestamp"`
	CreatedAt time.Time          `bson:"created_at"`
}
