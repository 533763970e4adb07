package normalizer

import (
	"fmt"
	"time"

	"github.com/TELY01-DEV/stardust-my-firstcare-com-sub004/internal/coerce"
	"github.com/TELY01-DEV/stardust-my-firstcare-com-sub004/internal/models"
)

// scanDecoder decodes one device_list scan entry into an observation.
// AVA4 and Qube share the scan shapes (both gateways relay the same BLE
// sensor frames); only the attribute tag vocabularies differ.
type scanDecoder func(scan map[string]interface{}) (*models.Observation, error)

// decodeScanList runs a decoder over every scan in a gateway value block.
// Each scan carries its own scan_time; entries without one fall back to the
// message receive time.
func decodeScanList(value models.GatewayValue, deviceID string, family models.DeviceFamily, receivedAt time.Time, decode scanDecoder) ([]models.Observation, error) {
	if len(value.DeviceList) == 0 {
		return nil, fmt.Errorf("%w: empty device_list", models.ErrDecode)
	}

	observations := make([]models.Observation, 0, len(value.DeviceList))
	for i, scan := range value.DeviceList {
		obs, err := decode(scan)
		if err != nil {
			return nil, fmt.Errorf("%w: scan %d: %v", models.ErrDecode, i, err)
		}

		obs.Timestamp = scanTime(scan, receivedAt)
		obs.Family = family
		obs.DeviceID = scanDeviceID(scan, deviceID)
		observations = append(observations, *obs)
	}
	return observations, nil
}

func scanTime(scan map[string]interface{}, receivedAt time.Time) time.Time {
	if ts, err := coerce.Int64(scan["scan_time"]); err == nil && ts > 0 {
		return time.Unix(ts, 0).UTC()
	}
	return receivedAt.UTC()
}

func scanDeviceID(scan map[string]interface{}, fallback string) string {
	if addr, err := coerce.String(scan["ble_addr"]); err == nil && addr != "" {
		return addr
	}
	return fallback
}

// intAny coerces a mandatory integer from the first present key. Sensor
// firmware revisions disagree on field-name casing.
func intAny(scan map[string]interface{}, keys ...string) (int, error) {
	for _, k := range keys {
		if v, ok := scan[k]; ok && v != nil {
			return coerce.Int(v)
		}
	}
	return 0, fmt.Errorf("missing field %q", keys[0])
}

func floatAny(scan map[string]interface{}, keys ...string) (float64, error) {
	for _, k := range keys {
		if v, ok := scan[k]; ok && v != nil {
			return coerce.Float64(v)
		}
	}
	return 0, fmt.Errorf("missing field %q", keys[0])
}

func optionalIntAny(scan map[string]interface{}, keys ...string) *int {
	for _, k := range keys {
		if v, ok := scan[k]; ok && v != nil {
			if n, err := coerce.Int(v); err == nil {
				return &n
			}
		}
	}
	return nil
}

// Shared scan decoders.

func decodeBloodPressureScan(scan map[string]interface{}) (*models.Observation, error) {
	systolic, err := intAny(scan, "bp_high", "sys")
	if err != nil {
		return nil, err
	}
	diastolic, err := intAny(scan, "bp_low", "dia")
	if err != nil {
		return nil, err
	}

	return &models.Observation{
		Kind: models.KindBloodPressure,
		BloodPressure: &models.BloodPressure{
			Systolic:  systolic,
			Diastolic: diastolic,
			Pulse:     optionalIntAny(scan, "PR", "pr", "pulse"),
		},
	}, nil
}

func decodeSpO2Scan(scan map[string]interface{}) (*models.Observation, error) {
	percent, err := intAny(scan, "spo2", "SpO2")
	if err != nil {
		return nil, err
	}

	pi, err := coerce.OptionalFloat(scan, "pi")
	if err != nil {
		return nil, err
	}

	return &models.Observation{
		Kind: models.KindSpO2,
		SpO2: &models.SpO2{
			Percent:        percent,
			PulseRate:      optionalIntAny(scan, "pulse", "PR", "pr"),
			PerfusionIndex: pi,
		},
	}, nil
}

func decodeGlucoseScan(scan map[string]interface{}) (*models.Observation, error) {
	value, err := floatAny(scan, "blood_glucose", "glucose")
	if err != nil {
		return nil, err
	}

	return &models.Observation{
		Kind: models.KindBloodSugar,
		Glucose: &models.Glucose{
			MgPerDl:    value,
			MealMarker: coerce.OptionalString(scan, "marker"),
		},
	}, nil
}

func decodeTemperatureScan(scan map[string]interface{}) (*models.Observation, error) {
	celsius, err := floatAny(scan, "temp", "Temp", "temperature")
	if err != nil {
		return nil, err
	}

	return &models.Observation{
		Kind: models.KindBodyTemperature,
		Temperature: &models.Temperature{
			Celsius: celsius,
			Mode:    coerce.OptionalString(scan, "mode"),
		},
	}, nil
}

func decodeWeightScan(scan map[string]interface{}) (*models.Observation, error) {
	kg, err := floatAny(scan, "weight")
	if err != nil {
		return nil, err
	}

	bmi, err := coerce.OptionalFloat(scan, "bmi")
	if err != nil {
		return nil, err
	}
	bodyFat, err := coerce.OptionalFloat(scan, "body_fat")
	if err != nil {
		return nil, err
	}
	resistance, err := coerce.OptionalFloat(scan, "resistance")
	if err != nil {
		resistance, _ = coerce.OptionalFloat(scan, "Resistance")
	}

	return &models.Observation{
		Kind: models.KindWeight,
		Weight: &models.Weight{
			Kg:         kg,
			BMI:        bmi,
			BodyFat:    bodyFat,
			Resistance: resistance,
		},
	}, nil
}

func decodeUricAcidScan(scan map[string]interface{}) (*models.Observation, error) {
	value, err := floatAny(scan, "uric_acid")
	if err != nil {
		return nil, err
	}

	return &models.Observation{
		Kind:     models.KindUricAcid,
		UricAcid: &models.UricAcid{MgPerDl: value},
	}, nil
}

func decodeCholesterolScan(scan map[string]interface{}) (*models.Observation, error) {
	value, err := floatAny(scan, "cholesterol")
	if err != nil {
		return nil, err
	}

	return &models.Observation{
		Kind:        models.KindCholesterol,
		Cholesterol: &models.Cholesterol{MgPerDl: value},
	}, nil
}
