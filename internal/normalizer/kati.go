package normalizer

import (
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/TELY01-DEV/stardust-my-firstcare-com-sub004/internal/coerce"
	"github.com/TELY01-DEV/stardust-my-firstcare-com-sub004/internal/models"
)

// watchTimeLayout is the timestamp format the watch firmware uses on
// push topics ("16/06/2025 12:30:45", UTC).
const watchTimeLayout = "02/01/2006 15:04:05"

// watchDecoder decodes one watch topic payload.
type watchDecoder func(env *models.WatchEnvelope, receivedAt time.Time) ([]models.Observation, error)

// WatchNormalizer decodes Kati watch payloads. The topic is the attribute
// tag for this family: each push topic carries one fixed payload shape.
type WatchNormalizer struct {
	decoders map[string]watchDecoder
	logger   *zap.Logger
}

// NewWatchNormalizer builds the watch decoder table.
func NewWatchNormalizer(logger *zap.Logger) *WatchNormalizer {
	n := &WatchNormalizer{logger: logger}
	n.decoders = map[string]watchDecoder{
		models.TopicWatchVitalSign: n.decodeVitalSign,
		models.TopicWatchBatch:     n.decodeBatch,
		models.TopicWatchLocation:  n.decodeLocation,
		models.TopicWatchSleep:     n.decodeSleep,
		models.TopicWatchHeartbeat: n.decodeHeartbeat,
		models.TopicWatchSOS:       n.decodeSOS,
		models.TopicWatchFall:      n.decodeFall,
	}
	return n
}

// Normalize decodes a watch payload. Topics without observation content
// (onlineTrigger) yield (nil, nil).
func (n *WatchNormalizer) Normalize(topic string, env *models.WatchEnvelope, receivedAt time.Time) ([]models.Observation, error) {
	decode, ok := n.decoders[topic]
	if !ok {
		return nil, nil
	}
	observations, err := decode(env, receivedAt)
	if err != nil {
		return nil, err
	}
	for i := range observations {
		observations[i].Family = models.FamilyKati
		observations[i].DeviceID = env.IMEI
	}
	return observations, nil
}

// decodeVitalSign handles the single-reading push: one envelope may carry
// blood pressure, SpO2, temperature and heart rate together, producing one
// observation per vital present. An envelope with none of them is a decode
// error.
func (n *WatchNormalizer) decodeVitalSign(env *models.WatchEnvelope, receivedAt time.Time) ([]models.Observation, error) {
	ts := watchTime(env.Raw, "timeStamps", receivedAt)
	observations := readingObservations(env.Raw, ts)
	if len(observations) == 0 {
		return nil, fmt.Errorf("%w: vital sign push without any vital field", models.ErrDecode)
	}
	return observations, nil
}

// decodeBatch handles the periodic historical dataset (AP55): an array of
// readings, each timestamped by its own entry, never by receive time.
// Entries without a timestamp are back-dated by position at one-minute
// spacing, oldest first.
func (n *WatchNormalizer) decodeBatch(env *models.WatchEnvelope, receivedAt time.Time) ([]models.Observation, error) {
	rawEntries, ok := env.Raw["data"].([]interface{})
	if !ok || len(rawEntries) == 0 {
		return nil, fmt.Errorf("%w: batch push without data array", models.ErrDecode)
	}

	var observations []models.Observation
	for i, rawEntry := range rawEntries {
		entry, ok := rawEntry.(map[string]interface{})
		if !ok {
			return nil, fmt.Errorf("%w: batch entry %d is not an object", models.ErrDecode, i)
		}

		ts := watchTime(entry, "timestamp", time.Time{})
		if ts.IsZero() {
			ts = receivedAt.Add(-time.Duration(len(rawEntries)-1-i) * time.Minute).UTC()
		}

		entryObs := readingObservations(entry, ts)
		if len(entryObs) == 0 {
			return nil, fmt.Errorf("%w: batch entry %d without any vital field", models.ErrDecode, i)
		}
		observations = append(observations, entryObs...)
	}
	return observations, nil
}

// readingObservations extracts the vitals present in one reading document.
func readingObservations(doc map[string]interface{}, ts time.Time) []models.Observation {
	var observations []models.Observation

	pulse, _ := coerce.OptionalInt(doc, "heartRate")

	if bp, ok := doc["bloodPressure"].(map[string]interface{}); ok {
		systolic, errS := coerce.IntField(bp, "bp_sys")
		diastolic, errD := coerce.IntField(bp, "bp_dia")
		if errS == nil && errD == nil {
			observations = append(observations, models.Observation{
				Kind:      models.KindBloodPressure,
				Timestamp: ts,
				BloodPressure: &models.BloodPressure{
					Systolic:  systolic,
					Diastolic: diastolic,
					Pulse:     pulse,
				},
			})
		}
	}

	if spo2, err := coerce.OptionalInt(doc, "spO2"); err == nil && spo2 != nil && *spo2 > 0 {
		observations = append(observations, models.Observation{
			Kind:      models.KindSpO2,
			Timestamp: ts,
			SpO2: &models.SpO2{
				Percent:   *spo2,
				PulseRate: pulse,
			},
		})
	}

	if temp, err := coerce.OptionalFloat(doc, "bodyTemperature"); err == nil && temp != nil && *temp > 0 {
		observations = append(observations, models.Observation{
			Kind:        models.KindBodyTemperature,
			Timestamp:   ts,
			Temperature: &models.Temperature{Celsius: *temp},
		})
	}

	if pulse != nil && *pulse > 0 {
		observations = append(observations, models.Observation{
			Kind:      models.KindHeartRate,
			Timestamp: ts,
			HeartRate: &models.HeartRate{Bpm: *pulse},
		})
	}

	return observations
}

func (n *WatchNormalizer) decodeLocation(env *models.WatchEnvelope, receivedAt time.Time) ([]models.Observation, error) {
	location, err := decodeLocationBlock(env.Raw)
	if err != nil {
		return nil, err
	}
	if location == nil {
		return nil, fmt.Errorf("%w: location push without location block", models.ErrDecode)
	}

	return []models.Observation{{
		Kind:      models.KindLocation,
		Timestamp: watchTime(env.Raw, "timeStamps", receivedAt),
		Location:  location,
	}}, nil
}

func (n *WatchNormalizer) decodeSleep(env *models.WatchEnvelope, receivedAt time.Time) ([]models.Observation, error) {
	sleep, ok := env.Raw["sleep"].(map[string]interface{})
	if !ok {
		return nil, fmt.Errorf("%w: sleep push without sleep block", models.ErrDecode)
	}

	period, err := coerce.String(sleep["time"])
	if err != nil {
		return nil, fmt.Errorf("%w: sleep period: %v", models.ErrDecode, err)
	}
	pattern, err := coerce.String(sleep["data"])
	if err != nil {
		return nil, fmt.Errorf("%w: sleep pattern: %v", models.ErrDecode, err)
	}
	samples, _ := coerce.Int(sleep["num"])

	return []models.Observation{{
		Kind:      models.KindSleep,
		Timestamp: watchTime(sleep, "timeStamps", receivedAt),
		Sleep: &models.Sleep{
			Period:  period,
			Pattern: pattern,
			Samples: samples,
		},
	}}, nil
}

// decodeHeartbeat extracts the step counter from the heartbeat push. The
// battery and signal fields of the same payload feed the status tracker, not
// the normalizer.
func (n *WatchNormalizer) decodeHeartbeat(env *models.WatchEnvelope, receivedAt time.Time) ([]models.Observation, error) {
	steps, err := coerce.OptionalInt(env.Raw, "step")
	if err != nil {
		return nil, fmt.Errorf("%w: %v", models.ErrDecode, err)
	}
	if steps == nil {
		return nil, nil // plain heartbeat without a step counter
	}

	return []models.Observation{{
		Kind:      models.KindSteps,
		Timestamp: watchTime(env.Raw, "timeStamps", receivedAt),
		Steps:     &models.Steps{Count: *steps},
	}}, nil
}

func (n *WatchNormalizer) decodeSOS(env *models.WatchEnvelope, receivedAt time.Time) ([]models.Observation, error) {
	return n.decodeAlert(env, receivedAt, models.AlertSOS)
}

func (n *WatchNormalizer) decodeFall(env *models.WatchEnvelope, receivedAt time.Time) ([]models.Observation, error) {
	return n.decodeAlert(env, receivedAt, models.AlertFall)
}

func (n *WatchNormalizer) decodeAlert(env *models.WatchEnvelope, receivedAt time.Time, kind string) ([]models.Observation, error) {
	location, err := decodeLocationBlock(env.Raw)
	if err != nil {
		// alerts go through even when the fix is unreadable
		n.logger.Warn("Unreadable location on emergency alert",
			zap.String("imei", env.IMEI),
			zap.Error(err),
		)
		location = nil
	}

	return []models.Observation{{
		Kind:      models.KindEmergencyAlert,
		Timestamp: receivedAt.UTC(),
		EmergencyAlert: &models.EmergencyAlert{
			Kind:     kind,
			Location: location,
		},
	}}, nil
}

// decodeLocationBlock parses the watch's three-source location block. Any
// subset of GPS/WiFi/LBS may be present; nil means the block is absent.
func decodeLocationBlock(doc map[string]interface{}) (*models.Location, error) {
	block, ok := doc["location"].(map[string]interface{})
	if !ok {
		return nil, nil
	}

	location := &models.Location{}

	if gps, ok := block["GPS"].(map[string]interface{}); ok {
		lat, errLat := coerce.FloatField(gps, "latitude")
		lon, errLon := coerce.FloatField(gps, "longitude")
		if errLat != nil || errLon != nil {
			return nil, fmt.Errorf("%w: GPS fix missing coordinates", models.ErrDecode)
		}
		speed, _ := coerce.OptionalFloat(gps, "speed")
		heading, _ := coerce.OptionalFloat(gps, "header")
		location.GPS = &models.GPSFix{
			Latitude:  lat,
			Longitude: lon,
			Speed:     speed,
			Heading:   heading,
		}
	}

	if wifi, ok := block["WiFi"].(map[string]interface{}); ok {
		location.WiFi = wifi
	}
	if lbs, ok := block["LBS"].(map[string]interface{}); ok {
		location.LBS = lbs
	}

	if location.GPS == nil && location.WiFi == nil && location.LBS == nil {
		return nil, nil
	}
	return location, nil
}

// watchTime reads a timestamp that arrives either as unix seconds or as the
// firmware's "dd/mm/yyyy hh:mm:ss" string.
func watchTime(doc map[string]interface{}, key string, fallback time.Time) time.Time {
	v, ok := doc[key]
	if !ok || v == nil {
		return fallback.UTC()
	}
	if unix, err := coerce.Int64(v); err == nil && unix > 0 {
		return time.Unix(unix, 0).UTC()
	}
	if s, err := coerce.String(v); err == nil {
		if ts, err := time.Parse(watchTimeLayout, s); err == nil {
			return ts.UTC()
		}
	}
	return fallback.UTC()
}
