package pipeline

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/TELY01-DEV/stardust-my-firstcare-com-sub004/internal/models"
	"github.com/TELY01-DEV/stardust-my-firstcare-com-sub004/internal/normalizer"
	"github.com/TELY01-DEV/stardust-my-firstcare-com-sub004/internal/resolver"
	"github.com/TELY01-DEV/stardust-my-firstcare-com-sub004/internal/store"
	"github.com/TELY01-DEV/stardust-my-firstcare-com-sub004/internal/tracker"
)

// harness wires a pipeline over in-memory fakes with the real resolver,
// normalizer, tracker and store in between.
type harness struct {
	patients  *fakePatients
	registry  *fakeRegistry
	statuses  *fakeStatusStore
	history   *fakeHistory
	projector *fakeProjector
	traces    *traceRecorder
	pipeline  *Pipeline
}

func newHarness() *harness {
	logger := zap.NewNop()
	h := &harness{
		patients:  newFakePatients(),
		registry:  newFakeRegistry(),
		statuses:  newFakeStatusStore(),
		history:   newFakeHistory(),
		projector: &fakeProjector{},
		traces:    &traceRecorder{},
	}

	track := tracker.New(h.statuses, tracker.Thresholds{LowBatteryPercent: 20, PoorSignalPercent: 30}, logger)
	h.pipeline = New(
		resolver.New(h.patients, h.registry, logger),
		normalizer.New(logger),
		store.New(h.patients, h.history, track, logger),
		track,
		h.projector,
		h.traces,
		time.Second,
		logger,
	)
	return h
}

func mustJSON(t *testing.T, doc map[string]interface{}) []byte {
	t.Helper()
	payload, err := json.Marshal(doc)
	require.NoError(t, err)
	return payload
}

func hubBPPayload(t *testing.T) []byte {
	t.Helper()
	return mustJSON(t, map[string]interface{}{
		"from": "BLE",
		"to":   "CLOUD",
		"time": 1750075845,
		"mac":  "08:F9:E0:D1:F7:B4",
		"type": "reportAttribute",
		"data": map[string]interface{}{
			"attribute": "BP_BIOLIGTH",
			"mac":       "d616f9641622",
			"value": map[string]interface{}{
				"device_list": []map[string]interface{}{{
					"scan_time": 1750075845,
					"ble_addr":  "d616f9641622",
					"bp_high":   137,
					"bp_low":    95,
					"PR":        "74",
				}},
			},
		},
	})
}

func TestProcess_HubBloodPressureEndToEnd(t *testing.T) {
	h := newHarness()
	patient := h.patients.add(&models.Patient{})
	h.registry.mapSubDevice("mac_bps", "d616f9641622", patient.ID)

	err := h.pipeline.Process(context.Background(), models.TopicHubData, hubBPPayload(t))
	require.NoError(t, err)

	assert.Equal(t, []string{
		"received:success",
		"parsed:success",
		"identity_resolved:success",
		"record_updated:success",
		"observation_stored:success",
		"projected:success",
	}, h.traces.steps())

	// last-value slot
	require.Len(t, h.patients.slotWrites, 1)
	write := h.patients.slotWrites[0]
	assert.Equal(t, patient.ID, write.patientID)
	assert.Equal(t, "last_blood_pressure", write.field)
	assert.EqualValues(t, 137, write.slot.Data["systolic"])
	assert.EqualValues(t, 95, write.slot.Data["diastolic"])

	// one history record, one projected resource
	assert.Len(t, h.history.records, 1)
	assert.Equal(t, []models.VitalKind{models.KindBloodPressure}, h.projector.published)

	// status touched for the sub-device
	status := h.statuses.statuses["d616f9641622"]
	require.NotNil(t, status)
	assert.True(t, status.Online)
	assert.Equal(t, models.FamilyAVA4, status.Family)
}

func TestProcess_ReplayIsIdempotent(t *testing.T) {
	h := newHarness()
	patient := h.patients.add(&models.Patient{})
	h.registry.mapSubDevice("mac_bps", "d616f9641622", patient.ID)

	payload := hubBPPayload(t)
	require.NoError(t, h.pipeline.Process(context.Background(), models.TopicHubData, payload))
	require.NoError(t, h.pipeline.Process(context.Background(), models.TopicHubData, payload))

	assert.Len(t, h.history.records, 1, "replay must not duplicate history")
	assert.Len(t, h.patients.slotWrites, 2, "slot upsert is repeatable")
}

func TestProcess_UnmappedDeviceWritesNothing(t *testing.T) {
	h := newHarness()

	err := h.pipeline.Process(context.Background(), models.TopicHubData, hubBPPayload(t))
	require.NoError(t, err, "unmapped devices are dropped, not retried")

	assert.Equal(t, []string{
		"received:success",
		"parsed:success",
		"identity_resolved:error",
		"record_updated:skipped",
	}, h.traces.steps())
	assert.Empty(t, h.patients.slotWrites)
	assert.Empty(t, h.history.records)
	assert.Empty(t, h.statuses.statuses)

	resolved := h.traces.events[2]
	assert.Equal(t, string(resolver.OutcomeUnmapped), resolved.Outcome)
}

func TestProcess_UnrecognizedTopicDropped(t *testing.T) {
	h := newHarness()

	err := h.pipeline.Process(context.Background(), "random/topic", []byte(`{}`))
	require.NoError(t, err)

	assert.Equal(t, []string{"received:success", "parsed:error"}, h.traces.steps())
}

func TestProcess_MalformedPayloadDropped(t *testing.T) {
	h := newHarness()

	err := h.pipeline.Process(context.Background(), models.TopicHubData, []byte(`{not json`))
	require.NoError(t, err)

	assert.Equal(t, []string{"received:success", "parsed:error"}, h.traces.steps())
	assert.Empty(t, h.statuses.statuses)
}

func TestProcess_TerminalUnknownCitizenCreatesProvisional(t *testing.T) {
	h := newHarness()

	payload := mustJSON(t, map[string]interface{}{
		"from": "CM4",
		"to":   "CLOUD",
		"time": 1750075845,
		"mac":  "AA:BB:CC:DD:EE:FF",
		"type": "reportAttribute",
		"data": map[string]interface{}{
			"attribute": "CONTOUR",
			"citiz":     "3570300500123",
			"nameTH":    "สมชาย ใจดี",
			"brith":     "25200331",
			"gender":    "1",
			"value": map[string]interface{}{
				"device_list": []map[string]interface{}{{
					"scan_time":     1750075845,
					"ble_addr":      "c1a2b3d4e5f6",
					"blood_glucose": 108,
				}},
			},
		},
	})

	require.NoError(t, h.pipeline.Process(context.Background(), models.TopicQube, payload))

	require.Len(t, h.patients.created, 1)
	assert.Equal(t, "3570300500123", h.patients.created[0].CitizenID)
	require.Len(t, h.patients.slotWrites, 1)
	assert.Equal(t, "last_blood_sugar", h.patients.slotWrites[0].field)
	assert.Equal(t, []models.VitalKind{models.KindBloodSugar}, h.projector.published)

	// replay resolves to the same provisional record, no second creation
	require.NoError(t, h.pipeline.Process(context.Background(), models.TopicQube, payload))
	assert.Len(t, h.patients.created, 1)
	assert.Len(t, h.history.records, 1)
}

func TestProcess_TerminalHeartbeatTouchesStatusOnly(t *testing.T) {
	h := newHarness()

	payload := mustJSON(t, map[string]interface{}{
		"from": "CM4",
		"to":   "CLOUD",
		"time": 1750075845,
		"mac":  "AA:BB:CC:DD:EE:FF",
		"type": "HB_Msg",
		"data": map[string]interface{}{"msg": "HB_Msg"},
	})

	require.NoError(t, h.pipeline.Process(context.Background(), models.TopicQube, payload))

	assert.Equal(t, []string{
		"received:success",
		"parsed:success",
		"identity_resolved:skipped",
		"record_updated:success",
		"observation_stored:skipped",
	}, h.traces.steps())

	status := h.statuses.statuses["AA:BB:CC:DD:EE:FF"]
	require.NotNil(t, status)
	assert.True(t, status.Online)
	assert.Empty(t, h.history.records)
}

func TestProcess_WatchVitalSignStoresEveryVital(t *testing.T) {
	h := newHarness()
	patient := h.patients.add(&models.Patient{WatchIMEI: "865067123456789"})
	h.registry.watches["865067123456789"] = patient.ID

	payload := mustJSON(t, map[string]interface{}{
		"IMEI":       "865067123456789",
		"timeStamps": "16/06/2025 12:30:45",
		"battery":    67,
		"signalGSM":  80,
		"heartRate":  72,
		"bloodPressure": map[string]interface{}{
			"bp_sys": 122,
			"bp_dia": 78,
		},
		"spO2":            97,
		"bodyTemperature": 36.8,
	})

	require.NoError(t, h.pipeline.Process(context.Background(), models.TopicWatchVitalSign, payload))

	assert.Len(t, h.history.records, 4, "BP, SpO2, temperature and heart rate")
	assert.Len(t, h.patients.slotWrites, 4)
	assert.Len(t, h.projector.published, 4)

	status := h.statuses.statuses["865067123456789"]
	require.NotNil(t, status)
	require.NotNil(t, status.BatteryPercent)
	assert.Equal(t, 67, *status.BatteryPercent)
	require.NotNil(t, status.SignalPercent)
	assert.Equal(t, 80, *status.SignalPercent)
	assert.False(t, status.Alert(models.AlertLowBattery).Active)
}

func TestProcess_WatchHeartbeatLowBattery(t *testing.T) {
	h := newHarness()
	patient := h.patients.add(&models.Patient{WatchIMEI: "865067123456789"})
	h.registry.watches["865067123456789"] = patient.ID

	payload := mustJSON(t, map[string]interface{}{
		"IMEI":      "865067123456789",
		"battery":   15,
		"signalGSM": 80,
		"step":      1024,
	})

	require.NoError(t, h.pipeline.Process(context.Background(), models.TopicWatchHeartbeat, payload))

	status := h.statuses.statuses["865067123456789"]
	require.NotNil(t, status)
	assert.True(t, status.Alert(models.AlertLowBattery).Active)
	assert.False(t, status.Alert(models.AlertPoorSignal).Active)

	// the step counter still lands as an observation
	require.Len(t, h.history.records, 1)
	assert.Empty(t, h.projector.published, "steps do not project")
}

func TestProcess_WatchSOSSetsAlertAndSkipsSlot(t *testing.T) {
	h := newHarness()
	patient := h.patients.add(&models.Patient{WatchIMEI: "865067123456789"})
	h.registry.watches["865067123456789"] = patient.ID

	payload := mustJSON(t, map[string]interface{}{
		"IMEI": "865067123456789",
		"location": map[string]interface{}{
			"GPS": map[string]interface{}{"latitude": 13.7563, "longitude": 100.5018},
		},
	})

	require.NoError(t, h.pipeline.Process(context.Background(), models.TopicWatchSOS, payload))

	status := h.statuses.statuses["865067123456789"]
	require.NotNil(t, status)
	assert.True(t, status.Alert(models.AlertSOSActive).Active)

	assert.Empty(t, h.patients.slotWrites, "alerts have no last-value slot")
	assert.Len(t, h.history.records, 1, "alerts still land in history")
	assert.Empty(t, h.projector.published)
}

func TestProcess_WatchOnlineTriggerIsHeartbeatOnly(t *testing.T) {
	h := newHarness()
	patient := h.patients.add(&models.Patient{WatchIMEI: "865067123456789"})
	h.registry.watches["865067123456789"] = patient.ID

	payload := mustJSON(t, map[string]interface{}{"IMEI": "865067123456789", "status": "online"})
	require.NoError(t, h.pipeline.Process(context.Background(), models.TopicWatchOnline, payload))

	assert.Equal(t, []string{
		"received:success",
		"parsed:success",
		"identity_resolved:success",
		"record_updated:success",
		"observation_stored:skipped",
	}, h.traces.steps())
	assert.NotNil(t, h.statuses.statuses["865067123456789"])
}

func TestProcess_DecodeErrorAfterStatusTouch(t *testing.T) {
	h := newHarness()
	patient := h.patients.add(&models.Patient{})
	h.registry.mapSubDevice("mac_bps", "d616f9641622", patient.ID)

	payload := mustJSON(t, map[string]interface{}{
		"from": "BLE",
		"mac":  "08:F9:E0:D1:F7:B4",
		"type": "reportAttribute",
		"data": map[string]interface{}{
			"attribute": "BP_BIOLIGTH",
			"mac":       "d616f9641622",
			"value": map[string]interface{}{
				"device_list": []map[string]interface{}{{
					"ble_addr": "d616f9641622",
					"bp_high":  137,
					// bp_low missing
				}},
			},
		},
	})

	err := h.pipeline.Process(context.Background(), models.TopicHubData, payload)
	require.NoError(t, err, "decode failures are terminal, not retryable")

	assert.Equal(t, []string{
		"received:success",
		"parsed:success",
		"identity_resolved:success",
		"record_updated:success",
		"observation_stored:error",
	}, h.traces.steps())
	assert.NotNil(t, h.statuses.statuses["d616f9641622"], "status touch precedes decoding")
	assert.Empty(t, h.history.records)
}

func TestProcess_StoreFailureIsReturned(t *testing.T) {
	h := newHarness()
	patient := h.patients.add(&models.Patient{})
	h.registry.mapSubDevice("mac_bps", "d616f9641622", patient.ID)
	h.history.err = assert.AnError

	err := h.pipeline.Process(context.Background(), models.TopicHubData, hubBPPayload(t))
	require.Error(t, err, "store failures surface for redelivery")
	assert.ErrorIs(t, err, models.ErrStore)

	last := h.traces.events[len(h.traces.events)-1]
	assert.Equal(t, models.StepObservationStored, last.Step)
	assert.Equal(t, models.TraceError, last.Status)
}

func TestProcess_ProjectionFailureDoesNotFailMessage(t *testing.T) {
	h := newHarness()
	patient := h.patients.add(&models.Patient{})
	h.registry.mapSubDevice("mac_bps", "d616f9641622", patient.ID)
	h.projector.err = assert.AnError

	err := h.pipeline.Process(context.Background(), models.TopicHubData, hubBPPayload(t))
	require.NoError(t, err)

	last := h.traces.events[len(h.traces.events)-1]
	assert.Equal(t, models.StepProjected, last.Step)
	assert.Equal(t, models.TraceError, last.Status)
	assert.Len(t, h.history.records, 1, "observation persisted before projection")
}

func TestProcess_NilProjectorSkipsProjection(t *testing.T) {
	h := newHarness()
	h.pipeline.projector = nil
	patient := h.patients.add(&models.Patient{})
	h.registry.mapSubDevice("mac_bps", "d616f9641622", patient.ID)

	require.NoError(t, h.pipeline.Process(context.Background(), models.TopicHubData, hubBPPayload(t)))

	last := h.traces.events[len(h.traces.events)-1]
	assert.Equal(t, models.StepObservationStored, last.Step)
	assert.Len(t, h.history.records, 1)
}
