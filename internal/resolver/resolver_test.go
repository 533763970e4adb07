package resolver

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.uber.org/zap"

	"github.com/TELY01-DEV/stardust-my-firstcare-com-sub004/internal/models"
	"github.com/TELY01-DEV/stardust-my-firstcare-com-sub004/internal/normalizer"
)

func hubDataMessage(attribute, gatewayMAC, subDeviceMAC string) *models.InboundMessage {
	return &models.InboundMessage{
		Topic:  models.TopicHubData,
		Family: models.FamilyAVA4,
		Gateway: &models.GatewayEnvelope{
			MAC:  gatewayMAC,
			Type: models.MsgTypeReportAttribute,
			Data: models.GatewayData{Attribute: attribute, MAC: subDeviceMAC},
		},
	}
}

func TestResolve_HubStatusByHubMAC(t *testing.T) {
	patients := newFakePatients()
	owner := patients.add(&models.Patient{AVAMacAddress: "08:F9:E0:D1:F7:B4"})
	r := New(patients, newFakeRegistry(), zap.NewNop())

	res, err := r.Resolve(context.Background(), &models.InboundMessage{
		Topic:   models.TopicHubStatus,
		Family:  models.FamilyAVA4,
		Gateway: &models.GatewayEnvelope{MAC: "08:F9:E0:D1:F7:B4", Type: models.MsgTypeHeartbeat},
	})
	require.NoError(t, err)
	assert.Equal(t, OutcomeResolved, res.Outcome)
	assert.Equal(t, owner.ID, res.Patient.ID)
	assert.Equal(t, "08:F9:E0:D1:F7:B4", res.DeviceID)
}

func TestResolve_SubDeviceUsesPerKindRegistrySlot(t *testing.T) {
	patients := newFakePatients()
	owner := patients.add(&models.Patient{})
	registry := newFakeRegistry()
	// the blood pressure cuff is registered under mac_bps, not a generic slot
	registry.mapSubDevice("mac_bps", "d616f9641622", owner.ID)
	r := New(patients, registry, zap.NewNop())

	res, err := r.Resolve(context.Background(), hubDataMessage(normalizer.HubAttrBloodPressure, "08:F9:E0:D1:F7:B4", "d616f9641622"))
	require.NoError(t, err)
	assert.Equal(t, OutcomeResolved, res.Outcome)
	assert.Equal(t, owner.ID, res.Patient.ID)
	assert.Equal(t, "d616f9641622", res.DeviceID)

	// the same address under a different kind's slot does not resolve
	res, err = r.Resolve(context.Background(), hubDataMessage(normalizer.HubAttrWeight, "08:F9:E0:D1:F7:B4", "d616f9641622"))
	require.NoError(t, err)
	assert.Equal(t, OutcomeUnmapped, res.Outcome)
	assert.Nil(t, res.Patient)
}

func TestResolve_UnmappedSubDevice(t *testing.T) {
	r := New(newFakePatients(), newFakeRegistry(), zap.NewNop())

	res, err := r.Resolve(context.Background(), hubDataMessage(normalizer.HubAttrSpO2, "08:F9:E0:D1:F7:B4", "aabbccddeeff"))
	require.NoError(t, err)
	assert.Equal(t, OutcomeUnmapped, res.Outcome)
	assert.Equal(t, "aabbccddeeff", res.DeviceID)
}

func TestResolve_HubWithoutMACIsMalformed(t *testing.T) {
	r := New(newFakePatients(), newFakeRegistry(), zap.NewNop())

	res, err := r.Resolve(context.Background(), &models.InboundMessage{
		Topic:   models.TopicHubStatus,
		Family:  models.FamilyAVA4,
		Gateway: &models.GatewayEnvelope{Type: models.MsgTypeHeartbeat},
	})
	require.NoError(t, err)
	assert.Equal(t, OutcomeMalformed, res.Outcome)
}

func watchMessage(imei string) *models.InboundMessage {
	return &models.InboundMessage{
		Topic:  models.TopicWatchVitalSign,
		Family: models.FamilyKati,
		Watch:  &models.WatchEnvelope{IMEI: imei, Raw: map[string]interface{}{"IMEI": imei}},
	}
}

func TestResolve_WatchRegistryFirst(t *testing.T) {
	patients := newFakePatients()
	registryOwner := patients.add(&models.Patient{})
	fieldOwner := patients.add(&models.Patient{WatchIMEI: "865067123456789"})
	registry := newFakeRegistry()
	registry.watches["865067123456789"] = registryOwner.ID
	r := New(patients, registry, zap.NewNop())

	res, err := r.Resolve(context.Background(), watchMessage("865067123456789"))
	require.NoError(t, err)
	assert.Equal(t, OutcomeResolved, res.Outcome)
	assert.Equal(t, registryOwner.ID, res.Patient.ID, "registry tier wins over the record field")
	assert.NotEqual(t, fieldOwner.ID, res.Patient.ID)
}

func TestResolve_WatchFallsBackToPatientField(t *testing.T) {
	patients := newFakePatients()
	fieldOwner := patients.add(&models.Patient{WatchIMEI: "865067123456789"})
	r := New(patients, newFakeRegistry(), zap.NewNop())

	res, err := r.Resolve(context.Background(), watchMessage("865067123456789"))
	require.NoError(t, err)
	assert.Equal(t, OutcomeResolved, res.Outcome)
	assert.Equal(t, fieldOwner.ID, res.Patient.ID)
}

func TestResolve_WatchDanglingRegistryEntryFallsThrough(t *testing.T) {
	patients := newFakePatients()
	fieldOwner := patients.add(&models.Patient{WatchIMEI: "865067123456789"})
	registry := newFakeRegistry()
	registry.watches["865067123456789"] = primitive.NewObjectID() // points at nothing
	r := New(patients, registry, zap.NewNop())

	res, err := r.Resolve(context.Background(), watchMessage("865067123456789"))
	require.NoError(t, err)
	assert.Equal(t, OutcomeResolved, res.Outcome)
	assert.Equal(t, fieldOwner.ID, res.Patient.ID)
}

func TestResolve_WatchUnmapped(t *testing.T) {
	r := New(newFakePatients(), newFakeRegistry(), zap.NewNop())

	res, err := r.Resolve(context.Background(), watchMessage("860000000000000"))
	require.NoError(t, err)
	assert.Equal(t, OutcomeUnmapped, res.Outcome)

	res, err = r.Resolve(context.Background(), watchMessage(""))
	require.NoError(t, err)
	assert.Equal(t, OutcomeMalformed, res.Outcome)
}

func terminalMessage(citizenID string) *models.InboundMessage {
	return &models.InboundMessage{
		Topic:  models.TopicQube,
		Family: models.FamilyQube,
		Gateway: &models.GatewayEnvelope{
			MAC:  "e4:5f:01:30:4a:1e",
			Type: models.MsgTypeReportAttribute,
			Data: models.GatewayData{
				Attribute: "WBP_JUMPER",
				Citizen:   citizenID,
				NameTH:    "สมชาย ใจดี",
				NameEN:    "Somchai Jaidee",
				Birth:     "25200331",
				Gender:    "1",
			},
		},
	}
}

func TestResolve_TerminalKnownCitizen(t *testing.T) {
	patients := newFakePatients()
	existing := patients.add(&models.Patient{CitizenID: "1234567890123", RegistrationStatus: models.RegistrationRegistered})
	r := New(patients, newFakeRegistry(), zap.NewNop())

	res, err := r.Resolve(context.Background(), terminalMessage("1234567890123"))
	require.NoError(t, err)
	assert.Equal(t, OutcomeResolved, res.Outcome)
	assert.Equal(t, existing.ID, res.Patient.ID)
	assert.Empty(t, patients.created, "no provisional record for a known citizen")
}

func TestResolve_TerminalCreatesProvisionalOnMiss(t *testing.T) {
	patients := newFakePatients()
	r := New(patients, newFakeRegistry(), zap.NewNop())

	res, err := r.Resolve(context.Background(), terminalMessage("9876543210987"))
	require.NoError(t, err)
	assert.Equal(t, OutcomeResolved, res.Outcome, "terminal resolution always succeeds")
	require.NotNil(t, res.Patient)
	assert.Equal(t, models.RegistrationProvisional, res.Patient.RegistrationStatus)
	require.Len(t, patients.created, 1)
	assert.Equal(t, "9876543210987", patients.created[0].CitizenID)
	assert.Equal(t, "25200331", patients.created[0].BirthDate)

	// the same citizen again resolves to the created record, no duplicate
	res2, err := r.Resolve(context.Background(), terminalMessage("9876543210987"))
	require.NoError(t, err)
	assert.Equal(t, res.Patient.ID, res2.Patient.ID)
	assert.Len(t, patients.created, 1)
}

func TestResolve_TerminalWithoutCitizenIsMalformed(t *testing.T) {
	r := New(newFakePatients(), newFakeRegistry(), zap.NewNop())

	res, err := r.Resolve(context.Background(), terminalMessage(""))
	require.NoError(t, err)
	assert.Equal(t, OutcomeMalformed, res.Outcome)
}
