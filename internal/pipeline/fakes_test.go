package pipeline

import (
	"context"
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"

	"github.com/TELY01-DEV/stardust-my-firstcare-com-sub004/internal/models"
)

// fakePatients backs both the resolver's lookups and the store's slot writes.
type fakePatients struct {
	byID        map[primitive.ObjectID]*models.Patient
	byCitizenID map[string]*models.Patient
	byHubMAC    map[string]*models.Patient
	byIMEI      map[string]*models.Patient

	created    []models.CitizenClaims
	slotWrites []slotWrite
	err        error
}

type slotWrite struct {
	patientID primitive.ObjectID
	field     string
	slot      models.LastObservation
}

func newFakePatients() *fakePatients {
	return &fakePatients{
		byID:        map[primitive.ObjectID]*models.Patient{},
		byCitizenID: map[string]*models.Patient{},
		byHubMAC:    map[string]*models.Patient{},
		byIMEI:      map[string]*models.Patient{},
	}
}

func (f *fakePatients) add(p *models.Patient) *models.Patient {
	if p.ID.IsZero() {
		p.ID = primitive.NewObjectID()
	}
	f.byID[p.ID] = p
	if p.CitizenID != "" {
		f.byCitizenID[p.CitizenID] = p
	}
	if p.AVAMacAddress != "" {
		f.byHubMAC[p.AVAMacAddress] = p
	}
	if p.WatchIMEI != "" {
		f.byIMEI[p.WatchIMEI] = p
	}
	return p
}

func (f *fakePatients) FindByID(_ context.Context, id primitive.ObjectID) (*models.Patient, error) {
	return f.byID[id], f.err
}

func (f *fakePatients) FindByCitizenID(_ context.Context, citizenID string) (*models.Patient, error) {
	return f.byCitizenID[citizenID], f.err
}

func (f *fakePatients) FindByHubMAC(_ context.Context, mac string) (*models.Patient, error) {
	return f.byHubMAC[mac], f.err
}

func (f *fakePatients) FindByWatchIMEI(_ context.Context, imei string) (*models.Patient, error) {
	return f.byIMEI[imei], f.err
}

func (f *fakePatients) CreateProvisional(_ context.Context, claims models.CitizenClaims) (*models.Patient, error) {
	if f.err != nil {
		return nil, f.err
	}
	f.created = append(f.created, claims)
	return f.add(&models.Patient{
		CitizenID:          claims.CitizenID,
		NameTH:             claims.NameTH,
		NameEN:             claims.NameEN,
		BirthDate:          claims.BirthDate,
		Gender:             claims.Gender,
		RegistrationStatus: models.RegistrationProvisional,
	}), nil
}

func (f *fakePatients) SetLastObservation(_ context.Context, patientID primitive.ObjectID, slotField string, slot models.LastObservation) error {
	if f.err != nil {
		return f.err
	}
	f.slotWrites = append(f.slotWrites, slotWrite{patientID, slotField, slot})
	return nil
}

// fakeRegistry is an in-memory sub-device and watch registry.
type fakeRegistry struct {
	subDevices map[string]primitive.ObjectID
	watches    map[string]primitive.ObjectID
	err        error
}

func newFakeRegistry() *fakeRegistry {
	return &fakeRegistry{
		subDevices: map[string]primitive.ObjectID{},
		watches:    map[string]primitive.ObjectID{},
	}
}

func (f *fakeRegistry) mapSubDevice(macField, addr string, patientID primitive.ObjectID) {
	f.subDevices[macField+":"+addr] = patientID
}

func (f *fakeRegistry) FindPatientBySubDevice(_ context.Context, macField, bleAddr string) (primitive.ObjectID, bool, error) {
	if f.err != nil {
		return primitive.NilObjectID, false, f.err
	}
	id, ok := f.subDevices[macField+":"+bleAddr]
	return id, ok, nil
}

func (f *fakeRegistry) FindPatientByWatchIMEI(_ context.Context, imei string) (primitive.ObjectID, bool, error) {
	if f.err != nil {
		return primitive.NilObjectID, false, f.err
	}
	id, ok := f.watches[imei]
	return id, ok, nil
}

// fakeStatusStore backs the tracker, merging updates like the partial
// mongo write does.
type fakeStatusStore struct {
	statuses map[string]*models.DeviceStatus
	err      error
}

func newFakeStatusStore() *fakeStatusStore {
	return &fakeStatusStore{statuses: map[string]*models.DeviceStatus{}}
}

func (f *fakeStatusStore) Get(_ context.Context, deviceID string) (*models.DeviceStatus, error) {
	if f.err != nil {
		return nil, f.err
	}
	return f.statuses[deviceID], nil
}

func (f *fakeStatusStore) Apply(_ context.Context, deviceID string, update *models.StatusUpdate) error {
	if f.err != nil {
		return f.err
	}
	doc, ok := f.statuses[deviceID]
	if !ok {
		doc = &models.DeviceStatus{DeviceID: deviceID, CreatedAt: update.UpdatedAt}
		f.statuses[deviceID] = doc
	}
	if update.Family != "" {
		doc.Family = update.Family
	}
	if !update.LastSeen.IsZero() {
		doc.Online = true
		if update.LastSeen.After(doc.LastSeen) {
			doc.LastSeen = update.LastSeen
		}
	}
	if update.BatteryPercent != nil {
		doc.BatteryPercent = update.BatteryPercent
	}
	if update.SignalPercent != nil {
		doc.SignalPercent = update.SignalPercent
	}
	if update.ConnectionQuality != nil {
		doc.ConnectionQuality = update.ConnectionQuality
	}
	for kind, state := range update.Alerts {
		if doc.Alerts == nil {
			doc.Alerts = map[models.AlertKind]models.AlertState{}
		}
		doc.Alerts[kind] = state
	}
	doc.UpdatedAt = update.UpdatedAt
	return nil
}

type historyKey struct {
	patientID primitive.ObjectID
	deviceID  string
	kind      models.VitalKind
	ts        time.Time
}

// fakeHistory enforces the same uniqueness tuple as the collection index.
type fakeHistory struct {
	records map[historyKey]*models.HistoryRecord
	err     error
}

func newFakeHistory() *fakeHistory {
	return &fakeHistory{records: map[historyKey]*models.HistoryRecord{}}
}

func (f *fakeHistory) Insert(_ context.Context, kind models.VitalKind, record *models.HistoryRecord) (bool, error) {
	if f.err != nil {
		return false, f.err
	}
	key := historyKey{record.PatientID, record.DeviceID, kind, record.Timestamp}
	if _, exists := f.records[key]; exists {
		return false, nil
	}
	f.records[key] = record
	return true, nil
}

// fakeProjector records published kinds.
type fakeProjector struct {
	published []models.VitalKind
	err       error
}

func (f *fakeProjector) Publish(_ context.Context, _ *models.Patient, obs *models.Observation) (bool, error) {
	if f.err != nil {
		return true, f.err
	}
	f.published = append(f.published, obs.Kind)
	return true, nil
}

// traceRecorder collects events synchronously, preserving emit order.
type traceRecorder struct {
	events []*models.TraceEvent
}

func (r *traceRecorder) Emit(event *models.TraceEvent) {
	r.events = append(r.events, event)
}

func (r *traceRecorder) steps() []string {
	out := make([]string, 0, len(r.events))
	for _, ev := range r.events {
		out = append(out, string(ev.Step)+":"+string(ev.Status))
	}
	return out
}
