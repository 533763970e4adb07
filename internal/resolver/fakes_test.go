package resolver

import (
	"context"

	"go.mongodb.org/mongo-driver/bson/primitive"

	"github.com/TELY01-DEV/stardust-my-firstcare-com-sub004/internal/models"
)

// fakePatients is an in-memory PatientFinder.
type fakePatients struct {
	byID        map[primitive.ObjectID]*models.Patient
	byCitizenID map[string]*models.Patient
	byHubMAC    map[string]*models.Patient
	byIMEI      map[string]*models.Patient

	created []models.CitizenClaims
	err     error
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

// fakeRegistry is an in-memory RegistryLookup keyed by "field:addr" and IMEI.
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
