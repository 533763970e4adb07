// Package fhir projects canonical observations into FHIR R4 Observation
// resources for the clinical-interoperability consumer. Only the handoff is
// owned here; what the consumer does with the resource is out of scope.
package fhir

import (
	"fmt"
	"time"

	"github.com/TELY01-DEV/stardust-my-firstcare-com-sub004/internal/models"
)

// Minimal FHIR R4 data types, shaped after the US Core Observation profile.

type Coding struct {
	System  string `json:"system,omitempty"`
	Code    string `json:"code,omitempty"`
	Display string `json:"display,omitempty"`
}

type CodeableConcept struct {
	Coding []Coding `json:"coding,omitempty"`
	Text   string   `json:"text,omitempty"`
}

type Reference struct {
	Reference string `json:"reference,omitempty"`
	Display   string `json:"display,omitempty"`
}

type Quantity struct {
	Value  float64 `json:"value"`
	Unit   string  `json:"unit,omitempty"`
	System string  `json:"system,omitempty"`
	Code   string  `json:"code,omitempty"`
}

type Component struct {
	Code          CodeableConcept `json:"code"`
	ValueQuantity *Quantity       `json:"valueQuantity,omitempty"`
}

// Observation is the FHIR R4 Observation resource (vital-signs profile subset).
type Observation struct {
	ResourceType      string            `json:"resourceType"`
	Status            string            `json:"status"`
	Category          []CodeableConcept `json:"category,omitempty"`
	Code              CodeableConcept   `json:"code"`
	Subject           Reference         `json:"subject"`
	Device            *Reference        `json:"device,omitempty"`
	EffectiveDateTime string            `json:"effectiveDateTime,omitempty"`
	ValueQuantity     *Quantity         `json:"valueQuantity,omitempty"`
	Component         []Component       `json:"component,omitempty"`
}

const (
	loincSystem = "http://loinc.org"
	ucumSystem  = "http://unitsofmeasure.org"
)

func loinc(code, display string) CodeableConcept {
	return CodeableConcept{
		Coding: []Coding{{System: loincSystem, Code: code, Display: display}},
		Text:   display,
	}
}

func vitalSignsCategory() []CodeableConcept {
	return []CodeableConcept{{
		Coding: []Coding{{
			System:  "http://terminology.hl7.org/CodeSystem/observation-category",
			Code:    "vital-signs",
			Display: "Vital Signs",
		}},
	}}
}

func quantity(value float64, unit, code string) *Quantity {
	return &Quantity{Value: value, Unit: unit, System: ucumSystem, Code: code}
}

// Projects reports whether a kind feeds the clinical projection. Location
// fixes, step counts, sleep sessions and emergency alerts carry no FHIR
// vital-sign Observation profile in this system.
func Projects(kind models.VitalKind) bool {
	switch kind {
	case models.KindBloodPressure, models.KindSpO2, models.KindBloodSugar,
		models.KindBodyTemperature, models.KindWeight, models.KindUricAcid,
		models.KindCholesterol, models.KindHeartRate:
		return true
	default:
		return false
	}
}

// Project builds the Observation resource for a stored canonical
// observation. Non-projecting kinds yield (nil, nil).
func Project(patient *models.Patient, obs *models.Observation) (*Observation, error) {
	if !Projects(obs.Kind) {
		return nil, nil
	}

	resource := &Observation{
		ResourceType:      "Observation",
		Status:            "final",
		Category:          vitalSignsCategory(),
		Subject:           Reference{Reference: "Patient/" + patient.ID.Hex()},
		Device:            &Reference{Display: fmt.Sprintf("%s/%s", obs.Family, obs.DeviceID)},
		EffectiveDateTime: obs.Timestamp.UTC().Format(time.RFC3339),
	}

	switch obs.Kind {
	case models.KindBloodPressure:
		bp := obs.BloodPressure
		resource.Code = loinc("85354-9", "Blood pressure panel with all children optional")
		resource.Component = []Component{
			{Code: loinc("8480-6", "Systolic blood pressure"), ValueQuantity: quantity(float64(bp.Systolic), "mmHg", "mm[Hg]")},
			{Code: loinc("8462-4", "Diastolic blood pressure"), ValueQuantity: quantity(float64(bp.Diastolic), "mmHg", "mm[Hg]")},
		}
		if bp.Pulse != nil {
			resource.Component = append(resource.Component,
				Component{Code: loinc("8867-4", "Heart rate"), ValueQuantity: quantity(float64(*bp.Pulse), "beats/minute", "/min")})
		}
	case models.KindSpO2:
		resource.Code = loinc("59408-5", "Oxygen saturation in Arterial blood by Pulse oximetry")
		resource.ValueQuantity = quantity(float64(obs.SpO2.Percent), "%", "%")
	case models.KindBloodSugar:
		resource.Code = loinc("2339-0", "Glucose [Mass/volume] in Blood")
		resource.ValueQuantity = quantity(obs.Glucose.MgPerDl, "mg/dL", "mg/dL")
	case models.KindBodyTemperature:
		resource.Code = loinc("8310-5", "Body temperature")
		resource.ValueQuantity = quantity(obs.Temperature.Celsius, "C", "Cel")
	case models.KindWeight:
		resource.Code = loinc("29463-7", "Body weight")
		resource.ValueQuantity = quantity(obs.Weight.Kg, "kg", "kg")
	case models.KindUricAcid:
		resource.Code = loinc("3084-1", "Urate [Mass/volume] in Serum or Plasma")
		resource.ValueQuantity = quantity(obs.UricAcid.MgPerDl, "mg/dL", "mg/dL")
	case models.KindCholesterol:
		resource.Code = loinc("2093-3", "Cholesterol [Mass/volume] in Serum or Plasma")
		resource.ValueQuantity = quantity(obs.Cholesterol.MgPerDl, "mg/dL", "mg/dL")
	case models.KindHeartRate:
		resource.Code = loinc("8867-4", "Heart rate")
		resource.ValueQuantity = quantity(float64(obs.HeartRate.Bpm), "beats/minute", "/min")
	}

	return resource, nil
}
