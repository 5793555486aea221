package result

import (
	"time"

	"github.com/google/uuid"
)

// ParamStatus is the flag the technician assigns to a measured value.
type ParamStatus string

const (
	ParamNormal   ParamStatus = "normal"
	ParamHigh     ParamStatus = "high"
	ParamLow      ParamStatus = "low"
	ParamCritical ParamStatus = "critical"
)

// Parameter is one reported value. Value is kept as entered.
type Parameter struct {
	Name           string      `json:"name"`
	Value          string      `json:"value"`
	Unit           string      `json:"unit"`
	ReferenceRange string      `json:"reference_range"`
	Status         ParamStatus `json:"status"`
}

type Result struct {
	ID                uuid.UUID   `json:"id"`
	SpecimenID        uuid.UUID   `json:"specimen_id"`
	PatientID         uuid.UUID   `json:"patient_id"`
	TestName          string      `json:"test_name"`
	Parameters        []Parameter `json:"parameters"`
	Status            Status      `json:"status"`
	EnteredBy         string      `json:"entered_by"`
	ReviewedBy        *string     `json:"reviewed_by,omitempty"`
	ApprovedBy        *string     `json:"approved_by,omitempty"`
	HasCriticalValues bool        `json:"has_critical_values"`
	Interpretation    string      `json:"interpretation"`
	CreatedAt         time.Time   `json:"created_at"`
	UpdatedAt         time.Time   `json:"updated_at"`
}

type Filter struct {
	SpecimenID uuid.UUID
	PatientID  uuid.UUID
	Status     Status
}
