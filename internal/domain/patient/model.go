package patient

import (
	"time"

	"github.com/google/uuid"
)

const (
	TypeOutpatient = "OPD"
	TypeInpatient  = "IPD"
)

// Patient is a registered patient. UHID is assigned once and never reused.
type Patient struct {
	ID           uuid.UUID `json:"id"`
	UHID         string    `json:"uhid"`
	Name         string    `json:"name"`
	Age          int       `json:"age"`
	Gender       string    `json:"gender"`
	Phone        string    `json:"phone"`
	Email        string    `json:"email,omitempty"`
	Address      string    `json:"address,omitempty"`
	PatientType  string    `json:"patient_type"`
	EMRPatientID *string   `json:"emr_patient_id,omitempty"`
	CreatedBy    string    `json:"created_by"`
	CreatedAt    time.Time `json:"created_at"`
}
