package specimen

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

const (
	PriorityRoutine = "routine"
	PriorityUrgent  = "urgent"
	PriorityStat    = "stat"
)

// OrderedTest is the copy of a catalog entry taken when the specimen is
// created. Later catalog changes do not affect it.
type OrderedTest struct {
	TestID   uuid.UUID       `json:"test_id"`
	Code     string          `json:"code"`
	Name     string          `json:"name"`
	Price    decimal.Decimal `json:"price"`
	TATHours int             `json:"tat_hours"`
}

type Specimen struct {
	ID              uuid.UUID     `json:"id"`
	SampleCode      string        `json:"sample_code"`
	Barcode         string        `json:"barcode"`
	PatientID       uuid.UUID     `json:"patient_id"`
	PatientName     string        `json:"patient_name"`
	PatientUHID     string        `json:"patient_uhid"`
	Tests           []OrderedTest `json:"tests"`
	SpecimenType    string        `json:"specimen_type"`
	CollectionTime  time.Time     `json:"collection_time"`
	CollectedBy     string        `json:"collected_by"`
	TATDeadline     time.Time     `json:"tat_deadline"`
	Status          Status        `json:"status"`
	IsRejected      bool          `json:"is_rejected"`
	RejectionReason *string       `json:"rejection_reason,omitempty"`
	EMROrderID      *string       `json:"emr_order_id,omitempty"`
	OrderedBy       *string       `json:"ordered_by,omitempty"`
	Priority        string        `json:"priority"`
	CreatedAt       time.Time     `json:"created_at"`
	UpdatedAt       time.Time     `json:"updated_at"`
}

// HasTest reports whether a test with the given name or code was ordered.
func (s *Specimen) HasTest(name string) bool {
	for _, t := range s.Tests {
		if t.Name == name || t.Code == name {
			return true
		}
	}
	return false
}

// Filter narrows List. Zero values match everything.
type Filter struct {
	Status    Status
	PatientID uuid.UUID
}
