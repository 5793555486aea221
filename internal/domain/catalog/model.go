package catalog

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// Parameter is one measured analyte of a test. Critical thresholds are
// optional.
type Parameter struct {
	Name         string           `json:"name" yaml:"name"`
	Unit         string           `json:"unit" yaml:"unit"`
	RefMale      string           `json:"ref_male,omitempty" yaml:"ref_male"`
	RefFemale    string           `json:"ref_female,omitempty" yaml:"ref_female"`
	RefChild     string           `json:"ref_child,omitempty" yaml:"ref_child"`
	CriticalLow  *decimal.Decimal `json:"critical_low,omitempty" yaml:"critical_low"`
	CriticalHigh *decimal.Decimal `json:"critical_high,omitempty" yaml:"critical_high"`
}

// TestDefinition is a catalog entry. Definitions are immutable once created;
// specimens keep their own snapshot of what was ordered.
type TestDefinition struct {
	ID           uuid.UUID       `json:"id"`
	Code         string          `json:"code"`
	Name         string          `json:"name"`
	Category     string          `json:"category"`
	Price        decimal.Decimal `json:"price"`
	TATHours     int             `json:"tat_hours"`
	SpecimenType string          `json:"specimen_type"`
	Parameters   []Parameter     `json:"parameters"`
	CreatedAt    time.Time       `json:"created_at"`
}

// ReferenceRange picks the range text for a patient: children under 12 use
// the child range when one is defined.
func (p Parameter) ReferenceRange(gender string, age int) string {
	if age < 12 && p.RefChild != "" {
		return p.RefChild
	}
	if gender == "female" && p.RefFemale != "" {
		return p.RefFemale
	}
	return p.RefMale
}
