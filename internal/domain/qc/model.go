package qc

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

const (
	TypeInternal = "internal"
	TypeExternal = "external"
)

type Outcome string

const (
	OutcomePass Outcome = "pass"
	OutcomeFail Outcome = "fail"
)

// Measurement is a recorded control run. Measurements are never edited.
type Measurement struct {
	ID               uuid.UUID       `json:"id"`
	MeasuredOn       time.Time       `json:"date"`
	TestName         string          `json:"test_name"`
	QCType           string          `json:"qc_type"`
	Level            string          `json:"level"`
	LotNumber        string          `json:"lot_number"`
	Parameter        string          `json:"parameter"`
	TargetValue      decimal.Decimal `json:"target_value"`
	MeasuredValue    decimal.Decimal `json:"measured_value"`
	Deviation        decimal.Decimal `json:"deviation"`
	DeviationPercent decimal.Decimal `json:"deviation_percent"`
	Status           Outcome         `json:"status"`
	EnteredBy        string          `json:"entered_by"`
	CreatedAt        time.Time       `json:"created_at"`
}

type Filter struct {
	TestName string
	QCType   string
}

// SummaryRow aggregates the measurements of one test parameter.
type SummaryRow struct {
	TestName  string          `json:"test_name"`
	Parameter string          `json:"parameter"`
	Count     int             `json:"count"`
	Passes    int             `json:"passes"`
	Fails     int             `json:"fails"`
	FailRate  decimal.Decimal `json:"fail_rate"`
	LastRunOn time.Time       `json:"last_run_on"`
}
