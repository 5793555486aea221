package qc

import "github.com/shopspring/decimal"

// TolerancePercent is the largest absolute deviation, as a percentage of the
// target, that still passes.
var TolerancePercent = decimal.NewFromInt(10)

var hundred = decimal.NewFromInt(100)

// Evaluation is the outcome of comparing a control run with its target.
type Evaluation struct {
	Deviation        decimal.Decimal
	DeviationPercent decimal.Decimal
	Status           Outcome
}

// Evaluate computes measured - target and its percentage of target. A zero
// target has no meaningful percentage; it is reported as 0 and passes.
func Evaluate(target, measured decimal.Decimal) Evaluation {
	dev := measured.Sub(target)
	pct := decimal.Zero
	if !target.IsZero() {
		pct = dev.Div(target).Mul(hundred)
	}
	status := OutcomePass
	if pct.Abs().GreaterThan(TolerancePercent) {
		status = OutcomeFail
	}
	return Evaluation{Deviation: dev, DeviationPercent: pct, Status: status}
}
