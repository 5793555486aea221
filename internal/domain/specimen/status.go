package specimen

import (
	"github.com/lims/lims/internal/platform/apperr"
)

type Status string

const (
	StatusCollected       Status = "collected"
	StatusReceived        Status = "received"
	StatusProcessing      Status = "processing"
	StatusOnMachine       Status = "on_machine"
	StatusUnderValidation Status = "under_validation"
	StatusApproved        Status = "approved"
	StatusDispatched      Status = "dispatched"
	StatusRejected        Status = "rejected"
)

// Statuses lists every status in workflow order.
var Statuses = []Status{
	StatusCollected,
	StatusReceived,
	StatusProcessing,
	StatusOnMachine,
	StatusUnderValidation,
	StatusApproved,
	StatusDispatched,
	StatusRejected,
}

// transitions is the forward workflow. Rejection is handled separately.
var transitions = map[Status][]Status{
	StatusCollected:       {StatusReceived},
	StatusReceived:        {StatusProcessing},
	StatusProcessing:      {StatusOnMachine, StatusUnderValidation},
	StatusOnMachine:       {StatusUnderValidation},
	StatusUnderValidation: {StatusApproved},
	StatusApproved:        {StatusDispatched},
	StatusDispatched:      {},
	StatusRejected:        {},
}

func ParseStatus(s string) (Status, error) {
	st := Status(s)
	if _, ok := transitions[st]; !ok {
		return "", apperr.Validation("unknown specimen status %q", s)
	}
	return st, nil
}

// Terminal reports whether no further status change is possible.
func (s Status) Terminal() bool {
	return s == StatusDispatched || s == StatusRejected
}

// Reported reports whether results for the specimen have been signed off.
// Reported specimens never count against TAT.
func (s Status) Reported() bool {
	return s == StatusApproved || s == StatusDispatched
}

// ValidateTransition checks a SetStatus request. Rejected specimens never
// move and rejected is never a SetStatus target. Without strict, any other
// known status may follow any other. Repeating the current status is allowed.
func ValidateTransition(from, to Status, strict bool) error {
	if to == StatusRejected {
		return apperr.Validation("use reject to mark a specimen rejected")
	}
	if from == StatusRejected {
		return apperr.Validation("specimen is rejected and cannot change status")
	}
	if from == to || !strict {
		return nil
	}
	for _, allowed := range transitions[from] {
		if allowed == to {
			return nil
		}
	}
	return apperr.Validation("invalid status transition from %s to %s", from, to)
}

// ValidateRejection checks a Reject request. Repeated rejection is allowed
// and replaces the reason.
func ValidateRejection(from Status, strict bool) error {
	if strict && from.Reported() {
		return apperr.Validation("specimen is %s and can no longer be rejected", from)
	}
	return nil
}
