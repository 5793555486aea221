package result

import "github.com/lims/lims/internal/platform/apperr"

type Status string

const (
	StatusDraft       Status = "draft"
	StatusUnderReview Status = "under_review"
	StatusApproved    Status = "approved"
	StatusFinalized   Status = "finalized"
)

var transitions = map[Status][]Status{
	StatusDraft:       {StatusUnderReview, StatusApproved},
	StatusUnderReview: {StatusDraft, StatusApproved},
	StatusApproved:    {StatusFinalized},
	StatusFinalized:   {},
}

func ParseStatus(s string) (Status, error) {
	st := Status(s)
	if _, ok := transitions[st]; !ok {
		return "", apperr.Validation("unknown result status %q", s)
	}
	return st, nil
}

// SignedOff reports whether the result may appear on a report.
func (s Status) SignedOff() bool {
	return s == StatusApproved || s == StatusFinalized
}

// ValidateTransition allows any known status without strict. Repeating the
// current status is always allowed.
func ValidateTransition(from, to Status, strict bool) error {
	if from == to || !strict {
		return nil
	}
	for _, allowed := range transitions[from] {
		if allowed == to {
			return nil
		}
	}
	return apperr.Validation("invalid result status transition from %s to %s", from, to)
}
