package result

import (
	"testing"

	"github.com/lims/lims/internal/platform/apperr"
)

func TestDeriveCriticalFlag(t *testing.T) {
	tests := []struct {
		name   string
		params []Parameter
		want   bool
	}{
		{"empty", nil, false},
		{"all normal", []Parameter{{Name: "Hb", Status: ParamNormal}, {Name: "WBC", Status: ParamHigh}}, false},
		{"one critical", []Parameter{{Name: "Hb", Status: ParamNormal}, {Name: "K", Status: ParamCritical}}, true},
	}
	for _, tt := range tests {
		if got := DeriveCriticalFlag(tt.params); got != tt.want {
			t.Errorf("%s: got %v, want %v", tt.name, got, tt.want)
		}
	}
}

func TestValidateParameters(t *testing.T) {
	ok := []Parameter{{Name: "Hb", Value: "5.9", Status: ParamCritical}, {Name: "WBC", Value: "7.1", Status: ParamNormal}}
	if err := ValidateParameters(ok); err != nil {
		t.Errorf("unexpected error: %v", err)
	}
	bad := [][]Parameter{
		{{Name: "Hb", Status: "panic"}},
		{{Name: "", Status: ParamNormal}},
		{{Name: "Hb", Status: ParamNormal}, {Name: "Hb", Status: ParamLow}},
	}
	for i, params := range bad {
		if err := ValidateParameters(params); apperr.KindOf(err) != apperr.KindValidation {
			t.Errorf("case %d: expected validation error, got %v", i, err)
		}
	}
}

func TestVerificationHash(t *testing.T) {
	got := VerificationHash("6f1c1f7e-8a7e-4a43-9d55-3c2f4d0b9a11", "UHID000001", "SMP00000001")
	if got != "b2284f326975d8b5" {
		t.Errorf("unexpected hash %s", got)
	}
	if len(got) != 16 {
		t.Errorf("expected 16 characters, got %d", len(got))
	}
	if VerificationHash("a", "b", "c") == VerificationHash("a", "b", "d") {
		t.Error("expected different inputs to give different hashes")
	}
}

func TestResultValidateTransition(t *testing.T) {
	if err := ValidateTransition(StatusDraft, StatusApproved, true); err != nil {
		t.Errorf("draft -> approved: %v", err)
	}
	if err := ValidateTransition(StatusUnderReview, StatusDraft, true); err != nil {
		t.Errorf("under_review -> draft: %v", err)
	}
	if err := ValidateTransition(StatusDraft, StatusFinalized, true); err == nil {
		t.Error("expected draft -> finalized to be refused in strict mode")
	}
	if err := ValidateTransition(StatusFinalized, StatusDraft, true); err == nil {
		t.Error("expected finalized to be terminal in strict mode")
	}
	if err := ValidateTransition(StatusDraft, StatusFinalized, false); err != nil {
		t.Errorf("expected permissive mode to allow draft -> finalized, got %v", err)
	}
}
