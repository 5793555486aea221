package result

import (
	"strings"

	"github.com/lims/lims/internal/platform/apperr"
)

// DeriveCriticalFlag reports whether any parameter is flagged critical.
func DeriveCriticalFlag(params []Parameter) bool {
	for _, p := range params {
		if p.Status == ParamCritical {
			return true
		}
	}
	return false
}

// ValidateParameters checks names and statuses. Statuses are taken as
// supplied; nothing is recomputed from the value.
func ValidateParameters(params []Parameter) error {
	seen := make(map[string]bool, len(params))
	for i, p := range params {
		name := strings.TrimSpace(p.Name)
		if name == "" {
			return apperr.Validation("parameter %d has no name", i)
		}
		if seen[name] {
			return apperr.Validation("parameter %s is reported twice", name)
		}
		seen[name] = true
		switch p.Status {
		case ParamNormal, ParamHigh, ParamLow, ParamCritical:
		default:
			return apperr.Validation("parameter %s has unknown status %q", name, p.Status)
		}
	}
	return nil
}
