package specimen

import (
	"time"

	"github.com/lims/lims/internal/platform/apperr"
)

// ComputeDeadline is the collection time plus the longest turnaround of the
// ordered tests.
func ComputeDeadline(collected time.Time, tests []OrderedTest) (time.Time, error) {
	if len(tests) == 0 {
		return time.Time{}, apperr.Validation("at least one test is required")
	}
	longest := 0
	for _, t := range tests {
		if t.TATHours > longest {
			longest = t.TATHours
		}
	}
	return collected.Add(time.Duration(longest) * time.Hour), nil
}

// IsBreached reports whether the specimen is past its deadline without
// signed-off results. Rejected specimens past the deadline count.
func IsBreached(s *Specimen, now time.Time) bool {
	return now.After(s.TATDeadline) && !s.Status.Reported()
}
