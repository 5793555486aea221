package dashboard

import (
	"context"
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/lims/lims/internal/domain/specimen"
)

type Service struct {
	src      Source
	breaches prometheus.Gauge
	now      func() time.Time
}

// NewService reports stats from src. breaches may be nil.
func NewService(src Source, breaches prometheus.Gauge) *Service {
	return &Service{src: src, breaches: breaches, now: time.Now}
}

// StartOfDay returns midnight UTC of t's day.
func StartOfDay(t time.Time) time.Time {
	y, m, d := t.UTC().Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

// Stats gathers the overview. Every specimen status appears in
// SpecimensByStatus, with zero when no specimen is in it.
func (s *Service) Stats(ctx context.Context) (*Stats, error) {
	now := s.now().UTC()
	st, err := s.src.Totals(ctx, StartOfDay(now), now)
	if err != nil {
		return nil, err
	}
	counts, err := s.src.SpecimensByStatus(ctx)
	if err != nil {
		return nil, err
	}
	st.SpecimensByStatus = make(map[string]int, len(specimen.Statuses))
	for _, status := range specimen.Statuses {
		st.SpecimensByStatus[string(status)] = counts[string(status)]
	}
	if s.breaches != nil {
		s.breaches.Set(float64(st.TATBreaches))
	}
	return st, nil
}
