package specimen

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus"

	"github.com/lims/lims/internal/domain/audit"
	"github.com/lims/lims/internal/domain/catalog"
	"github.com/lims/lims/internal/domain/patient"
	"github.com/lims/lims/internal/platform/apperr"
	"github.com/lims/lims/internal/platform/auth"
	"github.com/lims/lims/internal/platform/db"
	"github.com/lims/lims/internal/platform/sequence"
	"github.com/lims/lims/internal/platform/websocket"
)

// PatientLookup resolves the patient a specimen is drawn from.
type PatientLookup interface {
	Get(ctx context.Context, id uuid.UUID) (*patient.Patient, error)
}

// TestLookup resolves ordered tests from the catalog.
type TestLookup interface {
	GetByIDs(ctx context.Context, ids []uuid.UUID) ([]*catalog.TestDefinition, error)
}

// Options tunes the lifecycle. The zero value is permissive with no
// publisher and no metrics.
type Options struct {
	Strict      bool
	Publisher   websocket.EventPublisher
	Transitions *prometheus.CounterVec
}

type Service struct {
	repo     Repository
	patients PatientLookup
	tests    TestLookup
	ids      sequence.Allocator
	audit    *audit.Recorder
	tx       db.Transactor
	opts     Options
	now      func() time.Time
}

func NewService(repo Repository, patients PatientLookup, tests TestLookup, ids sequence.Allocator,
	recorder *audit.Recorder, tx db.Transactor, opts Options) *Service {
	if tx == nil {
		tx = db.NoTx{}
	}
	if opts.Publisher == nil {
		opts.Publisher = websocket.NopPublisher{}
	}
	return &Service{
		repo:     repo,
		patients: patients,
		tests:    tests,
		ids:      ids,
		audit:    recorder,
		tx:       tx,
		opts:     opts,
		now:      time.Now,
	}
}

// Strict reports whether status changes follow the transition table.
func (s *Service) Strict() bool { return s.opts.Strict }

// CreateInput describes a collected specimen.
type CreateInput struct {
	PatientID    uuid.UUID   `json:"patient_id"`
	TestIDs      []uuid.UUID `json:"test_ids"`
	SpecimenType string      `json:"specimen_type"`
	// CollectionTime defaults to now and may not lie in the future.
	CollectionTime *time.Time `json:"collection_time,omitempty"`
	EMROrderID     *string    `json:"emr_order_id,omitempty"`
	OrderedBy      *string    `json:"ordered_by,omitempty"`
	Priority       string     `json:"priority,omitempty"`
}

func dedupe(ids []uuid.UUID) []uuid.UUID {
	seen := make(map[uuid.UUID]bool, len(ids))
	out := make([]uuid.UUID, 0, len(ids))
	for _, id := range ids {
		if !seen[id] {
			seen[id] = true
			out = append(out, id)
		}
	}
	return out
}

// snapshot copies the catalog entries in the order they were requested.
func (s *Service) snapshot(ctx context.Context, ids []uuid.UUID) ([]OrderedTest, string, error) {
	defs, err := s.tests.GetByIDs(ctx, ids)
	if err != nil {
		return nil, "", err
	}
	byID := make(map[uuid.UUID]*catalog.TestDefinition, len(defs))
	for _, d := range defs {
		byID[d.ID] = d
	}
	tests := make([]OrderedTest, 0, len(ids))
	var missing []string
	var specimenType string
	for _, id := range ids {
		d, ok := byID[id]
		if !ok {
			missing = append(missing, id.String())
			continue
		}
		if specimenType == "" {
			specimenType = d.SpecimenType
		}
		tests = append(tests, OrderedTest{TestID: d.ID, Code: d.Code, Name: d.Name, Price: d.Price, TATHours: d.TATHours})
	}
	if len(missing) > 0 {
		return nil, "", apperr.NotFound("tests not found: %s", strings.Join(missing, ", "))
	}
	return tests, specimenType, nil
}

// Create registers a collected specimen for a patient. It starts in
// collected with its deadline set by the longest ordered turnaround.
func (s *Service) Create(ctx context.Context, in CreateInput) (*Specimen, error) {
	ids := dedupe(in.TestIDs)
	if len(ids) == 0 {
		return nil, apperr.Validation("at least one test is required")
	}
	switch in.Priority {
	case "":
		in.Priority = PriorityRoutine
	case PriorityRoutine, PriorityUrgent, PriorityStat:
	default:
		return nil, apperr.Validation("priority must be routine, urgent or stat")
	}

	p, err := s.patients.Get(ctx, in.PatientID)
	if err != nil {
		return nil, err
	}
	tests, defaultType, err := s.snapshot(ctx, ids)
	if err != nil {
		return nil, err
	}
	specimenType := strings.TrimSpace(in.SpecimenType)
	if specimenType == "" {
		specimenType = defaultType
	}
	if specimenType == "" {
		return nil, apperr.Validation("specimen_type is required")
	}

	now := s.now().UTC()
	collected := now
	if in.CollectionTime != nil {
		if in.CollectionTime.After(now) {
			return nil, apperr.Validation("collection_time is in the future")
		}
		collected = in.CollectionTime.UTC()
	}
	deadline, err := ComputeDeadline(collected, tests)
	if err != nil {
		return nil, err
	}

	n, err := s.ids.Next(ctx, sequence.KindSpecimen)
	if err != nil {
		return nil, fmt.Errorf("allocate sample code: %w", err)
	}

	actor := auth.ActorFromContext(ctx)
	sp := &Specimen{
		SampleCode:     sequence.SpecimenCode(n),
		Barcode:        sequence.Barcode(n),
		PatientID:      p.ID,
		PatientName:    p.Name,
		PatientUHID:    p.UHID,
		Tests:          tests,
		SpecimenType:   specimenType,
		CollectionTime: collected,
		CollectedBy:    actor.UserID,
		TATDeadline:    deadline,
		Status:         StatusCollected,
		EMROrderID:     in.EMROrderID,
		OrderedBy:      in.OrderedBy,
		Priority:       in.Priority,
	}
	err = s.tx.InTx(ctx, func(ctx context.Context) error {
		if err := s.repo.Create(ctx, sp); err != nil {
			return err
		}
		return s.audit.Record(ctx, actor, audit.ActionCreate, audit.ModuleSpecimens, audit.Details{
			"specimen_id":  sp.ID.String(),
			"sample_code":  sp.SampleCode,
			"patient_uhid": sp.PatientUHID,
			"test_count":   len(sp.Tests),
			"tat_deadline": sp.TATDeadline.Format(time.RFC3339),
		})
	})
	if err != nil {
		return nil, err
	}
	s.transitioned(ctx, sp, "specimen.created")
	return sp, nil
}

// SetStatus moves a specimen along the workflow.
func (s *Service) SetStatus(ctx context.Context, id uuid.UUID, status string) (*Specimen, error) {
	to, err := ParseStatus(status)
	if err != nil {
		return nil, err
	}
	if to == StatusRejected {
		return nil, apperr.Validation("use reject to mark a specimen rejected")
	}

	var sp *Specimen
	err = s.tx.InTx(ctx, func(ctx context.Context) error {
		sp, err = s.repo.GetByID(ctx, id)
		if err != nil {
			return err
		}
		from := sp.Status
		if err := ValidateTransition(from, to, s.opts.Strict); err != nil {
			return err
		}
		sp.Status = to
		if err := s.repo.UpdateStatus(ctx, sp, from); err != nil {
			return err
		}
		return s.audit.Record(ctx, auth.ActorFromContext(ctx), audit.ActionUpdateStatus, audit.ModuleSpecimens, audit.Details{
			"specimen_id": sp.ID.String(),
			"sample_code": sp.SampleCode,
			"old_status":  string(from),
			"new_status":  string(to),
		})
	})
	if err != nil {
		return nil, err
	}
	s.transitioned(ctx, sp, "specimen.status_changed")
	return sp, nil
}

// Reject marks a specimen unusable. The reason is stored exactly as given;
// rejecting again replaces it.
func (s *Service) Reject(ctx context.Context, id uuid.UUID, reason string) (*Specimen, error) {
	if strings.TrimSpace(reason) == "" {
		return nil, apperr.Validation("rejection reason is required")
	}

	var sp *Specimen
	var err error
	err = s.tx.InTx(ctx, func(ctx context.Context) error {
		sp, err = s.repo.GetByID(ctx, id)
		if err != nil {
			return err
		}
		from := sp.Status
		if err := ValidateRejection(from, s.opts.Strict); err != nil {
			return err
		}
		sp.Status = StatusRejected
		sp.IsRejected = true
		sp.RejectionReason = &reason
		if err := s.repo.UpdateStatus(ctx, sp, from); err != nil {
			return err
		}
		return s.audit.Record(ctx, auth.ActorFromContext(ctx), audit.ActionReject, audit.ModuleSpecimens, audit.Details{
			"specimen_id": sp.ID.String(),
			"sample_code": sp.SampleCode,
			"old_status":  string(from),
			"reason":      reason,
		})
	})
	if err != nil {
		return nil, err
	}
	s.transitioned(ctx, sp, "specimen.rejected")
	return sp, nil
}

func (s *Service) transitioned(ctx context.Context, sp *Specimen, eventType string) {
	if s.opts.Transitions != nil {
		s.opts.Transitions.WithLabelValues(string(sp.Status)).Inc()
	}
	_ = s.opts.Publisher.Publish(ctx, websocket.NewEvent(websocket.TopicSpecimens, eventType, "specimen", sp.ID.String(), map[string]interface{}{
		"sample_code":  sp.SampleCode,
		"status":       sp.Status,
		"patient_uhid": sp.PatientUHID,
	}))
}

func (s *Service) Get(ctx context.Context, id uuid.UUID) (*Specimen, error) {
	return s.repo.GetByID(ctx, id)
}

func (s *Service) GetBySampleCode(ctx context.Context, code string) (*Specimen, error) {
	return s.repo.GetBySampleCode(ctx, strings.ToUpper(strings.TrimSpace(code)))
}

func (s *Service) List(ctx context.Context, f Filter, limit, offset int) ([]*Specimen, int, error) {
	if f.Status != "" {
		if _, err := ParseStatus(string(f.Status)); err != nil {
			return nil, 0, err
		}
	}
	return s.repo.List(ctx, f, limit, offset)
}

// Breached reports whether the specimen is currently past its deadline.
func (s *Service) Breached(sp *Specimen) bool {
	return IsBreached(sp, s.now())
}
