package result

import (
	"context"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus"

	"github.com/lims/lims/internal/domain/audit"
	"github.com/lims/lims/internal/domain/patient"
	"github.com/lims/lims/internal/domain/specimen"
	"github.com/lims/lims/internal/platform/apperr"
	"github.com/lims/lims/internal/platform/auth"
	"github.com/lims/lims/internal/platform/db"
	"github.com/lims/lims/internal/platform/websocket"
)

type SpecimenLookup interface {
	Get(ctx context.Context, id uuid.UUID) (*specimen.Specimen, error)
}

type PatientLookup interface {
	Get(ctx context.Context, id uuid.UUID) (*patient.Patient, error)
}

type Options struct {
	Strict          bool
	LabName         string
	Publisher       websocket.EventPublisher
	CriticalResults prometheus.Counter
}

type Service struct {
	repo      Repository
	specimens SpecimenLookup
	patients  PatientLookup
	audit     *audit.Recorder
	tx        db.Transactor
	opts      Options
	now       func() time.Time
}

func NewService(repo Repository, specimens SpecimenLookup, patients PatientLookup, recorder *audit.Recorder,
	tx db.Transactor, opts Options) *Service {
	if tx == nil {
		tx = db.NoTx{}
	}
	if opts.Publisher == nil {
		opts.Publisher = websocket.NopPublisher{}
	}
	return &Service{
		repo:      repo,
		specimens: specimens,
		patients:  patients,
		audit:     recorder,
		tx:        tx,
		opts:      opts,
		now:       time.Now,
	}
}

type CreateInput struct {
	SpecimenID     uuid.UUID   `json:"specimen_id"`
	TestName       string      `json:"test_name"`
	Parameters     []Parameter `json:"parameters"`
	Interpretation string      `json:"interpretation"`
}

// Create enters a draft result for one test ordered on a specimen. Only one
// result exists per specimen and test.
func (s *Service) Create(ctx context.Context, in CreateInput) (*Result, error) {
	in.TestName = strings.TrimSpace(in.TestName)
	if in.TestName == "" {
		return nil, apperr.Validation("test_name is required")
	}
	if err := ValidateParameters(in.Parameters); err != nil {
		return nil, err
	}

	sp, err := s.specimens.Get(ctx, in.SpecimenID)
	if err != nil {
		return nil, err
	}
	if sp.IsRejected {
		return nil, apperr.Validation("specimen %s is rejected", sp.SampleCode)
	}
	if !sp.HasTest(in.TestName) {
		return nil, apperr.Validation("test %s was not ordered on specimen %s", in.TestName, sp.SampleCode)
	}
	actor := auth.ActorFromContext(ctx)
	res := &Result{
		SpecimenID:        sp.ID,
		PatientID:         sp.PatientID,
		TestName:          in.TestName,
		Parameters:        in.Parameters,
		Status:            StatusDraft,
		EnteredBy:         actor.UserID,
		HasCriticalValues: DeriveCriticalFlag(in.Parameters),
		Interpretation:    in.Interpretation,
	}
	if res.Parameters == nil {
		res.Parameters = []Parameter{}
	}
	err = s.tx.InTx(ctx, func(ctx context.Context) error {
		if err := s.repo.Create(ctx, res); err != nil {
			if apperr.KindOf(err) == apperr.KindConflict {
				return apperr.Conflict("result for %s on specimen %s already exists", in.TestName, sp.SampleCode)
			}
			return err
		}
		return s.audit.Record(ctx, actor, audit.ActionCreate, audit.ModuleResults, audit.Details{
			"result_id":    res.ID.String(),
			"specimen_id":  sp.ID.String(),
			"sample_code":  sp.SampleCode,
			"test_name":    res.TestName,
			"has_critical": res.HasCriticalValues,
		})
	})
	if err != nil {
		return nil, err
	}
	if res.HasCriticalValues {
		s.critical(ctx, res, sp)
	}
	return res, nil
}

// UpdateInput carries the fields to change. Nil fields are left alone.
type UpdateInput struct {
	Parameters     *[]Parameter `json:"parameters,omitempty"`
	Status         *string      `json:"status,omitempty"`
	Interpretation *string      `json:"interpretation,omitempty"`
}

// Update edits a result. Replacing parameters recomputes the critical flag.
// Moving to under_review records the reviewer and moving to approved records
// the approver.
func (s *Service) Update(ctx context.Context, id uuid.UUID, in UpdateInput) (*Result, error) {
	var to Status
	if in.Status != nil {
		st, err := ParseStatus(*in.Status)
		if err != nil {
			return nil, err
		}
		to = st
	}
	if in.Parameters != nil {
		if err := ValidateParameters(*in.Parameters); err != nil {
			return nil, err
		}
	}

	actor := auth.ActorFromContext(ctx)
	var res *Result
	var newlyCritical bool
	err := s.tx.InTx(ctx, func(ctx context.Context) error {
		var err error
		res, err = s.repo.GetByID(ctx, id)
		if err != nil {
			return err
		}
		from := res.Status
		if from == StatusFinalized && (in.Parameters != nil || in.Interpretation != nil) {
			return apperr.Validation("result %s is finalized", res.ID)
		}
		details := audit.Details{"result_id": res.ID.String(), "test_name": res.TestName}

		if in.Parameters != nil {
			wasCritical := res.HasCriticalValues
			res.Parameters = *in.Parameters
			if res.Parameters == nil {
				res.Parameters = []Parameter{}
			}
			res.HasCriticalValues = DeriveCriticalFlag(res.Parameters)
			newlyCritical = res.HasCriticalValues && !wasCritical
			details["parameters"] = len(res.Parameters)
			details["has_critical"] = res.HasCriticalValues
		}
		if in.Interpretation != nil {
			res.Interpretation = *in.Interpretation
			details["interpretation_changed"] = true
		}
		if in.Status != nil {
			if err := ValidateTransition(from, to, s.opts.Strict); err != nil {
				return err
			}
			res.Status = to
			who := actor.UserID
			switch to {
			case StatusUnderReview:
				res.ReviewedBy = &who
			case StatusApproved:
				res.ApprovedBy = &who
			}
			details["old_status"] = string(from)
			details["new_status"] = string(to)
		}

		if err := s.repo.Update(ctx, res); err != nil {
			return err
		}
		return s.audit.Record(ctx, actor, audit.ActionUpdate, audit.ModuleResults, details)
	})
	if err != nil {
		return nil, err
	}
	if newlyCritical {
		if sp, err := s.specimens.Get(ctx, res.SpecimenID); err == nil {
			s.critical(ctx, res, sp)
		}
	}
	return res, nil
}

func (s *Service) critical(ctx context.Context, res *Result, sp *specimen.Specimen) {
	if s.opts.CriticalResults != nil {
		s.opts.CriticalResults.Inc()
	}
	var params []string
	for _, p := range res.Parameters {
		if p.Status == ParamCritical {
			params = append(params, p.Name)
		}
	}
	_ = s.opts.Publisher.Publish(ctx, websocket.NewEvent(websocket.TopicCriticalResults, "result.critical", "result", res.ID.String(), map[string]interface{}{
		"sample_code":  sp.SampleCode,
		"patient_uhid": sp.PatientUHID,
		"patient_name": sp.PatientName,
		"test_name":    res.TestName,
		"parameters":   params,
	}))
}

func (s *Service) Get(ctx context.Context, id uuid.UUID) (*Result, error) {
	return s.repo.GetByID(ctx, id)
}

func (s *Service) List(ctx context.Context, f Filter, limit, offset int) ([]*Result, int, error) {
	if f.Status != "" {
		if _, err := ParseStatus(string(f.Status)); err != nil {
			return nil, 0, err
		}
	}
	return s.repo.List(ctx, f, limit, offset)
}

// Manifest is the payload encoded into the QR code of a printed report.
type Manifest struct {
	Type             string    `json:"type"`
	LabName          string    `json:"lab_name"`
	ResultID         string    `json:"result_id"`
	UHID             string    `json:"uhid"`
	SampleCode       string    `json:"sample_code"`
	PatientName      string    `json:"patient_name"`
	TestName         string    `json:"test_name"`
	Status           Status    `json:"status"`
	GeneratedAt      time.Time `json:"generated_at"`
	VerificationHash string    `json:"verification_hash"`
}

// ReportManifest builds the QR payload for a signed-off result.
func (s *Service) ReportManifest(ctx context.Context, id uuid.UUID) (*Manifest, error) {
	res, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if !res.Status.SignedOff() {
		return nil, apperr.Validation("result %s is %s; only approved or finalized results are reported", res.ID, res.Status)
	}
	sp, err := s.specimens.Get(ctx, res.SpecimenID)
	if err != nil {
		return nil, err
	}
	p, err := s.patients.Get(ctx, res.PatientID)
	if err != nil {
		return nil, err
	}
	return &Manifest{
		Type:             "lab_report",
		LabName:          s.opts.LabName,
		ResultID:         res.ID.String(),
		UHID:             p.UHID,
		SampleCode:       sp.SampleCode,
		PatientName:      p.Name,
		TestName:         res.TestName,
		Status:           res.Status,
		GeneratedAt:      s.now().UTC(),
		VerificationHash: VerificationHash(res.ID.String(), p.UHID, sp.SampleCode),
	}, nil
}
