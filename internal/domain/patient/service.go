package patient

import (
	"context"
	"fmt"
	"strings"

	"github.com/google/uuid"

	"github.com/lims/lims/internal/domain/audit"
	"github.com/lims/lims/internal/platform/apperr"
	"github.com/lims/lims/internal/platform/auth"
	"github.com/lims/lims/internal/platform/db"
	"github.com/lims/lims/internal/platform/sequence"
)

// CreateInput is the registration form.
type CreateInput struct {
	Name         string  `json:"name"`
	Age          int     `json:"age"`
	Gender       string  `json:"gender"`
	Phone        string  `json:"phone"`
	Email        string  `json:"email"`
	Address      string  `json:"address"`
	PatientType  string  `json:"patient_type"`
	EMRPatientID *string `json:"emr_patient_id,omitempty"`
}

type Service struct {
	repo  Repository
	ids   sequence.Allocator
	audit *audit.Recorder
	tx    db.Transactor
}

func NewService(repo Repository, ids sequence.Allocator, recorder *audit.Recorder, tx db.Transactor) *Service {
	if tx == nil {
		tx = db.NoTx{}
	}
	return &Service{repo: repo, ids: ids, audit: recorder, tx: tx}
}

func (in *CreateInput) normalize() error {
	in.Name = strings.TrimSpace(in.Name)
	in.Phone = strings.TrimSpace(in.Phone)
	if in.Name == "" {
		return apperr.Validation("name is required")
	}
	if in.Age < 0 || in.Age > 150 {
		return apperr.Validation("age must be between 0 and 150, got %d", in.Age)
	}
	switch in.PatientType {
	case "":
		in.PatientType = TypeOutpatient
	case TypeOutpatient, TypeInpatient:
	default:
		return apperr.Validation("patient_type must be %s or %s", TypeOutpatient, TypeInpatient)
	}
	return nil
}

// Create registers a patient under the next UHID. A UHID consumed by a
// failed registration is not handed out again.
func (s *Service) Create(ctx context.Context, in CreateInput) (*Patient, error) {
	if err := in.normalize(); err != nil {
		return nil, err
	}
	n, err := s.ids.Next(ctx, sequence.KindPatient)
	if err != nil {
		return nil, fmt.Errorf("allocate uhid: %w", err)
	}

	actor := auth.ActorFromContext(ctx)
	p := &Patient{
		UHID:         sequence.PatientUHID(n),
		Name:         in.Name,
		Age:          in.Age,
		Gender:       in.Gender,
		Phone:        in.Phone,
		Email:        in.Email,
		Address:      in.Address,
		PatientType:  in.PatientType,
		EMRPatientID: in.EMRPatientID,
		CreatedBy:    actor.UserID,
	}
	err = s.tx.InTx(ctx, func(ctx context.Context) error {
		if err := s.repo.Create(ctx, p); err != nil {
			return err
		}
		return s.audit.Record(ctx, actor, audit.ActionCreate, audit.ModulePatients, audit.Details{
			"patient_id": p.ID.String(),
			"uhid":       p.UHID,
			"name":       p.Name,
		})
	})
	if err != nil {
		return nil, err
	}
	return p, nil
}

func (s *Service) Get(ctx context.Context, id uuid.UUID) (*Patient, error) {
	return s.repo.GetByID(ctx, id)
}

func (s *Service) GetByUHID(ctx context.Context, uhid string) (*Patient, error) {
	return s.repo.GetByUHID(ctx, strings.TrimSpace(uhid))
}

func (s *Service) FindByPhone(ctx context.Context, phone string) (*Patient, error) {
	return s.repo.FindByPhone(ctx, strings.TrimSpace(phone))
}

func (s *Service) FindByEMRID(ctx context.Context, emrID string) (*Patient, error) {
	return s.repo.FindByEMRID(ctx, emrID)
}

func (s *Service) Search(ctx context.Context, query string, limit, offset int) ([]*Patient, int, error) {
	return s.repo.Search(ctx, strings.TrimSpace(query), limit, offset)
}

func (s *Service) Count(ctx context.Context) (int, error) {
	return s.repo.Count(ctx)
}
