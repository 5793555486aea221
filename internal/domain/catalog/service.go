package catalog

import (
	"context"
	"errors"
	"strings"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/lims/lims/internal/domain/audit"
	"github.com/lims/lims/internal/platform/apperr"
	"github.com/lims/lims/internal/platform/auth"
	"github.com/lims/lims/internal/platform/db"
)

// CreateInput is a new catalog entry as submitted or read from a seed file.
type CreateInput struct {
	Code         string          `json:"code" yaml:"code"`
	Name         string          `json:"name" yaml:"name"`
	Category     string          `json:"category" yaml:"category"`
	Price        decimal.Decimal `json:"price" yaml:"price"`
	TATHours     int             `json:"tat_hours" yaml:"tat_hours"`
	SpecimenType string          `json:"specimen_type" yaml:"specimen_type"`
	Parameters   []Parameter     `json:"parameters" yaml:"parameters"`
}

type Service struct {
	repo  Repository
	audit *audit.Recorder
	tx    db.Transactor
}

func NewService(repo Repository, recorder *audit.Recorder, tx db.Transactor) *Service {
	if tx == nil {
		tx = db.NoTx{}
	}
	return &Service{repo: repo, audit: recorder, tx: tx}
}

func (in *CreateInput) normalize() error {
	in.Code = strings.ToUpper(strings.TrimSpace(in.Code))
	in.Name = strings.TrimSpace(in.Name)
	if in.Code == "" {
		return apperr.Validation("code is required")
	}
	if in.Name == "" {
		return apperr.Validation("name is required")
	}
	if in.TATHours <= 0 {
		return apperr.Validation("tat_hours must be positive for %s", in.Code)
	}
	if in.Price.IsNegative() {
		return apperr.Validation("price must not be negative for %s", in.Code)
	}
	seen := make(map[string]bool, len(in.Parameters))
	for i, p := range in.Parameters {
		name := strings.TrimSpace(p.Name)
		if name == "" {
			return apperr.Validation("parameter %d of %s has no name", i, in.Code)
		}
		if seen[name] {
			return apperr.Validation("parameter %s of %s is defined twice", name, in.Code)
		}
		seen[name] = true
		if p.CriticalLow != nil && p.CriticalHigh != nil && p.CriticalLow.GreaterThan(*p.CriticalHigh) {
			return apperr.Validation("critical_low exceeds critical_high for %s/%s", in.Code, name)
		}
		in.Parameters[i].Name = name
	}
	return nil
}

// Create adds a test to the catalog. Codes are unique.
func (s *Service) Create(ctx context.Context, in CreateInput) (*TestDefinition, error) {
	if err := in.normalize(); err != nil {
		return nil, err
	}
	if _, err := s.repo.GetByCode(ctx, in.Code); err == nil {
		return nil, apperr.Conflict("test code %s already exists", in.Code)
	} else if !errors.Is(err, apperr.ErrNotFound) {
		return nil, err
	}

	t := &TestDefinition{
		Code:         in.Code,
		Name:         in.Name,
		Category:     in.Category,
		Price:        in.Price,
		TATHours:     in.TATHours,
		SpecimenType: in.SpecimenType,
		Parameters:   in.Parameters,
	}
	if t.Parameters == nil {
		t.Parameters = []Parameter{}
	}
	err := s.tx.InTx(ctx, func(ctx context.Context) error {
		if err := s.repo.Create(ctx, t); err != nil {
			return err
		}
		return s.audit.Record(ctx, auth.ActorFromContext(ctx), audit.ActionCreate, audit.ModuleTests, audit.Details{
			"test_id":   t.ID.String(),
			"code":      t.Code,
			"tat_hours": t.TATHours,
		})
	})
	if err != nil {
		return nil, err
	}
	return t, nil
}

func (s *Service) Get(ctx context.Context, id uuid.UUID) (*TestDefinition, error) {
	return s.repo.GetByID(ctx, id)
}

func (s *Service) GetByCode(ctx context.Context, code string) (*TestDefinition, error) {
	return s.repo.GetByCode(ctx, strings.ToUpper(strings.TrimSpace(code)))
}

func (s *Service) GetByIDs(ctx context.Context, ids []uuid.UUID) ([]*TestDefinition, error) {
	return s.repo.GetByIDs(ctx, ids)
}

// GetByCodes resolves codes case-insensitively. Unknown codes are dropped.
func (s *Service) GetByCodes(ctx context.Context, codes []string) ([]*TestDefinition, error) {
	norm := make([]string, 0, len(codes))
	for _, c := range codes {
		if c = strings.ToUpper(strings.TrimSpace(c)); c != "" {
			norm = append(norm, c)
		}
	}
	if len(norm) == 0 {
		return nil, nil
	}
	return s.repo.GetByCodes(ctx, norm)
}

func (s *Service) List(ctx context.Context, category string, limit, offset int) ([]*TestDefinition, int, error) {
	return s.repo.List(ctx, category, limit, offset)
}

// SeedReport summarises a Seed run.
type SeedReport struct {
	Created []string `json:"created"`
	Skipped []string `json:"skipped"`
}

// Seed creates every definition whose code is not yet in the catalog.
// Existing codes are skipped, so the same file can be applied repeatedly.
func (s *Service) Seed(ctx context.Context, defs []CreateInput) (*SeedReport, error) {
	report := &SeedReport{Created: []string{}, Skipped: []string{}}
	for _, in := range defs {
		t, err := s.Create(ctx, in)
		switch {
		case err == nil:
			report.Created = append(report.Created, t.Code)
		case errors.Is(err, apperr.ErrConflict):
			report.Skipped = append(report.Skipped, strings.ToUpper(strings.TrimSpace(in.Code)))
		default:
			return report, err
		}
	}
	return report, nil
}
