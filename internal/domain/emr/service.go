// Package emr lets an external EMR register patients, place lab orders and
// read back results without knowing internal identifiers.
package emr

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/lims/lims/internal/domain/catalog"
	"github.com/lims/lims/internal/domain/patient"
	"github.com/lims/lims/internal/domain/result"
	"github.com/lims/lims/internal/domain/specimen"
	"github.com/lims/lims/internal/platform/apperr"
)

type Patients interface {
	Create(ctx context.Context, in patient.CreateInput) (*patient.Patient, error)
	GetByUHID(ctx context.Context, uhid string) (*patient.Patient, error)
	FindByPhone(ctx context.Context, phone string) (*patient.Patient, error)
	FindByEMRID(ctx context.Context, emrID string) (*patient.Patient, error)
}

type Catalog interface {
	GetByCodes(ctx context.Context, codes []string) ([]*catalog.TestDefinition, error)
}

type Specimens interface {
	Create(ctx context.Context, in specimen.CreateInput) (*specimen.Specimen, error)
	GetBySampleCode(ctx context.Context, code string) (*specimen.Specimen, error)
}

type Results interface {
	List(ctx context.Context, f result.Filter, limit, offset int) ([]*result.Result, int, error)
}

// MaxPatientResults caps the results returned for one patient.
const MaxPatientResults = 1000

const (
	StatusCreated = "created"
	StatusExists  = "exists"
)

type PatientInput struct {
	EMRPatientID string `json:"emr_patient_id"`
	Name         string `json:"name"`
	Age          int    `json:"age"`
	Gender       string `json:"gender"`
	Phone        string `json:"phone"`
	Email        string `json:"email,omitempty"`
	Address      string `json:"address,omitempty"`
	PatientType  string `json:"patient_type,omitempty"`
}

func (in PatientInput) createInput() patient.CreateInput {
	out := patient.CreateInput{
		Name:        in.Name,
		Age:         in.Age,
		Gender:      in.Gender,
		Phone:       in.Phone,
		Email:       in.Email,
		Address:     in.Address,
		PatientType: in.PatientType,
	}
	if id := strings.TrimSpace(in.EMRPatientID); id != "" {
		out.EMRPatientID = &id
	}
	return out
}

type Registration struct {
	Status       string    `json:"status"`
	UHID         string    `json:"uhid"`
	PatientID    uuid.UUID `json:"patient_id"`
	EMRPatientID string    `json:"emr_patient_id"`
}

type OrderInput struct {
	EMROrderID     string        `json:"emr_order_id"`
	UHID           string        `json:"uhid,omitempty"`
	EMRPatientID   string        `json:"emr_patient_id,omitempty"`
	PatientDetails *PatientInput `json:"patient_details,omitempty"`
	SpecimenType   string        `json:"sample_type"`
	TestCodes      []string      `json:"test_codes"`
	OrderedBy      string        `json:"ordered_by"`
	Priority       string        `json:"priority,omitempty"`
}

type OrderedTest struct {
	Name     string `json:"test_name"`
	TATHours int    `json:"tat_hours"`
}

type Order struct {
	UHID        string        `json:"uhid"`
	PatientID   uuid.UUID     `json:"patient_id"`
	PatientName string        `json:"patient_name"`
	SpecimenID  uuid.UUID     `json:"specimen_id"`
	SampleCode  string        `json:"sample_id"`
	Barcode     string        `json:"barcode"`
	Tests       []OrderedTest `json:"tests"`
	TATDeadline time.Time     `json:"tat_deadline"`
	EMROrderID  string        `json:"emr_order_id"`
}

type Service struct {
	patients  Patients
	catalog   Catalog
	specimens Specimens
	results   Results
}

func NewService(patients Patients, cat Catalog, specimens Specimens, results Results) *Service {
	return &Service{patients: patients, catalog: cat, specimens: specimens, results: results}
}

// RegisterPatient returns the existing patient when one is already
// registered under the same phone number, otherwise creates one.
func (s *Service) RegisterPatient(ctx context.Context, in PatientInput) (*Registration, error) {
	if phone := strings.TrimSpace(in.Phone); phone != "" {
		existing, err := s.patients.FindByPhone(ctx, phone)
		if err == nil {
			return &Registration{Status: StatusExists, UHID: existing.UHID, PatientID: existing.ID, EMRPatientID: in.EMRPatientID}, nil
		}
		if !errors.Is(err, apperr.ErrNotFound) {
			return nil, err
		}
	}
	p, err := s.patients.Create(ctx, in.createInput())
	if err != nil {
		return nil, err
	}
	return &Registration{Status: StatusCreated, UHID: p.UHID, PatientID: p.ID, EMRPatientID: in.EMRPatientID}, nil
}

// resolvePatient tries the UHID, then the EMR patient id, then the supplied
// details. A UHID that does not match is an error rather than a fallthrough.
func (s *Service) resolvePatient(ctx context.Context, in OrderInput) (*patient.Patient, error) {
	if uhid := strings.TrimSpace(in.UHID); uhid != "" {
		return s.patients.GetByUHID(ctx, uhid)
	}
	if id := strings.TrimSpace(in.EMRPatientID); id != "" {
		p, err := s.patients.FindByEMRID(ctx, id)
		if err == nil {
			return p, nil
		}
		if !errors.Is(err, apperr.ErrNotFound) {
			return nil, err
		}
	}
	if in.PatientDetails == nil {
		return nil, apperr.Validation("patient information required: uhid, known emr_patient_id or patient_details")
	}
	return s.patients.Create(ctx, in.PatientDetails.createInput())
}

// CreateOrder places a lab order. Unknown test codes are dropped; the order
// fails only when none of them resolve.
func (s *Service) CreateOrder(ctx context.Context, in OrderInput) (*Order, error) {
	if strings.TrimSpace(in.EMROrderID) == "" {
		return nil, apperr.Validation("emr_order_id is required")
	}
	if len(in.TestCodes) == 0 {
		return nil, apperr.Validation("at least one test code is required")
	}
	defs, err := s.catalog.GetByCodes(ctx, in.TestCodes)
	if err != nil {
		return nil, err
	}
	if len(defs) == 0 {
		return nil, apperr.NotFound("no valid tests found for codes %s", strings.Join(in.TestCodes, ", "))
	}

	p, err := s.resolvePatient(ctx, in)
	if err != nil {
		return nil, err
	}

	ids := make([]uuid.UUID, 0, len(defs))
	for _, d := range defs {
		ids = append(ids, d.ID)
	}
	orderID := strings.TrimSpace(in.EMROrderID)
	orderedBy := strings.TrimSpace(in.OrderedBy)
	sp, err := s.specimens.Create(ctx, specimen.CreateInput{
		PatientID:    p.ID,
		TestIDs:      ids,
		SpecimenType: in.SpecimenType,
		EMROrderID:   &orderID,
		OrderedBy:    &orderedBy,
		Priority:     in.Priority,
	})
	if err != nil {
		return nil, err
	}

	tests := make([]OrderedTest, 0, len(sp.Tests))
	for _, t := range sp.Tests {
		tests = append(tests, OrderedTest{Name: t.Name, TATHours: t.TATHours})
	}
	return &Order{
		UHID:        p.UHID,
		PatientID:   p.ID,
		PatientName: p.Name,
		SpecimenID:  sp.ID,
		SampleCode:  sp.SampleCode,
		Barcode:     sp.Barcode,
		Tests:       tests,
		TATDeadline: sp.TATDeadline,
		EMROrderID:  orderID,
	}, nil
}

func (s *Service) PatientByUHID(ctx context.Context, uhid string) (*patient.Patient, error) {
	return s.patients.GetByUHID(ctx, strings.TrimSpace(uhid))
}

func (s *Service) PatientResults(ctx context.Context, patientID uuid.UUID) ([]*result.Result, error) {
	items, _, err := s.results.List(ctx, result.Filter{PatientID: patientID}, MaxPatientResults, 0)
	return items, err
}

func (s *Service) SpecimenStatus(ctx context.Context, sampleCode string) (*specimen.Specimen, error) {
	return s.specimens.GetBySampleCode(ctx, sampleCode)
}
