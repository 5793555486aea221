package qc

import (
	"context"
	"strings"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/shopspring/decimal"

	"github.com/lims/lims/internal/domain/audit"
	"github.com/lims/lims/internal/platform/apperr"
	"github.com/lims/lims/internal/platform/auth"
	"github.com/lims/lims/internal/platform/db"
)

// MaxList caps how many measurements List returns.
const MaxList = 100

type RecordInput struct {
	Date          *time.Time      `json:"date,omitempty"`
	TestName      string          `json:"test_name"`
	QCType        string          `json:"qc_type"`
	Level         string          `json:"level"`
	LotNumber     string          `json:"lot_number"`
	Parameter     string          `json:"parameter"`
	TargetValue   decimal.Decimal `json:"target_value"`
	MeasuredValue decimal.Decimal `json:"measured_value"`
}

type Service struct {
	repo     Repository
	audit    *audit.Recorder
	tx       db.Transactor
	outcomes *prometheus.CounterVec
	now      func() time.Time
}

// NewService builds the QC service. outcomes may be nil.
func NewService(repo Repository, recorder *audit.Recorder, tx db.Transactor, outcomes *prometheus.CounterVec) *Service {
	if tx == nil {
		tx = db.NoTx{}
	}
	return &Service{repo: repo, audit: recorder, tx: tx, outcomes: outcomes, now: time.Now}
}

// Record evaluates a control run against its target and stores it.
func (s *Service) Record(ctx context.Context, in RecordInput) (*Measurement, error) {
	in.TestName = strings.TrimSpace(in.TestName)
	in.Parameter = strings.TrimSpace(in.Parameter)
	if in.TestName == "" || in.Parameter == "" {
		return nil, apperr.Validation("test_name and parameter are required")
	}
	switch in.QCType {
	case "":
		in.QCType = TypeInternal
	case TypeInternal, TypeExternal:
	default:
		return nil, apperr.Validation("qc_type must be %s or %s", TypeInternal, TypeExternal)
	}

	day := s.now().UTC()
	if in.Date != nil {
		day = in.Date.UTC()
	}
	day = time.Date(day.Year(), day.Month(), day.Day(), 0, 0, 0, 0, time.UTC)

	ev := Evaluate(in.TargetValue, in.MeasuredValue)
	actor := auth.ActorFromContext(ctx)
	m := &Measurement{
		MeasuredOn:       day,
		TestName:         in.TestName,
		QCType:           in.QCType,
		Level:            in.Level,
		LotNumber:        in.LotNumber,
		Parameter:        in.Parameter,
		TargetValue:      in.TargetValue,
		MeasuredValue:    in.MeasuredValue,
		Deviation:        ev.Deviation,
		DeviationPercent: ev.DeviationPercent.Round(6),
		Status:           ev.Status,
		EnteredBy:        actor.UserID,
	}
	err := s.tx.InTx(ctx, func(ctx context.Context) error {
		if err := s.repo.Create(ctx, m); err != nil {
			return err
		}
		return s.audit.Record(ctx, actor, audit.ActionCreate, audit.ModuleQC, audit.Details{
			"qc_id":     m.ID.String(),
			"test_name": m.TestName,
			"parameter": m.Parameter,
			"status":    string(m.Status),
		})
	})
	if err != nil {
		return nil, err
	}
	if s.outcomes != nil {
		s.outcomes.WithLabelValues(string(m.Status)).Inc()
	}
	return m, nil
}

// List returns at most MaxList measurements, newest first.
func (s *Service) List(ctx context.Context, f Filter, limit int) ([]*Measurement, error) {
	if limit <= 0 || limit > MaxList {
		limit = MaxList
	}
	return s.repo.List(ctx, f, limit)
}

func (s *Service) Summary(ctx context.Context, testName string) ([]SummaryRow, error) {
	return s.repo.Summary(ctx, strings.TrimSpace(testName))
}
