package specimen

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/lims/lims/internal/platform/apperr"
	"github.com/lims/lims/internal/platform/db"
)

type specimenRepoPG struct{ pool *pgxpool.Pool }

func NewRepoPG(pool *pgxpool.Pool) Repository {
	return &specimenRepoPG{pool: pool}
}

func (r *specimenRepoPG) conn(ctx context.Context) db.Querier {
	return db.Conn(ctx, r.pool)
}

const specimenCols = `id, sample_code, barcode, patient_id, patient_name, patient_uhid, tests,
	specimen_type, collection_time, collected_by, tat_deadline, status, is_rejected,
	rejection_reason, emr_order_id, ordered_by, priority, created_at, updated_at`

func scanSpecimen(row pgx.Row) (*Specimen, error) {
	var s Specimen
	var tests []byte
	if err := row.Scan(&s.ID, &s.SampleCode, &s.Barcode, &s.PatientID, &s.PatientName, &s.PatientUHID, &tests,
		&s.SpecimenType, &s.CollectionTime, &s.CollectedBy, &s.TATDeadline, &s.Status, &s.IsRejected,
		&s.RejectionReason, &s.EMROrderID, &s.OrderedBy, &s.Priority, &s.CreatedAt, &s.UpdatedAt); err != nil {
		return nil, err
	}
	if err := json.Unmarshal(tests, &s.Tests); err != nil {
		return nil, fmt.Errorf("decode tests of %s: %w", s.SampleCode, err)
	}
	return &s, nil
}

func (r *specimenRepoPG) Create(ctx context.Context, s *Specimen) error {
	if s.ID == uuid.Nil {
		s.ID = uuid.New()
	}
	tests, err := json.Marshal(s.Tests)
	if err != nil {
		return fmt.Errorf("encode tests: %w", err)
	}
	err = r.conn(ctx).QueryRow(ctx, `
		INSERT INTO specimens (id, sample_code, barcode, patient_id, patient_name, patient_uhid, tests,
			specimen_type, collection_time, collected_by, tat_deadline, status, is_rejected,
			rejection_reason, emr_order_id, ordered_by, priority)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, $17)
		RETURNING created_at, updated_at`,
		s.ID, s.SampleCode, s.Barcode, s.PatientID, s.PatientName, s.PatientUHID, tests,
		s.SpecimenType, s.CollectionTime, s.CollectedBy, s.TATDeadline, s.Status, s.IsRejected,
		s.RejectionReason, s.EMROrderID, s.OrderedBy, s.Priority,
	).Scan(&s.CreatedAt, &s.UpdatedAt)
	return db.MapError(err, "specimen")
}

func (r *specimenRepoPG) GetByID(ctx context.Context, id uuid.UUID) (*Specimen, error) {
	s, err := scanSpecimen(r.conn(ctx).QueryRow(ctx, `SELECT `+specimenCols+` FROM specimens WHERE id = $1`, id))
	if err != nil {
		return nil, db.MapError(err, "specimen")
	}
	return s, nil
}

func (r *specimenRepoPG) GetBySampleCode(ctx context.Context, code string) (*Specimen, error) {
	s, err := scanSpecimen(r.conn(ctx).QueryRow(ctx, `SELECT `+specimenCols+` FROM specimens WHERE sample_code = $1`, code))
	if err != nil {
		return nil, db.MapError(err, "specimen")
	}
	return s, nil
}

func (r *specimenRepoPG) UpdateStatus(ctx context.Context, s *Specimen, from Status) error {
	err := r.conn(ctx).QueryRow(ctx, `
		UPDATE specimens SET status = $2, is_rejected = $3, rejection_reason = $4, updated_at = NOW()
		WHERE id = $1 AND status = $5
		RETURNING updated_at`,
		s.ID, s.Status, s.IsRejected, s.RejectionReason, from,
	).Scan(&s.UpdatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return apperr.Conflict("specimen %s is no longer %s", s.SampleCode, from)
	}
	return db.MapError(err, "specimen")
}

func (r *specimenRepoPG) List(ctx context.Context, f Filter, limit, offset int) ([]*Specimen, int, error) {
	where := ` WHERE ($1 = '' OR status = $1) AND ($2::uuid IS NULL OR patient_id = $2)`
	var patientID *uuid.UUID
	if f.PatientID != uuid.Nil {
		patientID = &f.PatientID
	}

	var total int
	if err := r.conn(ctx).QueryRow(ctx, `SELECT COUNT(*) FROM specimens`+where, string(f.Status), patientID).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("count specimens: %w", err)
	}

	rows, err := r.conn(ctx).Query(ctx, `SELECT `+specimenCols+` FROM specimens`+where+`
		ORDER BY created_at DESC LIMIT $3 OFFSET $4`, string(f.Status), patientID, limit, offset)
	if err != nil {
		return nil, 0, fmt.Errorf("list specimens: %w", err)
	}
	defer rows.Close()

	var items []*Specimen
	for rows.Next() {
		s, err := scanSpecimen(rows)
		if err != nil {
			return nil, 0, err
		}
		items = append(items, s)
	}
	return items, total, rows.Err()
}
