package patient

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/lims/lims/internal/platform/db"
)

type patientRepoPG struct{ pool *pgxpool.Pool }

func NewRepoPG(pool *pgxpool.Pool) Repository {
	return &patientRepoPG{pool: pool}
}

func (r *patientRepoPG) conn(ctx context.Context) db.Querier {
	return db.Conn(ctx, r.pool)
}

const patientCols = `id, uhid, name, age, gender, phone, email, address, patient_type,
	emr_patient_id, created_by, created_at`

func scanPatient(row pgx.Row) (*Patient, error) {
	var p Patient
	err := row.Scan(&p.ID, &p.UHID, &p.Name, &p.Age, &p.Gender, &p.Phone, &p.Email, &p.Address,
		&p.PatientType, &p.EMRPatientID, &p.CreatedBy, &p.CreatedAt)
	return &p, err
}

func (r *patientRepoPG) Create(ctx context.Context, p *Patient) error {
	if p.ID == uuid.Nil {
		p.ID = uuid.New()
	}
	err := r.conn(ctx).QueryRow(ctx, `
		INSERT INTO patients (id, uhid, name, age, gender, phone, email, address, patient_type,
			emr_patient_id, created_by)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
		RETURNING created_at`,
		p.ID, p.UHID, p.Name, p.Age, p.Gender, p.Phone, p.Email, p.Address, p.PatientType,
		p.EMRPatientID, p.CreatedBy,
	).Scan(&p.CreatedAt)
	return db.MapError(err, "patient")
}

func (r *patientRepoPG) get(ctx context.Context, where string, arg interface{}) (*Patient, error) {
	p, err := scanPatient(r.conn(ctx).QueryRow(ctx,
		`SELECT `+patientCols+` FROM patients WHERE `+where+` ORDER BY created_at LIMIT 1`, arg))
	if err != nil {
		return nil, db.MapError(err, "patient")
	}
	return p, nil
}

func (r *patientRepoPG) GetByID(ctx context.Context, id uuid.UUID) (*Patient, error) {
	return r.get(ctx, "id = $1", id)
}

func (r *patientRepoPG) GetByUHID(ctx context.Context, uhid string) (*Patient, error) {
	return r.get(ctx, "uhid = $1", uhid)
}

func (r *patientRepoPG) FindByPhone(ctx context.Context, phone string) (*Patient, error) {
	return r.get(ctx, "phone = $1", phone)
}

func (r *patientRepoPG) FindByEMRID(ctx context.Context, emrID string) (*Patient, error) {
	return r.get(ctx, "emr_patient_id = $1", emrID)
}

func (r *patientRepoPG) Search(ctx context.Context, query string, limit, offset int) ([]*Patient, int, error) {
	where := ` WHERE $1 = '' OR name ILIKE '%' || $1 || '%' OR uhid ILIKE '%' || $1 || '%' OR phone LIKE '%' || $1 || '%'`

	var total int
	if err := r.conn(ctx).QueryRow(ctx, `SELECT COUNT(*) FROM patients`+where, query).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("count patients: %w", err)
	}

	rows, err := r.conn(ctx).Query(ctx, `SELECT `+patientCols+` FROM patients`+where+`
		ORDER BY created_at DESC LIMIT $2 OFFSET $3`, query, limit, offset)
	if err != nil {
		return nil, 0, fmt.Errorf("search patients: %w", err)
	}
	defer rows.Close()

	var items []*Patient
	for rows.Next() {
		p, err := scanPatient(rows)
		if err != nil {
			return nil, 0, err
		}
		items = append(items, p)
	}
	return items, total, rows.Err()
}

func (r *patientRepoPG) Count(ctx context.Context) (int, error) {
	var n int
	if err := r.conn(ctx).QueryRow(ctx, `SELECT COUNT(*) FROM patients`).Scan(&n); err != nil {
		return 0, fmt.Errorf("count patients: %w", err)
	}
	return n, nil
}
