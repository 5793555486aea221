package result

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/lims/lims/internal/platform/db"
)

type resultRepoPG struct{ pool *pgxpool.Pool }

func NewRepoPG(pool *pgxpool.Pool) Repository {
	return &resultRepoPG{pool: pool}
}

func (r *resultRepoPG) conn(ctx context.Context) db.Querier {
	return db.Conn(ctx, r.pool)
}

const resultCols = `id, specimen_id, patient_id, test_name, parameters, status, entered_by,
	reviewed_by, approved_by, has_critical_values, interpretation, created_at, updated_at`

func scanResult(row pgx.Row) (*Result, error) {
	var res Result
	var params []byte
	if err := row.Scan(&res.ID, &res.SpecimenID, &res.PatientID, &res.TestName, &params, &res.Status, &res.EnteredBy,
		&res.ReviewedBy, &res.ApprovedBy, &res.HasCriticalValues, &res.Interpretation, &res.CreatedAt, &res.UpdatedAt); err != nil {
		return nil, err
	}
	if err := json.Unmarshal(params, &res.Parameters); err != nil {
		return nil, fmt.Errorf("decode parameters of result %s: %w", res.ID, err)
	}
	return &res, nil
}

func encodeParams(params []Parameter) ([]byte, error) {
	if params == nil {
		params = []Parameter{}
	}
	b, err := json.Marshal(params)
	if err != nil {
		return nil, fmt.Errorf("encode parameters: %w", err)
	}
	return b, nil
}

func (r *resultRepoPG) Create(ctx context.Context, res *Result) error {
	if res.ID == uuid.Nil {
		res.ID = uuid.New()
	}
	params, err := encodeParams(res.Parameters)
	if err != nil {
		return err
	}
	err = r.conn(ctx).QueryRow(ctx, `
		INSERT INTO results (id, specimen_id, patient_id, test_name, parameters, status, entered_by,
			reviewed_by, approved_by, has_critical_values, interpretation)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
		RETURNING created_at, updated_at`,
		res.ID, res.SpecimenID, res.PatientID, res.TestName, params, res.Status, res.EnteredBy,
		res.ReviewedBy, res.ApprovedBy, res.HasCriticalValues, res.Interpretation,
	).Scan(&res.CreatedAt, &res.UpdatedAt)
	return db.MapError(err, "result")
}

func (r *resultRepoPG) GetByID(ctx context.Context, id uuid.UUID) (*Result, error) {
	res, err := scanResult(r.conn(ctx).QueryRow(ctx, `SELECT `+resultCols+` FROM results WHERE id = $1`, id))
	if err != nil {
		return nil, db.MapError(err, "result")
	}
	return res, nil
}

func (r *resultRepoPG) Update(ctx context.Context, res *Result) error {
	params, err := encodeParams(res.Parameters)
	if err != nil {
		return err
	}
	err = r.conn(ctx).QueryRow(ctx, `
		UPDATE results SET parameters = $2, status = $3, reviewed_by = $4, approved_by = $5,
			has_critical_values = $6, interpretation = $7, updated_at = NOW()
		WHERE id = $1
		RETURNING updated_at`,
		res.ID, params, res.Status, res.ReviewedBy, res.ApprovedBy, res.HasCriticalValues, res.Interpretation,
	).Scan(&res.UpdatedAt)
	return db.MapError(err, "result")
}

func (r *resultRepoPG) List(ctx context.Context, f Filter, limit, offset int) ([]*Result, int, error) {
	where := ` WHERE ($1::uuid IS NULL OR specimen_id = $1) AND ($2::uuid IS NULL OR patient_id = $2)
		AND ($3 = '' OR status = $3)`
	args := []interface{}{nullable(f.SpecimenID), nullable(f.PatientID), string(f.Status)}

	var total int
	if err := r.conn(ctx).QueryRow(ctx, `SELECT COUNT(*) FROM results`+where, args...).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("count results: %w", err)
	}

	rows, err := r.conn(ctx).Query(ctx, `SELECT `+resultCols+` FROM results`+where+`
		ORDER BY created_at DESC LIMIT $4 OFFSET $5`, append(args, limit, offset)...)
	if err != nil {
		return nil, 0, fmt.Errorf("list results: %w", err)
	}
	defer rows.Close()

	var items []*Result
	for rows.Next() {
		res, err := scanResult(rows)
		if err != nil {
			return nil, 0, err
		}
		items = append(items, res)
	}
	return items, total, rows.Err()
}

func nullable(id uuid.UUID) *uuid.UUID {
	if id == uuid.Nil {
		return nil
	}
	return &id
}
