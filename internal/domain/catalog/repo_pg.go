package catalog

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"

	"github.com/lims/lims/internal/platform/db"
)

type catalogRepoPG struct{ pool *pgxpool.Pool }

func NewRepoPG(pool *pgxpool.Pool) Repository {
	return &catalogRepoPG{pool: pool}
}

func (r *catalogRepoPG) conn(ctx context.Context) db.Querier {
	return db.Conn(ctx, r.pool)
}

const testCols = `id, code, name, category, price::text, tat_hours, specimen_type, parameters, created_at`

func scanTest(row pgx.Row) (*TestDefinition, error) {
	var t TestDefinition
	var price string
	var params []byte
	if err := row.Scan(&t.ID, &t.Code, &t.Name, &t.Category, &price, &t.TATHours,
		&t.SpecimenType, &params, &t.CreatedAt); err != nil {
		return nil, err
	}
	p, err := decimal.NewFromString(price)
	if err != nil {
		return nil, fmt.Errorf("parse price of %s: %w", t.Code, err)
	}
	t.Price = p
	if err := json.Unmarshal(params, &t.Parameters); err != nil {
		return nil, fmt.Errorf("decode parameters of %s: %w", t.Code, err)
	}
	return &t, nil
}

func (r *catalogRepoPG) Create(ctx context.Context, t *TestDefinition) error {
	if t.ID == uuid.Nil {
		t.ID = uuid.New()
	}
	if t.Parameters == nil {
		t.Parameters = []Parameter{}
	}
	params, err := json.Marshal(t.Parameters)
	if err != nil {
		return fmt.Errorf("encode parameters: %w", err)
	}
	err = r.conn(ctx).QueryRow(ctx, `
		INSERT INTO test_definitions (id, code, name, category, price, tat_hours, specimen_type, parameters)
		VALUES ($1, $2, $3, $4, $5::numeric, $6, $7, $8)
		RETURNING created_at`,
		t.ID, t.Code, t.Name, t.Category, t.Price.String(), t.TATHours, t.SpecimenType, params,
	).Scan(&t.CreatedAt)
	return db.MapError(err, "test definition")
}

func (r *catalogRepoPG) GetByID(ctx context.Context, id uuid.UUID) (*TestDefinition, error) {
	t, err := scanTest(r.conn(ctx).QueryRow(ctx, `SELECT `+testCols+` FROM test_definitions WHERE id = $1`, id))
	if err != nil {
		return nil, db.MapError(err, "test definition")
	}
	return t, nil
}

func (r *catalogRepoPG) GetByCode(ctx context.Context, code string) (*TestDefinition, error) {
	t, err := scanTest(r.conn(ctx).QueryRow(ctx, `SELECT `+testCols+` FROM test_definitions WHERE code = $1`, code))
	if err != nil {
		return nil, db.MapError(err, "test definition")
	}
	return t, nil
}

func (r *catalogRepoPG) many(ctx context.Context, sql string, args ...interface{}) ([]*TestDefinition, error) {
	rows, err := r.conn(ctx).Query(ctx, sql, args...)
	if err != nil {
		return nil, fmt.Errorf("query test definitions: %w", err)
	}
	defer rows.Close()

	var items []*TestDefinition
	for rows.Next() {
		t, err := scanTest(rows)
		if err != nil {
			return nil, err
		}
		items = append(items, t)
	}
	return items, rows.Err()
}

func (r *catalogRepoPG) GetByIDs(ctx context.Context, ids []uuid.UUID) ([]*TestDefinition, error) {
	return r.many(ctx, `SELECT `+testCols+` FROM test_definitions WHERE id = ANY($1) ORDER BY code`, ids)
}

func (r *catalogRepoPG) GetByCodes(ctx context.Context, codes []string) ([]*TestDefinition, error) {
	return r.many(ctx, `SELECT `+testCols+` FROM test_definitions WHERE code = ANY($1) ORDER BY code`, codes)
}

func (r *catalogRepoPG) List(ctx context.Context, category string, limit, offset int) ([]*TestDefinition, int, error) {
	where := ` WHERE $1 = '' OR category = $1`
	var total int
	if err := r.conn(ctx).QueryRow(ctx, `SELECT COUNT(*) FROM test_definitions`+where, category).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("count test definitions: %w", err)
	}
	items, err := r.many(ctx, `SELECT `+testCols+` FROM test_definitions`+where+`
		ORDER BY category, name LIMIT $2 OFFSET $3`, category, limit, offset)
	if err != nil {
		return nil, 0, err
	}
	return items, total, nil
}
