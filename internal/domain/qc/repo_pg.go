package qc

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"

	"github.com/lims/lims/internal/platform/db"
)

type qcRepoPG struct{ pool *pgxpool.Pool }

func NewRepoPG(pool *pgxpool.Pool) Repository {
	return &qcRepoPG{pool: pool}
}

func (r *qcRepoPG) conn(ctx context.Context) db.Querier {
	return db.Conn(ctx, r.pool)
}

const qcCols = `id, measured_on, test_name, qc_type, level, lot_number, parameter,
	target_value::text, measured_value::text, deviation::text, deviation_percent::text,
	status, entered_by, created_at`

func scanMeasurement(row pgx.Row) (*Measurement, error) {
	var m Measurement
	var target, measured, dev, pct string
	if err := row.Scan(&m.ID, &m.MeasuredOn, &m.TestName, &m.QCType, &m.Level, &m.LotNumber, &m.Parameter,
		&target, &measured, &dev, &pct, &m.Status, &m.EnteredBy, &m.CreatedAt); err != nil {
		return nil, err
	}
	var err error
	for _, f := range []struct {
		dst *decimal.Decimal
		src string
	}{{&m.TargetValue, target}, {&m.MeasuredValue, measured}, {&m.Deviation, dev}, {&m.DeviationPercent, pct}} {
		if *f.dst, err = decimal.NewFromString(f.src); err != nil {
			return nil, fmt.Errorf("parse qc value %q: %w", f.src, err)
		}
	}
	return &m, nil
}

func (r *qcRepoPG) Create(ctx context.Context, m *Measurement) error {
	if m.ID == uuid.Nil {
		m.ID = uuid.New()
	}
	err := r.conn(ctx).QueryRow(ctx, `
		INSERT INTO qc_measurements (id, measured_on, test_name, qc_type, level, lot_number, parameter,
			target_value, measured_value, deviation, deviation_percent, status, entered_by)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8::numeric, $9::numeric, $10::numeric, $11::numeric, $12, $13)
		RETURNING created_at`,
		m.ID, m.MeasuredOn, m.TestName, m.QCType, m.Level, m.LotNumber, m.Parameter,
		m.TargetValue.String(), m.MeasuredValue.String(), m.Deviation.String(), m.DeviationPercent.String(),
		m.Status, m.EnteredBy,
	).Scan(&m.CreatedAt)
	return db.MapError(err, "qc measurement")
}

func (r *qcRepoPG) List(ctx context.Context, f Filter, limit int) ([]*Measurement, error) {
	rows, err := r.conn(ctx).Query(ctx, `SELECT `+qcCols+` FROM qc_measurements
		WHERE ($1 = '' OR test_name = $1) AND ($2 = '' OR qc_type = $2)
		ORDER BY measured_on DESC, created_at DESC LIMIT $3`, f.TestName, f.QCType, limit)
	if err != nil {
		return nil, fmt.Errorf("list qc measurements: %w", err)
	}
	defer rows.Close()

	var items []*Measurement
	for rows.Next() {
		m, err := scanMeasurement(rows)
		if err != nil {
			return nil, err
		}
		items = append(items, m)
	}
	return items, rows.Err()
}

func (r *qcRepoPG) Summary(ctx context.Context, testName string) ([]SummaryRow, error) {
	rows, err := r.conn(ctx).Query(ctx, `
		SELECT test_name, parameter, COUNT(*),
			COUNT(*) FILTER (WHERE status = 'pass'),
			COUNT(*) FILTER (WHERE status = 'fail'),
			MAX(measured_on)
		FROM qc_measurements
		WHERE $1 = '' OR test_name = $1
		GROUP BY test_name, parameter
		ORDER BY test_name, parameter`, testName)
	if err != nil {
		return nil, fmt.Errorf("summarise qc measurements: %w", err)
	}
	defer rows.Close()

	var out []SummaryRow
	for rows.Next() {
		var s SummaryRow
		if err := rows.Scan(&s.TestName, &s.Parameter, &s.Count, &s.Passes, &s.Fails, &s.LastRunOn); err != nil {
			return nil, err
		}
		s.FailRate = failRate(s.Fails, s.Count)
		out = append(out, s)
	}
	return out, rows.Err()
}

// failRate is fails/count as a percentage rounded to two places.
func failRate(fails, count int) decimal.Decimal {
	if count == 0 {
		return decimal.Zero
	}
	return decimal.NewFromInt(int64(fails)).Mul(hundred).Div(decimal.NewFromInt(int64(count))).Round(2)
}
