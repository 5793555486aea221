package dashboard

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/lims/lims/internal/platform/db"
)

// Source computes the raw aggregates. since is the start of the current UTC
// day and now is the instant breaches are measured against.
type Source interface {
	Totals(ctx context.Context, since, now time.Time) (*Stats, error)
	SpecimensByStatus(ctx context.Context) (map[string]int, error)
}

type sourcePG struct{ pool *pgxpool.Pool }

func NewSourcePG(pool *pgxpool.Pool) Source {
	return &sourcePG{pool: pool}
}

func (r *sourcePG) conn(ctx context.Context) db.Querier {
	return db.Conn(ctx, r.pool)
}

func (r *sourcePG) Totals(ctx context.Context, since, now time.Time) (*Stats, error) {
	var st Stats
	err := r.conn(ctx).QueryRow(ctx, `
		SELECT
			(SELECT COUNT(*) FROM patients),
			(SELECT COUNT(*) FROM specimens WHERE created_at >= $1),
			(SELECT COUNT(*) FROM results WHERE status = 'draft'),
			(SELECT COUNT(*) FROM results WHERE has_critical_values AND status <> 'finalized'),
			(SELECT COUNT(*) FROM specimens WHERE tat_deadline < $2 AND status NOT IN ('approved', 'dispatched'))`,
		since, now,
	).Scan(&st.TotalPatients, &st.TodaySpecimens, &st.PendingResults, &st.CriticalResults, &st.TATBreaches)
	if err != nil {
		return nil, fmt.Errorf("dashboard totals: %w", err)
	}
	return &st, nil
}

func (r *sourcePG) SpecimensByStatus(ctx context.Context) (map[string]int, error) {
	rows, err := r.conn(ctx).Query(ctx, `SELECT status, COUNT(*) FROM specimens GROUP BY status`)
	if err != nil {
		return nil, fmt.Errorf("dashboard status counts: %w", err)
	}
	defer rows.Close()

	out := make(map[string]int)
	for rows.Next() {
		var status string
		var n int
		if err := rows.Scan(&status, &n); err != nil {
			return nil, err
		}
		out[status] = n
	}
	return out, rows.Err()
}
