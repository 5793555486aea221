package audit

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/lims/lims/internal/platform/db"
)

type auditRepoPG struct{ pool *pgxpool.Pool }

func NewRepoPG(pool *pgxpool.Pool) Repository {
	return &auditRepoPG{pool: pool}
}

func (r *auditRepoPG) conn(ctx context.Context) db.Querier {
	return db.Conn(ctx, r.pool)
}

const auditCols = `seq, id, user_id, user_name, user_role, action, module, details, source_address, recorded_at`

func scanEntry(row pgx.Row) (*Entry, error) {
	var e Entry
	var details []byte
	if err := row.Scan(&e.Seq, &e.ID, &e.UserID, &e.UserName, &e.UserRole,
		&e.Action, &e.Module, &details, &e.SourceAddress, &e.RecordedAt); err != nil {
		return nil, err
	}
	if len(details) > 0 {
		if err := json.Unmarshal(details, &e.Details); err != nil {
			return nil, fmt.Errorf("decode audit details: %w", err)
		}
	}
	return &e, nil
}

func (r *auditRepoPG) Append(ctx context.Context, e *Entry) error {
	if e.ID == uuid.Nil {
		e.ID = uuid.New()
	}
	details, err := json.Marshal(e.Details)
	if err != nil {
		return fmt.Errorf("encode audit details: %w", err)
	}
	err = r.conn(ctx).QueryRow(ctx, `
		INSERT INTO audit_entries (id, user_id, user_name, user_role, action, module, details, source_address)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		RETURNING seq, recorded_at`,
		e.ID, e.UserID, e.UserName, e.UserRole, e.Action, e.Module, details, e.SourceAddress,
	).Scan(&e.Seq, &e.RecordedAt)
	if err != nil {
		return fmt.Errorf("append audit entry: %w", err)
	}
	return nil
}

func (r *auditRepoPG) List(ctx context.Context, f Filter, limit, offset int) ([]*Entry, int, error) {
	where := ` WHERE ($1 = '' OR module = $1) AND ($2 = '' OR user_id = $2)`

	var total int
	if err := r.conn(ctx).QueryRow(ctx, `SELECT COUNT(*) FROM audit_entries`+where, f.Module, f.UserID).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("count audit entries: %w", err)
	}

	rows, err := r.conn(ctx).Query(ctx, `SELECT `+auditCols+` FROM audit_entries`+where+`
		ORDER BY recorded_at DESC, seq DESC LIMIT $3 OFFSET $4`, f.Module, f.UserID, limit, offset)
	if err != nil {
		return nil, 0, fmt.Errorf("list audit entries: %w", err)
	}
	defer rows.Close()

	var items []*Entry
	for rows.Next() {
		e, err := scanEntry(rows)
		if err != nil {
			return nil, 0, err
		}
		items = append(items, e)
	}
	return items, total, rows.Err()
}

func (r *auditRepoPG) Range(ctx context.Context, from, to time.Time, afterSeq int64, limit int) ([]*Entry, error) {
	rows, err := r.conn(ctx).Query(ctx, `SELECT `+auditCols+` FROM audit_entries
		WHERE recorded_at >= $1 AND recorded_at < $2 AND seq > $3
		ORDER BY seq ASC LIMIT $4`, from, to, afterSeq, limit)
	if err != nil {
		return nil, fmt.Errorf("range audit entries: %w", err)
	}
	defer rows.Close()

	var items []*Entry
	for rows.Next() {
		e, err := scanEntry(rows)
		if err != nil {
			return nil, err
		}
		items = append(items, e)
	}
	return items, rows.Err()
}
