package sequence

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/lims/lims/internal/platform/db"
)

// PGAllocator increments a row per kind in id_sequence. The upsert takes a
// row lock, so concurrent callers serialize on it.
type PGAllocator struct {
	pool *pgxpool.Pool
}

func NewPGAllocator(pool *pgxpool.Pool) *PGAllocator {
	return &PGAllocator{pool: pool}
}

func (a *PGAllocator) Next(ctx context.Context, kind Kind) (int64, error) {
	var v int64
	err := db.Conn(ctx, a.pool).QueryRow(ctx, `
		INSERT INTO id_sequence (kind, value) VALUES ($1, 1)
		ON CONFLICT (kind) DO UPDATE SET value = id_sequence.value + 1
		RETURNING value`, string(kind)).Scan(&v)
	if err != nil {
		return 0, fmt.Errorf("allocate %s id: %w", kind, err)
	}
	return v, nil
}

// Current returns the last value handed out, or 0 when none has been.
func (a *PGAllocator) Current(ctx context.Context, kind Kind) (int64, error) {
	var v int64
	err := db.Conn(ctx, a.pool).QueryRow(ctx,
		`SELECT value FROM id_sequence WHERE kind = $1`, string(kind)).Scan(&v)
	if errors.Is(err, pgx.ErrNoRows) {
		return 0, nil
	}
	if err != nil {
		return 0, fmt.Errorf("read %s sequence: %w", kind, err)
	}
	return v, nil
}
