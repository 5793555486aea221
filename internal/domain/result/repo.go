package result

import (
	"context"

	"github.com/google/uuid"
)

type Repository interface {
	// Create returns a Conflict when the specimen already has a result for
	// the same test.
	Create(ctx context.Context, r *Result) error
	GetByID(ctx context.Context, id uuid.UUID) (*Result, error)
	Update(ctx context.Context, r *Result) error
	// List returns results newest first.
	List(ctx context.Context, f Filter, limit, offset int) ([]*Result, int, error)
}
