package catalog

import (
	"context"

	"github.com/google/uuid"
)

type Repository interface {
	Create(ctx context.Context, t *TestDefinition) error
	GetByID(ctx context.Context, id uuid.UUID) (*TestDefinition, error)
	GetByCode(ctx context.Context, code string) (*TestDefinition, error)
	// GetByIDs and GetByCodes return the definitions found; unknown keys are
	// skipped.
	GetByIDs(ctx context.Context, ids []uuid.UUID) ([]*TestDefinition, error)
	GetByCodes(ctx context.Context, codes []string) ([]*TestDefinition, error)
	List(ctx context.Context, category string, limit, offset int) ([]*TestDefinition, int, error)
}
