package specimen

import (
	"context"

	"github.com/google/uuid"
)

type Repository interface {
	Create(ctx context.Context, s *Specimen) error
	GetByID(ctx context.Context, id uuid.UUID) (*Specimen, error)
	GetBySampleCode(ctx context.Context, code string) (*Specimen, error)
	// UpdateStatus persists Status, IsRejected and RejectionReason only if
	// the stored status is still from. Otherwise it returns a Conflict.
	UpdateStatus(ctx context.Context, s *Specimen, from Status) error
	// List returns specimens newest first.
	List(ctx context.Context, f Filter, limit, offset int) ([]*Specimen, int, error)
}
