package patient

import (
	"context"

	"github.com/google/uuid"
)

type Repository interface {
	Create(ctx context.Context, p *Patient) error
	GetByID(ctx context.Context, id uuid.UUID) (*Patient, error)
	GetByUHID(ctx context.Context, uhid string) (*Patient, error)
	// FindByPhone returns the earliest patient registered with phone.
	FindByPhone(ctx context.Context, phone string) (*Patient, error)
	FindByEMRID(ctx context.Context, emrID string) (*Patient, error)
	// Search matches query as a case-insensitive substring of name, UHID or
	// phone, newest first. An empty query lists everyone.
	Search(ctx context.Context, query string, limit, offset int) ([]*Patient, int, error)
	Count(ctx context.Context) (int, error)
}
