package nabl

import "context"

type Repository interface {
	Create(ctx context.Context, d *Document) error
	// List returns newest first. An empty docType matches every type.
	List(ctx context.Context, docType string, limit, offset int) ([]*Document, int, error)
}
