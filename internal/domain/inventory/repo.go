package inventory

import (
	"context"
	"time"
)

type Repository interface {
	Create(ctx context.Context, item *Item) error
	// List orders by name. name filters by case-insensitive substring.
	List(ctx context.Context, name string, limit, offset int) ([]*Item, int, error)
	// AlertCandidates returns items at or below their minimum or expiring on
	// or before cutoff.
	AlertCandidates(ctx context.Context, cutoff time.Time) ([]*Item, error)
}
