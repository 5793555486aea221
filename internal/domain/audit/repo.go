package audit

import (
	"context"
	"time"
)

// Repository is append-only. There is no update or delete.
type Repository interface {
	Append(ctx context.Context, e *Entry) error
	// List returns entries newest first: by timestamp, then by sequence.
	List(ctx context.Context, f Filter, limit, offset int) ([]*Entry, int, error)
	// Range returns entries recorded in [from, to) with Seq > afterSeq in
	// ascending sequence order.
	Range(ctx context.Context, from, to time.Time, afterSeq int64, limit int) ([]*Entry, error)
}
