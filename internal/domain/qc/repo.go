package qc

import "context"

type Repository interface {
	Create(ctx context.Context, m *Measurement) error
	// List returns measurements newest first by run date.
	List(ctx context.Context, f Filter, limit int) ([]*Measurement, error)
	Summary(ctx context.Context, testName string) ([]SummaryRow, error)
}
