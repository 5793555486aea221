// Package sequence allocates the human-readable identifiers printed on
// registration slips and specimen labels. Every allocator hands out each
// value exactly once, even under concurrent registration.
package sequence

import (
	"context"
	"fmt"
	"sync"
)

type Kind string

const (
	KindPatient  Kind = "patient"
	KindSpecimen Kind = "specimen"
)

// Allocator returns the next value of a monotonic counter. The first value
// handed out for a kind is 1.
type Allocator interface {
	Next(ctx context.Context, kind Kind) (int64, error)
}

// PatientUHID formats the n-th patient identifier, e.g. UHID000042.
func PatientUHID(n int64) string {
	return fmt.Sprintf("UHID%06d", n)
}

// SpecimenCode formats the n-th sample code, e.g. SMP00000042.
func SpecimenCode(n int64) string {
	return fmt.Sprintf("SMP%08d", n)
}

// Barcode formats the label barcode for the n-th specimen. It shares the
// specimen counter with SpecimenCode.
func Barcode(n int64) string {
	return fmt.Sprintf("%012d", n)
}

// MemoryAllocator is a process-local counter for tests and single-node
// development.
type MemoryAllocator struct {
	mu     sync.Mutex
	counts map[Kind]int64
}

func NewMemoryAllocator() *MemoryAllocator {
	return &MemoryAllocator{counts: make(map[Kind]int64)}
}

func (a *MemoryAllocator) Next(_ context.Context, kind Kind) (int64, error) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.counts[kind]++
	return a.counts[kind], nil
}
