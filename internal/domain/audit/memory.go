package audit

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/lims/lims/pkg/pagination"
)

// MemoryRepository keeps entries in process. Other packages use it in their
// tests to assert what was audited.
type MemoryRepository struct {
	mu      sync.Mutex
	entries []*Entry
	seq     int64
	// Fail, when set, is returned by Append.
	Fail error
}

func NewMemoryRepository() *MemoryRepository {
	return &MemoryRepository{}
}

func (m *MemoryRepository) Append(_ context.Context, e *Entry) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.Fail != nil {
		return m.Fail
	}
	m.seq++
	e.Seq = m.seq
	if e.ID == uuid.Nil {
		e.ID = uuid.New()
	}
	if e.RecordedAt.IsZero() {
		e.RecordedAt = time.Now().UTC()
	}
	cp := *e
	m.entries = append(m.entries, &cp)
	return nil
}

func (m *MemoryRepository) List(_ context.Context, f Filter, limit, offset int) ([]*Entry, int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var matched []*Entry
	for _, e := range m.entries {
		if f.Module != "" && e.Module != f.Module {
			continue
		}
		if f.UserID != "" && e.UserID != f.UserID {
			continue
		}
		matched = append(matched, e)
	}
	sort.Slice(matched, func(i, j int) bool { return before(matched[i], matched[j]) })
	start, end := pagination.New(limit, offset).Window(len(matched))
	return matched[start:end], len(matched), nil
}

func (m *MemoryRepository) Range(_ context.Context, from, to time.Time, afterSeq int64, limit int) ([]*Entry, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []*Entry
	for _, e := range m.entries {
		if e.Seq <= afterSeq || e.RecordedAt.Before(from) || !e.RecordedAt.Before(to) {
			continue
		}
		out = append(out, e)
		if len(out) == limit {
			break
		}
	}
	return out, nil
}

// Entries returns a copy of everything appended, oldest first.
func (m *MemoryRepository) Entries() []Entry {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]Entry, len(m.entries))
	for i, e := range m.entries {
		out[i] = *e
	}
	return out
}
