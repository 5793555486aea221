package catalog

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"

	"github.com/lims/lims/internal/domain/audit"
	"github.com/lims/lims/internal/platform/apperr"
)

// -- Mock Repository --

type mockTestRepo struct {
	tests map[uuid.UUID]*TestDefinition
}

func newMockTestRepo() *mockTestRepo {
	return &mockTestRepo{tests: make(map[uuid.UUID]*TestDefinition)}
}

func (m *mockTestRepo) Create(_ context.Context, t *TestDefinition) error {
	t.ID = uuid.New()
	t.CreatedAt = time.Now()
	m.tests[t.ID] = t
	return nil
}

func (m *mockTestRepo) GetByID(_ context.Context, id uuid.UUID) (*TestDefinition, error) {
	t, ok := m.tests[id]
	if !ok {
		return nil, apperr.NotFound("test definition not found")
	}
	return t, nil
}

func (m *mockTestRepo) GetByCode(_ context.Context, code string) (*TestDefinition, error) {
	for _, t := range m.tests {
		if t.Code == code {
			return t, nil
		}
	}
	return nil, apperr.NotFound("test definition not found")
}

func (m *mockTestRepo) GetByIDs(_ context.Context, ids []uuid.UUID) ([]*TestDefinition, error) {
	var out []*TestDefinition
	for _, id := range ids {
		if t, ok := m.tests[id]; ok {
			out = append(out, t)
		}
	}
	return out, nil
}

func (m *mockTestRepo) GetByCodes(ctx context.Context, codes []string) ([]*TestDefinition, error) {
	var out []*TestDefinition
	for _, c := range codes {
		if t, err := m.GetByCode(ctx, c); err == nil {
			out = append(out, t)
		}
	}
	return out, nil
}

func (m *mockTestRepo) List(_ context.Context, category string, limit, offset int) ([]*TestDefinition, int, error) {
	var out []*TestDefinition
	for _, t := range m.tests {
		if category == "" || t.Category == category {
			out = append(out, t)
		}
	}
	return out, len(out), nil
}

func newTestService() (*Service, *audit.MemoryRepository) {
	auditRepo := audit.NewMemoryRepository()
	return NewService(newMockTestRepo(), audit.NewRecorder(auditRepo, audit.ModeBestEffort, zerolog.Nop(), nil), nil), auditRepo
}

func cbc() CreateInput {
	low := decimal.NewFromInt(7)
	return CreateInput{
		Code:     " cbc ",
		Name:     "Complete Blood Count",
		Category: "Hematology",
		Price:    decimal.RequireFromString("350.00"),
		TATHours: 6,
		Parameters: []Parameter{
			{Name: "Hemoglobin", Unit: "g/dL", RefMale: "13-17", RefFemale: "12-15", CriticalLow: &low},
		},
	}
}

func TestCreate_NormalizesCodeAndAudits(t *testing.T) {
	svc, auditRepo := newTestService()
	td, err := svc.Create(context.Background(), cbc())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if td.Code != "CBC" {
		t.Errorf("expected code CBC, got %q", td.Code)
	}
	if !td.Price.Equal(decimal.NewFromInt(350)) {
		t.Errorf("expected price 350, got %s", td.Price)
	}
	entries := auditRepo.Entries()
	if len(entries) != 1 || entries[0].Module != audit.ModuleTests {
		t.Errorf("expected one tests audit entry, got %+v", entries)
	}
}

func TestCreate_DuplicateCodeConflicts(t *testing.T) {
	svc, _ := newTestService()
	if _, err := svc.Create(context.Background(), cbc()); err != nil {
		t.Fatal(err)
	}
	_, err := svc.Create(context.Background(), cbc())
	if apperr.KindOf(err) != apperr.KindConflict {
		t.Errorf("expected conflict, got %v", err)
	}
}

func TestCreate_Validation(t *testing.T) {
	svc, _ := newTestService()
	high := decimal.NewFromInt(5)
	low := decimal.NewFromInt(10)
	tests := []struct {
		name string
		mod  func(*CreateInput)
	}{
		{"no code", func(in *CreateInput) { in.Code = "" }},
		{"zero tat", func(in *CreateInput) { in.TATHours = 0 }},
		{"negative price", func(in *CreateInput) { in.Price = decimal.NewFromInt(-1) }},
		{"duplicate parameter", func(in *CreateInput) { in.Parameters = append(in.Parameters, in.Parameters[0]) }},
		{"inverted critical range", func(in *CreateInput) {
			in.Parameters[0].CriticalLow = &low
			in.Parameters[0].CriticalHigh = &high
		}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			in := cbc()
			tt.mod(&in)
			if _, err := svc.Create(context.Background(), in); apperr.KindOf(err) != apperr.KindValidation {
				t.Errorf("expected validation error, got %v", err)
			}
		})
	}
}

func TestGetByCodes_DropsUnknown(t *testing.T) {
	svc, _ := newTestService()
	if _, err := svc.Create(context.Background(), cbc()); err != nil {
		t.Fatal(err)
	}
	got, err := svc.GetByCodes(context.Background(), []string{"cbc", "NOPE", " "})
	if err != nil {
		t.Fatal(err)
	}
	if len(got) != 1 || got[0].Code != "CBC" {
		t.Errorf("expected only CBC, got %v", got)
	}
}

const seedYAML = `
tests:
  - code: CBC
    name: Complete Blood Count
    category: Hematology
    price: 350.50
    tat_hours: 6
    specimen_type: Whole Blood
    parameters:
      - name: Hemoglobin
        unit: g/dL
        ref_male: "13-17"
        ref_female: "12-15"
        critical_low: 7
        critical_high: 20
  - code: LFT
    name: Liver Function Test
    category: Biochemistry
    price: 600
    tat_hours: 24
`

func TestParseSeed(t *testing.T) {
	defs, err := ParseSeed(strings.NewReader(seedYAML))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(defs) != 2 {
		t.Fatalf("expected 2 tests, got %d", len(defs))
	}
	if !defs[0].Price.Equal(decimal.RequireFromString("350.5")) {
		t.Errorf("expected price 350.5, got %s", defs[0].Price)
	}
	p := defs[0].Parameters[0]
	if p.CriticalLow == nil || !p.CriticalLow.Equal(decimal.NewFromInt(7)) {
		t.Errorf("expected critical_low 7, got %v", p.CriticalLow)
	}
	if defs[1].Parameters != nil {
		t.Errorf("expected no parameters for LFT, got %v", defs[1].Parameters)
	}
}

func TestParseSeed_UnknownField(t *testing.T) {
	_, err := ParseSeed(strings.NewReader("tests:\n  - code: CBC\n    turnaround: 6\n"))
	if err == nil {
		t.Error("expected error for unknown field")
	}
}

func TestSeed_Idempotent(t *testing.T) {
	svc, _ := newTestService()
	defs, err := ParseSeed(strings.NewReader(seedYAML))
	if err != nil {
		t.Fatal(err)
	}
	first, err := svc.Seed(context.Background(), defs)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(first.Created) != 2 || len(first.Skipped) != 0 {
		t.Errorf("first run: %+v", first)
	}

	defs, _ = ParseSeed(strings.NewReader(seedYAML))
	second, err := svc.Seed(context.Background(), defs)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(second.Created) != 0 || len(second.Skipped) != 2 {
		t.Errorf("second run: %+v", second)
	}
}

func TestReferenceRange(t *testing.T) {
	p := Parameter{RefMale: "13-17", RefFemale: "12-15", RefChild: "11-14"}
	if got := p.ReferenceRange("female", 30); got != "12-15" {
		t.Errorf("female adult: got %s", got)
	}
	if got := p.ReferenceRange("male", 8); got != "11-14" {
		t.Errorf("child: got %s", got)
	}
	if got := p.ReferenceRange("", 40); got != "13-17" {
		t.Errorf("default: got %s", got)
	}
}
