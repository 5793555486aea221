package audit

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/rs/zerolog"

	"github.com/lims/lims/internal/platform/apperr"
	"github.com/lims/lims/internal/platform/auth"
	"github.com/lims/lims/internal/platform/blobstore"
)

func seed(t *testing.T, repo *MemoryRepository, at time.Time, modules ...string) {
	t.Helper()
	for _, m := range modules {
		if err := repo.Append(context.Background(), &Entry{Action: ActionCreate, Module: m, RecordedAt: at}); err != nil {
			t.Fatal(err)
		}
	}
}

func TestList_SameTimestampOrderedBySeq(t *testing.T) {
	repo := NewMemoryRepository()
	at := time.Date(2024, 3, 1, 9, 0, 0, 0, time.UTC)
	seed(t, repo, at, ModuleSpecimens, ModuleSpecimens, ModuleSpecimens)
	seed(t, repo, at.Add(-time.Hour), ModuleResults)

	svc := NewService(repo, NewRecorder(repo, ModeBestEffort, zerolog.Nop(), nil), nil)
	items, total, err := svc.List(context.Background(), Filter{}, 10, 0)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if total != 4 {
		t.Fatalf("expected 4, got %d", total)
	}
	want := []int64{3, 2, 1, 4}
	for i, e := range items {
		if e.Seq != want[i] {
			t.Errorf("position %d: expected seq %d, got %d", i, want[i], e.Seq)
		}
	}
}

func TestList_ModuleFilter(t *testing.T) {
	repo := NewMemoryRepository()
	now := time.Now().UTC()
	seed(t, repo, now, ModuleQC, ModuleSpecimens, ModuleQC)

	svc := NewService(repo, NewRecorder(repo, ModeBestEffort, zerolog.Nop(), nil), nil)
	items, total, _ := svc.List(context.Background(), Filter{Module: ModuleQC}, 10, 0)
	if total != 2 || len(items) != 2 {
		t.Fatalf("expected 2 qc entries, got total=%d len=%d", total, len(items))
	}
	for _, e := range items {
		if e.Module != ModuleQC {
			t.Errorf("unexpected module %s", e.Module)
		}
	}
}

func TestExport_WritesNDJSONAndAudits(t *testing.T) {
	repo := NewMemoryRepository()
	day := time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC)
	seed(t, repo, day.Add(2*time.Hour), ModulePatients, ModuleSpecimens)
	seed(t, repo, day.Add(30*time.Hour), ModuleResults)

	store := blobstore.NewMemoryStore()
	svc := NewService(repo, NewRecorder(repo, ModeBestEffort, zerolog.Nop(), nil), store)
	ctx := auth.WithActor(context.Background(), auth.SystemActor("archiver"))

	res, err := svc.Export(ctx, day, day.Add(24*time.Hour))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if res.Count != 2 || res.FirstSeq != 1 || res.LastSeq != 2 {
		t.Errorf("unexpected export result: %+v", res)
	}
	if !strings.HasPrefix(res.Key, "audit/2024/03/01/") {
		t.Errorf("unexpected key %s", res.Key)
	}

	body, obj, err := store.Get(context.Background(), res.Key)
	if err != nil {
		t.Fatalf("archive not stored: %v", err)
	}
	if obj.ContentType != "application/x-ndjson" {
		t.Errorf("unexpected content type %s", obj.ContentType)
	}
	lines := 0
	sc := bufio.NewScanner(bytes.NewReader(body))
	for sc.Scan() {
		var e Entry
		if err := json.Unmarshal(sc.Bytes(), &e); err != nil {
			t.Fatalf("line %d is not JSON: %v", lines, err)
		}
		lines++
	}
	if lines != 2 {
		t.Errorf("expected 2 lines, got %d", lines)
	}

	entries := repo.Entries()
	last := entries[len(entries)-1]
	if last.Action != ActionExport || last.UserID != "system" {
		t.Errorf("expected export to be audited by the caller, got %+v", last)
	}
}

func TestExport_RepeatConflicts(t *testing.T) {
	repo := NewMemoryRepository()
	day := time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC)
	seed(t, repo, day.Add(time.Hour), ModulePatients)

	svc := NewService(repo, NewRecorder(repo, ModeBestEffort, zerolog.Nop(), nil), blobstore.NewMemoryStore())
	if _, err := svc.Export(context.Background(), day, day.Add(2*time.Hour)); err != nil {
		t.Fatalf("first export failed: %v", err)
	}
	_, err := svc.Export(context.Background(), day, day.Add(2*time.Hour))
	if apperr.KindOf(err) != apperr.KindConflict {
		t.Errorf("expected conflict on repeated export, got %v", err)
	}
}

func TestExport_Errors(t *testing.T) {
	repo := NewMemoryRepository()
	rec := NewRecorder(repo, ModeBestEffort, zerolog.Nop(), nil)
	day := time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC)

	_, err := NewService(repo, rec, nil).Export(context.Background(), day, day.Add(time.Hour))
	if apperr.KindOf(err) != apperr.KindValidation {
		t.Errorf("expected validation without archive, got %v", err)
	}

	svc := NewService(repo, rec, blobstore.NewMemoryStore())
	if _, err := svc.Export(context.Background(), day, day); apperr.KindOf(err) != apperr.KindValidation {
		t.Errorf("expected validation for empty range, got %v", err)
	}
	if _, err := svc.Export(context.Background(), day, day.Add(time.Hour)); apperr.KindOf(err) != apperr.KindNotFound {
		t.Errorf("expected not found with no entries, got %v", err)
	}
}

func TestHandler_List(t *testing.T) {
	repo := NewMemoryRepository()
	seed(t, repo, time.Now().UTC(), ModuleQC, ModuleSpecimens)
	h := NewHandler(NewService(repo, NewRecorder(repo, ModeBestEffort, zerolog.Nop(), nil), nil))

	e := echo.New()
	req := httptest.NewRequest(http.MethodGet, "/api/audit-logs?module=qc&limit=5", nil)
	rec := httptest.NewRecorder()
	if err := h.List(e.NewContext(req, rec)); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	var body struct {
		Data  []Entry `json:"data"`
		Total int     `json:"total"`
		Limit int     `json:"limit"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &body); err != nil {
		t.Fatal(err)
	}
	if body.Total != 1 || len(body.Data) != 1 || body.Limit != 5 {
		t.Errorf("unexpected response: %s", rec.Body.String())
	}
}
