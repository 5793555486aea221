package integration

import (
	"errors"
	"testing"
	"time"

	"github.com/shopspring/decimal"

	"github.com/lims/lims/internal/domain/audit"
	"github.com/lims/lims/internal/domain/identity"
	"github.com/lims/lims/internal/domain/inventory"
	"github.com/lims/lims/internal/domain/nabl"
	"github.com/lims/lims/internal/domain/qc"
	"github.com/lims/lims/internal/platform/apperr"
	"github.com/lims/lims/internal/platform/auth"
	"github.com/lims/lims/internal/platform/db"
)

func TestQC_RecordAndSummary(t *testing.T) {
	pool := newSchemaPool(t)
	svc := qc.NewService(qc.NewRepoPG(pool), newRecorder(audit.NewRepoPG(pool), audit.ModeBestEffort), db.NewTransactor(pool), nil)
	ctx := technicianCtx()

	day := time.Date(2024, 6, 3, 9, 30, 0, 0, time.UTC)
	runs := []string{"100", "104", "115"}
	for _, measured := range runs {
		_, err := svc.Record(ctx, qc.RecordInput{
			Date: &day, TestName: "Glucose", Level: "L1", LotNumber: "LOT-7", Parameter: "glucose",
			TargetValue: decimal.NewFromInt(100), MeasuredValue: decimal.RequireFromString(measured),
		})
		if err != nil {
			t.Fatalf("record %s: %v", measured, err)
		}
	}

	list, err := svc.List(ctx, qc.Filter{TestName: "Glucose"}, 0)
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(list) != 3 {
		t.Fatalf("expected 3 measurements, got %d", len(list))
	}
	if !list[0].MeasuredOn.Equal(time.Date(2024, 6, 3, 0, 0, 0, 0, time.UTC)) {
		t.Errorf("expected date truncated to the day, got %v", list[0].MeasuredOn)
	}
	if list[0].QCType != qc.TypeInternal {
		t.Errorf("expected default qc type, got %s", list[0].QCType)
	}

	rows, err := svc.Summary(ctx, "Glucose")
	if err != nil {
		t.Fatalf("summary: %v", err)
	}
	if len(rows) != 1 {
		t.Fatalf("expected one summary row, got %d", len(rows))
	}
	if rows[0].Count != 3 || rows[0].Passes != 2 || rows[0].Fails != 1 {
		t.Errorf("unexpected summary %+v", rows[0])
	}
}

func TestQC_StoresValuesExactly(t *testing.T) {
	pool := newSchemaPool(t)
	svc := qc.NewService(qc.NewRepoPG(pool), newRecorder(audit.NewRepoPG(pool), audit.ModeBestEffort), nil, nil)
	ctx := technicianCtx()

	target := decimal.RequireFromString("0.0000001")
	measured := decimal.RequireFromString("0.00000012345")
	m, err := svc.Record(ctx, qc.RecordInput{TestName: "Troponin", Parameter: "ctni", TargetValue: target, MeasuredValue: measured})
	if err != nil {
		t.Fatalf("record: %v", err)
	}

	list, err := svc.List(ctx, qc.Filter{TestName: "Troponin"}, 0)
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(list) != 1 {
		t.Fatalf("expected one measurement, got %d", len(list))
	}
	got := list[0]
	if !got.TargetValue.Equal(target) || !got.MeasuredValue.Equal(measured) {
		t.Errorf("expected exact values back, got target %s measured %s", got.TargetValue, got.MeasuredValue)
	}
	if !got.Deviation.Equal(m.Deviation) || got.Status != m.Status {
		t.Errorf("stored evaluation %s/%s differs from computed %s/%s", got.Deviation, got.Status, m.Deviation, m.Status)
	}
}

func TestInventory_Alerts(t *testing.T) {
	pool := newSchemaPool(t)
	svc := inventory.NewService(inventory.NewRepoPG(pool), newRecorder(audit.NewRepoPG(pool), audit.ModeBestEffort), nil)
	ctx := technicianCtx()

	now := time.Now().UTC()
	soon := now.AddDate(0, 0, 10)
	later := now.AddDate(0, 0, 90)
	past := now.AddDate(0, 0, -5)
	items := []inventory.CreateInput{
		{Name: "Urea kit", Category: inventory.CategoryReagent, Quantity: 20, MinimumQuantity: 5, ExpiryDate: &soon},
		{Name: "Gloves", Category: inventory.CategoryConsumable, Quantity: 3, MinimumQuantity: 10, ExpiryDate: &later},
		{Name: "Old buffer", Category: inventory.CategoryReagent, Quantity: 50, MinimumQuantity: 5, ExpiryDate: &past},
		{Name: "Tips", Category: inventory.CategoryConsumable, Quantity: 500, MinimumQuantity: 100},
	}
	for _, in := range items {
		if _, err := svc.Create(ctx, in); err != nil {
			t.Fatalf("create %s: %v", in.Name, err)
		}
	}

	alerts, err := svc.Alerts(ctx)
	if err != nil {
		t.Fatalf("alerts: %v", err)
	}
	if len(alerts.LowStock) != 1 || alerts.LowStock[0].Name != "Gloves" {
		t.Errorf("expected Gloves low on stock, got %+v", alerts.LowStock)
	}
	if len(alerts.ExpiringSoon) != 1 || alerts.ExpiringSoon[0].Name != "Urea kit" {
		t.Fatalf("expected Urea kit expiring, got %+v", alerts.ExpiringSoon)
	}
	if d := alerts.ExpiringSoon[0].DaysToExpire; d < 9 || d > 10 {
		t.Errorf("expected about 10 days to expiry, got %d", d)
	}

	list, total, err := svc.List(ctx, "kit", 10, 0)
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if total != 1 || list[0].Name != "Urea kit" {
		t.Errorf("expected name search to match Urea kit, got %d %+v", total, list)
	}
}

func TestIdentity_RegisterAndLogin(t *testing.T) {
	pool := newSchemaPool(t)
	auditRepo := audit.NewRepoPG(pool)
	jwtCfg := auth.JWTConfig{SigningKey: []byte("integration-secret"), TTL: time.Hour}
	svc := identity.NewService(identity.NewUserRepoPG(pool), jwtCfg,
		newRecorder(auditRepo, audit.ModeTransactional), db.NewTransactor(pool))
	ctx := technicianCtx()

	in := identity.RegisterInput{Email: "Priya@Lab.example", Name: "Priya", Password: "s3cret-pass", Role: auth.RolePathologist}
	u, err := svc.Register(ctx, in)
	if err != nil {
		t.Fatalf("register: %v", err)
	}
	if u.Email != "priya@lab.example" {
		t.Errorf("expected normalized email, got %s", u.Email)
	}

	if _, err := svc.Register(ctx, in); !errors.Is(err, apperr.ErrConflict) {
		t.Errorf("expected duplicate email to conflict, got %v", err)
	}

	session, err := svc.Login(ctx, identity.LoginInput{Email: "priya@lab.example", Password: "s3cret-pass"})
	if err != nil {
		t.Fatalf("login: %v", err)
	}
	claims, err := auth.ParseToken(jwtCfg, session.AccessToken)
	if err != nil {
		t.Fatalf("parse token: %v", err)
	}
	if claims.Subject != u.ID.String() || claims.Role != auth.RolePathologist {
		t.Errorf("unexpected claims %+v", claims)
	}

	if _, err := svc.Login(ctx, identity.LoginInput{Email: "priya@lab.example", Password: "wrong-pass"}); !errors.Is(err, apperr.ErrUnauthorized) {
		t.Errorf("expected unauthorized, got %v", err)
	}

	entries, _, err := auditRepo.List(ctx, audit.Filter{Module: audit.ModuleAuth}, 10, 0)
	if err != nil {
		t.Fatalf("list audit: %v", err)
	}
	if len(entries) != 2 || entries[0].Action != audit.ActionLogin || entries[0].UserID != u.ID.String() {
		t.Errorf("expected register then login entries, got %+v", entries)
	}
}

func TestNABL_RegisterAndFilter(t *testing.T) {
	pool := newSchemaPool(t)
	auditRepo := audit.NewRepoPG(pool)
	svc := nabl.NewService(nabl.NewRepoPG(pool), newRecorder(auditRepo, audit.ModeTransactional), db.NewTransactor(pool))
	ctx := technicianCtx()

	for _, in := range []nabl.CreateInput{
		{DocumentType: "SOP", DocumentID: "SOP-BIO-004", Title: "Glucose assay", Version: "3.1"},
		{DocumentType: "Audit", DocumentID: "IA-2024-01", Title: "Internal audit Q1", Version: "1"},
		{DocumentType: "SOP", DocumentID: "SOP-BIO-005", Title: "Lipid panel", Version: "1.0"},
	} {
		d, err := svc.Create(ctx, in)
		if err != nil {
			t.Fatalf("create %s: %v", in.DocumentID, err)
		}
		if d.Status != nabl.StatusDraft || d.UploadedBy != "tech-1" {
			t.Errorf("%s: unexpected status %s uploader %s", in.DocumentID, d.Status, d.UploadedBy)
		}
	}

	docs, total, err := svc.List(ctx, "SOP", 50, 0)
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if total != 2 || len(docs) != 2 {
		t.Fatalf("expected 2 SOPs, got %d", total)
	}
	if docs[0].DocumentID != "SOP-BIO-005" {
		t.Errorf("expected newest SOP first, got %s", docs[0].DocumentID)
	}

	entries, _, err := auditRepo.List(ctx, audit.Filter{Module: audit.ModuleNABL}, 50, 0)
	if err != nil {
		t.Fatalf("audit list: %v", err)
	}
	if len(entries) != 3 {
		t.Errorf("expected 3 audit entries, got %d", len(entries))
	}
}
