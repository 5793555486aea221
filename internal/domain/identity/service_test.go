package identity

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"
	"github.com/rs/zerolog"

	"github.com/lims/lims/internal/domain/audit"
	"github.com/lims/lims/internal/platform/apperr"
	"github.com/lims/lims/internal/platform/auth"
)

type mockUserRepo struct {
	users map[uuid.UUID]*User
}

func newMockUserRepo() *mockUserRepo {
	return &mockUserRepo{users: make(map[uuid.UUID]*User)}
}

func (m *mockUserRepo) Create(_ context.Context, u *User) error {
	u.ID = uuid.New()
	u.CreatedAt = time.Now()
	m.users[u.ID] = u
	return nil
}

func (m *mockUserRepo) GetByID(_ context.Context, id uuid.UUID) (*User, error) {
	u, ok := m.users[id]
	if !ok {
		return nil, apperr.NotFound("user not found")
	}
	return u, nil
}

func (m *mockUserRepo) GetByEmail(_ context.Context, email string) (*User, error) {
	for _, u := range m.users {
		if u.Email == email {
			return u, nil
		}
	}
	return nil, apperr.NotFound("user not found")
}

var testJWT = auth.JWTConfig{SigningKey: []byte("test-secret-key-for-identity"), TTL: time.Hour}

func newTestService() (*Service, *mockUserRepo, *audit.MemoryRepository) {
	repo := newMockUserRepo()
	auditRepo := audit.NewMemoryRepository()
	svc := NewService(repo, testJWT, audit.NewRecorder(auditRepo, audit.ModeBestEffort, zerolog.Nop(), nil), nil)
	return svc, repo, auditRepo
}

func register(t *testing.T, svc *Service) *User {
	t.Helper()
	u, err := svc.Register(context.Background(), RegisterInput{
		Email: " Tech@Lab.example ", Name: "Asha", Password: "s3cret-pass", Role: auth.RoleLabTechnician,
	})
	if err != nil {
		t.Fatalf("register: %v", err)
	}
	return u
}

func TestRegister_HashesAndAudits(t *testing.T) {
	svc, _, auditRepo := newTestService()
	u := register(t, svc)

	if u.Email != "tech@lab.example" {
		t.Errorf("expected normalized email, got %q", u.Email)
	}
	if u.PasswordHash == "" || u.PasswordHash == "s3cret-pass" {
		t.Error("expected bcrypt hash to be stored")
	}
	entries := auditRepo.Entries()
	if len(entries) != 1 || entries[0].Action != audit.ActionRegister || entries[0].Module != audit.ModuleAuth {
		t.Errorf("unexpected audit entries %+v", entries)
	}
}

func TestRegister_Errors(t *testing.T) {
	svc, _, _ := newTestService()
	register(t, svc)

	tests := []struct {
		name string
		in   RegisterInput
		kind apperr.Kind
	}{
		{"duplicate email", RegisterInput{Email: "tech@lab.example", Name: "B", Password: "longenough", Role: auth.RoleReception}, apperr.KindConflict},
		{"unknown role", RegisterInput{Email: "b@lab.example", Name: "B", Password: "longenough", Role: "janitor"}, apperr.KindValidation},
		{"short password", RegisterInput{Email: "b@lab.example", Name: "B", Password: "short", Role: auth.RoleReception}, apperr.KindValidation},
		{"bad email", RegisterInput{Email: "not-an-email", Name: "B", Password: "longenough", Role: auth.RoleReception}, apperr.KindValidation},
		{"super admin", RegisterInput{Email: "root@lab.example", Name: "R", Password: "longenough", Role: auth.RoleSuperAdmin}, apperr.KindForbidden},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := svc.Register(context.Background(), tt.in); apperr.KindOf(err) != tt.kind {
				t.Errorf("expected %s, got %v", tt.kind, err)
			}
		})
	}
}

func TestCreateUser_AllowsSuperAdmin(t *testing.T) {
	svc, _, _ := newTestService()
	u, err := svc.CreateUser(context.Background(), RegisterInput{Email: "root@lab.example", Name: "Root", Password: "longenough", Role: auth.RoleSuperAdmin})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if u.Role != auth.RoleSuperAdmin {
		t.Errorf("expected super admin, got %s", u.Role)
	}
}

func TestLogin_IssuesParsableToken(t *testing.T) {
	svc, _, auditRepo := newTestService()
	u := register(t, svc)

	ctx := auth.WithActor(context.Background(), auth.Actor{SourceAddress: "10.0.0.9"})
	sess, err := svc.Login(ctx, LoginInput{Email: "TECH@lab.example", Password: "s3cret-pass"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	claims, err := auth.ParseToken(testJWT, sess.AccessToken)
	if err != nil {
		t.Fatalf("parse token: %v", err)
	}
	if claims.Subject != u.ID.String() || claims.Role != auth.RoleLabTechnician {
		t.Errorf("unexpected claims %+v", claims)
	}

	entries := auditRepo.Entries()
	last := entries[len(entries)-1]
	if last.Action != audit.ActionLogin || last.UserID != u.ID.String() || last.SourceAddress != "10.0.0.9" {
		t.Errorf("unexpected login entry %+v", last)
	}
}

func TestLogin_Rejects(t *testing.T) {
	svc, repo, _ := newTestService()
	u := register(t, svc)

	if _, err := svc.Login(context.Background(), LoginInput{Email: "tech@lab.example", Password: "wrong-pass"}); apperr.KindOf(err) != apperr.KindUnauthorized {
		t.Errorf("wrong password: expected unauthorized, got %v", err)
	}
	if _, err := svc.Login(context.Background(), LoginInput{Email: "nobody@lab.example", Password: "s3cret-pass"}); apperr.KindOf(err) != apperr.KindUnauthorized {
		t.Errorf("unknown email: expected unauthorized, got %v", err)
	}
	repo.users[u.ID].IsActive = false
	if _, err := svc.Login(context.Background(), LoginInput{Email: "tech@lab.example", Password: "s3cret-pass"}); apperr.KindOf(err) != apperr.KindUnauthorized {
		t.Errorf("inactive: expected unauthorized, got %v", err)
	}
}

func TestMe(t *testing.T) {
	svc, _, _ := newTestService()
	u := register(t, svc)

	ctx := auth.WithActor(context.Background(), auth.Actor{UserID: u.ID.String()})
	got, err := svc.Me(ctx)
	if err != nil || got.ID != u.ID {
		t.Errorf("expected %s, got %v (%v)", u.ID, got, err)
	}
	if _, err := svc.Me(context.Background()); apperr.KindOf(err) != apperr.KindUnauthorized {
		t.Errorf("expected unauthorized without actor, got %v", err)
	}
}

func TestHandler_LoginOmitsPasswordHash(t *testing.T) {
	svc, _, _ := newTestService()
	register(t, svc)

	e := echo.New()
	body := `{"email":"tech@lab.example","password":"s3cret-pass"}`
	req := httptest.NewRequest(http.MethodPost, "/api/auth/login", strings.NewReader(body))
	req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)

	if err := NewHandler(svc).Login(c); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if rec.Code != http.StatusOK {
		t.Errorf("expected 200, got %d", rec.Code)
	}
	if !strings.Contains(rec.Body.String(), "access_token") {
		t.Errorf("expected token in body, got %s", rec.Body.String())
	}
	if strings.Contains(rec.Body.String(), "password") {
		t.Errorf("password hash leaked: %s", rec.Body.String())
	}
}
