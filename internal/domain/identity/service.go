package identity

import (
	"context"
	"errors"
	"net/mail"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/lims/lims/internal/domain/audit"
	"github.com/lims/lims/internal/platform/apperr"
	"github.com/lims/lims/internal/platform/auth"
	"github.com/lims/lims/internal/platform/db"
)

type RegisterInput struct {
	Email    string `json:"email"`
	Name     string `json:"name"`
	Password string `json:"password"`
	Role     string `json:"role"`
}

type LoginInput struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

var errBadCredentials = apperr.Unauthorized("invalid email or password")

type Service struct {
	users UserRepository
	jwt   auth.JWTConfig
	audit *audit.Recorder
	tx    db.Transactor
	now   func() time.Time
}

func NewService(users UserRepository, jwtCfg auth.JWTConfig, recorder *audit.Recorder, tx db.Transactor) *Service {
	if tx == nil {
		tx = db.NoTx{}
	}
	return &Service{users: users, jwt: jwtCfg, audit: recorder, tx: tx, now: time.Now}
}

// Register creates an account through the public endpoint. Super admin
// accounts can only be created with CreateUser.
func (s *Service) Register(ctx context.Context, in RegisterInput) (*User, error) {
	if strings.TrimSpace(in.Role) == auth.RoleSuperAdmin {
		return nil, apperr.Forbidden("role %s cannot self-register", auth.RoleSuperAdmin)
	}
	return s.CreateUser(ctx, in)
}

// CreateUser creates an account with any known role.
func (s *Service) CreateUser(ctx context.Context, in RegisterInput) (*User, error) {
	email := strings.ToLower(strings.TrimSpace(in.Email))
	if _, err := mail.ParseAddress(email); err != nil {
		return nil, apperr.Validation("invalid email %q", in.Email)
	}
	name := strings.TrimSpace(in.Name)
	if name == "" {
		return nil, apperr.Validation("name is required")
	}
	role := strings.TrimSpace(in.Role)
	if !auth.IsKnownRole(role) {
		return nil, apperr.Validation("unknown role %q", in.Role)
	}
	if len(in.Password) < auth.MinPasswordLength {
		return nil, apperr.Validation("password must be at least %d characters", auth.MinPasswordLength)
	}

	if _, err := s.users.GetByEmail(ctx, email); err == nil {
		return nil, apperr.Conflict("email %s is already registered", email)
	} else if !errors.Is(err, apperr.ErrNotFound) {
		return nil, err
	}

	hash, err := auth.HashPassword(in.Password)
	if err != nil {
		return nil, err
	}
	u := &User{Email: email, Name: name, Role: role, PasswordHash: hash, IsActive: true}
	err = s.tx.InTx(ctx, func(ctx context.Context) error {
		if err := s.users.Create(ctx, u); err != nil {
			return err
		}
		return s.audit.Record(ctx, auth.ActorFromContext(ctx), audit.ActionRegister, audit.ModuleAuth, audit.Details{
			"user_id": u.ID.String(),
			"email":   u.Email,
			"role":    u.Role,
		})
	})
	if err != nil {
		return nil, err
	}
	return u, nil
}

// Login checks credentials and issues an access token. Unknown emails,
// wrong passwords and inactive accounts all return the same error.
func (s *Service) Login(ctx context.Context, in LoginInput) (*Session, error) {
	u, err := s.users.GetByEmail(ctx, strings.ToLower(strings.TrimSpace(in.Email)))
	if errors.Is(err, apperr.ErrNotFound) {
		return nil, errBadCredentials
	}
	if err != nil {
		return nil, err
	}
	ok, err := auth.VerifyPassword(u.PasswordHash, in.Password)
	if err != nil {
		return nil, err
	}
	if !ok || !u.IsActive {
		return nil, errBadCredentials
	}

	token, expires, err := auth.IssueToken(s.jwt, u.ID.String(), u.Name, u.Role, s.now())
	if err != nil {
		return nil, err
	}

	actor := auth.Actor{
		UserID:        u.ID.String(),
		Name:          u.Name,
		Role:          u.Role,
		SourceAddress: auth.ActorFromContext(ctx).SourceAddress,
	}
	if err := s.audit.Record(ctx, actor, audit.ActionLogin, audit.ModuleAuth, audit.Details{"email": u.Email}); err != nil {
		return nil, err
	}
	return &Session{AccessToken: token, TokenType: "bearer", ExpiresAt: expires, User: u}, nil
}

// Me returns the account behind the current request.
func (s *Service) Me(ctx context.Context) (*User, error) {
	id, err := uuid.Parse(auth.ActorFromContext(ctx).UserID)
	if err != nil {
		return nil, apperr.Unauthorized("no user account bound to request")
	}
	return s.users.GetByID(ctx, id)
}
