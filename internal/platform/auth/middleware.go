package auth

import (
	"context"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/labstack/echo/v4"
	echomw "github.com/labstack/echo/v4/middleware"
)

type contextKey string

const (
	UserIDKey    contextKey = "user_id"
	UserRolesKey contextKey = "user_roles"
	ActorKey     contextKey = "actor"
)

const DefaultIssuer = "lims"

type Claims struct {
	jwt.RegisteredClaims
	Name string `json:"name"`
	Role string `json:"role"`
}

type JWTConfig struct {
	SigningKey []byte
	Issuer     string
	// TTL applies to tokens minted by IssueToken.
	TTL     time.Duration
	Skipper echomw.Skipper
}

// IssueToken signs an HS256 token for a user.
func IssueToken(cfg JWTConfig, userID, name, role string, now time.Time) (string, time.Time, error) {
	if len(cfg.SigningKey) == 0 {
		return "", time.Time{}, fmt.Errorf("signing key is not configured")
	}
	ttl := cfg.TTL
	if ttl <= 0 {
		ttl = 12 * time.Hour
	}
	issuer := cfg.Issuer
	if issuer == "" {
		issuer = DefaultIssuer
	}
	expires := now.Add(ttl)
	claims := Claims{
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   userID,
			Issuer:    issuer,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(expires),
		},
		Name: name,
		Role: role,
	}
	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(cfg.SigningKey)
	if err != nil {
		return "", time.Time{}, fmt.Errorf("sign token: %w", err)
	}
	return signed, expires, nil
}

// ParseToken validates a bearer token and returns its claims.
func ParseToken(cfg JWTConfig, tokenStr string) (*Claims, error) {
	issuer := cfg.Issuer
	if issuer == "" {
		issuer = DefaultIssuer
	}
	claims := &Claims{}
	token, err := jwt.ParseWithClaims(tokenStr, claims, func(t *jwt.Token) (interface{}, error) {
		return cfg.SigningKey, nil
	}, jwt.WithValidMethods([]string{"HS256"}), jwt.WithIssuer(issuer), jwt.WithExpirationRequired())
	if err != nil {
		return nil, err
	}
	if !token.Valid || claims.Subject == "" {
		return nil, fmt.Errorf("invalid token")
	}
	return claims, nil
}

func JWTMiddleware(cfg JWTConfig) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			if cfg.Skipper != nil && cfg.Skipper(c) {
				return next(c)
			}

			authHeader := c.Request().Header.Get("Authorization")
			if authHeader == "" {
				return echo.NewHTTPError(http.StatusUnauthorized, "missing authorization header")
			}

			parts := strings.SplitN(authHeader, " ", 2)
			if len(parts) != 2 || !strings.EqualFold(parts[0], "bearer") {
				return echo.NewHTTPError(http.StatusUnauthorized, "invalid authorization format")
			}

			claims, err := ParseToken(cfg, parts[1])
			if err != nil {
				return echo.NewHTTPError(http.StatusUnauthorized, "invalid token")
			}

			bind(c, Actor{
				UserID:        claims.Subject,
				Name:          claims.Name,
				Role:          claims.Role,
				SourceAddress: c.RealIP(),
			})
			return next(c)
		}
	}
}

// DevAuthMiddleware lets unauthenticated requests through as a development
// super admin. Requests that do carry a token are still validated.
func DevAuthMiddleware(cfg JWTConfig) echo.MiddlewareFunc {
	validate := JWTMiddleware(cfg)
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		checked := validate(next)
		return func(c echo.Context) error {
			if c.Request().Header.Get("Authorization") != "" {
				return checked(c)
			}
			bind(c, Actor{
				UserID:        "dev-user",
				Name:          "Development User",
				Role:          RoleSuperAdmin,
				SourceAddress: c.RealIP(),
			})
			return next(c)
		}
	}
}

func bind(c echo.Context, a Actor) {
	c.Set("user_id", a.UserID)
	ctx := c.Request().Context()
	ctx = context.WithValue(ctx, UserIDKey, a.UserID)
	ctx = context.WithValue(ctx, UserRolesKey, []string{a.Role})
	ctx = WithActor(ctx, a)
	c.SetRequest(c.Request().WithContext(ctx))
}

func UserIDFromContext(ctx context.Context) string {
	uid, _ := ctx.Value(UserIDKey).(string)
	return uid
}

func RolesFromContext(ctx context.Context) []string {
	roles, _ := ctx.Value(UserRolesKey).([]string)
	return roles
}
