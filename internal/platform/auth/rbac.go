package auth

import (
	"fmt"
	"net/http"
	"strings"

	"github.com/labstack/echo/v4"
)

const (
	RoleSuperAdmin     = "super_admin"
	RoleLabDirector    = "lab_director"
	RoleQualityManager = "quality_manager"
	RolePathologist    = "pathologist"
	RoleLabTechnician  = "lab_technician"
	RoleReception      = "reception"
	RoleDoctor         = "doctor"
	RolePatient        = "patient"
)

var knownRoles = map[string]bool{
	RoleSuperAdmin:     true,
	RoleLabDirector:    true,
	RoleQualityManager: true,
	RolePathologist:    true,
	RoleLabTechnician:  true,
	RoleReception:      true,
	RoleDoctor:         true,
	RolePatient:        true,
}

func IsKnownRole(role string) bool {
	return knownRoles[role]
}

// RequireRole returns middleware that checks if the user has at least one of
// the specified roles. Super admins pass every check.
func RequireRole(roles ...string) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			userRoles := RolesFromContext(c.Request().Context())
			for _, has := range userRoles {
				if has == RoleSuperAdmin {
					return next(c)
				}
				for _, required := range roles {
					if has == required {
						return next(c)
					}
				}
			}
			return echo.NewHTTPError(http.StatusForbidden,
				fmt.Sprintf("required role: %s", strings.Join(roles, " or ")))
		}
	}
}
