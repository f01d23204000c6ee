package auth

import (
	"fmt"
	"net/http"
	"strings"

	"github.com/labstack/echo/v4"
)

// Known roles. A user holds exactly one role, assigned at registration.
const (
	RoleAdmin   = "ADMIN"
	RoleDoctor  = "DOCTOR"
	RolePatient = "PATIENT"
	RoleStaff   = "STAFF"
	RoleNurse   = "NURSE"
)

var validRoles = map[string]bool{
	RoleAdmin:   true,
	RoleDoctor:  true,
	RolePatient: true,
	RoleStaff:   true,
	RoleNurse:   true,
}

// IsValidRole reports whether role is one of the known roles.
func IsValidRole(role string) bool {
	return validRoles[role]
}

// RequireRole returns middleware that checks if the user holds one of the
// specified roles. ADMIN passes every check.
func RequireRole(roles ...string) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			userRole := RoleFromContext(c.Request().Context())
			if userRole == RoleAdmin {
				return next(c)
			}
			for _, required := range roles {
				if userRole == required {
					return next(c)
				}
			}
			return echo.NewHTTPError(http.StatusForbidden,
				fmt.Sprintf("required role: %s", strings.Join(roles, " or ")))
		}
	}
}

// IsStaffRole reports whether role may act on behalf of any patient
// (scheduling, billing, record keeping).
func IsStaffRole(role string) bool {
	switch role {
	case RoleAdmin, RoleStaff, RoleNurse:
		return true
	}
	return false
}
