package roles

import (
	"net/http"
	"slices"

	"github.com/drukhealth/ctgadmin/middleware/jwt"
	"github.com/drukhealth/ctgadmin/middleware/jwtshared"
	"github.com/drukhealth/ctgadmin/services/admins"
	"github.com/labstack/echo/v4"
)

// RequireRole admits requests whose admin holds one of roles. The role of the
// loaded admin is preferred over the one carried in the token.
func RequireRole(roles ...string) echo.MiddlewareFunc {
	message := "Forbidden"
	if len(roles) == 1 && roles[0] == admins.RoleSuperAdmin {
		message = "Super admin only"
	}

	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			role := ""
			if admin := jwtshared.GetCurrentAdmin(c); admin != nil {
				role = admin.Role
			} else if claims := jwt.GetClaims(c); claims != nil {
				role = claims.Role
			} else {
				return echo.NewHTTPError(http.StatusUnauthorized, "Authorization header required")
			}

			if !slices.Contains(roles, role) {
				return echo.NewHTTPError(http.StatusForbidden, message)
			}
			return next(c)
		}
	}
}

func RequireSuperAdmin() echo.MiddlewareFunc {
	return RequireRole(admins.RoleSuperAdmin)
}
