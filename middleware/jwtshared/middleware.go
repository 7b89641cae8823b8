package jwtshared

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/drukhealth/ctgadmin/middleware/jwt"
	"github.com/drukhealth/ctgadmin/services/admins"
	"github.com/labstack/echo/v4"
)

const currentAdminKey = "currentAdmin"

var errSessionExpired = echo.NewHTTPError(http.StatusUnauthorized, "Session expired, please log in again")

type AdminProvider interface {
	Get(ctx context.Context, id uint) (*admins.Admin, error)
}

type Config struct {
	AdminProvider AdminProvider
}

// Middleware resolves the admin behind a validated token. Tokens of deleted
// admins and tokens issued before the last password change are refused.
func Middleware(provider AdminProvider) echo.MiddlewareFunc {
	return MiddlewareWithConfig(Config{AdminProvider: provider})
}

func MiddlewareWithConfig(cfg Config) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			adminID := jwt.GetAdminID(c)
			if adminID == 0 || cfg.AdminProvider == nil {
				return next(c)
			}

			admin, err := cfg.AdminProvider.Get(c.Request().Context(), adminID)
			if err != nil {
				if errors.Is(err, admins.ErrNotFound) {
					return errSessionExpired
				}
				return err
			}

			if claims := jwt.GetClaims(c); claims != nil && claims.IssuedAt != nil {
				// iat has whole-second precision
				if claims.IssuedAt.Time.Before(admin.PasswordChangedAt.Truncate(time.Second)) {
					return errSessionExpired
				}
			}

			SetCurrentAdmin(c, admin)
			return next(c)
		}
	}
}

func SetCurrentAdmin(c echo.Context, admin *admins.Admin) {
	c.Set(currentAdminKey, admin)
}

func GetCurrentAdmin(c echo.Context) *admins.Admin {
	if admin, ok := c.Get(currentAdminKey).(*admins.Admin); ok {
		return admin
	}
	return nil
}
