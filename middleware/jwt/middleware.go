package jwt

import (
	"errors"
	"net/http"
	"strings"

	"github.com/drukhealth/ctgadmin/services/jwt"
	"github.com/labstack/echo/v4"
)

const (
	AdminIDKey = "_jwt_admin_id"
	ClaimsKey  = "_jwt_claims"
)

type Config struct {
	Service *jwt.Service
	// QueryParam, when set, is read if the Authorization header is absent.
	// EventSource clients cannot send headers.
	QueryParam string
}

func RequireJWT(jwtService *jwt.Service) echo.MiddlewareFunc {
	return RequireJWTWithConfig(Config{Service: jwtService})
}

func RequireJWTWithConfig(cfg Config) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			tokenString, err := extractToken(c, cfg.QueryParam)
			if err != nil {
				return err
			}

			claims, err := cfg.Service.ValidateToken(tokenString)
			if err != nil {
				switch {
				case errors.Is(err, jwt.ErrExpiredToken):
					return echo.NewHTTPError(http.StatusUnauthorized, "JWT token has expired")
				case errors.Is(err, jwt.ErrMalformedToken):
					return echo.NewHTTPError(http.StatusUnauthorized, "Malformed JWT token")
				case errors.Is(err, jwt.ErrInvalidSignature):
					return echo.NewHTTPError(http.StatusUnauthorized, "Invalid JWT token signature")
				default:
					return echo.NewHTTPError(http.StatusUnauthorized, "Invalid JWT token")
				}
			}

			c.Set(AdminIDKey, claims.AdminID)
			c.Set(ClaimsKey, claims)

			return next(c)
		}
	}
}

func extractToken(c echo.Context, queryParam string) (string, error) {
	authHeader := c.Request().Header.Get(echo.HeaderAuthorization)
	if authHeader == "" {
		if queryParam != "" {
			if token := c.QueryParam(queryParam); token != "" {
				return token, nil
			}
		}
		return "", echo.NewHTTPError(http.StatusUnauthorized, "Authorization header required")
	}

	if !strings.HasPrefix(authHeader, "Bearer ") {
		return "", echo.NewHTTPError(http.StatusUnauthorized, "Invalid authorization header format")
	}

	tokenString := strings.TrimSpace(strings.TrimPrefix(authHeader, "Bearer "))
	if tokenString == "" {
		return "", echo.NewHTTPError(http.StatusUnauthorized, "JWT token required")
	}
	return tokenString, nil
}

func GetAdminID(c echo.Context) uint {
	if adminID, ok := c.Get(AdminIDKey).(uint); ok {
		return adminID
	}
	return 0
}

func GetClaims(c echo.Context) *jwt.Claims {
	if claims, ok := c.Get(ClaimsKey).(*jwt.Claims); ok {
		return claims
	}
	return nil
}
