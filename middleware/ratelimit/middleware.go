package ratelimit

import (
	"errors"
	"fmt"
	"math"
	"net/http"
	"strconv"
	"time"

	"github.com/drukhealth/ctgadmin/config"
	"github.com/drukhealth/ctgadmin/services/logging"
	"github.com/labstack/echo/v4"
	"go.uber.org/zap"
)

type Config struct {
	Store          Store
	Rate           int
	Period         time.Duration
	CountMode      config.CountingMode
	Name           string
	KeyGenerator   func(c echo.Context) string
	OnLimitReached func(c echo.Context, retryAfter time.Duration) error
	Logger         *logging.Service
}

// Middleware counts requests per key within a fixed window. Store failures
// are logged and the request is let through.
func Middleware(cfg *Config) echo.MiddlewareFunc {
	if cfg.Store == nil {
		cfg.Store = NewMemoryStore()
	}

	if cfg.Rate <= 0 {
		cfg.Rate = 10
	}

	if cfg.Period <= 0 {
		cfg.Period = time.Minute
	}

	if cfg.KeyGenerator == nil {
		cfg.KeyGenerator = DefaultKeyGenerator
	}

	if cfg.OnLimitReached == nil {
		cfg.OnLimitReached = DefaultOnLimitReached
	}

	if cfg.CountMode == "" {
		cfg.CountMode = config.CountAll
	}

	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			ctx := c.Request().Context()
			key := cfg.KeyGenerator(c)
			if cfg.Name != "" {
				key = cfg.Name + ":" + key
			}
			now := time.Now()
			resetTime := now.Add(cfg.Period)

			count, existingResetTime, exists, err := cfg.Store.Get(ctx, key)
			if err != nil {
				cfg.logStoreError("read", key, err)
				return next(c)
			}
			if exists {
				resetTime = existingResetTime
			}

			if count >= cfg.Rate {
				setHeaders(c, cfg.Rate, 0, resetTime)
				if cfg.Logger != nil {
					cfg.Logger.Warn("rate limit reached", zap.String("key", key), zap.Int("limit", cfg.Rate))
				}
				return cfg.OnLimitReached(c, resetTime.Sub(now))
			}

			if cfg.CountMode == config.CountAll {
				newCount, err := cfg.Store.Increment(ctx, key, resetTime)
				if err != nil {
					cfg.logStoreError("increment", key, err)
					return next(c)
				}
				setHeaders(c, cfg.Rate, cfg.Rate-newCount, resetTime)
				return next(c)
			}

			// remaining assumes this request will count
			setHeaders(c, cfg.Rate, cfg.Rate-count-1, resetTime)

			handlerErr := next(c)

			status := responseStatus(c, handlerErr)
			shouldCount := false
			switch cfg.CountMode {
			case config.CountFailures:
				shouldCount = status >= http.StatusBadRequest
			case config.CountSuccess:
				shouldCount = status < http.StatusBadRequest
			}

			if shouldCount {
				if _, err := cfg.Store.Increment(ctx, key, resetTime); err != nil {
					cfg.logStoreError("increment", key, err)
				}
			}

			return handlerErr
		}
	}
}

func (cfg *Config) logStoreError(op, key string, err error) {
	if cfg.Logger != nil {
		cfg.Logger.Error("rate limit store unavailable", zap.String("op", op), zap.String("key", key), zap.Error(err))
	}
}

func setHeaders(c echo.Context, limit, remaining int, resetTime time.Time) {
	h := c.Response().Header()
	h.Set("X-RateLimit-Limit", strconv.Itoa(limit))
	h.Set("X-RateLimit-Remaining", strconv.Itoa(max(remaining, 0)))
	h.Set("X-RateLimit-Reset", strconv.FormatInt(resetTime.Unix(), 10))
}

// responseStatus is the status the client will see, including errors the
// HTTP error handler has not rendered yet.
func responseStatus(c echo.Context, err error) int {
	if err == nil {
		return c.Response().Status
	}
	var httpErr *echo.HTTPError
	if errors.As(err, &httpErr) {
		return httpErr.Code
	}
	return http.StatusInternalServerError
}

func DefaultKeyGenerator(c echo.Context) string {
	realIP := c.RealIP()

	if realIP == "" || realIP == "unknown" {
		realIP = "fallback"
	}

	return "rate_limit:" + realIP
}

func SecureKeyGenerator(c echo.Context) string {
	realIP := c.RealIP()
	userAgent := c.Request().Header.Get("User-Agent")

	if realIP == "" || realIP == "unknown" {
		realIP = "fallback"
	}

	return fmt.Sprintf("rate_limit:%s:%s", realIP, simpleHash(userAgent))
}

func simpleHash(s string) string {
	if len(s) == 0 {
		return "none"
	}

	hash := uint32(0)
	for _, c := range s {
		hash = hash*31 + uint32(c)
	}

	return fmt.Sprintf("%x", hash%0xFFFFFF)
}

func DefaultOnLimitReached(c echo.Context, retryAfter time.Duration) error {
	c.Response().Header().Set("Retry-After", strconv.Itoa(int(math.Ceil(retryAfter.Seconds()))))
	return echo.NewHTTPError(http.StatusTooManyRequests, "Too many requests, please try again later")
}
