package v1

import (
	"context"
	"net/http"
	"time"

	"github.com/drukhealth/ctgadmin/services/logging"
	"github.com/labstack/echo/v4"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

type HealthResponse struct {
	Status   string `json:"status"`
	Database string `json:"database"`
}

type HealthHandler struct {
	db     *gorm.DB
	logger *logging.Service
}

func NewHealthHandler(db *gorm.DB, logger *logging.Service) *HealthHandler {
	return &HealthHandler{db: db, logger: logger}
}

func (h *HealthHandler) Check(c echo.Context) error {
	ctx, cancel := context.WithTimeout(c.Request().Context(), 2*time.Second)
	defer cancel()

	if err := h.ping(ctx); err != nil {
		if h.logger != nil {
			h.logger.Error("health check failed", zap.Error(err))
		}
		return c.JSON(http.StatusServiceUnavailable, HealthResponse{Status: "unavailable", Database: "down"})
	}
	return c.JSON(http.StatusOK, HealthResponse{Status: "ok", Database: "up"})
}

func (h *HealthHandler) ping(ctx context.Context) error {
	if h.db == nil {
		return nil
	}
	sqlDB, err := h.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.PingContext(ctx)
}
