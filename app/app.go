package app

import (
	"context"
	"log"
	"os/signal"
	"syscall"
	"time"

	"github.com/drukhealth/ctgadmin/config"
	"github.com/drukhealth/ctgadmin/server"
	"github.com/drukhealth/ctgadmin/services/admins"
	"github.com/drukhealth/ctgadmin/services/logging"
	"github.com/labstack/echo/v4"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

const stopTimeout = 30 * time.Second

type App struct {
	fx     *fx.App
	config *config.Config
	logger *logging.Service
	db     *gorm.DB
	server *server.Server
	admins *admins.Service
}

func (a *App) Start(ctx context.Context) error {
	return a.fx.Start(ctx)
}

// Run starts the application and blocks until SIGINT or SIGTERM.
func (a *App) Run() error {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := a.Start(ctx); err != nil {
		return err
	}

	<-ctx.Done()
	if a.logger != nil {
		a.logger.Info("received shutdown signal, stopping gracefully")
	} else {
		log.Printf("Received shutdown signal, stopping gracefully...")
	}

	return a.Stop()
}

func (a *App) Stop() error {
	timeout := stopTimeout
	if a.config != nil && a.config.Server.ShutdownTimeout > 0 {
		timeout = a.config.Server.ShutdownTimeout
	}

	ctx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()

	if err := a.fx.Stop(ctx); err != nil {
		if a.logger != nil {
			a.logger.Error("failed to stop application gracefully", zap.Error(err))
		} else {
			log.Printf("Failed to stop application gracefully: %v", err)
		}
		return err
	}
	return nil
}

func (a *App) Server() *echo.Echo {
	if a.server == nil {
		if a.logger != nil {
			a.logger.Warn("server not initialized through dependency injection")
		}
		return nil
	}
	return a.server.Echo()
}

func (a *App) HTTPServer() *server.Server {
	return a.server
}

func (a *App) DB() *gorm.DB {
	return a.db
}

func (a *App) Admins() *admins.Service {
	return a.admins
}

func (a *App) Logger() *logging.Service {
	return a.logger
}

func (a *App) Config() *config.Config {
	return a.config
}
