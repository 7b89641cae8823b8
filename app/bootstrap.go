package app

import (
	"context"
	"fmt"

	"github.com/drukhealth/ctgadmin/config"
	"github.com/drukhealth/ctgadmin/services/admins"
	"github.com/drukhealth/ctgadmin/services/logging"
	"go.uber.org/fx"
	"go.uber.org/zap"
)

func registerBootstrap(lc fx.Lifecycle, cfg *config.Config, adminService *admins.Service, logger *logging.Service) {
	lc.Append(fx.Hook{
		OnStart: func(ctx context.Context) error {
			return BootstrapSuperAdmin(ctx, cfg.Bootstrap, adminService, logger)
		},
	})
}

// BootstrapSuperAdmin creates the configured super admin unless an account
// with that email already exists. It does nothing when no email is set.
func BootstrapSuperAdmin(ctx context.Context, cfg config.BootstrapConfig, adminService *admins.Service, logger *logging.Service) error {
	if cfg.SuperAdminEmail == "" {
		return nil
	}
	admin, created, err := adminService.EnsureSuperAdmin(ctx, cfg.SuperAdminName, cfg.SuperAdminEmail, cfg.SuperAdminPassword)
	if err != nil {
		return fmt.Errorf("failed to bootstrap super admin: %w", err)
	}

	if logger != nil {
		if created {
			logger.Info("super admin created", zap.Uint("admin_id", admin.ID), zap.String("email", admin.Email))
		} else {
			logger.Debug("super admin already present", zap.String("email", admin.Email))
		}
	}
	return nil
}
