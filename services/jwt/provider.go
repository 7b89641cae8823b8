package jwt

import (
	"github.com/drukhealth/ctgadmin/config"
	"github.com/drukhealth/ctgadmin/services/logging"
	"go.uber.org/fx"
)

func ProvideJWTService(cfg *config.Config, logger *logging.Service) *Service {
	return NewService(cfg, logger.Named("jwt"))
}

var Module = fx.Options(
	fx.Provide(ProvideJWTService),
)
