package database

import (
	"github.com/drukhealth/ctgadmin/config"
	"github.com/drukhealth/ctgadmin/services/logging"
	"go.uber.org/fx"
	"gorm.io/gorm"
)

var Module = fx.Options(
	fx.Provide(ProvideDatabaseFx),
)

func ProvideDatabaseFx(cfg *config.Config, modelsOpt *ModelsOption, logger *logging.Service) (*gorm.DB, error) {
	return ProvideDatabase(*cfg, modelsOpt, logger)
}

// RedisModule provides a shared redis client for the stores configured to use it.
var RedisModule = fx.Options(
	fx.Provide(ProvideRedisClient),
)
