package admins

import (
	"github.com/drukhealth/ctgadmin/services/logging"
	"go.uber.org/fx"
)

func ProvideService(repo *Repository, hasher PasswordHasher, logger *logging.Service) *Service {
	return NewService(repo, hasher, logger.Named("admins"))
}

var Module = fx.Options(
	fx.Provide(NewRepository),
	fx.Provide(ProvideService),
)
