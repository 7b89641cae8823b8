package scans

import (
	"github.com/drukhealth/ctgadmin/config"
	"github.com/drukhealth/ctgadmin/services/logging"
	"github.com/drukhealth/ctgadmin/services/scanfeed"
	"github.com/drukhealth/ctgadmin/services/storage"
	"go.uber.org/fx"
)

func ProvideService(cfg *config.Config, repo *Repository, images storage.ImageStore, feed *scanfeed.Hub, logger *logging.Service) *Service {
	return NewService(cfg, repo, images, feed, logger.Named("scans"))
}

var Module = fx.Options(
	fx.Provide(NewRepository),
	fx.Provide(ProvideService),
)
