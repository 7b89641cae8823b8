package storage

import (
	"context"
	"strings"

	"github.com/drukhealth/ctgadmin/config"
	"github.com/drukhealth/ctgadmin/services/logging"
	"go.uber.org/fx"
)

// UploadsPath is where the local store is served from.
const UploadsPath = "/uploads"

func ProvideImageStore(cfg *config.Config, logger *logging.Service) (ImageStore, error) {
	storageCfg := cfg.Storage
	if storageCfg.Driver == "local" && storageCfg.PublicBaseURL == "" {
		storageCfg.PublicBaseURL = joinURL(cfg.App.URL, strings.TrimPrefix(UploadsPath, "/"))
	}
	return NewImageStore(context.Background(), storageCfg, logger.Named("storage"))
}

var Module = fx.Options(
	fx.Provide(ProvideImageStore),
)
