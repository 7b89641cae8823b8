package otp

import (
	"context"
	"fmt"

	"github.com/drukhealth/ctgadmin/config"
	"github.com/drukhealth/ctgadmin/services/logging"
	"github.com/redis/go-redis/v9"
	"go.uber.org/fx"
)

type storeParams struct {
	fx.In

	Config *config.Config
	Redis  *redis.Client `optional:"true"`
}

func ProvideStore(p storeParams) (Store, error) {
	switch p.Config.OTP.Store {
	case "redis":
		if p.Redis == nil {
			return nil, fmt.Errorf("otp store is redis but no redis client is configured")
		}
		return NewRedisStore(p.Redis, p.Config.Redis.Prefix), nil
	case "memory", "":
		return NewMemoryStore(), nil
	default:
		return nil, fmt.Errorf("unsupported otp store: %s", p.Config.OTP.Store)
	}
}

func ProvideService(lc fx.Lifecycle, cfg *config.Config, store Store, logger *logging.Service) *Service {
	svc := NewService(cfg.OTP, store, logger.Named("otp"))

	lc.Append(fx.Hook{
		OnStart: func(context.Context) error {
			svc.StartSweeper()
			return nil
		},
		OnStop: svc.StopSweeper,
	})
	return svc
}

var Module = fx.Options(
	fx.Provide(ProvideStore),
	fx.Provide(ProvideService),
)
