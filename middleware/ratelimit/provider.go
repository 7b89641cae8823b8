package ratelimit

import (
	"context"
	"fmt"

	"github.com/drukhealth/ctgadmin/config"
	"github.com/redis/go-redis/v9"
	"go.uber.org/fx"
)

type storeParams struct {
	fx.In

	Lifecycle fx.Lifecycle
	Config    *config.Config
	Redis     *redis.Client `optional:"true"`
}

func NewStore(cfg *config.Config, client *redis.Client) (Store, error) {
	switch cfg.RateLimit.Store {
	case "redis":
		if client == nil {
			return nil, fmt.Errorf("rate limit store is redis but no redis client is configured")
		}
		return NewRedisStore(client, cfg.Redis.Prefix), nil
	case "memory", "":
		return NewMemoryStore(), nil
	default:
		return nil, fmt.Errorf("unsupported rate limit store: %s", cfg.RateLimit.Store)
	}
}

func ProvideRateLimitStore(p storeParams) (Store, error) {
	store, err := NewStore(p.Config, p.Redis)
	if err != nil {
		return nil, err
	}
	if mem, ok := store.(*MemoryStore); ok {
		p.Lifecycle.Append(fx.Hook{
			OnStop: func(context.Context) error {
				mem.Close()
				return nil
			},
		})
	}
	return store, nil
}

var Module = fx.Options(
	fx.Provide(ProvideRateLimitStore),
)
