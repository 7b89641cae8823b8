package database

import (
	"context"
	"fmt"
	"time"

	"github.com/drukhealth/ctgadmin/config"
	"github.com/drukhealth/ctgadmin/services/logging"
	"github.com/redis/go-redis/v9"
	"go.uber.org/fx"
	"go.uber.org/zap"
)

// RedisRequired reports whether any configured store is backed by redis.
func RedisRequired(cfg *config.Config) bool {
	return cfg.OTP.Store == "redis" || cfg.RateLimit.Store == "redis"
}

func NewRedisClient(ctx context.Context, cfg config.RedisConfig, logger *logging.Service) (*redis.Client, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     cfg.Addr,
		Password: cfg.Password,
		DB:       cfg.DB,
	})

	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	if err := client.Ping(pingCtx).Err(); err != nil {
		_ = client.Close()
		if logger != nil {
			logger.Error("redis connection failed", zap.String("addr", cfg.Addr), zap.Error(err))
		}
		return nil, fmt.Errorf("failed to connect to redis: %w", err)
	}

	if logger != nil {
		logger.Info("redis client initialized", zap.String("addr", cfg.Addr), zap.Int("db", cfg.DB))
	}
	return client, nil
}

func ProvideRedisClient(lc fx.Lifecycle, cfg *config.Config, logger *logging.Service) (*redis.Client, error) {
	client, err := NewRedisClient(context.Background(), cfg.Redis, logger)
	if err != nil {
		return nil, err
	}

	lc.Append(fx.Hook{
		OnStop: func(ctx context.Context) error {
			return client.Close()
		},
	})
	return client, nil
}
