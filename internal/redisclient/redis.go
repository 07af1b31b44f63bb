// Package redisclient provides the shared Redis connection used by dispatch, rate limiting and locks.
package redisclient

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/abbydulski/Runway-sub000/internal/config"
	"github.com/redis/go-redis/v9"
	"go.uber.org/fx"
	"go.uber.org/zap"
)

var Module = fx.Module("redis",
	fx.Provide(New),
)

// New returns nil when REDIS_ADDR is unset; consumers fall back to in-process behavior.
func New(lc fx.Lifecycle, cfg config.Config, log *zap.Logger) (*redis.Client, error) {
	if !cfg.Redis.Enabled() {
		log.Info("redis disabled; using in-process dispatch and no rate limiting")
		return nil, nil
	}

	client := redis.NewClient(&redis.Options{
		Addr:     cfg.Redis.Addr,
		Password: cfg.Redis.Password,
		DB:       cfg.Redis.DB,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("redis ping %s: %w", cfg.Redis.Addr, err)
	}
	log.Info("redis connected", zap.String("addr", cfg.Redis.Addr), zap.Int("db", cfg.Redis.DB))

	lc.Append(fx.Hook{
		OnStop: func(context.Context) error {
			// asynq closes the shared client when its server shuts down.
			if err := client.Close(); err != nil && !errors.Is(err, redis.ErrClosed) {
				return err
			}
			return nil
		},
	})
	return client, nil
}
