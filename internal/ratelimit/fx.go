package ratelimit

import (
	redis "github.com/redis/go-redis/v9"
	"go.uber.org/fx"
)

var Module = fx.Module("rate.limit",
	fx.Provide(NewLimiter),
	fx.Provide(func(client *redis.Client) *Locker {
		if client == nil {
			return nil
		}
		return NewLocker(client)
	}),
)
