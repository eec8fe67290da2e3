package ratelimit

import (
	"strings"

	"github.com/guildpoint/merit/internal/config"
	redis "github.com/redis/go-redis/v9"
	"go.uber.org/fx"
)

// NewRedisClient returns nil when REDIS_ADDR is unset; the limiter and
// locker both degrade to pass-through in that case.
func NewRedisClient(cfg config.Config) *redis.Client {
	addr := strings.TrimSpace(cfg.RedisAddr)
	if addr == "" {
		return nil
	}
	return redis.NewClient(&redis.Options{
		Addr:     addr,
		Password: strings.TrimSpace(cfg.RedisPassword),
		DB:       cfg.RedisDB,
	})
}

var Module = fx.Module("rate.limit",
	fx.Provide(NewRedisClient),
	fx.Provide(NewAwardPolicy),
	fx.Provide(NewCooldown),
	fx.Provide(NewAwardIngestLimiter),
	fx.Provide(NewLocker),
)
