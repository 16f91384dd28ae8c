package locks

import (
	"github.com/hydranet/hydrabill/internal/config"
	redis "github.com/redis/go-redis/v9"
	"go.uber.org/fx"
	"go.uber.org/zap"
)

// NewRedisClient returns nil when no redis address is configured. Consumers
// treat a nil client as "cross-process coordination disabled".
func NewRedisClient(cfg config.Config, log *zap.Logger) *redis.Client {
	if cfg.RedisAddr == "" {
		log.Named("locks").Info("redis not configured, using in-process locking only")
		return nil
	}
	return redis.NewClient(&redis.Options{
		Addr:     cfg.RedisAddr,
		Password: cfg.RedisPassword,
	})
}

var Module = fx.Module("locks",
	fx.Provide(NewRedisClient),
	fx.Provide(NewLocker),
	fx.Provide(NewKeyedMutex),
)
