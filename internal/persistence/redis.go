package persistence

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/restokit/restaurant-billing/internal/config"
)

// Redis wraps the go-redis client.
type Redis struct {
	Client *redis.Client
}

// NewRedis connects to Redis using the provided configuration.
func NewRedis(cfg config.RedisConfig, logger *zap.Logger) *Redis {
	client := redis.NewClient(&redis.Options{
		Addr:     cfg.Addr,
		Password: cfg.Password,
		DB:       cfg.DB,
	})

	if err := client.Ping(context.Background()).Err(); err != nil {
		logger.Warn("unable to reach redis", zap.Error(err))
	} else {
		logger.Info("connected to redis")
	}

	return &Redis{Client: client}
}

// Close closes the client.
func (r *Redis) Close() {
	if r != nil && r.Client != nil {
		_ = r.Client.Close()
	}
}

// Ping verifies Redis connectivity.
func (r *Redis) Ping(ctx context.Context) error {
	if r == nil || r.Client == nil {
		return errors.New("redis client not configured")
	}
	return r.Client.Ping(ctx).Err()
}

// ErrLockNotHeld is returned when a release names a lock that expired or was
// taken over by another holder.
var ErrLockNotHeld = errors.New("lock not held by this token")

// releaseScript deletes the lock only while it still holds the caller's token.
var releaseScript = redis.NewScript(`
if redis.call("GET", KEYS[1]) == ARGV[1] then
	return redis.call("DEL", KEYS[1])
end
return 0
`)

// AcquireLock takes key for ttl unless another holder has it. The returned
// token identifies this holder and must be passed to ReleaseLock.
func (r *Redis) AcquireLock(ctx context.Context, key string, ttl time.Duration) (string, bool, error) {
	if r == nil || r.Client == nil {
		return "", false, errors.New("redis client not configured")
	}
	token := uuid.NewString()
	acquired, err := r.Client.SetNX(ctx, key, token, ttl).Result()
	if err != nil || !acquired {
		return "", false, err
	}
	return token, true, nil
}

// ReleaseLock drops key if token still owns it.
func (r *Redis) ReleaseLock(ctx context.Context, key, token string) error {
	if r == nil || r.Client == nil {
		return errors.New("redis client not configured")
	}
	deleted, err := releaseScript.Run(ctx, r.Client, []string{key}, token).Int64()
	if err != nil {
		return err
	}
	if deleted == 0 {
		return ErrLockNotHeld
	}
	return nil
}
