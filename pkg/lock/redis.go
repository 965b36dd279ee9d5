package lock

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

// releaseScript deletes the key only if it still holds our token
var releaseScript = redis.NewScript(`
if redis.call("GET", KEYS[1]) == ARGV[1] then
	return redis.call("DEL", KEYS[1])
end
return 0
`)

// renewScript pushes the expiry out only if the key still holds our token
var renewScript = redis.NewScript(`
if redis.call("GET", KEYS[1]) == ARGV[1] then
	return redis.call("PEXPIRE", KEYS[1], ARGV[2])
end
return 0
`)

// RedisLocker guards keys across every process sharing a redis instance.
// Locks expire after ttl unless renewed. A live holder renews every ttl/3 until
// it releases.
type RedisLocker struct {
	client *redis.Client
	prefix string
	ttl    time.Duration
	logger *zap.Logger
}

// NewRedisLocker creates a locker using client. Keys are stored as prefix+key.
func NewRedisLocker(client *redis.Client, prefix string, ttl time.Duration, logger *zap.Logger) *RedisLocker {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &RedisLocker{client: client, prefix: prefix, ttl: ttl, logger: logger}
}

// Ping checks the redis connection
func (l *RedisLocker) Ping(ctx context.Context) error {
	if err := l.client.Ping(ctx).Err(); err != nil {
		return fmt.Errorf("failed to ping redis: %w", err)
	}
	return nil
}

func (l *RedisLocker) TryAcquire(ctx context.Context, key string) (ReleaseFunc, error) {
	fullKey := l.prefix + key
	token := uuid.NewString()

	ok, err := l.client.SetNX(ctx, fullKey, token, l.ttl).Result()
	if err != nil {
		return nil, fmt.Errorf("failed to acquire lock %s: %w", fullKey, err)
	}
	if !ok {
		return nil, ErrLocked
	}

	stop := make(chan struct{})
	stopped := make(chan struct{})
	go l.renew(fullKey, token, stop, stopped)

	var once sync.Once
	return func(ctx context.Context) error {
		once.Do(func() { close(stop) })
		<-stopped

		if err := releaseScript.Run(ctx, l.client, []string{fullKey}, token).Err(); err != nil {
			return fmt.Errorf("failed to release lock %s: %w", fullKey, err)
		}
		return nil
	}, nil
}

// renew extends the key's expiry every renewInterval until stop is closed or the
// key no longer holds token
func (l *RedisLocker) renew(fullKey, token string, stop <-chan struct{}, stopped chan<- struct{}) {
	defer close(stopped)
	logger := l.logger.With(zap.String("lock", fullKey))

	ticker := time.NewTicker(renewInterval(l.ttl))
	defer ticker.Stop()

	for {
		select {
		case <-stop:
			return
		case <-ticker.C:
		}

		ctx, cancel := context.WithTimeout(context.Background(), renewInterval(l.ttl))
		renewed, err := renewScript.Run(ctx, l.client, []string{fullKey}, token, l.ttl.Milliseconds()).Int()
		cancel()
		if err != nil {
			logger.Warn("Failed to renew lock", zap.Error(err))
			continue
		}
		if renewed == 0 {
			logger.Error("Lock lost before release, another holder may run concurrently")
			return
		}
		logger.Debug("Renewed lock", zap.Duration("ttl", l.ttl))
	}
}

func renewInterval(ttl time.Duration) time.Duration {
	interval := ttl / 3
	if interval < 10*time.Millisecond {
		interval = 10 * time.Millisecond
	}
	return interval
}

// Close closes the underlying client
func (l *RedisLocker) Close() error {
	return l.client.Close()
}
