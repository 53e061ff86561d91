package lock

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	logger "github.com/sirupsen/logrus"
)

// unlockLua deletes the key only if it still carries the caller's token, so an
// expired holder cannot release a lease someone else took over.
const unlockLua = `
if redis.call('GET', KEYS[1]) == ARGV[1] then
    return redis.call('DEL', KEYS[1])
end
return 0
`

// RedisConfig holds connection parameters for the lease store.
type RedisConfig struct {
	Addr     string
	Password string
	DB       int
}

// RedisLocker is a Locker shared by every process pointed at the same Redis,
// built on SETNX with a TTL.
type RedisLocker struct {
	rdb      *redis.Client
	unlockSc *redis.Script
	prefix   string
}

// NewRedisLocker connects and pings Redis.
func NewRedisLocker(ctx context.Context, cfg RedisConfig) (*RedisLocker, error) {
	rdb := redis.NewClient(&redis.Options{
		Addr:     cfg.Addr,
		Password: cfg.Password,
		DB:       cfg.DB,
	})

	if err := rdb.Ping(ctx).Err(); err != nil {
		_ = rdb.Close()
		return nil, fmt.Errorf("redis: ping: %w", err)
	}

	return NewRedisLockerFromClient(rdb), nil
}

// NewRedisLockerFromClient wraps an existing client.
func NewRedisLockerFromClient(rdb *redis.Client) *RedisLocker {
	return &RedisLocker{
		rdb:      rdb,
		unlockSc: redis.NewScript(unlockLua),
		prefix:   "tradejournal:lock:",
	}
}

func (l *RedisLocker) Acquire(ctx context.Context, key string, ttl time.Duration) (func(), error) {
	token := uuid.New().String()
	lk := l.prefix + key

	ok, err := l.rdb.SetNX(ctx, lk, token, ttl).Result()
	if err != nil {
		return nil, fmt.Errorf("redis: acquire lock %s: %w", key, err)
	}
	if !ok {
		return nil, ErrLockHeld
	}

	var once sync.Once
	return func() {
		once.Do(func() {
			// the caller's context may already be cancelled
			unlockCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()

			if err := l.unlockSc.Run(unlockCtx, l.rdb, []string{lk}, token).Err(); err != nil {
				logger.WithField("key", key).WithError(err).Warn("Failed to release redis lock, it will expire")
			}
		})
	}, nil
}

// Close releases the underlying client.
func (l *RedisLocker) Close() error {
	return l.rdb.Close()
}

var _ Locker = (*RedisLocker)(nil)
