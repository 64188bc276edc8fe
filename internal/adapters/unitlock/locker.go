package unitlock

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/bsm/redislock"
	"github.com/redis/go-redis/v9"
	"github.com/sarbdeol/bi-market-intelligence/internal/core/domain"
	"github.com/sarbdeol/bi-market-intelligence/internal/core/port"
)

const keyPrefix = "market_intelligence:unit:"

// NewRedisClient создает клиента и проверяет соединение
func NewRedisClient(ctx context.Context, addr string) (*redis.Client, error) {
	rdb := redis.NewClient(&redis.Options{
		Addr:     addr,
		PoolSize: 20,
	})

	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := rdb.Ping(pingCtx).Err(); err != nil {
		_ = rdb.Close()
		return nil, fmt.Errorf("unable to ping redis at %s: %w", addr, err)
	}
	return rdb, nil
}

// RedisUnitLocker - распределенная блокировка единицы сбора.
// Нужна, когда несколько экземпляров сервиса получают одни и те же триггеры.
type RedisUnitLocker struct {
	locker *redislock.Client
}

var _ port.UnitLockPort = (*RedisUnitLocker)(nil)

func NewRedisUnitLocker(rdb *redis.Client) (*RedisUnitLocker, error) {
	if rdb == nil {
		return nil, fmt.Errorf("redis client cannot be nil")
	}
	return &RedisUnitLocker{locker: redislock.New(rdb)}, nil
}

func (l *RedisUnitLocker) Acquire(ctx context.Context, key string, ttl time.Duration) (func(context.Context) error, error) {
	lock, err := l.locker.Obtain(ctx, keyPrefix+key, ttl, nil)
	if errors.Is(err, redislock.ErrNotObtained) {
		return nil, domain.ErrUnitLocked
	}
	if err != nil {
		return nil, fmt.Errorf("failed to obtain lock %s: %w", key, err)
	}

	return func(releaseCtx context.Context) error {
		err := lock.Release(releaseCtx)
		// TTL истек раньше, чем закончилась сверка: освобождать уже нечего
		if errors.Is(err, redislock.ErrLockNotHeld) {
			return nil
		}
		return err
	}, nil
}
