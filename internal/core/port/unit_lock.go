package port

import (
	"context"
	"time"
)

// UnitLockPort гарантирует не более одной сверки (источник × район) одновременно.
// Acquire возвращает domain.ErrUnitLocked, если блокировка занята.
type UnitLockPort interface {
	Acquire(ctx context.Context, key string, ttl time.Duration) (release func(context.Context) error, err error)
}
