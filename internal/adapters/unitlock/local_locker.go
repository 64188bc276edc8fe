package unitlock

import (
	"context"
	"sync"
	"time"

	"github.com/sarbdeol/bi-market-intelligence/internal/core/domain"
	"github.com/sarbdeol/bi-market-intelligence/internal/core/port"
)

// LocalUnitLocker - блокировка в пределах одного процесса, когда Redis выключен.
// TTL не учитывается: блокировка живет до release.
type LocalUnitLocker struct {
	mu   sync.Mutex
	held map[string]struct{}
}

var _ port.UnitLockPort = (*LocalUnitLocker)(nil)

func NewLocalUnitLocker() *LocalUnitLocker {
	return &LocalUnitLocker{held: make(map[string]struct{})}
}

func (l *LocalUnitLocker) Acquire(_ context.Context, key string, _ time.Duration) (func(context.Context) error, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if _, busy := l.held[key]; busy {
		return nil, domain.ErrUnitLocked
	}
	l.held[key] = struct{}{}

	var once sync.Once
	return func(context.Context) error {
		once.Do(func() {
			l.mu.Lock()
			delete(l.held, key)
			l.mu.Unlock()
		})
		return nil
	}, nil
}
