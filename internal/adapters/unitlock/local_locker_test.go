package unitlock

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/sarbdeol/bi-market-intelligence/internal/core/domain"
)

func TestLocalUnitLocker(t *testing.T) {
	ctx := context.Background()
	l := NewLocalUnitLocker()

	release, err := l.Acquire(ctx, "src:dubai marina", time.Minute)
	if err != nil {
		t.Fatalf("first acquire: %v", err)
	}
	if _, err := l.Acquire(ctx, "src:dubai marina", time.Minute); !errors.Is(err, domain.ErrUnitLocked) {
		t.Fatalf("second acquire: want ErrUnitLocked, got %v", err)
	}

	other, err := l.Acquire(ctx, "src:jlt", time.Minute)
	if err != nil {
		t.Fatalf("other key must be independent: %v", err)
	}
	_ = other(ctx)

	if err := release(ctx); err != nil {
		t.Fatalf("release: %v", err)
	}
	// повторный release не должен снимать чужую блокировку
	again, err := l.Acquire(ctx, "src:dubai marina", time.Minute)
	if err != nil {
		t.Fatalf("acquire after release: %v", err)
	}
	_ = release(ctx)
	if _, err := l.Acquire(ctx, "src:dubai marina", time.Minute); !errors.Is(err, domain.ErrUnitLocked) {
		t.Fatalf("stale release freed a newer lock: %v", err)
	}
	_ = again(ctx)
}

func TestNewRedisUnitLockerRequiresClient(t *testing.T) {
	if _, err := NewRedisUnitLocker(nil); err == nil {
		t.Fatal("expected error for nil client")
	}
}
