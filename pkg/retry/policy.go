package retry

import (
	"context"
	"fmt"
	"time"
)

// Policy - ограниченный повтор с экспоненциальной задержкой
type Policy struct {
	MaxAttempts int
	BaseDelay   time.Duration
	Multiplier  float64
	MaxDelay    time.Duration // 0 - без ограничения
	// Retryable решает, стоит ли повторять после ошибки. nil - повторять любую.
	Retryable func(error) bool
	// OnRetry вызывается перед ожиданием очередной попытки
	OnRetry func(attempt int, err error, delay time.Duration)
}

// DefaultPolicy - 3 попытки, 4s, 8s
func DefaultPolicy() Policy {
	return Policy{MaxAttempts: 3, BaseDelay: 4 * time.Second, Multiplier: 2, MaxDelay: 30 * time.Second}
}

// Delay возвращает задержку перед попыткой attempt+1 (attempt начинается с 1)
func (p Policy) Delay(attempt int) time.Duration {
	mult := p.Multiplier
	if mult < 1 {
		mult = 1
	}
	d := float64(p.BaseDelay)
	for i := 1; i < attempt; i++ {
		d *= mult
		if p.MaxDelay > 0 && d >= float64(p.MaxDelay) {
			return p.MaxDelay
		}
	}
	if p.MaxDelay > 0 && time.Duration(d) > p.MaxDelay {
		return p.MaxDelay
	}
	return time.Duration(d)
}

// Do выполняет fn, пока она не вернет nil, не кончатся попытки,
// ошибка не окажется неповторяемой или не отменится контекст.
// Итоговая ошибка оборачивает последнюю, так что errors.Is по ней работает.
func (p Policy) Do(ctx context.Context, operation string, fn func(ctx context.Context) error) error {
	attempts := p.MaxAttempts
	if attempts < 1 {
		attempts = 1
	}

	var lastErr error
	for attempt := 1; attempt <= attempts; attempt++ {
		lastErr = fn(ctx)
		if lastErr == nil {
			return nil
		}
		if p.Retryable != nil && !p.Retryable(lastErr) {
			return fmt.Errorf("%s failed with non-retryable error: %w", operation, lastErr)
		}
		if attempt == attempts {
			break
		}

		delay := p.Delay(attempt)
		if p.OnRetry != nil {
			p.OnRetry(attempt, lastErr, delay)
		}

		timer := time.NewTimer(delay)
		select {
		case <-ctx.Done():
			timer.Stop()
			return fmt.Errorf("%s cancelled after %d attempts: %w", operation, attempt, lastErr)
		case <-timer.C:
		}
	}

	return fmt.Errorf("%s failed after %d attempts: %w", operation, attempts, lastErr)
}
