package feedfetcher

import (
	"context"
	"errors"
	"time"

	"github.com/sarbdeol/bi-market-intelligence/internal/contextkeys"
	"github.com/sarbdeol/bi-market-intelligence/internal/core/domain"
	"github.com/sarbdeol/bi-market-intelligence/internal/core/port"
	"github.com/sarbdeol/bi-market-intelligence/pkg/retry"
)

// RetryingSource оборачивает источник ограниченной политикой повторов.
// Сверка сама не повторяет, поэтому повтор живет только здесь.
type RetryingSource struct {
	port.ListingSourcePort
	policy retry.Policy
}

var _ port.ListingSourcePort = (*RetryingSource)(nil)

// NewRetryingSource - конструктор. Если в политике не задан Retryable,
// не повторяются отмена контекста и неразбираемый ответ.
func NewRetryingSource(inner port.ListingSourcePort, policy retry.Policy) *RetryingSource {
	if policy.Retryable == nil {
		policy.Retryable = IsRetryable
	}
	return &RetryingSource{ListingSourcePort: inner, policy: policy}
}

// IsRetryable - 403/429 тоже повторяются: блокировка часто временная
func IsRetryable(err error) bool {
	return !errors.Is(err, context.Canceled) &&
		!errors.Is(err, context.DeadlineExceeded) &&
		!errors.Is(err, ErrMalformedFeed)
}

func (s *RetryingSource) Fetch(ctx context.Context, area string) ([]domain.ObservedListing, error) {
	logger := contextkeys.LoggerFromContext(ctx).WithFields(port.Fields{
		"component": "RetryingSource",
		"source":    s.Name(),
		"area":      area,
	})

	policy := s.policy
	policy.OnRetry = func(attempt int, err error, delay time.Duration) {
		logger.Warn("Fetch attempt failed, retrying", port.Fields{
			"attempt": attempt,
			"delay":   delay.String(),
			"error":   err.Error(),
		})
	}

	var listings []domain.ObservedListing
	err := policy.Do(ctx, "fetch "+s.Name()+"/"+area, func(attemptCtx context.Context) error {
		var fetchErr error
		listings, fetchErr = s.ListingSourcePort.Fetch(attemptCtx, area)
		return fetchErr
	})
	if err != nil {
		return nil, err
	}
	return listings, nil
}
