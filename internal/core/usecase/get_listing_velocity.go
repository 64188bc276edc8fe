package usecase

import (
	"context"
	"fmt"
	"time"

	"github.com/sarbdeol/bi-market-intelligence/internal/core/domain"
	"github.com/sarbdeol/bi-market-intelligence/internal/core/port"
)

const (
	defaultVelocityDays  = 7
	velocityBaselineDays = 30
)

type GetListingVelocityUseCase struct {
	analytics port.AnalyticsRepositoryPort
	now       func() time.Time
}

func NewGetListingVelocityUseCase(analytics port.AnalyticsRepositoryPort) *GetListingVelocityUseCase {
	return &GetListingVelocityUseCase{analytics: analytics, now: time.Now}
}

// Execute сравнивает приток за days дней с 30-дневной базой
func (uc *GetListingVelocityUseCase) Execute(ctx context.Context, area string, days int) (*domain.VelocityStats, error) {
	if days <= 0 {
		days = defaultVelocityDays
	}
	area = domain.NormalizeArea(area)
	now := uc.now().UTC()

	inPeriod, err := uc.analytics.CountNewListings(ctx, area, now.AddDate(0, 0, -days))
	if err != nil {
		return nil, fmt.Errorf("failed to count new listings: %w", err)
	}
	inBaseline, err := uc.analytics.CountNewListings(ctx, area, now.AddDate(0, 0, -velocityBaselineDays))
	if err != nil {
		return nil, fmt.Errorf("failed to count baseline listings: %w", err)
	}

	stats := domain.BuildVelocityStats(area, days, inPeriod, inBaseline)
	return &stats, nil
}
