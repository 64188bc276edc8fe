package usecase

import (
	"context"
	"fmt"
	"time"

	"github.com/sarbdeol/bi-market-intelligence/internal/core/domain"
	"github.com/sarbdeol/bi-market-intelligence/internal/core/port"
)

const defaultPriceStatsDays = 30

type GetPriceStatsUseCase struct {
	analytics port.AnalyticsRepositoryPort
	now       func() time.Time
}

func NewGetPriceStatsUseCase(analytics port.AnalyticsRepositoryPort) *GetPriceStatsUseCase {
	return &GetPriceStatsUseCase{analytics: analytics, now: time.Now}
}

// Execute возвращает nil, nil если за период нет объявлений
func (uc *GetPriceStatsUseCase) Execute(ctx context.Context, q domain.PriceStatsQuery) (*domain.PriceStats, error) {
	if q.Days <= 0 {
		q.Days = defaultPriceStatsDays
	}
	q.Area = domain.NormalizeArea(q.Area)

	since := uc.now().UTC().AddDate(0, 0, -q.Days)
	prices, ppa, err := uc.analytics.ListPriceSamples(ctx, q, since)
	if err != nil {
		return nil, fmt.Errorf("failed to load price samples: %w", err)
	}
	return domain.BuildPriceStats(q, prices, ppa), nil
}
