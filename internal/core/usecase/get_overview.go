package usecase

import (
	"context"
	"time"

	"github.com/sarbdeol/bi-market-intelligence/internal/core/domain"
	"github.com/sarbdeol/bi-market-intelligence/internal/core/port"
)

type GetOverviewUseCase struct {
	analytics port.AnalyticsRepositoryPort
	now       func() time.Time
}

func NewGetOverviewUseCase(analytics port.AnalyticsRepositoryPort) *GetOverviewUseCase {
	return &GetOverviewUseCase{analytics: analytics, now: time.Now}
}

func (uc *GetOverviewUseCase) Execute(ctx context.Context) (*domain.Overview, error) {
	return uc.analytics.GetOverview(ctx, uc.now().UTC().AddDate(0, 0, -7))
}
