package usecase

import (
	"context"

	"github.com/sarbdeol/bi-market-intelligence/internal/core/domain"
	"github.com/sarbdeol/bi-market-intelligence/internal/core/port"
)

type GetCompetitorComparisonUseCase struct {
	analytics port.AnalyticsRepositoryPort
}

func NewGetCompetitorComparisonUseCase(analytics port.AnalyticsRepositoryPort) *GetCompetitorComparisonUseCase {
	return &GetCompetitorComparisonUseCase{analytics: analytics}
}

// Execute: пустой area означает все районы
func (uc *GetCompetitorComparisonUseCase) Execute(ctx context.Context, area string) ([]domain.CompetitorStats, error) {
	if area != "" {
		area = domain.NormalizeArea(area)
	}
	return uc.analytics.ListCompetitorStats(ctx, area)
}
