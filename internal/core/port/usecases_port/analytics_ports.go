package usecases_port

import (
	"context"

	"github.com/sarbdeol/bi-market-intelligence/internal/core/domain"
)

type GetPriceStatsPort interface {
	Execute(ctx context.Context, q domain.PriceStatsQuery) (*domain.PriceStats, error)
}

type GetListingVelocityPort interface {
	Execute(ctx context.Context, area string, days int) (*domain.VelocityStats, error)
}

type GetHeatMapPort interface {
	Execute(ctx context.Context) ([]domain.HeatMapEntry, error)
}

type GetMarketTrendPort interface {
	Execute(ctx context.Context, area string, days int) ([]domain.TrendPoint, error)
}

type GetCompetitorComparisonPort interface {
	Execute(ctx context.Context, area string) ([]domain.CompetitorStats, error)
}

type GetOverviewPort interface {
	Execute(ctx context.Context) (*domain.Overview, error)
}
