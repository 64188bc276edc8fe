package port

import (
	"context"
	"time"

	"github.com/sarbdeol/bi-market-intelligence/internal/core/domain"
)

// AnalyticsRepositoryPort - read-only выборки для аналитических запросов
type AnalyticsRepositoryPort interface {
	ListPriceSamples(ctx context.Context, q domain.PriceStatsQuery, seenSince time.Time) ([]int64, []float64, error)
	CountNewListings(ctx context.Context, area string, since time.Time) (int, error)
	ListCompetitorStats(ctx context.Context, area string) ([]domain.CompetitorStats, error)
	GetOverview(ctx context.Context, newSince time.Time) (*domain.Overview, error)
}
