package usecase

import (
	"context"
	"fmt"
	"time"

	"github.com/sarbdeol/bi-market-intelligence/internal/core/domain"
	"github.com/sarbdeol/bi-market-intelligence/internal/core/port"
)

const defaultTrendDays = 90

type GetMarketTrendUseCase struct {
	metrics port.MetricRepositoryPort
	now     func() time.Time
}

func NewGetMarketTrendUseCase(metrics port.MetricRepositoryPort) *GetMarketTrendUseCase {
	return &GetMarketTrendUseCase{metrics: metrics, now: time.Now}
}

// Execute возвращает ряд метрик района по возрастанию даты
func (uc *GetMarketTrendUseCase) Execute(ctx context.Context, area string, days int) ([]domain.TrendPoint, error) {
	if days <= 0 {
		days = defaultTrendDays
	}
	area = domain.NormalizeArea(area)
	since := domain.MetricBucket(uc.now()).AddDate(0, 0, -days)

	history, err := uc.metrics.ListHistory(ctx, area, since)
	if err != nil {
		return nil, fmt.Errorf("failed to load metric history: %w", err)
	}
	points := make([]domain.TrendPoint, 0, len(history))
	for i := range history {
		points = append(points, domain.TrendPointFromMetric(&history[i]))
	}
	return points, nil
}
