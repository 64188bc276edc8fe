package port

import (
	"context"
	"time"

	"github.com/sarbdeol/bi-market-intelligence/internal/core/domain"
)

// MetricRepositoryPort - хранилище метрик районов
type MetricRepositoryPort interface {
	// Insert возвращает domain.ErrMetricAlreadyExists, если бакет уже занят
	Insert(ctx context.Context, metric *domain.AreaMetric) error
	// FindLatestBefore возвращает nil, nil если предыдущей метрики нет
	FindLatestBefore(ctx context.Context, area string, propertyType *domain.PropertyType, before time.Time) (*domain.AreaMetric, error)
	ListLatestPerArea(ctx context.Context) ([]domain.AreaMetric, error)
	ListHistory(ctx context.Context, area string, since time.Time) ([]domain.AreaMetric, error)
}
