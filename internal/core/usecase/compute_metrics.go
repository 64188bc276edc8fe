package usecase

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/sarbdeol/bi-market-intelligence/internal/contextkeys"
	"github.com/sarbdeol/bi-market-intelligence/internal/core/domain"
	"github.com/sarbdeol/bi-market-intelligence/internal/core/port"
	usecases_port "github.com/sarbdeol/bi-market-intelligence/internal/core/port/usecases_port"
)

// ComputeMetricsUseCase считает дневную метрику по каждому району.
// Повторный запуск в том же бакете ничего не перезаписывает.
type ComputeMetricsUseCase struct {
	listings     port.ListingRepositoryPort
	metrics      port.MetricRepositoryPort
	areaCapacity int
	window       time.Duration
	now          func() time.Time
}

var _ usecases_port.ComputeMetricsPort = (*ComputeMetricsUseCase)(nil)

func NewComputeMetricsUseCase(listings port.ListingRepositoryPort, metrics port.MetricRepositoryPort, areaCapacity int, window time.Duration) *ComputeMetricsUseCase {
	if areaCapacity <= 0 {
		areaCapacity = domain.DefaultAreaCapacity
	}
	if window <= 0 {
		window = domain.DefaultAggregationWindow
	}
	return &ComputeMetricsUseCase{
		listings:     listings,
		metrics:      metrics,
		areaCapacity: areaCapacity,
		window:       window,
		now:          time.Now,
	}
}

func (uc *ComputeMetricsUseCase) Execute(ctx context.Context) (*domain.AggregateSummary, error) {
	logger := contextkeys.LoggerFromContext(ctx)
	ucLogger := logger.WithFields(port.Fields{"use_case": "ComputeMetricsUseCase"})
	ucLogger.Info("Use case started", nil)

	areas, err := uc.listings.ListAreas(ctx)
	if err != nil {
		ucLogger.Error("Failed to list areas", err, nil)
		return nil, fmt.Errorf("failed to list areas: %w", err)
	}

	summary := &domain.AggregateSummary{Areas: len(areas)}
	for _, area := range areas {
		if ctx.Err() != nil {
			return summary, ctx.Err()
		}
		m, err := uc.ExecuteForArea(ctx, area, nil)
		switch {
		case errors.Is(err, domain.ErrMetricAlreadyExists):
			summary.Skipped++
		case err != nil:
			summary.Failed++
			ucLogger.Error("Failed to compute area metric", err, port.Fields{"area": area})
		case m == nil:
			summary.Skipped++
		default:
			summary.Written++
		}
	}

	ucLogger.Info("Use case finished", port.Fields{
		"areas":   summary.Areas,
		"written": summary.Written,
		"skipped": summary.Skipped,
		"failed":  summary.Failed,
	})
	return summary, nil
}

// ExecuteForArea считает и сохраняет одну метрику. Для района без активных
// объявлений возвращает nil, nil.
func (uc *ComputeMetricsUseCase) ExecuteForArea(ctx context.Context, area string, propertyType *domain.PropertyType) (*domain.AreaMetric, error) {
	logger := contextkeys.LoggerFromContext(ctx)
	now := uc.now().UTC()

	active, err := uc.listings.ListActiveSnapshots(ctx, area, propertyType)
	if err != nil {
		return nil, fmt.Errorf("failed to load active listings: %w", err)
	}
	removed, err := uc.listings.CountRemovedSince(ctx, area, now.Add(-uc.window))
	if err != nil {
		return nil, fmt.Errorf("failed to count removed listings: %w", err)
	}
	previous, err := uc.metrics.FindLatestBefore(ctx, area, propertyType, domain.MetricBucket(now))
	if err != nil {
		return nil, fmt.Errorf("failed to load previous metric: %w", err)
	}

	m, ok := domain.BuildAreaMetric(domain.AggregationInput{
		Area:         area,
		PropertyType: propertyType,
		Active:       active,
		RemovedCount: removed,
		Previous:     previous,
		AreaCapacity: uc.areaCapacity,
		Window:       uc.window,
		Now:          now,
	})
	if !ok {
		logger.Debug("No active listings in area, metric skipped", port.Fields{"area": area})
		return nil, nil
	}

	if err := uc.metrics.Insert(ctx, m); err != nil {
		if errors.Is(err, domain.ErrMetricAlreadyExists) {
			logger.Debug("Metric bucket already written", port.Fields{"area": area, "metric_date": m.MetricDate.Format(time.DateOnly)})
			return nil, err
		}
		return nil, fmt.Errorf("failed to insert metric: %w", err)
	}

	logger.Debug("Area metric written", port.Fields{
		"area":           area,
		"avg_price":      m.AvgPrice,
		"velocity_ratio": m.VelocityRatio,
		"heat_index":     m.HeatIndex,
	})
	return m, nil
}
