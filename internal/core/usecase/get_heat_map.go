package usecase

import (
	"context"
	"fmt"
	"sort"

	"github.com/sarbdeol/bi-market-intelligence/internal/core/domain"
	"github.com/sarbdeol/bi-market-intelligence/internal/core/port"
)

type GetHeatMapUseCase struct {
	metrics port.MetricRepositoryPort
}

func NewGetHeatMapUseCase(metrics port.MetricRepositoryPort) *GetHeatMapUseCase {
	return &GetHeatMapUseCase{metrics: metrics}
}

// Execute - последние метрики районов, самые горячие первыми
func (uc *GetHeatMapUseCase) Execute(ctx context.Context) ([]domain.HeatMapEntry, error) {
	latest, err := uc.metrics.ListLatestPerArea(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to load latest metrics: %w", err)
	}
	entries := make([]domain.HeatMapEntry, 0, len(latest))
	for i := range latest {
		entries = append(entries, domain.HeatMapEntryFromMetric(&latest[i]))
	}
	sort.SliceStable(entries, func(i, j int) bool { return entries[i].HeatIndex > entries[j].HeatIndex })
	return entries, nil
}
