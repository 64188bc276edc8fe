package usecases_port

import (
	"context"

	"github.com/sarbdeol/bi-market-intelligence/internal/core/domain"
)

type CollectListingsPort interface {
	Execute(ctx context.Context) (*domain.CollectSummary, error)
}

type ComputeMetricsPort interface {
	Execute(ctx context.Context) (*domain.AggregateSummary, error)
	ExecuteForArea(ctx context.Context, area string, propertyType *domain.PropertyType) (*domain.AreaMetric, error)
}

type EvaluateAlertsPort interface {
	Execute(ctx context.Context, area string, bundle domain.MetricsBundle) ([]*domain.Alert, error)
}

type CheckAlertsPort interface {
	Execute(ctx context.Context) (*domain.AlertCheckSummary, error)
}

type SweepStaleDataPort interface {
	Execute(ctx context.Context) (*domain.SweepResult, error)
}

// RunPipelineJobPort - единая точка входа для внешних триггеров
type RunPipelineJobPort interface {
	Execute(ctx context.Context, job domain.PipelineJob) (interface{}, error)
}
