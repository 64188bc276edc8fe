package usecase

import (
	"context"
	"fmt"

	"github.com/sarbdeol/bi-market-intelligence/internal/contextkeys"
	"github.com/sarbdeol/bi-market-intelligence/internal/core/domain"
	"github.com/sarbdeol/bi-market-intelligence/internal/core/port"
	usecases_port "github.com/sarbdeol/bi-market-intelligence/internal/core/port/usecases_port"
)

// RunPipelineJobUseCase направляет задачу конвейера в нужный сценарий
type RunPipelineJobUseCase struct {
	collect   usecases_port.CollectListingsPort
	aggregate usecases_port.ComputeMetricsPort
	alerts    usecases_port.CheckAlertsPort
	sweep     usecases_port.SweepStaleDataPort
}

var _ usecases_port.RunPipelineJobPort = (*RunPipelineJobUseCase)(nil)

func NewRunPipelineJobUseCase(
	collect usecases_port.CollectListingsPort,
	aggregate usecases_port.ComputeMetricsPort,
	alerts usecases_port.CheckAlertsPort,
	sweep usecases_port.SweepStaleDataPort,
) *RunPipelineJobUseCase {
	return &RunPipelineJobUseCase{collect: collect, aggregate: aggregate, alerts: alerts, sweep: sweep}
}

func (uc *RunPipelineJobUseCase) Execute(ctx context.Context, job domain.PipelineJob) (interface{}, error) {
	logger := contextkeys.LoggerFromContext(ctx)
	logger.Info("Pipeline job dispatched", port.Fields{"job": job})

	switch job {
	case domain.JobCollect:
		return uc.collect.Execute(ctx)
	case domain.JobAggregate:
		return uc.aggregate.Execute(ctx)
	case domain.JobCheckAlerts:
		return uc.alerts.Execute(ctx)
	case domain.JobSweep:
		return uc.sweep.Execute(ctx)
	}
	return nil, fmt.Errorf("%w: %q", domain.ErrUnknownJob, job)
}
