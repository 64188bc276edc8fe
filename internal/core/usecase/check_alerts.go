package usecase

import (
	"context"
	"fmt"

	"github.com/sarbdeol/bi-market-intelligence/internal/contextkeys"
	"github.com/sarbdeol/bi-market-intelligence/internal/core/domain"
	"github.com/sarbdeol/bi-market-intelligence/internal/core/port"
	usecases_port "github.com/sarbdeol/bi-market-intelligence/internal/core/port/usecases_port"
)

// CheckAlertsUseCase прогоняет правила по последней метрике каждого района.
// Берутся сохраненные значения метрики, а не пересчитанные.
type CheckAlertsUseCase struct {
	metrics   port.MetricRepositoryPort
	evaluator *EvaluateAlertsUseCase
}

var _ usecases_port.CheckAlertsPort = (*CheckAlertsUseCase)(nil)

func NewCheckAlertsUseCase(metrics port.MetricRepositoryPort, evaluator *EvaluateAlertsUseCase) *CheckAlertsUseCase {
	return &CheckAlertsUseCase{metrics: metrics, evaluator: evaluator}
}

func (uc *CheckAlertsUseCase) Execute(ctx context.Context) (*domain.AlertCheckSummary, error) {
	logger := contextkeys.LoggerFromContext(ctx)
	ucLogger := logger.WithFields(port.Fields{"use_case": "CheckAlertsUseCase"})
	ucLogger.Info("Use case started", nil)

	latest, err := uc.metrics.ListLatestPerArea(ctx)
	if err != nil {
		ucLogger.Error("Failed to load latest metrics", err, nil)
		return nil, fmt.Errorf("failed to load latest metrics: %w", err)
	}

	summary := &domain.AlertCheckSummary{}
	for i := range latest {
		m := &latest[i]
		raised, suppressed, err := uc.evaluator.evaluate(ctx, m.Area, domain.BundleFromMetric(m))
		summary.AreasChecked++
		summary.Raised += len(raised)
		summary.Suppressed += suppressed
		if err != nil {
			ucLogger.Error("Failed to evaluate area alerts", err, port.Fields{"area": m.Area})
		}
	}

	ucLogger.Info("Use case finished", port.Fields{
		"areas_checked": summary.AreasChecked,
		"raised":        summary.Raised,
		"suppressed":    summary.Suppressed,
	})
	return summary, nil
}
