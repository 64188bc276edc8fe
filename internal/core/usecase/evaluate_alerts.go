package usecase

import (
	"context"
	"fmt"
	"time"

	"github.com/sarbdeol/bi-market-intelligence/internal/contextkeys"
	"github.com/sarbdeol/bi-market-intelligence/internal/core/domain"
	"github.com/sarbdeol/bi-market-intelligence/internal/core/port"
	usecases_port "github.com/sarbdeol/bi-market-intelligence/internal/core/port/usecases_port"
)

// EvaluateAlertsUseCase применяет правила к набору метрик района,
// сохраняет сработавшие алерты и публикует их.
type EvaluateAlertsUseCase struct {
	sink         *alertSink
	alerts       port.AlertRepositoryPort
	thresholds   domain.AlertThresholds
	suppressOpen bool
	now          func() time.Time
}

var _ usecases_port.EvaluateAlertsPort = (*EvaluateAlertsUseCase)(nil)

// NewEvaluateAlertsUseCase: publisher может быть nil.
// При suppressOpen новый алерт не создается, пока открыт неподтвержденный того же типа в районе.
func NewEvaluateAlertsUseCase(alerts port.AlertRepositoryPort, publisher port.AlertPublisherPort, thresholds domain.AlertThresholds, suppressOpen bool) *EvaluateAlertsUseCase {
	return &EvaluateAlertsUseCase{
		sink:         newAlertSink(alerts, publisher),
		alerts:       alerts,
		thresholds:   thresholds,
		suppressOpen: suppressOpen,
		now:          time.Now,
	}
}

func (uc *EvaluateAlertsUseCase) Execute(ctx context.Context, area string, bundle domain.MetricsBundle) ([]*domain.Alert, error) {
	raised, _, err := uc.evaluate(ctx, area, bundle)
	return raised, err
}

func (uc *EvaluateAlertsUseCase) evaluate(ctx context.Context, area string, bundle domain.MetricsBundle) ([]*domain.Alert, int, error) {
	logger := contextkeys.LoggerFromContext(ctx).WithFields(port.Fields{"area": area})

	candidates := domain.EvaluateAlerts(area, bundle, uc.thresholds, uc.now().UTC())
	raised := make([]*domain.Alert, 0, len(candidates))
	suppressed := 0

	for _, alert := range candidates {
		if uc.suppressOpen {
			open, err := uc.alerts.HasOpen(ctx, area, alert.AlertType)
			if err != nil {
				return raised, suppressed, fmt.Errorf("failed to check open alerts: %w", err)
			}
			if open {
				suppressed++
				logger.Debug("Open alert of the same type exists, suppressed", port.Fields{"alert_type": alert.AlertType})
				continue
			}
		}
		if err := uc.sink.raise(ctx, alert); err != nil {
			return raised, suppressed, err
		}
		raised = append(raised, alert)
		logger.Info("Alert raised", port.Fields{
			"alert_type": alert.AlertType,
			"severity":   alert.Severity,
			"value":      alert.MetricValue,
		})
	}
	return raised, suppressed, nil
}
