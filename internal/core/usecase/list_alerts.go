package usecase

import (
	"context"

	"github.com/google/uuid"
	"github.com/sarbdeol/bi-market-intelligence/internal/contextkeys"
	"github.com/sarbdeol/bi-market-intelligence/internal/core/domain"
	"github.com/sarbdeol/bi-market-intelligence/internal/core/port"
)

type ListAlertsUseCase struct {
	alerts port.AlertRepositoryPort
}

func NewListAlertsUseCase(alerts port.AlertRepositoryPort) *ListAlertsUseCase {
	return &ListAlertsUseCase{alerts: alerts}
}

func (uc *ListAlertsUseCase) Execute(ctx context.Context, filter domain.AlertFilter) ([]domain.Alert, error) {
	filter = filter.Normalize()
	if filter.Area != "" {
		filter.Area = domain.NormalizeArea(filter.Area)
	}
	return uc.alerts.List(ctx, filter)
}

type AcknowledgeAlertUseCase struct {
	alerts port.AlertRepositoryPort
}

func NewAcknowledgeAlertUseCase(alerts port.AlertRepositoryPort) *AcknowledgeAlertUseCase {
	return &AcknowledgeAlertUseCase{alerts: alerts}
}

// Execute возвращает domain.ErrAlertNotFound для неизвестного id. Повторное подтверждение не ошибка.
func (uc *AcknowledgeAlertUseCase) Execute(ctx context.Context, id uuid.UUID) (*domain.Alert, error) {
	alert, err := uc.alerts.Acknowledge(ctx, id)
	if err != nil {
		return nil, err
	}
	contextkeys.LoggerFromContext(ctx).Info("Alert acknowledged", port.Fields{"alert_id": id.String()})
	return alert, nil
}
