package port

import (
	"context"

	"github.com/google/uuid"
	"github.com/sarbdeol/bi-market-intelligence/internal/core/domain"
)

// AlertRepositoryPort - хранилище алертов
type AlertRepositoryPort interface {
	Save(ctx context.Context, alert *domain.Alert) error
	HasOpen(ctx context.Context, area string, alertType domain.AlertType) (bool, error)
	List(ctx context.Context, filter domain.AlertFilter) ([]domain.Alert, error)
	Acknowledge(ctx context.Context, id uuid.UUID) (*domain.Alert, error)
}

// AlertPublisherPort - исходящий канал уведомлений об алертах
type AlertPublisherPort interface {
	PublishAlert(ctx context.Context, alert *domain.Alert) error
}
