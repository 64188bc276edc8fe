package usecases_port

import (
	"context"

	"github.com/google/uuid"
	"github.com/sarbdeol/bi-market-intelligence/internal/core/domain"
)

type ListAlertsPort interface {
	Execute(ctx context.Context, filter domain.AlertFilter) ([]domain.Alert, error)
}

type AcknowledgeAlertPort interface {
	Execute(ctx context.Context, id uuid.UUID) (*domain.Alert, error)
}

type ListSourcesPort interface {
	Execute(ctx context.Context) ([]domain.Source, error)
}

type ListCollectionRunsPort interface {
	Execute(ctx context.Context, limit int) ([]domain.CollectionRun, error)
}
