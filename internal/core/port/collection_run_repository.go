package port

import (
	"context"
	"time"

	"github.com/sarbdeol/bi-market-intelligence/internal/core/domain"
)

// CollectionRunRepositoryPort - аудит прогонов сбора
type CollectionRunRepositoryPort interface {
	Create(ctx context.Context, run *domain.CollectionRun) error
	Update(ctx context.Context, run *domain.CollectionRun) error
	ListRecent(ctx context.Context, limit int) ([]domain.CollectionRun, error)
	DeleteOlderThan(ctx context.Context, cutoff time.Time) (int64, error)
}
