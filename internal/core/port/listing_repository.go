package port

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/sarbdeol/bi-market-intelligence/internal/core/domain"
)

// ListingRepositoryPort - хранилище объявлений
type ListingRepositoryPort interface {
	// FindByExternalIDs возвращает сохраненные записи источника, индексированные по external_id
	FindByExternalIDs(ctx context.Context, sourceID uuid.UUID, externalIDs []string) (map[string]*domain.ListingRecord, error)
	// ApplyReconciliation применяет план одной транзакцией: либо весь, либо ничего
	ApplyReconciliation(ctx context.Context, plan *domain.ReconcilePlan, now time.Time) (domain.ReconcileResult, error)

	ListAreas(ctx context.Context) ([]string, error)
	ListActiveSnapshots(ctx context.Context, area string, propertyType *domain.PropertyType) ([]domain.ActiveListingSnapshot, error)
	CountRemovedSince(ctx context.Context, area string, since time.Time) (int, error)
	// MarkStaleRemoved переводит ACTIVE записи с last_seen < cutoff в REMOVED
	MarkStaleRemoved(ctx context.Context, cutoff, now time.Time) (int64, error)
}
