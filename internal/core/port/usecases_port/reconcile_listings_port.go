package usecases_port

import (
	"context"

	"github.com/sarbdeol/bi-market-intelligence/internal/core/domain"
)

// ReconcileListingsPort - сверка одной единицы (источник × район)
type ReconcileListingsPort interface {
	Execute(ctx context.Context, source *domain.Source, area, sourceURL string, observed []domain.ObservedListing) (*domain.CollectionRun, error)
	// ExecuteForSource - то же, но источник ищется по имени (для входящих событий)
	ExecuteForSource(ctx context.Context, sourceName, area, sourceURL string, observed []domain.ObservedListing) (*domain.CollectionRun, error)
	// ExecuteWithFetch открывает прогон до получения данных, чтобы ошибки сбора тоже попали в аудит
	ExecuteWithFetch(ctx context.Context, source *domain.Source, area, sourceURL string, fetch FetchFunc) (*domain.CollectionRun, error)
}

// FetchFunc - отложенное получение наблюдений единицы. Ошибка фиксируется в прогоне.
type FetchFunc func(ctx context.Context) ([]domain.ObservedListing, error)
