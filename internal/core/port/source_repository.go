package port

import (
	"context"

	"github.com/sarbdeol/bi-market-intelligence/internal/core/domain"
)

// SourceRepositoryPort - справочник конкурентов
type SourceRepositoryPort interface {
	// FindByName возвращает domain.ErrSourceNotFound, если источника нет
	FindByName(ctx context.Context, name string) (*domain.Source, error)
	Create(ctx context.Context, source *domain.Source) error
	ListAll(ctx context.Context) ([]domain.Source, error)
}
