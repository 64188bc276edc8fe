package usecase

import (
	"context"

	"github.com/sarbdeol/bi-market-intelligence/internal/core/domain"
	"github.com/sarbdeol/bi-market-intelligence/internal/core/port"
)

const (
	defaultRunsLimit = 20
	maxRunsLimit     = 200
)

type ListSourcesUseCase struct {
	sources port.SourceRepositoryPort
}

func NewListSourcesUseCase(sources port.SourceRepositoryPort) *ListSourcesUseCase {
	return &ListSourcesUseCase{sources: sources}
}

func (uc *ListSourcesUseCase) Execute(ctx context.Context) ([]domain.Source, error) {
	return uc.sources.ListAll(ctx)
}

type ListCollectionRunsUseCase struct {
	runs port.CollectionRunRepositoryPort
}

func NewListCollectionRunsUseCase(runs port.CollectionRunRepositoryPort) *ListCollectionRunsUseCase {
	return &ListCollectionRunsUseCase{runs: runs}
}

// Execute - последние прогоны, новые первыми
func (uc *ListCollectionRunsUseCase) Execute(ctx context.Context, limit int) ([]domain.CollectionRun, error) {
	if limit <= 0 {
		limit = defaultRunsLimit
	}
	if limit > maxRunsLimit {
		limit = maxRunsLimit
	}
	return uc.runs.ListRecent(ctx, limit)
}
