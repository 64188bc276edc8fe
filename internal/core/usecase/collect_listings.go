package usecase

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/sarbdeol/bi-market-intelligence/internal/contextkeys"
	"github.com/sarbdeol/bi-market-intelligence/internal/core/domain"
	"github.com/sarbdeol/bi-market-intelligence/internal/core/port"
	usecases_port "github.com/sarbdeol/bi-market-intelligence/internal/core/port/usecases_port"
)

// CollectListingsUseCase обходит все активные источники реестра и их районы.
// Каждая единица независима: ошибка одной не прерывает остальные.
type CollectListingsUseCase struct {
	registry      port.SourceRegistryPort
	sources       port.SourceRepositoryPort
	reconciler    usecases_port.ReconcileListingsPort
	maxConcurrent int
}

var _ usecases_port.CollectListingsPort = (*CollectListingsUseCase)(nil)

func NewCollectListingsUseCase(
	registry port.SourceRegistryPort,
	sources port.SourceRepositoryPort,
	reconciler usecases_port.ReconcileListingsPort,
	maxConcurrent int,
) *CollectListingsUseCase {
	if maxConcurrent < 1 {
		maxConcurrent = 1
	}
	return &CollectListingsUseCase{
		registry:      registry,
		sources:       sources,
		reconciler:    reconciler,
		maxConcurrent: maxConcurrent,
	}
}

type collectionUnit struct {
	fetcher port.ListingSourcePort
	source  *domain.Source
	area    string
}

func (uc *CollectListingsUseCase) Execute(ctx context.Context) (*domain.CollectSummary, error) {
	logger := contextkeys.LoggerFromContext(ctx)
	ucLogger := logger.WithFields(port.Fields{"use_case": "CollectListingsUseCase"})
	ucLogger.Info("Use case started", nil)

	known, err := uc.sources.ListAll(ctx)
	if err != nil {
		ucLogger.Error("Failed to load sources", err, nil)
		return nil, fmt.Errorf("failed to load sources: %w", err)
	}
	byName := make(map[string]*domain.Source, len(known))
	for i := range known {
		byName[known[i].Name] = &known[i]
	}

	var units []collectionUnit
	for _, fetcher := range uc.registry.Sources() {
		source, ok := byName[fetcher.Name()]
		if !ok || !source.IsActive {
			ucLogger.Debug("Source is not active in storage, skipping", port.Fields{"source": fetcher.Name()})
			continue
		}
		for _, area := range fetcher.Areas() {
			units = append(units, collectionUnit{fetcher: fetcher, source: source, area: area})
		}
	}

	summary := &domain.CollectSummary{Units: len(units)}
	var mu sync.Mutex
	var wg sync.WaitGroup
	sem := make(chan struct{}, uc.maxConcurrent)

	for _, unit := range units {
		select {
		case <-ctx.Done():
			ucLogger.Warn("Collection cancelled before all units were started", nil)
			wg.Wait()
			return summary, ctx.Err()
		case sem <- struct{}{}:
		}

		wg.Add(1)
		go func(u collectionUnit) {
			defer wg.Done()
			defer func() { <-sem }()

			fetch := func(fetchCtx context.Context) ([]domain.ObservedListing, error) {
				return u.fetcher.Fetch(fetchCtx, u.area)
			}
			run, runErr := uc.reconciler.ExecuteWithFetch(ctx, u.source, u.area, u.fetcher.AreaURL(u.area), fetch)

			mu.Lock()
			defer mu.Unlock()
			switch {
			case errors.Is(runErr, domain.ErrUnitLocked):
				summary.Locked++
			case run == nil:
				summary.Failed++
			case run.Status == domain.RunBlocked:
				summary.Blocked++
			case runErr != nil:
				// запуск мог завершиться успешно, но не записаться
				summary.Failed++
			case run.Status == domain.RunSuccess:
				summary.Succeeded++
				summary.New += run.ListingsNew
				summary.Updated += run.ListingsUpd
			default:
				summary.Failed++
			}
		}(unit)
	}
	wg.Wait()

	ucLogger.Info("Use case finished", port.Fields{
		"units":     summary.Units,
		"succeeded": summary.Succeeded,
		"failed":    summary.Failed,
		"blocked":   summary.Blocked,
		"locked":    summary.Locked,
		"new":       summary.New,
		"updated":   summary.Updated,
	})
	return summary, nil
}
