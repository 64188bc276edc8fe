package usecase

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/sarbdeol/bi-market-intelligence/internal/contextkeys"
	"github.com/sarbdeol/bi-market-intelligence/internal/core/domain"
	"github.com/sarbdeol/bi-market-intelligence/internal/core/port"
)

// SyncSourcesUseCase создает в хранилище источники, которые есть в реестре, но еще не сохранены.
// Для каждого нового источника поднимается информационный алерт NEW_COMPETITOR.
type SyncSourcesUseCase struct {
	registry port.SourceRegistryPort
	sources  port.SourceRepositoryPort
	alerts   *alertSink
	now      func() time.Time
}

func NewSyncSourcesUseCase(registry port.SourceRegistryPort, sources port.SourceRepositoryPort, alerts port.AlertRepositoryPort, publisher port.AlertPublisherPort) *SyncSourcesUseCase {
	return &SyncSourcesUseCase{
		registry: registry,
		sources:  sources,
		alerts:   newAlertSink(alerts, publisher),
		now:      time.Now,
	}
}

// Execute возвращает количество созданных источников
func (uc *SyncSourcesUseCase) Execute(ctx context.Context) (int, error) {
	logger := contextkeys.LoggerFromContext(ctx)
	ucLogger := logger.WithFields(port.Fields{"use_case": "SyncSourcesUseCase"})

	created := 0
	for _, fetcher := range uc.registry.Sources() {
		_, err := uc.sources.FindByName(ctx, fetcher.Name())
		if err == nil {
			continue
		}
		if !errors.Is(err, domain.ErrSourceNotFound) {
			return created, fmt.Errorf("failed to look up source %q: %w", fetcher.Name(), err)
		}

		source := domain.NewSource(fetcher.Name(), fetcher.Website(), fetcher.SourceType())
		if err := uc.sources.Create(ctx, source); err != nil {
			return created, fmt.Errorf("failed to create source %q: %w", fetcher.Name(), err)
		}
		created++
		ucLogger.Info("Source registered", port.Fields{"source": source.Name, "source_id": source.ID.String()})

		if err := uc.alerts.raise(ctx, domain.NewCompetitorAlert(source, uc.now().UTC())); err != nil {
			ucLogger.Error("Failed to raise new competitor alert", err, port.Fields{"source": source.Name})
		}
	}
	return created, nil
}
