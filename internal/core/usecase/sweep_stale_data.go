package usecase

import (
	"context"
	"fmt"
	"time"

	"github.com/sarbdeol/bi-market-intelligence/internal/contextkeys"
	"github.com/sarbdeol/bi-market-intelligence/internal/core/domain"
	"github.com/sarbdeol/bi-market-intelligence/internal/core/port"
	usecases_port "github.com/sarbdeol/bi-market-intelligence/internal/core/port/usecases_port"
)

const (
	DefaultListingStaleAfter = 14 * 24 * time.Hour
	DefaultRunRetention      = 30 * 24 * time.Hour
)

// SweepStaleDataUseCase снимает давно не виденные объявления и удаляет старые прогоны.
// Объявления не удаляются: только переводятся в REMOVED.
type SweepStaleDataUseCase struct {
	listings   port.ListingRepositoryPort
	runs       port.CollectionRunRepositoryPort
	staleAfter time.Duration
	retention  time.Duration
	now        func() time.Time
}

var _ usecases_port.SweepStaleDataPort = (*SweepStaleDataUseCase)(nil)

func NewSweepStaleDataUseCase(listings port.ListingRepositoryPort, runs port.CollectionRunRepositoryPort, staleAfter, retention time.Duration) *SweepStaleDataUseCase {
	if staleAfter <= 0 {
		staleAfter = DefaultListingStaleAfter
	}
	if retention <= 0 {
		retention = DefaultRunRetention
	}
	return &SweepStaleDataUseCase{
		listings:   listings,
		runs:       runs,
		staleAfter: staleAfter,
		retention:  retention,
		now:        time.Now,
	}
}

func (uc *SweepStaleDataUseCase) Execute(ctx context.Context) (*domain.SweepResult, error) {
	logger := contextkeys.LoggerFromContext(ctx)
	ucLogger := logger.WithFields(port.Fields{"use_case": "SweepStaleDataUseCase"})
	ucLogger.Info("Use case started", nil)

	now := uc.now().UTC()
	result := &domain.SweepResult{}

	removed, err := uc.listings.MarkStaleRemoved(ctx, now.Add(-uc.staleAfter), now)
	if err != nil {
		ucLogger.Error("Failed to mark stale listings", err, nil)
		return nil, fmt.Errorf("failed to mark stale listings: %w", err)
	}
	result.ListingsRemoved = removed

	deleted, err := uc.runs.DeleteOlderThan(ctx, now.Add(-uc.retention))
	if err != nil {
		ucLogger.Error("Failed to delete old collection runs", err, nil)
		return result, fmt.Errorf("failed to delete old collection runs: %w", err)
	}
	result.RunsDeleted = deleted

	ucLogger.Info("Use case finished", port.Fields{
		"listings_removed": result.ListingsRemoved,
		"runs_deleted":     result.RunsDeleted,
	})
	return result, nil
}
