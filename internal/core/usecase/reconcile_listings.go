package usecase

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/sarbdeol/bi-market-intelligence/internal/contextkeys"
	"github.com/sarbdeol/bi-market-intelligence/internal/core/domain"
	"github.com/sarbdeol/bi-market-intelligence/internal/core/port"
	usecases_port "github.com/sarbdeol/bi-market-intelligence/internal/core/port/usecases_port"
)

const defaultUnitLockTTL = 10 * time.Minute

// ReconcileListingsUseCase сверяет партию наблюдений одной единицы (источник × район)
// с сохраненным состоянием и ведет аудит прогона.
type ReconcileListingsUseCase struct {
	listings port.ListingRepositoryPort
	runs     port.CollectionRunRepositoryPort
	sources  port.SourceRepositoryPort
	locker   port.UnitLockPort // может быть nil
	lockTTL  time.Duration
	validate *validator.Validate
	now      func() time.Time
}

var _ usecases_port.ReconcileListingsPort = (*ReconcileListingsUseCase)(nil)

func NewReconcileListingsUseCase(
	listings port.ListingRepositoryPort,
	runs port.CollectionRunRepositoryPort,
	sources port.SourceRepositoryPort,
	locker port.UnitLockPort,
	lockTTL time.Duration,
) *ReconcileListingsUseCase {
	if lockTTL <= 0 {
		lockTTL = defaultUnitLockTTL
	}
	return &ReconcileListingsUseCase{
		listings: listings,
		runs:     runs,
		sources:  sources,
		locker:   locker,
		lockTTL:  lockTTL,
		validate: validator.New(),
		now:      time.Now,
	}
}

// Execute сверяет уже полученные наблюдения
func (uc *ReconcileListingsUseCase) Execute(ctx context.Context, source *domain.Source, area, sourceURL string, observed []domain.ObservedListing) (*domain.CollectionRun, error) {
	return uc.ExecuteWithFetch(ctx, source, area, sourceURL, func(context.Context) ([]domain.ObservedListing, error) {
		return observed, nil
	})
}

// ExecuteForSource ищет источник по имени и выполняет сверку
func (uc *ReconcileListingsUseCase) ExecuteForSource(ctx context.Context, sourceName, area, sourceURL string, observed []domain.ObservedListing) (*domain.CollectionRun, error) {
	source, err := uc.sources.FindByName(ctx, sourceName)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve source %q: %w", sourceName, err)
	}
	if !source.IsActive {
		contextkeys.LoggerFromContext(ctx).Warn("Source is inactive, batch ignored", port.Fields{"source": sourceName})
		return nil, nil
	}
	return uc.Execute(ctx, source, area, sourceURL, observed)
}

// ExecuteWithFetch: прогон RUNNING -> получение данных -> сверка одной транзакцией -> SUCCESS.
// Любая ошибка переводит прогон в FAILED (или BLOCKED) с обрезанным текстом.
func (uc *ReconcileListingsUseCase) ExecuteWithFetch(ctx context.Context, source *domain.Source, area, sourceURL string, fetch usecases_port.FetchFunc) (*domain.CollectionRun, error) {
	area = domain.NormalizeArea(area)

	logger := contextkeys.LoggerFromContext(ctx)
	ucLogger := logger.WithFields(port.Fields{
		"use_case": "ReconcileListingsUseCase",
		"source":   source.Name,
		"area":     area,
	})
	ctx = contextkeys.ContextWithLogger(ctx, ucLogger)

	if uc.locker != nil {
		release, err := uc.locker.Acquire(ctx, domain.UnitKey(source.ID, area), uc.lockTTL)
		if err != nil {
			if errors.Is(err, domain.ErrUnitLocked) {
				ucLogger.Warn("Unit is already being reconciled, skipping", nil)
			}
			return nil, err
		}
		defer func() {
			if relErr := release(context.WithoutCancel(ctx)); relErr != nil {
				ucLogger.Warn("Failed to release unit lock", port.Fields{"error": relErr.Error()})
			}
		}()
	}

	run := domain.NewCollectionRun(source.ID, area, sourceURL, uc.now().UTC())
	if err := uc.runs.Create(ctx, run); err != nil {
		ucLogger.Error("Failed to create collection run", err, nil)
		return nil, fmt.Errorf("failed to create collection run: %w", err)
	}
	ucLogger.Info("Use case started", port.Fields{"run_id": run.ID.String()})

	observed, err := fetch(ctx)
	if err != nil {
		status := domain.RunFailed
		if errors.Is(err, domain.ErrSourceBlocked) {
			status = domain.RunBlocked
		}
		return uc.fail(ctx, run, status, fmt.Errorf("fetch failed: %w", err))
	}

	result, err := uc.reconcile(ctx, source, area, observed)
	if err != nil {
		return uc.fail(ctx, run, domain.RunFailed, err)
	}

	run.Succeed(len(observed), result.New, result.Updated, uc.now().UTC())
	if err := uc.runs.Update(ctx, run); err != nil {
		ucLogger.Error("Failed to finalize collection run", err, nil)
		return run, fmt.Errorf("failed to finalize collection run: %w", err)
	}

	ucLogger.Info("Use case finished", port.Fields{
		"found":   len(observed),
		"new":     result.New,
		"updated": result.Updated,
		"skipped": result.Skipped,
	})
	return run, nil
}

func (uc *ReconcileListingsUseCase) fail(ctx context.Context, run *domain.CollectionRun, status domain.RunStatus, cause error) (*domain.CollectionRun, error) {
	logger := contextkeys.LoggerFromContext(ctx)
	logger.Error("Reconciliation unit failed", cause, port.Fields{"status": status})

	run.Fail(status, cause, uc.now().UTC())
	// ctx может быть уже отменен, а прогон все равно нужно закрыть
	if err := uc.runs.Update(context.WithoutCancel(ctx), run); err != nil {
		logger.Error("Failed to record failed collection run", err, nil)
	}
	return run, cause
}

func (uc *ReconcileListingsUseCase) reconcile(ctx context.Context, source *domain.Source, area string, observed []domain.ObservedListing) (domain.ReconcileResult, error) {
	logger := contextkeys.LoggerFromContext(ctx)

	valid := make([]domain.ObservedListing, 0, len(observed))
	skipped := 0
	for _, obs := range observed {
		normalized, err := uc.normalize(obs, area)
		if err != nil {
			skipped++
			logger.Warn("Observed listing rejected", port.Fields{"external_id": obs.ExternalID, "error": err.Error()})
			continue
		}
		valid = append(valid, normalized)
	}
	if len(valid) == 0 {
		return domain.ReconcileResult{Found: len(observed), Skipped: skipped}, nil
	}

	ids := make([]string, 0, len(valid))
	for _, obs := range valid {
		ids = append(ids, obs.ExternalID)
	}
	existing, err := uc.listings.FindByExternalIDs(ctx, source.ID, ids)
	if err != nil {
		return domain.ReconcileResult{}, fmt.Errorf("failed to load existing listings: %w", err)
	}

	now := uc.now().UTC()
	plan := domain.PlanReconciliation(source.ID, valid, existing, now)
	logger.Debug("Reconciliation planned", port.Fields{
		"creates": len(plan.Creates),
		"touches": len(plan.Touches),
		"updates": len(plan.Updates),
	})

	result, err := uc.listings.ApplyReconciliation(ctx, &plan, now)
	if err != nil {
		return domain.ReconcileResult{}, fmt.Errorf("failed to apply reconciliation: %w", err)
	}
	result.Found = len(observed)
	result.Skipped = skipped
	return result, nil
}

// normalize приводит наблюдение к каноническому виду и валидирует его
func (uc *ReconcileListingsUseCase) normalize(obs domain.ObservedListing, unitArea string) (domain.ObservedListing, error) {
	if obs.Area == "" {
		obs.Area = unitArea
	} else {
		obs.Area = domain.NormalizeArea(obs.Area)
	}
	obs.SubArea = domain.NormalizeArea(obs.SubArea)
	obs.PropertyType = domain.ParsePropertyType(string(obs.PropertyType))

	if err := uc.validate.Struct(obs); err != nil {
		return obs, fmt.Errorf("%w: %v", domain.ErrInvalidListing, err)
	}
	return obs, nil
}
