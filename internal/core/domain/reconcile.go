package domain

import (
	"time"

	"github.com/google/uuid"
)

// ListingUpdate - изменение существующего объявления, у которого поменялся fingerprint
type ListingUpdate struct {
	Record              *ListingRecord
	PreviousFingerprint string
	PriceChange         *PriceChangeEvent
}

// ReconcilePlan - результат сверки партии наблюдений с сохраненным состоянием
type ReconcilePlan struct {
	Creates []*ListingRecord
	Touches []uuid.UUID
	Updates []ListingUpdate
	Found   int
}

// DeduplicateObserved оставляет по одному наблюдению на external_id.
// Побеждает последнее вхождение, порядок первых вхождений сохраняется.
func DeduplicateObserved(observed []ObservedListing) []ObservedListing {
	index := make(map[string]int, len(observed))
	result := make([]ObservedListing, 0, len(observed))
	for _, obs := range observed {
		if i, ok := index[obs.ExternalID]; ok {
			result[i] = obs
			continue
		}
		index[obs.ExternalID] = len(result)
		result = append(result, obs)
	}
	return result
}

// PlanReconciliation сверяет наблюдения одного источника с уже сохраненными записями.
// existing индексирован по external_id. Функция не изменяет existing.
func PlanReconciliation(sourceID uuid.UUID, observed []ObservedListing, existing map[string]*ListingRecord, now time.Time) ReconcilePlan {
	unique := DeduplicateObserved(observed)
	plan := ReconcilePlan{Found: len(unique)}

	for _, obs := range unique {
		current, ok := existing[obs.ExternalID]
		if !ok {
			plan.Creates = append(plan.Creates, NewListingRecord(sourceID, obs, now))
			continue
		}

		fingerprint := Fingerprint(obs.ExternalID, obs.Price, obs.Title)
		if fingerprint == current.Fingerprint {
			plan.Touches = append(plan.Touches, current.ID)
			continue
		}

		updated := *current
		updated.Title = obs.Title
		updated.Price = obs.Price
		updated.PricePerUnitArea = obs.PricePerUnitArea
		updated.Fingerprint = fingerprint
		if now.After(updated.LastSeen) {
			updated.LastSeen = now
		}

		change := ListingUpdate{Record: &updated, PreviousFingerprint: current.Fingerprint}
		if obs.Price != current.Price {
			change.PriceChange = &PriceChangeEvent{
				ID:         uuid.New(),
				ListingID:  current.ID,
				OldPrice:   current.Price,
				NewPrice:   obs.Price,
				ChangePct:  PriceChangePct(current.Price, obs.Price),
				RecordedAt: now,
			}
			// снятое с публикации объявление не возвращается в оборот
			if current.Status != StatusRemoved {
				updated.Status = StatusAfterPriceChange(current.Status, RawPriceChangePct(current.Price, obs.Price))
			}
		}
		plan.Updates = append(plan.Updates, change)
	}

	return plan
}
