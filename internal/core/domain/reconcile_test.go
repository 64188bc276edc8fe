package domain

import (
	"testing"
	"time"

	"github.com/google/uuid"
)

func observed(id string, price int64, title string) ObservedListing {
	return ObservedListing{
		ExternalID:   id,
		Title:        title,
		Area:         "Dubai Marina",
		PropertyType: PropertyApartment,
		Price:        price,
	}
}

func TestPriceChangePct(t *testing.T) {
	cases := []struct {
		old, new int64
		want     float64
	}{
		{1_000_000, 1_050_000, 5.0},
		{1_000_000, 940_000, -6.0},
		{3, 4, 33.33},
		{0, 500, 0},
		{1_000, 1_000, 0},
	}
	for _, tc := range cases {
		if got := PriceChangePct(tc.old, tc.new); !almostEqual(got, tc.want) {
			t.Errorf("PriceChangePct(%d, %d) = %v, want %v", tc.old, tc.new, got, tc.want)
		}
	}
}

func TestStatusAfterPriceChange(t *testing.T) {
	cases := []struct {
		current ListingStatus
		pct     float64
		want    ListingStatus
	}{
		{StatusActive, 4.99, StatusActive},
		{StatusPriceReduced, 2, StatusPriceReduced},
		{StatusPriceReduced, 5, StatusActive},
		{StatusActive, -5, StatusPriceReduced},
		{StatusActive, -6, StatusPriceReduced},
	}
	for _, tc := range cases {
		if got := StatusAfterPriceChange(tc.current, tc.pct); got != tc.want {
			t.Errorf("StatusAfterPriceChange(%s, %v) = %s, want %s", tc.current, tc.pct, got, tc.want)
		}
	}
}

func TestDeduplicateObservedLastWins(t *testing.T) {
	got := DeduplicateObserved([]ObservedListing{
		observed("a", 100, "first"),
		observed("b", 200, "b"),
		observed("a", 150, "second"),
	})
	if len(got) != 2 {
		t.Fatalf("expected 2 unique records, got %d", len(got))
	}
	if got[0].ExternalID != "a" || got[0].Price != 150 {
		t.Errorf("expected last occurrence of a in first position, got %+v", got[0])
	}
	if got[1].ExternalID != "b" {
		t.Errorf("expected b second, got %s", got[1].ExternalID)
	}
}

func TestPlanReconciliation(t *testing.T) {
	now := time.Date(2026, 3, 10, 12, 0, 0, 0, time.UTC)
	earlier := now.Add(-48 * time.Hour)
	sourceID := uuid.New()

	stored := func(id string, price int64, title string, status ListingStatus) *ListingRecord {
		return &ListingRecord{
			ID:          uuid.New(),
			ExternalID:  id,
			SourceID:    sourceID,
			Title:       title,
			Price:       price,
			Status:      status,
			Fingerprint: Fingerprint(id, price, title),
			FirstSeen:   earlier,
			LastSeen:    earlier,
		}
	}
	existing := map[string]*ListingRecord{
		"same":    stored("same", 1_000_000, "Same", StatusActive),
		"up":      stored("up", 1_000_000, "Up", StatusPriceReduced),
		"down":    stored("down", 1_000_000, "Down", StatusActive),
		"retitle": stored("retitle", 500_000, "Old title", StatusActive),
		"gone":    stored("gone", 1_000_000, "Gone", StatusRemoved),
	}

	plan := PlanReconciliation(sourceID, []ObservedListing{
		observed("same", 1_000_000, "Same"),
		observed("up", 1_050_000, "Up"),
		observed("down", 940_000, "Down"),
		observed("retitle", 500_000, "New title"),
		observed("gone", 900_000, "Gone"),
		observed("fresh", 700_000, "Fresh"),
	}, existing, now)

	if plan.Found != 6 {
		t.Errorf("expected found=6, got %d", plan.Found)
	}
	if len(plan.Creates) != 1 || plan.Creates[0].ExternalID != "fresh" {
		t.Fatalf("expected one create for fresh, got %+v", plan.Creates)
	}
	if len(plan.Touches) != 1 || plan.Touches[0] != existing["same"].ID {
		t.Fatalf("expected one touch for unchanged record, got %v", plan.Touches)
	}
	if len(plan.Updates) != 4 {
		t.Fatalf("expected 4 updates, got %d", len(plan.Updates))
	}

	byID := make(map[string]ListingUpdate)
	for _, u := range plan.Updates {
		byID[u.Record.ExternalID] = u
	}

	up := byID["up"]
	if up.PriceChange == nil || !almostEqual(up.PriceChange.ChangePct, 5.0) {
		t.Fatalf("expected +5%% price change for up, got %+v", up.PriceChange)
	}
	if up.Record.Status != StatusActive {
		t.Errorf("expected ACTIVE after +5%%, got %s", up.Record.Status)
	}
	if up.PreviousFingerprint != existing["up"].Fingerprint {
		t.Error("previous fingerprint must be carried for optimistic update")
	}

	down := byID["down"]
	if down.PriceChange == nil || !almostEqual(down.PriceChange.ChangePct, -6.0) {
		t.Fatalf("expected -6%% price change for down, got %+v", down.PriceChange)
	}
	if down.Record.Status != StatusPriceReduced {
		t.Errorf("expected PRICE_REDUCED after -6%%, got %s", down.Record.Status)
	}

	retitle := byID["retitle"]
	if retitle.PriceChange != nil {
		t.Error("title-only change must not emit a price change event")
	}
	if retitle.Record.Title != "New title" || !retitle.Record.LastSeen.Equal(now) {
		t.Errorf("unexpected retitled record %+v", retitle.Record)
	}

	if byID["gone"].Record.Status != StatusRemoved {
		t.Errorf("removed listing must stay removed, got %s", byID["gone"].Record.Status)
	}

	if existing["up"].Price != 1_000_000 {
		t.Error("existing records must not be mutated")
	}
}

func TestPlanReconciliationIsIdempotent(t *testing.T) {
	now := time.Date(2026, 3, 10, 12, 0, 0, 0, time.UTC)
	sourceID := uuid.New()
	batch := []ObservedListing{observed("a", 100, "A"), observed("b", 200, "B")}

	first := PlanReconciliation(sourceID, batch, map[string]*ListingRecord{}, now)
	existing := make(map[string]*ListingRecord)
	for _, rec := range first.Creates {
		existing[rec.ExternalID] = rec
	}

	second := PlanReconciliation(sourceID, batch, existing, now.Add(time.Hour))
	if len(second.Creates) != 0 || len(second.Updates) != 0 {
		t.Fatalf("second pass should only touch, got %d creates %d updates", len(second.Creates), len(second.Updates))
	}
	if len(second.Touches) != 2 {
		t.Errorf("expected 2 touches, got %d", len(second.Touches))
	}
}

func TestStatusUsesUnroundedPriceChange(t *testing.T) {
	now := time.Date(2026, 3, 10, 12, 0, 0, 0, time.UTC)
	sourceID := uuid.New()
	rec := NewListingRecord(sourceID, observed("near", 1_000_000, "Near"), now.Add(-24*time.Hour))

	plan := PlanReconciliation(sourceID, []ObservedListing{observed("near", 950_040, "Near")},
		map[string]*ListingRecord{"near": rec}, now)
	if len(plan.Updates) != 1 || plan.Updates[0].PriceChange == nil {
		t.Fatalf("expected one price update, got %+v", plan.Updates)
	}
	u := plan.Updates[0]
	if u.Record.Status != StatusActive {
		t.Errorf("-4.996%% must not reduce status, got %s", u.Record.Status)
	}
	if !almostEqual(u.PriceChange.ChangePct, -5) {
		t.Errorf("history entry keeps the rounded value, got %v", u.PriceChange.ChangePct)
	}
	if got := RawPriceChangePct(1_000_000, 950_040); got <= -5 || got > -4.99 {
		t.Errorf("RawPriceChangePct = %v, want about -4.996", got)
	}
}
