package domain

import (
	"testing"
	"time"
)

func TestBuildAreaMetricWithPrevious(t *testing.T) {
	now := time.Date(2026, 3, 10, 12, 0, 0, 0, time.UTC)
	ppa := 1500.0
	in := AggregationInput{
		Area: "Dubai Marina",
		Active: []ActiveListingSnapshot{
			{Price: 600, FirstSeen: now.Add(-2 * time.Hour), PricePerUnitArea: &ppa},
			{Price: 100, FirstSeen: now.Add(-72 * time.Hour)},
			{Price: 200, FirstSeen: now.Add(-25 * time.Hour)},
		},
		RemovedCount: 4,
		Previous:     &AreaMetric{AvgPrice: 250, NewListingsCount: 2},
		AreaCapacity: 500,
		Now:          now,
	}

	m, ok := BuildAreaMetric(in)
	if !ok {
		t.Fatal("expected metric to be produced")
	}
	if !almostEqual(m.AvgPrice, 300) || !almostEqual(m.MedianPrice, 200) {
		t.Errorf("unexpected avg/median %v/%v", m.AvgPrice, m.MedianPrice)
	}
	if m.MinPrice != 100 || m.MaxPrice != 600 {
		t.Errorf("unexpected min/max %d/%d", m.MinPrice, m.MaxPrice)
	}
	if m.AvgPricePerUnitArea == nil || !almostEqual(*m.AvgPricePerUnitArea, 1500) {
		t.Errorf("price per unit area must average only present values, got %v", m.AvgPricePerUnitArea)
	}
	if m.NewListingsCount != 1 {
		t.Errorf("expected 1 new listing in trailing 24h, got %d", m.NewListingsCount)
	}
	if m.TotalActiveListings != 3 || m.RemovedListingsCount != 4 {
		t.Errorf("unexpected counts active=%d removed=%d", m.TotalActiveListings, m.RemovedListingsCount)
	}
	if !almostEqual(m.PriceChangePct, 20) {
		t.Errorf("expected +20%% price change, got %v", m.PriceChangePct)
	}
	if !almostEqual(m.VelocityRatio, 0.5) {
		t.Errorf("expected velocity 0.5, got %v", m.VelocityRatio)
	}
	if !almostEqual(m.HeatIndex, 59.9) {
		t.Errorf("expected heat index 59.9, got %v", m.HeatIndex)
	}
	if !m.MetricDate.Equal(time.Date(2026, 3, 10, 0, 0, 0, 0, time.UTC)) {
		t.Errorf("metric date must be the UTC day bucket, got %v", m.MetricDate)
	}
}

func TestBuildAreaMetricWithoutPrevious(t *testing.T) {
	now := time.Date(2026, 3, 10, 12, 0, 0, 0, time.UTC)
	m, ok := BuildAreaMetric(AggregationInput{
		Area:   "JLT",
		Active: []ActiveListingSnapshot{{Price: 100, FirstSeen: now}, {Price: 300, FirstSeen: now}},
		Now:    now,
	})
	if !ok {
		t.Fatal("expected metric")
	}
	if m.PriceChangePct != 0 || m.VelocityRatio != 1.0 {
		t.Errorf("without history expected pct=0 velocity=1.0, got %v/%v", m.PriceChangePct, m.VelocityRatio)
	}
	if !almostEqual(m.MedianPrice, 200) {
		t.Errorf("expected even-length median 200, got %v", m.MedianPrice)
	}
	if m.AvgPricePerUnitArea != nil {
		t.Error("no price per unit area values means nil average")
	}
}

func TestBuildAreaMetricPreviousWithZeroNewListings(t *testing.T) {
	now := time.Date(2026, 3, 10, 12, 0, 0, 0, time.UTC)
	m, _ := BuildAreaMetric(AggregationInput{
		Area:     "JLT",
		Active:   []ActiveListingSnapshot{{Price: 100, FirstSeen: now}, {Price: 100, FirstSeen: now.Add(-time.Hour)}, {Price: 100, FirstSeen: now.Add(-48 * time.Hour)}},
		Previous: &AreaMetric{AvgPrice: 0, NewListingsCount: 0},
		Now:      now,
	})
	if !almostEqual(m.VelocityRatio, 2.0) {
		t.Errorf("previous count must be floored at 1, got velocity %v", m.VelocityRatio)
	}
	if m.PriceChangePct != 0 {
		t.Errorf("zero previous average must give 0%%, got %v", m.PriceChangePct)
	}
}

func TestBuildAreaMetricSkipsEmptyArea(t *testing.T) {
	if m, ok := BuildAreaMetric(AggregationInput{Area: "Empty", Now: time.Now()}); ok || m != nil {
		t.Fatal("area without active listings must not produce a metric")
	}
}

func TestStdDev(t *testing.T) {
	if got := StdDev([]int64{2, 4, 4, 4, 5, 5, 7, 9}); !almostEqual(round2(got), 2.14) {
		t.Errorf("unexpected sample std dev %v", got)
	}
	if StdDev([]int64{42}) != 0 {
		t.Error("single value std dev must be 0")
	}
}

func TestBuildAreaMetricThresholdsUseUnroundedValues(t *testing.T) {
	now := time.Date(2026, 3, 10, 12, 0, 0, 0, time.UTC)
	active := make([]ActiveListingSnapshot, 1999)
	for i := range active {
		active[i] = ActiveListingSnapshot{Price: 1_049_960, FirstSeen: now.Add(-time.Hour)}
	}
	m, ok := BuildAreaMetric(AggregationInput{
		Area:     "Business Bay",
		Active:   active,
		Previous: &AreaMetric{AvgPrice: 1_000_000, NewListingsCount: 1333},
		Now:      now,
	})
	if !ok {
		t.Fatal("expected metric")
	}
	if m.VelocityRatio >= 1.5 || m.PriceChangePct >= 5 {
		t.Fatalf("stored values must stay unrounded, got velocity=%v pct=%v", m.VelocityRatio, m.PriceChangePct)
	}

	for _, a := range EvaluateAlerts(m.Area, BundleFromMetric(m), DefaultAlertThresholds(), now) {
		if a.AlertType == AlertVelocitySpike || a.AlertType == AlertPriceSurge {
			t.Errorf("unexpected %s alert with value %v", a.AlertType, a.MetricValue)
		}
	}

	p := TrendPointFromMetric(m)
	if p.VelocityRatio != 1.5 {
		t.Errorf("read model rounds velocity to 2 places, got %v", p.VelocityRatio)
	}
}
