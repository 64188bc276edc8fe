package domain

import (
	"strings"
	"testing"
	"time"
)

func ptr(v float64) *float64 { return &v }

func TestEvaluateAlertsPriceRule(t *testing.T) {
	now := time.Now()
	th := DefaultAlertThresholds()

	alerts := EvaluateAlerts("Dubai Marina", MetricsBundle{PriceChangePct: ptr(12.0)}, th, now)
	if len(alerts) != 1 {
		t.Fatalf("expected 1 alert, got %d", len(alerts))
	}
	a := alerts[0]
	if a.AlertType != AlertPriceSurge || a.Severity != SeverityCritical {
		t.Errorf("expected PRICE_SURGE CRITICAL, got %s %s", a.AlertType, a.Severity)
	}
	if a.MetricValue != 12.0 || a.ThresholdValue != 5.0 {
		t.Errorf("unexpected values %v/%v", a.MetricValue, a.ThresholdValue)
	}
	if !strings.Contains(a.Title, "Dubai Marina") || !strings.Contains(a.Description, "+12.0%") {
		t.Errorf("unexpected text %q / %q", a.Title, a.Description)
	}

	alerts = EvaluateAlerts("JLT", MetricsBundle{PriceChangePct: ptr(-6)}, th, now)
	if len(alerts) != 1 || alerts[0].AlertType != AlertPriceDrop || alerts[0].Severity != SeverityWarning {
		t.Fatalf("expected PRICE_DROP WARNING, got %+v", alerts)
	}

	if got := EvaluateAlerts("JLT", MetricsBundle{PriceChangePct: ptr(4.99)}, th, now); len(got) != 0 {
		t.Errorf("4.99%% must not fire, got %d alerts", len(got))
	}
}

func TestEvaluateAlertsVelocityBoundary(t *testing.T) {
	th := DefaultAlertThresholds()
	if got := EvaluateAlerts("JVC", MetricsBundle{VelocityRatio: ptr(1.5)}, th, time.Now()); len(got) != 1 || got[0].AlertType != AlertVelocitySpike {
		t.Fatalf("velocity 1.5 must fire VELOCITY_SPIKE, got %+v", got)
	}
	if got := EvaluateAlerts("JVC", MetricsBundle{VelocityRatio: ptr(1.4999)}, th, time.Now()); len(got) != 0 {
		t.Fatalf("velocity 1.4999 must not fire, got %d", len(got))
	}
}

func TestEvaluateAlertsRulesAreIndependent(t *testing.T) {
	th := DefaultAlertThresholds()
	alerts := EvaluateAlerts("Downtown Dubai", MetricsBundle{
		PriceChangePct: ptr(6),
		VelocityRatio:  ptr(2),
		HeatIndex:      ptr(75),
	}, th, time.Now())
	if len(alerts) != 3 {
		t.Fatalf("expected all three rules to fire, got %d", len(alerts))
	}
	if alerts[2].AlertType != AlertHighHeatIndex {
		t.Errorf("expected HIGH_HEAT_INDEX last, got %s", alerts[2].AlertType)
	}

	if got := EvaluateAlerts("Downtown Dubai", MetricsBundle{}, th, time.Now()); len(got) != 0 {
		t.Errorf("empty bundle must not fire, got %d", len(got))
	}
}

func TestTruncateError(t *testing.T) {
	long := strings.Repeat("é", MaxRunErrorLength+100)
	got := TruncateError(long)
	if n := len([]rune(got)); n != MaxRunErrorLength {
		t.Errorf("expected %d runes, got %d", MaxRunErrorLength, n)
	}
	if TruncateError("short") != "short" {
		t.Error("short messages must be kept as is")
	}
}

func TestAlertFilterNormalize(t *testing.T) {
	if f := (AlertFilter{}).Normalize(); f.Limit != DefaultAlertLimit {
		t.Errorf("expected default limit, got %d", f.Limit)
	}
	if f := (AlertFilter{Limit: 1000}).Normalize(); f.Limit != MaxAlertLimit {
		t.Errorf("expected capped limit, got %d", f.Limit)
	}
}

func TestBuildVelocityStats(t *testing.T) {
	s := BuildVelocityStats("JVC", 7, 14, 30)
	if !almostEqual(s.VelocityRatio, 2.0) || s.Trend != TrendAccelerating {
		t.Errorf("expected ratio 2.0 ACCELERATING, got %v %s", s.VelocityRatio, s.Trend)
	}
	s = BuildVelocityStats("JVC", 7, 0, 0)
	if s.VelocityRatio != 1.0 || s.Trend != TrendStable {
		t.Errorf("without baseline expected 1.0 STABLE, got %v %s", s.VelocityRatio, s.Trend)
	}
}
