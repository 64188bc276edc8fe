package domain

import (
	"fmt"
	"math"
	"time"

	"github.com/google/uuid"
)

// AlertType - тип рыночного события
type AlertType string

const (
	AlertPriceSurge    AlertType = "PRICE_SURGE"
	AlertPriceDrop     AlertType = "PRICE_DROP"
	AlertVelocitySpike AlertType = "VELOCITY_SPIKE"
	AlertHighHeatIndex AlertType = "HIGH_HEAT_INDEX"
	AlertNewCompetitor AlertType = "NEW_COMPETITOR"
	AlertListingFlood  AlertType = "LISTING_FLOOD"
)

// AlertSeverity - важность алерта
type AlertSeverity string

const (
	SeverityInfo     AlertSeverity = "INFO"
	SeverityWarning  AlertSeverity = "WARNING"
	SeverityCritical AlertSeverity = "CRITICAL"
)

// ParseSeverity возвращает false для неизвестных значений
func ParseSeverity(raw string) (AlertSeverity, bool) {
	switch s := AlertSeverity(raw); s {
	case SeverityInfo, SeverityWarning, SeverityCritical:
		return s, true
	}
	return "", false
}

// CriticalPriceChangePct - от этого значения изменение цены считается критическим
const CriticalPriceChangePct = 10.0

// Alert - сработавшее правило
type Alert struct {
	ID             uuid.UUID     `json:"id"`
	AlertType      AlertType     `json:"alert_type"`
	Severity       AlertSeverity `json:"severity"`
	Area           string        `json:"area,omitempty"`
	SourceID       *uuid.UUID    `json:"source_id,omitempty"`
	Title          string        `json:"title"`
	Description    string        `json:"description"`
	MetricValue    float64       `json:"metric_value"`
	ThresholdValue float64       `json:"threshold_value"`
	Acknowledged   bool          `json:"acknowledged"`
	TriggeredAt    time.Time     `json:"triggered_at"`
}

// AlertThresholds - настраиваемые пороги правил
type AlertThresholds struct {
	PriceChangePct float64
	VelocitySpike  float64
	HeatIndexHigh  float64
}

// DefaultAlertThresholds - значения по умолчанию
func DefaultAlertThresholds() AlertThresholds {
	return AlertThresholds{
		PriceChangePct: 5.0,
		VelocitySpike:  1.5,
		HeatIndexHigh:  75.0,
	}
}

// MetricsBundle - входные значения для правил. nil означает "значения нет".
type MetricsBundle struct {
	PriceChangePct *float64
	VelocityRatio  *float64
	HeatIndex      *float64
}

// BundleFromMetric собирает набор значений из сохраненной метрики
func BundleFromMetric(m *AreaMetric) MetricsBundle {
	price := m.PriceChangePct
	velocity := m.VelocityRatio
	heat := m.HeatIndex
	return MetricsBundle{PriceChangePct: &price, VelocityRatio: &velocity, HeatIndex: &heat}
}

// EvaluateAlerts проверяет три независимых правила. Каждое может сработать отдельно.
func EvaluateAlerts(area string, bundle MetricsBundle, th AlertThresholds, now time.Time) []*Alert {
	var alerts []*Alert

	if bundle.PriceChangePct != nil {
		pct := *bundle.PriceChangePct
		if math.Abs(pct) >= th.PriceChangePct {
			alertType, word := AlertPriceSurge, "Surge"
			if pct < 0 {
				alertType, word = AlertPriceDrop, "Drop"
			}
			severity := SeverityWarning
			if math.Abs(pct) >= CriticalPriceChangePct {
				severity = SeverityCritical
			}
			alerts = append(alerts, newAlert(alertType, severity, area,
				fmt.Sprintf("Price %s in %s", word, area),
				fmt.Sprintf("Average price in %s changed by %+.1f%% vs previous period.", area, pct),
				pct, th.PriceChangePct, now))
		}
	}

	if bundle.VelocityRatio != nil && *bundle.VelocityRatio >= th.VelocitySpike {
		v := *bundle.VelocityRatio
		alerts = append(alerts, newAlert(AlertVelocitySpike, SeverityWarning, area,
			fmt.Sprintf("Listing Velocity Spike in %s", area),
			fmt.Sprintf("New listings appearing %.1f× faster than the previous period.", v),
			v, th.VelocitySpike, now))
	}

	if bundle.HeatIndex != nil && *bundle.HeatIndex >= th.HeatIndexHigh {
		h := *bundle.HeatIndex
		alerts = append(alerts, newAlert(AlertHighHeatIndex, SeverityWarning, area,
			fmt.Sprintf("High Market Heat Index: %s", area),
			fmt.Sprintf("Market heat index reached %.1f/100, market is HOT.", h),
			h, th.HeatIndexHigh, now))
	}

	return alerts
}

func newAlert(t AlertType, s AlertSeverity, area, title, description string, value, threshold float64, now time.Time) *Alert {
	return &Alert{
		ID:             uuid.New(),
		AlertType:      t,
		Severity:       s,
		Area:           area,
		Title:          title,
		Description:    description,
		MetricValue:    value,
		ThresholdValue: threshold,
		TriggeredAt:    now,
	}
}

// NewCompetitorAlert - информационный алерт о новом источнике в реестре
func NewCompetitorAlert(source *Source, now time.Time) *Alert {
	a := newAlert(AlertNewCompetitor, SeverityInfo, "",
		fmt.Sprintf("New Competitor Tracked: %s", source.Name),
		fmt.Sprintf("Source %s (%s) was added to the collection registry.", source.Name, source.Website),
		0, 0, now)
	id := source.ID
	a.SourceID = &id
	return a
}
