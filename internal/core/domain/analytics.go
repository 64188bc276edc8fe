package domain

import (
	"sort"
	"time"

	"github.com/google/uuid"
)

// VelocityTrend - словесная оценка динамики предложения
type VelocityTrend string

const (
	TrendAccelerating VelocityTrend = "ACCELERATING"
	TrendStable       VelocityTrend = "STABLE"
	TrendSlowing      VelocityTrend = "SLOWING"
)

// TrendForRatio: >1.2 ускорение, <0.8 замедление
func TrendForRatio(ratio float64) VelocityTrend {
	switch {
	case ratio > 1.2:
		return TrendAccelerating
	case ratio < 0.8:
		return TrendSlowing
	default:
		return TrendStable
	}
}

// PriceStatsQuery - параметры запроса ценовой статистики
type PriceStatsQuery struct {
	Area         string
	PropertyType *PropertyType
	Days         int
}

// PriceStats - ценовая статистика по живым объявлениям
type PriceStats struct {
	Area                string        `json:"area"`
	PropertyType        *PropertyType `json:"property_type,omitempty"`
	ListingCount        int           `json:"listing_count"`
	AvgPrice            float64       `json:"avg_price"`
	MedianPrice         float64       `json:"median_price"`
	MinPrice            int64         `json:"min_price"`
	MaxPrice            int64         `json:"max_price"`
	AvgPricePerUnitArea *float64      `json:"avg_price_per_sqft,omitempty"`
	PriceStdDev         float64       `json:"price_std_dev"`
	PeriodDays          int           `json:"period_days"`
}

// BuildPriceStats считает статистику по выборке цен. nil, если данных нет.
func BuildPriceStats(q PriceStatsQuery, prices []int64, pricesPerUnitArea []float64) *PriceStats {
	if len(prices) == 0 {
		return nil
	}
	sorted := append([]int64(nil), prices...)
	sort.Slice(sorted, func(i, j int) bool { return sorted[i] < sorted[j] })

	var sum float64
	for _, p := range sorted {
		sum += float64(p)
	}
	stats := &PriceStats{
		Area:         q.Area,
		PropertyType: q.PropertyType,
		ListingCount: len(sorted),
		AvgPrice:     round2(sum / float64(len(sorted))),
		MedianPrice:  Median(sorted),
		MinPrice:     sorted[0],
		MaxPrice:     sorted[len(sorted)-1],
		PriceStdDev:  round2(StdDev(sorted)),
		PeriodDays:   q.Days,
	}
	if len(pricesPerUnitArea) > 0 {
		var ppaSum float64
		for _, v := range pricesPerUnitArea {
			ppaSum += v
		}
		avg := round2(ppaSum / float64(len(pricesPerUnitArea)))
		stats.AvgPricePerUnitArea = &avg
	}
	return stats
}

// VelocityStats - скорость появления новых объявлений
type VelocityStats struct {
	Area           string        `json:"area"`
	PeriodDays     int           `json:"period_days"`
	NewInPeriod    int           `json:"new_listings_period"`
	DailyAvgPeriod float64       `json:"daily_avg_period"`
	DailyAvg30d    float64       `json:"daily_avg_30d"`
	VelocityRatio  float64       `json:"velocity_ratio"`
	Trend          VelocityTrend `json:"trend"`
}

// BuildVelocityStats сравнивает среднесуточный приток за период с 30-дневным
func BuildVelocityStats(area string, days, newInPeriod, newIn30d int) VelocityStats {
	if days <= 0 {
		days = 7
	}
	dailyPeriod := float64(newInPeriod) / float64(days)
	daily30 := float64(newIn30d) / 30
	ratio := 1.0
	if daily30 > 0 {
		ratio = dailyPeriod / daily30
	}
	return VelocityStats{
		Area:           area,
		PeriodDays:     days,
		NewInPeriod:    newInPeriod,
		DailyAvgPeriod: round2(dailyPeriod),
		DailyAvg30d:    round2(daily30),
		VelocityRatio:  round2(ratio),
		Trend:          TrendForRatio(ratio),
	}
}

// HeatMapEntry - последняя метрика района для тепловой карты
type HeatMapEntry struct {
	Area        string    `json:"area"`
	HeatIndex   float64   `json:"heat_index"`
	Band        HeatBand  `json:"band"`
	AvgPrice    float64   `json:"avg_price"`
	NewListings int       `json:"new_listings"`
	TotalActive int       `json:"total_active"`
	MetricDate  time.Time `json:"metric_date"`
}

// HeatMapEntryFromMetric проецирует метрику в элемент карты
func HeatMapEntryFromMetric(m *AreaMetric) HeatMapEntry {
	return HeatMapEntry{
		Area:        m.Area,
		HeatIndex:   m.HeatIndex,
		Band:        BandFor(m.HeatIndex),
		AvgPrice:    round2(m.AvgPrice),
		NewListings: m.NewListingsCount,
		TotalActive: m.TotalActiveListings,
		MetricDate:  m.MetricDate,
	}
}

// TrendPoint - точка исторического ряда
type TrendPoint struct {
	Date                time.Time `json:"date"`
	AvgPrice            float64   `json:"avg_price"`
	MedianPrice         float64   `json:"median_price"`
	AvgPricePerUnitArea *float64  `json:"avg_price_per_sqft,omitempty"`
	NewListings         int       `json:"new_listings"`
	TotalActive         int       `json:"total_active"`
	RemovedListings     int       `json:"removed_listings"`
	VelocityRatio       float64   `json:"velocity_ratio"`
	HeatIndex           float64   `json:"heat_index"`
}

// TrendPointFromMetric проецирует метрику в точку ряда
func TrendPointFromMetric(m *AreaMetric) TrendPoint {
	var ppa *float64
	if m.AvgPricePerUnitArea != nil {
		v := round2(*m.AvgPricePerUnitArea)
		ppa = &v
	}
	return TrendPoint{
		Date:                m.MetricDate,
		AvgPrice:            round2(m.AvgPrice),
		MedianPrice:         m.MedianPrice,
		AvgPricePerUnitArea: ppa,
		NewListings:         m.NewListingsCount,
		TotalActive:         m.TotalActiveListings,
		RemovedListings:     m.RemovedListingsCount,
		VelocityRatio:       round2(m.VelocityRatio),
		HeatIndex:           m.HeatIndex,
	}
}

// CompetitorStats - срез по одному конкуренту
type CompetitorStats struct {
	SourceID            uuid.UUID `json:"source_id"`
	Name                string    `json:"name"`
	ListingCount        int       `json:"listing_count"`
	AvgPrice            float64   `json:"avg_price"`
	AvgPricePerUnitArea *float64  `json:"avg_price_per_sqft,omitempty"`
}

// Overview - сводка для дашборда
type Overview struct {
	TotalActiveListings int     `json:"total_active_listings"`
	ActiveCompetitors   int     `json:"active_competitors"`
	UnreadAlerts        int     `json:"unread_alerts"`
	TrackedAreas        int     `json:"tracked_areas"`
	AvgPrice            float64 `json:"avg_price"`
	NewListings7d       int     `json:"new_listings_7d"`
}

// AlertFilter - фильтр списка алертов
type AlertFilter struct {
	UnreadOnly bool
	Area       string
	Severity   *AlertSeverity
	Limit      int
}

const (
	DefaultAlertLimit = 50
	MaxAlertLimit     = 200
)

// Normalize ограничивает лимит
func (f AlertFilter) Normalize() AlertFilter {
	if f.Limit <= 0 {
		f.Limit = DefaultAlertLimit
	}
	if f.Limit > MaxAlertLimit {
		f.Limit = MaxAlertLimit
	}
	return f
}
