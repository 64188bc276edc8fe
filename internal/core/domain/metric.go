package domain

import (
	"math"
	"sort"
	"time"

	"github.com/google/uuid"
)

// DefaultAggregationWindow - окно, в котором объявление считается новым
const DefaultAggregationWindow = 24 * time.Hour

// AreaMetric - дневной срез показателей района. Уникален по (район, тип, дата).
type AreaMetric struct {
	ID                   uuid.UUID     `json:"id"`
	Area                 string        `json:"area"`
	PropertyType         *PropertyType `json:"property_type,omitempty"`
	MetricDate           time.Time     `json:"metric_date"`
	AvgPrice             float64       `json:"avg_price"`
	MedianPrice          float64       `json:"median_price"`
	MinPrice             int64         `json:"min_price"`
	MaxPrice             int64         `json:"max_price"`
	AvgPricePerUnitArea  *float64      `json:"avg_price_per_sqft,omitempty"`
	NewListingsCount     int           `json:"new_listings_count"`
	TotalActiveListings  int           `json:"total_active_listings"`
	RemovedListingsCount int           `json:"removed_listings_count"`
	PriceChangePct       float64       `json:"price_change_pct"`
	VelocityRatio        float64       `json:"velocity_ratio"`
	HeatIndex            float64       `json:"heat_index"`
	ComputedAt           time.Time     `json:"computed_at"`
}

// ActiveListingSnapshot - минимальный срез активного объявления для агрегации
type ActiveListingSnapshot struct {
	Price            int64
	PricePerUnitArea *float64
	FirstSeen        time.Time
}

// AggregationInput - все, что нужно для расчета одной метрики
type AggregationInput struct {
	Area         string
	PropertyType *PropertyType
	Active       []ActiveListingSnapshot
	RemovedCount int
	Previous     *AreaMetric
	AreaCapacity int
	Window       time.Duration
	Now          time.Time
}

// MetricBucket возвращает дату-бакет (UTC, начало суток)
func MetricBucket(t time.Time) time.Time {
	u := t.UTC()
	return time.Date(u.Year(), u.Month(), u.Day(), 0, 0, 0, 0, time.UTC)
}

// BuildAreaMetric считает метрику района. Если активных объявлений нет,
// второй результат равен false и метрику записывать не нужно.
func BuildAreaMetric(in AggregationInput) (*AreaMetric, bool) {
	if len(in.Active) == 0 {
		return nil, false
	}
	window := in.Window
	if window <= 0 {
		window = DefaultAggregationWindow
	}
	windowStart := in.Now.Add(-window)

	prices := make([]int64, 0, len(in.Active))
	var sum float64
	var ppaSum float64
	var ppaCount int
	newCount := 0
	for _, l := range in.Active {
		prices = append(prices, l.Price)
		sum += float64(l.Price)
		if l.PricePerUnitArea != nil {
			ppaSum += *l.PricePerUnitArea
			ppaCount++
		}
		if l.FirstSeen.After(windowStart) && !l.FirstSeen.After(in.Now) {
			newCount++
		}
	}
	sort.Slice(prices, func(i, j int) bool { return prices[i] < prices[j] })

	avg := sum / float64(len(prices))

	m := &AreaMetric{
		ID:                   uuid.New(),
		Area:                 in.Area,
		PropertyType:         in.PropertyType,
		MetricDate:           MetricBucket(in.Now),
		AvgPrice:             avg,
		MedianPrice:          Median(prices),
		MinPrice:             prices[0],
		MaxPrice:             prices[len(prices)-1],
		NewListingsCount:     newCount,
		TotalActiveListings:  len(prices),
		RemovedListingsCount: in.RemovedCount,
		ComputedAt:           in.Now,
	}
	if ppaCount > 0 {
		ppa := ppaSum / float64(ppaCount)
		m.AvgPricePerUnitArea = &ppa
	}

	// пороги алертов и индекс считаются по неокругленным значениям,
	// округление только в проекциях для чтения
	m.PriceChangePct = 0
	m.VelocityRatio = 1.0
	if in.Previous != nil {
		if in.Previous.AvgPrice > 0 {
			m.PriceChangePct = (avg - in.Previous.AvgPrice) * 100 / in.Previous.AvgPrice
		}
		m.VelocityRatio = float64(newCount) / float64(max(in.Previous.NewListingsCount, 1))
	}

	m.HeatIndex = ScoreHeatIndex(m.VelocityRatio, m.PriceChangePct, m.TotalActiveListings, in.AreaCapacity)
	return m, true
}

// Median - медиана отсортированного среза
func Median(sorted []int64) float64 {
	n := len(sorted)
	if n == 0 {
		return 0
	}
	if n%2 == 1 {
		return float64(sorted[n/2])
	}
	return (float64(sorted[n/2-1]) + float64(sorted[n/2])) / 2
}

// StdDev - выборочное стандартное отклонение, 0 для менее чем двух значений
func StdDev(values []int64) float64 {
	if len(values) < 2 {
		return 0
	}
	var mean float64
	for _, v := range values {
		mean += float64(v)
	}
	mean /= float64(len(values))
	var sq float64
	for _, v := range values {
		d := float64(v) - mean
		sq += d * d
	}
	return math.Sqrt(sq / float64(len(values)-1))
}
