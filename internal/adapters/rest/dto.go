package rest

import (
	"time"

	"github.com/sarbdeol/bi-market-intelligence/internal/core/domain"
)

// PriceTrendPointResponse - точка ряда цен
type PriceTrendPointResponse struct {
	Date         string   `json:"date"`
	AvgPrice     float64  `json:"avg_price"`
	MedianPrice  float64  `json:"median_price"`
	AvgPriceSqft *float64 `json:"avg_price_per_sqft,omitempty"`
	TotalActive  int      `json:"total_active"`
}

// VelocityTrendPointResponse - точка ряда притока объявлений
type VelocityTrendPointResponse struct {
	Date            string  `json:"date"`
	NewListings     int     `json:"new_listings"`
	RemovedListings int     `json:"removed_listings"`
	VelocityRatio   float64 `json:"velocity_ratio"`
	HeatIndex       float64 `json:"heat_index"`
}

type TrendResponse struct {
	Area   string      `json:"area"`
	Days   int         `json:"days"`
	Points interface{} `json:"points"`
}

type ListResponse struct {
	Count int         `json:"count"`
	Items interface{} `json:"items"`
}

type PipelineJobResponse struct {
	Job     string      `json:"job"`
	Status  string      `json:"status"`
	TraceID string      `json:"trace_id,omitempty"`
	Result  interface{} `json:"result,omitempty"`
}

const dateLayout = "2006-01-02"

func toPriceTrend(points []domain.TrendPoint) []PriceTrendPointResponse {
	out := make([]PriceTrendPointResponse, len(points))
	for i, p := range points {
		out[i] = PriceTrendPointResponse{
			Date:         p.Date.UTC().Format(dateLayout),
			AvgPrice:     p.AvgPrice,
			MedianPrice:  p.MedianPrice,
			AvgPriceSqft: p.AvgPricePerUnitArea,
			TotalActive:  p.TotalActive,
		}
	}
	return out
}

func toVelocityTrend(points []domain.TrendPoint) []VelocityTrendPointResponse {
	out := make([]VelocityTrendPointResponse, len(points))
	for i, p := range points {
		out[i] = VelocityTrendPointResponse{
			Date:            p.Date.UTC().Format(dateLayout),
			NewListings:     p.NewListings,
			RemovedListings: p.RemovedListings,
			VelocityRatio:   p.VelocityRatio,
			HeatIndex:       p.HeatIndex,
		}
	}
	return out
}

// emptyPriceStats - ответ, когда за период объявлений нет
func emptyPriceStats(area string, pt *domain.PropertyType, days int) domain.PriceStats {
	if days <= 0 {
		days = 30
	}
	return domain.PriceStats{Area: domain.NormalizeArea(area), PropertyType: pt, PeriodDays: days}
}

type HealthResponse struct {
	Status string    `json:"status"`
	Time   time.Time `json:"time"`
}
