package rabbitmq

import (
	"strings"
	"time"

	"github.com/sarbdeol/bi-market-intelligence/internal/core/domain"
)

// ScrapedListingsBatchDTO - контракт ScrapedListingsBatchEvent v1.
// Один батч - одна единица сверки (источник × район).
type ScrapedListingsBatchDTO struct {
	Source     string               `json:"source"`
	Area       string               `json:"area"`
	SourceURL  string               `json:"source_url,omitempty"`
	ObservedAt *time.Time           `json:"observed_at,omitempty"`
	Listings   []ObservedListingDTO `json:"listings"`
}

type ObservedListingDTO struct {
	ExternalID   string     `json:"external_id"`
	Title        string     `json:"title"`
	Area         string     `json:"area,omitempty"`
	SubArea      string     `json:"sub_area,omitempty"`
	PropertyType string     `json:"property_type"`
	Price        int64      `json:"price"`
	PricePerSqft *float64   `json:"price_per_sqft,omitempty"`
	Bedrooms     *int       `json:"bedrooms,omitempty"`
	Bathrooms    *int       `json:"bathrooms,omitempty"`
	SizeSqft     *float64   `json:"size_sqft,omitempty"`
	URL          string     `json:"url,omitempty"`
	ListedAt     *time.Time `json:"listed_at,omitempty"`
	Latitude     *float64   `json:"latitude,omitempty"`
	Longitude    *float64   `json:"longitude,omitempty"`
}

// PipelineTriggerDTO - контракт PipelineTriggerEvent v1
type PipelineTriggerDTO struct {
	Job         string     `json:"job"`
	RequestedBy string     `json:"requested_by,omitempty"`
	RequestedAt *time.Time `json:"requested_at,omitempty"`
}

// MarketAlertEventDTO - контракт MarketAlertEvent v1
type MarketAlertEventDTO struct {
	ID             string    `json:"id"`
	AlertType      string    `json:"alert_type"`
	Severity       string    `json:"severity"`
	Area           string    `json:"area,omitempty"`
	Title          string    `json:"title"`
	Description    string    `json:"description,omitempty"`
	MetricValue    float64   `json:"metric_value"`
	ThresholdValue float64   `json:"threshold_value"`
	TriggeredAt    time.Time `json:"triggered_at"`
}

func toObservedListings(batch ScrapedListingsBatchDTO) []domain.ObservedListing {
	out := make([]domain.ObservedListing, 0, len(batch.Listings))
	for _, l := range batch.Listings {
		area := l.Area
		if strings.TrimSpace(area) == "" {
			area = batch.Area
		}
		out = append(out, domain.ObservedListing{
			ExternalID:       l.ExternalID,
			Title:            l.Title,
			Area:             area,
			SubArea:          l.SubArea,
			PropertyType:     domain.ParsePropertyType(l.PropertyType),
			Price:            l.Price,
			PricePerUnitArea: l.PricePerSqft,
			Bedrooms:         l.Bedrooms,
			Bathrooms:        l.Bathrooms,
			Size:             l.SizeSqft,
			URL:              l.URL,
			ListedAt:         l.ListedAt,
			Latitude:         l.Latitude,
			Longitude:        l.Longitude,
		})
	}
	return out
}

func toAlertEventDTO(a *domain.Alert) MarketAlertEventDTO {
	return MarketAlertEventDTO{
		ID:             a.ID.String(),
		AlertType:      string(a.AlertType),
		Severity:       string(a.Severity),
		Area:           a.Area,
		Title:          a.Title,
		Description:    a.Description,
		MetricValue:    a.MetricValue,
		ThresholdValue: a.ThresholdValue,
		TriggeredAt:    a.TriggeredAt.UTC(),
	}
}
