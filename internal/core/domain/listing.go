package domain

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"regexp"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/mmcloughlin/geohash"
	"golang.org/x/text/cases"
	"golang.org/x/text/language"
)

// PropertyType - тип объекта недвижимости
type PropertyType string

const (
	PropertyVilla     PropertyType = "VILLA"
	PropertyApartment PropertyType = "APARTMENT"
	PropertyTownhouse PropertyType = "TOWNHOUSE"
	PropertyPenthouse PropertyType = "PENTHOUSE"
	PropertyDuplex    PropertyType = "DUPLEX"
)

// ParsePropertyType приводит произвольную строку к PropertyType.
// Неизвестные значения считаются квартирой.
func ParsePropertyType(raw string) PropertyType {
	switch strings.ToUpper(strings.TrimSpace(raw)) {
	case "VILLA", "HOUSE":
		return PropertyVilla
	case "TOWNHOUSE":
		return PropertyTownhouse
	case "PENTHOUSE":
		return PropertyPenthouse
	case "DUPLEX":
		return PropertyDuplex
	default:
		return PropertyApartment
	}
}

// IsValid проверяет, что тип входит в перечисление
func (p PropertyType) IsValid() bool {
	switch p {
	case PropertyVilla, PropertyApartment, PropertyTownhouse, PropertyPenthouse, PropertyDuplex:
		return true
	}
	return false
}

// ListingStatus - статус жизненного цикла объявления
type ListingStatus string

const (
	StatusActive       ListingStatus = "ACTIVE"
	StatusSold         ListingStatus = "SOLD"
	StatusRemoved      ListingStatus = "REMOVED"
	StatusPriceReduced ListingStatus = "PRICE_REDUCED"
)

// GeoCellPrecision - точность geohash для группировки на карте (~1.2km)
const GeoCellPrecision = 6

// ObservedListing - одно объявление в том виде, в каком его вернул сборщик
type ObservedListing struct {
	ExternalID       string       `json:"external_id" validate:"required,max=255"`
	Title            string       `json:"title" validate:"required,max=500"`
	Area             string       `json:"area" validate:"required,max=100"`
	SubArea          string       `json:"sub_area,omitempty" validate:"max=100"`
	PropertyType     PropertyType `json:"property_type" validate:"required,oneof=VILLA APARTMENT TOWNHOUSE PENTHOUSE DUPLEX"`
	Price            int64        `json:"price" validate:"gt=0"`
	PricePerUnitArea *float64     `json:"price_per_sqft,omitempty" validate:"omitempty,gt=0"`
	Bedrooms         *int         `json:"bedrooms,omitempty" validate:"omitempty,gte=0"`
	Bathrooms        *int         `json:"bathrooms,omitempty" validate:"omitempty,gte=0"`
	Size             *float64     `json:"size_sqft,omitempty" validate:"omitempty,gt=0"`
	URL              string       `json:"url,omitempty" validate:"omitempty,url"`
	ListedAt         *time.Time   `json:"listed_at,omitempty"`
	Latitude         *float64     `json:"latitude,omitempty" validate:"omitempty,latitude"`
	Longitude        *float64     `json:"longitude,omitempty" validate:"omitempty,longitude"`
}

// ListingRecord - сохраненное объявление. Ключ идентичности: (ExternalID, SourceID).
type ListingRecord struct {
	ID               uuid.UUID     `json:"id"`
	ExternalID       string        `json:"external_id"`
	SourceID         uuid.UUID     `json:"source_id"`
	Title            string        `json:"title"`
	Area             string        `json:"area"`
	SubArea          string        `json:"sub_area,omitempty"`
	PropertyType     PropertyType  `json:"property_type"`
	Status           ListingStatus `json:"status"`
	Price            int64         `json:"price"`
	PricePerUnitArea *float64      `json:"price_per_sqft,omitempty"`
	Bedrooms         *int          `json:"bedrooms,omitempty"`
	Bathrooms        *int          `json:"bathrooms,omitempty"`
	Size             *float64      `json:"size_sqft,omitempty"`
	URL              string        `json:"url,omitempty"`
	Latitude         *float64      `json:"latitude,omitempty"`
	Longitude        *float64      `json:"longitude,omitempty"`
	GeoCell          string        `json:"geo_cell,omitempty"`
	Fingerprint      string        `json:"content_hash"`
	ListedAt         *time.Time    `json:"listed_at,omitempty"`
	FirstSeen        time.Time     `json:"first_seen_at"`
	LastSeen         time.Time     `json:"last_seen_at"`
	RemovedAt        *time.Time    `json:"removed_at,omitempty"`
}

// fingerprintPayload - порядок полей фиксирован, поэтому JSON детерминирован
type fingerprintPayload struct {
	ID    string `json:"id"`
	Price int64  `json:"price"`
	Title string `json:"title"`
}

// Fingerprint считает sha256 по (external_id, price, title).
// Меняется тогда и только тогда, когда меняется цена или заголовок.
func Fingerprint(externalID string, price int64, title string) string {
	payload, _ := json.Marshal(fingerprintPayload{ID: externalID, Price: price, Title: title})
	sum := sha256.Sum256(payload)
	return hex.EncodeToString(sum[:])
}

// NewListingRecord создает запись для впервые увиденного объявления
func NewListingRecord(sourceID uuid.UUID, obs ObservedListing, now time.Time) *ListingRecord {
	firstSeen := now
	if obs.ListedAt != nil && !obs.ListedAt.IsZero() && obs.ListedAt.Before(now) {
		firstSeen = obs.ListedAt.UTC()
	}

	rec := &ListingRecord{
		ID:               uuid.New(),
		ExternalID:       obs.ExternalID,
		SourceID:         sourceID,
		Title:            obs.Title,
		Area:             obs.Area,
		SubArea:          obs.SubArea,
		PropertyType:     obs.PropertyType,
		Status:           StatusActive,
		Price:            obs.Price,
		PricePerUnitArea: obs.PricePerUnitArea,
		Bedrooms:         obs.Bedrooms,
		Bathrooms:        obs.Bathrooms,
		Size:             obs.Size,
		URL:              obs.URL,
		Latitude:         obs.Latitude,
		Longitude:        obs.Longitude,
		Fingerprint:      Fingerprint(obs.ExternalID, obs.Price, obs.Title),
		ListedAt:         obs.ListedAt,
		FirstSeen:        firstSeen,
		LastSeen:         now,
	}
	if obs.Latitude != nil && obs.Longitude != nil {
		rec.GeoCell = geohash.EncodeWithPrecision(*obs.Latitude, *obs.Longitude, GeoCellPrecision)
	}
	return rec
}

var (
	multiSpace  = regexp.MustCompile(`\s+`)
	areaAliases = map[string]string{
		"dubai marina":             "Dubai Marina",
		"marina":                   "Dubai Marina",
		"jvc":                      "Jumeirah Village Circle",
		"jumeirah village circle":  "Jumeirah Village Circle",
		"jbr":                      "Jumeirah Beach Residence",
		"downtown":                 "Downtown Dubai",
		"downtown dubai":           "Downtown Dubai",
		"palm jumeirah":            "Palm Jumeirah",
		"the palm":                 "Palm Jumeirah",
		"business bay":             "Business Bay",
		"difc":                     "DIFC",
		"jlt":                      "Jumeirah Lake Towers",
		"jumeirah lake towers":     "Jumeirah Lake Towers",
		"dubai hills":              "Dubai Hills Estate",
		"dubai hills estate":       "Dubai Hills Estate",
		"arabian ranches":          "Arabian Ranches",
		"mbr city":                 "Mohammed Bin Rashid City",
		"mohammed bin rashid city": "Mohammed Bin Rashid City",
	}
)

// NormalizeArea приводит название района к каноническому виду
func NormalizeArea(raw string) string {
	trimmed := multiSpace.ReplaceAllString(strings.TrimSpace(raw), " ")
	if trimmed == "" {
		return ""
	}
	if canonical, ok := areaAliases[strings.ToLower(trimmed)]; ok {
		return canonical
	}
	// Caser хранит состояние, поэтому создается на каждый вызов
	return cases.Title(language.English).String(trimmed)
}

// UnitKey - ключ единицы сбора (источник × район)
func UnitKey(sourceID uuid.UUID, area string) string {
	return fmt.Sprintf("%s:%s", sourceID, strings.ToLower(area))
}
