package domain

import (
	"math"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// SignificantPriceChangePct - порог, начиная с которого меняется статус объявления
const SignificantPriceChangePct = 5.0

// PriceChangeEvent - неизменяемая запись об изменении цены
type PriceChangeEvent struct {
	ID         uuid.UUID `json:"id"`
	ListingID  uuid.UUID `json:"listing_id"`
	OldPrice   int64     `json:"old_price"`
	NewPrice   int64     `json:"new_price"`
	ChangePct  float64   `json:"change_pct"`
	RecordedAt time.Time `json:"recorded_at"`
}

// RawPriceChangePct - изменение цены в процентах без округления.
// По нему принимается решение о статусе.
func RawPriceChangePct(oldPrice, newPrice int64) float64 {
	if oldPrice == 0 {
		return 0
	}
	return float64(newPrice-oldPrice) * 100 / float64(oldPrice)
}

// PriceChangePct возвращает изменение цены в процентах, округленное до 2 знаков.
// Используется только для записи в историю цен.
func PriceChangePct(oldPrice, newPrice int64) float64 {
	if oldPrice == 0 {
		return 0
	}
	pct := decimal.NewFromInt(newPrice - oldPrice).
		Div(decimal.NewFromInt(oldPrice)).
		Mul(decimal.NewFromInt(100)).
		Round(2)
	f, _ := pct.Float64()
	return f
}

// StatusAfterPriceChange решает, какой статус получит объявление после изменения цены.
// Незначительные изменения статус не трогают.
func StatusAfterPriceChange(current ListingStatus, changePct float64) ListingStatus {
	if math.Abs(changePct) < SignificantPriceChangePct {
		return current
	}
	if changePct < 0 {
		return StatusPriceReduced
	}
	return StatusActive
}
