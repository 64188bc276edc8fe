package domain

import "math"

// DefaultAreaCapacity - условная емкость района, при которой спрос считается насыщенным
const DefaultAreaCapacity = 500

// HeatBand - словесная оценка индекса, вычисляется только при чтении
type HeatBand string

const (
	BandHot      HeatBand = "HOT"
	BandActive   HeatBand = "ACTIVE"
	BandBalanced HeatBand = "BALANCED"
	BandCool     HeatBand = "COOL"
)

// ScoreHeatIndex сводит скорость появления объявлений, динамику цены и насыщенность
// района в одно число от 0 до 100 с точностью до десятых.
func ScoreHeatIndex(velocityRatio, priceChangePct float64, activeListings, areaCapacity int) float64 {
	if areaCapacity <= 0 {
		areaCapacity = DefaultAreaCapacity
	}

	velocityScore := clamp((velocityRatio-0.5)*40, 0, 40)
	priceScore := clamp(20+priceChangePct*4, 0, 40)

	saturation := math.Min(1.0, float64(max(activeListings, 0))/float64(areaCapacity))
	demandScore := (1 - saturation) * 20

	return clamp(round1(velocityScore+priceScore+demandScore), 0, 100)
}

// BandFor возвращает полосу для значения индекса
func BandFor(heatIndex float64) HeatBand {
	switch {
	case heatIndex > 75:
		return BandHot
	case heatIndex >= 50:
		return BandActive
	case heatIndex >= 25:
		return BandBalanced
	default:
		return BandCool
	}
}

func clamp(v, lo, hi float64) float64 {
	return math.Max(lo, math.Min(hi, v))
}

func round1(v float64) float64 {
	return math.Round(v*10) / 10
}

func round2(v float64) float64 {
	return math.Round(v*100) / 100
}
