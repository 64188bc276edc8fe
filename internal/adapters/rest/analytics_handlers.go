package rest

import (
	"net/http"
	"strings"

	"github.com/sarbdeol/bi-market-intelligence/internal/contextkeys"
	"github.com/sarbdeol/bi-market-intelligence/internal/core/domain"
	"github.com/sarbdeol/bi-market-intelligence/internal/core/port"
	usecases_port "github.com/sarbdeol/bi-market-intelligence/internal/core/port/usecases_port"
)

const defaultTrendDays = 90

type AnalyticsHandler struct {
	priceStatsUC  usecases_port.GetPriceStatsPort
	velocityUC    usecases_port.GetListingVelocityPort
	heatMapUC     usecases_port.GetHeatMapPort
	trendUC       usecases_port.GetMarketTrendPort
	competitorsUC usecases_port.GetCompetitorComparisonPort
	overviewUC    usecases_port.GetOverviewPort
}

func NewAnalyticsHandler(
	priceStatsUC usecases_port.GetPriceStatsPort,
	velocityUC usecases_port.GetListingVelocityPort,
	heatMapUC usecases_port.GetHeatMapPort,
	trendUC usecases_port.GetMarketTrendPort,
	competitorsUC usecases_port.GetCompetitorComparisonPort,
	overviewUC usecases_port.GetOverviewPort,
) *AnalyticsHandler {
	return &AnalyticsHandler{
		priceStatsUC:  priceStatsUC,
		velocityUC:    velocityUC,
		heatMapUC:     heatMapUC,
		trendUC:       trendUC,
		competitorsUC: competitorsUC,
		overviewUC:    overviewUC,
	}
}

// GetPriceStats обрабатывает GET /api/v1/analytics/price-tracker
func (h *AnalyticsHandler) GetPriceStats(w http.ResponseWriter, r *http.Request) {
	logger := contextkeys.LoggerFromContext(r.Context())

	area, err := requiredArea(r)
	if err != nil {
		WriteJSONError(w, http.StatusBadRequest, err.Error())
		return
	}
	pt, err := parsePropertyType(r)
	if err != nil {
		WriteJSONError(w, http.StatusBadRequest, err.Error())
		return
	}
	days, err := parseDays(r)
	if err != nil {
		WriteJSONError(w, http.StatusBadRequest, err.Error())
		return
	}

	handlerLogger := logger.WithFields(port.Fields{"handler": "GetPriceStats", "area": area, "days": days})
	stats, err := h.priceStatsUC.Execute(r.Context(), domain.PriceStatsQuery{Area: area, PropertyType: pt, Days: days})
	if err != nil {
		handlerLogger.Error("Use case failed", err, nil)
		WriteJSONError(w, http.StatusInternalServerError, "Failed to compute price statistics")
		return
	}
	if stats == nil {
		RespondWithJSON(w, http.StatusOK, emptyPriceStats(area, pt, days))
		return
	}
	RespondWithJSON(w, http.StatusOK, stats)
}

// GetListingVelocity обрабатывает GET /api/v1/analytics/listing-velocity
func (h *AnalyticsHandler) GetListingVelocity(w http.ResponseWriter, r *http.Request) {
	logger := contextkeys.LoggerFromContext(r.Context())

	area, err := requiredArea(r)
	if err != nil {
		WriteJSONError(w, http.StatusBadRequest, err.Error())
		return
	}
	days, err := parseDays(r)
	if err != nil {
		WriteJSONError(w, http.StatusBadRequest, err.Error())
		return
	}

	stats, err := h.velocityUC.Execute(r.Context(), area, days)
	if err != nil {
		logger.Error("Use case failed", err, port.Fields{"handler": "GetListingVelocity", "area": area})
		WriteJSONError(w, http.StatusInternalServerError, "Failed to compute listing velocity")
		return
	}
	RespondWithJSON(w, http.StatusOK, stats)
}

// GetHeatMap обрабатывает GET /api/v1/analytics/heat-map
func (h *AnalyticsHandler) GetHeatMap(w http.ResponseWriter, r *http.Request) {
	logger := contextkeys.LoggerFromContext(r.Context())

	entries, err := h.heatMapUC.Execute(r.Context())
	if err != nil {
		logger.Error("Use case failed", err, port.Fields{"handler": "GetHeatMap"})
		WriteJSONError(w, http.StatusInternalServerError, "Failed to build heat map")
		return
	}
	if entries == nil {
		entries = []domain.HeatMapEntry{}
	}
	RespondWithJSON(w, http.StatusOK, ListResponse{Count: len(entries), Items: entries})
}

// GetPriceTrend обрабатывает GET /api/v1/analytics/price-trend
func (h *AnalyticsHandler) GetPriceTrend(w http.ResponseWriter, r *http.Request) {
	h.trend(w, r, "GetPriceTrend", func(points []domain.TrendPoint) interface{} { return toPriceTrend(points) })
}

// GetVelocityTrend обрабатывает GET /api/v1/analytics/velocity-trend
func (h *AnalyticsHandler) GetVelocityTrend(w http.ResponseWriter, r *http.Request) {
	h.trend(w, r, "GetVelocityTrend", func(points []domain.TrendPoint) interface{} { return toVelocityTrend(points) })
}

func (h *AnalyticsHandler) trend(w http.ResponseWriter, r *http.Request, name string, project func([]domain.TrendPoint) interface{}) {
	logger := contextkeys.LoggerFromContext(r.Context())

	area, err := requiredArea(r)
	if err != nil {
		WriteJSONError(w, http.StatusBadRequest, err.Error())
		return
	}
	days, err := parseDays(r)
	if err != nil {
		WriteJSONError(w, http.StatusBadRequest, err.Error())
		return
	}

	points, err := h.trendUC.Execute(r.Context(), area, days)
	if err != nil {
		logger.Error("Use case failed", err, port.Fields{"handler": name, "area": area})
		WriteJSONError(w, http.StatusInternalServerError, "Failed to load market trend")
		return
	}
	if days == 0 {
		days = defaultTrendDays
	}
	RespondWithJSON(w, http.StatusOK, TrendResponse{
		Area:   domain.NormalizeArea(area),
		Days:   days,
		Points: project(points),
	})
}

// GetCompetitorComparison обрабатывает GET /api/v1/analytics/competitor-comparison
func (h *AnalyticsHandler) GetCompetitorComparison(w http.ResponseWriter, r *http.Request) {
	logger := contextkeys.LoggerFromContext(r.Context())
	area := strings.TrimSpace(r.URL.Query().Get("area"))

	stats, err := h.competitorsUC.Execute(r.Context(), area)
	if err != nil {
		logger.Error("Use case failed", err, port.Fields{"handler": "GetCompetitorComparison", "area": area})
		WriteJSONError(w, http.StatusInternalServerError, "Failed to compare competitors")
		return
	}
	if stats == nil {
		stats = []domain.CompetitorStats{}
	}
	RespondWithJSON(w, http.StatusOK, ListResponse{Count: len(stats), Items: stats})
}

// GetOverview обрабатывает GET /api/v1/analytics/overview
func (h *AnalyticsHandler) GetOverview(w http.ResponseWriter, r *http.Request) {
	logger := contextkeys.LoggerFromContext(r.Context())

	overview, err := h.overviewUC.Execute(r.Context())
	if err != nil {
		logger.Error("Use case failed", err, port.Fields{"handler": "GetOverview"})
		WriteJSONError(w, http.StatusInternalServerError, "Failed to build overview")
		return
	}
	RespondWithJSON(w, http.StatusOK, overview)
}
