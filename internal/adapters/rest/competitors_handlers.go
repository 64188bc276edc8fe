package rest

import (
	"net/http"

	"github.com/sarbdeol/bi-market-intelligence/internal/contextkeys"
	"github.com/sarbdeol/bi-market-intelligence/internal/core/domain"
	"github.com/sarbdeol/bi-market-intelligence/internal/core/port"
	usecases_port "github.com/sarbdeol/bi-market-intelligence/internal/core/port/usecases_port"
)

type CompetitorsHandler struct {
	sourcesUC usecases_port.ListSourcesPort
	runsUC    usecases_port.ListCollectionRunsPort
}

func NewCompetitorsHandler(sourcesUC usecases_port.ListSourcesPort, runsUC usecases_port.ListCollectionRunsPort) *CompetitorsHandler {
	return &CompetitorsHandler{sourcesUC: sourcesUC, runsUC: runsUC}
}

// ListCompetitors обрабатывает GET /api/v1/competitors
func (h *CompetitorsHandler) ListCompetitors(w http.ResponseWriter, r *http.Request) {
	logger := contextkeys.LoggerFromContext(r.Context())

	sources, err := h.sourcesUC.Execute(r.Context())
	if err != nil {
		logger.Error("Use case failed", err, port.Fields{"handler": "ListCompetitors"})
		WriteJSONError(w, http.StatusInternalServerError, "Failed to list competitors")
		return
	}
	if sources == nil {
		sources = []domain.Source{}
	}
	RespondWithJSON(w, http.StatusOK, ListResponse{Count: len(sources), Items: sources})
}

// ListCollectionRuns обрабатывает GET /api/v1/competitors/collection-runs
func (h *CompetitorsHandler) ListCollectionRuns(w http.ResponseWriter, r *http.Request) {
	logger := contextkeys.LoggerFromContext(r.Context())

	limit, err := parseLimit(r)
	if err != nil {
		WriteJSONError(w, http.StatusBadRequest, err.Error())
		return
	}

	runs, err := h.runsUC.Execute(r.Context(), limit)
	if err != nil {
		logger.Error("Use case failed", err, port.Fields{"handler": "ListCollectionRuns"})
		WriteJSONError(w, http.StatusInternalServerError, "Failed to list collection runs")
		return
	}
	if runs == nil {
		runs = []domain.CollectionRun{}
	}
	RespondWithJSON(w, http.StatusOK, ListResponse{Count: len(runs), Items: runs})
}
