package rest

import (
	"errors"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/sarbdeol/bi-market-intelligence/internal/contextkeys"
	"github.com/sarbdeol/bi-market-intelligence/internal/core/domain"
	"github.com/sarbdeol/bi-market-intelligence/internal/core/port"
	usecases_port "github.com/sarbdeol/bi-market-intelligence/internal/core/port/usecases_port"
)

type AlertsHandler struct {
	listUC        usecases_port.ListAlertsPort
	acknowledgeUC usecases_port.AcknowledgeAlertPort
}

func NewAlertsHandler(listUC usecases_port.ListAlertsPort, acknowledgeUC usecases_port.AcknowledgeAlertPort) *AlertsHandler {
	return &AlertsHandler{listUC: listUC, acknowledgeUC: acknowledgeUC}
}

// ListAlerts обрабатывает GET /api/v1/alerts
func (h *AlertsHandler) ListAlerts(w http.ResponseWriter, r *http.Request) {
	logger := contextkeys.LoggerFromContext(r.Context())

	unreadOnly, err := parseBool(r, "unread_only")
	if err != nil {
		WriteJSONError(w, http.StatusBadRequest, err.Error())
		return
	}
	limit, err := parseLimit(r)
	if err != nil {
		WriteJSONError(w, http.StatusBadRequest, err.Error())
		return
	}
	filter := domain.AlertFilter{
		UnreadOnly: unreadOnly,
		Area:       strings.TrimSpace(r.URL.Query().Get("area")),
		Limit:      limit,
	}
	if raw := r.URL.Query().Get("severity"); raw != "" {
		severity, ok := domain.ParseSeverity(strings.ToUpper(raw))
		if !ok {
			WriteJSONError(w, http.StatusBadRequest, "unknown severity "+raw)
			return
		}
		filter.Severity = &severity
	}

	alerts, err := h.listUC.Execute(r.Context(), filter)
	if err != nil {
		logger.Error("Use case failed", err, port.Fields{"handler": "ListAlerts"})
		WriteJSONError(w, http.StatusInternalServerError, "Failed to list alerts")
		return
	}
	if alerts == nil {
		alerts = []domain.Alert{}
	}
	RespondWithJSON(w, http.StatusOK, ListResponse{Count: len(alerts), Items: alerts})
}

// AcknowledgeAlert обрабатывает PATCH /api/v1/alerts/{alertID}/acknowledge
func (h *AlertsHandler) AcknowledgeAlert(w http.ResponseWriter, r *http.Request) {
	logger := contextkeys.LoggerFromContext(r.Context())

	alertID, err := uuid.Parse(chi.URLParam(r, "alertID"))
	if err != nil {
		logger.Warn("Invalid alert ID format", port.Fields{"error": err.Error()})
		WriteJSONError(w, http.StatusBadRequest, "Invalid alert ID format")
		return
	}

	alert, err := h.acknowledgeUC.Execute(r.Context(), alertID)
	if errors.Is(err, domain.ErrAlertNotFound) {
		WriteJSONError(w, http.StatusNotFound, "Alert not found")
		return
	}
	if err != nil {
		logger.Error("Use case failed", err, port.Fields{"handler": "AcknowledgeAlert", "alert_id": alertID.String()})
		WriteJSONError(w, http.StatusInternalServerError, "Failed to acknowledge alert")
		return
	}
	RespondWithJSON(w, http.StatusOK, alert)
}
