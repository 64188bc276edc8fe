package rest

import (
	"encoding/json"
	"fmt"
	"net/http"
	"strconv"
	"strings"

	"github.com/sarbdeol/bi-market-intelligence/internal/core/domain"
)

const maxQueryDays = 365

// WriteJSONError отправляет {"error": message} с заданным статусом
func WriteJSONError(w http.ResponseWriter, statusCode int, message string) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(statusCode)
	json.NewEncoder(w).Encode(map[string]string{
		"error": message,
	})
}

// RespondWithJSON отправляет JSON-ответ
func RespondWithJSON(w http.ResponseWriter, code int, payload interface{}) {
	response, err := json.Marshal(payload)
	if err != nil {
		http.Error(w, "Failed to marshal JSON response", http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	w.Write(response)
}

// requiredArea: параметр area обязателен
func requiredArea(r *http.Request) (string, error) {
	area := strings.TrimSpace(r.URL.Query().Get("area"))
	if area == "" {
		return "", fmt.Errorf("query parameter 'area' is required")
	}
	return area, nil
}

// parseDays: 0 - не задан, use case подставит значение по умолчанию
func parseDays(r *http.Request) (int, error) {
	raw := r.URL.Query().Get("days")
	if raw == "" {
		return 0, nil
	}
	days, err := strconv.Atoi(raw)
	if err != nil || days < 1 || days > maxQueryDays {
		return 0, fmt.Errorf("query parameter 'days' must be an integer between 1 and %d", maxQueryDays)
	}
	return days, nil
}

func parseLimit(r *http.Request) (int, error) {
	raw := r.URL.Query().Get("limit")
	if raw == "" {
		return 0, nil
	}
	limit, err := strconv.Atoi(raw)
	if err != nil || limit < 1 {
		return 0, fmt.Errorf("query parameter 'limit' must be a positive integer")
	}
	return limit, nil
}

func parsePropertyType(r *http.Request) (*domain.PropertyType, error) {
	raw := strings.TrimSpace(r.URL.Query().Get("property_type"))
	if raw == "" {
		return nil, nil
	}
	pt := domain.PropertyType(strings.ToUpper(raw))
	if !pt.IsValid() {
		return nil, fmt.Errorf("unknown property_type %q", raw)
	}
	return &pt, nil
}

func parseBool(r *http.Request, key string) (bool, error) {
	raw := r.URL.Query().Get(key)
	if raw == "" {
		return false, nil
	}
	v, err := strconv.ParseBool(raw)
	if err != nil {
		return false, fmt.Errorf("query parameter '%s' must be a boolean", key)
	}
	return v, nil
}
