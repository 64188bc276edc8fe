package rest

import (
	"context"
	"errors"
	"net/http"
	"sync"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/sarbdeol/bi-market-intelligence/internal/contextkeys"
	"github.com/sarbdeol/bi-market-intelligence/internal/core/domain"
	"github.com/sarbdeol/bi-market-intelligence/internal/core/port"
	usecases_port "github.com/sarbdeol/bi-market-intelligence/internal/core/port/usecases_port"
)

// Pinger - проверка зависимости для /health (например, *pgxpool.Pool)
type Pinger interface {
	Ping(ctx context.Context) error
}

// PipelineHandler - ручной запуск задач конвейера и проверка здоровья
type PipelineHandler struct {
	runner usecases_port.RunPipelineJobPort
	db     Pinger
	// фоновые запуски, которых ждет Stop
	inflight sync.WaitGroup
}

func NewPipelineHandler(runner usecases_port.RunPipelineJobPort, db Pinger) *PipelineHandler {
	return &PipelineHandler{runner: runner, db: db}
}

// RunJob обрабатывает POST /api/v1/pipeline/{job}.
// По умолчанию задача уходит в фон (202), с ?wait=true ответ содержит итог.
func (h *PipelineHandler) RunJob(w http.ResponseWriter, r *http.Request) {
	logger := contextkeys.LoggerFromContext(r.Context())

	job, err := domain.ParsePipelineJob(chi.URLParam(r, "job"))
	if err != nil {
		WriteJSONError(w, http.StatusNotFound, "Unknown pipeline job")
		return
	}
	wait, err := parseBool(r, "wait")
	if err != nil {
		WriteJSONError(w, http.StatusBadRequest, err.Error())
		return
	}
	traceID := contextkeys.TraceIDFromContext(r.Context())
	jobLogger := logger.WithFields(port.Fields{"handler": "RunJob", "job": job})

	if wait {
		result, err := h.runner.Execute(r.Context(), job)
		if err != nil {
			jobLogger.Error("Pipeline job failed", err, nil)
			status := http.StatusInternalServerError
			if errors.Is(err, context.Canceled) {
				status = http.StatusServiceUnavailable
			}
			WriteJSONError(w, status, "Pipeline job failed")
			return
		}
		RespondWithJSON(w, http.StatusOK, PipelineJobResponse{Job: string(job), Status: "completed", TraceID: traceID, Result: result})
		return
	}

	// запрос завершится раньше задачи, поэтому отмена запроса на нее не влияет
	bgCtx := context.WithoutCancel(r.Context())
	h.inflight.Add(1)
	go func() {
		defer h.inflight.Done()
		started := time.Now()
		if _, err := h.runner.Execute(bgCtx, job); err != nil {
			jobLogger.Error("Background pipeline job failed", err, nil)
			return
		}
		jobLogger.Info("Background pipeline job finished", port.Fields{"duration_ms": time.Since(started).Milliseconds()})
	}()

	RespondWithJSON(w, http.StatusAccepted, PipelineJobResponse{Job: string(job), Status: "accepted", TraceID: traceID})
}

// Wait блокируется до завершения фоновых задач
func (h *PipelineHandler) Wait() {
	h.inflight.Wait()
}

// Health обрабатывает GET /health
func (h *PipelineHandler) Health(w http.ResponseWriter, r *http.Request) {
	if h.db != nil {
		ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
		defer cancel()
		if err := h.db.Ping(ctx); err != nil {
			contextkeys.LoggerFromContext(r.Context()).Error("Health check failed", err, nil)
			RespondWithJSON(w, http.StatusServiceUnavailable, HealthResponse{Status: "unavailable", Time: time.Now().UTC()})
			return
		}
	}
	RespondWithJSON(w, http.StatusOK, HealthResponse{Status: "ok", Time: time.Now().UTC()})
}
