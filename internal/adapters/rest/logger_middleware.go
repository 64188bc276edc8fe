package rest

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/google/uuid"
	"github.com/sarbdeol/bi-market-intelligence/internal/contextkeys"
	"github.com/sarbdeol/bi-market-intelligence/internal/core/port"
)

const traceHeader = "X-Trace-ID"

// LoggerMiddleware принимает trace id клиента (если это uuid) или выдает новый,
// возвращает его в заголовке ответа и пишет одну строку лога на запрос
func LoggerMiddleware(logger port.LoggerPort) func(next http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			traceID := r.Header.Get(traceHeader)
			if _, err := uuid.Parse(traceID); err != nil {
				traceID = ""
			}
			ctx := contextkeys.NewTracedContext(r.Context(), logger, traceID)
			traceID = contextkeys.TraceIDFromContext(ctx)
			w.Header().Set(traceHeader, traceID)

			ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
			started := time.Now()
			next.ServeHTTP(ww, r.WithContext(ctx))

			route := r.URL.Path
			if rctx := chi.RouteContext(r.Context()); rctx != nil && rctx.RoutePattern() != "" {
				route = rctx.RoutePattern()
			}
			fields := port.Fields{
				"http_method": r.Method,
				"http_route":  route,
				"status_code": ww.Status(),
				"bytes":       ww.BytesWritten(),
				"duration_ms": time.Since(started).Milliseconds(),
			}
			reqLogger := contextkeys.LoggerFromContext(ctx)
			switch {
			case ww.Status() >= http.StatusInternalServerError:
				reqLogger.Warn("Request failed", fields)
			case route == "/health":
				reqLogger.Debug("Request finished", fields)
			default:
				reqLogger.Info("Request finished", fields)
			}
		})
	}
}
