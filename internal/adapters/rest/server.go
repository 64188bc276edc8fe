package rest

import (
	"context"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/sarbdeol/bi-market-intelligence/internal/core/port"
)

type Server struct {
	httpServer *http.Server
	pipeline   *PipelineHandler
	logger     port.LoggerPort
}

// NewRouter собирает маршруты; вынесен отдельно, чтобы тесты шли через httptest
func NewRouter(
	analytics *AnalyticsHandler,
	alerts *AlertsHandler,
	competitors *CompetitorsHandler,
	pipeline *PipelineHandler,
	allowedOrigins []string,
	baseLogger port.LoggerPort,
) http.Handler {
	r := chi.NewRouter()

	r.Use(middleware.RealIP, LoggerMiddleware(baseLogger), middleware.Recoverer)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins: allowedOrigins,
		AllowedMethods: []string{"GET", "POST", "PATCH", "OPTIONS"},
		AllowedHeaders: []string{"Accept", "Content-Type", "X-Trace-ID"},
		ExposedHeaders: []string{"X-Trace-ID"},
		MaxAge:         300,
	}))

	r.Get("/health", pipeline.Health)

	r.Route("/api/v1", func(r chi.Router) {
		r.Route("/analytics", func(r chi.Router) {
			r.Get("/price-tracker", analytics.GetPriceStats)
			r.Get("/listing-velocity", analytics.GetListingVelocity)
			r.Get("/heat-map", analytics.GetHeatMap)
			r.Get("/price-trend", analytics.GetPriceTrend)
			r.Get("/velocity-trend", analytics.GetVelocityTrend)
			r.Get("/competitor-comparison", analytics.GetCompetitorComparison)
			r.Get("/overview", analytics.GetOverview)
		})

		r.Get("/alerts", alerts.ListAlerts)
		r.Patch("/alerts/{alertID}/acknowledge", alerts.AcknowledgeAlert)

		r.Get("/competitors", competitors.ListCompetitors)
		r.Get("/competitors/collection-runs", competitors.ListCollectionRuns)

		r.Post("/pipeline/{job}", pipeline.RunJob)
	})

	return r
}

func NewServer(listenPort string, router http.Handler, pipeline *PipelineHandler, baseLogger port.LoggerPort) *Server {
	return &Server{
		httpServer: &http.Server{
			Addr:              ":" + listenPort,
			Handler:           router,
			ReadHeaderTimeout: 10 * time.Second,
		},
		pipeline: pipeline,
		logger:   baseLogger,
	}
}

func (s *Server) Start() error {
	s.logger.Info("Starting REST server", port.Fields{"address": s.httpServer.Addr})
	return s.httpServer.ListenAndServe()
}

// Stop останавливает прием запросов и ждет запущенные через API задачи
func (s *Server) Stop(ctx context.Context) error {
	s.logger.Info("Stopping REST server...", nil)
	err := s.httpServer.Shutdown(ctx)
	if s.pipeline != nil {
		done := make(chan struct{})
		go func() {
			s.pipeline.Wait()
			close(done)
		}()
		select {
		case <-done:
		case <-ctx.Done():
			s.logger.Warn("Background pipeline jobs did not finish before shutdown deadline", nil)
		}
	}
	return err
}
