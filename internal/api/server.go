// Package api exposes the HTTP surface: schedule, source, transformation
// and destination management, the OAuth authorization flow, and run
// history.
package api

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog"

	"github.com/feedline/feedline/internal/api/handler"
	mw "github.com/feedline/feedline/internal/api/middleware"
	"github.com/feedline/feedline/internal/config"
	"github.com/feedline/feedline/internal/store"
)

type Server struct {
	router    chi.Router
	logger    zerolog.Logger
	pool      *pgxpool.Pool
	stores    *store.Stores
	manager   handler.CredentialManager
	scheduler handler.JobScheduler
	runner    handler.Runner
	cfg       *config.Config
}

func NewServer(
	logger zerolog.Logger,
	pool *pgxpool.Pool,
	stores *store.Stores,
	manager handler.CredentialManager,
	scheduler handler.JobScheduler,
	runner handler.Runner,
	cfg *config.Config,
) *Server {
	s := &Server{
		router:    chi.NewRouter(),
		logger:    logger,
		pool:      pool,
		stores:    stores,
		manager:   manager,
		scheduler: scheduler,
		runner:    runner,
		cfg:       cfg,
	}

	s.setupMiddleware()
	s.setupRoutes()

	return s
}

func (s *Server) setupMiddleware() {
	s.router.Use(middleware.RequestID)
	s.router.Use(middleware.RealIP)
	s.router.Use(mw.RequestLogger(s.logger))
	s.router.Use(middleware.Recoverer)
	s.router.Use(mw.Metrics)
}

func (s *Server) setupRoutes() {
	// Prometheus metrics endpoint
	s.router.Handle("/metrics", promhttp.Handler())

	// Health check endpoints
	s.router.Get("/healthz", s.handleHealthz)
	s.router.Get("/readyz", s.handleReadyz)

	s.router.Route("/api/v1", func(r chi.Router) {
		// Schedules
		schedule := handler.NewSchedule(s.stores, s.scheduler, s.runner, s.logger)
		r.Get("/schedules", schedule.List)
		r.Post("/schedules", schedule.Create)
		r.Get("/schedules/{scheduleID}", schedule.Get)
		r.Put("/schedules/{scheduleID}", schedule.Update)
		r.Post("/schedules/{scheduleID}/activate", schedule.Activate)
		r.Post("/schedules/{scheduleID}/deactivate", schedule.Deactivate)
		r.Post("/schedules/{scheduleID}/run", schedule.Run)

		// Run history
		execution := handler.NewExecution(s.stores)
		r.Get("/schedules/{scheduleID}/executions", execution.ListBySchedule)
		r.Get("/executions/{executionID}", execution.Get)

		// Sources
		source := handler.NewSource(s.stores)
		r.Get("/sources", source.List)
		r.Post("/sources", source.Create)
		r.Get("/sources/{sourceID}", source.Get)
		r.Put("/sources/{sourceID}", source.Update)
		r.Delete("/sources/{sourceID}", source.Delete)

		// Transformations
		transformation := handler.NewTransformation(s.stores)
		r.Get("/transformations", transformation.List)
		r.Post("/transformations", transformation.Create)
		r.Get("/transformations/{transformationID}", transformation.Get)
		r.Put("/transformations/{transformationID}", transformation.Update)
		r.Delete("/transformations/{transformationID}", transformation.Delete)

		// Destinations
		destination := handler.NewDestination(s.stores, s.cfg.MasterSecret, s.logger)
		r.Get("/destinations", destination.List)
		r.Post("/destinations", destination.Create)
		r.Get("/destinations/{destinationID}", destination.Get)
		r.Put("/destinations/{destinationID}", destination.Update)
		r.Delete("/destinations/{destinationID}", destination.Delete)
		r.Get("/destinations/{destinationID}/audits", destination.Audits)

		// OAuth credential lifecycle
		oauth := handler.NewOAuth(s.manager)
		r.Post("/destinations/{destinationID}/oauth/authorize", oauth.Authorize)
		r.Post("/destinations/{destinationID}/oauth/refresh", oauth.Refresh)
		r.Post("/destinations/{destinationID}/oauth/revoke", oauth.Revoke)
		r.Get("/oauth/callback", oauth.Callback)
	})
}

func (s *Server) handleHealthz(w http.ResponseWriter, _ *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	json.NewEncoder(w).Encode(map[string]string{"status": "ok"})
}

func (s *Server) handleReadyz(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 3*time.Second)
	defer cancel()

	checks := map[string]string{}
	healthy := true

	if err := s.pool.Ping(ctx); err != nil {
		checks["db"] = err.Error()
		healthy = false
	} else {
		checks["db"] = "ok"
	}

	w.Header().Set("Content-Type", "application/json")
	if healthy {
		w.WriteHeader(http.StatusOK)
	} else {
		w.WriteHeader(http.StatusServiceUnavailable)
	}
	json.NewEncoder(w).Encode(checks)
}

func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.router.ServeHTTP(w, r)
}
