// Package server provides the HTTP server and routing for QuantumLab.
package server

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/rs/zerolog"

	"github.com/aristath/quantumlab/internal/config"
	"github.com/aristath/quantumlab/internal/di"
	circuithandlers "github.com/aristath/quantumlab/internal/modules/circuits/handlers"
	exercisehandlers "github.com/aristath/quantumlab/internal/modules/exercises/handlers"
	runhandlers "github.com/aristath/quantumlab/internal/modules/runs/handlers"
	settingshandlers "github.com/aristath/quantumlab/internal/modules/settings/handlers"
	"github.com/aristath/quantumlab/internal/scheduler"
)

// Config holds server configuration
type Config struct {
	Log       zerolog.Logger
	Config    *config.Config
	Container *di.Container
}

// Server represents the HTTP server
type Server struct {
	router         *chi.Mux
	server         *http.Server
	log            zerolog.Logger
	cfg            *config.Config
	container      *di.Container
	systemHandlers *SystemHandlers
}

// New creates a new HTTP server
func New(cfg Config) *Server {
	s := &Server{
		router:    chi.NewRouter(),
		log:       cfg.Log.With().Str("component", "server").Logger(),
		cfg:       cfg.Config,
		container: cfg.Container,
	}

	s.systemHandlers = NewSystemHandlers(
		cfg.Log,
		cfg.Config.DataDir,
		cfg.Container.ConfigDB,
		cfg.Container.ResultsDB,
		cfg.Container.CacheDB,
		cfg.Container.Registry,
		cfg.Container.SettingsService,
		cfg.Container.RunsRepo,
		cfg.Container.Scheduler,
	)

	s.setupMiddleware(cfg.Config.DevMode)
	s.setupRoutes()

	s.server = &http.Server{
		Addr:         fmt.Sprintf("%s:%d", cfg.Config.Host, cfg.Config.Port),
		Handler:      s.router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	return s
}

// SetJobs registers job instances for manual triggering via API
func (s *Server) SetJobs(retention, cacheSweep, dbVacuum scheduler.Job) {
	s.systemHandlers.SetJobs(retention, cacheSweep, dbVacuum)
}

// setupMiddleware configures middleware
func (s *Server) setupMiddleware(devMode bool) {
	// Recovery from panics
	s.router.Use(middleware.Recoverer)

	// Request ID
	s.router.Use(middleware.RequestID)

	// Real IP
	s.router.Use(middleware.RealIP)

	// Logging
	s.router.Use(s.loggingMiddleware)

	// Timeout
	s.router.Use(middleware.Timeout(60 * time.Second))

	// CORS
	s.router.Use(cors.Handler(cors.Options{
		AllowedOrigins:   []string{"*"},
		AllowedMethods:   []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type"},
		ExposedHeaders:   []string{"Link"},
		AllowCredentials: true,
		MaxAge:           300,
	}))

	// Compress responses
	if !devMode {
		s.router.Use(middleware.Compress(5))
	}
}

// setupRoutes configures all routes
func (s *Server) setupRoutes() {
	// Health check (kept outside /api for probes)
	s.router.Get("/health", s.handleHealth)

	c := s.container

	s.router.Route("/api", func(r chi.Router) {
		// Unified events stream (SSE) - must be before other routes for proper handling
		eventsStreamHandler := NewEventsStreamHandler(c.EventBus, s.log)
		r.Get("/events/stream", eventsStreamHandler.ServeHTTP)

		settingshandlers.NewHandler(c.SettingsService, c.EventManager, s.log).RegisterRoutes(r)
		runhandlers.NewHandler(c.RunsRepo, s.log).RegisterRoutes(r)
		exercisehandlers.NewHandler(c.ExerciseService, s.log).RegisterRoutes(r)
		circuithandlers.NewHandler(c.CircuitService, c.SettingsService, c.EventManager, s.log).RegisterRoutes(r)

		s.systemHandlers.RegisterRoutes(r)
	})
}

// Start starts the HTTP server
func (s *Server) Start() error {
	s.log.Info().Str("addr", s.server.Addr).Msg("Starting HTTP server")
	return s.server.ListenAndServe()
}

// Shutdown gracefully shuts down the server
func (s *Server) Shutdown(ctx context.Context) error {
	s.log.Info().Msg("Shutting down HTTP server")
	return s.server.Shutdown(ctx)
}

// Router exposes the configured handler, mostly for tests.
func (s *Server) Router() http.Handler {
	return s.router
}

// loggingMiddleware logs HTTP requests
func (s *Server) loggingMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()

		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		next.ServeHTTP(ww, r)

		s.log.Info().
			Str("method", r.Method).
			Str("path", r.URL.Path).
			Int("status", ww.Status()).
			Int("bytes", ww.BytesWritten()).
			Dur("duration_ms", time.Since(start)).
			Str("request_id", middleware.GetReqID(r.Context())).
			Msg("HTTP request")
	})
}
