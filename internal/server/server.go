// Package server provides the HTTP server and routing.
package server

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/rs/zerolog"

	"github.com/alex-golts/portfolio-diversity/internal/modules/benchmark"
	benchmarkhandlers "github.com/alex-golts/portfolio-diversity/internal/modules/benchmark/handlers"
	"github.com/alex-golts/portfolio-diversity/internal/modules/coverage"
	portfoliohandlers "github.com/alex-golts/portfolio-diversity/internal/modules/portfolio/handlers"
	"github.com/alex-golts/portfolio-diversity/internal/modules/regions"
	regionshandlers "github.com/alex-golts/portfolio-diversity/internal/modules/regions/handlers"
)

// Config holds server configuration
type Config struct {
	Log      zerolog.Logger
	Space    *benchmark.Space
	Resolver *regions.Resolver
	Policy   coverage.OverlapPolicy
	Port     int
	DevMode  bool
}

// Server represents the HTTP server
type Server struct {
	router *chi.Mux
	server *http.Server
	log    zerolog.Logger

	space    *benchmark.Space
	resolver *regions.Resolver
	policy   coverage.OverlapPolicy
}

// New creates a new HTTP server
func New(cfg Config) *Server {
	s := &Server{
		router:   chi.NewRouter(),
		log:      cfg.Log.With().Str("component", "server").Logger(),
		space:    cfg.Space,
		resolver: cfg.Resolver,
		policy:   cfg.Policy,
	}

	s.setupMiddleware(cfg.DevMode)
	s.setupRoutes(cfg.Log)

	s.server = &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.Port),
		Handler:      s.router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	return s
}

// setupMiddleware configures middleware
func (s *Server) setupMiddleware(devMode bool) {
	s.router.Use(middleware.Recoverer)
	s.router.Use(middleware.RequestID)
	s.router.Use(middleware.RealIP)
	s.router.Use(s.loggingMiddleware)
	s.router.Use(middleware.Timeout(60 * time.Second))

	s.router.Use(cors.Handler(cors.Options{
		AllowedOrigins:   []string{"*"},
		AllowedMethods:   []string{"GET", "POST", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type"},
		ExposedHeaders:   []string{"Link"},
		AllowCredentials: true,
		MaxAge:           300,
	}))

	if !devMode {
		s.router.Use(middleware.Compress(5))
	}
}

// setupRoutes configures all routes
func (s *Server) setupRoutes(log zerolog.Logger) {
	s.router.Get("/health", s.handleHealth)

	benchmarkHandler := benchmarkhandlers.NewHandler(s.space, s.resolver, log)
	regionsHandler := regionshandlers.NewHandler(s.resolver, log)
	portfolioHandler := portfoliohandlers.NewHandler(s.space, s.resolver, s.policy, log)

	s.router.Route("/api", func(r chi.Router) {
		r.Route("/benchmark", func(r chi.Router) {
			r.Get("/segments", benchmarkHandler.HandleSegments)
			r.Get("/regions", benchmarkHandler.HandleRegionWeights)
		})

		r.Route("/regions", func(r chi.Router) {
			r.Get("/", regionsHandler.HandleList)
			r.Get("/{name}", regionsHandler.HandleResolve)
		})

		r.Post("/portfolio/evaluate", portfolioHandler.HandleEvaluate)
	})
}

// handleHealth reports liveness plus the dimensions of the loaded benchmark.
func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(map[string]interface{}{
		"status":    "ok",
		"countries": len(s.space.Countries()),
		"bands":     len(s.space.Bands()),
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
