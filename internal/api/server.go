// Package api serves the planner over HTTP.
package api

import (
	"context"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"grid-buy-planner/internal/config"
	"grid-buy-planner/internal/metrics"
	"grid-buy-planner/internal/planner"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-playground/validator/v10"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"
)

// ProviderSwitcher selects the price provider used by quote lookups.
type ProviderSwitcher interface {
	Switch(name string) error
	Current() string
	Providers() []string
}

// Options holds the collaborators of the HTTP server. Providers, Recorder and Gatherer are optional.
type Options struct {
	Service   *planner.Service
	Providers ProviderSwitcher
	Recorder  *metrics.Recorder
	Gatherer  prometheus.Gatherer
	Logger    *zap.Logger
}

// Server is the planner's HTTP API.
type Server struct {
	router    chi.Router
	server    *http.Server
	svc       *planner.Service
	providers ProviderSwitcher
	recorder  *metrics.Recorder
	gatherer  prometheus.Gatherer
	validate  *validator.Validate
	logger    *zap.Logger
}

// NewServer creates the HTTP server and registers its routes.
func NewServer(cfg config.Server, opts Options) *Server {
	s := &Server{
		router:    chi.NewRouter(),
		svc:       opts.Service,
		providers: opts.Providers,
		recorder:  opts.Recorder,
		gatherer:  opts.Gatherer,
		validate:  validator.New(),
		logger:    opts.Logger.Named("api"),
	}

	s.setupMiddleware()
	s.setupRoutes()

	s.server = &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.Port),
		Handler:      s.router,
		ReadTimeout:  cfg.ReadTimeout,
		WriteTimeout: cfg.WriteTimeout,
		IdleTimeout:  60 * time.Second,
	}
	return s
}

// Handler returns the router, for tests and embedding.
func (s *Server) Handler() http.Handler {
	return s.router
}

func (s *Server) setupMiddleware() {
	s.router.Use(middleware.Recoverer)
	s.router.Use(middleware.RequestID)
	s.router.Use(middleware.RealIP)
	s.router.Use(s.loggingMiddleware)
	s.router.Use(middleware.Timeout(60 * time.Second))
}

func (s *Server) setupRoutes() {
	s.router.Get("/health", s.handleHealth)
	if s.gatherer != nil {
		s.router.Handle("/metrics", promhttp.HandlerFor(s.gatherer, promhttp.HandlerOpts{}))
	}

	s.router.Route("/api", func(r chi.Router) {
		r.Get("/defaults", s.handleDefaults)

		r.Route("/quote", func(r chi.Router) {
			r.Get("/providers", s.handleProviders)
			r.Put("/provider", s.handleSwitchProvider)
			r.Get("/{symbol}", s.handleQuote)
		})

		r.Post("/plan", s.handlePlan)

		r.Route("/instruction", func(r chi.Router) {
			r.Post("/parse", s.handleParseInstruction)
			r.Post("/plan", s.handlePlanFromInstruction)
		})
	})
}

// Start serves until Shutdown is called.
func (s *Server) Start() error {
	s.logger.Info("Starting HTTP server", zap.String("address", s.server.Addr))
	return s.server.ListenAndServe()
}

// Shutdown gracefully shuts down the server.
func (s *Server) Shutdown(ctx context.Context) error {
	s.logger.Info("Shutting down HTTP server")
	return s.server.Shutdown(ctx)
}

// loggingMiddleware logs every request and records it in the metrics under its route pattern.
func (s *Server) loggingMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()

		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		next.ServeHTTP(ww, r)

		status := ww.Status()
		if status == 0 {
			status = http.StatusOK
		}

		route := r.URL.Path
		if rctx := chi.RouteContext(r.Context()); rctx != nil && rctx.RoutePattern() != "" {
			route = rctx.RoutePattern()
		}
		if s.recorder != nil {
			s.recorder.RecordRequest(route, r.Method, strconv.Itoa(status))
			s.recorder.RecordLatency("http", time.Since(start).Seconds())
		}

		s.logger.Info("HTTP request",
			zap.String("method", r.Method),
			zap.String("path", r.URL.Path),
			zap.String("route", route),
			zap.Int("status", status),
			zap.Int("bytes", ww.BytesWritten()),
			zap.Duration("duration", time.Since(start)),
			zap.String("request_id", middleware.GetReqID(r.Context())),
		)
	})
}
