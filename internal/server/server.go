package server

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"github.com/costlens/costlens-engine/internal/audit"
	"github.com/costlens/costlens-engine/internal/config"
	"github.com/costlens/costlens-engine/internal/engine"
	"github.com/costlens/costlens-engine/internal/engine/anomaly"
	"github.com/costlens/costlens-engine/internal/engine/rightsizing"
	"github.com/costlens/costlens-engine/internal/logging"
	"github.com/costlens/costlens-engine/internal/middleware"
	"github.com/costlens/costlens-engine/internal/registry"
)

// Package server is the thin HTTP host around the engine.
//
// Responsibilities:
//   - Wire configuration, logging, the snapshot store, and the engine
//   - Decode JSON requests, call the engine facade, encode JSON responses
//   - Serve health and Prometheus metrics endpoints
//   - Shut down gracefully
//
// The engine itself performs no I/O; everything transport-shaped lives
// here. Storage and presentation beyond this shell belong to external
// collaborators.

// Server hosts the engine over HTTP.
type Server struct {
	cfg     *config.Config
	log     *zap.Logger
	engine  *engine.Engine
	catalog []rightsizing.CatalogEntry
	store   *registry.SQLiteStore
	trail   audit.Trail
	limiter *middleware.RateLimiter
	http    *http.Server
}

// NewServer wires all components from the given configuration.
func NewServer(cfg *config.Config) (*Server, error) {
	log, err := logging.NewLogger(cfg)
	if err != nil {
		return nil, err
	}

	store, err := registry.OpenSQLite(cfg.Database.SQLitePath)
	if err != nil {
		return nil, fmt.Errorf("open snapshot store: %w", err)
	}

	catalog, err := rightsizing.LoadCatalog(cfg.Catalog.Path)
	if err != nil {
		store.Close()
		return nil, fmt.Errorf("load catalog: %w", err)
	}

	trail, err := audit.NewTrail(audit.Config{
		Path:       cfg.Logging.AuditLogPath,
		MaxSizeMB:  cfg.Logging.MaxSizeMB,
		MaxBackups: cfg.Logging.MaxBackups,
		MaxAgeDays: cfg.Logging.MaxAgeDays,
		Compress:   cfg.Logging.Compress,
	})
	if err != nil {
		store.Close()
		return nil, fmt.Errorf("open audit trail: %w", err)
	}

	engineCfg := engine.Config{
		Trainer: anomaly.TrainerConfig{
			MinObservations: cfg.Engine.MinTrainingObservations,
			Trees:           cfg.Engine.Trees,
			SubSample:       cfg.Engine.SubSample,
			MaxDepth:        cfg.Engine.MaxDepth,
			Contamination:   cfg.Engine.Contamination,
			TopServices:     cfg.Engine.TopServices,
			Seed:            cfg.Engine.Seed,
		},
		Matcher: rightsizing.MatcherConfig{
			Headroom:      cfg.Engine.Headroom,
			MinVCPUFloor:  cfg.Engine.MinVCPUFloor,
			HoursPerMonth: cfg.Engine.HoursPerMonth,
		},
	}

	reg := registry.New(store, log.Named("registry"))
	srv := &Server{
		cfg:     cfg,
		log:     log,
		engine:  engine.New(engineCfg, reg, log.Named("engine")),
		catalog: catalog,
		store:   store,
		trail:   trail,
	}

	mux := http.NewServeMux()
	srv.registerRoutes(mux)

	var handler http.Handler = mux
	if cfg.Server.RequestsPerMinute > 0 {
		srv.limiter = middleware.NewRateLimiter(cfg.Server.RequestsPerMinute)
		handler = srv.limiter.Wrap(handler)
	}

	srv.http = &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.Server.Port),
		Handler:      handler,
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 60 * time.Second,
	}
	return srv, nil
}

// registerRoutes attaches all endpoints.
//
//	POST /api/v1/tenants/{tenant}/train            Train a model snapshot
//	POST /api/v1/tenants/{tenant}/anomalies        Detect anomalies
//	POST /api/v1/recommendations                   Right-sizing report
//	POST /api/v1/forecast                          Near-term spend forecast
//	GET  /healthz                                  Health probe
//	GET  /metrics                                  Prometheus metrics
func (s *Server) registerRoutes(mux *http.ServeMux) {
	mux.HandleFunc("POST /api/v1/tenants/{tenant}/train", s.handleTrain)
	mux.HandleFunc("POST /api/v1/tenants/{tenant}/anomalies", s.handleDetect)
	mux.HandleFunc("POST /api/v1/recommendations", s.handleRecommend)
	mux.HandleFunc("POST /api/v1/forecast", s.handleForecast)
	mux.HandleFunc("GET /healthz", s.handleHealth)
	mux.Handle("GET /metrics", promhttp.Handler())
}

// Start begins serving in a background goroutine.
func (s *Server) Start() error {
	s.log.Info("server starting", zap.Int("port", s.cfg.Server.Port))
	s.trail.Record(audit.NewEvent(audit.EventServerStarted))
	go func() {
		if err := s.http.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			s.log.Error("http server failed", zap.Error(err))
		}
	}()
	return nil
}

// Stop shuts the server down gracefully.
func (s *Server) Stop() error {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	s.trail.Record(audit.NewEvent(audit.EventServerShutdown))

	err := s.http.Shutdown(ctx)
	if s.limiter != nil {
		s.limiter.Stop()
	}
	if closeErr := s.trail.Close(); err == nil {
		err = closeErr
	}
	if closeErr := s.store.Close(); err == nil {
		err = closeErr
	}
	s.log.Sync()
	return err
}
