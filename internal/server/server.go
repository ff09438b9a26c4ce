/*
Copyright (C) 2026 Friends Incode

SPDX-License-Identifier: AGPL-3.0-or-later
*/

package server

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/rs/zerolog"

	"github.com/gisete/carbon-sub000/internal/api"
	"github.com/gisete/carbon-sub000/internal/capture"
	"github.com/gisete/carbon-sub000/internal/config"
	"github.com/gisete/carbon-sub000/internal/history"
	"github.com/gisete/carbon-sub000/internal/models"
	"github.com/gisete/carbon-sub000/internal/playout"
	"github.com/gisete/carbon-sub000/internal/render"
	"github.com/gisete/carbon-sub000/internal/scheduling"
	"github.com/gisete/carbon-sub000/internal/storage"
	"github.com/gisete/carbon-sub000/internal/telemetry"
)

const (
	// historyRetention bounds how much telemetry the prune worker keeps.
	historyRetention = 30 * 24 * time.Hour
	pruneInterval    = 24 * time.Hour
)

// Server bundles HTTP and supporting services.
type Server struct {
	cfg        *config.Config
	logger     zerolog.Logger
	router     chi.Router
	httpServer *http.Server
	closers    []func() error

	api      *api.API
	director *playout.Director
	metrics  *telemetry.Metrics
	history  *history.Service
	producer *capture.BrowserProducer

	bgCancel context.CancelFunc
	bgWG     sync.WaitGroup
}

// New constructs the server and wires dependencies.
func New(cfg *config.Config, logger zerolog.Logger) (*Server, error) {
	router := chi.NewRouter()
	router.Use(middleware.RequestID)
	router.Use(middleware.RealIP)
	router.Use(middleware.Recoverer)
	router.Use(securityHeadersMiddleware)
	router.Use(middleware.Timeout(60 * time.Second))

	srv := &Server{
		cfg:    cfg,
		logger: logger,
		router: router,
	}

	if err := srv.initDependencies(); err != nil {
		return nil, err
	}

	srv.configureRoutes()
	srv.startBackgroundWorkers()

	addr := fmt.Sprintf("%s:%d", cfg.HTTPBind, cfg.HTTPPort)
	srv.httpServer = &http.Server{
		Addr:              addr,
		Handler:           srv.router,
		ReadHeaderTimeout: 15 * time.Second,
		ReadTimeout:       30 * time.Second,
		WriteTimeout:      60 * time.Second,
		IdleTimeout:       60 * time.Second,
	}

	return srv, nil
}

func securityHeadersMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("X-Content-Type-Options", "nosniff")
		w.Header().Set("X-Frame-Options", "DENY")
		w.Header().Set("Referrer-Policy", "strict-origin-when-cross-origin")
		next.ServeHTTP(w, r)
	})
}

func (s *Server) initDependencies() error {
	if err := os.MkdirAll(s.cfg.DataDir, 0o755); err != nil {
		return fmt.Errorf("create data dir %s: %w", s.cfg.DataDir, err)
	}
	s.logger.Info().Str("path", s.cfg.DataDir).Msg("data directory ready")

	settings := storage.NewStore(
		filepath.Join(s.cfg.DataDir, "settings.json"), models.DefaultSettings, s.logger)
	playlists := storage.NewStore(
		filepath.Join(s.cfg.DataDir, "playlists.json"),
		func() models.PlaylistCollection { return models.PlaylistCollection{} }, s.logger)
	states := storage.NewStore(
		filepath.Join(s.cfg.DataDir, "director.json"),
		func() models.DirectorState { return models.DirectorState{} }, s.logger)

	s.metrics = telemetry.NewMetrics()
	s.director = playout.NewDirector(states, playlists, settings, s.logger)

	hist, err := history.Open(filepath.Join(s.cfg.DataDir, "history.db"), s.logger)
	if err != nil {
		return err
	}
	s.history = hist
	s.DeferClose(hist.Close)

	// Every item switch, scheduled or forced, lands in the rotation log
	// and the advance counter.
	s.director.OnSwitch(func(playlistID, itemID string, cycleIndex int, forced bool, at time.Time) {
		s.metrics.RotationAdvances.Inc()
		hist.RecordRotation(playlistID, itemID, cycleIndex, forced, at)
	})

	renderBase := s.cfg.RenderBaseURL
	if renderBase == "" {
		// Default to the process's own listener: the browser captures the
		// render pages this server serves.
		renderBase = fmt.Sprintf("http://127.0.0.1:%d", s.cfg.HTTPPort)
	}
	s.producer = capture.NewBrowserProducer(capture.Config{
		RenderBaseURL: renderBase,
		Timeout:       s.cfg.CaptureTimeout(),
	}, s.logger)
	s.DeferClose(s.producer.Close)

	generator := render.NewGenerator(s.producer, s.metrics, s.cfg.CaptureMaxAge(), s.logger)
	validator := scheduling.NewValidator(s.logger)

	s.api = api.New(settings, playlists, s.director, generator, validator, hist, s.metrics, s.logger)
	return nil
}

func (s *Server) configureRoutes() {
	s.api.Routes(s.router)
	s.router.Handle("/metrics", s.metrics.Handler())
	s.router.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})
}

func (s *Server) startBackgroundWorkers() {
	ctx, cancel := context.WithCancel(context.Background())
	s.bgCancel = cancel

	s.bgWG.Add(1)
	go func() {
		defer s.bgWG.Done()
		s.runHistoryPruner(ctx)
	}()
}

// runHistoryPruner trims device telemetry past the retention window.
func (s *Server) runHistoryPruner(ctx context.Context) {
	ticker := time.NewTicker(pruneInterval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if err := s.history.Prune(time.Now().Add(-historyRetention)); err != nil {
				s.logger.Warn().Err(err).Msg("history prune failed")
			}
		}
	}
}

func (s *Server) stopBackgroundWorkers() {
	if s.bgCancel != nil {
		s.bgCancel()
	}
	s.bgWG.Wait()
}

// Run serves HTTP until the listener fails or Shutdown is called.
func (s *Server) Run() error {
	s.logger.Info().Str("addr", s.httpServer.Addr).Msg("http server listening")
	if err := s.httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

// Shutdown drains in-flight requests, then releases owned resources.
func (s *Server) Shutdown(ctx context.Context) error {
	err := s.httpServer.Shutdown(ctx)
	if cerr := s.Close(); err == nil {
		err = cerr
	}
	return err
}

// Close releases owned resources in reverse order.
func (s *Server) Close() error {
	s.stopBackgroundWorkers()
	var firstErr error
	for i := len(s.closers) - 1; i >= 0; i-- {
		if err := s.closers[i](); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	return firstErr
}

// DeferClose registers a cleanup hook.
func (s *Server) DeferClose(fn func() error) {
	s.closers = append(s.closers, fn)
}

// HTTPServer exposes the underlying listener, mainly for tests.
func (s *Server) HTTPServer() *http.Server {
	return s.httpServer
}
