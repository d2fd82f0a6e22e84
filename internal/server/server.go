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
	"sync"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/rs/zerolog"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"

	"github.com/friendsincode/muse/internal/api"
	"github.com/friendsincode/muse/internal/config"
	"github.com/friendsincode/muse/internal/eventbus"
	"github.com/friendsincode/muse/internal/library"
	"github.com/friendsincode/muse/internal/station"
	"github.com/friendsincode/muse/internal/store"
	"github.com/friendsincode/muse/internal/telemetry"
)

// PersistInterval is how often station state is written to the history store.
const PersistInterval = time.Minute

// Server bundles HTTP and supporting services.
type Server struct {
	cfg        *config.Config
	logger     zerolog.Logger
	router     chi.Router
	httpServer *http.Server
	closers    []func() error

	station *station.Station
	bus     *eventbus.NATSBus
	lister  *library.DirLister
	api     *api.API

	bgCancel context.CancelFunc
	bgWG     sync.WaitGroup
}

// New constructs the server and wires dependencies.
func New(ctx context.Context, cfg *config.Config, logger zerolog.Logger) (*Server, error) {
	router := chi.NewRouter()

	router.Use(middleware.RequestID)
	router.Use(middleware.RealIP)
	router.Use(middleware.Recoverer)
	router.Use(securityHeadersMiddleware)
	router.Use(otelhttp.NewMiddleware("muse-api"))
	router.Use(telemetry.MetricsMiddleware(logger))
	router.Use(timeoutMiddleware(30 * time.Second))

	srv := &Server{
		cfg:    cfg,
		logger: logger,
		router: router,
		lister: library.NewDirLister(),
	}

	if err := srv.initDependencies(ctx); err != nil {
		_ = srv.Close()
		return nil, err
	}

	srv.configureRoutes()

	srv.httpServer = &http.Server{
		Addr:        cfg.HTTPAddr(),
		Handler:     router,
		ReadTimeout: 15 * time.Second,
		// WriteTimeout set to 0 so event sockets stay open.
		// timeoutMiddleware bounds every other route.
		WriteTimeout: 0,
		IdleTimeout:  60 * time.Second,
	}

	return srv, nil
}

// timeoutMiddleware applies middleware.Timeout to everything except
// websocket upgrades, which are long-lived.
func timeoutMiddleware(d time.Duration) func(http.Handler) http.Handler {
	timeout := middleware.Timeout(d)
	return func(next http.Handler) http.Handler {
		withTimeout := timeout(next)
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if r.Header.Get("Upgrade") == "websocket" {
				next.ServeHTTP(w, r)
				return
			}
			withTimeout.ServeHTTP(w, r)
		})
	}
}

func securityHeadersMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("X-Content-Type-Options", "nosniff")
		w.Header().Set("Referrer-Policy", "no-referrer")
		w.Header().Set("X-Frame-Options", "DENY")
		w.Header().Set("Content-Security-Policy", "default-src 'none'; frame-ancestors 'none'")

		if r.TLS != nil || r.Header.Get("X-Forwarded-Proto") == "https" {
			w.Header().Set("Strict-Transport-Security", "max-age=31536000; includeSubDomains")
		}

		next.ServeHTTP(w, r)
	})
}

func (s *Server) initDependencies(ctx context.Context) error {
	sources, err := config.LoadSources(s.cfg.SourcesFile)
	if err != nil {
		return fmt.Errorf("load sources: %w", err)
	}

	historyStore, closeStore, err := store.Open(ctx, s.cfg, s.logger)
	if err != nil {
		return fmt.Errorf("open history store: %w", err)
	}
	s.DeferClose(closeStore)

	natsCfg := eventbus.DefaultNATSConfig()
	natsCfg.URL = s.cfg.NATSURL
	s.bus = eventbus.NewNATSBus(natsCfg, s.logger)
	s.DeferClose(s.bus.Close)

	st, err := station.Build(ctx, station.Options{
		Sources:         sources,
		Store:           historyStore,
		Accessor:        library.NewTagAccessor(),
		Lister:          s.lister,
		Bus:             s.bus,
		HistoryCapacity: s.cfg.HistoryCapacity,
	}, s.logger)
	if err != nil {
		return fmt.Errorf("build station: %w", err)
	}
	s.station = st
	s.api = api.New(st.Master, st, s.bus, s.logger)
	return nil
}

// Station returns the assembled station.
func (s *Server) Station() *station.Station {
	return s.station
}

// Bus returns the event bus the master publishes on.
func (s *Server) Bus() *eventbus.NATSBus {
	return s.bus
}

// HTTPServer exposes the underlying net/http server.
func (s *Server) HTTPServer() *http.Server {
	return s.httpServer
}

// Close stops background work, saves station state and releases owned
// resources in reverse order.
func (s *Server) Close() error {
	s.stopBackgroundWorkers()

	var firstErr error
	if s.station != nil {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		if err := s.station.Persist(ctx); err != nil {
			s.logger.Error().Err(err).Msg("final persist failed")
			firstErr = err
		}
		cancel()
	}
	for i := len(s.closers) - 1; i >= 0; i-- {
		if err := s.closers[i](); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	s.closers = nil
	return firstErr
}

// DeferClose registers a cleanup hook.
func (s *Server) DeferClose(fn func() error) {
	s.closers = append(s.closers, fn)
}

// StartBackgroundWorkers starts the persist loop and, when enabled, the
// library watcher.
func (s *Server) StartBackgroundWorkers() error {
	if s.bgCancel != nil {
		return nil
	}
	ctx, cancel := context.WithCancel(context.Background())

	if s.cfg.WatchLibrary {
		dirs := s.station.Directories()
		if len(dirs) > 0 {
			w, err := library.NewWatcher(dirs, s.lister, s.onFileAdded, s.logger)
			if err != nil {
				cancel()
				return fmt.Errorf("start library watcher: %w", err)
			}
			s.DeferClose(w.Close)
			s.bgWG.Add(1)
			go func() {
				defer s.bgWG.Done()
				w.Run(ctx)
			}()
		}
	}

	s.bgWG.Add(1)
	go func() {
		defer s.bgWG.Done()
		s.runPersistLoop(ctx, PersistInterval)
	}()

	s.bgCancel = cancel
	return nil
}

func (s *Server) onFileAdded(ctx context.Context, path string) {
	if err := s.station.AddFile(ctx, path); err != nil {
		s.logger.Warn().Err(err).Str("path", path).Msg("could not add new file")
		return
	}
	s.logger.Info().Str("path", path).Msg("new file queued")
}

func (s *Server) runPersistLoop(ctx context.Context, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if err := s.station.Persist(ctx); err != nil && !errors.Is(err, context.Canceled) {
				s.logger.Error().Err(err).Msg("periodic persist failed")
			}
		}
	}
}

func (s *Server) stopBackgroundWorkers() {
	if s.bgCancel == nil {
		return
	}
	s.bgCancel()
	s.bgWG.Wait()
	s.bgCancel = nil
}

func (s *Server) configureRoutes() {
	s.router.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)

		response := `{"status":"ok"`
		if s.bus != nil {
			if s.bus.Connected() {
				response += `,"nats":true`
			} else {
				response += `,"nats":false`
			}
		}
		response += `}`
		_, _ = w.Write([]byte(response))
	})

	s.router.Handle("/metrics", telemetry.Handler())

	s.api.Routes(s.router)
}
