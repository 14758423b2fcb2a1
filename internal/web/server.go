// Package web serves the admin surface: a table index, one page per table
// instance, and a small JSON API over the same operations.
package web

import (
	"context"
	"io"
	"log/slog"
	"math"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/frameless-media/datatables/internal/engine"
	"github.com/frameless-media/datatables/internal/host"
)

// Server is the admin HTTP server.
type Server struct {
	engine    *engine.Engine
	instances host.InstanceStore
	logger    *slog.Logger
	router    *chi.Mux
	server    *http.Server
	perPage   int
}

// NewServer wires the engine and instance store into a router. perPage <= 0
// falls back to the engine default.
func NewServer(eng *engine.Engine, instances host.InstanceStore, logger *slog.Logger, perPage int) *Server {
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, &slog.HandlerOptions{Level: slog.Level(math.MaxInt)}))
	}
	if perPage <= 0 {
		perPage = engine.DefaultPerPage
	}
	s := &Server{
		engine:    eng,
		instances: instances,
		logger:    logger,
		router:    chi.NewRouter(),
		perPage:   perPage,
	}
	s.setupMiddleware()
	s.setupRoutes()
	return s
}

func (s *Server) setupMiddleware() {
	s.router.Use(middleware.RequestID)
	s.router.Use(middleware.RealIP)
	s.router.Use(middleware.Recoverer)
	s.router.Use(middleware.Timeout(30 * time.Second))
}

func (s *Server) setupRoutes() {
	s.router.Get("/", func(w http.ResponseWriter, r *http.Request) {
		http.Redirect(w, r, "/tables", http.StatusFound)
	})
	s.router.Get("/tables", s.handleIndex)
	s.router.Get("/tables/{name}", s.handleTable)

	s.router.Route("/api", func(r chi.Router) {
		r.Get("/tables", s.handleListJSON)
		r.Get("/tables/{name}", s.handleTableJSON)
	})
}

// Handler exposes the router, mainly for tests.
func (s *Server) Handler() http.Handler { return s.router }

// Start begins serving on addr and blocks until the server stops.
func (s *Server) Start(addr string) error {
	s.server = &http.Server{
		Addr:         addr,
		Handler:      s.router,
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 30 * time.Second,
	}
	s.logger.Info("admin server listening", "addr", addr)
	return s.server.ListenAndServe()
}

// Shutdown gracefully stops the server.
func (s *Server) Shutdown(ctx context.Context) error {
	if s.server == nil {
		return nil
	}
	return s.server.Shutdown(ctx)
}
