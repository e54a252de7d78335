package web

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chiMiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/rs/zerolog"

	"github.com/kozaktomas/photo-booth/internal/booth"
	"github.com/kozaktomas/photo-booth/internal/web/handlers"
	"github.com/kozaktomas/photo-booth/internal/web/middleware"
)

// Deps are the collaborators the HTTP API is built on. Cloud and Helper may
// be nil when the corresponding print path is not configured.
type Deps struct {
	Registry *booth.Registry
	Ingestor handlers.PhotoSubmitter
	Cloud    handlers.StatusChecker
	Helper   handlers.PrinterLister
	// Origins are the browser origins allowed to call the API.
	Origins []string
	Log     zerolog.Logger
}

// Server represents the web server
type Server struct {
	deps       Deps
	router     *chi.Mux
	httpServer *http.Server
	log        zerolog.Logger
}

// NewServer creates a new web server
func NewServer(deps Deps, port int, host string) *Server {
	r := chi.NewRouter()

	s := &Server{
		deps:   deps,
		router: r,
		log:    deps.Log.With().Str("component", "web").Logger(),
	}

	// Set up middleware stack
	r.Use(chiMiddleware.RequestID)
	r.Use(chiMiddleware.RealIP)
	r.Use(chiMiddleware.Logger)
	r.Use(chiMiddleware.Recoverer)
	r.Use(middleware.CORS(deps.Origins))
	r.Use(middleware.SecurityHeaders())

	s.setupRoutes()

	// Create HTTP server
	s.httpServer = &http.Server{
		Addr:        fmt.Sprintf("%s:%d", host, port),
		Handler:     r,
		ReadTimeout: 30 * time.Second,
		// No write timeout: template event streams stay open.
		IdleTimeout: 60 * time.Second,
	}

	return s
}

// Start starts the HTTP server
func (s *Server) Start() error {
	s.log.Info().Str("addr", s.httpServer.Addr).Msg("Starting web server")
	if err := s.httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return fmt.Errorf("failed to start server: %w", err)
	}
	return nil
}

// Shutdown closes every open template, which ends their event streams, and
// then shuts the server down.
func (s *Server) Shutdown(ctx context.Context) error {
	s.log.Info().Msg("Shutting down web server")

	if s.deps.Registry != nil {
		s.deps.Registry.CloseAll()
	}

	if err := s.httpServer.Shutdown(ctx); err != nil {
		return fmt.Errorf("shutting down server: %w", err)
	}
	return nil
}

// Router returns the chi router for testing
func (s *Server) Router() *chi.Mux {
	return s.router
}
