// Package server wires the admission gateway and the toolkit handlers into
// an HTTP server with recovery, logging and API key middleware.
package server

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/ternarybob/arbor"

	mediakit "github.com/mediakit/mediakit-go"
	"github.com/mediakit/mediakit-go/internal/handlers"
)

// Server manages the HTTP server and routes.
type Server struct {
	cfg      mediakit.Config
	logger   arbor.ILogger
	engine   *mediakit.Engine
	toolkit  *handlers.ToolkitHandler
	media    *handlers.MediaHandler
	filesDir string

	router *http.ServeMux
	server *http.Server
	routes []routeInfo
}

type routeInfo struct {
	Method string `json:"method"`
	Path   string `json:"path"`
}

// New creates a new HTTP server.
func New(cfg mediakit.Config, logger arbor.ILogger, engine *mediakit.Engine, toolkit *handlers.ToolkitHandler, media *handlers.MediaHandler, filesDir string) *Server {
	s := &Server{
		cfg:      cfg,
		logger:   logger,
		engine:   engine,
		toolkit:  toolkit,
		media:    media,
		filesDir: filesDir,
	}
	s.router = s.setupRoutes()

	addr := fmt.Sprintf("%s:%d", cfg.Host, cfg.Port)
	s.server = &http.Server{
		Addr:         addr,
		Handler:      s.withMiddleware(s.router),
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Minute, // long-running bypass operations respond inline
		IdleTimeout:  60 * time.Second,
	}
	return s
}

// Start starts the HTTP server and blocks until shutdown.
func (s *Server) Start() error {
	s.logger.Info().
		Str("address", s.server.Addr).
		Str("build", mediakit.BuildNumber).
		Msg("HTTP server starting")

	if err := s.server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return fmt.Errorf("server failed: %w", err)
	}
	return nil
}

// Shutdown gracefully shuts down the server.
func (s *Server) Shutdown(ctx context.Context) error {
	s.logger.Info().Msg("Shutting down HTTP server")
	if err := s.server.Shutdown(ctx); err != nil {
		return fmt.Errorf("server shutdown failed: %w", err)
	}
	return nil
}
