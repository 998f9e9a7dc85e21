// Package server provides the HTTP API for noteseek.
package server

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"go.uber.org/zap"

	"github.com/notable-labs/noteseek/internal/config"
	"github.com/notable-labs/noteseek/internal/service"
)

// Server is the HTTP server for the noteseek API.
type Server struct {
	svc    *service.Service
	config *config.ServerConfig
	logger *zap.Logger
	server *http.Server
}

// NewServer creates a server over the given service.
func NewServer(svc *service.Service, cfg *config.ServerConfig, logger *zap.Logger) *Server {
	return &Server{svc: svc, config: cfg, logger: logger}
}

// Start starts the HTTP server and blocks until it stops.
func (s *Server) Start() error {
	addr := fmt.Sprintf("%s:%d", s.config.Host, s.config.Port)
	s.server = &http.Server{
		Addr:    addr,
		Handler: s.routes(),
	}
	s.logger.Info("Starting server", zap.String("addr", addr))
	return s.server.ListenAndServe()
}

func (s *Server) routes() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.Recoverer)
	r.Use(middleware.Timeout(120 * time.Second))
	r.Use(middleware.Compress(5))

	r.Post("/api/v1/search", s.handleSearch)
	r.Post("/api/v1/search/documents", s.handleSearchDocuments)
	r.Post("/api/v1/related", s.handleRelated)
	r.Get("/api/v1/graph", s.handleGraph)
	r.Get("/api/v1/stats", s.handleStats)
	r.Post("/api/v1/reindex", s.handleReindex)
	r.Put("/api/v1/documents/{id}", s.handleIndexDocument)
	r.Delete("/api/v1/documents/{id}", s.handleDeleteDocument)
	r.Post("/api/v1/external/bookmark", s.handleIndexBookmark)
	r.Post("/api/v1/external/file", s.handleIndexFile)
	r.Post("/api/v1/external/folder", s.handleIndexFolder)
	r.Post("/api/v1/external/reindex", s.handleReindexExternal)
	r.Get("/api/v1/external/snapshot", s.handleSnapshot)
	r.Get("/health", s.handleHealth)
	return r
}

// Stop gracefully shuts down the server.
func (s *Server) Stop(ctx context.Context) error {
	if s.server != nil {
		return s.server.Shutdown(ctx)
	}
	return nil
}
