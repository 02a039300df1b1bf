// Package server provides the HTTP API for the city guide.
package server

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"go.uber.org/zap"

	"github.com/mwidera/cityguide/internal/config"
	"github.com/mwidera/cityguide/internal/indexer"
	"github.com/mwidera/cityguide/internal/llm"
	"github.com/mwidera/cityguide/internal/pipeline"
	"github.com/mwidera/cityguide/internal/storage"
	"github.com/mwidera/cityguide/internal/vector"
)

// Server is the HTTP server for the city guide API.
type Server struct {
	pipeline  *pipeline.Pipeline
	indexer   *indexer.Indexer
	storage   storage.Storage
	index     vector.Index
	generator llm.Generator
	config    *config.Config
	logger    *zap.Logger
	server    *http.Server
}

// NewServer creates a server with the given dependencies.
func NewServer(
	p *pipeline.Pipeline,
	idx *indexer.Indexer,
	store storage.Storage,
	vidx vector.Index,
	generator llm.Generator,
	cfg *config.Config,
	logger *zap.Logger,
) *Server {
	return &Server{
		pipeline:  p,
		indexer:   idx,
		storage:   store,
		index:     vidx,
		generator: generator,
		config:    cfg,
		logger:    logger,
	}
}

// Router builds the chi router with all routes and middleware.
func (s *Server) Router() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)
	r.Use(middleware.Timeout(5 * time.Minute))
	r.Use(middleware.Compress(5))

	r.Post("/api/v1/ask", s.handleAsk)
	r.Get("/api/v1/categories", s.handleCategories)
	r.Get("/api/v1/status", s.handleStatus)
	r.Post("/api/v1/index", s.handleReindex)
	r.Get("/health", s.handleHealth)

	return r
}

// Start starts the HTTP server and blocks until it stops.
func (s *Server) Start() error {
	addr := fmt.Sprintf("%s:%d", s.config.Server.Host, s.config.Server.Port)
	s.server = &http.Server{
		Addr:    addr,
		Handler: s.Router(),
	}
	s.logger.Info("Starting server", zap.String("addr", addr))
	return s.server.ListenAndServe()
}

// Stop gracefully shuts down the server.
func (s *Server) Stop(ctx context.Context) error {
	if s.server != nil {
		return s.server.Shutdown(ctx)
	}
	return nil
}
