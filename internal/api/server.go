// Package api is the HTTP surface of the editor backend.
package api

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/dgallion1/teiedit/internal/config"
	"github.com/dgallion1/teiedit/internal/normdata"
	"github.com/dgallion1/teiedit/internal/pipeline"
	"github.com/dgallion1/teiedit/internal/preview"
	"github.com/dgallion1/teiedit/internal/store"
	"github.com/dgallion1/teiedit/internal/structure"
	"github.com/dgallion1/teiedit/internal/transform"
	"github.com/dgallion1/teiedit/internal/validation"
)

// DocumentLoader fetches stored TEI documents.
type DocumentLoader interface {
	Load(ctx context.Context, docID string) (*store.Document, error)
}

// NormdataLookup resolves authority records.
type NormdataLookup interface {
	Lookup(ctx context.Context, id string) (*normdata.Entry, error)
}

// Deps are the collaborators the handlers call. Validator, Stats and
// Normdata may be nil; the endpoints that need them then answer 503.
type Deps struct {
	Pipeline     *transform.Pipeline
	Tables       *structure.Tables
	Orchestrator *pipeline.Orchestrator
	Documents    DocumentLoader
	Validator    pipeline.Validator
	Stats        *validation.Stats
	Normdata     NormdataLookup
	Preview      *preview.Renderer
}

// Server is the HTTP API server for the editor.
type Server struct {
	router chi.Router
	deps   Deps
	log    *slog.Logger
	cfg    config.Config
}

// NewServer creates and configures the HTTP server.
func NewServer(deps Deps, log *slog.Logger, cfg config.Config) *Server {
	if deps.Tables == nil {
		deps.Tables = structure.DefaultTables()
	}
	if deps.Pipeline == nil {
		deps.Pipeline = transform.NewPipeline(transform.Config{Tables: deps.Tables, Logger: log})
	}
	if deps.Preview == nil {
		var labels preview.LabelResolver
		if l, ok := deps.Normdata.(preview.LabelResolver); ok {
			labels = l
		}
		deps.Preview = preview.New(labels, log)
	}
	s := &Server{
		deps: deps,
		log:  log,
		cfg:  cfg,
	}
	s.setupRoutes()
	return s
}

func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.router.ServeHTTP(w, r)
}

func (s *Server) setupRoutes() {
	r := chi.NewRouter()
	r.Use(middleware.Recoverer)
	r.Use(middleware.RequestID)
	r.Use(RequestLogger(s.log))

	// Public endpoints.
	r.Get("/health", s.handleHealth)

	// Authenticated endpoints.
	r.Group(func(r chi.Router) {
		r.Use(AuthMiddleware(s.cfg.EditorAPIKey, s.log))

		r.Post("/api/transform", s.handleTransform)
		r.Post("/api/serialize", s.handleSerialize)
		r.Post("/api/validate", s.handleValidate)
		r.Post("/api/preview", s.handlePreview)
		r.Post("/api/import", s.handleImport)

		r.Get("/api/documents/{docID}", s.handleGetDocument)
		r.Put("/api/documents/{docID}", s.handleSaveDocument)
		r.Get("/api/save/{jobID}/status", s.handleSaveStatus)

		r.Get("/api/normdata/{id}", s.handleNormdata)
		r.Get("/api/stats/validation", s.handleValidationStats)
	})

	s.router = r
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	w.Write([]byte(`{"status":"ok"}`))
}
