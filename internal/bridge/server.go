// Package bridge exposes the fill pipeline over HTTP for a plugin UI. The
// UI owns the document selection, so node trees travel in request bodies and
// mutated trees travel back in responses.
package bridge

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/fpt/layerfill/internal/pipeline"
	"github.com/fpt/layerfill/pkg/client/ollama"
	pkgLogger "github.com/fpt/layerfill/pkg/logger"
)

// Server is the HTTP bridge between a plugin UI and the pipeline. Settings
// are read and written through the pipeline's locked accessors so handlers
// stay safe against a concurrent run's write-back.
type Server struct {
	router   chi.Router
	pipeline *pipeline.Pipeline
	client   *ollama.Client
	log      *pkgLogger.Logger
}

// NewServer creates and configures the bridge server.
func NewServer(p *pipeline.Pipeline, client *ollama.Client, log *pkgLogger.Logger) *Server {
	s := &Server{
		pipeline: p,
		client:   client,
		log:      log,
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

	r.Get("/health", s.handleHealth)

	r.Route("/api", func(r chi.Router) {
		r.Post("/init", s.handleInit)
		r.Post("/run", s.handleRun)
		r.Post("/preview", s.handlePreview)
		r.Get("/models", s.handleModels)
		r.Get("/connection", s.handleConnection)
		r.Get("/settings", s.handleGetSettings)
		r.Put("/settings", s.handlePutSettings)
	})

	s.router = r
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	w.Write([]byte(`{"status":"ok"}`))
}
