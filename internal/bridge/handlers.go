package bridge

import (
	"encoding/json"
	"net/http"

	"github.com/fpt/layerfill/internal/config"
	"github.com/fpt/layerfill/internal/pipeline"
	"github.com/fpt/layerfill/internal/redact"
	"github.com/fpt/layerfill/pkg/document"
)

// maxBodyBytes bounds request bodies; design documents are small.
const maxBodyBytes = 8 << 20

type initRequest struct {
	Nodes []*document.Node `json:"nodes"`
}

type runRequest struct {
	Context string           `json:"context"`
	Nodes   []*document.Node `json:"nodes"`
}

type runResponse struct {
	pipeline.Outcome
	Nodes []*document.Node `json:"nodes"`
}

type previewRequest struct {
	Context string           `json:"context"`
	Data    map[string]any   `json:"data,omitempty"`
	Nodes   []*document.Node `json:"nodes"`
}

func (s *Server) handleInit(w http.ResponseWriter, r *http.Request) {
	var req initRequest
	if !s.decode(w, r, &req) {
		return
	}
	writeJSON(w, http.StatusOK, s.pipeline.Init(req.Nodes...))
}

func (s *Server) handleRun(w http.ResponseWriter, r *http.Request) {
	var req runRequest
	if !s.decode(w, r, &req) {
		return
	}

	outcome, err := s.pipeline.Run(r.Context(), req.Context, req.Nodes...)
	if err != nil {
		s.log.Warn("run failed", "error", err)
		// The outcome already carries the redacted error; the UI renders
		// it either way, so the status code is the only difference.
		writeJSON(w, http.StatusBadGateway, runResponse{Outcome: outcome, Nodes: req.Nodes})
		return
	}

	writeJSON(w, http.StatusOK, runResponse{Outcome: outcome, Nodes: req.Nodes})
}

func (s *Server) handlePreview(w http.ResponseWriter, r *http.Request) {
	var req previewRequest
	if !s.decode(w, r, &req) {
		return
	}

	// With data supplied the preview is a pure dry run; without it, content
	// is generated first.
	if req.Data != nil {
		writeJSON(w, http.StatusOK, s.pipeline.PreviewWith(req.Data, req.Nodes...))
		return
	}

	preview, err := s.pipeline.Preview(r.Context(), req.Context, req.Nodes...)
	if err != nil {
		jsonError(w, redact.Error(err), http.StatusBadGateway)
		return
	}
	writeJSON(w, http.StatusOK, preview)
}

func (s *Server) handleModels(w http.ResponseWriter, r *http.Request) {
	models := s.client.ListModels(r.Context(), s.pipeline.Settings().Endpoint)
	writeJSON(w, http.StatusOK, map[string]any{"models": models})
}

func (s *Server) handleConnection(w http.ResponseWriter, r *http.Request) {
	ok := s.client.TestConnection(r.Context(), s.pipeline.Settings().Endpoint)
	writeJSON(w, http.StatusOK, map[string]any{"connected": ok})
}

func (s *Server) handleGetSettings(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, s.pipeline.Settings())
}

func (s *Server) handlePutSettings(w http.ResponseWriter, r *http.Request) {
	var incoming config.Settings
	if !s.decode(w, r, &incoming) {
		return
	}

	// A record that would be discarded wholesale on the next load is
	// rejected here instead of persisted.
	updated, err := s.pipeline.UpdateSettings(func(st *config.Settings) error {
		st.Endpoint = incoming.Endpoint
		st.Model = incoming.Model
		st.Temperature = incoming.Temperature
		st.NucleusP = incoming.NucleusP
		return st.Validate()
	})
	if err != nil {
		jsonError(w, "invalid settings: "+redact.Error(err), http.StatusBadRequest)
		return
	}
	writeJSON(w, http.StatusOK, updated)
}

func (s *Server) decode(w http.ResponseWriter, r *http.Request, v any) bool {
	r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		jsonError(w, "invalid request body: "+err.Error(), http.StatusBadRequest)
		return false
	}
	return true
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func jsonError(w http.ResponseWriter, msg string, status int) {
	writeJSON(w, status, map[string]string{"error": msg})
}
