// Package api exposes the diagram pipeline over HTTP.
package api

import (
	"context"
	"encoding/json"
	"net/http"
	"strings"

	"github.com/diagenlab/diagen/internal/engine"
	"github.com/diagenlab/diagen/internal/model"
	"github.com/diagenlab/diagen/internal/store"
)

// maxRequestBody is the maximum allowed request body size (1 MB).
const maxRequestBody int64 = 1 << 20

// Generator runs the pipeline for one request.
type Generator interface {
	Generate(ctx context.Context, req engine.GenerateRequest) (*model.PipelineResult, error)
}

// Server holds the HTTP handlers and dependencies.
type Server struct {
	store      store.RunRepository
	generator  Generator
	outputDir  string
	corsOrigin string
	mux        *http.ServeMux
}

// New creates a new API server serving generated images from outputDir.
func New(s store.RunRepository, g Generator, outputDir, corsOrigin string) *Server {
	srv := &Server{
		store:      s,
		generator:  g,
		outputDir:  outputDir,
		corsOrigin: corsOrigin,
		mux:        http.NewServeMux(),
	}
	srv.routes()
	return srv
}

// Handler returns the root http.Handler with middleware applied.
func (s *Server) Handler() http.Handler {
	return s.corsMiddleware(limitBody(jsonContent(s.mux)))
}

func (s *Server) routes() {
	s.mux.HandleFunc("GET /api/image-models", s.handleImageModels)
	s.mux.HandleFunc("GET /api/slide-formats", s.handleSlideFormats)
	s.mux.HandleFunc("POST /api/generate", s.handleGenerate)
	s.mux.HandleFunc("POST /api/runs", s.handleEnqueueRun)
	s.mux.HandleFunc("GET /api/runs", s.handleListRuns)
	s.mux.HandleFunc("GET /api/runs/{id}", s.handleGetRun)

	// Generated images are served straight from the output directory.
	s.mux.Handle("GET /output/", http.StripPrefix("/output/",
		http.FileServer(http.Dir(s.outputDir))))
}

// ---------------------------------------------------------------------------
// Middleware
// ---------------------------------------------------------------------------

func (s *Server) corsMiddleware(next http.Handler) http.Handler {
	origin := s.corsOrigin
	if origin == "" {
		origin = "*"
	}
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", origin)
		w.Header().Set("Access-Control-Allow-Methods", "GET, POST, OPTIONS")
		w.Header().Set("Access-Control-Allow-Headers", "Content-Type, Authorization")
		if r.Method == http.MethodOptions {
			w.WriteHeader(http.StatusNoContent)
			return
		}
		next.ServeHTTP(w, r)
	})
}

// limitBody restricts the request body to maxRequestBody bytes.
func limitBody(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		r.Body = http.MaxBytesReader(w, r.Body, maxRequestBody)
		next.ServeHTTP(w, r)
	})
}

// jsonContent marks API responses as JSON; static image responses keep the
// content type the file server infers.
func jsonContent(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if strings.HasPrefix(r.URL.Path, "/api/") {
			w.Header().Set("Content-Type", "application/json")
		}
		next.ServeHTTP(w, r)
	})
}

// ---------------------------------------------------------------------------
// Response helpers
// ---------------------------------------------------------------------------

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}
