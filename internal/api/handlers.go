package api

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"path/filepath"
	"strings"
	"time"

	"github.com/diagenlab/diagen/internal/engine"
	"github.com/diagenlab/diagen/internal/imgutil"
	"github.com/diagenlab/diagen/internal/model"
	"github.com/diagenlab/diagen/internal/recorder"
	"github.com/diagenlab/diagen/internal/store"
	"github.com/diagenlab/diagen/internal/synth"
	"github.com/google/uuid"
)

// ---------------------------------------------------------------------------
// GET /api/image-models, GET /api/slide-formats
// ---------------------------------------------------------------------------

func (s *Server) handleImageModels(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, synth.Models())
}

func (s *Server) handleSlideFormats(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, imgutil.SlideFormats())
}

// ---------------------------------------------------------------------------
// POST /api/generate — synchronous pipeline invocation
// ---------------------------------------------------------------------------

type generateRequest struct {
	Brief       string `json:"brief"`
	SlideFormat string `json:"slide_format"`
	ImageModel  string `json:"image_model"`
	MaxRounds   int    `json:"max_rounds"`
}

// validate rejects bad input before any external call is made.
func (req *generateRequest) validate() string {
	if strings.TrimSpace(req.Brief) == "" {
		return "Brief is required."
	}
	if req.ImageModel != "" {
		if _, ok := synth.Lookup(req.ImageModel); !ok {
			return "Unknown image model: " + req.ImageModel
		}
	}
	if req.SlideFormat != "" && !imgutil.ValidSlideFormat(req.SlideFormat) {
		return "Unknown slide format: " + req.SlideFormat
	}
	return ""
}

func (s *Server) handleGenerate(w http.ResponseWriter, r *http.Request) {
	var req generateRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}
	if msg := req.validate(); msg != "" {
		writeError(w, http.StatusBadRequest, msg)
		return
	}

	run := model.NewRun(uuid.New().String(), strings.TrimSpace(req.Brief),
		orDefault(req.SlideFormat, imgutil.SlideFormatOriginal), req.ImageModel, req.MaxRounds)
	run.Status = model.StatusRunning
	if err := s.store.CreateRun(r.Context(), run); err != nil {
		slog.Error("failed to record run", "error", err)
	}

	// Run-history bookkeeping must land even when the client disconnects
	// mid-pipeline, or the row stays RUNNING until the next restart.
	bookCtx := context.WithoutCancel(r.Context())

	started := time.Now()
	result, err := s.generator.Generate(r.Context(), engine.GenerateRequest{
		Brief:       req.Brief,
		MaxRounds:   req.MaxRounds,
		SlideFormat: req.SlideFormat,
		ImageModel:  req.ImageModel,
	})
	if err != nil {
		s.recordFailure(bookCtx, run.ID, err)
		if errors.Is(err, model.ErrEmptyBrief) || errors.Is(err, model.ErrUnknownImageModel) {
			writeError(w, http.StatusBadRequest, err.Error())
			return
		}
		slog.Error("pipeline failed", "run_id", run.ID, "error", err)
		writeError(w, http.StatusInternalServerError, "Pipeline failed. Check server logs.")
		return
	}

	if err := s.store.CompleteRun(bookCtx, run.ID, store.RunCompletion{
		Category:       readCategory(result.RunDir),
		RoundsTaken:    result.RoundsTaken,
		Approved:       result.Approved,
		ImagePath:      result.ImagePath,
		RunDir:         result.RunDir,
		ElapsedSeconds: time.Since(started).Seconds(),
	}); err != nil {
		slog.Error("failed to complete run record", "run_id", run.ID, "error", err)
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"run_id":       run.ID,
		"image_url":    s.imageURL(result.ImagePath),
		"rounds_taken": result.RoundsTaken,
		"approved":     result.Approved,
		"run_dir":      result.RunDir,
	})
}

func (s *Server) recordFailure(ctx context.Context, runID string, err error) {
	info := model.ErrorInfo{
		FailedStep: stepName(err),
		Message:    err.Error(),
		FailedAt:   time.Now().UTC().Format(time.RFC3339),
	}
	errJSON := info.ToJSON()
	if sErr := s.store.UpdateRunStatus(ctx, runID, model.StatusFailed, &errJSON); sErr != nil {
		slog.Error("failed to record run failure", "run_id", runID, "error", sErr)
	}
}

// readCategory pulls the classified category from the run's metadata record,
// keeping sync-path history rows consistent with worker-processed ones.
func readCategory(runDir string) string {
	md, err := recorder.ReadMetadata(runDir)
	if err != nil {
		return ""
	}
	return md.Category
}

func stepName(err error) string {
	var se *engine.StepError
	if errors.As(err, &se) {
		return se.StepName()
	}
	return "validation"
}

// imageURL converts an absolute artifact path into a /output/ URL.
func (s *Server) imageURL(imagePath string) string {
	rel, err := filepath.Rel(s.outputDir, imagePath)
	if err != nil {
		return ""
	}
	return "/output/" + filepath.ToSlash(rel)
}

// ---------------------------------------------------------------------------
// POST /api/runs — enqueue for background processing
// ---------------------------------------------------------------------------

func (s *Server) handleEnqueueRun(w http.ResponseWriter, r *http.Request) {
	var req generateRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}
	if msg := req.validate(); msg != "" {
		writeError(w, http.StatusBadRequest, msg)
		return
	}

	run := model.NewRun(uuid.New().String(), strings.TrimSpace(req.Brief),
		orDefault(req.SlideFormat, imgutil.SlideFormatOriginal), req.ImageModel, req.MaxRounds)
	if err := s.store.CreateRun(r.Context(), run); err != nil {
		writeError(w, http.StatusInternalServerError, "failed to enqueue run")
		return
	}

	writeJSON(w, http.StatusCreated, map[string]string{
		"id":     run.ID,
		"status": run.Status,
	})
}

// ---------------------------------------------------------------------------
// GET /api/runs, GET /api/runs/{id}
// ---------------------------------------------------------------------------

func (s *Server) handleListRuns(w http.ResponseWriter, r *http.Request) {
	filter := model.RunFilter{
		Status: splitComma(r.URL.Query().Get("status")),
	}
	runs, err := s.store.ListRuns(r.Context(), filter)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "failed to list runs")
		return
	}
	writeJSON(w, http.StatusOK, runs)
}

func (s *Server) handleGetRun(w http.ResponseWriter, r *http.Request) {
	run, err := s.store.GetRun(r.Context(), r.PathValue("id"))
	if err != nil {
		writeError(w, http.StatusInternalServerError, "failed to get run")
		return
	}
	if run == nil {
		writeError(w, http.StatusNotFound, "run not found")
		return
	}
	resp := map[string]any{"run": run}
	if run.ImagePath != nil {
		resp["image_url"] = s.imageURL(*run.ImagePath)
	}
	writeJSON(w, http.StatusOK, resp)
}

func orDefault(v, fallback string) string {
	if v == "" {
		return fallback
	}
	return v
}

func splitComma(s string) []string {
	if s == "" {
		return nil
	}
	parts := strings.Split(s, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		p = strings.TrimSpace(p)
		if p != "" {
			out = append(out, p)
		}
	}
	return out
}
