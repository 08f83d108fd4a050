// Package worker executes queued diagram runs in the background, keeping
// the HTTP boundary responsive during multi-minute pipeline invocations.
package worker

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/diagenlab/diagen/internal/engine"
	"github.com/diagenlab/diagen/internal/model"
	"github.com/diagenlab/diagen/internal/recorder"
	"github.com/diagenlab/diagen/internal/store"
)

// Generator runs the pipeline for one request.
type Generator interface {
	Generate(ctx context.Context, req engine.GenerateRequest) (*model.PipelineResult, error)
}

// RunClaimer provides atomic claim and completion operations.
type RunClaimer interface {
	ClaimNextQueued(ctx context.Context) (*model.Run, error)
	UpdateRunStatus(ctx context.Context, id, newStatus string, errorInfo *string) error
	CompleteRun(ctx context.Context, id string, c store.RunCompletion) error
}

// Verify at compile time that the store satisfies the worker's contract.
var _ RunClaimer = (*store.Store)(nil)

// Worker polls for QUEUED runs and executes the pipeline.
type Worker struct {
	claimer   RunClaimer
	generator Generator
	interval  time.Duration
}

// New creates a new Worker.
func New(claimer RunClaimer, generator Generator, interval time.Duration) *Worker {
	return &Worker{claimer: claimer, generator: generator, interval: interval}
}

// Start begins the polling loop. It blocks until ctx is cancelled.
func (w *Worker) Start(ctx context.Context) {
	slog.Info("worker started", "interval", w.interval.String())
	for {
		select {
		case <-ctx.Done():
			slog.Info("worker stopped")
			return
		default:
		}

		run, err := w.claimer.ClaimNextQueued(ctx)
		if err != nil {
			slog.Error("worker claim error", "error", err)
			w.sleep(ctx)
			continue
		}
		if run == nil {
			w.sleep(ctx)
			continue
		}

		w.process(ctx, run)
	}
}

func (w *Worker) process(ctx context.Context, run *model.Run) {
	slog.Info("processing run", "run_id", run.ID, "image_model", run.ImageModel)
	started := time.Now()

	result, err := w.generator.Generate(ctx, engine.GenerateRequest{
		Brief:       run.Brief,
		MaxRounds:   run.MaxRounds,
		SlideFormat: run.SlideFormat,
		ImageModel:  run.ImageModel,
	})
	if err != nil {
		slog.Error("run failed", "run_id", run.ID, "error", err)
		errInfo := buildErrorInfo(err)
		if sErr := w.claimer.UpdateRunStatus(ctx, run.ID, model.StatusFailed, &errInfo); sErr != nil {
			slog.Error("failed to set FAILED status", "run_id", run.ID, "error", sErr)
		}
		return
	}

	err = w.claimer.CompleteRun(ctx, run.ID, store.RunCompletion{
		Category:       readCategory(result.RunDir),
		RoundsTaken:    result.RoundsTaken,
		Approved:       result.Approved,
		ImagePath:      result.ImagePath,
		RunDir:         result.RunDir,
		ElapsedSeconds: time.Since(started).Seconds(),
	})
	if err != nil {
		slog.Error("failed to complete run", "run_id", run.ID, "error", err)
		return
	}
	slog.Info("run completed", "run_id", run.ID, "rounds", result.RoundsTaken, "approved", result.Approved)
}

func (w *Worker) sleep(ctx context.Context) {
	select {
	case <-ctx.Done():
	case <-time.After(w.interval):
	}
}

// readCategory pulls the classified category out of the run's metadata
// record. Best effort: an unreadable record leaves the column empty.
func readCategory(runDir string) string {
	md, err := recorder.ReadMetadata(runDir)
	if err != nil {
		return ""
	}
	return md.Category
}

// stepNamer is implemented by errors that carry a pipeline step name.
type stepNamer interface {
	StepName() string
}

func buildErrorInfo(err error) string {
	step := "unknown"
	var sn stepNamer
	if errors.As(err, &sn) {
		step = sn.StepName()
	}
	info := model.ErrorInfo{
		FailedStep: step,
		Message:    err.Error(),
		FailedAt:   time.Now().UTC().Format(time.RFC3339),
	}
	return info.ToJSON()
}
