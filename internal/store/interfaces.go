package store

import (
	"context"

	"github.com/diagenlab/diagen/internal/model"
)

// RunReader provides read access to the run history.
type RunReader interface {
	GetRun(ctx context.Context, id string) (*model.Run, error)
	ListRuns(ctx context.Context, f model.RunFilter) ([]model.Run, error)
}

// RunWriter provides write access to runs.
type RunWriter interface {
	CreateRun(ctx context.Context, run model.Run) error
	UpdateRunStatus(ctx context.Context, id, newStatus string, errorInfo *string) error
	CompleteRun(ctx context.Context, id string, c RunCompletion) error
}

// RunClaimer provides atomic claim operations for background processing.
type RunClaimer interface {
	ClaimNextQueued(ctx context.Context) (*model.Run, error)
	ResetStaleRunning(ctx context.Context) (int64, error)
}

// RunCompletion carries the final fields written when a run finishes.
type RunCompletion struct {
	Category       string
	RoundsTaken    int
	Approved       bool
	ImagePath      string
	RunDir         string
	ElapsedSeconds float64
}

// RunRepository combines all run operations for the API layer.
type RunRepository interface {
	RunReader
	RunWriter
	RunClaimer
}
