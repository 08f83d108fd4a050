package model

import "time"

// Run status constants
const (
	StatusQueued  = "QUEUED"
	StatusRunning = "RUNNING"
	StatusDone    = "DONE"
	StatusFailed  = "FAILED"
)

// Run represents one pipeline invocation as stored in the run history.
type Run struct {
	ID             string   `json:"id"`
	Brief          string   `json:"brief"`
	SlideFormat    string   `json:"slide_format"`
	ImageModel     string   `json:"image_model"`
	MaxRounds      int      `json:"max_rounds"`
	Status         string   `json:"status"`
	Category       *string  `json:"category,omitempty"`
	RoundsTaken    *int     `json:"rounds_taken,omitempty"`
	Approved       *bool    `json:"approved,omitempty"`
	ImagePath      *string  `json:"image_path,omitempty"`
	RunDir         *string  `json:"run_dir,omitempty"`
	ElapsedSeconds *float64 `json:"elapsed_seconds,omitempty"`
	ErrorInfo      *string  `json:"error_info,omitempty"`
	CreatedAt      string   `json:"created_at"`
	UpdatedAt      string   `json:"updated_at"`
}

// RunFilter holds query parameters for listing runs.
type RunFilter struct {
	Status []string
	Limit  int
}

// NewRun creates a Run with QUEUED status.
func NewRun(id, brief, slideFormat, imageModel string, maxRounds int) Run {
	now := time.Now().UTC().Format(time.RFC3339)
	return Run{
		ID:          id,
		Brief:       brief,
		SlideFormat: slideFormat,
		ImageModel:  imageModel,
		MaxRounds:   maxRounds,
		Status:      StatusQueued,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
}

// PipelineResult is the caller-facing outcome of one pipeline run.
// Immutable once returned.
type PipelineResult struct {
	ImageBytes  []byte `json:"-"`
	ImagePath   string `json:"image_path"`
	RoundsTaken int    `json:"rounds_taken"`
	Approved    bool   `json:"approved"`
	RunDir      string `json:"run_dir"`
}

// RunMetadata is the audit record written at the end of every run.
type RunMetadata struct {
	Brief          string  `json:"brief"`
	Category       string  `json:"category"`
	NumReferences  int     `json:"num_references"`
	LLMModel       string  `json:"llm_model"`
	ImageModel     string  `json:"image_model"`
	RoundsTaken    int     `json:"rounds_taken"`
	Approved       bool    `json:"approved"`
	Timestamp      string  `json:"timestamp"`
	ElapsedSeconds float64 `json:"elapsed_seconds"`
}
