package engine

import (
	"context"

	"github.com/diagenlab/diagen/internal/model"
)

// ModelClient abstracts language-model calls. Implementations can wrap
// OpenAI, Gemini, local models, etc. Images are base64-encoded PNG.
type ModelClient interface {
	Complete(ctx context.Context, prompt string) (string, error)
	CompleteWithImages(ctx context.Context, prompt string, imagesB64 []string) (string, error)
}

// ImageRouter abstracts the image-synthesis gateway. It returns PNG bytes
// for a description rendered with the given model identifier.
type ImageRouter interface {
	Generate(ctx context.Context, description, modelID string) ([]byte, error)
}

// ReferenceSelector classifies a brief and returns matching exemplars.
type ReferenceSelector interface {
	SelectReferences(ctx context.Context, brief string) ([]model.Reference, string, error)
}

// Recorder persists a run's intermediate artifacts and final metadata.
type Recorder interface {
	Dir() string
	SaveText(name, content string) error
	SaveImage(name string, imageBytes []byte) (string, error)
	WriteMetadata(md model.RunMetadata) error
}

// StepError wraps an error with the pipeline step that failed.
type StepError struct {
	Step string
	Err  error
}

func (e *StepError) Error() string {
	return e.Step + ": " + e.Err.Error()
}

func (e *StepError) Unwrap() error {
	return e.Err
}

// StepName returns the failed step for run audit records.
func (e *StepError) StepName() string {
	return e.Step
}
