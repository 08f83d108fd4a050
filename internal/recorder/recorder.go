// Package recorder owns the per-run artifact directory. Each pipeline run
// writes every intermediate and final artifact under one run-scoped
// directory so a run can be reconstructed from disk alone.
package recorder

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/diagenlab/diagen/internal/imgutil"
	"github.com/diagenlab/diagen/internal/model"
	"github.com/google/uuid"
)

// Run is a handle on one run's artifact directory.
type Run struct {
	dir string
}

// NewRun creates a fresh run directory under outputDir. The name combines
// a timestamp with a short unique suffix so concurrent runs started in the
// same second never share a directory.
func NewRun(outputDir string) (*Run, error) {
	name := fmt.Sprintf("%s_%s",
		time.Now().Format("20060102_150405"),
		uuid.New().String()[:8],
	)
	dir := filepath.Join(outputDir, name)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create run dir: %w", err)
	}
	return &Run{dir: dir}, nil
}

// Dir returns the run directory path.
func (r *Run) Dir() string {
	return r.dir
}

// SaveText writes a text artifact into the run directory.
func (r *Run) SaveText(name, content string) error {
	return os.WriteFile(filepath.Join(r.dir, name), []byte(content), 0o644)
}

// SaveImage writes image bytes into the run directory and returns the path.
func (r *Run) SaveImage(name string, imageBytes []byte) (string, error) {
	return imgutil.SaveImage(imageBytes, filepath.Join(r.dir, name))
}

// WriteMetadata writes the run's final audit record as run_metadata.json.
func (r *Run) WriteMetadata(md model.RunMetadata) error {
	payload, err := json.MarshalIndent(md, "", "  ")
	if err != nil {
		return err
	}
	return r.SaveText("run_metadata.json", string(payload))
}

// ReadMetadata reads a run directory's audit record back. Callers that only
// need one field (the worker and the sync handler pull the category into the
// run history) go through here rather than re-parsing the file themselves.
func ReadMetadata(dir string) (model.RunMetadata, error) {
	raw, err := os.ReadFile(filepath.Join(dir, "run_metadata.json"))
	if err != nil {
		return model.RunMetadata{}, err
	}
	var md model.RunMetadata
	if err := json.Unmarshal(raw, &md); err != nil {
		return model.RunMetadata{}, fmt.Errorf("parse run metadata: %w", err)
	}
	return md, nil
}
