package engine

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"math/rand/v2"
	"os"
	"path/filepath"
	"time"

	"github.com/diagenlab/diagen/internal/imgutil"
	"github.com/diagenlab/diagen/internal/model"
)

// maxReferenceDim caps reference images before they are embedded into
// multimodal prompts.
const maxReferenceDim = 1024

// Selector classifies briefs and samples matching reference diagrams from
// the static catalog in refsDir.
type Selector struct {
	model      ModelClient
	prompts    Prompts
	refsDir    string
	sampleSize int
	rng        *rand.Rand
}

// SelectorOption configures a Selector.
type SelectorOption func(*Selector)

// WithRand injects the random source used for sampling, making selection
// reproducible in tests.
func WithRand(rng *rand.Rand) SelectorOption {
	return func(s *Selector) { s.rng = rng }
}

// NewSelector creates a Selector reading the catalog from refsDir.
func NewSelector(mc ModelClient, prompts Prompts, refsDir string, sampleSize int, opts ...SelectorOption) *Selector {
	s := &Selector{
		model:      mc,
		prompts:    prompts,
		refsDir:    refsDir,
		sampleSize: sampleSize,
		rng:        rand.New(rand.NewPCG(uint64(time.Now().UnixNano()), 0)),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// SelectReferences classifies the brief and returns up to sampleSize
// matching references with their images attached, plus the classified
// category. Classification failure is fatal; a missing reference image is
// logged and skipped.
func (s *Selector) SelectReferences(ctx context.Context, brief string) ([]model.Reference, string, error) {
	category, err := s.classify(ctx, brief)
	if err != nil {
		return nil, "", fmt.Errorf("classify brief: %w", err)
	}

	catalog, err := s.loadCatalog()
	if err != nil {
		return nil, "", fmt.Errorf("load reference catalog: %w", err)
	}

	matching := make([]model.Reference, 0, len(catalog))
	for _, r := range catalog {
		if r.Category == category {
			matching = append(matching, r)
		}
	}
	if len(matching) == 0 {
		slog.Warn("no references for category, falling back to full catalog", "category", category)
		matching = catalog
	}

	selected := s.sample(matching)

	for i := range selected {
		path := filepath.Join(s.refsDir, selected[i].File)
		b64, err := imgutil.EncodeReferenceBase64(path, maxReferenceDim)
		if err != nil {
			// A reference without an image still carries category signal.
			slog.Warn("reference image unavailable", "path", path, "error", err)
			continue
		}
		selected[i].ImageBase64 = b64
	}

	slog.Info("selected references", "count", len(selected), "category", category)
	return selected, category, nil
}

// classify runs the single classification call and validates the label.
func (s *Selector) classify(ctx context.Context, brief string) (string, error) {
	label, err := s.model.Complete(ctx, s.prompts.buildClassify(brief))
	if err != nil {
		return "", err
	}

	category, ok := model.NormalizeCategory(label)
	if !ok {
		slog.Warn("classifier returned invalid category, using default",
			"label", label, "default", category)
	} else {
		slog.Info("brief classified", "category", category)
	}
	return category, nil
}

// loadCatalog reads refs.json from the references directory.
func (s *Selector) loadCatalog() ([]model.Reference, error) {
	raw, err := os.ReadFile(filepath.Join(s.refsDir, "refs.json"))
	if err != nil {
		return nil, err
	}
	var refs []model.Reference
	if err := json.Unmarshal(raw, &refs); err != nil {
		return nil, fmt.Errorf("parse refs.json: %w", err)
	}
	return refs, nil
}

// sample draws min(sampleSize, len(set)) entries uniformly without
// replacement. The input slice is not mutated.
func (s *Selector) sample(set []model.Reference) []model.Reference {
	n := min(s.sampleSize, len(set))
	out := make([]model.Reference, 0, n)
	for _, idx := range s.rng.Perm(len(set))[:n] {
		out = append(out, set[idx])
	}
	return out
}
