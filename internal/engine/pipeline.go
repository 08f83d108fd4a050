// Package engine implements the diagram generation pipeline: reference
// selection, planning, styling, and the bounded visualizer-critic
// refinement loop.
package engine

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/diagenlab/diagen/internal/imgutil"
	"github.com/diagenlab/diagen/internal/model"
	"github.com/diagenlab/diagen/internal/recorder"
	"github.com/diagenlab/diagen/internal/synth"
)

// Options holds the pipeline's run-invariant settings.
type Options struct {
	// LLMModel is recorded in run metadata; the actual client is injected.
	LLMModel string

	// DefaultImageModel is used when a request names no model.
	DefaultImageModel string

	// MaxRounds bounds the refinement loop when the request has no override.
	MaxRounds int

	// OutputDir is where per-run directories are created.
	OutputDir string
}

// GenerateRequest describes one pipeline invocation.
type GenerateRequest struct {
	Brief       string
	MaxRounds   int    // 0 means use the configured default
	SlideFormat string // "" means original
	ImageModel  string // "" means use the configured default
}

// Pipeline orchestrates one run: brief -> references -> description ->
// styled description -> refinement loop -> postprocessing.
type Pipeline struct {
	model    ModelClient
	selector ReferenceSelector
	router   ImageRouter
	prompts  Prompts
	opts     Options

	// newRecorder is swappable for tests.
	newRecorder func(outputDir string) (Recorder, error)
}

// NewPipeline creates a pipeline with the given dependencies.
func NewPipeline(mc ModelClient, selector ReferenceSelector, router ImageRouter, prompts Prompts, opts Options) *Pipeline {
	return &Pipeline{
		model:    mc,
		selector: selector,
		router:   router,
		prompts:  prompts,
		opts:     opts,
		newRecorder: func(outputDir string) (Recorder, error) {
			return recorder.NewRun(outputDir)
		},
	}
}

// maxRoundsBound caps the refinement round budget no matter where the
// value came from. Request overrides bypass the configuration clamp, so
// the bound is enforced again here.
const maxRoundsBound = 10

// loopState is the refinement loop's state machine.
type loopState int

const (
	stateGenerating loopState = iota
	stateCritiquing
	stateApproved
	stateExhausted
)

// Generate executes the full pipeline for one request. Invalid input
// (empty brief, unknown image model) is rejected before any external call;
// other failures are wrapped in a *StepError naming the failed stage.
func (p *Pipeline) Generate(ctx context.Context, req GenerateRequest) (*model.PipelineResult, error) {
	brief := strings.TrimSpace(req.Brief)
	if brief == "" {
		return nil, model.ErrEmptyBrief
	}

	imageModel := req.ImageModel
	if imageModel == "" {
		imageModel = p.opts.DefaultImageModel
	}
	if _, ok := synth.Lookup(imageModel); !ok {
		return nil, fmt.Errorf("%w: %s", model.ErrUnknownImageModel, imageModel)
	}

	maxRounds := req.MaxRounds
	if maxRounds <= 0 {
		maxRounds = p.opts.MaxRounds
	}
	if maxRounds > maxRoundsBound {
		slog.Warn("max rounds override exceeds bound, clamping",
			"requested", maxRounds, "bound", maxRoundsBound)
		maxRounds = maxRoundsBound
	}

	slideFormat := req.SlideFormat
	if slideFormat == "" {
		slideFormat = imgutil.SlideFormatOriginal
	}

	start := time.Now()
	rec, err := p.newRecorder(p.opts.OutputDir)
	if err != nil {
		return nil, &StepError{Step: "run_dir", Err: err}
	}

	slog.Info("pipeline started", "run_dir", rec.Dir(), "image_model", imageModel,
		"max_rounds", maxRounds, "brief", truncate(brief, 100))

	// Phase 1: linear planning.

	refs, category, err := p.selector.SelectReferences(ctx, brief)
	if err != nil {
		return nil, &StepError{Step: "retriever", Err: err}
	}
	p.saveReferenceMeta(rec, refs)

	description, err := p.createDescription(ctx, brief, refs)
	if err != nil {
		return nil, &StepError{Step: "planner", Err: err}
	}
	if err := rec.SaveText("02_planner_description.md", description); err != nil {
		return nil, &StepError{Step: "planner", Err: err}
	}

	styled, err := p.applyStyle(ctx, description, category)
	if err != nil {
		return nil, &StepError{Step: "stylist", Err: err}
	}
	if err := rec.SaveText("03_stylist_description.md", styled); err != nil {
		return nil, &StepError{Step: "stylist", Err: err}
	}

	// Phase 2: refinement loop. Exactly one description is live entering
	// each generating state; round artifacts are recorded before the
	// transition is decided so a crash mid-loop leaves a full audit trail.

	current := styled
	var finalImage []byte
	round := 0
	state := stateGenerating

	for state == stateGenerating || state == stateCritiquing {
		switch state {
		case stateGenerating:
			round++
			slog.Info("visualizer round", "round", round, "max_rounds", maxRounds)

			img, err := p.router.Generate(ctx, current, imageModel)
			if err != nil {
				return nil, &StepError{Step: fmt.Sprintf("visualizer_round_%d", round), Err: err}
			}
			if _, err := rec.SaveImage(fmt.Sprintf("04_round_%d_image.png", round), img); err != nil {
				return nil, &StepError{Step: fmt.Sprintf("visualizer_round_%d", round), Err: err}
			}
			finalImage = img
			state = stateCritiquing

		case stateCritiquing:
			slog.Info("critic round", "round", round, "max_rounds", maxRounds)

			verdict, err := p.critique(ctx, finalImage, brief, current, round, maxRounds)
			if err != nil {
				return nil, &StepError{Step: fmt.Sprintf("critic_round_%d", round), Err: err}
			}
			p.saveCritique(rec, round, verdict)

			switch {
			case verdict.Approved:
				slog.Info("image approved", "round", round)
				state = stateApproved
			case round >= maxRounds:
				state = stateExhausted
			default:
				if verdict.HasRevision() {
					current = verdict.RevisedDescription
				} else {
					// Regenerate from the unchanged description; image
					// synthesis is stochastic enough that the next attempt
					// can still differ.
					slog.Warn("critique carried no revised description, keeping current", "round", round)
				}
				state = stateGenerating
			}
		}
	}

	approved := state == stateApproved
	if !approved {
		slog.Warn("round budget exhausted without approval, using last image", "rounds", round)
	}

	// Final outputs.

	if slideFormat != imgutil.SlideFormatOriginal {
		if _, err := rec.SaveImage("final_raw.png", finalImage); err != nil {
			return nil, &StepError{Step: "postprocess", Err: err}
		}
		adapted, err := imgutil.AdaptForSlides(finalImage, slideFormat)
		if err != nil {
			return nil, &StepError{Step: "postprocess", Err: err}
		}
		finalImage = adapted
	}

	finalPath, err := rec.SaveImage("final.png", finalImage)
	if err != nil {
		return nil, &StepError{Step: "save_final", Err: err}
	}

	elapsed := time.Since(start)
	md := model.RunMetadata{
		Brief:          brief,
		Category:       category,
		NumReferences:  len(refs),
		LLMModel:       p.opts.LLMModel,
		ImageModel:     imageModel,
		RoundsTaken:    round,
		Approved:       approved,
		Timestamp:      time.Now().UTC().Format(time.RFC3339),
		ElapsedSeconds: elapsed.Round(10 * time.Millisecond).Seconds(),
	}
	if err := rec.WriteMetadata(md); err != nil {
		slog.Error("failed to write run metadata", "run_dir", rec.Dir(), "error", err)
	}

	slog.Info("pipeline completed", "rounds", round, "approved", approved,
		"elapsed", elapsed.Round(100*time.Millisecond).String())

	return &model.PipelineResult{
		ImageBytes:  finalImage,
		ImagePath:   finalPath,
		RoundsTaken: round,
		Approved:    approved,
		RunDir:      rec.Dir(),
	}, nil
}

// saveReferenceMeta records the selected references without their image
// payloads. Best effort: a failed artifact write should not kill the run.
func (p *Pipeline) saveReferenceMeta(rec Recorder, refs []model.Reference) {
	meta := make([]model.Reference, len(refs))
	for i, r := range refs {
		meta[i] = model.Reference{Category: r.Category, File: r.File}
	}
	payload, _ := json.MarshalIndent(meta, "", "  ")
	if err := rec.SaveText("01_retriever_refs.json", string(payload)); err != nil {
		slog.Error("failed to save reference metadata", "error", err)
	}
}

// saveCritique records a round's verdict before the loop transition.
func (p *Pipeline) saveCritique(rec Recorder, round int, v model.CritiqueVerdict) {
	content := "APPROVED"
	if !v.Approved {
		content = v.Summary
		if v.RevisedDescription != "" {
			content += "\n\n---\n\n" + v.RevisedDescription
		}
	}
	if err := rec.SaveText(fmt.Sprintf("04_round_%d_critique.md", round), content); err != nil {
		slog.Error("failed to save critique artifact", "round", round, "error", err)
	}
}
