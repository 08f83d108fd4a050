package engine

import (
	"context"
	"encoding/base64"
	"fmt"

	"github.com/diagenlab/diagen/internal/model"
)

// ---------------------------------------------------------------------------
// Planner: brief + references -> visual description
// ---------------------------------------------------------------------------

func (p *Pipeline) createDescription(ctx context.Context, brief string, refs []model.Reference) (string, error) {
	images := make([]string, 0, len(refs))
	for _, r := range refs {
		if r.ImageBase64 != "" {
			images = append(images, r.ImageBase64)
		}
	}

	description, err := p.model.CompleteWithImages(ctx, p.prompts.buildPlanner(brief), images)
	if err != nil {
		return "", err
	}
	if description == "" {
		return "", fmt.Errorf("planner returned empty description")
	}
	return description, nil
}

// ---------------------------------------------------------------------------
// Stylist: description + category -> styled description
// ---------------------------------------------------------------------------

func (p *Pipeline) applyStyle(ctx context.Context, description, category string) (string, error) {
	styled, err := p.model.Complete(ctx, p.prompts.buildStylist(description, category))
	if err != nil {
		return "", err
	}
	if styled == "" {
		return "", fmt.Errorf("stylist returned empty description")
	}
	return styled, nil
}

// ---------------------------------------------------------------------------
// Critic: image + brief + description -> verdict
// ---------------------------------------------------------------------------

func (p *Pipeline) critique(ctx context.Context, imagePNG []byte, brief, description string, round, maxRounds int) (model.CritiqueVerdict, error) {
	prompt := p.prompts.buildCritic(brief, description, round, maxRounds)
	imageB64 := base64.StdEncoding.EncodeToString(imagePNG)

	raw, err := p.model.CompleteWithImages(ctx, prompt, []string{imageB64})
	if err != nil {
		return model.CritiqueVerdict{}, err
	}
	return ParseCritique(raw), nil
}
