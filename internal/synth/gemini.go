package synth

import (
	"context"
	"errors"
	"fmt"

	"google.golang.org/genai"
)

// googleBackend implements Synthesizer using the Google GenAI SDK. Gemini
// image models respond with multimodal candidates; the first inline-data
// part is the image.
type googleBackend struct {
	client *genai.Client
}

func newGoogleBackend(apiKey string) (*googleBackend, error) {
	if apiKey == "" {
		return nil, errors.New("GEMINI_API_KEY is required for Gemini image models")
	}
	client, err := genai.NewClient(context.Background(), &genai.ClientConfig{
		APIKey:  apiKey,
		Backend: genai.BackendGeminiAPI,
	})
	if err != nil {
		return nil, fmt.Errorf("create genai client: %w", err)
	}
	return &googleBackend{client: client}, nil
}

func (b *googleBackend) Synthesize(ctx context.Context, req Request) ([]byte, error) {
	cfg := &genai.GenerateContentConfig{
		ResponseModalities: []string{"IMAGE"},
		ImageConfig:        &genai.ImageConfig{AspectRatio: geminiAspectRatios[req.Size]},
	}

	resp, err := b.client.Models.GenerateContent(ctx, req.Model, genai.Text(req.Prompt), cfg)
	if err != nil {
		return nil, err
	}

	for _, cand := range resp.Candidates {
		if cand.Content == nil {
			continue
		}
		for _, part := range cand.Content.Parts {
			if part.InlineData != nil && len(part.InlineData.Data) > 0 {
				return part.InlineData.Data, nil
			}
		}
	}
	return nil, ErrNoImage
}
