package engine

import (
	"context"
	"encoding/base64"
	"errors"
	"fmt"

	"google.golang.org/genai"
)

// GeminiClient implements ModelClient using the Google GenAI SDK.
type GeminiClient struct {
	client *genai.Client
	model  string
}

// NewGeminiClient creates a new Gemini model client.
func NewGeminiClient(ctx context.Context, apiKey, model string) (*GeminiClient, error) {
	if model == "" {
		model = "gemini-2.0-flash"
	}
	client, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:  apiKey,
		Backend: genai.BackendGeminiAPI,
	})
	if err != nil {
		return nil, fmt.Errorf("create genai client: %w", err)
	}
	return &GeminiClient{client: client, model: model}, nil
}

// Complete sends a text-only prompt and returns the response text.
func (c *GeminiClient) Complete(ctx context.Context, prompt string) (string, error) {
	resp, err := c.client.Models.GenerateContent(ctx, c.model, genai.Text(prompt), nil)
	if err != nil {
		return "", err
	}
	text := resp.Text()
	if text == "" {
		return "", errors.New("gemini: empty response")
	}
	return text, nil
}

// CompleteWithImages sends a multimodal prompt with base64 PNG attachments.
func (c *GeminiClient) CompleteWithImages(ctx context.Context, prompt string, imagesB64 []string) (string, error) {
	parts := []*genai.Part{genai.NewPartFromText(prompt)}
	for _, img := range imagesB64 {
		raw, err := base64.StdEncoding.DecodeString(img)
		if err != nil {
			return "", fmt.Errorf("decode image attachment: %w", err)
		}
		parts = append(parts, genai.NewPartFromBytes(raw, "image/png"))
	}
	contents := []*genai.Content{genai.NewContentFromParts(parts, genai.RoleUser)}

	resp, err := c.client.Models.GenerateContent(ctx, c.model, contents, nil)
	if err != nil {
		return "", err
	}
	text := resp.Text()
	if text == "" {
		return "", errors.New("gemini: empty response")
	}
	return text, nil
}
