package synth

import (
	"context"
	"encoding/base64"
	"errors"
	"fmt"

	openai "github.com/openai/openai-go"
	"github.com/openai/openai-go/option"
)

// openaiBackend implements Synthesizer using the OpenAI Images API. It
// serves both gpt-image-1 and dall-e-3; the two differ in accepted size and
// quality vocabularies, handled by mapOpenAIParams.
type openaiBackend struct {
	opts []option.RequestOption
}

func newOpenAIBackend(apiKey, baseURL string) (*openaiBackend, error) {
	if apiKey == "" {
		return nil, errors.New("OPENAI_API_KEY is required for OpenAI image models")
	}
	opts := []option.RequestOption{option.WithAPIKey(apiKey)}
	if baseURL != "" {
		opts = append(opts, option.WithBaseURL(baseURL))
	}
	return &openaiBackend{opts: opts}, nil
}

func (b *openaiBackend) Synthesize(ctx context.Context, req Request) ([]byte, error) {
	client := openai.NewClient(b.opts...)
	mapped := mapOpenAIParams(req.Model, req.Size, req.Quality)

	params := openai.ImageGenerateParams{
		Model:   openai.ImageModel(req.Model),
		Prompt:  req.Prompt,
		Size:    openai.ImageGenerateParamsSize(mapped.size),
		Quality: openai.ImageGenerateParamsQuality(mapped.quality),
		N:       openai.Int(1),
	}
	if mapped.wantsB64Flag {
		params.ResponseFormat = openai.ImageGenerateParamsResponseFormatB64JSON
	}

	resp, err := client.Images.Generate(ctx, params)
	if err != nil {
		return nil, err
	}
	if len(resp.Data) == 0 || resp.Data[0].B64JSON == "" {
		return nil, ErrNoImage
	}

	raw, err := base64.StdEncoding.DecodeString(resp.Data[0].B64JSON)
	if err != nil {
		return nil, fmt.Errorf("decode image payload: %w", err)
	}
	return raw, nil
}
