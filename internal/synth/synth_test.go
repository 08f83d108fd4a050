package synth

import (
	"bytes"
	"context"
	"errors"
	"image"
	"image/color"
	"image/jpeg"
	"image/png"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/diagenlab/diagen/internal/model"
)

func TestLookup(t *testing.T) {
	for _, id := range []string{"gpt-image-1", "dall-e-3", "gemini-2.5-flash-image"} {
		info, ok := Lookup(id)
		require.True(t, ok, "model %s must be registered", id)
		assert.Equal(t, id, info.ID)
		assert.NotEmpty(t, info.Label)
	}

	_, ok := Lookup("foo-model-9")
	assert.False(t, ok)
}

func TestModels_ReturnsACopy(t *testing.T) {
	ms := Models()
	require.Len(t, ms, 3)
	ms[0].ID = "mutated"

	again := Models()
	assert.Equal(t, "gpt-image-1", again[0].ID, "mutating the returned slice must not affect the registry")
}

func TestParseSizeAndQuality_FallBackOnUnknown(t *testing.T) {
	assert.Equal(t, SizeSquare, ParseSize("1024x1024"))
	assert.Equal(t, SizeLandscape, ParseSize("banana"))
	assert.Equal(t, SizeLandscape, ParseSize(""))

	assert.Equal(t, QualityMedium, ParseQuality("medium"))
	assert.Equal(t, QualityHigh, ParseQuality("ultra"))
	assert.Equal(t, QualityHigh, ParseQuality(""))
}

func TestMapOpenAIParams(t *testing.T) {
	tests := []struct {
		name    string
		modelID string
		size    Size
		quality Quality
		want    openaiParams
	}{
		{
			name:    "gpt-image-1 passes generic values through",
			modelID: "gpt-image-1",
			size:    SizeLandscape,
			quality: QualityHigh,
			want:    openaiParams{size: "1536x1024", quality: "high"},
		},
		{
			name:    "dall-e-3 landscape high maps to 1792x1024 hd",
			modelID: "dall-e-3",
			size:    SizeLandscape,
			quality: QualityHigh,
			want:    openaiParams{size: "1792x1024", quality: "hd", wantsB64Flag: true},
		},
		{
			name:    "dall-e-3 portrait medium maps to 1024x1792 standard",
			modelID: "dall-e-3",
			size:    SizePortrait,
			quality: QualityMedium,
			want:    openaiParams{size: "1024x1792", quality: "standard", wantsB64Flag: true},
		},
		{
			name:    "dall-e-3 square low maps to 1024x1024 standard",
			modelID: "dall-e-3",
			size:    SizeSquare,
			quality: QualityLow,
			want:    openaiParams{size: "1024x1024", quality: "standard", wantsB64Flag: true},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, mapOpenAIParams(tt.modelID, tt.size, tt.quality))
		})
	}
}

func TestGeminiAspectRatios_CoverEverySize(t *testing.T) {
	for _, s := range []Size{SizeSquare, SizePortrait, SizeLandscape} {
		assert.NotEmpty(t, geminiAspectRatios[s], "size %s has no aspect ratio mapping", s)
	}
}

// recordingSynth captures the request and returns fixed image bytes.
type recordingSynth struct {
	lastReq Request
	out     []byte
	err     error
}

func (s *recordingSynth) Synthesize(_ context.Context, req Request) ([]byte, error) {
	s.lastReq = req
	if s.err != nil {
		return nil, s.err
	}
	return s.out, nil
}

func encodeTestImage(t *testing.T, encode func(*bytes.Buffer, image.Image) error) []byte {
	t.Helper()
	img := image.NewRGBA(image.Rect(0, 0, 4, 4))
	for y := 0; y < 4; y++ {
		for x := 0; x < 4; x++ {
			img.Set(x, y, color.RGBA{R: 200, G: 100, B: 50, A: 255})
		}
	}
	var buf bytes.Buffer
	require.NoError(t, encode(&buf, img))
	return buf.Bytes()
}

func TestRouter_UnknownModelRejectedBeforeBackend(t *testing.T) {
	stub := &recordingSynth{out: []byte("never used")}
	r := NewRouter(RouterConfig{}, WithSynthesizer(ProviderOpenAI, stub))

	_, err := r.Generate(context.Background(), "a diagram", "foo-model-9")
	require.ErrorIs(t, err, model.ErrUnknownImageModel)
	assert.Empty(t, stub.lastReq.Model, "backend must not be called for unknown models")
}

func TestRouter_PrependsSystemPromptAndPassesSettings(t *testing.T) {
	stub := &recordingSynth{out: encodeTestImage(t, func(b *bytes.Buffer, m image.Image) error {
		return png.Encode(b, m)
	})}
	r := NewRouter(RouterConfig{
		Size:         SizeSquare,
		Quality:      QualityMedium,
		SystemPrompt: "Flat vector style.",
	}, WithSynthesizer(ProviderOpenAI, stub))

	_, err := r.Generate(context.Background(), "a funnel with three stages", "gpt-image-1")
	require.NoError(t, err)

	assert.Equal(t, "gpt-image-1", stub.lastReq.Model)
	assert.Equal(t, "Flat vector style.\n\na funnel with three stages", stub.lastReq.Prompt)
	assert.Equal(t, SizeSquare, stub.lastReq.Size)
	assert.Equal(t, QualityMedium, stub.lastReq.Quality)
}

func TestRouter_NormalizesJPEGToPNG(t *testing.T) {
	jpegBytes := encodeTestImage(t, func(b *bytes.Buffer, m image.Image) error {
		return jpeg.Encode(b, m, nil)
	})
	stub := &recordingSynth{out: jpegBytes}
	r := NewRouter(RouterConfig{}, WithSynthesizer(ProviderGoogle, stub))

	out, err := r.Generate(context.Background(), "a diagram", "gemini-2.5-flash-image")
	require.NoError(t, err)

	decoded, format, err := image.Decode(bytes.NewReader(out))
	require.NoError(t, err)
	assert.Equal(t, "png", format)
	assert.Equal(t, 4, decoded.Bounds().Dx())
}

func TestRouter_WrapsBackendErrorWithProvider(t *testing.T) {
	stub := &recordingSynth{err: errors.New("quota exceeded")}
	r := NewRouter(RouterConfig{}, WithSynthesizer(ProviderOpenAI, stub))

	_, err := r.Generate(context.Background(), "a diagram", "dall-e-3")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "openai")
	assert.Contains(t, err.Error(), "quota exceeded")
}

func TestRouter_NoImageErrorPassesThrough(t *testing.T) {
	stub := &recordingSynth{err: ErrNoImage}
	r := NewRouter(RouterConfig{}, WithSynthesizer(ProviderGoogle, stub))

	_, err := r.Generate(context.Background(), "a diagram", "gemini-2.5-flash-image")
	assert.ErrorIs(t, err, ErrNoImage)
}

func TestRouter_MissingCredentialsNotCached(t *testing.T) {
	r := NewRouter(RouterConfig{})

	// Construction fails while no key is configured.
	_, err := r.Generate(context.Background(), "a diagram", "gpt-image-1")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "OPENAI_API_KEY")

	// Installing a backend afterward must succeed: the failure was not
	// cached as a permanent dead backend.
	stub := &recordingSynth{out: encodeTestImage(t, func(b *bytes.Buffer, m image.Image) error {
		return png.Encode(b, m)
	})}
	WithSynthesizer(ProviderOpenAI, stub)(r)

	_, err = r.Generate(context.Background(), "a diagram", "gpt-image-1")
	assert.NoError(t, err)
}

func TestStubSynthesizer_ProducesDecodablePNG(t *testing.T) {
	stub := &StubSynthesizer{}
	out, err := stub.Synthesize(context.Background(), Request{
		Model:  "gpt-image-1",
		Prompt: "anything",
		Size:   SizeLandscape,
	})
	require.NoError(t, err)

	img, format, err := image.Decode(bytes.NewReader(out))
	require.NoError(t, err)
	assert.Equal(t, "png", format)
	assert.Equal(t, 1536/8, img.Bounds().Dx())
	assert.Equal(t, 1024/8, img.Bounds().Dy())
}
