package synth

import (
	"context"
	"fmt"
	"log/slog"
	"sync"

	"github.com/diagenlab/diagen/internal/imgutil"
	"github.com/diagenlab/diagen/internal/model"
)

// Request carries one synthesis call after registry resolution.
type Request struct {
	Model   string
	Prompt  string
	Size    Size
	Quality Quality
}

// Synthesizer is implemented once per provider. Implementations return
// their native encoding; the router normalizes to PNG.
type Synthesizer interface {
	Synthesize(ctx context.Context, req Request) ([]byte, error)
}

// RouterConfig holds credentials and generic rendering settings for the
// router. Credentials are validated lazily: a missing key only surfaces
// when a model of that provider is first used.
type RouterConfig struct {
	OpenAIKey     string
	OpenAIBaseURL string
	GeminiKey     string
	Size          Size
	Quality       Quality
	// SystemPrompt is prepended to every synthesis prompt. It is fixed at
	// router construction and injected into calls rather than read from
	// shared mutable state.
	SystemPrompt string
}

// Router dispatches synthesis requests to the provider registered for the
// requested model identifier.
type Router struct {
	cfg RouterConfig

	mu       sync.Mutex
	backends map[Provider]Synthesizer
}

// RouterOption configures the Router.
type RouterOption func(*Router)

// WithSynthesizer pre-installs a backend for a provider, bypassing lazy
// client construction. Used to wire stub backends in keyless mode.
func WithSynthesizer(p Provider, s Synthesizer) RouterOption {
	return func(r *Router) { r.backends[p] = s }
}

// NewRouter creates a Router. No backend clients are constructed here.
func NewRouter(cfg RouterConfig, opts ...RouterOption) *Router {
	r := &Router{
		cfg:      cfg,
		backends: make(map[Provider]Synthesizer),
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Generate synthesizes one image for the given description using the model
// identified by modelID, returning PNG bytes. Unknown identifiers fail with
// model.ErrUnknownImageModel before any backend is touched.
func (r *Router) Generate(ctx context.Context, description, modelID string) ([]byte, error) {
	info, ok := Lookup(modelID)
	if !ok {
		return nil, fmt.Errorf("%w: %s", model.ErrUnknownImageModel, modelID)
	}

	backend, err := r.backendFor(info.Provider)
	if err != nil {
		return nil, err
	}

	slog.Info("generating image",
		"model", info.ID, "provider", info.Provider,
		"size", r.cfg.Size, "quality", r.cfg.Quality)

	prompt := description
	if r.cfg.SystemPrompt != "" {
		prompt = r.cfg.SystemPrompt + "\n\n" + description
	}

	raw, err := backend.Synthesize(ctx, Request{
		Model:   info.ID,
		Prompt:  prompt,
		Size:    r.cfg.Size,
		Quality: r.cfg.Quality,
	})
	if err != nil {
		return nil, fmt.Errorf("%s: %w", info.Provider, err)
	}

	normalized, err := imgutil.NormalizeToPNG(raw)
	if err != nil {
		return nil, fmt.Errorf("normalize %s output: %w", info.Provider, err)
	}

	slog.Info("generated image", "model", info.ID, "bytes", len(normalized))
	return normalized, nil
}

// backendFor returns the provider's client, constructing it on first use.
// Construction failures (missing credentials) are not cached so a later
// call after fixing the environment can succeed.
func (r *Router) backendFor(p Provider) (Synthesizer, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if b, ok := r.backends[p]; ok {
		return b, nil
	}

	var (
		b   Synthesizer
		err error
	)
	switch p {
	case ProviderOpenAI:
		b, err = newOpenAIBackend(r.cfg.OpenAIKey, r.cfg.OpenAIBaseURL)
	case ProviderGoogle:
		b, err = newGoogleBackend(r.cfg.GeminiKey)
	default:
		err = fmt.Errorf("no backend registered for provider %q", p)
	}
	if err != nil {
		return nil, err
	}
	r.backends[p] = b
	return b, nil
}
