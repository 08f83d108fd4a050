// Package synth routes image-synthesis requests to interchangeable backends.
// A static registry maps model identifiers to providers; each provider's
// client is constructed lazily on first use, and every backend's output is
// normalized to PNG so downstream code never branches on provider.
package synth

import "errors"

// Provider identifies a synthesis backend implementation.
type Provider string

const (
	ProviderOpenAI Provider = "openai"
	ProviderGoogle Provider = "google"
)

// ErrNoImage is returned when a backend responds without any image data
// (e.g. a multimodal response containing only text). It is distinct from
// auth/quota errors because the recovery differs: the round-based retry of
// the refinement loop is the right response, not an immediate re-call.
var ErrNoImage = errors.New("backend returned no image data")

// ModelInfo describes one registered image model.
type ModelInfo struct {
	ID       string   `json:"id"`
	Label    string   `json:"label"`
	Provider Provider `json:"provider"`
}

// registry is the closed set of image models the router can dispatch to.
var registry = []ModelInfo{
	{ID: "gpt-image-1", Label: "GPT Image 1 (OpenAI)", Provider: ProviderOpenAI},
	{ID: "dall-e-3", Label: "DALL-E 3 (OpenAI)", Provider: ProviderOpenAI},
	{ID: "gemini-2.5-flash-image", Label: "Gemini 2.5 Flash (Google)", Provider: ProviderGoogle},
}

// Models returns the registered image models in a stable order.
func Models() []ModelInfo {
	out := make([]ModelInfo, len(registry))
	copy(out, registry)
	return out
}

// Lookup resolves a model identifier against the registry.
func Lookup(id string) (ModelInfo, bool) {
	for _, m := range registry {
		if m.ID == id {
			return m, true
		}
	}
	return ModelInfo{}, false
}
