// Package config provides centralized configuration for the diagen server.
// All configurable values are loaded from environment variables with sensible
// defaults; a .env file in the working directory is read first, with real
// environment variables taking precedence.
package config

import (
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

// Config holds all server configuration values.
type Config struct {
	// Port is the HTTP server listen port.
	Port string

	// DBPath is the path to the SQLite run-history database file.
	DBPath string

	// LLMProvider selects which language-model backend drives the text
	// steps (classify, plan, style, critique): "openai" or "gemini".
	LLMProvider string

	// OpenAIKey is the API key for the OpenAI service.
	OpenAIKey string

	// OpenAIBaseURL overrides the OpenAI API endpoint (for compatible services).
	OpenAIBaseURL string

	// GeminiKey is the API key for the Google Gemini service.
	GeminiKey string

	// LLMModel is the model identifier for text completions.
	LLMModel string

	// ImageModel is the default image-synthesis model identifier.
	ImageModel string

	// ImageSize is the generic image size requested from synthesis backends.
	// Backends translate it into their own vocabulary.
	ImageSize string

	// ImageQuality is the generic quality tier: "low", "medium" or "high".
	ImageQuality string

	// MaxRefinementRounds bounds the visualizer-critic loop. Clamped to 1..10.
	MaxRefinementRounds int

	// NumReferences is how many exemplars to sample per run. Clamped to 1..20.
	NumReferences int

	// OutputDir is where run directories are created.
	OutputDir string

	// ReferencesDir holds the reference catalog (refs.json) and its images.
	ReferencesDir string

	// PromptsPath is an optional YAML file overriding the built-in prompts.
	PromptsPath string

	// WorkerInterval is the polling interval for the background run worker.
	WorkerInterval time.Duration

	// HTTPTimeout is the timeout for outgoing model API requests.
	HTTPTimeout time.Duration

	// CORSOrigin is the allowed CORS origin. Defaults to "*".
	CORSOrigin string
}

// Load reads configuration from environment variables, applying defaults.
func Load() Config {
	loadEnvFile(".env")
	return Config{
		Port:                envOr("PORT", "8080"),
		DBPath:              envOr("DB_PATH", "diagen.db"),
		LLMProvider:         envOr("LLM_PROVIDER", "openai"),
		OpenAIKey:           os.Getenv("OPENAI_API_KEY"),
		OpenAIBaseURL:       os.Getenv("OPENAI_BASE_URL"),
		GeminiKey:           os.Getenv("GEMINI_API_KEY"),
		LLMModel:            envOr("LLM_MODEL", "gpt-4o"),
		ImageModel:          envOr("IMAGE_MODEL", "gpt-image-1"),
		ImageSize:           envOr("IMAGE_SIZE", "1536x1024"),
		ImageQuality:        envOr("IMAGE_QUALITY", "high"),
		MaxRefinementRounds: clampInt(envInt("MAX_REFINEMENT_ROUNDS", 3), 1, 10),
		NumReferences:       clampInt(envInt("NUM_REFERENCES", 5), 1, 20),
		OutputDir:           envOr("OUTPUT_DIR", "output"),
		ReferencesDir:       envOr("REFERENCES_DIR", "references"),
		PromptsPath:         envOr("PROMPTS_PATH", "config/prompts.yaml"),
		WorkerInterval:      envDuration("WORKER_INTERVAL", 3*time.Second),
		HTTPTimeout:         envDuration("HTTP_TIMEOUT", 5*time.Minute),
		CORSOrigin:          envOr("CORS_ORIGIN", "*"),
	}
}

// UseStubs returns true when no API key is configured for the selected
// provider. The server then runs with stub model clients and a stub image
// backend so the pipeline stays exercisable in development.
func (c Config) UseStubs() bool {
	switch c.LLMProvider {
	case "gemini":
		return c.GeminiKey == ""
	default:
		return c.OpenAIKey == ""
	}
}

// loadEnvFile loads KEY=VALUE pairs from path into the process environment.
// godotenv never overwrites variables that are already set, so the real
// environment wins. Missing or malformed files are silently ignored.
func loadEnvFile(path string) {
	_ = godotenv.Load(path)
}

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func envDuration(key string, fallback time.Duration) time.Duration {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		return fallback
	}
	return d
}

func envInt(key string, fallback int) int {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return fallback
	}
	return n
}

func clampInt(n, min, max int) int {
	if n < min {
		return min
	}
	if n > max {
		return max
	}
	return n
}
