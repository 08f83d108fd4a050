package main

import (
	"context"
	"log"

	"github.com/diagenlab/diagen/internal/config"
	"github.com/diagenlab/diagen/internal/engine"
	"github.com/diagenlab/diagen/internal/synth"
)

// buildPipeline assembles the pipeline from configuration. With no API key
// for the selected provider it falls back to stub clients so the whole
// pipeline stays runnable in development.
func buildPipeline(ctx context.Context, cfg config.Config) (*engine.Pipeline, error) {
	prompts, err := engine.LoadPrompts(cfg.PromptsPath)
	if err != nil {
		return nil, err
	}

	var (
		mc         engine.ModelClient
		routerOpts []synth.RouterOption
	)
	if cfg.UseStubs() {
		log.Println("no API key configured, using stub clients")
		mc = &engine.StubModelClient{}
		stub := &synth.StubSynthesizer{}
		routerOpts = append(routerOpts,
			synth.WithSynthesizer(synth.ProviderOpenAI, stub),
			synth.WithSynthesizer(synth.ProviderGoogle, stub),
		)
	} else if cfg.LLMProvider == "gemini" {
		log.Println("using Gemini model client")
		mc, err = engine.NewGeminiClient(ctx, cfg.GeminiKey, cfg.LLMModel)
		if err != nil {
			return nil, err
		}
	} else {
		log.Println("using OpenAI model client")
		mc = engine.NewOpenAIClient(cfg.OpenAIKey,
			engine.WithModel(cfg.LLMModel),
			engine.WithBaseURL(cfg.OpenAIBaseURL),
		)
	}

	router := synth.NewRouter(synth.RouterConfig{
		OpenAIKey:     cfg.OpenAIKey,
		OpenAIBaseURL: cfg.OpenAIBaseURL,
		GeminiKey:     cfg.GeminiKey,
		Size:          synth.ParseSize(cfg.ImageSize),
		Quality:       synth.ParseQuality(cfg.ImageQuality),
		SystemPrompt:  prompts.VisualizerSystem,
	}, routerOpts...)

	selector := engine.NewSelector(mc, prompts, cfg.ReferencesDir, cfg.NumReferences)

	return engine.NewPipeline(mc, selector, router, prompts, engine.Options{
		LLMModel:          cfg.LLMModel,
		DefaultImageModel: cfg.ImageModel,
		MaxRounds:         cfg.MaxRefinementRounds,
		OutputDir:         cfg.OutputDir,
	}), nil
}
