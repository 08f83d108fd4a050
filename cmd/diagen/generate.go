package main

import (
	"fmt"
	"os"
	"strings"

	"github.com/diagenlab/diagen/internal/config"
	"github.com/diagenlab/diagen/internal/engine"
	"github.com/spf13/cobra"
)

func newGenerateCmd() *cobra.Command {
	var (
		rounds      int
		slideFormat string
		imageModel  string
		outPath     string
	)

	cmd := &cobra.Command{
		Use:   "generate <brief>",
		Short: "Run the pipeline once and print the final image path",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg := config.Load()
			pipeline, err := buildPipeline(cmd.Context(), cfg)
			if err != nil {
				return err
			}

			result, err := pipeline.Generate(cmd.Context(), engine.GenerateRequest{
				Brief:       strings.Join(args, " "),
				MaxRounds:   rounds,
				SlideFormat: slideFormat,
				ImageModel:  imageModel,
			})
			if err != nil {
				return err
			}

			if outPath != "" {
				if err := os.WriteFile(outPath, result.ImageBytes, 0o644); err != nil {
					return fmt.Errorf("write %s: %w", outPath, err)
				}
				fmt.Printf("copied:   %s\n", outPath)
			}

			fmt.Printf("image:    %s\n", result.ImagePath)
			fmt.Printf("rounds:   %d\n", result.RoundsTaken)
			fmt.Printf("approved: %v\n", result.Approved)
			fmt.Printf("run dir:  %s\n", result.RunDir)
			return nil
		},
	}

	cmd.Flags().IntVar(&rounds, "rounds", 0, "override max refinement rounds (default from env)")
	cmd.Flags().StringVar(&slideFormat, "format", "", "slide format preset (default: original)")
	cmd.Flags().StringVar(&imageModel, "image-model", "", "image model identifier (default from env)")
	cmd.Flags().StringVar(&outPath, "out", "", "also copy the final image to this path")
	return cmd
}
