package main

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/diagenlab/diagen/internal/api"
	"github.com/diagenlab/diagen/internal/config"
	"github.com/diagenlab/diagen/internal/store"
	"github.com/diagenlab/diagen/internal/worker"
	"github.com/spf13/cobra"
)

func newServeCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Run the diagram generation HTTP service",
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runServe(cmd.Context())
		},
	}
}

func runServe(ctx context.Context) error {
	cfg := config.Load()

	if err := os.MkdirAll(cfg.OutputDir, 0o755); err != nil {
		return fmt.Errorf("create output dir: %w", err)
	}

	db, err := store.OpenSQLite(cfg.DBPath)
	if err != nil {
		return fmt.Errorf("open db: %w", err)
	}
	defer db.Close()

	s, err := store.New(db)
	if err != nil {
		return fmt.Errorf("init store: %w", err)
	}

	// Reset runs orphaned by a previous crash.
	if n, err := s.ResetStaleRunning(ctx); err != nil {
		log.Printf("warning: reset stale running: %v", err)
	} else if n > 0 {
		log.Printf("reset %d stale RUNNING runs to QUEUED", n)
	}

	pipeline, err := buildPipeline(ctx, cfg)
	if err != nil {
		return err
	}

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	w := worker.New(s, pipeline, cfg.WorkerInterval)
	go w.Start(ctx)

	srv := api.New(s, pipeline, cfg.OutputDir, cfg.CORSOrigin)
	httpServer := &http.Server{
		Addr:    ":" + cfg.Port,
		Handler: srv.Handler(),
	}

	// Graceful shutdown.
	go func() {
		sigCh := make(chan os.Signal, 1)
		signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
		<-sigCh
		log.Println("shutting down...")
		cancel()
		httpServer.Shutdown(context.Background())
	}()

	fmt.Printf("diagen server listening on http://localhost:%s\n", cfg.Port)
	if err := httpServer.ListenAndServe(); err != http.ErrServerClosed {
		return err
	}
	return nil
}
