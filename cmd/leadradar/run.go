package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
)

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Run every role once and exit",
	Long:  "Fetches signals for each configured role, classifies them and stores new leads, then prints how many were saved.",
	RunE:  runPipeline,
}

func init() {
	rootCmd.AddCommand(runCmd)
}

func runPipeline(cmd *cobra.Command, args []string) error {
	logger := setupLogger(debug)

	cfg, err := loadConfig(cfgPath)
	if err != nil {
		logger.Error("failed to load config", "error", err)
		os.Exit(1)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	history, err := setupStore(ctx, cfg, logger)
	if err != nil {
		logger.Error("failed to open store", "error", err)
		os.Exit(1)
	}
	defer history.Close()

	httpClient := newHTTPClient()
	provider, closeProvider, err := setupProvider(ctx, cfg, httpClient, logger)
	if err != nil {
		logger.Error("failed to set up classifier", "error", err)
		os.Exit(1)
	}
	defer closeProvider()

	p, err := buildPipeline(cfg, setupSource(cfg, httpClient, logger), provider, history, setupNotifier(cfg, httpClient, logger), logger)
	if err != nil {
		logger.Error("failed to build pipeline", "error", err)
		os.Exit(1)
	}

	leads, err := p.RunOnce(ctx)
	if err != nil {
		logger.Warn("run interrupted", "error", err)
	}

	fmt.Printf("Pipeline complete: %d leads saved\n", len(leads))
	return nil
}
