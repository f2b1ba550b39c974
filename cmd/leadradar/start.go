package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/amishk599/leadradar/internal/scheduler"
)

var startCmd = &cobra.Command{
	Use:   "start",
	Short: "Start the polling daemon",
	Long:  "Runs every role on polling_interval; blocks until SIGINT/SIGTERM.",
	RunE:  runStart,
}

func init() {
	rootCmd.AddCommand(startCmd)
}

func runStart(cmd *cobra.Command, args []string) error {
	logger := setupLogger(debug)

	cfg, err := loadConfig(cfgPath)
	if err != nil {
		logger.Error("failed to load config", "error", err)
		os.Exit(1)
	}

	logger.Info("config loaded",
		"interval", cfg.PollingInterval.String(),
		"roles", len(cfg.Roles),
		"provider", cfg.AI.Provider,
		"store", cfg.Store.Driver,
		"mode", cfg.Pipeline.Mode,
		"concurrency", cfg.Pipeline.Concurrency,
	)

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

	sched := scheduler.NewScheduler(p, cfg.PollingInterval, logger)
	if err := sched.Run(ctx); err != nil {
		logger.Error("scheduler error", "error", err)
		os.Exit(1)
	}

	logger.Info("goodbye")
	return nil
}
