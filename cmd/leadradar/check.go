package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/amishk599/leadradar/internal/model"
	"github.com/amishk599/leadradar/internal/notifier"
	"github.com/amishk599/leadradar/internal/store"
)

var (
	checkRole  string
	checkFresh bool
)

var checkCmd = &cobra.Command{
	Use:   "check",
	Short: "Run once without saving, print leads, exit",
	Long:  "Dry run: classifies signals against the stored history but never writes to the store.",
	RunE:  runCheck,
}

func init() {
	checkCmd.Flags().StringVar(&checkRole, "role", "", "only run this role")
	checkCmd.Flags().BoolVar(&checkFresh, "fresh", false, "ignore stored history (every company is new)")
	rootCmd.AddCommand(checkCmd)
}

func runCheck(cmd *cobra.Command, args []string) error {
	logger := setupLogger(debug)

	cfg, err := loadConfig(cfgPath)
	if err != nil {
		logger.Error("failed to load config", "error", err)
		os.Exit(1)
	}

	if checkRole != "" {
		var roles []model.RoleConfig
		for _, r := range cfg.Roles {
			if r.Role == checkRole {
				roles = append(roles, r)
			}
		}
		if len(roles) == 0 {
			logger.Error("unknown role", "role", checkRole)
			os.Exit(1)
		}
		cfg.Roles = roles
	}

	logger.Info("check mode: nothing will be saved")

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	var dry *store.DryRunStore
	if checkFresh {
		dry = store.NewDryRunStore(nil)
	} else {
		history, err := setupStore(ctx, cfg, logger)
		if err != nil {
			logger.Error("failed to open store", "error", err)
			os.Exit(1)
		}
		defer history.Close()
		dry = store.NewDryRunStore(history)
	}

	httpClient := newHTTPClient()
	provider, closeProvider, err := setupProvider(ctx, cfg, httpClient, logger)
	if err != nil {
		logger.Error("failed to set up classifier", "error", err)
		os.Exit(1)
	}
	defer closeProvider()

	p, err := buildPipeline(cfg, setupSource(cfg, httpClient, logger), provider, dry, notifier.NewLogNotifier(logger), logger)
	if err != nil {
		logger.Error("failed to build pipeline", "error", err)
		os.Exit(1)
	}

	leads, err := p.RunOnce(ctx)
	if err != nil {
		logger.Warn("check interrupted", "error", err)
	}

	fmt.Printf("\n%-28s %-22s %s\n", "Role", "Company", "Context")
	fmt.Println(strings.Repeat("─", 90))
	for _, l := range leads {
		fmt.Printf("%-28s %-22s %s\n", l.Role, l.Company, l.Context)
	}
	fmt.Printf("\nCheck complete: %d leads would be saved\n", len(leads))
	return nil
}
