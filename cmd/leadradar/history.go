package main

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"

	"github.com/spf13/cobra"

	"github.com/amishk599/leadradar/internal/browse"
	"github.com/amishk599/leadradar/internal/model"
)

var historyCmd = &cobra.Command{
	Use:   "history",
	Short: "Browse stored leads interactively (TUI)",
	Long:  "Shows the role picker TUI, then a split-pane view of each company's stored signals.",
	RunE:  runHistory,
}

func init() {
	rootCmd.AddCommand(historyCmd)
}

func runHistory(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig(cfgPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to load config: %v\n", err)
		os.Exit(1)
	}

	// Any log output before the alt-screen starts corrupts the display.
	silentLogger := slog.New(slog.NewTextHandler(io.Discard, nil))
	history, err := setupStore(context.Background(), cfg, silentLogger)
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to open store: %v\n", err)
		os.Exit(1)
	}
	defer history.Close()

	browseHistory(cfg.Roles, history)
	return nil
}

func browseHistory(roles []model.RoleConfig, history model.HistoryStore) {
	if len(roles) == 0 {
		fmt.Println("No roles in config.")
		return
	}

	for {
		choice, err := browse.RunRolePicker(roles)
		if err != nil {
			fmt.Printf("Picker error: %v\n", err)
			return
		}
		if choice < 0 {
			return
		}
		role := roles[choice]

		priors, err := browse.RunLoader(role.CollectionName, func(ctx context.Context) (map[string][]model.SignalRecord, error) {
			return history.Priors(ctx, role.CollectionName)
		})
		if err != nil {
			fmt.Printf("Error loading history: %v\n", err)
			continue
		}

		wantQuit, err := browse.RunHistoryTUI(role.Role, priors)
		if err != nil {
			fmt.Printf("TUI error: %v\n", err)
		}
		if wantQuit {
			return
		}
		// else: loop → back to picker
	}
}
