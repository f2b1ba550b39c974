package main

import (
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"
)

var rolesCmd = &cobra.Command{
	Use:   "roles",
	Short: "List all configured roles",
	Long:  "Reads the config and prints a table of all configured roles.",
	RunE:  runRoles,
}

func init() {
	rootCmd.AddCommand(rolesCmd)
}

func runRoles(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig(cfgPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to load config: %v\n", err)
		os.Exit(1)
	}

	fmt.Printf("%-28s %-36s %-9s %s\n", "Role", "Collection", "Cutoff", "Query")
	fmt.Println(strings.Repeat("─", 110))

	for _, r := range cfg.Roles {
		fmt.Printf("%-28s %-36s %-9.2f %s\n", r.Role, r.CollectionName, r.RelevanceThreshold, r.SearchQuery)
	}

	fmt.Printf("\nTotal: %d roles (mode %s, concurrency %d)\n", len(cfg.Roles), cfg.Pipeline.Mode, cfg.Pipeline.Concurrency)
	return nil
}
