// Package cli implements the billhub command line interface.
package cli

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/adrg/xdg"
	"github.com/spf13/cobra"
)

var (
	version = "dev"
	commit  = "none"
	date    = "unknown"
)

var flagConfig string

var rootCmd = &cobra.Command{
	Use:   "billhub",
	Short: "Resilient legislative bill aggregation service",
	Long: "billhub aggregates pending legislation from federal and state providers\n" +
		"behind one HTTP API, with per-source call budgets, circuit breaking and\n" +
		"a stale-while-revalidate response cache.",
	RunE: runServe,
}

func init() {
	rootCmd.PersistentFlags().StringVar(&flagConfig, "config", "", "path to config file")

	rootCmd.AddCommand(serveCmd)
	rootCmd.AddCommand(fetchCmd)
	rootCmd.AddCommand(versionCmd)
}

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print version information",
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Printf("billhub %s (commit: %s, built: %s)\n", version, commit, date)
	},
}

// Execute runs the root command.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

// SetVersionInfo injects build metadata, typically from ldflags.
func SetVersionInfo(v, c, d string) {
	version = v
	commit = c
	date = d
}

// resolveConfigPath prefers the --config flag, then the user's config
// directory. An empty return lets the loader fall back to its own
// environment lookup.
func resolveConfigPath() string {
	if flagConfig != "" {
		return flagConfig
	}
	path := filepath.Join(xdg.ConfigHome, "billhub", "config.yaml")
	if _, err := os.Stat(path); err == nil {
		return path
	}
	return ""
}
