// tagsweep cleans up work-item titles in a tracking service: leading
// bracket tokens like "[UI] [critical]" become tags and the title is
// rewritten without them.
package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/tagsweep/tagsweep/internal/config"
	"github.com/tagsweep/tagsweep/internal/runstore"
	"github.com/tagsweep/tagsweep/internal/tracker"
)

// Version is stamped at build time via -ldflags.
var Version = "dev"

var configPath string

var rootCmd = &cobra.Command{
	Use:   "tagsweep",
	Short: "Promote leading bracket tokens in work-item titles to tags",
	Long: `tagsweep queries Bug work items from a tracking service, extracts
bracket-delimited tokens from the start of each title ("[UI] [critical]
Fix crash"), promotes them to the item's tag set, and rewrites the
title cleaned and normalized.

A fixture harness (seed/verify/teardown) creates synthetic work items
covering the parser's edge cases, checks the sweep's results through
the service's query API, and deletes the synthetic data afterward.`,
	Version: Version,
}

func init() {
	rootCmd.PersistentFlags().StringVar(&configPath, "config", config.DefaultPath, "path to the tagsweep config file")
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

// loadConfig reads the config file named by --config.
func loadConfig() *config.Config {
	cfg, err := config.Load(configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
	return cfg
}

// newTrackerClient builds an authenticated client or exits with a
// message naming the missing setting.
func newTrackerClient(cfg *config.Config) *tracker.Client {
	tc, err := cfg.Tracker()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		fmt.Fprintf(os.Stderr, "Run 'tagsweep init' to create a config file.\n")
		os.Exit(1)
	}
	client, err := tracker.New(tc)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
	return client
}

// openRunStore opens the harness run store at the configured path.
func openRunStore(cfg *config.Config) *runstore.Store {
	store, err := runstore.New(cfg.RunstorePath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: failed to open run store: %v\n", err)
		os.Exit(1)
	}
	return store
}
