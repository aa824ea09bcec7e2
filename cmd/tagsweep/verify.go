package main

import (
	"context"
	"fmt"
	"os"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/tagsweep/tagsweep/internal/config"
	"github.com/tagsweep/tagsweep/internal/fixtures"
	"github.com/tagsweep/tagsweep/internal/runstore"
)

var verifyCmd = &cobra.Command{
	Use:   "verify",
	Short: "Check seeded work items against expected sweep results",
	Long: `Fetch the work items created by a seeding run and compare each one's
title and tags against the fixture catalog's expected post-sweep state.

Defaults to the most recent run recorded locally; use --marker to check
a specific run.

Examples:
  tagsweep verify
  tagsweep verify --marker tagsweep-run-1b9d6bcd-...`,
	Run: func(cmd *cobra.Command, args []string) {
		marker, _ := cmd.Flags().GetString("marker")

		cfg := loadConfig()
		client := newTrackerClient(cfg)
		store := openRunStore(cfg)
		defer store.Close()

		ctx := context.Background()
		marker = resolveMarker(ctx, store, cfg, marker)

		report, err := fixtures.New(client, store).Verify(ctx, marker)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error: verification failed: %v\n", err)
			os.Exit(1)
		}

		for _, check := range report.Checks {
			if check.Pass {
				fmt.Printf("%s %-20s #%d\n", color.GreenString("PASS"), check.Fixture.Name, check.ID)
				continue
			}
			fmt.Printf("%s %-20s #%d\n", color.RedString("FAIL"), check.Fixture.Name, check.ID)
			if check.GotTitle != check.WantTitle {
				fmt.Printf("    title: got %q, want %q\n", check.GotTitle, check.WantTitle)
			}
			if check.GotTags != check.WantTags {
				fmt.Printf("    tags:  got %q, want %q\n", check.GotTags, check.WantTags)
			}
		}

		fmt.Printf("\n%d passed, %d failed\n", report.Passed, report.Failed)
		if report.Failed > 0 {
			os.Exit(1)
		}
	},
}

// resolveMarker falls back to the most recent recorded run when the
// user did not name one.
func resolveMarker(ctx context.Context, store *runstore.Store, cfg *config.Config, marker string) string {
	if marker != "" {
		return marker
	}
	latest, err := store.LatestRun(ctx)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: no run marker given and none recorded in %s\n", cfg.RunstorePath)
		os.Exit(1)
	}
	fmt.Printf("Using latest run: %s\n\n", latest.Marker)
	return latest.Marker
}

func init() {
	verifyCmd.Flags().String("marker", "", "run marker to verify (default: latest recorded run)")
	rootCmd.AddCommand(verifyCmd)
}
