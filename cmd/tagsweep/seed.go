package main

import (
	"context"
	"fmt"
	"os"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/tagsweep/tagsweep/internal/fixtures"
)

var seedCmd = &cobra.Command{
	Use:   "seed",
	Short: "Create synthetic work items covering parser edge cases",
	Long: `Create one Bug work item per fixture in the test catalog, each tagged
with a unique run marker. The created IDs are recorded locally so
'tagsweep teardown' can delete them later, even after a crash.

Typical harness cycle:
  tagsweep seed                   # prints the run marker
  tagsweep sweep --marker <tag>   # clean only the seeded items
  tagsweep verify                 # check results against expectations
  tagsweep teardown               # delete the synthetic items`,
	Run: func(cmd *cobra.Command, args []string) {
		cfg := loadConfig()
		client := newTrackerClient(cfg)
		store := openRunStore(cfg)
		defer store.Close()

		harness := fixtures.New(client, store)
		marker, ids, err := harness.Seed(context.Background())
		if err != nil {
			if len(ids) > 0 {
				fmt.Fprintf(os.Stderr, "Warning: %d item(s) were created before the failure; run 'tagsweep teardown --marker %s' to remove them\n", len(ids), marker)
			}
			fmt.Fprintf(os.Stderr, "Error: seeding failed: %v\n", err)
			os.Exit(1)
		}

		fmt.Printf("%s Created %d work item(s)\n", color.GreenString("✓"), len(ids))
		fmt.Printf("Run marker: %s\n", color.CyanString(marker))
	},
}

func init() {
	rootCmd.AddCommand(seedCmd)
}
