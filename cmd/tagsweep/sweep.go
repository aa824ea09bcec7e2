package main

import (
	"context"
	"fmt"
	"os"
	"strings"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/tagsweep/tagsweep/internal/sweep"
)

var sweepCmd = &cobra.Command{
	Use:   "sweep",
	Short: "Clean up Bug work-item titles",
	Long: `Query Bug work items, promote leading bracket tokens to tags, and
rewrite each affected title.

Only items whose title or tag string actually changes are written back.
Each write carries a revision check, so an item edited concurrently is
reported as failed rather than overwritten.

Examples:
  tagsweep sweep                  # Clean all Bug work items
  tagsweep sweep --dry-run        # Preview changes without writing
  tagsweep sweep --limit 50       # Process at most 50 items
  tagsweep sweep --marker <tag>   # Only items carrying a marker tag`,
	Run: func(cmd *cobra.Command, args []string) {
		dryRun, _ := cmd.Flags().GetBool("dry-run")
		limit, _ := cmd.Flags().GetInt("limit")
		marker, _ := cmd.Flags().GetString("marker")

		cfg := loadConfig()
		client := newTrackerClient(cfg)

		if dryRun {
			fmt.Printf("%s\n", color.YellowString("DRY RUN MODE - No work items will be modified"))
		}
		fmt.Printf("Sweeping Bug work items in %s...\n\n", cfg.Project)

		summary, err := sweep.New(client, sweep.Options{
			DryRun:    dryRun,
			MarkerTag: marker,
			Limit:     limit,
		}).Run(context.Background())
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error: sweep failed: %v\n", err)
			os.Exit(1)
		}

		printSummary(summary, dryRun)
		if summary.Failed > 0 {
			os.Exit(1)
		}
	},
}

func printSummary(summary *sweep.Summary, dryRun bool) {
	for _, change := range summary.Changes {
		if change.Err != nil {
			fmt.Printf("%s #%d: %v\n", color.RedString("FAIL"), change.ID, change.Err)
			continue
		}
		fmt.Printf("%s #%d\n", color.GreenString("OK"), change.ID)
		fmt.Printf("    title: %q -> %q\n", change.OldTitle, change.NewTitle)
		if len(change.AddedTags) > 0 {
			fmt.Printf("    tags:  +%s\n", strings.Join(change.AddedTags, ", +"))
		}
	}

	verb := "changed"
	if dryRun {
		verb = "would change"
	}
	fmt.Printf("\nScanned %d item(s): %s %d, unchanged %d, failed %d\n",
		summary.Scanned, verb, summary.Changed, summary.Unchanged, summary.Failed)
}

func init() {
	sweepCmd.Flags().Bool("dry-run", false, "compute changes without writing them back")
	sweepCmd.Flags().Int("limit", 0, "maximum number of items to process (0 = all)")
	sweepCmd.Flags().String("marker", "", "only sweep items carrying this tag")
	rootCmd.AddCommand(sweepCmd)
}
