package main

import (
	"context"
	"fmt"
	"os"
	"strings"

	"github.com/chzyer/readline"
	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/tagsweep/tagsweep/internal/fixtures"
)

var teardownCmd = &cobra.Command{
	Use:   "teardown",
	Short: "Delete the synthetic work items created by a seeding run",
	Long: `Permanently delete the work items created by 'tagsweep seed'.

Items are found two ways and the results merged: a live query for the
run's marker tag, and the IDs recorded locally at seed time. Deletion
is permanent, so the command asks for confirmation unless --yes is
given.

Examples:
  tagsweep teardown                 # tear down the latest run
  tagsweep teardown --marker <tag>  # tear down a specific run
  tagsweep teardown --yes           # skip the confirmation prompt`,
	Run: func(cmd *cobra.Command, args []string) {
		marker, _ := cmd.Flags().GetString("marker")
		yes, _ := cmd.Flags().GetBool("yes")

		cfg := loadConfig()
		client := newTrackerClient(cfg)
		store := openRunStore(cfg)
		defer store.Close()

		ctx := context.Background()
		marker = resolveMarker(ctx, store, cfg, marker)

		if !yes && !confirm(fmt.Sprintf("Permanently delete all work items of run %s?", marker)) {
			fmt.Println("Aborted.")
			return
		}

		deleted, err := fixtures.New(client, store).Teardown(ctx, marker)
		if err != nil {
			if deleted > 0 {
				fmt.Fprintf(os.Stderr, "Deleted %d item(s) before the failure.\n", deleted)
			}
			fmt.Fprintf(os.Stderr, "Error: teardown failed: %v\n", err)
			os.Exit(1)
		}

		fmt.Printf("%s Deleted %d work item(s)\n", color.GreenString("✓"), deleted)
	},
}

// confirm prompts for a y/N answer on the terminal.
func confirm(question string) bool {
	rl, err := readline.New(question + " [y/N] ")
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: failed to open prompt: %v\n", err)
		os.Exit(1)
	}
	defer rl.Close()

	line, err := rl.Readline()
	if err != nil {
		// Ctrl-C / EOF means no.
		return false
	}
	answer := strings.ToLower(strings.TrimSpace(line))
	return answer == "y" || answer == "yes"
}

func init() {
	teardownCmd.Flags().String("marker", "", "run marker to tear down (default: latest recorded run)")
	teardownCmd.Flags().Bool("yes", false, "skip the confirmation prompt")
	rootCmd.AddCommand(teardownCmd)
}
