package main

import (
	"fmt"
	"os"
	"strings"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/tagsweep/tagsweep/internal/fixtures"
	"github.com/tagsweep/tagsweep/internal/titles"
)

var selftestCmd = &cobra.Command{
	Use:   "selftest",
	Short: "Run the fixture catalog through the tokenizer locally",
	Long: `Parse every title in the fixture catalog and compare the output
against the expected cleaned title and tags. No network access and no
configuration required.

Exits nonzero if any fixture disagrees with the tokenizer.`,
	Run: func(cmd *cobra.Command, args []string) {
		verbose, _ := cmd.Flags().GetBool("verbose")

		failed := 0
		for _, fixture := range fixtures.Catalog() {
			result := titles.Parse(fixture.Title)
			pass := result.Title == fixture.WantTitle && tagsEqual(result.Tags, fixture.WantTags)
			if pass {
				if verbose {
					fmt.Printf("%s %-20s %q -> %q %v\n", color.GreenString("PASS"), fixture.Name, fixture.Title, result.Title, result.Tags)
				}
				continue
			}
			failed++
			fmt.Printf("%s %-20s %q\n", color.RedString("FAIL"), fixture.Name, fixture.Title)
			fmt.Printf("    got  %q %v\n", result.Title, result.Tags)
			fmt.Printf("    want %q %v\n", fixture.WantTitle, fixture.WantTags)
		}

		total := len(fixtures.Catalog())
		fmt.Printf("\n%d/%d fixtures passed\n", total-failed, total)
		if failed > 0 {
			os.Exit(1)
		}
	},
}

func tagsEqual(a, b []string) bool {
	return strings.Join(a, "\x00") == strings.Join(b, "\x00")
}

func init() {
	selftestCmd.Flags().BoolP("verbose", "v", false, "print passing fixtures too")
	rootCmd.AddCommand(selftestCmd)
}
