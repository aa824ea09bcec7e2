package main

import (
	"fmt"
	"os"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/tagsweep/tagsweep/internal/config"
)

var initCmd = &cobra.Command{
	Use:   "init",
	Short: "Write a starter config file",
	Long: `Write a starter config file with defaults filled in. Refuses to
overwrite an existing file unless --force is given.

The access token is never stored in the file: export it in the
environment variable named by token_env (default ` + config.DefaultTokenEnv + `).

Examples:
  tagsweep init --url https://tracker.example.com/contoso --project Fabrikam
  export ` + config.DefaultTokenEnv + `=<personal access token>`,
	Run: func(cmd *cobra.Command, args []string) {
		url, _ := cmd.Flags().GetString("url")
		project, _ := cmd.Flags().GetString("project")
		force, _ := cmd.Flags().GetBool("force")

		if _, err := os.Stat(configPath); err == nil && !force {
			fmt.Fprintf(os.Stderr, "Error: %s already exists (use --force to overwrite)\n", configPath)
			os.Exit(1)
		}

		cfg := config.Default()
		cfg.BaseURL = url
		cfg.Project = project
		if err := cfg.Write(configPath); err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			os.Exit(1)
		}

		fmt.Printf("%s Wrote %s\n", color.GreenString("✓"), configPath)
		if cfg.Token() == "" {
			fmt.Printf("Next: export %s with a personal access token.\n", cfg.TokenEnv)
		}
	},
}

func init() {
	initCmd.Flags().String("url", "", "tracking service organization URL")
	initCmd.Flags().String("project", "", "project containing the work items")
	initCmd.Flags().Bool("force", false, "overwrite an existing config file")
	rootCmd.AddCommand(initCmd)
}
