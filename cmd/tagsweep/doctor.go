package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"time"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/tagsweep/tagsweep/internal/config"
	"github.com/tagsweep/tagsweep/internal/runstore"
	"github.com/tagsweep/tagsweep/internal/tracker"
)

var doctorCmd = &cobra.Command{
	Use:   "doctor",
	Short: "Check configuration, credentials, and connectivity",
	Long: `Run diagnostic checks and report what is broken:

  - config file loads and names a base URL and project
  - the token environment variable is set
  - the run store opens
  - the tracking service answers an authenticated query

Exits nonzero if any check fails.`,
	Run: func(cmd *cobra.Command, args []string) {
		ok := true
		pass := func(msg string) { fmt.Printf("%s %s\n", color.GreenString("✓"), msg) }
		fail := func(msg string) { fmt.Printf("%s %s\n", color.RedString("✗"), msg); ok = false }

		cfg := loadConfig()
		pass(fmt.Sprintf("config loaded from %s", configPath))

		if cfg.BaseURL == "" {
			fail("base URL is not set")
		} else {
			pass("base URL: " + cfg.BaseURL)
		}
		if cfg.Project == "" {
			fail("project is not set")
		} else {
			pass("project: " + cfg.Project)
		}
		if cfg.Token() == "" {
			fail(fmt.Sprintf("token environment variable %s is empty", cfg.TokenEnv))
		} else {
			pass(fmt.Sprintf("token present in %s", cfg.TokenEnv))
		}

		if store, err := runstore.New(cfg.RunstorePath); err != nil {
			fail(fmt.Sprintf("run store %s: %v", cfg.RunstorePath, err))
		} else {
			store.Close()
			pass("run store: " + cfg.RunstorePath)
		}

		if ok {
			checkConnectivity(cfg, pass, fail)
		}

		if !ok {
			os.Exit(1)
		}
		fmt.Println("\nAll checks passed.")
	},
}

func checkConnectivity(cfg *config.Config, pass, fail func(string)) {
	tc, err := cfg.Tracker()
	if err != nil {
		fail(err.Error())
		return
	}
	client, err := tracker.New(tc)
	if err != nil {
		fail(err.Error())
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()

	_, err = client.QueryIDs(ctx, "SELECT [System.Id] FROM WorkItems WHERE [System.Id] = 0")
	switch {
	case err == nil:
		pass("tracking service reachable and credentials accepted")
	default:
		var apiErr *tracker.APIError
		if errors.As(err, &apiErr) && (apiErr.StatusCode == http.StatusUnauthorized || apiErr.StatusCode == http.StatusForbidden) {
			fail(fmt.Sprintf("service reachable but credentials rejected (HTTP %d)", apiErr.StatusCode))
			return
		}
		fail(fmt.Sprintf("service unreachable: %v", err))
	}
}

func init() {
	rootCmd.AddCommand(doctorCmd)
}
