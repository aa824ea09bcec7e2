// Package config loads tagsweep settings from a YAML file plus
// environment overrides. The access token itself never lives in the
// file; the file names the environment variable that holds it.
package config

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/tagsweep/tagsweep/internal/tracker"
)

// DefaultPath is where commands look for the config file by default.
const DefaultPath = ".tagsweep.yaml"

// Environment overrides, applied after the file is read.
const (
	EnvBaseURL = "TAGSWEEP_URL"
	EnvProject = "TAGSWEEP_PROJECT"
)

// DefaultTokenEnv is the environment variable consulted for the access
// token when the config file does not name one.
const DefaultTokenEnv = "TAGSWEEP_TOKEN"

// Config is the on-disk configuration.
type Config struct {
	// BaseURL is the tracking service organization URL.
	BaseURL string `yaml:"base_url"`
	// Project is the project containing the work items.
	Project string `yaml:"project"`
	// TokenEnv names the environment variable holding the PAT.
	TokenEnv string `yaml:"token_env"`
	// APIVersion overrides the REST API version (default "7.1").
	APIVersion string `yaml:"api_version,omitempty"`
	// RequestsPerSecond caps outgoing API calls (default 10).
	RequestsPerSecond float64 `yaml:"requests_per_second,omitempty"`
	// MaxRetries bounds retry attempts for transient failures.
	MaxRetries int `yaml:"max_retries,omitempty"`
	// RunstorePath is the SQLite file recording harness runs.
	RunstorePath string `yaml:"runstore_path"`
}

// Default returns the configuration used when no file is present.
func Default() *Config {
	return &Config{
		TokenEnv:          DefaultTokenEnv,
		RequestsPerSecond: 10,
		MaxRetries:        3,
		RunstorePath:      ".tagsweep/runs.db",
	}
}

// Load reads the config at path, falling back to defaults when the file
// does not exist, then applies environment overrides.
func Load(path string) (*Config, error) {
	cfg := Default()

	data, err := os.ReadFile(path)
	switch {
	case os.IsNotExist(err):
		// Defaults plus environment may still be a complete config.
	case err != nil:
		return nil, fmt.Errorf("failed to read config %s: %w", path, err)
	default:
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("failed to parse config %s: %w", path, err)
		}
	}

	if url := os.Getenv(EnvBaseURL); url != "" {
		cfg.BaseURL = url
	}
	if project := os.Getenv(EnvProject); project != "" {
		cfg.Project = project
	}
	if cfg.TokenEnv == "" {
		cfg.TokenEnv = DefaultTokenEnv
	}
	return cfg, nil
}

// Token returns the access token from the configured environment
// variable.
func (c *Config) Token() string {
	return os.Getenv(c.TokenEnv)
}

// Tracker builds the tracker client configuration. It fails when the
// config is incomplete, naming what is missing.
func (c *Config) Tracker() (tracker.Config, error) {
	if c.BaseURL == "" {
		return tracker.Config{}, fmt.Errorf("base URL is not set (config base_url or %s)", EnvBaseURL)
	}
	if c.Project == "" {
		return tracker.Config{}, fmt.Errorf("project is not set (config project or %s)", EnvProject)
	}
	token := c.Token()
	if token == "" {
		return tracker.Config{}, fmt.Errorf("access token is not set (environment variable %s)", c.TokenEnv)
	}

	retry := tracker.DefaultRetryConfig()
	if c.MaxRetries > 0 {
		retry.MaxRetries = c.MaxRetries
	}
	return tracker.Config{
		BaseURL:           c.BaseURL,
		Project:           c.Project,
		Token:             token,
		APIVersion:        c.APIVersion,
		RequestsPerSecond: c.RequestsPerSecond,
		Retry:             retry,
	}, nil
}

// Write saves the config to path in YAML form.
func (c *Config) Write(path string) error {
	data, err := yaml.Marshal(c)
	if err != nil {
		return fmt.Errorf("failed to encode config: %w", err)
	}
	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("failed to write config %s: %w", path, err)
	}
	return nil
}
