// Package config provides configuration loading and validation for the CLI and server.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/goccy/go-json"
)

// Default values used when neither the config file, the environment nor a flag sets a field.
const (
	DefaultProjectsDir = "data/projects"
	DefaultProfilePath = "data/profile.yaml"
	DefaultSiteTitle   = "Analytics Portfolio"
	DefaultPort        = 8501
	DefaultLoadPolicy  = "strict"
)

// RateLimit holds the request limits applied by the server.
type RateLimit struct {
	Enabled       *bool    `json:"enabled,omitempty"`        // Nil means enabled
	DefaultLimit  int      `json:"default_limit,omitempty"`  // Requests per window for pages and API
	DownloadLimit int      `json:"download_limit,omitempty"` // Requests per window for downloads and CSV exports
	Window        string   `json:"window,omitempty"`         // Go duration, e.g. "1m"
	Whitelist     []string `json:"whitelist,omitempty"`      // Client IPs never limited
}

// IsEnabled reports whether rate limiting is on.
func (r RateLimit) IsEnabled() bool {
	return r.Enabled == nil || *r.Enabled
}

// WindowDuration parses Window, falling back to one minute.
func (r RateLimit) WindowDuration() time.Duration {
	if d, err := time.ParseDuration(r.Window); err == nil && d > 0 {
		return d
	}
	return time.Minute
}

// Config represents the portfolio configuration that can be loaded from a JSON file.
// All fields are optional; missing values use defaults or come from the environment and flags.
type Config struct {
	// Paths
	ProjectsDir string `json:"projects_dir,omitempty"` // Directory holding project YAML files
	BaseDir     string `json:"base_dir,omitempty"`     // Root that chart data and download paths resolve against
	ProfilePath string `json:"profile_path,omitempty"` // Optional profile YAML for the about block

	// Site
	SiteTitle string `json:"site_title,omitempty"`
	Port      int    `json:"port,omitempty"`

	// Behavior
	LoadPolicy  string    `json:"load_policy,omitempty"` // strict or skip
	Watch       bool      `json:"watch,omitempty"`       // Reload projects when files change
	DatabaseURL string    `json:"database_url,omitempty"`
	Verbose     bool      `json:"verbose,omitempty"`
	RateLimit   RateLimit `json:"rate_limit,omitempty"`
}

// Defaults returns the built-in configuration.
func Defaults() Config {
	return Config{
		ProjectsDir: DefaultProjectsDir,
		BaseDir:     ".",
		ProfilePath: DefaultProfilePath,
		SiteTitle:   DefaultSiteTitle,
		Port:        DefaultPort,
		LoadPolicy:  DefaultLoadPolicy,
		RateLimit: RateLimit{
			DefaultLimit:  600,
			DownloadLimit: 60,
			Window:        "1m",
		},
	}
}

// LoadConfig loads configuration from a JSON file.
// Returns an error if the file cannot be read or parsed.
func LoadConfig(path string) (*Config, error) {
	if path == "" {
		return nil, fmt.Errorf("config path is empty")
	}

	if !filepath.IsAbs(path) {
		cwd, err := os.Getwd()
		if err != nil {
			return nil, fmt.Errorf("failed to get current directory: %w", err)
		}
		path = filepath.Join(cwd, path)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file %s: %w", path, err)
	}

	var cfg Config
	if err := json.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config JSON: %w", err)
	}

	return &cfg, nil
}

// ApplyEnv overrides fields from PORTFOLIO_* variables, PORT and DATABASE_URL.
func (c *Config) ApplyEnv() {
	c.ProjectsDir = getEnvString("PORTFOLIO_PROJECTS_DIR", c.ProjectsDir)
	c.BaseDir = getEnvString("PORTFOLIO_BASE_DIR", c.BaseDir)
	c.ProfilePath = getEnvString("PORTFOLIO_PROFILE", c.ProfilePath)
	c.SiteTitle = getEnvString("PORTFOLIO_SITE_TITLE", c.SiteTitle)
	c.LoadPolicy = getEnvString("PORTFOLIO_LOAD_POLICY", c.LoadPolicy)
	c.Watch = getEnvBool("PORTFOLIO_WATCH", c.Watch)
	c.Verbose = getEnvBool("PORTFOLIO_VERBOSE", c.Verbose)
	c.Port = getEnvInt("PORT", c.Port)
	c.DatabaseURL = getEnvString("DATABASE_URL", c.DatabaseURL)

	if v, ok := os.LookupEnv("RATE_LIMIT_ENABLED"); ok {
		if enabled, err := strconv.ParseBool(v); err == nil {
			c.RateLimit.Enabled = &enabled
		}
	}
	c.RateLimit.DefaultLimit = getEnvInt("RATE_LIMIT_DEFAULT_LIMIT", c.RateLimit.DefaultLimit)
	c.RateLimit.DownloadLimit = getEnvInt("RATE_LIMIT_DOWNLOAD_LIMIT", c.RateLimit.DownloadLimit)
	c.RateLimit.Window = getEnvString("RATE_LIMIT_WINDOW", c.RateLimit.Window)
	if list := getEnvString("RATE_LIMIT_WHITELIST", ""); list != "" {
		c.RateLimit.Whitelist = parseList(list)
	}
}

// Validate checks that the configuration has valid values.
// Required paths are checked by the commands that need them.
func (c *Config) Validate() error {
	switch c.LoadPolicy {
	case "", "strict", "skip":
	default:
		return fmt.Errorf("config error: 'load_policy' must be strict or skip, got %q", c.LoadPolicy)
	}

	if c.Port < 0 || c.Port > 65535 {
		return fmt.Errorf("config error: 'port' must be between 0 and 65535")
	}

	if c.RateLimit.DefaultLimit < 0 || c.RateLimit.DownloadLimit < 0 {
		return fmt.Errorf("config error: rate limits must be non-negative")
	}
	if c.RateLimit.Window != "" {
		if d, err := time.ParseDuration(c.RateLimit.Window); err != nil || d <= 0 {
			return fmt.Errorf("config error: 'rate_limit.window' is not a positive duration: %q", c.RateLimit.Window)
		}
	}

	if c.ProjectsDir != "" {
		if info, err := os.Stat(c.ProjectsDir); err == nil && !info.IsDir() {
			return fmt.Errorf("config error: projects_dir is not a directory: %s", c.ProjectsDir)
		}
	}

	return nil
}

// MergeWithDefaults returns a new Config with empty fields filled from defaults.
func (c *Config) MergeWithDefaults(defaults Config) Config {
	result := *c

	if result.ProjectsDir == "" {
		result.ProjectsDir = defaults.ProjectsDir
	}
	if result.BaseDir == "" {
		result.BaseDir = defaults.BaseDir
	}
	if result.ProfilePath == "" {
		result.ProfilePath = defaults.ProfilePath
	}
	if result.SiteTitle == "" {
		result.SiteTitle = defaults.SiteTitle
	}
	if result.LoadPolicy == "" {
		result.LoadPolicy = defaults.LoadPolicy
	}
	if result.DatabaseURL == "" {
		result.DatabaseURL = defaults.DatabaseURL
	}
	if result.Port == 0 {
		result.Port = defaults.Port
	}

	if result.RateLimit.Enabled == nil {
		result.RateLimit.Enabled = defaults.RateLimit.Enabled
	}
	if result.RateLimit.DefaultLimit == 0 {
		result.RateLimit.DefaultLimit = defaults.RateLimit.DefaultLimit
	}
	if result.RateLimit.DownloadLimit == 0 {
		result.RateLimit.DownloadLimit = defaults.RateLimit.DownloadLimit
	}
	if result.RateLimit.Window == "" {
		result.RateLimit.Window = defaults.RateLimit.Window
	}
	if len(result.RateLimit.Whitelist) == 0 {
		result.RateLimit.Whitelist = defaults.RateLimit.Whitelist
	}

	// Bools cannot distinguish unset from false; flags always win for them.

	return result
}

// Resolve loads the optional file at path, merges it over the defaults and applies the
// environment. An empty path skips the file.
func Resolve(path string) (Config, error) {
	var file Config
	if path != "" {
		loaded, err := LoadConfig(path)
		if err != nil {
			return Config{}, err
		}
		file = *loaded
	}

	cfg := file.MergeWithDefaults(Defaults())
	cfg.ApplyEnv()
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func getEnvString(key string, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intValue, err := strconv.Atoi(value); err == nil {
			return intValue
		}
	}
	return defaultValue
}

func getEnvBool(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		if boolValue, err := strconv.ParseBool(value); err == nil {
			return boolValue
		}
	}
	return defaultValue
}

func parseList(list string) []string {
	var out []string
	for _, item := range strings.Split(list, ",") {
		if item = strings.TrimSpace(item); item != "" {
			out = append(out, item)
		}
	}
	return out
}
