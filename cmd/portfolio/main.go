// Package main provides the entry point for the analytics portfolio site and its tools.
package main

import (
	"fmt"
	"os"

	"github.com/joho/godotenv"
	"github.com/jonathan/analytics-portfolio/internal/config"
	"github.com/jonathan/analytics-portfolio/internal/loader"
	"github.com/jonathan/analytics-portfolio/internal/observability"
	"github.com/jonathan/analytics-portfolio/internal/watcher"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

var (
	configPath  string
	verbose     bool
	projectsDir string
	baseDir     string
	profilePath string

	// Set by setup before any subcommand runs.
	cfg    = config.Defaults()
	logger = zap.NewNop()
)

var rootCmd = &cobra.Command{
	Use:   "portfolio",
	Short: "Analytics portfolio website",
	Long: `Serves a portfolio of analytics projects described by YAML files: a filterable home page,
per-project detail pages with charts, pipeline diagrams and downloads, plus tools to validate,
browse, export and snapshot the same catalog from the terminal.`,
	SilenceUsage:      true,
	SilenceErrors:     true,
	PersistentPreRunE: setup,
	PersistentPostRun: func(_ *cobra.Command, _ []string) {
		_ = logger.Sync()
	},
}

func init() {
	flags := rootCmd.PersistentFlags()
	flags.StringVarP(&configPath, "config", "c", "", "Path to a JSON config file")
	flags.BoolVarP(&verbose, "verbose", "v", false, "Enable debug logging")
	flags.StringVar(&projectsDir, "projects", "", "Directory of project YAML files (default \""+config.DefaultProjectsDir+"\")")
	flags.StringVar(&baseDir, "base-dir", "", "Root that chart data and download paths resolve against (default \".\")")
	flags.StringVar(&profilePath, "profile", "", "Profile YAML for the about block (default \""+config.DefaultProfilePath+"\")")
}

// setup resolves the configuration (defaults, file, environment, then flags) and builds the logger.
func setup(cmd *cobra.Command, _ []string) error {
	resolved, err := config.Resolve(configPath)
	if err != nil {
		return err
	}

	flags := cmd.Flags()
	if flags.Changed("projects") {
		resolved.ProjectsDir = projectsDir
	}
	if flags.Changed("base-dir") {
		resolved.BaseDir = baseDir
	}
	if flags.Changed("profile") {
		resolved.ProfilePath = profilePath
	}
	if verbose {
		resolved.Verbose = true
	}
	if err := resolved.Validate(); err != nil {
		return err
	}
	cfg = resolved

	logger, err = observability.NewLogger(cfg.Verbose)
	if err != nil {
		return err
	}
	logger.Debug("configuration resolved",
		zap.String("projects_dir", cfg.ProjectsDir),
		zap.String("base_dir", cfg.BaseDir),
		zap.String("load_policy", cfg.LoadPolicy))
	return nil
}

// newReloader returns a Reloader for the configured projects and profile. Store is left for
// callers that publish catalogs.
func newReloader(policy loader.Policy) *watcher.Reloader {
	return &watcher.Reloader{
		Dir:         cfg.ProjectsDir,
		ProfilePath: cfg.ProfilePath,
		Policy:      policy,
		Logger:      logger,
	}
}

// configuredPolicy parses the load_policy setting.
func configuredPolicy() (loader.Policy, error) {
	return loader.ParsePolicy(cfg.LoadPolicy)
}

func main() {
	// Load .env file if it exists
	_ = godotenv.Load()

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}
