package main

import (
	"fmt"

	"github.com/goccy/go-json"
	"github.com/jonathan/analytics-portfolio/internal/loader"
	"github.com/jonathan/analytics-portfolio/internal/observability"
	"github.com/jonathan/analytics-portfolio/internal/types"
	"github.com/jonathan/analytics-portfolio/internal/validation"
	"github.com/spf13/cobra"
)

var validateJSON bool

var validateCmd = &cobra.Command{
	Use:   "validate",
	Short: "Check project files and the data they reference",
	Long: `Load every project file, skipping the ones that fail to parse, and cross-check what loaded:
missing or unreadable chart data, unknown chart types, missing downloads, dangling diagram edges
and diagram cycles. Exits non-zero when any error is found; warnings alone pass.`,
	Args: cobra.NoArgs,
	RunE: runValidate,
}

func init() {
	validateCmd.Flags().BoolVar(&validateJSON, "json", false, "Print the problems as JSON")
	rootCmd.AddCommand(validateCmd)
}

func runValidate(cmd *cobra.Command, _ []string) error {
	projects, report, err := loader.LoadProjects(cmd.Context(), cfg.ProjectsDir, loader.Options{
		Policy: loader.PolicySkip,
		Logger: logger,
	})
	if err != nil {
		return fmt.Errorf("failed to load projects: %w", err)
	}

	violations := validation.ValidateProjects(projects, report, validation.Options{BaseDir: cfg.BaseDir})
	if _, err := loader.LoadProfile(cfg.ProfilePath); err != nil {
		violations.Add(types.Violation{
			Type:     validation.TypeInvalidFile,
			Severity: types.SeverityError,
			File:     cfg.ProfilePath,
			Details:  err.Error(),
		})
	}

	out := cmd.OutOrStdout()
	if validateJSON {
		data, err := json.MarshalIndent(violations, "", "  ")
		if err != nil {
			return fmt.Errorf("failed to encode violations: %w", err)
		}
		fmt.Fprintln(out, string(data))
	} else {
		printer := observability.NewPrinter(out)
		printer.PrintLoadReport(report)
		printer.PrintViolations(violations)
	}

	if violations.HasErrors() {
		return fmt.Errorf("validation failed with %d error(s)", violations.ErrorCount())
	}
	return nil
}
