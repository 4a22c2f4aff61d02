package main

import (
	"context"
	"fmt"

	"github.com/jonathan/analytics-portfolio/internal/catalog"
	"github.com/jonathan/analytics-portfolio/internal/observability"
	"github.com/jonathan/analytics-portfolio/internal/terminal"
	"github.com/spf13/cobra"
)

var (
	listTags   []string
	listSearch string
	listStats  bool
)

var listCmd = &cobra.Command{
	Use:   "list",
	Short: "List projects as a table",
	Long: `List the projects in catalog order. Repeat --tag to require several tags; --search matches
titles and summaries case-insensitively, the same way the home page filters do.`,
	Args: cobra.NoArgs,
	RunE: runList,
}

func init() {
	listCmd.Flags().StringArrayVarP(&listTags, "tag", "t", nil, "Only projects carrying this tag (repeatable)")
	listCmd.Flags().StringVarP(&listSearch, "search", "s", "", "Only projects whose title or summary contains this text")
	listCmd.Flags().BoolVar(&listStats, "stats", false, "Also print the portfolio counters for the matching projects")
	rootCmd.AddCommand(listCmd)
}

func runList(cmd *cobra.Command, _ []string) error {
	c, err := loadCatalog(cmd.Context())
	if err != nil {
		return err
	}

	projects := catalog.Filter(c.Projects(), listTags, listSearch)
	out := cmd.OutOrStdout()
	if len(projects) == 0 {
		fmt.Fprintln(out, "No projects match the selected filters.")
	} else {
		fmt.Fprint(out, terminal.ProjectTable(projects, c.Len()))
	}

	if listStats {
		observability.NewPrinter(out).PrintStats(catalog.ComputeStats(projects))
	}
	return nil
}

// loadCatalog reads the projects and profile under the configured load policy.
func loadCatalog(ctx context.Context) (*catalog.Catalog, error) {
	policy, err := configuredPolicy()
	if err != nil {
		return nil, err
	}
	c, _, err := newReloader(policy).Load(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to load projects: %w", err)
	}
	return c, nil
}
