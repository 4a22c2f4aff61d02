package main

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/jonathan/analytics-portfolio/internal/diagram"
	"github.com/jonathan/analytics-portfolio/internal/observability"
	"github.com/spf13/cobra"
)

var diagramOut string

var diagramCmd = &cobra.Command{
	Use:   "diagram <key>",
	Short: "Render a project's pipeline diagram to SVG or PNG",
	Long: `Render the pipeline diagram of one project. The output format follows the --out extension
(.svg or .png). A summary of sources, sinks, cycles and edges to unknown steps is printed.`,
	Args: cobra.ExactArgs(1),
	RunE: runDiagram,
}

func init() {
	diagramCmd.Flags().StringVarP(&diagramOut, "out", "o", "", "Output file (.svg or .png)")
	if err := diagramCmd.MarkFlagRequired("out"); err != nil {
		panic(fmt.Sprintf("failed to mark out flag as required: %v", err))
	}
	rootCmd.AddCommand(diagramCmd)
}

func runDiagram(cmd *cobra.Command, args []string) error {
	c, err := loadCatalog(cmd.Context())
	if err != nil {
		return err
	}

	key := args[0]
	p, ok := c.Lookup(key)
	if !ok {
		return fmt.Errorf("project not found: %s", key)
	}
	if !p.Diagram.Renderable() {
		return fmt.Errorf("project %s has no flow diagram", key)
	}

	if dir := filepath.Dir(diagramOut); dir != "." {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return fmt.Errorf("failed to create output directory: %w", err)
		}
	}
	layout := diagram.Compute(p.Diagram)
	if err := diagram.WriteFile(diagramOut, layout); err != nil {
		return err
	}

	observability.NewPrinter(cmd.OutOrStdout()).PrintDiagram(key, diagramOut, layout)
	return nil
}
