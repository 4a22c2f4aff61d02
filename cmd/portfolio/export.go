package main

import (
	"fmt"

	"github.com/jonathan/analytics-portfolio/internal/export"
	"github.com/jonathan/analytics-portfolio/internal/observability"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

var (
	exportOut         string
	exportSQLite      string
	exportConcurrency int
)

var exportCmd = &cobra.Command{
	Use:   "export",
	Short: "Write the portfolio as a static site",
	Long: `Write index.html, one page per project, chart and diagram SVGs, chart CSVs and download
files under --out. Links are relative, so the site works from any web server or straight from
disk. With --sqlite the catalog is also written to a SQLite database.`,
	Args: cobra.NoArgs,
	RunE: runExport,
}

func init() {
	exportCmd.Flags().StringVarP(&exportOut, "out", "o", "", "Output directory for the static site")
	exportCmd.Flags().StringVar(&exportSQLite, "sqlite", "", "Also write the catalog to this SQLite file")
	exportCmd.Flags().IntVar(&exportConcurrency, "concurrency", 0, "Projects written in parallel (default 4)")
	if err := exportCmd.MarkFlagRequired("out"); err != nil {
		panic(fmt.Sprintf("failed to mark out flag as required: %v", err))
	}
	rootCmd.AddCommand(exportCmd)
}

func runExport(cmd *cobra.Command, _ []string) error {
	ctx := cmd.Context()
	c, err := loadCatalog(ctx)
	if err != nil {
		return err
	}

	exporter, err := export.New(export.Options{
		OutDir:      exportOut,
		BaseDir:     cfg.BaseDir,
		SiteTitle:   cfg.SiteTitle,
		Logger:      logger,
		Concurrency: exportConcurrency,
	})
	if err != nil {
		return err
	}
	summary, err := exporter.Export(ctx, c)
	if err != nil {
		return fmt.Errorf("export failed: %w", err)
	}
	observability.NewPrinter(cmd.OutOrStdout()).PrintExport(summary)

	if exportSQLite != "" {
		if err := export.WriteSQLite(ctx, exportSQLite, c); err != nil {
			return err
		}
		logger.Info("sqlite catalog written", zap.String("path", exportSQLite), zap.Int("projects", c.Len()))
		fmt.Fprintf(cmd.OutOrStdout(), "SQLite catalog: %s\n", exportSQLite)
	}
	return nil
}
