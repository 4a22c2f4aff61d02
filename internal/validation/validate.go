// Package validation cross-checks loaded projects against the files they reference.
package validation

import (
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/jonathan/analytics-portfolio/internal/charts"
	"github.com/jonathan/analytics-portfolio/internal/dataset"
	"github.com/jonathan/analytics-portfolio/internal/diagram"
	"github.com/jonathan/analytics-portfolio/internal/loader"
	"github.com/jonathan/analytics-portfolio/internal/types"
)

// Violation types reported by the checks.
const (
	TypeInvalidFile      = "invalid_project_file"
	TypeUnknownChartType = "unknown_chart_type"
	TypeMissingChartData = "missing_chart_data"
	TypeUnreadableData   = "unreadable_chart_data"
	TypeMissingColumn    = "chart_column_missing"
	TypeMissingDownload  = "missing_download"
	TypeDiagramSkipped   = "diagram_not_rendered"
	TypeDuplicateNode    = "duplicate_diagram_node"
	TypeDanglingEdge     = "dangling_edge"
	TypeDiagramCycle     = "diagram_cycle"
)

// Options configures the checks.
type Options struct {
	// BaseDir resolves chart data and download paths.
	BaseDir string
}

// ValidateProjects runs every check over the loaded projects and the load report. Files the
// loader skipped are errors; everything the site degrades gracefully on is a warning, except
// chart data that cannot be parsed or lacks a required column.
func ValidateProjects(projects []types.Project, report *loader.Report, opts Options) *types.Violations {
	v := &types.Violations{}

	if report != nil {
		for _, s := range report.Skipped {
			v.Add(types.Violation{
				Type:     TypeInvalidFile,
				Severity: types.SeverityError,
				File:     s.Path,
				Details:  s.Error,
			})
		}
	}

	for i := range projects {
		p := &projects[i]
		checkCharts(v, p, opts.BaseDir)
		checkDownloads(v, p, opts.BaseDir)
		checkDiagram(v, p)
	}

	return v
}

func checkCharts(v *types.Violations, p *types.Project, baseDir string) {
	for i, spec := range p.Visuals {
		title := spec.DisplayTitle(i)
		add := func(typ, severity, details string) {
			v.Add(types.Violation{
				Type:       typ,
				Severity:   severity,
				ProjectKey: p.Key,
				File:       p.SourcePath,
				Details:    fmt.Sprintf("%s: %s", title, details),
			})
		}

		if _, ok := types.ParseChartType(spec.Type); !ok {
			add(TypeUnknownChartType, types.SeverityWarning, fmt.Sprintf("unknown chart type %q, rendered as bar", spec.Type))
		}

		path := loader.ResolvePath(baseDir, spec.DataPath)
		table, err := dataset.LoadCSV(path)
		if errors.Is(err, os.ErrNotExist) {
			add(TypeMissingChartData, types.SeverityWarning, fmt.Sprintf("data file not found: %s", spec.DataPath))
			continue
		}
		if err != nil {
			add(TypeUnreadableData, types.SeverityError, err.Error())
			continue
		}

		var missing []string
		for _, col := range charts.RequiredColumns(spec) {
			if !table.HasColumn(col) {
				missing = append(missing, col)
			}
		}
		if len(missing) > 0 {
			add(TypeMissingColumn, types.SeverityError,
				fmt.Sprintf("%s lacks column(s) %s (has %s)", spec.DataPath, strings.Join(missing, ", "), strings.Join(table.Columns, ", ")))
		}
	}
}

func checkDownloads(v *types.Violations, p *types.Project, baseDir string) {
	for _, d := range p.Downloads {
		path := loader.ResolvePath(baseDir, d.Path)
		if info, err := os.Stat(path); err != nil || info.IsDir() {
			v.Add(types.Violation{
				Type:       TypeMissingDownload,
				Severity:   types.SeverityWarning,
				ProjectKey: p.Key,
				File:       p.SourcePath,
				Details:    fmt.Sprintf("%s: file not found: %s", d.Label, d.Path),
			})
		}
	}
}

func checkDiagram(v *types.Violations, p *types.Project) {
	d := p.Diagram
	if d == nil {
		return
	}
	add := func(typ, details string) {
		v.Add(types.Violation{
			Type:       typ,
			Severity:   types.SeverityWarning,
			ProjectKey: p.Key,
			File:       p.SourcePath,
			Details:    details,
		})
	}

	if !d.Renderable() {
		add(TypeDiagramSkipped, fmt.Sprintf("diagram type %q with %d node(s) is shown as a placeholder", d.Type, len(d.Nodes)))
		return
	}

	seen := make(map[string]bool, len(d.Nodes))
	for _, n := range d.Nodes {
		if seen[n.Name] {
			add(TypeDuplicateNode, fmt.Sprintf("node %q is declared more than once; the first declaration is used", n.Name))
		}
		seen[n.Name] = true
	}

	l := diagram.Compute(d)
	for _, e := range l.Skipped {
		add(TypeDanglingEdge, fmt.Sprintf("edge %s -> %s references an unknown node and is not drawn", e.From, e.To))
	}

	for _, cycle := range diagram.Analyze(l).Cycles {
		add(TypeDiagramCycle, fmt.Sprintf("pipeline loops through %s", strings.Join(cycle, " -> ")))
	}
}
