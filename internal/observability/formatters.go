// Package observability provides the zap logger and formatted summaries for CLI output.
package observability

import (
	"fmt"
	"io"
	"strings"

	"github.com/jonathan/analytics-portfolio/internal/catalog"
	"github.com/jonathan/analytics-portfolio/internal/diagram"
	"github.com/jonathan/analytics-portfolio/internal/export"
	"github.com/jonathan/analytics-portfolio/internal/loader"
	"github.com/jonathan/analytics-portfolio/internal/types"
)

const (
	// boxWidth is the default width for formatted output boxes
	boxWidth = 64
	// maxItemsToShow is the default number of items to display in lists
	maxItemsToShow = 5
)

// Printer writes boxed summaries to a terminal or log file.
type Printer struct {
	out io.Writer
}

// NewPrinter creates a new Printer that writes to the given writer
func NewPrinter(out io.Writer) *Printer {
	return &Printer{out: out}
}

// printBox prints a formatted box with a title and content
//
//nolint:errcheck // writing to stdout; errors are not recoverable
func (p *Printer) printBox(title string, content string) {
	border := strings.Repeat("─", boxWidth-2)
	fmt.Fprintf(p.out, "┌%s┐\n", border)
	fmt.Fprintf(p.out, "│ %-*s │\n", boxWidth-4, title)
	fmt.Fprintf(p.out, "├%s┤\n", border)

	for _, line := range strings.Split(content, "\n") {
		fmt.Fprintf(p.out, "│ %-*s │\n", boxWidth-4, clip(line, boxWidth-4))
	}

	fmt.Fprintf(p.out, "└%s┘\n", border)
}

// clip shortens s to n runes, marking the cut with an ellipsis.
func clip(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n-3]) + "..."
}

// PrintLoadReport summarises a directory load: counts, skipped files and fallback warnings.
func (p *Printer) PrintLoadReport(report *loader.Report) {
	if report == nil {
		return
	}

	var sb strings.Builder
	fmt.Fprintf(&sb, "Directory: %s\n", report.Dir)
	fmt.Fprintf(&sb, "Files:     %d\n", report.Files)
	fmt.Fprintf(&sb, "Loaded:    %d\n", report.Loaded)

	if len(report.Skipped) > 0 {
		fmt.Fprintf(&sb, "\nSkipped (%d):\n", len(report.Skipped))
		for _, s := range report.Skipped {
			fmt.Fprintf(&sb, "  ✗ %s\n", s.Path)
			fmt.Fprintf(&sb, "    %s\n", s.Error)
		}
	}

	if len(report.Warnings) > 0 {
		fmt.Fprintf(&sb, "\nWarnings (%d):\n", len(report.Warnings))
		count := min(len(report.Warnings), maxItemsToShow)
		for _, w := range report.Warnings[:count] {
			fmt.Fprintf(&sb, "  • %s: %s\n", w.ProjectKey, w.Message)
		}
		if len(report.Warnings) > maxItemsToShow {
			fmt.Fprintf(&sb, "  ... and %d more\n", len(report.Warnings)-maxItemsToShow)
		}
	}

	p.printBox("PROJECT LOAD", strings.TrimSuffix(sb.String(), "\n"))
}

// PrintStats outputs the home page counters for a set of projects.
func (p *Printer) PrintStats(stats catalog.Stats) {
	var sb strings.Builder
	fmt.Fprintf(&sb, "Projects:      %d\n", stats.Total)
	fmt.Fprintf(&sb, "AI projects:   %d\n", stats.AIProjects)
	fmt.Fprintf(&sb, "NLP projects:  %d\n", stats.NLPProjects)
	fmt.Fprintf(&sb, "Distinct tags: %d", stats.DistinctTags)

	p.printBox("PORTFOLIO STATS", sb.String())
}

// PrintViolations outputs validation problems grouped by severity.
func (p *Printer) PrintViolations(v *types.Violations) {
	if v == nil {
		return
	}

	if len(v.Violations) == 0 {
		p.printBox("VALIDATION", "✓ No problems found")
		return
	}

	var sb strings.Builder
	errors := v.ErrorCount()
	fmt.Fprintf(&sb, "%d error(s), %d warning(s)\n", errors, len(v.Violations)-errors)

	for _, severity := range []string{types.SeverityError, types.SeverityWarning} {
		first := true
		for _, violation := range v.Violations {
			if violation.Severity != severity {
				continue
			}
			if first {
				fmt.Fprintf(&sb, "\n%s:\n", strings.ToUpper(severity[:1])+severity[1:]+"s")
				first = false
			}
			icon := "⚠"
			if severity == types.SeverityError {
				icon = "✗"
			}
			subject := violation.ProjectKey
			if subject == "" {
				subject = violation.File
			}
			fmt.Fprintf(&sb, "  %s [%s] %s\n", icon, violation.Type, subject)
			fmt.Fprintf(&sb, "    %s\n", violation.Details)
		}
	}

	p.printBox("VALIDATION", strings.TrimSuffix(sb.String(), "\n"))
}

// PrintExport outputs what a static export wrote and which referenced files were missing.
func (p *Printer) PrintExport(summary *export.Summary) {
	if summary == nil {
		return
	}

	var sb strings.Builder
	fmt.Fprintf(&sb, "Output:     %s\n", summary.OutDir)
	fmt.Fprintf(&sb, "Pages:      %d\n", summary.Pages)
	fmt.Fprintf(&sb, "Charts:     %d\n", summary.Charts)
	fmt.Fprintf(&sb, "Chart data: %d\n", summary.ChartData)
	fmt.Fprintf(&sb, "Diagrams:   %d\n", summary.Diagrams)
	fmt.Fprintf(&sb, "Downloads:  %d\n", summary.Downloads)

	if len(summary.Missing) > 0 {
		fmt.Fprintf(&sb, "\nMissing (%d):\n", len(summary.Missing))
		count := min(len(summary.Missing), maxItemsToShow)
		for _, m := range summary.Missing[:count] {
			fmt.Fprintf(&sb, "  • %s\n", m)
		}
		if len(summary.Missing) > maxItemsToShow {
			fmt.Fprintf(&sb, "  ... and %d more\n", len(summary.Missing)-maxItemsToShow)
		}
	}

	p.printBox("STATIC EXPORT", strings.TrimSuffix(sb.String(), "\n"))
}

// PrintDiagram outputs the shape of a project's pipeline diagram after it was written to path.
func (p *Printer) PrintDiagram(key, path string, l *diagram.Layout) {
	if l == nil {
		return
	}
	a := diagram.Analyze(l)

	var sb strings.Builder
	fmt.Fprintf(&sb, "Project: %s\n", key)
	fmt.Fprintf(&sb, "File:    %s\n", path)
	fmt.Fprintf(&sb, "Steps:   %d (%d edges)\n", len(l.Nodes), len(l.Edges))
	fmt.Fprintf(&sb, "Sources: %s\n", joinOrNone(a.Sources))
	fmt.Fprintf(&sb, "Sinks:   %s", joinOrNone(a.Sinks))

	if len(a.Isolated) > 0 {
		fmt.Fprintf(&sb, "\nIsolated: %s", strings.Join(a.Isolated, ", "))
	}
	for _, cycle := range a.Cycles {
		fmt.Fprintf(&sb, "\n⚠ cycle: %s", strings.Join(cycle, " → "))
	}
	if len(l.Skipped) > 0 {
		fmt.Fprintf(&sb, "\n⚠ %d edge(s) reference unknown steps", len(l.Skipped))
	}

	p.printBox("PIPELINE DIAGRAM", sb.String())
}

func joinOrNone(items []string) string {
	if len(items) == 0 {
		return "none"
	}
	return strings.Join(items, ", ")
}
