// Package terminal formats projects for the command line: a listing table and a Markdown
// rendering of one project.
package terminal

import (
	"fmt"
	"os"
	"strings"

	"github.com/charmbracelet/glamour"
	"github.com/jonathan/analytics-portfolio/internal/diagram"
	"github.com/jonathan/analytics-portfolio/internal/loader"
	"github.com/jonathan/analytics-portfolio/internal/rendering"
	"github.com/jonathan/analytics-portfolio/internal/types"
)

// DefaultWordWrap is the wrap width used when rendering Markdown.
const DefaultWordWrap = 80

// ProjectMarkdown describes a project as Markdown. baseDir resolves chart and download paths so
// missing files can be flagged.
func ProjectMarkdown(p *types.Project, baseDir string) string {
	var b strings.Builder

	fmt.Fprintf(&b, "# %s\n\n", p.Title)
	if p.Summary != "" {
		fmt.Fprintf(&b, "%s\n\n", p.Summary)
	}
	if len(p.Tags) > 0 {
		tags := make([]string, len(p.Tags))
		for i, t := range p.Tags {
			tags[i] = "`" + t + "`"
		}
		fmt.Fprintf(&b, "**Tags:** %s\n\n", strings.Join(tags, " "))
	}

	if len(p.ToolGroups) > 0 {
		b.WriteString("## Tools\n\n")
		for _, g := range p.ToolGroups {
			fmt.Fprintf(&b, "- **%s:** %s\n", g.Category, strings.Join(g.Tools, ", "))
		}
		b.WriteString("\n")
	}

	if len(p.Objectives) > 0 {
		b.WriteString("## Objectives\n\n")
		for _, o := range p.Objectives {
			fmt.Fprintf(&b, "- %s\n", o)
		}
		b.WriteString("\n")
	}

	if len(p.ImpactItems) > 0 {
		b.WriteString("## Impact\n\n")
		for _, it := range p.ImpactItems {
			fmt.Fprintf(&b, "- %s %s\n", rendering.ImpactIcon(it.Kind), it.Text)
		}
		b.WriteString("\n")
	}

	if p.Diagram.Renderable() {
		b.WriteString("## Pipeline\n\n")
		l := diagram.Compute(p.Diagram)
		for i, n := range l.Nodes {
			fmt.Fprintf(&b, "%d. %s %s\n", i+1, n.Style.Icon, n.Name)
		}
		if len(l.Skipped) > 0 {
			fmt.Fprintf(&b, "\n_%d connection(s) reference unknown steps and are not drawn._\n", len(l.Skipped))
		}
		b.WriteString("\n")
	}

	if len(p.Visuals) > 0 {
		b.WriteString("## Visualizations\n\n")
		b.WriteString("| # | Title | Type | Data |\n|---|---|---|---|\n")
		for i, v := range p.Visuals {
			data := "`" + v.DataPath + "`"
			if !exists(loader.ResolvePath(baseDir, v.DataPath)) {
				data += " (missing)"
			}
			fmt.Fprintf(&b, "| %d | %s | %s | %s |\n", i+1, escapeCell(v.DisplayTitle(i)), v.Kind, data)
		}
		b.WriteString("\n")
	}

	if len(p.Downloads) > 0 {
		b.WriteString("## Resources\n\n")
		for _, d := range p.Downloads {
			status := ""
			if !exists(loader.ResolvePath(baseDir, d.Path)) {
				status = " (file will be available soon)"
			}
			fmt.Fprintf(&b, "- %s: `%s`%s\n", d.Label, d.Path, status)
		}
		b.WriteString("\n")
	}

	return b.String()
}

// RenderMarkdown renders Markdown for a terminal. style is a glamour style name such as "dark",
// "light" or "notty"; "auto" or "" detects it from the terminal.
func RenderMarkdown(md, style string, width int) (string, error) {
	if width <= 0 {
		width = DefaultWordWrap
	}
	styleOpt := glamour.WithAutoStyle()
	if style != "" && style != "auto" {
		styleOpt = glamour.WithStylePath(style)
	}

	r, err := glamour.NewTermRenderer(styleOpt, glamour.WithWordWrap(width))
	if err != nil {
		return "", fmt.Errorf("failed to create markdown renderer: %w", err)
	}
	out, err := r.Render(md)
	if err != nil {
		return "", fmt.Errorf("failed to render markdown: %w", err)
	}
	return out, nil
}

func exists(path string) bool {
	info, err := os.Stat(path)
	return err == nil && !info.IsDir()
}

func escapeCell(s string) string {
	return strings.ReplaceAll(s, "|", `\|`)
}
