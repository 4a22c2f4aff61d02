package terminal

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/lipgloss/table"
	"github.com/jonathan/analytics-portfolio/internal/types"
)

const summaryWidth = 48

var (
	headerStyle = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("12")).Padding(0, 1)
	cellStyle   = lipgloss.NewStyle().Padding(0, 1)
	borderStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("8"))
	footerStyle = lipgloss.NewStyle().Faint(true)
)

// ProjectTable renders projects as a bordered table with a "Showing X of Y" footer. total is the
// catalog size before filtering.
func ProjectTable(projects []types.Project, total int) string {
	rows := make([][]string, 0, len(projects))
	for i := range projects {
		p := &projects[i]
		rows = append(rows, []string{
			fmt.Sprint(i + 1),
			p.Key,
			p.Title,
			strings.Join(p.Tags, ", "),
			clip(p.Summary, summaryWidth),
			fmt.Sprint(len(p.Visuals)),
		})
	}

	t := table.New().
		Border(lipgloss.NormalBorder()).
		BorderStyle(borderStyle).
		Headers("#", "KEY", "TITLE", "TAGS", "SUMMARY", "CHARTS").
		Rows(rows...).
		StyleFunc(func(row, _ int) lipgloss.Style {
			if row == table.HeaderRow {
				return headerStyle
			}
			return cellStyle
		})

	var b strings.Builder
	b.WriteString(t.Render())
	b.WriteString("\n")
	b.WriteString(footerStyle.Render(fmt.Sprintf("Showing %d of %d projects", len(projects), total)))
	b.WriteString("\n")
	return b.String()
}

// clip shortens s to at most width runes, marking the cut with an ellipsis.
func clip(s string, width int) string {
	r := []rune(strings.TrimSpace(s))
	if len(r) <= width {
		return string(r)
	}
	return string(r[:width-1]) + "…"
}
