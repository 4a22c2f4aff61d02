package rendering

import (
	"fmt"
	"net/url"
	"path"

	"github.com/jonathan/analytics-portfolio/internal/routing"
)

// Linker builds the URLs used in pages. The server and the static exporter lay files out
// differently.
type Linker interface {
	// State links to the page for a navigation state.
	State(s routing.State) string
	ChartCSV(key string, index int) string
	ChartSVG(key string, index int) string
	DiagramSVG(key string) string
	Download(key string, index int, file string) string
	// Interactive reports whether the sidebar filter form can be submitted.
	Interactive() bool
}

// ServerLinks links to the HTTP routes.
type ServerLinks struct{}

func (ServerLinks) State(s routing.State) string { return s.URL() }

func (ServerLinks) ChartCSV(key string, index int) string {
	return fmt.Sprintf("/projects/%s/charts/%d/data.csv", url.PathEscape(key), index)
}

func (ServerLinks) ChartSVG(key string, index int) string {
	return fmt.Sprintf("/projects/%s/charts/%d/chart.svg", url.PathEscape(key), index)
}

func (ServerLinks) DiagramSVG(key string) string {
	return fmt.Sprintf("/projects/%s/diagram.svg", url.PathEscape(key))
}

func (ServerLinks) Download(key string, index int, _ string) string {
	return fmt.Sprintf("/projects/%s/downloads/%d", url.PathEscape(key), index)
}

func (ServerLinks) Interactive() bool { return true }

// StaticLinks links between files of an exported site. Root is the relative path from the
// current page to the site root, "" for index.html and "../" for project pages.
type StaticLinks struct {
	Root string
}

func (l StaticLinks) State(s routing.State) string {
	if s.ProjectKey == "" {
		return l.Root + "index.html"
	}
	return l.Root + StaticProjectPage(s.ProjectKey)
}

func (l StaticLinks) ChartCSV(key string, index int) string {
	return l.Root + StaticChartCSV(key, index)
}

func (l StaticLinks) ChartSVG(key string, index int) string {
	return l.Root + StaticChartSVG(key, index)
}

func (l StaticLinks) DiagramSVG(key string) string {
	return l.Root + StaticDiagramSVG(key)
}

func (l StaticLinks) Download(key string, index int, file string) string {
	return l.Root + StaticDownload(key, index, file)
}

func (StaticLinks) Interactive() bool { return false }

// Paths of an exported site, relative to its root and slash-separated.

func StaticProjectPage(key string) string {
	return path.Join("projects", key+".html")
}

func StaticChartCSV(key string, index int) string {
	return path.Join("projects", key, "charts", fmt.Sprintf("%d.csv", index))
}

func StaticChartSVG(key string, index int) string {
	return path.Join("projects", key, "charts", fmt.Sprintf("%d.svg", index))
}

func StaticDiagramSVG(key string) string {
	return path.Join("projects", key, "diagram.svg")
}

func StaticDownload(key string, index int, file string) string {
	return path.Join("projects", key, "downloads", fmt.Sprintf("%d-%s", index, path.Base(file)))
}
