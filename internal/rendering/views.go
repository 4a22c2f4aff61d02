package rendering

import (
	"bytes"
	"html/template"

	"github.com/jonathan/analytics-portfolio/internal/catalog"
	"github.com/jonathan/analytics-portfolio/internal/diagram"
	"github.com/jonathan/analytics-portfolio/internal/types"
)

// Page is the data every template receives.
type Page struct {
	SiteTitle string
	Title     string
	Sidebar   Sidebar
	Home      *HomeView
	Detail    *DetailView
	NotFound  *NotFoundView
}

// NavItem is one entry of the sidebar quick-jump list.
type NavItem struct {
	Number int
	Title  string
	URL    string
	Active bool
}

// TagOption is a tag in the sidebar filter.
type TagOption struct {
	Name     string
	Selected bool
}

// Sidebar is shown on every page.
type Sidebar struct {
	HomeURL         string
	Projects        []NavItem
	Tags            []TagOption
	Search          string
	Interactive     bool
	Filtered        bool
	Shown           int
	Total           int
	ClearFiltersURL string
}

// HomeView is the listing page.
type HomeView struct {
	Profile  *types.Profile
	Stats    catalog.Stats
	Cards    []Card
	Filtered bool
	Shown    int
	Total    int
}

// Card summarises one project on the home page.
type Card struct {
	Number      int
	Key         string
	Title       string
	Summary     string
	Tags        []string
	Tools       []string
	FirstImpact string
	URL         string
}

// DetailView is a project page.
type DetailView struct {
	Project    *types.Project
	BackURL    string
	Diagram    *DiagramView
	Charts     []ChartView
	Impact     []ImpactView
	Downloads  []DownloadView
	Meta       Metadata
	ToolGroups []types.ToolGroup
}

// DiagramView is a rendered pipeline diagram with its legend.
type DiagramView struct {
	SVG    template.HTML
	SVGURL string
	// Error replaces the drawing when it could not be produced.
	Error    string
	Legend   []diagram.LegendEntry
	Skipped  int
	Parallel []string
}

// ChartView is one chart, or the notice that replaces it.
type ChartView struct {
	Number      int
	Title       string
	Description string
	SVG         template.HTML
	Missing     bool
	Error       string
	Columns     []string
	Rows        [][]string
	RowCount    int
	Truncated   bool
	CSVURL      string
	CSVName     string
}

// ImpactView is an impact statement with its visual class.
type ImpactView struct {
	Text  string
	Kind  types.ImpactKind
	Icon  string
	Color string
}

// DownloadView is one resource link.
type DownloadView struct {
	Label     string
	FileName  string
	URL       string
	Available bool
	MIMEType  string
}

// Metadata is the summary block on the Resources tab.
type Metadata struct {
	Key            string
	Visualizations int
	Tags           int
	Objectives     int
}

// NotFoundView is shown for an unknown project key.
type NotFoundView struct {
	Key     string
	HomeURL string
}

var impactStyles = map[types.ImpactKind]struct{ icon, color string }{
	types.ImpactEfficiency: {"⚡", "#10b981"},
	types.ImpactAccuracy:   {"🎯", "#3b82f6"},
	types.ImpactGeneral:    {"📈", "#8b5cf6"},
}

// ImpactIcon is the icon shown next to an impact statement of the given kind.
func ImpactIcon(kind types.ImpactKind) string {
	if st, ok := impactStyles[kind]; ok {
		return st.icon
	}
	return impactStyles[types.ImpactGeneral].icon
}

func impactViews(items []types.ImpactItem) []ImpactView {
	out := make([]ImpactView, 0, len(items))
	for _, it := range items {
		st := impactStyles[it.Kind]
		out = append(out, ImpactView{Text: it.Text, Kind: it.Kind, Icon: st.icon, Color: st.color})
	}
	return out
}

// inlineSVG strips the XML prolog so an SVG document can be embedded in HTML.
func inlineSVG(doc []byte) template.HTML {
	if i := bytes.Index(doc, []byte("<svg")); i > 0 {
		doc = doc[i:]
	}
	return template.HTML(doc) //nolint:gosec // generated by our own renderers, text content is escaped
}
