package rendering

import (
	"bytes"
	"embed"
	"html/template"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/jonathan/analytics-portfolio/internal/catalog"
	"github.com/jonathan/analytics-portfolio/internal/charts"
	"github.com/jonathan/analytics-portfolio/internal/diagram"
	"github.com/jonathan/analytics-portfolio/internal/loader"
	"github.com/jonathan/analytics-portfolio/internal/routing"
	"github.com/jonathan/analytics-portfolio/internal/types"
	"go.uber.org/zap"
)

//go:embed templates/*.tmpl
var templateFS embed.FS

const (
	// MaxPreviewRows caps the raw data table under each chart.
	MaxPreviewRows = 200
	cardTools      = 3
	defaultTitle   = "Analytics Portfolio"
)

var pageNames = []string{"home", "detail", "notfound"}

// Options configures a Renderer.
type Options struct {
	SiteTitle string
	// BaseDir resolves chart and download paths.
	BaseDir string
	Charts  *charts.Renderer
	Logger  *zap.Logger
}

// Renderer renders pages. It is safe for concurrent use.
type Renderer struct {
	siteTitle string
	baseDir   string
	charts    *charts.Renderer
	logger    *zap.Logger
	pages     map[string]*template.Template
	// drawDiagram draws the inline pipeline SVG.
	drawDiagram func(io.Writer, *diagram.Layout) error
}

// New parses the embedded templates.
func New(opts Options) (*Renderer, error) {
	if opts.SiteTitle == "" {
		opts.SiteTitle = defaultTitle
	}
	if opts.Logger == nil {
		opts.Logger = zap.NewNop()
	}
	if opts.Charts == nil {
		opts.Charts = charts.NewRenderer(charts.Options{BaseDir: opts.BaseDir, Logger: opts.Logger})
	}

	base, err := template.New("pages").Funcs(template.FuncMap{
		"join": strings.Join,
		"add":  func(a, b int) int { return a + b },
	}).ParseFS(templateFS, "templates/layout.html.tmpl")
	if err != nil {
		return nil, &TemplateError{Message: "failed to parse layout", Cause: err}
	}

	pages := make(map[string]*template.Template, len(pageNames))
	for _, name := range pageNames {
		t, err := base.Clone()
		if err != nil {
			return nil, &TemplateError{Message: "failed to clone layout", Cause: err}
		}
		if _, err := t.ParseFS(templateFS, "templates/"+name+".html.tmpl"); err != nil {
			return nil, &TemplateError{Page: name, Message: "failed to parse template", Cause: err}
		}
		pages[name] = t
	}

	return &Renderer{
		siteTitle:   opts.SiteTitle,
		baseDir:     opts.BaseDir,
		charts:      opts.Charts,
		logger:      opts.Logger,
		pages:       pages,
		drawDiagram: diagram.RenderSVG,
	}, nil
}

// Render resolves the state against the catalog and writes the matching page. The route is
// returned so callers can pick a status code.
func (r *Renderer) Render(w io.Writer, state routing.State, c *catalog.Catalog, links Linker) (routing.Route, error) {
	route := routing.Resolve(state, c)
	var err error
	switch route.Kind {
	case routing.Detail:
		err = r.Detail(w, state, c, route.Project, links)
	case routing.NotFound:
		err = r.NotFound(w, state, c, route.Key, links)
	default:
		err = r.Home(w, state, c, links)
	}
	return route, err
}

// Home writes the listing page for the state's filters.
func (r *Renderer) Home(w io.Writer, state routing.State, c *catalog.Catalog, links Linker) error {
	all := c.Projects()
	shown := catalog.Filter(all, state.Tags, state.Search)

	home := &HomeView{
		Profile:  c.Profile(),
		Stats:    catalog.ComputeStats(shown),
		Filtered: state.Filtered(),
		Shown:    len(shown),
		Total:    len(all),
	}
	for i := range shown {
		p := &shown[i]
		card := Card{
			Number:  i + 1,
			Key:     p.Key,
			Title:   p.Title,
			Summary: p.Summary,
			Tags:    p.Tags,
			Tools:   p.Tools[:min(cardTools, len(p.Tools))],
			URL:     links.State(state.WithProject(p.Key)),
		}
		if len(p.Impact) > 0 {
			card.FirstImpact = p.Impact[0]
		}
		home.Cards = append(home.Cards, card)
	}

	page := r.page(state, c, links, len(shown))
	page.Home = home
	return r.execute(w, "home", page)
}

// Detail writes a project page.
func (r *Renderer) Detail(w io.Writer, state routing.State, c *catalog.Catalog, p *types.Project, links Linker) error {
	detail := &DetailView{
		Project:    p,
		BackURL:    links.State(state.Clear()),
		Impact:     impactViews(p.ImpactItems),
		ToolGroups: p.ToolGroups,
		Meta: Metadata{
			Key:            p.Key,
			Visualizations: len(p.Visuals),
			Tags:           len(p.Tags),
			Objectives:     len(p.Objectives),
		},
	}

	if p.Diagram.Renderable() {
		detail.Diagram = r.diagramView(p, links)
	}

	for _, res := range r.charts.RenderAll(p.Visuals) {
		detail.Charts = append(detail.Charts, chartView(p.Key, res, links))
	}

	for i, d := range p.Downloads {
		path := loader.ResolvePath(r.baseDir, d.Path)
		_, statErr := os.Stat(path)
		detail.Downloads = append(detail.Downloads, DownloadView{
			Label:     d.Label,
			FileName:  filepath.Base(d.Path),
			URL:       links.Download(p.Key, i, d.Path),
			Available: statErr == nil,
			MIMEType:  DownloadMIME(d.Path),
		})
	}

	page := r.page(state, c, links, c.Len())
	page.Title = p.Title
	page.Detail = detail
	return r.execute(w, "detail", page)
}

// NotFound writes the page for an unknown project key.
func (r *Renderer) NotFound(w io.Writer, state routing.State, c *catalog.Catalog, key string, links Linker) error {
	page := r.page(state, c, links, c.Len())
	page.Title = "Project not found"
	page.NotFound = &NotFoundView{Key: key, HomeURL: links.State(state.Clear())}
	return r.execute(w, "notfound", page)
}

// diagramView lays out the pipeline. A drawing failure becomes an inline notice in the
// Pipeline tab; the rest of the page still renders.
func (r *Renderer) diagramView(p *types.Project, links Linker) *DiagramView {
	layout := diagram.Compute(p.Diagram)
	dv := &DiagramView{
		SVGURL:   links.DiagramSVG(p.Key),
		Legend:   diagram.Legend(layout),
		Skipped:  len(layout.Skipped),
		Parallel: layout.Parallel,
	}

	var buf bytes.Buffer
	if err := r.drawDiagram(&buf, layout); err != nil {
		err = &RenderError{Message: "failed to draw pipeline diagram", Cause: err}
		r.logger.Warn("pipeline diagram not drawn", zap.String("project", p.Key), zap.Error(err))
		dv.Error = err.Error()
		return dv
	}
	dv.SVG = inlineSVG(buf.Bytes())
	return dv
}

func chartView(key string, res charts.Result, links Linker) ChartView {
	cv := ChartView{
		Number:      res.Index + 1,
		Title:       res.Title,
		Description: res.Spec.Description,
		Missing:     res.Missing,
		CSVURL:      links.ChartCSV(key, res.Index),
		CSVName:     res.Spec.CSVFileName(),
	}
	if res.Err != nil {
		cv.Error = res.Err.Error()
	}
	if res.SVG != nil {
		cv.SVG = inlineSVG(res.SVG)
	}
	if res.Table != nil {
		cv.Columns = res.Table.Columns
		cv.RowCount = res.Table.Len()
		cv.Rows = res.Table.Rows
		if len(cv.Rows) > MaxPreviewRows {
			cv.Rows = cv.Rows[:MaxPreviewRows]
			cv.Truncated = true
		}
	}
	return cv
}

func (r *Renderer) page(state routing.State, c *catalog.Catalog, links Linker, shown int) *Page {
	sb := Sidebar{
		HomeURL:         links.State(state.Clear()),
		Search:          state.Search,
		Interactive:     links.Interactive(),
		Filtered:        state.Filtered(),
		Shown:           shown,
		Total:           c.Len(),
		ClearFiltersURL: links.State(state.Clear().WithoutFilters()),
	}
	for i, p := range c.Projects() {
		sb.Projects = append(sb.Projects, NavItem{
			Number: i + 1,
			Title:  p.Title,
			URL:    links.State(state.WithProject(p.Key)),
			Active: p.Key == state.ProjectKey,
		})
	}
	for _, t := range c.Tags() {
		sb.Tags = append(sb.Tags, TagOption{Name: t, Selected: state.HasTag(t)})
	}
	return &Page{SiteTitle: r.siteTitle, Title: r.siteTitle, Sidebar: sb}
}

func (r *Renderer) execute(w io.Writer, name string, page *Page) error {
	var buf bytes.Buffer
	if err := r.pages[name].ExecuteTemplate(&buf, "layout", page); err != nil {
		return &TemplateError{Page: name, Message: "failed to execute template", Cause: err}
	}
	if _, err := buf.WriteTo(w); err != nil {
		return &RenderError{Message: "failed to write page", Cause: err}
	}
	return nil
}

// DownloadMIME is the content type a resource is served with.
func DownloadMIME(path string) string {
	if strings.EqualFold(filepath.Ext(path), ".csv") {
		return "text/csv"
	}
	return "application/octet-stream"
}
