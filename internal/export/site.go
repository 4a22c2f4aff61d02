// Package export writes the portfolio as a static site and as a SQLite catalog.
package export

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"slices"
	"sync"

	"github.com/jonathan/analytics-portfolio/internal/catalog"
	"github.com/jonathan/analytics-portfolio/internal/charts"
	"github.com/jonathan/analytics-portfolio/internal/diagram"
	"github.com/jonathan/analytics-portfolio/internal/loader"
	"github.com/jonathan/analytics-portfolio/internal/rendering"
	"github.com/jonathan/analytics-portfolio/internal/routing"
	"github.com/jonathan/analytics-portfolio/internal/types"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

const defaultConcurrency = 4

// Options configures a site export.
type Options struct {
	OutDir    string
	BaseDir   string
	SiteTitle string
	Logger    *zap.Logger
	// Concurrency bounds how many projects are written at once.
	Concurrency int
}

// Summary counts what an export wrote.
type Summary struct {
	OutDir    string   `json:"out_dir"`
	Pages     int      `json:"pages"`
	Charts    int      `json:"charts"`
	ChartData int      `json:"chart_data"`
	Diagrams  int      `json:"diagrams"`
	Downloads int      `json:"downloads"`
	Missing   []string `json:"missing,omitempty"`
}

func (s *Summary) merge(o *Summary) {
	s.Pages += o.Pages
	s.Charts += o.Charts
	s.ChartData += o.ChartData
	s.Diagrams += o.Diagrams
	s.Downloads += o.Downloads
	s.Missing = append(s.Missing, o.Missing...)
}

// Exporter writes static sites. Pages link to each other and to their assets with relative
// paths, so the output works from any directory or file:// URL.
type Exporter struct {
	opts   Options
	pages  *rendering.Renderer
	charts *charts.Renderer
	logger *zap.Logger
}

// New creates an exporter.
func New(opts Options) (*Exporter, error) {
	if opts.OutDir == "" {
		return nil, errors.New("output directory is required")
	}
	if opts.Logger == nil {
		opts.Logger = zap.NewNop()
	}
	if opts.Concurrency <= 0 {
		opts.Concurrency = defaultConcurrency
	}

	chartRenderer := charts.NewRenderer(charts.Options{BaseDir: opts.BaseDir, Logger: opts.Logger})
	pages, err := rendering.New(rendering.Options{
		SiteTitle: opts.SiteTitle,
		BaseDir:   opts.BaseDir,
		Charts:    chartRenderer,
		Logger:    opts.Logger,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create page renderer: %w", err)
	}
	return &Exporter{opts: opts, pages: pages, charts: chartRenderer, logger: opts.Logger}, nil
}

// Export writes index.html and, for each project, its page, chart SVGs, chart CSVs, diagram SVG
// and downloads. Missing data files and downloads are listed in the summary, not treated as
// errors.
func (e *Exporter) Export(ctx context.Context, c *catalog.Catalog) (*Summary, error) {
	out := e.opts.OutDir
	if err := os.MkdirAll(out, 0755); err != nil {
		return nil, fmt.Errorf("failed to create output directory: %w", err)
	}

	summary := &Summary{OutDir: out}
	if err := e.writePage(filepath.Join(out, "index.html"), routing.State{}, c, rendering.StaticLinks{}); err != nil {
		return nil, err
	}
	summary.Pages++

	var mu sync.Mutex
	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(e.opts.Concurrency)
	projects := c.Projects()
	for i := range projects {
		p := &projects[i]
		g.Go(func() error {
			if err := ctx.Err(); err != nil {
				return err
			}
			ps, err := e.exportProject(p, c)
			if err != nil {
				return fmt.Errorf("project %s: %w", p.Key, err)
			}
			mu.Lock()
			summary.merge(ps)
			mu.Unlock()
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	slices.Sort(summary.Missing)

	e.logger.Info("site exported",
		zap.String("out", out),
		zap.Int("pages", summary.Pages),
		zap.Int("charts", summary.Charts),
		zap.Int("missing", len(summary.Missing)),
	)
	return summary, nil
}

func (e *Exporter) exportProject(p *types.Project, c *catalog.Catalog) (*Summary, error) {
	s := &Summary{}

	state := routing.State{}.WithProject(p.Key)
	if err := e.writePage(e.target(rendering.StaticProjectPage(p.Key)), state, c, rendering.StaticLinks{Root: "../"}); err != nil {
		return nil, err
	}
	s.Pages++

	for i, spec := range p.Visuals {
		res := e.charts.Render(i, spec)
		if res.Missing {
			s.Missing = append(s.Missing, spec.DataPath)
			continue
		}
		if res.Table != nil {
			var buf bytes.Buffer
			if err := res.Table.WriteCSV(&buf); err != nil {
				return nil, fmt.Errorf("failed to encode chart %d data: %w", i, err)
			}
			if err := writeFile(e.target(rendering.StaticChartCSV(p.Key, i)), buf.Bytes()); err != nil {
				return nil, err
			}
			s.ChartData++
		}
		if res.OK() {
			if err := writeFile(e.target(rendering.StaticChartSVG(p.Key, i)), res.SVG); err != nil {
				return nil, err
			}
			s.Charts++
		}
	}

	if p.Diagram.Renderable() {
		path := e.target(rendering.StaticDiagramSVG(p.Key))
		if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
			return nil, err
		}
		if err := diagram.WriteFile(path, diagram.Compute(p.Diagram)); err != nil {
			return nil, fmt.Errorf("failed to write diagram: %w", err)
		}
		s.Diagrams++
	}

	for i, d := range p.Downloads {
		src := loader.ResolvePath(e.opts.BaseDir, d.Path)
		err := copyFile(e.target(rendering.StaticDownload(p.Key, i, d.Path)), src)
		if errors.Is(err, os.ErrNotExist) {
			s.Missing = append(s.Missing, d.Path)
			continue
		}
		if err != nil {
			return nil, fmt.Errorf("failed to copy %s: %w", d.Path, err)
		}
		s.Downloads++
	}

	return s, nil
}

// target maps a slash-separated site path into the output directory.
func (e *Exporter) target(sitePath string) string {
	return filepath.Join(e.opts.OutDir, filepath.FromSlash(sitePath))
}

func (e *Exporter) writePage(path string, state routing.State, c *catalog.Catalog, links rendering.Linker) error {
	var buf bytes.Buffer
	if _, err := e.pages.Render(&buf, state, c, links); err != nil {
		return fmt.Errorf("failed to render %s: %w", filepath.Base(path), err)
	}
	return writeFile(path, buf.Bytes())
}

func writeFile(path string, data []byte) error {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return fmt.Errorf("failed to create %s: %w", filepath.Dir(path), err)
	}
	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("failed to write %s: %w", path, err)
	}
	return nil
}

func copyFile(dst, src string) error {
	in, err := os.Open(src)
	if err != nil {
		return err
	}
	defer func() { _ = in.Close() }()

	info, err := in.Stat()
	if err != nil {
		return err
	}
	if info.IsDir() {
		return fmt.Errorf("%s: %w", src, os.ErrNotExist)
	}

	if err := os.MkdirAll(filepath.Dir(dst), 0755); err != nil {
		return err
	}
	out, err := os.Create(dst)
	if err != nil {
		return err
	}
	if _, err := io.Copy(out, in); err != nil {
		_ = out.Close()
		return err
	}
	return out.Close()
}
