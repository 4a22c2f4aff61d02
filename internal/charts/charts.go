// Package charts renders a project's chart specs to SVG. Each chart is rendered in isolation: a
// missing data file or a failing chart is reported on its own Result and never affects siblings.
package charts

import (
	"bytes"
	"errors"
	"fmt"
	"os"

	"github.com/jonathan/analytics-portfolio/internal/dataset"
	"github.com/jonathan/analytics-portfolio/internal/loader"
	"github.com/jonathan/analytics-portfolio/internal/types"
	"go.uber.org/zap"
)

// Default canvas size in pixels.
const (
	DefaultWidth  = 900
	DefaultHeight = 500
)

// Options configures a Renderer.
type Options struct {
	// BaseDir resolves relative data paths.
	BaseDir string
	Width   int
	Height  int
	Logger  *zap.Logger
}

// Renderer turns chart specs into SVG documents.
type Renderer struct {
	baseDir string
	width   int
	height  int
	logger  *zap.Logger
}

// NewRenderer creates a Renderer, filling unset options with defaults.
func NewRenderer(opts Options) *Renderer {
	if opts.Width <= 0 {
		opts.Width = DefaultWidth
	}
	if opts.Height <= 0 {
		opts.Height = DefaultHeight
	}
	if opts.Logger == nil {
		opts.Logger = zap.NewNop()
	}
	return &Renderer{baseDir: opts.BaseDir, width: opts.Width, height: opts.Height, logger: opts.Logger}
}

// Result is the outcome of rendering one chart. Exactly one of Missing, Err or SVG is set.
type Result struct {
	Index int
	Spec  types.ChartSpec
	Title string

	// Missing is true when the data file does not exist.
	Missing bool
	// Err is the load or render failure.
	Err error
	// Table is the chart's source rows, available whenever the file could be read.
	Table *dataset.Table
	SVG   []byte
}

// OK reports whether the chart rendered.
func (r *Result) OK() bool {
	return !r.Missing && r.Err == nil
}

// DataPath resolves the chart's data file against the base directory.
func (r *Renderer) DataPath(spec types.ChartSpec) string {
	return loader.ResolvePath(r.baseDir, spec.DataPath)
}

// LoadData reads the chart's CSV file. A missing file yields an error wrapping os.ErrNotExist.
func (r *Renderer) LoadData(spec types.ChartSpec) (*dataset.Table, error) {
	return dataset.LoadCSV(r.DataPath(spec))
}

// RenderAll renders every spec in order.
func (r *Renderer) RenderAll(specs []types.ChartSpec) []Result {
	results := make([]Result, len(specs))
	for i, spec := range specs {
		results[i] = r.Render(i, spec)
	}
	return results
}

// Render renders one chart. Failures, including panics inside the charting code, are captured
// on the Result.
func (r *Renderer) Render(index int, spec types.ChartSpec) (res Result) {
	if spec.Kind == "" {
		spec.Resolve()
	}
	res = Result{Index: index, Spec: spec, Title: spec.DisplayTitle(index)}

	table, err := r.LoadData(spec)
	if errors.Is(err, os.ErrNotExist) {
		res.Missing = true
		return res
	}
	if err != nil {
		res.Err = err
		r.logFailure(res)
		return res
	}
	res.Table = table

	defer func() {
		if p := recover(); p != nil {
			res.SVG = nil
			res.Err = fmt.Errorf("chart renderer panicked: %v", p)
			r.logFailure(res)
		}
	}()

	var buf bytes.Buffer
	if err := r.draw(&buf, spec, res.Title, table); err != nil {
		res.Err = err
		r.logFailure(res)
		return res
	}
	res.SVG = buf.Bytes()
	return res
}

func (r *Renderer) logFailure(res Result) {
	r.logger.Warn("chart failed",
		zap.Int("index", res.Index),
		zap.String("title", res.Title),
		zap.String("data_path", res.Spec.DataPath),
		zap.Error(res.Err),
	)
}

// draw selects the branch: bespoke variants first, then the chart kind.
func (r *Renderer) draw(buf *bytes.Buffer, spec types.ChartSpec, title string, table *dataset.Table) error {
	switch spec.Variant {
	case types.VariantTrendClassification:
		return r.trendClassification(buf, title, table)
	case types.VariantClusterRevenue:
		return r.clusterRevenue(buf, spec, title, table)
	}

	switch spec.Kind {
	case types.ChartLine:
		return r.lineOrScatter(buf, spec, title, table, false)
	case types.ChartScatter:
		return r.lineOrScatter(buf, spec, title, table, true)
	case types.ChartPie:
		return r.pie(buf, spec, title, table)
	case types.ChartHistogram:
		return r.histogram(buf, spec, title, table)
	default:
		return r.bar(buf, spec, title, table)
	}
}

// trendColumns are melted by the trend classification variant.
var trendColumns = []string{"visit_trend", "revenue_trend", "item_trend"}

// RequiredColumns lists the columns the chart's branch reads. Unset encodings are omitted.
func RequiredColumns(spec types.ChartSpec) []string {
	if spec.Kind == "" {
		spec.Resolve()
	}
	var cols []string
	switch spec.Variant {
	case types.VariantTrendClassification:
		return append(cols, trendColumns...)
	case types.VariantClusterRevenue:
		cols = []string{spec.X, spec.Y, spec.Color}
	default:
		switch spec.Kind {
		case types.ChartLine, types.ChartScatter:
			cols = []string{spec.X, spec.Y, spec.Color, spec.Size}
		case types.ChartPie:
			names := spec.Color
			if names == "" {
				names = spec.X
			}
			cols = []string{names, spec.Y}
		case types.ChartHistogram:
			cols = []string{spec.X, spec.Color}
		default:
			cols = []string{spec.X, spec.Y, spec.Color}
		}
	}
	out := cols[:0]
	for _, c := range cols {
		if c != "" {
			out = append(out, c)
		}
	}
	return out
}
