package charts

import (
	"bytes"
	"fmt"
	"io"
	"math"
	"strings"

	svg "github.com/ajstarks/svgo"
	"github.com/jonathan/analytics-portfolio/internal/dataset"
	"github.com/jonathan/analytics-portfolio/internal/types"
)

// clusterHoverColumns are shown in the tooltip of cluster revenue bars when present.
var clusterHoverColumns = []string{"sku_count", "avg_price_bucket"}

// groupedBars is a category x series matrix drawn as side-by-side bars.
type groupedBars struct {
	title      string
	xName      string
	yName      string
	categories []string
	series     []string
	values     [][]float64
	present    [][]bool
	tips       [][]string
}

func newGroupedBars(title, xName, yName string, categories, series []string) *groupedBars {
	g := &groupedBars{
		title:      title,
		xName:      xName,
		yName:      yName,
		categories: categories,
		series:     series,
		values:     make([][]float64, len(categories)),
		present:    make([][]bool, len(categories)),
		tips:       make([][]string, len(categories)),
	}
	for i := range categories {
		g.values[i] = make([]float64, len(series))
		g.present[i] = make([]bool, len(series))
		g.tips[i] = make([]string, len(series))
	}
	return g
}

func (r *Renderer) clusterRevenue(buf *bytes.Buffer, spec types.ChartSpec, title string, table *dataset.Table) error {
	if err := requireColumns(table, spec.X, spec.Y, spec.Color); err != nil {
		return err
	}
	var hover []string
	for _, c := range clusterHoverColumns {
		if table.HasColumn(c) {
			hover = append(hover, c)
		}
	}
	return r.groupedFromTable(buf, spec, title, table, hover)
}

// groupedFromTable sums y per (x, color) cell. The tooltip of each bar lists the cell's
// coordinates, its total and the hover columns of the cell's first row.
func (r *Renderer) groupedFromTable(buf *bytes.Buffer, spec types.ChartSpec, title string, table *dataset.Table, hover []string) error {
	xs, err := table.Column(spec.X)
	if err != nil {
		return err
	}
	ys, err := table.Floats(spec.Y)
	if err != nil {
		return err
	}
	colors := make([]string, len(xs))
	if spec.Color != "" {
		if colors, err = table.Column(spec.Color); err != nil {
			return err
		}
	} else {
		for i := range colors {
			colors[i] = spec.Y
		}
	}
	hoverCells := make([][]string, len(hover))
	for i, h := range hover {
		if hoverCells[i], err = table.Column(h); err != nil {
			return err
		}
	}

	categories, catIndex := distinct(xs)
	series, seriesIndex := distinct(colors)
	g := newGroupedBars(title, spec.X, spec.Y, categories, series)

	for row := range xs {
		ci, si := catIndex[xs[row]], seriesIndex[colors[row]]
		g.values[ci][si] += ys[row]
		if !g.present[ci][si] {
			g.present[ci][si] = true
			var tip []string
			for i, h := range hover {
				tip = append(tip, fmt.Sprintf("%s: %s", h, hoverCells[i][row]))
			}
			g.tips[ci][si] = strings.Join(tip, "\n")
		}
	}
	for ci := range categories {
		for si := range series {
			head := fmt.Sprintf("%s: %s\n%s: %s", spec.X, categories[ci], spec.Y, formatValue(g.values[ci][si]))
			if spec.Color != "" {
				head = fmt.Sprintf("%s: %s\n%s", spec.Color, series[si], head)
			}
			if g.tips[ci][si] != "" {
				head += "\n" + g.tips[ci][si]
			}
			g.tips[ci][si] = head
		}
	}

	return g.render(buf, r.width, r.height)
}

func distinct(values []string) ([]string, map[string]int) {
	index := make(map[string]int)
	var out []string
	for _, v := range values {
		if _, ok := index[v]; !ok {
			index[v] = len(out)
			out = append(out, v)
		}
	}
	return out, index
}

const (
	plotLeft   = 80
	plotTop    = 60
	plotBottom = 90
	legendW    = 170
)

const textStyle = "font-family:sans-serif;font-size:11px;fill:#374151"

func (g *groupedBars) bounds() (float64, float64) {
	lo, hi := 0.0, 0.0
	for ci := range g.values {
		for si, v := range g.values[ci] {
			if g.present[ci][si] {
				lo, hi = math.Min(lo, v), math.Max(hi, v)
			}
		}
	}
	if hi == lo {
		hi = lo + 1
	}
	return lo, hi
}

func (g *groupedBars) render(w io.Writer, width, height int) error {
	if len(g.categories) == 0 {
		return fmt.Errorf("no rows to plot")
	}

	plotW := width - plotLeft - legendW
	plotH := height - plotTop - plotBottom
	lo, hi := g.bounds()
	scaleY := func(v float64) int {
		return plotTop + int(math.Round(float64(plotH)*(hi-v)/(hi-lo)))
	}

	canvas := svg.New(w)
	canvas.Start(width, height)
	canvas.Rect(0, 0, width, height, "fill:#ffffff")
	canvas.Text(width/2, 30, g.title, "text-anchor:middle;font-family:sans-serif;font-size:16px;font-weight:bold;fill:#111827")

	// Grid and y ticks.
	const ticks = 5
	for i := 0; i <= ticks; i++ {
		v := lo + (hi-lo)*float64(i)/ticks
		y := scaleY(v)
		canvas.Line(plotLeft, y, plotLeft+plotW, y, "stroke:#e5e7eb;stroke-width:1")
		canvas.Text(plotLeft-8, y+4, formatValue(v), "text-anchor:end;"+textStyle)
	}
	zero := scaleY(0)
	canvas.Line(plotLeft, zero, plotLeft+plotW, zero, "stroke:#9ca3af;stroke-width:1")

	groupW := float64(plotW) / float64(len(g.categories))
	barW := groupW * 0.8 / float64(len(g.series))
	for ci, cat := range g.categories {
		x0 := float64(plotLeft) + groupW*float64(ci) + groupW*0.1
		for si := range g.series {
			if !g.present[ci][si] {
				continue
			}
			v := g.values[ci][si]
			top, bottom := scaleY(v), zero
			if v < 0 {
				top, bottom = zero, scaleY(v)
			}
			canvas.Group()
			canvas.Title(g.tips[ci][si])
			canvas.Rect(int(x0+barW*float64(si)), top, int(math.Max(1, barW-1)), bottom-top, "fill:"+paletteHex(si))
			canvas.Gend()
		}
		cx := int(x0 + groupW*0.4)
		canvas.Text(cx, plotTop+plotH+18, truncate(cat, 14), "text-anchor:middle;"+textStyle)
	}

	canvas.Text(plotLeft+plotW/2, height-20, g.xName, "text-anchor:middle;"+textStyle)
	canvas.Text(20, plotTop-16, g.yName, textStyle)

	lx := plotLeft + plotW + 20
	for si, name := range g.series {
		ly := plotTop + 20*si
		canvas.Rect(lx, ly, 12, 12, "fill:"+paletteHex(si))
		canvas.Text(lx+18, ly+10, truncate(name, 20), textStyle)
	}

	canvas.End()
	return nil
}
