package charts

import (
	"bytes"
	"fmt"
	"io"
	"math"

	"github.com/jonathan/analytics-portfolio/internal/dataset"
	"github.com/jonathan/analytics-portfolio/internal/types"
	"github.com/wcharczuk/go-chart/v2"
	"github.com/wcharczuk/go-chart/v2/drawing"
	"gonum.org/v1/gonum/floats"
)

// requireColumns reports the first named column the table lacks. Empty names are skipped.
func requireColumns(table *dataset.Table, names ...string) error {
	for _, n := range names {
		if n == "" {
			continue
		}
		if _, err := table.ColumnIndex(n); err != nil {
			return err
		}
	}
	return nil
}

// sumByLabel totals y per x label, keeping first-appearance order.
func sumByLabel(labels []string, values []float64) ([]string, []float64) {
	index := make(map[string]int)
	var outLabels []string
	var outValues []float64
	for i, l := range labels {
		j, ok := index[l]
		if !ok {
			j = len(outLabels)
			index[l] = j
			outLabels = append(outLabels, l)
			outValues = append(outValues, 0)
		}
		outValues[j] += values[i]
	}
	return outLabels, outValues
}

// valueRange spans values for an axis. withZero keeps 0 inside the range so bars grow from a zero
// baseline. A range with no extent is widened so the axis still has a scale.
func valueRange(values []float64, withZero bool) *chart.ContinuousRange {
	lo, hi := floats.Min(values), floats.Max(values)
	if withZero {
		lo, hi = math.Min(lo, 0), math.Max(hi, 0)
	}
	if hi == lo {
		if withZero {
			hi = lo + 1
		} else {
			lo, hi = lo-1, hi+1
		}
	}
	return &chart.ContinuousRange{Min: lo, Max: hi}
}

// flat reports whether values have no spread, which go-chart cannot scale an axis to.
func flat(values []float64) bool {
	return floats.Min(values) == floats.Max(values)
}

func (r *Renderer) barChart(w io.Writer, title, yName string, labels []string, values []float64) error {
	if len(labels) == 0 {
		return fmt.Errorf("no rows to plot")
	}
	bars := make([]chart.Value, len(labels))
	for i := range labels {
		bars[i] = chart.Value{
			Label: truncate(labels[i], 18),
			Value: values[i],
			Style: chart.Style{
				FillColor:   paletteColor(0),
				StrokeColor: paletteColor(0),
			},
		}
	}

	barWidth := (r.width - 120) / (2 * len(bars))
	if barWidth < 4 {
		barWidth = 4
	}
	xStyle := chart.Style{}
	if len(bars) > 6 {
		xStyle.TextRotationDegrees = 45
	}

	bc := chart.BarChart{
		Title:        title,
		Width:        r.width,
		Height:       r.height,
		BarWidth:     barWidth,
		BarSpacing:   barWidth,
		Background:   chart.Style{Padding: chart.Box{Top: 50, Left: 16, Right: 16, Bottom: 16}},
		XAxis:        xStyle,
		YAxis:        chart.YAxis{Name: yName, Range: valueRange(values, true)},
		UseBaseValue: true,
		BaseValue:    0,
		Bars:         bars,
	}
	return bc.Render(chart.SVG, w)
}

func (r *Renderer) bar(buf *bytes.Buffer, spec types.ChartSpec, title string, table *dataset.Table) error {
	if err := requireColumns(table, spec.X, spec.Y, spec.Color); err != nil {
		return err
	}
	if spec.Color != "" {
		return r.groupedFromTable(buf, spec, title, table, nil)
	}

	labels, err := table.Column(spec.X)
	if err != nil {
		return err
	}
	values, err := table.Floats(spec.Y)
	if err != nil {
		return err
	}
	labels, values = sumByLabel(labels, values)
	return r.barChart(buf, title, spec.Y, labels, values)
}

// xPositions maps the x column to plot coordinates. Numeric columns are used as-is; anything else
// is treated as categories placed at 0, 1, 2... in first-appearance order and labelled with ticks.
func xPositions(table *dataset.Table, column string) ([]float64, []chart.Tick, error) {
	if xs, err := table.Floats(column); err == nil {
		return xs, nil, nil
	}
	cells, err := table.Column(column)
	if err != nil {
		return nil, nil, err
	}

	index := make(map[string]int)
	var ticks []chart.Tick
	xs := make([]float64, len(cells))
	for i, c := range cells {
		pos, ok := index[c]
		if !ok {
			pos = len(ticks)
			index[c] = pos
			ticks = append(ticks, chart.Tick{Value: float64(pos), Label: truncate(c, 14)})
		}
		xs[i] = float64(pos)
	}
	if len(ticks) == 1 {
		// One category gives the axis no extent; pad it with unlabelled ticks.
		ticks = []chart.Tick{{Value: -1}, ticks[0], {Value: 1}}
	}
	return xs, ticks, nil
}

func (r *Renderer) lineOrScatter(buf *bytes.Buffer, spec types.ChartSpec, title string, table *dataset.Table, scatter bool) error {
	if err := requireColumns(table, spec.X, spec.Y, spec.Color, spec.Size); err != nil {
		return err
	}
	xs, ticks, err := xPositions(table, spec.X)
	if err != nil {
		return err
	}
	ys, err := table.Floats(spec.Y)
	if err != nil {
		return err
	}
	if len(xs) == 0 {
		return fmt.Errorf("no rows to plot")
	}

	var sizes []float64
	if scatter && spec.Size != "" {
		if sizes, err = table.Floats(spec.Size); err != nil {
			return err
		}
	}

	groups := []dataset.Group{{Value: spec.Y, Rows: allRows(len(xs))}}
	if spec.Color != "" {
		if groups, err = table.GroupBy(spec.Color); err != nil {
			return err
		}
	}

	series := make([]chart.Series, 0, len(groups))
	for gi, g := range groups {
		gx := make([]float64, len(g.Rows))
		gy := make([]float64, len(g.Rows))
		var gs []float64
		for i, row := range g.Rows {
			gx[i], gy[i] = xs[row], ys[row]
			if sizes != nil {
				gs = append(gs, sizes[row])
			}
		}
		series = append(series, chart.ContinuousSeries{
			Name:    g.Value,
			XValues: gx,
			YValues: gy,
			Style:   seriesStyle(gi, scatter, gs),
		})
	}

	xAxis := chart.XAxis{Name: spec.X, Ticks: ticks}
	if ticks == nil && flat(xs) {
		xAxis.Range = valueRange(xs, false)
	}
	yAxis := chart.YAxis{Name: spec.Y}
	if flat(ys) {
		yAxis.Range = valueRange(ys, false)
	}
	ch := chart.Chart{
		Title:      title,
		Width:      r.width,
		Height:     r.height,
		Background: chart.Style{Padding: chart.Box{Top: 50, Left: 16, Right: 16, Bottom: 16}},
		XAxis:      xAxis,
		YAxis:      yAxis,
		Series:     series,
	}
	if len(series) > 1 {
		ch.Elements = []chart.Renderable{chart.Legend(&ch)}
	}
	return ch.Render(chart.SVG, buf)
}

func allRows(n int) []int {
	rows := make([]int, n)
	for i := range rows {
		rows[i] = i
	}
	return rows
}

// seriesStyle draws lines, or dots only for scatter plots. Dot size follows sizes when given.
func seriesStyle(i int, scatter bool, sizes []float64) chart.Style {
	c := paletteColor(i)
	if !scatter {
		return chart.Style{StrokeColor: c, StrokeWidth: 2}
	}

	st := chart.Style{
		StrokeWidth: 0,
		StrokeColor: drawing.ColorTransparent,
		DotWidth:    5,
		DotColor:    c,
	}
	if len(sizes) > 0 {
		lo, hi := sizes[0], sizes[0]
		for _, s := range sizes {
			lo, hi = math.Min(lo, s), math.Max(hi, s)
		}
		st.DotWidthProvider = func(_, _ chart.Range, index int, _, _ float64) float64 {
			if hi == lo || index >= len(sizes) {
				return 6
			}
			return 3 + 12*(sizes[index]-lo)/(hi-lo)
		}
	}
	return st
}

func (r *Renderer) pie(buf *bytes.Buffer, spec types.ChartSpec, title string, table *dataset.Table) error {
	names := spec.Color
	if names == "" {
		names = spec.X
	}
	if err := requireColumns(table, names, spec.Y); err != nil {
		return err
	}
	labels, err := table.Column(names)
	if err != nil {
		return err
	}
	values, err := table.Floats(spec.Y)
	if err != nil {
		return err
	}
	labels, values = sumByLabel(labels, values)

	var wedges []chart.Value
	for i, v := range values {
		if v <= 0 {
			continue
		}
		wedges = append(wedges, chart.Value{
			Label: fmt.Sprintf("%s (%s)", truncate(labels[i], 18), formatValue(v)),
			Value: v,
			Style: chart.Style{FillColor: paletteColor(len(wedges))},
		})
	}
	if len(wedges) == 0 {
		return fmt.Errorf("pie chart has no positive values in column %q", spec.Y)
	}

	pc := chart.PieChart{
		Title:  title,
		Width:  r.width,
		Height: r.height,
		Values: wedges,
	}
	return pc.Render(chart.SVG, buf)
}

// trendClassification melts the three trend columns into one and counts each trend pattern.
func (r *Renderer) trendClassification(buf *bytes.Buffer, title string, table *dataset.Table) error {
	var ids []string
	for _, c := range []string{"id", "month"} {
		if table.HasColumn(c) {
			ids = append(ids, c)
		}
	}
	long, err := table.Melt(ids, trendColumns, "trend_type", "trend_pattern")
	if err != nil {
		return err
	}
	patterns, err := long.Column("trend_pattern")
	if err != nil {
		return err
	}

	counts := dataset.ValueCounts(patterns)
	labels := make([]string, len(counts))
	values := make([]float64, len(counts))
	for i, c := range counts {
		labels[i], values[i] = c.Value, float64(c.N)
	}
	return r.barChart(buf, title, "count", labels, values)
}
