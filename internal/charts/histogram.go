package charts

import (
	"bytes"
	"fmt"
	"math"
	"sort"

	"github.com/jonathan/analytics-portfolio/internal/dataset"
	"github.com/jonathan/analytics-portfolio/internal/types"
	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/stat"
)

const maxBins = 50

// binEdges returns Sturges-rule bin dividers spanning values. The last divider lies just above
// the maximum so every value falls in a bin.
func binEdges(values []float64) []float64 {
	lo, hi := floats.Min(values), floats.Max(values)
	if lo == hi {
		return []float64{lo - 0.5, hi + 0.5}
	}
	bins := int(math.Ceil(math.Log2(float64(len(values))))) + 1
	if bins > maxBins {
		bins = maxBins
	}
	edges := floats.Span(make([]float64, bins+1), lo, hi)
	edges[bins] = math.Nextafter(hi, math.Inf(1))
	return edges
}

func histogramCounts(values, edges []float64) []float64 {
	sorted := append([]float64(nil), values...)
	sort.Float64s(sorted)
	return stat.Histogram(nil, edges, sorted, nil)
}

func binLabels(edges []float64) []string {
	labels := make([]string, len(edges)-1)
	for i := range labels {
		labels[i] = fmt.Sprintf("%s-%s", formatValue(edges[i]), formatValue(edges[i+1]))
	}
	return labels
}

// histogram bins the x column. With a colour column every group is counted over the same bins
// and drawn side by side.
func (r *Renderer) histogram(buf *bytes.Buffer, spec types.ChartSpec, title string, table *dataset.Table) error {
	if err := requireColumns(table, spec.X, spec.Color); err != nil {
		return err
	}
	values, err := table.Floats(spec.X)
	if err != nil {
		return err
	}
	if len(values) == 0 {
		return fmt.Errorf("no rows to plot")
	}

	edges := binEdges(values)
	labels := binLabels(edges)

	if spec.Color == "" {
		return r.barChart(buf, title, "count", labels, histogramCounts(values, edges))
	}

	groups, err := table.GroupBy(spec.Color)
	if err != nil {
		return err
	}
	names := make([]string, len(groups))
	for i, grp := range groups {
		names[i] = grp.Value
	}

	g := newGroupedBars(title, spec.X, "count", labels, names)
	for si, grp := range groups {
		sub := make([]float64, len(grp.Rows))
		for i, row := range grp.Rows {
			sub[i] = values[row]
		}
		for ci, n := range histogramCounts(sub, edges) {
			g.values[ci][si] = n
			g.present[ci][si] = true
			g.tips[ci][si] = fmt.Sprintf("%s: %s\n%s: %s\ncount: %s", spec.Color, grp.Value, spec.X, labels[ci], formatValue(n))
		}
	}
	return g.render(buf, r.width, r.height)
}
