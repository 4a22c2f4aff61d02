package types

import (
	"fmt"
	"path/filepath"
	"strings"
)

// ChartType enumerates the supported chart kinds.
type ChartType string

const (
	ChartBar       ChartType = "bar"
	ChartLine      ChartType = "line"
	ChartScatter   ChartType = "scatter"
	ChartPie       ChartType = "pie"
	ChartHistogram ChartType = "histogram"
)

// ParseChartType maps a spec's type string to a ChartType. Unknown values map to ChartBar and
// ok is false.
func ParseChartType(s string) (ChartType, bool) {
	switch ChartType(strings.ToLower(strings.TrimSpace(s))) {
	case ChartBar:
		return ChartBar, true
	case ChartLine:
		return ChartLine, true
	case ChartScatter:
		return ChartScatter, true
	case ChartPie:
		return ChartPie, true
	case ChartHistogram:
		return ChartHistogram, true
	default:
		return ChartBar, false
	}
}

// ChartVariant selects a bespoke rendering branch for specific datasets.
type ChartVariant string

const (
	VariantStandard            ChartVariant = "standard"
	VariantTrendClassification ChartVariant = "trend_classification"
	VariantClusterRevenue      ChartVariant = "cluster_revenue"
)

// variantFiles maps data file base names to their bespoke variant.
var variantFiles = map[string]ChartVariant{
	"trend_classification.csv":     VariantTrendClassification,
	"cluster_revenue_platform.csv": VariantClusterRevenue,
}

// ChartSpec declares one visualization: the CSV backing it and the columns it encodes.
type ChartSpec struct {
	Type        string       `yaml:"type" json:"type"`
	DataPath    string       `yaml:"data_path" json:"data_path" validate:"required"`
	X           string       `yaml:"x" json:"x,omitempty"`
	Y           string       `yaml:"y" json:"y,omitempty"`
	Color       string       `yaml:"color,omitempty" json:"color,omitempty"`
	Size        string       `yaml:"size,omitempty" json:"size,omitempty"`
	Title       string       `yaml:"title,omitempty" json:"title,omitempty"`
	Description string       `yaml:"description,omitempty" json:"description,omitempty"`
	Variant     ChartVariant `yaml:"variant,omitempty" json:"variant,omitempty" validate:"omitempty,oneof=standard trend_classification cluster_revenue"`

	// Kind is the parsed Type.
	Kind ChartType `yaml:"-" json:"kind"`
}

// Resolve sets Kind and Variant. An explicit variant wins over the data file name. The returned
// warning is non-empty when Type was not recognised.
func (c *ChartSpec) Resolve() string {
	kind, ok := ParseChartType(c.Type)
	c.Kind = kind

	if c.Variant == "" {
		c.Variant = VariantStandard
		if v, found := variantFiles[filepath.Base(c.DataPath)]; found {
			c.Variant = v
		}
	}

	if !ok {
		return fmt.Sprintf("chart %q: unknown type %q, rendering as bar", c.DisplayTitle(0), c.Type)
	}
	return ""
}

// DisplayTitle returns the title or a positional fallback.
func (c *ChartSpec) DisplayTitle(index int) string {
	if strings.TrimSpace(c.Title) != "" {
		return c.Title
	}
	return fmt.Sprintf("Visualization %d", index+1)
}

// CSVFileName is the file name offered when the chart's rows are downloaded.
func (c *ChartSpec) CSVFileName() string {
	title := strings.TrimSpace(c.Title)
	if title == "" {
		return "chart_data.csv"
	}
	return strings.ReplaceAll(strings.ToLower(title), " ", "_") + ".csv"
}
