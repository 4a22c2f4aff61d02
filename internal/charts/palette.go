package charts

import (
	"fmt"
	"strings"

	"github.com/wcharczuk/go-chart/v2/drawing"
)

// palette is the series colour cycle.
var palette = []string{
	"#636efa", "#ef553b", "#00cc96", "#ab63fa", "#ffa15a",
	"#19d3f3", "#ff6692", "#b6e880", "#ff97ff", "#fecb52",
}

func paletteHex(i int) string {
	return palette[i%len(palette)]
}

func paletteColor(i int) drawing.Color {
	return drawing.ColorFromHex(strings.TrimPrefix(paletteHex(i), "#"))
}

func formatValue(v float64) string {
	return fmt.Sprintf("%.4g", v)
}

func truncate(s string, max int) string {
	runes := []rune(s)
	if len(runes) <= max {
		return s
	}
	if max <= 3 {
		return string(runes[:max])
	}
	return string(runes[:max-3]) + "..."
}
