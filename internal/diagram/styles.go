package diagram

import "github.com/jonathan/analytics-portfolio/internal/types"

// Style is how one step kind is drawn.
type Style struct {
	Fill        string `json:"fill"`
	Border      string `json:"border"`
	Icon        string `json:"icon"`
	Label       string `json:"label"`
	Description string `json:"description"`
}

// styleOrder is the legend order. It matches the keyword precedence used to classify nodes.
var styleOrder = []types.StepKind{
	types.StepInput,
	types.StepPreprocessing,
	types.StepKeyword,
	types.StepAI,
	types.StepValidation,
	types.StepOutput,
	types.StepAutomation,
	types.StepProcess,
}

var styles = map[types.StepKind]Style{
	types.StepInput:         {Fill: "#10b981", Border: "#065f46", Icon: "📥", Label: "Input", Description: "Data ingestion"},
	types.StepPreprocessing: {Fill: "#3b82f6", Border: "#1e40af", Icon: "🔧", Label: "Processing", Description: "Cleaning and preparation"},
	types.StepKeyword:       {Fill: "#f59e0b", Border: "#92400e", Icon: "🎯", Label: "Matching", Description: "Rule and keyword matching"},
	types.StepAI:            {Fill: "#8b5cf6", Border: "#5b21b6", Icon: "🤖", Label: "AI/ML", Description: "Model inference"},
	types.StepValidation:    {Fill: "#06d6a0", Border: "#047857", Icon: "✅", Label: "Validation", Description: "Quality checks"},
	types.StepOutput:        {Fill: "#fb923c", Border: "#c2410c", Icon: "📤", Label: "Output", Description: "Results and reporting"},
	types.StepAutomation:    {Fill: "#ef4444", Border: "#991b1b", Icon: "⚙️", Label: "Automation", Description: "Scheduled automation"},
	types.StepProcess:       {Fill: "#6b7280", Border: "#374151", Icon: "🔹", Label: "Process", Description: "Data processing step"},
}

// StyleFor returns the style of a kind; unknown kinds get the Process style.
func StyleFor(kind types.StepKind) Style {
	if s, ok := styles[kind]; ok {
		return s
	}
	return styles[types.StepProcess]
}

// LegendEntry is one step kind present in a diagram.
type LegendEntry struct {
	Kind  types.StepKind `json:"kind"`
	Style Style          `json:"style"`
	Count int            `json:"count"`
}

// Legend counts the kinds used by the laid-out nodes, in legend order.
func Legend(l *Layout) []LegendEntry {
	counts := make(map[types.StepKind]int)
	for _, n := range l.Nodes {
		counts[n.Kind]++
	}
	var out []LegendEntry
	for _, k := range styleOrder {
		if counts[k] > 0 {
			out = append(out, LegendEntry{Kind: k, Style: StyleFor(k), Count: counts[k]})
		}
	}
	return out
}
