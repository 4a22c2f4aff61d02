package diagram

import (
	"bytes"
	"image/png"
	"math"
	"path/filepath"
	"slices"
	"strings"
	"testing"

	"github.com/jonathan/analytics-portfolio/internal/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"pgregory.net/rapid"
)

func flow(names ...string) *types.Diagram {
	d := &types.Diagram{Type: types.DiagramTypeFlow}
	for _, n := range names {
		d.Nodes = append(d.Nodes, types.DiagramNode{Name: n})
	}
	return d
}

func TestCompute_ParallelExample(t *testing.T) {
	d := flow("Input", "Preprocessing", "Exact Match", "Fuzzy Match", "Output")
	d.Edges = []types.Edge{
		{From: "Input", To: "Preprocessing"},
		{From: "Preprocessing", To: "Exact Match"},
		{From: "Preprocessing", To: "Fuzzy Match"},
		{From: "Exact Match", To: "Output"},
		{From: "Fuzzy Match", To: "Output"},
	}

	l := Compute(d)

	assert.Equal(t, []string{"Exact Match", "Fuzzy Match"}, l.Parallel)
	require.Len(t, l.Nodes, 5)
	require.Len(t, l.Edges, 5)
	assert.Empty(t, l.Skipped)

	input, _ := l.Node("Input")
	pre, _ := l.Node("Preprocessing")
	exact, _ := l.Node("Exact Match")
	fuzzy, _ := l.Node("Fuzzy Match")
	output, _ := l.Node("Output")

	assert.Equal(t, exact.Pos.Y, fuzzy.Pos.Y)
	assert.InDelta(t, -1.5, exact.Pos.X, 1e-9)
	assert.InDelta(t, 1.5, fuzzy.Pos.X, 1e-9)
	assert.Zero(t, input.Pos.X)
	assert.Zero(t, output.Pos.X)

	assert.Greater(t, input.Pos.Y, pre.Pos.Y)
	assert.Greater(t, pre.Pos.Y, exact.Pos.Y)
	assert.Greater(t, exact.Pos.Y, output.Pos.Y)
	assert.InDelta(t, Spacing*ParallelFactor, input.Pos.Y-pre.Pos.Y, 1e-9)

	assert.Equal(t, types.StepInput, input.Kind)
	assert.Equal(t, types.StepPreprocessing, pre.Kind)
	assert.Equal(t, types.StepProcess, exact.Kind)
	assert.Equal(t, types.StepOutput, output.Kind)
	assert.Equal(t, "#6b7280", exact.Style.Fill)

	assert.Equal(t, 750, l.HeightPx)
}

func TestCompute_SingleParallelNodeIsNotAGroup(t *testing.T) {
	l := Compute(flow("Input", "Exact Match", "Output"))

	assert.Empty(t, l.Parallel)
	for _, n := range l.Nodes {
		assert.Zero(t, n.Pos.X)
		assert.False(t, n.Parallel)
	}
	assert.InDelta(t, Spacing, l.Nodes[0].Pos.Y-l.Nodes[1].Pos.Y, 1e-9)
}

func TestCompute_UnknownEdgesSkipped(t *testing.T) {
	d := flow("A", "B")
	d.Edges = []types.Edge{{From: "A", To: "B"}, {From: "A", To: "Ghost"}, {From: "Nobody", To: "B"}}

	l := Compute(d)

	require.Len(t, l.Edges, 1)
	assert.Equal(t, "A", l.Edges[0].From)
	assert.Len(t, l.Skipped, 2)
}

func TestCompute_DuplicateNodesKeepFirst(t *testing.T) {
	d := flow("Input", "Output", "Input")
	d.Nodes[2].Kind = types.StepAI

	l := Compute(d)

	require.Len(t, l.Nodes, 2)
	assert.Equal(t, types.StepInput, l.Nodes[0].Kind)
}

func TestCompute_ExplicitKind(t *testing.T) {
	d := flow("Load", "Score")
	d.Nodes[1].Kind = types.StepAI

	l := Compute(d)
	assert.Equal(t, types.StepProcess, l.Nodes[0].Kind)
	assert.Equal(t, types.StepAI, l.Nodes[1].Kind)
	assert.Equal(t, "#8b5cf6", l.Nodes[1].Style.Fill)
}

func TestCompute_Properties(t *testing.T) {
	rapid.Check(t, func(t *rapid.T) {
		names := rapid.SliceOfNDistinct(
			rapid.SampledFrom([]string{"Input", "Clean", "Exact", "Fuzzy", "Partial", "Synonym", "Score", "Review", "Output", "Notify"}),
			1, 10, rapid.ID[string],
		).Draw(t, "names")

		l := Compute(flow(names...))

		if len(l.Nodes) != len(names) {
			t.Fatalf("got %d nodes, want %d", len(l.Nodes), len(names))
		}
		if l.HeightPx != max(600, 150*len(names)) {
			t.Fatalf("height %d for %d nodes", l.HeightPx, len(names))
		}

		// Levels strictly descend in declaration order; the group shares one level.
		var members []NodeLayout
		prevY := math.Inf(1)
		groupSeen := false
		for _, n := range l.Nodes {
			if n.Parallel {
				members = append(members, n)
				if groupSeen {
					continue
				}
				groupSeen = true
			}
			if !(n.Pos.Y < prevY) {
				t.Fatalf("node %q at y=%v is not below previous level %v", n.Name, n.Pos.Y, prevY)
			}
			prevY = n.Pos.Y
		}

		if len(members) == 1 {
			t.Fatalf("a single parallel node must not form a group")
		}
		sumX := 0.0
		for _, m := range members {
			if m.Pos.Y != members[0].Pos.Y {
				t.Fatalf("parallel members on different levels")
			}
			sumX += m.Pos.X
		}
		if math.Abs(sumX) > 1e-9 {
			t.Fatalf("parallel members not symmetric around 0: sum x = %v", sumX)
		}
	})
}

func TestBezierAndArrow(t *testing.T) {
	from, to := Point{0, 6}, Point{0, 0}
	e := route(types.Edge{From: "a", To: "b"}, from, to)

	require.Len(t, e.Path, BezierSteps)
	assert.Equal(t, from, e.Path[0])
	assert.InDelta(t, to.X, e.Path[BezierSteps-1].X, 1e-9)
	assert.InDelta(t, to.Y, e.Path[BezierSteps-1].Y, 1e-9)
	assert.Equal(t, Point{0, 3.5}, e.Control)

	// Arrow tip sits on the target and the base lies behind it, back towards the control point.
	assert.Equal(t, to, e.Arrow[0])
	assert.InDelta(t, ArrowSize, e.Arrow[1].Y, 1e-9)
	assert.InDelta(t, ArrowSize, e.Arrow[2].Y, 1e-9)
	assert.InDelta(t, -e.Arrow[1].X, e.Arrow[2].X, 1e-9)
}

func TestArrowHead_ZeroDirection(t *testing.T) {
	head := ArrowHead(Point{1, 1}, Point{}, 1)
	assert.Equal(t, Point{1, 1}, head[0])
	assert.InDelta(t, 2, head[1].Y, 1e-9)
}

func TestLegend(t *testing.T) {
	l := Compute(flow("Input", "Exact Match", "Fuzzy Match", "Output"))

	entries := Legend(l)
	require.Len(t, entries, 3)
	assert.Equal(t, types.StepInput, entries[0].Kind)
	assert.Equal(t, types.StepOutput, entries[1].Kind)
	assert.Equal(t, types.StepProcess, entries[2].Kind)
	assert.Equal(t, 2, entries[2].Count)
	assert.Equal(t, "Process", entries[2].Style.Label)
}

func TestAnalyze(t *testing.T) {
	d := flow("Input", "Clean", "Output", "Orphan")
	d.Edges = []types.Edge{{From: "Input", To: "Clean"}, {From: "Clean", To: "Output"}}

	a := Analyze(Compute(d))
	assert.True(t, a.Acyclic())
	assert.Equal(t, []string{"Input"}, a.Sources)
	assert.Equal(t, []string{"Output"}, a.Sinks)
	assert.Equal(t, []string{"Orphan"}, a.Isolated)
	require.Len(t, a.Order, 4)
	assert.Less(t, slices.Index(a.Order, "Input"), slices.Index(a.Order, "Clean"))
	assert.Less(t, slices.Index(a.Order, "Clean"), slices.Index(a.Order, "Output"))

	d.Edges = append(d.Edges, types.Edge{From: "Output", To: "Input"}, types.Edge{From: "Orphan", To: "Orphan"})
	a = Analyze(Compute(d))
	assert.False(t, a.Acyclic())
	assert.Len(t, a.Cycles, 2)
	assert.Empty(t, a.Order)
}

func TestRenderSVG(t *testing.T) {
	d := flow("Input", "Exact Match", "Fuzzy Match", "Output <final>")
	d.Edges = []types.Edge{{From: "Input", To: "Exact Match"}, {From: "Input", To: "Fuzzy Match"}}

	var buf bytes.Buffer
	require.NoError(t, RenderSVG(&buf, Compute(d)))

	out := buf.String()
	assert.True(t, strings.HasPrefix(strings.TrimSpace(out), "<?xml"))
	assert.Contains(t, out, "Exact Match")
	assert.Contains(t, out, "Output &lt;final&gt;")
	assert.Contains(t, out, "#10b981")
	assert.Equal(t, 2, strings.Count(out, "<polygon"))
}

func TestRenderPNG(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, RenderPNG(&buf, Compute(flow("Input", "Output"))))

	img, err := png.Decode(&buf)
	require.NoError(t, err)
	assert.Equal(t, 600, img.Bounds().Dy())
	assert.Equal(t, 800, img.Bounds().Dx())
}

func TestWriteFile(t *testing.T) {
	dir := t.TempDir()
	l := Compute(flow("Input"))

	require.NoError(t, WriteFile(filepath.Join(dir, "d.svg"), l))
	require.NoError(t, WriteFile(filepath.Join(dir, "d.png"), l))
	assert.Error(t, WriteFile(filepath.Join(dir, "d.gif"), l))
}
