// Package diagram lays out and draws pipeline flow diagrams.
package diagram

import (
	"math"
	"strings"

	"github.com/jonathan/analytics-portfolio/internal/types"
)

// Layout constants, in layout units unless noted.
const (
	Spacing         = 3.0
	ParallelFactor  = 1.5
	BezierSteps     = 20
	Bulge           = 0.5
	ArrowSize       = 0.15
	MinHeightPx     = 600
	HeightPerNodePx = 150
)

// parallelKeywords mark alternative steps that run side by side.
var parallelKeywords = []string{"exact", "fuzzy", "partial", "synonym"}

// Point is a position in layout units. Y grows upwards.
type Point struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
}

func (p Point) add(q Point) Point { return Point{p.X + q.X, p.Y + q.Y} }
func (p Point) sub(q Point) Point { return Point{p.X - q.X, p.Y - q.Y} }
func (p Point) scale(f float64) Point { return Point{p.X * f, p.Y * f} }
func (p Point) length() float64 { return math.Hypot(p.X, p.Y) }
func (p Point) perp() Point { return Point{-p.Y, p.X} }
func lerp(a, b Point, t float64) Point { return a.add(b.sub(a).scale(t)) }
func mid(a, b Point) Point { return lerp(a, b, 0.5) }
func unit(p Point) Point { return p.scale(1 / p.length()) }

// NodeLayout is a positioned node.
type NodeLayout struct {
	Name     string         `json:"name"`
	Kind     types.StepKind `json:"kind"`
	Style    Style          `json:"style"`
	Pos      Point          `json:"pos"`
	Parallel bool           `json:"parallel"`
}

// EdgeLayout is a sampled curve between two nodes with an arrowhead at the target.
type EdgeLayout struct {
	From    string   `json:"from"`
	To      string   `json:"to"`
	Control Point    `json:"control"`
	Path    []Point  `json:"path"`
	Arrow   [3]Point `json:"arrow"`
}

// Layout is a fully positioned diagram.
type Layout struct {
	Nodes []NodeLayout `json:"nodes"`
	Edges []EdgeLayout `json:"edges"`
	// Parallel lists the parallel group's members; empty when there is no group.
	Parallel []string `json:"parallel,omitempty"`
	// Skipped are edges naming an unknown node.
	Skipped  []types.Edge `json:"skipped,omitempty"`
	HeightPx int          `json:"height_px"`
}

// Node returns the positioned node called name.
func (l *Layout) Node(name string) (NodeLayout, bool) {
	for _, n := range l.Nodes {
		if n.Name == name {
			return n, true
		}
	}
	return NodeLayout{}, false
}

// IsParallel reports whether a node name marks a parallel alternative step.
func IsParallel(name string) bool {
	lower := strings.ToLower(name)
	for _, kw := range parallelKeywords {
		if strings.Contains(lower, kw) {
			return true
		}
	}
	return false
}

// HeightPx is the drawing height for n nodes.
func HeightPx(n int) int {
	return max(MinHeightPx, n*HeightPerNodePx)
}

// Compute positions the nodes and routes the edges. Duplicate node names keep their first
// occurrence. Nodes without a kind are classified by name.
//
// Without a parallel group nodes stack top to bottom, Spacing apart. When two or more nodes are
// parallel they share one level, placed where the first of them appears, spread symmetrically
// around x = 0; every level is then ParallelFactor * Spacing apart.
func Compute(d *types.Diagram) *Layout {
	nodes := uniqueNodes(d.Nodes)
	l := &Layout{HeightPx: HeightPx(len(nodes))}

	for _, n := range nodes {
		if IsParallel(n.Name) {
			l.Parallel = append(l.Parallel, n.Name)
		}
	}
	grouped := len(l.Parallel) >= 2
	if !grouped {
		l.Parallel = nil
	}

	step := Spacing
	if grouped {
		step = Spacing * ParallelFactor
	}
	k := float64(len(l.Parallel))

	y := float64(len(nodes)) * Spacing
	groupY := 0.0
	groupPlaced := false
	member := 0
	for _, n := range nodes {
		kind := n.Kind
		if kind == "" {
			kind = types.ResolveStepKind(n.Name)
		}
		nl := NodeLayout{Name: n.Name, Kind: kind, Style: StyleFor(kind)}

		if grouped && IsParallel(n.Name) {
			if !groupPlaced {
				groupPlaced = true
				groupY = y
				y -= step
			}
			nl.Parallel = true
			nl.Pos = Point{X: (float64(member) - (k-1)/2) * Spacing, Y: groupY}
			member++
		} else {
			nl.Pos = Point{X: 0, Y: y}
			y -= step
		}
		l.Nodes = append(l.Nodes, nl)
	}

	pos := make(map[string]Point, len(l.Nodes))
	for _, n := range l.Nodes {
		pos[n.Name] = n.Pos
	}
	for _, e := range d.Edges {
		from, ok1 := pos[e.From]
		to, ok2 := pos[e.To]
		if !ok1 || !ok2 {
			l.Skipped = append(l.Skipped, e)
			continue
		}
		l.Edges = append(l.Edges, route(e, from, to))
	}
	return l
}

func uniqueNodes(nodes []types.DiagramNode) []types.DiagramNode {
	seen := make(map[string]bool, len(nodes))
	out := make([]types.DiagramNode, 0, len(nodes))
	for _, n := range nodes {
		if seen[n.Name] {
			continue
		}
		seen[n.Name] = true
		out = append(out, n)
	}
	return out
}

// route builds the quadratic Bézier from one node to another. The control point is the
// midpoint raised by Bulge; the curve is sampled at BezierSteps evenly spaced parameters.
func route(e types.Edge, from, to Point) EdgeLayout {
	ctrl := mid(from, to).add(Point{Y: Bulge})
	path := make([]Point, BezierSteps)
	for i := range path {
		t := float64(i) / float64(BezierSteps-1)
		path[i] = Bezier(from, ctrl, to, t)
	}
	return EdgeLayout{
		From:    e.From,
		To:      e.To,
		Control: ctrl,
		Path:    path,
		Arrow:   ArrowHead(to, to.sub(ctrl), ArrowSize),
	}
}

// Bezier evaluates the quadratic Bézier curve p0, p1, p2 at t.
func Bezier(p0, p1, p2 Point, t float64) Point {
	return lerp(lerp(p0, p1, t), lerp(p1, p2, t), t)
}

// ArrowHead returns a triangle with its tip at tip, pointing along dir. A zero direction
// points down.
func ArrowHead(tip, dir Point, size float64) [3]Point {
	if dir.length() == 0 {
		dir = Point{Y: -1}
	}
	d := unit(dir)
	base := tip.sub(d.scale(size))
	half := d.perp().scale(size / 2)
	return [3]Point{tip, base.add(half), base.sub(half)}
}
