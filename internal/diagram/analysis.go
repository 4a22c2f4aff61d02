package diagram

import (
	"sort"

	"gonum.org/v1/gonum/graph"
	"gonum.org/v1/gonum/graph/simple"
	"gonum.org/v1/gonum/graph/topo"
)

// Analysis describes the shape of a laid-out diagram.
type Analysis struct {
	Sources  []string   `json:"sources"`
	Sinks    []string   `json:"sinks"`
	Isolated []string   `json:"isolated,omitempty"`
	Cycles   [][]string `json:"cycles,omitempty"`
	// Order is a topological order of the nodes; empty when the diagram has a cycle.
	Order []string `json:"order,omitempty"`
}

// Acyclic reports whether the diagram has no cycles.
func (a Analysis) Acyclic() bool {
	return len(a.Cycles) == 0
}

// Analyze builds a directed graph of the drawn edges and reports sources, sinks, cycles and a
// topological order. Ties in the order follow node declaration order.
func Analyze(l *Layout) Analysis {
	g := simple.NewDirectedGraph()
	ids := make(map[string]int64, len(l.Nodes))
	names := make(map[int64]string, len(l.Nodes))
	for _, n := range l.Nodes {
		node := g.NewNode()
		g.AddNode(node)
		ids[n.Name] = node.ID()
		names[node.ID()] = n.Name
	}

	var a Analysis
	selfLoops := make(map[string]bool)
	for _, e := range l.Edges {
		if e.From == e.To {
			if !selfLoops[e.From] {
				selfLoops[e.From] = true
				a.Cycles = append(a.Cycles, []string{e.From})
			}
			continue
		}
		g.SetEdge(g.NewEdge(g.Node(ids[e.From]), g.Node(ids[e.To])))
	}

	for _, n := range l.Nodes {
		id := ids[n.Name]
		in := g.To(id).Len()
		out := g.From(id).Len()
		switch {
		case in == 0 && out == 0:
			a.Isolated = append(a.Isolated, n.Name)
		case in == 0:
			a.Sources = append(a.Sources, n.Name)
		case out == 0:
			a.Sinks = append(a.Sinks, n.Name)
		}
	}

	for _, scc := range topo.TarjanSCC(g) {
		if len(scc) > 1 {
			a.Cycles = append(a.Cycles, sortedNames(scc, names))
		}
	}

	if len(a.Cycles) == 0 {
		sorted, err := topo.SortStabilized(g, byID)
		if err == nil {
			for _, node := range sorted {
				a.Order = append(a.Order, names[node.ID()])
			}
		}
	}
	return a
}

func byID(nodes []graph.Node) {
	sort.Slice(nodes, func(i, j int) bool { return nodes[i].ID() < nodes[j].ID() })
}

func sortedNames(nodes []graph.Node, names map[int64]string) []string {
	byID(nodes)
	out := make([]string, 0, len(nodes))
	for _, n := range nodes {
		out = append(out, names[n.ID()])
	}
	return out
}
