package types

import (
	"fmt"
	"strings"

	"gopkg.in/yaml.v3"
)

// DiagramTypeFlow is the only diagram type that is rendered.
const DiagramTypeFlow = "flow"

// StepKind classifies a pipeline step for styling.
type StepKind string

const (
	StepInput         StepKind = "input"
	StepPreprocessing StepKind = "preprocessing"
	StepKeyword       StepKind = "keyword"
	StepAI            StepKind = "ai"
	StepValidation    StepKind = "validation"
	StepOutput        StepKind = "output"
	StepAutomation    StepKind = "automation"
	StepProcess       StepKind = "process"
)

// stepKeywords is ordered: the first keyword found in a node name wins.
var stepKeywords = []StepKind{
	StepInput,
	StepPreprocessing,
	StepKeyword,
	StepAI,
	StepValidation,
	StepOutput,
	StepAutomation,
}

// ResolveStepKind picks the kind for a node name by keyword match, defaulting to StepProcess.
func ResolveStepKind(name string) StepKind {
	lower := strings.ToLower(name)
	for _, kind := range stepKeywords {
		if strings.Contains(lower, string(kind)) {
			return kind
		}
	}
	return StepProcess
}

// DiagramNode is a named pipeline step. In YAML it is either a bare name or a mapping with an
// explicit kind.
type DiagramNode struct {
	Name string   `yaml:"name" json:"name" validate:"required"`
	Kind StepKind `yaml:"kind,omitempty" json:"kind,omitempty" validate:"omitempty,oneof=input preprocessing keyword ai validation output automation process"`
}

// UnmarshalYAML accepts `- Input` as well as `- {name: Input, kind: input}`.
func (n *DiagramNode) UnmarshalYAML(value *yaml.Node) error {
	switch value.Kind {
	case yaml.ScalarNode:
		n.Name = value.Value
		return nil
	case yaml.MappingNode:
		type plain DiagramNode
		var p plain
		if err := value.Decode(&p); err != nil {
			return err
		}
		*n = DiagramNode(p)
		return nil
	default:
		return fmt.Errorf("line %d: diagram node must be a name or a mapping", value.Line)
	}
}

// Edge is a directed connection between two node names.
type Edge struct {
	From string `yaml:"from" json:"from"`
	To   string `yaml:"to" json:"to"`
}

// UnmarshalYAML accepts `[from, to]` as well as `{from: a, to: b}`.
func (e *Edge) UnmarshalYAML(value *yaml.Node) error {
	switch value.Kind {
	case yaml.SequenceNode:
		var pair []string
		if err := value.Decode(&pair); err != nil {
			return err
		}
		if len(pair) != 2 {
			return fmt.Errorf("line %d: edge must have exactly 2 node names, got %d", value.Line, len(pair))
		}
		e.From, e.To = pair[0], pair[1]
		return nil
	case yaml.MappingNode:
		type plain Edge
		var p plain
		if err := value.Decode(&p); err != nil {
			return err
		}
		*e = Edge(p)
		return nil
	default:
		return fmt.Errorf("line %d: edge must be a [from, to] pair", value.Line)
	}
}

// Diagram is a small directed graph of pipeline steps.
type Diagram struct {
	Type  string        `yaml:"type" json:"type"`
	Nodes []DiagramNode `yaml:"nodes" json:"nodes" validate:"dive"`
	Edges []Edge        `yaml:"edges" json:"edges"`
}

// Renderable reports whether the diagram is a flow with at least one node.
func (d *Diagram) Renderable() bool {
	return d != nil && d.Type == DiagramTypeFlow && len(d.Nodes) > 0
}

// Resolve assigns a kind to every node that does not declare one.
func (d *Diagram) Resolve() {
	for i := range d.Nodes {
		if d.Nodes[i].Kind == "" {
			d.Nodes[i].Kind = ResolveStepKind(d.Nodes[i].Name)
		}
	}
}

// NodeNames returns the node names in declaration order.
func (d *Diagram) NodeNames() []string {
	names := make([]string, 0, len(d.Nodes))
	for _, n := range d.Nodes {
		names = append(names, n.Name)
	}
	return names
}
