// Package types provides type definitions for the portfolio data model: projects, chart specs,
// pipeline diagrams and the profile shown on the home page.
//
//nolint:revive // types is a standard Go package name pattern
package types

import (
	"regexp"
	"strings"
	"sync"

	"github.com/go-playground/validator/v10"
)

// Download is a resource offered on the project's Resources tab.
type Download struct {
	Label string `yaml:"label" json:"label" validate:"required"`
	Path  string `yaml:"path" json:"path" validate:"required"`
}

// Project is one portfolio entry. It is built once from a project file and never mutated after
// the loader hands it out.
type Project struct {
	Key        string      `yaml:"key" json:"key" validate:"required,slug"`
	Title      string      `yaml:"title" json:"title" validate:"required"`
	Summary    string      `yaml:"summary" json:"summary"`
	Tags       []string    `yaml:"tags" json:"tags" validate:"dive,required"`
	Tools      []string    `yaml:"tools" json:"tools" validate:"dive,required"`
	Objectives []string    `yaml:"objectives" json:"objectives"`
	Impact     []string    `yaml:"impact" json:"impact"`
	Visuals    []ChartSpec `yaml:"visuals" json:"visuals" validate:"dive"`
	Diagram    *Diagram    `yaml:"diagram,omitempty" json:"diagram,omitempty"`
	Downloads  []Download  `yaml:"downloads" json:"downloads" validate:"dive"`

	// Derived by Resolve.
	ToolGroups  []ToolGroup  `yaml:"-" json:"tool_groups,omitempty"`
	ImpactItems []ImpactItem `yaml:"-" json:"impact_items,omitempty"`

	// SourcePath is the file the project was read from.
	SourcePath string `yaml:"-" json:"-"`
}

var slugPattern = regexp.MustCompile(`^[a-z0-9]+(?:[-_][a-z0-9]+)*$`)

var (
	validateOnce sync.Once
	validate     *validator.Validate
)

func structValidator() *validator.Validate {
	validateOnce.Do(func() {
		validate = validator.New()
		_ = validate.RegisterValidation("slug", func(fl validator.FieldLevel) bool {
			return slugPattern.MatchString(fl.Field().String())
		})
	})
	return validate
}

// Validate validates the Project using the validator.
func (p *Project) Validate() error {
	return structValidator().Struct(p)
}

// HasTag reports whether the project carries the tag (exact match).
func (p *Project) HasTag(tag string) bool {
	for _, t := range p.Tags {
		if t == tag {
			return true
		}
	}
	return false
}

// HasTagContaining reports whether any tag contains sub, case-insensitively.
func (p *Project) HasTagContaining(sub string) bool {
	sub = strings.ToLower(sub)
	for _, t := range p.Tags {
		if strings.Contains(strings.ToLower(t), sub) {
			return true
		}
	}
	return false
}

// Resolve fills the load-time lookups: chart kinds and variants, diagram step kinds, tool groups
// and impact classes. It returns human-readable warnings for values that fell back to a default.
func (p *Project) Resolve() []string {
	var warnings []string
	for i := range p.Visuals {
		if w := p.Visuals[i].Resolve(); w != "" {
			warnings = append(warnings, w)
		}
	}
	if p.Diagram != nil {
		p.Diagram.Resolve()
	}
	p.ToolGroups = CategorizeTools(p.Tools)
	p.ImpactItems = ClassifyImpact(p.Impact)
	return warnings
}
