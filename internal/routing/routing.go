// Package routing maps the navigation state carried in the URL to the page to render.
package routing

import (
	"net/url"
	"strings"

	"github.com/jonathan/analytics-portfolio/internal/catalog"
	"github.com/jonathan/analytics-portfolio/internal/types"
)

// Query parameter names.
const (
	ParamProject = "project"
	ParamTag     = "tag"
	ParamSearch  = "q"
)

// Kind is the page a state resolves to.
type Kind int

const (
	Home Kind = iota
	Detail
	NotFound
)

func (k Kind) String() string {
	switch k {
	case Home:
		return "home"
	case Detail:
		return "detail"
	case NotFound:
		return "not_found"
	default:
		return "unknown"
	}
}

// State is the navigation state: the selected project plus the sidebar filters.
type State struct {
	ProjectKey string
	Tags       []string
	Search     string
}

// ParseState reads a state from query parameters. Empty tag values are ignored.
func ParseState(q url.Values) State {
	s := State{
		ProjectKey: strings.TrimSpace(q.Get(ParamProject)),
		Search:     q.Get(ParamSearch),
	}
	for _, t := range q[ParamTag] {
		if t = strings.TrimSpace(t); t != "" {
			s.Tags = append(s.Tags, t)
		}
	}
	return s
}

// WithProject returns the state selecting key, keeping the filters.
func (s State) WithProject(key string) State {
	s.ProjectKey = key
	return s
}

// Clear returns the home state. Filters survive so the listing looks the same on return.
func (s State) Clear() State {
	s.ProjectKey = ""
	return s
}

// WithoutFilters returns the state with tags and search removed.
func (s State) WithoutFilters() State {
	return State{ProjectKey: s.ProjectKey}
}

// Filtered reports whether any filter is active.
func (s State) Filtered() bool {
	return len(s.Tags) > 0 || s.Search != ""
}

// HasTag reports whether tag is selected.
func (s State) HasTag(tag string) bool {
	for _, t := range s.Tags {
		if t == tag {
			return true
		}
	}
	return false
}

// Query encodes the state as query parameters.
func (s State) Query() url.Values {
	q := url.Values{}
	if s.ProjectKey != "" {
		q.Set(ParamProject, s.ProjectKey)
	}
	for _, t := range s.Tags {
		q.Add(ParamTag, t)
	}
	if s.Search != "" {
		q.Set(ParamSearch, s.Search)
	}
	return q
}

// URL returns the root-relative link for the state.
func (s State) URL() string {
	q := s.Query()
	if len(q) == 0 {
		return "/"
	}
	return "/?" + q.Encode()
}

// Route is a resolved page.
type Route struct {
	Kind    Kind
	Key     string
	Project *types.Project
}

// Resolve picks the page: no key is Home, a known key is Detail and anything else is NotFound.
func Resolve(s State, c *catalog.Catalog) Route {
	if s.ProjectKey == "" {
		return Route{Kind: Home}
	}
	if p, ok := c.Lookup(s.ProjectKey); ok {
		return Route{Kind: Detail, Key: s.ProjectKey, Project: p}
	}
	return Route{Kind: NotFound, Key: s.ProjectKey}
}
