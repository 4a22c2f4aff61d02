// Package catalog holds the loaded projects and answers listing, lookup and filter queries.
package catalog

import (
	"slices"
	"strings"
	"sync/atomic"
	"time"

	"github.com/jonathan/analytics-portfolio/internal/types"
)

// Catalog is an immutable snapshot of the loaded projects, sorted by title.
type Catalog struct {
	projects []types.Project
	byKey    map[string]int
	profile  *types.Profile
	loadedAt time.Time
}

// New builds a catalog. projects must already be sorted and have unique keys.
func New(projects []types.Project, profile *types.Profile) *Catalog {
	byKey := make(map[string]int, len(projects))
	for i, p := range projects {
		byKey[p.Key] = i
	}
	return &Catalog{
		projects: projects,
		byKey:    byKey,
		profile:  profile,
		loadedAt: time.Now(),
	}
}

// Projects returns all projects in display order. Callers must not modify the slice.
func (c *Catalog) Projects() []types.Project {
	return c.projects
}

// Len returns the number of projects.
func (c *Catalog) Len() int {
	return len(c.projects)
}

// Lookup finds a project by key.
func (c *Catalog) Lookup(key string) (*types.Project, bool) {
	i, ok := c.byKey[key]
	if !ok {
		return nil, false
	}
	return &c.projects[i], true
}

// Profile returns the owner profile, or nil when none was loaded.
func (c *Catalog) Profile() *types.Profile {
	return c.profile
}

// LoadedAt is when the snapshot was built.
func (c *Catalog) LoadedAt() time.Time {
	return c.loadedAt
}

// Tags returns every distinct tag across the catalog, sorted.
func (c *Catalog) Tags() []string {
	return DistinctTags(c.projects)
}

// Filter keeps projects that carry every selected tag and whose title or summary contains the
// search term, case-insensitively. Empty selections and an empty term match everything. Input
// order is preserved.
func Filter(projects []types.Project, selectedTags []string, searchTerm string) []types.Project {
	needle := strings.ToLower(searchTerm)
	out := make([]types.Project, 0, len(projects))
	for _, p := range projects {
		if !hasAllTags(&p, selectedTags) {
			continue
		}
		if needle != "" && !strings.Contains(strings.ToLower(p.Title+" "+p.Summary), needle) {
			continue
		}
		out = append(out, p)
	}
	return out
}

func hasAllTags(p *types.Project, tags []string) bool {
	for _, t := range tags {
		if !p.HasTag(t) {
			return false
		}
	}
	return true
}

// DistinctTags returns the sorted set of tags used by projects.
func DistinctTags(projects []types.Project) []string {
	seen := make(map[string]struct{})
	for _, p := range projects {
		for _, t := range p.Tags {
			seen[t] = struct{}{}
		}
	}
	tags := make([]string, 0, len(seen))
	for t := range seen {
		tags = append(tags, t)
	}
	slices.Sort(tags)
	return tags
}

// Stats are the summary counts shown above the project cards.
type Stats struct {
	Total        int `json:"total"`
	AIProjects   int `json:"ai_projects"`
	NLPProjects  int `json:"nlp_projects"`
	DistinctTags int `json:"distinct_tags"`
}

// ComputeStats counts over the given (usually filtered) projects.
func ComputeStats(projects []types.Project) Stats {
	s := Stats{Total: len(projects)}
	for i := range projects {
		if projects[i].HasTagContaining("ai") {
			s.AIProjects++
		}
		if projects[i].HasTagContaining("nlp") {
			s.NLPProjects++
		}
	}
	s.DistinctTags = len(DistinctTags(projects))
	return s
}

// Store publishes the current catalog. Readers never block and a reload swaps the whole snapshot.
type Store struct {
	current atomic.Pointer[Catalog]
}

// NewStore returns a store holding c.
func NewStore(c *Catalog) *Store {
	s := &Store{}
	s.current.Store(c)
	return s
}

// Load returns the current snapshot.
func (s *Store) Load() *Catalog {
	return s.current.Load()
}

// Swap replaces the snapshot and returns the previous one.
func (s *Store) Swap(c *Catalog) *Catalog {
	return s.current.Swap(c)
}
