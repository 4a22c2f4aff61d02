package server

import (
	"net/http"
	"time"

	"github.com/jonathan/analytics-portfolio/internal/catalog"
	"github.com/jonathan/analytics-portfolio/internal/rendering"
	"github.com/jonathan/analytics-portfolio/internal/routing"
	"github.com/jonathan/analytics-portfolio/internal/types"
	"go.uber.org/zap"
)

// ProjectSummary is the listing entry returned by /api/projects.
type ProjectSummary struct {
	Key     string   `json:"key"`
	Title   string   `json:"title"`
	Summary string   `json:"summary"`
	Tags    []string `json:"tags"`
	URL     string   `json:"url"`
}

// ProjectLinks are the asset URLs for one project.
type ProjectLinks struct {
	Page      string   `json:"page"`
	Charts    []string `json:"charts"`
	ChartData []string `json:"chart_data"`
	Diagram   string   `json:"diagram,omitempty"`
	Downloads []string `json:"downloads"`
}

// ProjectDetail is the body of /api/projects/{key}.
type ProjectDetail struct {
	*types.Project
	Links ProjectLinks `json:"links"`
}

// TagCount is one entry of /api/tags.
type TagCount struct {
	Tag      string `json:"tag"`
	Projects int    `json:"projects"`
}

func summarize(p *types.Project) ProjectSummary {
	tags := p.Tags
	if tags == nil {
		tags = []string{}
	}
	return ProjectSummary{
		Key:     p.Key,
		Title:   p.Title,
		Summary: p.Summary,
		Tags:    tags,
		URL:     routing.State{}.WithProject(p.Key).URL(),
	}
}

func projectLinks(p *types.Project) ProjectLinks {
	links := rendering.ServerLinks{}
	out := ProjectLinks{
		Page:      routing.State{}.WithProject(p.Key).URL(),
		Charts:    make([]string, 0, len(p.Visuals)),
		ChartData: make([]string, 0, len(p.Visuals)),
		Downloads: make([]string, 0, len(p.Downloads)),
	}
	for i := range p.Visuals {
		out.Charts = append(out.Charts, links.ChartSVG(p.Key, i))
		out.ChartData = append(out.ChartData, links.ChartCSV(p.Key, i))
	}
	if p.Diagram.Renderable() {
		out.Diagram = links.DiagramSVG(p.Key)
	}
	for i, d := range p.Downloads {
		out.Downloads = append(out.Downloads, links.Download(p.Key, i, d.Path))
	}
	return out
}

// handleListProjects lists projects matching the same tag and search filters as the home page.
func (s *Server) handleListProjects(w http.ResponseWriter, r *http.Request) {
	state := routing.ParseState(r.URL.Query())
	c := s.store.Load()

	matched := catalog.Filter(c.Projects(), state.Tags, state.Search)
	items := make([]ProjectSummary, 0, len(matched))
	for i := range matched {
		items = append(items, summarize(&matched[i]))
	}

	s.jsonResponse(w, http.StatusOK, map[string]any{
		"projects": items,
		"shown":    len(items),
		"total":    c.Len(),
	})
}

// handleGetProject returns one project with its asset links.
func (s *Server) handleGetProject(w http.ResponseWriter, r *http.Request) {
	p, err := s.project(r)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	s.jsonResponse(w, http.StatusOK, ProjectDetail{Project: p, Links: projectLinks(p)})
}

// handleListTags returns every distinct tag with the number of projects carrying it.
func (s *Server) handleListTags(w http.ResponseWriter, _ *http.Request) {
	c := s.store.Load()
	projects := c.Projects()

	tags := c.Tags()
	out := make([]TagCount, 0, len(tags))
	for _, tag := range tags {
		n := 0
		for i := range projects {
			if projects[i].HasTag(tag) {
				n++
			}
		}
		out = append(out, TagCount{Tag: tag, Projects: n})
	}
	s.jsonResponse(w, http.StatusOK, map[string]any{"tags": out})
}

// handleStats returns the summary counts for the filtered listing, plus page views when recorded.
func (s *Server) handleStats(w http.ResponseWriter, r *http.Request) {
	state := routing.ParseState(r.URL.Query())
	c := s.store.Load()

	resp := map[string]any{
		"stats":     catalog.ComputeStats(catalog.Filter(c.Projects(), state.Tags, state.Search)),
		"loaded_at": c.LoadedAt().UTC().Format(time.RFC3339),
	}

	if s.views != nil {
		counts, err := s.views.ViewCounts(r.Context())
		if err != nil {
			s.logger.Warn("failed to read page view counts", zap.Error(err))
		} else {
			resp["views"] = counts
		}
	}

	s.jsonResponse(w, http.StatusOK, resp)
}
