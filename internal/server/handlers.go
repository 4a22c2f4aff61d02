package server

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"github.com/jonathan/analytics-portfolio/internal/diagram"
	"github.com/jonathan/analytics-portfolio/internal/db"
	"github.com/jonathan/analytics-portfolio/internal/loader"
	"github.com/jonathan/analytics-portfolio/internal/rendering"
	"github.com/jonathan/analytics-portfolio/internal/routing"
	"github.com/jonathan/analytics-portfolio/internal/server/middleware"
	"github.com/jonathan/analytics-portfolio/internal/types"
	"go.uber.org/zap"
)

// recordTimeout bounds the page-view insert so a slow database never stalls a page.
const recordTimeout = 2 * time.Second

// handleIndex renders the home, detail or not-found page for the query state.
func (s *Server) handleIndex(w http.ResponseWriter, r *http.Request) {
	state := routing.ParseState(r.URL.Query())
	c := s.store.Load()

	var buf bytes.Buffer
	route, err := s.pages.Render(&buf, state, c, rendering.ServerLinks{})
	if err != nil {
		s.logger.Error("failed to render page",
			zap.String("route", route.Kind.String()),
			zap.String("request_id", middleware.GetRequestID(r).String()),
			zap.Error(err),
		)
		http.Error(w, "The page could not be rendered.", http.StatusInternalServerError)
		return
	}

	status := http.StatusOK
	if route.Kind == routing.NotFound {
		status = http.StatusNotFound
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(status)
	_, _ = buf.WriteTo(w)

	if route.Kind == routing.Detail {
		s.recordView(r, route.Key)
	}
}

// handleProjectRedirect sends /projects/{key} to the routed detail page.
func (s *Server) handleProjectRedirect(w http.ResponseWriter, r *http.Request) {
	state := routing.State{}.WithProject(r.PathValue("key"))
	http.Redirect(w, r, state.URL(), http.StatusFound)
}

func (s *Server) recordView(r *http.Request, key string) {
	if s.views == nil {
		return
	}
	ctx, cancel := context.WithTimeout(context.WithoutCancel(r.Context()), recordTimeout)
	defer cancel()

	view := db.PageView{
		ProjectKey: key,
		RequestID:  middleware.GetRequestID(r),
		Referrer:   r.Referer(),
		UserAgent:  r.UserAgent(),
	}
	if err := s.views.RecordView(ctx, view); err != nil {
		s.logger.Warn("failed to record page view", zap.String("project", key), zap.Error(err))
	}
}

// project resolves the {key} path value against the current catalog.
func (s *Server) project(r *http.Request) (*types.Project, error) {
	key := r.PathValue("key")
	p, ok := s.store.Load().Lookup(key)
	if !ok {
		return nil, &ErrProjectNotFound{Key: key}
	}
	return p, nil
}

// index parses the {index} path value and checks it against n items.
func index(r *http.Request, key, resource string, n int) (int, error) {
	raw := r.PathValue("index")
	i, err := strconv.Atoi(raw)
	if err != nil {
		return 0, &ErrValidation{Field: "index", Message: fmt.Sprintf("%q is not a number", raw)}
	}
	if i < 0 || i >= n {
		return 0, &ErrResourceNotFound{Key: key, Resource: resource, Index: i}
	}
	return i, nil
}

func (s *Server) chartSpec(r *http.Request) (*types.Project, int, error) {
	p, err := s.project(r)
	if err != nil {
		return nil, 0, err
	}
	i, err := index(r, p.Key, "chart", len(p.Visuals))
	if err != nil {
		return nil, 0, err
	}
	return p, i, nil
}

// handleChartCSV serves a chart's source rows as a CSV attachment.
func (s *Server) handleChartCSV(w http.ResponseWriter, r *http.Request) {
	p, i, err := s.chartSpec(r)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	spec := p.Visuals[i]

	table, err := s.charts.LoadData(spec)
	if errors.Is(err, os.ErrNotExist) {
		s.writeError(w, r, &ErrFileUnavailable{Path: spec.DataPath})
		return
	}
	if err != nil {
		s.writeError(w, r, &ErrRenderFailed{What: "chart data", Cause: err})
		return
	}

	var buf bytes.Buffer
	if err := table.WriteCSV(&buf); err != nil {
		s.writeError(w, r, fmt.Errorf("failed to encode chart data: %w", err))
		return
	}
	w.Header().Set("Content-Type", "text/csv; charset=utf-8")
	w.Header().Set("Content-Disposition", attachment(spec.CSVFileName()))
	_, _ = buf.WriteTo(w)
}

// handleChartSVG serves one rendered chart.
func (s *Server) handleChartSVG(w http.ResponseWriter, r *http.Request) {
	p, i, err := s.chartSpec(r)
	if err != nil {
		s.writeError(w, r, err)
		return
	}

	res := s.charts.Render(i, p.Visuals[i])
	switch {
	case res.Missing:
		s.writeError(w, r, &ErrFileUnavailable{Path: res.Spec.DataPath})
	case res.Err != nil:
		s.writeError(w, r, &ErrRenderFailed{What: res.Title, Cause: res.Err})
	default:
		writeImage(w, "image/svg+xml", res.SVG)
	}
}

func (s *Server) diagramLayout(r *http.Request) (*diagram.Layout, error) {
	p, err := s.project(r)
	if err != nil {
		return nil, err
	}
	if !p.Diagram.Renderable() {
		return nil, &ErrResourceNotFound{Key: p.Key, Resource: "diagram", Index: -1}
	}
	return diagram.Compute(p.Diagram), nil
}

// handleDiagramSVG serves the pipeline diagram as SVG.
func (s *Server) handleDiagramSVG(w http.ResponseWriter, r *http.Request) {
	l, err := s.diagramLayout(r)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	var buf bytes.Buffer
	if err := diagram.RenderSVG(&buf, l); err != nil {
		s.writeError(w, r, fmt.Errorf("failed to draw diagram: %w", err))
		return
	}
	writeImage(w, "image/svg+xml", buf.Bytes())
}

// handleDiagramPNG serves the pipeline diagram as PNG.
func (s *Server) handleDiagramPNG(w http.ResponseWriter, r *http.Request) {
	l, err := s.diagramLayout(r)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	var buf bytes.Buffer
	if err := diagram.RenderPNG(&buf, l); err != nil {
		s.writeError(w, r, fmt.Errorf("failed to draw diagram: %w", err))
		return
	}
	writeImage(w, "image/png", buf.Bytes())
}

// handleDownload serves a project resource with range support.
func (s *Server) handleDownload(w http.ResponseWriter, r *http.Request) {
	p, err := s.project(r)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	i, err := index(r, p.Key, "download", len(p.Downloads))
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	d := p.Downloads[i]

	f, err := os.Open(loader.ResolvePath(s.baseDir, d.Path))
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			s.writeError(w, r, &ErrFileUnavailable{Path: d.Path})
			return
		}
		s.writeError(w, r, fmt.Errorf("failed to open download: %w", err))
		return
	}
	defer func() { _ = f.Close() }()

	info, err := f.Stat()
	if err != nil || info.IsDir() {
		s.writeError(w, r, &ErrFileUnavailable{Path: d.Path})
		return
	}

	name := filepath.Base(d.Path)
	w.Header().Set("Content-Type", rendering.DownloadMIME(d.Path))
	w.Header().Set("Content-Disposition", attachment(name))
	http.ServeContent(w, r, name, info.ModTime(), f)
}

func writeImage(w http.ResponseWriter, contentType string, body []byte) {
	w.Header().Set("Content-Type", contentType)
	w.Header().Set("Cache-Control", "no-cache")
	_, _ = w.Write(body)
}

// attachment builds a Content-Disposition value with an RFC 5987 fallback for non-ASCII names.
func attachment(name string) string {
	return fmt.Sprintf("attachment; filename=%q; filename*=UTF-8''%s", name, url.PathEscape(name))
}
