package server

import (
	"bytes"
	"context"
	"errors"
	"net"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/PuerkitoBio/goquery"
	"github.com/goccy/go-json"
	"github.com/google/uuid"
	"github.com/jonathan/analytics-portfolio/internal/catalog"
	"github.com/jonathan/analytics-portfolio/internal/db"
	"github.com/jonathan/analytics-portfolio/internal/server/middleware"
	"github.com/jonathan/analytics-portfolio/internal/server/ratelimit"
	"github.com/jonathan/analytics-portfolio/internal/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

// fakeViews records page views in memory.
type fakeViews struct {
	mu     sync.Mutex
	views  []db.PageView
	counts map[string]int64
	err    error
}

func (f *fakeViews) RecordView(_ context.Context, view db.PageView) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return f.err
	}
	f.views = append(f.views, view)
	return nil
}

func (f *fakeViews) ViewCounts(_ context.Context) (map[string]int64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return nil, f.err
	}
	return f.counts, nil
}

func (f *fakeViews) recorded() []db.PageView {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]db.PageView(nil), f.views...)
}

func writeFile(t *testing.T, dir, name, content string) {
	t.Helper()
	path := filepath.Join(dir, name)
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0755))
	require.NoError(t, os.WriteFile(path, []byte(content), 0644))
}

func testProjects() []types.Project {
	projects := []types.Project{
		{
			Key:     "churn",
			Title:   "Churn Model",
			Summary: "Gradient boosting on usage data",
			Tags:    []string{"AI", "ML"},
			Tools:   []string{"Python"},
			Impact:  []string{"Improved retention efficiency by 12%"},
			Visuals: []types.ChartSpec{
				{Type: "bar", DataPath: "data/industries.csv", X: "industry", Y: "count", Title: "By Industry"},
				{Type: "bar", DataPath: "data/missing.csv", X: "a", Y: "b"},
				{Type: "line", DataPath: "data/industries.csv", X: "industry", Y: "nope", Title: "Broken"},
			},
			Diagram: &types.Diagram{
				Type:  types.DiagramTypeFlow,
				Nodes: []types.DiagramNode{{Name: "Input"}, {Name: "Model"}, {Name: "Output"}},
				Edges: []types.Edge{{From: "Input", To: "Model"}, {From: "Model", To: "Output"}},
			},
			Downloads: []types.Download{
				{Label: "Results", Path: "data/results.csv"},
				{Label: "Slides", Path: "data/slides.pdf"},
			},
		},
		{
			Key:     "industry",
			Title:   "Industry Classification",
			Summary: "LLM labelling of companies",
			Tags:    []string{"AI", "NLP"},
		},
	}
	for i := range projects {
		projects[i].Resolve()
	}
	return projects
}

type testServer struct {
	*Server
	views *fakeViews
}

func newTestServer(t *testing.T, rl *ratelimit.Config) *testServer {
	t.Helper()
	dir := t.TempDir()
	writeFile(t, dir, "data/industries.csv", "industry,count\nRetail,10\nFinance,7\n")
	writeFile(t, dir, "data/results.csv", "a,b\n1,2\n")

	views := &fakeViews{counts: map[string]int64{"churn": 3}}
	store := catalog.NewStore(catalog.New(testProjects(), nil))
	s, err := New(Config{BaseDir: dir, SiteTitle: "Test Portfolio", RateLimit: rl, Views: views}, store)
	require.NoError(t, err)
	t.Cleanup(s.Close)
	return &testServer{Server: s, views: views}
}

func (ts *testServer) get(t *testing.T, target string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(http.MethodGet, target, nil)
	rec := httptest.NewRecorder()
	ts.Handler().ServeHTTP(rec, req)
	return rec
}

func decode(t *testing.T, rec *httptest.ResponseRecorder) map[string]any {
	t.Helper()
	var body map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	return body
}

func TestNew_RequiresStore(t *testing.T) {
	_, err := New(Config{}, nil)
	assert.Error(t, err)
}

func TestHandleIndex_Home(t *testing.T) {
	ts := newTestServer(t, nil)

	rec := ts.get(t, "/")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "text/html; charset=utf-8", rec.Header().Get("Content-Type"))

	doc, err := goquery.NewDocumentFromReader(rec.Body)
	require.NoError(t, err)
	assert.Equal(t, 2, doc.Find("article.card").Length())
	assert.Empty(t, ts.views.recorded(), "home page is not a project view")
}

func TestHandleIndex_Filters(t *testing.T) {
	ts := newTestServer(t, nil)

	rec := ts.get(t, "/?tag=NLP")
	require.Equal(t, http.StatusOK, rec.Code)
	doc, err := goquery.NewDocumentFromReader(rec.Body)
	require.NoError(t, err)
	assert.Equal(t, 1, doc.Find("article.card").Length())
}

func TestHandleIndex_DetailRecordsView(t *testing.T) {
	ts := newTestServer(t, nil)

	req := httptest.NewRequest(http.MethodGet, "/?project=churn", nil)
	req.Header.Set("Referer", "https://example.com/")
	rec := httptest.NewRecorder()
	ts.Handler().ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	doc, err := goquery.NewDocumentFromReader(rec.Body)
	require.NoError(t, err)
	assert.Contains(t, doc.Find("h1").First().Text(), "Churn Model")

	views := ts.views.recorded()
	require.Len(t, views, 1)
	assert.Equal(t, "churn", views[0].ProjectKey)
	assert.Equal(t, "https://example.com/", views[0].Referrer)
	assert.Equal(t, rec.Header().Get(middleware.RequestIDHeader), views[0].RequestID.String())
}

func TestHandleIndex_ViewStoreFailureStillServesPage(t *testing.T) {
	ts := newTestServer(t, nil)
	ts.views.err = errors.New("connection refused")

	rec := ts.get(t, "/?project=churn")
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestHandleIndex_UnknownProject(t *testing.T) {
	ts := newTestServer(t, nil)

	rec := ts.get(t, "/?project=ghost")
	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.Contains(t, rec.Body.String(), "ghost")
	assert.Empty(t, ts.views.recorded())
}

func TestHandleProjectRedirect(t *testing.T) {
	ts := newTestServer(t, nil)

	rec := ts.get(t, "/projects/churn")
	assert.Equal(t, http.StatusFound, rec.Code)
	assert.Equal(t, "/?project=churn", rec.Header().Get("Location"))
}

func TestHandleChartCSV(t *testing.T) {
	ts := newTestServer(t, nil)

	rec := ts.get(t, "/projects/churn/charts/0/data.csv")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "text/csv; charset=utf-8", rec.Header().Get("Content-Type"))
	assert.Contains(t, rec.Header().Get("Content-Disposition"), `filename="by_industry.csv"`)
	assert.Equal(t, "industry,count\nRetail,10\nFinance,7\n", rec.Body.String())
}

func TestHandleChartCSV_Errors(t *testing.T) {
	ts := newTestServer(t, nil)

	tests := []struct {
		name   string
		target string
		status int
		msg    string
	}{
		{"unknown project", "/projects/ghost/charts/0/data.csv", http.StatusNotFound, "project not found: ghost"},
		{"index out of range", "/projects/churn/charts/9/data.csv", http.StatusNotFound, "chart 9 not found"},
		{"bad index", "/projects/churn/charts/x/data.csv", http.StatusBadRequest, "index"},
		{"missing data file", "/projects/churn/charts/1/data.csv", http.StatusNotFound, "data/missing.csv"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := ts.get(t, tt.target)
			assert.Equal(t, tt.status, rec.Code)
			assert.Equal(t, "application/json", rec.Header().Get("Content-Type"))
			assert.Contains(t, decode(t, rec)["error"], tt.msg)
		})
	}
}

func TestHandleChartSVG(t *testing.T) {
	ts := newTestServer(t, nil)

	rec := ts.get(t, "/projects/churn/charts/0/chart.svg")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "image/svg+xml", rec.Header().Get("Content-Type"))
	assert.Contains(t, rec.Body.String(), "<svg")

	rec = ts.get(t, "/projects/churn/charts/1/chart.svg")
	assert.Equal(t, http.StatusNotFound, rec.Code)

	rec = ts.get(t, "/projects/churn/charts/2/chart.svg")
	assert.Equal(t, http.StatusUnprocessableEntity, rec.Code)
	assert.Contains(t, decode(t, rec)["error"], "Broken")
}

func TestHandleDiagram(t *testing.T) {
	ts := newTestServer(t, nil)

	rec := ts.get(t, "/projects/churn/diagram.svg")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "image/svg+xml", rec.Header().Get("Content-Type"))
	assert.Contains(t, rec.Body.String(), "Model")

	rec = ts.get(t, "/projects/churn/diagram.png")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "image/png", rec.Header().Get("Content-Type"))
	assert.True(t, bytes.HasPrefix(rec.Body.Bytes(), []byte("\x89PNG")))

	rec = ts.get(t, "/projects/industry/diagram.svg")
	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.Equal(t, "diagram not found for project industry", decode(t, rec)["error"])
}

func TestHandleDownload(t *testing.T) {
	ts := newTestServer(t, nil)

	rec := ts.get(t, "/projects/churn/downloads/0")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "text/csv", rec.Header().Get("Content-Type"))
	assert.Contains(t, rec.Header().Get("Content-Disposition"), `filename="results.csv"`)
	assert.Equal(t, "a,b\n1,2\n", rec.Body.String())

	rec = ts.get(t, "/projects/churn/downloads/1")
	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.Equal(t, "file not available: data/slides.pdf", decode(t, rec)["error"])

	rec = ts.get(t, "/projects/churn/downloads/2")
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestHandleDownload_Range(t *testing.T) {
	ts := newTestServer(t, nil)

	req := httptest.NewRequest(http.MethodGet, "/projects/churn/downloads/0", nil)
	req.Header.Set("Range", "bytes=0-2")
	rec := httptest.NewRecorder()
	ts.Handler().ServeHTTP(rec, req)

	assert.Equal(t, http.StatusPartialContent, rec.Code)
	assert.Equal(t, "a,b", rec.Body.String())
}

func TestAPI_ListProjects(t *testing.T) {
	ts := newTestServer(t, nil)

	rec := ts.get(t, "/api/projects?tag=NLP")
	require.Equal(t, http.StatusOK, rec.Code)

	var body struct {
		Projects []ProjectSummary `json:"projects"`
		Shown    int              `json:"shown"`
		Total    int              `json:"total"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, 1, body.Shown)
	assert.Equal(t, 2, body.Total)
	require.Len(t, body.Projects, 1)
	assert.Equal(t, "industry", body.Projects[0].Key)
	assert.Equal(t, "/?project=industry", body.Projects[0].URL)

	rec = ts.get(t, "/api/projects?q=gradient")
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, 1, body.Shown)
	assert.Equal(t, "churn", body.Projects[0].Key)
}

func TestAPI_GetProject(t *testing.T) {
	ts := newTestServer(t, nil)

	rec := ts.get(t, "/api/projects/churn")
	require.Equal(t, http.StatusOK, rec.Code)

	var body ProjectDetail
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	require.NotNil(t, body.Project)
	assert.Equal(t, "Churn Model", body.Title)
	assert.Equal(t, []string{
		"/projects/churn/charts/0/chart.svg",
		"/projects/churn/charts/1/chart.svg",
		"/projects/churn/charts/2/chart.svg",
	}, body.Links.Charts)
	assert.Equal(t, "/projects/churn/diagram.svg", body.Links.Diagram)
	assert.Equal(t, "/projects/churn/downloads/1", body.Links.Downloads[1])

	rec = ts.get(t, "/api/projects/industry")
	var plain ProjectDetail
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &plain))
	assert.Empty(t, plain.Links.Diagram)

	rec = ts.get(t, "/api/projects/ghost")
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestAPI_Tags(t *testing.T) {
	ts := newTestServer(t, nil)

	rec := ts.get(t, "/api/tags")
	require.Equal(t, http.StatusOK, rec.Code)

	var body struct {
		Tags []TagCount `json:"tags"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, []TagCount{
		{Tag: "AI", Projects: 2},
		{Tag: "ML", Projects: 1},
		{Tag: "NLP", Projects: 1},
	}, body.Tags)
}

func TestAPI_Stats(t *testing.T) {
	ts := newTestServer(t, nil)

	rec := ts.get(t, "/api/stats")
	require.Equal(t, http.StatusOK, rec.Code)

	var body struct {
		Stats catalog.Stats    `json:"stats"`
		Views map[string]int64 `json:"views"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, catalog.Stats{Total: 2, AIProjects: 2, NLPProjects: 1, DistinctTags: 3}, body.Stats)
	assert.Equal(t, map[string]int64{"churn": 3}, body.Views)

	ts.views.err = errors.New("down")
	rec = ts.get(t, "/api/stats?tag=NLP")
	require.Equal(t, http.StatusOK, rec.Code)
	b := decode(t, rec)
	assert.NotContains(t, b, "views")
}

func TestHealth(t *testing.T) {
	ts := newTestServer(t, nil)

	rec := ts.get(t, "/health")
	require.Equal(t, http.StatusOK, rec.Code)
	body := decode(t, rec)
	assert.Equal(t, "ok", body["status"])
	assert.EqualValues(t, 2, body["projects"])
}

func TestRequestIDHeader(t *testing.T) {
	ts := newTestServer(t, nil)

	rec := ts.get(t, "/health")
	_, err := uuid.Parse(rec.Header().Get(middleware.RequestIDHeader))
	assert.NoError(t, err)

	id := uuid.New()
	req := httptest.NewRequest(http.MethodGet, "/health", nil)
	req.Header.Set(middleware.RequestIDHeader, id.String())
	rec = httptest.NewRecorder()
	ts.Handler().ServeHTTP(rec, req)
	assert.Equal(t, id.String(), rec.Header().Get(middleware.RequestIDHeader))
}

func TestCORS(t *testing.T) {
	ts := newTestServer(t, nil)

	req := httptest.NewRequest(http.MethodOptions, "/api/projects", nil)
	rec := httptest.NewRecorder()
	ts.Handler().ServeHTTP(rec, req)
	assert.Equal(t, http.StatusNoContent, rec.Code)
	assert.Equal(t, "*", rec.Header().Get("Access-Control-Allow-Origin"))

	rec = ts.get(t, "/")
	assert.Empty(t, rec.Header().Get("Access-Control-Allow-Origin"))
}

func TestRateLimit(t *testing.T) {
	rl := ratelimit.NewConfig(ratelimit.Settings{Enabled: true, DefaultLimit: 2, Window: time.Minute})
	ts := newTestServer(t, rl)

	for i := 0; i < 2; i++ {
		rec := ts.get(t, "/api/tags")
		require.Equal(t, http.StatusOK, rec.Code)
		assert.Equal(t, "2", rec.Header().Get("X-RateLimit-Limit"))
	}

	rec := ts.get(t, "/api/tags")
	assert.Equal(t, http.StatusTooManyRequests, rec.Code)
	assert.NotEmpty(t, rec.Header().Get("Retry-After"))
	body := decode(t, rec)
	assert.Equal(t, "rate_limit_exceeded", body["error"])
	assert.Equal(t, ratelimit.TierDefault, body["tier"])

	rec = ts.get(t, "/health")
	assert.Equal(t, http.StatusOK, rec.Code, "health is never limited")
}

func TestServe_ShutsDownOnCancel(t *testing.T) {
	ts := newTestServer(t, nil)

	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- ts.Serve(ctx, ln) }()

	client := &http.Client{Transport: &http.Transport{DisableKeepAlives: true}, Timeout: 5 * time.Second}
	resp, err := client.Get("http://" + ln.Addr().String() + "/health")
	require.NoError(t, err)
	_ = resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	cancel()
	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(5 * time.Second):
		t.Fatal("server did not shut down")
	}
}

func TestAttachment(t *testing.T) {
	got := attachment("résumé data.csv")
	assert.True(t, strings.HasPrefix(got, `attachment; filename="résumé data.csv"`))
	assert.Contains(t, got, "filename*=UTF-8''r%C3%A9sum%C3%A9%20data.csv")
}
