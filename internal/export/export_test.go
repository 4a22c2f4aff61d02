package export

import (
	"context"
	"database/sql"
	"os"
	"path/filepath"
	"testing"

	"github.com/PuerkitoBio/goquery"
	"github.com/jonathan/analytics-portfolio/internal/catalog"
	"github.com/jonathan/analytics-portfolio/internal/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

func writeFixture(t *testing.T, dir, name, content string) {
	t.Helper()
	path := filepath.Join(dir, name)
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0755))
	require.NoError(t, os.WriteFile(path, []byte(content), 0644))
}

func fixture(t *testing.T) (string, *catalog.Catalog) {
	t.Helper()
	base := t.TempDir()
	writeFixture(t, base, "data/industries.csv", "industry,count\nRetail,10\nFinance,7\n")
	writeFixture(t, base, "data/results.csv", "a,b\n1,2\n")

	projects := []types.Project{
		{
			Key:        "churn",
			Title:      "Churn Model",
			Summary:    "Gradient boosting on usage data",
			Tags:       []string{"AI", "ML"},
			Tools:      []string{"Python", "Excel"},
			Objectives: []string{"Predict churn"},
			Visuals: []types.ChartSpec{
				{Type: "bar", DataPath: "data/industries.csv", X: "industry", Y: "count", Title: "By Industry"},
				{Type: "bar", DataPath: "data/missing.csv", X: "a", Y: "b"},
			},
			Diagram: &types.Diagram{
				Type:  types.DiagramTypeFlow,
				Nodes: []types.DiagramNode{{Name: "Input"}, {Name: "Output"}},
				Edges: []types.Edge{{From: "Input", To: "Output"}},
			},
			Downloads: []types.Download{
				{Label: "Results", Path: "data/results.csv"},
				{Label: "Slides", Path: "data/slides.pdf"},
			},
		},
		{Key: "sales", Title: "Sales Dashboard", Summary: "Weekly revenue", Tags: []string{"BI"}},
	}
	for i := range projects {
		projects[i].Resolve()
	}
	return base, catalog.New(projects, nil)
}

func readDoc(t *testing.T, path string) *goquery.Document {
	t.Helper()
	f, err := os.Open(path)
	require.NoError(t, err)
	defer func() { _ = f.Close() }()
	doc, err := goquery.NewDocumentFromReader(f)
	require.NoError(t, err)
	return doc
}

func TestNew_RequiresOutDir(t *testing.T) {
	_, err := New(Options{})
	assert.Error(t, err)
}

func TestExport_Site(t *testing.T) {
	base, c := fixture(t)
	out := filepath.Join(t.TempDir(), "site")

	e, err := New(Options{OutDir: out, BaseDir: base, SiteTitle: "Portfolio"})
	require.NoError(t, err)
	summary, err := e.Export(context.Background(), c)
	require.NoError(t, err)

	assert.Equal(t, 3, summary.Pages)
	assert.Equal(t, 1, summary.Charts)
	assert.Equal(t, 1, summary.ChartData)
	assert.Equal(t, 1, summary.Diagrams)
	assert.Equal(t, 1, summary.Downloads)
	assert.Equal(t, []string{"data/missing.csv", "data/slides.pdf"}, summary.Missing)

	for _, rel := range []string{
		"index.html",
		"projects/churn.html",
		"projects/sales.html",
		"projects/churn/charts/0.svg",
		"projects/churn/charts/0.csv",
		"projects/churn/diagram.svg",
		"projects/churn/downloads/0-results.csv",
	} {
		assert.FileExists(t, filepath.Join(out, filepath.FromSlash(rel)))
	}
	assert.NoFileExists(t, filepath.Join(out, "projects", "churn", "charts", "1.svg"))

	csv, err := os.ReadFile(filepath.Join(out, "projects", "churn", "charts", "0.csv"))
	require.NoError(t, err)
	assert.Equal(t, "industry,count\nRetail,10\nFinance,7\n", string(csv))
}

func TestExport_RelativeLinks(t *testing.T) {
	base, c := fixture(t)
	out := t.TempDir()

	e, err := New(Options{OutDir: out, BaseDir: base})
	require.NoError(t, err)
	_, err = e.Export(context.Background(), c)
	require.NoError(t, err)

	index := readDoc(t, filepath.Join(out, "index.html"))
	var hrefs []string
	index.Find("a").Each(func(_ int, s *goquery.Selection) {
		if href, ok := s.Attr("href"); ok {
			hrefs = append(hrefs, href)
		}
	})
	assert.Contains(t, hrefs, "projects/churn.html")
	for _, h := range hrefs {
		assert.NotContains(t, h, "?project=", "static pages never link to server routes")
	}

	detail := readDoc(t, filepath.Join(out, "projects", "churn.html"))
	_, ok := detail.Find(`a[href="../projects/churn/charts/0.csv"]`).Attr("href")
	assert.True(t, ok, "chart CSV link is relative to the project page")
	_, ok = detail.Find(`a[href="../projects/churn/downloads/0-results.csv"]`).Attr("href")
	assert.True(t, ok)
}

func TestExport_Cancelled(t *testing.T) {
	base, c := fixture(t)
	e, err := New(Options{OutDir: t.TempDir(), BaseDir: base})
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err = e.Export(ctx, c)
	assert.ErrorIs(t, err, context.Canceled)
}

func TestWriteSQLite(t *testing.T) {
	_, c := fixture(t)
	path := filepath.Join(t.TempDir(), "out", "catalog.sqlite3")

	require.NoError(t, WriteSQLite(context.Background(), path, c))
	// A second export replaces the file.
	require.NoError(t, WriteSQLite(context.Background(), path, c))

	db, err := sql.Open("sqlite", path)
	require.NoError(t, err)
	defer func() { _ = db.Close() }()

	var n int
	require.NoError(t, db.QueryRow(`SELECT COUNT(*) FROM projects`).Scan(&n))
	assert.Equal(t, 2, n)

	var title string
	var hasDiagram bool
	require.NoError(t, db.QueryRow(`SELECT title, has_diagram FROM projects WHERE key = ?`, "churn").Scan(&title, &hasDiagram))
	assert.Equal(t, "Churn Model", title)
	assert.True(t, hasDiagram)

	rows, err := db.Query(`SELECT project_key FROM project_tags WHERE tag = ? ORDER BY project_key`, "AI")
	require.NoError(t, err)
	var keys []string
	for rows.Next() {
		var k string
		require.NoError(t, rows.Scan(&k))
		keys = append(keys, k)
	}
	require.NoError(t, rows.Err())
	_ = rows.Close()
	assert.Equal(t, []string{"churn"}, keys)

	var category string
	require.NoError(t, db.QueryRow(`SELECT category FROM project_tools WHERE project_key = ? AND tool = ?`, "churn", "Excel").Scan(&category))
	assert.Equal(t, string(types.CategoryData), category)

	var kind, vtitle string
	require.NoError(t, db.QueryRow(`SELECT kind, title FROM visuals WHERE project_key = ? AND idx = 1`, "churn").Scan(&kind, &vtitle))
	assert.Equal(t, "bar", kind)
	assert.Equal(t, "Visualization 2", vtitle)

	var version string
	require.NoError(t, db.QueryRow(`SELECT value FROM meta WHERE key = 'schema_version'`).Scan(&version))
	assert.Equal(t, "1", version)
}
