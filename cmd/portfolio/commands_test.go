package main

import (
	"database/sql"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/goccy/go-json"
	"github.com/jonathan/analytics-portfolio/internal/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	_ "modernc.org/sqlite"
)

func TestList(t *testing.T) {
	_, flags := fixture(t)

	out, err := executeCommand(t, append([]string{"list"}, flags...)...)
	require.NoError(t, err)
	assert.Contains(t, out, "Churn Model")
	assert.Contains(t, out, "Industry Classification")
	assert.Contains(t, out, "Showing 2 of 2 projects")
}

func TestList_Filters(t *testing.T) {
	_, flags := fixture(t)

	out, err := executeCommand(t, append([]string{"list", "--tag", "AI", "--tag", "NLP", "--stats"}, flags...)...)
	require.NoError(t, err)
	assert.Contains(t, out, "Industry Classification")
	assert.NotContains(t, out, "Churn Model")
	assert.Contains(t, out, "Showing 1 of 2 projects")
	assert.Contains(t, out, "PORTFOLIO STATS")
	assert.Contains(t, out, "NLP projects:  1")

	// Tags from the previous run must not leak into this one.
	out, err = executeCommand(t, append([]string{"list", "--search", "GRADIENT"}, flags...)...)
	require.NoError(t, err)
	assert.Contains(t, out, "Churn Model")
	assert.Contains(t, out, "Showing 1 of 2 projects")

	out, err = executeCommand(t, append([]string{"list", "--search", "nothing like this"}, flags...)...)
	require.NoError(t, err)
	assert.Contains(t, out, "No projects match the selected filters.")
}

func TestList_StrictPolicyFailsOnBadFile(t *testing.T) {
	base, flags := fixture(t)
	writeFile(t, base, "projects/broken.yaml", "key: broken\ntitle: [unterminated\n")

	_, err := executeCommand(t, append([]string{"list"}, flags...)...)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to load projects")
}

func TestShow(t *testing.T) {
	_, flags := fixture(t)

	out, err := executeCommand(t, append([]string{"show", "churn", "--raw"}, flags...)...)
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(out, "# Churn Model\n"))
	assert.Contains(t, out, "## Pipeline")

	out, err = executeCommand(t, append([]string{"show", "churn", "--style", "notty", "--width", "60"}, flags...)...)
	require.NoError(t, err)
	assert.Contains(t, out, "Churn Model")
}

func TestShow_Errors(t *testing.T) {
	_, flags := fixture(t)

	_, err := executeCommand(t, append([]string{"show", "nope"}, flags...)...)
	assert.EqualError(t, err, "project not found: nope")

	_, err = executeCommand(t, append([]string{"show"}, flags...)...)
	assert.Error(t, err)
}

func TestValidate(t *testing.T) {
	_, flags := fixture(t)

	out, err := executeCommand(t, append([]string{"validate"}, flags...)...)
	require.NoError(t, err)
	assert.Contains(t, out, "PROJECT LOAD")
	assert.Contains(t, out, "No problems found")
}

func TestValidate_ReportsErrors(t *testing.T) {
	base, flags := fixture(t)
	writeFile(t, base, "projects/broken.yaml", "key: broken\ntitle: [unterminated\n")
	writeFile(t, base, "projects/gaps.yaml", `
key: gaps
title: Gaps
visuals:
  - type: bar
    data_path: data/missing.csv
    x: a
    y: b
downloads:
  - label: Slides
    path: data/slides.pdf
`)

	out, err := executeCommand(t, append([]string{"validate"}, flags...)...)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "validation failed with 1 error(s)")
	assert.Contains(t, out, "[invalid_project_file]")
	assert.Contains(t, out, "missing_chart_data")
	assert.Contains(t, out, "missing_download")
}

func TestValidate_JSON(t *testing.T) {
	base, flags := fixture(t)
	writeFile(t, base, "projects/gaps.yaml", "key: gaps\ntitle: Gaps\ndownloads:\n  - label: Slides\n    path: data/slides.pdf\n")

	out, err := executeCommand(t, append([]string{"validate", "--json"}, flags...)...)
	require.NoError(t, err)

	var v types.Violations
	require.NoError(t, json.Unmarshal([]byte(out), &v))
	require.Len(t, v.Violations, 1)
	assert.Equal(t, "missing_download", v.Violations[0].Type)
	assert.Equal(t, types.SeverityWarning, v.Violations[0].Severity)
	assert.Equal(t, "gaps", v.Violations[0].ProjectKey)
}

func TestDiagram(t *testing.T) {
	base, flags := fixture(t)
	out := filepath.Join(base, "out", "nested", "churn.svg")

	output, err := executeCommand(t, append([]string{"diagram", "churn", "--out", out}, flags...)...)
	require.NoError(t, err)
	assert.Contains(t, output, "PIPELINE DIAGRAM")
	assert.Contains(t, output, "Sources: Input")
	assert.Contains(t, output, "Sinks:   Output")

	data, err := os.ReadFile(out)
	require.NoError(t, err)
	assert.Contains(t, string(data), "<svg")
}

func TestDiagram_Errors(t *testing.T) {
	base, flags := fixture(t)
	out := filepath.Join(base, "industry.svg")

	_, err := executeCommand(t, append([]string{"diagram", "industry", "--out", out}, flags...)...)
	assert.EqualError(t, err, "project industry has no flow diagram")

	_, err = executeCommand(t, append([]string{"diagram", "churn"}, flags...)...)
	require.Error(t, err)
	assert.Contains(t, err.Error(), `required flag(s) "out" not set`)
}

func TestExport(t *testing.T) {
	base, flags := fixture(t)
	site := filepath.Join(base, "site")
	dbPath := filepath.Join(base, "catalog.db")

	out, err := executeCommand(t, append([]string{"export", "--out", site, "--sqlite", dbPath}, flags...)...)
	require.NoError(t, err)
	assert.Contains(t, out, "STATIC EXPORT")
	assert.Contains(t, out, "Pages:      3")
	assert.Contains(t, out, "SQLite catalog: "+dbPath)

	assert.FileExists(t, filepath.Join(site, "index.html"))
	assert.FileExists(t, filepath.Join(site, "projects", "churn.html"))

	conn, err := sql.Open("sqlite", dbPath)
	require.NoError(t, err)
	defer conn.Close()
	var n int
	require.NoError(t, conn.QueryRow("SELECT COUNT(*) FROM projects").Scan(&n))
	assert.Equal(t, 2, n)
}

func TestServe_RejectsBadPolicy(t *testing.T) {
	_, flags := fixture(t)

	_, err := executeCommand(t, append([]string{"serve", "--policy", "lenient"}, flags...)...)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "load_policy")
}

func TestSetup_FlagsOverrideConfigFile(t *testing.T) {
	base, flags := fixture(t)
	configFile := filepath.Join(base, "portfolio.json")
	writeFile(t, base, "portfolio.json", `{"projects_dir": "/does/not/exist", "site_title": "From File", "port": 9000}`)

	_, err := executeCommand(t, append([]string{"list", "--config", configFile}, flags...)...)
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(base, "projects"), cfg.ProjectsDir)
	assert.Equal(t, "From File", cfg.SiteTitle)
	assert.Equal(t, 9000, cfg.Port)
}

func TestSetup_BadConfigFile(t *testing.T) {
	base, flags := fixture(t)
	writeFile(t, base, "portfolio.json", `{"port": "not a number"`)

	_, err := executeCommand(t, append([]string{"list", "--config", filepath.Join(base, "portfolio.json")}, flags...)...)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to parse config JSON")
}

func TestSnapshotTarget(t *testing.T) {
	t.Cleanup(func() {
		snapshotURL, snapshotProject = "", ""
	})
	cfg.Port = 8501

	snapshotURL, snapshotProject = "", ""
	got, err := snapshotTarget()
	require.NoError(t, err)
	assert.Equal(t, "http://localhost:8501/", got)

	snapshotProject = "churn"
	got, err = snapshotTarget()
	require.NoError(t, err)
	assert.Equal(t, "http://localhost:8501/?project=churn", got)

	snapshotURL = "http://example.com/"
	_, err = snapshotTarget()
	assert.Error(t, err)

	snapshotProject = ""
	got, err = snapshotTarget()
	require.NoError(t, err)
	assert.Equal(t, "http://example.com/", got)

	snapshotURL = "example.com"
	_, err = snapshotTarget()
	assert.Error(t, err)
}

func TestSnapshot_RequiresOut(t *testing.T) {
	_, err := executeCommand(t, "snapshot", "--url", "http://localhost:8501/")
	require.Error(t, err)
	assert.Contains(t, err.Error(), `required flag(s) "out" not set`)
}
