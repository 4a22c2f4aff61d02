//go:build integration

package snapshot

import (
	"bytes"
	"context"
	"net/http"
	"net/http/httptest"
	"os"
	"os/exec"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func requireChrome(t *testing.T) {
	t.Helper()
	for _, name := range []string{"google-chrome", "chromium", "chromium-browser", "headless-shell"} {
		if _, err := exec.LookPath(name); err == nil {
			return
		}
	}
	t.Skip("Chrome not installed")
}

func TestCapture_PDFAndPNG(t *testing.T) {
	requireChrome(t)

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "text/html; charset=utf-8")
		_, _ = w.Write([]byte("<html><body><h1>Churn Model</h1></body></html>"))
	}))
	defer srv.Close()

	dir := t.TempDir()
	ctx := context.Background()

	pdf := filepath.Join(dir, "page.pdf")
	require.NoError(t, Capture(ctx, Options{URL: srv.URL, Out: pdf, Settle: 100 * time.Millisecond}))
	b, err := os.ReadFile(pdf)
	require.NoError(t, err)
	assert.True(t, bytes.HasPrefix(b, []byte("%PDF")))

	png := filepath.Join(dir, "page.png")
	require.NoError(t, Capture(ctx, Options{URL: srv.URL, Out: png, Width: 800, Height: 600}))
	b, err = os.ReadFile(png)
	require.NoError(t, err)
	assert.True(t, bytes.HasPrefix(b, []byte("\x89PNG")))
}
