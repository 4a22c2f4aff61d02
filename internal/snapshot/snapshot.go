// Package snapshot captures a served portfolio page as a PDF or PNG with headless Chrome.
package snapshot

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/chromedp/cdproto/page"
	"github.com/chromedp/chromedp"
	"go.uber.org/zap"
)

// Format is the output file type.
type Format string

const (
	FormatPDF Format = "pdf"
	FormatPNG Format = "png"
)

// Defaults for Options.
const (
	DefaultTimeout = 30 * time.Second
	DefaultSettle  = time.Second
	DefaultWidth   = 1440
	DefaultHeight  = 900
)

// Options configures a capture.
type Options struct {
	URL     string
	Out     string
	Timeout time.Duration
	// Settle is how long to wait after the body is ready, so inline charts finish layout.
	Settle time.Duration
	Width  int
	Height int
	Logger *zap.Logger
}

func (o *Options) applyDefaults() {
	if o.Timeout <= 0 {
		o.Timeout = DefaultTimeout
	}
	if o.Settle < 0 {
		o.Settle = 0
	}
	if o.Width <= 0 {
		o.Width = DefaultWidth
	}
	if o.Height <= 0 {
		o.Height = DefaultHeight
	}
	if o.Logger == nil {
		o.Logger = zap.NewNop()
	}
}

// FormatFor picks the format from the output file extension.
func FormatFor(path string) (Format, error) {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".pdf":
		return FormatPDF, nil
	case ".png":
		return FormatPNG, nil
	default:
		return "", fmt.Errorf("unsupported snapshot format %q (want .pdf or .png)", filepath.Ext(path))
	}
}

// CheckURL accepts absolute http and https URLs only.
func CheckURL(raw string) error {
	u, err := url.Parse(raw)
	if err != nil {
		return fmt.Errorf("invalid url %q: %w", raw, err)
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return fmt.Errorf("invalid url %q: scheme must be http or https", raw)
	}
	if u.Host == "" {
		return fmt.Errorf("invalid url %q: missing host", raw)
	}
	return nil
}

// Capture renders opts.URL in headless Chrome and writes it to opts.Out. Chrome or Chromium must
// be installed.
func Capture(ctx context.Context, opts Options) error {
	opts.applyDefaults()
	if err := CheckURL(opts.URL); err != nil {
		return err
	}
	if opts.Out == "" {
		return errors.New("output path is required")
	}
	format, err := FormatFor(opts.Out)
	if err != nil {
		return err
	}

	opts.Logger.Info("starting headless browser", zap.String("url", opts.URL), zap.String("format", string(format)))

	allocCtx, cancel := chromedp.NewExecAllocator(ctx,
		append(chromedp.DefaultExecAllocatorOptions[:],
			chromedp.Flag("headless", true),
			chromedp.Flag("disable-gpu", true),
			chromedp.Flag("no-sandbox", true),
			chromedp.Flag("disable-dev-shm-usage", true),
			chromedp.WindowSize(opts.Width, opts.Height),
		)...,
	)
	defer cancel()

	browserCtx, cancel := chromedp.NewContext(allocCtx)
	defer cancel()

	browserCtx, cancel = context.WithTimeout(browserCtx, opts.Timeout)
	defer cancel()

	var data []byte
	actions := []chromedp.Action{
		chromedp.EmulateViewport(int64(opts.Width), int64(opts.Height)),
		chromedp.Navigate(opts.URL),
		chromedp.WaitReady("body"),
		chromedp.Sleep(opts.Settle),
	}
	switch format {
	case FormatPDF:
		actions = append(actions, chromedp.ActionFunc(func(ctx context.Context) error {
			buf, _, err := page.PrintToPDF().WithPrintBackground(true).Do(ctx)
			if err != nil {
				return err
			}
			data = buf
			return nil
		}))
	case FormatPNG:
		// Quality 100 selects PNG encoding.
		actions = append(actions, chromedp.FullScreenshot(&data, 100))
	}

	if err := chromedp.Run(browserCtx, actions...); err != nil {
		return fmt.Errorf("browser capture failed: %w", err)
	}

	if err := os.MkdirAll(filepath.Dir(opts.Out), 0755); err != nil {
		return fmt.Errorf("failed to create output directory: %w", err)
	}
	if err := os.WriteFile(opts.Out, data, 0644); err != nil {
		return fmt.Errorf("failed to write snapshot: %w", err)
	}

	opts.Logger.Info("snapshot written", zap.String("out", opts.Out), zap.Int("bytes", len(data)))
	return nil
}
