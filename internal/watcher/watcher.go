// Package watcher reloads the project catalog when files in the projects directory change.
package watcher

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/jonathan/analytics-portfolio/internal/catalog"
	"github.com/jonathan/analytics-portfolio/internal/loader"
	"go.uber.org/zap"
)

// DefaultDebounce is how long the directory must be quiet before a reload.
const DefaultDebounce = 300 * time.Millisecond

// ErrAlreadyRunning is returned by Run when the watcher is already running.
var ErrAlreadyRunning = errors.New("watcher already running")

// Reloader builds catalogs from the projects directory and publishes them to a store.
type Reloader struct {
	Dir         string
	ProfilePath string
	Policy      loader.Policy
	Store       *catalog.Store
	Logger      *zap.Logger
}

// Load reads the projects and profile into a new catalog without publishing it.
func (r *Reloader) Load(ctx context.Context) (*catalog.Catalog, *loader.Report, error) {
	projects, report, err := loader.LoadProjects(ctx, r.Dir, loader.Options{Policy: r.Policy, Logger: r.logger()})
	if err != nil {
		return nil, report, err
	}
	profile, err := loader.LoadProfile(r.ProfilePath)
	if err != nil {
		return nil, report, err
	}
	return catalog.New(projects, profile), report, nil
}

// Reload loads a fresh catalog and swaps it in. On failure the current catalog stays.
func (r *Reloader) Reload(ctx context.Context) error {
	c, report, err := r.Load(ctx)
	if err != nil {
		r.logger().Error("reload failed, keeping previous catalog", zap.String("dir", r.Dir), zap.Error(err))
		return fmt.Errorf("failed to reload projects: %w", err)
	}

	prev := r.Store.Swap(c)
	fields := []zap.Field{
		zap.Int("projects", c.Len()),
		zap.Int("skipped", len(report.Skipped)),
		zap.Int("warnings", len(report.Warnings)),
	}
	if prev != nil {
		fields = append(fields, zap.Int("previous", prev.Len()))
	}
	r.logger().Info("catalog reloaded", fields...)
	return nil
}

func (r *Reloader) logger() *zap.Logger {
	if r.Logger == nil {
		return zap.NewNop()
	}
	return r.Logger
}

// Option configures a Watcher.
type Option func(*Watcher)

// WithDebounce sets the quiet period before a reload.
func WithDebounce(d time.Duration) Option {
	return func(w *Watcher) {
		w.debounce = d
	}
}

// WithLogger sets the logger.
func WithLogger(l *zap.Logger) Option {
	return func(w *Watcher) {
		w.logger = l
	}
}

// WithOnReload sets a callback invoked after every reload attempt with its result.
func WithOnReload(fn func(error)) Option {
	return func(w *Watcher) {
		w.onReload = fn
	}
}

// Watcher triggers a reload after project files in a directory are written, created, removed
// or renamed. Bursts of events collapse into one reload.
type Watcher struct {
	dir      string
	reload   func(context.Context) error
	debounce time.Duration
	logger   *zap.Logger
	onReload func(error)

	mu      sync.Mutex
	running bool
}

// New creates a watcher for dir. reload is called from the watcher goroutine, never concurrently.
func New(dir string, reload func(context.Context) error, opts ...Option) (*Watcher, error) {
	if reload == nil {
		return nil, errors.New("reload function is required")
	}
	abs, err := filepath.Abs(dir)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve %s: %w", dir, err)
	}

	w := &Watcher{
		dir:      abs,
		reload:   reload,
		debounce: DefaultDebounce,
		logger:   zap.NewNop(),
		onReload: func(error) {},
	}
	for _, opt := range opts {
		opt(w)
	}
	return w, nil
}

// Dir returns the watched directory.
func (w *Watcher) Dir() string {
	return w.dir
}

// Run watches until ctx is cancelled. It returns nil on cancellation and an error when the
// directory cannot be watched.
func (w *Watcher) Run(ctx context.Context) error {
	w.mu.Lock()
	if w.running {
		w.mu.Unlock()
		return ErrAlreadyRunning
	}
	w.running = true
	w.mu.Unlock()
	defer func() {
		w.mu.Lock()
		w.running = false
		w.mu.Unlock()
	}()

	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("failed to create file watcher: %w", err)
	}
	defer func() { _ = fsw.Close() }()

	if err := fsw.Add(w.dir); err != nil {
		return fmt.Errorf("failed to watch %s: %w", w.dir, err)
	}
	w.logger.Info("watching projects directory", zap.String("dir", w.dir), zap.Duration("debounce", w.debounce))

	// fire is nil while no reload is pending. Each event restarts the quiet period.
	var fire <-chan time.Time

	for {
		select {
		case <-ctx.Done():
			return nil

		case event, ok := <-fsw.Events:
			if !ok {
				return nil
			}
			if !relevant(event) {
				continue
			}
			w.logger.Debug("project file changed", zap.String("file", event.Name), zap.String("op", event.Op.String()))
			fire = time.After(w.debounce)

		case <-fire:
			fire = nil
			err := w.reload(ctx)
			if err != nil {
				w.logger.Warn("reload failed", zap.Error(err))
			}
			w.onReload(err)

		case err, ok := <-fsw.Errors:
			if !ok {
				return nil
			}
			w.logger.Warn("file watcher error", zap.Error(err))
		}
	}
}

// relevant reports whether event touches a project file in a way that changes the catalog.
func relevant(event fsnotify.Event) bool {
	if !loader.IsProjectFile(event.Name) {
		return false
	}
	return event.Op&(fsnotify.Write|fsnotify.Create|fsnotify.Remove|fsnotify.Rename) != 0
}
