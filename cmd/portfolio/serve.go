package main

import (
	"context"
	"fmt"
	"os/signal"
	"syscall"

	"github.com/jonathan/analytics-portfolio/internal/catalog"
	"github.com/jonathan/analytics-portfolio/internal/db"
	"github.com/jonathan/analytics-portfolio/internal/observability"
	"github.com/jonathan/analytics-portfolio/internal/server"
	"github.com/jonathan/analytics-portfolio/internal/server/ratelimit"
	"github.com/jonathan/analytics-portfolio/internal/watcher"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

var (
	servePort   int
	serveWatch  bool
	servePolicy string
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the portfolio web server",
	Long: `Load the project catalog and serve the home page, project detail pages, chart and diagram
images, downloads and the JSON API. With --watch the catalog reloads when project files change.
Page views are recorded when DATABASE_URL is set.`,
	RunE: runServe,
}

func init() {
	serveCmd.Flags().IntVar(&servePort, "port", 0, "Port to listen on (default 8501, or $PORT)")
	serveCmd.Flags().BoolVar(&serveWatch, "watch", false, "Reload projects when files in the projects directory change")
	serveCmd.Flags().StringVar(&servePolicy, "policy", "", "Load policy for bad project files: strict or skip")
	rootCmd.AddCommand(serveCmd)
}

func runServe(cmd *cobra.Command, _ []string) error {
	if cmd.Flags().Changed("port") {
		cfg.Port = servePort
	}
	if serveWatch {
		cfg.Watch = true
	}
	if servePolicy != "" {
		cfg.LoadPolicy = servePolicy
	}
	if err := cfg.Validate(); err != nil {
		return err
	}
	policy, err := configuredPolicy()
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	reloader := newReloader(policy)
	initial, report, err := reloader.Load(ctx)
	if err != nil {
		return fmt.Errorf("failed to load projects: %w", err)
	}
	observability.NewPrinter(cmd.ErrOrStderr()).PrintLoadReport(report)

	store := catalog.NewStore(initial)
	reloader.Store = store

	views, closeViews, err := openViewStore(ctx)
	if err != nil {
		return err
	}
	defer closeViews()

	srv, err := server.New(server.Config{
		Port:      cfg.Port,
		BaseDir:   cfg.BaseDir,
		SiteTitle: cfg.SiteTitle,
		RateLimit: ratelimit.NewConfig(ratelimit.Settings{
			Enabled:       cfg.RateLimit.IsEnabled(),
			DefaultLimit:  cfg.RateLimit.DefaultLimit,
			DownloadLimit: cfg.RateLimit.DownloadLimit,
			Window:        cfg.RateLimit.WindowDuration(),
			Whitelist:     cfg.RateLimit.Whitelist,
		}),
		Views:  views,
		Logger: logger,
	}, store)
	if err != nil {
		return fmt.Errorf("failed to create server: %w", err)
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		return srv.Run(gctx)
	})
	if cfg.Watch {
		w, err := watcher.New(cfg.ProjectsDir, reloader.Reload, watcher.WithLogger(logger))
		if err != nil {
			srv.Close()
			return err
		}
		g.Go(func() error {
			return w.Run(gctx)
		})
	}

	logger.Info("portfolio ready",
		zap.Int("port", cfg.Port),
		zap.Int("projects", initial.Len()),
		zap.Bool("watch", cfg.Watch),
		zap.Bool("views", views != nil))
	return g.Wait()
}

// openViewStore connects to Postgres when a database URL is configured. Without one, views are
// not recorded and the returned store is nil.
func openViewStore(ctx context.Context) (server.ViewStore, func(), error) {
	if cfg.DatabaseURL == "" {
		return nil, func() {}, nil
	}
	database, err := db.Connect(ctx, cfg.DatabaseURL)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to connect to database: %w", err)
	}
	if err := database.EnsureSchema(ctx); err != nil {
		database.Close()
		return nil, nil, fmt.Errorf("failed to prepare database schema: %w", err)
	}
	return database, database.Close, nil
}
