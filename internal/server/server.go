// Package server provides the portfolio website and its JSON API over HTTP.
package server

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/goccy/go-json"
	"github.com/jonathan/analytics-portfolio/internal/catalog"
	"github.com/jonathan/analytics-portfolio/internal/charts"
	"github.com/jonathan/analytics-portfolio/internal/db"
	"github.com/jonathan/analytics-portfolio/internal/rendering"
	"github.com/jonathan/analytics-portfolio/internal/server/middleware"
	"github.com/jonathan/analytics-portfolio/internal/server/ratelimit"
	"go.uber.org/zap"
)

// shutdownTimeout bounds graceful shutdown.
const shutdownTimeout = 30 * time.Second

// ViewStore records detail-page views. *db.DB implements it.
type ViewStore interface {
	RecordView(ctx context.Context, view db.PageView) error
	ViewCounts(ctx context.Context) (map[string]int64, error)
}

// Server represents the HTTP server
type Server struct {
	httpServer  *http.Server
	store       *catalog.Store
	pages       *rendering.Renderer
	charts      *charts.Renderer
	views       ViewStore
	rateLimiter *ratelimit.Limiter
	baseDir     string
	logger      *zap.Logger
}

// Config holds server configuration
type Config struct {
	Port      int
	BaseDir   string
	SiteTitle string
	// RateLimit nil applies the default limits.
	RateLimit *ratelimit.Config
	// Views is optional; without it page views are not recorded.
	Views  ViewStore
	Logger *zap.Logger
}

// New creates a new server instance serving the catalog held by store.
func New(cfg Config, store *catalog.Store) (*Server, error) {
	if store == nil {
		return nil, fmt.Errorf("catalog store is required")
	}
	if cfg.Logger == nil {
		cfg.Logger = zap.NewNop()
	}

	chartRenderer := charts.NewRenderer(charts.Options{BaseDir: cfg.BaseDir, Logger: cfg.Logger})
	pages, err := rendering.New(rendering.Options{
		SiteTitle: cfg.SiteTitle,
		BaseDir:   cfg.BaseDir,
		Charts:    chartRenderer,
		Logger:    cfg.Logger,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create page renderer: %w", err)
	}

	s := &Server{
		store:       store,
		pages:       pages,
		charts:      chartRenderer,
		views:       cfg.Views,
		rateLimiter: ratelimit.NewLimiter(cfg.RateLimit),
		baseDir:     cfg.BaseDir,
		logger:      cfg.Logger,
	}

	mux := http.NewServeMux()

	// Pages
	mux.HandleFunc("GET /{$}", s.handleIndex)
	mux.HandleFunc("GET /projects/{key}", s.handleProjectRedirect)

	// Project assets
	mux.HandleFunc("GET /projects/{key}/charts/{index}/data.csv", s.handleChartCSV)
	mux.HandleFunc("GET /projects/{key}/charts/{index}/chart.svg", s.handleChartSVG)
	mux.HandleFunc("GET /projects/{key}/diagram.svg", s.handleDiagramSVG)
	mux.HandleFunc("GET /projects/{key}/diagram.png", s.handleDiagramPNG)
	mux.HandleFunc("GET /projects/{key}/downloads/{index}", s.handleDownload)

	// JSON API
	mux.HandleFunc("GET /api/projects", s.handleListProjects)
	mux.HandleFunc("GET /api/projects/{key}", s.handleGetProject)
	mux.HandleFunc("GET /api/tags", s.handleListTags)
	mux.HandleFunc("GET /api/stats", s.handleStats)
	mux.HandleFunc("GET /health", s.handleHealth)

	s.httpServer = &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.Port),
		Handler:           middleware.RequestID()(middleware.AccessLog(s.logger)(s.withRateLimit(s.withCORS(mux)))),
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       30 * time.Second,
		WriteTimeout:      60 * time.Second,
		IdleTimeout:       60 * time.Second,
	}

	return s, nil
}

// Handler returns the fully wrapped handler, for tests and embedding.
func (s *Server) Handler() http.Handler {
	return s.httpServer.Handler
}

// Run listens on the configured port until ctx is cancelled, then shuts down gracefully.
func (s *Server) Run(ctx context.Context) error {
	ln, err := net.Listen("tcp", s.httpServer.Addr)
	if err != nil {
		s.Close()
		return fmt.Errorf("failed to listen on %s: %w", s.httpServer.Addr, err)
	}
	return s.Serve(ctx, ln)
}

// Serve accepts connections on ln until ctx is cancelled. In-flight requests get up to 30
// seconds to finish.
func (s *Server) Serve(ctx context.Context, ln net.Listener) error {
	defer s.Close()

	errCh := make(chan error, 1)
	go func() {
		s.logger.Info("server starting", zap.String("addr", ln.Addr().String()))
		errCh <- s.httpServer.Serve(ln)
	}()

	select {
	case err := <-errCh:
		return fmt.Errorf("server error: %w", err)
	case <-ctx.Done():
	}

	s.logger.Info("shutting down server")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()

	if err := s.httpServer.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("server shutdown failed: %w", err)
	}
	if err := <-errCh; err != nil && !errors.Is(err, http.ErrServerClosed) {
		return fmt.Errorf("server error: %w", err)
	}

	s.logger.Info("server stopped")
	return nil
}

// Close releases the rate limiter's cleanup goroutine.
func (s *Server) Close() {
	if s.rateLimiter != nil {
		s.rateLimiter.Stop()
	}
}

// withCORS adds CORS headers to API responses
func (s *Server) withCORS(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if !isAPIPath(r.URL.Path) {
			next.ServeHTTP(w, r)
			return
		}

		w.Header().Set("Access-Control-Allow-Origin", "*")
		w.Header().Set("Access-Control-Allow-Methods", "GET, OPTIONS")
		w.Header().Set("Access-Control-Allow-Headers", "Content-Type, "+middleware.RequestIDHeader)
		w.Header().Set("Access-Control-Expose-Headers", middleware.RequestIDHeader)

		if r.Method == http.MethodOptions {
			w.WriteHeader(http.StatusNoContent)
			return
		}

		next.ServeHTTP(w, r)
	})
}

func isAPIPath(p string) bool {
	return strings.HasPrefix(p, "/api/")
}

// withRateLimit adds rate limiting middleware
func (s *Server) withRateLimit(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		allowed, info := s.rateLimiter.Allow(s.extractClientID(r), r.URL.Path, r.Method)
		s.setRateLimitHeaders(w, info)
		if !allowed {
			s.rateLimitResponse(w, info)
			return
		}
		next.ServeHTTP(w, r)
	})
}

// handleHealth returns server health status
func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	c := s.store.Load()
	s.jsonResponse(w, http.StatusOK, map[string]any{
		"status":    "ok",
		"projects":  c.Len(),
		"loaded_at": c.LoadedAt().UTC().Format(time.RFC3339),
	})
}

// jsonResponse writes a JSON response
func (s *Server) jsonResponse(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		s.logger.Error("failed to encode JSON response", zap.Error(err))
	}
}

// errorResponse writes an error JSON response
func (s *Server) errorResponse(w http.ResponseWriter, status int, message string) {
	s.jsonResponse(w, status, map[string]string{"error": message})
}

// writeError maps err to a status. Internal errors are logged and not echoed to the client.
func (s *Server) writeError(w http.ResponseWriter, r *http.Request, err error) {
	status := HTTPStatus(err)
	if status >= http.StatusInternalServerError {
		s.logger.Error("request failed",
			zap.String("path", r.URL.Path),
			zap.String("request_id", middleware.GetRequestID(r).String()),
			zap.Error(err),
		)
		s.errorResponse(w, status, http.StatusText(status))
		return
	}
	s.errorResponse(w, status, err.Error())
}

// extractClientID extracts the client identifier from the request.
// This uses the IP address from RemoteAddr; X-Forwarded-For is not trusted.
func (s *Server) extractClientID(r *http.Request) string {
	ip, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return ip
}

// setRateLimitHeaders sets standard rate limit headers on the response.
func (s *Server) setRateLimitHeaders(w http.ResponseWriter, info ratelimit.Info) {
	if info.Limit > 0 {
		w.Header().Set("X-RateLimit-Limit", strconv.Itoa(info.Limit))
		w.Header().Set("X-RateLimit-Remaining", strconv.Itoa(info.Remaining))
		w.Header().Set("X-RateLimit-Reset", strconv.FormatInt(info.ResetTime.Unix(), 10))
	}
}

// rateLimitResponse writes a 429 Too Many Requests response with rate limit information.
func (s *Server) rateLimitResponse(w http.ResponseWriter, info ratelimit.Info) {
	response := map[string]any{
		"error":     "rate_limit_exceeded",
		"message":   "Rate limit exceeded. Please try again later.",
		"tier":      info.Tier,
		"limit":     info.Limit,
		"remaining": info.Remaining,
	}
	if !info.ResetTime.IsZero() {
		response["reset_at"] = info.ResetTime.UTC().Format(time.RFC3339)
	}

	if info.RetryAfter > 0 {
		seconds := int(info.RetryAfter.Seconds() + 0.999)
		response["retry_after"] = seconds
		w.Header().Set("Retry-After", strconv.Itoa(seconds))
	}

	s.logger.Warn("rate limit exceeded",
		zap.String("tier", info.Tier),
		zap.Int("limit", info.Limit),
	)

	s.jsonResponse(w, http.StatusTooManyRequests, response)
}
