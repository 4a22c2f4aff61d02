package ratelimit

import (
	"time"
)

// Tier names used as bucket keys.
const (
	TierDefault   = "default"
	TierDownloads = "downloads"
	TierRenders   = "renders"
	TierHealth    = "health"
)

// EndpointConfig is the limit applied to every request whose path matches Pattern.
type EndpointConfig struct {
	// Name identifies the tier. Requests in one tier from one client share a bucket.
	Name string
	// Pattern is a path.Match pattern over the URL path, or a prefix when it ends with "/".
	Pattern string
	Method  string
	Limit   int           // Maximum requests per window; zero means unlimited
	Window  time.Duration // Time window
	Burst   int           // Burst capacity (defaults to Limit if 0)
}

// Config holds rate limiting configuration.
type Config struct {
	Enabled         bool
	DefaultLimit    int
	DefaultWindow   time.Duration
	CleanupInterval time.Duration
	// IdleTTL is how long an unused bucket is kept.
	IdleTTL         time.Duration
	Whitelist       map[string]bool
	Blacklist       map[string]bool
	EndpointConfigs []EndpointConfig
}

// Settings are the user-facing knobs, usually taken from the portfolio config.
type Settings struct {
	Enabled       bool
	DefaultLimit  int
	DownloadLimit int
	Window        time.Duration
	Whitelist     []string
	Blacklist     []string
}

// NewConfig builds a Config from settings. Non-positive limits and windows fall back to
// 600 requests and 60 downloads per minute.
func NewConfig(s Settings) *Config {
	if !s.Enabled {
		return &Config{Enabled: false}
	}
	if s.Window <= 0 {
		s.Window = time.Minute
	}
	if s.DefaultLimit <= 0 {
		s.DefaultLimit = 600
	}
	if s.DownloadLimit <= 0 {
		s.DownloadLimit = 60
	}

	return &Config{
		Enabled:         true,
		DefaultLimit:    s.DefaultLimit,
		DefaultWindow:   s.Window,
		CleanupInterval: 5 * time.Minute,
		IdleTTL:         time.Hour,
		Whitelist:       toSet(s.Whitelist),
		Blacklist:       toSet(s.Blacklist),
		EndpointConfigs: DefaultEndpointConfigs(s.DefaultLimit, s.DownloadLimit, s.Window),
	}
}

// DefaultEndpointConfigs returns the tiers for the portfolio routes.
func DefaultEndpointConfigs(defaultLimit, downloadLimit int, window time.Duration) []EndpointConfig {
	renderLimit := max(1, defaultLimit/5)
	return []EndpointConfig{
		// Health checks are never limited.
		{Name: TierHealth, Pattern: "/health", Method: "GET", Limit: 0},

		// File transfers: resource downloads and chart CSV exports.
		{Name: TierDownloads, Pattern: "/projects/*/downloads/*", Method: "GET", Limit: downloadLimit, Window: window, Burst: max(1, downloadLimit/4)},
		{Name: TierDownloads, Pattern: "/projects/*/charts/*/data.csv", Method: "GET", Limit: downloadLimit, Window: window, Burst: max(1, downloadLimit/4)},

		// Image rendering runs the chart and diagram engines per request.
		{Name: TierRenders, Pattern: "/projects/*/charts/*/chart.svg", Method: "GET", Limit: renderLimit, Window: window},
		{Name: TierRenders, Pattern: "/projects/*/diagram.svg", Method: "GET", Limit: renderLimit, Window: window},
		{Name: TierRenders, Pattern: "/projects/*/diagram.png", Method: "GET", Limit: renderLimit, Window: window},

		// Pages and the JSON API fall through to the default limit.
	}
}

func toSet(items []string) map[string]bool {
	set := make(map[string]bool, len(items))
	for _, item := range items {
		if item != "" {
			set[item] = true
		}
	}
	return set
}
