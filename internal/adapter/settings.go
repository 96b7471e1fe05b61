package adapter

import (
	"time"

	"github.com/IgorGanapolsky/ai-nodes-sub001/internal/connector"
)

// Settings is the per-network tuning every adapter accepts. Zero values
// fall back to the layer-wide defaults below.
type Settings struct {
	APIKey  string
	BaseURL string
	NodeIDs []string

	Timeout        time.Duration
	RetryAttempts  int
	RetryBaseDelay time.Duration

	RateLimitRequests int
	RateLimitWindow   time.Duration

	CacheEnabled bool
	CacheTTL     time.Duration

	ScrapeEnabled  bool
	ScrapeHeadless bool
	ScrapeTimeout  time.Duration
	DashboardURL   string
}

// Layer-wide defaults applied by BuildConfig.
const (
	DefaultTimeout           = 10 * time.Second
	DefaultRetryAttempts     = 3
	DefaultRetryBaseDelay    = time.Second
	DefaultRateLimitRequests = 10
	DefaultRateLimitWindow   = time.Second
	DefaultCacheTTL          = 60 * time.Second
)

// BuildConfig translates adapter settings into a connector configuration,
// applying defaults for anything left unset.
func BuildConfig(network string, requireCredential bool, s Settings) connector.Config {
	cfg := connector.Config{
		Network:           network,
		BaseURL:           s.BaseURL,
		APIKey:            s.APIKey,
		RequireCredential: requireCredential,
		Timeout:           s.Timeout,
		Retry: connector.RetryPolicy{
			MaxAttempts: s.RetryAttempts,
			BaseDelay:   s.RetryBaseDelay,
		},
		RateLimit: connector.RateLimitPolicy{
			Requests: s.RateLimitRequests,
			Window:   s.RateLimitWindow,
		},
		Cache: connector.CachePolicy{
			Enabled: s.CacheEnabled,
			TTL:     s.CacheTTL,
		},
		Scrape: connector.ScrapePolicy{
			Enabled:  s.ScrapeEnabled,
			Headless: s.ScrapeHeadless,
			Timeout:  s.ScrapeTimeout,
		},
	}

	if cfg.Timeout <= 0 {
		cfg.Timeout = DefaultTimeout
	}
	if cfg.Retry.MaxAttempts <= 0 {
		cfg.Retry.MaxAttempts = DefaultRetryAttempts
	}
	if cfg.Retry.BaseDelay <= 0 {
		cfg.Retry.BaseDelay = DefaultRetryBaseDelay
	}
	if cfg.RateLimit.Requests <= 0 {
		cfg.RateLimit.Requests = DefaultRateLimitRequests
	}
	if cfg.RateLimit.Window <= 0 {
		cfg.RateLimit.Window = DefaultRateLimitWindow
	}
	if cfg.Cache.Enabled && cfg.Cache.TTL <= 0 {
		cfg.Cache.TTL = DefaultCacheTTL
	}
	return cfg
}
