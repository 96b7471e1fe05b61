package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"

	"github.com/IgorGanapolsky/ai-nodes-sub001/internal/adapter"
)

// NetworkConfig holds the per-network connection settings.
type NetworkConfig struct {
	APIKey       string   `mapstructure:"api_key"`
	BaseURL      string   `mapstructure:"base_url"`
	DashboardURL string   `mapstructure:"dashboard_url"`
	NodeIDs      []string `mapstructure:"-"` // populated separately, env uses CSV
}

// Config holds all configuration for the telemetry collector. Layer-wide
// tunables apply to every network; per-network sections override endpoints
// and credentials.
type Config struct {
	TimeoutMs        int `mapstructure:"timeout_ms"`
	RetryAttempts    int `mapstructure:"retry_attempts"`
	RetryBaseDelayMs int `mapstructure:"retry_base_delay_ms"`

	RateLimitRequests int `mapstructure:"rate_limit_requests"`
	RateLimitWindowMs int `mapstructure:"rate_limit_window_ms"`

	CacheEnabled    bool `mapstructure:"cache_enabled"`
	CacheTTLSeconds int  `mapstructure:"cache_ttl_seconds"`

	ScraperEnabled   bool `mapstructure:"scraper_enabled"`
	ScraperHeadless  bool `mapstructure:"scraper_headless"`
	ScraperTimeoutMs int  `mapstructure:"scraper_timeout_ms"`

	IoNet  NetworkConfig `mapstructure:"ionet"`
	Helium NetworkConfig `mapstructure:"helium"`
	Grass  NetworkConfig `mapstructure:"grass"`
}

// Load reads configuration from environment variables and an optional
// config.yaml. Environment variables take precedence over file values.
//
// Recognized environment variables:
//   - IONET_API_KEY, IONET_BASE_URL, IONET_NODE_IDS (comma-separated)
//   - HELIUM_BASE_URL, HELIUM_NODE_IDS
//   - GRASS_API_KEY, GRASS_BASE_URL, GRASS_DASHBOARD_URL, GRASS_NODE_IDS
//   - TIMEOUT_MS, RETRY_ATTEMPTS, RETRY_BASE_DELAY_MS
//   - RATE_LIMIT_REQUESTS, RATE_LIMIT_WINDOW_MS
//   - CACHE_ENABLED, CACHE_TTL_SECONDS
//   - SCRAPER_ENABLED, SCRAPER_HEADLESS, SCRAPER_TIMEOUT_MS
//
// A missing API key is not an error: it switches that network to the
// synthetic tier.
func Load() (*Config, error) {
	v := viper.New()
	v.AutomaticEnv()

	v.SetDefault("timeout_ms", 10000)
	v.SetDefault("retry_attempts", 3)
	v.SetDefault("retry_base_delay_ms", 1000)
	v.SetDefault("rate_limit_requests", 10)
	v.SetDefault("rate_limit_window_ms", 1000)
	v.SetDefault("cache_enabled", true)
	v.SetDefault("cache_ttl_seconds", 60)
	v.SetDefault("scraper_enabled", false)
	v.SetDefault("scraper_headless", false)
	v.SetDefault("scraper_timeout_ms", 15000)

	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath(".")
	v.AddConfigPath("$HOME/.ai-nodes")

	// Read config file (ignore if not found)
	_ = v.ReadInConfig()

	v.BindEnv("timeout_ms", "TIMEOUT_MS")
	v.BindEnv("retry_attempts", "RETRY_ATTEMPTS")
	v.BindEnv("retry_base_delay_ms", "RETRY_BASE_DELAY_MS")
	v.BindEnv("rate_limit_requests", "RATE_LIMIT_REQUESTS")
	v.BindEnv("rate_limit_window_ms", "RATE_LIMIT_WINDOW_MS")
	v.BindEnv("cache_enabled", "CACHE_ENABLED")
	v.BindEnv("cache_ttl_seconds", "CACHE_TTL_SECONDS")
	v.BindEnv("scraper_enabled", "SCRAPER_ENABLED")
	v.BindEnv("scraper_headless", "SCRAPER_HEADLESS")
	v.BindEnv("scraper_timeout_ms", "SCRAPER_TIMEOUT_MS")

	v.BindEnv("ionet.api_key", "IONET_API_KEY")
	v.BindEnv("ionet.base_url", "IONET_BASE_URL")
	v.BindEnv("ionet.node_ids", "IONET_NODE_IDS")
	v.BindEnv("helium.base_url", "HELIUM_BASE_URL")
	v.BindEnv("helium.node_ids", "HELIUM_NODE_IDS")
	v.BindEnv("grass.api_key", "GRASS_API_KEY")
	v.BindEnv("grass.base_url", "GRASS_BASE_URL")
	v.BindEnv("grass.dashboard_url", "GRASS_DASHBOARD_URL")
	v.BindEnv("grass.node_ids", "GRASS_NODE_IDS")

	config := &Config{}
	if err := v.Unmarshal(config); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	// Node id lists come from a yaml list or a CSV environment variable.
	config.IoNet.NodeIDs = stringList(v, "ionet.node_ids")
	config.Helium.NodeIDs = stringList(v, "helium.node_ids")
	config.Grass.NodeIDs = stringList(v, "grass.node_ids")

	if err := config.validate(); err != nil {
		return nil, err
	}
	return config, nil
}

func (c *Config) validate() error {
	var invalid []string
	if c.TimeoutMs <= 0 {
		invalid = append(invalid, "TIMEOUT_MS")
	}
	if c.RetryAttempts <= 0 {
		invalid = append(invalid, "RETRY_ATTEMPTS")
	}
	if c.RetryBaseDelayMs <= 0 {
		invalid = append(invalid, "RETRY_BASE_DELAY_MS")
	}
	if c.RateLimitRequests <= 0 {
		invalid = append(invalid, "RATE_LIMIT_REQUESTS")
	}
	if c.RateLimitWindowMs <= 0 {
		invalid = append(invalid, "RATE_LIMIT_WINDOW_MS")
	}
	if c.CacheEnabled && c.CacheTTLSeconds <= 0 {
		invalid = append(invalid, "CACHE_TTL_SECONDS")
	}
	if len(invalid) > 0 {
		return fmt.Errorf("configuration values must be positive: %s", strings.Join(invalid, ", "))
	}
	return nil
}

// Settings assembles adapter settings for one network from the layer-wide
// tunables and the network's own section.
func (c *Config) Settings(n NetworkConfig) adapter.Settings {
	return adapter.Settings{
		APIKey:            n.APIKey,
		BaseURL:           n.BaseURL,
		NodeIDs:           n.NodeIDs,
		DashboardURL:      n.DashboardURL,
		Timeout:           time.Duration(c.TimeoutMs) * time.Millisecond,
		RetryAttempts:     c.RetryAttempts,
		RetryBaseDelay:    time.Duration(c.RetryBaseDelayMs) * time.Millisecond,
		RateLimitRequests: c.RateLimitRequests,
		RateLimitWindow:   time.Duration(c.RateLimitWindowMs) * time.Millisecond,
		CacheEnabled:      c.CacheEnabled,
		CacheTTL:          time.Duration(c.CacheTTLSeconds) * time.Second,
		ScrapeEnabled:     c.ScraperEnabled,
		ScrapeHeadless:    c.ScraperHeadless,
		ScrapeTimeout:     time.Duration(c.ScraperTimeoutMs) * time.Millisecond,
	}
}

// stringList reads a key that may be a yaml list or a CSV string from an
// environment variable.
func stringList(v *viper.Viper, key string) []string {
	if raw := v.GetString(key); raw != "" {
		parts := strings.Split(raw, ",")
		out := make([]string, 0, len(parts))
		for _, p := range parts {
			if trimmed := strings.TrimSpace(p); trimmed != "" {
				out = append(out, trimmed)
			}
		}
		return out
	}
	return v.GetStringSlice(key)
}
