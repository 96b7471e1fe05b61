// Package connector implements the acquisition layer every network adapter
// is built on: token-bucket admission, time-boxed caching, retry with
// backoff, and a three-tier degradation chain (live API, scraped fallback,
// deterministic synthesis) that guarantees a Ready connector always returns
// usable data.
package connector

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/sony/gobreaker"

	"github.com/IgorGanapolsky/ai-nodes-sub001/internal/cache"
	"github.com/IgorGanapolsky/ai-nodes-sub001/internal/ratelimit"
	"github.com/IgorGanapolsky/ai-nodes-sub001/internal/telemetry"
)

// State is the connector lifecycle state.
type State string

const (
	StateUninitialized State = "uninitialized"
	StateInitializing  State = "initializing"
	StateReady         State = "ready"
	StateDisposed      State = "disposed"
)

// RateLimitPolicy sizes the admission bucket.
type RateLimitPolicy struct {
	Requests int
	Window   time.Duration
}

// CachePolicy controls response memoization.
type CachePolicy struct {
	Enabled bool
	TTL     time.Duration
}

// ScrapePolicy controls the scraped fallback tier.
type ScrapePolicy struct {
	Enabled  bool
	Headless bool
	Timeout  time.Duration
}

// Config is the full configuration of one connector. It is read-mostly
// after Initialize; Reconfigure is the only sanctioned mutation.
type Config struct {
	Network           string
	BaseURL           string
	APIKey            string
	RequireCredential bool
	Timeout           time.Duration
	Retry             RetryPolicy
	RateLimit         RateLimitPolicy
	Cache             CachePolicy
	Scrape            ScrapePolicy
}

// Request describes one logical acquisition. Method and Target plus the
// canonicalized Params form the cache key.
type Request struct {
	Method string
	Target string
	Params map[string]string
}

// Result is the outcome of a request: the opaque payload, the tier that
// produced it, and a correlation id matching the connector's logs.
type Result struct {
	Value     any
	Tier      telemetry.Tier
	RequestID string
}

// LiveFunc fetches from the network's structured API.
type LiveFunc func(ctx context.Context, req Request) (any, error)

// ScrapeFunc extracts a best-effort answer from an unstructured source.
type ScrapeFunc func(ctx context.Context, req Request) (any, error)

// SynthFunc produces deterministic synthetic data. It never fails; it is
// the guaranteed terminal tier.
type SynthFunc func(req Request) any

// Connector orchestrates the tier chain for one network. Many concurrent
// requests share one instance; the rate limiter and cache it owns are
// never shared with another connector.
type Connector struct {
	mu    sync.RWMutex
	state State
	cfg   Config

	limiter *ratelimit.Limiter
	cache   *cache.Store
	breaker *gobreaker.CircuitBreaker

	live   LiveFunc
	scrape ScrapeFunc
	synth  SynthFunc

	// synthOnly is resolved once at Initialize: a credential-requiring
	// connector without an API key never touches transport or scraper.
	synthOnly bool
	credValid bool

	lastCheck   time.Time
	lastLatency time.Duration

	logger *slog.Logger
}

// New creates an uninitialized connector. synth is mandatory; live and
// scrape may be nil when the network has no such tier.
func New(live LiveFunc, scrape ScrapeFunc, synth SynthFunc, logger *slog.Logger) *Connector {
	if logger == nil {
		logger = slog.Default()
	}
	return &Connector{
		state:  StateUninitialized,
		live:   live,
		scrape: scrape,
		synth:  synth,
		logger: logger,
	}
}

// Initialize validates cfg, builds the owned limiter and cache, and
// transitions to Ready. A validation failure leaves the connector
// Uninitialized and returns a ConfigError. Initializing an already Ready
// connector is a no-op.
func (c *Connector) Initialize(cfg Config) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	switch c.state {
	case StateReady:
		return nil
	case StateDisposed:
		return NewNotInitializedError(cfg.Network)
	}
	c.state = StateInitializing

	limiter, cacheStore, err := c.buildResources(cfg)
	if err != nil {
		c.state = StateUninitialized
		return err
	}

	c.cfg = cfg
	c.limiter = limiter
	c.cache = cacheStore
	c.breaker = newBreaker(cfg.Network)
	c.synthOnly = c.live == nil || (cfg.RequireCredential && cfg.APIKey == "")
	// An absent credential is a degradation, not a rejection; credValid
	// only flips false once the upstream actually refuses the key.
	c.credValid = true
	c.logger = c.logger.With("network", cfg.Network)
	c.state = StateReady

	c.logger.Info("connector ready",
		"synth_only", c.synthOnly,
		"cache_enabled", cfg.Cache.Enabled,
		"scrape_enabled", cfg.Scrape.Enabled)
	return nil
}

// Reconfigure swaps the configuration of a Ready connector, rebuilding the
// limiter and cache. The connector stays Ready throughout.
func (c *Connector) Reconfigure(cfg Config) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.state != StateReady {
		return NewNotInitializedError(cfg.Network)
	}

	limiter, cacheStore, err := c.buildResources(cfg)
	if err != nil {
		return err
	}

	if c.cache != nil {
		c.cache.Close()
	}
	c.cfg = cfg
	c.limiter = limiter
	c.cache = cacheStore
	c.synthOnly = c.live == nil || (cfg.RequireCredential && cfg.APIKey == "")
	c.credValid = true
	return nil
}

func (c *Connector) buildResources(cfg Config) (*ratelimit.Limiter, *cache.Store, error) {
	if cfg.Network == "" {
		return nil, nil, NewConfigError("network name is required", nil)
	}
	if c.synth == nil {
		return nil, nil, NewConfigError("synthetic tier is required", nil)
	}
	if c.live != nil && cfg.BaseURL == "" && (!cfg.RequireCredential || cfg.APIKey != "") {
		return nil, nil, NewConfigError("base URL is required for the live tier", nil)
	}
	if cfg.Timeout <= 0 {
		return nil, nil, NewConfigError("timeout must be positive", nil)
	}

	limiter, err := ratelimit.New(cfg.RateLimit.Requests, cfg.RateLimit.Window)
	if err != nil {
		return nil, nil, NewConfigError("invalid rate limit policy", err)
	}

	var cacheStore *cache.Store
	if cfg.Cache.Enabled {
		if cfg.Cache.TTL <= 0 {
			return nil, nil, NewConfigError("cache TTL must be positive when caching is enabled", nil)
		}
		cacheStore = cache.New(cfg.Cache.TTL)
	}
	return limiter, cacheStore, nil
}

func newBreaker(network string) *gobreaker.CircuitBreaker {
	return gobreaker.NewCircuitBreaker(gobreaker.Settings{
		Name:    network,
		Timeout: 30 * time.Second,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= 5
		},
	})
}

// Do runs one request through the tier chain. Once the connector is Ready
// the only errors it can return are NotInitialized and the caller's own
// context expiring; every upstream failure is absorbed by a lower tier.
func (c *Connector) Do(ctx context.Context, req Request) (Result, error) {
	c.mu.RLock()
	state := c.state
	cfg := c.cfg
	limiter := c.limiter
	cacheStore := c.cache
	synthOnly := c.synthOnly
	logger := c.logger
	c.mu.RUnlock()

	if state != StateReady {
		return Result{}, NewNotInitializedError(cfg.Network)
	}

	reqID := uuid.NewString()
	logger = logger.With("request_id", reqID, "method", req.Method, "target", req.Target)

	if err := limiter.Acquire(ctx); err != nil {
		return Result{}, Classify(err)
	}

	key := cache.Key(req.Method, req.Target, req.Params)
	if cacheStore != nil {
		if hit, ok := cacheStore.Get(key); ok {
			cached := hit.(Result)
			cached.RequestID = reqID
			logger.Debug("cache hit", "tier", string(cached.Tier))
			return cached, nil
		}
	}

	if !synthOnly {
		if value, err := c.fetchLive(ctx, cfg, logger, req); err == nil {
			res := Result{Value: value, Tier: telemetry.TierLive, RequestID: reqID}
			if cacheStore != nil {
				cacheStore.Set(key, res, cfg.Cache.TTL)
			}
			return res, nil
		} else if ctx.Err() != nil {
			return Result{}, Classify(ctx.Err())
		}

		if value, err := c.fetchScraped(ctx, cfg, logger, req); err == nil {
			res := Result{Value: value, Tier: telemetry.TierScraped, RequestID: reqID}
			if cacheStore != nil {
				cacheStore.Set(key, res, cfg.Cache.TTL)
			}
			return res, nil
		} else if ctx.Err() != nil {
			return Result{}, Classify(ctx.Err())
		}
	}

	logger.Debug("serving synthetic tier")
	return Result{Value: c.synth(req), Tier: telemetry.TierSynthetic, RequestID: reqID}, nil
}

// fetchLive runs the live tier under the retry policy, with each attempt
// bounded by the configured timeout and guarded by the circuit breaker.
func (c *Connector) fetchLive(ctx context.Context, cfg Config, logger *slog.Logger, req Request) (any, error) {
	start := time.Now()
	value, err := Retry(ctx, cfg.Retry, logger, func(ctx context.Context) (any, error) {
		attemptCtx, cancel := context.WithTimeout(ctx, cfg.Timeout)
		defer cancel()

		v, err := c.breaker.Execute(func() (any, error) {
			return c.live(attemptCtx, req)
		})
		if err == nil {
			return v, nil
		}
		if err == gobreaker.ErrOpenState || err == gobreaker.ErrTooManyRequests {
			// Retrying against an open breaker fails instantly; skip
			// straight to the fallback chain.
			return nil, &Error{Kind: KindTransient, Retryable: false, Message: "circuit breaker open", Cause: err}
		}

		classified := Classify(err)
		switch classified.Kind {
		case KindRateLimited:
			c.limiter.Penalize(1)
		case KindAuthFailure:
			c.setCredValid(false)
		}
		return nil, classified
	})

	if err == nil {
		c.recordLiveSuccess(time.Since(start))
		return value, nil
	}

	logger.Warn("live tier exhausted, falling back",
		"kind", string(Classify(err).Kind),
		"error", err.Error())
	return nil, err
}

// fetchScraped attempts the scrape fallback exactly once; it is not
// subject to the retry policy.
func (c *Connector) fetchScraped(ctx context.Context, cfg Config, logger *slog.Logger, req Request) (any, error) {
	if !cfg.Scrape.Enabled || c.scrape == nil {
		return nil, NewScraperUnavailableError(nil)
	}

	timeout := cfg.Scrape.Timeout
	if timeout <= 0 {
		timeout = cfg.Timeout
	}
	scrapeCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	value, err := c.scrape(scrapeCtx, req)
	if err != nil {
		logger.Debug("scrape fallback failed", "error", err.Error())
		return nil, NewScraperUnavailableError(err)
	}
	logger.Debug("served from scrape fallback")
	return value, nil
}

func (c *Connector) recordLiveSuccess(latency time.Duration) {
	c.mu.Lock()
	c.lastCheck = time.Now()
	c.lastLatency = latency
	c.mu.Unlock()
}

func (c *Connector) setCredValid(valid bool) {
	c.mu.Lock()
	c.credValid = valid
	c.mu.Unlock()
}

// SetCredentialValid records the outcome of an adapter-level credential
// check so Health can report it.
func (c *Connector) SetCredentialValid(valid bool) {
	c.setCredValid(valid)
}

// CredentialValid reports the last known credential state.
func (c *Connector) CredentialValid() bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.credValid
}

// SynthOnly reports whether the connector serves only the synthetic tier.
func (c *Connector) SynthOnly() bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.synthOnly
}

// State returns the current lifecycle state.
func (c *Connector) State() State {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.state
}

// Config returns a copy of the active configuration.
func (c *Connector) Config() Config {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.cfg
}

// Health is a read-only diagnostic: an invalid credential or a nearly
// drained rate-limit bucket degrades the report. It never gates requests.
func (c *Connector) Health() telemetry.Health {
	c.mu.RLock()
	state := c.state
	limiter := c.limiter
	credValid := c.credValid
	synthOnly := c.synthOnly
	lastCheck := c.lastCheck
	lastLatency := c.lastLatency
	c.mu.RUnlock()

	h := telemetry.Health{
		Status:    telemetry.HealthHealthy,
		LastCheck: lastCheck,
		Latency:   lastLatency,
	}
	if lastCheck.IsZero() {
		h.LastCheck = time.Now()
	}

	if state != StateReady {
		h.Status = telemetry.HealthUnhealthy
		h.Errors = append(h.Errors, "connector is "+string(state))
		return h
	}

	if !credValid {
		h.Status = telemetry.HealthUnhealthy
		h.Errors = append(h.Errors, "credential rejected by upstream")
	} else if synthOnly {
		h.Status = telemetry.HealthDegraded
		h.Errors = append(h.Errors, "no credential configured; serving synthetic data")
	}

	remaining, capacity := limiter.Info()
	if capacity > 0 && remaining < 0.1*float64(capacity) {
		if h.Status == telemetry.HealthHealthy {
			h.Status = telemetry.HealthDegraded
		}
		h.Errors = append(h.Errors, "rate limit budget nearly exhausted")
	}
	return h
}

// Dispose releases the cache and its janitor and transitions to Disposed.
// Every subsequent call on the connector fails with NotInitialized.
func (c *Connector) Dispose() {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.state == StateDisposed {
		return
	}
	if c.cache != nil {
		c.cache.Close()
	}
	c.state = StateDisposed
	c.logger.Info("connector disposed")
}
