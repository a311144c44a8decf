package discovery

import (
	"context"
	stderrors "errors"
	"sync"
	"time"

	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"github.com/rut31337/cloudforge/core/types"
	"github.com/rut31337/cloudforge/internal/errors"
	"github.com/rut31337/cloudforge/internal/logging"
	"github.com/rut31337/cloudforge/internal/metrics"
)

// Config tunes gateway behavior. All knobs have documented defaults; an
// absent knob behaves exactly like its explicit default.
type Config struct {
	// Timeout bounds each discovery attempt
	Timeout time.Duration

	// CacheTTL bounds response cache freshness; independent of the
	// version catalog TTL
	CacheTTL time.Duration

	// MaxAttempts is the number of tries per discovery call
	MaxAttempts int

	// RatePerSecond throttles calls per source
	RatePerSecond float64
}

// DefaultConfig returns the documented defaults
func DefaultConfig() Config {
	return Config{
		Timeout:       5 * time.Second,
		CacheTTL:      30 * time.Minute,
		MaxAttempts:   3,
		RatePerSecond: 5,
	}
}

func (c Config) withDefaults() Config {
	d := DefaultConfig()
	if c.Timeout <= 0 {
		c.Timeout = d.Timeout
	}
	if c.CacheTTL <= 0 {
		c.CacheTTL = d.CacheTTL
	}
	if c.MaxAttempts <= 0 {
		c.MaxAttempts = d.MaxAttempts
	}
	if c.RatePerSecond <= 0 {
		c.RatePerSecond = d.RatePerSecond
	}
	return c
}

// Gateway fronts all live provider/platform queries. Every call is rate
// limited, retried, bounded by a timeout, and backed by the response
// cache so one slow provider can never hang a whole resolution.
type Gateway struct {
	cfg      Config
	registry *SourceRegistry
	images   *Cache
	versions *Cache
	log      *zap.Logger

	mu       sync.Mutex
	limiters map[string]*rate.Limiter
}

// NewGateway creates a gateway over the given source registry
func NewGateway(cfg Config, registry *SourceRegistry) *Gateway {
	cfg = cfg.withDefaults()
	return &Gateway{
		cfg:      cfg,
		registry: registry,
		images:   NewCache(cfg.CacheTTL),
		versions: NewCache(cfg.CacheTTL),
		log:      logging.Component("discovery"),
		limiters: make(map[string]*rate.Limiter),
	}
}

// HasImageSource reports whether live image discovery exists for a provider
func (g *Gateway) HasImageSource(p types.Provider) bool {
	_, ok := g.registry.ImageSource(p)
	return ok
}

// Images lists images for a provider, preferring a fresh cached response,
// refreshing when stale, and degrading to the previous snapshot when the
// refresh fails. The returned state tells the caller which of those
// happened so it can attach the right advisory.
func (g *Gateway) Images(ctx context.Context, p types.Provider, q ImageQuery) ([]Image, CacheState, error) {
	source, ok := g.registry.ImageSource(p)
	if !ok {
		return nil, StateMiss, errors.DiscoveryUnavailable(string(p), "image-listing", nil)
	}

	key := Key{Scope: string(p), Query: q.CacheKey()}
	value, state, err := g.images.GetOrRefresh(ctx, key, func(ctx context.Context) (interface{}, error) {
		imgs, ferr := g.fetch(ctx, "images:"+string(p), func(ctx context.Context) (interface{}, error) {
			out, lerr := source.ListImages(ctx, q)
			return out, lerr
		})
		if ferr != nil {
			return nil, ferr
		}
		return imgs, nil
	})
	metrics.DiscoveryCacheLookup("images", state.String())
	if value == nil {
		return nil, state, g.classify(string(p), "image-listing", err)
	}
	imgs := value.([]Image)
	if err != nil {
		err = g.classify(string(p), "image-listing", err)
	}
	return imgs, state, err
}

// CachedImages returns whatever the response cache holds for a query,
// without any live call. Static pattern rules use this path when live
// discovery is not wanted.
func (g *Gateway) CachedImages(p types.Provider, q ImageQuery) ([]Image, CacheState) {
	value, state := g.images.Lookup(Key{Scope: string(p), Query: q.CacheKey()})
	if value == nil {
		return nil, state
	}
	return value.([]Image), state
}

// Versions lists supported versions for a platform through the response
// cache, with the same degrade-to-stale behavior as Images.
func (g *Gateway) Versions(ctx context.Context, platform string) ([]string, CacheState, error) {
	source, ok := g.registry.VersionSource(platform)
	if !ok {
		return nil, StateMiss, errors.DiscoveryUnavailable(platform, "version-listing", nil)
	}

	key := Key{Scope: platform, Query: "versions"}
	value, state, err := g.versions.GetOrRefresh(ctx, key, func(ctx context.Context) (interface{}, error) {
		return g.fetch(ctx, "versions:"+platform, func(ctx context.Context) (interface{}, error) {
			return source.ListVersions(ctx)
		})
	})
	metrics.DiscoveryCacheLookup("versions", state.String())
	if value == nil {
		return nil, state, g.classify(platform, "version-listing", err)
	}
	versions := value.([]string)
	if err != nil {
		err = g.classify(platform, "version-listing", err)
	}
	return versions, state, err
}

// fetch runs one rate-limited, retried, timeout-bounded call
func (g *Gateway) fetch(ctx context.Context, limiterKey string, call func(context.Context) (interface{}, error)) (interface{}, error) {
	limiter := g.limiter(limiterKey)

	var lastErr error
	for attempt := 1; attempt <= g.cfg.MaxAttempts; attempt++ {
		if err := limiter.Wait(ctx); err != nil {
			return nil, err
		}

		attemptCtx, cancel := context.WithTimeout(ctx, g.cfg.Timeout)
		value, err := call(attemptCtx)
		cancel()
		if err == nil {
			metrics.DiscoveryRefresh(limiterKey, "success")
			return value, nil
		}
		lastErr = err
		if stderrors.Is(err, context.Canceled) {
			break
		}
		status := "error"
		if stderrors.Is(err, context.DeadlineExceeded) {
			status = "timeout"
		}
		metrics.DiscoveryRefresh(limiterKey, status)
		g.log.Warn("discovery attempt failed",
			zap.String("source", limiterKey),
			zap.Int("attempt", attempt),
			zap.Error(err))
	}
	return nil, lastErr
}

func (g *Gateway) limiter(key string) *rate.Limiter {
	g.mu.Lock()
	defer g.mu.Unlock()
	l, ok := g.limiters[key]
	if !ok {
		l = rate.NewLimiter(rate.Limit(g.cfg.RatePerSecond), 1)
		g.limiters[key] = l
	}
	return l
}

// classify maps transport failures onto the engine's error taxonomy
func (g *Gateway) classify(scope, operation string, err error) error {
	if err == nil {
		return nil
	}
	if stderrors.Is(err, context.DeadlineExceeded) {
		return errors.DiscoveryTimeout(scope, operation, err)
	}
	return errors.DiscoveryUnavailable(scope, operation, err)
}
