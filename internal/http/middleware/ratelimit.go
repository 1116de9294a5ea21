// Per-client token-bucket rate limiting with route tiers.
//
// The discovery routes (/search, /categories/:category) run the whole
// engine and cost far more CPU than history, favorites or suggestions, so
// they draw from a separate, stricter bucket family. A client that exhausts
// its engine budget can still page favorites and vice versa.
//
// Buckets are process-local and keyed by tier and client identity.
package middleware

import (
	"math"
	"net/http"
	"strconv"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"golang.org/x/time/rate"
)

const (
	// TierDefault covers every route not assigned to another tier.
	TierDefault = "default"
	// TierEngine covers routes that run the recommendation pipeline.
	TierEngine = "engine"

	visitorTTL    = 10 * time.Minute
	sweepInterval = 5000 // lookups between idle-bucket sweeps
)

// keyFunc selects the client identity of a request.
type keyFunc func(*gin.Context) string

// KeyByUserOrIP prefers the authenticated "userID" context value and falls
// back to the client IP. The X-User-ID header is not trusted here: anyone can
// rotate it to mint fresh buckets.
func KeyByUserOrIP() keyFunc {
	return func(c *gin.Context) string {
		if v, ok := c.Get("userID"); ok {
			if s, ok := v.(string); ok && s != "" {
				return "user:" + s
			}
		}
		return "ip:" + c.ClientIP()
	}
}

// Limit is the refill rate and bucket size of one tier.
type Limit struct {
	RPS   float64
	Burst int
}

func (l Limit) normalized() Limit {
	if l.Burst <= 0 {
		l.Burst = 1
	}
	if l.RPS < 0 {
		l.RPS = 0
	}
	return l
}

// retryAfter is the whole number of seconds until one token is back.
func (l Limit) retryAfter() string {
	if l.RPS <= 0 {
		return "60"
	}
	return strconv.Itoa(int(math.Max(1, math.Ceil(1/l.RPS))))
}

// RateLimitOptions configures NewRateLimiter.
type RateLimitOptions struct {
	Default Limit
	Engine  Limit
	// EngineRoutes lists the registered route patterns (c.FullPath()) that
	// use the engine tier, e.g. "/api/v1/categories/:category".
	EngineRoutes []string
	// Key defaults to KeyByUserOrIP.
	Key keyFunc
}

type visitor struct {
	limiter  *rate.Limiter
	lastSeen time.Time
}

// RateLimiter is safe for concurrent use.
type RateLimiter struct {
	limits map[string]Limit
	engine map[string]struct{}
	keyFn  keyFunc

	mu       sync.Mutex
	visitors map[string]*visitor
	lookups  int
	now      func() time.Time
}

// NewRateLimiter builds a limiter with a default and an engine tier.
func NewRateLimiter(opts RateLimitOptions) *RateLimiter {
	engine := make(map[string]struct{}, len(opts.EngineRoutes))
	for _, r := range opts.EngineRoutes {
		engine[r] = struct{}{}
	}
	keyFn := opts.Key
	if keyFn == nil {
		keyFn = KeyByUserOrIP()
	}
	return &RateLimiter{
		limits: map[string]Limit{
			TierDefault: opts.Default.normalized(),
			TierEngine:  opts.Engine.normalized(),
		},
		engine:   engine,
		keyFn:    keyFn,
		visitors: make(map[string]*visitor),
		now:      time.Now,
	}
}

// Tier returns the tier of the matched route.
func (rl *RateLimiter) Tier(c *gin.Context) string {
	if _, ok := rl.engine[c.FullPath()]; ok {
		return TierEngine
	}
	return TierDefault
}

// limiter returns the bucket for (tier, key), creating it on first use.
// Idle buckets are swept every sweepInterval lookups, before the requested
// bucket is touched so a stale one can be dropped too.
func (rl *RateLimiter) limiter(tier, key string) *rate.Limiter {
	now := rl.now()
	id := tier + "|" + key

	rl.mu.Lock()
	defer rl.mu.Unlock()

	rl.lookups++
	if rl.lookups >= sweepInterval {
		for k, v := range rl.visitors {
			if now.Sub(v.lastSeen) >= visitorTTL {
				delete(rl.visitors, k)
			}
		}
		rl.lookups = 0
	}

	if v, ok := rl.visitors[id]; ok {
		v.lastSeen = now
		return v.limiter
	}
	l := rl.limits[tier]
	lim := rate.NewLimiter(rate.Limit(l.RPS), l.Burst)
	rl.visitors[id] = &visitor{limiter: lim, lastSeen: now}
	return lim
}

// IsRateBypass reports whether IdempotencyValidator marked the request as a
// replay, which is served without spending tokens.
func IsRateBypass(c *gin.Context) bool {
	v, ok := c.Get(ctxKeyRateBypass)
	if !ok {
		return false
	}
	b, _ := v.(bool)
	return b
}

// Handler enforces the limits. Rejections get 429 with the API error
// envelope, Retry-After and X-RateLimit-Tier.
func (rl *RateLimiter) Handler() gin.HandlerFunc {
	return func(c *gin.Context) {
		if IsRateBypass(c) {
			c.Next()
			return
		}

		tier := rl.Tier(c)
		if rl.limiter(tier, rl.keyFn(c)).Allow() {
			c.Next()
			return
		}

		c.Header("Retry-After", rl.limits[tier].retryAfter())
		c.Header("X-RateLimit-Tier", tier)
		c.AbortWithStatusJSON(http.StatusTooManyRequests, gin.H{
			"request_id": c.Writer.Header().Get("X-Request-ID"),
			"code":       "rate_limited",
			"message":    "rate limit exceeded for " + tier + " routes",
		})
	}
}
