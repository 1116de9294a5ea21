package middleware

import (
	"encoding/json"
	"net"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
)

func TestKeyByUserOrIP_IgnoresUserHeader(t *testing.T) {
	gin.SetMode(gin.TestMode)
	c, _ := gin.CreateTestContext(httptest.NewRecorder())
	c.Request = httptest.NewRequest(http.MethodGet, "/", nil)
	c.Request.RemoteAddr = net.JoinHostPort("203.0.113.9", "12345")
	c.Request.Header.Set("X-User-ID", "spoofed")

	if got := KeyByUserOrIP()(c); got != "ip:203.0.113.9" {
		t.Fatalf("key = %q; want ip:203.0.113.9", got)
	}
	c.Set("userID", "u123")
	if got := KeyByUserOrIP()(c); got != "user:u123" {
		t.Fatalf("key = %q; want user:u123", got)
	}
}

// newTierRouter mounts one engine route and one cheap route behind rl.
func newTierRouter(rl *RateLimiter) *gin.Engine {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.Use(rl.Handler())
	ok := func(c *gin.Context) { c.Status(http.StatusOK) }
	r.GET("/api/v1/search", ok)
	r.GET("/api/v1/categories/:category", ok)
	r.GET("/api/v1/favorites", ok)
	return r
}

func get(r http.Handler, path string) *httptest.ResponseRecorder {
	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, path, nil)
	req.RemoteAddr = "198.51.100.7:4000"
	r.ServeHTTP(w, req)
	return w
}

func TestRateLimiter_EngineTierIsSeparate(t *testing.T) {
	rl := NewRateLimiter(RateLimitOptions{
		Default:      Limit{RPS: 0.001, Burst: 3},
		Engine:       Limit{RPS: 0.5, Burst: 1},
		EngineRoutes: []string{"/api/v1/search", "/api/v1/categories/:category"},
	})
	r := newTierRouter(rl)

	if w := get(r, "/api/v1/search?q=BTS"); w.Code != http.StatusOK {
		t.Fatalf("first search -> %d", w.Code)
	}
	// Both engine routes share the single engine token.
	w := get(r, "/api/v1/categories/artists?q=BTS")
	if w.Code != http.StatusTooManyRequests {
		t.Fatalf("second engine call -> %d; want 429", w.Code)
	}
	if got := w.Header().Get("X-RateLimit-Tier"); got != TierEngine {
		t.Fatalf("tier header = %q", got)
	}
	if got := w.Header().Get("Retry-After"); got != "2" {
		t.Fatalf("Retry-After = %q; want 2 for 0.5 rps", got)
	}
	var body map[string]string
	if err := json.Unmarshal(w.Body.Bytes(), &body); err != nil || body["code"] != "rate_limited" {
		t.Fatalf("body = %s (%v)", w.Body.String(), err)
	}

	// Cheap routes still have their own budget.
	for i := 0; i < 3; i++ {
		if w := get(r, "/api/v1/favorites"); w.Code != http.StatusOK {
			t.Fatalf("favorites #%d -> %d", i+1, w.Code)
		}
	}
	if w := get(r, "/api/v1/favorites"); w.Code != http.StatusTooManyRequests {
		t.Fatalf("favorites over burst -> %d", w.Code)
	} else if w.Header().Get("X-RateLimit-Tier") != TierDefault {
		t.Fatalf("tier header = %q", w.Header().Get("X-RateLimit-Tier"))
	}
}

func TestRateLimiter_Tier(t *testing.T) {
	rl := NewRateLimiter(RateLimitOptions{EngineRoutes: []string{"/api/v1/search"}})
	r := gin.New()
	var tiers []string
	r.GET("/api/v1/search", func(c *gin.Context) { tiers = append(tiers, rl.Tier(c)) })
	r.GET("/api/v1/history", func(c *gin.Context) { tiers = append(tiers, rl.Tier(c)) })
	get(r, "/api/v1/search")
	get(r, "/api/v1/history")
	if len(tiers) != 2 || tiers[0] != TierEngine || tiers[1] != TierDefault {
		t.Fatalf("tiers = %v", tiers)
	}
}

func TestRateLimiter_ReplayBypass(t *testing.T) {
	rl := NewRateLimiter(RateLimitOptions{Default: Limit{RPS: 0, Burst: 1}})
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.Use(func(c *gin.Context) {
		if c.GetHeader("X-Replay") != "" {
			c.Set(ctxKeyRateBypass, true)
		}
	}, rl.Handler())
	r.POST("/api/v1/favorites", func(c *gin.Context) { c.Status(http.StatusCreated) })

	post := func(replay bool) int {
		w := httptest.NewRecorder()
		req := httptest.NewRequest(http.MethodPost, "/api/v1/favorites", nil)
		if replay {
			req.Header.Set("X-Replay", "1")
		}
		r.ServeHTTP(w, req)
		return w.Code
	}
	if got := post(false); got != http.StatusCreated {
		t.Fatalf("first -> %d", got)
	}
	if got := post(false); got != http.StatusTooManyRequests {
		t.Fatalf("second -> %d; want 429", got)
	}
	if got := post(true); got != http.StatusCreated {
		t.Fatalf("replay -> %d; want bypass", got)
	}
}

func TestRateLimiter_SweepsIdleBuckets(t *testing.T) {
	rl := NewRateLimiter(RateLimitOptions{})
	base := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	rl.now = func() time.Time { return base }
	stale := rl.limiter(TierEngine, "ip:old")

	rl.now = func() time.Time { return base.Add(visitorTTL) }
	rl.lookups = sweepInterval - 1
	_ = rl.limiter(TierDefault, "ip:new")

	rl.mu.Lock()
	_, oldLeft := rl.visitors[TierEngine+"|ip:old"]
	_, newLeft := rl.visitors[TierDefault+"|ip:new"]
	rl.mu.Unlock()
	if oldLeft || !newLeft {
		t.Fatalf("after sweep old=%v new=%v", oldLeft, newLeft)
	}
	if rl.limiter(TierEngine, "ip:old") == stale {
		t.Fatalf("expected a fresh bucket after eviction")
	}
}

func TestLimit_Normalized(t *testing.T) {
	l := Limit{RPS: -3, Burst: 0}.normalized()
	if l.RPS != 0 || l.Burst != 1 {
		t.Fatalf("normalized = %+v", l)
	}
	if got := (Limit{RPS: 4}).retryAfter(); got != "1" {
		t.Fatalf("retryAfter(4rps) = %q", got)
	}
	if got := (Limit{}).retryAfter(); got != "60" {
		t.Fatalf("retryAfter(0rps) = %q", got)
	}
}
