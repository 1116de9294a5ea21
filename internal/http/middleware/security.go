// Security headers for the JSON API and the Swagger UI.
//
// API responses never render in a browser, so they get the strictest CSP.
// The Swagger UI is HTML with an inline bootstrap script and inline styles
// and gets a policy that allows exactly that from the same origin.
// Per-user routes (history, favorites) are marked private so shared caches
// never store them; ETag revalidation still works.
package middleware

import (
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
)

const (
	// APIContentSecurityPolicy forbids every fetch and framing.
	APIContentSecurityPolicy = "default-src 'none'; frame-ancestors 'none'; base-uri 'none'"

	// DocsContentSecurityPolicy fits the bundled swagger-ui page.
	DocsContentSecurityPolicy = "default-src 'self'; script-src 'self' 'unsafe-inline'; " +
		"style-src 'self' 'unsafe-inline'; img-src 'self' data:; connect-src 'self'; " +
		"frame-ancestors 'none'; base-uri 'self'; form-action 'none'"

	defaultHSTSMaxAge = 180 * 24 * time.Hour
)

// SecurityOptions configures SecurityHeaders.
type SecurityOptions struct {
	// EnableHSTS sends Strict-Transport-Security on HTTPS requests only.
	EnableHSTS bool
	HSTSMaxAge time.Duration // default 180 days

	// DocsPrefix is the path prefix of the Swagger UI, e.g. "/swagger/".
	// Empty applies the API policy everywhere.
	DocsPrefix string

	// PrivatePrefixes are path prefixes whose responses are per user.
	PrivatePrefixes []string
}

// SecurityHeaders sets nosniff, frame denial, referrer and permissions
// policies, a route-appropriate CSP, private caching for per-user routes and
// HSTS when enabled. X-Request-ID is exposed to browser clients.
func SecurityHeaders(opt SecurityOptions) gin.HandlerFunc {
	maxAge := opt.HSTSMaxAge
	if maxAge <= 0 {
		maxAge = defaultHSTSMaxAge
	}
	hsts := "max-age=" + strconv.Itoa(int(maxAge.Seconds())) + "; includeSubDomains; preload"

	return func(c *gin.Context) {
		h := c.Writer.Header()
		p := c.Request.URL.Path

		h.Set("X-Content-Type-Options", "nosniff")
		h.Set("X-Frame-Options", "DENY")
		h.Set("Referrer-Policy", "no-referrer")
		h.Set("Permissions-Policy", "geolocation=(), microphone=(), camera=(), payment=()")
		h.Set("X-Permitted-Cross-Domain-Policies", "none")

		if opt.DocsPrefix != "" && strings.HasPrefix(p, opt.DocsPrefix) {
			h.Set("Content-Security-Policy", DocsContentSecurityPolicy)
		} else {
			h.Set("Content-Security-Policy", APIContentSecurityPolicy)
		}

		for _, prefix := range opt.PrivatePrefixes {
			if strings.HasPrefix(p, prefix) {
				h.Set("Cache-Control", "private, no-cache")
				h.Add("Vary", "X-User-ID")
				break
			}
		}

		if opt.EnableHSTS && isHTTPS(c.Request) {
			h.Set("Strict-Transport-Security", hsts)
		}

		if rid := h.Get("X-Request-ID"); rid != "" {
			const hdr = "Access-Control-Expose-Headers"
			if cur := h.Get(hdr); cur == "" {
				h.Set(hdr, "X-Request-ID")
			} else if !strings.Contains(cur, "X-Request-ID") {
				h.Set(hdr, cur+", X-Request-ID")
			}
		}

		c.Next()
	}
}

// isHTTPS reports TLS directly or via X-Forwarded-Proto from the proxy.
func isHTTPS(r *http.Request) bool {
	if r.TLS != nil {
		return true
	}
	return strings.EqualFold(r.Header.Get("X-Forwarded-Proto"), "https")
}
