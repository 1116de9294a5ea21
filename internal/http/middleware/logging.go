// Package middleware contains shared Gin middleware used by the HTTP layer.
//
// The discovery routes run behind RequestID, then Logger or RedactingLogger,
// then Recovery, so that panics and access lines carry the correlation id.
// Both loggers attach a request-scoped zerolog.Logger that handlers reach
// through LoggerFrom and services through log.Ctx.
package middleware

import (
	"net/http"
	"runtime/debug"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

const (
	requestIDKey    = "requestID"
	requestIDHeader = "X-Request-ID"
	loggerKey       = "logger"

	// maxQueryLogLength caps the logged raw query.
	maxQueryLogLength = 2048
	// maxPathLogLength caps unmatched paths and category params.
	maxPathLogLength = 256
)

// RequestID reuses the incoming X-Request-ID or generates a UUIDv4, echoes
// it on the response and stores it in the Gin context.
func RequestID() gin.HandlerFunc {
	return func(c *gin.Context) {
		rid := c.GetHeader(requestIDHeader)
		if rid == "" {
			rid = uuid.NewString()
		}
		c.Set(requestIDKey, rid)
		c.Writer.Header().Set(requestIDHeader, rid)
		c.Next()
	}
}

// Logger writes one structured access line per request.
//
// Request fields: request id, user id (context value, then X-User-ID, then
// "demo-user"), method, route pattern (raw path capped at maxPathLogLength
// when unmatched), client and query. Response fields: status, latency, bytes
// in and out, the X-Cache outcome of engine routes and the category of
// /categories/:category. Level is error for 5xx or gin errors, warn for 4xx
// and info otherwise.
func Logger() gin.HandlerFunc {
	return accessLog{client: true}.handler()
}

// accessLog is the body shared by Logger and RedactingLogger. Nil hooks log
// values as they are.
type accessLog struct {
	// user rewrites the user id.
	user func(string) string
	// scrub rewrites free text: the query, gin errors and the category.
	scrub func(string) string
	// headers, when set, logs the returned view of the request headers.
	headers func(http.Header) map[string]string
	// client logs remote ip, user agent and referer.
	client bool
}

func (a accessLog) clean(s string) string {
	if a.scrub == nil || s == "" {
		return s
	}
	return a.scrub(s)
}

func (a accessLog) handler() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()

		user := userIDFromCtx(c)
		if a.user != nil {
			user = a.user(user)
		}
		lc := log.With().
			Str("request_id", requestIDOf(c)).
			Str("user_id", user).
			Str("method", c.Request.Method).
			Str("path", routeOf(c)).
			Str("query", truncate(a.clean(c.Request.URL.RawQuery), maxQueryLogLength))
		if a.client {
			lc = lc.
				Str("remote_ip", c.ClientIP()).
				Str("user_agent", c.Request.UserAgent()).
				Str("referer", c.Request.Referer())
		}
		l := lc.Logger()

		c.Set(loggerKey, &l)
		c.Request = c.Request.WithContext(l.WithContext(c.Request.Context()))

		c.Next()

		status := c.Writer.Status()
		var ev *zerolog.Event
		switch {
		case len(c.Errors) > 0 || status >= 500:
			ev = l.Error()
		case status >= 400:
			ev = l.Warn()
		default:
			ev = l.Info()
		}
		if len(c.Errors) > 0 {
			ev = ev.Str("errors", a.clean(c.Errors.String()))
		}
		if cache := c.Writer.Header().Get("X-Cache"); cache != "" {
			ev = ev.Str("cache", cache)
		}
		if cat := c.Param("category"); cat != "" {
			ev = ev.Str("category", truncate(a.clean(cat), maxPathLogLength))
		}
		if a.headers != nil {
			ev = ev.Interface("headers", a.headers(c.Request.Header))
		}
		ev.
			Int("status", status).
			Dur("latency", time.Since(start)).
			// -1 when unknown.
			Int64("bytes_in", c.Request.ContentLength).
			Int("bytes_out", c.Writer.Size()).
			Msg("request")
	}
}

// requestIDOf prefers the id set by RequestID, then the response header set
// by an upstream middleware, then the incoming header.
func requestIDOf(c *gin.Context) string {
	if v, ok := c.Get(requestIDKey); ok {
		if rid := asString(v); rid != "" {
			return rid
		}
	}
	if rid := c.Writer.Header().Get(requestIDHeader); rid != "" {
		return rid
	}
	return c.GetHeader(requestIDHeader)
}

// routeOf returns the matched route pattern, or the capped raw path.
func routeOf(c *gin.Context) string {
	if p := c.FullPath(); p != "" {
		return p
	}
	return truncate(c.Request.URL.Path, maxPathLogLength)
}

// Recovery turns a panic into a logged stack trace and, when nothing has been
// written yet, the JSON body
//
//	{ "request_id": "...", "code": "internal_error", "message": "internal server error" }
func Recovery() gin.HandlerFunc {
	return func(c *gin.Context) {
		defer func() {
			rec := recover()
			if rec == nil {
				return
			}
			rid := requestIDOf(c)
			log.Error().
				Interface("panic", rec).
				Bytes("stack", debug.Stack()).
				Str("request_id", rid).
				Msg("panic recovered")

			if c.Writer.Written() {
				c.AbortWithStatus(http.StatusInternalServerError)
				return
			}
			c.Header(requestIDHeader, rid)
			c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{
				"request_id": rid,
				"code":       "internal_error",
				"message":    "internal server error",
			})
		}()
		c.Next()
	}
}

// LoggerFrom returns the request-scoped logger, or the global one when no
// access logger ran. The result is never nil.
func LoggerFrom(c *gin.Context) *zerolog.Logger {
	if v, ok := c.Get(loggerKey); ok {
		if lg, ok := v.(*zerolog.Logger); ok {
			return lg
		}
	}
	l := log.With().Logger()
	return &l
}

func asString(v any) string {
	if s, ok := v.(string); ok {
		return s
	}
	return ""
}

// truncate caps s at max bytes and appends an ellipsis. max <= 0 disables it.
func truncate(s string, max int) string {
	if max <= 0 || len(s) <= max {
		return s
	}
	return s[:max] + "…"
}
