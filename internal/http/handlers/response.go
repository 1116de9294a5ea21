// Package handlers provides the HTTP handlers of the discovery API.
//
// This file holds the response helpers shared by every endpoint: the error
// envelope, cache and ETag headers, and the success writers.
//
// Error envelope:
//
//	HTTP/1.1 400 Bad Request
//	{
//	  "request_id": "123e4567-e89b-12d3-a456-426614174000",
//	  "code": "empty_query",
//	  "message": "query required"
//	}
//
// 5xx responses never echo the underlying error to the client; it is logged
// with the request-scoped logger instead.
package handlers

import (
	"fmt"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/tbourn/go-discovery-backend/internal/http/middleware"
)

// ErrorResponse is the standard error envelope returned by all endpoints.
type ErrorResponse struct {
	// Correlates server logs and client errors
	RequestID string `json:"request_id,omitempty" example:"123e4567-e89b-12d3-a456-426614174000"`
	// Stable, machine-readable code (see errors.go constants)
	Code string `json:"code" example:"empty_query"`
	// Human-readable message (safe to show to users)
	Message string `json:"message" example:"query required"`
}

// fail aborts with the error envelope.
func fail(c *gin.Context, status int, code, msg string) {
	failCause(c, status, code, msg, nil)
}

// failCause aborts with the error envelope and logs cause for 5xx.
// 503 responses carry Retry-After so clients back off instead of hammering
// the engine.
func failCause(c *gin.Context, status int, code, msg string, cause error) {
	if status >= http.StatusInternalServerError {
		ev := middleware.LoggerFrom(c).Error().
			Int("status", status).
			Str("code", code)
		if cause != nil {
			ev = ev.Err(cause)
		}
		ev.Msg(msg)
	}
	if status == http.StatusServiceUnavailable {
		c.Header("Retry-After", "1")
	}
	c.AbortWithStatusJSON(status, ErrorResponse{
		RequestID: c.Writer.Header().Get("X-Request-ID"),
		Code:      code,
		Message:   msg,
	})
}

// Fail is fail for the router's NoRoute/NoMethod handlers.
func Fail(c *gin.Context, status int, code, msg string) { fail(c, status, code, msg) }

func ok(c *gin.Context, status int, body any) {
	c.JSON(status, body)
}

// okCached writes body and reports through X-Cache whether the engine result
// came from the result cache.
func okCached(c *gin.Context, cached bool, body any) {
	if cached {
		c.Header("X-Cache", "HIT")
	} else {
		c.Header("X-Cache", "MISS")
	}
	c.JSON(http.StatusOK, body)
}

func noContent(c *gin.Context) {
	c.Status(http.StatusNoContent)
}

// weakETag joins kind and parts into W/"kind:p1:p2:...".
func weakETag(kind string, parts ...any) string {
	var b strings.Builder
	b.WriteString(`W/"`)
	b.WriteString(kind)
	for _, p := range parts {
		fmt.Fprintf(&b, ":%v", p)
	}
	b.WriteByte('"')
	return b.String()
}

// notModified sets ETag and, when If-None-Match lists it (or is "*"), writes
// 304 and returns true.
func notModified(c *gin.Context, etag string) bool {
	c.Header("ETag", etag)
	inm := c.GetHeader("If-None-Match")
	if inm == "" {
		return false
	}
	for _, cand := range strings.Split(inm, ",") {
		cand = strings.TrimSpace(cand)
		if cand == "*" || cand == etag {
			c.Status(http.StatusNotModified)
			return true
		}
	}
	return false
}
