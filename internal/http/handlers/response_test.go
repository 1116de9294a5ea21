package handlers

import (
	"bytes"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"
)

// loggedRouter attaches a request id and a buffer-backed request logger.
func loggedRouter(buf *bytes.Buffer) *gin.Engine {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	logger := zerolog.New(buf)
	r.Use(func(c *gin.Context) {
		c.Writer.Header().Set("X-Request-ID", "rid-1")
		c.Set("logger", &logger)
		c.Next()
	})
	return r
}

func TestFailCause_500HidesCauseAndLogsIt(t *testing.T) {
	var buf bytes.Buffer
	r := loggedRouter(&buf)
	r.GET("/search", func(c *gin.Context) {
		failCause(c, http.StatusInternalServerError, ErrCodeSearchFailed, "internal error",
			errors.New("sqlite: database is locked"))
	})

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/search?q=BTS", nil))

	var resp ErrorResponse
	if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
		t.Fatalf("json: %v", err)
	}
	if w.Code != http.StatusInternalServerError || resp.RequestID != "rid-1" ||
		resp.Code != ErrCodeSearchFailed || resp.Message != "internal error" {
		t.Fatalf("unexpected response %d %+v", w.Code, resp)
	}
	if strings.Contains(w.Body.String(), "sqlite") {
		t.Fatalf("cause leaked to client: %s", w.Body.String())
	}
	logs := buf.String()
	if !strings.Contains(logs, `"level":"error"`) || !strings.Contains(logs, "database is locked") {
		t.Fatalf("cause not logged: %s", logs)
	}
}

func TestFailCause_503SetsRetryAfter(t *testing.T) {
	var buf bytes.Buffer
	r := loggedRouter(&buf)
	r.GET("/search", func(c *gin.Context) {
		failCause(c, http.StatusServiceUnavailable, ErrCodeUnavailable, "request canceled", nil)
	})
	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/search", nil))
	if w.Code != http.StatusServiceUnavailable || w.Header().Get("Retry-After") != "1" {
		t.Fatalf("got %d Retry-After=%q", w.Code, w.Header().Get("Retry-After"))
	}
}

func TestFail_4xxNotLogged(t *testing.T) {
	var buf bytes.Buffer
	r := loggedRouter(&buf)
	r.GET("/search", func(c *gin.Context) { fail(c, http.StatusBadRequest, ErrCodeEmptyQuery, "query required") })
	r.NoRoute(func(c *gin.Context) { Fail(c, http.StatusNotFound, ErrCodeNotFound, "route not found") })

	for path, want := range map[string]string{"/search": ErrCodeEmptyQuery, "/nope": ErrCodeNotFound} {
		w := httptest.NewRecorder()
		r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, path, nil))
		if errCode(t, w) != want {
			t.Fatalf("%s -> %s", path, w.Body.String())
		}
	}
	if buf.Len() != 0 {
		t.Fatalf("4xx should not log: %s", buf.String())
	}
}

func TestOkCached(t *testing.T) {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.GET("/hit", func(c *gin.Context) { okCached(c, true, gin.H{"query": "BTS"}) })
	r.GET("/miss", func(c *gin.Context) { okCached(c, false, gin.H{"query": "BTS"}) })
	r.DELETE("/gone", func(c *gin.Context) { noContent(c) })

	for path, want := range map[string]string{"/hit": "HIT", "/miss": "MISS"} {
		w := httptest.NewRecorder()
		r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, path, nil))
		if w.Code != http.StatusOK || w.Header().Get("X-Cache") != want {
			t.Fatalf("%s -> %d X-Cache=%q", path, w.Code, w.Header().Get("X-Cache"))
		}
	}
	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodDelete, "/gone", nil))
	if w.Code != http.StatusNoContent || w.Body.Len() != 0 {
		t.Fatalf("noContent -> %d %q", w.Code, w.Body.String())
	}
}

func TestWeakETag(t *testing.T) {
	got := weakETag("favorites", "u1", "artists", 2, 20, int64(7), int64(1700))
	if got != `W/"favorites:u1:artists:2:20:7:1700"` {
		t.Fatalf("weakETag = %s", got)
	}
	if weakETag("history") != `W/"history"` {
		t.Fatalf("bare tag = %s", weakETag("history"))
	}
}

func TestNotModified(t *testing.T) {
	gin.SetMode(gin.TestMode)
	etag := weakETag("history", "u1", 3, 99)
	cases := []struct {
		inm  string
		want bool
	}{
		{"", false},
		{etag, true},
		{`W/"other", ` + etag, true},
		{"*", true},
		{`W/"history:u1:3:98"`, false},
	}
	for _, tc := range cases {
		w := httptest.NewRecorder()
		c, _ := gin.CreateTestContext(w)
		c.Request = httptest.NewRequest(http.MethodGet, "/history", nil)
		if tc.inm != "" {
			c.Request.Header.Set("If-None-Match", tc.inm)
		}
		if got := notModified(c, etag); got != tc.want {
			t.Fatalf("If-None-Match %q -> %v; want %v", tc.inm, got, tc.want)
		}
		if w.Header().Get("ETag") != etag {
			t.Fatalf("ETag header not set for %q", tc.inm)
		}
	}
}
