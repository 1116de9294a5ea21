// Search history HTTP handlers.
//
//   - GET    /history          (newest first, weak ETag)
//   - DELETE /history          (clear)
//   - DELETE /history/{term}   (remove one exact term)
package handlers

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"

	"github.com/tbourn/go-discovery-backend/internal/domain"
	"github.com/tbourn/go-discovery-backend/internal/repo"
	"github.com/tbourn/go-discovery-backend/internal/services"
)

// HistoryResponse lists the user's recent searches, newest first.
type HistoryResponse struct {
	Terms   []string             `json:"terms"`
	Entries []domain.SearchEntry `json:"entries"`
}

// ClearHistoryResponse reports how many entries were removed.
type ClearHistoryResponse struct {
	Deleted int64 `json:"deleted"`
}

func (h *Handlers) historyDB() *gorm.DB {
	if svc, ok := h.history.(*services.HistoryService); ok {
		return svc.DB
	}
	return nil
}

// ListHistory godoc
// @ID          listHistory
// @Summary     Recent searches
// @Tags        History
// @Produce     json
//
// @Param       X-User-ID      header  string  false "User ID (demo header)"       example(user123)
// @Param       If-None-Match  header  string  false "Return 304 if ETag matches"  example(W/\"abc123\")
//
// @Success     200  {object}  handlers.HistoryResponse
// @Header      200  {string}  ETag  "Weak ETag for current result"
// @Success     304  {string}  string "Not Modified"
// @Failure     500  {object}  handlers.ErrorResponse  "Internal error"
// @Router      /history [get]
func (h *Handlers) ListHistory(c *gin.Context) {
	ctx := c.Request.Context()
	uid := userID(c)

	if db := h.historyDB(); db != nil {
		if count, newest, err := repo.HistoryStats(ctx, db, uid); err == nil {
			var ts int64
			if newest != nil {
				ts = newest.UnixNano()
			}
			if notModified(c, weakETag("history", uid, count, ts)) {
				return
			}
		}
	}

	entries, err := h.history.Entries(ctx, uid)
	if err != nil {
		failService(c, err, ErrCodeListFailed)
		return
	}
	terms := make([]string, 0, len(entries))
	for _, e := range entries {
		terms = append(terms, e.Term)
	}
	if entries == nil {
		entries = []domain.SearchEntry{}
	}
	ok(c, http.StatusOK, HistoryResponse{Terms: terms, Entries: entries})
}

// ClearHistory godoc
// @ID          clearHistory
// @Summary     Clear search history
// @Tags        History
// @Produce     json
//
// @Param       X-User-ID  header  string  false "User ID (demo header)"  example(user123)
//
// @Success     200  {object}  handlers.ClearHistoryResponse
// @Failure     500  {object}  handlers.ErrorResponse  "Internal error"
// @Router      /history [delete]
func (h *Handlers) ClearHistory(c *gin.Context) {
	n, err := h.history.Clear(c.Request.Context(), userID(c))
	if err != nil {
		failService(c, err, ErrCodeDeleteFailed)
		return
	}
	ok(c, http.StatusOK, ClearHistoryResponse{Deleted: n})
}

// DeleteHistoryTerm godoc
// @ID          deleteHistoryTerm
// @Summary     Remove one search term
// @Description Removal is exact: the term must match the stored spelling.
// @Tags        History
//
// @Param       X-User-ID  header  string  false "User ID (demo header)"  example(user123)
// @Param       term       path    string  true  "Stored term"            example(King Gnu)
//
// @Success     204  {string}  string  "No Content"
// @Failure     400  {object}  handlers.ErrorResponse  "Bad request"
// @Failure     404  {object}  handlers.ErrorResponse  "Term not found"
// @Failure     500  {object}  handlers.ErrorResponse  "Internal error"
// @Router      /history/{term} [delete]
func (h *Handlers) DeleteHistoryTerm(c *gin.Context) {
	term := c.Param("term")
	if strings.TrimSpace(term) == "" {
		fail(c, http.StatusBadRequest, ErrCodeBadRequest, "term required")
		return
	}
	if err := h.history.Remove(c.Request.Context(), userID(c), term); err != nil {
		failService(c, err, ErrCodeDeleteFailed)
		return
	}
	noContent(c)
}
