// Favorites HTTP handlers.
//
//   - GET    /favorites        (paginated, weak ETag, optional ?category=)
//   - POST   /favorites        (save an item; Idempotency-Key aware)
//   - DELETE /favorites/{id}
//
// Idempotency:
// If the client supplies an Idempotency-Key header and a previous successful
// save exists for (user, "favorites", key), the handler returns the stored
// favorite with the original status and sets `Idempotency-Replayed: true`.
package handlers

import (
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/tbourn/go-discovery-backend/internal/domain"
	"github.com/tbourn/go-discovery-backend/internal/http/middleware"
	"github.com/tbourn/go-discovery-backend/internal/repo"
	"github.com/tbourn/go-discovery-backend/internal/services"
)

// favoritesScope is the idempotency scope of POST /favorites.
const favoritesScope = "favorites"

//
// DTOs
//

// AddFavoriteRequest is the JSON payload for saving an item.
type AddFavoriteRequest struct {
	Category string                    `json:"category" binding:"required" example:"artists"`
	Item     domain.RecommendationItem `json:"item"`
}

// ListFavoritesResponse wraps a page of favorites and pagination information.
type ListFavoritesResponse struct {
	Favorites  []domain.Favorite `json:"favorites"`
	Pagination Pagination        `json:"pagination"`
}

// favoritesDB returns the database behind the concrete service, or nil for
// other implementations (ETag and idempotency are then skipped).
func (h *Handlers) favoritesDB() *gorm.DB {
	if svc, ok := h.favorites.(*services.FavoriteService); ok {
		return svc.DB
	}
	return nil
}

//
// Handlers
//

// ListFavorites godoc
// @ID          listFavorites
// @Summary     List favorites (paginated)
// @Description Returns a page of the user's favorites. Supports weak ETag via If-None-Match and may return 304.
// @Tags        Favorites
// @Produce     json
//
// @Param       X-User-ID      header  string  false "User ID (demo header)"       example(user123)
// @Param       If-None-Match  header  string  false "Return 304 if ETag matches"  example(W/\"abc123\")
// @Param       category       query   string  false "Filter by category"          Enums(artists, celebrities, media, fashion)
// @Param       page           query   int     false "Page number"                 minimum(1) default(1)
// @Param       page_size      query   int     false "Items per page"              minimum(1) maximum(100) default(20)
//
// @Success     200  {object} handlers.ListFavoritesResponse
// @Header      200  {string} ETag  "Weak ETag for current result"
// @Success     304  {string} string "Not Modified"
// @Failure     400  {object} handlers.ErrorResponse "Bad request"
// @Failure     500  {object} handlers.ErrorResponse "Internal error"
// @Router      /favorites [get]
func (h *Handlers) ListFavorites(c *gin.Context) {
	ctx := c.Request.Context()
	uid := userID(c)
	page, pageSize := clampPagination(c)
	category := domain.Category(strings.TrimSpace(c.Query("category")))

	// ETag pre-check (best effort).
	if db := h.favoritesDB(); db != nil {
		count, maxTS, err := repo.FavoritesStats(ctx, db, uid)
		if err == nil {
			var ts int64
			if maxTS != nil {
				ts = maxTS.UnixNano()
			}
			if notModified(c, weakETag("favorites", uid, category, page, pageSize, count, ts)) {
				return
			}
		}
	}

	items, total, err := h.favorites.ListPage(ctx, uid, category, page, pageSize)
	if err != nil {
		failService(c, err, ErrCodeListFailed)
		return
	}
	if items == nil {
		items = []domain.Favorite{}
	}
	ok(c, http.StatusOK, ListFavoritesResponse{
		Favorites:  items,
		Pagination: newPagination(page, pageSize, total),
	})
}

// AddFavorite godoc
// @ID          addFavorite
// @Summary     Save a favorite
// @Description Saves an item under a category. Saving the same name twice refreshes the stored copy.
// @Description Supports idempotency via the Idempotency-Key header (same key → same result).
// @Tags        Favorites
// @Accept      json
// @Produce     json
//
// @Param       X-User-ID        header  string  false "User ID (demo header)"  example(user123)
// @Param       Idempotency-Key  header  string  false "Idempotency key for safe retries (UUID recommended)"  example(7a8d9f4c-1b2a-4c3d-8e9f-0123456789ab)
// @Param       body             body    handlers.AddFavoriteRequest  true  "Favorite payload"
//
// @Success     201  {object}  domain.Favorite  "Created"
// @Success     200  {object}  domain.Favorite  "Existing favorite refreshed"
// @Failure     400  {object}  handlers.ErrorResponse  "Bad request"
// @Failure     500  {object}  handlers.ErrorResponse  "Internal error"
// @Router      /favorites [post]
func (h *Handlers) AddFavorite(c *gin.Context) {
	ctx := c.Request.Context()

	var req AddFavoriteRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		fail(c, http.StatusBadRequest, ErrCodeBadRequest, "category and item required")
		return
	}
	uid := userID(c)
	db := h.favoritesDB()

	// Idempotency (replay path).
	idemKey, _ := middleware.GetIdempotencyKey(c)
	if idemKey != "" && db != nil {
		if rec, err := repo.GetIdempotency(ctx, db, uid, favoritesScope, idemKey, time.Now().UTC()); err == nil {
			if prev, err := h.favorites.Get(ctx, uid, rec.ResourceID); err == nil {
				c.Header("Idempotency-Replayed", "true")
				ok(c, rec.Status, prev)
				return
			}
		}
	}

	fav, created, err := h.favorites.Add(ctx, uid, domain.Category(req.Category), req.Item)
	if err != nil {
		failService(c, err, ErrCodeCreateFailed)
		return
	}
	status := http.StatusOK
	if created {
		status = http.StatusCreated
	}

	// Idempotency (store path), best effort.
	if idemKey != "" && db != nil {
		ttl := h.IdempotencyTTL
		if ttl <= 0 {
			ttl = DefaultIdempotencyTTL
		}
		if _, err := repo.CreateIdempotency(ctx, db, uid, favoritesScope, idemKey, fav.ID, status, ttl); err != nil {
			middleware.LoggerFrom(c).Warn().Err(err).Msg("store idempotency key")
		}
	}

	ok(c, status, fav)
}

// DeleteFavorite godoc
// @ID          deleteFavorite
// @Summary     Remove a favorite
// @Tags        Favorites
//
// @Param       X-User-ID  header  string  false "User ID (demo header)"  example(user123)
// @Param       id         path    string  true  "Favorite ID (UUID)"     format(uuid)
//
// @Success     204  {string} string "No Content"
// @Failure     400  {object} handlers.ErrorResponse "Bad request"
// @Failure     404  {object} handlers.ErrorResponse "Favorite not found"
// @Failure     500  {object} handlers.ErrorResponse "Internal error"
// @Router      /favorites/{id} [delete]
func (h *Handlers) DeleteFavorite(c *gin.Context) {
	id := c.Param("id")
	if _, err := uuid.Parse(id); err != nil {
		fail(c, http.StatusBadRequest, ErrCodeBadRequest, "favorite id must be a UUID")
		return
	}
	if err := h.favorites.Remove(c.Request.Context(), userID(c), id); err != nil {
		failService(c, err, ErrCodeDeleteFailed)
		return
	}
	noContent(c)
}
