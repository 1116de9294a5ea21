// Package handlers exposes the discovery API over HTTP.
//
// Handlers are transport-thin: they validate input, call application
// services, and translate results and sentinel errors into HTTP responses
// (including conditional and idempotent responses).
package handlers

import (
	"context"
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/tbourn/go-discovery-backend/internal/domain"
	"github.com/tbourn/go-discovery-backend/internal/services"
	"github.com/tbourn/go-discovery-backend/internal/utils"
)

//
// Service contracts (context-aware)
//

// DiscoveryService answers searches, category detail views and suggestions.
type DiscoveryService interface {
	Search(ctx context.Context, userID, query string) (*services.SearchResult, error)
	Category(ctx context.Context, userID string, category domain.Category, query string) (*services.CategoryResult, error)
	Suggest(ctx context.Context, userID, query string, limit int) []string
	Popular(category domain.Category) ([]string, error)
}

// HistoryService manages a user's recent searches.
type HistoryService interface {
	Entries(ctx context.Context, userID string) ([]domain.SearchEntry, error)
	Remove(ctx context.Context, userID, term string) error
	Clear(ctx context.Context, userID string) (int64, error)
}

// FavoriteService manages a user's saved items.
type FavoriteService interface {
	Add(ctx context.Context, userID string, category domain.Category, item domain.RecommendationItem) (*domain.Favorite, bool, error)
	Get(ctx context.Context, userID, id string) (*domain.Favorite, error)
	ListPage(ctx context.Context, userID string, category domain.Category, page, pageSize int) ([]domain.Favorite, int64, error)
	Remove(ctx context.Context, userID, id string) error
}

//
// Handler wiring
//

// DefaultIdempotencyTTL is used when Handlers.IdempotencyTTL is unset.
const DefaultIdempotencyTTL = 24 * time.Hour

// Handlers groups the HTTP endpoints. It depends on abstract service
// interfaces to keep transport concerns separate from business logic.
type Handlers struct {
	discovery DiscoveryService
	history   HistoryService
	favorites FavoriteService

	// IdempotencyTTL bounds how long a POST /favorites key is replayed.
	IdempotencyTTL time.Duration
}

// New constructs Handlers bound to the given services.
func New(discovery DiscoveryService, history HistoryService, favorites FavoriteService) *Handlers {
	return &Handlers{
		discovery:      discovery,
		history:        history,
		favorites:      favorites,
		IdempotencyTTL: DefaultIdempotencyTTL,
	}
}

// userID extracts the authenticated user id from Gin context (set by upstream
// middleware). If absent, it falls back to "X-User-ID" header (tests use it),
// and finally to "demo-user". It never touches c.Request if it's nil.
func userID(c *gin.Context) string {
	if v, ok := c.Get("userID"); ok {
		if s, ok := v.(string); ok && s != "" {
			return s
		}
	}
	if c != nil && c.Request != nil {
		if h := strings.TrimSpace(c.GetHeader("X-User-ID")); h != "" {
			return h
		}
	}
	return "demo-user"
}

// Pagination carries pagination metadata for list responses.
type Pagination struct {
	Page       int   `json:"page"`
	PageSize   int   `json:"page_size"`
	Total      int64 `json:"total"`
	TotalPages int   `json:"total_pages"`
	HasNext    bool  `json:"has_next"`
}

func newPagination(page, pageSize int, total int64) Pagination {
	pages := utils.TotalPages(total, pageSize)
	return Pagination{
		Page:       page,
		PageSize:   pageSize,
		Total:      total,
		TotalPages: pages,
		HasNext:    page < pages,
	}
}

// clampPagination parses and bounds page and page_size query params to sane
// defaults and limits, returning (page, pageSize).
func clampPagination(c *gin.Context) (page, pageSize int) {
	const (
		defaultPage     = 1
		defaultPageSize = 20
		maxPageSize     = 100
	)
	page = utils.AtoiDefault(c.Query("page"), defaultPage)
	if page < 1 {
		page = 1
	}
	pageSize = utils.Clamp(utils.AtoiDefault(c.Query("page_size"), defaultPageSize), 1, maxPageSize)
	return
}

// failService maps service sentinels to status and code. Anything
// unrecognized is a 500 carrying fallbackCode.
func failService(c *gin.Context, err error, fallbackCode string) {
	switch {
	case errors.Is(err, services.ErrEmptyQuery):
		fail(c, http.StatusBadRequest, ErrCodeEmptyQuery, "query required")
	case errors.Is(err, services.ErrQueryTooLong):
		fail(c, http.StatusBadRequest, ErrCodeQueryTooLong, err.Error())
	case errors.Is(err, services.ErrInvalidCategory):
		fail(c, http.StatusBadRequest, ErrCodeInvalidCategory, "category must be one of: artists, celebrities, media, fashion")
	case errors.Is(err, services.ErrInvalidFavorite):
		fail(c, http.StatusBadRequest, ErrCodeBadRequest, err.Error())
	case errors.Is(err, services.ErrHistoryNotFound):
		fail(c, http.StatusNotFound, ErrCodeNotFound, "history entry not found")
	case errors.Is(err, services.ErrFavoriteNotFound):
		fail(c, http.StatusNotFound, ErrCodeNotFound, "favorite not found")
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		failCause(c, http.StatusServiceUnavailable, ErrCodeUnavailable, "request canceled", err)
	default:
		failCause(c, http.StatusInternalServerError, fallbackCode, "internal error", err)
	}
}
