// Discovery HTTP handlers.
//
// This file exposes the read side of the API:
//   - GET /search?q=                     (diversified results for all categories)
//   - GET /categories/{category}?q=      (detail list for one category)
//   - GET /suggestions?q=&limit=         (typeahead)
//   - GET /popular?category=             (popular search terms)
package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/tbourn/go-discovery-backend/internal/domain"
	"github.com/tbourn/go-discovery-backend/internal/utils"
)

//
// DTOs
//

// SearchResponse is the body of GET /search.
type SearchResponse struct {
	Query string `json:"query" example:"King Gnu"`
	// Data maps each category to its diversified, ranked items.
	Data     domain.RecommendationsData `json:"data" swaggertype:"object"`
	Matched  bool                       `json:"matched"`
	Cached   bool                       `json:"cached"`
	Fallback bool                       `json:"fallback"`
}

// CategoryResponse is the body of GET /categories/{category}.
type CategoryResponse struct {
	Query    string                      `json:"query" example:"King Gnu"`
	Category domain.Category             `json:"category" example:"artists"`
	Items    []domain.RecommendationItem `json:"items"`
	// Related previews the other categories.
	Related  domain.RecommendationsData `json:"related" swaggertype:"object"`
	Cached   bool                       `json:"cached"`
	Fallback bool                       `json:"fallback"`
}

// SuggestionsResponse is the body of GET /suggestions and GET /popular.
type SuggestionsResponse struct {
	Suggestions []string `json:"suggestions"`
}

const maxSuggestLimit = 50

//
// Handlers
//

// Search godoc
// @ID          search
// @Summary     Search recommendations
// @Description Returns diversified, deduplicated and ranked items for every category.
// @Description The user's recent searches and favorites personalize the order.
// @Tags        Discovery
// @Produce     json
//
// @Param       X-User-ID  header  string  false "User ID (demo header)"  example(user123)
// @Param       q          query   string  true  "Search query"           example(King Gnu)
//
// @Success     200  {object}  handlers.SearchResponse
// @Failure     400  {object}  handlers.ErrorResponse  "Bad request"
// @Failure     500  {object}  handlers.ErrorResponse  "Internal error"
// @Router      /search [get]
func (h *Handlers) Search(c *gin.Context) {
	res, err := h.discovery.Search(c.Request.Context(), userID(c), c.Query("q"))
	if err != nil {
		failService(c, err, ErrCodeSearchFailed)
		return
	}
	okCached(c, res.Cached, SearchResponse{
		Query:    res.Query,
		Data:     res.Data,
		Matched:  res.Matched,
		Cached:   res.Cached,
		Fallback: res.Fallback,
	})
}

// Category godoc
// @ID          categoryDetail
// @Summary     Category detail view
// @Description Returns a longer diversified list for one category plus a preview of the others.
// @Tags        Discovery
// @Produce     json
//
// @Param       X-User-ID  header  string  false "User ID (demo header)"  example(user123)
// @Param       category   path    string  true  "Category"  Enums(artists, celebrities, media, fashion)
// @Param       q          query   string  true  "Search query"  example(King Gnu)
//
// @Success     200  {object}  handlers.CategoryResponse
// @Failure     400  {object}  handlers.ErrorResponse  "Bad request"
// @Failure     500  {object}  handlers.ErrorResponse  "Internal error"
// @Router      /categories/{category} [get]
func (h *Handlers) Category(c *gin.Context) {
	cat := domain.Category(c.Param("category"))
	res, err := h.discovery.Category(c.Request.Context(), userID(c), cat, c.Query("q"))
	if err != nil {
		failService(c, err, ErrCodeSearchFailed)
		return
	}
	okCached(c, res.Cached, CategoryResponse{
		Query:    res.Query,
		Category: res.Category,
		Items:    nonNilItems(res.Items),
		Related:  res.Related,
		Cached:   res.Cached,
		Fallback: res.Fallback,
	})
}

// Suggestions godoc
// @ID          suggestions
// @Summary     Search suggestions
// @Description Completes a partial query from popular terms and the user's history.
// @Description A blank query returns the popular terms.
// @Tags        Discovery
// @Produce     json
//
// @Param       X-User-ID  header  string  false "User ID (demo header)"  example(user123)
// @Param       q          query   string  false "Partial query"          example(米津)
// @Param       limit      query   int     false "Max suggestions"        minimum(1) maximum(50) default(8)
//
// @Success     200  {object}  handlers.SuggestionsResponse
// @Router      /suggestions [get]
func (h *Handlers) Suggestions(c *gin.Context) {
	limit := 0
	if raw := c.Query("limit"); raw != "" {
		limit = utils.Clamp(utils.AtoiDefault(raw, 0), 0, maxSuggestLimit)
	}
	out := h.discovery.Suggest(c.Request.Context(), userID(c), c.Query("q"), limit)
	ok(c, http.StatusOK, SuggestionsResponse{Suggestions: nonNilStrings(out)})
}

// Popular godoc
// @ID          popular
// @Summary     Popular search terms
// @Tags        Discovery
// @Produce     json
//
// @Param       category  query  string  false "Restrict to one category"  Enums(artists, celebrities, media, fashion)
//
// @Success     200  {object}  handlers.SuggestionsResponse
// @Failure     400  {object}  handlers.ErrorResponse  "Bad request"
// @Router      /popular [get]
func (h *Handlers) Popular(c *gin.Context) {
	out, err := h.discovery.Popular(domain.Category(c.Query("category")))
	if err != nil {
		failService(c, err, ErrCodeListFailed)
		return
	}
	ok(c, http.StatusOK, SuggestionsResponse{Suggestions: nonNilStrings(out)})
}

func nonNilItems(items []domain.RecommendationItem) []domain.RecommendationItem {
	if items == nil {
		return []domain.RecommendationItem{}
	}
	return items
}

func nonNilStrings(s []string) []string {
	if s == nil {
		return []string{}
	}
	return s
}
