// Package services – RecommendationService
//
// RecommendationService answers discovery searches. For every request it loads
// the user's context (recent searches and favorites), picks candidate pools
// from the catalog, and runs the engine pipeline over them. Results are cached
// per (query, user context) and the query is added to the user's history.
//
// Persistence failures while loading context or recording history never fail
// a search: the request proceeds without personalization. An engine failure
// answers with the catalog's default pools.
//
// Observability: public methods are OpenTelemetry-instrumented and every
// engine run is reported to Prometheus.
package services

import (
	"context"
	"hash/fnv"
	"strconv"
	"strings"
	"unicode/utf8"

	"github.com/rs/zerolog/log"
	"go.opentelemetry.io/otel/attribute"

	"github.com/tbourn/go-discovery-backend/internal/catalog"
	"github.com/tbourn/go-discovery-backend/internal/domain"
	"github.com/tbourn/go-discovery-backend/internal/observability"
	"github.com/tbourn/go-discovery-backend/internal/pipeline"
	"github.com/tbourn/go-discovery-backend/internal/search"
)

// Defaults for RecommendationService guards.
const (
	DefaultMaxQueryRunes    = 200
	DefaultContextFavorites = 50
)

// ResultCache stores engine output by request key. *cache.LRU satisfies it.
type ResultCache interface {
	Get(key string) (domain.RecommendationsData, bool)
	Add(key string, value domain.RecommendationsData)
}

// RecommendationService coordinates catalog lookup, the engine pipeline, the
// result cache and the user's stored context.
type RecommendationService struct {
	Catalog   *catalog.Catalog
	Pipeline  *pipeline.Pipeline
	History   *HistoryService
	Favorites *FavoriteService

	// Cache is optional; nil disables caching.
	Cache ResultCache

	// HistoryLimit caps the recent searches fed to personalization.
	HistoryLimit int
	// MaxQueryRunes rejects longer queries with ErrQueryTooLong.
	MaxQueryRunes int
	// ContextFavorites caps the favorites fed to context-aware ranking.
	ContextFavorites int
}

// SearchResult is the answer to one search.
type SearchResult struct {
	Query    string
	Data     domain.RecommendationsData
	Matched  bool // the query hit a curated catalog entry
	Cached   bool
	Fallback bool // engine failed; Data holds the default pools
	Stats    pipeline.Stats
}

// CategoryResult is the answer to one category detail request.
type CategoryResult struct {
	Query    string
	Category domain.Category
	Items    []domain.RecommendationItem
	Related  domain.RecommendationsData
	Cached   bool
	Fallback bool
	Stats    pipeline.Stats
}

// Search validates query and returns diversified, deduplicated and ranked
// recommendations for userID.
func (s *RecommendationService) Search(ctx context.Context, userID, query string) (*SearchResult, error) {
	ctx, span := observability.StartSpan(ctx, "recommendations", "Search", attribute.String("user.id", userID))
	defer span.End()

	query, err := s.validate(query)
	if err != nil {
		return nil, err
	}
	uc := s.userContext(ctx, userID, query)
	out := &SearchResult{Query: query}

	key := cacheKey("search", query, uc)
	if data, ok := s.cached(key); ok {
		out.Data, out.Cached = data, true
		span.SetAttributes(attribute.Bool("cache.hit", true))
		s.remember(ctx, userID, query)
		return out, nil
	}

	pools, matched := s.Catalog.Lookup(query)
	out.Matched = matched
	span.SetAttributes(attribute.Bool("catalog.matched", matched))

	res, err := s.Pipeline.Run(ctx, pipeline.Request{Query: query, Pools: pools, User: uc})
	if err != nil {
		log.Ctx(ctx).Warn().Err(err).Str("query", query).Msg("pipeline failed; serving defaults")
		observability.ObserveFallback(observability.KindSearch)
		out.Data, out.Fallback = s.defaults(), true
		return out, nil
	}
	observability.ObservePipeline(observability.PipelineRun{
		Kind:         observability.KindSearch,
		Duration:     res.Stats.Duration,
		Generated:    res.Stats.Generated,
		Dropped:      res.Stats.Dropped,
		CrossRemoved: res.Stats.CrossRemoved,
	})
	out.Data, out.Stats = res.Data, res.Stats
	s.store(key, res.Data)
	s.remember(ctx, userID, query)
	return out, nil
}

// Category returns the detail view of one category for query: a larger,
// diversified list plus a short preview of the other categories.
func (s *RecommendationService) Category(ctx context.Context, userID string, category domain.Category, query string) (*CategoryResult, error) {
	ctx, span := observability.StartSpan(ctx, "recommendations", "Category",
		attribute.String("user.id", userID),
		attribute.String("category", string(category)),
	)
	defer span.End()

	category, ok := domain.ParseCategory(string(category))
	if !ok {
		return nil, ErrInvalidCategory
	}
	query, err := s.validate(query)
	if err != nil {
		return nil, err
	}
	uc := s.userContext(ctx, userID, query)
	out := &CategoryResult{
		Query:    query,
		Category: category,
		Related:  s.Catalog.Related(query, category, catalog.DefaultRelatedLimit),
	}

	key := cacheKey("category:"+string(category), query, uc)
	if data, ok := s.cached(key); ok {
		out.Items, out.Cached = data[category], true
		return out, nil
	}

	pools, _ := s.Catalog.Lookup(query)
	extra := s.Catalog.Supplement(query)[category]
	items, st, err := s.Pipeline.RunCategory(ctx, category, pipeline.Request{Query: query, Pools: pools, User: uc}, extra)
	if err != nil {
		log.Ctx(ctx).Warn().Err(err).Str("query", query).Str("category", string(category)).Msg("pipeline failed; serving defaults")
		observability.ObserveFallback(observability.KindCategory)
		out.Items, out.Fallback = s.defaults()[category], true
		return out, nil
	}
	observability.ObservePipeline(observability.PipelineRun{
		Kind:         observability.KindCategory,
		Duration:     st.Duration,
		Generated:    st.Generated,
		Dropped:      st.Dropped,
		CrossRemoved: st.CrossRemoved,
	})
	out.Items, out.Stats = items, st
	s.store(key, domain.RecommendationsData{category: items})
	return out, nil
}

// Suggest returns search suggestions for a partial query, drawn from the
// popular terms and userID's own history. A blank query returns the popular
// terms.
func (s *RecommendationService) Suggest(ctx context.Context, userID, query string, limit int) []string {
	ctx, span := observability.StartSpan(ctx, "recommendations", "Suggest", attribute.String("user.id", userID))
	defer span.End()

	if limit <= 0 {
		limit = catalog.DefaultSuggestLimit
	}
	if strings.TrimSpace(query) == "" {
		p := s.Catalog.Popular("")
		return p[:min(limit, len(p))]
	}
	var history []string
	if s.History != nil {
		h, err := s.History.List(ctx, userID)
		if err != nil {
			log.Ctx(ctx).Warn().Err(err).Msg("load history for suggestions")
		}
		history = h
	}
	out := s.Catalog.Suggest(query, history, limit)
	if out == nil {
		out = []string{}
	}
	return out
}

// Popular returns the popular search terms of category, or of all
// categories when category is empty.
func (s *RecommendationService) Popular(category domain.Category) ([]string, error) {
	if category == "" {
		return s.Catalog.Popular(""), nil
	}
	c, ok := domain.ParseCategory(string(category))
	if !ok {
		return nil, ErrInvalidCategory
	}
	return s.Catalog.Popular(c), nil
}

func (s *RecommendationService) validate(query string) (string, error) {
	query = strings.TrimSpace(query)
	if query == "" {
		return "", ErrEmptyQuery
	}
	limit := s.MaxQueryRunes
	if limit <= 0 {
		limit = DefaultMaxQueryRunes
	}
	if utf8.RuneCountInString(query) > limit {
		return "", ErrQueryTooLong
	}
	return query, nil
}

// userContext loads recent searches other than query, and favorites.
// Failures are logged and leave the corresponding part empty.
func (s *RecommendationService) userContext(ctx context.Context, userID, query string) domain.UserContext {
	var uc domain.UserContext
	if s.History != nil {
		h, err := s.History.List(ctx, userID)
		if err != nil {
			log.Ctx(ctx).Warn().Err(err).Msg("load search history")
		}
		h = withoutTerm(h, query)
		if s.HistoryLimit > 0 && len(h) > s.HistoryLimit {
			h = h[:s.HistoryLimit]
		}
		uc.RecentSearches = h
	}
	if s.Favorites != nil {
		n := s.ContextFavorites
		if n <= 0 {
			n = DefaultContextFavorites
		}
		favs, err := s.Favorites.Items(ctx, userID, n)
		if err != nil {
			log.Ctx(ctx).Warn().Err(err).Msg("load favorites")
		}
		uc.Favorites = favs
	}
	return uc
}

// remember records query in userID's history; failures are only logged.
func (s *RecommendationService) remember(ctx context.Context, userID, query string) {
	if s.History == nil || userID == "" {
		return
	}
	if err := s.History.Record(ctx, userID, query); err != nil {
		log.Ctx(ctx).Warn().Err(err).Msg("record search history")
	}
}

// defaults returns the catalog default pools cut to the category cap.
func (s *RecommendationService) defaults() domain.RecommendationsData {
	limit := s.Pipeline.Options().CategoryCap
	data := s.Catalog.Default()
	for c, items := range data {
		data[c] = items[:min(limit, len(items))]
	}
	return data
}

func (s *RecommendationService) cached(key string) (domain.RecommendationsData, bool) {
	if s.Cache == nil {
		return nil, false
	}
	data, ok := s.Cache.Get(key)
	observability.ObserveCache(ok)
	if !ok {
		return nil, false
	}
	return data.Clone(), true
}

func (s *RecommendationService) store(key string, data domain.RecommendationsData) {
	if s.Cache != nil {
		s.Cache.Add(key, data.Clone())
	}
}

// withoutTerm drops the entries of history that normalize to query. A query
// is never part of its own context, so repeating a search reuses the cache
// entry of the first one.
func withoutTerm(history []string, query string) []string {
	q := search.Normalize(query)
	out := make([]string, 0, len(history))
	for _, t := range history {
		if search.Normalize(t) != q {
			out = append(out, t)
		}
	}
	return out
}

// cacheKey builds "kind|normalized query|context fingerprint". The
// fingerprint covers the history terms in order and the favorite names, so a
// user whose context changed misses the cache.
func cacheKey(kind, query string, uc domain.UserContext) string {
	h := fnv.New64a()
	for _, t := range uc.RecentSearches {
		h.Write([]byte(t))
		h.Write([]byte{0})
	}
	h.Write([]byte{1})
	for _, f := range uc.Favorites {
		h.Write([]byte(f.Name))
		h.Write([]byte{0})
	}
	var b strings.Builder
	b.WriteString(kind)
	b.WriteByte('|')
	b.WriteString(search.Normalize(query))
	b.WriteByte('|')
	b.WriteString(strconv.FormatUint(h.Sum64(), 16))
	return b.String()
}
