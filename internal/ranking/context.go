package ranking

import (
	"strings"

	"github.com/tbourn/go-discovery-backend/internal/domain"
	"github.com/tbourn/go-discovery-backend/internal/similarity"
)

// Blend of query and user-context relevance in ContextAwareRank.
const (
	QueryWeight   = 0.7
	ContextWeight = 0.3
)

// SortByVectorRelevance orders items by embedding similarity to the query.
// A nil embedder uses the built-in table.
func SortByVectorRelevance(items []domain.RecommendationItem, query string, e similarity.Embedder) []domain.RecommendationItem {
	if e == nil {
		e = similarity.DefaultEmbedder
	}
	out := domain.CloneItems(items)
	if len(out) < 2 {
		return out
	}
	q := e.Vector(query)
	scores := make([]float64, len(out))
	for i := range out {
		scores[i] = similarity.QueryItemRelevance(e, out[i], q)
	}
	sortByScore(out, func(i int) float64 { return scores[i] })
	return out
}

// ContextAwareRank orders items by 0.7*query relevance + 0.3*mean context
// relevance. Context vectors come from the joined recent searches and from
// the favorites' names and features; without either the context term is 0.
func ContextAwareRank(items []domain.RecommendationItem, query string, uc domain.UserContext, e similarity.Embedder) []domain.RecommendationItem {
	if e == nil {
		e = similarity.DefaultEmbedder
	}
	out := domain.CloneItems(items)
	if len(out) < 2 {
		return out
	}

	q := e.Vector(query)
	var ctxVecs [][]float64
	if len(uc.RecentSearches) > 0 {
		ctxVecs = append(ctxVecs, e.Vector(strings.Join(uc.RecentSearches, " ")))
	}
	if len(uc.Favorites) > 0 {
		ctxVecs = append(ctxVecs, e.Vector(similarity.FavoritesText(uc.Favorites)))
	}

	scores := make([]float64, len(out))
	for i := range out {
		ctx := 0.0
		if len(ctxVecs) > 0 {
			for _, v := range ctxVecs {
				ctx += similarity.QueryItemRelevance(e, out[i], v)
			}
			ctx /= float64(len(ctxVecs))
		}
		scores[i] = similarity.QueryItemRelevance(e, out[i], q)*QueryWeight + ctx*ContextWeight
	}
	sortByScore(out, func(i int) float64 { return scores[i] })
	return out
}
