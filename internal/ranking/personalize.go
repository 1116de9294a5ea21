package ranking

import (
	"math"
	"strings"

	"github.com/tbourn/go-discovery-backend/internal/domain"
	"github.com/tbourn/go-discovery-backend/internal/search"
)

// DefaultMaxBoost caps the history boost.
const DefaultMaxBoost = 0.3

// HistoryBoost is the share of history tokens (duplicates counted) present in
// the item's own tokens, scaled to [0, maxBoost].
func HistoryBoost(item domain.RecommendationItem, history []string, maxBoost float64) float64 {
	return historyBoost(item, historyTokens(history), maxBoost)
}

func historyTokens(history []string) []string {
	var bag []string
	for _, term := range history {
		bag = append(bag, search.Tokenize(term)...)
	}
	return bag
}

func historyBoost(item domain.RecommendationItem, bag []string, maxBoost float64) float64 {
	if len(bag) == 0 {
		return 0
	}
	own := make(map[string]struct{})
	for _, t := range search.Tokenize(strings.ToLower(item.SearchableText())) {
		own[t] = struct{}{}
	}
	matched := 0
	for _, t := range bag {
		if _, ok := own[t]; ok {
			matched++
		}
	}
	return math.Min(float64(matched)/float64(len(bag)), 1) * maxBoost
}

// Personalize reorders items so the ones sharing more tokens with the recent
// searches come first. An empty history returns the items unchanged.
// maxBoost <= 0 uses DefaultMaxBoost.
func Personalize(items []domain.RecommendationItem, history []string, maxBoost float64) []domain.RecommendationItem {
	out := domain.CloneItems(items)
	if len(history) == 0 || len(out) < 2 {
		return out
	}
	if maxBoost <= 0 {
		maxBoost = DefaultMaxBoost
	}
	bag := historyTokens(history)
	if len(bag) == 0 {
		return out
	}
	boosts := make([]float64, len(out))
	for i := range out {
		boosts[i] = historyBoost(out[i], bag, maxBoost)
	}
	sortByScore(out, func(i int) float64 { return boosts[i] })
	return out
}
