// Package ranking orders recommendation items by query relevance, search
// history and (optionally) embedding similarity to the query and user context.
//
// Every ranking is a stable sort over a copy of the input: equal scores keep
// their relative order and the caller's slice is never reordered.
package ranking

import (
	"sort"
	"strings"

	"github.com/tbourn/go-discovery-backend/internal/domain"
	"github.com/tbourn/go-discovery-backend/internal/search"
)

// Relevance score weights.
const (
	ScoreNameExact    = 100
	ScoreNameContains = 50
	ScoreTextContains = 25
	ScoreOccurrence   = 5
	ScoreFeature      = 15
)

// Score is the keyword relevance of item for the given (already tokenized)
// query tokens. Per token the name scores exact > substring > anywhere in the
// item text; every occurrence of any token adds a small bonus, and tokens
// found in the features add a feature bonus.
func Score(item domain.RecommendationItem, tokens []string) int {
	if len(tokens) == 0 {
		return 0
	}
	text := strings.ToLower(item.SearchableText())
	name := strings.ToLower(item.Name)

	score := 0
	for _, tok := range tokens {
		switch {
		case name == tok:
			score += ScoreNameExact
		case strings.Contains(name, tok):
			score += ScoreNameContains
		case strings.Contains(text, tok):
			score += ScoreTextContains
		}
	}

	score += search.CountOccurrences(text, tokens) * ScoreOccurrence

	if len(item.Features) > 0 {
		features := strings.ToLower(strings.Join(item.Features, " "))
		for _, tok := range tokens {
			if strings.Contains(features, tok) {
				score += ScoreFeature
			}
		}
	}
	return score
}

// RankByRelevance returns items sorted by descending Score.
func RankByRelevance(items []domain.RecommendationItem, tokens []string) []domain.RecommendationItem {
	out := domain.CloneItems(items)
	if len(tokens) == 0 || len(out) < 2 {
		return out
	}
	scores := make([]int, len(out))
	for i := range out {
		scores[i] = Score(out[i], tokens)
	}
	sortByScore(out, func(i int) float64 { return float64(scores[i]) })
	return out
}

// sortByScore stable-sorts items by descending score, where score(i) is the
// score of the item originally at index i.
func sortByScore(items []domain.RecommendationItem, score func(i int) float64) {
	idx := make([]int, len(items))
	for i := range idx {
		idx[i] = i
	}
	sort.SliceStable(idx, func(a, b int) bool { return score(idx[a]) > score(idx[b]) })

	sorted := make([]domain.RecommendationItem, len(items))
	for pos, i := range idx {
		sorted[pos] = items[i]
	}
	copy(items, sorted)
}
