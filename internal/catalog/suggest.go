package catalog

import (
	"sort"
	"strings"

	"github.com/lithammer/fuzzysearch/fuzzy"

	"github.com/tbourn/go-discovery-backend/internal/domain"
)

// DefaultSuggestLimit caps Suggest.
const DefaultSuggestLimit = 5

// suggestOrder is the order popular terms are offered in.
var suggestOrder = []domain.Category{
	domain.CategoryArtists,
	domain.CategoryMedia,
	domain.CategoryFashion,
	domain.CategoryCelebrities,
}

// Popular returns the popular terms of category, or of every category when
// category is empty.
func (c *Catalog) Popular(category domain.Category) []string {
	if category != "" {
		return append([]string(nil), c.popular[category]...)
	}
	var out []string
	for _, cat := range suggestOrder {
		out = append(out, c.popular[cat]...)
	}
	return out
}

// Suggest proposes search terms for a partial query from the popular terms
// followed by the caller's history. Terms containing the query (or
// contained in it) come first, then fuzzy subsequence matches ranked by
// distance. Terms are de-duplicated ignoring case and width; at most limit
// are returned (DefaultSuggestLimit when limit <= 0).
func (c *Catalog) Suggest(query string, history []string, limit int) []string {
	q := Normalize(query)
	if q == "" {
		return nil
	}
	if limit <= 0 {
		limit = DefaultSuggestLimit
	}

	vocab := c.vocabulary(history)
	out := make([]string, 0, limit)
	seen := make(map[string]struct{}, limit)
	add := func(term string) bool {
		n := Normalize(term)
		if _, dup := seen[n]; dup {
			return false
		}
		seen[n] = struct{}{}
		out = append(out, term)
		return len(out) >= limit
	}

	for _, term := range vocab {
		n := Normalize(term)
		if strings.Contains(n, q) || strings.Contains(q, n) {
			if add(term) {
				return out
			}
		}
	}

	ranks := fuzzy.RankFindNormalizedFold(q, vocab)
	sort.Stable(ranks)
	for _, r := range ranks {
		if add(r.Target) {
			break
		}
	}
	return out
}

// vocabulary lists popular terms then history, skipping blanks and repeats.
func (c *Catalog) vocabulary(history []string) []string {
	all := append(c.Popular(""), history...)
	out := make([]string, 0, len(all))
	seen := make(map[string]struct{}, len(all))
	for _, t := range all {
		n := Normalize(t)
		if n == "" {
			continue
		}
		if _, dup := seen[n]; dup {
			continue
		}
		seen[n] = struct{}{}
		out = append(out, t)
	}
	return out
}
