package diversity

import "github.com/tbourn/go-discovery-backend/internal/domain"

// DefaultMaxItems is the per-category result cap.
const DefaultMaxItems = 12

// Diversify selects at most maxItems items, preferring one representative per
// duplicate group. Lists that already fit are returned as a copy in their
// original order.
//
// Selection runs in three passes, each stopping once maxItems is reached:
//  1. items that are neither a representative nor a duplicate, in order;
//  2. representatives in ascending index order, each consuming its whole
//     group so no duplicate of it is picked later;
//  3. anything not yet selected or consumed, in order.
func Diversify(items []domain.RecommendationItem, maxItems int, threshold float64, opts ...Option) []domain.RecommendationItem {
	if maxItems <= 0 {
		return []domain.RecommendationItem{}
	}
	if len(items) <= maxItems {
		return domain.CloneItems(items)
	}

	groups := FindDuplicateGroups(items, threshold, opts...)
	duplicate := make([]bool, len(items))
	for _, dups := range groups {
		for _, d := range dups {
			duplicate[d] = true
		}
	}

	selected := make([]bool, len(items))
	out := make([]domain.RecommendationItem, 0, maxItems)
	take := func(i int) {
		out = append(out, items[i].Clone())
		selected[i] = true
	}

	for i := 0; i < len(items) && len(out) < maxItems; i++ {
		if !groups.IsKey(i) && !duplicate[i] {
			take(i)
		}
	}

	for _, k := range groups.Keys() {
		if len(out) >= maxItems {
			break
		}
		if selected[k] {
			continue
		}
		take(k)
		for _, d := range groups[k] {
			selected[d] = true
		}
	}

	for i := 0; i < len(items) && len(out) < maxItems; i++ {
		if !selected[i] {
			take(i)
		}
	}
	return out
}
