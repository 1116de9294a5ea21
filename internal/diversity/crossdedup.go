package diversity

import "github.com/tbourn/go-discovery-backend/internal/domain"

// DefaultCrossThreshold is the cross-category duplicate threshold.
const DefaultCrossThreshold = 0.75

// Removal describes one item dropped by RemoveCrossCategoryDuplicates.
type Removal struct {
	Item       domain.RecommendationItem
	From       domain.Category
	KeptIn     domain.Category
	KeptName   string
	Similarity float64
}

// WithObserver registers fn to be called for every cross-category removal,
// in the order removals happen.
func WithObserver(fn func(Removal)) Option {
	return func(o *options) { o.observer = fn }
}

// RemoveCrossCategoryDuplicates makes sure no two categories hold items that
// are at least threshold-similar. Categories are visited pairwise in
// domain.RecommendationsData.Keys order and every conflict is resolved as soon
// as it is found, so later comparisons only see survivors.
//
// The survivor of a conflict is, in order of precedence:
//  1. the only one of the two carrying API data;
//  2. the one with more API data keys;
//  3. the one in the higher-priority category (the first category on ties).
func RemoveCrossCategoryDuplicates(data domain.RecommendationsData, threshold float64, opts ...Option) domain.RecommendationsData {
	o := newOptions(opts)
	out := data.Clone()
	cats := out.Keys()

	for ci := 0; ci < len(cats); ci++ {
		for cj := ci + 1; cj < len(cats); cj++ {
			c1, c2 := cats[ci], cats[cj]
			list1, list2 := out[c1], out[c2]

			for i := 0; i < len(list1); {
				removedFirst := false
				for j := 0; j < len(list2); {
					s := o.sim(list1[i], list2[j])
					if s < threshold {
						j++
						continue
					}
					if keepFirst(c1, c2, list1[i], list2[j]) {
						o.notify(Removal{Item: list2[j], From: c2, KeptIn: c1, KeptName: list1[i].Name, Similarity: s})
						list2 = removeAt(list2, j)
						continue
					}
					o.notify(Removal{Item: list1[i], From: c1, KeptIn: c2, KeptName: list2[j].Name, Similarity: s})
					list1 = removeAt(list1, i)
					removedFirst = true
					break
				}
				if !removedFirst {
					i++
				}
			}
			out[c1], out[c2] = list1, list2
		}
	}
	return out
}

func (o options) notify(r Removal) {
	if o.observer != nil {
		o.observer(r)
	}
}

// keepFirst reports whether item1 (in c1) survives a conflict with item2 (in c2).
func keepFirst(c1, c2 domain.Category, item1, item2 domain.RecommendationItem) bool {
	has1, has2 := item1.HasAPIData(), item2.HasAPIData()
	switch {
	case has1 && !has2:
		return true
	case !has1 && has2:
		return false
	case has1 && has2:
		if n1, n2 := len(item1.APIData), len(item2.APIData); n1 != n2 {
			return n1 > n2
		}
	}
	return c1.Priority() <= c2.Priority()
}

// removeAt deletes s[i] without touching the backing array of the input.
func removeAt(s []domain.RecommendationItem, i int) []domain.RecommendationItem {
	out := make([]domain.RecommendationItem, 0, len(s)-1)
	out = append(out, s[:i]...)
	return append(out, s[i+1:]...)
}
