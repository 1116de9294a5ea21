// Package diversity removes near-duplicates within a result list and across
// categories.
//
// Three operations live here:
//
//   - FindDuplicateGroups clusters indices of near-identical items
//   - Diversify picks a bounded, redundancy-minimizing subset of one list
//   - RemoveCrossCategoryDuplicates keeps each near-duplicate in only one
//     category, preferring richer data and then category priority
//
// Similarity is pluggable through options and defaults to similarity.Items.
// Inputs are never mutated.
package diversity

import (
	"sort"

	"github.com/tbourn/go-discovery-backend/internal/domain"
	"github.com/tbourn/go-discovery-backend/internal/similarity"
)

// DefaultThreshold is the within-category duplicate threshold.
const DefaultThreshold = 0.7

// SimilarityFunc scores two items in [0,1].
type SimilarityFunc func(a, b domain.RecommendationItem) float64

// Groups maps a representative index to the ascending indices it absorbed.
// Representatives with no duplicates are absent.
type Groups map[int][]int

// Keys returns the representative indices in ascending order.
func (g Groups) Keys() []int {
	keys := make([]int, 0, len(g))
	for k := range g {
		keys = append(keys, k)
	}
	sort.Ints(keys)
	return keys
}

// IsKey reports whether i represents a group.
func (g Groups) IsKey(i int) bool {
	_, ok := g[i]
	return ok
}

// IsDuplicate reports whether i was absorbed into some group.
func (g Groups) IsDuplicate(i int) bool {
	for _, dups := range g {
		for _, d := range dups {
			if d == i {
				return true
			}
		}
	}
	return false
}

// DuplicateCount is the number of absorbed indices across all groups.
func (g Groups) DuplicateCount() int {
	n := 0
	for _, dups := range g {
		n += len(dups)
	}
	return n
}

// ----------------------------------------------------------------------------
// Options

type Option func(*options)

type options struct {
	sim        SimilarityFunc
	transitive bool
	observer   func(Removal)
}

func newOptions(opts []Option) options {
	o := options{sim: similarity.Items}
	for _, fn := range opts {
		fn(&o)
	}
	return o
}

// WithSimilarity replaces the item scorer. A nil func is ignored.
func WithSimilarity(fn SimilarityFunc) Option {
	return func(o *options) {
		if fn != nil {
			o.sim = fn
		}
	}
}

// WithTransitive groups by connected components instead of greedy
// claim-once scanning, which makes grouping independent of input order.
func WithTransitive() Option {
	return func(o *options) { o.transitive = true }
}

// ----------------------------------------------------------------------------
// Grouping

// FindDuplicateGroups compares every pair i < j and groups the indices whose
// similarity is at least threshold.
//
// By default j is claimed by the lowest i that matches it and is never
// reassigned, but a claimed index may still claim later indices itself, so
// chains of pairwise matches can end up split across groups depending on input
// order. WithTransitive switches to full connected components keyed by the
// lowest member.
//
// DuplicateCount never grows as threshold rises, but the number of groups is
// not monotone under claim-once grouping: raising the threshold can drop the
// match that let one key claim both members of a chain, so the chain splits
// into two groups.
func FindDuplicateGroups(items []domain.RecommendationItem, threshold float64, opts ...Option) Groups {
	o := newOptions(opts)
	if o.transitive {
		return transitiveGroups(items, threshold, o.sim)
	}

	groups := Groups{}
	claimed := make([]bool, len(items))
	for i := range items {
		var dups []int
		for j := i + 1; j < len(items); j++ {
			if claimed[j] {
				continue
			}
			if o.sim(items[i], items[j]) >= threshold {
				dups = append(dups, j)
				claimed[j] = true
			}
		}
		if len(dups) > 0 {
			groups[i] = dups
		}
	}
	return groups
}

func transitiveGroups(items []domain.RecommendationItem, threshold float64, sim SimilarityFunc) Groups {
	parent := make([]int, len(items))
	for i := range parent {
		parent[i] = i
	}
	find := func(x int) int {
		for parent[x] != x {
			parent[x] = parent[parent[x]]
			x = parent[x]
		}
		return x
	}
	for i := range items {
		for j := i + 1; j < len(items); j++ {
			if sim(items[i], items[j]) < threshold {
				continue
			}
			ri, rj := find(i), find(j)
			if ri == rj {
				continue
			}
			// root is always the lowest index of the component
			if ri < rj {
				parent[rj] = ri
			} else {
				parent[ri] = rj
			}
		}
	}

	groups := Groups{}
	for i := range items {
		if r := find(i); r != i {
			groups[r] = append(groups[r], i)
		}
	}
	return groups
}
