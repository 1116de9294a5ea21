// Package similarity scores how alike two recommendation items are.
//
// Item similarity is a weighted blend of name edit distance, word overlap,
// pairwise feature similarity and reason similarity, with a short-circuit for
// near-identical names. Every function is total, pure and symmetric in its
// arguments, and returns a value in [0,1].
package similarity

import (
	"strings"
	"unicode/utf8"

	"github.com/agext/levenshtein"

	"github.com/tbourn/go-discovery-backend/internal/domain"
	"github.com/tbourn/go-discovery-backend/internal/search"
)

// NameShortCircuit is the name similarity above which the name score alone
// decides item similarity.
const NameShortCircuit = 0.8

// Blend weights for the composite score.
const (
	WeightName     = 0.5
	WeightWords    = 0.2
	WeightFeatures = 0.2
	WeightReason   = 0.1
)

// StringSimilarity is the normalized edit-distance similarity of a and b:
// 1 - levenshtein(a, b) / max(len(a), len(b)), lengths in runes.
// Either string empty yields 0 and equal strings yield 1.
func StringSimilarity(a, b string) float64 {
	if a == "" || b == "" {
		return 0
	}
	if a == b {
		return 1
	}
	maxLen := max(utf8.RuneCountInString(a), utf8.RuneCountInString(b))
	if maxLen == 0 {
		return 1
	}
	d := levenshtein.Distance(a, b, nil)
	return 1 - float64(d)/float64(maxLen)
}

// WordOverlap is the Jaccard similarity of the token sets of a and b.
func WordOverlap(a, b string) float64 {
	wa, wb := search.TokenSet(a), search.TokenSet(b)
	if len(wa) == 0 || len(wb) == 0 {
		return 0
	}
	inter := 0
	for w := range wa {
		if _, ok := wb[w]; ok {
			inter++
		}
	}
	return float64(inter) / float64(len(wa)+len(wb)-inter)
}

// FeatureSimilarity is the mean StringSimilarity over every pair drawn from
// fa x fb, compared lower-cased. Either list empty yields 0.
func FeatureSimilarity(fa, fb []string) float64 {
	if len(fa) == 0 || len(fb) == 0 {
		return 0
	}
	lb := make([]string, len(fb))
	for i, f := range fb {
		lb[i] = strings.ToLower(f)
	}
	total := 0.0
	for _, f1 := range fa {
		l1 := strings.ToLower(f1)
		for _, l2 := range lb {
			total += StringSimilarity(l1, l2)
		}
	}
	return total / float64(len(fa)*len(fb))
}

// Items returns the similarity of two recommendation items.
func Items(a, b domain.RecommendationItem) float64 {
	if less(b, a) {
		a, b = b, a
	}
	nameA, nameB := strings.ToLower(a.Name), strings.ToLower(b.Name)
	if nameA == nameB {
		return 1
	}
	name := StringSimilarity(nameA, nameB)
	if name > NameShortCircuit {
		return name
	}

	words := WordOverlap(strings.ToLower(a.SearchableText()), strings.ToLower(b.SearchableText()))
	features := FeatureSimilarity(a.Features, b.Features)
	reason := StringSimilarity(a.Reason, b.Reason)

	return name*WeightName + words*WeightWords + features*WeightFeatures + reason*WeightReason
}

// less is a total order on the fields Items reads. Scoring always walks the
// pair in this order so Items(a, b) == Items(b, a) bit for bit.
func less(a, b domain.RecommendationItem) bool {
	if a.Name != b.Name {
		return a.Name < b.Name
	}
	if a.Reason != b.Reason {
		return a.Reason < b.Reason
	}
	if len(a.Features) != len(b.Features) {
		return len(a.Features) < len(b.Features)
	}
	for i := range a.Features {
		if a.Features[i] != b.Features[i] {
			return a.Features[i] < b.Features[i]
		}
	}
	return false
}
