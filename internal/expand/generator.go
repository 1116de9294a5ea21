// Package expand tops up short candidate pools with synthetic items derived
// from the query and from related genre/style keywords, and guesses item
// categories from their text.
//
// Randomness is injected through the Rand interface so callers can pin a
// seed. A Generator is safe for concurrent use.
package expand

import (
	"math/rand/v2"
	"net/url"
	"strings"
	"sync"
	"unicode/utf8"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"

	"github.com/tbourn/go-discovery-backend/internal/domain"
	"github.com/tbourn/go-discovery-backend/internal/search"
)

// DefaultTarget is the per-category pool size Expand aims for.
const DefaultTarget = 12

// Generated item constants.
const (
	PlaceholderImage = "/placeholder.svg"
	officialURLBase  = "https://example.com/"
	featuresPerItem  = 3
)

// Rand is the subset of *rand.Rand the generator needs.
type Rand interface {
	IntN(n int) int
}

type globalRand struct{}

func (globalRand) IntN(n int) int { return rand.IntN(n) }

// Generator synthesizes placeholder recommendation items.
type Generator struct {
	mu    sync.Mutex
	rnd   Rand
	upper cases.Caser
}

// NewGenerator returns a Generator drawing from r. A nil r uses the
// process-wide source.
func NewGenerator(r Rand) *Generator {
	if r == nil {
		r = globalRand{}
	}
	return &Generator{rnd: r, upper: cases.Upper(language.Und)}
}

// NewSeededGenerator returns a deterministic Generator.
func NewSeededGenerator(seed uint64) *Generator {
	return NewGenerator(rand.New(rand.NewPCG(seed, seed^0x9e3779b97f4a7c15)))
}

// NewEntropyGenerator returns a Generator backed by the process-wide source.
func NewEntropyGenerator() *Generator { return NewGenerator(nil) }

func (g *Generator) pick(n int) int {
	if n <= 1 {
		return 0
	}
	return g.rnd.IntN(n)
}

// Generate builds count synthetic items for category from the tokens of
// query. Each item combines a random base name with a random query token,
// three random feature templates (repeats allowed) and a random reason
// template mentioning the token. A query without tokens or an unknown
// category yields nil.
func (g *Generator) Generate(query string, category domain.Category, count int) []domain.RecommendationItem {
	if count <= 0 {
		return nil
	}
	tokens := search.Tokenize(query)
	if len(tokens) == 0 {
		return nil
	}
	names, ok := baseNames[category]
	if !ok {
		return nil
	}
	features := featureTemplates[category]
	reasons := reasonTemplates[category]

	g.mu.Lock()
	defer g.mu.Unlock()

	out := make([]domain.RecommendationItem, 0, count)
	for i := 0; i < count; i++ {
		base := names[g.pick(len(names))]
		kw := tokens[g.pick(len(tokens))]

		feats := make([]string, featuresPerItem)
		for j := range feats {
			feats[j] = features[g.pick(len(features))]
		}
		reason := strings.Replace(reasons[g.pick(len(reasons))], keywordPlaceholder, kw, 1)

		name := base + " " + g.upperFirst(kw)
		out = append(out, domain.RecommendationItem{
			Name:        name,
			Reason:      reason,
			Features:    feats,
			ImageURL:    PlaceholderImage,
			OfficialURL: officialURLBase + EscapeComponent(name),
		})
	}
	return out
}

// componentUnescaper restores the marks QueryEscape encodes but a URI
// component keeps literal, and turns its "+" back into %20.
var componentUnescaper = strings.NewReplacer(
	"+", "%20",
	"%21", "!",
	"%27", "'",
	"%28", "(",
	"%29", ")",
	"%2A", "*",
)

// EscapeComponent escapes s as a single URI component: everything except
// letters, digits and -_.!~*'() is percent-encoded, so "R&B" becomes "R%26B".
func EscapeComponent(s string) string {
	return componentUnescaper.Replace(url.QueryEscape(s))
}

func (g *Generator) upperFirst(s string) string {
	r, size := utf8.DecodeRuneInString(s)
	if r == utf8.RuneError {
		return s
	}
	return g.upper.String(s[:size]) + s[size:]
}

// Expand tops items up to target using keywords related to query. Without
// related keywords the query itself seeds the new items. Each related
// keyword contributes an equal share (rounded up) until the target is met.
// Lists already at or above target are returned as a copy.
func (g *Generator) Expand(items []domain.RecommendationItem, query string, category domain.Category, target int) []domain.RecommendationItem {
	out := domain.CloneItems(items)
	if len(out) >= target {
		return out
	}
	related := RelatedKeywords(query, DefaultMaxKeywords)
	if len(related) == 0 {
		return append(out, g.Generate(query, category, target-len(out))...)
	}

	perKeyword := (target - len(out) + len(related) - 1) / len(related)
	for _, kw := range related {
		if len(out) >= target {
			break
		}
		out = append(out, g.Generate(kw, category, min(perKeyword, target-len(out)))...)
	}
	return out
}

// ExpandDataset tops items up to target with items generated straight from
// query, without consulting related keywords.
func (g *Generator) ExpandDataset(items []domain.RecommendationItem, query string, category domain.Category, target int) []domain.RecommendationItem {
	out := domain.CloneItems(items)
	if len(out) >= target {
		return out
	}
	return append(out, g.Generate(query, category, target-len(out))...)
}

// EnhanceResults applies ExpandDataset to every category of data.
func (g *Generator) EnhanceResults(data domain.RecommendationsData, query string, target int) domain.RecommendationsData {
	out := make(domain.RecommendationsData, len(data))
	for c, items := range data {
		out[c] = g.ExpandDataset(items, query, c, target)
	}
	return out
}

// ExpandWithDiversity spreads items over all four categories by inferring
// each item's category (falling back to the query's own category, or media),
// then expands the query's category to target and every other category to
// target/2.
func (g *Generator) ExpandWithDiversity(items []domain.RecommendationItem, query string, target int) domain.RecommendationsData {
	primary, ok := InferCategory(query)
	if !ok {
		primary = domain.CategoryMedia
	}

	buckets := domain.NewRecommendationsData()
	for _, it := range items {
		c, ok := InferCategory(strings.ToLower(it.SearchableText()))
		if !ok {
			c = primary
		}
		buckets[c] = append(buckets[c], it.Clone())
	}

	for _, c := range inferOrder {
		want := target / 2
		if c == primary {
			want = target
		}
		if len(buckets[c]) < want {
			buckets[c] = g.Expand(buckets[c], query, c, want)
		}
	}
	return buckets
}
