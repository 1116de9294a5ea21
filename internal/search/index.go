package search

// Index is a deterministic, concurrency-safe in-memory index over short
// catalog documents (one per seed entry). It backs the fuzzy fallback of the
// catalog lookup when no key matches the query directly.
//
//   - Immutable after construction (safe for concurrent use)
//   - Functional options (Option pattern)
//   - Same tokenizer as the ranking code, with optional English stemming
//   - Deterministic scoring and sorting (stable order for ties)
//
// Scoring uses Jaccard similarity between the query token set and each
// document's token set: score = |Q ∩ D| / |Q ∪ D|.

import (
	"sort"
	"strings"
	"unicode/utf8"

	snowballeng "github.com/kljensen/snowball/english"
)

// Document is a single indexed entry. Key identifies the catalog entry the
// text was derived from and is returned untouched in results.
type Document struct {
	Key  string
	Text string
}

// Result is a ranked document with its similarity score.
type Result struct {
	Key     string
	Snippet string
	Score   float64
}

// Index is the minimal interface implemented by all search indices.
type Index interface {
	TopK(query string, k int) []Result
	Len() int
}

// ----------------------------------------------------------------------------
// Options

type Option func(*config)

type config struct {
	minRunes int
	stem     bool
	maxDocs  int
	minScore float64
}

func defaultConfig() config {
	return config{
		minRunes: 1,
		stem:     false,
		maxDocs:  0,
		minScore: 0,
	}
}

// WithMinRunes skips documents shorter than n runes after trimming.
func WithMinRunes(n int) Option {
	return func(c *config) {
		if n >= 0 {
			c.minRunes = n
		}
	}
}

// WithStemming reduces Latin-script tokens to their English stem on both
// sides, so "bands" matches "band". Japanese tokens pass through unchanged.
func WithStemming() Option {
	return func(c *config) { c.stem = true }
}

func WithMaxDocs(n int) Option {
	return func(c *config) {
		if n > 0 {
			c.maxDocs = n
		}
	}
}

// WithMinScore drops results scoring below s. Values outside [0,1] are ignored.
func WithMinScore(s float64) Option {
	return func(c *config) {
		if s >= 0 && s <= 1 {
			c.minScore = s
		}
	}
}

// ----------------------------------------------------------------------------
// Implementation

type doc struct {
	key    string
	text   string
	tokens map[string]struct{}
}

type index struct {
	cfg  config
	docs []doc
}

// NewIndex builds an Index over docs. Blank documents, documents shorter than
// the configured minimum and documents without tokens are skipped.
func NewIndex(docs []Document, opts ...Option) Index {
	cfg := defaultConfig()
	for _, o := range opts {
		o(&cfg)
	}
	out := make([]doc, 0, len(docs))
	for _, d := range docs {
		t := strings.Join(strings.Fields(d.Text), " ")
		if t == "" {
			continue
		}
		if cfg.minRunes > 0 && utf8.RuneCountInString(t) < cfg.minRunes {
			continue
		}
		toks := cfg.tokenSet(t)
		if len(toks) == 0 {
			continue
		}
		out = append(out, doc{key: d.Key, text: t, tokens: toks})
		if cfg.maxDocs > 0 && len(out) >= cfg.maxDocs {
			break
		}
	}
	return &index{cfg: cfg, docs: out}
}

func (i *index) Len() int { return len(i.docs) }

// TopK returns up to k best-matching documents by Jaccard similarity.
// Ties are broken by shorter text, then lexical key.
func (i *index) TopK(q string, k int) []Result {
	if len(i.docs) == 0 || strings.TrimSpace(q) == "" {
		return nil
	}
	if k <= 0 {
		k = 3
	}
	qTokens := i.cfg.tokenSet(q)
	if len(qTokens) == 0 {
		return nil
	}

	type scored struct {
		doc      *doc
		score    float64
		lenRunes int
	}

	buf := make([]scored, 0, min(k*4, len(i.docs)))
	for n := range i.docs {
		d := &i.docs[n]
		over := overlap(qTokens, d.tokens)
		if over == 0 {
			continue
		}
		score := float64(over) / float64(len(qTokens)+len(d.tokens)-over)
		if score <= 0 || score < i.cfg.minScore {
			continue
		}
		buf = append(buf, scored{doc: d, score: score, lenRunes: utf8.RuneCountInString(d.text)})
	}
	if len(buf) == 0 {
		return nil
	}

	sort.SliceStable(buf, func(a, b int) bool {
		if buf[a].score != buf[b].score {
			return buf[a].score > buf[b].score
		}
		if buf[a].lenRunes != buf[b].lenRunes {
			return buf[a].lenRunes < buf[b].lenRunes
		}
		return buf[a].doc.key < buf[b].doc.key
	})

	k = min(k, len(buf))
	out := make([]Result, k)
	for n := 0; n < k; n++ {
		out[n] = Result{Key: buf[n].doc.key, Snippet: buf[n].doc.text, Score: buf[n].score}
	}
	return out
}

// ----------------------------------------------------------------------------
// Helpers

func (c config) tokenSet(s string) map[string]struct{} {
	toks := Tokenize(s)
	if len(toks) == 0 {
		return nil
	}
	out := make(map[string]struct{}, len(toks))
	for _, t := range toks {
		if c.stem && isASCII(t) {
			t = snowballeng.Stem(t, false)
		}
		out[t] = struct{}{}
	}
	return out
}

func isASCII(s string) bool {
	for i := 0; i < len(s); i++ {
		if s[i] >= utf8.RuneSelf {
			return false
		}
	}
	return true
}

func overlap(a, b map[string]struct{}) int {
	if len(a) == 0 || len(b) == 0 {
		return 0
	}
	if len(a) > len(b) {
		a, b = b, a
	}
	n := 0
	for k := range a {
		if _, ok := b[k]; ok {
			n++
		}
	}
	return n
}
