// Package search holds the text primitives shared by every ranking and
// similarity component, plus a small in-memory index over the seed catalog:
//
//   - Tokenize: lower-case, strip punctuation (keeping ASCII word characters,
//     Hiragana, Katakana and Kanji), split on whitespace, drop bilingual
//     stop-words, and fall back to the unfiltered tokens when only
//     stop-words were present
//   - Normalize: the canonical form of a query (width fold, lower-case,
//     single spaces) used for catalog keys, cache keys and generator seeds
//   - CountOccurrences: literal keyword occurrence counting
//   - Index: Jaccard top-k lookup over catalog documents (index.go)
//
// No logging in the library. All functions are pure and safe for concurrent use.
package search

import (
	"regexp"
	"strings"

	"golang.org/x/text/width"
)

// nonWordRE matches every rune the tokenizer does not keep.
var nonWordRE = regexp.MustCompile(`[^\w\s\x{3040}-\x{309F}\x{30A0}-\x{30FF}\x{4E00}-\x{9FAF}]`)

// stopwords is the fixed Japanese + English stop list.
var stopwords = func() map[string]struct{} {
	words := []string{
		// Japanese particles and auxiliaries
		"の", "に", "は", "を", "た", "が", "で", "て", "と", "し", "れ", "さ",
		"ある", "いる", "も", "する", "から", "な", "こと", "として", "い", "や", "れる",
		// English articles, conjunctions, auxiliaries and prepositions
		"a", "an", "the", "and", "or", "but", "is", "are", "was", "were", "be", "been", "being",
		"in", "on", "at", "to", "for", "with", "by", "about", "against", "between", "into", "through",
	}
	m := make(map[string]struct{}, len(words))
	for _, w := range words {
		m[w] = struct{}{}
	}
	return m
}()

// IsStopword reports whether tok is on the stop list. tok must already be lower-case.
func IsStopword(tok string) bool {
	_, ok := stopwords[tok]
	return ok
}

// Tokenize splits free text into normalized keyword tokens. Order and
// duplicates are preserved. If every token is a stop-word the unfiltered
// tokens are returned, so only blank input yields an empty result.
func Tokenize(text string) []string {
	cleaned := nonWordRE.ReplaceAllString(strings.ToLower(text), " ")
	tokens := strings.Fields(cleaned)
	if len(tokens) == 0 {
		return nil
	}
	filtered := make([]string, 0, len(tokens))
	for _, t := range tokens {
		if !IsStopword(t) {
			filtered = append(filtered, t)
		}
	}
	if len(filtered) == 0 {
		return tokens
	}
	return filtered
}

// Normalize folds full-width ASCII to half-width, lower-cases and collapses
// whitespace.
func Normalize(s string) string {
	return strings.Join(strings.Fields(strings.ToLower(width.Fold.String(s))), " ")
}

// TokenSet returns the distinct tokens of text.
func TokenSet(text string) map[string]struct{} {
	toks := Tokenize(text)
	out := make(map[string]struct{}, len(toks))
	for _, t := range toks {
		out[t] = struct{}{}
	}
	return out
}

// CountOccurrences sums, over every non-blank token, the number of
// non-overlapping occurrences of that token in the lower-cased text.
func CountOccurrences(text string, tokens []string) int {
	if text == "" || len(tokens) == 0 {
		return 0
	}
	lower := strings.ToLower(text)
	n := 0
	for _, t := range tokens {
		if strings.TrimSpace(t) == "" {
			continue
		}
		n += strings.Count(lower, strings.ToLower(t))
	}
	return n
}
