package expand

import (
	"strings"

	"github.com/cloudflare/ahocorasick"

	"github.com/tbourn/go-discovery-backend/internal/domain"
)

// inferOrder is the precedence used when text hits several categories.
var inferOrder = []domain.Category{
	domain.CategoryArtists,
	domain.CategoryMedia,
	domain.CategoryCelebrities,
	domain.CategoryFashion,
}

type categoryMatcher struct {
	m        *ahocorasick.Matcher
	category []domain.Category // dictionary index -> category
}

var inferMatcher = newCategoryMatcher()

func newCategoryMatcher() *categoryMatcher {
	var dict []string
	var cats []domain.Category
	for _, c := range inferOrder {
		for _, kw := range categoryKeywords[c] {
			dict = append(dict, strings.ToLower(kw))
			cats = append(cats, c)
		}
	}
	return &categoryMatcher{m: ahocorasick.NewStringMatcher(dict), category: cats}
}

// InferCategory guesses the category of free text from category keywords
// appearing anywhere in it (case-insensitive). When keywords of several
// categories occur, artists beat media, media beats celebrities and
// celebrities beat fashion.
func InferCategory(text string) (domain.Category, bool) {
	if strings.TrimSpace(text) == "" {
		return "", false
	}
	hits := inferMatcher.m.MatchThreadSafe([]byte(strings.ToLower(text)))
	if len(hits) == 0 {
		return "", false
	}
	found := make(map[domain.Category]bool, len(inferOrder))
	for _, i := range hits {
		found[inferMatcher.category[i]] = true
	}
	for _, c := range inferOrder {
		if found[c] {
			return c, true
		}
	}
	return "", false
}
