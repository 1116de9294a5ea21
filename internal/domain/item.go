// Package domain defines the data model shared by the discovery engine, the
// persistence layer and the HTTP transport: recommendation items, the fixed
// category buckets, per-request result maps, the read-only user context, and
// the GORM models for search history, favorites and idempotency records.
package domain

import (
	"sort"
	"strings"
)

// Category is one of the fixed buckets that partition recommendation items.
type Category string

const (
	CategoryArtists     Category = "artists"
	CategoryCelebrities Category = "celebrities"
	CategoryMedia       Category = "media"
	CategoryFashion     Category = "fashion"
)

// categoryOrder is the iteration order used wherever categories are walked.
var categoryOrder = []Category{CategoryArtists, CategoryCelebrities, CategoryMedia, CategoryFashion}

// Categories returns the known categories in their fixed iteration order.
func Categories() []Category {
	out := make([]Category, len(categoryOrder))
	copy(out, categoryOrder)
	return out
}

// ParseCategory maps a raw string (case-insensitive, trimmed) to a Category.
func ParseCategory(s string) (Category, bool) {
	c := Category(strings.ToLower(strings.TrimSpace(s)))
	for _, k := range categoryOrder {
		if k == c {
			return c, true
		}
	}
	return "", false
}

// Priority ranks categories for cross-category conflicts; lower wins.
// Unknown categories rank last.
func (c Category) Priority() int {
	switch c {
	case CategoryMedia:
		return 1
	case CategoryArtists:
		return 2
	case CategoryCelebrities:
		return 3
	case CategoryFashion:
		return 4
	default:
		return 999
	}
}

// APIData carries provider metadata (e.g. {"type":"tmdb","id":123}).
type APIData map[string]any

// RecommendationItem is the atomic unit flowing through the engine.
type RecommendationItem struct {
	Name        string   `json:"name"                 yaml:"name"         example:"King Gnu"`
	Reason      string   `json:"reason"               yaml:"reason"       example:"rock band"`
	Features    []string `json:"features"             yaml:"features"`
	ImageURL    string   `json:"imageUrl"             yaml:"image_url"    example:"/placeholder.svg"`
	OfficialURL string   `json:"officialUrl"          yaml:"official_url" example:"https://kinggnu.jp/"`
	APIData     APIData  `json:"apiData,omitempty"    yaml:"api_data,omitempty" swaggertype:"object"`
}

// SearchableText joins name, reason and features with single spaces.
func (it RecommendationItem) SearchableText() string {
	var b strings.Builder
	b.WriteString(it.Name)
	b.WriteByte(' ')
	b.WriteString(it.Reason)
	b.WriteByte(' ')
	b.WriteString(strings.Join(it.Features, " "))
	return b.String()
}

// HasAPIData reports whether the item carries non-empty provider metadata.
func (it RecommendationItem) HasAPIData() bool { return len(it.APIData) > 0 }

// Clone returns a deep copy; features and apiData are not shared.
func (it RecommendationItem) Clone() RecommendationItem {
	out := it
	if it.Features != nil {
		out.Features = append([]string(nil), it.Features...)
	}
	if it.APIData != nil {
		out.APIData = make(APIData, len(it.APIData))
		for k, v := range it.APIData {
			out.APIData[k] = v
		}
	}
	return out
}

// CloneItems deep-copies a slice of items. A nil input stays nil.
func CloneItems(items []RecommendationItem) []RecommendationItem {
	if items == nil {
		return nil
	}
	out := make([]RecommendationItem, len(items))
	for i, it := range items {
		out[i] = it.Clone()
	}
	return out
}

// RecommendationsData maps categories to ordered item lists.
type RecommendationsData map[Category][]RecommendationItem

// NewRecommendationsData returns a map with an empty list for every known category.
func NewRecommendationsData() RecommendationsData {
	d := make(RecommendationsData, len(categoryOrder))
	for _, c := range categoryOrder {
		d[c] = []RecommendationItem{}
	}
	return d
}

// Clone deep-copies every category list.
func (d RecommendationsData) Clone() RecommendationsData {
	out := make(RecommendationsData, len(d))
	for k, v := range d {
		out[k] = CloneItems(v)
	}
	return out
}

// Total counts items across all categories.
func (d RecommendationsData) Total() int {
	n := 0
	for _, v := range d {
		n += len(v)
	}
	return n
}

// Keys returns the categories present in d: known ones in fixed order first,
// then any others sorted lexically.
func (d RecommendationsData) Keys() []Category {
	out := make([]Category, 0, len(d))
	seen := make(map[Category]struct{}, len(d))
	for _, c := range categoryOrder {
		if _, ok := d[c]; ok {
			out = append(out, c)
			seen[c] = struct{}{}
		}
	}
	var extra []Category
	for c := range d {
		if _, ok := seen[c]; !ok {
			extra = append(extra, c)
		}
	}
	sort.Slice(extra, func(i, j int) bool { return extra[i] < extra[j] })
	return append(out, extra...)
}

// UserContext is the read-only personalization input for a request.
type UserContext struct {
	RecentSearches []string             `json:"recentSearches"`
	Favorites      []RecommendationItem `json:"favorites"`
}

// Empty reports whether the context carries no signal at all.
func (u UserContext) Empty() bool {
	return len(u.RecentSearches) == 0 && len(u.Favorites) == 0
}
