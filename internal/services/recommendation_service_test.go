package services

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/tbourn/go-discovery-backend/internal/domain"
	"github.com/tbourn/go-discovery-backend/internal/pipeline"
)

func TestSearch_Validation(t *testing.T) {
	svc := newRecommendationService(t, newTestDB(t))
	ctx := context.Background()

	if _, err := svc.Search(ctx, "u1", "   "); !errors.Is(err, ErrEmptyQuery) {
		t.Fatalf("expected ErrEmptyQuery, got %v", err)
	}
	long := strings.Repeat("あ", DefaultMaxQueryRunes+1)
	if _, err := svc.Search(ctx, "u1", long); !errors.Is(err, ErrQueryTooLong) {
		t.Fatalf("expected ErrQueryTooLong, got %v", err)
	}
	// exactly at the limit is fine
	if _, err := svc.Search(ctx, "u1", long[:len(long)-len("あ")]); err != nil {
		t.Fatalf("query at the limit rejected: %v", err)
	}
}

func TestSearch_ShapeAndInvariants(t *testing.T) {
	svc := newRecommendationService(t, newTestDB(t))

	res, err := svc.Search(context.Background(), "u1", "  米津玄師 ")
	if err != nil {
		t.Fatalf("Search: %v", err)
	}
	if res.Query != "米津玄師" || !res.Matched || res.Cached || res.Fallback {
		t.Fatalf("unexpected flags: %+v", res)
	}

	capN := svc.Pipeline.Options().CategoryCap
	seen := map[string]domain.Category{}
	for _, c := range domain.Categories() {
		items, ok := res.Data[c]
		if !ok || items == nil {
			t.Fatalf("category %s missing", c)
		}
		if len(items) > capN {
			t.Fatalf("%s has %d items, cap %d", c, len(items), capN)
		}
		for _, it := range items {
			if prev, dup := seen[it.Name]; dup {
				t.Fatalf("%q appears in %s and %s", it.Name, prev, c)
			}
			seen[it.Name] = c
		}
	}
	if res.Stats.Generated == 0 {
		t.Fatalf("expected expansion to add items, stats=%+v", res.Stats)
	}
}

func TestSearch_RecordsHistory(t *testing.T) {
	db := newTestDB(t)
	svc := newRecommendationService(t, db)
	ctx := context.Background()

	for _, q := range []string{"BTS", "米津玄師", "bts"} {
		if _, err := svc.Search(ctx, "u1", q); err != nil {
			t.Fatalf("Search(%q): %v", q, err)
		}
	}
	got, err := svc.History.List(ctx, "u1")
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	if len(got) != 2 || got[0] != "bts" || got[1] != "米津玄師" {
		t.Fatalf("history = %v", got)
	}

	// anonymous searches are not remembered
	if _, err := svc.Search(ctx, "", "King Gnu"); err != nil {
		t.Fatalf("anonymous Search: %v", err)
	}
	if h, _ := svc.History.List(ctx, ""); len(h) != 0 {
		t.Fatalf("anonymous history stored: %v", h)
	}
}

func TestSearch_CacheHit(t *testing.T) {
	svc := newRecommendationService(t, newTestDB(t))
	ctx := context.Background()

	first, err := svc.Search(ctx, "", "テイラー・スウィフト")
	if err != nil {
		t.Fatalf("Search: %v", err)
	}
	second, err := svc.Search(ctx, "", "テイラー・スウィフト")
	if err != nil {
		t.Fatalf("Search: %v", err)
	}
	if first.Cached || !second.Cached {
		t.Fatalf("cache flags: first=%v second=%v", first.Cached, second.Cached)
	}
	for _, c := range domain.Categories() {
		if len(first.Data[c]) != len(second.Data[c]) {
			t.Fatalf("cached %s differs", c)
		}
	}

	// mutating a returned result must not poison the cache
	second.Data[domain.CategoryArtists] = nil
	third, _ := svc.Search(ctx, "", "テイラー・スウィフト")
	if len(third.Data[domain.CategoryArtists]) == 0 {
		t.Fatalf("cache entry was mutated through a result")
	}
}

func TestSearch_RepeatSearchHitsCache(t *testing.T) {
	db := newTestDB(t)
	svc := newRecommendationService(t, db)
	ctx := context.Background()

	search := func(q string) *SearchResult {
		t.Helper()
		res, err := svc.Search(ctx, "u1", q)
		if err != nil {
			t.Fatalf("Search(%q): %v", q, err)
		}
		return res
	}

	if search("BTS").Cached {
		t.Fatalf("first search cannot be cached")
	}
	// recording BTS must not change the context BTS itself is keyed under
	if !search("BTS").Cached {
		t.Fatalf("second identical search should hit the cache")
	}
	if !search(" ｂｔｓ ").Cached {
		t.Fatalf("normalized variant should hit the cache")
	}

	// another search changes the context of BTS once
	search("米津玄師")
	if search("BTS").Cached {
		t.Fatalf("new history entry should change the cache key")
	}
	if !search("BTS").Cached {
		t.Fatalf("expected a hit once the history is stable")
	}

	if _, _, err := svc.Favorites.Add(ctx, "u1", domain.CategoryArtists, domain.RecommendationItem{Name: "TWICE"}); err != nil {
		t.Fatalf("Add favorite: %v", err)
	}
	if search("BTS").Cached {
		t.Fatalf("new favorite should invalidate the cached result")
	}
}

func TestWithoutTerm(t *testing.T) {
	got := withoutTerm([]string{"bts", "米津玄師", "ＢＴＳ", "twice"}, " BTS ")
	if strings.Join(got, ",") != "米津玄師,twice" {
		t.Fatalf("withoutTerm = %v", got)
	}
	if got := withoutTerm(nil, "bts"); got == nil || len(got) != 0 {
		t.Fatalf("withoutTerm(nil) = %#v", got)
	}
}

func TestSearch_FallbackOnCanceledContext(t *testing.T) {
	svc := newRecommendationService(t, newTestDB(t))
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	res, err := svc.Search(ctx, "u1", "米津玄師")
	if err != nil {
		t.Fatalf("Search: %v", err)
	}
	if !res.Fallback {
		t.Fatalf("expected fallback result")
	}
	capN := svc.Pipeline.Options().CategoryCap
	def := svc.Catalog.Default()
	for _, c := range domain.Categories() {
		if want := min(capN, len(def[c])); len(res.Data[c]) != want {
			t.Fatalf("%s: %d items, want %d", c, len(res.Data[c]), want)
		}
	}
}

func TestSearch_StorageFailureIsNotFatal(t *testing.T) {
	svc := newRecommendationService(t, newBareDB(t))

	res, err := svc.Search(context.Background(), "u1", "BTS")
	if err != nil {
		t.Fatalf("Search should survive storage errors, got %v", err)
	}
	if res.Fallback || len(res.Data) == 0 {
		t.Fatalf("unexpected result: %+v", res)
	}
}

func TestCategory(t *testing.T) {
	svc := newRecommendationService(t, newTestDB(t))
	ctx := context.Background()

	if _, err := svc.Category(ctx, "u1", "books", "BTS"); !errors.Is(err, ErrInvalidCategory) {
		t.Fatalf("expected ErrInvalidCategory, got %v", err)
	}
	if _, err := svc.Category(ctx, "u1", domain.CategoryMedia, " "); !errors.Is(err, ErrEmptyQuery) {
		t.Fatalf("expected ErrEmptyQuery, got %v", err)
	}

	res, err := svc.Category(ctx, "u1", "Artists", "BTS")
	if err != nil {
		t.Fatalf("Category: %v", err)
	}
	if res.Category != domain.CategoryArtists {
		t.Fatalf("category not normalized: %q", res.Category)
	}
	if n := len(res.Items); n == 0 || n > pipeline.DefaultDetailCap {
		t.Fatalf("unexpected item count %d", n)
	}
	if _, ok := res.Related[domain.CategoryArtists]; ok {
		t.Fatalf("related must not include the current category")
	}
	for c, items := range res.Related {
		if len(items) > 6 {
			t.Fatalf("related %s has %d items", c, len(items))
		}
	}
	if res.Cached {
		t.Fatalf("first call cannot be cached")
	}
	again, err := svc.Category(ctx, "u1", domain.CategoryArtists, "BTS")
	if err != nil {
		t.Fatalf("Category: %v", err)
	}
	if !again.Cached || len(again.Items) != len(res.Items) {
		t.Fatalf("expected cached detail list")
	}
}

func TestSuggestAndPopular(t *testing.T) {
	db := newTestDB(t)
	svc := newRecommendationService(t, db)
	ctx := context.Background()

	if got := svc.Suggest(ctx, "u1", "", 3); len(got) != 3 {
		t.Fatalf("blank query should return popular terms, got %v", got)
	}
	if got := svc.Suggest(ctx, "u1", "zzzzzz", 0); got == nil || len(got) != 0 {
		t.Fatalf("expected empty non-nil slice, got %#v", got)
	}

	if err := svc.History.Record(ctx, "u1", "米津玄師 ライブ"); err != nil {
		t.Fatalf("Record: %v", err)
	}
	got := svc.Suggest(ctx, "u1", "米津", 0)
	found := false
	for _, s := range got {
		if s == "米津玄師 ライブ" {
			found = true
		}
	}
	if !found {
		t.Fatalf("history term missing from suggestions: %v", got)
	}

	if _, err := svc.Popular("books"); !errors.Is(err, ErrInvalidCategory) {
		t.Fatalf("expected ErrInvalidCategory, got %v", err)
	}
	media, err := svc.Popular(domain.CategoryMedia)
	if err != nil || len(media) == 0 {
		t.Fatalf("Popular(media) = %v, %v", media, err)
	}
	all, _ := svc.Popular("")
	if len(all) <= len(media) {
		t.Fatalf("all popular terms should include every category")
	}
}

func TestCacheKey(t *testing.T) {
	uc := domain.UserContext{RecentSearches: []string{"a", "b"}}
	k1 := cacheKey("search", " ＢＴＳ ", uc)
	k2 := cacheKey("search", "bts", uc)
	if k1 != k2 {
		t.Fatalf("normalized queries should share a key: %q vs %q", k1, k2)
	}
	if !strings.HasPrefix(k1, "search|bts|") {
		t.Fatalf("unexpected key layout: %q", k1)
	}
	swapped := cacheKey("search", "bts", domain.UserContext{RecentSearches: []string{"b", "a"}})
	if swapped == k1 {
		t.Fatalf("history order must change the key")
	}
	fav := cacheKey("search", "bts", domain.UserContext{
		RecentSearches: []string{"a", "b"},
		Favorites:      []domain.RecommendationItem{{Name: "x"}},
	})
	if fav == k1 {
		t.Fatalf("favorites must change the key")
	}
}
