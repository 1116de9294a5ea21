package ranking

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tbourn/go-discovery-backend/internal/domain"
)

func names(items []domain.RecommendationItem) []string {
	out := make([]string, len(items))
	for i, it := range items {
		out[i] = it.Name
	}
	return out
}

func TestScore(t *testing.T) {
	assert.Equal(t, 0, Score(domain.RecommendationItem{Name: "Adele"}, nil))

	// exact name 100 + one occurrence in "adele  " 5
	assert.Equal(t, 105, Score(domain.RecommendationItem{Name: "Adele"}, []string{"adele"}))
	// substring 50 + one occurrence 5
	assert.Equal(t, 55, Score(domain.RecommendationItem{Name: "Adele Fan Club"}, []string{"adele"}))
	// reason only: 25 + 5
	assert.Equal(t, 30, Score(domain.RecommendationItem{Name: "X", Reason: "like Adele"}, []string{"adele"}))
	// features: 25 + 5 + 15
	assert.Equal(t, 45, Score(domain.RecommendationItem{Name: "X", Features: []string{"Adele"}}, []string{"adele"}))
	assert.Equal(t, 0, Score(domain.RecommendationItem{Name: "BTS"}, []string{"adele"}))
}

func TestRankByRelevance_AdeleScenario(t *testing.T) {
	items := []domain.RecommendationItem{{Name: "Adele"}, {Name: "BTS"}, {Name: "Adele Fan Club"}}
	out := RankByRelevance(items, []string{"adele"})
	assert.Equal(t, []string{"Adele", "Adele Fan Club", "BTS"}, names(out))
	assert.Equal(t, []string{"Adele", "BTS", "Adele Fan Club"}, names(items), "input order untouched")
}

func TestRankByRelevance_StableAndEmptyTokens(t *testing.T) {
	items := []domain.RecommendationItem{{Name: "c"}, {Name: "a"}, {Name: "b"}}
	assert.Equal(t, []string{"c", "a", "b"}, names(RankByRelevance(items, nil)))
	assert.Equal(t, []string{"c", "a", "b"}, names(RankByRelevance(items, []string{"zzz"})), "ties keep input order")
	assert.Nil(t, RankByRelevance(nil, []string{"a"}))
}

func TestHistoryBoost(t *testing.T) {
	item := domain.RecommendationItem{Name: "King Gnu", Reason: "rock band", Features: []string{"J-ROCK"}}
	assert.Equal(t, 0.0, HistoryBoost(item, nil, 0.3))
	// bag: rock, band, jazz -> 2 of 3 matched
	assert.InDelta(t, 0.2, HistoryBoost(item, []string{"rock band", "jazz"}, 0.3), 1e-12)
	// duplicates in the bag count individually
	assert.InDelta(t, 0.3, HistoryBoost(item, []string{"rock", "rock"}, 0.3), 1e-12)
}

func TestPersonalize(t *testing.T) {
	items := []domain.RecommendationItem{
		{Name: "BTS", Reason: "kpop group"},
		{Name: "King Gnu", Reason: "rock band"},
		{Name: "Aimer", Reason: "rock singer"},
		{Name: "Ado", Reason: "utaite"},
	}

	out := Personalize(items, nil, 0.3)
	assert.Equal(t, names(items), names(out), "empty history is a passthrough")

	out = Personalize(items, []string{"rock band"}, 0)
	assert.Equal(t, []string{"King Gnu", "Aimer", "BTS", "Ado"}, names(out))

	out = Personalize(items, []string{"!!!"}, 0.3)
	assert.Equal(t, names(items), names(out), "history without tokens is a passthrough")
}

func TestSortByVectorRelevance(t *testing.T) {
	items := []domain.RecommendationItem{
		{Name: "UNIQLO", Reason: "ファッション ブランド"},
		{Name: "Aimer", Reason: "歌手 アーティスト"},
		{Name: "君の名は。", Reason: "アニメ 映画"},
	}
	out := SortByVectorRelevance(items, "音楽", nil)
	require.Len(t, out, 3)
	assert.Equal(t, "Aimer", out[0].Name)
	assert.Equal(t, "UNIQLO", out[2].Name)

	out = SortByVectorRelevance(items, "映画", nil)
	assert.Equal(t, "君の名は。", out[0].Name)
}

func TestContextAwareRank(t *testing.T) {
	items := []domain.RecommendationItem{
		{Name: "UNIQLO", Reason: "ファッション ブランド"},
		{Name: "Aimer", Reason: "歌手"},
		{Name: "君の名は。", Reason: "アニメ 映画"},
	}

	// unknown query embeds to the uniform vector, so the context decides
	uc := domain.UserContext{Favorites: []domain.RecommendationItem{{Name: "x", Features: []string{"服", "ブランド"}}}}
	out := ContextAwareRank(items, "zzz", uc, nil)
	assert.Equal(t, "UNIQLO", out[0].Name)

	uc = domain.UserContext{RecentSearches: []string{"アニメ", "映画"}}
	out = ContextAwareRank(items, "zzz", uc, nil)
	assert.Equal(t, "君の名は。", out[0].Name)

	// no context: pure query relevance
	out = ContextAwareRank(items, "歌手", domain.UserContext{}, nil)
	assert.Equal(t, "Aimer", out[0].Name)
}
