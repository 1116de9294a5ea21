package similarity

import (
	"math"
	"strings"

	"github.com/tbourn/go-discovery-backend/internal/domain"
	"github.com/tbourn/go-discovery-backend/internal/search"
)

// Dimension of the built-in embedding table.
const Dimension = 4

// Embeddings is the built-in word table. Axes loosely correspond to music,
// film, entertainers and fashion.
var Embeddings = map[string][]float64{
	// music
	"音楽":      {1.0, 0.2, 0.1, 0.0},
	"アーティスト":  {0.9, 0.3, 0.1, 0.0},
	"バンド":     {0.8, 0.3, 0.1, 0.0},
	"歌手":      {0.9, 0.2, 0.1, 0.0},
	"ミュージシャン": {0.9, 0.3, 0.1, 0.0},

	// film
	"映画":  {0.1, 0.9, 0.2, 0.0},
	"アニメ": {0.1, 0.8, 0.3, 0.0},
	"ドラマ": {0.1, 0.7, 0.3, 0.0},
	"作品":  {0.2, 0.7, 0.3, 0.1},
	"監督":  {0.1, 0.8, 0.2, 0.0},

	// entertainers
	"芸能人":  {0.2, 0.3, 0.9, 0.1},
	"俳優":   {0.1, 0.4, 0.8, 0.1},
	"女優":   {0.1, 0.4, 0.8, 0.1},
	"タレント": {0.2, 0.3, 0.8, 0.2},
	"モデル":  {0.2, 0.2, 0.7, 0.4},

	// fashion
	"ファッション": {0.1, 0.1, 0.3, 0.9},
	"ブランド":   {0.1, 0.1, 0.2, 0.9},
	"服":      {0.0, 0.0, 0.1, 0.9},
	"スタイル":   {0.1, 0.1, 0.3, 0.8},
	"デザイン":   {0.2, 0.2, 0.2, 0.7},
}

// Embedder turns free text into a fixed-dimension vector.
type Embedder interface {
	Vector(text string) []float64
}

// TableEmbedder looks tokens up in a static table. A nil Table uses Embeddings.
type TableEmbedder struct {
	Table map[string][]float64
	Dim   int
}

// DefaultEmbedder is the built-in table embedder.
var DefaultEmbedder Embedder = TableEmbedder{}

// Vector averages the table vectors of the tokens of text. With no known
// token the result is the uniform vector 1/dim.
func (e TableEmbedder) Vector(text string) []float64 {
	table, dim := e.Table, e.Dim
	if table == nil {
		table = Embeddings
	}
	if dim <= 0 {
		dim = Dimension
	}

	vec := make([]float64, dim)
	hits := 0
	for _, tok := range search.Tokenize(text) {
		v, ok := table[tok]
		if !ok {
			continue
		}
		for i := 0; i < dim && i < len(v); i++ {
			vec[i] += v[i]
		}
		hits++
	}
	if hits == 0 {
		for i := range vec {
			vec[i] = 1 / float64(dim)
		}
		return vec
	}
	for i := range vec {
		vec[i] /= float64(hits)
	}
	return vec
}

// TextToVector embeds text with the built-in table.
func TextToVector(text string) []float64 { return DefaultEmbedder.Vector(text) }

// Cosine returns the cosine similarity of a and b. Vectors of different
// dimension, empty vectors and zero vectors yield 0.
func Cosine(a, b []float64) float64 {
	if len(a) != len(b) || len(a) == 0 {
		return 0
	}
	var dot, na, nb float64
	for i := range a {
		dot += a[i] * b[i]
		na += a[i] * a[i]
		nb += b[i] * b[i]
	}
	if na == 0 || nb == 0 {
		return 0
	}
	return dot / (math.Sqrt(na) * math.Sqrt(nb))
}

// QueryItemRelevance is the cosine between the embedded item text and
// queryVec, clamped to [0,1]. A nil embedder uses the built-in table.
func QueryItemRelevance(e Embedder, item domain.RecommendationItem, queryVec []float64) float64 {
	if e == nil {
		e = DefaultEmbedder
	}
	s := Cosine(e.Vector(item.SearchableText()), queryVec)
	return math.Max(0, math.Min(1, s))
}

// FavoritesText joins favorites as "name features..." for embedding.
func FavoritesText(favs []domain.RecommendationItem) string {
	parts := make([]string, 0, len(favs))
	for _, f := range favs {
		parts = append(parts, f.Name+" "+strings.Join(f.Features, " "))
	}
	return strings.Join(parts, " ")
}
