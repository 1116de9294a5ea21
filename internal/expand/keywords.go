package expand

import (
	"strings"

	"github.com/tbourn/go-discovery-backend/internal/search"
)

// DefaultMaxKeywords caps RelatedKeywords.
const DefaultMaxKeywords = 5

type relatedEntry struct {
	lower   string
	related []string
}

// relatedTable is ordered: partial matches take the first entry that fits.
var relatedTable = func() []relatedEntry {
	raw := []struct {
		key     string
		related []string
	}{
		// music genres
		{"ポップ", []string{"J-POP", "K-POP", "ポップロック", "エレクトロポップ", "シンセポップ"}},
		{"ロック", []string{"ハードロック", "オルタナティブロック", "パンク", "メタル", "インディーロック"}},
		{"ヒップホップ", []string{"ラップ", "トラップ", "R&B", "ソウル", "ファンク"}},
		{"ジャズ", []string{"ブルース", "ソウルジャズ", "フュージョン", "ビバップ", "スイング"}},
		{"クラシック", []string{"オーケストラ", "ピアノ", "バイオリン", "オペラ", "交響曲"}},

		// film genres
		{"アクション", []string{"冒険", "スリラー", "スパイ", "マーベル", "バトル"}},
		{"ドラマ", []string{"恋愛", "青春", "家族", "社会派", "伝記"}},
		{"SF", []string{"ファンタジー", "宇宙", "未来", "ディストピア", "タイムトラベル"}},
		{"ホラー", []string{"サスペンス", "心理", "オカルト", "ゾンビ", "超常現象"}},
		{"コメディ", []string{"ロマンティックコメディ", "ブラックコメディ", "パロディ", "シチュエーションコメディ", "ドタバタ"}},

		// fashion styles
		{"カジュアル", []string{"ストリート", "アメカジ", "スポーツ", "デイリー", "リラックス"}},
		{"フォーマル", []string{"ビジネス", "スーツ", "ドレス", "エレガント", "クラシック"}},
		{"ストリート", []string{"アーバン", "ヒップホップ", "スケーター", "グラフィティ", "ストリートアート"}},
		{"ヴィンテージ", []string{"レトロ", "古着", "アンティーク", "70年代", "80年代"}},
		{"ミニマル", []string{"シンプル", "モノトーン", "北欧", "機能的", "洗練"}},
	}
	out := make([]relatedEntry, len(raw))
	for i, r := range raw {
		out[i] = relatedEntry{lower: strings.ToLower(r.key), related: r.related}
	}
	return out
}()

// RelatedKeywords maps the tokens of query to genre/style neighbours.
//
// A token equal to a table key contributes that key's list; otherwise the
// first key that contains the token or is contained in it does. Keys are
// compared lower-cased because tokens always are. The result is
// de-duplicated in first-seen order and capped at limit (DefaultMaxKeywords
// when limit <= 0).
func RelatedKeywords(query string, limit int) []string {
	if limit <= 0 {
		limit = DefaultMaxKeywords
	}
	tokens := search.Tokenize(query)
	if len(tokens) == 0 {
		return nil
	}

	var out []string
	seen := map[string]struct{}{}
	add := func(words []string) {
		for _, w := range words {
			if _, ok := seen[w]; ok {
				continue
			}
			seen[w] = struct{}{}
			out = append(out, w)
		}
	}

	for _, tok := range tokens {
		if e, ok := lookupExact(tok); ok {
			add(e.related)
			continue
		}
		for _, e := range relatedTable {
			if strings.Contains(tok, e.lower) || strings.Contains(e.lower, tok) {
				add(e.related)
				break
			}
		}
	}
	if len(out) > limit {
		out = out[:limit]
	}
	return out
}

func lookupExact(tok string) (relatedEntry, bool) {
	for _, e := range relatedTable {
		if e.lower == tok {
			return e, true
		}
	}
	return relatedEntry{}, false
}
