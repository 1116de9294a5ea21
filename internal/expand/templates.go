package expand

import "github.com/tbourn/go-discovery-backend/internal/domain"

// categoryKeywords drives InferCategory. Lists are matched lower-cased.
var categoryKeywords = map[domain.Category][]string{
	domain.CategoryArtists: {
		"音楽", "アーティスト", "バンド", "歌手", "ミュージシャン", "シンガー",
		"ラッパー", "作曲家", "DJ", "プロデューサー", "ボーカリスト", "ギタリスト",
	},
	domain.CategoryMedia: {
		"映画", "アニメ", "ドラマ", "テレビ番組", "シリーズ", "マンガ",
		"小説", "ゲーム", "エンターテイメント", "コンテンツ", "作品",
	},
	domain.CategoryCelebrities: {
		"芸能人", "俳優", "女優", "タレント", "モデル", "インフルエンサー",
		"有名人", "スター", "セレブ", "パーソナリティ", "コメディアン",
	},
	domain.CategoryFashion: {
		"ファッション", "ブランド", "服", "アパレル", "スタイル", "デザイナー",
		"コレクション", "トレンド", "アクセサリー", "靴", "バッグ", "ジュエリー",
	},
}

var featureTemplates = map[domain.Category][]string{
	domain.CategoryArtists: {
		"独特な音楽スタイル", "印象的なボーカル", "革新的なサウンド", "感情的な歌詞",
		"多様なジャンルの融合", "実験的な音楽性", "文化的影響力", "ライブパフォーマンスの魅力",
		"音楽シーンへの貢献", "ファンとの強い繋がり", "社会的メッセージ性", "芸術的表現",
	},
	domain.CategoryMedia: {
		"魅力的なストーリーテリング", "印象的な映像美", "革新的な演出", "感情を揺さぶる展開",
		"複雑なキャラクター描写", "社会的テーマの探求", "ジャンルの新しい解釈", "視聴者を引き込む世界観",
		"批評家からの高い評価", "文化的影響力", "独創的な設定", "没入感のある体験",
	},
	domain.CategoryCelebrities: {
		"多才な演技力", "カリスマ性", "ユニークな個性", "社会的影響力",
		"ファッションセンス", "メディアでの存在感", "多様なプロジェクトへの参加", "ファンとの強い繋がり",
		"慈善活動への貢献", "業界での評価", "トレンド設定力", "表現力の豊かさ",
	},
	domain.CategoryFashion: {
		"革新的なデザイン", "高品質な素材", "独自の美学", "時代を超えたスタイル",
		"持続可能な取り組み", "文化的影響力", "セレブリティからの支持", "独特なブランドアイデンティティ",
		"職人技の伝統", "トレンド設定力", "多様性の推進", "アート性の高さ",
	},
}

// keywordPlaceholder is replaced (once) by the chosen keyword.
const keywordPlaceholder = "{keyword}"

var reasonTemplates = map[domain.Category][]string{
	domain.CategoryArtists: {
		"{keyword}に関連する音楽スタイルで知られています。",
		"{keyword}の影響を受けた革新的なアーティストです。",
		"{keyword}のファンに人気のあるミュージシャンです。",
		"{keyword}と同様の音楽性を持つアーティストです。",
		"{keyword}に似た雰囲気の楽曲で知られています。",
	},
	domain.CategoryMedia: {
		"{keyword}に関連するテーマを扱った作品です。",
		"{keyword}のファンに推奨される作品です。",
		"{keyword}と同様の世界観を持つコンテンツです。",
		"{keyword}に影響を受けた作品として評価されています。",
		"{keyword}に似た魅力を持つエンターテイメントです。",
	},
	domain.CategoryCelebrities: {
		"{keyword}に関連する活動で知られています。",
		"{keyword}のファンに人気のあるパーソナリティです。",
		"{keyword}と共演経験のある芸能人です。",
		"{keyword}に似た魅力を持つタレントです。",
		"{keyword}と同様のジャンルで活躍しています。",
	},
	domain.CategoryFashion: {
		"{keyword}のスタイルに影響を与えたブランドです。",
		"{keyword}のファンに人気のあるファッションです。",
		"{keyword}と同様の美学を持つデザインで知られています。",
		"{keyword}に似た雰囲気のコレクションを展開しています。",
		"{keyword}と相性の良いスタイルを提案しています。",
	},
}

// baseNames prefix every generated item name.
var baseNames = map[domain.Category][]string{
	domain.CategoryArtists: {
		"新しい波", "クリスタルボイス", "ディープグルーヴ", "エコーチェンバー", "パルスウェーブ",
	},
	domain.CategoryMedia: {
		"無限の扉", "夢幻回廊", "都市の影", "時の砂時計", "星の記憶",
	},
	domain.CategoryCelebrities: {
		"朝日輝", "月野静", "風川颯", "雪村澄", "花園彩",
	},
	domain.CategoryFashion: {
		"エターナルシーク", "アーバンフロー", "ルミナスシャドウ", "ナチュラルハーモニー", "テクノクラフト",
	},
}
