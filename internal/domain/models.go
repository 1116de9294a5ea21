package domain

import (
	"time"

	"gorm.io/gorm"
)

// SearchEntry is one remembered search term for a user. TermKey holds the
// lower-cased term so a repeated search (in any casing) replaces the older row.
//
// Fields:
//   - ID: UUID primary key (char(36)).
//   - UserID: owner of the history entry.
//   - Term: the term exactly as the user typed it.
//   - TermKey: lower-cased Term; unique per user.
//   - CreatedAt: when the term was (last) searched; history is newest first.
type SearchEntry struct {
	ID        string    `json:"id"         gorm:"type:char(36);primaryKey"`
	UserID    string    `json:"user_id"    gorm:"type:varchar(64);not null;uniqueIndex:ux_history_user_term,priority:1;index:idx_history_user_created,priority:1"`
	Term      string    `json:"term"       gorm:"type:varchar(255);not null"`
	TermKey   string    `json:"-"          gorm:"type:varchar(255);not null;uniqueIndex:ux_history_user_term,priority:2"`
	CreatedAt time.Time `json:"created_at" gorm:"index:idx_history_user_created,priority:2"`
}

// TableName returns the database table name for SearchEntry.
func (SearchEntry) TableName() string { return "search_history" }

// Favorite is a recommendation item a user saved. A user can save an item at
// most once per category (enforced by unique index). Features and APIData are
// stored as JSON text.
type Favorite struct {
	ID          string         `json:"id"          gorm:"type:char(36);primaryKey"`
	UserID      string         `json:"user_id"     gorm:"type:varchar(64);not null;index;uniqueIndex:ux_favorite_user_cat_name,priority:1"`
	Category    Category       `json:"category"    gorm:"type:varchar(32);not null;uniqueIndex:ux_favorite_user_cat_name,priority:2;check:category IN ('artists','celebrities','media','fashion')"`
	Name        string         `json:"name"        gorm:"type:varchar(255);not null;uniqueIndex:ux_favorite_user_cat_name,priority:3"`
	Reason      string         `json:"reason"      gorm:"type:text"`
	Features    []string       `json:"features"    gorm:"serializer:json"`
	ImageURL    string         `json:"imageUrl"    gorm:"type:text"`
	OfficialURL string         `json:"officialUrl" gorm:"type:text"`
	APIData     APIData        `json:"apiData,omitempty" gorm:"serializer:json" swaggertype:"object"`
	CreatedAt   time.Time      `json:"created_at"`
	UpdatedAt   time.Time      `json:"updated_at"`
	DeletedAt   gorm.DeletedAt `json:"-"           gorm:"index"`
}

// TableName returns the database table name for Favorite.
func (Favorite) TableName() string { return "favorites" }

// Item converts the stored favorite back into a RecommendationItem.
func (f Favorite) Item() RecommendationItem {
	return RecommendationItem{
		Name:        f.Name,
		Reason:      f.Reason,
		Features:    append([]string(nil), f.Features...),
		ImageURL:    f.ImageURL,
		OfficialURL: f.OfficialURL,
		APIData:     RecommendationItem{APIData: f.APIData}.Clone().APIData,
	}
}

// FavoriteItems converts a slice of favorites into items, preserving order.
func FavoriteItems(favs []Favorite) []RecommendationItem {
	out := make([]RecommendationItem, 0, len(favs))
	for _, f := range favs {
		out = append(out, f.Item())
	}
	return out
}
