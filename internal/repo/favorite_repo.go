// Package repo implements the data persistence layer for domain entities,
// backed by GORM. This file provides repository functions for the Favorite
// model.
//
// Favorites are soft-deleted. Saving an item that was removed earlier brings
// the old row back instead of inserting a second one, so the unique index on
// (user_id, category, name) always holds.
package repo

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/tbourn/go-discovery-backend/internal/domain"
)

const favoriteOrder = "created_at desc, id desc"

// UpsertFavorite saves item under category for userID. If the user already
// saved an item with the same name in that category (possibly soft-deleted),
// the row is refreshed and restored. created reports whether a new row was
// inserted.
func UpsertFavorite(ctx context.Context, db *gorm.DB, userID string, category domain.Category, item domain.RecommendationItem) (fav *domain.Favorite, created bool, err error) {
	name := strings.TrimSpace(item.Name)
	now := time.Now().UTC()
	it := item.Clone()

	var out domain.Favorite
	err = db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		ferr := tx.Unscoped().
			Where("user_id = ? AND category = ? AND name = ?", userID, category, name).
			First(&out).Error
		switch {
		case ferr == nil:
			out.Reason = it.Reason
			out.Features = it.Features
			out.ImageURL = it.ImageURL
			out.OfficialURL = it.OfficialURL
			out.APIData = it.APIData
			out.UpdatedAt = now
			out.DeletedAt = gorm.DeletedAt{}
			return tx.Unscoped().Save(&out).Error
		case errors.Is(ferr, gorm.ErrRecordNotFound):
			out = domain.Favorite{
				ID:          uuid.NewString(),
				UserID:      userID,
				Category:    category,
				Name:        name,
				Reason:      it.Reason,
				Features:    it.Features,
				ImageURL:    it.ImageURL,
				OfficialURL: it.OfficialURL,
				APIData:     it.APIData,
				CreatedAt:   now,
				UpdatedAt:   now,
			}
			created = true
			return tx.Create(&out).Error
		default:
			return ferr
		}
	})
	if err != nil {
		if isUniqueViolation(err) {
			return nil, false, ErrDuplicate
		}
		return nil, false, err
	}
	return &out, created, nil
}

// GetFavorite returns the live favorite id owned by userID, or ErrNotFound.
func GetFavorite(ctx context.Context, db *gorm.DB, userID, id string) (*domain.Favorite, error) {
	var f domain.Favorite
	if err := db.WithContext(ctx).
		Where("id = ? AND user_id = ?", id, userID).
		First(&f).Error; err != nil {
		return nil, err
	}
	return &f, nil
}

// ListFavorites returns up to limit live favorites of userID, newest first.
// limit <= 0 returns all of them.
func ListFavorites(ctx context.Context, db *gorm.DB, userID string, limit int) ([]domain.Favorite, error) {
	var out []domain.Favorite
	q := db.WithContext(ctx).Where("user_id = ?", userID).Order(favoriteOrder)
	if limit > 0 {
		q = q.Limit(limit)
	}
	err := q.Find(&out).Error
	return out, err
}

// ListFavoritesPage returns one page of live favorites of userID, optionally
// filtered by category (empty means all), newest first.
func ListFavoritesPage(ctx context.Context, db *gorm.DB, userID string, category domain.Category, offset, limit int) ([]domain.Favorite, error) {
	var out []domain.Favorite
	q := db.WithContext(ctx).Where("user_id = ?", userID)
	if category != "" {
		q = q.Where("category = ?", category)
	}
	err := q.Order(favoriteOrder).Offset(offset).Limit(limit).Find(&out).Error
	return out, err
}

// CountFavorites counts live favorites of userID, optionally filtered by
// category.
func CountFavorites(ctx context.Context, db *gorm.DB, userID string, category domain.Category) (int64, error) {
	var total int64
	q := db.WithContext(ctx).Model(&domain.Favorite{}).Where("user_id = ?", userID)
	if category != "" {
		q = q.Where("category = ?", category)
	}
	err := q.Count(&total).Error
	return total, err
}

// DeleteFavorite soft-deletes favorite id of userID.
func DeleteFavorite(ctx context.Context, db *gorm.DB, userID, id string) error {
	res := db.WithContext(ctx).
		Where("id = ? AND user_id = ?", id, userID).
		Delete(&domain.Favorite{})
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}
