// Package repo implements the data persistence layer for domain entities,
// backed by GORM. This file provides repository functions for the
// SearchEntry model (per-user search history).
//
// All functions are context-aware and accept a *gorm.DB handle, making them
// safe for use within transactions. They follow the "thin repository"
// approach: no business rules (limits, validation) live here.
//
// Functions:
//
//   - UpsertSearch(ctx, db, userID, term, at) -> *domain.SearchEntry, error
//     Records term for userID. A term already present in any casing is
//     replaced, so it moves to the top of the history.
//
//   - ListSearches(ctx, db, userID, limit) -> []domain.SearchEntry, error
//     Newest first.
//
//   - CountSearches(ctx, db, userID) -> int64, error
//
//   - TrimSearches(ctx, db, userID, keep) -> int64, error
//     Deletes everything but the newest keep entries.
//
//   - DeleteSearch(ctx, db, userID, term) -> error
//     Deletes the entry whose term equals term exactly, or ErrNotFound.
//
//   - ClearSearches(ctx, db, userID) -> int64, error
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

const historyOrder = "created_at desc, id desc"

// UpsertSearch records term for userID at time at. An existing entry with the
// same lower-cased term is updated in place (new spelling, new timestamp).
func UpsertSearch(ctx context.Context, db *gorm.DB, userID, term string, at time.Time) (*domain.SearchEntry, error) {
	key := strings.ToLower(term)
	var out domain.SearchEntry
	err := db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		err := tx.Where("user_id = ? AND term_key = ?", userID, key).First(&out).Error
		switch {
		case err == nil:
			out.Term = term
			out.CreatedAt = at.UTC()
			return tx.Model(&out).Updates(map[string]any{"term": out.Term, "created_at": out.CreatedAt}).Error
		case errors.Is(err, gorm.ErrRecordNotFound):
			out = domain.SearchEntry{
				ID:        uuid.NewString(),
				UserID:    userID,
				Term:      term,
				TermKey:   key,
				CreatedAt: at.UTC(),
			}
			return tx.Create(&out).Error
		default:
			return err
		}
	})
	if err != nil {
		return nil, err
	}
	return &out, nil
}

// ListSearches returns up to limit entries for userID, newest first.
// limit <= 0 returns all of them.
func ListSearches(ctx context.Context, db *gorm.DB, userID string, limit int) ([]domain.SearchEntry, error) {
	var out []domain.SearchEntry
	q := db.WithContext(ctx).Where("user_id = ?", userID).Order(historyOrder)
	if limit > 0 {
		q = q.Limit(limit)
	}
	err := q.Find(&out).Error
	return out, err
}

// CountSearches returns the number of history entries of userID.
func CountSearches(ctx context.Context, db *gorm.DB, userID string) (int64, error) {
	var total int64
	err := db.WithContext(ctx).
		Model(&domain.SearchEntry{}).
		Where("user_id = ?", userID).
		Count(&total).Error
	return total, err
}

// TrimSearches keeps the newest keep entries of userID and deletes the rest,
// returning how many rows were removed.
func TrimSearches(ctx context.Context, db *gorm.DB, userID string, keep int) (int64, error) {
	if keep < 0 {
		keep = 0
	}
	dbc := db.WithContext(ctx)
	newest := dbc.Model(&domain.SearchEntry{}).
		Select("id").
		Where("user_id = ?", userID).
		Order(historyOrder).
		Limit(keep)
	res := dbc.
		Where("user_id = ? AND id NOT IN (?)", userID, newest).
		Delete(&domain.SearchEntry{})
	return res.RowsAffected, res.Error
}

// DeleteSearch removes the entry of userID whose term equals term exactly.
func DeleteSearch(ctx context.Context, db *gorm.DB, userID, term string) error {
	res := db.WithContext(ctx).
		Where("user_id = ? AND term = ?", userID, term).
		Delete(&domain.SearchEntry{})
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}

// ClearSearches deletes all history of userID and returns the row count.
func ClearSearches(ctx context.Context, db *gorm.DB, userID string) (int64, error) {
	res := db.WithContext(ctx).
		Where("user_id = ?", userID).
		Delete(&domain.SearchEntry{})
	return res.RowsAffected, res.Error
}
