// Package services – FavoriteService
//
// FavoriteService lets a user save recommendation items. Saved items feed
// context-aware ranking on later searches. Saving the same item twice in a
// category refreshes the stored copy.
package services

import (
	"context"
	"errors"
	"strings"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
	"gorm.io/gorm"

	"github.com/tbourn/go-discovery-backend/internal/domain"
	"github.com/tbourn/go-discovery-backend/internal/repo"
)

// FavoriteService manages per-user favorites.
type FavoriteService struct {
	DB *gorm.DB
}

// Add saves item under category for userID. created is false when an existing
// favorite was refreshed or restored.
func (s *FavoriteService) Add(ctx context.Context, userID string, category domain.Category, item domain.RecommendationItem) (fav *domain.Favorite, created bool, err error) {
	tr := otel.Tracer("services/FavoriteService")
	ctx, span := tr.Start(ctx, "Add",
		trace.WithAttributes(
			attribute.String("user.id", userID),
			attribute.String("category", string(category)),
		),
	)
	defer span.End()

	category, ok := domain.ParseCategory(string(category))
	if !ok {
		return nil, false, ErrInvalidCategory
	}
	if strings.TrimSpace(item.Name) == "" {
		return nil, false, ErrInvalidFavorite
	}
	return repo.UpsertFavorite(ctx, s.DB, userID, category, item)
}

// Get returns one favorite of userID.
func (s *FavoriteService) Get(ctx context.Context, userID, id string) (*domain.Favorite, error) {
	f, err := repo.GetFavorite(ctx, s.DB, userID, id)
	if errors.Is(err, repo.ErrNotFound) {
		return nil, ErrFavoriteNotFound
	}
	return f, err
}

// ListPage returns a page of userID's favorites, optionally filtered by
// category, plus the total count. Invalid page values take defaults.
func (s *FavoriteService) ListPage(ctx context.Context, userID string, category domain.Category, page, pageSize int) ([]domain.Favorite, int64, error) {
	tr := otel.Tracer("services/FavoriteService")
	ctx, span := tr.Start(ctx, "ListPage",
		trace.WithAttributes(
			attribute.String("user.id", userID),
			attribute.Int("page", page),
			attribute.Int("page_size", pageSize),
		),
	)
	defer span.End()

	if category != "" {
		c, ok := domain.ParseCategory(string(category))
		if !ok {
			return nil, 0, ErrInvalidCategory
		}
		category = c
	}
	if page < 1 {
		page = 1
	}
	if pageSize <= 0 {
		pageSize = 20
	}

	total, err := repo.CountFavorites(ctx, s.DB, userID, category)
	if err != nil {
		return nil, 0, err
	}
	if total == 0 {
		return []domain.Favorite{}, 0, nil
	}
	items, err := repo.ListFavoritesPage(ctx, s.DB, userID, category, (page-1)*pageSize, pageSize)
	return items, total, err
}

// Items returns up to limit of userID's favorites as plain items, newest
// first, for use as ranking context.
func (s *FavoriteService) Items(ctx context.Context, userID string, limit int) ([]domain.RecommendationItem, error) {
	favs, err := repo.ListFavorites(ctx, s.DB, userID, limit)
	if err != nil {
		return nil, err
	}
	return domain.FavoriteItems(favs), nil
}

// Remove deletes favorite id of userID.
func (s *FavoriteService) Remove(ctx context.Context, userID, id string) error {
	tr := otel.Tracer("services/FavoriteService")
	ctx, span := tr.Start(ctx, "Remove", trace.WithAttributes(attribute.String("user.id", userID)))
	defer span.End()

	if err := repo.DeleteFavorite(ctx, s.DB, userID, id); err != nil {
		if errors.Is(err, repo.ErrNotFound) {
			return ErrFavoriteNotFound
		}
		return err
	}
	return nil
}
