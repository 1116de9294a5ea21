package services

import (
	"fmt"
	"testing"

	sqlite "github.com/glebarez/sqlite"
	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/tbourn/go-discovery-backend/internal/cache"
	"github.com/tbourn/go-discovery-backend/internal/catalog"
	"github.com/tbourn/go-discovery-backend/internal/domain"
	"github.com/tbourn/go-discovery-backend/internal/pipeline"
	"github.com/tbourn/go-discovery-backend/internal/repo"
)

// ---------- test helpers ----------

func newTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	dsn := fmt.Sprintf("file:svc_%s?mode=memory&cache=shared", uuid.NewString())

	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		t.Fatalf("open sqlite: %v", err)
	}
	if err := repo.AutoMigrate(db); err != nil {
		t.Fatalf("automigrate: %v", err)
	}
	return db
}

// newBareDB returns a database without any tables, so every query fails.
func newBareDB(t *testing.T) *gorm.DB {
	t.Helper()
	dsn := fmt.Sprintf("file:svcbare_%s?mode=memory&cache=shared", uuid.NewString())
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		t.Fatalf("open sqlite: %v", err)
	}
	return db
}

func loadCatalog(t *testing.T) *catalog.Catalog {
	t.Helper()
	c, err := catalog.Load("../../data/catalog.yaml")
	if err != nil {
		t.Fatalf("load catalog: %v", err)
	}
	return c
}

func newRecommendationService(t *testing.T, db *gorm.DB) *RecommendationService {
	t.Helper()
	opts := pipeline.DefaultOptions()
	opts.Seed = 7
	return &RecommendationService{
		Catalog:   loadCatalog(t),
		Pipeline:  pipeline.New(opts),
		History:   NewHistoryService(db, DefaultHistoryMax),
		Favorites: &FavoriteService{DB: db},
		Cache:     cache.New[string, domain.RecommendationsData](32, 0),
	}
}
