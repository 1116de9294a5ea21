// Package services – HistoryService
//
// HistoryService keeps each user's recent search terms. A term searched again
// moves to the top instead of being stored twice, and the list is capped at
// Max entries (oldest dropped first).
package services

import (
	"context"
	"errors"
	"strings"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
	"gorm.io/gorm"

	"github.com/tbourn/go-discovery-backend/internal/domain"
	"github.com/tbourn/go-discovery-backend/internal/repo"
)

// DefaultHistoryMax is the number of terms kept per user.
const DefaultHistoryMax = 20

// HistoryService manages per-user search history.
type HistoryService struct {
	DB  *gorm.DB
	Max int

	// now is swapped in tests.
	now func() time.Time
}

// NewHistoryService returns a HistoryService keeping max terms per user.
func NewHistoryService(db *gorm.DB, max int) *HistoryService {
	if max <= 0 {
		max = DefaultHistoryMax
	}
	return &HistoryService{DB: db, Max: max, now: time.Now}
}

func (s *HistoryService) max() int {
	if s.Max <= 0 {
		return DefaultHistoryMax
	}
	return s.Max
}

func (s *HistoryService) clock() time.Time {
	if s.now != nil {
		return s.now()
	}
	return time.Now()
}

// Record stores term at the top of userID's history and trims the rest.
// Blank terms are ignored.
func (s *HistoryService) Record(ctx context.Context, userID, term string) error {
	term = strings.TrimSpace(term)
	if term == "" {
		return nil
	}
	tr := otel.Tracer("services/HistoryService")
	ctx, span := tr.Start(ctx, "Record", trace.WithAttributes(attribute.String("user.id", userID)))
	defer span.End()

	return s.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if _, err := repo.UpsertSearch(ctx, tx, userID, term, s.clock()); err != nil {
			return err
		}
		_, err := repo.TrimSearches(ctx, tx, userID, s.max())
		return err
	})
}

// List returns userID's terms, newest first. The result is never nil.
func (s *HistoryService) List(ctx context.Context, userID string) ([]string, error) {
	tr := otel.Tracer("services/HistoryService")
	ctx, span := tr.Start(ctx, "List", trace.WithAttributes(attribute.String("user.id", userID)))
	defer span.End()

	rows, err := repo.ListSearches(ctx, s.DB, userID, s.max())
	if err != nil {
		return nil, err
	}
	out := make([]string, 0, len(rows))
	for _, r := range rows {
		out = append(out, r.Term)
	}
	return out, nil
}

// Entries is List with timestamps, for the HTTP layer.
func (s *HistoryService) Entries(ctx context.Context, userID string) ([]domain.SearchEntry, error) {
	rows, err := repo.ListSearches(ctx, s.DB, userID, s.max())
	if err != nil {
		return nil, err
	}
	if rows == nil {
		rows = []domain.SearchEntry{}
	}
	return rows, nil
}

// Remove deletes one term (exact match) from userID's history.
func (s *HistoryService) Remove(ctx context.Context, userID, term string) error {
	tr := otel.Tracer("services/HistoryService")
	ctx, span := tr.Start(ctx, "Remove", trace.WithAttributes(attribute.String("user.id", userID)))
	defer span.End()

	if err := repo.DeleteSearch(ctx, s.DB, userID, term); err != nil {
		if errors.Is(err, repo.ErrNotFound) {
			return ErrHistoryNotFound
		}
		return err
	}
	return nil
}

// Clear deletes all of userID's history and reports how many terms went.
func (s *HistoryService) Clear(ctx context.Context, userID string) (int64, error) {
	tr := otel.Tracer("services/HistoryService")
	ctx, span := tr.Start(ctx, "Clear", trace.WithAttributes(attribute.String("user.id", userID)))
	defer span.End()

	return repo.ClearSearches(ctx, s.DB, userID)
}
