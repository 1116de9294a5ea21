package repo

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/tbourn/go-discovery-backend/internal/domain"
)

var base = time.Date(2025, 5, 1, 9, 0, 0, 0, time.UTC)

func terms(entries []domain.SearchEntry) []string {
	out := make([]string, len(entries))
	for i, e := range entries {
		out[i] = e.Term
	}
	return out
}

func equalStrings(a, b []string) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}

func TestUpsertSearch_Error_NoTable(t *testing.T) {
	db := newTestDB(t /* no migrations */)
	e, err := UpsertSearch(context.Background(), db, "u1", "x", base)
	if err == nil || e != nil {
		t.Fatalf("expected error without table, got entry=%v err=%v", e, err)
	}
}

func TestUpsertSearch_CreatesThenMovesToTop(t *testing.T) {
	db := newTestDB(t, &domain.SearchEntry{})
	ctx := context.Background()

	first, err := UpsertSearch(ctx, db, "u1", "King Gnu", base)
	if err != nil {
		t.Fatalf("UpsertSearch: %v", err)
	}
	if first.ID == "" || first.TermKey != "king gnu" || !first.CreatedAt.Equal(base) {
		t.Fatalf("unexpected entry: %+v", first)
	}
	if _, err := UpsertSearch(ctx, db, "u1", "米津玄師", base.Add(time.Minute)); err != nil {
		t.Fatalf("UpsertSearch: %v", err)
	}

	// same term in another casing replaces the old row
	again, err := UpsertSearch(ctx, db, "u1", "KING GNU", base.Add(2*time.Minute))
	if err != nil {
		t.Fatalf("UpsertSearch: %v", err)
	}
	if again.ID != first.ID {
		t.Fatalf("expected the existing row to be reused, got %s vs %s", again.ID, first.ID)
	}

	got, err := ListSearches(ctx, db, "u1", 0)
	if err != nil {
		t.Fatalf("ListSearches: %v", err)
	}
	if want := []string{"KING GNU", "米津玄師"}; !equalStrings(terms(got), want) {
		t.Fatalf("ListSearches = %v, want %v", terms(got), want)
	}
}

func TestListSearches_LimitAndUserScope(t *testing.T) {
	db := newTestDB(t, &domain.SearchEntry{})
	ctx := context.Background()

	for i, term := range []string{"a", "b", "c"} {
		if _, err := UpsertSearch(ctx, db, "u1", term, base.Add(time.Duration(i)*time.Minute)); err != nil {
			t.Fatalf("seed %s: %v", term, err)
		}
	}
	if _, err := UpsertSearch(ctx, db, "u2", "z", base); err != nil {
		t.Fatalf("seed z: %v", err)
	}

	got, err := ListSearches(ctx, db, "u1", 2)
	if err != nil {
		t.Fatalf("ListSearches: %v", err)
	}
	if want := []string{"c", "b"}; !equalStrings(terms(got), want) {
		t.Fatalf("ListSearches = %v, want %v", terms(got), want)
	}
	if n, _ := CountSearches(ctx, db, "u1"); n != 3 {
		t.Fatalf("CountSearches = %d, want 3", n)
	}
}

func TestTrimSearches_KeepsNewest(t *testing.T) {
	db := newTestDB(t, &domain.SearchEntry{})
	ctx := context.Background()

	for i, term := range []string{"a", "b", "c", "d"} {
		if _, err := UpsertSearch(ctx, db, "u1", term, base.Add(time.Duration(i)*time.Minute)); err != nil {
			t.Fatalf("seed %s: %v", term, err)
		}
	}
	if _, err := UpsertSearch(ctx, db, "u2", "other", base); err != nil {
		t.Fatalf("seed other: %v", err)
	}

	removed, err := TrimSearches(ctx, db, "u1", 2)
	if err != nil {
		t.Fatalf("TrimSearches: %v", err)
	}
	if removed != 2 {
		t.Fatalf("removed = %d, want 2", removed)
	}
	got, _ := ListSearches(ctx, db, "u1", 0)
	if want := []string{"d", "c"}; !equalStrings(terms(got), want) {
		t.Fatalf("after trim = %v, want %v", terms(got), want)
	}
	if n, _ := CountSearches(ctx, db, "u2"); n != 1 {
		t.Fatalf("other user's history touched: %d", n)
	}
}

func TestDeleteSearch(t *testing.T) {
	db := newTestDB(t, &domain.SearchEntry{})
	ctx := context.Background()

	if _, err := UpsertSearch(ctx, db, "u1", "BTS", base); err != nil {
		t.Fatalf("seed: %v", err)
	}

	// exact match only
	if err := DeleteSearch(ctx, db, "u1", "bts"); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound for different casing, got %v", err)
	}
	if err := DeleteSearch(ctx, db, "u2", "BTS"); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound for other user, got %v", err)
	}
	if err := DeleteSearch(ctx, db, "u1", "BTS"); err != nil {
		t.Fatalf("DeleteSearch: %v", err)
	}
	if n, _ := CountSearches(ctx, db, "u1"); n != 0 {
		t.Fatalf("entry not deleted, count=%d", n)
	}
}

func TestClearSearches(t *testing.T) {
	db := newTestDB(t, &domain.SearchEntry{})
	ctx := context.Background()

	for _, term := range []string{"a", "b"} {
		if _, err := UpsertSearch(ctx, db, "u1", term, base); err != nil {
			t.Fatalf("seed %s: %v", term, err)
		}
	}
	n, err := ClearSearches(ctx, db, "u1")
	if err != nil || n != 2 {
		t.Fatalf("ClearSearches = %d, %v", n, err)
	}
	if n, err := ClearSearches(ctx, db, "u1"); err != nil || n != 0 {
		t.Fatalf("second ClearSearches = %d, %v", n, err)
	}
}
