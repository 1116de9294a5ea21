// Package services defines the business logic for discovery searches, search
// history and favorites. This file centralizes service-level error values so
// that they can be returned by service methods and mapped to HTTP results by
// the handler layer.
package services

import "errors"

// Search-related errors.
var (
	// ErrEmptyQuery is returned when a search query is blank after trimming.
	ErrEmptyQuery = errors.New("query is empty")

	// ErrQueryTooLong is returned when a query exceeds the configured maximum
	// rune length.
	ErrQueryTooLong = errors.New("query too long")

	// ErrInvalidCategory is returned for a category outside the fixed set.
	ErrInvalidCategory = errors.New("unknown category")
)

// History and favorites errors.
var (
	// ErrHistoryNotFound indicates that the term is not in the user's history.
	ErrHistoryNotFound = errors.New("search term not found")

	// ErrFavoriteNotFound indicates that the favorite does not exist or is not
	// owned by the current user.
	ErrFavoriteNotFound = errors.New("favorite not found")

	// ErrInvalidFavorite is returned when a favorite has no item name.
	ErrInvalidFavorite = errors.New("favorite item needs a name")
)
