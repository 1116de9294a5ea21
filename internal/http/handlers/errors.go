package handlers

// Error codes of the {request_id, code, message} envelope written by fail.
// Clients branch on the code; the message is for people.
//
// Middleware answers with its own codes: bad_idempotency_key,
// rate_limited and internal_error (panics).
const (
	ErrCodeBadRequest       = "bad_request"
	ErrCodeNotFound         = "not_found"
	ErrCodeMethodNotAllowed = "method_not_allowed"
	ErrCodeUnavailable      = "unavailable"

	// Discovery engine.
	ErrCodeEmptyQuery      = "empty_query"
	ErrCodeQueryTooLong    = "query_too_long"
	ErrCodeInvalidCategory = "invalid_category"
	ErrCodeSearchFailed    = "search_failed"

	// Favorites and history.
	ErrCodeCreateFailed = "create_failed"
	ErrCodeListFailed   = "list_failed"
	ErrCodeDeleteFailed = "delete_failed"
)
