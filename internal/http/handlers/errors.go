package handlers

import (
	"errors"
	"net/http"

	"github.com/tbourn/campus-market/internal/services"
)

// Error codes carried in ErrorResponse.Code. Clients branch on these, not
// on the message.
const (
	ErrCodeBadRequest       = "bad_request"
	ErrCodeForbidden        = "forbidden"
	ErrCodeNotFound         = "not_found"
	ErrCodeConflict         = "conflict"
	ErrCodeMethodNotAllowed = "method_not_allowed"
	ErrCodeInternal         = "internal_error"
	ErrCodeValidation       = "validation_failed"
	ErrCodeStoreUnavailable = "store_unavailable"
)

// errorKind maps a service sentinel onto the response a client sees.
type errorKind struct {
	target  error
	status  int
	code    string
	message string
}

// First match wins; order matters only where sentinels wrap each other.
var errorKinds = []errorKind{
	{services.ErrListingNotFound, http.StatusNotFound, ErrCodeNotFound, "listing not found"},
	{services.ErrCartNotFound, http.StatusNotFound, ErrCodeNotFound, "cart not found"},
	{services.ErrForbidden, http.StatusForbidden, ErrCodeForbidden, "secret key does not match"},
	{services.ErrIdempotencyConflict, http.StatusConflict, ErrCodeConflict, "idempotency key already used for a different product"},
	{services.ErrDeletionDisabled, http.StatusForbidden, ErrCodeForbidden, "listing deletion is disabled"},
	{services.ErrStoreUnavailable, http.StatusServiceUnavailable, ErrCodeStoreUnavailable, "store unavailable"},
}

// classify returns the response for err. Unknown errors become a 500.
// Validation errors are handled by the caller because they carry fields.
func classify(err error) errorKind {
	for _, k := range errorKinds {
		if errors.Is(err, k.target) {
			return k
		}
	}
	return errorKind{status: http.StatusInternalServerError, code: ErrCodeInternal, message: "internal error"}
}
