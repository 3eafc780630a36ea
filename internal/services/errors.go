// Package services defines the business logic for listings and session carts.
// This file centralizes service-level error values so that they can be
// consistently returned by service methods and checked by callers.
//
// Translation into user-facing messages or HTTP status codes is performed at
// the handler layer.
package services

import (
	"errors"
	"fmt"
	"strings"
)

// Listing-related errors.
var (
	// ErrListingNotFound indicates that the listing does not exist or that the
	// supplied id is not a well-formed identifier. The two are not
	// distinguished.
	ErrListingNotFound = errors.New("listing not found")

	// ErrForbidden is returned when the supplied secret key does not match the
	// listing's possession secret.
	ErrForbidden = errors.New("secret key does not match")

	// ErrDeletionDisabled is returned by Delete when the deployment runs with
	// deletion turned off. No secret check is performed in that mode.
	ErrDeletionDisabled = errors.New("listing deletion is disabled")
)

// Cart-related errors.
var (
	// ErrCartNotFound indicates that no cart exists for the session.
	ErrCartNotFound = errors.New("cart not found")

	// ErrIdempotencyConflict is returned when an Idempotency-Key already
	// recorded for the session is reused for a different listing.
	ErrIdempotencyConflict = errors.New("idempotency key reused for a different listing")
)

// ErrStoreUnavailable wraps failures of the persistence layer. The original
// driver error stays in the chain for logging.
var ErrStoreUnavailable = errors.New("store unavailable")

func storeErr(err error) error {
	return fmt.Errorf("%w: %w", ErrStoreUnavailable, err)
}

// FieldError describes one violated input constraint. Field uses the JSON
// name of the input field (e.g. "sellerName", "images[2]") and Rule the
// constraint that failed (e.g. "required", "oneof", "gte").
type FieldError struct {
	Field string `json:"field" example:"price"`
	Rule  string `json:"rule" example:"gte"`
}

// ValidationError reports every input constraint violated by a request.
// It is returned before any persistence call is made.
type ValidationError struct {
	Fields []FieldError
}

func (e *ValidationError) Error() string {
	if len(e.Fields) == 0 {
		return "invalid input"
	}
	parts := make([]string, 0, len(e.Fields))
	for _, f := range e.Fields {
		parts = append(parts, f.Field+" ("+f.Rule+")")
	}
	return "invalid input: " + strings.Join(parts, ", ")
}

func (e *ValidationError) add(field, rule string) {
	e.Fields = append(e.Fields, FieldError{Field: field, Rule: rule})
}

func (e *ValidationError) orNil() error {
	if e == nil || len(e.Fields) == 0 {
		return nil
	}
	return e
}

// IsValidation reports whether err is (or wraps) a *ValidationError.
func IsValidation(err error) bool {
	var ve *ValidationError
	return errors.As(err, &ve)
}
