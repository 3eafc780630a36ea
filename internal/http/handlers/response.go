// Package handlers implements the listing and cart endpoints.
//
// Every failure is written as an ErrorResponse with a stable code. Service
// errors go through failErr, which exposes only the kind-level message; the
// wrapped cause is logged for 5xx and never sent to the client.
package handlers

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/tbourn/campus-market/internal/http/middleware"
	"github.com/tbourn/campus-market/internal/services"
)

// ErrorResponse is the error envelope of every endpoint.
type ErrorResponse struct {
	// Echo of X-Request-ID
	RequestID string `json:"request_id,omitempty" example:"123e4567-e89b-12d3-a456-426614174000"`
	Code      string `json:"code" example:"not_found"`
	// Safe to show to users
	Message string `json:"message" example:"listing not found"`
	// Set only for validation_failed
	Fields []services.FieldError `json:"fields,omitempty"`
}

// Fail writes an error envelope and aborts. Exported for the router's
// fallback and health handlers.
func Fail(c *gin.Context, status int, code, msg string) { fail(c, status, code, msg) }

func fail(c *gin.Context, status int, code, msg string) {
	abortWith(c, status, ErrorResponse{Code: code, Message: msg}, nil)
}

// failErr writes the response matching a service error.
func failErr(c *gin.Context, err error) {
	var ve *services.ValidationError
	if errors.As(err, &ve) {
		abortWith(c, http.StatusBadRequest, ErrorResponse{
			Code:    ErrCodeValidation,
			Message: "invalid input",
			Fields:  ve.Fields,
		}, nil)
		return
	}
	k := classify(err)
	abortWith(c, k.status, ErrorResponse{Code: k.code, Message: k.message}, err)
}

func abortWith(c *gin.Context, status int, resp ErrorResponse, cause error) {
	resp.RequestID = c.Writer.Header().Get("X-Request-ID")
	if status >= http.StatusInternalServerError {
		ev := middleware.LoggerFrom(c).Error().
			Int("status", status).
			Str("code", resp.Code)
		if cause != nil {
			ev = ev.Err(cause)
		}
		ev.Msg(resp.Message)
	}
	c.AbortWithStatusJSON(status, resp)
}

func ok(c *gin.Context, status int, body any) {
	c.JSON(status, body)
}

func noContent(c *gin.Context) {
	c.Status(http.StatusNoContent)
}
