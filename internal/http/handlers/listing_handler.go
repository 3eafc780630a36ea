// Listing HTTP handlers.
//
// This file exposes REST endpoints for listing resources:
//   - GET    /products                  (browse, optional ?category=, ETag support)
//   - GET    /products/{id}             (detail)
//   - POST   /products                  (create; returns the one-time secret key)
//   - PATCH  /products/{id}             (partial update)
//   - POST   /products/{id}/mark-sold   (secret-gated sold transition)
//   - DELETE /products/{id}             (secret-gated delete, when enabled)
//   - GET    /products/delete/{id}      (legacy alias of DELETE)
//
// Handlers are transport-thin: they bind input, call application services,
// and translate results into HTTP responses (including conditional responses).
package handlers

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/tbourn/campus-market/internal/domain"
	"github.com/tbourn/campus-market/internal/http/middleware"
	"github.com/tbourn/campus-market/internal/services"
)

//
// Service contracts (context-aware)
//

// ListingService defines listing lifecycle operations consumed by HTTP handlers.
//
// Implementations should be safe for concurrent use and must honor the
// provided context for cancellation and timeouts.
type ListingService interface {
	// List returns listings in browse order, optionally filtered by category.
	List(ctx context.Context, category string) ([]domain.ListingView, error)
	// GetByID returns one listing.
	GetByID(ctx context.Context, id string) (*domain.ListingView, error)
	// Create persists a listing and returns it with its one-time secret.
	Create(ctx context.Context, in services.ListingInput) (*domain.ListingView, string, error)
	// Update applies a partial update.
	Update(ctx context.Context, id string, p services.ListingPatch) (*domain.ListingView, error)
	// MarkSold flips the listing to sold when secret matches.
	MarkSold(ctx context.Context, id, secret string) (*domain.ListingView, error)
	// Delete removes the listing when deletion is enabled and secret matches.
	Delete(ctx context.Context, id, secret string) error
	// Stats returns the count and newest update time for a category filter.
	Stats(ctx context.Context, category string) (int64, *time.Time, error)
}

// CartService defines session cart operations consumed by HTTP handlers.
type CartService interface {
	GetOrCreate(ctx context.Context, sessionID string) (*domain.CartView, error)
	AddItemOnce(ctx context.Context, sessionID, listingID, key string) (*domain.CartView, bool, error)
	RemoveItem(ctx context.Context, sessionID, listingID string) (*domain.CartView, error)
}

//
// Handler wiring
//

// Handlers groups HTTP endpoints for listings and carts.
// It depends on abstract service interfaces to keep transport concerns
// separate from business logic.
type Handlers struct {
	listingSvc ListingService
	cartSvc    CartService
}

// New constructs and returns a Handlers instance bound to the given services.
func New(listingSvc ListingService, cartSvc CartService) *Handlers {
	return &Handlers{listingSvc: listingSvc, cartSvc: cartSvc}
}

//
// DTOs
//

// CreateListingResponse is the created listing plus the possession secret.
// The secret is shown here once and never again.
type CreateListingResponse struct {
	domain.ListingView
	// SecretKey proves ownership for mark-sold and delete. Store it safely.
	SecretKey string `json:"secretKey" example:"9f86d081884c7d659a2feaa0c55ad015"`
}

// SecretKeyRequest is the JSON payload of secret-gated operations.
type SecretKeyRequest struct {
	SecretKey string `json:"secretKey" example:"9f86d081884c7d659a2feaa0c55ad015"`
}

// HeaderSecretKey carries the possession secret as an alternative to the body.
const HeaderSecretKey = "X-Secret-Key"

//
// Helpers
//

// secretKey reads the possession secret from the JSON body, then the
// secretKey query parameter, then the X-Secret-Key header. An empty or
// absent body is not an error; a malformed one is.
func secretKey(c *gin.Context) (string, error) {
	var req SecretKeyRequest
	if c.Request.Body != nil && c.Request.ContentLength != 0 {
		if err := c.ShouldBindJSON(&req); err != nil && !errors.Is(err, io.EOF) {
			return "", err
		}
	}
	if s := strings.TrimSpace(req.SecretKey); s != "" {
		return s, nil
	}
	if s := strings.TrimSpace(c.Query("secretKey")); s != "" {
		return s, nil
	}
	return strings.TrimSpace(c.GetHeader(HeaderSecretKey)), nil
}

//
// Handlers
//

// ListListings godoc
// @ID          listListings
// @Summary     Browse listings
// @Description Returns available listings (newest first) followed by sold ones. Supports weak ETag via If-None-Match and may return 304.
// @Tags        Products
// @Produce     json
//
// @Param       category       query   string  false "Category filter; 'all' or empty disables it"  Enums(all, textbooks, electronics, dorm-items, supplies, clothing, furniture, other)
// @Param       If-None-Match  header  string  false "Return 304 if ETag matches"  example(W/\"products:all:3:1700000000\")
//
// @Success     200  {array}  domain.ListingView
// @Header      200  {string} ETag  "Weak ETag for current result"
// @Success     304  {string} string "Not Modified"
// @Failure     503  {object} handlers.ErrorResponse "Store unavailable"
// @Router      /products [get]
func (h *Handlers) ListListings(c *gin.Context) {
	ctx := c.Request.Context()
	category := strings.TrimSpace(c.Query("category"))

	// ETag pre-check (best effort).
	if count, maxTS, err := h.listingSvc.Stats(ctx, category); err == nil {
		var ts int64
		if maxTS != nil {
			ts = maxTS.UnixNano()
		}
		key := category
		if key == "" {
			key = services.CategoryAll
		}
		etag := fmt.Sprintf(`W/"products:%s:%d:%d"`, key, count, ts)
		c.Header("ETag", etag)
		if inm := c.GetHeader("If-None-Match"); inm != "" && inm == etag {
			c.Status(http.StatusNotModified)
			return
		}
	}

	items, err := h.listingSvc.List(ctx, category)
	if err != nil {
		failErr(c, err)
		return
	}
	ok(c, http.StatusOK, items)
}

// GetListing godoc
// @ID          getListing
// @Summary     Get a listing
// @Tags        Products
// @Produce     json
// @Param       id   path      string  true  "Listing ID (UUID)"  format(uuid)
// @Success     200  {object}  domain.ListingView
// @Failure     404  {object}  handlers.ErrorResponse "Listing not found"
// @Failure     503  {object}  handlers.ErrorResponse "Store unavailable"
// @Router      /products/{id} [get]
func (h *Handlers) GetListing(c *gin.Context) {
	v, err := h.listingSvc.GetByID(c.Request.Context(), c.Param("id"))
	if err != nil {
		failErr(c, err)
		return
	}
	ok(c, http.StatusOK, v)
}

// CreateListing godoc
// @ID          createListing
// @Summary     Create a listing
// @Description Creates an available listing. The response carries the secret key exactly once; it is required to mark the listing sold or delete it.
// @Tags        Products
// @Accept      json
// @Produce     json
// @Param       body  body      services.ListingInput  true  "Listing payload"
// @Success     201   {object}  handlers.CreateListingResponse
// @Failure     400   {object}  handlers.ErrorResponse "Validation failed"
// @Failure     503   {object}  handlers.ErrorResponse "Store unavailable"
// @Router      /products [post]
func (h *Handlers) CreateListing(c *gin.Context) {
	var in services.ListingInput
	if err := c.ShouldBindJSON(&in); err != nil {
		fail(c, http.StatusBadRequest, ErrCodeBadRequest, "invalid JSON body")
		return
	}

	v, secret, err := h.listingSvc.Create(c.Request.Context(), in)
	if err != nil {
		failErr(c, err)
		return
	}
	middleware.LoggerFrom(c).Info().Str("listing_id", v.ID).Str("category", v.Category).Msg("listing created")
	ok(c, http.StatusCreated, CreateListingResponse{ListingView: *v, SecretKey: secret})
}

// UpdateListing godoc
// @ID          updateListing
// @Summary     Update a listing
// @Description Applies the given fields. Status, sold time and the secret cannot be changed here.
// @Tags        Products
// @Accept      json
// @Produce     json
// @Param       id    path      string                 true  "Listing ID (UUID)"  format(uuid)
// @Param       body  body      services.ListingPatch  true  "Fields to change"
// @Success     200   {object}  domain.ListingView
// @Failure     400   {object}  handlers.ErrorResponse "Validation failed"
// @Failure     404   {object}  handlers.ErrorResponse "Listing not found"
// @Failure     503   {object}  handlers.ErrorResponse "Store unavailable"
// @Router      /products/{id} [patch]
func (h *Handlers) UpdateListing(c *gin.Context) {
	var p services.ListingPatch
	if err := c.ShouldBindJSON(&p); err != nil {
		fail(c, http.StatusBadRequest, ErrCodeBadRequest, "invalid JSON body")
		return
	}
	v, err := h.listingSvc.Update(c.Request.Context(), c.Param("id"), p)
	if err != nil {
		failErr(c, err)
		return
	}
	ok(c, http.StatusOK, v)
}

// MarkSold godoc
// @ID          markListingSold
// @Summary     Mark a listing as sold
// @Tags        Products
// @Accept      json
// @Produce     json
// @Param       id            path      string                     true   "Listing ID (UUID)"  format(uuid)
// @Param       body          body      handlers.SecretKeyRequest  false  "Secret key"
// @Param       X-Secret-Key  header    string                     false  "Secret key (alternative to body)"
// @Success     200  {object}  domain.ListingView
// @Failure     400  {object}  handlers.ErrorResponse "Bad request"
// @Failure     403  {object}  handlers.ErrorResponse "Secret key does not match"
// @Failure     404  {object}  handlers.ErrorResponse "Listing not found"
// @Failure     503  {object}  handlers.ErrorResponse "Store unavailable"
// @Router      /products/{id}/mark-sold [post]
func (h *Handlers) MarkSold(c *gin.Context) {
	secret, err := secretKey(c)
	if err != nil {
		fail(c, http.StatusBadRequest, ErrCodeBadRequest, "invalid JSON body")
		return
	}
	v, err := h.listingSvc.MarkSold(c.Request.Context(), c.Param("id"), secret)
	if err != nil {
		failErr(c, err)
		return
	}
	ok(c, http.StatusOK, v)
}

// DeleteListing godoc
// @ID          deleteListing
// @Summary     Delete a listing
// @Description Permanently removes a listing. Only available when the deployment enables deletion; otherwise always 403.
// @Tags        Products
// @Accept      json
// @Produce     json
// @Param       id            path    string                     true   "Listing ID (UUID)"  format(uuid)
// @Param       body          body    handlers.SecretKeyRequest  false  "Secret key"
// @Param       secretKey     query   string                     false  "Secret key (alternative to body)"
// @Param       X-Secret-Key  header  string                     false  "Secret key (alternative to body)"
// @Success     204  {string} string "No Content"
// @Failure     403  {object} handlers.ErrorResponse "Forbidden or deletion disabled"
// @Failure     404  {object} handlers.ErrorResponse "Listing not found"
// @Failure     503  {object} handlers.ErrorResponse "Store unavailable"
// @Router      /products/{id} [delete]
// @Router      /products/delete/{id} [get]
func (h *Handlers) DeleteListing(c *gin.Context) {
	secret, err := secretKey(c)
	if err != nil {
		fail(c, http.StatusBadRequest, ErrCodeBadRequest, "invalid JSON body")
		return
	}
	if err := h.listingSvc.Delete(c.Request.Context(), c.Param("id"), secret); err != nil {
		failErr(c, err)
		return
	}
	noContent(c)
}
