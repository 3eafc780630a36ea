// Cart HTTP handlers.
//
// Endpoints:
//   - GET    /cart/{sessionId}               (get or lazily create)
//   - POST   /cart/{sessionId}               (add one unit of a listing)
//   - DELETE /cart/{sessionId}/{productId}   (remove a listing's line)
//
// The add endpoint honors an optional Idempotency-Key header: a repeated key
// returns the current cart without adding again, and the same key with a
// different product is a 409.
package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/tbourn/campus-market/internal/http/middleware"
)

// AddToCartRequest is the JSON payload for adding a listing to a cart.
type AddToCartRequest struct {
	// ProductID is the listing id. It need not refer to an existing listing.
	ProductID string `json:"productId" example:"0b6f4c1e-5f7e-4a51-9a0d-2b0f8f1f7d11"`
}

// HeaderIdempotentReplay marks responses served from a previous request with
// the same Idempotency-Key.
const HeaderIdempotentReplay = "Idempotent-Replay"

// GetCart godoc
// @ID          getCart
// @Summary     Get a session cart
// @Description Returns the session's cart, creating an empty one if none exists.
// @Tags        Cart
// @Produce     json
// @Param       sessionId  path      string  true  "Client session id"  example(sess-42)
// @Success     200        {object}  domain.CartView
// @Failure     400        {object}  handlers.ErrorResponse "Validation failed"
// @Failure     503        {object}  handlers.ErrorResponse "Store unavailable"
// @Router      /cart/{sessionId} [get]
func (h *Handlers) GetCart(c *gin.Context) {
	v, err := h.cartSvc.GetOrCreate(c.Request.Context(), c.Param("sessionId"))
	if err != nil {
		failErr(c, err)
		return
	}
	ok(c, http.StatusOK, v)
}

// AddToCart godoc
// @ID          addToCart
// @Summary     Add a listing to a cart
// @Description Adds one unit of the listing; an existing line has its quantity incremented.
// @Tags        Cart
// @Accept      json
// @Produce     json
// @Param       sessionId        path      string                     true   "Client session id"  example(sess-42)
// @Param       Idempotency-Key  header    string                     false  "Suppresses repeated adds"  example(add-7d1c)
// @Param       body             body      handlers.AddToCartRequest  true   "Listing reference"
// @Success     200              {object}  domain.CartView
// @Header      200              {string}  Idempotent-Replay "true when served from a previous request"
// @Failure     400              {object}  handlers.ErrorResponse "Validation failed"
// @Failure     409              {object}  handlers.ErrorResponse "Idempotency key reused for another product"
// @Failure     503              {object}  handlers.ErrorResponse "Store unavailable"
// @Router      /cart/{sessionId} [post]
func (h *Handlers) AddToCart(c *gin.Context) {
	var req AddToCartRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		fail(c, http.StatusBadRequest, ErrCodeBadRequest, "invalid JSON body")
		return
	}

	key, _ := middleware.GetIdempotencyKey(c)
	v, replayed, err := h.cartSvc.AddItemOnce(c.Request.Context(), c.Param("sessionId"), req.ProductID, key)
	if err != nil {
		failErr(c, err)
		return
	}
	if replayed {
		c.Header(HeaderIdempotentReplay, "true")
	}
	ok(c, http.StatusOK, v)
}

// RemoveFromCart godoc
// @ID          removeFromCart
// @Summary     Remove a listing from a cart
// @Description Drops the listing's line regardless of quantity. Removing an absent listing returns the cart unchanged.
// @Tags        Cart
// @Produce     json
// @Param       sessionId  path      string  true  "Client session id"  example(sess-42)
// @Param       productId  path      string  true  "Listing id"
// @Success     200        {object}  domain.CartView
// @Failure     404        {object}  handlers.ErrorResponse "Cart not found"
// @Failure     503        {object}  handlers.ErrorResponse "Store unavailable"
// @Router      /cart/{sessionId}/{productId} [delete]
func (h *Handlers) RemoveFromCart(c *gin.Context) {
	v, err := h.cartSvc.RemoveItem(c.Request.Context(), c.Param("sessionId"), c.Param("productId"))
	if err != nil {
		failErr(c, err)
		return
	}
	ok(c, http.StatusOK, v)
}
