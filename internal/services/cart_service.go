// Package services – CartService
//
// This file implements the CartService, which aggregates listing references
// per session. Carts are created lazily, lines are merged by listing id
// (adding an existing listing bumps its quantity) and removal of an absent
// listing is a no-op.
//
// Cart lines hold weak references: a line whose listing was deleted stays in
// the cart and is returned without its listing projection.
package services

import (
	"context"
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
	"gorm.io/gorm"

	"github.com/tbourn/campus-market/internal/domain"
	"github.com/tbourn/campus-market/internal/repo"
)

// CartService provides the cart aggregation operations.
type CartService struct {
	// DB is the GORM handle used for persistence.
	DB *gorm.DB
	// IdempotencyTTL bounds how long an Idempotency-Key suppresses repeats
	// of AddItemOnce. Defaults to 24h.
	IdempotencyTTL time.Duration
}

// NewCartService constructs a CartService bound to db.
func NewCartService(db *gorm.DB) *CartService {
	return &CartService{DB: db, IdempotencyTTL: 24 * time.Hour}
}

func (s *CartService) tracer() trace.Tracer { return otel.Tracer("services/CartService") }

// GetOrCreate returns the cart for sessionID, creating an empty one first if
// the session has none.
func (s *CartService) GetOrCreate(ctx context.Context, sessionID string) (*domain.CartView, error) {
	ctx, span := s.tracer().Start(ctx, "GetOrCreate", trace.WithAttributes(attribute.String("cart.session", sessionID)))
	defer span.End()

	if err := validateSession(sessionID); err != nil {
		return nil, err
	}
	if err := repo.EnsureCart(ctx, s.DB, sessionID); err != nil {
		return nil, storeErr(err)
	}
	return s.view(ctx, sessionID)
}

// AddItem adds listingID to the session's cart (creating the cart if
// needed). An existing line has its quantity incremented by one. The
// listing is not required to exist.
func (s *CartService) AddItem(ctx context.Context, sessionID, listingID string) (*domain.CartView, error) {
	ctx, span := s.tracer().Start(ctx, "AddItem", trace.WithAttributes(
		attribute.String("cart.session", sessionID),
		attribute.String("listing.id", listingID),
	))
	defer span.End()

	listingID = strings.TrimSpace(listingID)
	if err := s.checkAdd(sessionID, listingID); err != nil {
		return nil, err
	}
	err := s.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return s.add(ctx, tx, sessionID, listingID)
	})
	if err != nil {
		return nil, storeErr(err)
	}
	return s.view(ctx, sessionID)
}

// AddItemOnce is AddItem guarded by an idempotency key. The first call with
// (sessionID, key) applies the addition; repeats within IdempotencyTTL
// return the current cart and replayed=true without incrementing again. A
// repeat naming a different listing fails with ErrIdempotencyConflict. An
// empty key behaves like AddItem.
func (s *CartService) AddItemOnce(ctx context.Context, sessionID, listingID, key string) (view *domain.CartView, replayed bool, err error) {
	if key == "" {
		view, err = s.AddItem(ctx, sessionID, listingID)
		return view, false, err
	}

	ctx, span := s.tracer().Start(ctx, "AddItemOnce", trace.WithAttributes(
		attribute.String("cart.session", sessionID),
		attribute.String("listing.id", listingID),
	))
	defer span.End()

	listingID = strings.TrimSpace(listingID)
	if err := s.checkAdd(sessionID, listingID); err != nil {
		return nil, false, err
	}

	if v, err := s.replay(ctx, sessionID, listingID, key); !errors.Is(err, repo.ErrNotFound) {
		return v, err == nil, err
	}

	ttl := s.IdempotencyTTL
	if ttl <= 0 {
		ttl = 24 * time.Hour
	}
	err = s.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if _, err := repo.CreateIdempotency(ctx, tx, sessionID, key, listingID, http.StatusOK, ttl); err != nil {
			return err
		}
		return s.add(ctx, tx, sessionID, listingID)
	})
	switch {
	case errors.Is(err, repo.ErrDuplicate):
		// A concurrent request with the same key won the race.
		v, err := s.replay(ctx, sessionID, listingID, key)
		if errors.Is(err, repo.ErrNotFound) {
			err = storeErr(err)
		}
		return v, err == nil, err
	case err != nil:
		return nil, false, storeErr(err)
	}
	v, err := s.view(ctx, sessionID)
	return v, false, err
}

// replay answers a request whose key is already recorded. It returns
// repo.ErrNotFound when there is no live record for (sessionID, key).
func (s *CartService) replay(ctx context.Context, sessionID, listingID, key string) (*domain.CartView, error) {
	rec, err := repo.GetIdempotency(ctx, s.DB, sessionID, key, time.Now().UTC())
	switch {
	case errors.Is(err, repo.ErrNotFound):
		return nil, err
	case err != nil:
		return nil, storeErr(err)
	case rec.ListingID != listingID:
		return nil, ErrIdempotencyConflict
	}
	return s.view(ctx, sessionID)
}

// RemoveItem removes listingID from the session's cart. It fails with
// ErrCartNotFound when the session has no cart; removing a listing that is
// not in the cart returns the cart unchanged.
func (s *CartService) RemoveItem(ctx context.Context, sessionID, listingID string) (*domain.CartView, error) {
	ctx, span := s.tracer().Start(ctx, "RemoveItem", trace.WithAttributes(
		attribute.String("cart.session", sessionID),
		attribute.String("listing.id", listingID),
	))
	defer span.End()

	if err := validateSession(sessionID); err != nil {
		return nil, err
	}
	if _, err := repo.GetCart(ctx, s.DB, sessionID); err != nil {
		if errors.Is(err, repo.ErrNotFound) {
			return nil, ErrCartNotFound
		}
		return nil, storeErr(err)
	}
	if err := repo.RemoveCartItem(ctx, s.DB, sessionID, strings.TrimSpace(listingID)); err != nil {
		return nil, storeErr(err)
	}
	return s.view(ctx, sessionID)
}

// Prune deletes carts untouched for longer than olderThan and returns how
// many were removed. Nothing calls this automatically.
func (s *CartService) Prune(ctx context.Context, olderThan time.Duration) (int64, error) {
	if olderThan <= 0 {
		return 0, &ValidationError{Fields: []FieldError{{Field: "olderThan", Rule: "gt"}}}
	}
	n, err := repo.PruneCarts(ctx, s.DB, time.Now().UTC().Add(-olderThan))
	if err != nil {
		return 0, storeErr(err)
	}
	return n, nil
}

func (s *CartService) checkAdd(sessionID, listingID string) error {
	if err := validateSession(sessionID); err != nil {
		return err
	}
	return validateListingRef(listingID)
}

func (s *CartService) add(ctx context.Context, tx *gorm.DB, sessionID, listingID string) error {
	if err := repo.EnsureCart(ctx, tx, sessionID); err != nil {
		return err
	}
	if err := repo.IncrementCartItem(ctx, tx, sessionID, listingID); err != nil {
		return err
	}
	cartItemsAdded.Inc()
	return nil
}

// view loads the cart and resolves each line's listing. Lines whose listing
// is gone keep Listing nil. A failed lookup is logged and treated the same
// way so the cart itself stays readable.
func (s *CartService) view(ctx context.Context, sessionID string) (*domain.CartView, error) {
	c, err := repo.GetCart(ctx, s.DB, sessionID)
	if err != nil {
		if errors.Is(err, repo.ErrNotFound) {
			return nil, ErrCartNotFound
		}
		return nil, storeErr(err)
	}

	ids := make([]string, 0, len(c.Items))
	for _, it := range c.Items {
		ids = append(ids, it.ListingID)
	}
	byID := make(map[string]domain.ListingView, len(ids))
	listings, err := repo.GetListingsByIDs(ctx, s.DB, ids)
	if err != nil {
		degradedReads.WithLabelValues("cart_join").Inc()
		zerolog.Ctx(ctx).Warn().Err(err).Str("session_id", sessionID).Msg("cart listing lookup failed; returning bare lines")
	}
	for i := range listings {
		byID[listings[i].ID] = listings[i].View()
	}

	out := &domain.CartView{
		SessionID: c.SessionID,
		Items:     make([]domain.CartLine, 0, len(c.Items)),
		UpdatedAt: c.UpdatedAt,
	}
	for _, it := range c.Items {
		line := domain.CartLine{ListingID: it.ListingID, Quantity: it.Quantity}
		if v, ok := byID[it.ListingID]; ok {
			v := v
			line.Listing = &v
		}
		out.Items = append(out.Items, line)
	}
	return out, nil
}
