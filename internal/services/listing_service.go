// Package services – ListingService
//
// This file implements the ListingService, which owns the lifecycle of a
// listing: creation (minting a possession secret), browsing and lookup,
// unauthenticated field updates, the secret-gated sold transition, and the
// optional secret-gated deletion mode.
//
// The possession secret is returned exactly once, by Create. Only its bcrypt
// hash is persisted and no projection returned by this service carries it.
package services

import (
	"context"
	"errors"
	"time"

	"github.com/rs/zerolog"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"

	"github.com/tbourn/campus-market/internal/domain"
	"github.com/tbourn/campus-market/internal/repo"
)

// CategoryAll is the filter sentinel meaning "no category filter".
const CategoryAll = "all"

// ListingRepo defines the repository contract required by ListingService.
type ListingRepo interface {
	CreateListing(ctx context.Context, db *gorm.DB, l *domain.Listing) (*domain.Listing, error)
	ListListings(ctx context.Context, db *gorm.DB, category string) ([]domain.Listing, error)
	GetListing(ctx context.Context, db *gorm.DB, id string) (*domain.Listing, error)
	UpdateListing(ctx context.Context, db *gorm.DB, id string, patch *domain.Listing, cols []string) error
	MarkListingSold(ctx context.Context, db *gorm.DB, id string, at time.Time) error
	DeleteListing(ctx context.Context, db *gorm.DB, id string) error
	ListingsStats(ctx context.Context, db *gorm.DB, category string) (int64, *time.Time, error)
}

// ListingService provides the listing registry operations.
type ListingService struct {
	// DB is the GORM handle used for persistence.
	DB *gorm.DB
	// Repo is the listing repository used by this service.
	Repo ListingRepo

	// NewSecret mints possession secrets.
	NewSecret SecretFunc
	// ValidID reports whether an id is well-formed for the store. Malformed
	// ids are reported as ErrListingNotFound without touching the store.
	ValidID func(string) bool
	// HashCost is the bcrypt cost used for stored secrets.
	HashCost int

	// AllowDelete selects the deletion mode. When false, Delete always
	// fails with ErrDeletionDisabled.
	AllowDelete bool
	// DegradeReads makes List and GetByID answer "empty" / "not found"
	// instead of failing when the store errors. Each degrade is logged.
	DegradeReads bool

	// Now is the clock; defaults to time.Now.
	Now func() time.Time
}

// NewListingService constructs a ListingService with defaults: 16-byte hex
// secrets, UUID id validation, bcrypt default cost, deletion disabled and
// degraded reads enabled.
func NewListingService(db *gorm.DB, r ListingRepo) *ListingService {
	return &ListingService{
		DB:           db,
		Repo:         r,
		NewSecret:    HexSecret(16),
		ValidID:      repo.ValidID,
		HashCost:     bcrypt.DefaultCost,
		DegradeReads: true,
		Now:          time.Now,
	}
}

func (s *ListingService) tracer() trace.Tracer { return otel.Tracer("services/ListingService") }

func (s *ListingService) now() time.Time {
	if s.Now != nil {
		return s.Now().UTC()
	}
	return time.Now().UTC()
}

func (s *ListingService) validID(id string) bool {
	if s.ValidID == nil {
		return id != ""
	}
	return s.ValidID(id)
}

// List returns listing projections in browse order (available first, newest
// first within each status). An empty category or "all" disables filtering.
func (s *ListingService) List(ctx context.Context, category string) ([]domain.ListingView, error) {
	if category == CategoryAll {
		category = ""
	}
	ctx, span := s.tracer().Start(ctx, "List", trace.WithAttributes(attribute.String("listing.category", category)))
	defer span.End()

	rows, err := s.Repo.ListListings(ctx, s.DB, category)
	if err != nil {
		if s.DegradeReads {
			s.degraded(ctx, "list", err)
			return []domain.ListingView{}, nil
		}
		return nil, storeErr(err)
	}
	out := make([]domain.ListingView, 0, len(rows))
	for i := range rows {
		out = append(out, rows[i].View())
	}
	return out, nil
}

// GetByID returns the projection of one listing. Malformed ids and missing
// listings both yield ErrListingNotFound.
func (s *ListingService) GetByID(ctx context.Context, id string) (*domain.ListingView, error) {
	ctx, span := s.tracer().Start(ctx, "GetByID", trace.WithAttributes(attribute.String("listing.id", id)))
	defer span.End()

	if !s.validID(id) {
		return nil, ErrListingNotFound
	}
	l, err := s.Repo.GetListing(ctx, s.DB, id)
	if err != nil {
		if errors.Is(err, repo.ErrNotFound) {
			return nil, ErrListingNotFound
		}
		if s.DegradeReads {
			s.degraded(ctx, "get", err)
			return nil, ErrListingNotFound
		}
		return nil, storeErr(err)
	}
	v := l.View()
	return &v, nil
}

// Create validates in, mints a possession secret and persists a new
// available listing. It returns the projection and the plaintext secret; the
// secret cannot be recovered by any later call.
func (s *ListingService) Create(ctx context.Context, in ListingInput) (*domain.ListingView, string, error) {
	ctx, span := s.tracer().Start(ctx, "Create")
	defer span.End()

	if err := in.validate(); err != nil {
		return nil, "", err
	}

	secret, err := s.NewSecret()
	if err != nil {
		return nil, "", err
	}
	hash, err := hashSecret(secret, s.HashCost)
	if err != nil {
		return nil, "", err
	}

	condition := in.Condition
	if condition == "" {
		condition = domain.DefaultCondition
	}
	images := in.Images
	if images == nil {
		images = []string{}
	}

	l := &domain.Listing{
		Title:          in.Title,
		Description:    in.Description,
		Price:          *in.Price,
		Category:       in.Category,
		Condition:      condition,
		Images:         images,
		SellerName:     in.SellerName,
		ContactMethod:  in.ContactMethod,
		ContactDetails: in.ContactDetails,
		Status:         domain.StatusAvailable,
		SecretHash:     hash,
	}
	created, err := s.Repo.CreateListing(ctx, s.DB, l)
	if err != nil {
		return nil, "", storeErr(err)
	}
	span.SetAttributes(attribute.String("listing.id", created.ID))
	listingsCreated.WithLabelValues(created.Category).Inc()

	v := created.View()
	return &v, secret, nil
}

// Update applies the non-nil fields of p to the listing. No secret is
// required. Malformed or unknown ids yield ErrListingNotFound.
func (s *ListingService) Update(ctx context.Context, id string, p ListingPatch) (*domain.ListingView, error) {
	ctx, span := s.tracer().Start(ctx, "Update", trace.WithAttributes(attribute.String("listing.id", id)))
	defer span.End()

	if !s.validID(id) {
		return nil, ErrListingNotFound
	}
	if err := p.validate(); err != nil {
		return nil, err
	}

	patch, cols := p.apply()
	if err := s.Repo.UpdateListing(ctx, s.DB, id, patch, cols); err != nil {
		if errors.Is(err, repo.ErrNotFound) {
			return nil, ErrListingNotFound
		}
		return nil, storeErr(err)
	}

	l, err := s.Repo.GetListing(ctx, s.DB, id)
	if err != nil {
		if errors.Is(err, repo.ErrNotFound) {
			return nil, ErrListingNotFound
		}
		return nil, storeErr(err)
	}
	v := l.View()
	return &v, nil
}

// apply converts the patch into a Listing carrying the new values plus the
// list of columns to write.
func (p *ListingPatch) apply() (*domain.Listing, []string) {
	l := &domain.Listing{}
	var cols []string
	if p.Title != nil {
		l.Title, cols = *p.Title, append(cols, "title")
	}
	if p.Description != nil {
		l.Description, cols = *p.Description, append(cols, "description")
	}
	if p.Price != nil {
		l.Price, cols = *p.Price, append(cols, "price")
	}
	if p.Category != nil {
		l.Category, cols = *p.Category, append(cols, "category")
	}
	if p.Condition != nil {
		l.Condition, cols = *p.Condition, append(cols, "condition")
	}
	if p.Images != nil {
		imgs := *p.Images
		if imgs == nil {
			imgs = []string{}
		}
		l.Images, cols = imgs, append(cols, "images")
	}
	if p.SellerName != nil {
		l.SellerName, cols = *p.SellerName, append(cols, "seller_name")
	}
	if p.ContactMethod != nil {
		l.ContactMethod, cols = *p.ContactMethod, append(cols, "contact_method")
	}
	if p.ContactDetails != nil {
		l.ContactDetails, cols = *p.ContactDetails, append(cols, "contact_details")
	}
	return l, cols
}

// MarkSold transitions the listing to sold when secret matches the stored
// possession secret. Calling it again on a sold listing with the right
// secret moves SoldAt forward.
func (s *ListingService) MarkSold(ctx context.Context, id, secret string) (*domain.ListingView, error) {
	ctx, span := s.tracer().Start(ctx, "MarkSold", trace.WithAttributes(attribute.String("listing.id", id)))
	defer span.End()

	if err := s.authorize(ctx, id, secret, "mark_sold"); err != nil {
		return nil, err
	}
	if err := s.Repo.MarkListingSold(ctx, s.DB, id, s.now()); err != nil {
		if errors.Is(err, repo.ErrNotFound) {
			return nil, ErrListingNotFound
		}
		return nil, storeErr(err)
	}
	listingsSold.Inc()

	l, err := s.Repo.GetListing(ctx, s.DB, id)
	if err != nil {
		if errors.Is(err, repo.ErrNotFound) {
			return nil, ErrListingNotFound
		}
		return nil, storeErr(err)
	}
	v := l.View()
	return &v, nil
}

// Delete permanently removes a listing when deletion is enabled and secret
// matches. With deletion disabled it fails with ErrDeletionDisabled without
// looking at the listing or the secret.
func (s *ListingService) Delete(ctx context.Context, id, secret string) error {
	ctx, span := s.tracer().Start(ctx, "Delete", trace.WithAttributes(attribute.String("listing.id", id)))
	defer span.End()

	if !s.AllowDelete {
		return ErrDeletionDisabled
	}
	if err := s.authorize(ctx, id, secret, "delete"); err != nil {
		return err
	}
	if err := s.Repo.DeleteListing(ctx, s.DB, id); err != nil {
		if errors.Is(err, repo.ErrNotFound) {
			return ErrListingNotFound
		}
		return storeErr(err)
	}
	listingsDeleted.Inc()
	return nil
}

// Stats returns the count and latest update time of listings matching
// category, used for conditional GETs.
func (s *ListingService) Stats(ctx context.Context, category string) (int64, *time.Time, error) {
	if category == CategoryAll {
		category = ""
	}
	return s.Repo.ListingsStats(ctx, s.DB, category)
}

// authorize loads the listing and checks secret against its stored hash.
func (s *ListingService) authorize(ctx context.Context, id, secret, op string) error {
	if !s.validID(id) {
		return ErrListingNotFound
	}
	l, err := s.Repo.GetListing(ctx, s.DB, id)
	if err != nil {
		if errors.Is(err, repo.ErrNotFound) {
			return ErrListingNotFound
		}
		return storeErr(err)
	}
	if !secretMatches(l.SecretHash, secret) {
		secretRejections.WithLabelValues(op).Inc()
		return ErrForbidden
	}
	return nil
}

func (s *ListingService) degraded(ctx context.Context, op string, err error) {
	degradedReads.WithLabelValues(op).Inc()
	zerolog.Ctx(ctx).Warn().
		Err(err).
		Str("op", op).
		Msg("listing store unavailable; degrading read")
}
