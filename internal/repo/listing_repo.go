// Package repo implements the data persistence layer for domain entities,
// backed by GORM. This file provides repository functions for the Listing
// model.
//
// All functions are context-aware and accept a *gorm.DB handle, making them
// safe for use within transactions or connection-scoped operations. They
// follow the "thin repository" approach: no business logic, only persistence
// and query composition. Secret handling and validation live in services.
//
// Error semantics:
//   - When a listing is not found, functions return ErrNotFound (an alias of
//     gorm.ErrRecordNotFound).
//   - On DB errors (constraint violations, connectivity issues, etc.), the raw
//     gorm error is propagated.
package repo

import (
	"context"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/tbourn/campus-market/internal/domain"
)

// ErrNotFound is returned when a requested record does not exist.
// It aliases gorm.ErrRecordNotFound for convenience and consistency
// across the service layer and handlers.
var ErrNotFound = gorm.ErrRecordNotFound

// CreateListing inserts l, assigning a fresh UUID and UTC creation time.
// The caller is expected to have set every required column, including
// SecretHash. On success the persisted record is returned.
func CreateListing(ctx context.Context, db *gorm.DB, l *domain.Listing) (*domain.Listing, error) {
	now := time.Now().UTC()
	l.ID = uuid.NewString()
	l.CreatedAt = now
	l.UpdatedAt = now
	if l.Images == nil {
		l.Images = []string{}
	}
	if err := db.WithContext(ctx).Create(l).Error; err != nil {
		return nil, err
	}
	return l, nil
}

// ListListings returns listings in browse order: available before sold
// ("available" < "sold" lexically), newest first within each status. An
// empty category means no filter.
func ListListings(ctx context.Context, db *gorm.DB, category string) ([]domain.Listing, error) {
	var out []domain.Listing
	q := db.WithContext(ctx).Model(&domain.Listing{})
	if category != "" {
		q = q.Where("category = ?", category)
	}
	err := q.Order("status asc").Order("created_at desc").Find(&out).Error
	return out, err
}

// GetListing fetches a single listing by id, or ErrNotFound.
func GetListing(ctx context.Context, db *gorm.DB, id string) (*domain.Listing, error) {
	var l domain.Listing
	if err := db.WithContext(ctx).Where("id = ?", id).First(&l).Error; err != nil {
		return nil, err
	}
	return &l, nil
}

// GetListingsByIDs returns the listings among ids that still exist, in no
// particular order. Missing ids are silently skipped.
func GetListingsByIDs(ctx context.Context, db *gorm.DB, ids []string) ([]domain.Listing, error) {
	if len(ids) == 0 {
		return nil, nil
	}
	var out []domain.Listing
	err := db.WithContext(ctx).Where("id IN ?", ids).Find(&out).Error
	return out, err
}

// UpdateListing writes the named columns of patch to the listing with the
// given id in a single statement. Only cols are written, so zero values
// (e.g. a price of 0 or an empty image list) are applied as given.
// updated_at is refreshed by GORM. Returns ErrNotFound when no row matched.
func UpdateListing(ctx context.Context, db *gorm.DB, id string, patch *domain.Listing, cols []string) error {
	if len(cols) == 0 {
		var n int64
		if err := db.WithContext(ctx).Model(&domain.Listing{}).Where("id = ?", id).Count(&n).Error; err != nil {
			return err
		}
		if n == 0 {
			return ErrNotFound
		}
		return nil
	}
	res := db.WithContext(ctx).
		Model(&domain.Listing{}).
		Where("id = ?", id).
		Select(cols).
		Updates(patch)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}

// MarkListingSold sets status=sold and sold_at=at for id. It does not check
// the prior status; re-marking a sold listing moves sold_at forward.
func MarkListingSold(ctx context.Context, db *gorm.DB, id string, at time.Time) error {
	res := db.WithContext(ctx).
		Model(&domain.Listing{}).
		Where("id = ?", id).
		Updates(map[string]any{
			"status":  domain.StatusSold,
			"sold_at": at,
		})
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}

// DeleteListing permanently removes the listing with id. Cart lines pointing
// at it are left in place as dangling references.
func DeleteListing(ctx context.Context, db *gorm.DB, id string) error {
	res := db.WithContext(ctx).Where("id = ?", id).Delete(&domain.Listing{})
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}
