// Package repo implements the data persistence layer for domain entities,
// backed by GORM. This file provides repository functions for session carts.
//
// Carts are keyed by the caller-supplied session id. Line items live in
// cart_items with a unique (session_id, listing_id) pair; quantity changes
// are applied with a single upsert so concurrent adds to the same cart do
// not lose increments.
package repo

import (
	"context"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/tbourn/campus-market/internal/domain"
)

// EnsureCart creates an empty cart for sessionID if none exists. An existing
// cart only has updated_at moved to now, so a cart that is still being read
// is not pruned.
func EnsureCart(ctx context.Context, db *gorm.DB, sessionID string) error {
	now := time.Now().UTC()
	c := &domain.Cart{SessionID: sessionID, CreatedAt: now, UpdatedAt: now}
	return db.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "session_id"}},
			DoUpdates: clause.AssignmentColumns([]string{"updated_at"}),
		}).
		Omit(clause.Associations).
		Create(c).Error
}

// GetCart loads the cart for sessionID with its items in insertion order,
// or returns ErrNotFound.
func GetCart(ctx context.Context, db *gorm.DB, sessionID string) (*domain.Cart, error) {
	var c domain.Cart
	err := db.WithContext(ctx).
		Preload("Items", func(tx *gorm.DB) *gorm.DB { return tx.Order("id asc") }).
		Where("session_id = ?", sessionID).
		First(&c).Error
	if err != nil {
		return nil, err
	}
	if c.Items == nil {
		c.Items = []domain.CartItem{}
	}
	return &c, nil
}

// IncrementCartItem adds listingID to the cart with quantity 1, or bumps the
// quantity of the existing line by one. The cart row must already exist.
// Both the upsert and the cart touch run in one transaction.
func IncrementCartItem(ctx context.Context, db *gorm.DB, sessionID, listingID string) error {
	now := time.Now().UTC()
	return db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		item := &domain.CartItem{
			SessionID: sessionID,
			ListingID: listingID,
			Quantity:  1,
			CreatedAt: now,
		}
		err := tx.Clauses(clause.OnConflict{
			Columns: []clause.Column{{Name: "session_id"}, {Name: "listing_id"}},
			DoUpdates: clause.Assignments(map[string]any{
				"quantity": gorm.Expr("cart_items.quantity + 1"),
			}),
		}).Create(item).Error
		if err != nil {
			return err
		}
		return touchCart(tx, sessionID, now)
	})
}

// RemoveCartItem deletes any line for listingID from the cart. Removing an
// absent listing is not an error.
func RemoveCartItem(ctx context.Context, db *gorm.DB, sessionID, listingID string) error {
	now := time.Now().UTC()
	return db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("session_id = ? AND listing_id = ?", sessionID, listingID).
			Delete(&domain.CartItem{}).Error; err != nil {
			return err
		}
		return touchCart(tx, sessionID, now)
	})
}

// PruneCarts deletes carts (and their items) not touched since cutoff and
// returns how many carts were removed.
func PruneCarts(ctx context.Context, db *gorm.DB, cutoff time.Time) (int64, error) {
	var n int64
	err := db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		stale := tx.Model(&domain.Cart{}).Select("session_id").Where("updated_at < ?", cutoff)
		if err := tx.Where("session_id IN (?)", stale).Delete(&domain.CartItem{}).Error; err != nil {
			return err
		}
		res := tx.Where("updated_at < ?", cutoff).Delete(&domain.Cart{})
		if res.Error != nil {
			return res.Error
		}
		n = res.RowsAffected
		return nil
	})
	return n, err
}

func touchCart(tx *gorm.DB, sessionID string, at time.Time) error {
	return tx.Model(&domain.Cart{}).
		Where("session_id = ?", sessionID).
		UpdateColumn("updated_at", at).Error
}
