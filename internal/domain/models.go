// Package domain defines the persistence models for listings and session
// carts. These types are mapped with GORM and form the core data layer of the
// marketplace. Closed value sets (categories, conditions, contact methods,
// statuses) live here so both the services and the HTTP layer share them.
package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

func init() {
	// Prices travel as JSON numbers, not quoted strings.
	decimal.MarshalJSONWithoutQuotes = true
}

// Status is the lifecycle state of a Listing. The only transition is
// StatusAvailable → StatusSold.
type Status string

const (
	StatusAvailable Status = "available"
	StatusSold      Status = "sold"
)

// Categories is the closed set of listing categories.
var Categories = []string{
	"textbooks", "electronics", "dorm-items", "supplies", "clothing", "furniture", "other",
}

// Conditions is the closed set of item conditions.
var Conditions = []string{"new", "like-new", "good", "fair", "poor"}

// ContactMethods is the closed set of ways a buyer may reach a seller.
var ContactMethods = []string{"email", "phone", "whatsapp", "telegram"}

// DefaultCondition is applied when a listing is created without a condition.
const DefaultCondition = "good"

// Listing represents an item for sale. SecretHash is the bcrypt hash of the
// possession secret minted at creation; it is never serialized and must not
// appear in any projection.
//
// Fields:
//   - ID: UUID primary key (char(36)), assigned by the repository.
//   - Title / Description / SellerName / ContactDetails: required text.
//   - ContactMethod: one of ContactMethods.
//   - Price: non-negative decimal.
//   - Category: one of Categories (indexed for filtering).
//   - Condition: one of Conditions, defaults to "good".
//   - Images: ordered URLs, stored as JSON.
//   - Status: "available" or "sold".
//   - SoldAt: set exactly when Status is "sold".
//   - CreatedAt: immutable after insert; UpdatedAt is managed by GORM.
type Listing struct {
	ID             string          `gorm:"type:char(36);primaryKey"`
	Title          string          `gorm:"type:varchar(200);not null"`
	Description    string          `gorm:"type:text;not null"`
	Price          decimal.Decimal `gorm:"type:numeric(12,2);not null"`
	Category       string          `gorm:"type:varchar(32);not null;index:idx_listing_browse,priority:1"`
	Condition      string          `gorm:"type:varchar(16);not null;default:'good'"`
	Images         []string        `gorm:"type:text;serializer:json"`
	SellerName     string          `gorm:"type:varchar(120);not null"`
	ContactMethod  string          `gorm:"type:varchar(16);not null"`
	ContactDetails string          `gorm:"type:varchar(255);not null"`
	Status         Status          `gorm:"type:varchar(16);not null;default:'available';index:idx_listing_browse,priority:2"`
	SoldAt         *time.Time
	SecretHash     string    `gorm:"type:varchar(100);not null"`
	CreatedAt      time.Time `gorm:"index:idx_listing_browse,priority:3"`
	UpdatedAt      time.Time
}

// TableName returns the database table name for Listing.
func (Listing) TableName() string { return "listings" }

// ListingView is the externally visible projection of a Listing. It has no
// field for the possession secret.
type ListingView struct {
	ID             string          `json:"id"`
	Title          string          `json:"title"`
	Description    string          `json:"description"`
	Price          decimal.Decimal `json:"price" swaggertype:"number"`
	Category       string          `json:"category"`
	Condition      string          `json:"condition"`
	Images         []string        `json:"images"`
	SellerName     string          `json:"sellerName"`
	ContactMethod  string          `json:"contactMethod"`
	ContactDetails string          `json:"contactDetails"`
	Status         Status          `json:"status"`
	SoldAt         *time.Time      `json:"soldAt"`
	CreatedAt      time.Time       `json:"createdAt"`
	UpdatedAt      time.Time       `json:"updatedAt"`
}

// View projects l into a ListingView. A nil Images slice is returned as an
// empty slice so it serializes as [].
func (l *Listing) View() ListingView {
	images := l.Images
	if images == nil {
		images = []string{}
	}
	return ListingView{
		ID:             l.ID,
		Title:          l.Title,
		Description:    l.Description,
		Price:          l.Price,
		Category:       l.Category,
		Condition:      l.Condition,
		Images:         images,
		SellerName:     l.SellerName,
		ContactMethod:  l.ContactMethod,
		ContactDetails: l.ContactDetails,
		Status:         l.Status,
		SoldAt:         l.SoldAt,
		CreatedAt:      l.CreatedAt,
		UpdatedAt:      l.UpdatedAt,
	}
}

// Cart is the per-session accumulation of listing references. One row per
// session; UpdatedAt moves on every read or mutation and is what prune jobs
// use.
type Cart struct {
	SessionID string     `gorm:"type:varchar(128);primaryKey"`
	Items     []CartItem `gorm:"foreignKey:SessionID;references:SessionID;constraint:OnUpdate:CASCADE,OnDelete:CASCADE"`
	CreatedAt time.Time
	UpdatedAt time.Time `gorm:"index"`
}

// TableName returns the database table name for Cart.
func (Cart) TableName() string { return "carts" }

// CartItem is one line of a cart. ListingID is a weak reference: there is no
// foreign key to listings, and a line outlives the listing it points to.
// The (session_id, listing_id) pair is unique, so a listing appears at most
// once per cart. ID is monotonically assigned and gives insertion order.
type CartItem struct {
	ID        uint64 `gorm:"primaryKey;autoIncrement"`
	SessionID string `gorm:"type:varchar(128);not null;uniqueIndex:ux_cart_item_listing,priority:1"`
	ListingID string `gorm:"type:varchar(64);not null;uniqueIndex:ux_cart_item_listing,priority:2"`
	Quantity  int    `gorm:"not null;default:1;check:quantity > 0"`
	CreatedAt time.Time
}

// TableName returns the database table name for CartItem.
func (CartItem) TableName() string { return "cart_items" }

// CartLine is one item of a CartView. Listing is populated at read time when
// the referenced listing still exists and omitted otherwise.
type CartLine struct {
	ListingID string       `json:"listingId"`
	Quantity  int          `json:"quantity"`
	Listing   *ListingView `json:"listing,omitempty"`
}

// CartView is the externally visible projection of a Cart.
type CartView struct {
	SessionID string     `json:"sessionId"`
	Items     []CartLine `json:"items"`
	UpdatedAt time.Time  `json:"updatedAt"`
}
