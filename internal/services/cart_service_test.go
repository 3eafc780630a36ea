package services

import (
	"context"
	"errors"
	"path/filepath"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"

	"github.com/tbourn/campus-market/internal/domain"
	"github.com/tbourn/campus-market/internal/repo"
)

func newServiceDB(t *testing.T) *gorm.DB {
	t.Helper()
	db, err := repo.OpenSQLite(filepath.Join(t.TempDir(), "services.db"))
	if err != nil {
		t.Fatalf("open sqlite: %v", err)
	}
	t.Cleanup(func() {
		if sqlDB, err := db.DB(); err == nil {
			_ = sqlDB.Close()
		}
	})
	if err := repo.AutoMigrate(db); err != nil {
		t.Fatalf("automigrate: %v", err)
	}
	return db
}

// repoFuncs adapts the package-level repo functions to ListingRepo.
type repoFuncs struct{}

func (repoFuncs) CreateListing(ctx context.Context, db *gorm.DB, l *domain.Listing) (*domain.Listing, error) {
	return repo.CreateListing(ctx, db, l)
}
func (repoFuncs) ListListings(ctx context.Context, db *gorm.DB, category string) ([]domain.Listing, error) {
	return repo.ListListings(ctx, db, category)
}
func (repoFuncs) GetListing(ctx context.Context, db *gorm.DB, id string) (*domain.Listing, error) {
	return repo.GetListing(ctx, db, id)
}
func (repoFuncs) UpdateListing(ctx context.Context, db *gorm.DB, id string, patch *domain.Listing, cols []string) error {
	return repo.UpdateListing(ctx, db, id, patch, cols)
}
func (repoFuncs) MarkListingSold(ctx context.Context, db *gorm.DB, id string, at time.Time) error {
	return repo.MarkListingSold(ctx, db, id, at)
}
func (repoFuncs) DeleteListing(ctx context.Context, db *gorm.DB, id string) error {
	return repo.DeleteListing(ctx, db, id)
}
func (repoFuncs) ListingsStats(ctx context.Context, db *gorm.DB, category string) (int64, *time.Time, error) {
	return repo.ListingsStats(ctx, db, category)
}

func TestCartGetOrCreate_EmptyCart(t *testing.T) {
	s := NewCartService(newServiceDB(t))
	ctx := context.Background()

	v, err := s.GetOrCreate(ctx, "sess-1")
	if err != nil {
		t.Fatalf("GetOrCreate: %v", err)
	}
	if v.SessionID != "sess-1" || v.Items == nil || len(v.Items) != 0 {
		t.Fatalf("unexpected cart: %+v", v)
	}
	if _, err := s.GetOrCreate(ctx, "sess-1"); err != nil {
		t.Fatalf("GetOrCreate (again): %v", err)
	}
}

func TestCartGetOrCreate_InvalidSession(t *testing.T) {
	s := NewCartService(newServiceDB(t))
	for _, id := range []string{"", "has space", "semi;colon"} {
		if _, err := s.GetOrCreate(context.Background(), id); !IsValidation(err) {
			t.Fatalf("session %q: want validation error, got %v", id, err)
		}
	}
}

func TestCartAddItem_MergesAndJoinsListings(t *testing.T) {
	db := newServiceDB(t)
	ls := NewListingService(db, repoFuncs{})
	ls.HashCost = bcrypt.MinCost
	cs := NewCartService(db)
	ctx := context.Background()

	l, _, err := ls.Create(ctx, validInput())
	if err != nil {
		t.Fatalf("Create listing: %v", err)
	}

	before := testutil.ToFloat64(cartItemsAdded)
	if _, err := cs.AddItem(ctx, "s1", l.ID); err != nil {
		t.Fatalf("AddItem: %v", err)
	}
	if _, err := cs.AddItem(ctx, "s1", "ghost-listing"); err != nil {
		t.Fatalf("AddItem (unknown listing): %v", err)
	}
	v, err := cs.AddItem(ctx, "s1", l.ID)
	if err != nil {
		t.Fatalf("AddItem (again): %v", err)
	}
	if got := testutil.ToFloat64(cartItemsAdded); got != before+3 {
		t.Fatalf("cart items counter = %v, want %v", got, before+3)
	}

	if len(v.Items) != 2 {
		t.Fatalf("want 2 lines, got %+v", v.Items)
	}
	first, second := v.Items[0], v.Items[1]
	if first.ListingID != l.ID || first.Quantity != 2 {
		t.Fatalf("first line = %+v", first)
	}
	if first.Listing == nil || first.Listing.Title != l.Title {
		t.Fatalf("first line should carry the listing projection: %+v", first.Listing)
	}
	if second.ListingID != "ghost-listing" || second.Quantity != 1 || second.Listing != nil {
		t.Fatalf("second line = %+v", second)
	}
}

func TestCartAddItem_Validation(t *testing.T) {
	s := NewCartService(newServiceDB(t))
	if _, err := s.AddItem(context.Background(), "s1", "   "); !IsValidation(err) {
		t.Fatalf("blank listing id: %v", err)
	}
	if _, err := s.AddItem(context.Background(), "bad session", "l1"); !IsValidation(err) {
		t.Fatalf("bad session: %v", err)
	}
}

func TestCartLineSurvivesListingDeletion(t *testing.T) {
	db := newServiceDB(t)
	ls := NewListingService(db, repoFuncs{})
	ls.HashCost = bcrypt.MinCost
	ls.AllowDelete = true
	cs := NewCartService(db)
	ctx := context.Background()

	l, secret, err := ls.Create(ctx, validInput())
	if err != nil {
		t.Fatalf("Create: %v", err)
	}
	if _, err := cs.AddItem(ctx, "s1", l.ID); err != nil {
		t.Fatalf("AddItem: %v", err)
	}
	if err := ls.Delete(ctx, l.ID, secret); err != nil {
		t.Fatalf("Delete: %v", err)
	}

	v, err := cs.GetOrCreate(ctx, "s1")
	if err != nil {
		t.Fatalf("GetOrCreate: %v", err)
	}
	if len(v.Items) != 1 || v.Items[0].ListingID != l.ID || v.Items[0].Listing != nil {
		t.Fatalf("dangling line should remain without projection: %+v", v.Items)
	}
}

func TestCartAddItemOnce_ReplaysWithoutIncrement(t *testing.T) {
	s := NewCartService(newServiceDB(t))
	ctx := context.Background()

	v, replayed, err := s.AddItemOnce(ctx, "s1", "l1", "key-1")
	if err != nil || replayed {
		t.Fatalf("first AddItemOnce: replayed=%v err=%v", replayed, err)
	}
	if v.Items[0].Quantity != 1 {
		t.Fatalf("quantity = %d", v.Items[0].Quantity)
	}

	v, replayed, err = s.AddItemOnce(ctx, "s1", "l1", "key-1")
	if err != nil || !replayed {
		t.Fatalf("replay: replayed=%v err=%v", replayed, err)
	}
	if v.Items[0].Quantity != 1 {
		t.Fatalf("replay must not increment, quantity = %d", v.Items[0].Quantity)
	}

	v, replayed, err = s.AddItemOnce(ctx, "s1", "l1", "key-2")
	if err != nil || replayed || v.Items[0].Quantity != 2 {
		t.Fatalf("new key: %+v replayed=%v err=%v", v, replayed, err)
	}

	// same key on a different session is independent
	v, replayed, err = s.AddItemOnce(ctx, "s2", "l1", "key-1")
	if err != nil || replayed || v.Items[0].Quantity != 1 {
		t.Fatalf("other session: %+v replayed=%v err=%v", v, replayed, err)
	}
}

func TestCartAddItemOnce_KeyReusedForOtherListing(t *testing.T) {
	s := NewCartService(newServiceDB(t))
	ctx := context.Background()

	if _, _, err := s.AddItemOnce(ctx, "s1", "l1", "key-1"); err != nil {
		t.Fatalf("first AddItemOnce: %v", err)
	}
	v, replayed, err := s.AddItemOnce(ctx, "s1", "l2", "key-1")
	if !errors.Is(err, ErrIdempotencyConflict) || replayed || v != nil {
		t.Fatalf("want ErrIdempotencyConflict, got v=%+v replayed=%v err=%v", v, replayed, err)
	}

	cart, err := s.GetOrCreate(ctx, "s1")
	if err != nil {
		t.Fatalf("GetOrCreate: %v", err)
	}
	if len(cart.Items) != 1 || cart.Items[0].ListingID != "l1" || cart.Items[0].Quantity != 1 {
		t.Fatalf("conflicting key must not change the cart: %+v", cart.Items)
	}
}

func TestCartAddItemOnce_EmptyKeyBehavesLikeAddItem(t *testing.T) {
	s := NewCartService(newServiceDB(t))
	ctx := context.Background()
	for i := 0; i < 2; i++ {
		if _, replayed, err := s.AddItemOnce(ctx, "s1", "l1", ""); err != nil || replayed {
			t.Fatalf("AddItemOnce: replayed=%v err=%v", replayed, err)
		}
	}
	v, _ := s.GetOrCreate(ctx, "s1")
	if v.Items[0].Quantity != 2 {
		t.Fatalf("quantity = %d", v.Items[0].Quantity)
	}
}

func TestCartRemoveItem(t *testing.T) {
	s := NewCartService(newServiceDB(t))
	ctx := context.Background()

	if _, err := s.RemoveItem(ctx, "nobody", "l1"); !errors.Is(err, ErrCartNotFound) {
		t.Fatalf("missing cart: want ErrCartNotFound, got %v", err)
	}

	for _, id := range []string{"l1", "l2", "l1"} {
		if _, err := s.AddItem(ctx, "s1", id); err != nil {
			t.Fatalf("AddItem: %v", err)
		}
	}
	v, err := s.RemoveItem(ctx, "s1", "l1")
	if err != nil {
		t.Fatalf("RemoveItem: %v", err)
	}
	if len(v.Items) != 1 || v.Items[0].ListingID != "l2" {
		t.Fatalf("remove drops the whole line: %+v", v.Items)
	}

	v, err = s.RemoveItem(ctx, "s1", "absent")
	if err != nil || len(v.Items) != 1 {
		t.Fatalf("removing an absent listing is a no-op: %+v %v", v, err)
	}
}

func TestCartPrune(t *testing.T) {
	db := newServiceDB(t)
	s := NewCartService(db)
	ctx := context.Background()

	if _, err := s.AddItem(ctx, "old", "l1"); err != nil {
		t.Fatalf("AddItem: %v", err)
	}
	if _, err := s.AddItem(ctx, "fresh", "l1"); err != nil {
		t.Fatalf("AddItem: %v", err)
	}
	stale := time.Now().UTC().Add(-48 * time.Hour)
	if err := db.Model(&domain.Cart{}).Where("session_id = ?", "old").UpdateColumn("updated_at", stale).Error; err != nil {
		t.Fatalf("backdate: %v", err)
	}

	if _, err := s.Prune(ctx, 0); !IsValidation(err) {
		t.Fatalf("zero window: %v", err)
	}
	n, err := s.Prune(ctx, 24*time.Hour)
	if err != nil || n != 1 {
		t.Fatalf("Prune = %d, %v", n, err)
	}
	if _, err := s.RemoveItem(ctx, "old", "l1"); !errors.Is(err, ErrCartNotFound) {
		t.Fatalf("pruned cart should be gone: %v", err)
	}
	if _, err := s.RemoveItem(ctx, "fresh", "l1"); err != nil {
		t.Fatalf("fresh cart should survive: %v", err)
	}
}

func TestCartGetOrCreate_KeepsReadCartFromPruning(t *testing.T) {
	db := newServiceDB(t)
	s := NewCartService(db)
	ctx := context.Background()

	if _, err := s.AddItem(ctx, "reader", "l1"); err != nil {
		t.Fatalf("AddItem: %v", err)
	}
	stale := time.Now().UTC().Add(-48 * time.Hour)
	if err := db.Model(&domain.Cart{}).Where("session_id = ?", "reader").UpdateColumn("updated_at", stale).Error; err != nil {
		t.Fatalf("backdate: %v", err)
	}
	if _, err := s.GetOrCreate(ctx, "reader"); err != nil {
		t.Fatalf("GetOrCreate: %v", err)
	}

	n, err := s.Prune(ctx, 24*time.Hour)
	if err != nil || n != 0 {
		t.Fatalf("Prune = %d, %v; a recently read cart must survive", n, err)
	}
	v, err := s.GetOrCreate(ctx, "reader")
	if err != nil || len(v.Items) != 1 {
		t.Fatalf("cart lost its lines: %+v err=%v", v, err)
	}
}

func TestCart_StoreUnavailable(t *testing.T) {
	db := newServiceDB(t)
	s := NewCartService(db)
	sqlDB, _ := db.DB()
	_ = sqlDB.Close()

	if _, err := s.GetOrCreate(context.Background(), "s1"); !errors.Is(err, ErrStoreUnavailable) {
		t.Fatalf("want ErrStoreUnavailable, got %v", err)
	}
}
