package postgres

import (
	"context"
	"errors"
	"fmt"
	"os"
	"testing"
	"time"

	"github.com/Najinc/painperdu/internal/domain"
	"github.com/Najinc/painperdu/internal/store"
)

func TestInventoryLifecycle(t *testing.T) {
	databaseURL := os.Getenv("PAINPERDU_TEST_DATABASE_URL")
	if databaseURL == "" {
		t.Skip("set PAINPERDU_TEST_DATABASE_URL to run postgres integration test")
	}

	ctx := context.Background()
	s, err := New(ctx, databaseURL)
	if err != nil {
		t.Fatalf("new store: %v", err)
	}
	t.Cleanup(func() {
		_ = s.Close()
	})
	if err := s.EnsureSchema(ctx); err != nil {
		t.Fatalf("ensure schema: %v", err)
	}

	stamp := time.Now().UnixNano()
	now := time.Now().UTC()
	sellerID := fmt.Sprintf("usr-it-%d", stamp)
	categoryID := fmt.Sprintf("cat-it-%d", stamp)
	productID := fmt.Sprintf("prd-it-%d", stamp)
	day := domain.NewDate(now)

	t.Cleanup(func() {
		_, _ = s.db.ExecContext(ctx, `DELETE FROM inventories WHERE seller_id = $1`, sellerID)
		_, _ = s.db.ExecContext(ctx, `DELETE FROM products WHERE id = $1`, productID)
		_, _ = s.db.ExecContext(ctx, `DELETE FROM categories WHERE id = $1`, categoryID)
		_, _ = s.db.ExecContext(ctx, `DELETE FROM users WHERE id = $1`, sellerID)
	})

	if _, err := s.CreateUser(ctx, domain.User{
		ID: sellerID, Username: fmt.Sprintf("it_%d", stamp), Email: fmt.Sprintf("it-%d@painperdu.local", stamp),
		PasswordHash: "x", Role: domain.RoleSeller, Active: true, CreatedAt: now, UpdatedAt: now,
	}); err != nil {
		t.Fatalf("create user: %v", err)
	}
	if _, err := s.CreateCategory(ctx, domain.Category{
		ID: categoryID, Name: fmt.Sprintf("Pains IT %d", stamp), Color: domain.DefaultCategoryColor, Active: true, CreatedAt: now, UpdatedAt: now,
	}); err != nil {
		t.Fatalf("create category: %v", err)
	}
	if _, err := s.CreateProduct(ctx, domain.Product{
		ID: productID, Name: fmt.Sprintf("Baguette IT %d", stamp), Price: 250, Unit: domain.UnitPiece,
		CategoryID: categoryID, Active: true, CreatedAt: now, UpdatedAt: now,
	}); err != nil {
		t.Fatalf("create product: %v", err)
	}

	inv, err := s.CreateInventory(ctx, domain.Inventory{
		Date: day, Type: domain.InventoryOpening, SellerID: sellerID, TotalValue: 5000,
		CreatedAt: now, UpdatedAt: now,
		Items: []domain.InventoryItem{{ProductID: productID, Quantity: 20}},
	})
	if err != nil {
		t.Fatalf("create inventory: %v", err)
	}
	if inv.Seller == nil || len(inv.Items) != 1 || inv.Items[0].Product == nil {
		t.Fatalf("expected decorated inventory, got %+v", inv)
	}

	_, err = s.CreateInventory(ctx, domain.Inventory{
		Date: day, Type: domain.InventoryOpening, SellerID: sellerID, CreatedAt: now, UpdatedAt: now,
		Items: []domain.InventoryItem{{ProductID: productID, Quantity: 1}},
	})
	if !errors.Is(err, domain.ErrDuplicateInventory) {
		t.Fatalf("expected ErrDuplicateInventory, got %v", err)
	}

	_, err = s.RecordSales(ctx, inv.ID, []domain.SaleEntry{{ProductID: productID, SoldQuantity: 25}}, store.EnforceLock, now)
	var oversold *domain.OversoldError
	if !errors.As(err, &oversold) {
		t.Fatalf("expected OversoldError, got %v", err)
	}
	updated, err := s.RecordSales(ctx, inv.ID, []domain.SaleEntry{{ProductID: productID, SoldQuantity: 15}}, store.EnforceLock, now)
	if err != nil {
		t.Fatalf("record sales: %v", err)
	}
	if updated.Items[0].Sold() != 15 {
		t.Fatalf("expected 15 sold, got %d", updated.Items[0].Sold())
	}

	if _, err := s.ConfirmInventory(ctx, inv.ID, now); err != nil {
		t.Fatalf("confirm: %v", err)
	}
	if _, err := s.ConfirmInventory(ctx, inv.ID, now); !errors.Is(err, domain.ErrAlreadyConfirmed) {
		t.Fatalf("expected ErrAlreadyConfirmed, got %v", err)
	}
	if err := s.DeleteInventory(ctx, inv.ID, store.EnforceLock); !errors.Is(err, domain.ErrInventoryLocked) {
		t.Fatalf("expected ErrInventoryLocked, got %v", err)
	}
	if err := s.DeleteProduct(ctx, productID); !errors.Is(err, domain.ErrProductInUse) {
		t.Fatalf("expected ErrProductInUse, got %v", err)
	}
	if err := s.DeleteInventory(ctx, inv.ID, store.OverrideLock); err != nil {
		t.Fatalf("override delete: %v", err)
	}
}
