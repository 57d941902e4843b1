package memory

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/Najinc/painperdu/internal/domain"
	"github.com/Najinc/painperdu/internal/query"
	"github.com/Najinc/painperdu/internal/store"
)

func day(t *testing.T, raw string) domain.Date {
	t.Helper()
	d, err := domain.ParseDate(raw)
	if err != nil {
		t.Fatalf("parse date: %v", err)
	}
	return d
}

func clock(t *testing.T, raw string) *domain.ClockTime {
	t.Helper()
	c, err := domain.ParseClock(raw)
	if err != nil {
		t.Fatalf("parse clock: %v", err)
	}
	return &c
}

func openingFor(t *testing.T, s *Store, date string) *domain.Inventory {
	t.Helper()
	inv, err := s.CreateInventory(context.Background(), domain.Inventory{
		Date:       day(t, date),
		Type:       domain.InventoryOpening,
		SellerID:   SeedSellerID,
		TotalValue: 2*120 + 10*110,
		Items: []domain.InventoryItem{
			{ProductID: SeedBaguette, Quantity: 2},
			{ProductID: SeedCroissant, Quantity: 10},
		},
	})
	if err != nil {
		t.Fatalf("create inventory: %v", err)
	}
	return inv
}

func TestCreateInventoryRejectsDuplicateSlot(t *testing.T) {
	s := NewSeeded()
	inv := openingFor(t, s, "2024-01-10")
	if inv.Seller == nil || inv.Seller.Username != "marie" {
		t.Fatalf("expected seller summary, got %+v", inv.Seller)
	}
	if len(inv.Items) != 2 || inv.Items[0].Product == nil || inv.Items[0].InventoryID != inv.ID {
		t.Fatalf("expected decorated items, got %+v", inv.Items)
	}

	_, err := s.CreateInventory(context.Background(), domain.Inventory{
		Date:     day(t, "2024-01-10T15:30:00Z"),
		Type:     domain.InventoryOpening,
		SellerID: SeedSellerID,
		Items:    []domain.InventoryItem{{ProductID: SeedBaguette, Quantity: 1}},
	})
	if !errors.Is(err, domain.ErrDuplicateInventory) {
		t.Fatalf("expected ErrDuplicateInventory, got %v", err)
	}
}

func TestCreateInventoryRejectsUnknownProduct(t *testing.T) {
	s := NewSeeded()
	_, err := s.CreateInventory(context.Background(), domain.Inventory{
		Date:     day(t, "2024-01-10"),
		Type:     domain.InventoryClosing,
		SellerID: SeedSellerID,
		Items:    []domain.InventoryItem{{ProductID: "prd-missing", Quantity: 1}},
	})
	if !errors.Is(err, domain.ErrInvalidOrInactiveProduct) {
		t.Fatalf("expected ErrInvalidOrInactiveProduct, got %v", err)
	}
}

func TestRecordSalesIsAllOrNothing(t *testing.T) {
	s := NewSeeded()
	inv := openingFor(t, s, "2024-01-10")
	ctx := context.Background()

	_, err := s.RecordSales(ctx, inv.ID, []domain.SaleEntry{
		{ProductID: SeedCroissant, SoldQuantity: 4},
		{ProductID: SeedBaguette, SoldQuantity: 3},
	}, store.EnforceLock, time.Now())
	var oversold *domain.OversoldError
	if !errors.As(err, &oversold) || oversold.ProductName != "Baguette" || oversold.Counted != 2 {
		t.Fatalf("expected oversold baguette, got %v", err)
	}

	got, _ := s.GetInventory(ctx, inv.ID)
	for _, item := range got.Items {
		if item.SoldQuantity != nil {
			t.Fatalf("expected no sales applied, got %+v", item)
		}
	}

	got, err = s.RecordSales(ctx, inv.ID, []domain.SaleEntry{
		{ProductID: SeedCroissant, SoldQuantity: 4},
		{ProductID: "prd-unknown", SoldQuantity: 99},
	}, store.EnforceLock, time.Now())
	if err != nil {
		t.Fatalf("record sales: %v", err)
	}
	for _, item := range got.Items {
		if item.ProductID == SeedCroissant && item.Sold() != 4 {
			t.Fatalf("expected 4 croissants sold, got %d", item.Sold())
		}
	}
}

func TestConfirmedInventoryIsLockedUnlessOverridden(t *testing.T) {
	s := NewSeeded()
	inv := openingFor(t, s, "2024-01-10")
	ctx := context.Background()

	if _, err := s.ConfirmInventory(ctx, inv.ID, time.Now()); err != nil {
		t.Fatalf("confirm: %v", err)
	}
	if _, err := s.ConfirmInventory(ctx, inv.ID, time.Now()); !errors.Is(err, domain.ErrAlreadyConfirmed) {
		t.Fatalf("expected ErrAlreadyConfirmed, got %v", err)
	}

	change := *inv
	change.Notes = "recount"
	if _, err := s.UpdateInventory(ctx, change, false, store.EnforceLock); !errors.Is(err, domain.ErrInventoryLocked) {
		t.Fatalf("expected ErrInventoryLocked, got %v", err)
	}
	if err := s.DeleteInventory(ctx, inv.ID, store.EnforceLock); !errors.Is(err, domain.ErrInventoryLocked) {
		t.Fatalf("expected delete to be locked, got %v", err)
	}

	updated, err := s.UpdateInventory(ctx, change, false, store.OverrideLock)
	if err != nil {
		t.Fatalf("override update: %v", err)
	}
	if !updated.Confirmed || updated.Notes != "recount" || len(updated.Items) != 2 {
		t.Fatalf("expected confirmed record with new notes and old items, got %+v", updated)
	}
}

func TestDeleteProductAndCategoryInUse(t *testing.T) {
	s := NewSeeded()
	ctx := context.Background()
	openingFor(t, s, "2024-01-10")

	if err := s.DeleteProduct(ctx, SeedBaguette); !errors.Is(err, domain.ErrProductInUse) {
		t.Fatalf("expected ErrProductInUse, got %v", err)
	}
	if err := s.DeleteProduct(ctx, SeedTradition); err != nil {
		t.Fatalf("delete unused product: %v", err)
	}
	if err := s.DeactivateCategory(ctx, SeedCategoryPain, time.Now()); !errors.Is(err, domain.ErrCategoryInUse) {
		t.Fatalf("expected ErrCategoryInUse, got %v", err)
	}
}

func TestScheduleConflict(t *testing.T) {
	s := NewSeeded()
	ctx := context.Background()
	first := domain.Schedule{
		SellerID: SeedSellerID, Date: day(t, "2024-01-10"), Type: domain.ScheduleWork,
		StartTime: clock(t, "07:00"), EndTime: clock(t, "13:00"), Active: true,
	}
	if _, err := s.CreateSchedule(ctx, first); err != nil {
		t.Fatalf("create schedule: %v", err)
	}

	overlapping := first
	overlapping.StartTime, overlapping.EndTime = clock(t, "12:00"), clock(t, "18:00")
	if _, err := s.CreateSchedule(ctx, overlapping); !errors.Is(err, domain.ErrScheduleConflict) {
		t.Fatalf("expected ErrScheduleConflict, got %v", err)
	}

	adjacent := first
	adjacent.StartTime, adjacent.EndTime = clock(t, "13:00"), clock(t, "18:00")
	if _, err := s.CreateSchedule(ctx, adjacent); err != nil {
		t.Fatalf("expected touching ranges to be accepted, got %v", err)
	}
}

func TestGetUserByLoginMatchesUsernameOrEmail(t *testing.T) {
	s := NewSeeded()
	ctx := context.Background()
	for _, login := range []string{"MARIE", "marie@painperdu.local"} {
		u, err := s.GetUserByLogin(ctx, login)
		if err != nil || u.ID != SeedSellerID {
			t.Fatalf("lookup %q: got %+v, %v", login, u, err)
		}
	}
	if _, err := s.GetUserByLogin(ctx, "nobody"); !errors.Is(err, store.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestListProductsPaginatesAndSorts(t *testing.T) {
	s := NewSeeded()
	active := true
	products, total, err := s.ListProducts(context.Background(), query.ProductFilter{
		Active: &active,
		Page:   query.Page{Number: 1, Size: 2},
		Sort:   query.Sort{Field: "price", Desc: true},
	})
	if err != nil {
		t.Fatalf("list products: %v", err)
	}
	if total != 4 || len(products) != 2 {
		t.Fatalf("expected 2 of 4 active products, got %d of %d", len(products), total)
	}
	if products[0].ID != SeedTradition || products[0].Category == nil {
		t.Fatalf("expected most expensive first with category, got %+v", products[0])
	}
}

func TestProductMovementsUseConfirmedInventories(t *testing.T) {
	s := NewSeeded()
	ctx := context.Background()
	opening := openingFor(t, s, "2024-01-10")
	closing, err := s.CreateInventory(ctx, domain.Inventory{
		Date: day(t, "2024-01-10"), Type: domain.InventoryClosing, SellerID: SeedSellerID,
		Items: []domain.InventoryItem{{ProductID: SeedCroissant, Quantity: 3}},
	})
	if err != nil {
		t.Fatalf("create closing: %v", err)
	}
	for _, id := range []string{opening.ID, closing.ID} {
		if _, err := s.ConfirmInventory(ctx, id, time.Now()); err != nil {
			t.Fatalf("confirm: %v", err)
		}
	}

	moves, err := s.ProductMovements(ctx, query.Day(day(t, "2024-01-10")))
	if err != nil {
		t.Fatalf("movements: %v", err)
	}
	if len(moves) != 2 || moves[0].ProductID != SeedCroissant {
		t.Fatalf("expected croissant first, got %+v", moves)
	}
	if moves[0].SoldQuantity != 7 || moves[0].SalesValue != 770 {
		t.Fatalf("unexpected croissant movement %+v", moves[0])
	}
}

func TestDeleteUserWithInventoriesIsRefused(t *testing.T) {
	s := NewSeeded()
	openingFor(t, s, "2024-01-10")
	if err := s.DeleteUser(context.Background(), SeedSellerID); !errors.Is(err, domain.ErrUserInUse) {
		t.Fatalf("expected ErrUserInUse, got %v", err)
	}
}
