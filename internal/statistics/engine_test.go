package statistics

import (
	"context"
	"encoding/json"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/Najinc/painperdu/internal/domain"
	"github.com/Najinc/painperdu/internal/query"
	"github.com/Najinc/painperdu/internal/store"
	"github.com/Najinc/painperdu/internal/store/memory"
)

type mapCache struct {
	mu    sync.Mutex
	items map[string][]byte
}

func newMapCache() *mapCache {
	return &mapCache{items: make(map[string][]byte)}
}

func (c *mapCache) Get(_ context.Context, key string, dest any) (bool, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	raw, ok := c.items[key]
	if !ok {
		return false, nil
	}
	return true, json.Unmarshal(raw, dest)
}

func (c *mapCache) Set(_ context.Context, key string, value any, _ time.Duration) error {
	raw, err := json.Marshal(value)
	if err != nil {
		return err
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	c.items[key] = raw
	return nil
}

func (c *mapCache) DeletePrefix(_ context.Context, prefix string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	for key := range c.items {
		if strings.HasPrefix(key, prefix) {
			delete(c.items, key)
		}
	}
	return nil
}

type countingSource struct {
	*memory.Store
	mu       sync.Mutex
	products int
}

func (s *countingSource) ListProducts(ctx context.Context, filter query.ProductFilter) ([]domain.Product, int, error) {
	s.mu.Lock()
	s.products++
	s.mu.Unlock()
	return s.Store.ListProducts(ctx, filter)
}

var now = time.Date(2024, 1, 10, 15, 0, 0, 0, time.UTC)

func addInventory(t *testing.T, s *memory.Store, day domain.Date, kind string, value domain.Money, confirm bool) {
	t.Helper()
	ctx := context.Background()
	inv, err := s.CreateInventory(ctx, domain.Inventory{
		Date:       day,
		Type:       kind,
		SellerID:   memory.SeedSellerID,
		TotalValue: value,
		CreatedAt:  now,
		UpdatedAt:  now,
		Items:      []domain.InventoryItem{{ProductID: memory.SeedBaguette, Quantity: 4}},
	})
	if err != nil {
		t.Fatalf("create inventory: %v", err)
	}
	if confirm {
		if _, err := s.ConfirmInventory(ctx, inv.ID, now); err != nil {
			t.Fatalf("confirm inventory: %v", err)
		}
	}
}

func TestDashboard(t *testing.T) {
	s := memory.NewSeeded()
	today := domain.Today(now)
	addInventory(t, s, today, domain.InventoryOpening, 5000, false)
	addInventory(t, s, today, domain.InventoryClosing, 1250, false)
	addInventory(t, s, today.AddDays(-1), domain.InventoryOpening, 3000, true)
	addInventory(t, s, today.AddDays(-1), domain.InventoryClosing, 3500, true)
	addInventory(t, s, today.AddDays(-2), domain.InventoryOpening, 2000, true)
	addInventory(t, s, today.AddDays(-2), domain.InventoryClosing, 1000, true)

	start, end := domain.ClockTime(7*60), domain.ClockTime(13*60)
	if _, err := s.CreateSchedule(context.Background(), domain.Schedule{
		SellerID: memory.SeedSellerID, Date: today, Type: domain.ScheduleWork,
		StartTime: &start, EndTime: &end, Active: true,
	}); err != nil {
		t.Fatalf("create schedule: %v", err)
	}

	e := NewEngine(s, nil, time.Minute, nil, nil)
	dash, err := e.Dashboard(context.Background(), now)
	if err != nil {
		t.Fatalf("dashboard: %v", err)
	}

	if dash.Overview.TotalProducts != 4 || dash.Overview.TotalSellers != 1 {
		t.Fatalf("unexpected overview %+v", dash.Overview)
	}
	if dash.Overview.OpeningInventories != 1 || dash.Overview.ClosingInventories != 1 || dash.Overview.WorkingToday != 1 {
		t.Fatalf("unexpected counts %+v", dash.Overview)
	}
	if dash.Financial.EstimatedSales != 3750 {
		t.Fatalf("expected estimated sales 37.50, got %s", dash.Financial.EstimatedSales)
	}
	// Only confirmed days count once any exist; the losing day is excluded.
	if dash.SalesAnalytics.AverageDailySales != 1000 || dash.SalesAnalytics.NumberOfSalesDays != 1 {
		t.Fatalf("unexpected analytics %+v", dash.SalesAnalytics)
	}
	if dash.SalesAnalytics.TotalSalesLast30Days != 1000 || dash.SalesAnalytics.PeriodDays != 30 {
		t.Fatalf("unexpected analytics %+v", dash.SalesAnalytics)
	}
	if len(dash.TodaySchedules) != 1 || dash.TodaySchedules[0].Seller != "Marie Dupont" || dash.TodaySchedules[0].StartTime != "07:00" {
		t.Fatalf("unexpected schedules %+v", dash.TodaySchedules)
	}
}

func TestDashboardIsCachedUntilInvalidated(t *testing.T) {
	src := &countingSource{Store: memory.NewSeeded()}
	e := NewEngine(src, newMapCache(), time.Minute, nil, nil)
	ctx := context.Background()

	for i := 0; i < 3; i++ {
		if _, err := e.Dashboard(ctx, now); err != nil {
			t.Fatalf("dashboard: %v", err)
		}
	}
	if src.products != 1 {
		t.Fatalf("expected one computation, got %d", src.products)
	}

	e.Invalidate(ctx)
	if _, err := e.Dashboard(ctx, now); err != nil {
		t.Fatalf("dashboard: %v", err)
	}
	if src.products != 2 {
		t.Fatalf("expected recomputation after invalidation, got %d", src.products)
	}
}

func TestPeriodPrefersConfirmed(t *testing.T) {
	s := memory.NewSeeded()
	day := domain.Today(now)
	addInventory(t, s, day, domain.InventoryOpening, 5000, true)
	addInventory(t, s, day, domain.InventoryClosing, 1250, false)

	e := NewEngine(s, nil, time.Minute, nil, nil)
	stats, err := e.Period(context.Background(), day.AddDays(-1), day)
	if err != nil {
		t.Fatalf("period: %v", err)
	}
	if stats.Summary.TotalInventories != 1 || stats.Summary.TotalEstimatedSales != 5000 {
		t.Fatalf("expected only the confirmed opening, got %+v", stats.Summary)
	}
	if len(stats.DailyData) != 1 || stats.DailyData[0].Sales != 5000 {
		t.Fatalf("unexpected daily data %+v", stats.DailyData)
	}
}

func TestSellerStats(t *testing.T) {
	s := memory.NewSeeded()
	ctx := context.Background()
	day := domain.Today(now)
	inv, err := s.CreateInventory(ctx, domain.Inventory{
		Date: day, Type: domain.InventoryOpening, SellerID: memory.SeedSellerID,
		Items: []domain.InventoryItem{
			{ProductID: memory.SeedBaguette, Quantity: 10},
			{ProductID: memory.SeedCroissant, Quantity: 20},
		},
	})
	if err != nil {
		t.Fatalf("create inventory: %v", err)
	}
	if _, err := s.RecordSales(ctx, inv.ID, []domain.SaleEntry{
		{ProductID: memory.SeedBaguette, SoldQuantity: 5},
		{ProductID: memory.SeedCroissant, SoldQuantity: 15},
	}, store.EnforceLock, now); err != nil {
		t.Fatalf("record sales: %v", err)
	}

	seller, _ := s.GetUser(ctx, memory.SeedSellerID)
	e := NewEngine(s, nil, time.Minute, nil, nil)
	stats, err := e.Seller(ctx, *seller, query.DateRange{})
	if err != nil {
		t.Fatalf("seller stats: %v", err)
	}
	if stats.Summary.TotalQuantityPrepared != 30 || stats.Summary.TotalQuantitySold != 20 {
		t.Fatalf("unexpected summary %+v", stats.Summary)
	}
	// 5 x 1.20 + 15 x 1.10
	if stats.Summary.TotalRevenue != 2250 || stats.Summary.AverageSalesRate != 66.67 {
		t.Fatalf("unexpected summary %+v", stats.Summary)
	}
	if len(stats.ProductStats) != 2 || stats.ProductStats[0].ProductID != memory.SeedCroissant || stats.ProductStats[0].SalesRate != 75 {
		t.Fatalf("unexpected product stats %+v", stats.ProductStats)
	}
	if stats.User.ID != memory.SeedSellerID {
		t.Fatalf("expected user to be attached")
	}
}

func TestPeriodRange(t *testing.T) {
	today := domain.Today(now) // Wednesday
	from, to, err := PeriodRange("week", today)
	if err != nil || from.String() != "2024-01-08" || to.String() != "2024-01-14" {
		t.Fatalf("unexpected week %s..%s (%v)", from, to, err)
	}
	from, to, _ = PeriodRange("month", today)
	if from.String() != "2024-01-01" || to.String() != "2024-01-31" {
		t.Fatalf("unexpected month %s..%s", from, to)
	}
	if _, _, err := PeriodRange("fortnight", today); err == nil {
		t.Fatalf("expected unknown period to fail")
	}
}

func TestWasteValuesConfirmedClosings(t *testing.T) {
	s := memory.NewSeeded()
	addInventory(t, s, domain.Today(now), domain.InventoryClosing, 480, true)
	addInventory(t, s, domain.Today(now).AddDays(-1), domain.InventoryClosing, 480, false)

	e := NewEngine(s, nil, time.Minute, nil, nil)
	stats, err := e.Waste(context.Background(), 4, now)
	if err != nil {
		t.Fatalf("waste: %v", err)
	}
	// 4 baguettes at 1.20 left over on one day
	if stats.TotalWaste != 480 || stats.AverageWastePerDay != 120 || len(stats.WasteByDate) != 1 {
		t.Fatalf("unexpected waste %+v", stats)
	}
}
