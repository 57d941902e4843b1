package memory

import (
	"cmp"
	"context"
	"os"
	"slices"
	"sort"
	"strings"
	"sync"
	"time"

	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"

	"github.com/Najinc/painperdu/internal/domain"
	"github.com/Najinc/painperdu/internal/guard"
	"github.com/Najinc/painperdu/internal/query"
	"github.com/Najinc/painperdu/internal/store"
	"github.com/Najinc/painperdu/internal/xid"
)

// Store keeps everything in maps behind one lock. Each write runs in a
// single critical section, which gives it the all-or-nothing behaviour the
// postgres store gets from transactions.
type Store struct {
	mu          sync.RWMutex
	categories  map[string]domain.Category
	products    map[string]domain.Product
	inventories map[string]domain.Inventory
	schedules   map[string]domain.Schedule
	users       map[string]domain.User
	auditLogs   []domain.AuditLog
}

var _ store.Repository = (*Store)(nil)

func New() *Store {
	return &Store{
		categories:  make(map[string]domain.Category),
		products:    make(map[string]domain.Product),
		inventories: make(map[string]domain.Inventory),
		schedules:   make(map[string]domain.Schedule),
		users:       make(map[string]domain.User),
	}
}

// Seed identifiers, stable so demos and tests can refer to them.
const (
	SeedAdminID      = "usr-admin"
	SeedSellerID     = "usr-marie"
	SeedCategoryPain = "cat-pains"
	SeedCategoryVien = "cat-viennoiseries"
	SeedBaguette     = "prd-baguette"
	SeedTradition    = "prd-tradition"
	SeedCroissant    = "prd-croissant"
	SeedPainChocolat = "prd-pain-chocolat"
	SeedEclair       = "prd-eclair"
)

// seedUsers builds the demo accounts. Passwords come from
// SEED_ADMIN_PASSWORD and SEED_SELLER_PASSWORD with dev defaults otherwise.
func seedUsers(now time.Time) []domain.User {
	adminPwd := envOr("SEED_ADMIN_PASSWORD", "admin123")
	sellerPwd := envOr("SEED_SELLER_PASSWORD", "seller123")
	if os.Getenv("SEED_ADMIN_PASSWORD") == "" || os.Getenv("SEED_SELLER_PASSWORD") == "" {
		zap.L().Warn("memory store uses default dev credentials; set SEED_ADMIN_PASSWORD and SEED_SELLER_PASSWORD to override")
	}

	users := make([]domain.User, 0, 2)
	for _, u := range []struct {
		id, username, email, password, role, first, last string
	}{
		{SeedAdminID, "admin", "admin@painperdu.local", adminPwd, domain.RoleAdmin, "Admin", "PainPerdu"},
		{SeedSellerID, "marie", "marie@painperdu.local", sellerPwd, domain.RoleSeller, "Marie", "Dupont"},
	} {
		hash, err := bcrypt.GenerateFromPassword([]byte(u.password), bcrypt.DefaultCost)
		if err != nil {
			zap.L().Fatal("failed to hash seed password", zap.String("username", u.username), zap.Error(err))
		}
		users = append(users, domain.User{
			ID:           u.id,
			Username:     u.username,
			Email:        u.email,
			PasswordHash: string(hash),
			Role:         u.role,
			FirstName:    u.first,
			LastName:     u.last,
			Active:       true,
			CreatedAt:    now,
			UpdatedAt:    now,
		})
	}
	return users
}

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

// NewSeeded returns a store with two accounts and a small bakery catalog.
func NewSeeded() *Store {
	s := New()
	now := time.Now().UTC()

	for _, u := range seedUsers(now) {
		s.users[u.ID] = u
	}
	for _, c := range []domain.Category{
		{ID: SeedCategoryPain, Name: "Pains", Color: "#e27d28"},
		{ID: SeedCategoryVien, Name: "Viennoiseries", Color: "#f4c542"},
	} {
		c.Active = true
		c.CreatedBy = SeedAdminID
		c.CreatedAt, c.UpdatedAt = now, now
		s.categories[c.ID] = c
	}
	for _, p := range []domain.Product{
		{ID: SeedBaguette, Name: "Baguette", Price: 120, CategoryID: SeedCategoryPain, MinStock: 20, Active: true},
		{ID: SeedTradition, Name: "Baguette tradition", Price: 140, CategoryID: SeedCategoryPain, MinStock: 15, Active: true},
		{ID: SeedCroissant, Name: "Croissant", Price: 110, CategoryID: SeedCategoryVien, MinStock: 30, Active: true},
		{ID: SeedPainChocolat, Name: "Pain au chocolat", Price: 130, CategoryID: SeedCategoryVien, MinStock: 30, Active: true},
		{ID: SeedEclair, Name: "Eclair", Price: 250, CategoryID: SeedCategoryVien, Active: false},
	} {
		p.Unit = domain.UnitPiece
		p.CreatedBy = SeedAdminID
		p.CreatedAt, p.UpdatedAt = now, now
		s.products[p.ID] = p
	}
	return s
}

// ---- categories ----

func (s *Store) ListCategories(_ context.Context, filter query.CategoryFilter) ([]domain.Category, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	result := make([]domain.Category, 0, len(s.categories))
	for _, c := range s.categories {
		if filter.Match(c) {
			result = append(result, c)
		}
	}
	slices.SortFunc(result, func(a, b domain.Category) int {
		return cmp.Compare(strings.ToLower(a.Name), strings.ToLower(b.Name))
	})
	return result, nil
}

func (s *Store) GetCategory(_ context.Context, id string) (*domain.Category, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	c, ok := s.categories[id]
	if !ok {
		return nil, store.ErrNotFound
	}
	return &c, nil
}

func (s *Store) CreateCategory(_ context.Context, category domain.Category) (*domain.Category, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if category.ID == "" {
		category.ID = xid.New("cat")
	}
	if s.categoryNameTaken(category.Name, category.ID) {
		return nil, domain.ErrDuplicateName
	}
	s.categories[category.ID] = category
	return &category, nil
}

func (s *Store) UpdateCategory(_ context.Context, category domain.Category) (*domain.Category, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	existing, ok := s.categories[category.ID]
	if !ok {
		return nil, store.ErrNotFound
	}
	if s.categoryNameTaken(category.Name, category.ID) {
		return nil, domain.ErrDuplicateName
	}
	category.CreatedAt = existing.CreatedAt
	category.CreatedBy = existing.CreatedBy
	s.categories[category.ID] = category
	return &category, nil
}

func (s *Store) DeactivateCategory(_ context.Context, id string, at time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	c, ok := s.categories[id]
	if !ok {
		return store.ErrNotFound
	}
	for _, p := range s.products {
		if p.CategoryID == id && p.Active {
			return domain.ErrCategoryInUse
		}
	}
	c.Active = false
	c.UpdatedAt = at
	s.categories[id] = c
	return nil
}

func (s *Store) categoryNameTaken(name string, exceptID string) bool {
	for id, c := range s.categories {
		if id != exceptID && strings.EqualFold(c.Name, name) {
			return true
		}
	}
	return false
}

// ---- products ----

func (s *Store) ListProducts(_ context.Context, filter query.ProductFilter) ([]domain.Product, int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	matched := make([]domain.Product, 0, len(s.products))
	for _, p := range s.products {
		if filter.Match(p) {
			matched = append(matched, s.decorateProduct(p))
		}
	}
	sortBy(matched, filter.Sort.Desc, func(a, b domain.Product) int {
		switch filter.Sort.Field {
		case "price":
			return cmp.Compare(a.Price, b.Price)
		case "createdAt":
			return a.CreatedAt.Compare(b.CreatedAt)
		case "updatedAt":
			return a.UpdatedAt.Compare(b.UpdatedAt)
		default:
			return cmp.Compare(strings.ToLower(a.Name), strings.ToLower(b.Name))
		}
	}, func(p domain.Product) string { return p.ID })
	return query.Slice(matched, filter.Page), len(matched), nil
}

func (s *Store) GetProduct(_ context.Context, id string) (*domain.Product, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	p, ok := s.products[id]
	if !ok {
		return nil, store.ErrNotFound
	}
	p = s.decorateProduct(p)
	return &p, nil
}

func (s *Store) GetProductsByIDs(_ context.Context, ids []string) (map[string]domain.Product, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	result := make(map[string]domain.Product, len(ids))
	for _, id := range ids {
		if p, ok := s.products[id]; ok {
			result[id] = p
		}
	}
	return result, nil
}

func (s *Store) CreateProduct(_ context.Context, product domain.Product) (*domain.Product, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if product.ID == "" {
		product.ID = xid.New("prd")
	}
	if _, ok := s.categories[product.CategoryID]; !ok {
		return nil, domain.ErrCategoryNotFound
	}
	if s.productNameTaken(product.Name, product.ID) {
		return nil, domain.ErrDuplicateName
	}
	product.Category = nil
	s.products[product.ID] = product
	created := s.decorateProduct(product)
	return &created, nil
}

func (s *Store) UpdateProduct(_ context.Context, product domain.Product) (*domain.Product, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	existing, ok := s.products[product.ID]
	if !ok {
		return nil, store.ErrNotFound
	}
	if _, ok := s.categories[product.CategoryID]; !ok {
		return nil, domain.ErrCategoryNotFound
	}
	if s.productNameTaken(product.Name, product.ID) {
		return nil, domain.ErrDuplicateName
	}
	product.CreatedAt = existing.CreatedAt
	product.CreatedBy = existing.CreatedBy
	product.Category = nil
	s.products[product.ID] = product
	updated := s.decorateProduct(product)
	return &updated, nil
}

func (s *Store) DeleteProduct(_ context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.products[id]; !ok {
		return store.ErrNotFound
	}
	for _, inv := range s.inventories {
		for _, item := range inv.Items {
			if item.ProductID == id {
				return domain.ErrProductInUse
			}
		}
	}
	delete(s.products, id)
	return nil
}

func (s *Store) productNameTaken(name string, exceptID string) bool {
	for id, p := range s.products {
		if id != exceptID && strings.EqualFold(p.Name, name) {
			return true
		}
	}
	return false
}

func (s *Store) decorateProduct(p domain.Product) domain.Product {
	if c, ok := s.categories[p.CategoryID]; ok {
		p.Category = &domain.CategorySummary{ID: c.ID, Name: c.Name, Color: c.Color}
	}
	return p
}

// ---- inventories ----

func (s *Store) ListInventories(_ context.Context, filter query.InventoryFilter) ([]domain.Inventory, int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	matched := make([]domain.Inventory, 0, len(s.inventories))
	for _, inv := range s.inventories {
		if filter.Match(inv) {
			matched = append(matched, inv)
		}
	}
	sortBy(matched, filter.Sort.Desc, func(a, b domain.Inventory) int {
		switch filter.Sort.Field {
		case "createdAt":
			return a.CreatedAt.Compare(b.CreatedAt)
		case "updatedAt":
			return a.UpdatedAt.Compare(b.UpdatedAt)
		default:
			return a.Date.Compare(b.Date.Time)
		}
	}, func(inv domain.Inventory) string { return inv.ID })

	page := query.Slice(matched, filter.Page)
	result := make([]domain.Inventory, 0, len(page))
	for _, inv := range page {
		result = append(result, s.decorateInventory(inv))
	}
	return result, len(matched), nil
}

func (s *Store) GetInventory(_ context.Context, id string) (*domain.Inventory, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	inv, ok := s.inventories[id]
	if !ok {
		return nil, store.ErrNotFound
	}
	inv = s.decorateInventory(inv)
	return &inv, nil
}

func (s *Store) FindInventory(_ context.Context, sellerID string, day domain.Date, inventoryType string) (*domain.Inventory, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	probe := domain.Inventory{SellerID: sellerID, Date: day, Type: inventoryType}
	for _, inv := range s.inventories {
		if guard.SameInventorySlot(inv, probe) {
			found := s.decorateInventory(inv)
			return &found, nil
		}
	}
	return nil, store.ErrNotFound
}

func (s *Store) CreateInventory(_ context.Context, inv domain.Inventory) (*domain.Inventory, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if inv.ID == "" {
		inv.ID = xid.New("inv")
	}
	if _, dup := guard.FindInventoryDuplicate(s.inventoryList(), inv); dup {
		return nil, domain.ErrDuplicateInventory
	}
	if err := s.checkProductRefs(inv.Items); err != nil {
		return nil, err
	}
	inv.Seller = nil
	inv.Items = s.prepareItems(inv.ID, inv.Items)
	s.inventories[inv.ID] = inv

	created := s.decorateInventory(inv)
	return &created, nil
}

func (s *Store) UpdateInventory(_ context.Context, inv domain.Inventory, replaceItems bool, lock store.LockPolicy) (*domain.Inventory, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	existing, ok := s.inventories[inv.ID]
	if !ok {
		return nil, store.ErrNotFound
	}
	if err := existing.CheckEditable(lock == store.OverrideLock); err != nil {
		return nil, err
	}
	if _, dup := guard.FindInventoryDuplicate(s.inventoryList(), inv); dup {
		return nil, domain.ErrDuplicateInventory
	}

	updated := existing
	updated.Date = inv.Date
	updated.Type = inv.Type
	updated.Notes = inv.Notes
	updated.TotalValue = inv.TotalValue
	updated.UpdatedAt = inv.UpdatedAt
	if replaceItems {
		if err := s.checkProductRefs(inv.Items); err != nil {
			return nil, err
		}
		updated.Items = s.prepareItems(inv.ID, inv.Items)
	}
	s.inventories[inv.ID] = updated

	out := s.decorateInventory(updated)
	return &out, nil
}

func (s *Store) DeleteInventory(_ context.Context, id string, lock store.LockPolicy) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	existing, ok := s.inventories[id]
	if !ok {
		return store.ErrNotFound
	}
	if err := existing.CheckEditable(lock == store.OverrideLock); err != nil {
		return err
	}
	delete(s.inventories, id)
	return nil
}

func (s *Store) RecordSales(_ context.Context, id string, sales []domain.SaleEntry, lock store.LockPolicy, at time.Time) (*domain.Inventory, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	existing, ok := s.inventories[id]
	if !ok {
		return nil, store.ErrNotFound
	}
	if err := existing.CheckEditable(lock == store.OverrideLock); err != nil {
		return nil, err
	}

	items := cloneItems(existing.Items)
	index := make(map[string]int, len(items))
	for i, item := range items {
		index[item.ProductID] = i
	}
	for _, sale := range sales {
		i, ok := index[sale.ProductID]
		if !ok {
			continue
		}
		if sale.SoldQuantity > items[i].Quantity {
			return nil, &domain.OversoldError{
				ProductID:   sale.ProductID,
				ProductName: s.products[sale.ProductID].Name,
				Sold:        sale.SoldQuantity,
				Counted:     items[i].Quantity,
			}
		}
		sold := sale.SoldQuantity
		items[i].SoldQuantity = &sold
	}

	existing.Items = items
	existing.UpdatedAt = at
	s.inventories[id] = existing
	out := s.decorateInventory(existing)
	return &out, nil
}

func (s *Store) ConfirmInventory(_ context.Context, id string, at time.Time) (*domain.Inventory, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	existing, ok := s.inventories[id]
	if !ok {
		return nil, store.ErrNotFound
	}
	if err := domain.Transition(existing.State(), domain.StateConfirmed); err != nil {
		return nil, err
	}
	existing.Confirmed = true
	existing.ConfirmedAt = &at
	existing.UpdatedAt = at
	s.inventories[id] = existing
	out := s.decorateInventory(existing)
	return &out, nil
}

func (s *Store) LatestInventory(_ context.Context, sellerID string, inventoryType string, confirmedOnly bool) (*domain.Inventory, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var latest *domain.Inventory
	for _, inv := range s.inventories {
		if sellerID != "" && inv.SellerID != sellerID {
			continue
		}
		if inv.Type != inventoryType || (confirmedOnly && !inv.Confirmed) {
			continue
		}
		if latest == nil || inv.Date.After(latest.Date) ||
			(inv.Date.Equal(latest.Date) && inv.UpdatedAt.After(latest.UpdatedAt)) {
			candidate := inv
			latest = &candidate
		}
	}
	if latest == nil {
		return nil, store.ErrNotFound
	}
	out := s.decorateInventory(*latest)
	return &out, nil
}

func (s *Store) ProductMovements(_ context.Context, r query.DateRange) ([]domain.ProductMovement, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	byProduct := make(map[string]*domain.ProductMovement)
	for _, inv := range s.inventories {
		if !inv.Confirmed || !r.Contains(inv.Date) {
			continue
		}
		for _, item := range inv.Items {
			p, ok := s.products[item.ProductID]
			if !ok {
				continue
			}
			m, ok := byProduct[p.ID]
			if !ok {
				m = &domain.ProductMovement{
					ProductID:    p.ID,
					ProductName:  p.Name,
					CategoryName: s.categories[p.CategoryID].Name,
					Price:        p.Price,
				}
				byProduct[p.ID] = m
			}
			value := p.Price.Times(item.Quantity)
			switch inv.Type {
			case domain.InventoryOpening:
				m.Opening += item.Quantity
				m.OpeningValue += value
			case domain.InventoryClosing:
				m.Closing += item.Quantity
				m.ClosingValue += value
			}
		}
	}

	result := make([]domain.ProductMovement, 0, len(byProduct))
	for _, m := range byProduct {
		m.SoldQuantity = m.Opening - m.Closing
		m.SalesValue = m.OpeningValue - m.ClosingValue
		result = append(result, *m)
	}
	slices.SortFunc(result, func(a, b domain.ProductMovement) int {
		if c := cmp.Compare(b.SalesValue, a.SalesValue); c != 0 {
			return c
		}
		return cmp.Compare(a.ProductName, b.ProductName)
	})
	return result, nil
}

func (s *Store) inventoryList() []domain.Inventory {
	list := make([]domain.Inventory, 0, len(s.inventories))
	for _, inv := range s.inventories {
		list = append(list, inv)
	}
	return list
}

// checkProductRefs plays the role of the items -> products foreign key.
func (s *Store) checkProductRefs(items []domain.InventoryItem) error {
	for _, item := range items {
		if _, ok := s.products[item.ProductID]; !ok {
			return domain.ErrInvalidOrInactiveProduct
		}
	}
	return nil
}

func (s *Store) prepareItems(inventoryID string, items []domain.InventoryItem) []domain.InventoryItem {
	out := cloneItems(items)
	for i := range out {
		if out[i].ID == "" {
			out[i].ID = xid.New("itm")
		}
		out[i].InventoryID = inventoryID
		out[i].Product = nil
	}
	return out
}

func (s *Store) decorateInventory(inv domain.Inventory) domain.Inventory {
	inv.Items = cloneItems(inv.Items)
	for i := range inv.Items {
		if p, ok := s.products[inv.Items[i].ProductID]; ok {
			summary := p.Summary()
			inv.Items[i].Product = &summary
		}
	}
	if u, ok := s.users[inv.SellerID]; ok {
		summary := u.Summary()
		inv.Seller = &summary
	}
	if inv.ConfirmedAt != nil {
		at := *inv.ConfirmedAt
		inv.ConfirmedAt = &at
	}
	return inv
}

func cloneItems(items []domain.InventoryItem) []domain.InventoryItem {
	out := make([]domain.InventoryItem, len(items))
	copy(out, items)
	for i := range out {
		if out[i].SoldQuantity != nil {
			sold := *out[i].SoldQuantity
			out[i].SoldQuantity = &sold
		}
	}
	return out
}

// ---- schedules ----

func (s *Store) ListSchedules(_ context.Context, filter query.ScheduleFilter) ([]domain.Schedule, int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	matched := make([]domain.Schedule, 0, len(s.schedules))
	for _, sc := range s.schedules {
		if filter.Match(sc) {
			matched = append(matched, s.decorateSchedule(sc))
		}
	}
	sortBy(matched, filter.Sort.Desc, func(a, b domain.Schedule) int {
		switch filter.Sort.Field {
		case "startTime":
			as, _ := a.Span()
			bs, _ := b.Span()
			return cmp.Compare(as, bs)
		case "endTime":
			_, ae := a.Span()
			_, be := b.Span()
			return cmp.Compare(ae, be)
		case "createdAt":
			return a.CreatedAt.Compare(b.CreatedAt)
		case "updatedAt":
			return a.UpdatedAt.Compare(b.UpdatedAt)
		default:
			if c := a.Date.Compare(b.Date.Time); c != 0 {
				return c
			}
			as, _ := a.Span()
			bs, _ := b.Span()
			return cmp.Compare(as, bs)
		}
	}, func(sc domain.Schedule) string { return sc.ID })
	return query.Slice(matched, filter.Page), len(matched), nil
}

func (s *Store) GetSchedule(_ context.Context, id string) (*domain.Schedule, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	sc, ok := s.schedules[id]
	if !ok {
		return nil, store.ErrNotFound
	}
	sc = s.decorateSchedule(sc)
	return &sc, nil
}

func (s *Store) CreateSchedule(_ context.Context, schedule domain.Schedule) (*domain.Schedule, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if schedule.ID == "" {
		schedule.ID = xid.New("sch")
	}
	if _, ok := s.users[schedule.SellerID]; !ok {
		return nil, domain.ErrSellerNotFound
	}
	if _, conflict := guard.FindScheduleConflict(s.scheduleList(), schedule); conflict {
		return nil, domain.ErrScheduleConflict
	}
	schedule.Seller = nil
	s.schedules[schedule.ID] = schedule
	out := s.decorateSchedule(schedule)
	return &out, nil
}

func (s *Store) UpdateSchedule(_ context.Context, schedule domain.Schedule) (*domain.Schedule, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	existing, ok := s.schedules[schedule.ID]
	if !ok {
		return nil, store.ErrNotFound
	}
	if _, conflict := guard.FindScheduleConflict(s.scheduleList(), schedule); conflict {
		return nil, domain.ErrScheduleConflict
	}
	schedule.CreatedAt = existing.CreatedAt
	schedule.Seller = nil
	s.schedules[schedule.ID] = schedule
	out := s.decorateSchedule(schedule)
	return &out, nil
}

func (s *Store) DeleteSchedule(_ context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.schedules[id]; !ok {
		return store.ErrNotFound
	}
	delete(s.schedules, id)
	return nil
}

func (s *Store) scheduleList() []domain.Schedule {
	list := make([]domain.Schedule, 0, len(s.schedules))
	for _, sc := range s.schedules {
		list = append(list, sc)
	}
	return list
}

func (s *Store) decorateSchedule(sc domain.Schedule) domain.Schedule {
	if u, ok := s.users[sc.SellerID]; ok {
		summary := u.Summary()
		sc.Seller = &summary
	}
	return sc
}

// ---- users ----

func (s *Store) ListUsers(_ context.Context, filter query.UserFilter) ([]domain.User, int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	matched := make([]domain.User, 0, len(s.users))
	for _, u := range s.users {
		if filter.Match(u) {
			matched = append(matched, u)
		}
	}
	sortBy(matched, filter.Sort.Desc, func(a, b domain.User) int {
		switch filter.Sort.Field {
		case "lastName":
			return cmp.Compare(strings.ToLower(a.LastName), strings.ToLower(b.LastName))
		case "createdAt":
			return a.CreatedAt.Compare(b.CreatedAt)
		case "updatedAt":
			return a.UpdatedAt.Compare(b.UpdatedAt)
		default:
			return cmp.Compare(strings.ToLower(a.Username), strings.ToLower(b.Username))
		}
	}, func(u domain.User) string { return u.ID })
	return query.Slice(matched, filter.Page), len(matched), nil
}

func (s *Store) GetUser(_ context.Context, id string) (*domain.User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	u, ok := s.users[id]
	if !ok {
		return nil, store.ErrNotFound
	}
	return &u, nil
}

func (s *Store) GetUserByLogin(_ context.Context, login string) (*domain.User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	login = strings.TrimSpace(login)
	if login == "" {
		return nil, store.ErrNotFound
	}
	for _, u := range s.users {
		if strings.EqualFold(u.Username, login) || strings.EqualFold(u.Email, login) {
			found := u
			return &found, nil
		}
	}
	return nil, store.ErrNotFound
}

func (s *Store) CreateUser(_ context.Context, user domain.User) (*domain.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if user.ID == "" {
		user.ID = xid.New("usr")
	}
	if s.userIdentityTaken(user) {
		return nil, domain.ErrDuplicateUser
	}
	s.users[user.ID] = user
	return &user, nil
}

func (s *Store) UpdateUser(_ context.Context, user domain.User) (*domain.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	existing, ok := s.users[user.ID]
	if !ok {
		return nil, store.ErrNotFound
	}
	if s.userIdentityTaken(user) {
		return nil, domain.ErrDuplicateUser
	}
	user.CreatedAt = existing.CreatedAt
	user.LastLoginAt = existing.LastLoginAt
	s.users[user.ID] = user
	return &user, nil
}

func (s *Store) TouchLastLogin(_ context.Context, id string, at time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	u, ok := s.users[id]
	if !ok {
		return store.ErrNotFound
	}
	u.LastLoginAt = &at
	s.users[id] = u
	return nil
}

func (s *Store) DeleteUser(_ context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.users[id]; !ok {
		return store.ErrNotFound
	}
	for _, inv := range s.inventories {
		if inv.SellerID == id {
			return domain.ErrUserInUse
		}
	}
	for sid, sc := range s.schedules {
		if sc.SellerID == id {
			delete(s.schedules, sid)
		}
	}
	delete(s.users, id)
	return nil
}

func (s *Store) userIdentityTaken(user domain.User) bool {
	for id, u := range s.users {
		if id == user.ID {
			continue
		}
		if strings.EqualFold(u.Username, user.Username) || strings.EqualFold(u.Email, user.Email) {
			return true
		}
	}
	return false
}

// ---- audit ----

func (s *Store) CreateAuditLog(_ context.Context, entry domain.AuditLog) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if entry.ID == "" {
		entry.ID = xid.New("audit")
	}
	s.auditLogs = append(s.auditLogs, entry)
	return nil
}

func (s *Store) ListAuditLogs(_ context.Context, from time.Time, to time.Time, limit int) ([]domain.AuditLog, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	result := make([]domain.AuditLog, 0, 16)
	for i := len(s.auditLogs) - 1; i >= 0; i-- {
		entry := s.auditLogs[i]
		if entry.CreatedAt.Before(from) || !entry.CreatedAt.Before(to) {
			continue
		}
		result = append(result, entry)
		if limit > 0 && len(result) >= limit {
			break
		}
	}
	return result, nil
}

// sortBy orders items by compare, reversed when desc, with id as a stable
// tiebreak so pages never overlap.
func sortBy[T any](items []T, desc bool, compare func(a, b T) int, id func(T) string) {
	sort.SliceStable(items, func(i, j int) bool {
		c := compare(items[i], items[j])
		if c == 0 {
			c = cmp.Compare(id(items[i]), id(items[j]))
		}
		if desc {
			return c > 0
		}
		return c < 0
	})
}
