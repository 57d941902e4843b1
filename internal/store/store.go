package store

import (
	"context"
	"errors"
	"time"

	"github.com/Najinc/painperdu/internal/domain"
	"github.com/Najinc/painperdu/internal/query"
)

var (
	ErrNotFound = errors.New("not found")
	// ErrConflict reports a unique constraint violation not covered by a
	// more specific domain error.
	ErrConflict = errors.New("conflict")
)

// LockPolicy tells inventory writes whether the confirmed lock applies.
type LockPolicy int

const (
	EnforceLock LockPolicy = iota
	OverrideLock
)

type CategoryRepository interface {
	ListCategories(ctx context.Context, filter query.CategoryFilter) ([]domain.Category, error)
	GetCategory(ctx context.Context, id string) (*domain.Category, error)
	CreateCategory(ctx context.Context, category domain.Category) (*domain.Category, error)
	UpdateCategory(ctx context.Context, category domain.Category) (*domain.Category, error)
	// DeactivateCategory soft-deletes a category, failing with
	// domain.ErrCategoryInUse while active products reference it.
	DeactivateCategory(ctx context.Context, id string, at time.Time) error
}

type ProductRepository interface {
	ListProducts(ctx context.Context, filter query.ProductFilter) ([]domain.Product, int, error)
	GetProduct(ctx context.Context, id string) (*domain.Product, error)
	// GetProductsByIDs returns every requested product that exists, active
	// or not.
	GetProductsByIDs(ctx context.Context, ids []string) (map[string]domain.Product, error)
	CreateProduct(ctx context.Context, product domain.Product) (*domain.Product, error)
	UpdateProduct(ctx context.Context, product domain.Product) (*domain.Product, error)
	// DeleteProduct removes the product, failing with domain.ErrProductInUse
	// when any inventory item references it.
	DeleteProduct(ctx context.Context, id string) error
}

type InventoryRepository interface {
	ListInventories(ctx context.Context, filter query.InventoryFilter) ([]domain.Inventory, int, error)
	GetInventory(ctx context.Context, id string) (*domain.Inventory, error)
	FindInventory(ctx context.Context, sellerID string, day domain.Date, inventoryType string) (*domain.Inventory, error)
	// CreateInventory writes the header and its items atomically. The
	// (date, type, seller) slot is enforced here: domain.ErrDuplicateInventory.
	CreateInventory(ctx context.Context, inv domain.Inventory) (*domain.Inventory, error)
	// UpdateInventory rewrites the header and, when replaceItems is set,
	// swaps the whole item set in the same transaction.
	UpdateInventory(ctx context.Context, inv domain.Inventory, replaceItems bool, lock LockPolicy) (*domain.Inventory, error)
	DeleteInventory(ctx context.Context, id string, lock LockPolicy) error
	// RecordSales applies every entry or none; *domain.OversoldError on the
	// first line that cannot absorb its sales.
	RecordSales(ctx context.Context, id string, sales []domain.SaleEntry, lock LockPolicy, at time.Time) (*domain.Inventory, error)
	// ConfirmInventory flips draft to confirmed, domain.ErrAlreadyConfirmed
	// if it was confirmed already.
	ConfirmInventory(ctx context.Context, id string, at time.Time) (*domain.Inventory, error)
	// LatestInventory returns the most recent inventory of the given type,
	// optionally restricted to one seller and to confirmed records.
	LatestInventory(ctx context.Context, sellerID string, inventoryType string, confirmedOnly bool) (*domain.Inventory, error)
	// ProductMovements aggregates opening and closing quantities per
	// product over confirmed inventories in the range.
	ProductMovements(ctx context.Context, r query.DateRange) ([]domain.ProductMovement, error)
}

type ScheduleRepository interface {
	ListSchedules(ctx context.Context, filter query.ScheduleFilter) ([]domain.Schedule, int, error)
	GetSchedule(ctx context.Context, id string) (*domain.Schedule, error)
	// CreateSchedule and UpdateSchedule re-run the overlap check inside the
	// write: domain.ErrScheduleConflict.
	CreateSchedule(ctx context.Context, schedule domain.Schedule) (*domain.Schedule, error)
	UpdateSchedule(ctx context.Context, schedule domain.Schedule) (*domain.Schedule, error)
	DeleteSchedule(ctx context.Context, id string) error
}

type UserRepository interface {
	ListUsers(ctx context.Context, filter query.UserFilter) ([]domain.User, int, error)
	GetUser(ctx context.Context, id string) (*domain.User, error)
	// GetUserByLogin matches username or email, case-insensitively.
	GetUserByLogin(ctx context.Context, login string) (*domain.User, error)
	CreateUser(ctx context.Context, user domain.User) (*domain.User, error)
	UpdateUser(ctx context.Context, user domain.User) (*domain.User, error)
	TouchLastLogin(ctx context.Context, id string, at time.Time) error
	// DeleteUser fails with domain.ErrUserInUse while inventories exist.
	DeleteUser(ctx context.Context, id string) error
}

type AuditRepository interface {
	CreateAuditLog(ctx context.Context, entry domain.AuditLog) error
	ListAuditLogs(ctx context.Context, from time.Time, to time.Time, limit int) ([]domain.AuditLog, error)
}

type Repository interface {
	CategoryRepository
	ProductRepository
	InventoryRepository
	ScheduleRepository
	UserRepository
	AuditRepository
}
