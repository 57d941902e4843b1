package domain

import (
	"errors"
	"fmt"
)

// Business rule violations. Each maps to a 400 response unless noted.
var (
	ErrDuplicateInventory       = errors.New("an inventory of this type already exists for this seller and date")
	ErrInventoryLocked          = errors.New("inventory is confirmed and can no longer be modified")
	ErrAlreadyConfirmed         = errors.New("inventory is already confirmed")
	ErrOversoldQuantity         = errors.New("sold quantity exceeds counted quantity")
	ErrInvalidOrInactiveProduct = errors.New("one or more products are invalid or inactive")
	ErrDuplicateProduct         = errors.New("a product item appears more than once")
	ErrScheduleConflict         = errors.New("schedule overlaps an existing entry for this seller")
	ErrCategoryInUse            = errors.New("category still has active products")
	ErrCategoryNotFound         = errors.New("category does not exist")
	ErrProductInUse             = errors.New("product is referenced by inventory items")
	ErrDuplicateName            = errors.New("name is already in use")
	ErrDuplicateUser            = errors.New("username or email is already in use")
	ErrUserInUse                = errors.New("user owns inventories and cannot be deleted")
	ErrSelfDelete               = errors.New("you cannot delete your own account")
	ErrSellerNotFound           = errors.New("seller does not exist or is inactive")
	ErrInvalidDateRange         = errors.New("start date must not be after end date")
	ErrValueOutOfRange          = errors.New("inventory value is out of range")

	// ErrForbidden maps to 403.
	ErrForbidden = errors.New("access denied")
	// ErrUnauthenticated and ErrInvalidCredentials map to 401.
	ErrUnauthenticated    = errors.New("authentication required")
	ErrInvalidCredentials = errors.New("invalid credentials")
	ErrAccountInactive    = errors.New("account is inactive")
)

// OversoldError names the line that could not absorb the recorded sales.
type OversoldError struct {
	ProductID   string
	ProductName string
	Sold        int
	Counted     int
}

func (e *OversoldError) Error() string {
	name := e.ProductName
	if name == "" {
		name = e.ProductID
	}
	return fmt.Sprintf("sold quantity (%d) exceeds counted quantity (%d) for %s", e.Sold, e.Counted, name)
}

func (e *OversoldError) Unwrap() error {
	return ErrOversoldQuantity
}
