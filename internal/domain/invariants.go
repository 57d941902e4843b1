package domain

import (
	"fmt"
	"regexp"
	"strings"
	"unicode/utf8"
)

// InvariantError is a rule an entity broke right before it was persisted.
type InvariantError struct {
	Field   string
	Message string
}

func (e *InvariantError) Error() string {
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}

func invariant(field string, format string, args ...any) error {
	return &InvariantError{Field: field, Message: fmt.Sprintf(format, args...)}
}

var (
	colorPattern    = regexp.MustCompile(`^#([A-Fa-f0-9]{6}|[A-Fa-f0-9]{3})$`)
	usernamePattern = regexp.MustCompile(`^[a-zA-Z0-9_]+$`)
)

func IsColor(raw string) bool {
	return colorPattern.MatchString(raw)
}

func IsUsername(raw string) bool {
	return usernamePattern.MatchString(raw)
}

// MaxItemQuantity bounds a counted or sold quantity. It keeps values inside
// the INTEGER item columns and quantity x price inside Money.
const MaxItemQuantity = 1_000_000

func IsInventoryType(t string) bool {
	return t == InventoryOpening || t == InventoryClosing
}

func IsScheduleType(t string) bool {
	return t == ScheduleWork || t == ScheduleLeave || t == ScheduleSick
}

func IsUnit(u string) bool {
	switch u {
	case UnitPiece, UnitKg, UnitLitre, UnitPackage:
		return true
	}
	return false
}

func IsRole(r string) bool {
	return r == RoleAdmin || r == RoleSeller
}

func checkLength(field string, value string, minLen int, maxLen int) error {
	n := utf8.RuneCountInString(value)
	if n < minLen || n > maxLen {
		if minLen > 0 {
			return invariant(field, "must be between %d and %d characters", minLen, maxLen)
		}
		return invariant(field, "must be at most %d characters", maxLen)
	}
	return nil
}

func (c Category) Validate() error {
	if err := checkLength("name", strings.TrimSpace(c.Name), 1, 100); err != nil {
		return err
	}
	if err := checkLength("description", c.Description, 0, 500); err != nil {
		return err
	}
	if !IsColor(c.Color) {
		return invariant("color", "must be a hex color (#RGB or #RRGGBB)")
	}
	return nil
}

func (p Product) Validate() error {
	if err := checkLength("name", strings.TrimSpace(p.Name), 1, 100); err != nil {
		return err
	}
	if err := checkLength("description", p.Description, 0, 500); err != nil {
		return err
	}
	if p.Price < 0 {
		return invariant("price", "must not be negative")
	}
	if !IsUnit(p.Unit) {
		return invariant("unit", "must be one of piece, kg, litre, package")
	}
	if strings.TrimSpace(p.CategoryID) == "" {
		return invariant("categoryId", "is required")
	}
	if p.MinStock < 0 {
		return invariant("minStock", "must not be negative")
	}
	return nil
}

// Validate checks the header and every line: quantities are non-negative,
// sold never exceeds counted and a product appears at most once.
func (inv Inventory) Validate() error {
	if !IsInventoryType(inv.Type) {
		return invariant("type", "must be opening or closing")
	}
	if inv.Date.IsZero() {
		return invariant("date", "is required")
	}
	if strings.TrimSpace(inv.SellerID) == "" {
		return invariant("sellerId", "is required")
	}
	if err := checkLength("notes", inv.Notes, 0, 500); err != nil {
		return err
	}
	if inv.TotalValue < 0 {
		return invariant("totalValue", "must not be negative")
	}
	seen := make(map[string]struct{}, len(inv.Items))
	for i, item := range inv.Items {
		field := fmt.Sprintf("items[%d]", i)
		if _, dup := seen[item.ProductID]; dup {
			return &InvariantError{Field: field + ".productId", Message: ErrDuplicateProduct.Error()}
		}
		seen[item.ProductID] = struct{}{}
		if item.Quantity < 0 {
			return invariant(field+".quantity", "must not be negative")
		}
		if item.Quantity > MaxItemQuantity {
			return invariant(field+".quantity", "must not exceed %d", MaxItemQuantity)
		}
		if item.SoldQuantity != nil {
			if *item.SoldQuantity < 0 {
				return invariant(field+".soldQuantity", "must not be negative")
			}
			if *item.SoldQuantity > item.Quantity {
				return invariant(field+".soldQuantity", "must not exceed quantity (%d)", item.Quantity)
			}
		}
		if err := checkLength(field+".notes", item.Notes, 0, 200); err != nil {
			return err
		}
	}
	return nil
}

func (s Schedule) Validate() error {
	if !IsScheduleType(s.Type) {
		return invariant("type", "must be work, leave or sick")
	}
	if s.Date.IsZero() {
		return invariant("date", "is required")
	}
	if strings.TrimSpace(s.SellerID) == "" {
		return invariant("sellerId", "is required")
	}
	if (s.StartTime == nil) != (s.EndTime == nil) {
		return invariant("endTime", "start and end time must be given together")
	}
	if s.Type == ScheduleWork && s.StartTime == nil {
		return invariant("startTime", "is required for work entries")
	}
	if s.StartTime != nil && *s.StartTime >= *s.EndTime {
		return invariant("endTime", "must be after start time")
	}
	if err := checkLength("location", s.Location, 0, 100); err != nil {
		return err
	}
	return checkLength("notes", s.Notes, 0, 500)
}

func (u User) Validate() error {
	if err := checkLength("username", u.Username, 3, 50); err != nil {
		return err
	}
	if !IsUsername(u.Username) {
		return invariant("username", "may only contain letters, digits and underscores")
	}
	if !strings.Contains(u.Email, "@") {
		return invariant("email", "must be a valid email address")
	}
	if u.PasswordHash == "" {
		return invariant("password", "is required")
	}
	if !IsRole(u.Role) {
		return invariant("role", "must be admin or seller")
	}
	if err := checkLength("firstName", u.FirstName, 0, 50); err != nil {
		return err
	}
	return checkLength("lastName", u.LastName, 0, 50)
}
