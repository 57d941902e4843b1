// Package query holds the typed list filters shared by every store: date
// ranges, equality filters, text search, pagination and sort whitelists.
package query

import (
	"math"
	"net/url"
	"strconv"
	"strings"

	"github.com/Najinc/painperdu/internal/domain"
)

type DateRange struct {
	From *domain.Date
	To   *domain.Date
}

// Day returns a range covering a single calendar day.
func Day(d domain.Date) DateRange {
	return DateRange{From: &d, To: &d}
}

func Between(from domain.Date, to domain.Date) DateRange {
	return DateRange{From: &from, To: &to}
}

// ParseDateRange parses optional inclusive bounds.
func ParseDateRange(from string, to string) (DateRange, error) {
	var r DateRange
	if strings.TrimSpace(from) != "" {
		d, err := domain.ParseDate(from)
		if err != nil {
			return DateRange{}, err
		}
		r.From = &d
	}
	if strings.TrimSpace(to) != "" {
		d, err := domain.ParseDate(to)
		if err != nil {
			return DateRange{}, err
		}
		r.To = &d
	}
	if r.From != nil && r.To != nil && r.From.After(*r.To) {
		return DateRange{}, domain.ErrInvalidDateRange
	}
	return r, nil
}

func (r DateRange) Contains(d domain.Date) bool {
	if r.From != nil && d.Before(*r.From) {
		return false
	}
	if r.To != nil && d.After(*r.To) {
		return false
	}
	return true
}

func (r DateRange) IsZero() bool {
	return r.From == nil && r.To == nil
}

// Page is a 1-based page. Size 0 means no limit.
type Page struct {
	Number int
	Size   int
}

// normalized also caps Number so the end of the page, Number*Size, fits in
// an int.
func (p Page) normalized() Page {
	if p.Number < 1 {
		p.Number = 1
	}
	if p.Size < 0 {
		p.Size = 0
	}
	if p.Size > 0 && p.Number > math.MaxInt/p.Size {
		p.Number = math.MaxInt / p.Size
	}
	return p
}

func (p Page) Offset() int {
	p = p.normalized()
	if p.Size == 0 {
		return 0
	}
	return (p.Number - 1) * p.Size
}

func (p Page) Unbounded() bool {
	return p.Size <= 0
}

func (p Page) Paginate(total int) domain.Pagination {
	p = p.normalized()
	size := p.Size
	if size == 0 {
		size = total
	}
	pages := 0
	if size > 0 {
		pages = (total + size - 1) / size
	}
	return domain.Pagination{
		CurrentPage:  p.Number,
		TotalPages:   pages,
		TotalItems:   total,
		ItemsPerPage: size,
	}
}

// Slice applies the page to an already filtered and sorted slice.
func Slice[T any](items []T, p Page) []T {
	if p.Unbounded() {
		return items
	}
	start := p.Offset()
	if start < 0 || start >= len(items) {
		return []T{}
	}
	end := start + p.Size
	if end > len(items) {
		end = len(items)
	}
	return items[start:end]
}

func ParsePage(values url.Values, defaultSize int, maxSize int) Page {
	page := Page{Number: 1, Size: defaultSize}
	if n, err := strconv.Atoi(strings.TrimSpace(values.Get("page"))); err == nil && n > 0 {
		page.Number = n
	}
	if n, err := strconv.Atoi(strings.TrimSpace(values.Get("limit"))); err == nil && n > 0 {
		page.Size = n
	}
	if maxSize > 0 && page.Size > maxSize {
		page.Size = maxSize
	}
	return page.normalized()
}

type Sort struct {
	Field string
	Desc  bool
}

// ParseSort keeps field only when whitelisted. Order is ASC or DESC, case
// insensitive; anything else keeps the default direction.
func ParseSort(field string, order string, allowed []string, def Sort) Sort {
	s := def
	field = strings.TrimSpace(field)
	for _, a := range allowed {
		if a == field {
			s.Field = field
			break
		}
	}
	switch strings.ToUpper(strings.TrimSpace(order)) {
	case "ASC":
		s.Desc = false
	case "DESC":
		s.Desc = true
	}
	return s
}

// ParseBool returns nil for an empty or unparsable value.
func ParseBool(raw string) *bool {
	v, err := strconv.ParseBool(strings.TrimSpace(raw))
	if err != nil {
		return nil
	}
	return &v
}

func containsFold(haystack string, needle string) bool {
	return strings.Contains(strings.ToLower(haystack), strings.ToLower(needle))
}

var (
	InventorySorts = []string{"date", "createdAt", "updatedAt"}
	ProductSorts   = []string{"name", "price", "createdAt", "updatedAt"}
	ScheduleSorts  = []string{"date", "startTime", "endTime", "createdAt", "updatedAt"}
	UserSorts      = []string{"username", "lastName", "createdAt", "updatedAt"}
)

type InventoryFilter struct {
	SellerID  string
	Type      string
	Confirmed *bool
	Range     DateRange
	Page      Page
	Sort      Sort
}

func (f InventoryFilter) Match(inv domain.Inventory) bool {
	if f.SellerID != "" && inv.SellerID != f.SellerID {
		return false
	}
	if f.Type != "" && inv.Type != f.Type {
		return false
	}
	if f.Confirmed != nil && inv.Confirmed != *f.Confirmed {
		return false
	}
	return f.Range.Contains(inv.Date)
}

type ProductFilter struct {
	CategoryID string
	Active     *bool
	Search     string
	Page       Page
	Sort       Sort
}

func (f ProductFilter) Match(p domain.Product) bool {
	if f.CategoryID != "" && p.CategoryID != f.CategoryID {
		return false
	}
	if f.Active != nil && p.Active != *f.Active {
		return false
	}
	if f.Search != "" && !containsFold(p.Name, f.Search) && !containsFold(p.Description, f.Search) {
		return false
	}
	return true
}

type CategoryFilter struct {
	Active *bool
	Search string
}

func (f CategoryFilter) Match(c domain.Category) bool {
	if f.Active != nil && c.Active != *f.Active {
		return false
	}
	if f.Search != "" && !containsFold(c.Name, f.Search) && !containsFold(c.Description, f.Search) {
		return false
	}
	return true
}

type ScheduleFilter struct {
	SellerID string
	Type     string
	Active   *bool
	Range    DateRange
	Page     Page
	Sort     Sort
}

func (f ScheduleFilter) Match(s domain.Schedule) bool {
	if f.SellerID != "" && s.SellerID != f.SellerID {
		return false
	}
	if f.Type != "" && s.Type != f.Type {
		return false
	}
	if f.Active != nil && s.Active != *f.Active {
		return false
	}
	return f.Range.Contains(s.Date)
}

type UserFilter struct {
	Role   string
	Active *bool
	Search string
	Page   Page
	Sort   Sort
}

func (f UserFilter) Match(u domain.User) bool {
	if f.Role != "" && u.Role != f.Role {
		return false
	}
	if f.Active != nil && u.Active != *f.Active {
		return false
	}
	if f.Search != "" &&
		!containsFold(u.Username, f.Search) &&
		!containsFold(u.Email, f.Search) &&
		!containsFold(u.FirstName, f.Search) &&
		!containsFold(u.LastName, f.Search) {
		return false
	}
	return true
}
