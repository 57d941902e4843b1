package domain

import "time"

const (
	RoleAdmin  = "admin"
	RoleSeller = "seller"
)

const (
	InventoryOpening = "opening"
	InventoryClosing = "closing"
)

const (
	ScheduleWork  = "work"
	ScheduleLeave = "leave"
	ScheduleSick  = "sick"
)

const (
	UnitPiece   = "piece"
	UnitKg      = "kg"
	UnitLitre   = "litre"
	UnitPackage = "package"
)

const DefaultCategoryColor = "#e27d28"

type Actor struct {
	UserID   string `json:"userId"`
	Username string `json:"username"`
	Role     string `json:"role"`
}

func (a Actor) IsAdmin() bool {
	return a.Role == RoleAdmin
}

type Pagination struct {
	CurrentPage  int `json:"currentPage"`
	TotalPages   int `json:"totalPages"`
	TotalItems   int `json:"totalItems"`
	ItemsPerPage int `json:"itemsPerPage"`
}

type Category struct {
	ID          string    `json:"id"`
	Name        string    `json:"name"`
	Description string    `json:"description,omitempty"`
	Color       string    `json:"color"`
	Active      bool      `json:"isActive"`
	CreatedBy   string    `json:"createdBy,omitempty"`
	CreatedAt   time.Time `json:"createdAt"`
	UpdatedAt   time.Time `json:"updatedAt"`
}

type CategorySummary struct {
	ID    string `json:"id"`
	Name  string `json:"name"`
	Color string `json:"color"`
}

type Product struct {
	ID          string           `json:"id"`
	Name        string           `json:"name"`
	Description string           `json:"description,omitempty"`
	Price       Money            `json:"price"`
	Unit        string           `json:"unit"`
	CategoryID  string           `json:"categoryId"`
	Category    *CategorySummary `json:"category,omitempty"`
	MinStock    int              `json:"minStock"`
	Active      bool             `json:"isActive"`
	CreatedBy   string           `json:"createdBy,omitempty"`
	CreatedAt   time.Time        `json:"createdAt"`
	UpdatedAt   time.Time        `json:"updatedAt"`
}

func (p Product) Summary() ProductSummary {
	return ProductSummary{ID: p.ID, Name: p.Name, Price: p.Price, Unit: p.Unit, Active: p.Active}
}

type ProductSummary struct {
	ID     string `json:"id"`
	Name   string `json:"name"`
	Price  Money  `json:"price"`
	Unit   string `json:"unit"`
	Active bool   `json:"isActive"`
}

type UserSummary struct {
	ID        string `json:"id"`
	Username  string `json:"username"`
	FirstName string `json:"firstName,omitempty"`
	LastName  string `json:"lastName,omitempty"`
}

func (u UserSummary) DisplayName() string {
	switch {
	case u.FirstName != "" && u.LastName != "":
		return u.FirstName + " " + u.LastName
	case u.FirstName != "":
		return u.FirstName
	case u.LastName != "":
		return u.LastName
	default:
		return u.Username
	}
}

type Inventory struct {
	ID          string          `json:"id"`
	Date        Date            `json:"date"`
	Type        string          `json:"type"`
	SellerID    string          `json:"sellerId"`
	Seller      *UserSummary    `json:"seller,omitempty"`
	Notes       string          `json:"notes,omitempty"`
	TotalValue  Money           `json:"totalValue"`
	Confirmed   bool            `json:"isConfirmed"`
	ConfirmedAt *time.Time      `json:"confirmedAt,omitempty"`
	CreatedAt   time.Time       `json:"createdAt"`
	UpdatedAt   time.Time       `json:"updatedAt"`
	Items       []InventoryItem `json:"items"`
}

type InventoryItem struct {
	ID           string          `json:"id"`
	InventoryID  string          `json:"inventoryId"`
	ProductID    string          `json:"productId"`
	Quantity     int             `json:"quantity"`
	SoldQuantity *int            `json:"soldQuantity,omitempty"`
	Notes        string          `json:"notes,omitempty"`
	Product      *ProductSummary `json:"product,omitempty"`
}

func (it InventoryItem) Sold() int {
	if it.SoldQuantity == nil {
		return 0
	}
	return *it.SoldQuantity
}

// ItemCount is one counted line submitted for valuation.
type ItemCount struct {
	ProductID string
	Quantity  int
}

type SaleEntry struct {
	ProductID    string
	SoldQuantity int
}

type InventoryTotals struct {
	TotalQuantity     int   `json:"totalQuantity"`
	TotalSold         int   `json:"totalSold"`
	TotalRevenue      Money `json:"totalRevenue"`
	RemainingQuantity int   `json:"remainingQuantity"`
}

type InventoryView struct {
	Inventory
	Totals InventoryTotals `json:"totals"`
}

type InventoryList struct {
	Inventories []InventoryView `json:"inventories"`
	Pagination  Pagination      `json:"pagination"`
}

type StockLine struct {
	ProductID string `json:"productId"`
	Name      string `json:"name"`
	Unit      string `json:"unit"`
	Price     Money  `json:"price"`
	Quantity  int    `json:"quantity"`
	Value     Money  `json:"value"`
}

// CurrentStock is the content of the latest confirmed closing count. The
// zero value, with no LastUpdate, means no closing count exists yet.
type CurrentStock struct {
	InventoryID string       `json:"inventoryId,omitempty"`
	LastUpdate  *Date        `json:"lastUpdate"`
	UpdatedBy   *UserSummary `json:"updatedBy,omitempty"`
	Stock       []StockLine  `json:"stock"`
	TotalValue  Money        `json:"totalValue"`
}

type Schedule struct {
	ID        string       `json:"id"`
	SellerID  string       `json:"sellerId"`
	Seller    *UserSummary `json:"seller,omitempty"`
	Date      Date         `json:"date"`
	Type      string       `json:"type"`
	StartTime *ClockTime   `json:"startTime,omitempty"`
	EndTime   *ClockTime   `json:"endTime,omitempty"`
	Location  string       `json:"location,omitempty"`
	Notes     string       `json:"notes,omitempty"`
	Active    bool         `json:"isActive"`
	CreatedAt time.Time    `json:"createdAt"`
	UpdatedAt time.Time    `json:"updatedAt"`
}

// Span returns the occupied range of the day. Entries without times occupy
// the whole day.
func (s Schedule) Span() (ClockTime, ClockTime) {
	if s.StartTime == nil || s.EndTime == nil {
		return 0, EndOfDay
	}
	return *s.StartTime, *s.EndTime
}

type ScheduleList struct {
	Schedules  []Schedule `json:"schedules"`
	Pagination Pagination `json:"pagination"`
}

type DaySchedule struct {
	Date      Date       `json:"date"`
	Weekday   string     `json:"weekday"`
	Schedules []Schedule `json:"schedules"`
}

type WeekSchedule struct {
	WeekStart Date          `json:"weekStart"`
	WeekEnd   Date          `json:"weekEnd"`
	Days      []DaySchedule `json:"days"`
}

type User struct {
	ID           string     `json:"id"`
	Username     string     `json:"username"`
	Email        string     `json:"email"`
	PasswordHash string     `json:"-"`
	Role         string     `json:"role"`
	FirstName    string     `json:"firstName,omitempty"`
	LastName     string     `json:"lastName,omitempty"`
	Active       bool       `json:"isActive"`
	LastLoginAt  *time.Time `json:"lastLoginAt,omitempty"`
	CreatedAt    time.Time  `json:"createdAt"`
	UpdatedAt    time.Time  `json:"updatedAt"`
}

func (u User) Summary() UserSummary {
	return UserSummary{ID: u.ID, Username: u.Username, FirstName: u.FirstName, LastName: u.LastName}
}

type UserList struct {
	Users      []User     `json:"users"`
	Pagination Pagination `json:"pagination"`
}

type ProductList struct {
	Products   []Product  `json:"products"`
	Pagination Pagination `json:"pagination"`
}

type AuditLog struct {
	ID            string    `json:"id"`
	ActorID       string    `json:"actorId"`
	ActorUsername string    `json:"actorUsername"`
	ActorRole     string    `json:"actorRole"`
	Action        string    `json:"action"`
	EntityType    string    `json:"entityType"`
	EntityID      string    `json:"entityId"`
	Detail        string    `json:"detail"`
	CreatedAt     time.Time `json:"createdAt"`
}

type LoginRequest struct {
	Login    string `json:"login"`
	Username string `json:"username"`
	Email    string `json:"email"`
	Password string `json:"password" validate:"required"`
}

// Identifier returns the first non-empty of login, username and email.
func (r LoginRequest) Identifier() string {
	for _, v := range []string{r.Login, r.Username, r.Email} {
		if v != "" {
			return v
		}
	}
	return ""
}

type LoginResponse struct {
	Token     string `json:"token"`
	ExpiresAt string `json:"expiresAt"`
	User      User   `json:"user"`
}
