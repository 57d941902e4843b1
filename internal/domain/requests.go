package domain

// Request payloads. Shape and range rules live in the validate tags and are
// checked by the validate package before any storage access.

type CategoryCreateRequest struct {
	Name        string `json:"name" validate:"required,min=1,max=100"`
	Description string `json:"description" validate:"max=500"`
	Color       string `json:"color" validate:"omitempty,color"`
}

type CategoryUpdateRequest struct {
	Name        *string `json:"name" validate:"omitempty,min=1,max=100"`
	Description *string `json:"description" validate:"omitempty,max=500"`
	Color       *string `json:"color" validate:"omitempty,color"`
	Active      *bool   `json:"isActive"`
}

type ProductCreateRequest struct {
	Name        string `json:"name" validate:"required,min=1,max=100"`
	Description string `json:"description" validate:"max=500"`
	Price       *Money `json:"price" validate:"required,min=0"`
	Unit        string `json:"unit" validate:"omitempty,oneof=piece kg litre package"`
	CategoryID  string `json:"categoryId" validate:"required"`
	MinStock    int    `json:"minStock" validate:"min=0"`
}

type ProductUpdateRequest struct {
	Name        *string `json:"name" validate:"omitempty,min=1,max=100"`
	Description *string `json:"description" validate:"omitempty,max=500"`
	Price       *Money  `json:"price" validate:"omitempty,min=0"`
	Unit        *string `json:"unit" validate:"omitempty,oneof=piece kg litre package"`
	CategoryID  *string `json:"categoryId" validate:"omitempty,min=1"`
	MinStock    *int    `json:"minStock" validate:"omitempty,min=0"`
	Active      *bool   `json:"isActive"`
}

type InventoryItemInput struct {
	ProductID    string `json:"productId" validate:"required"`
	Quantity     *int   `json:"quantity" validate:"required,min=0,max=1000000"`
	SoldQuantity *int   `json:"soldQuantity" validate:"omitempty,min=0,max=1000000"`
	Notes        string `json:"notes" validate:"max=200"`
}

type InventoryCreateRequest struct {
	Date     string               `json:"date" validate:"required,isodate"`
	Type     string               `json:"type" validate:"required,oneof=opening closing"`
	SellerID string               `json:"sellerId"`
	Notes    string               `json:"notes" validate:"max=500"`
	Items    []InventoryItemInput `json:"items" validate:"required,min=1,dive"`
}

type InventoryUpdateRequest struct {
	Date  *string              `json:"date" validate:"omitempty,isodate"`
	Type  *string              `json:"type" validate:"omitempty,oneof=opening closing"`
	Notes *string              `json:"notes" validate:"omitempty,max=500"`
	Items []InventoryItemInput `json:"items" validate:"omitempty,dive"`
}

type SaleInput struct {
	ProductID    string `json:"productId" validate:"required"`
	SoldQuantity *int   `json:"soldQuantity" validate:"required,min=0,max=1000000"`
}

type RecordSalesRequest struct {
	Sales []SaleInput `json:"sales" validate:"required,min=1,dive"`
}

type ScheduleCreateRequest struct {
	SellerID  string `json:"sellerId"`
	Date      string `json:"date" validate:"required,isodate"`
	Type      string `json:"type" validate:"omitempty,oneof=work leave sick"`
	StartTime string `json:"startTime" validate:"omitempty,clock"`
	EndTime   string `json:"endTime" validate:"omitempty,clock"`
	Location  string `json:"location" validate:"max=100"`
	Notes     string `json:"notes" validate:"max=500"`
}

type ScheduleUpdateRequest struct {
	Date      *string `json:"date" validate:"omitempty,isodate"`
	Type      *string `json:"type" validate:"omitempty,oneof=work leave sick"`
	StartTime *string `json:"startTime" validate:"omitempty,clock"`
	EndTime   *string `json:"endTime" validate:"omitempty,clock"`
	Location  *string `json:"location" validate:"omitempty,max=100"`
	Notes     *string `json:"notes" validate:"omitempty,max=500"`
	Active    *bool   `json:"isActive"`
}

type UserCreateRequest struct {
	Username  string `json:"username" validate:"required,min=3,max=50,username"`
	Email     string `json:"email" validate:"required,email"`
	Password  string `json:"password" validate:"required,min=6"`
	Role      string `json:"role" validate:"omitempty,oneof=admin seller"`
	FirstName string `json:"firstName" validate:"max=50"`
	LastName  string `json:"lastName" validate:"max=50"`
}

type UserUpdateRequest struct {
	Username  *string `json:"username" validate:"omitempty,min=3,max=50,username"`
	Email     *string `json:"email" validate:"omitempty,email"`
	Password  *string `json:"password" validate:"omitempty,min=6"`
	Role      *string `json:"role" validate:"omitempty,oneof=admin seller"`
	FirstName *string `json:"firstName" validate:"omitempty,max=50"`
	LastName  *string `json:"lastName" validate:"omitempty,max=50"`
	Active    *bool   `json:"isActive"`
}
