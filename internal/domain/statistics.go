package domain

type DashboardOverview struct {
	TotalProducts      int `json:"totalProducts"`
	TotalSellers       int `json:"totalSellers"`
	OpeningInventories int `json:"openingInventories"`
	ClosingInventories int `json:"closingInventories"`
	WorkingToday       int `json:"workingToday"`
}

type DashboardFinancial struct {
	OpeningValue   Money `json:"openingValue"`
	ClosingValue   Money `json:"closingValue"`
	EstimatedSales Money `json:"estimatedSales"`
}

type SalesAnalytics struct {
	AverageDailySales    Money `json:"averageDailySales"`
	TotalSalesLast30Days Money `json:"totalSalesLast30Days"`
	NumberOfSalesDays    int   `json:"numberOfSalesDays"`
	PeriodDays           int   `json:"periodDays"`
}

type ScheduleSlot struct {
	SellerID  string `json:"sellerId"`
	Seller    string `json:"seller"`
	StartTime string `json:"startTime"`
	EndTime   string `json:"endTime"`
}

type Dashboard struct {
	Date           Date               `json:"date"`
	Overview       DashboardOverview  `json:"overview"`
	Financial      DashboardFinancial `json:"financial"`
	SalesAnalytics SalesAnalytics     `json:"salesAnalytics"`
	TodaySchedules []ScheduleSlot     `json:"todaySchedules"`
}

// DailySales aggregates every inventory of one calendar day. Sales is the
// raw signed difference; EstimatedSales is clamped at zero.
type DailySales struct {
	Date           Date  `json:"date"`
	OpeningValue   Money `json:"openingValue"`
	ClosingValue   Money `json:"closingValue"`
	Sales          Money `json:"sales"`
	EstimatedSales Money `json:"estimatedSales"`
}

type PeriodSummary struct {
	TotalOpeningValue   Money `json:"totalOpeningValue"`
	TotalClosingValue   Money `json:"totalClosingValue"`
	TotalEstimatedSales Money `json:"totalEstimatedSales"`
	TotalInventories    int   `json:"totalInventories"`
}

type PeriodStats struct {
	StartDate Date          `json:"startDate"`
	EndDate   Date          `json:"endDate"`
	Summary   PeriodSummary `json:"summary"`
	DailyData []DailySales  `json:"dailyData"`
}

type ProductMovement struct {
	ProductID    string `json:"productId"`
	ProductName  string `json:"productName"`
	CategoryName string `json:"categoryName"`
	Price        Money  `json:"price"`
	Opening      int    `json:"opening"`
	Closing      int    `json:"closing"`
	OpeningValue Money  `json:"openingValue"`
	ClosingValue Money  `json:"closingValue"`
	SoldQuantity int    `json:"soldQuantity"`
	SalesValue   Money  `json:"salesValue"`
}

type ProductStats struct {
	Period          string            `json:"period,omitempty"`
	StartDate       Date              `json:"startDate"`
	EndDate         Date              `json:"endDate"`
	TotalSalesValue Money             `json:"totalSalesValue"`
	Products        []ProductMovement `json:"productStats"`
}

type SellerPerformance struct {
	Seller             UserSummary `json:"seller"`
	TotalInventories   int         `json:"totalInventories"`
	OpeningInventories int         `json:"openingInventories"`
	ClosingInventories int         `json:"closingInventories"`
	TotalValue         Money       `json:"totalValue"`
	AverageValue       Money       `json:"averageValue"`
	EstimatedSales     Money       `json:"estimatedSales"`
}

type SellersStats struct {
	StartDate *Date               `json:"startDate"`
	EndDate   *Date               `json:"endDate"`
	Sellers   []SellerPerformance `json:"sellers"`
}

type SalesStats struct {
	Period       string       `json:"period"`
	StartDate    Date         `json:"startDate"`
	EndDate      Date         `json:"endDate"`
	TotalSales   Money        `json:"totalSales"`
	AverageSales Money        `json:"averageSales"`
	SalesByDate  []DailySales `json:"salesByDate"`
}

type WasteLine struct {
	ProductID string `json:"productId"`
	Product   string `json:"product"`
	Quantity  int    `json:"quantity"`
	Value     Money  `json:"value"`
}

type WasteDay struct {
	Date       Date        `json:"date"`
	Items      []WasteLine `json:"items"`
	TotalValue Money       `json:"totalValue"`
}

// WasteStats values what was left unsold in confirmed closing counts.
type WasteStats struct {
	Days               int        `json:"days"`
	StartDate          Date       `json:"startDate"`
	EndDate            Date       `json:"endDate"`
	TotalWaste         Money      `json:"totalWaste"`
	AverageWastePerDay Money      `json:"averageWastePerDay"`
	WasteByDate        []WasteDay `json:"wasteByDate"`
}

type SellerProductStat struct {
	ProductID     string  `json:"productId"`
	ProductName   string  `json:"productName"`
	TotalPrepared int     `json:"totalPrepared"`
	TotalSold     int     `json:"totalSold"`
	Revenue       Money   `json:"revenue"`
	SalesRate     float64 `json:"salesRate"`
}

type SellerSummary struct {
	TotalInventories      int     `json:"totalInventories"`
	TotalQuantityPrepared int     `json:"totalQuantityPrepared"`
	TotalQuantitySold     int     `json:"totalQuantitySold"`
	TotalRevenue          Money   `json:"totalRevenue"`
	AverageSalesRate      float64 `json:"averageSalesRate"`
}

type UserStats struct {
	User         User                `json:"user"`
	StartDate    *Date               `json:"startDate"`
	EndDate      *Date               `json:"endDate"`
	Summary      SellerSummary       `json:"summary"`
	ProductStats []SellerProductStat `json:"productStats"`
}
