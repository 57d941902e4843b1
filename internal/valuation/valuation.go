// Package valuation prices inventory counts and derives sales from the
// difference between opening and closing valuations.
package valuation

import (
	"sort"

	"github.com/shopspring/decimal"

	"github.com/Najinc/painperdu/internal/domain"
)

// Catalog resolves a product by id at valuation time.
type Catalog map[string]domain.Product

// ComputeInventoryValue sums quantity x current price over items. Every
// product must exist and be active, and the total must fit in Money.
func ComputeInventoryValue(items []domain.ItemCount, catalog Catalog) (domain.Money, error) {
	var total domain.Money
	for _, item := range items {
		product, ok := catalog[item.ProductID]
		if !ok || !product.Active {
			return 0, domain.ErrInvalidOrInactiveProduct
		}
		line, err := product.Price.Mul(item.Quantity)
		if err != nil {
			return 0, err
		}
		if total, err = total.Add(line); err != nil {
			return 0, err
		}
	}
	return total, nil
}

// EstimateDailySales returns max(0, opening-closing). A stock increase over
// the day is treated as restocking, not negative sales.
func EstimateDailySales(opening domain.Money, closing domain.Money) domain.Money {
	return domain.MaxMoney(0, opening-closing)
}

// AverageDailySales is the mean over days with strictly positive sales.
// Days with zero or negative raw sales are left out of both sum and count.
func AverageDailySales(daily []domain.Money) (domain.Money, int) {
	var sum domain.Money
	days := 0
	for _, sales := range daily {
		if sales <= 0 {
			continue
		}
		sum += sales
		days++
	}
	if days == 0 {
		return 0, 0
	}
	avg := sum.Decimal().Div(decimal.NewFromInt(int64(days)))
	return domain.MoneyFromDecimal(avg), days
}

// PositiveTotal sums the strictly positive entries.
func PositiveTotal(daily []domain.Money) domain.Money {
	var sum domain.Money
	for _, sales := range daily {
		if sales > 0 {
			sum += sales
		}
	}
	return sum
}

// PreferConfirmed keeps the confirmed inventories when there is at least
// one, otherwise returns the input unchanged.
func PreferConfirmed(inventories []domain.Inventory) []domain.Inventory {
	confirmed := make([]domain.Inventory, 0, len(inventories))
	for _, inv := range inventories {
		if inv.Confirmed {
			confirmed = append(confirmed, inv)
		}
	}
	if len(confirmed) == 0 {
		return inventories
	}
	return confirmed
}

// SumByType adds up the stored total value of each inventory type.
func SumByType(inventories []domain.Inventory) (opening domain.Money, closing domain.Money) {
	for _, inv := range inventories {
		switch inv.Type {
		case domain.InventoryOpening:
			opening += inv.TotalValue
		case domain.InventoryClosing:
			closing += inv.TotalValue
		}
	}
	return opening, closing
}

// DailyBreakdown groups inventories by calendar day, ordered by date.
func DailyBreakdown(inventories []domain.Inventory) []domain.DailySales {
	byDay := make(map[domain.Date]*domain.DailySales)
	for _, inv := range inventories {
		day, ok := byDay[inv.Date]
		if !ok {
			day = &domain.DailySales{Date: inv.Date}
			byDay[inv.Date] = day
		}
		switch inv.Type {
		case domain.InventoryOpening:
			day.OpeningValue += inv.TotalValue
		case domain.InventoryClosing:
			day.ClosingValue += inv.TotalValue
		}
	}

	result := make([]domain.DailySales, 0, len(byDay))
	for _, day := range byDay {
		day.Sales = day.OpeningValue - day.ClosingValue
		day.EstimatedSales = EstimateDailySales(day.OpeningValue, day.ClosingValue)
		result = append(result, *day)
	}
	sort.Slice(result, func(i, j int) bool {
		return result[i].Date.Before(result[j].Date)
	})
	return result
}

// RawSales extracts the signed daily differences.
func RawSales(days []domain.DailySales) []domain.Money {
	out := make([]domain.Money, 0, len(days))
	for _, day := range days {
		out = append(out, day.Sales)
	}
	return out
}

// Totals computes the per-inventory quantity and revenue figures. Revenue
// uses the current price attached to each item.
func Totals(items []domain.InventoryItem) domain.InventoryTotals {
	var totals domain.InventoryTotals
	for _, item := range items {
		sold := item.Sold()
		totals.TotalQuantity += item.Quantity
		totals.TotalSold += sold
		if item.Product != nil {
			totals.TotalRevenue += item.Product.Price.Times(sold)
		}
	}
	totals.RemainingQuantity = totals.TotalQuantity - totals.TotalSold
	return totals
}

// Rate returns part/whole as a percentage rounded to two decimals.
func Rate(part int, whole int) float64 {
	if whole <= 0 {
		return 0
	}
	pct := decimal.NewFromInt(int64(part)).Mul(decimal.NewFromInt(100)).Div(decimal.NewFromInt(int64(whole)))
	f, _ := pct.Round(2).Float64()
	return f
}
