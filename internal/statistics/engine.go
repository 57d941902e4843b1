// Package statistics derives the dashboard and reporting figures from
// inventory counts. Results are cached per report and range; concurrent
// misses for the same key share one computation.
package statistics

import (
	"cmp"
	"context"
	"fmt"
	"slices"
	"time"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"
	"golang.org/x/sync/singleflight"

	"github.com/Najinc/painperdu/internal/cache"
	"github.com/Najinc/painperdu/internal/domain"
	"github.com/Najinc/painperdu/internal/metrics"
	"github.com/Najinc/painperdu/internal/query"
	"github.com/Najinc/painperdu/internal/valuation"
)

// KeyPrefix namespaces every cached report.
const KeyPrefix = "stats:"

// DashboardWindowDays is the look-back used for the average daily sales.
const DashboardWindowDays = 30

// Source is the read side the engine needs. store.Repository satisfies it.
type Source interface {
	ListInventories(ctx context.Context, filter query.InventoryFilter) ([]domain.Inventory, int, error)
	ListProducts(ctx context.Context, filter query.ProductFilter) ([]domain.Product, int, error)
	ListUsers(ctx context.Context, filter query.UserFilter) ([]domain.User, int, error)
	ListSchedules(ctx context.Context, filter query.ScheduleFilter) ([]domain.Schedule, int, error)
	ProductMovements(ctx context.Context, r query.DateRange) ([]domain.ProductMovement, error)
}

type Engine struct {
	source  Source
	cache   cache.StatisticsCache
	ttl     time.Duration
	logger  *zap.Logger
	metrics *metrics.Metrics
	group   singleflight.Group
}

func NewEngine(source Source, cacheStore cache.StatisticsCache, ttl time.Duration, logger *zap.Logger, m *metrics.Metrics) *Engine {
	if cacheStore == nil {
		cacheStore = cache.NoopStatisticsCache{}
	}
	if ttl <= 0 {
		ttl = time.Minute
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Engine{
		source:  source,
		cache:   cacheStore,
		ttl:     ttl,
		logger:  logger,
		metrics: m,
	}
}

// Invalidate drops every cached report. Called after any write that can
// move a figure.
func (e *Engine) Invalidate(ctx context.Context) {
	if err := e.cache.DeletePrefix(ctx, KeyPrefix); err != nil {
		e.logger.Warn("statistics cache invalidation failed", zap.Error(err))
	}
}

func cached[T any](ctx context.Context, e *Engine, report string, key string, compute func(context.Context) (T, error)) (T, error) {
	var out T
	ok, err := e.cache.Get(ctx, key, &out)
	switch {
	case err != nil:
		e.metrics.CacheResult("error")
		e.logger.Warn("statistics cache get failed", zap.String("key", key), zap.Error(err))
	case ok:
		e.metrics.CacheResult("hit")
		return out, nil
	default:
		e.metrics.CacheResult("miss")
	}

	v, err, _ := e.group.Do(key, func() (any, error) {
		started := time.Now()
		result, err := compute(ctx)
		if err != nil {
			return nil, err
		}
		e.metrics.ObserveCompute(report, time.Since(started))
		if err := e.cache.Set(ctx, key, result, e.ttl); err != nil {
			e.logger.Warn("statistics cache set failed", zap.String("key", key), zap.Error(err))
		}
		return result, nil
	})
	if err != nil {
		var zero T
		return zero, err
	}
	return v.(T), nil
}

// PeriodRange resolves day, week (Monday to Sunday) and month relative to
// today.
func PeriodRange(period string, today domain.Date) (domain.Date, domain.Date, error) {
	switch period {
	case "day":
		return today, today, nil
	case "week":
		start := today.StartOfWeek()
		return start, start.AddDays(6), nil
	case "month":
		start := domain.NewDate(time.Date(today.Year(), today.Month(), 1, 0, 0, 0, 0, time.UTC))
		end := domain.NewDate(start.AddDate(0, 1, -1))
		return start, end, nil
	default:
		return domain.Date{}, domain.Date{}, fmt.Errorf("unknown period %q", period)
	}
}

func (e *Engine) inventories(ctx context.Context, filter query.InventoryFilter) ([]domain.Inventory, error) {
	filter.Page = query.Page{}
	inventories, _, err := e.source.ListInventories(ctx, filter)
	return inventories, err
}

func (e *Engine) Dashboard(ctx context.Context, now time.Time) (domain.Dashboard, error) {
	today := domain.Today(now)
	return cached(ctx, e, "dashboard", KeyPrefix+"dashboard:"+today.String(), func(ctx context.Context) (domain.Dashboard, error) {
		return e.computeDashboard(ctx, today)
	})
}

func (e *Engine) computeDashboard(ctx context.Context, today domain.Date) (domain.Dashboard, error) {
	active := true
	dash := domain.Dashboard{Date: today, TodaySchedules: []domain.ScheduleSlot{}}

	_, products, err := e.source.ListProducts(ctx, query.ProductFilter{Active: &active, Page: query.Page{Number: 1, Size: 1}})
	if err != nil {
		return dash, err
	}
	_, sellers, err := e.source.ListUsers(ctx, query.UserFilter{Role: domain.RoleSeller, Active: &active, Page: query.Page{Number: 1, Size: 1}})
	if err != nil {
		return dash, err
	}
	dash.Overview.TotalProducts = products
	dash.Overview.TotalSellers = sellers

	todays, err := e.inventories(ctx, query.InventoryFilter{Range: query.Day(today)})
	if err != nil {
		return dash, err
	}
	for _, inv := range todays {
		switch inv.Type {
		case domain.InventoryOpening:
			dash.Overview.OpeningInventories++
		case domain.InventoryClosing:
			dash.Overview.ClosingInventories++
		}
	}
	opening, closing := valuation.SumByType(todays)
	dash.Financial = domain.DashboardFinancial{
		OpeningValue:   opening,
		ClosingValue:   closing,
		EstimatedSales: valuation.EstimateDailySales(opening, closing),
	}

	window, err := e.inventories(ctx, query.InventoryFilter{Range: query.Between(today.AddDays(-DashboardWindowDays), today)})
	if err != nil {
		return dash, err
	}
	raw := valuation.RawSales(valuation.DailyBreakdown(valuation.PreferConfirmed(window)))
	average, days := valuation.AverageDailySales(raw)
	dash.SalesAnalytics = domain.SalesAnalytics{
		AverageDailySales:    average,
		TotalSalesLast30Days: valuation.PositiveTotal(raw),
		NumberOfSalesDays:    days,
		PeriodDays:           DashboardWindowDays,
	}

	schedules, _, err := e.source.ListSchedules(ctx, query.ScheduleFilter{
		Type:   domain.ScheduleWork,
		Active: &active,
		Range:  query.Day(today),
		Sort:   query.Sort{Field: "startTime"},
	})
	if err != nil {
		return dash, err
	}
	for _, sc := range schedules {
		slot := domain.ScheduleSlot{SellerID: sc.SellerID}
		if sc.Seller != nil {
			slot.Seller = sc.Seller.DisplayName()
		}
		if sc.StartTime != nil {
			slot.StartTime = sc.StartTime.String()
		}
		if sc.EndTime != nil {
			slot.EndTime = sc.EndTime.String()
		}
		dash.TodaySchedules = append(dash.TodaySchedules, slot)
	}
	dash.Overview.WorkingToday = len(dash.TodaySchedules)
	return dash, nil
}

// Period summarizes every inventory between from and to, preferring the
// confirmed ones when there are any.
func (e *Engine) Period(ctx context.Context, from domain.Date, to domain.Date) (domain.PeriodStats, error) {
	key := KeyPrefix + "period:" + from.String() + ":" + to.String()
	return cached(ctx, e, "period", key, func(ctx context.Context) (domain.PeriodStats, error) {
		all, err := e.inventories(ctx, query.InventoryFilter{Range: query.Between(from, to)})
		if err != nil {
			return domain.PeriodStats{}, err
		}
		used := valuation.PreferConfirmed(all)
		opening, closing := valuation.SumByType(used)
		return domain.PeriodStats{
			StartDate: from,
			EndDate:   to,
			Summary: domain.PeriodSummary{
				TotalOpeningValue:   opening,
				TotalClosingValue:   closing,
				TotalEstimatedSales: valuation.EstimateDailySales(opening, closing),
				TotalInventories:    len(used),
			},
			DailyData: valuation.DailyBreakdown(used),
		}, nil
	})
}

// Sales reports day by day sales over confirmed inventories only.
func (e *Engine) Sales(ctx context.Context, period string, from domain.Date, to domain.Date) (domain.SalesStats, error) {
	key := KeyPrefix + "sales:" + from.String() + ":" + to.String()
	stats, err := cached(ctx, e, "sales", key, func(ctx context.Context) (domain.SalesStats, error) {
		confirmed := true
		inventories, err := e.inventories(ctx, query.InventoryFilter{Confirmed: &confirmed, Range: query.Between(from, to)})
		if err != nil {
			return domain.SalesStats{}, err
		}
		days := valuation.DailyBreakdown(inventories)
		raw := valuation.RawSales(days)
		average, _ := valuation.AverageDailySales(raw)
		return domain.SalesStats{
			StartDate:    from,
			EndDate:      to,
			TotalSales:   valuation.PositiveTotal(raw),
			AverageSales: average,
			SalesByDate:  days,
		}, nil
	})
	stats.Period = period
	return stats, err
}

func (e *Engine) Products(ctx context.Context, period string, from domain.Date, to domain.Date) (domain.ProductStats, error) {
	key := KeyPrefix + "products:" + from.String() + ":" + to.String()
	stats, err := cached(ctx, e, "products", key, func(ctx context.Context) (domain.ProductStats, error) {
		movements, err := e.source.ProductMovements(ctx, query.Between(from, to))
		if err != nil {
			return domain.ProductStats{}, err
		}
		var total domain.Money
		for _, m := range movements {
			total += m.SalesValue
		}
		return domain.ProductStats{StartDate: from, EndDate: to, TotalSalesValue: total, Products: movements}, nil
	})
	stats.Period = period
	return stats, err
}

// Waste values the unsold stock of confirmed closing counts over the last
// days, newest first.
func (e *Engine) Waste(ctx context.Context, days int, now time.Time) (domain.WasteStats, error) {
	if days < 1 {
		days = 7
	}
	to := domain.Today(now)
	from := to.AddDays(-days)
	key := fmt.Sprintf("%swaste:%d:%s", KeyPrefix, days, to)
	return cached(ctx, e, "waste", key, func(ctx context.Context) (domain.WasteStats, error) {
		confirmed := true
		closings, err := e.inventories(ctx, query.InventoryFilter{
			Type:      domain.InventoryClosing,
			Confirmed: &confirmed,
			Range:     query.Between(from, to),
		})
		if err != nil {
			return domain.WasteStats{}, err
		}

		byDay := make(map[domain.Date]*domain.WasteDay)
		var total domain.Money
		for _, inv := range closings {
			day, ok := byDay[inv.Date]
			if !ok {
				day = &domain.WasteDay{Date: inv.Date, Items: []domain.WasteLine{}}
				byDay[inv.Date] = day
			}
			for _, item := range inv.Items {
				if item.Product == nil {
					continue
				}
				value := item.Product.Price.Times(item.Quantity)
				day.Items = append(day.Items, domain.WasteLine{
					ProductID: item.ProductID,
					Product:   item.Product.Name,
					Quantity:  item.Quantity,
					Value:     value,
				})
				day.TotalValue += value
				total += value
			}
		}

		stats := domain.WasteStats{
			Days:        days,
			StartDate:   from,
			EndDate:     to,
			TotalWaste:  total,
			WasteByDate: make([]domain.WasteDay, 0, len(byDay)),
		}
		stats.AverageWastePerDay = domain.MoneyFromDecimal(total.Decimal().Div(decimal.NewFromInt(int64(days))))
		for _, day := range byDay {
			stats.WasteByDate = append(stats.WasteByDate, *day)
		}
		slices.SortFunc(stats.WasteByDate, func(a, b domain.WasteDay) int {
			return b.Date.Compare(a.Date.Time)
		})
		return stats, nil
	})
}

// Sellers compares sellers over every inventory in the range.
func (e *Engine) Sellers(ctx context.Context, r query.DateRange) (domain.SellersStats, error) {
	key := KeyPrefix + "sellers:" + rangeKey(r)
	return cached(ctx, e, "sellers", key, func(ctx context.Context) (domain.SellersStats, error) {
		inventories, err := e.inventories(ctx, query.InventoryFilter{Range: r})
		if err != nil {
			return domain.SellersStats{}, err
		}

		type acc struct {
			perf             domain.SellerPerformance
			opening, closing domain.Money
		}
		bySeller := make(map[string]*acc)
		for _, inv := range inventories {
			a, ok := bySeller[inv.SellerID]
			if !ok {
				a = &acc{perf: domain.SellerPerformance{Seller: domain.UserSummary{ID: inv.SellerID}}}
				if inv.Seller != nil {
					a.perf.Seller = *inv.Seller
				}
				bySeller[inv.SellerID] = a
			}
			a.perf.TotalInventories++
			a.perf.TotalValue += inv.TotalValue
			switch inv.Type {
			case domain.InventoryOpening:
				a.perf.OpeningInventories++
				a.opening += inv.TotalValue
			case domain.InventoryClosing:
				a.perf.ClosingInventories++
				a.closing += inv.TotalValue
			}
		}

		stats := domain.SellersStats{StartDate: r.From, EndDate: r.To, Sellers: make([]domain.SellerPerformance, 0, len(bySeller))}
		for _, a := range bySeller {
			a.perf.AverageValue = domain.MoneyFromDecimal(a.perf.TotalValue.Decimal().Div(decimal.NewFromInt(int64(a.perf.TotalInventories))))
			a.perf.EstimatedSales = valuation.EstimateDailySales(a.opening, a.closing)
			stats.Sellers = append(stats.Sellers, a.perf)
		}
		slices.SortFunc(stats.Sellers, func(a, b domain.SellerPerformance) int {
			if c := cmp.Compare(b.TotalValue, a.TotalValue); c != 0 {
				return c
			}
			return cmp.Compare(a.Seller.Username, b.Seller.Username)
		})
		return stats, nil
	})
}

// Seller aggregates one seller's recorded sales per product. Revenue uses
// the current price of each product.
func (e *Engine) Seller(ctx context.Context, user domain.User, r query.DateRange) (domain.UserStats, error) {
	key := KeyPrefix + "seller:" + user.ID + ":" + rangeKey(r)
	stats, err := cached(ctx, e, "seller", key, func(ctx context.Context) (domain.UserStats, error) {
		inventories, err := e.inventories(ctx, query.InventoryFilter{SellerID: user.ID, Range: r})
		if err != nil {
			return domain.UserStats{}, err
		}

		stats := domain.UserStats{StartDate: r.From, EndDate: r.To, ProductStats: []domain.SellerProductStat{}}
		stats.Summary.TotalInventories = len(inventories)
		byProduct := make(map[string]*domain.SellerProductStat)
		for _, inv := range inventories {
			for _, item := range inv.Items {
				sold := item.Sold()
				var revenue domain.Money
				name := item.ProductID
				if item.Product != nil {
					revenue = item.Product.Price.Times(sold)
					name = item.Product.Name
				}
				stats.Summary.TotalQuantityPrepared += item.Quantity
				stats.Summary.TotalQuantitySold += sold
				stats.Summary.TotalRevenue += revenue

				p, ok := byProduct[item.ProductID]
				if !ok {
					p = &domain.SellerProductStat{ProductID: item.ProductID, ProductName: name}
					byProduct[item.ProductID] = p
				}
				p.TotalPrepared += item.Quantity
				p.TotalSold += sold
				p.Revenue += revenue
			}
		}
		stats.Summary.AverageSalesRate = valuation.Rate(stats.Summary.TotalQuantitySold, stats.Summary.TotalQuantityPrepared)
		for _, p := range byProduct {
			p.SalesRate = valuation.Rate(p.TotalSold, p.TotalPrepared)
			stats.ProductStats = append(stats.ProductStats, *p)
		}
		slices.SortFunc(stats.ProductStats, func(a, b domain.SellerProductStat) int {
			if c := cmp.Compare(b.Revenue, a.Revenue); c != 0 {
				return c
			}
			return cmp.Compare(a.ProductName, b.ProductName)
		})
		return stats, nil
	})
	stats.User = user
	return stats, err
}

func rangeKey(r query.DateRange) string {
	from, to := "-", "-"
	if r.From != nil {
		from = r.From.String()
	}
	if r.To != nil {
		to = r.To.String()
	}
	return from + ":" + to
}
