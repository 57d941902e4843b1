package httpapi

import (
	"errors"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/Najinc/painperdu/internal/domain"
	"github.com/Najinc/painperdu/internal/query"
	"github.com/Najinc/painperdu/internal/service"
	"github.com/Najinc/painperdu/internal/validate"
)

const (
	defaultPageSize = 10
	maxPageSize     = 100
)

func (a *API) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"ok": true,
		"at": time.Now().UTC().Format(time.RFC3339),
	})
}

func (a *API) handleLogin(w http.ResponseWriter, r *http.Request) {
	if !a.loginLimiter.Allow(clientKey(r)) {
		writeError(w, http.StatusTooManyRequests, errors.New("too many login attempts"))
		return
	}

	var req domain.LoginRequest
	if err := decodeJSON(r, &req); err != nil {
		a.fail(w, r, err)
		return
	}

	resp, err := a.auth.Login(r.Context(), req)
	if err != nil {
		a.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, resp)
}

func (a *API) handleMe(w http.ResponseWriter, r *http.Request) {
	actor, _ := service.ActorFromContext(r.Context())
	user, err := a.service.ActiveUser(r.Context(), actor.UserID)
	if err != nil {
		a.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"user": user})
}

func (a *API) handleRefresh(w http.ResponseWriter, r *http.Request) {
	actor, _ := service.ActorFromContext(r.Context())
	resp, err := a.auth.Refresh(r.Context(), actor)
	if err != nil {
		a.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, resp)
}

// inventory

func (a *API) handleListInventories(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	dates, err := dateRangeQuery(q)
	if err != nil {
		a.fail(w, r, err)
		return
	}
	filter := query.InventoryFilter{
		SellerID:  strings.TrimSpace(q.Get("sellerId")),
		Type:      strings.TrimSpace(q.Get("type")),
		Confirmed: query.ParseBool(q.Get("isConfirmed")),
		Range:     dates,
		Page:      query.ParsePage(q, defaultPageSize, maxPageSize),
		Sort:      query.ParseSort(q.Get("sortBy"), q.Get("sortOrder"), query.InventorySorts, query.Sort{Field: "date", Desc: true}),
	}

	list, err := a.service.ListInventories(r.Context(), filter)
	if err != nil {
		a.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, list)
}

func (a *API) handleCreateInventory(w http.ResponseWriter, r *http.Request) {
	var req domain.InventoryCreateRequest
	if err := decodeJSON(r, &req); err != nil {
		a.fail(w, r, err)
		return
	}
	inv, err := a.service.CreateInventory(r.Context(), req)
	if err != nil {
		a.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, map[string]any{"message": "Inventory created", "inventory": inv})
}

func (a *API) handleTodayInventories(w http.ResponseWriter, r *http.Request) {
	inventories, err := a.service.TodayInventories(r.Context(), strings.TrimSpace(r.URL.Query().Get("sellerId")))
	if err != nil {
		a.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"inventories": inventories})
}

func (a *API) handleInventoryHistory(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	limit := parsePositiveLimit(q.Get("limit"), 10, maxPageSize)
	inventories, err := a.service.InventoryHistory(r.Context(), strings.TrimSpace(q.Get("sellerId")), limit)
	if err != nil {
		a.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"inventories": inventories})
}

func (a *API) handleCurrentStock(w http.ResponseWriter, r *http.Request) {
	stock, err := a.service.CurrentStock(r.Context())
	if err != nil {
		a.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, stock)
}

func (a *API) handleGetInventory(w http.ResponseWriter, r *http.Request) {
	inv, err := a.service.GetInventory(r.Context(), r.PathValue("id"))
	if err != nil {
		a.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"inventory": inv})
}

func (a *API) handleUpdateInventory(w http.ResponseWriter, r *http.Request) {
	var req domain.InventoryUpdateRequest
	if err := decodeJSON(r, &req); err != nil {
		a.fail(w, r, err)
		return
	}
	inv, err := a.service.UpdateInventory(r.Context(), r.PathValue("id"), req)
	if err != nil {
		a.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"message": "Inventory updated", "inventory": inv})
}

func (a *API) handleDeleteInventory(w http.ResponseWriter, r *http.Request) {
	if err := a.service.DeleteInventory(r.Context(), r.PathValue("id")); err != nil {
		a.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"message": "Inventory deleted"})
}

func (a *API) handleRecordSales(w http.ResponseWriter, r *http.Request) {
	var req domain.RecordSalesRequest
	if err := decodeJSON(r, &req); err != nil {
		a.fail(w, r, err)
		return
	}
	inv, err := a.service.RecordSales(r.Context(), r.PathValue("id"), req)
	if err != nil {
		a.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"message": "Sales recorded", "inventory": inv})
}

func (a *API) handleConfirmInventory(w http.ResponseWriter, r *http.Request) {
	inv, err := a.service.ConfirmInventory(r.Context(), r.PathValue("id"))
	if err != nil {
		a.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"message": "Inventory confirmed", "inventory": inv})
}

// catalog

func (a *API) handleListCategories(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	categories, err := a.service.ListCategories(r.Context(), query.CategoryFilter{
		Active: query.ParseBool(q.Get("isActive")),
		Search: strings.TrimSpace(q.Get("search")),
	})
	if err != nil {
		a.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"categories": categories})
}

func (a *API) handleCreateCategory(w http.ResponseWriter, r *http.Request) {
	var req domain.CategoryCreateRequest
	if err := decodeJSON(r, &req); err != nil {
		a.fail(w, r, err)
		return
	}
	category, err := a.service.CreateCategory(r.Context(), req)
	if err != nil {
		a.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, map[string]any{"message": "Category created", "category": category})
}

func (a *API) handleGetCategory(w http.ResponseWriter, r *http.Request) {
	category, err := a.service.GetCategory(r.Context(), r.PathValue("id"))
	if err != nil {
		a.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"category": category})
}

func (a *API) handleUpdateCategory(w http.ResponseWriter, r *http.Request) {
	var req domain.CategoryUpdateRequest
	if err := decodeJSON(r, &req); err != nil {
		a.fail(w, r, err)
		return
	}
	category, err := a.service.UpdateCategory(r.Context(), r.PathValue("id"), req)
	if err != nil {
		a.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"message": "Category updated", "category": category})
}

func (a *API) handleDeleteCategory(w http.ResponseWriter, r *http.Request) {
	if err := a.service.DeleteCategory(r.Context(), r.PathValue("id")); err != nil {
		a.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"message": "Category deactivated"})
}

func (a *API) handleListProducts(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	list, err := a.service.ListProducts(r.Context(), query.ProductFilter{
		CategoryID: strings.TrimSpace(q.Get("categoryId")),
		Active:     query.ParseBool(q.Get("isActive")),
		Search:     strings.TrimSpace(q.Get("search")),
		Page:       query.ParsePage(q, defaultPageSize, maxPageSize),
		Sort:       query.ParseSort(q.Get("sortBy"), q.Get("sortOrder"), query.ProductSorts, query.Sort{Field: "name"}),
	})
	if err != nil {
		a.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, list)
}

func (a *API) handleProductsByCategory(w http.ResponseWriter, r *http.Request) {
	products, err := a.service.ProductsByCategory(r.Context(), r.PathValue("categoryId"))
	if err != nil {
		a.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"products": products})
}

func (a *API) handleCreateProduct(w http.ResponseWriter, r *http.Request) {
	var req domain.ProductCreateRequest
	if err := decodeJSON(r, &req); err != nil {
		a.fail(w, r, err)
		return
	}
	product, err := a.service.CreateProduct(r.Context(), req)
	if err != nil {
		a.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, map[string]any{"message": "Product created", "product": product})
}

func (a *API) handleGetProduct(w http.ResponseWriter, r *http.Request) {
	product, err := a.service.GetProduct(r.Context(), r.PathValue("id"))
	if err != nil {
		a.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"product": product})
}

func (a *API) handleUpdateProduct(w http.ResponseWriter, r *http.Request) {
	var req domain.ProductUpdateRequest
	if err := decodeJSON(r, &req); err != nil {
		a.fail(w, r, err)
		return
	}
	product, err := a.service.UpdateProduct(r.Context(), r.PathValue("id"), req)
	if err != nil {
		a.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"message": "Product updated", "product": product})
}

func (a *API) handleDeleteProduct(w http.ResponseWriter, r *http.Request) {
	if err := a.service.DeleteProduct(r.Context(), r.PathValue("id")); err != nil {
		a.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"message": "Product deleted"})
}

// schedules

func (a *API) handleListSchedules(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	dates, err := dateRangeQuery(q)
	if err != nil {
		a.fail(w, r, err)
		return
	}
	list, err := a.service.ListSchedules(r.Context(), query.ScheduleFilter{
		SellerID: strings.TrimSpace(q.Get("sellerId")),
		Type:     strings.TrimSpace(q.Get("type")),
		Active:   query.ParseBool(q.Get("isActive")),
		Range:    dates,
		Page:     query.ParsePage(q, defaultPageSize, maxPageSize),
		Sort:     query.ParseSort(q.Get("sortBy"), q.Get("sortOrder"), query.ScheduleSorts, query.Sort{Field: "date"}),
	})
	if err != nil {
		a.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, list)
}

func (a *API) handleCreateSchedule(w http.ResponseWriter, r *http.Request) {
	var req domain.ScheduleCreateRequest
	if err := decodeJSON(r, &req); err != nil {
		a.fail(w, r, err)
		return
	}
	schedule, err := a.service.CreateSchedule(r.Context(), req)
	if err != nil {
		a.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, map[string]any{"message": "Schedule created", "schedule": schedule})
}

func (a *API) handleTodaySchedules(w http.ResponseWriter, r *http.Request) {
	schedules, err := a.service.TodaySchedules(r.Context())
	if err != nil {
		a.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"schedules": schedules})
}

func (a *API) handleWeekSchedule(w http.ResponseWriter, r *http.Request) {
	week, err := a.service.WeekSchedule(r.Context(), r.PathValue("date"))
	if err != nil {
		a.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, week)
}

func (a *API) handleGetSchedule(w http.ResponseWriter, r *http.Request) {
	schedule, err := a.service.GetSchedule(r.Context(), r.PathValue("id"))
	if err != nil {
		a.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"schedule": schedule})
}

func (a *API) handleUpdateSchedule(w http.ResponseWriter, r *http.Request) {
	var req domain.ScheduleUpdateRequest
	if err := decodeJSON(r, &req); err != nil {
		a.fail(w, r, err)
		return
	}
	schedule, err := a.service.UpdateSchedule(r.Context(), r.PathValue("id"), req)
	if err != nil {
		a.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"message": "Schedule updated", "schedule": schedule})
}

func (a *API) handleDeleteSchedule(w http.ResponseWriter, r *http.Request) {
	if err := a.service.DeleteSchedule(r.Context(), r.PathValue("id")); err != nil {
		a.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"message": "Schedule deleted"})
}

// users

func (a *API) handleListUsers(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	list, err := a.service.ListUsers(r.Context(), query.UserFilter{
		Role:   strings.TrimSpace(q.Get("role")),
		Active: query.ParseBool(q.Get("isActive")),
		Search: strings.TrimSpace(q.Get("search")),
		Page:   query.ParsePage(q, defaultPageSize, maxPageSize),
		Sort:   query.ParseSort(q.Get("sortBy"), q.Get("sortOrder"), query.UserSorts, query.Sort{Field: "createdAt", Desc: true}),
	})
	if err != nil {
		a.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, list)
}

func (a *API) handleCreateUser(w http.ResponseWriter, r *http.Request) {
	var req domain.UserCreateRequest
	if err := decodeJSON(r, &req); err != nil {
		a.fail(w, r, err)
		return
	}
	user, err := a.service.CreateUser(r.Context(), req)
	if err != nil {
		a.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, map[string]any{"message": "User created", "user": user})
}

func (a *API) handleActiveSellers(w http.ResponseWriter, r *http.Request) {
	sellers, err := a.service.ActiveSellers(r.Context())
	if err != nil {
		a.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"sellers": sellers})
}

func (a *API) handleGetUser(w http.ResponseWriter, r *http.Request) {
	user, err := a.service.GetUser(r.Context(), r.PathValue("id"))
	if err != nil {
		a.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"user": user})
}

func (a *API) handleUpdateUser(w http.ResponseWriter, r *http.Request) {
	var req domain.UserUpdateRequest
	if err := decodeJSON(r, &req); err != nil {
		a.fail(w, r, err)
		return
	}
	user, err := a.service.UpdateUser(r.Context(), r.PathValue("id"), req)
	if err != nil {
		a.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"message": "User updated", "user": user})
}

func (a *API) handleDeleteUser(w http.ResponseWriter, r *http.Request) {
	if err := a.service.DeleteUser(r.Context(), r.PathValue("id")); err != nil {
		a.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"message": "User deleted"})
}

func (a *API) handleUserStats(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	stats, err := a.service.UserStats(r.Context(), r.PathValue("id"), q.Get("startDate"), q.Get("endDate"))
	if err != nil {
		a.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, stats)
}

// statistics

func (a *API) handleDashboard(w http.ResponseWriter, r *http.Request) {
	dashboard, err := a.service.Dashboard(r.Context())
	if err != nil {
		a.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, dashboard)
}

func (a *API) handlePeriodStats(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	stats, err := a.service.PeriodStats(r.Context(), q.Get("startDate"), q.Get("endDate"))
	if err != nil {
		a.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, stats)
}

func (a *API) handleSalesStats(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	stats, err := a.service.SalesStats(r.Context(), strings.TrimSpace(q.Get("period")), q.Get("startDate"), q.Get("endDate"))
	if err != nil {
		a.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, stats)
}

func (a *API) handleProductStats(w http.ResponseWriter, r *http.Request) {
	stats, err := a.service.ProductStats(r.Context(), strings.TrimSpace(r.URL.Query().Get("period")))
	if err != nil {
		a.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, stats)
}

func (a *API) handleWasteStats(w http.ResponseWriter, r *http.Request) {
	days := 0
	if raw := strings.TrimSpace(r.URL.Query().Get("days")); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n < 1 {
			a.fail(w, r, validate.Field("days", "must be a positive integer"))
			return
		}
		days = n
	}
	stats, err := a.service.WasteStats(r.Context(), days)
	if err != nil {
		a.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, stats)
}

func (a *API) handleSellersStats(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	stats, err := a.service.SellersStats(r.Context(), q.Get("startDate"), q.Get("endDate"))
	if err != nil {
		a.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, stats)
}

func (a *API) handleAuditLogs(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	limit := parsePositiveLimit(q.Get("limit"), 100, 500)

	logs, err := a.service.ListAuditLogs(r.Context(), strings.TrimSpace(q.Get("date")), limit)
	if err != nil {
		a.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"logs": logs})
}

func dateRangeQuery(q url.Values) (query.DateRange, error) {
	r, err := query.ParseDateRange(q.Get("startDate"), q.Get("endDate"))
	if errors.Is(err, domain.ErrInvalidDateRange) {
		return query.DateRange{}, err
	}
	if err != nil {
		return query.DateRange{}, validate.Field("startDate", "dates must be valid ISO 8601 dates")
	}
	return r, nil
}
