package service

import (
	"context"
	"fmt"
	"sort"

	"go.uber.org/zap"

	"github.com/Najinc/painperdu/internal/domain"
	"github.com/Najinc/painperdu/internal/policy"
	"github.com/Najinc/painperdu/internal/query"
	"github.com/Najinc/painperdu/internal/validate"
	"github.com/Najinc/painperdu/internal/valuation"
)

func inventoryResource(sellerID string) policy.Resource {
	return policy.Resource{Kind: policy.KindInventory, OwnerID: sellerID}
}

func toView(inv *domain.Inventory) domain.InventoryView {
	return domain.InventoryView{Inventory: *inv, Totals: valuation.Totals(inv.Items)}
}

// ListInventories scopes sellers to their own counts.
func (s *Service) ListInventories(ctx context.Context, filter query.InventoryFilter) (domain.InventoryList, error) {
	actor, ok := ActorFromContext(ctx)
	if !ok {
		return domain.InventoryList{}, domain.ErrUnauthenticated
	}
	if !actor.IsAdmin() {
		filter.SellerID = actor.UserID
	}
	if _, err := s.authorize(ctx, inventoryResource(filter.SellerID), policy.ActionRead); err != nil {
		return domain.InventoryList{}, err
	}

	inventories, total, err := s.repo.ListInventories(ctx, filter)
	if err != nil {
		return domain.InventoryList{}, err
	}
	views := make([]domain.InventoryView, 0, len(inventories))
	for i := range inventories {
		views = append(views, toView(&inventories[i]))
	}
	return domain.InventoryList{Inventories: views, Pagination: filter.Page.Paginate(total)}, nil
}

// TodayInventories returns the day's counts for sellerID, opening before
// closing. Sellers always get their own.
func (s *Service) TodayInventories(ctx context.Context, sellerID string) ([]domain.InventoryView, error) {
	list, err := s.ListInventories(ctx, query.InventoryFilter{
		SellerID: sellerID,
		Range:    query.Day(domain.Today(s.now())),
		Sort:     query.Sort{Field: "createdAt"},
	})
	if err != nil {
		return nil, err
	}
	views := list.Inventories
	sort.SliceStable(views, func(i, j int) bool {
		return views[i].Type == domain.InventoryOpening && views[j].Type != domain.InventoryOpening
	})
	return views, nil
}

// InventoryHistory returns the latest limit counts, newest first.
func (s *Service) InventoryHistory(ctx context.Context, sellerID string, limit int) ([]domain.InventoryView, error) {
	list, err := s.ListInventories(ctx, query.InventoryFilter{
		SellerID: sellerID,
		Page:     query.Page{Number: 1, Size: limit},
		Sort:     query.Sort{Field: "date", Desc: true},
	})
	if err != nil {
		return nil, err
	}
	return list.Inventories, nil
}

func (s *Service) GetInventory(ctx context.Context, id string) (domain.InventoryView, error) {
	inv, err := s.repo.GetInventory(ctx, id)
	if err != nil {
		return domain.InventoryView{}, err
	}
	if _, err := s.authorize(ctx, inventoryResource(inv.SellerID), policy.ActionRead); err != nil {
		return domain.InventoryView{}, err
	}
	return toView(inv), nil
}

func (s *Service) CreateInventory(ctx context.Context, req domain.InventoryCreateRequest) (domain.InventoryView, error) {
	actor, ok := ActorFromContext(ctx)
	if !ok {
		return domain.InventoryView{}, domain.ErrUnauthenticated
	}
	if err := validate.Struct(req); err != nil {
		return domain.InventoryView{}, err
	}

	sellerID, err := s.resolveSeller(ctx, actor, req.SellerID)
	if err != nil {
		return domain.InventoryView{}, err
	}
	if _, err := s.authorize(ctx, inventoryResource(sellerID), policy.ActionCreate); err != nil {
		return domain.InventoryView{}, err
	}

	day, err := domain.ParseDate(req.Date)
	if err != nil {
		return domain.InventoryView{}, validate.Field("date", "must be a valid ISO 8601 date")
	}
	items, err := buildItems(req.Items)
	if err != nil {
		return domain.InventoryView{}, err
	}
	total, err := s.valueItems(ctx, items)
	if err != nil {
		return domain.InventoryView{}, err
	}

	if _, err := s.repo.FindInventory(ctx, sellerID, day, req.Type); err == nil {
		return domain.InventoryView{}, domain.ErrDuplicateInventory
	} else if !isNotFound(err) {
		return domain.InventoryView{}, err
	}

	now := s.now()
	inv := domain.Inventory{
		Date:       day,
		Type:       req.Type,
		SellerID:   sellerID,
		Notes:      req.Notes,
		TotalValue: total,
		CreatedAt:  now,
		UpdatedAt:  now,
		Items:      items,
	}
	if err := inv.Validate(); err != nil {
		return domain.InventoryView{}, err
	}

	created, err := s.repo.CreateInventory(ctx, inv)
	if err != nil {
		return domain.InventoryView{}, err
	}
	s.changed(ctx)
	s.metrics.InventoryOperation("create")
	s.logAudit(ctx, "inventory_create", "inventory", created.ID,
		fmt.Sprintf("%s %s seller=%s value=%s", created.Type, created.Date, created.SellerID, created.TotalValue))
	return toView(created), nil
}

// UpdateInventory changes header fields and, when items are sent, replaces
// the whole item set and revalues it at current prices.
func (s *Service) UpdateInventory(ctx context.Context, id string, req domain.InventoryUpdateRequest) (domain.InventoryView, error) {
	existing, err := s.repo.GetInventory(ctx, id)
	if err != nil {
		return domain.InventoryView{}, err
	}
	actor, err := s.authorize(ctx, inventoryResource(existing.SellerID), policy.ActionUpdate)
	if err != nil {
		return domain.InventoryView{}, err
	}
	if err := validate.Struct(req); err != nil {
		return domain.InventoryView{}, err
	}
	lock, err := s.lockFor(ctx, actor, existing, "update")
	if err != nil {
		return domain.InventoryView{}, err
	}

	next := *existing
	if req.Date != nil {
		day, err := domain.ParseDate(*req.Date)
		if err != nil {
			return domain.InventoryView{}, validate.Field("date", "must be a valid ISO 8601 date")
		}
		next.Date = day
	}
	if req.Type != nil {
		next.Type = *req.Type
	}
	if req.Notes != nil {
		next.Notes = *req.Notes
	}

	replaceItems := req.Items != nil
	if replaceItems {
		if len(req.Items) == 0 {
			return domain.InventoryView{}, validate.Field("items", "must contain at least 1 entries")
		}
		items, err := buildItems(req.Items)
		if err != nil {
			return domain.InventoryView{}, err
		}
		total, err := s.valueItems(ctx, items)
		if err != nil {
			return domain.InventoryView{}, err
		}
		next.Items = items
		next.TotalValue = total
	}

	if !next.Date.Equal(existing.Date) || next.Type != existing.Type {
		other, err := s.repo.FindInventory(ctx, next.SellerID, next.Date, next.Type)
		switch {
		case err == nil && other.ID != next.ID:
			return domain.InventoryView{}, domain.ErrDuplicateInventory
		case err != nil && !isNotFound(err):
			return domain.InventoryView{}, err
		}
	}

	next.UpdatedAt = s.now()
	if err := next.Validate(); err != nil {
		return domain.InventoryView{}, err
	}

	updated, err := s.repo.UpdateInventory(ctx, next, replaceItems, lock)
	if err != nil {
		return domain.InventoryView{}, err
	}
	s.changed(ctx)
	s.metrics.InventoryOperation("update")
	s.logAudit(ctx, "inventory_update", "inventory", updated.ID, fmt.Sprintf("items_replaced=%t value=%s", replaceItems, updated.TotalValue))
	return toView(updated), nil
}

func (s *Service) DeleteInventory(ctx context.Context, id string) error {
	existing, err := s.repo.GetInventory(ctx, id)
	if err != nil {
		return err
	}
	actor, err := s.authorize(ctx, inventoryResource(existing.SellerID), policy.ActionDelete)
	if err != nil {
		return err
	}
	lock, err := s.lockFor(ctx, actor, existing, "delete")
	if err != nil {
		return err
	}

	if err := s.repo.DeleteInventory(ctx, id, lock); err != nil {
		return err
	}
	s.changed(ctx)
	s.metrics.InventoryOperation("delete")
	s.logAudit(ctx, "inventory_delete", "inventory", id, fmt.Sprintf("%s %s", existing.Type, existing.Date))
	return nil
}

// RecordSales sets sold quantities on existing lines. The batch is applied
// whole or not at all; lines for products not in the count are skipped.
func (s *Service) RecordSales(ctx context.Context, id string, req domain.RecordSalesRequest) (domain.InventoryView, error) {
	existing, err := s.repo.GetInventory(ctx, id)
	if err != nil {
		return domain.InventoryView{}, err
	}
	actor, err := s.authorize(ctx, inventoryResource(existing.SellerID), policy.ActionRecordSales)
	if err != nil {
		return domain.InventoryView{}, err
	}
	if err := validate.Struct(req); err != nil {
		return domain.InventoryView{}, err
	}
	lock, err := s.lockFor(ctx, actor, existing, "record_sales")
	if err != nil {
		return domain.InventoryView{}, err
	}

	sales := make([]domain.SaleEntry, 0, len(req.Sales))
	for _, sale := range req.Sales {
		sales = append(sales, domain.SaleEntry{ProductID: sale.ProductID, SoldQuantity: *sale.SoldQuantity})
	}

	updated, err := s.repo.RecordSales(ctx, id, sales, lock, s.now())
	if err != nil {
		return domain.InventoryView{}, err
	}
	s.changed(ctx)
	s.metrics.InventoryOperation("record_sales")
	s.logAudit(ctx, "inventory_sales", "inventory", id, fmt.Sprintf("entries=%d", len(sales)))
	return toView(updated), nil
}

func (s *Service) ConfirmInventory(ctx context.Context, id string) (domain.InventoryView, error) {
	existing, err := s.repo.GetInventory(ctx, id)
	if err != nil {
		return domain.InventoryView{}, err
	}
	if _, err := s.authorize(ctx, inventoryResource(existing.SellerID), policy.ActionConfirm); err != nil {
		return domain.InventoryView{}, err
	}

	confirmed, err := s.repo.ConfirmInventory(ctx, id, s.now())
	if err != nil {
		return domain.InventoryView{}, err
	}
	s.changed(ctx)
	s.metrics.InventoryOperation("confirm")
	s.logAudit(ctx, "inventory_confirm", "inventory", id, fmt.Sprintf("%s %s value=%s", confirmed.Type, confirmed.Date, confirmed.TotalValue))
	s.log(ctx).Info("inventory confirmed", zap.String("inventory_id", id), zap.String("seller_id", confirmed.SellerID))
	return toView(confirmed), nil
}

// CurrentStock reports the shop's stock as left by the latest confirmed
// closing count, valued at current prices.
func (s *Service) CurrentStock(ctx context.Context) (domain.CurrentStock, error) {
	if _, ok := ActorFromContext(ctx); !ok {
		return domain.CurrentStock{}, domain.ErrUnauthenticated
	}

	stock := domain.CurrentStock{Stock: []domain.StockLine{}}
	latest, err := s.repo.LatestInventory(ctx, "", domain.InventoryClosing, true)
	if isNotFound(err) {
		return stock, nil
	}
	if err != nil {
		return domain.CurrentStock{}, err
	}

	stock.InventoryID = latest.ID
	stock.LastUpdate = &latest.Date
	stock.UpdatedBy = latest.Seller
	for _, item := range latest.Items {
		line := domain.StockLine{ProductID: item.ProductID, Name: item.ProductID, Quantity: item.Quantity}
		if item.Product != nil {
			line.Name = item.Product.Name
			line.Unit = item.Product.Unit
			line.Price = item.Product.Price
			line.Value = item.Product.Price.Times(item.Quantity)
		}
		stock.Stock = append(stock.Stock, line)
		stock.TotalValue += line.Value
	}
	return stock, nil
}

// resolveSeller returns the owner of a new record. Sellers always act for
// themselves; admins may name any active seller.
func (s *Service) resolveSeller(ctx context.Context, actor domain.Actor, requested string) (string, error) {
	if !actor.IsAdmin() || requested == "" || requested == actor.UserID {
		return actor.UserID, nil
	}
	user, err := s.repo.GetUser(ctx, requested)
	if isNotFound(err) {
		return "", domain.ErrSellerNotFound
	}
	if err != nil {
		return "", err
	}
	if !user.Active {
		return "", domain.ErrSellerNotFound
	}
	return user.ID, nil
}

func buildItems(inputs []domain.InventoryItemInput) ([]domain.InventoryItem, error) {
	seen := make(map[string]struct{}, len(inputs))
	items := make([]domain.InventoryItem, 0, len(inputs))
	for _, in := range inputs {
		if _, dup := seen[in.ProductID]; dup {
			return nil, domain.ErrDuplicateProduct
		}
		seen[in.ProductID] = struct{}{}

		item := domain.InventoryItem{ProductID: in.ProductID, Notes: in.Notes}
		if in.Quantity != nil {
			item.Quantity = *in.Quantity
		}
		if in.SoldQuantity != nil {
			sold := *in.SoldQuantity
			item.SoldQuantity = &sold
		}
		items = append(items, item)
	}
	return items, nil
}

// valueItems prices the counted lines at the current catalog price.
func (s *Service) valueItems(ctx context.Context, items []domain.InventoryItem) (domain.Money, error) {
	ids := make([]string, 0, len(items))
	counts := make([]domain.ItemCount, 0, len(items))
	for _, item := range items {
		ids = append(ids, item.ProductID)
		counts = append(counts, domain.ItemCount{ProductID: item.ProductID, Quantity: item.Quantity})
	}
	products, err := s.repo.GetProductsByIDs(ctx, ids)
	if err != nil {
		return 0, err
	}
	return valuation.ComputeInventoryValue(counts, valuation.Catalog(products))
}
