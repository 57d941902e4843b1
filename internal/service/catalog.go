package service

import (
	"context"
	"fmt"
	"strings"

	"github.com/Najinc/painperdu/internal/domain"
	"github.com/Najinc/painperdu/internal/policy"
	"github.com/Najinc/painperdu/internal/query"
	"github.com/Najinc/painperdu/internal/validate"
)

var (
	categoryResource = policy.Resource{Kind: policy.KindCategory}
	productResource  = policy.Resource{Kind: policy.KindProduct}
)

func (s *Service) ListCategories(ctx context.Context, filter query.CategoryFilter) ([]domain.Category, error) {
	if _, err := s.authorize(ctx, categoryResource, policy.ActionRead); err != nil {
		return nil, err
	}
	return s.repo.ListCategories(ctx, filter)
}

func (s *Service) GetCategory(ctx context.Context, id string) (domain.Category, error) {
	if _, err := s.authorize(ctx, categoryResource, policy.ActionRead); err != nil {
		return domain.Category{}, err
	}
	category, err := s.repo.GetCategory(ctx, id)
	if err != nil {
		return domain.Category{}, err
	}
	return *category, nil
}

func (s *Service) CreateCategory(ctx context.Context, req domain.CategoryCreateRequest) (domain.Category, error) {
	actor, err := s.authorize(ctx, categoryResource, policy.ActionCreate)
	if err != nil {
		return domain.Category{}, err
	}
	if err := validate.Struct(req); err != nil {
		return domain.Category{}, err
	}

	color := strings.TrimSpace(req.Color)
	if color == "" {
		color = domain.DefaultCategoryColor
	}
	now := s.now()
	category := domain.Category{
		Name:        strings.TrimSpace(req.Name),
		Description: strings.TrimSpace(req.Description),
		Color:       color,
		Active:      true,
		CreatedBy:   actor.UserID,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	if err := category.Validate(); err != nil {
		return domain.Category{}, err
	}

	created, err := s.repo.CreateCategory(ctx, category)
	if err != nil {
		return domain.Category{}, err
	}
	s.logAudit(ctx, "category_create", "category", created.ID, created.Name)
	return *created, nil
}

func (s *Service) UpdateCategory(ctx context.Context, id string, req domain.CategoryUpdateRequest) (domain.Category, error) {
	if _, err := s.authorize(ctx, categoryResource, policy.ActionUpdate); err != nil {
		return domain.Category{}, err
	}
	if err := validate.Struct(req); err != nil {
		return domain.Category{}, err
	}
	existing, err := s.repo.GetCategory(ctx, id)
	if err != nil {
		return domain.Category{}, err
	}

	next := *existing
	if req.Name != nil {
		next.Name = strings.TrimSpace(*req.Name)
	}
	if req.Description != nil {
		next.Description = strings.TrimSpace(*req.Description)
	}
	if req.Color != nil {
		next.Color = *req.Color
	}
	if req.Active != nil {
		next.Active = *req.Active
	}
	next.UpdatedAt = s.now()
	if err := next.Validate(); err != nil {
		return domain.Category{}, err
	}

	updated, err := s.repo.UpdateCategory(ctx, next)
	if err != nil {
		return domain.Category{}, err
	}
	s.changed(ctx)
	s.logAudit(ctx, "category_update", "category", updated.ID, updated.Name)
	return *updated, nil
}

// DeleteCategory deactivates the category. Categories keep their history so
// products and past counts stay readable.
func (s *Service) DeleteCategory(ctx context.Context, id string) error {
	if _, err := s.authorize(ctx, categoryResource, policy.ActionDelete); err != nil {
		return err
	}
	if err := s.repo.DeactivateCategory(ctx, id, s.now()); err != nil {
		return err
	}
	s.changed(ctx)
	s.logAudit(ctx, "category_delete", "category", id, "deactivated")
	return nil
}

func (s *Service) ListProducts(ctx context.Context, filter query.ProductFilter) (domain.ProductList, error) {
	if _, err := s.authorize(ctx, productResource, policy.ActionRead); err != nil {
		return domain.ProductList{}, err
	}
	products, total, err := s.repo.ListProducts(ctx, filter)
	if err != nil {
		return domain.ProductList{}, err
	}
	return domain.ProductList{Products: products, Pagination: filter.Page.Paginate(total)}, nil
}

// ProductsByCategory lists the active products of one category by name.
func (s *Service) ProductsByCategory(ctx context.Context, categoryID string) ([]domain.Product, error) {
	if _, err := s.authorize(ctx, productResource, policy.ActionRead); err != nil {
		return nil, err
	}
	if _, err := s.repo.GetCategory(ctx, categoryID); err != nil {
		return nil, err
	}
	active := true
	products, _, err := s.repo.ListProducts(ctx, query.ProductFilter{
		CategoryID: categoryID,
		Active:     &active,
		Sort:       query.Sort{Field: "name"},
	})
	return products, err
}

func (s *Service) GetProduct(ctx context.Context, id string) (domain.Product, error) {
	if _, err := s.authorize(ctx, productResource, policy.ActionRead); err != nil {
		return domain.Product{}, err
	}
	product, err := s.repo.GetProduct(ctx, id)
	if err != nil {
		return domain.Product{}, err
	}
	return *product, nil
}

func (s *Service) CreateProduct(ctx context.Context, req domain.ProductCreateRequest) (domain.Product, error) {
	actor, err := s.authorize(ctx, productResource, policy.ActionCreate)
	if err != nil {
		return domain.Product{}, err
	}
	if err := validate.Struct(req); err != nil {
		return domain.Product{}, err
	}

	unit := req.Unit
	if unit == "" {
		unit = domain.UnitPiece
	}
	now := s.now()
	product := domain.Product{
		Name:        strings.TrimSpace(req.Name),
		Description: strings.TrimSpace(req.Description),
		Price:       *req.Price,
		Unit:        unit,
		CategoryID:  req.CategoryID,
		MinStock:    req.MinStock,
		Active:      true,
		CreatedBy:   actor.UserID,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	if err := product.Validate(); err != nil {
		return domain.Product{}, err
	}

	created, err := s.repo.CreateProduct(ctx, product)
	if err != nil {
		return domain.Product{}, err
	}
	s.changed(ctx)
	s.logAudit(ctx, "product_create", "product", created.ID, fmt.Sprintf("%s price=%s", created.Name, created.Price))
	return *created, nil
}

// UpdateProduct does not revalue past inventories: their totalValue is the
// snapshot taken when they were counted.
func (s *Service) UpdateProduct(ctx context.Context, id string, req domain.ProductUpdateRequest) (domain.Product, error) {
	if _, err := s.authorize(ctx, productResource, policy.ActionUpdate); err != nil {
		return domain.Product{}, err
	}
	if err := validate.Struct(req); err != nil {
		return domain.Product{}, err
	}
	existing, err := s.repo.GetProduct(ctx, id)
	if err != nil {
		return domain.Product{}, err
	}

	next := *existing
	next.Category = nil
	if req.Name != nil {
		next.Name = strings.TrimSpace(*req.Name)
	}
	if req.Description != nil {
		next.Description = strings.TrimSpace(*req.Description)
	}
	if req.Price != nil {
		next.Price = *req.Price
	}
	if req.Unit != nil {
		next.Unit = *req.Unit
	}
	if req.CategoryID != nil {
		next.CategoryID = *req.CategoryID
	}
	if req.MinStock != nil {
		next.MinStock = *req.MinStock
	}
	if req.Active != nil {
		next.Active = *req.Active
	}
	next.UpdatedAt = s.now()
	if err := next.Validate(); err != nil {
		return domain.Product{}, err
	}

	updated, err := s.repo.UpdateProduct(ctx, next)
	if err != nil {
		return domain.Product{}, err
	}
	s.changed(ctx)
	detail := updated.Name
	if updated.Price != existing.Price {
		detail = fmt.Sprintf("%s price %s -> %s", updated.Name, existing.Price, updated.Price)
	}
	s.logAudit(ctx, "product_update", "product", updated.ID, detail)
	return *updated, nil
}

func (s *Service) DeleteProduct(ctx context.Context, id string) error {
	if _, err := s.authorize(ctx, productResource, policy.ActionDelete); err != nil {
		return err
	}
	if err := s.repo.DeleteProduct(ctx, id); err != nil {
		return err
	}
	s.changed(ctx)
	s.logAudit(ctx, "product_delete", "product", id, "")
	return nil
}
