package catalog

import (
	"context"
	"errors"
	"strings"

	"github.com/google/uuid"

	"github.com/stocklane/stocklane/internal/shared"
)

// RepositoryPort abstracts repository usage for the service.
type RepositoryPort interface {
	InsertProduct(ctx context.Context, p Product) (Product, error)
	GetProduct(ctx context.Context, ownerID, productID uuid.UUID) (Product, error)
	ListProducts(ctx context.Context, filter ProductFilter) ([]Product, int, error)
	ListProductOptions(ctx context.Context, ownerID uuid.UUID) ([]ProductOption, error)
	GetCategory(ctx context.Context, ownerID, categoryID uuid.UUID) (Category, error)
	InsertCategory(ctx context.Context, c Category) (Category, error)
	ListCategories(ctx context.Context, ownerID uuid.UUID) ([]Category, error)
	UpdateCategory(ctx context.Context, in UpdateCategoryInput) (Category, error)
	DeleteCategory(ctx context.Context, ownerID, categoryID uuid.UUID) error
}

// Service coordinates catalog operations.
type Service struct {
	repo RepositoryPort
}

// NewService builds Service.
func NewService(repo RepositoryPort) *Service {
	return &Service{repo: repo}
}

// ErrInvalidInput marks pre-persistence validation failures.
var ErrInvalidInput = errors.New("catalog: invalid input")

// CreateProduct validates and stores a new product. SKU is upper-cased and
// name trimmed before the per-owner uniqueness checks run in the store.
func (s *Service) CreateProduct(ctx context.Context, in CreateProductInput) (Product, error) {
	name := strings.TrimSpace(in.Name)
	sku := strings.ToUpper(strings.TrimSpace(in.SKU))
	if name == "" || sku == "" {
		return Product{}, ErrInvalidInput
	}
	if in.OwnerID == uuid.Nil || in.CategoryID == uuid.Nil {
		return Product{}, ErrInvalidInput
	}
	if in.CostPrice < 0 || in.SellingPrice < 0 {
		return Product{}, ErrInvalidInput
	}
	if in.SellingPrice <= in.CostPrice {
		return Product{}, ErrSellingBelowCost
	}
	if _, err := s.repo.GetCategory(ctx, in.OwnerID, in.CategoryID); err != nil {
		return Product{}, err
	}

	quantity := in.Quantity
	if quantity < 0 {
		quantity = 0
	}
	reorder := in.ReOrderLevel
	if reorder <= 0 {
		reorder = DefaultReOrderLevel
	}
	supplier := strings.TrimSpace(in.Supplier)
	if supplier == "" {
		supplier = "Unknown"
	}

	return s.repo.InsertProduct(ctx, Product{
		ID:           uuid.New(),
		OwnerID:      in.OwnerID,
		Name:         name,
		SKU:          sku,
		Supplier:     supplier,
		CategoryID:   in.CategoryID,
		CostPrice:    in.CostPrice,
		SellingPrice: in.SellingPrice,
		Quantity:     quantity,
		ReOrderLevel: reorder,
		Description:  strings.TrimSpace(in.Description),
	})
}

// GetProduct loads one product view.
func (s *Service) GetProduct(ctx context.Context, ownerID, productID uuid.UUID) (ProductView, error) {
	p, err := s.repo.GetProduct(ctx, ownerID, productID)
	if err != nil {
		return ProductView{}, err
	}
	return p.View(), nil
}

// ProductPage is one page of product views.
type ProductPage struct {
	Products   []ProductView     `json:"products"`
	Pagination shared.Pagination `json:"pagination"`
}

// ListProducts returns a filtered page with derived fields attached.
func (s *Service) ListProducts(ctx context.Context, filter ProductFilter) (ProductPage, error) {
	if filter.Limit <= 0 {
		filter.Limit = 12
	}
	if filter.Page <= 0 {
		filter.Page = 1
	}
	products, total, err := s.repo.ListProducts(ctx, filter)
	if err != nil {
		return ProductPage{}, err
	}
	views := make([]ProductView, 0, len(products))
	for _, p := range products {
		views = append(views, p.View())
	}
	return ProductPage{
		Products:   views,
		Pagination: shared.NewPagination(filter.Page, filter.Limit, total),
	}, nil
}

// ListProductOptions returns the dropdown projection.
func (s *Service) ListProductOptions(ctx context.Context, ownerID uuid.UUID) ([]ProductOption, error) {
	return s.repo.ListProductOptions(ctx, ownerID)
}

// CreateCategory validates and stores a new category.
func (s *Service) CreateCategory(ctx context.Context, in CreateCategoryInput) (Category, error) {
	name := strings.TrimSpace(in.Name)
	if name == "" || in.OwnerID == uuid.Nil {
		return Category{}, ErrInvalidInput
	}
	color := strings.TrimSpace(in.Color)
	if color == "" {
		color = "#a3a3a3"
	}
	return s.repo.InsertCategory(ctx, Category{
		ID:          uuid.New(),
		OwnerID:     in.OwnerID,
		Name:        name,
		Description: strings.TrimSpace(in.Description),
		Color:       color,
	})
}

// ListCategories returns every category of the owner.
func (s *Service) ListCategories(ctx context.Context, ownerID uuid.UUID) ([]Category, error) {
	return s.repo.ListCategories(ctx, ownerID)
}

// UpdateCategory applies a partial update.
func (s *Service) UpdateCategory(ctx context.Context, in UpdateCategoryInput) (Category, error) {
	if in.ID == uuid.Nil || in.OwnerID == uuid.Nil {
		return Category{}, ErrInvalidInput
	}
	in.Name = strings.TrimSpace(in.Name)
	return s.repo.UpdateCategory(ctx, in)
}

// DeleteCategory removes an unreferenced category.
func (s *Service) DeleteCategory(ctx context.Context, ownerID, categoryID uuid.UUID) error {
	return s.repo.DeleteCategory(ctx, ownerID, categoryID)
}

// ResolveCategory verifies category ownership for other modules.
func (s *Service) ResolveCategory(ctx context.Context, ownerID, categoryID uuid.UUID) (Category, error) {
	return s.repo.GetCategory(ctx, ownerID, categoryID)
}
