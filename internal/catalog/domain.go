package catalog

import (
	"errors"
	"time"

	"github.com/google/uuid"
)

// StockStatus derives a coarse availability label from quantity and reorder level.
type StockStatus string

const (
	// StockStatusOut means no units on hand.
	StockStatusOut StockStatus = "Out of Stock"
	// StockStatusLow means on hand at or below the reorder level.
	StockStatusLow StockStatus = "Low Stock"
	// StockStatusIn means comfortably above the reorder level.
	StockStatusIn StockStatus = "In Stock"
)

// DefaultReOrderLevel applies when product creation omits a reorder level.
const DefaultReOrderLevel = 10

// Product is the stocked item. Quantity is mutated only by the ledger
// service; every other field is owned by this package.
type Product struct {
	ID           uuid.UUID `json:"id"`
	OwnerID      uuid.UUID `json:"-"`
	Name         string    `json:"name"`
	SKU          string    `json:"sku"`
	Supplier     string    `json:"supplier"`
	CategoryID   uuid.UUID `json:"-"`
	CategoryName string    `json:"-"`
	CostPrice    float64   `json:"costPrice"`
	SellingPrice float64   `json:"sellingPrice"`
	Quantity     int64     `json:"quantity"`
	ReOrderLevel int64     `json:"reOrderLevel"`
	Description  string    `json:"description"`
	CreatedAt    time.Time `json:"createdAt"`
	UpdatedAt    time.Time `json:"updatedAt"`
}

// StockStatus classifies the current quantity.
func (p Product) StockStatus() StockStatus {
	switch {
	case p.Quantity == 0:
		return StockStatusOut
	case p.Quantity <= p.ReOrderLevel:
		return StockStatusLow
	default:
		return StockStatusIn
	}
}

// ProfitPerUnit is the margin between selling and cost price.
func (p Product) ProfitPerUnit() float64 {
	return p.SellingPrice - p.CostPrice
}

// CategoryRef is the single expanded category shape exposed at the boundary.
type CategoryRef struct {
	ID   uuid.UUID `json:"id"`
	Name string    `json:"name"`
}

// ProductView is the API projection of a product with derived fields.
type ProductView struct {
	Product
	Category    CategoryRef `json:"category"`
	StockStatus StockStatus `json:"stockStatus"`
	Profit      float64     `json:"profit"`
}

// View builds the API projection.
func (p Product) View() ProductView {
	return ProductView{
		Product:     p,
		Category:    CategoryRef{ID: p.CategoryID, Name: p.CategoryName},
		StockStatus: p.StockStatus(),
		Profit:      p.ProfitPerUnit(),
	}
}

// Category groups products and expenses per owner.
type Category struct {
	ID          uuid.UUID `json:"id"`
	OwnerID     uuid.UUID `json:"-"`
	Name        string    `json:"name"`
	Description string    `json:"description"`
	Color       string    `json:"color"`
	CreatedAt   time.Time `json:"createdAt"`
}

// CreateProductInput carries validated product creation data.
type CreateProductInput struct {
	OwnerID      uuid.UUID
	Name         string
	SKU          string
	Supplier     string
	CategoryID   uuid.UUID
	CostPrice    float64
	SellingPrice float64
	Description  string
	Quantity     int64
	ReOrderLevel int64
}

// CreateCategoryInput carries validated category creation data.
type CreateCategoryInput struct {
	OwnerID     uuid.UUID
	Name        string
	Description string
	Color       string
}

// UpdateCategoryInput carries a partial category update.
type UpdateCategoryInput struct {
	OwnerID     uuid.UUID
	ID          uuid.UUID
	Name        string
	Description *string
	Color       *string
}

// ProductFilter narrows product listings.
type ProductFilter struct {
	OwnerID    uuid.UUID
	Search     string
	CategoryID uuid.UUID
	Stock      string
	Page       int
	Limit      int
}

// Stock filter values accepted by ProductFilter.Stock.
const (
	StockFilterOut = "out-of-stock"
	StockFilterLow = "low-stock"
	StockFilterIn  = "in-stock"
)

var (
	// ErrProductNotFound indicates no product under the caller's ownership.
	ErrProductNotFound = errors.New("product not found")
	// ErrCategoryNotFound indicates no category under the caller's ownership.
	ErrCategoryNotFound = errors.New("category not found")
	// ErrDuplicateSKU indicates a per-owner SKU collision.
	ErrDuplicateSKU = errors.New("sku already exists")
	// ErrDuplicateName indicates a per-owner case-insensitive name collision.
	ErrDuplicateName = errors.New("name already exists")
	// ErrSellingBelowCost rejects products priced at or below cost.
	ErrSellingBelowCost = errors.New("selling price must be greater than cost price")
	// ErrCategoryInUse blocks deleting a category still referenced by products.
	ErrCategoryInUse = errors.New("category is referenced by existing products")
)
