package catalog

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	"golang.org/x/text/cases"
)

// Repository persists catalog data in PostgreSQL. Name uniqueness is enforced
// per owner on a case-folded shadow column so "Widget" and "widget" collide.
type Repository struct {
	pool *pgxpool.Pool
}

// NewRepository constructs Repository.
func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

var folder = cases.Fold()

// Fold normalizes a name for case-insensitive uniqueness comparison.
func Fold(name string) string {
	return folder.String(strings.TrimSpace(name))
}

const productColumns = `p.id, p.owner_id, p.name, p.sku, p.supplier, p.category_id, COALESCE(c.name, ''), p.cost_price, p.selling_price, p.quantity, p.reorder_level, p.description, p.created_at, p.updated_at`

func scanProduct(row pgx.Row) (Product, error) {
	var p Product
	err := row.Scan(&p.ID, &p.OwnerID, &p.Name, &p.SKU, &p.Supplier, &p.CategoryID, &p.CategoryName, &p.CostPrice, &p.SellingPrice, &p.Quantity, &p.ReOrderLevel, &p.Description, &p.CreatedAt, &p.UpdatedAt)
	return p, err
}

// InsertProduct stores a new product.
func (r *Repository) InsertProduct(ctx context.Context, p Product) (Product, error) {
	err := r.pool.QueryRow(ctx, `INSERT INTO products (id, owner_id, name, name_fold, sku, supplier, category_id, cost_price, selling_price, quantity, reorder_level, description, created_at, updated_at)
VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,NOW(),NOW())
RETURNING created_at, updated_at`,
		p.ID, p.OwnerID, p.Name, Fold(p.Name), p.SKU, p.Supplier, p.CategoryID, p.CostPrice, p.SellingPrice, p.Quantity, p.ReOrderLevel, p.Description).
		Scan(&p.CreatedAt, &p.UpdatedAt)
	if err != nil {
		if pgErr, ok := err.(*pgconn.PgError); ok && pgErr.Code == "23505" {
			switch pgErr.ConstraintName {
			case "products_owner_sku_key":
				return Product{}, ErrDuplicateSKU
			case "products_owner_name_fold_key":
				return Product{}, ErrDuplicateName
			}
			return Product{}, ErrDuplicateSKU
		}
		return Product{}, err
	}
	return p, nil
}

// GetProduct loads a product owned by the caller, category name expanded.
func (r *Repository) GetProduct(ctx context.Context, ownerID, productID uuid.UUID) (Product, error) {
	row := r.pool.QueryRow(ctx, `SELECT `+productColumns+`
FROM products p LEFT JOIN categories c ON c.id = p.category_id
WHERE p.id=$1 AND p.owner_id=$2`, productID, ownerID)
	p, err := scanProduct(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return Product{}, ErrProductNotFound
	}
	return p, err
}

// ListProducts returns one page of products plus the unpaged total.
func (r *Repository) ListProducts(ctx context.Context, filter ProductFilter) ([]Product, int, error) {
	where := []string{"p.owner_id=$1"}
	args := []any{filter.OwnerID}
	if filter.Search != "" {
		args = append(args, "%"+strings.TrimSpace(filter.Search)+"%")
		where = append(where, fmt.Sprintf("p.name ILIKE $%d", len(args)))
	}
	if filter.CategoryID != uuid.Nil {
		args = append(args, filter.CategoryID)
		where = append(where, fmt.Sprintf("p.category_id=$%d", len(args)))
	}
	switch filter.Stock {
	case StockFilterOut:
		where = append(where, "p.quantity = 0")
	case StockFilterLow:
		where = append(where, "p.quantity > 0 AND p.quantity <= p.reorder_level")
	case StockFilterIn:
		where = append(where, "p.quantity > p.reorder_level")
	}
	cond := strings.Join(where, " AND ")

	var total int
	if err := r.pool.QueryRow(ctx, `SELECT COUNT(*) FROM products p WHERE `+cond, args...).Scan(&total); err != nil {
		return nil, 0, err
	}

	limit := filter.Limit
	if limit <= 0 {
		limit = 12
	}
	page := filter.Page
	if page <= 0 {
		page = 1
	}
	args = append(args, limit, (page-1)*limit)
	rows, err := r.pool.Query(ctx, `SELECT `+productColumns+`
FROM products p LEFT JOIN categories c ON c.id = p.category_id
WHERE `+cond+fmt.Sprintf(` ORDER BY p.created_at DESC LIMIT $%d OFFSET $%d`, len(args)-1, len(args)), args...)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()

	products := []Product{}
	for rows.Next() {
		p, err := scanProduct(rows)
		if err != nil {
			return nil, 0, err
		}
		products = append(products, p)
	}
	return products, total, rows.Err()
}

// ProductOption is the minimal shape for form dropdowns.
type ProductOption struct {
	ID       uuid.UUID `json:"id"`
	Name     string    `json:"name"`
	Quantity int64     `json:"quantity"`
}

// ListProductOptions returns id/name/quantity for every product of the owner.
func (r *Repository) ListProductOptions(ctx context.Context, ownerID uuid.UUID) ([]ProductOption, error) {
	rows, err := r.pool.Query(ctx, `SELECT id, name, quantity FROM products WHERE owner_id=$1 ORDER BY name ASC`, ownerID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	options := []ProductOption{}
	for rows.Next() {
		var opt ProductOption
		if err := rows.Scan(&opt.ID, &opt.Name, &opt.Quantity); err != nil {
			return nil, err
		}
		options = append(options, opt)
	}
	return options, rows.Err()
}

// GetCategory loads a category owned by the caller.
func (r *Repository) GetCategory(ctx context.Context, ownerID, categoryID uuid.UUID) (Category, error) {
	var c Category
	err := r.pool.QueryRow(ctx, `SELECT id, owner_id, name, description, color, created_at FROM categories WHERE id=$1 AND owner_id=$2`, categoryID, ownerID).
		Scan(&c.ID, &c.OwnerID, &c.Name, &c.Description, &c.Color, &c.CreatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return Category{}, ErrCategoryNotFound
	}
	return c, err
}

// InsertCategory stores a new category.
func (r *Repository) InsertCategory(ctx context.Context, c Category) (Category, error) {
	err := r.pool.QueryRow(ctx, `INSERT INTO categories (id, owner_id, name, name_fold, description, color, created_at)
VALUES ($1,$2,$3,$4,$5,$6,NOW()) RETURNING created_at`,
		c.ID, c.OwnerID, c.Name, Fold(c.Name), c.Description, c.Color).Scan(&c.CreatedAt)
	if err != nil {
		if pgErr, ok := err.(*pgconn.PgError); ok && pgErr.Code == "23505" {
			return Category{}, ErrDuplicateName
		}
		return Category{}, err
	}
	return c, nil
}

// ListCategories returns all categories of the owner ordered by name.
func (r *Repository) ListCategories(ctx context.Context, ownerID uuid.UUID) ([]Category, error) {
	rows, err := r.pool.Query(ctx, `SELECT id, owner_id, name, description, color, created_at FROM categories WHERE owner_id=$1 ORDER BY name ASC`, ownerID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	categories := []Category{}
	for rows.Next() {
		var c Category
		if err := rows.Scan(&c.ID, &c.OwnerID, &c.Name, &c.Description, &c.Color, &c.CreatedAt); err != nil {
			return nil, err
		}
		categories = append(categories, c)
	}
	return categories, rows.Err()
}

// UpdateCategory applies a partial update and returns the stored row.
func (r *Repository) UpdateCategory(ctx context.Context, in UpdateCategoryInput) (Category, error) {
	set := []string{}
	args := []any{in.ID, in.OwnerID}
	if in.Name != "" {
		args = append(args, in.Name)
		set = append(set, fmt.Sprintf("name=$%d", len(args)))
		args = append(args, Fold(in.Name))
		set = append(set, fmt.Sprintf("name_fold=$%d", len(args)))
	}
	if in.Description != nil {
		args = append(args, *in.Description)
		set = append(set, fmt.Sprintf("description=$%d", len(args)))
	}
	if in.Color != nil {
		args = append(args, *in.Color)
		set = append(set, fmt.Sprintf("color=$%d", len(args)))
	}
	if len(set) == 0 {
		return r.GetCategory(ctx, in.OwnerID, in.ID)
	}
	var c Category
	err := r.pool.QueryRow(ctx, `UPDATE categories SET `+strings.Join(set, ", ")+`
WHERE id=$1 AND owner_id=$2 RETURNING id, owner_id, name, description, color, created_at`, args...).
		Scan(&c.ID, &c.OwnerID, &c.Name, &c.Description, &c.Color, &c.CreatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return Category{}, ErrCategoryNotFound
	}
	if pgErr, ok := err.(*pgconn.PgError); ok && pgErr.Code == "23505" {
		return Category{}, ErrDuplicateName
	}
	return c, err
}

// DeleteCategory removes a category that no product references.
func (r *Repository) DeleteCategory(ctx context.Context, ownerID, categoryID uuid.UUID) error {
	var inUse int
	if err := r.pool.QueryRow(ctx, `SELECT COUNT(*) FROM products WHERE owner_id=$1 AND category_id=$2`, ownerID, categoryID).Scan(&inUse); err != nil {
		return err
	}
	if inUse > 0 {
		return ErrCategoryInUse
	}
	tag, err := r.pool.Exec(ctx, `DELETE FROM categories WHERE id=$1 AND owner_id=$2`, categoryID, ownerID)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrCategoryNotFound
	}
	return nil
}
