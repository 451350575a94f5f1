package dashboard

import (
	"context"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/stocklane/stocklane/internal/shared"
)

// Repository runs the dashboard aggregate queries against PostgreSQL.
type Repository struct {
	pool *pgxpool.Pool
}

// NewRepository constructs Repository.
func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

// StockOverview counts the catalog and values stock at cost.
func (r *Repository) StockOverview(ctx context.Context, ownerID uuid.UUID) (StockOverview, error) {
	var o StockOverview
	err := r.pool.QueryRow(ctx, `SELECT
COUNT(*),
COUNT(*) FILTER (WHERE quantity > 0 AND quantity <= reorder_level),
COUNT(*) FILTER (WHERE quantity = 0),
COALESCE(SUM(quantity * cost_price), 0)
FROM products WHERE owner_id=$1`, ownerID).
		Scan(&o.TotalProducts, &o.LowStock, &o.OutOfStock, &o.StockValue)
	return o, err
}

// SalesSlice aggregates sales inside the window.
func (r *Repository) SalesSlice(ctx context.Context, ownerID uuid.UUID, w shared.Window) (SalesSlice, error) {
	var s SalesSlice
	err := r.pool.QueryRow(ctx, `SELECT COUNT(*), COALESCE(SUM(quantity),0), COALESCE(SUM(total_revenue),0), COALESCE(SUM(profit),0)
FROM sales WHERE owner_id=$1 AND date >= $2 AND date <= $3`, ownerID, w.From, w.To).
		Scan(&s.Count, &s.Units, &s.Revenue, &s.Profit)
	return s, err
}

// PurchasesSlice aggregates purchases inside the window.
func (r *Repository) PurchasesSlice(ctx context.Context, ownerID uuid.UUID, w shared.Window) (PurchasesSlice, error) {
	var p PurchasesSlice
	err := r.pool.QueryRow(ctx, `SELECT COUNT(*), COALESCE(SUM(quantity),0), COALESCE(SUM(total_cost),0)
FROM purchases WHERE owner_id=$1 AND date >= $2 AND date <= $3`, ownerID, w.From, w.To).
		Scan(&p.Count, &p.Units, &p.TotalCost)
	return p, err
}

// ExpensesTotal sums expenses inside the window.
func (r *Repository) ExpensesTotal(ctx context.Context, ownerID uuid.UUID, w shared.Window) (float64, error) {
	var total float64
	err := r.pool.QueryRow(ctx, `SELECT COALESCE(SUM(amount),0)
FROM expenses WHERE owner_id=$1 AND date >= $2 AND date <= $3`, ownerID, w.From, w.To).
		Scan(&total)
	return total, err
}
