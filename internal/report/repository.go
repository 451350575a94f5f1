package report

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/stocklane/stocklane/internal/shared"
)

// Repository runs the report aggregates against PostgreSQL.
type Repository struct {
	pool *pgxpool.Pool
}

// NewRepository constructs Repository.
func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

// SaleTotals aggregates sales inside the window.
func (r *Repository) SaleTotals(ctx context.Context, ownerID uuid.UUID, w shared.Window) (Totals, error) {
	var t Totals
	err := r.pool.QueryRow(ctx, `SELECT COUNT(*), COALESCE(SUM(quantity),0), COALESCE(SUM(total_revenue),0), COALESCE(SUM(total_cost),0), COALESCE(SUM(profit),0)
FROM sales WHERE owner_id=$1 AND date >= $2 AND date <= $3`, ownerID, w.From, w.To).
		Scan(&t.SaleCount, &t.UnitsSold, &t.TotalRevenue, &t.TotalCost, &t.GrossProfit)
	return t, err
}

// ExpenseTotal sums expenses inside the window.
func (r *Repository) ExpenseTotal(ctx context.Context, ownerID uuid.UUID, w shared.Window) (float64, error) {
	var total float64
	err := r.pool.QueryRow(ctx, `SELECT COALESCE(SUM(amount),0)
FROM expenses WHERE owner_id=$1 AND date >= $2 AND date <= $3`, ownerID, w.From, w.To).
		Scan(&total)
	return total, err
}

// ProductPerformance aggregates per-product sales inside the window.
func (r *Repository) ProductPerformance(ctx context.Context, ownerID uuid.UUID, w shared.Window) ([]ProductPerformance, error) {
	rows, err := r.pool.Query(ctx, `SELECT product_id, product_name, COALESCE(SUM(quantity),0), COALESCE(SUM(total_revenue),0)
FROM sales WHERE owner_id=$1 AND date >= $2 AND date <= $3
GROUP BY product_id, product_name`, ownerID, w.From, w.To)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	perf := []ProductPerformance{}
	for rows.Next() {
		var p ProductPerformance
		if err := rows.Scan(&p.ProductID, &p.Name, &p.Units, &p.Revenue); err != nil {
			return nil, err
		}
		perf = append(perf, p)
	}
	return perf, rows.Err()
}

// DailySales groups sales by UTC day inside the window.
func (r *Repository) DailySales(ctx context.Context, ownerID uuid.UUID, w shared.Window) ([]TrendPoint, error) {
	rows, err := r.pool.Query(ctx, `SELECT
date_trunc('day', date AT TIME ZONE 'UTC')::date AS day,
COALESCE(SUM(quantity),0),
COALESCE(SUM(total_revenue),0),
COALESCE(SUM(profit),0)
FROM sales WHERE owner_id=$1 AND date >= $2 AND date <= $3
GROUP BY day ORDER BY day ASC`, ownerID, w.From, w.To)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	points := []TrendPoint{}
	for rows.Next() {
		var day time.Time
		var p TrendPoint
		if err := rows.Scan(&day, &p.Units, &p.Revenue, &p.Profit); err != nil {
			return nil, err
		}
		p.Date = day.Format("2006-01-02")
		points = append(points, p)
	}
	return points, rows.Err()
}
