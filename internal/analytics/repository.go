package analytics

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/stocklane/stocklane/internal/shared"
)

// Repository runs the grouped analytics queries against PostgreSQL.
type Repository struct {
	pool *pgxpool.Pool
}

// NewRepository constructs Repository.
func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

// windowClause appends the window bounds that are actually set, so an open
// start spans all history.
func windowClause(args []any, column string, w shared.Window) (string, []any) {
	cond := ""
	if !w.From.IsZero() {
		args = append(args, w.From)
		cond += fmt.Sprintf(" AND %s >= $%d", column, len(args))
	}
	if !w.To.IsZero() {
		args = append(args, w.To)
		cond += fmt.Sprintf(" AND %s <= $%d", column, len(args))
	}
	return cond, args
}

// SalesPerDay groups sales by UTC calendar day inside the window.
func (r *Repository) SalesPerDay(ctx context.Context, ownerID uuid.UUID, w shared.Window) ([]DayPoint, error) {
	cond, args := windowClause([]any{ownerID}, "date", w)
	rows, err := r.pool.Query(ctx, `SELECT
date_trunc('day', date AT TIME ZONE 'UTC')::date AS day,
COALESCE(SUM(quantity),0),
COALESCE(SUM(total_revenue),0),
COALESCE(SUM(profit),0)
FROM sales
WHERE owner_id=$1`+cond+`
GROUP BY day ORDER BY day ASC`, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	points := []DayPoint{}
	for rows.Next() {
		var day time.Time
		var p DayPoint
		if err := rows.Scan(&day, &p.Units, &p.Revenue, &p.Profit); err != nil {
			return nil, err
		}
		p.Date = day.Format("2006-01-02")
		points = append(points, p)
	}
	return points, rows.Err()
}

// MonthlyProfit groups sales by calendar month inside the window. The service
// densifies the result; this query only returns months with activity.
func (r *Repository) MonthlyProfit(ctx context.Context, ownerID uuid.UUID, w shared.Window) ([]MonthPoint, error) {
	cond, args := windowClause([]any{ownerID}, "date", w)
	rows, err := r.pool.Query(ctx, `SELECT
date_trunc('month', date AT TIME ZONE 'UTC')::date AS month,
COALESCE(SUM(total_revenue),0),
COALESCE(SUM(total_cost),0),
COALESCE(SUM(profit),0)
FROM sales
WHERE owner_id=$1`+cond+`
GROUP BY month ORDER BY month ASC`, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	points := []MonthPoint{}
	for rows.Next() {
		var month time.Time
		var p MonthPoint
		if err := rows.Scan(&month, &p.Revenue, &p.Cost, &p.Profit); err != nil {
			return nil, err
		}
		p.Month = month.Format("Jan")
		p.Year = month.Year()
		points = append(points, p)
	}
	return points, rows.Err()
}
