package ledger

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/stocklane/stocklane/internal/shared"
)

// ProductRow is the stock snapshot the ledger needs from the products table.
type ProductRow struct {
	ID           uuid.UUID `json:"id"`
	Name         string    `json:"name"`
	Quantity     int64     `json:"quantity"`
	CostPrice    float64   `json:"costPrice"`
	SellingPrice float64   `json:"sellingPrice"`
}

// TxRepository exposes the mutations available inside one ledger transaction.
type TxRepository interface {
	GetProductForUpdate(ctx context.Context, ownerID, productID uuid.UUID) (ProductRow, error)
	UpdateProductQuantity(ctx context.Context, productID uuid.UUID, quantity int64) error
	InsertPurchase(ctx context.Context, p Purchase) error
	InsertSale(ctx context.Context, s Sale) error
}

// RepositoryPort abstracts ledger persistence for the service.
type RepositoryPort interface {
	WithTx(ctx context.Context, fn func(ctx context.Context, tx TxRepository) error) error
	InsertExpense(ctx context.Context, e Expense) (Expense, error)
	DeleteExpense(ctx context.Context, ownerID, expenseID uuid.UUID) error
	ListPurchases(ctx context.Context, filter ListFilter) ([]Purchase, int, PurchaseTotals, error)
	ListSales(ctx context.Context, filter ListFilter) ([]Sale, int, SaleTotals, error)
	ListExpenses(ctx context.Context, filter ListFilter) ([]Expense, int, ExpenseTotals, error)
	ExpenseSummary(ctx context.Context, filter ListFilter) (ExpenseSummary, error)
}

// PurchaseTotals aggregates the filtered purchase rows.
type PurchaseTotals struct {
	Quantity  int64   `json:"totalQuantity"`
	TotalCost float64 `json:"totalCost"`
}

// SaleTotals aggregates the filtered sale rows.
type SaleTotals struct {
	Quantity     int64   `json:"totalQuantity"`
	TotalRevenue float64 `json:"totalRevenue"`
	TotalCost    float64 `json:"totalCost"`
	TotalProfit  float64 `json:"totalProfit"`
}

// ExpenseTotals aggregates the filtered expense rows.
type ExpenseTotals struct {
	TotalAmount float64 `json:"totalAmount"`
}

// CategoryExpense is one per-category slice of the expense summary.
type CategoryExpense struct {
	CategoryID   uuid.UUID `json:"categoryId"`
	CategoryName string    `json:"categoryName"`
	Amount       float64   `json:"amount"`
	Count        int64     `json:"count"`
}

// ExpenseSummary breaks the window's expense total down by category.
type ExpenseSummary struct {
	TotalAmount float64           `json:"totalAmount"`
	Count       int64             `json:"count"`
	ByCategory  []CategoryExpense `json:"byCategory"`
}

// Repository persists the ledger in PostgreSQL.
type Repository struct {
	pool *pgxpool.Pool
}

// NewRepository constructs Repository.
func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

// WithTx runs fn inside a repeatable-read transaction. Stock reads and the
// movement insert commit or roll back as one unit.
func (r *Repository) WithTx(ctx context.Context, fn func(ctx context.Context, tx TxRepository) error) error {
	tx, err := r.pool.BeginTx(ctx, pgx.TxOptions{IsoLevel: pgx.RepeatableRead})
	if err != nil {
		return fmt.Errorf("begin ledger tx: %w", err)
	}
	defer func() {
		_ = tx.Rollback(ctx)
	}()

	if err := fn(ctx, &txRepository{tx: tx}); err != nil {
		return err
	}
	return tx.Commit(ctx)
}

type txRepository struct {
	tx pgx.Tx
}

// GetProductForUpdate locks the product row for the rest of the transaction.
func (r *txRepository) GetProductForUpdate(ctx context.Context, ownerID, productID uuid.UUID) (ProductRow, error) {
	var p ProductRow
	err := r.tx.QueryRow(ctx, `SELECT id, name, quantity, cost_price, selling_price
FROM products WHERE id=$1 AND owner_id=$2 FOR UPDATE`, productID, ownerID).
		Scan(&p.ID, &p.Name, &p.Quantity, &p.CostPrice, &p.SellingPrice)
	if errors.Is(err, pgx.ErrNoRows) {
		return ProductRow{}, ErrProductNotFound
	}
	return p, err
}

func (r *txRepository) UpdateProductQuantity(ctx context.Context, productID uuid.UUID, quantity int64) error {
	tag, err := r.tx.Exec(ctx, `UPDATE products SET quantity=$2, updated_at=NOW() WHERE id=$1`, productID, quantity)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrProductNotFound
	}
	return nil
}

func (r *txRepository) InsertPurchase(ctx context.Context, p Purchase) error {
	_, err := r.tx.Exec(ctx, `INSERT INTO purchases (id, owner_id, product_id, product_name, quantity, cost_price, total_cost, supplier, reference, date, created_at)
VALUES ($1,$2,$3,$4,$5,$6,$7,$8,NULLIF($9,''),$10,NOW())`,
		p.ID, p.OwnerID, p.ProductID, p.ProductName, p.Quantity, p.CostPrice, p.TotalCost, p.Supplier, p.Reference, p.Date)
	return err
}

func (r *txRepository) InsertSale(ctx context.Context, s Sale) error {
	_, err := r.tx.Exec(ctx, `INSERT INTO sales (id, owner_id, product_id, product_name, quantity, selling_price, cost_price, total_revenue, total_cost, profit, customer, reference, date, created_at)
VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,NULLIF($12,''),$13,NOW())`,
		s.ID, s.OwnerID, s.ProductID, s.ProductName, s.Quantity, s.SellingPrice, s.CostPrice, s.TotalRevenue, s.TotalCost, s.Profit, s.Customer, s.Reference, s.Date)
	return err
}

// InsertExpense stores one expense row outside any ledger transaction.
func (r *Repository) InsertExpense(ctx context.Context, e Expense) (Expense, error) {
	var categoryID any
	if e.CategoryID != uuid.Nil {
		categoryID = e.CategoryID
	}
	err := r.pool.QueryRow(ctx, `INSERT INTO expenses (id, owner_id, title, amount, category_id, note, date, created_at)
VALUES ($1,$2,$3,$4,$5,$6,$7,NOW()) RETURNING created_at`,
		e.ID, e.OwnerID, e.Title, e.Amount, categoryID, e.Note, e.Date).Scan(&e.CreatedAt)
	if err != nil {
		if pgErr, ok := err.(*pgconn.PgError); ok && pgErr.Code == "23503" {
			return Expense{}, errors.New("expense category not found")
		}
		return Expense{}, err
	}
	return e, nil
}

// DeleteExpense removes one expense scoped to its owner.
func (r *Repository) DeleteExpense(ctx context.Context, ownerID, expenseID uuid.UUID) error {
	tag, err := r.pool.Exec(ctx, `DELETE FROM expenses WHERE id=$1 AND owner_id=$2`, expenseID, ownerID)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrExpenseNotFound
	}
	return nil
}

// ExpenseSummary aggregates the window's expenses per category. Uncategorized
// rows group under the zero category id with an empty name.
func (r *Repository) ExpenseSummary(ctx context.Context, filter ListFilter) (ExpenseSummary, error) {
	where := []string{"e.owner_id=$1"}
	args := []any{filter.OwnerID}
	where, args = windowCond(where, args, "e.date", filter.Window)
	cond := strings.Join(where, " AND ")

	var summary ExpenseSummary
	err := r.pool.QueryRow(ctx, `SELECT COALESCE(SUM(e.amount),0), COUNT(*) FROM expenses e WHERE `+cond, args...).
		Scan(&summary.TotalAmount, &summary.Count)
	if err != nil {
		return ExpenseSummary{}, err
	}

	rows, err := r.pool.Query(ctx, `SELECT COALESCE(e.category_id, '00000000-0000-0000-0000-000000000000'::uuid), COALESCE(c.name,''), SUM(e.amount), COUNT(*)
FROM expenses e LEFT JOIN categories c ON c.id = e.category_id
WHERE `+cond+` GROUP BY 1, 2 ORDER BY SUM(e.amount) DESC`, args...)
	if err != nil {
		return ExpenseSummary{}, err
	}
	defer rows.Close()

	summary.ByCategory = []CategoryExpense{}
	for rows.Next() {
		var ce CategoryExpense
		if err := rows.Scan(&ce.CategoryID, &ce.CategoryName, &ce.Amount, &ce.Count); err != nil {
			return ExpenseSummary{}, err
		}
		summary.ByCategory = append(summary.ByCategory, ce)
	}
	return summary, rows.Err()
}

// windowCond appends date bounds to an existing WHERE clause.
func windowCond(where []string, args []any, column string, w shared.Window) ([]string, []any) {
	if !w.From.IsZero() {
		args = append(args, w.From)
		where = append(where, fmt.Sprintf("%s >= $%d", column, len(args)))
	}
	if !w.To.IsZero() {
		args = append(args, w.To)
		where = append(where, fmt.Sprintf("%s <= $%d", column, len(args)))
	}
	return where, args
}

func pageArgs(filter ListFilter) (int, int) {
	limit := filter.Limit
	if limit <= 0 {
		limit = 20
	}
	page := filter.Page
	if page <= 0 {
		page = 1
	}
	return limit, (page - 1) * limit
}

// ListPurchases returns a page of purchases plus window-wide totals.
func (r *Repository) ListPurchases(ctx context.Context, filter ListFilter) ([]Purchase, int, PurchaseTotals, error) {
	where := []string{"owner_id=$1"}
	args := []any{filter.OwnerID}
	if filter.ProductID != uuid.Nil {
		args = append(args, filter.ProductID)
		where = append(where, fmt.Sprintf("product_id=$%d", len(args)))
	}
	where, args = windowCond(where, args, "date", filter.Window)
	cond := strings.Join(where, " AND ")

	var total int
	var totals PurchaseTotals
	err := r.pool.QueryRow(ctx, `SELECT COUNT(*), COALESCE(SUM(quantity),0), COALESCE(SUM(total_cost),0)
FROM purchases WHERE `+cond, args...).Scan(&total, &totals.Quantity, &totals.TotalCost)
	if err != nil {
		return nil, 0, PurchaseTotals{}, err
	}

	limit, offset := pageArgs(filter)
	args = append(args, limit, offset)
	rows, err := r.pool.Query(ctx, `SELECT id, owner_id, product_id, product_name, quantity, cost_price, total_cost, supplier, COALESCE(reference,''), date, created_at
FROM purchases WHERE `+cond+fmt.Sprintf(` ORDER BY date DESC, created_at DESC LIMIT $%d OFFSET $%d`, len(args)-1, len(args)), args...)
	if err != nil {
		return nil, 0, PurchaseTotals{}, err
	}
	defer rows.Close()

	purchases := []Purchase{}
	for rows.Next() {
		var p Purchase
		if err := rows.Scan(&p.ID, &p.OwnerID, &p.ProductID, &p.ProductName, &p.Quantity, &p.CostPrice, &p.TotalCost, &p.Supplier, &p.Reference, &p.Date, &p.CreatedAt); err != nil {
			return nil, 0, PurchaseTotals{}, err
		}
		purchases = append(purchases, p)
	}
	return purchases, total, totals, rows.Err()
}

// ListSales returns a page of sales plus window-wide totals.
func (r *Repository) ListSales(ctx context.Context, filter ListFilter) ([]Sale, int, SaleTotals, error) {
	where := []string{"owner_id=$1"}
	args := []any{filter.OwnerID}
	if filter.ProductID != uuid.Nil {
		args = append(args, filter.ProductID)
		where = append(where, fmt.Sprintf("product_id=$%d", len(args)))
	}
	where, args = windowCond(where, args, "date", filter.Window)
	cond := strings.Join(where, " AND ")

	var total int
	var totals SaleTotals
	err := r.pool.QueryRow(ctx, `SELECT COUNT(*), COALESCE(SUM(quantity),0), COALESCE(SUM(total_revenue),0), COALESCE(SUM(total_cost),0), COALESCE(SUM(profit),0)
FROM sales WHERE `+cond, args...).Scan(&total, &totals.Quantity, &totals.TotalRevenue, &totals.TotalCost, &totals.TotalProfit)
	if err != nil {
		return nil, 0, SaleTotals{}, err
	}

	limit, offset := pageArgs(filter)
	args = append(args, limit, offset)
	rows, err := r.pool.Query(ctx, `SELECT id, owner_id, product_id, product_name, quantity, selling_price, cost_price, total_revenue, total_cost, profit, customer, COALESCE(reference,''), date, created_at
FROM sales WHERE `+cond+fmt.Sprintf(` ORDER BY date DESC, created_at DESC LIMIT $%d OFFSET $%d`, len(args)-1, len(args)), args...)
	if err != nil {
		return nil, 0, SaleTotals{}, err
	}
	defer rows.Close()

	sales := []Sale{}
	for rows.Next() {
		var s Sale
		if err := rows.Scan(&s.ID, &s.OwnerID, &s.ProductID, &s.ProductName, &s.Quantity, &s.SellingPrice, &s.CostPrice, &s.TotalRevenue, &s.TotalCost, &s.Profit, &s.Customer, &s.Reference, &s.Date, &s.CreatedAt); err != nil {
			return nil, 0, SaleTotals{}, err
		}
		sales = append(sales, s)
	}
	return sales, total, totals, rows.Err()
}

// ListExpenses returns a page of expenses plus the window-wide amount total.
func (r *Repository) ListExpenses(ctx context.Context, filter ListFilter) ([]Expense, int, ExpenseTotals, error) {
	where := []string{"e.owner_id=$1"}
	args := []any{filter.OwnerID}
	where, args = windowCond(where, args, "e.date", filter.Window)
	cond := strings.Join(where, " AND ")

	var total int
	var totals ExpenseTotals
	err := r.pool.QueryRow(ctx, `SELECT COUNT(*), COALESCE(SUM(e.amount),0) FROM expenses e WHERE `+cond, args...).
		Scan(&total, &totals.TotalAmount)
	if err != nil {
		return nil, 0, ExpenseTotals{}, err
	}

	limit, offset := pageArgs(filter)
	args = append(args, limit, offset)
	rows, err := r.pool.Query(ctx, `SELECT e.id, e.owner_id, e.title, e.amount, COALESCE(e.category_id, '00000000-0000-0000-0000-000000000000'::uuid), COALESCE(c.name,''), COALESCE(e.note,''), e.date, e.created_at
FROM expenses e LEFT JOIN categories c ON c.id = e.category_id
WHERE `+cond+fmt.Sprintf(` ORDER BY e.date DESC, e.created_at DESC LIMIT $%d OFFSET $%d`, len(args)-1, len(args)), args...)
	if err != nil {
		return nil, 0, ExpenseTotals{}, err
	}
	defer rows.Close()

	expenses := []Expense{}
	for rows.Next() {
		var e Expense
		if err := rows.Scan(&e.ID, &e.OwnerID, &e.Title, &e.Amount, &e.CategoryID, &e.CategoryName, &e.Note, &e.Date, &e.CreatedAt); err != nil {
			return nil, 0, ExpenseTotals{}, err
		}
		expenses = append(expenses, e)
	}
	return expenses, total, totals, rows.Err()
}
