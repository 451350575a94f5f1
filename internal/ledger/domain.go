package ledger

import (
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/stocklane/stocklane/internal/shared"
)

// Purchase is an inbound stock movement. CostPrice is the per-unit price paid
// for this batch; TotalCost is computed at write time and never recomputed.
type Purchase struct {
	ID          uuid.UUID `json:"id"`
	OwnerID     uuid.UUID `json:"-"`
	ProductID   uuid.UUID `json:"productId"`
	ProductName string    `json:"productName"`
	Quantity    int64     `json:"quantity"`
	CostPrice   float64   `json:"costPrice"`
	TotalCost   float64   `json:"totalCost"`
	Supplier    string    `json:"supplier"`
	Reference   string    `json:"reference,omitempty"`
	Date        time.Time `json:"date"`
	CreatedAt   time.Time `json:"createdAt"`
}

// Sale is an outbound stock movement. CostPrice snapshots the product's unit
// cost at the moment of sale so later catalog edits never rewrite history.
type Sale struct {
	ID           uuid.UUID `json:"id"`
	OwnerID      uuid.UUID `json:"-"`
	ProductID    uuid.UUID `json:"productId"`
	ProductName  string    `json:"productName"`
	Quantity     int64     `json:"quantity"`
	SellingPrice float64   `json:"sellingPrice"`
	CostPrice    float64   `json:"costPrice"`
	TotalRevenue float64   `json:"totalRevenue"`
	TotalCost    float64   `json:"totalCost"`
	Profit       float64   `json:"profit"`
	Customer     string    `json:"customer"`
	Reference    string    `json:"reference,omitempty"`
	Date         time.Time `json:"date"`
	CreatedAt    time.Time `json:"createdAt"`
}

// Expense is an operating cost outside stock movements.
type Expense struct {
	ID           uuid.UUID `json:"id"`
	OwnerID      uuid.UUID `json:"-"`
	Title        string    `json:"title"`
	Amount       float64   `json:"amount"`
	CategoryID   uuid.UUID `json:"-"`
	CategoryName string    `json:"category,omitempty"`
	Note         string    `json:"note,omitempty"`
	Date         time.Time `json:"date"`
	CreatedAt    time.Time `json:"createdAt"`
}

// PurchaseInput carries a purchase to record.
type PurchaseInput struct {
	OwnerID   uuid.UUID
	ProductID uuid.UUID
	Quantity  int64
	CostPrice float64
	Supplier  string
	Reference string
	Date      time.Time
}

// SaleInput carries a sale to record.
type SaleInput struct {
	OwnerID      uuid.UUID
	ProductID    uuid.UUID
	Quantity     int64
	SellingPrice *float64
	Customer     string
	Reference    string
	Date         time.Time
}

// ExpenseInput carries an expense to record.
type ExpenseInput struct {
	OwnerID    uuid.UUID
	Title      string
	Amount     float64
	CategoryID uuid.UUID
	Note       string
	Date       time.Time
}

// Preset date filters accepted on listings.
const (
	FilterToday     = "today"
	FilterYesterday = "yesterday"
	FilterLast7Days = "last7days"
	FilterCustom    = "custom"
)

// ListFilter narrows purchase, sale and expense listings.
type ListFilter struct {
	OwnerID   uuid.UUID
	ProductID uuid.UUID
	Window    shared.Window
	Page      int
	Limit     int
}

// ResolvePreset maps a named range onto explicit start and end times.
// Unknown or empty presets fall through to the provided custom bounds.
func ResolvePreset(preset string, start, end time.Time, now time.Time) shared.Window {
	now = now.UTC()
	switch preset {
	case FilterToday:
		return shared.Window{From: shared.StartOfDay(now), To: shared.EndOfDay(now)}
	case FilterYesterday:
		y := now.AddDate(0, 0, -1)
		return shared.Window{From: shared.StartOfDay(y), To: shared.EndOfDay(y)}
	case FilterLast7Days:
		return shared.ResolveWindow(time.Time{}, now, 7)
	default:
		if start.IsZero() && end.IsZero() {
			return shared.Window{}
		}
		w := shared.Window{}
		if !start.IsZero() {
			w.From = shared.StartOfDay(start)
		}
		if !end.IsZero() {
			w.To = shared.EndOfDay(end)
		}
		return w
	}
}

// InsufficientStockError reports a sale that exceeds the units on hand.
type InsufficientStockError struct {
	ProductID uuid.UUID
	Requested int64
	Available int64
}

func (e *InsufficientStockError) Error() string {
	return fmt.Sprintf("insufficient stock: requested %d, available %d", e.Requested, e.Available)
}

// Is lets errors.Is match against ErrInsufficientStock.
func (e *InsufficientStockError) Is(target error) bool {
	return target == ErrInsufficientStock
}

var (
	// ErrInsufficientStock marks sales rejected by the availability check.
	ErrInsufficientStock = errors.New("insufficient stock")
	// ErrProductNotFound indicates no product under the caller's ownership.
	ErrProductNotFound = errors.New("product not found")
	// ErrExpenseNotFound indicates no expense under the caller's ownership.
	ErrExpenseNotFound = errors.New("expense not found")
	// ErrInvalidInput marks pre-persistence validation failures.
	ErrInvalidInput = errors.New("ledger: invalid input")
)
