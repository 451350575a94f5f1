package ledger

import (
	"context"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/stocklane/stocklane/internal/shared"
)

// IdempotencyPort guards client-supplied references against replays.
type IdempotencyPort interface {
	CheckAndInsert(ctx context.Context, key, module string) error
	Delete(ctx context.Context, key string) error
}

// Invalidator bumps derived-metrics caches after a successful write.
type Invalidator interface {
	Bump(ctx context.Context) error
}

// Service records stock movements and expenses. Each movement adjusts the
// product quantity and appends the immutable ledger row in one transaction,
// so a failed insert never leaves the stock level changed.
type Service struct {
	repo        RepositoryPort
	idempotency IdempotencyPort
	invalidator Invalidator
	logger      *slog.Logger
	now         func() time.Time
}

// NewService builds Service. idempotency and invalidator may be nil.
func NewService(repo RepositoryPort, idempotency IdempotencyPort, invalidator Invalidator, logger *slog.Logger) *Service {
	return &Service{
		repo:        repo,
		idempotency: idempotency,
		invalidator: invalidator,
		logger:      logger,
		now:         time.Now,
	}
}

// PurchaseResult pairs the recorded purchase with the updated stock snapshot.
type PurchaseResult struct {
	Purchase Purchase   `json:"purchase"`
	Product  ProductRow `json:"product"`
	Quantity int64      `json:"newQuantity"`
}

// SaleResult pairs the recorded sale with the updated stock snapshot.
type SaleResult struct {
	Sale     Sale       `json:"sale"`
	Product  ProductRow `json:"product"`
	Quantity int64      `json:"newQuantity"`
}

// RecordPurchase books an inbound movement and increments stock.
func (s *Service) RecordPurchase(ctx context.Context, in PurchaseInput) (PurchaseResult, error) {
	if in.OwnerID == uuid.Nil || in.ProductID == uuid.Nil {
		return PurchaseResult{}, ErrInvalidInput
	}
	if in.Quantity <= 0 || in.CostPrice <= 0 {
		return PurchaseResult{}, ErrInvalidInput
	}
	date := in.Date
	if date.IsZero() {
		date = s.now().UTC()
	}
	supplier := strings.TrimSpace(in.Supplier)
	if supplier == "" {
		supplier = "Unknown"
	}

	reference := strings.TrimSpace(in.Reference)
	if err := s.claimReference(ctx, reference, "purchase"); err != nil {
		return PurchaseResult{}, err
	}

	var result PurchaseResult
	err := s.repo.WithTx(ctx, func(ctx context.Context, tx TxRepository) error {
		product, err := tx.GetProductForUpdate(ctx, in.OwnerID, in.ProductID)
		if err != nil {
			return err
		}
		purchase := Purchase{
			ID:          uuid.New(),
			OwnerID:     in.OwnerID,
			ProductID:   product.ID,
			ProductName: product.Name,
			Quantity:    in.Quantity,
			CostPrice:   in.CostPrice,
			TotalCost:   float64(in.Quantity) * in.CostPrice,
			Supplier:    supplier,
			Reference:   reference,
			Date:        date,
			CreatedAt:   s.now().UTC(),
		}
		if err := tx.InsertPurchase(ctx, purchase); err != nil {
			return err
		}
		newQuantity := product.Quantity + in.Quantity
		if err := tx.UpdateProductQuantity(ctx, product.ID, newQuantity); err != nil {
			return err
		}
		product.Quantity = newQuantity
		result = PurchaseResult{Purchase: purchase, Product: product, Quantity: newQuantity}
		return nil
	})
	if err != nil {
		s.releaseReference(ctx, reference)
		return PurchaseResult{}, err
	}
	s.bump(ctx)
	return result, nil
}

// RecordSale books an outbound movement after the availability check and
// decrements stock. Unit cost is snapshotted from the product so the profit
// of this sale is fixed at write time.
func (s *Service) RecordSale(ctx context.Context, in SaleInput) (SaleResult, error) {
	if in.OwnerID == uuid.Nil || in.ProductID == uuid.Nil {
		return SaleResult{}, ErrInvalidInput
	}
	if in.Quantity <= 0 {
		return SaleResult{}, ErrInvalidInput
	}
	if in.SellingPrice != nil && *in.SellingPrice < 0 {
		return SaleResult{}, ErrInvalidInput
	}
	date := in.Date
	if date.IsZero() {
		date = s.now().UTC()
	}
	customer := strings.TrimSpace(in.Customer)
	if customer == "" {
		customer = "Walk-in Customer"
	}

	reference := strings.TrimSpace(in.Reference)
	if err := s.claimReference(ctx, reference, "sale"); err != nil {
		return SaleResult{}, err
	}

	var result SaleResult
	err := s.repo.WithTx(ctx, func(ctx context.Context, tx TxRepository) error {
		product, err := tx.GetProductForUpdate(ctx, in.OwnerID, in.ProductID)
		if err != nil {
			return err
		}
		if product.Quantity < in.Quantity {
			return &InsufficientStockError{
				ProductID: product.ID,
				Requested: in.Quantity,
				Available: product.Quantity,
			}
		}
		unitPrice := product.SellingPrice
		if in.SellingPrice != nil {
			unitPrice = *in.SellingPrice
		}
		sale := Sale{
			ID:           uuid.New(),
			OwnerID:      in.OwnerID,
			ProductID:    product.ID,
			ProductName:  product.Name,
			Quantity:     in.Quantity,
			SellingPrice: unitPrice,
			CostPrice:    product.CostPrice,
			TotalRevenue: float64(in.Quantity) * unitPrice,
			TotalCost:    float64(in.Quantity) * product.CostPrice,
			Customer:     customer,
			Reference:    reference,
			Date:         date,
			CreatedAt:    s.now().UTC(),
		}
		sale.Profit = sale.TotalRevenue - sale.TotalCost
		if err := tx.InsertSale(ctx, sale); err != nil {
			return err
		}
		newQuantity := product.Quantity - in.Quantity
		if err := tx.UpdateProductQuantity(ctx, product.ID, newQuantity); err != nil {
			return err
		}
		product.Quantity = newQuantity
		result = SaleResult{Sale: sale, Product: product, Quantity: newQuantity}
		return nil
	})
	if err != nil {
		s.releaseReference(ctx, reference)
		return SaleResult{}, err
	}
	s.bump(ctx)
	return result, nil
}

// RecordExpense stores an operating expense. Expenses never touch stock.
func (s *Service) RecordExpense(ctx context.Context, in ExpenseInput) (Expense, error) {
	title := strings.TrimSpace(in.Title)
	if in.OwnerID == uuid.Nil || title == "" || in.Amount <= 0 {
		return Expense{}, ErrInvalidInput
	}
	date := in.Date
	if date.IsZero() {
		date = s.now().UTC()
	}
	expense, err := s.repo.InsertExpense(ctx, Expense{
		ID:         uuid.New(),
		OwnerID:    in.OwnerID,
		Title:      title,
		Amount:     in.Amount,
		CategoryID: in.CategoryID,
		Note:       strings.TrimSpace(in.Note),
		Date:       date,
	})
	if err != nil {
		return Expense{}, err
	}
	s.bump(ctx)
	return expense, nil
}

// PurchasePage is one page of purchases with totals.
type PurchasePage struct {
	Purchases  []Purchase        `json:"purchases"`
	Totals     PurchaseTotals    `json:"totals"`
	Pagination shared.Pagination `json:"pagination"`
}

// ListPurchases returns the filtered purchase history.
func (s *Service) ListPurchases(ctx context.Context, filter ListFilter) (PurchasePage, error) {
	purchases, total, totals, err := s.repo.ListPurchases(ctx, filter)
	if err != nil {
		return PurchasePage{}, err
	}
	return PurchasePage{
		Purchases:  purchases,
		Totals:     totals,
		Pagination: shared.NewPagination(filter.Page, filter.Limit, total),
	}, nil
}

// SalePage is one page of sales with totals.
type SalePage struct {
	Sales      []Sale            `json:"sales"`
	Totals     SaleTotals        `json:"totals"`
	Pagination shared.Pagination `json:"pagination"`
}

// ListSales returns the filtered sale history.
func (s *Service) ListSales(ctx context.Context, filter ListFilter) (SalePage, error) {
	sales, total, totals, err := s.repo.ListSales(ctx, filter)
	if err != nil {
		return SalePage{}, err
	}
	return SalePage{
		Sales:      sales,
		Totals:     totals,
		Pagination: shared.NewPagination(filter.Page, filter.Limit, total),
	}, nil
}

// ExpensePage is one page of expenses with the amount total.
type ExpensePage struct {
	Expenses   []Expense         `json:"expenses"`
	Totals     ExpenseTotals     `json:"totals"`
	Pagination shared.Pagination `json:"pagination"`
}

// ListExpenses returns the filtered expense history.
func (s *Service) ListExpenses(ctx context.Context, filter ListFilter) (ExpensePage, error) {
	expenses, total, totals, err := s.repo.ListExpenses(ctx, filter)
	if err != nil {
		return ExpensePage{}, err
	}
	return ExpensePage{
		Expenses:   expenses,
		Totals:     totals,
		Pagination: shared.NewPagination(filter.Page, filter.Limit, total),
	}, nil
}

// DeleteExpense removes an expense and bumps the derived-metrics caches.
func (s *Service) DeleteExpense(ctx context.Context, ownerID, expenseID uuid.UUID) error {
	if ownerID == uuid.Nil || expenseID == uuid.Nil {
		return ErrInvalidInput
	}
	if err := s.repo.DeleteExpense(ctx, ownerID, expenseID); err != nil {
		return err
	}
	s.bump(ctx)
	return nil
}

// ExpenseSummary returns the window's expense total and per-category slices.
func (s *Service) ExpenseSummary(ctx context.Context, filter ListFilter) (ExpenseSummary, error) {
	return s.repo.ExpenseSummary(ctx, filter)
}

func (s *Service) claimReference(ctx context.Context, reference, module string) error {
	if reference == "" || s.idempotency == nil {
		return nil
	}
	return s.idempotency.CheckAndInsert(ctx, reference, module)
}

func (s *Service) releaseReference(ctx context.Context, reference string) {
	if reference == "" || s.idempotency == nil {
		return
	}
	if err := s.idempotency.Delete(ctx, reference); err != nil {
		s.logger.Warn("release idempotency key", slog.String("reference", reference), slog.Any("error", err))
	}
}

func (s *Service) bump(ctx context.Context) {
	if s.invalidator == nil {
		return
	}
	if err := s.invalidator.Bump(ctx); err != nil {
		s.logger.Warn("cache bump failed", slog.Any("error", err))
	}
}
