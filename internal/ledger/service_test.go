package ledger

import (
	"context"
	"errors"
	"log/slog"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"

	"github.com/stocklane/stocklane/internal/shared"
)

// memoryLedger implements RepositoryPort with copy-on-write transactions:
// fn mutates a deep copy that is only swapped in when fn succeeds, mirroring
// the rollback behavior of the SQL implementation.
type memoryLedger struct {
	products  map[uuid.UUID]ProductRow
	owners    map[uuid.UUID]uuid.UUID
	purchases []Purchase
	sales     []Sale
	expenses  []Expense

	failPurchaseInsert bool
	failSaleInsert     bool
}

func newMemoryLedger() *memoryLedger {
	return &memoryLedger{
		products: map[uuid.UUID]ProductRow{},
		owners:   map[uuid.UUID]uuid.UUID{},
	}
}

func (m *memoryLedger) addProduct(ownerID uuid.UUID, p ProductRow) {
	m.products[p.ID] = p
	m.owners[p.ID] = ownerID
}

type memoryTx struct {
	repo    *memoryLedger
	staged  *memoryLedger
	ownerOf map[uuid.UUID]uuid.UUID
}

func (m *memoryLedger) clone() *memoryLedger {
	cp := newMemoryLedger()
	for id, p := range m.products {
		cp.products[id] = p
	}
	for id, owner := range m.owners {
		cp.owners[id] = owner
	}
	cp.purchases = append(cp.purchases, m.purchases...)
	cp.sales = append(cp.sales, m.sales...)
	cp.expenses = append(cp.expenses, m.expenses...)
	cp.failPurchaseInsert = m.failPurchaseInsert
	cp.failSaleInsert = m.failSaleInsert
	return cp
}

func (m *memoryLedger) WithTx(ctx context.Context, fn func(ctx context.Context, tx TxRepository) error) error {
	staged := m.clone()
	if err := fn(ctx, &memoryTx{repo: m, staged: staged, ownerOf: staged.owners}); err != nil {
		return err
	}
	m.products = staged.products
	m.purchases = staged.purchases
	m.sales = staged.sales
	return nil
}

func (t *memoryTx) GetProductForUpdate(_ context.Context, ownerID, productID uuid.UUID) (ProductRow, error) {
	p, ok := t.staged.products[productID]
	if !ok || t.ownerOf[productID] != ownerID {
		return ProductRow{}, ErrProductNotFound
	}
	return p, nil
}

func (t *memoryTx) UpdateProductQuantity(_ context.Context, productID uuid.UUID, quantity int64) error {
	p, ok := t.staged.products[productID]
	if !ok {
		return ErrProductNotFound
	}
	p.Quantity = quantity
	t.staged.products[productID] = p
	return nil
}

func (t *memoryTx) InsertPurchase(_ context.Context, p Purchase) error {
	if t.staged.failPurchaseInsert {
		return errors.New("purchase insert failed")
	}
	t.staged.purchases = append(t.staged.purchases, p)
	return nil
}

func (t *memoryTx) InsertSale(_ context.Context, s Sale) error {
	if t.staged.failSaleInsert {
		return errors.New("sale insert failed")
	}
	t.staged.sales = append(t.staged.sales, s)
	return nil
}

func (m *memoryLedger) InsertExpense(_ context.Context, e Expense) (Expense, error) {
	e.CreatedAt = time.Now().UTC()
	m.expenses = append(m.expenses, e)
	return e, nil
}

func (m *memoryLedger) DeleteExpense(_ context.Context, ownerID, expenseID uuid.UUID) error {
	for i, e := range m.expenses {
		if e.ID == expenseID && e.OwnerID == ownerID {
			m.expenses = append(m.expenses[:i], m.expenses[i+1:]...)
			return nil
		}
	}
	return ErrExpenseNotFound
}

func (m *memoryLedger) ExpenseSummary(_ context.Context, filter ListFilter) (ExpenseSummary, error) {
	summary := ExpenseSummary{ByCategory: []CategoryExpense{}}
	index := map[uuid.UUID]int{}
	for _, e := range m.expenses {
		if e.OwnerID != filter.OwnerID || !inWindow(e.Date, filter.Window) {
			continue
		}
		summary.TotalAmount += e.Amount
		summary.Count++
		i, ok := index[e.CategoryID]
		if !ok {
			i = len(summary.ByCategory)
			index[e.CategoryID] = i
			summary.ByCategory = append(summary.ByCategory, CategoryExpense{CategoryID: e.CategoryID, CategoryName: e.CategoryName})
		}
		summary.ByCategory[i].Amount += e.Amount
		summary.ByCategory[i].Count++
	}
	return summary, nil
}

func inWindow(t time.Time, w shared.Window) bool {
	if !w.From.IsZero() && t.Before(w.From) {
		return false
	}
	if !w.To.IsZero() && t.After(w.To) {
		return false
	}
	return true
}

func (m *memoryLedger) ListPurchases(_ context.Context, filter ListFilter) ([]Purchase, int, PurchaseTotals, error) {
	out := []Purchase{}
	totals := PurchaseTotals{}
	for _, p := range m.purchases {
		if p.OwnerID != filter.OwnerID || !inWindow(p.Date, filter.Window) {
			continue
		}
		if filter.ProductID != uuid.Nil && p.ProductID != filter.ProductID {
			continue
		}
		out = append(out, p)
		totals.Quantity += p.Quantity
		totals.TotalCost += p.TotalCost
	}
	return out, len(out), totals, nil
}

func (m *memoryLedger) ListSales(_ context.Context, filter ListFilter) ([]Sale, int, SaleTotals, error) {
	out := []Sale{}
	totals := SaleTotals{}
	for _, s := range m.sales {
		if s.OwnerID != filter.OwnerID || !inWindow(s.Date, filter.Window) {
			continue
		}
		if filter.ProductID != uuid.Nil && s.ProductID != filter.ProductID {
			continue
		}
		out = append(out, s)
		totals.Quantity += s.Quantity
		totals.TotalRevenue += s.TotalRevenue
		totals.TotalCost += s.TotalCost
		totals.TotalProfit += s.Profit
	}
	return out, len(out), totals, nil
}

func (m *memoryLedger) ListExpenses(_ context.Context, filter ListFilter) ([]Expense, int, ExpenseTotals, error) {
	out := []Expense{}
	totals := ExpenseTotals{}
	for _, e := range m.expenses {
		if e.OwnerID != filter.OwnerID || !inWindow(e.Date, filter.Window) {
			continue
		}
		out = append(out, e)
		totals.TotalAmount += e.Amount
	}
	return out, len(out), totals, nil
}

// memoryIdempotency mimics the key table.
type memoryIdempotency struct {
	keys map[string]string
}

func (m *memoryIdempotency) CheckAndInsert(_ context.Context, key, module string) error {
	if m.keys == nil {
		m.keys = map[string]string{}
	}
	if _, ok := m.keys[key]; ok {
		return shared.ErrIdempotencyConflict
	}
	m.keys[key] = module
	return nil
}

func (m *memoryIdempotency) Delete(_ context.Context, key string) error {
	delete(m.keys, key)
	return nil
}

func testService(repo *memoryLedger) *Service {
	return NewService(repo, nil, nil, slog.Default())
}

func seedProduct(repo *memoryLedger, ownerID uuid.UUID, quantity int64) ProductRow {
	p := ProductRow{
		ID:           uuid.New(),
		Name:         "USB Cable",
		Quantity:     quantity,
		CostPrice:    2.5,
		SellingPrice: 5,
	}
	repo.addProduct(ownerID, p)
	return p
}

func TestRecordPurchaseIncrementsStock(t *testing.T) {
	repo := newMemoryLedger()
	svc := testService(repo)
	ownerID := uuid.New()
	product := seedProduct(repo, ownerID, 3)

	result, err := svc.RecordPurchase(context.Background(), PurchaseInput{
		OwnerID:   ownerID,
		ProductID: product.ID,
		Quantity:  7,
		CostPrice: 2.0,
	})
	require.NoError(t, err)
	require.EqualValues(t, 10, result.Quantity)
	require.EqualValues(t, 10, repo.products[product.ID].Quantity)
	require.Equal(t, 14.0, result.Purchase.TotalCost)
	require.Equal(t, "Unknown", result.Purchase.Supplier)
	require.Equal(t, "USB Cable", result.Purchase.ProductName)
}

func TestRecordPurchaseRejectsNonPositiveCost(t *testing.T) {
	repo := newMemoryLedger()
	svc := testService(repo)
	ownerID := uuid.New()
	product := seedProduct(repo, ownerID, 3)

	for _, cost := range []float64{0, -1} {
		_, err := svc.RecordPurchase(context.Background(), PurchaseInput{
			OwnerID:   ownerID,
			ProductID: product.ID,
			Quantity:  1,
			CostPrice: cost,
		})
		require.ErrorIs(t, err, ErrInvalidInput)
	}
	require.EqualValues(t, 3, repo.products[product.ID].Quantity)
	require.Empty(t, repo.purchases)
}

func TestRecordSaleDecrementsStockAndSnapshotsCost(t *testing.T) {
	repo := newMemoryLedger()
	svc := testService(repo)
	ownerID := uuid.New()
	product := seedProduct(repo, ownerID, 10)

	result, err := svc.RecordSale(context.Background(), SaleInput{
		OwnerID:   ownerID,
		ProductID: product.ID,
		Quantity:  4,
	})
	require.NoError(t, err)
	require.EqualValues(t, 6, result.Quantity)
	require.EqualValues(t, 6, repo.products[product.ID].Quantity)

	sale := result.Sale
	require.Equal(t, 2.5, sale.CostPrice)
	require.Equal(t, 20.0, sale.TotalRevenue)
	require.Equal(t, 10.0, sale.TotalCost)
	require.Equal(t, 10.0, sale.Profit)
	require.Equal(t, "Walk-in Customer", sale.Customer)
}

func TestRecordSaleInsufficientStock(t *testing.T) {
	repo := newMemoryLedger()
	svc := testService(repo)
	ownerID := uuid.New()
	product := seedProduct(repo, ownerID, 3)

	_, err := svc.RecordSale(context.Background(), SaleInput{
		OwnerID:   ownerID,
		ProductID: product.ID,
		Quantity:  5,
	})
	require.ErrorIs(t, err, ErrInsufficientStock)

	var stockErr *InsufficientStockError
	require.ErrorAs(t, err, &stockErr)
	require.EqualValues(t, 5, stockErr.Requested)
	require.EqualValues(t, 3, stockErr.Available)

	// The rejected sale must leave stock and history untouched.
	require.EqualValues(t, 3, repo.products[product.ID].Quantity)
	require.Empty(t, repo.sales)
}

func TestRecordSaleRollsBackOnInsertFailure(t *testing.T) {
	repo := newMemoryLedger()
	repo.failSaleInsert = true
	svc := testService(repo)
	ownerID := uuid.New()
	product := seedProduct(repo, ownerID, 10)

	_, err := svc.RecordSale(context.Background(), SaleInput{
		OwnerID:   ownerID,
		ProductID: product.ID,
		Quantity:  4,
	})
	require.Error(t, err)
	require.EqualValues(t, 10, repo.products[product.ID].Quantity)
	require.Empty(t, repo.sales)
}

func TestRecordPurchaseRollsBackOnInsertFailure(t *testing.T) {
	repo := newMemoryLedger()
	repo.failPurchaseInsert = true
	svc := testService(repo)
	ownerID := uuid.New()
	product := seedProduct(repo, ownerID, 3)

	_, err := svc.RecordPurchase(context.Background(), PurchaseInput{
		OwnerID:   ownerID,
		ProductID: product.ID,
		Quantity:  7,
		CostPrice: 2.0,
	})
	require.Error(t, err)
	require.EqualValues(t, 3, repo.products[product.ID].Quantity)
	require.Empty(t, repo.purchases)
}

func TestRecordSaleCustomUnitPrice(t *testing.T) {
	repo := newMemoryLedger()
	svc := testService(repo)
	ownerID := uuid.New()
	product := seedProduct(repo, ownerID, 10)

	price := 6.5
	result, err := svc.RecordSale(context.Background(), SaleInput{
		OwnerID:      ownerID,
		ProductID:    product.ID,
		Quantity:     2,
		SellingPrice: &price,
	})
	require.NoError(t, err)
	require.Equal(t, 13.0, result.Sale.TotalRevenue)
	require.Equal(t, 8.0, result.Sale.Profit)
}

func TestDuplicateReferenceRejectedBeforeMutation(t *testing.T) {
	repo := newMemoryLedger()
	idem := &memoryIdempotency{}
	svc := NewService(repo, idem, nil, slog.Default())
	ownerID := uuid.New()
	product := seedProduct(repo, ownerID, 100)

	input := PurchaseInput{
		OwnerID:   ownerID,
		ProductID: product.ID,
		Quantity:  5,
		CostPrice: 1,
		Reference: "PO-1001",
	}
	_, err := svc.RecordPurchase(context.Background(), input)
	require.NoError(t, err)

	_, err = svc.RecordPurchase(context.Background(), input)
	require.ErrorIs(t, err, shared.ErrIdempotencyConflict)
	require.EqualValues(t, 105, repo.products[product.ID].Quantity)
	require.Len(t, repo.purchases, 1)
}

func TestFailedTransactionReleasesReference(t *testing.T) {
	repo := newMemoryLedger()
	repo.failPurchaseInsert = true
	idem := &memoryIdempotency{}
	svc := NewService(repo, idem, nil, slog.Default())
	ownerID := uuid.New()
	product := seedProduct(repo, ownerID, 3)

	input := PurchaseInput{
		OwnerID:   ownerID,
		ProductID: product.ID,
		Quantity:  5,
		CostPrice: 1,
		Reference: "PO-2001",
	}
	_, err := svc.RecordPurchase(context.Background(), input)
	require.Error(t, err)

	// The key is released, so a retry succeeds after the fault clears.
	repo.failPurchaseInsert = false
	_, err = svc.RecordPurchase(context.Background(), input)
	require.NoError(t, err)
}

func TestRecordExpenseValidation(t *testing.T) {
	repo := newMemoryLedger()
	svc := testService(repo)
	ownerID := uuid.New()

	_, err := svc.RecordExpense(context.Background(), ExpenseInput{OwnerID: ownerID, Title: " ", Amount: 10})
	require.ErrorIs(t, err, ErrInvalidInput)

	_, err = svc.RecordExpense(context.Background(), ExpenseInput{OwnerID: ownerID, Title: "Rent", Amount: 0})
	require.ErrorIs(t, err, ErrInvalidInput)

	expense, err := svc.RecordExpense(context.Background(), ExpenseInput{OwnerID: ownerID, Title: " Rent ", Amount: 500})
	require.NoError(t, err)
	require.Equal(t, "Rent", expense.Title)
	require.False(t, expense.Date.IsZero())
}

func TestDeleteExpenseScopedToOwner(t *testing.T) {
	repo := newMemoryLedger()
	svc := testService(repo)
	ownerID := uuid.New()

	expense, err := svc.RecordExpense(context.Background(), ExpenseInput{OwnerID: ownerID, Title: "Rent", Amount: 500})
	require.NoError(t, err)

	// Another owner cannot delete it.
	err = svc.DeleteExpense(context.Background(), uuid.New(), expense.ID)
	require.ErrorIs(t, err, ErrExpenseNotFound)
	require.Len(t, repo.expenses, 1)

	require.NoError(t, svc.DeleteExpense(context.Background(), ownerID, expense.ID))
	require.Empty(t, repo.expenses)

	err = svc.DeleteExpense(context.Background(), ownerID, expense.ID)
	require.ErrorIs(t, err, ErrExpenseNotFound)
}

func TestExpenseSummaryGroupsByCategory(t *testing.T) {
	repo := newMemoryLedger()
	svc := testService(repo)
	ownerID := uuid.New()
	rentCategory := uuid.New()

	_, err := svc.RecordExpense(context.Background(), ExpenseInput{OwnerID: ownerID, Title: "Rent", Amount: 500, CategoryID: rentCategory})
	require.NoError(t, err)
	_, err = svc.RecordExpense(context.Background(), ExpenseInput{OwnerID: ownerID, Title: "Deposit", Amount: 250, CategoryID: rentCategory})
	require.NoError(t, err)
	_, err = svc.RecordExpense(context.Background(), ExpenseInput{OwnerID: ownerID, Title: "Stamps", Amount: 12.5})
	require.NoError(t, err)
	_, err = svc.RecordExpense(context.Background(), ExpenseInput{OwnerID: uuid.New(), Title: "Other shop", Amount: 999})
	require.NoError(t, err)

	summary, err := svc.ExpenseSummary(context.Background(), ListFilter{OwnerID: ownerID})
	require.NoError(t, err)
	require.Equal(t, 762.5, summary.TotalAmount)
	require.EqualValues(t, 3, summary.Count)
	require.Len(t, summary.ByCategory, 2)

	var rent CategoryExpense
	for _, ce := range summary.ByCategory {
		if ce.CategoryID == rentCategory {
			rent = ce
		}
	}
	require.Equal(t, 750.0, rent.Amount)
	require.EqualValues(t, 2, rent.Count)
}

func TestResolvePresetWindows(t *testing.T) {
	now := time.Date(2024, 5, 15, 13, 45, 0, 0, time.UTC)

	today := ResolvePreset(FilterToday, time.Time{}, time.Time{}, now)
	require.Equal(t, time.Date(2024, 5, 15, 0, 0, 0, 0, time.UTC), today.From)
	require.Equal(t, time.Date(2024, 5, 15, 23, 59, 59, 999999999, time.UTC), today.To)

	yesterday := ResolvePreset(FilterYesterday, time.Time{}, time.Time{}, now)
	require.Equal(t, time.Date(2024, 5, 14, 0, 0, 0, 0, time.UTC), yesterday.From)

	last7 := ResolvePreset(FilterLast7Days, time.Time{}, time.Time{}, now)
	require.Equal(t, time.Date(2024, 5, 9, 0, 0, 0, 0, time.UTC), last7.From)
	require.Equal(t, time.Date(2024, 5, 15, 23, 59, 59, 999999999, time.UTC), last7.To)

	open := ResolvePreset("", time.Time{}, time.Time{}, now)
	require.True(t, open.From.IsZero())
	require.True(t, open.To.IsZero())
}
