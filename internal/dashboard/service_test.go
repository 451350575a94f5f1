package dashboard

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"

	"github.com/stocklane/stocklane/internal/shared"
)

type stubRepo struct {
	stock     StockOverview
	sales     SalesSlice
	purchases PurchasesSlice
	expenses  float64

	gotWindow shared.Window
	salesErr  error
}

func (s *stubRepo) StockOverview(context.Context, uuid.UUID) (StockOverview, error) {
	return s.stock, nil
}

func (s *stubRepo) SalesSlice(_ context.Context, _ uuid.UUID, w shared.Window) (SalesSlice, error) {
	s.gotWindow = w
	return s.sales, s.salesErr
}

func (s *stubRepo) PurchasesSlice(context.Context, uuid.UUID, shared.Window) (PurchasesSlice, error) {
	return s.purchases, nil
}

func (s *stubRepo) ExpensesTotal(context.Context, uuid.UUID, shared.Window) (float64, error) {
	return s.expenses, nil
}

func TestTodaySnapshotAssemblesAllSlices(t *testing.T) {
	repo := &stubRepo{
		stock:     StockOverview{TotalProducts: 12, LowStock: 3, OutOfStock: 1, StockValue: 420.5},
		sales:     SalesSlice{Count: 5, Units: 9, Revenue: 120, Profit: 44},
		purchases: PurchasesSlice{Count: 2, Units: 30, TotalCost: 75},
		expenses:  18.5,
	}
	svc := NewService(repo)
	now := time.Date(2024, 5, 15, 13, 45, 0, 0, time.UTC)
	svc.now = func() time.Time { return now }

	summary, err := svc.TodaySnapshot(context.Background(), uuid.New())
	require.NoError(t, err)
	require.Equal(t, repo.stock, summary.Stock)
	require.Equal(t, repo.sales, summary.SalesToday)
	require.Equal(t, repo.purchases, summary.PurchasesToday)
	require.Equal(t, 18.5, summary.ExpensesToday)
	require.Equal(t, now, summary.GeneratedAt)

	// The day window runs from UTC midnight to the current instant.
	require.Equal(t, time.Date(2024, 5, 15, 0, 0, 0, 0, time.UTC), repo.gotWindow.From)
	require.Equal(t, now, repo.gotWindow.To)
}

func TestTodaySnapshotPropagatesSliceError(t *testing.T) {
	repo := &stubRepo{salesErr: errors.New("connection reset")}
	svc := NewService(repo)

	_, err := svc.TodaySnapshot(context.Background(), uuid.New())
	require.Error(t, err)
}
