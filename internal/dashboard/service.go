// Package dashboard assembles the at-a-glance metrics for the landing view.
package dashboard

import (
	"context"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"github.com/stocklane/stocklane/internal/shared"
)

// SalesSlice is the revenue side of one window.
type SalesSlice struct {
	Count   int64   `json:"count"`
	Units   int64   `json:"units"`
	Revenue float64 `json:"revenue"`
	Profit  float64 `json:"profit"`
}

// PurchasesSlice is the spend side of one window.
type PurchasesSlice struct {
	Count     int64   `json:"count"`
	Units     int64   `json:"units"`
	TotalCost float64 `json:"totalCost"`
}

// StockOverview summarizes the current catalog stock position.
type StockOverview struct {
	TotalProducts int64   `json:"totalProducts"`
	LowStock      int64   `json:"lowStockCount"`
	OutOfStock    int64   `json:"outOfStockCount"`
	StockValue    float64 `json:"stockValue"`
}

// Summary is the dashboard payload. Profit covers sales margin only;
// operating expenses are reported separately so the two are never conflated.
type Summary struct {
	Stock          StockOverview  `json:"stock"`
	SalesToday     SalesSlice     `json:"salesToday"`
	PurchasesToday PurchasesSlice `json:"purchasesToday"`
	ExpensesToday  float64        `json:"expensesToday"`
	GeneratedAt    time.Time      `json:"generatedAt"`
}

// RepositoryPort provides the individual aggregate queries.
type RepositoryPort interface {
	StockOverview(ctx context.Context, ownerID uuid.UUID) (StockOverview, error)
	SalesSlice(ctx context.Context, ownerID uuid.UUID, w shared.Window) (SalesSlice, error)
	PurchasesSlice(ctx context.Context, ownerID uuid.UUID, w shared.Window) (PurchasesSlice, error)
	ExpensesTotal(ctx context.Context, ownerID uuid.UUID, w shared.Window) (float64, error)
}

// Service aggregates dashboard metrics.
type Service struct {
	repo RepositoryPort
	now  func() time.Time
}

// NewService builds Service.
func NewService(repo RepositoryPort) *Service {
	return &Service{repo: repo, now: time.Now}
}

// TodaySnapshot loads the four dashboard slices in parallel. The day window
// runs from UTC midnight to the current instant.
func (s *Service) TodaySnapshot(ctx context.Context, ownerID uuid.UUID) (Summary, error) {
	now := s.now().UTC()
	today := shared.Window{From: shared.StartOfDay(now), To: now}

	var summary Summary
	g, ctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		stock, err := s.repo.StockOverview(ctx, ownerID)
		if err == nil {
			summary.Stock = stock
		}
		return err
	})
	g.Go(func() error {
		sales, err := s.repo.SalesSlice(ctx, ownerID, today)
		if err == nil {
			summary.SalesToday = sales
		}
		return err
	})
	g.Go(func() error {
		purchases, err := s.repo.PurchasesSlice(ctx, ownerID, today)
		if err == nil {
			summary.PurchasesToday = purchases
		}
		return err
	})
	g.Go(func() error {
		expenses, err := s.repo.ExpensesTotal(ctx, ownerID, today)
		if err == nil {
			summary.ExpensesToday = expenses
		}
		return err
	})
	if err := g.Wait(); err != nil {
		return Summary{}, err
	}
	summary.GeneratedAt = now
	return summary, nil
}
