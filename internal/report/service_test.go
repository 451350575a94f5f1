package report

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"

	"github.com/stocklane/stocklane/internal/shared"
)

type stubRepo struct {
	totals   Totals
	expenses float64
	perf     []ProductPerformance
	daily    []TrendPoint

	gotWindow shared.Window
}

func (s *stubRepo) SaleTotals(_ context.Context, _ uuid.UUID, w shared.Window) (Totals, error) {
	s.gotWindow = w
	return s.totals, nil
}

func (s *stubRepo) ExpenseTotal(context.Context, uuid.UUID, shared.Window) (float64, error) {
	return s.expenses, nil
}

func (s *stubRepo) ProductPerformance(context.Context, uuid.UUID, shared.Window) ([]ProductPerformance, error) {
	return s.perf, nil
}

func (s *stubRepo) DailySales(context.Context, uuid.UUID, shared.Window) ([]TrendPoint, error) {
	return s.daily, nil
}

func fixedService(repo *stubRepo, now time.Time) *Service {
	svc := NewService(repo, nil)
	svc.now = func() time.Time { return now }
	return svc
}

func TestGenerateDefaultsToSevenDays(t *testing.T) {
	repo := &stubRepo{}
	now := time.Date(2024, 5, 15, 13, 0, 0, 0, time.UTC)
	svc := fixedService(repo, now)

	rep, err := svc.Generate(context.Background(), uuid.New(), time.Time{}, time.Time{})
	if err != nil {
		t.Fatalf("generate: %v", err)
	}
	if rep.From != "2024-05-09" || rep.To != "2024-05-15" {
		t.Fatalf("window = %s..%s, want 2024-05-09..2024-05-15", rep.From, rep.To)
	}
	if len(rep.DailyTrend) != 7 {
		t.Fatalf("trend length = %d, want 7", len(rep.DailyTrend))
	}
	wantFrom := time.Date(2024, 5, 9, 0, 0, 0, 0, time.UTC)
	if !repo.gotWindow.From.Equal(wantFrom) {
		t.Fatalf("repo window from = %v, want %v", repo.gotWindow.From, wantFrom)
	}
}

func TestGenerateMarginZeroWithoutRevenue(t *testing.T) {
	repo := &stubRepo{expenses: 50}
	svc := fixedService(repo, time.Date(2024, 5, 15, 13, 0, 0, 0, time.UTC))

	rep, err := svc.Generate(context.Background(), uuid.New(), time.Time{}, time.Time{})
	if err != nil {
		t.Fatalf("generate: %v", err)
	}
	if rep.Totals.Margin != 0 {
		t.Fatalf("margin = %v, want 0", rep.Totals.Margin)
	}
	if rep.Totals.NetProfit != -50 {
		t.Fatalf("net profit = %v, want -50", rep.Totals.NetProfit)
	}
}

func TestGenerateMarginAndNetProfit(t *testing.T) {
	repo := &stubRepo{
		totals:   Totals{SaleCount: 4, UnitsSold: 10, TotalRevenue: 200, TotalCost: 120, GrossProfit: 80},
		expenses: 30,
	}
	svc := fixedService(repo, time.Date(2024, 5, 15, 13, 0, 0, 0, time.UTC))

	rep, err := svc.Generate(context.Background(), uuid.New(), time.Time{}, time.Time{})
	if err != nil {
		t.Fatalf("generate: %v", err)
	}
	if rep.Totals.Margin != 40 {
		t.Fatalf("margin = %v, want 40", rep.Totals.Margin)
	}
	if rep.Totals.NetProfit != 50 {
		t.Fatalf("net profit = %v, want 50", rep.Totals.NetProfit)
	}
}

func TestRankTieBreakIsStable(t *testing.T) {
	idA := uuid.MustParse("11111111-1111-1111-1111-111111111111")
	idB := uuid.MustParse("22222222-2222-2222-2222-222222222222")
	idC := uuid.MustParse("33333333-3333-3333-3333-333333333333")

	perf := []ProductPerformance{
		{ProductID: idC, Name: "C", Units: 5, Revenue: 50},
		{ProductID: idB, Name: "B", Units: 5, Revenue: 80},
		{ProductID: idA, Name: "A", Units: 9, Revenue: 20},
	}
	best, slow := rank(perf)

	// Units first, then revenue, then id.
	if best[0].ProductID != idA || best[1].ProductID != idB || best[2].ProductID != idC {
		t.Fatalf("best order wrong: %+v", best)
	}
	if slow[0].ProductID != idC {
		t.Fatalf("slow sellers must read worst-first, got %+v", slow)
	}
}

func TestRankIdenticalPerformersOrderById(t *testing.T) {
	idA := uuid.MustParse("11111111-1111-1111-1111-111111111111")
	idB := uuid.MustParse("22222222-2222-2222-2222-222222222222")

	perf := []ProductPerformance{
		{ProductID: idB, Name: "B", Units: 5, Revenue: 50},
		{ProductID: idA, Name: "A", Units: 5, Revenue: 50},
	}
	best, _ := rank(perf)
	if best[0].ProductID != idA {
		t.Fatalf("equal performers must order by id, got %+v", best)
	}
}

func TestGenerateDenseTrendFillsGaps(t *testing.T) {
	repo := &stubRepo{daily: []TrendPoint{
		{Date: "2024-05-10", Units: 3, Revenue: 30, Profit: 12},
	}}
	svc := fixedService(repo, time.Date(2024, 5, 15, 13, 0, 0, 0, time.UTC))

	rep, err := svc.Generate(context.Background(), uuid.New(), time.Time{}, time.Time{})
	if err != nil {
		t.Fatalf("generate: %v", err)
	}
	if len(rep.DailyTrend) != 7 {
		t.Fatalf("trend length = %d, want 7", len(rep.DailyTrend))
	}
	for _, p := range rep.DailyTrend {
		if p.Date == "2024-05-10" {
			if p.Units != 3 {
				t.Fatalf("real day lost: %+v", p)
			}
			continue
		}
		if p.Units != 0 || p.Revenue != 0 || p.Profit != 0 {
			t.Fatalf("gap day not zeroed: %+v", p)
		}
	}
}
