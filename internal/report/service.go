// Package report builds the consolidated sales report for a date window.
package report

import (
	"context"
	"sort"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"github.com/stocklane/stocklane/internal/platform/cache"
	"github.com/stocklane/stocklane/internal/shared"
)

// DefaultWindowDays is the report span when the request omits bounds.
const DefaultWindowDays = 7

// rankSize bounds the best and slow seller lists.
const rankSize = 5

// Totals summarizes the ledger inside the window.
type Totals struct {
	SaleCount    int64   `json:"saleCount"`
	UnitsSold    int64   `json:"unitsSold"`
	TotalRevenue float64 `json:"totalRevenue"`
	TotalCost    float64 `json:"totalCost"`
	GrossProfit  float64 `json:"grossProfit"`
	Expenses     float64 `json:"expenses"`
	NetProfit    float64 `json:"netProfit"`
	Margin       float64 `json:"margin"`
}

// ProductPerformance is one product's aggregate inside the window.
type ProductPerformance struct {
	ProductID uuid.UUID `json:"productId"`
	Name      string    `json:"name"`
	Units     int64     `json:"unitsSold"`
	Revenue   float64   `json:"revenue"`
}

// TrendPoint is one day of the dense report trend.
type TrendPoint struct {
	Date    string  `json:"date"`
	Units   int64   `json:"units"`
	Revenue float64 `json:"revenue"`
	Profit  float64 `json:"profit"`
}

// Report is the full payload.
type Report struct {
	From        string               `json:"from"`
	To          string               `json:"to"`
	Totals      Totals               `json:"totals"`
	BestSellers []ProductPerformance `json:"bestSellers"`
	SlowSellers []ProductPerformance `json:"slowSellers"`
	DailyTrend  []TrendPoint         `json:"dailyTrend"`
	GeneratedAt time.Time            `json:"generatedAt"`
}

// RepositoryPort provides the report aggregates.
type RepositoryPort interface {
	SaleTotals(ctx context.Context, ownerID uuid.UUID, w shared.Window) (Totals, error)
	ExpenseTotal(ctx context.Context, ownerID uuid.UUID, w shared.Window) (float64, error)
	ProductPerformance(ctx context.Context, ownerID uuid.UUID, w shared.Window) ([]ProductPerformance, error)
	DailySales(ctx context.Context, ownerID uuid.UUID, w shared.Window) ([]TrendPoint, error)
}

// Service assembles reports behind the versioned cache.
type Service struct {
	repo  RepositoryPort
	cache *cache.Versioned
	now   func() time.Time
}

// NewService builds Service. cache may be nil.
func NewService(repo RepositoryPort, cacheHelper *cache.Versioned) *Service {
	return &Service{repo: repo, cache: cacheHelper, now: time.Now}
}

// Generate builds the sales report. Missing bounds default to the trailing
// seven days ending today.
func (s *Service) Generate(ctx context.Context, ownerID uuid.UUID, start, end time.Time) (Report, error) {
	endBound := end
	if endBound.IsZero() {
		endBound = s.now().UTC()
	}
	w := shared.ResolveWindow(start, endBound, DefaultWindowDays)

	key, err := s.cache.BuildKey(ctx, "report", "sales", ownerID.String(),
		w.From.Format("2006-01-02"), w.To.Format("2006-01-02"))
	if err != nil {
		return Report{}, err
	}
	var report Report
	err = s.cache.FetchJSON(ctx, key, &report, func(ctx context.Context) (interface{}, error) {
		return s.build(ctx, ownerID, w)
	})
	return report, err
}

func (s *Service) build(ctx context.Context, ownerID uuid.UUID, w shared.Window) (Report, error) {
	var (
		totals      Totals
		expenses    float64
		performance []ProductPerformance
		daily       []TrendPoint
	)
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		t, err := s.repo.SaleTotals(gctx, ownerID, w)
		if err == nil {
			totals = t
		}
		return err
	})
	g.Go(func() error {
		e, err := s.repo.ExpenseTotal(gctx, ownerID, w)
		if err == nil {
			expenses = e
		}
		return err
	})
	g.Go(func() error {
		p, err := s.repo.ProductPerformance(gctx, ownerID, w)
		if err == nil {
			performance = p
		}
		return err
	})
	g.Go(func() error {
		d, err := s.repo.DailySales(gctx, ownerID, w)
		if err == nil {
			daily = d
		}
		return err
	})
	if err := g.Wait(); err != nil {
		return Report{}, err
	}

	totals.Expenses = expenses
	totals.NetProfit = totals.GrossProfit - expenses
	if totals.TotalRevenue > 0 {
		totals.Margin = totals.GrossProfit / totals.TotalRevenue * 100
	}

	best, slow := rank(performance)
	return Report{
		From:        w.From.Format("2006-01-02"),
		To:          w.To.Format("2006-01-02"),
		Totals:      totals,
		BestSellers: best,
		SlowSellers: slow,
		DailyTrend:  densify(daily, w),
		GeneratedAt: s.now().UTC(),
	}, nil
}

// rank orders products by units sold, then revenue, then product id so equal
// performers always land in the same order, and takes the two ends.
func rank(perf []ProductPerformance) (best, slow []ProductPerformance) {
	sorted := make([]ProductPerformance, len(perf))
	copy(sorted, perf)
	sort.Slice(sorted, func(i, j int) bool {
		a, b := sorted[i], sorted[j]
		if a.Units != b.Units {
			return a.Units > b.Units
		}
		if a.Revenue != b.Revenue {
			return a.Revenue > b.Revenue
		}
		return a.ProductID.String() < b.ProductID.String()
	})

	n := len(sorted)
	top := rankSize
	if top > n {
		top = n
	}
	best = append([]ProductPerformance{}, sorted[:top]...)

	slow = append([]ProductPerformance{}, sorted[n-top:]...)
	// Slow sellers read worst-first.
	for i, j := 0, len(slow)-1; i < j; i, j = i+1, j-1 {
		slow[i], slow[j] = slow[j], slow[i]
	}
	return best, slow
}

// densify fills the bounded window with zero points for days without sales.
func densify(points []TrendPoint, w shared.Window) []TrendPoint {
	byDate := make(map[string]TrendPoint, len(points))
	for _, p := range points {
		byDate[p.Date] = p
	}
	dense := []TrendPoint{}
	for cursor := w.From; !cursor.After(w.To); cursor = cursor.AddDate(0, 0, 1) {
		date := cursor.Format("2006-01-02")
		if p, ok := byDate[date]; ok {
			dense = append(dense, p)
			continue
		}
		dense = append(dense, TrendPoint{Date: date})
	}
	return dense
}
