// Package analytics serves the chart time series derived from the ledger.
package analytics

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/stocklane/stocklane/internal/platform/cache"
	"github.com/stocklane/stocklane/internal/shared"
)

// DayPoint is one calendar day with at least one sale. Days without sales are
// omitted; the chart treats gaps as zero.
type DayPoint struct {
	Date    string  `json:"date"`
	Units   int64   `json:"units"`
	Revenue float64 `json:"revenue"`
	Profit  float64 `json:"profit"`
}

// MonthPoint is one calendar month. The monthly series is dense: months
// without activity are present with zero values.
type MonthPoint struct {
	Month   string  `json:"month"`
	Year    int     `json:"year"`
	Revenue float64 `json:"revenue"`
	Cost    float64 `json:"cost"`
	Profit  float64 `json:"profit"`
}

// RepositoryPort provides the grouped ledger aggregates.
type RepositoryPort interface {
	SalesPerDay(ctx context.Context, ownerID uuid.UUID, w shared.Window) ([]DayPoint, error)
	MonthlyProfit(ctx context.Context, ownerID uuid.UUID, w shared.Window) ([]MonthPoint, error)
}

// DefaultMonths is the monthly-profit span when the request omits one.
const DefaultMonths = 6

const maxMonths = 24

// Service computes chart series with a versioned cache in front. Ledger
// writes bump the version, so cached series never survive a stock movement.
type Service struct {
	repo  RepositoryPort
	cache *cache.Versioned
	now   func() time.Time
}

// NewService builds Service. cache may be nil.
func NewService(repo RepositoryPort, cacheHelper *cache.Versioned) *Service {
	return &Service{repo: repo, cache: cacheHelper, now: time.Now}
}

// SalesPerDay returns the per-day sales series. A missing start leaves the
// window open, so the series covers all recorded history.
func (s *Service) SalesPerDay(ctx context.Context, ownerID uuid.UUID, start, end time.Time) ([]DayPoint, error) {
	w := shared.ResolveWindow(start, end, 0)

	key, err := s.cache.BuildKey(ctx, "analytics", "sales-per-day", ownerID.String(),
		w.From.Format("2006-01-02"), w.To.Format("2006-01-02"))
	if err != nil {
		return nil, err
	}
	var points []DayPoint
	err = s.cache.FetchJSON(ctx, key, &points, func(ctx context.Context) (interface{}, error) {
		return s.repo.SalesPerDay(ctx, ownerID, w)
	})
	if err != nil {
		return nil, err
	}
	if points == nil {
		points = []DayPoint{}
	}
	return points, nil
}

// MonthlyProfit returns a dense series covering the trailing months up to and
// including the current one. months <= 0 falls back to DefaultMonths.
func (s *Service) MonthlyProfit(ctx context.Context, ownerID uuid.UUID, months int) ([]MonthPoint, error) {
	if months <= 0 {
		months = DefaultMonths
	}
	if months > maxMonths {
		months = maxMonths
	}

	now := s.now().UTC()
	firstMonth := time.Date(now.Year(), now.Month(), 1, 0, 0, 0, 0, time.UTC).AddDate(0, -(months - 1), 0)
	w := shared.Window{From: firstMonth, To: shared.EndOfDay(now)}

	key, err := s.cache.BuildKey(ctx, "analytics", "monthly-profit", ownerID.String(),
		fmt.Sprintf("%d", months), firstMonth.Format("2006-01"))
	if err != nil {
		return nil, err
	}
	var sparse []MonthPoint
	err = s.cache.FetchJSON(ctx, key, &sparse, func(ctx context.Context) (interface{}, error) {
		return s.repo.MonthlyProfit(ctx, ownerID, w)
	})
	if err != nil {
		return nil, err
	}

	byBucket := make(map[string]MonthPoint, len(sparse))
	for _, p := range sparse {
		byBucket[fmt.Sprintf("%d-%s", p.Year, p.Month)] = p
	}

	series := make([]MonthPoint, 0, months)
	cursor := firstMonth
	for i := 0; i < months; i++ {
		label := cursor.Format("Jan")
		point := MonthPoint{Month: label, Year: cursor.Year()}
		if found, ok := byBucket[fmt.Sprintf("%d-%s", cursor.Year(), label)]; ok {
			point = found
		}
		series = append(series, point)
		cursor = cursor.AddDate(0, 1, 0)
	}
	return series, nil
}
