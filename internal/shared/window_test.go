package shared

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestResolveWindowDefaultsTrailingDays(t *testing.T) {
	end := time.Date(2024, 5, 15, 14, 30, 0, 0, time.UTC)
	w := ResolveWindow(time.Time{}, end, 7)

	require.Equal(t, time.Date(2024, 5, 9, 0, 0, 0, 0, time.UTC), w.From)
	require.Equal(t, time.Date(2024, 5, 15, 23, 59, 59, 999999999, time.UTC), w.To)
	require.True(t, w.Bounded())
}

func TestResolveWindowNormalizesExplicitBounds(t *testing.T) {
	start := time.Date(2024, 5, 1, 9, 15, 0, 0, time.UTC)
	end := time.Date(2024, 5, 3, 18, 0, 0, 0, time.UTC)
	w := ResolveWindow(start, end, 7)

	require.Equal(t, time.Date(2024, 5, 1, 0, 0, 0, 0, time.UTC), w.From)
	require.Equal(t, time.Date(2024, 5, 3, 23, 59, 59, 999999999, time.UTC), w.To)
}

func TestResolveWindowUnboundedStart(t *testing.T) {
	end := time.Date(2024, 5, 15, 0, 0, 0, 0, time.UTC)
	w := ResolveWindow(time.Time{}, end, 0)

	require.True(t, w.From.IsZero())
	require.False(t, w.Bounded())
}

func TestResolveWindowConvertsToUTC(t *testing.T) {
	loc := time.FixedZone("UTC+5", 5*3600)
	end := time.Date(2024, 5, 15, 2, 0, 0, 0, loc)
	w := ResolveWindow(time.Time{}, end, 1)

	// 02:00 at UTC+5 is still May 14 in UTC.
	require.Equal(t, time.Date(2024, 5, 14, 0, 0, 0, 0, time.UTC), w.From)
	require.Equal(t, time.Date(2024, 5, 14, 23, 59, 59, 999999999, time.UTC), w.To)
}

func TestNewPaginationRounding(t *testing.T) {
	p := NewPagination(2, 12, 25)
	require.Equal(t, 3, p.TotalPages)
	require.Equal(t, 12, p.Offset())

	empty := NewPagination(1, 12, 0)
	require.Equal(t, 0, empty.TotalPages)
}
