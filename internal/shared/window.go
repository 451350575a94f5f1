package shared

import "time"

// Window is a closed date range. A zero From means unbounded history; a zero
// To means "up to now". Bounds are normalized to full UTC days: From at
// 00:00:00 and To at 23:59:59.999999999.
type Window struct {
	From time.Time
	To   time.Time
}

// ResolveWindow applies one defaulting and normalization rule for every
// aggregator. defaultDays > 0 backfills a missing start bound to that many
// trailing calendar days ending at To (inclusive of both endpoints);
// defaultDays <= 0 leaves a missing start unbounded.
func ResolveWindow(start, end time.Time, defaultDays int) Window {
	now := time.Now().UTC()
	to := end
	if to.IsZero() {
		to = now
	}
	to = EndOfDay(to)

	from := start
	if from.IsZero() && defaultDays > 0 {
		from = to.AddDate(0, 0, -(defaultDays - 1))
	}
	if !from.IsZero() {
		from = StartOfDay(from)
	}
	return Window{From: from, To: to}
}

// StartOfDay truncates t to UTC midnight.
func StartOfDay(t time.Time) time.Time {
	t = t.UTC()
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
}

// EndOfDay moves t to the last instant of its UTC day.
func EndOfDay(t time.Time) time.Time {
	t = t.UTC()
	return time.Date(t.Year(), t.Month(), t.Day(), 23, 59, 59, 999999999, time.UTC)
}

// Bounded reports whether the window has a lower bound.
func (w Window) Bounded() bool {
	return !w.From.IsZero()
}
