package generic

import (
	"fmt"
	"time"
)

// =============================================================================
// CALENDAR - Optional real-date anchor for month and year labels
// =============================================================================

// Calendar anchors month 0 of a projection to a real month. The engine works
// on month indices only; the calendar exists for presentation.
type Calendar struct {
	Start time.Time
}

// NewCalendar anchors month 0 to the first day of year/month.
func NewCalendar(year int, month time.Month) Calendar {
	return Calendar{Start: time.Date(year, month, 1, 0, 0, 0, 0, time.UTC)}
}

// ParseCalendar parses "2006-01". An empty string yields the zero calendar.
func ParseCalendar(s string) (Calendar, error) {
	if s == "" {
		return Calendar{}, nil
	}
	t, err := time.Parse("2006-01", s)
	if err != nil {
		return Calendar{}, fmt.Errorf("invalid start month %q (use YYYY-MM): %w", s, err)
	}
	return NewCalendar(t.Year(), t.Month()), nil
}

func (c Calendar) IsZero() bool { return c.Start.IsZero() }

// MonthStart returns the first day of month m.
func (c Calendar) MonthStart(m int) time.Time { return c.Start.AddDate(0, m, 0) }

// MonthLabel returns "Sep-2025" for an anchored calendar, "M1" otherwise.
func (c Calendar) MonthLabel(m int) string {
	if c.IsZero() {
		return fmt.Sprintf("M%d", m+1)
	}
	return c.MonthStart(m).Format("Jan-2006")
}

// YearLabel returns "Y1 (Sep-2025..Mar-2026)" for an anchored calendar and
// the bare "Y1" otherwise.
func (c Calendar) YearLabel(fy FiscalYear) string {
	if c.IsZero() {
		return fy.Label()
	}
	return fmt.Sprintf("%s (%s..%s)", fy.Label(), c.MonthLabel(fy.FirstMonth), c.MonthLabel(fy.LastMonth))
}

func (c Calendar) String() string {
	if c.IsZero() {
		return ""
	}
	return c.Start.Format("2006-01")
}
