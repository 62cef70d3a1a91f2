package generic

import "time"

// =============================================================================
// PERIOD - Inclusive date range
// =============================================================================

// Period is the inclusive range [Start, End]. Every report, capacity and
// budget computation runs over one.
type Period struct {
	Start TimePoint
	End   TimePoint
}

// Valid reports Start <= End.
func (p Period) Valid() bool { return p.Start.BeforeOrEqual(p.End) }

// Contains returns true if the time point is within the period [Start, End]
func (p Period) Contains(t TimePoint) bool {
	return t.AfterOrEqual(p.Start) && t.BeforeOrEqual(p.End)
}

// Overlaps reports whether the two periods share at least one day.
func (p Period) Overlaps(other Period) bool {
	return p.Start.BeforeOrEqual(other.End) && other.Start.BeforeOrEqual(p.End)
}

// Clamp intersects p with bounds. The bool is false when nothing is left.
func (p Period) Clamp(bounds Period) (Period, bool) {
	out := Period{Start: MaxDate(p.Start, bounds.Start), End: MinDate(p.End, bounds.End)}
	return out, out.Valid()
}

// InclusiveDays counts calendar days in [Start, End]; 0 for an invalid period.
func (p Period) InclusiveDays() int {
	if !p.Valid() {
		return 0
	}
	return DaysBetween(p.Start, p.End) + 1
}

// Days returns all days in the period as a slice of TimePoints.
func (p Period) Days() []TimePoint {
	var days []TimePoint
	for current := p.Start; current.BeforeOrEqual(p.End); current = current.AddDays(1) {
		days = append(days, current)
	}
	return days
}

// OpenRange builds a period from optional bounds, filling nil ends from
// fallback. Used for contracts and assignments whose end date is open.
func OpenRange(start, end *TimePoint, fallback Period) Period {
	p := fallback
	if start != nil && !start.IsZero() {
		p.Start = *start
	}
	if end != nil && !end.IsZero() {
		p.End = *end
	}
	return p
}

func (p Period) String() string {
	return "[" + p.Start.String() + ", " + p.End.String() + "]"
}

// =============================================================================
// FISCAL YEARS
// =============================================================================

// PeriodConfig maps a fiscal year label to its date range. A budget pool
// belongs to one fiscal year.
type PeriodConfig struct {
	// FiscalYearStartMonth is the first month of the fiscal year (1-12).
	// January means fiscal year == calendar year.
	FiscalYearStartMonth time.Month
}

// FiscalYear returns the period labelled year. A fiscal year starting in
// April 2025 and ending in March 2026 is labelled 2025.
func (pc PeriodConfig) FiscalYear(year int) Period {
	month := pc.FiscalYearStartMonth
	if month < time.January || month > time.December {
		month = time.January
	}
	start := NewTimePoint(year, month, 1)
	return Period{Start: start, End: start.AddYears(1).AddDays(-1)}
}

// FiscalYearOf returns the label of the fiscal year containing date.
func (pc PeriodConfig) FiscalYearOf(date TimePoint) int {
	year := date.Year()
	if date.Before(pc.FiscalYear(year).Start) {
		return year - 1
	}
	return year
}
