// Package timeoff aggregates partial-day time off per person and date.
package timeoff

import (
	"github.com/shopspring/decimal"

	"github.com/warp/capacity-engine/generic"
)

var (
	fullDay = decimal.NewFromInt(1)
	halfDay = decimal.NewFromFloat(0.5)
)

// =============================================================================
// FRACTIONS
// =============================================================================

// Fractions is the day fraction taken off on one date, per kind. The raw sums
// are kept uncapped so overlapping records stay visible in audits.
type Fractions struct {
	Vacation decimal.Decimal
	Sick     decimal.Decimal
	Other    decimal.Decimal
}

// Total is the uncapped sum across kinds.
func (f Fractions) Total() decimal.Decimal {
	return f.Vacation.Add(f.Sick).Add(f.Other)
}

// Capped is Total limited to one full day. Availability uses this value.
func (f Fractions) Capped() decimal.Decimal {
	return decimal.Min(f.Total(), fullDay)
}

func (f Fractions) add(kind generic.TimeOffKind, v decimal.Decimal) Fractions {
	switch kind {
	case generic.TimeOffVacation:
		f.Vacation = f.Vacation.Add(v)
	case generic.TimeOffSick:
		f.Sick = f.Sick.Add(v)
	default:
		f.Other = f.Other.Add(v)
	}
	return f
}

// NormalizeFraction maps a stored day fraction to 0.5 or 1. Only half and
// full days are supported; anything else counts as a full day.
func NormalizeFraction(v *float64) decimal.Decimal {
	if v != nil && *v == 0.5 {
		return halfDay
	}
	return fullDay
}

// DayFraction returns how much of day a record covers. Single-day records
// use the start fraction; multi-day records use the start fraction on the
// first day, the end fraction on the last, and full days in between.
func DayFraction(rec generic.TimeOff, day generic.TimePoint) decimal.Decimal {
	switch {
	case day.Before(rec.Start) || day.After(rec.End):
		return decimal.Zero
	case day.Equal(rec.Start):
		return NormalizeFraction(rec.StartDayFraction)
	case day.Equal(rec.End):
		return NormalizeFraction(rec.EndDayFraction)
	default:
		return fullDay
	}
}

// =============================================================================
// ACCUMULATOR
// =============================================================================

// Accumulator answers DailyOffFraction lookups. It expands every record into
// per-day entries once, restricted to a window, and is read-only afterwards.
type Accumulator struct {
	window generic.Period
	days   map[generic.PersonID]map[string]Fractions
}

// NewAccumulator expands records over the days they share with window.
// Records with an inverted range are ignored.
func NewAccumulator(records []generic.TimeOff, window generic.Period) *Accumulator {
	acc := &Accumulator{window: window, days: make(map[generic.PersonID]map[string]Fractions)}
	for _, rec := range records {
		span, ok := generic.Period{Start: rec.Start, End: rec.End}.Clamp(window)
		if !rec.Start.BeforeOrEqual(rec.End) || !ok {
			continue
		}
		perDay := acc.days[rec.PersonID]
		if perDay == nil {
			perDay = make(map[string]Fractions)
			acc.days[rec.PersonID] = perDay
		}
		for _, day := range span.Days() {
			perDay[day.Key()] = perDay[day.Key()].add(rec.Kind, DayFraction(rec, day))
		}
	}
	return acc
}

// DailyOffFraction returns the summed fractions of person on date.
func (a *Accumulator) DailyOffFraction(person generic.PersonID, date generic.TimePoint) Fractions {
	return a.days[person][date.Key()]
}

// AvailableFraction is 1 - min(1, total off) for the date.
func (a *Accumulator) AvailableFraction(person generic.PersonID, date generic.TimePoint) decimal.Decimal {
	return fullDay.Sub(a.DailyOffFraction(person, date).Capped())
}

// =============================================================================
// SUMMARY
// =============================================================================

// Summary is a person's time off over a period, counted on working days.
type Summary struct {
	Vacation decimal.Decimal
	Sick     decimal.Decimal
	Other    decimal.Decimal

	// VacationEntitlement comes from the contract; nil when unknown.
	VacationEntitlement *decimal.Decimal
	// VacationRemaining is the entitlement minus every vacation day booked
	// in the entitlement year, not just the ones inside the period.
	VacationRemaining *decimal.Decimal
}

// Summarize adds up the uncapped per-kind fractions over the days of period
// that isWorkingDay accepts (weekdays that are not holidays for the person).
// Remaining vacation is measured over entitlementYear; the accumulator
// window must cover it.
func (a *Accumulator) Summarize(person generic.PersonID, period, entitlementYear generic.Period, isWorkingDay func(generic.TimePoint) bool, entitlement *float64) Summary {
	var s Summary
	for _, day := range period.Days() {
		if isWorkingDay != nil && !isWorkingDay(day) {
			continue
		}
		f := a.DailyOffFraction(person, day)
		s.Vacation = s.Vacation.Add(f.Vacation)
		s.Sick = s.Sick.Add(f.Sick)
		s.Other = s.Other.Add(f.Other)
	}
	if entitlement != nil {
		e := generic.CoerceNonNegative(entitlement)
		remaining := e.Sub(a.vacationTaken(person, entitlementYear, isWorkingDay))
		s.VacationEntitlement = &e
		s.VacationRemaining = &remaining
	}
	return s
}

func (a *Accumulator) vacationTaken(person generic.PersonID, year generic.Period, isWorkingDay func(generic.TimePoint) bool) decimal.Decimal {
	taken := decimal.Zero
	for key, f := range a.days[person] {
		day := generic.MustDate(key)
		if !year.Contains(day) || (isWorkingDay != nil && !isWorkingDay(day)) {
			continue
		}
		taken = taken.Add(f.Vacation)
	}
	return taken
}
