/*
Package capacity computes how many hours a person is available in a period.

ALGORITHM:
  For every weekday in the overlap of the query range and the effective
  contract's span:
    - holiday on the contract's country calendar: counted as a holiday,
      contributes nothing, and is never also deducted as time off
    - otherwise: hoursPerDay * (1 - min(1, time off fraction))
  with hoursPerDay = weeklyHours / workdaysPerWeek.

UNKNOWN CAPACITY:
  A person with no contract overlapping the range has unknown capacity.
  Methods return ok=false rather than zero so utilization can show "-".

EFFECTIVE CONTRACT:
  When several contracts overlap the range, the one that started last wins
  (see EffectiveContract). Only that contract's hours and calendar apply.
*/
package capacity

import (
	"sort"

	"github.com/shopspring/decimal"

	"github.com/warp/capacity-engine/calendar"
	"github.com/warp/capacity-engine/generic"
	"github.com/warp/capacity-engine/timeoff"
)

// DefaultWorkdaysPerWeek converts weekly contracted hours into hours per day.
// A day is always weeklyHours/5, whatever the number of weekdays in the range.
const DefaultWorkdaysPerWeek = 5

// Policy holds the unit conversions capacity depends on.
type Policy struct {
	WorkdaysPerWeek int
}

func DefaultPolicy() Policy { return Policy{WorkdaysPerWeek: DefaultWorkdaysPerWeek} }

// HoursPerDay converts weekly hours to daily hours under the policy.
func (p Policy) HoursPerDay(weeklyHours decimal.Decimal) decimal.Decimal {
	days := p.WorkdaysPerWeek
	if days <= 0 {
		days = DefaultWorkdaysPerWeek
	}
	return weeklyHours.Div(decimal.NewFromInt(int64(days)))
}

// Result is a person's capacity over a period.
type Result struct {
	Contract    generic.Contract
	Hours       decimal.Decimal
	ByWeek      map[string]decimal.Decimal
	WorkingDays int
	HolidayDays int
	// TimeOffDays is the capped time off actually deducted.
	TimeOffDays decimal.Decimal
}

// Calculator is built once per snapshot and is read-only afterwards.
type Calculator struct {
	Policy    Policy
	Holidays  calendar.HolidayCalendar
	TimeOff   *timeoff.Accumulator
	contracts map[generic.PersonID][]generic.Contract
}

// NewCalculator indexes contracts by person.
func NewCalculator(policy Policy, contracts []generic.Contract, holidays calendar.HolidayCalendar, off *timeoff.Accumulator) *Calculator {
	if holidays == nil {
		holidays = calendar.NoHolidays{}
	}
	byPerson := make(map[generic.PersonID][]generic.Contract)
	for _, c := range contracts {
		byPerson[c.PersonID] = append(byPerson[c.PersonID], c)
	}
	return &Calculator{Policy: policy, Holidays: holidays, TimeOff: off, contracts: byPerson}
}

// EffectiveContract picks, among contracts overlapping window, the one with
// the latest start. Ties go to the later end, an open end beating any date.
func EffectiveContract(contracts []generic.Contract, window generic.Period) (generic.Contract, bool) {
	var candidates []generic.Contract
	for _, c := range contracts {
		if c.Start.IsZero() {
			continue
		}
		if c.Span(window).Overlaps(window) {
			candidates = append(candidates, c)
		}
	}
	if len(candidates) == 0 {
		return generic.Contract{}, false
	}
	sort.SliceStable(candidates, func(i, j int) bool {
		a, b := candidates[i], candidates[j]
		if !a.Start.Equal(b.Start) {
			return a.Start.After(b.Start)
		}
		switch {
		case a.End == nil:
			return b.End != nil
		case b.End == nil:
			return false
		default:
			return a.End.After(*b.End)
		}
	})
	return candidates[0], true
}

// Compute returns the capacity of person over period. ok is false when no
// contract covers any day of the period.
func (c *Calculator) Compute(person generic.PersonID, period generic.Period) (Result, bool) {
	period.Start.MustBeSet("capacity period start")
	period.End.MustBeSet("capacity period end")

	contract, ok := EffectiveContract(c.contracts[person], period)
	if !ok {
		return Result{}, false
	}
	res := Result{Contract: contract, ByWeek: make(map[string]decimal.Decimal)}

	span, ok := contract.Span(period).Clamp(period)
	if !ok {
		return res, true
	}
	hoursPerDay := c.Policy.HoursPerDay(generic.CoerceNonNegative(contract.WeeklyHours))

	for _, day := range calendar.Workdays(span) {
		week := calendar.WeekKey(day)
		if _, seen := res.ByWeek[week]; !seen {
			res.ByWeek[week] = decimal.Zero
		}
		if c.Holidays.IsHoliday(contract.CountryCode, day) {
			res.HolidayDays++
			continue
		}
		res.WorkingDays++

		available := decimal.NewFromInt(1)
		if c.TimeOff != nil {
			off := c.TimeOff.DailyOffFraction(person, day).Capped()
			res.TimeOffDays = res.TimeOffDays.Add(off)
			available = available.Sub(off)
		}
		hours := hoursPerDay.Mul(available)
		res.Hours = res.Hours.Add(hours)
		res.ByWeek[week] = res.ByWeek[week].Add(hours)
	}
	return res, true
}

// ForPeriod returns the capacity hours of person over period.
func (c *Calculator) ForPeriod(person generic.PersonID, period generic.Period) (decimal.Decimal, bool) {
	res, ok := c.Compute(person, period)
	return res.Hours, ok
}

// ByWeek returns capacity hours per week key (Monday date).
func (c *Calculator) ByWeek(person generic.PersonID, period generic.Period) (map[string]decimal.Decimal, bool) {
	res, ok := c.Compute(person, period)
	return res.ByWeek, ok
}

// IsWorkingDay reports whether date is a weekday that is not a holiday on
// the person's effective contract calendar.
func (c *Calculator) IsWorkingDay(person generic.PersonID, period generic.Period) func(generic.TimePoint) bool {
	contract, ok := EffectiveContract(c.contracts[person], period)
	return func(date generic.TimePoint) bool {
		if !date.IsWorkday() {
			return false
		}
		return !ok || !c.Holidays.IsHoliday(contract.CountryCode, date)
	}
}

// Utilization is workload / capacity; ok is false for unknown or zero capacity.
func Utilization(workload decimal.Decimal, capacity decimal.Decimal, capacityKnown bool) (decimal.Decimal, bool) {
	if !capacityKnown || !capacity.IsPositive() {
		return decimal.Zero, false
	}
	return workload.Div(capacity), true
}
