/*
Package budget splits role budget pools across the people assigned to them
and reports plan against actual spend.

APPORTIONMENT:
  Each assignment is clamped to the period (open ends default to the period
  bounds). Its inclusive day count is that person's active days for the
  role. A person's share of a role is

      pool * personActiveDays / roleActiveDays

  rounded to cents with the largest-remainder method. The pool itself is
  first rounded to cents (half away from zero), so the shares of a role
  always add up to that cent amount exactly; a pool of 100.005 splits as
  100.01. A role with no active days distributes nothing.

UTILIZATION:
  actual spend / plan budget, unknown when the plan is zero.

SEE ALSO:
  - execution.go: per-role and per-person plan vs actual
  - carryover.go: moving unused pool between fiscal years
*/
package budget

import (
	"sort"

	"github.com/samber/lo"
	"github.com/shopspring/decimal"

	"github.com/warp/capacity-engine/generic"
)

// CentPlaces is the precision shares are rounded to.
const CentPlaces = 2

// ActiveDays returns the inclusive days assignment a is active inside period.
// ok is false when the clamped range is empty.
func ActiveDays(a generic.BudgetAssignment, period generic.Period) (int, bool) {
	clamped, ok := generic.OpenRange(a.Start, a.End, period).Clamp(period)
	if !ok {
		return 0, false
	}
	return clamped.InclusiveDays(), true
}

// Apportion returns each person's share of role's pool over period.
// Assignments for other roles are ignored.
func Apportion(role generic.BudgetRole, assignments []generic.BudgetAssignment, period generic.Period) map[generic.PersonID]decimal.Decimal {
	days := make(map[generic.PersonID]int)
	total := 0
	for _, a := range assignments {
		if a.RoleID != role.ID {
			continue
		}
		n, ok := ActiveDays(a, period)
		if !ok {
			continue
		}
		days[a.PersonID] += n
		total += n
	}

	shares := make(map[generic.PersonID]decimal.Decimal, len(days))
	if total <= 0 {
		for id := range days {
			shares[id] = decimal.Zero
		}
		return shares
	}
	pool := generic.Coerce(role.PoolAmount)
	return largestRemainder(pool, days, total)
}

// largestRemainder rounds pool to cents, splits it as pool*w/total rounded
// down to cents, then hands the leftover cents to the largest remainders
// (ties by person id).
func largestRemainder(pool decimal.Decimal, weights map[generic.PersonID]int, total int) map[generic.PersonID]decimal.Decimal {
	type part struct {
		id        generic.PersonID
		floor     decimal.Decimal
		remainder decimal.Decimal
	}

	negative := pool.IsNegative()
	abs := pool.Abs().Round(CentPlaces)
	cent := decimal.New(1, -CentPlaces)
	totalDec := decimal.NewFromInt(int64(total))

	parts := make([]part, 0, len(weights))
	allocated := decimal.Zero
	for id, w := range weights {
		exact := abs.Mul(decimal.NewFromInt(int64(w))).Div(totalDec)
		floor := exact.RoundFloor(CentPlaces)
		parts = append(parts, part{id: id, floor: floor, remainder: exact.Sub(floor)})
		allocated = allocated.Add(floor)
	}
	sort.Slice(parts, func(i, j int) bool {
		if c := parts[i].remainder.Cmp(parts[j].remainder); c != 0 {
			return c > 0
		}
		return parts[i].id < parts[j].id
	})

	leftover := abs.Sub(allocated).Div(cent).IntPart()
	shares := make(map[generic.PersonID]decimal.Decimal, len(parts))
	for i, p := range parts {
		share := p.floor
		if int64(i) < leftover {
			share = share.Add(cent)
		}
		if negative {
			share = share.Neg()
		}
		shares[p.id] = share
	}
	return shares
}

// =============================================================================
// PLAN BUDGETS
// =============================================================================

// PersonPlan is a person's total plan budget and its split by role.
type PersonPlan struct {
	Total  decimal.Decimal
	ByRole map[generic.RoleID]decimal.Decimal
}

// PlanBudgets apportions every role and sums shares per person.
func PlanBudgets(roles []generic.BudgetRole, assignments []generic.BudgetAssignment, period generic.Period) map[generic.PersonID]PersonPlan {
	byRole := lo.GroupBy(assignments, func(a generic.BudgetAssignment) generic.RoleID { return a.RoleID })

	plans := make(map[generic.PersonID]PersonPlan)
	for _, role := range roles {
		for id, share := range Apportion(role, byRole[role.ID], period) {
			plan, ok := plans[id]
			if !ok {
				plan = PersonPlan{ByRole: make(map[generic.RoleID]decimal.Decimal)}
			}
			plan.Total = plan.Total.Add(share)
			plan.ByRole[role.ID] = plan.ByRole[role.ID].Add(share)
			plans[id] = plan
		}
	}
	return plans
}

// Utilization is actual / plan; ok is false when plan is zero.
func Utilization(actual, plan decimal.Decimal) (decimal.Decimal, bool) {
	if plan.IsZero() {
		return decimal.Zero, false
	}
	return actual.Div(plan), true
}
