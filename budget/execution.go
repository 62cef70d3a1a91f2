package budget

import (
	"sort"

	"github.com/samber/lo"
	"github.com/shopspring/decimal"

	"github.com/warp/capacity-engine/generic"
	"github.com/warp/capacity-engine/identity"
)

// RoleExecution is one role's pool against what was assigned and spent.
type RoleExecution struct {
	Role       generic.BudgetRole
	Pool       decimal.Decimal
	CarriedIn  decimal.Decimal
	Available  decimal.Decimal // Pool + CarriedIn
	Assigned   decimal.Decimal // sum of person shares
	Spent      decimal.Decimal
	Unassigned decimal.Decimal // spend whose owner did not resolve
	Remaining  decimal.Decimal // Available - Spent
	ActiveDays int
	Shares     map[generic.PersonID]decimal.Decimal
}

// PersonExecution is one person's plan budget against actual spend.
type PersonExecution struct {
	PersonID    generic.PersonID
	Plan        decimal.Decimal
	Actual      decimal.Decimal
	Utilization *decimal.Decimal
	ByRole      map[generic.RoleID]decimal.Decimal
}

// Execution is the budget report for one fiscal year.
type Execution struct {
	Year   int
	Period generic.Period
	Roles  []RoleExecution
	People []PersonExecution
}

// Execute builds the plan-vs-actual report for a budget snapshot. Inactive
// roles are skipped. Spend resolves its owner through the person list.
func Execute(snap *generic.BudgetSnapshot) *Execution {
	resolver := identity.NewResolver(snap.People)
	roles := lo.Filter(snap.Roles, func(r generic.BudgetRole, _ int) bool { return r.Active })
	sort.SliceStable(roles, func(i, j int) bool {
		if roles[i].SortOrder != roles[j].SortOrder {
			return roles[i].SortOrder < roles[j].SortOrder
		}
		return roles[i].Name < roles[j].Name
	})

	carried := make(map[generic.RoleID]decimal.Decimal)
	for _, adj := range snap.Adjustments {
		if adj.ToYear == snap.Year {
			carried[adj.RoleID] = carried[adj.RoleID].Add(adj.Amount)
		}
	}

	spentByRole := make(map[generic.RoleID]decimal.Decimal)
	unassignedByRole := make(map[generic.RoleID]decimal.Decimal)
	actual := make(map[generic.PersonID]decimal.Decimal)
	for _, s := range snap.Spend {
		if !snap.Period.Contains(s.Date) {
			continue
		}
		amount := generic.Coerce(s.Amount)
		spentByRole[s.RoleID] = spentByRole[s.RoleID].Add(amount)
		if id, ok := resolver.Resolve(s.PersonID, s.OwnerText); ok {
			actual[id] = actual[id].Add(amount)
		} else {
			unassignedByRole[s.RoleID] = unassignedByRole[s.RoleID].Add(amount)
		}
	}

	byRole := lo.GroupBy(snap.Assignments, func(a generic.BudgetAssignment) generic.RoleID { return a.RoleID })
	plans := PlanBudgets(roles, snap.Assignments, snap.Period)

	exec := &Execution{Year: snap.Year, Period: snap.Period}
	for _, role := range roles {
		re := RoleExecution{
			Role:       role,
			Pool:       generic.Coerce(role.PoolAmount).Round(CentPlaces),
			CarriedIn:  carried[role.ID],
			Spent:      spentByRole[role.ID],
			Unassigned: unassignedByRole[role.ID],
			Shares:     Apportion(role, byRole[role.ID], snap.Period),
		}
		for _, a := range byRole[role.ID] {
			if n, ok := ActiveDays(a, snap.Period); ok {
				re.ActiveDays += n
			}
		}
		for _, share := range re.Shares {
			re.Assigned = re.Assigned.Add(share)
		}
		re.Available = re.Pool.Add(re.CarriedIn)
		re.Remaining = re.Available.Sub(re.Spent)
		exec.Roles = append(exec.Roles, re)
	}

	ids := lo.Uniq(append(lo.Keys(plans), lo.Keys(actual)...))
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
	for _, id := range ids {
		pe := PersonExecution{PersonID: id, Plan: plans[id].Total, Actual: actual[id], ByRole: plans[id].ByRole}
		if u, ok := Utilization(pe.Actual, pe.Plan); ok {
			pe.Utilization = &u
		}
		exec.People = append(exec.People, pe)
	}
	return exec
}

// Role returns the execution row of a role.
func (e *Execution) Role(id generic.RoleID) (RoleExecution, bool) {
	return lo.Find(e.Roles, func(r RoleExecution) bool { return r.Role.ID == id })
}
