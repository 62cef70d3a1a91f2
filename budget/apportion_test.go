package budget_test

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/warp/capacity-engine/budget"
	"github.com/warp/capacity-engine/generic"
)

// =============================================================================
// TEST SETUP
// =============================================================================

var d = generic.MustDate

func dec(s string) decimal.Decimal { return decimal.RequireFromString(s) }

func datePtr(s string) *generic.TimePoint {
	tp := d(s)
	return &tp
}

func year2025() generic.Period {
	return generic.Period{Start: d("2025-01-01"), End: d("2025-12-31")}
}

func role(id string, pool float64) generic.BudgetRole {
	return generic.BudgetRole{ID: generic.RoleID(id), Name: id, Year: 2025, PoolAmount: generic.Float(pool), Currency: "EUR", Active: true}
}

func assign(roleID, person, start, end string) generic.BudgetAssignment {
	a := generic.BudgetAssignment{RoleID: generic.RoleID(roleID), PersonID: generic.PersonID(person)}
	if start != "" {
		a.Start = datePtr(start)
	}
	if end != "" {
		a.End = datePtr(end)
	}
	return a
}

func sum(shares map[generic.PersonID]decimal.Decimal) decimal.Decimal {
	total := decimal.Zero
	for _, s := range shares {
		total = total.Add(s)
	}
	return total
}

// =============================================================================
// APPORTION
// =============================================================================

func TestApportion_FullYearAndHalfYear(t *testing.T) {
	// GIVEN: A 12000 pool, A all year (365 days), B from July (184 days)
	r := role("designer", 12000)
	assignments := []generic.BudgetAssignment{
		assign("designer", "A", "", ""),
		assign("designer", "B", "2025-07-01", ""),
	}

	// WHEN
	shares := budget.Apportion(r, assignments, year2025())

	// THEN: 12000*365/549 and 12000*184/549, rounded so they sum to the pool
	require.Len(t, shares, 2)
	assert.True(t, dec("7978.14").Equal(shares["A"]), "A = %s", shares["A"])
	assert.True(t, dec("4021.86").Equal(shares["B"]), "B = %s", shares["B"])
	assert.True(t, dec("12000").Equal(sum(shares)))
}

func TestApportion_SharesAlwaysSumToPool(t *testing.T) {
	r := role("writer", 1000)
	assignments := []generic.BudgetAssignment{
		assign("writer", "A", "2025-01-01", "2025-04-10"),
		assign("writer", "B", "2025-02-03", "2025-11-17"),
		assign("writer", "C", "2025-06-15", ""),
	}

	shares := budget.Apportion(r, assignments, year2025())

	assert.True(t, dec("1000").Equal(sum(shares)), "sum = %s", sum(shares))
	for id, s := range shares {
		assert.True(t, s.Round(2).Equal(s), "share of %s not in cents", id)
	}
}

func TestApportion_ThreeWaySplitHandsOutLeftoverCent(t *testing.T) {
	// GIVEN: 100 over three equal spans does not divide into cents
	r := role("r", 100)
	assignments := []generic.BudgetAssignment{
		assign("r", "p1", "", ""),
		assign("r", "p2", "", ""),
		assign("r", "p3", "", ""),
	}

	shares := budget.Apportion(r, assignments, year2025())

	// THEN: ties broken by person id
	assert.True(t, dec("33.34").Equal(shares["p1"]))
	assert.True(t, dec("33.33").Equal(shares["p2"]))
	assert.True(t, dec("33.33").Equal(shares["p3"]))
}

func TestApportion_SubCentPoolIsRoundedFirst(t *testing.T) {
	// GIVEN: a pool with a fraction of a cent
	r := role("r", 100.005)
	assignments := []generic.BudgetAssignment{
		assign("r", "p1", "", ""),
		assign("r", "p2", "", ""),
		assign("r", "p3", "", ""),
	}

	shares := budget.Apportion(r, assignments, year2025())

	// THEN: the cent-rounded pool is split exactly
	assert.True(t, dec("100.01").Equal(sum(shares)), "got %s", sum(shares))
	assert.True(t, dec("33.34").Equal(shares["p1"]))
	assert.True(t, dec("33.34").Equal(shares["p2"]))
	assert.True(t, dec("33.33").Equal(shares["p3"]))

	// and execution reports the same pool it split
	exec := budget.Execute(&generic.BudgetSnapshot{
		Year: 2025, Period: year2025(), Roles: []generic.BudgetRole{r}, Assignments: assignments,
	})
	re, ok := exec.Role("r")
	assert.True(t, ok)
	assert.True(t, re.Pool.Equal(re.Assigned), "pool %s assigned %s", re.Pool, re.Assigned)
}

func TestApportion_NoActiveDaysDistributesNothing(t *testing.T) {
	r := role("r", 5000)
	assignments := []generic.BudgetAssignment{
		assign("r", "A", "2024-01-01", "2024-12-31"),
	}

	shares := budget.Apportion(r, assignments, year2025())

	assert.Empty(t, shares)
	assert.True(t, sum(shares).IsZero())
}

func TestApportion_MultipleAssignmentsForSamePersonAdd(t *testing.T) {
	r := role("r", 730)
	assignments := []generic.BudgetAssignment{
		assign("r", "A", "2025-01-01", "2025-03-31"),
		assign("r", "A", "2025-10-01", "2025-12-31"),
		assign("r", "B", "", ""),
	}

	shares := budget.Apportion(r, assignments, year2025())

	// A: 90 + 92 = 182 days, B: 365 days
	n, ok := budget.ActiveDays(assignments[0], year2025())
	require.True(t, ok)
	assert.Equal(t, 90, n)
	assert.True(t, dec("730").Equal(sum(shares)))
	assert.True(t, shares["B"].GreaterThan(shares["A"]))
}

func TestApportion_IgnoresOtherRolesAndMissingPool(t *testing.T) {
	r := generic.BudgetRole{ID: "r", Active: true}
	assignments := []generic.BudgetAssignment{
		assign("r", "A", "", ""),
		assign("other", "B", "", ""),
	}

	shares := budget.Apportion(r, assignments, year2025())

	require.Len(t, shares, 1)
	assert.True(t, shares["A"].IsZero())
}

func TestApportion_NegativePoolStillSumsExactly(t *testing.T) {
	r := role("r", -10)
	assignments := []generic.BudgetAssignment{
		assign("r", "A", "", ""),
		assign("r", "B", "", ""),
		assign("r", "C", "", ""),
	}

	shares := budget.Apportion(r, assignments, year2025())

	assert.True(t, dec("-10").Equal(sum(shares)))
	assert.True(t, dec("-3.34").Equal(shares["A"]))
}

// =============================================================================
// PLAN BUDGETS
// =============================================================================

func TestPlanBudgets_SumsAcrossRoles(t *testing.T) {
	roles := []generic.BudgetRole{role("design", 1000), role("copy", 500)}
	assignments := []generic.BudgetAssignment{
		assign("design", "A", "", ""),
		assign("copy", "A", "", ""),
		assign("copy", "B", "", ""),
	}

	plans := budget.PlanBudgets(roles, assignments, year2025())

	assert.True(t, dec("1250").Equal(plans["A"].Total))
	assert.True(t, dec("1000").Equal(plans["A"].ByRole["design"]))
	assert.True(t, dec("250").Equal(plans["B"].Total))
}

func TestUtilization_UnknownWhenPlanIsZero(t *testing.T) {
	_, ok := budget.Utilization(dec("10"), decimal.Zero)
	assert.False(t, ok)

	u, ok := budget.Utilization(dec("50"), dec("200"))
	require.True(t, ok)
	assert.True(t, dec("0.25").Equal(u))
}
