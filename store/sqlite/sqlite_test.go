package sqlite_test

import (
	"context"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/warp/capacity-engine/budget"
	"github.com/warp/capacity-engine/generic"
	"github.com/warp/capacity-engine/store/sqlite"
)

const client generic.ClientSlug = "acme"

var d = generic.MustDate

func datePtr(s string) *generic.TimePoint {
	tp := d(s)
	return &tp
}

func newStore(t *testing.T) *sqlite.Store {
	t.Helper()
	s, err := sqlite.New(":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })
	return s
}

func march() generic.Period {
	return generic.Period{Start: d("2025-03-01"), End: d("2025-03-31")}
}

func TestNew_AppliesMigrations(t *testing.T) {
	s := newStore(t)

	version, dirty, err := s.MigrationVersion()

	require.NoError(t, err)
	assert.Equal(t, uint(1), version)
	assert.False(t, dirty)
	require.NoError(t, s.Migrate(), "re-running is a no-op")
}

func TestPeople_RoundTripWithAliases(t *testing.T) {
	ctx := context.Background()
	s := newStore(t)
	require.NoError(t, s.SavePeople(ctx, client,
		generic.Person{ID: "p1", DisplayName: "Ana", Email: "ana@acme.test", Aliases: []string{"ana.r", "anita"}, Active: true, InTeamCapacity: true},
		generic.Person{ID: "p2", DisplayName: "Bob", Active: false},
	))
	require.NoError(t, s.SavePeople(ctx, "other", generic.Person{ID: "p9", DisplayName: "Zed", Active: true}))

	people, err := s.ListPeople(ctx, client, generic.Page{Limit: 10})

	require.NoError(t, err)
	require.Len(t, people, 2)
	assert.ElementsMatch(t, []string{"ana.r", "anita"}, people[0].Aliases)
	assert.Equal(t, "ana@acme.test", people[0].Email)
	assert.True(t, people[0].InTeamCapacity)
	assert.False(t, people[1].Active)
	assert.Empty(t, people[1].Aliases)
}

func TestListEfforts_PagesAndFilters(t *testing.T) {
	ctx := context.Background()
	s := newStore(t)
	var records []generic.EffortRecord
	for i, day := range []string{"2025-03-03", "2025-03-04", "2025-03-05", "2025-04-01"} {
		records = append(records, generic.EffortRecord{
			ID: string(rune('a' + i)), Source: generic.SourceWorklog, OwnerText: "ana.r",
			Hours: generic.Float(2), Date: datePtr(day),
		})
	}
	records = append(records,
		generic.EffortRecord{ID: "u", Source: generic.SourceWorklog, Hours: generic.Float(1)},
		generic.EffortRecord{ID: "contrib", Source: generic.SourceContribution, WorkHours: generic.Float(10)},
	)
	require.NoError(t, s.SaveEfforts(ctx, client, records...))

	all, err := generic.FetchAll(ctx, 2, func(ctx context.Context, p generic.Page) ([]generic.EffortRecord, error) {
		return s.ListEfforts(ctx, client, generic.SourceWorklog, march(), p)
	})

	require.NoError(t, err)
	require.Len(t, all, 4, "three dated in range plus one undated")
	for _, r := range all {
		assert.Equal(t, generic.SourceWorklog, r.Source)
		assert.Nil(t, r.PrepHours)
	}
}

func TestListContracts_OverlapAndNulls(t *testing.T) {
	ctx := context.Background()
	s := newStore(t)
	require.NoError(t, s.SaveContracts(ctx, client,
		generic.Contract{ID: "c1", PersonID: "p1", WeeklyHours: generic.Float(35), CountryCode: "ES", Start: d("2024-01-01")},
		generic.Contract{ID: "c2", PersonID: "p1", CountryCode: "ES", Start: d("2024-01-01"), End: datePtr("2025-02-28")},
		generic.Contract{ID: "c3", PersonID: "p2", WeeklyHours: generic.Float(40), Start: d("2025-03-31")},
	))

	contracts, err := s.ListContracts(ctx, client, march(), generic.Page{Limit: 10})

	require.NoError(t, err)
	require.Len(t, contracts, 2)
	assert.Equal(t, "c1", contracts[0].ID)
	assert.Nil(t, contracts[0].End)
	assert.Equal(t, 35.0, *contracts[0].WeeklyHours)
	assert.Equal(t, "c3", contracts[1].ID)
}

func TestReplaceAdjustments_DeleteThenInsert(t *testing.T) {
	ctx := context.Background()
	s := newStore(t)
	key := generic.AdjustmentKey{RoleID: "designer", FromYear: 2025, ToYear: 2026, Type: generic.AdjustmentCarryover}
	other := generic.AdjustmentKey{RoleID: "writer", FromYear: 2025, ToYear: 2026, Type: generic.AdjustmentCarryover}

	_, err := budget.Carryover(ctx, s, client, key, []generic.BudgetAdjustment{
		{RoleID: "designer", FromYear: 2025, ToYear: 2026, Type: generic.AdjustmentCarryover, Amount: decimal.RequireFromString("100.25")},
		{RoleID: "designer", FromYear: 2025, ToYear: 2026, Type: generic.AdjustmentCarryover, Amount: decimal.RequireFromString("50")},
	})
	require.NoError(t, err)
	_, err = budget.Carryover(ctx, s, client, other, []generic.BudgetAdjustment{
		{RoleID: "writer", FromYear: 2025, ToYear: 2026, Type: generic.AdjustmentCarryover, Amount: decimal.RequireFromString("7")},
	})
	require.NoError(t, err)

	_, err = budget.Carryover(ctx, s, client, key, []generic.BudgetAdjustment{
		{ID: "keep", RoleID: "designer", FromYear: 2025, ToYear: 2026, Type: generic.AdjustmentCarryover, Amount: decimal.RequireFromString("1")},
	})
	require.NoError(t, err)

	rows, err := s.AdjustmentsFor(ctx, client, key)
	require.NoError(t, err)
	require.Len(t, rows, 1)
	assert.Equal(t, "keep", rows[0].ID)

	toYear, err := s.ListAdjustments(ctx, client, 2026, generic.Page{Limit: 10})
	require.NoError(t, err)
	assert.Len(t, toYear, 2, "other keys untouched")
}

func TestResetClient(t *testing.T) {
	ctx := context.Background()
	s := newStore(t)
	require.NoError(t, s.SavePeople(ctx, client, generic.Person{ID: "p1", DisplayName: "Ana", Aliases: []string{"a"}, Active: true}))
	require.NoError(t, s.SaveHolidays(ctx, client, generic.Holiday{ID: "h1", CountryCode: "ES", Date: d("2025-03-19")}))

	require.NoError(t, s.ResetClient(ctx, client))

	people, err := s.ListPeople(ctx, client, generic.Page{Limit: 10})
	require.NoError(t, err)
	assert.Empty(t, people)
	holidays, err := s.ListHolidays(ctx, client, march(), generic.Page{Limit: 10})
	require.NoError(t, err)
	assert.Empty(t, holidays)
}

func TestLoader_BudgetSnapshotFromSQLite(t *testing.T) {
	ctx := context.Background()
	s := newStore(t)
	pid := generic.PersonID("p1")
	require.NoError(t, s.SavePeople(ctx, client, generic.Person{ID: pid, DisplayName: "Ana", Active: true}))
	require.NoError(t, s.SaveBudgetRoles(ctx, client,
		generic.BudgetRole{ID: "r1", Name: "Design", Year: 2025, PoolAmount: generic.Float(1200), Currency: "EUR", Active: true},
		generic.BudgetRole{ID: "r0", Name: "Old", Year: 2024, PoolAmount: generic.Float(1), Active: true},
	))
	require.NoError(t, s.SaveBudgetAssignments(ctx, client, generic.BudgetAssignment{ID: "a1", RoleID: "r1", PersonID: pid}))
	require.NoError(t, s.SaveSpend(ctx, client, generic.SpendRecord{ID: "s1", RoleID: "r1", PersonID: &pid, Amount: generic.Float(300), Date: d("2025-05-01")}))

	year := generic.PeriodConfig{FiscalYearStartMonth: 1}.FiscalYear(2025)
	snap, err := generic.NewLoader(s, 1).LoadBudget(ctx, client, 2025, year)
	require.NoError(t, err)
	require.Len(t, snap.Roles, 1)
	require.Len(t, snap.Assignments, 1)
	assert.Nil(t, snap.Assignments[0].Start)

	exec := budget.Execute(snap)
	require.Len(t, exec.People, 1)
	assert.Equal(t, "1200", exec.People[0].Plan.String())
	assert.Equal(t, "0.25", exec.People[0].Utilization.String())
}
