package generic

import (
	"context"
	"fmt"

	"golang.org/x/sync/errgroup"
)

// =============================================================================
// SNAPSHOT - All rows one computation pass needs
// =============================================================================

// CapacitySnapshot holds every row the team report reads for one tenant and
// period. Once loaded it is treated as immutable.
type CapacitySnapshot struct {
	Client ClientSlug
	Period Period
	// EntitlementYear is the fiscal year containing Period.End. TimeOff and
	// Holidays cover both ranges so remaining vacation sees the whole year.
	EntitlementYear Period
	People          []Person
	Contracts       []Contract
	Holidays        []Holiday
	TimeOff         []TimeOff
	Efforts         []EffortRecord
}

// TimeOffWindow is the union of Period and EntitlementYear.
func (s *CapacitySnapshot) TimeOffWindow() Period {
	if s.EntitlementYear.Start.IsZero() {
		return s.Period
	}
	return Period{Start: MinDate(s.Period.Start, s.EntitlementYear.Start), End: MaxDate(s.Period.End, s.EntitlementYear.End)}
}

// BudgetSnapshot holds the rows of one fiscal year's budget.
type BudgetSnapshot struct {
	Client      ClientSlug
	Year        int
	Period      Period
	People      []Person
	Roles       []BudgetRole
	Assignments []BudgetAssignment
	Spend       []SpendRecord
	Adjustments []BudgetAdjustment
}

// Loader fetches snapshots. Independent collections are fetched in parallel;
// the engine only needs all of them present before it starts.
type Loader struct {
	Reader   Reader
	PageSize int
	// Periods places the entitlement year; the zero value starts in January.
	Periods PeriodConfig
}

func NewLoader(r Reader, pageSize int) *Loader {
	return &Loader{Reader: r, PageSize: pageSize}
}

// LoadCapacity fetches people, contracts, holidays, time off and every
// effort source for the period. The first failure cancels the other fetches.
func (l *Loader) LoadCapacity(ctx context.Context, client ClientSlug, period Period) (*CapacitySnapshot, error) {
	snap := &CapacitySnapshot{
		Client:          client,
		Period:          period,
		EntitlementYear: l.Periods.FiscalYear(l.Periods.FiscalYearOf(period.End)),
	}
	wide := snap.TimeOffWindow()
	efforts := make([][]EffortRecord, len(SourceKinds))

	g, ctx := errgroup.WithContext(ctx)
	fetchInto(ctx, g, l.PageSize, "people", &snap.People, func(ctx context.Context, p Page) ([]Person, error) {
		return l.Reader.ListPeople(ctx, client, p)
	})
	fetchInto(ctx, g, l.PageSize, "contracts", &snap.Contracts, func(ctx context.Context, p Page) ([]Contract, error) {
		return l.Reader.ListContracts(ctx, client, period, p)
	})
	fetchInto(ctx, g, l.PageSize, "holidays", &snap.Holidays, func(ctx context.Context, p Page) ([]Holiday, error) {
		return l.Reader.ListHolidays(ctx, client, wide, p)
	})
	fetchInto(ctx, g, l.PageSize, "time_off", &snap.TimeOff, func(ctx context.Context, p Page) ([]TimeOff, error) {
		return l.Reader.ListTimeOff(ctx, client, wide, p)
	})
	for i, source := range SourceKinds {
		fetchInto(ctx, g, l.PageSize, string(source), &efforts[i], func(ctx context.Context, p Page) ([]EffortRecord, error) {
			return l.Reader.ListEfforts(ctx, client, source, period, p)
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	for _, rows := range efforts {
		snap.Efforts = append(snap.Efforts, rows...)
	}
	return snap, nil
}

// LoadBudget fetches the roles, assignments, spend and carried-in
// adjustments of one fiscal year.
func (l *Loader) LoadBudget(ctx context.Context, client ClientSlug, year int, period Period) (*BudgetSnapshot, error) {
	snap := &BudgetSnapshot{Client: client, Year: year, Period: period}

	g, ctx := errgroup.WithContext(ctx)
	fetchInto(ctx, g, l.PageSize, "people", &snap.People, func(ctx context.Context, p Page) ([]Person, error) {
		return l.Reader.ListPeople(ctx, client, p)
	})
	fetchInto(ctx, g, l.PageSize, "budget_roles", &snap.Roles, func(ctx context.Context, p Page) ([]BudgetRole, error) {
		return l.Reader.ListBudgetRoles(ctx, client, year, p)
	})
	fetchInto(ctx, g, l.PageSize, "budget_assignments", &snap.Assignments, func(ctx context.Context, p Page) ([]BudgetAssignment, error) {
		return l.Reader.ListBudgetAssignments(ctx, client, period, p)
	})
	fetchInto(ctx, g, l.PageSize, "budget_spend", &snap.Spend, func(ctx context.Context, p Page) ([]SpendRecord, error) {
		return l.Reader.ListSpend(ctx, client, period, p)
	})
	fetchInto(ctx, g, l.PageSize, "budget_adjustments", &snap.Adjustments, func(ctx context.Context, p Page) ([]BudgetAdjustment, error) {
		return l.Reader.ListAdjustments(ctx, client, year, p)
	})
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return snap, nil
}

// fetchInto pages one collection into dst on g. ctx must be the group's
// context so a failure elsewhere stops the paging.
func fetchInto[T any](ctx context.Context, g *errgroup.Group, pageSize int, name string, dst *[]T, fetch func(ctx context.Context, page Page) ([]T, error)) {
	g.Go(func() error {
		rows, err := FetchAll(ctx, pageSize, fetch)
		if err != nil {
			return fmt.Errorf("load %s: %w", name, err)
		}
		*dst = rows
		return nil
	})
}
