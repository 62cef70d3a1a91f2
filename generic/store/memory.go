// Package store provides Store implementations.
package store

import (
	"context"
	"sort"
	"sync"

	"github.com/warp/capacity-engine/generic"
)

// =============================================================================
// MEMORY STORE - In-memory implementation (for testing/dev)
// =============================================================================

// Memory implements generic.Reader and generic.AdjustmentWriter over slices.
// Reads honour paging so FetchAll loops behave as they do against a database.
type Memory struct {
	mu      sync.RWMutex
	tenants map[generic.ClientSlug]*tenant
}

type tenant struct {
	people      []generic.Person
	contracts   []generic.Contract
	holidays    []generic.Holiday
	timeOff     []generic.TimeOff
	efforts     []generic.EffortRecord
	roles       []generic.BudgetRole
	assignments []generic.BudgetAssignment
	spend       []generic.SpendRecord
	adjustments []generic.BudgetAdjustment
}

func NewMemory() *Memory {
	return &Memory{tenants: make(map[generic.ClientSlug]*tenant)}
}

// view returns the tenant for reads without creating it.
func (m *Memory) view(client generic.ClientSlug) *tenant {
	if t, ok := m.tenants[client]; ok {
		return t
	}
	return &tenant{}
}

func (m *Memory) tenant(client generic.ClientSlug) *tenant {
	t, ok := m.tenants[client]
	if !ok {
		t = &tenant{}
		m.tenants[client] = t
	}
	return t
}

// =============================================================================
// SEEDING
// =============================================================================

func (m *Memory) AddPeople(client generic.ClientSlug, people ...generic.Person) {
	m.mu.Lock()
	defer m.mu.Unlock()
	t := m.tenant(client)
	t.people = append(t.people, people...)
}

func (m *Memory) AddContracts(client generic.ClientSlug, contracts ...generic.Contract) {
	m.mu.Lock()
	defer m.mu.Unlock()
	t := m.tenant(client)
	t.contracts = append(t.contracts, contracts...)
}

func (m *Memory) AddHolidays(client generic.ClientSlug, holidays ...generic.Holiday) {
	m.mu.Lock()
	defer m.mu.Unlock()
	t := m.tenant(client)
	t.holidays = append(t.holidays, holidays...)
}

func (m *Memory) AddTimeOff(client generic.ClientSlug, records ...generic.TimeOff) {
	m.mu.Lock()
	defer m.mu.Unlock()
	t := m.tenant(client)
	t.timeOff = append(t.timeOff, records...)
}

func (m *Memory) AddEfforts(client generic.ClientSlug, records ...generic.EffortRecord) {
	m.mu.Lock()
	defer m.mu.Unlock()
	t := m.tenant(client)
	t.efforts = append(t.efforts, records...)
}

func (m *Memory) AddBudgetRoles(client generic.ClientSlug, roles ...generic.BudgetRole) {
	m.mu.Lock()
	defer m.mu.Unlock()
	t := m.tenant(client)
	t.roles = append(t.roles, roles...)
}

func (m *Memory) AddBudgetAssignments(client generic.ClientSlug, assignments ...generic.BudgetAssignment) {
	m.mu.Lock()
	defer m.mu.Unlock()
	t := m.tenant(client)
	t.assignments = append(t.assignments, assignments...)
}

func (m *Memory) AddSpend(client generic.ClientSlug, records ...generic.SpendRecord) {
	m.mu.Lock()
	defer m.mu.Unlock()
	t := m.tenant(client)
	t.spend = append(t.spend, records...)
}

// =============================================================================
// READER
// =============================================================================

func (m *Memory) ListPeople(_ context.Context, client generic.ClientSlug, page generic.Page) ([]generic.Person, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return paginate(m.view(client).people, nil, page), nil
}

func (m *Memory) ListContracts(_ context.Context, client generic.ClientSlug, period generic.Period, page generic.Page) ([]generic.Contract, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return paginate(m.view(client).contracts, func(c generic.Contract) bool {
		return c.Span(period).Overlaps(period)
	}, page), nil
}

func (m *Memory) ListHolidays(_ context.Context, client generic.ClientSlug, period generic.Period, page generic.Page) ([]generic.Holiday, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return paginate(m.view(client).holidays, func(h generic.Holiday) bool {
		return period.Contains(h.Date)
	}, page), nil
}

func (m *Memory) ListTimeOff(_ context.Context, client generic.ClientSlug, period generic.Period, page generic.Page) ([]generic.TimeOff, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return paginate(m.view(client).timeOff, func(t generic.TimeOff) bool {
		return generic.Period{Start: t.Start, End: t.End}.Overlaps(period)
	}, page), nil
}

func (m *Memory) ListEfforts(_ context.Context, client generic.ClientSlug, source generic.SourceKind, period generic.Period, page generic.Page) ([]generic.EffortRecord, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return paginate(m.view(client).efforts, func(e generic.EffortRecord) bool {
		return e.Source == source && (e.Date == nil || period.Contains(*e.Date))
	}, page), nil
}

func (m *Memory) ListBudgetRoles(_ context.Context, client generic.ClientSlug, year int, page generic.Page) ([]generic.BudgetRole, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return paginate(m.view(client).roles, func(r generic.BudgetRole) bool {
		return r.Year == year
	}, page), nil
}

func (m *Memory) ListBudgetAssignments(_ context.Context, client generic.ClientSlug, period generic.Period, page generic.Page) ([]generic.BudgetAssignment, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return paginate(m.view(client).assignments, func(a generic.BudgetAssignment) bool {
		return generic.OpenRange(a.Start, a.End, period).Overlaps(period)
	}, page), nil
}

func (m *Memory) ListSpend(_ context.Context, client generic.ClientSlug, period generic.Period, page generic.Page) ([]generic.SpendRecord, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return paginate(m.view(client).spend, func(s generic.SpendRecord) bool {
		return period.Contains(s.Date)
	}, page), nil
}

func (m *Memory) ListAdjustments(_ context.Context, client generic.ClientSlug, toYear int, page generic.Page) ([]generic.BudgetAdjustment, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return paginate(m.view(client).adjustments, func(a generic.BudgetAdjustment) bool {
		return a.ToYear == toYear
	}, page), nil
}

// =============================================================================
// ADJUSTMENT WRITER
// =============================================================================

// ReplaceAdjustments drops every row of key, then appends rows.
func (m *Memory) ReplaceAdjustments(_ context.Context, client generic.ClientSlug, key generic.AdjustmentKey, rows []generic.BudgetAdjustment) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	t := m.tenant(client)
	kept := t.adjustments[:0:0]
	for _, a := range t.adjustments {
		if a.Key() != key {
			kept = append(kept, a)
		}
	}
	t.adjustments = append(kept, rows...)
	return nil
}

func (m *Memory) AdjustmentsFor(_ context.Context, client generic.ClientSlug, key generic.AdjustmentKey) ([]generic.BudgetAdjustment, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	var result []generic.BudgetAdjustment
	for _, a := range m.view(client).adjustments {
		if a.Key() == key {
			result = append(result, a)
		}
	}
	sort.Slice(result, func(i, j int) bool { return result[i].ID < result[j].ID })
	return result, nil
}

func paginate[T any](rows []T, keep func(T) bool, page generic.Page) []T {
	var filtered []T
	for _, r := range rows {
		if keep == nil || keep(r) {
			filtered = append(filtered, r)
		}
	}
	if page.Offset >= len(filtered) {
		return nil
	}
	end := len(filtered)
	if page.Limit > 0 && page.Offset+page.Limit < end {
		end = page.Offset + page.Limit
	}
	out := make([]T, end-page.Offset)
	copy(out, filtered[page.Offset:end])
	return out
}
