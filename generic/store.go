/*
store.go - Persistence interfaces consumed by the engine

PURPOSE:
  Defines the boundary between the pure engine and the hosted database.
  Reads are paged: every list method takes a Page and returns at most
  Page.Limit rows. FetchAll loops until a short page comes back.

KEY INTERFACES:
  Reader:           Tenant-scoped paged reads of every input collection
  AdjustmentWriter: Budget carryover writes (delete-then-insert per key)

REPLACE, NOT MERGE:
  ReplaceAdjustments deletes every row of the key and inserts the new batch.
  Callers must not expect merge semantics: saving [a] over [a, b] leaves [a].

IMPLEMENTATIONS:
  - store/sqlite/sqlite.go: SQLite with embedded migrations
  - generic/store/memory.go: In-memory for testing

SEE ALSO:
  - snapshot.go: Concurrent loader built on Reader
*/
package generic

import "context"

// DefaultPageSize matches the page size of the hosted database API.
const DefaultPageSize = 1000

// Page selects one slice of a result set.
type Page struct {
	Offset int
	Limit  int
}

// Reader fetches tenant rows one page at a time. Date-bounded collections
// return rows overlapping [period.Start, period.End].
type Reader interface {
	ListPeople(ctx context.Context, client ClientSlug, page Page) ([]Person, error)
	ListContracts(ctx context.Context, client ClientSlug, period Period, page Page) ([]Contract, error)
	ListHolidays(ctx context.Context, client ClientSlug, period Period, page Page) ([]Holiday, error)
	ListTimeOff(ctx context.Context, client ClientSlug, period Period, page Page) ([]TimeOff, error)
	ListEfforts(ctx context.Context, client ClientSlug, source SourceKind, period Period, page Page) ([]EffortRecord, error)
	ListBudgetRoles(ctx context.Context, client ClientSlug, year int, page Page) ([]BudgetRole, error)
	ListBudgetAssignments(ctx context.Context, client ClientSlug, period Period, page Page) ([]BudgetAssignment, error)
	ListSpend(ctx context.Context, client ClientSlug, period Period, page Page) ([]SpendRecord, error)
	ListAdjustments(ctx context.Context, client ClientSlug, toYear int, page Page) ([]BudgetAdjustment, error)
}

// AdjustmentWriter persists carryover rows. ReplaceAdjustments must be atomic:
// either the old rows are gone and the new ones present, or nothing changed.
type AdjustmentWriter interface {
	ReplaceAdjustments(ctx context.Context, client ClientSlug, key AdjustmentKey, rows []BudgetAdjustment) error
	AdjustmentsFor(ctx context.Context, client ClientSlug, key AdjustmentKey) ([]BudgetAdjustment, error)
}

// FetchAll pages through fetch until a page shorter than pageSize arrives.
func FetchAll[T any](ctx context.Context, pageSize int, fetch func(ctx context.Context, page Page) ([]T, error)) ([]T, error) {
	if pageSize <= 0 {
		pageSize = DefaultPageSize
	}
	var all []T
	for offset := 0; ; offset += pageSize {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		rows, err := fetch(ctx, Page{Offset: offset, Limit: pageSize})
		if err != nil {
			return nil, err
		}
		all = append(all, rows...)
		if len(rows) < pageSize {
			return all, nil
		}
	}
}
