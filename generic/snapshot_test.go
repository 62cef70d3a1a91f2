package generic_test

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/warp/capacity-engine/generic"
	"github.com/warp/capacity-engine/generic/store"
)

var d = generic.MustDate

// failingReader fails ListContracts once every other capacity list call is
// parked, and records the error each parked call returned.
type failingReader struct {
	*store.Memory

	started sync.WaitGroup
	mu      sync.Mutex
	seen    map[string]error
}

var errBackend = errors.New("backend unavailable")

func (r *failingReader) wait(ctx context.Context, name string) error {
	r.started.Done()
	var err error
	select {
	case <-ctx.Done():
		err = ctx.Err()
	case <-time.After(2 * time.Second):
		err = errors.New("never cancelled")
	}
	r.mu.Lock()
	r.seen[name] = err
	r.mu.Unlock()
	return err
}

func (r *failingReader) ListPeople(ctx context.Context, _ generic.ClientSlug, _ generic.Page) ([]generic.Person, error) {
	return nil, r.wait(ctx, "people")
}

func (r *failingReader) ListContracts(context.Context, generic.ClientSlug, generic.Period, generic.Page) ([]generic.Contract, error) {
	r.started.Wait()
	return nil, errBackend
}

func (r *failingReader) ListHolidays(ctx context.Context, _ generic.ClientSlug, _ generic.Period, _ generic.Page) ([]generic.Holiday, error) {
	return nil, r.wait(ctx, "holidays")
}

func (r *failingReader) ListTimeOff(ctx context.Context, _ generic.ClientSlug, _ generic.Period, _ generic.Page) ([]generic.TimeOff, error) {
	return nil, r.wait(ctx, "time_off")
}

func (r *failingReader) ListEfforts(ctx context.Context, _ generic.ClientSlug, source generic.SourceKind, _ generic.Period, _ generic.Page) ([]generic.EffortRecord, error) {
	return nil, r.wait(ctx, string(source))
}

func TestLoadCapacity_FailureCancelsOtherFetches(t *testing.T) {
	// GIVEN: a reader whose contracts call fails while the rest block
	reader := &failingReader{Memory: store.NewMemory(), seen: make(map[string]error)}
	reader.started.Add(3 + len(generic.SourceKinds))
	loader := generic.NewLoader(reader, 10)
	period := generic.Period{Start: d("2025-03-01"), End: d("2025-03-31")}

	// WHEN: the capacity snapshot is loaded
	snap, err := loader.LoadCapacity(context.Background(), "acme", period)

	// THEN: the error names the collection and every other fetch was cancelled
	require.Error(t, err)
	assert.Nil(t, snap)
	assert.ErrorIs(t, err, errBackend)
	assert.Contains(t, err.Error(), "load contracts")

	reader.mu.Lock()
	defer reader.mu.Unlock()
	assert.Len(t, reader.seen, 3+len(generic.SourceKinds))
	for name, seen := range reader.seen {
		assert.ErrorIs(t, seen, context.Canceled, name)
	}
}

func TestLoadCapacity_TimeOffCoversEntitlementYear(t *testing.T) {
	// GIVEN: vacation in February and a fiscal year starting in April
	mem := store.NewMemory()
	mem.AddTimeOff("acme",
		generic.TimeOff{ID: "feb", PersonID: "p1", Kind: generic.TimeOffVacation, Start: d("2025-02-03"), End: d("2025-02-07")},
		generic.TimeOff{ID: "may", PersonID: "p1", Kind: generic.TimeOffVacation, Start: d("2025-05-05"), End: d("2025-05-06")},
	)
	loader := generic.NewLoader(mem, 10)
	loader.Periods = generic.PeriodConfig{FiscalYearStartMonth: time.April}

	// WHEN: March is loaded
	snap, err := loader.LoadCapacity(context.Background(), "acme", generic.Period{Start: d("2025-03-01"), End: d("2025-03-31")})
	require.NoError(t, err)

	// THEN: the entitlement year is Apr 2024 - Mar 2025, so only February is in
	assert.Equal(t, "2024-04-01", snap.EntitlementYear.Start.String())
	assert.Equal(t, "2025-03-31", snap.EntitlementYear.End.String())
	require.Len(t, snap.TimeOff, 1)
	assert.Equal(t, "feb", snap.TimeOff[0].ID)
	assert.Equal(t, "2024-04-01", snap.TimeOffWindow().Start.String())
}

func TestFetchAll_StopsOnShortPage(t *testing.T) {
	rows := []int{1, 2, 3, 4, 5}
	var calls int
	got, err := generic.FetchAll(context.Background(), 2, func(_ context.Context, p generic.Page) ([]int, error) {
		calls++
		end := min(p.Offset+p.Limit, len(rows))
		if p.Offset >= len(rows) {
			return nil, nil
		}
		return rows[p.Offset:end], nil
	})

	require.NoError(t, err)
	assert.Equal(t, rows, got)
	assert.Equal(t, 3, calls)
}
