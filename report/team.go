/*
Package report assembles the team capacity view from a loaded snapshot.

PURPOSE:
  Wires the pure engines together for one request: identity resolution,
  holiday and time-off lookups, capacity, and workload. The output is what
  the API serializes.

VISIBILITY:
  - Inactive people are left out entirely.
  - People excluded from team capacity keep a personal row but never count
    toward team sums or the team weekly series.
  - Unmapped hours, the per-owner breakdown and the external weekly series
    are only filled in for privileged viewers.
*/
package report

import (
	"sort"

	"github.com/samber/lo"
	"github.com/shopspring/decimal"

	"github.com/warp/capacity-engine/calendar"
	"github.com/warp/capacity-engine/capacity"
	"github.com/warp/capacity-engine/generic"
	"github.com/warp/capacity-engine/identity"
	"github.com/warp/capacity-engine/timeoff"
	"github.com/warp/capacity-engine/workload"
)

// Options controls one report build.
type Options struct {
	Privileged bool
	Capacity   capacity.Policy
	Workload   workload.Policy
}

func DefaultOptions() Options {
	return Options{Capacity: capacity.DefaultPolicy(), Workload: workload.DefaultPolicy()}
}

// =============================================================================
// OUTPUT
// =============================================================================

// WeekRow is one week of a capacity/workload series.
type WeekRow struct {
	calendar.WeekBucket
	Capacity decimal.Decimal
	Workload decimal.Decimal
	// External is nil for non-privileged viewers.
	External *decimal.Decimal
}

// PersonRow is one person's line in the team report.
type PersonRow struct {
	Person         generic.Person
	InTeamCapacity bool

	// Capacity is nil when the person has no contract for the period.
	Capacity    *decimal.Decimal
	Workload    decimal.Decimal
	Utilization *decimal.Decimal

	WorkingDays int
	HolidayDays int
	TimeOffDays decimal.Decimal
	TimeOff     timeoff.Summary

	Weeks []WeekRow
}

// Team is the team capacity report.
type Team struct {
	Client generic.ClientSlug
	Period generic.Period
	Today  generic.TimePoint

	People []PersonRow
	Weeks  []WeekRow

	Capacity    decimal.Decimal
	Workload    decimal.Decimal
	Utilization *decimal.Decimal

	// CurrentWeekPending is set when the period includes the week in
	// progress, whose workload is still being logged.
	CurrentWeekPending bool

	// Privileged only.
	Unmapped        *decimal.Decimal
	UnmappedByOwner map[string]decimal.Decimal
	BySource        map[generic.SourceKind]decimal.Decimal
}

// =============================================================================
// BUILD
// =============================================================================

type engines struct {
	year    generic.Period
	calc    *capacity.Calculator
	off     *timeoff.Accumulator
	work    *workload.Result
	buckets []calendar.WeekBucket
}

func newEngines(snap *generic.CapacitySnapshot, today generic.TimePoint, opts Options) *engines {
	off := timeoff.NewAccumulator(snap.TimeOff, snap.TimeOffWindow())
	calc := capacity.NewCalculator(opts.Capacity, snap.Contracts, calendar.NewHolidaySet(snap.Holidays), off)
	agg := workload.NewAggregator(identity.NewResolver(snap.People), opts.Workload)
	year := snap.EntitlementYear
	if year.Start.IsZero() {
		year = snap.Period
	}
	return &engines{
		year:    year,
		calc:    calc,
		off:     off,
		work:    agg.Aggregate(snap.Efforts, snap.Period),
		buckets: calendar.EnumerateWorkweeks(snap.Period, today),
	}
}

// BuildTeam computes the team report for the snapshot's period.
func BuildTeam(snap *generic.CapacitySnapshot, today generic.TimePoint, opts Options) *Team {
	e := newEngines(snap, today, opts)
	team := &Team{
		Client: snap.Client,
		Period: snap.Period,
		Today:  today,
		CurrentWeekPending: lo.ContainsBy(e.buckets, func(b calendar.WeekBucket) bool {
			return b.Status == calendar.WeekCurrent
		}),
	}

	active := lo.Filter(snap.People, func(p generic.Person, _ int) bool { return p.Active })
	sort.SliceStable(active, func(i, j int) bool { return active[i].DisplayName < active[j].DisplayName })

	included := make(map[generic.PersonID]bool)
	teamCapacityByWeek := make(map[string]decimal.Decimal)
	for _, p := range active {
		row, weeklyCapacity := e.personRow(p, snap.Period, opts)
		team.People = append(team.People, row)
		if !p.InTeamCapacity {
			continue
		}
		included[p.ID] = true
		if row.Capacity != nil {
			team.Capacity = team.Capacity.Add(*row.Capacity)
			for k, v := range weeklyCapacity {
				teamCapacityByWeek[k] = teamCapacityByWeek[k].Add(v)
			}
		}
	}

	include := func(id generic.PersonID) bool { return included[id] }
	team.Workload = e.work.TeamForPeriod(include)
	if u, ok := capacity.Utilization(team.Workload, team.Capacity, team.Capacity.IsPositive()); ok {
		team.Utilization = &u
	}

	var external map[string]decimal.Decimal
	if opts.Privileged {
		unmapped := e.work.Unmapped
		team.Unmapped = &unmapped
		team.UnmappedByOwner = e.work.UnmappedByOwner
		team.BySource = e.work.BySource
		external = e.work.External
	}
	team.Weeks = alignWeeks(e.buckets, teamCapacityByWeek, e.work.TeamByWeek(include), external)
	return team
}

// BuildPerson computes a single person's row. Inactive people are reported
// too, since a personal view may be opened from history.
func BuildPerson(snap *generic.CapacitySnapshot, id generic.PersonID, today generic.TimePoint, opts Options) (*PersonRow, error) {
	p, ok := lo.Find(snap.People, func(p generic.Person) bool { return p.ID == id })
	if !ok {
		return nil, generic.ErrPersonNotFound
	}
	e := newEngines(snap, today, opts)
	row, _ := e.personRow(p, snap.Period, opts)
	return &row, nil
}

func (e *engines) personRow(p generic.Person, period generic.Period, opts Options) (PersonRow, map[string]decimal.Decimal) {
	row := PersonRow{
		Person:         p,
		InTeamCapacity: p.InTeamCapacity,
		Workload:       e.work.ForPeriod(p.ID),
	}

	var entitlement *float64
	res, known := e.calc.Compute(p.ID, period)
	if known {
		hours := res.Hours
		row.Capacity = &hours
		row.WorkingDays = res.WorkingDays
		row.HolidayDays = res.HolidayDays
		row.TimeOffDays = res.TimeOffDays
		entitlement = res.Contract.VacationDays
	}
	if u, ok := capacity.Utilization(row.Workload, res.Hours, known); ok {
		row.Utilization = &u
	}
	row.TimeOff = e.off.Summarize(p.ID, period, e.year, e.calc.IsWorkingDay(p.ID, period), entitlement)
	row.Weeks = alignWeeks(e.buckets, res.ByWeek, e.work.ByWeek(p.ID), nil)
	return row, res.ByWeek
}

func alignWeeks(buckets []calendar.WeekBucket, capacityByWeek, workloadByWeek, external map[string]decimal.Decimal) []WeekRow {
	return lo.Map(buckets, func(b calendar.WeekBucket, _ int) WeekRow {
		row := WeekRow{WeekBucket: b, Capacity: capacityByWeek[b.Key()], Workload: workloadByWeek[b.Key()]}
		if external != nil {
			ext := external[b.Key()]
			row.External = &ext
		}
		return row
	})
}
