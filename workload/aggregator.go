// Package workload sums recorded effort into per-person and per-week hours.
//
// Every record is resolved to a person through the identity resolver.
// Records that do not resolve are never attributed to anyone: they add to
// the unmapped total and, when dated, to the external weekly series.
package workload

import (
	"github.com/shopspring/decimal"

	"github.com/warp/capacity-engine/calendar"
	"github.com/warp/capacity-engine/generic"
	"github.com/warp/capacity-engine/identity"
)

// DefaultPrepRatio is the prep time assumed for a data-quality contribution
// that carries no explicit prep hours, as a share of its work hours. It is a
// business heuristic and is configurable through Policy.
const DefaultPrepRatio = 0.35

// Policy holds the derivation constants for effort hours.
type Policy struct {
	PrepRatio decimal.Decimal
}

func DefaultPolicy() Policy {
	return Policy{PrepRatio: decimal.NewFromFloat(DefaultPrepRatio)}
}

// Hours derives the hours of one record. Contributions are work plus prep
// (prep defaults to PrepRatio * work); every other kind uses Hours as stored.
// Non-finite and negative inputs count as zero.
func (p Policy) Hours(rec generic.EffortRecord) decimal.Decimal {
	if rec.Source != generic.SourceContribution {
		return generic.CoerceNonNegative(rec.Hours)
	}
	work := generic.CoerceNonNegative(rec.WorkHours)
	prep := work.Mul(p.PrepRatio)
	if rec.PrepHours != nil {
		prep = generic.CoerceNonNegative(rec.PrepHours)
	}
	return work.Add(prep)
}

// =============================================================================
// RESULT
// =============================================================================

// Result is the output of one aggregation pass. It is built locally by
// Aggregate and owned by the caller.
type Result struct {
	Period generic.Period

	// Total is every valid hour that entered the pass.
	Total decimal.Decimal

	ByPerson     map[generic.PersonID]decimal.Decimal
	ByPersonWeek map[generic.PersonID]map[string]decimal.Decimal
	BySource     map[generic.SourceKind]decimal.Decimal

	// Unmapped hours have no resolvable owner. Only privileged viewers see
	// them, along with the per-owner breakdown and the external series.
	Unmapped        decimal.Decimal
	UnmappedByOwner map[string]decimal.Decimal
	External        map[string]decimal.Decimal

	// Dropped counts records with no positive hours or a date outside Period.
	Dropped int
}

func newResult(period generic.Period) *Result {
	return &Result{
		Period:          period,
		ByPerson:        make(map[generic.PersonID]decimal.Decimal),
		ByPersonWeek:    make(map[generic.PersonID]map[string]decimal.Decimal),
		BySource:        make(map[generic.SourceKind]decimal.Decimal),
		UnmappedByOwner: make(map[string]decimal.Decimal),
		External:        make(map[string]decimal.Decimal),
	}
}

func (r *Result) addPerson(id generic.PersonID, week string, hours decimal.Decimal) {
	r.ByPerson[id] = r.ByPerson[id].Add(hours)
	if week == "" {
		return
	}
	weeks := r.ByPersonWeek[id]
	if weeks == nil {
		weeks = make(map[string]decimal.Decimal)
		r.ByPersonWeek[id] = weeks
	}
	weeks[week] = weeks[week].Add(hours)
}

func (r *Result) addUnmapped(owner string, week string, hours decimal.Decimal) {
	r.Unmapped = r.Unmapped.Add(hours)
	r.UnmappedByOwner[owner] = r.UnmappedByOwner[owner].Add(hours)
	if week != "" {
		r.External[week] = r.External[week].Add(hours)
	}
}

// ForPeriod returns the workload hours of person.
func (r *Result) ForPeriod(person generic.PersonID) decimal.Decimal {
	return r.ByPerson[person]
}

// ByWeek returns the weekly workload of person, keyed by Monday date.
func (r *Result) ByWeek(person generic.PersonID) map[string]decimal.Decimal {
	out := make(map[string]decimal.Decimal, len(r.ByPersonWeek[person]))
	for k, v := range r.ByPersonWeek[person] {
		out[k] = v
	}
	return out
}

// TeamForPeriod sums workload over people accepted by include.
func (r *Result) TeamForPeriod(include func(generic.PersonID) bool) decimal.Decimal {
	total := decimal.Zero
	for id, hours := range r.ByPerson {
		if include(id) {
			total = total.Add(hours)
		}
	}
	return total
}

// TeamByWeek sums weekly workload over people accepted by include.
func (r *Result) TeamByWeek(include func(generic.PersonID) bool) map[string]decimal.Decimal {
	out := make(map[string]decimal.Decimal)
	for id, weeks := range r.ByPersonWeek {
		if !include(id) {
			continue
		}
		for k, v := range weeks {
			out[k] = out[k].Add(v)
		}
	}
	return out
}

// =============================================================================
// AGGREGATOR
// =============================================================================

// Aggregator resolves and sums effort records.
type Aggregator struct {
	Resolver *identity.Resolver
	Policy   Policy
}

func NewAggregator(resolver *identity.Resolver, policy Policy) *Aggregator {
	return &Aggregator{Resolver: resolver, Policy: policy}
}

// Aggregate runs one pass over records. Dated records outside period are
// dropped; undated records count toward period totals but no week.
func (a *Aggregator) Aggregate(records []generic.EffortRecord, period generic.Period) *Result {
	res := newResult(period)
	for _, rec := range records {
		hours := a.Policy.Hours(rec)
		if !hours.IsPositive() {
			res.Dropped++
			continue
		}
		week := ""
		if rec.Date != nil && !rec.Date.IsZero() {
			if !period.Contains(*rec.Date) {
				res.Dropped++
				continue
			}
			week = calendar.WeekKey(*rec.Date)
		}

		res.Total = res.Total.Add(hours)
		res.BySource[rec.Source] = res.BySource[rec.Source].Add(hours)

		if id, ok := a.Resolver.Resolve(rec.PersonID, rec.OwnerText); ok {
			res.addPerson(id, week, hours)
			continue
		}
		res.addUnmapped(unmappedOwner(rec), week, hours)
	}
	return res
}

func unmappedOwner(rec generic.EffortRecord) string {
	if key := identity.Normalize(rec.OwnerText); key != "" {
		return key
	}
	if rec.PersonID != nil && *rec.PersonID != "" {
		return string(*rec.PersonID)
	}
	return "(blank)"
}
