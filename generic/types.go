/*
Package generic provides the core types shared by every engine component.

PURPOSE:
  The capacity engine is a set of pure computations over rows that were
  already fetched from storage. This package holds the row shapes, the date
  and period primitives, decimal amounts, and the read interface the
  snapshot loader uses to fetch them.

KEY CONCEPTS IN THIS FILE (types.go):
  - Person / Contract / TimeOff / Holiday: capacity inputs
  - EffortRecord: polymorphic workload input (five source kinds)
  - BudgetRole / BudgetAssignment / SpendRecord / BudgetAdjustment: budget inputs

DESIGN PRINCIPLES:
  1. Immutability: inputs are never mutated by a computation pass
  2. Precision: decimal.Decimal for every hour and money figure
  3. Coercion: missing or non-finite numbers become zero, never an error

SEE ALSO:
  - time.go: TimePoint
  - period.go: Period and fiscal years
  - store.go: Reader interface and paged fetch
*/
package generic

import (
	"math"

	"github.com/shopspring/decimal"
)

// Round2 rounds half away from zero to two places and converts to float64.
func Round2(d decimal.Decimal) float64 {
	f, _ := d.Round(2).Float64()
	return f
}

// =============================================================================
// NUMERIC COERCION
// =============================================================================

// Coerce turns a nullable stored number into a decimal. Nil, NaN, and
// infinities become zero.
func Coerce(v *float64) decimal.Decimal {
	if v == nil || math.IsNaN(*v) || math.IsInf(*v, 0) {
		return decimal.Zero
	}
	return decimal.NewFromFloat(*v)
}

// CoerceNonNegative is Coerce with negatives also mapped to zero.
func CoerceNonNegative(v *float64) decimal.Decimal {
	d := Coerce(v)
	if d.IsNegative() {
		return decimal.Zero
	}
	return d
}

// Float is a helper to take the address of a literal.
func Float(v float64) *float64 { return &v }

// =============================================================================
// IDENTIFIERS
// =============================================================================

type PersonID string
type RoleID string

// ClientSlug scopes every stored row to one tenant.
type ClientSlug string

// =============================================================================
// PEOPLE AND CONTRACTS
// =============================================================================

// Person is a canonical human identity. The engine reads it, never writes it.
type Person struct {
	ID          PersonID
	DisplayName string
	Email       string
	// UserEmail is the login email of the linked auth account, if any.
	UserEmail string
	Aliases   []string
	Active    bool
	// InTeamCapacity controls whether the person counts in team-level sums.
	InTeamCapacity bool
}

// Contract is a person's working arrangement over a span of time.
type Contract struct {
	ID           string
	PersonID     PersonID
	WeeklyHours  *float64
	CountryCode  string
	VacationDays *float64
	Start        TimePoint
	End          *TimePoint // nil = open-ended
}

// Span returns the contract's range, with an open end filled from fallback.
func (c Contract) Span(fallback Period) Period {
	start := c.Start
	return OpenRange(&start, c.End, fallback)
}

// Holiday marks a non-working day for everyone on a country calendar.
type Holiday struct {
	ID          string
	CountryCode string
	Date        TimePoint
	Name        string
}

// =============================================================================
// TIME OFF
// =============================================================================

type TimeOffKind string

const (
	TimeOffVacation TimeOffKind = "vacation"
	TimeOffSick     TimeOffKind = "sick"
	TimeOffOther    TimeOffKind = "other"
)

// TimeOff is a per-person date range. Fractions apply to the boundary days
// only; interior days are always full days.
type TimeOff struct {
	ID               string
	PersonID         PersonID
	Kind             TimeOffKind
	Start            TimePoint
	End              TimePoint
	StartDayFraction *float64
	EndDayFraction   *float64
}

// =============================================================================
// EFFORT RECORDS
// =============================================================================

// SourceKind names the table an effort record came from.
type SourceKind string

const (
	SourceContribution SourceKind = "contribution"
	SourceManualEffort SourceKind = "manual_effort"
	SourceStrategy     SourceKind = "strategy_effort"
	SourceCampaignUnit SourceKind = "campaign_unit"
	SourceWorklog      SourceKind = "worklog"
)

// SourceKinds lists every source in reporting order.
var SourceKinds = []SourceKind{
	SourceContribution,
	SourceManualEffort,
	SourceStrategy,
	SourceCampaignUnit,
	SourceWorklog,
}

// EffortRecord is one unit of recorded work. Contributions carry WorkHours
// and an optional PrepHours; every other kind carries Hours directly.
type EffortRecord struct {
	ID        string
	Source    SourceKind
	PersonID  *PersonID
	OwnerText string
	Hours     *float64
	WorkHours *float64
	PrepHours *float64
	Date      *TimePoint
}

// =============================================================================
// BUDGET
// =============================================================================

// BudgetRole is a named pool of money for one fiscal year.
type BudgetRole struct {
	ID         RoleID
	Name       string
	Year       int
	PoolAmount *float64
	Currency   string
	Active     bool
	SortOrder  int
}

// BudgetAssignment records that a person draws from a role during a span.
type BudgetAssignment struct {
	ID       string
	RoleID   RoleID
	PersonID PersonID
	Start    *TimePoint
	End      *TimePoint
}

// SpendRecord is actual money spent against a role.
type SpendRecord struct {
	ID        string
	RoleID    RoleID
	PersonID  *PersonID
	OwnerText string
	Amount    *float64
	Date      TimePoint
}

type AdjustmentType string

const (
	AdjustmentCarryover   AdjustmentType = "carryover"
	AdjustmentRollForward AdjustmentType = "roll_forward"
	AdjustmentManual      AdjustmentType = "manual"
)

// BudgetAdjustment moves pool money from one fiscal year into another.
type BudgetAdjustment struct {
	ID       string
	RoleID   RoleID
	FromYear int
	ToYear   int
	Type     AdjustmentType
	Amount   decimal.Decimal
	Note     string
}

// AdjustmentKey groups the rows a carryover save replaces wholesale.
type AdjustmentKey struct {
	RoleID   RoleID
	FromYear int
	ToYear   int
	Type     AdjustmentType
}

func (a BudgetAdjustment) Key() AdjustmentKey {
	return AdjustmentKey{RoleID: a.RoleID, FromYear: a.FromYear, ToYear: a.ToYear, Type: a.Type}
}
