package timeoff_test

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/warp/capacity-engine/generic"
	"github.com/warp/capacity-engine/timeoff"
)

// =============================================================================
// TEST SETUP
// =============================================================================

var d = generic.MustDate

func dec(s string) decimal.Decimal { return decimal.RequireFromString(s) }

func march2025() generic.Period {
	return generic.Period{Start: d("2025-03-01"), End: d("2025-03-31")}
}

func off(person string, kind generic.TimeOffKind, start, end string, startFrac, endFrac *float64) generic.TimeOff {
	return generic.TimeOff{
		ID:               person + "-" + start,
		PersonID:         generic.PersonID(person),
		Kind:             kind,
		Start:            d(start),
		End:              d(end),
		StartDayFraction: startFrac,
		EndDayFraction:   endFrac,
	}
}

// =============================================================================
// BOUNDARY FRACTIONS
// =============================================================================

func TestDailyOffFraction_SingleDayUsesStartFraction(t *testing.T) {
	acc := timeoff.NewAccumulator([]generic.TimeOff{
		off("p1", generic.TimeOffVacation, "2025-03-10", "2025-03-10", generic.Float(0.5), generic.Float(1)),
	}, march2025())

	f := acc.DailyOffFraction("p1", d("2025-03-10"))

	assert.True(t, dec("0.5").Equal(f.Vacation), "got %s", f.Vacation)
	assert.True(t, f.Sick.IsZero())
}

func TestDailyOffFraction_MultiDayBoundaries(t *testing.T) {
	// GIVEN: Mon afternoon to Wed morning off
	acc := timeoff.NewAccumulator([]generic.TimeOff{
		off("p1", generic.TimeOffVacation, "2025-03-10", "2025-03-12", generic.Float(0.5), generic.Float(0.5)),
	}, march2025())

	// THEN: half, full, half
	assert.True(t, dec("0.5").Equal(acc.DailyOffFraction("p1", d("2025-03-10")).Vacation))
	assert.True(t, dec("1").Equal(acc.DailyOffFraction("p1", d("2025-03-11")).Vacation))
	assert.True(t, dec("0.5").Equal(acc.DailyOffFraction("p1", d("2025-03-12")).Vacation))
	assert.True(t, acc.DailyOffFraction("p1", d("2025-03-13")).Total().IsZero())
}

func TestNormalizeFraction_UnsupportedValuesBecomeFullDay(t *testing.T) {
	for _, v := range []*float64{nil, generic.Float(0.25), generic.Float(0), generic.Float(2), generic.Float(1)} {
		assert.True(t, dec("1").Equal(timeoff.NormalizeFraction(v)))
	}
	assert.True(t, dec("0.5").Equal(timeoff.NormalizeFraction(generic.Float(0.5))))
}

// =============================================================================
// OVERLAPS AND CAPPING
// =============================================================================

func TestDailyOffFraction_OverlapsSumUncappedButAvailabilityCaps(t *testing.T) {
	// GIVEN: a full vacation day and a half sick day on the same date
	acc := timeoff.NewAccumulator([]generic.TimeOff{
		off("p1", generic.TimeOffVacation, "2025-03-10", "2025-03-10", nil, nil),
		off("p1", generic.TimeOffSick, "2025-03-10", "2025-03-10", generic.Float(0.5), nil),
	}, march2025())

	f := acc.DailyOffFraction("p1", d("2025-03-10"))

	// THEN: the raw breakdown shows 1.5 days
	assert.True(t, dec("1.5").Equal(f.Total()))
	// And availability never goes below zero
	assert.True(t, dec("1").Equal(f.Capped()))
	assert.True(t, acc.AvailableFraction("p1", d("2025-03-10")).IsZero())
}

func TestDailyOffFraction_OtherKindAndUnknownKind(t *testing.T) {
	acc := timeoff.NewAccumulator([]generic.TimeOff{
		off("p1", generic.TimeOffOther, "2025-03-10", "2025-03-10", nil, nil),
		off("p1", generic.TimeOffKind("training"), "2025-03-11", "2025-03-11", nil, nil),
	}, march2025())

	assert.True(t, dec("1").Equal(acc.DailyOffFraction("p1", d("2025-03-10")).Other))
	assert.True(t, dec("1").Equal(acc.DailyOffFraction("p1", d("2025-03-11")).Other))
}

func TestAccumulator_IgnoresInvertedAndOutOfWindowRecords(t *testing.T) {
	acc := timeoff.NewAccumulator([]generic.TimeOff{
		off("p1", generic.TimeOffVacation, "2025-03-12", "2025-03-10", nil, nil),
		off("p1", generic.TimeOffVacation, "2025-05-01", "2025-05-02", nil, nil),
	}, march2025())

	assert.True(t, acc.DailyOffFraction("p1", d("2025-03-11")).Total().IsZero())
	assert.True(t, acc.DailyOffFraction("p1", d("2025-05-01")).Total().IsZero())
}

func TestAccumulator_RecordCrossingWindowKeepsBoundaryFractions(t *testing.T) {
	// The record starts before the window; its first in-window day is an
	// interior day and counts as full.
	window := generic.Period{Start: d("2025-03-03"), End: d("2025-03-07")}
	acc := timeoff.NewAccumulator([]generic.TimeOff{
		off("p1", generic.TimeOffVacation, "2025-02-27", "2025-03-04", generic.Float(0.5), generic.Float(0.5)),
	}, window)

	assert.True(t, dec("1").Equal(acc.DailyOffFraction("p1", d("2025-03-03")).Vacation))
	assert.True(t, dec("0.5").Equal(acc.DailyOffFraction("p1", d("2025-03-04")).Vacation))
}

// =============================================================================
// SUMMARY
// =============================================================================

func TestSummarize_CountsWorkingDaysAndRemainingVacation(t *testing.T) {
	// GIVEN: vacation Fri 7 to Mon 10 March (weekend inside) and a sick half day
	acc := timeoff.NewAccumulator([]generic.TimeOff{
		off("p1", generic.TimeOffVacation, "2025-03-07", "2025-03-10", nil, nil),
		off("p1", generic.TimeOffSick, "2025-03-12", "2025-03-12", generic.Float(0.5), nil),
	}, march2025())

	s := acc.Summarize("p1", march2025(), march2025(), func(tp generic.TimePoint) bool { return tp.IsWorkday() }, generic.Float(23))

	assert.True(t, dec("2").Equal(s.Vacation), "got %s", s.Vacation)
	assert.True(t, dec("0.5").Equal(s.Sick))
	require.NotNil(t, s.VacationRemaining)
	assert.True(t, dec("21").Equal(*s.VacationRemaining))
}

func TestSummarize_NoEntitlement(t *testing.T) {
	acc := timeoff.NewAccumulator(nil, march2025())

	s := acc.Summarize("p1", march2025(), march2025(), nil, nil)

	assert.Nil(t, s.VacationEntitlement)
	assert.Nil(t, s.VacationRemaining)
	assert.True(t, s.Vacation.IsZero())
}

func TestSummarize_RemainingCountsWholeEntitlementYear(t *testing.T) {
	// GIVEN: ten vacation days in February and a 22 day entitlement
	year := generic.Period{Start: d("2025-01-01"), End: d("2025-12-31")}
	acc := timeoff.NewAccumulator([]generic.TimeOff{
		off("p1", generic.TimeOffVacation, "2025-02-03", "2025-02-14", nil, nil),
	}, year)
	workday := func(tp generic.TimePoint) bool { return tp.IsWorkday() }

	// WHEN: March is summarized
	s := acc.Summarize("p1", march2025(), year, workday, generic.Float(22))

	// THEN: March has no vacation but February's days are still deducted
	assert.True(t, s.Vacation.IsZero())
	require.NotNil(t, s.VacationRemaining)
	assert.True(t, dec("12").Equal(*s.VacationRemaining), "got %s", s.VacationRemaining)
}
