// Package calendar computes working weekdays, Monday-to-Friday week buckets,
// and per-country holiday lookups.
package calendar

import (
	"strings"

	"github.com/warp/capacity-engine/generic"
)

// =============================================================================
// WEEKS
// =============================================================================

// Week is a Monday-start, Friday-end working week.
type Week struct {
	Start generic.TimePoint // Monday
	End   generic.TimePoint // Friday
}

// Key identifies the week by its Monday.
func (w Week) Key() string { return w.Start.Key() }

// Period returns the Monday..Friday range.
func (w Week) Period() generic.Period { return generic.Period{Start: w.Start, End: w.End} }

type WeekStatus string

const (
	WeekClosed  WeekStatus = "closed"
	WeekCurrent WeekStatus = "current"
	WeekFuture  WeekStatus = "future"
)

// WeekBucket is a week tagged relative to "today".
type WeekBucket struct {
	Week
	Status WeekStatus
}

// IsWorkday reports Monday to Friday.
func IsWorkday(date generic.TimePoint) bool { return date.IsWorkday() }

// WeekOf returns the working week containing date. Saturday and Sunday
// belong to the week that started on the preceding Monday.
func WeekOf(date generic.TimePoint) Week {
	offset := (int(date.Weekday()) + 6) % 7 // Monday=0 .. Sunday=6
	monday := date.AddDays(-offset)
	return Week{Start: monday, End: monday.AddDays(4)}
}

// WeekKey is WeekOf(date).Key().
func WeekKey(date generic.TimePoint) string { return WeekOf(date).Key() }

// StatusOf tags a week against today: closed once its Friday has passed,
// future while its Monday is still ahead, current otherwise.
func StatusOf(w Week, today generic.TimePoint) WeekStatus {
	switch {
	case w.End.Before(today):
		return WeekClosed
	case w.Start.After(today):
		return WeekFuture
	default:
		return WeekCurrent
	}
}

// EnumerateWorkweeks returns one bucket per ISO week that has at least one
// weekday inside rng, in chronological order.
func EnumerateWorkweeks(rng generic.Period, today generic.TimePoint) []WeekBucket {
	if !rng.Valid() {
		return nil
	}
	var buckets []WeekBucket
	for w := WeekOf(rng.Start); !w.Start.After(rng.End); w = WeekOf(w.Start.AddDays(7)) {
		if _, ok := w.Period().Clamp(rng); !ok {
			continue
		}
		buckets = append(buckets, WeekBucket{Week: w, Status: StatusOf(w, today)})
	}
	return buckets
}

// Workdays returns the weekdays of rng.
func Workdays(rng generic.Period) []generic.TimePoint {
	var days []generic.TimePoint
	for _, d := range rng.Days() {
		if d.IsWorkday() {
			days = append(days, d)
		}
	}
	return days
}

// =============================================================================
// HOLIDAYS
// =============================================================================

// HolidayCalendar provides holiday lookup functionality.
type HolidayCalendar interface {
	IsHoliday(countryCode string, date generic.TimePoint) bool
}

// HolidaySet is a HolidayCalendar over a fixed list of holidays.
type HolidaySet struct {
	days map[string]map[string]string
}

// NewHolidaySet indexes holidays by upper-cased country code.
func NewHolidaySet(holidays []generic.Holiday) *HolidaySet {
	hs := &HolidaySet{days: make(map[string]map[string]string)}
	for _, h := range holidays {
		code := normalizeCountry(h.CountryCode)
		if hs.days[code] == nil {
			hs.days[code] = make(map[string]string)
		}
		hs.days[code][h.Date.Key()] = h.Name
	}
	return hs
}

func (hs *HolidaySet) IsHoliday(countryCode string, date generic.TimePoint) bool {
	_, ok := hs.days[normalizeCountry(countryCode)][date.Key()]
	return ok
}

// Name returns the holiday name, if any.
func (hs *HolidaySet) Name(countryCode string, date generic.TimePoint) (string, bool) {
	name, ok := hs.days[normalizeCountry(countryCode)][date.Key()]
	return name, ok
}

// NoHolidays is a calendar without holidays.
type NoHolidays struct{}

func (NoHolidays) IsHoliday(string, generic.TimePoint) bool { return false }

func normalizeCountry(code string) string {
	return strings.ToUpper(strings.TrimSpace(code))
}
