package calendar

import (
	"time"
)

// Market hours and fixed holidays for the Indian session. The timezone
// is fixed: every date-bearing operation in the engine resolves
// "today" here, not in server-local time.
const timezoneName = "Asia/Kolkata"

var istLocation *time.Location

func init() {
	loc, err := time.LoadLocation(timezoneName)
	if err != nil {
		// Fixed offset fallback. IST has no daylight saving.
		loc = time.FixedZone("IST", 5*3600+1800)
	}
	istLocation = loc
}

// Location returns the trading-calendar timezone.
func Location() *time.Location {
	return istLocation
}

// Now returns the current wall-clock time in the trading timezone.
func Now() time.Time {
	return time.Now().In(istLocation)
}

// Today returns midnight of the current trading-calendar date.
func Today() time.Time {
	return Midnight(Now())
}

// Midnight truncates t to its date in the trading timezone.
func Midnight(t time.Time) time.Time {
	t = t.In(istLocation)
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, istLocation)
}

type holiday struct {
	month time.Month
	day   int
}

// Fixed-date market holidays. Movable holidays are not modelled; they
// surface as days with no data rather than incorrect trades.
var fixedHolidays = []holiday{
	{time.January, 26},  // Republic Day
	{time.August, 15},   // Independence Day
	{time.October, 2},   // Gandhi Jayanti
	{time.December, 25}, // Christmas
}

// IsTradingDay reports whether t falls on a weekday that is not a
// fixed holiday.
func IsTradingDay(t time.Time) bool {
	t = t.In(istLocation)
	switch t.Weekday() {
	case time.Saturday, time.Sunday:
		return false
	}
	for _, h := range fixedHolidays {
		if t.Month() == h.month && t.Day() == h.day {
			return false
		}
	}
	return true
}

// NextTradingDay returns the first trading day strictly after t.
func NextTradingDay(t time.Time) time.Time {
	day := Midnight(t).AddDate(0, 0, 1)
	for !IsTradingDay(day) {
		day = day.AddDate(0, 0, 1)
	}
	return day
}
