package repository

import "time"

// dayRange returns the half-open [midnight, next midnight) bounds of
// date's calendar day in its own location. Day filters compare against
// the bounds so they behave the same on date and timestamp columns.
func dayRange(date time.Time) (time.Time, time.Time) {
	start := time.Date(date.Year(), date.Month(), date.Day(), 0, 0, 0, 0, date.Location())
	return start, start.AddDate(0, 0, 1)
}
