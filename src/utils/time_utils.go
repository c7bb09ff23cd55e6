package utils

import "time"

// AlignToMinute truncates t to the start of its minute. Loop ticks are
// aligned so a rerun within the same minute lands on the same tick
// timestamp.
func AlignToMinute(t time.Time) time.Time {
	return t.Truncate(time.Minute)
}

// AlignToHour truncates t to the start of its hour.
func AlignToHour(t time.Time) time.Time {
	return t.Truncate(time.Hour)
}

// MinuteOfDay returns the minutes elapsed since midnight in t's own
// location. Session cutoffs like "15:20" compare on this scale.
func MinuteOfDay(t time.Time) int {
	return t.Hour()*60 + t.Minute()
}
