package utils

import "time"

// Cutoff is the local time of day at which a business day starts.
type Cutoff struct {
	Hour   int
	Minute int
}

// BusinessDate maps ts to the midnight of its business day in ts's own
// location. A timestamp before the cutoff belongs to the previous day.
// The result is a date label: feed it to BusinessDayRange, not back into
// BusinessDate. Every instant in that range maps back to the same label.
func BusinessDate(ts time.Time, cutoffHour, cutoffMinute int) time.Time {
	day := time.Date(ts.Year(), ts.Month(), ts.Day(), 0, 0, 0, 0, ts.Location())
	cutoff := time.Date(ts.Year(), ts.Month(), ts.Day(), cutoffHour, cutoffMinute, 0, 0, ts.Location())
	if ts.Before(cutoff) {
		return day.AddDate(0, 0, -1)
	}
	return day
}

// BusinessDayRange returns [start, end) for the business day labelled date:
// start is the cutoff on date, end is the cutoff on the next calendar day.
// Only date's year, month and day are used.
func BusinessDayRange(date time.Time, cutoffHour, cutoffMinute int) (time.Time, time.Time) {
	start := time.Date(date.Year(), date.Month(), date.Day(), cutoffHour, cutoffMinute, 0, 0, date.Location())
	end := time.Date(date.Year(), date.Month(), date.Day()+1, cutoffHour, cutoffMinute, 0, 0, date.Location())
	return start, end
}

// BusinessDate is the Cutoff-bound form of the package function.
func (c Cutoff) BusinessDate(ts time.Time) time.Time {
	return BusinessDate(ts, c.Hour, c.Minute)
}

func (c Cutoff) Range(date time.Time) (time.Time, time.Time) {
	return BusinessDayRange(date, c.Hour, c.Minute)
}
