package route

import (
	"time"
)

type Frequency string

const (
	Daily   Frequency = "daily"
	Weekly  Frequency = "weekly"
	Monthly Frequency = "monthly"
	Yearly  Frequency = "yearly"
)

func (f Frequency) Valid() bool {
	switch f {
	case Daily, Weekly, Monthly, Yearly:
		return true
	}
	return false
}

// occurrence returns the start of the k-th occurrence of a series starting at
// start. Daily and weekly steps are fixed durations; monthly and yearly steps
// add calendar months to the original date and clamp to the end of the month.
func occurrence(start time.Time, f Frequency, k int) time.Time {
	switch f {
	case Daily:
		return start.Add(time.Duration(k) * 24 * time.Hour)
	case Weekly:
		return start.Add(time.Duration(k) * 7 * 24 * time.Hour)
	case Monthly:
		return addMonthsClamped(start, k)
	case Yearly:
		return addMonthsClamped(start, 12*k)
	}
	return start
}

// Offsets lists the shift of every occurrence relative to start, covering
// [start, start+1 year). A non-repeating schedule has the single offset 0.
func Offsets(start time.Time, repeating bool, f Frequency) []time.Duration {
	if !repeating {
		return []time.Duration{0}
	}

	end := start.AddDate(1, 0, 0)
	var offsets []time.Duration
	for k := 0; ; k++ {
		next := occurrence(start, f, k)
		if !next.Before(end) {
			break
		}
		offsets = append(offsets, next.Sub(start))
	}
	return offsets
}

func addMonthsClamped(t time.Time, months int) time.Time {
	y, m, d := t.Date()
	firstOfTarget := time.Date(y, m+time.Month(months), 1, 0, 0, 0, 0, t.Location())
	if last := daysIn(firstOfTarget.Year(), firstOfTarget.Month(), t.Location()); d > last {
		d = last
	}
	return time.Date(firstOfTarget.Year(), firstOfTarget.Month(), d,
		t.Hour(), t.Minute(), t.Second(), t.Nanosecond(), t.Location())
}

func daysIn(year int, month time.Month, loc *time.Location) int {
	return time.Date(year, month+1, 0, 0, 0, 0, 0, loc).Day()
}
