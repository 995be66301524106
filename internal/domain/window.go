package domain

import "time"

// DateWindow is a closed-open UTC interval [Start, End).
type DateWindow struct {
	Start time.Time
	End   time.Time
}

// WindowEnding builds a window of the given number of days ending at midnight
// UTC of the day containing now.
func WindowEnding(now time.Time, days int) DateWindow {
	utc := now.UTC()
	end := time.Date(utc.Year(), utc.Month(), utc.Day(), 0, 0, 0, 0, time.UTC)
	return DateWindow{
		Start: end.AddDate(0, 0, -days),
		End:   end,
	}
}

// Contains reports whether Start <= t < End.
func (w DateWindow) Contains(t time.Time) bool {
	return !t.Before(w.Start) && t.Before(w.End)
}

// StartDate returns the start as an ISO calendar date.
func (w DateWindow) StartDate() string {
	return w.Start.Format("2006-01-02")
}

// EndDate returns the end as an ISO calendar date.
func (w DateWindow) EndDate() string {
	return w.End.Format("2006-01-02")
}
