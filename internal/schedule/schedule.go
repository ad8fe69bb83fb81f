// Package schedule computes expected completion estimates using
// business-day arithmetic. A business day is a calendar day that is not a
// Saturday or Sunday; the lab commits to a fixed 5:00 PM completion time in
// its own time zone.
package schedule

import (
	"fmt"
	"time"

	"github.com/agrolab/sample-engine/internal/domain"
)

// CompletionHour is the lab-local hour of day every estimate lands on.
const CompletionHour = 17

// Turnaround in business days per status. Completed samples have no estimate.
var leadDaysByStatus = map[domain.Status]int{
	domain.StatusPending:    3,
	domain.StatusProcessing: 1,
	domain.StatusPartial:    1,
}

// Estimate is the forward-looking completion date for a sample.
type Estimate struct {
	Date    time.Time
	Weekday time.Weekday
}

// Estimator turns sample state into completion estimates. The clock is
// injectable so estimates and relative ages are testable against fixed dates.
type Estimator struct {
	loc *time.Location
	now func() time.Time
}

func NewEstimator(loc *time.Location, nowFn func() time.Time) *Estimator {
	if loc == nil {
		loc = time.Local
	}
	if nowFn == nil {
		nowFn = time.Now
	}
	return &Estimator{loc: loc, now: nowFn}
}

// ExpectedCompletion returns the estimated completion for a sample, or nil
// for completed samples. The walk advances one calendar day at a time and
// only counts weekdays, so any number of weekends inside the window is
// skipped; a weekend start date is not normalized before the walk.
func (e *Estimator) ExpectedCompletion(status domain.Status, createdAt time.Time) (*Estimate, error) {
	if !status.IsValid() {
		return nil, fmt.Errorf("%w: invalid status %q", domain.ErrValidation, status)
	}
	if status == domain.StatusCompleted {
		return nil, nil
	}

	remaining := leadDaysByStatus[status]
	day := createdAt.In(e.loc)
	for remaining > 0 {
		day = day.AddDate(0, 0, 1)
		if wd := day.Weekday(); wd != time.Saturday && wd != time.Sunday {
			remaining--
		}
	}

	date := time.Date(day.Year(), day.Month(), day.Day(), CompletionHour, 0, 0, 0, e.loc)
	return &Estimate{Date: date, Weekday: date.Weekday()}, nil
}

// RelativeAge renders a timestamp relative to the injected clock, e.g.
// "3 hours ago" or "12 days ago".
func (e *Estimator) RelativeAge(t time.Time) string {
	elapsed := e.now().Sub(t)
	switch {
	case elapsed < time.Minute:
		return "just now"
	case elapsed < time.Hour:
		return plural(int(elapsed.Minutes()), "minute")
	case elapsed < 24*time.Hour:
		return plural(int(elapsed.Hours()), "hour")
	default:
		return plural(int(elapsed.Hours()/24), "day")
	}
}

func plural(n int, unit string) string {
	if n == 1 {
		return fmt.Sprintf("1 %s ago", unit)
	}
	return fmt.Sprintf("%d %ss ago", n, unit)
}
