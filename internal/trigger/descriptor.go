package trigger

import (
	"fmt"
	"time"

	"github.com/flowcraft/corerun/internal/domain"
)

// Kind tags which calendar-recurrence shape a Descriptor carries.
type Kind string

const (
	KindEveryMinute Kind = "every_minute"
	KindEveryHour   Kind = "every_hour"
	KindEveryDay    Kind = "every_day"
	KindEveryMonth  Kind = "every_month"
	KindEveryYear   Kind = "every_year"
	KindInterval    Kind = "interval"
)

// Descriptor owns a calendar-recurrence rule. Only the fields relevant
// to Kind are consulted; this is the per-node capability the spec
// calls the "calendar-recurrence descriptor".
type Descriptor struct {
	Kind Kind

	Second int
	Minute int
	Hour   int
	Day    int
	Month  int

	Interval time.Duration
}

// maxScheduleLookahead bounds the skip-forward search for a calendar
// shape whose target day/month doesn't exist in the next candidate
// period (e.g. Feb 29), so a malformed descriptor fails fast instead
// of looping forever.
const maxScheduleLookahead = 400

// Validate checks descriptor field ranges, per spec §4.7 step 1.
func (d Descriptor) Validate() error {
	switch d.Kind {
	case KindEveryMinute:
		return validSecond(d.Second)
	case KindEveryHour:
		if err := validMinute(d.Minute); err != nil {
			return err
		}
		return validSecond(d.Second)
	case KindEveryDay:
		if err := validHour(d.Hour); err != nil {
			return err
		}
		if err := validMinute(d.Minute); err != nil {
			return err
		}
		return validSecond(d.Second)
	case KindEveryMonth:
		if d.Day < 1 || d.Day > 31 {
			return scheduleErr("day must be 1-31")
		}
		if err := validHour(d.Hour); err != nil {
			return err
		}
		if err := validMinute(d.Minute); err != nil {
			return err
		}
		return validSecond(d.Second)
	case KindEveryYear:
		if d.Month < 1 || d.Month > 12 {
			return scheduleErr("month must be 1-12")
		}
		if d.Day < 1 || d.Day > 31 {
			return scheduleErr("day must be 1-31")
		}
		if d.Day > maxDayInMonth(time.Month(d.Month)) {
			return scheduleErr(fmt.Sprintf("day %d does not exist in month %d", d.Day, d.Month))
		}
		if err := validHour(d.Hour); err != nil {
			return err
		}
		if err := validMinute(d.Minute); err != nil {
			return err
		}
		return validSecond(d.Second)
	case KindInterval:
		if d.Interval <= 0 || d.Interval >= 365*24*time.Hour {
			return scheduleErr("interval must be positive and less than one year")
		}
		return nil
	default:
		return scheduleErr(fmt.Sprintf("unknown schedule kind %q", d.Kind))
	}
}

func validSecond(s int) error {
	if s < 0 || s > 59 {
		return scheduleErr("second must be 0-59")
	}
	return nil
}

func validMinute(m int) error {
	if m < 0 || m > 59 {
		return scheduleErr("minute must be 0-59")
	}
	return nil
}

func validHour(h int) error {
	if h < 0 || h > 23 {
		return scheduleErr("hour must be 0-23")
	}
	return nil
}

// maxDayInMonth returns the largest day number month can ever have,
// across any year. February is credited 29 (a leap year) so
// every-year descriptors may target Feb 29 — nextEveryYear is
// responsible for skipping forward to the next leap year at runtime.
func maxDayInMonth(month time.Month) int {
	switch month {
	case time.April, time.June, time.September, time.November:
		return 30
	case time.February:
		return 29
	default:
		return 31
	}
}

func scheduleErr(msg string) error {
	return fmt.Errorf("%w: %s", domain.ErrScheduleInvalid, msg)
}

// NextExecutionTime returns the smallest instant strictly after now
// (in UTC) that matches the descriptor.
func (d Descriptor) NextExecutionTime(now time.Time) time.Time {
	now = now.UTC()
	switch d.Kind {
	case KindEveryMinute:
		return nextEveryMinute(now, d.Second)
	case KindEveryHour:
		return nextEveryHour(now, d.Minute, d.Second)
	case KindEveryDay:
		return nextEveryDay(now, d.Hour, d.Minute, d.Second)
	case KindEveryMonth:
		return nextEveryMonth(now, d.Day, d.Hour, d.Minute, d.Second)
	case KindEveryYear:
		return nextEveryYear(now, d.Month, d.Day, d.Hour, d.Minute, d.Second)
	case KindInterval:
		return now.Add(d.Interval)
	default:
		return now
	}
}

func nextEveryMinute(now time.Time, second int) time.Time {
	candidate := time.Date(now.Year(), now.Month(), now.Day(), now.Hour(), now.Minute(), second, 0, time.UTC)
	if !candidate.After(now) {
		candidate = candidate.Add(time.Minute)
	}
	return candidate
}

func nextEveryHour(now time.Time, minute, second int) time.Time {
	candidate := time.Date(now.Year(), now.Month(), now.Day(), now.Hour(), minute, second, 0, time.UTC)
	if !candidate.After(now) {
		candidate = candidate.Add(time.Hour)
	}
	return candidate
}

func nextEveryDay(now time.Time, hour, minute, second int) time.Time {
	candidate := time.Date(now.Year(), now.Month(), now.Day(), hour, minute, second, 0, time.UTC)
	if !candidate.After(now) {
		candidate = candidate.AddDate(0, 0, 1)
	}
	return candidate
}

// nextEveryMonth finds the next instant at day/hour/minute/second,
// skipping whole months whose length is shorter than day (spec:
// clamping is not applied — the schedule waits for a month that has
// that day).
func nextEveryMonth(now time.Time, day, hour, minute, second int) time.Time {
	year, month := now.Year(), now.Month()
	for i := 0; i < maxScheduleLookahead; i++ {
		if candidate, ok := dateIfValid(year, month, day, hour, minute, second); ok && candidate.After(now) {
			return candidate
		}
		year, month = addMonth(year, month)
	}
	return time.Time{}
}

// nextEveryYear finds the next instant at month/day/hour/minute/second,
// skipping whole years that don't contain the date (e.g. Feb 29 in a
// non-leap year).
func nextEveryYear(now time.Time, month, day, hour, minute, second int) time.Time {
	year := now.Year()
	for i := 0; i < maxScheduleLookahead; i++ {
		if candidate, ok := dateIfValid(year, time.Month(month), day, hour, minute, second); ok && candidate.After(now) {
			return candidate
		}
		year++
	}
	return time.Time{}
}

// dateIfValid constructs a UTC time and reports whether the requested
// day actually exists in that year/month (time.Date would otherwise
// silently roll it into the following month).
func dateIfValid(year int, month time.Month, day, hour, minute, second int) (time.Time, bool) {
	candidate := time.Date(year, month, day, hour, minute, second, 0, time.UTC)
	return candidate, candidate.Month() == month && candidate.Year() == year
}

func addMonth(year int, month time.Month) (int, time.Month) {
	month++
	if month > 12 {
		month = 1
		year++
	}
	return year, month
}
