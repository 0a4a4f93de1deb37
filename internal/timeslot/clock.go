package timeslot

import (
	"fmt"
	"time"

	"github.com/thitipong-w/slotwise/internal/domain"
)

// DateFormat is the wire format for local calendar dates.
const DateFormat = "2006-01-02"

// LocalDate identifies a calendar day in some timezone.
type LocalDate struct {
	Year  int
	Month time.Month
	Day   int
}

// ParseLocalDate parses a "2006-01-02" date string.
func ParseLocalDate(s string) (LocalDate, error) {
	t, err := time.Parse(DateFormat, s)
	if err != nil {
		return LocalDate{}, fmt.Errorf("malformed date %q: %w", s, err)
	}
	return LocalDate{Year: t.Year(), Month: t.Month(), Day: t.Day()}, nil
}

// DateOf returns the local calendar date of an instant in loc.
func DateOf(t time.Time, loc *time.Location) LocalDate {
	lt := t.In(loc)
	return LocalDate{Year: lt.Year(), Month: lt.Month(), Day: lt.Day()}
}

// String formats the date as "2006-01-02".
func (d LocalDate) String() string {
	return fmt.Sprintf("%04d-%02d-%02d", d.Year, d.Month, d.Day)
}

// Next returns the following calendar day.
func (d LocalDate) Next() LocalDate {
	t := time.Date(d.Year, d.Month, d.Day, 12, 0, 0, 0, time.UTC).AddDate(0, 0, 1)
	return LocalDate{Year: t.Year(), Month: t.Month(), Day: t.Day()}
}

// Before reports whether d is earlier than o.
func (d LocalDate) Before(o LocalDate) bool {
	if d.Year != o.Year {
		return d.Year < o.Year
	}
	if d.Month != o.Month {
		return d.Month < o.Month
	}
	return d.Day < o.Day
}

// Weekday returns the day of week of the date in loc.
func (d LocalDate) Weekday(loc *time.Location) time.Weekday {
	return time.Date(d.Year, d.Month, d.Day, 12, 0, 0, 0, loc).Weekday()
}

// AtMinute converts a wall-clock minute offset on this date to an absolute
// UTC instant. The conversion is DST-aware: 10:00 local stays 10:00 local on
// either side of a transition, with the UTC offset shifting accordingly.
// Minute offsets that name a skipped wall-clock time resolve per the
// timezone rules of time.Date.
func (d LocalDate) AtMinute(minute int, loc *time.Location) time.Time {
	return time.Date(d.Year, d.Month, d.Day, minute/60, minute%60, 0, 0, loc).UTC()
}

// WindowOn converts a minute window on this date to an absolute UTC
// interval. Windows that collapse across a DST spring-forward gap return
// ok=false.
func (d LocalDate) WindowOn(w domain.MinuteWindow, loc *time.Location) (Interval, bool) {
	start := d.AtMinute(w.StartMinute, loc)
	end := d.AtMinute(w.EndMinute, loc)
	if !end.After(start) {
		return Interval{}, false
	}
	return Interval{Start: start, End: end}, true
}
