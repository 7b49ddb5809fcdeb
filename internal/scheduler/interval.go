package scheduler

import (
	"fmt"
	"strconv"
	"strings"
	"time"
)

// DateLayout is the wall-clock calendar date format used for meeting dates.
const DateLayout = "2006-01-02"

// TimeOfDay is a wall-clock time inside a single day.
type TimeOfDay struct {
	Hour   int
	Minute int
}

// Minutes converts the time of day to an offset from midnight.
func (t TimeOfDay) Minutes() int {
	return t.Hour*60 + t.Minute
}

// Valid reports whether the hour and minute are within a 24 hour clock.
func (t TimeOfDay) Valid() bool {
	return t.Hour >= 0 && t.Hour <= 23 && t.Minute >= 0 && t.Minute <= 59
}

// String renders the time as HH:MM.
func (t TimeOfDay) String() string {
	return fmt.Sprintf("%02d:%02d", t.Hour, t.Minute)
}

// FromMinutes is the inverse of Minutes for offsets inside one day.
func FromMinutes(minutes int) TimeOfDay {
	return TimeOfDay{Hour: minutes / 60, Minute: minutes % 60}
}

// ParseTimeOfDay parses "HH:MM" (or "H:MM") into a TimeOfDay.
func ParseTimeOfDay(value string) (TimeOfDay, error) {
	value = strings.TrimSpace(value)
	hourPart, minutePart, ok := strings.Cut(value, ":")
	if !ok || hourPart == "" || len(minutePart) != 2 {
		return TimeOfDay{}, fmt.Errorf("time %q must use HH:MM", value)
	}
	hour, err := strconv.Atoi(hourPart)
	if err != nil {
		return TimeOfDay{}, fmt.Errorf("time %q has an invalid hour", value)
	}
	minute, err := strconv.Atoi(minutePart)
	if err != nil {
		return TimeOfDay{}, fmt.Errorf("time %q has an invalid minute", value)
	}
	t := TimeOfDay{Hour: hour, Minute: minute}
	if !t.Valid() {
		return TimeOfDay{}, fmt.Errorf("time %q is out of range", value)
	}
	return t, nil
}

// ParseDate parses a YYYY-MM-DD calendar date.
func ParseDate(value string) (time.Time, error) {
	return time.Parse(DateLayout, strings.TrimSpace(value))
}

// Overlaps reports whether the half-open minute intervals [aStart, aEnd) and
// [bStart, bEnd) share at least one minute. Touching intervals do not overlap.
func Overlaps(aStart, aEnd, bStart, bEnd int) bool {
	return aStart < bEnd && bStart < aEnd
}

// Interval is a half-open window [Start, End) within one day.
type Interval struct {
	Start TimeOfDay
	End   TimeOfDay
}

// Overlaps applies the half-open overlap rule to two intervals.
func (i Interval) Overlaps(other Interval) bool {
	return Overlaps(i.Start.Minutes(), i.End.Minutes(), other.Start.Minutes(), other.End.Minutes())
}

// Duration returns the length of the interval.
func (i Interval) Duration() time.Duration {
	return time.Duration(i.End.Minutes()-i.Start.Minutes()) * time.Minute
}
