package schedule

import (
	"fmt"
	"time"
)

// ClockTime is a time of day at minute resolution.
type ClockTime struct {
	Hour   int
	Minute int
}

// ClockOf returns the time of day of t in t's location.
func ClockOf(t time.Time) ClockTime {
	return ClockTime{Hour: t.Hour(), Minute: t.Minute()}
}

// Before reports whether c is strictly earlier in the day than o.
func (c ClockTime) Before(o ClockTime) bool {
	return c.minutes() < o.minutes()
}

func (c ClockTime) String() string {
	return fmt.Sprintf("%02d:%02d", c.Hour, c.Minute)
}

func (c ClockTime) minutes() int {
	return c.Hour*60 + c.Minute
}

// InWindow reports whether now falls in the half-open window [start, stop).
// When start is not before stop the window wraps past midnight, so equal
// endpoints cover the whole day.
func InWindow(start, stop, now ClockTime) bool {
	if start.Before(stop) {
		return !now.Before(start) && now.Before(stop)
	}
	return !now.Before(start) || now.Before(stop)
}
