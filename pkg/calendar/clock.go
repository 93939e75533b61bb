package calendar

import "time"

// Clock reports the current instant. Everything that needs "today" takes a
// Clock so tests can pin it.
type Clock func() time.Time

// SystemClock is the wall clock.
func SystemClock() time.Time { return time.Now() }

// FixedClock always reports t.
func FixedClock(t time.Time) Clock {
	return func() time.Time { return t }
}

// Today returns the current position as seen from loc. A nil clock means the
// wall clock and a nil loc means time.Local.
func Today(clock Clock, loc *time.Location) Position {
	if clock == nil {
		clock = SystemClock
	}
	if loc == nil {
		loc = time.Local
	}
	return PositionOf(clock().In(loc))
}
