// Package clock centralizes every read of the current instant so that
// "today" and the current-time marker are deterministic in tests.
package clock

import "time"

type Clock interface {
	Now() time.Time
}

type systemClock struct {
	loc *time.Location
}

// System returns the wall clock converted into loc (time.Local if nil).
func System(loc *time.Location) Clock {
	if loc == nil {
		loc = time.Local
	}
	return systemClock{loc: loc}
}

func (c systemClock) Now() time.Time {
	return time.Now().In(c.loc)
}

// Func adapts a plain function, e.g. a test closure that advances time.
type Func func() time.Time

func (f Func) Now() time.Time {
	return f()
}

// Fixed always returns t.
func Fixed(t time.Time) Clock {
	return Func(func() time.Time { return t })
}
