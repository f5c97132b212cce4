package view

import (
	"calview/internal/clock"
	"calview/internal/model"
	"calview/internal/timegrid"
)

const DefaultAgendaDays = 14

// Navigator maps (anchor, mode, direction) to a new anchor. It never
// mutates its input; "today" comes from the injected clock.
type Navigator struct {
	Clock      clock.Clock
	AgendaDays int
}

func (n Navigator) agendaDays() int {
	if n.AgendaDays < 1 {
		return DefaultAgendaDays
	}
	return n.AgendaDays
}

// Step moves anchor by one unit of mode: a day, a week, a month (day clamped
// to the target month's length) or one agenda window. DirToday ignores mode.
func (n Navigator) Step(anchor model.Date, mode Mode, dir Direction) model.Date {
	if dir == DirToday {
		return model.DateOf(n.Clock.Now())
	}
	sign := 1
	if dir == DirPrev {
		sign = -1
	}
	var next model.Date
	switch mode {
	case ModeDay:
		next = anchor.AddDays(sign)
	case ModeWeek:
		next = anchor.AddDays(sign * timegrid.DaysPerWeek)
	case ModeMonth:
		next = anchor.AddMonthsClamped(sign)
	case ModeAgenda:
		next = anchor.AddDays(sign * n.agendaDays())
	default:
		next = anchor
	}
	return timegrid.Clamp(next)
}
