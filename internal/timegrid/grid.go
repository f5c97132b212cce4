// Package timegrid holds the pure date math behind every calendar view:
// month/week/day boundaries, day enumeration and day predicates.
package timegrid

import (
	"strings"
	"time"

	"calview/internal/clock"
	"calview/internal/model"
)

const DaysPerWeek = 7

// Range is a half-open span of calendar dates [Start, End).
type Range struct {
	Start model.Date `json:"start"`
	End   model.Date `json:"end"`
}

// Span builds a Range covering first..last inclusive.
func Span(first, last model.Date) Range {
	return Range{Start: first, End: last.AddDays(1)}
}

func (r Range) Contains(d model.Date) bool {
	return !d.Before(r.Start) && d.Before(r.End)
}

func (r Range) Len() int {
	n := r.Start.DaysUntil(r.End)
	if n < 0 {
		return 0
	}
	return n
}

// Last is the final date inside the range.
func (r Range) Last() model.Date {
	return r.End.AddDays(-1)
}

// Days enumerates every date in the range, in order.
func (r Range) Days() []model.Date {
	n := r.Len()
	days := make([]model.Date, 0, n)
	for i := 0; i < n; i++ {
		days = append(days, r.Start.AddDays(i))
	}
	return days
}

// Bounds converts the range into instants [Start 00:00, End 00:00) in loc,
// which is what the event-fetch collaborator expects.
func (r Range) Bounds(loc *time.Location) (time.Time, time.Time) {
	return r.Start.In(loc), r.End.In(loc)
}

func (r Range) String() string {
	return r.Start.String() + "/" + r.End.String()
}

// ParseWeekStart maps "sunday"/"monday" to a weekday. Anything else is Sunday.
func ParseWeekStart(s string) time.Weekday {
	if strings.EqualFold(strings.TrimSpace(s), "monday") {
		return time.Monday
	}
	return time.Sunday
}

// Grid computes view ranges for a fixed first-day-of-week convention.
// It is never derived from the locale.
type Grid struct {
	WeekStart time.Weekday
	Clock     clock.Clock
}

func New(weekStart time.Weekday, clk clock.Clock) Grid {
	if clk == nil {
		clk = clock.System(nil)
	}
	return Grid{WeekStart: weekStart, Clock: clk}
}

func (g Grid) StartOfWeek(d model.Date) model.Date {
	offset := (int(d.Weekday()) - int(g.WeekStart) + DaysPerWeek) % DaysPerWeek
	return d.AddDays(-offset)
}

func (g Grid) EndOfWeek(d model.Date) model.Date {
	return g.StartOfWeek(d).AddDays(DaysPerWeek - 1)
}

func StartOfMonth(d model.Date) model.Date {
	return model.NewDate(d.Year, d.Month, 1)
}

func EndOfMonth(d model.Date) model.Date {
	return model.NewDate(d.Year, d.Month, model.DaysIn(d.Year, d.Month))
}

// MonthRange is [startOfWeek(startOfMonth), endOfWeek(endOfMonth)].
func (g Grid) MonthRange(anchor model.Date) (Range, error) {
	if err := anchor.Validate(); err != nil {
		return Range{}, err
	}
	return clampedSpan(g.StartOfWeek(StartOfMonth(anchor)), g.EndOfWeek(EndOfMonth(anchor))), nil
}

// MonthGrid returns every cell needed to render anchor's month. The length
// is always a multiple of 7.
func (g Grid) MonthGrid(anchor model.Date) ([]model.Date, error) {
	r, err := g.MonthRange(anchor)
	if err != nil {
		return nil, err
	}
	return r.Days(), nil
}

func (g Grid) WeekSpan(anchor model.Date) (Range, error) {
	if err := anchor.Validate(); err != nil {
		return Range{}, err
	}
	return clampedSpan(g.StartOfWeek(anchor), g.EndOfWeek(anchor)), nil
}

// WeekRange returns the 7 dates of anchor's week.
func (g Grid) WeekRange(anchor model.Date) ([]model.Date, error) {
	r, err := g.WeekSpan(anchor)
	if err != nil {
		return nil, err
	}
	return r.Days(), nil
}

func (g Grid) DaySpan(anchor model.Date) (Range, error) {
	if err := anchor.Validate(); err != nil {
		return Range{}, err
	}
	return Span(anchor, anchor), nil
}

// DayRange returns [anchor].
func (g Grid) DayRange(anchor model.Date) ([]model.Date, error) {
	r, err := g.DaySpan(anchor)
	if err != nil {
		return nil, err
	}
	return r.Days(), nil
}

// AgendaSpan covers n days starting at anchor (at least one).
func (g Grid) AgendaSpan(anchor model.Date, n int) (Range, error) {
	if err := anchor.Validate(); err != nil {
		return Range{}, err
	}
	if n < 1 {
		n = 1
	}
	return clampedSpan(anchor, anchor.AddDays(n-1)), nil
}

// clampedSpan is Span with both ends pulled into 0001-01-01..9999-12-31.
// Grids touching either edge lose their out-of-range cells, so their
// length is no longer a multiple of 7.
func clampedSpan(first, last model.Date) Range {
	return Span(Clamp(first), Clamp(last))
}

// Today reads the injected clock.
func (g Grid) Today() model.Date {
	return model.DateOf(g.Clock.Now())
}

func (g Grid) IsToday(d model.Date) bool {
	return d == g.Today()
}

func IsSameDay(a, b model.Date) bool {
	return a == b
}

// IsWithinMonth reports whether d falls in anchor's month (leading and
// trailing cells of a month grid are not).
func IsWithinMonth(d, anchor model.Date) bool {
	return d.Year == anchor.Year && d.Month == anchor.Month
}

var (
	minDate = model.NewDate(1, time.January, 1)
	maxDate = model.NewDate(9999, time.December, 31)
)

// Clamp pulls an out-of-range date back to the nearest valid one: years
// into 1..9999, month into 1..12 and the day into the month's length.
func Clamp(d model.Date) model.Date {
	if d.Year < minDate.Year {
		return minDate
	}
	if d.Year > maxDate.Year {
		return maxDate
	}
	m := d.Month
	if m < time.January {
		m = time.January
	}
	if m > time.December {
		m = time.December
	}
	day := d.Day
	if day < 1 {
		day = 1
	}
	if last := model.DaysIn(d.Year, m); day > last {
		day = last
	}
	return model.NewDate(d.Year, m, day)
}
