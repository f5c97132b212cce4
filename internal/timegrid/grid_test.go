package timegrid

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"calview/internal/clock"
	"calview/internal/model"
)

func fixedGrid(weekStart time.Weekday) Grid {
	now := time.Date(2025, 12, 20, 15, 30, 0, 0, time.UTC)
	return New(weekStart, clock.Fixed(now))
}

// TestMonthGrid_December2025 checks the Saturday-anchored December scenario.
func TestMonthGrid_December2025(t *testing.T) {
	g := fixedGrid(time.Sunday)

	cells, err := g.MonthGrid(model.NewDate(2025, time.December, 20))
	require.NoError(t, err)

	assert.Len(t, cells, 35)
	assert.Equal(t, model.NewDate(2025, time.November, 30), cells[0])
	assert.Equal(t, model.NewDate(2026, time.January, 3), cells[len(cells)-1])
}

func TestMonthGrid_MondayStart(t *testing.T) {
	g := fixedGrid(time.Monday)

	cells, err := g.MonthGrid(model.NewDate(2025, time.December, 20))
	require.NoError(t, err)

	assert.Equal(t, model.NewDate(2025, time.December, 1), cells[0])
	assert.Equal(t, time.Monday, cells[0].Weekday())
	assert.Equal(t, time.Sunday, cells[len(cells)-1].Weekday())
	assert.Equal(t, model.NewDate(2026, time.January, 4), cells[len(cells)-1])
}

// TestMonthGrid_Properties sweeps several years of anchors for both week
// conventions.
func TestMonthGrid_Properties(t *testing.T) {
	for _, ws := range []time.Weekday{time.Sunday, time.Monday} {
		g := fixedGrid(ws)
		anchor := model.NewDate(2023, time.January, 15)
		for i := 0; i < 48; i++ {
			a := anchor.AddMonthsClamped(i)
			cells, err := g.MonthGrid(a)
			require.NoError(t, err)

			assert.Zero(t, len(cells)%7, "anchor %s", a)
			assert.Equal(t, ws, cells[0].Weekday())

			seen := map[model.Date]int{}
			prev := a.AddMonthsClamped(-1)
			next := a.AddMonthsClamped(1)
			for _, c := range cells {
				seen[c]++
				if !IsWithinMonth(c, a) {
					adjacent := IsWithinMonth(c, prev) || IsWithinMonth(c, next)
					assert.True(t, adjacent, "cell %s outside adjacent months of %s", c, a)
				}
			}
			for d := 1; d <= model.DaysIn(a.Year, a.Month); d++ {
				assert.Equal(t, 1, seen[model.NewDate(a.Year, a.Month, d)])
			}
		}
	}
}

func TestMonthGrid_InvalidAnchor(t *testing.T) {
	g := fixedGrid(time.Sunday)

	_, err := g.MonthGrid(model.NewDate(2025, time.February, 30))
	assert.ErrorIs(t, err, model.ErrInvalidDate)

	_, err = g.WeekRange(model.Date{})
	assert.ErrorIs(t, err, model.ErrInvalidDate)

	_, err = g.DayRange(model.NewDate(2025, 14, 1))
	assert.ErrorIs(t, err, model.ErrInvalidDate)
}

func TestWeekRange(t *testing.T) {
	g := fixedGrid(time.Sunday)

	days, err := g.WeekRange(model.NewDate(2025, time.December, 31))
	require.NoError(t, err)
	require.Len(t, days, 7)
	assert.Equal(t, model.NewDate(2025, time.December, 28), days[0])
	assert.Equal(t, model.NewDate(2026, time.January, 3), days[6])
}

func TestDayRange(t *testing.T) {
	g := fixedGrid(time.Sunday)

	days, err := g.DayRange(model.NewDate(2025, time.March, 9))
	require.NoError(t, err)
	assert.Equal(t, []model.Date{model.NewDate(2025, time.March, 9)}, days)
}

func TestAgendaSpan(t *testing.T) {
	g := fixedGrid(time.Sunday)

	r, err := g.AgendaSpan(model.NewDate(2025, time.December, 20), 14)
	require.NoError(t, err)
	assert.Equal(t, 14, r.Len())
	assert.Equal(t, model.NewDate(2026, time.January, 2), r.Last())
}

// TestSpans_StayInsideSupportedDates anchors views on the first and last
// supported days: no cell may fall outside 0001-01-01..9999-12-31 and the
// range must survive a JSON round trip.
func TestSpans_StayInsideSupportedDates(t *testing.T) {
	g := fixedGrid(time.Sunday)
	first := model.NewDate(1, time.January, 1)
	last := model.NewDate(9999, time.December, 31)

	month, err := g.MonthRange(last)
	require.NoError(t, err)
	assert.Equal(t, model.NewDate(9999, time.November, 28), month.Start)
	assert.Equal(t, last, month.Last())
	assert.Equal(t, model.EndOfTime, month.End)
	assert.Equal(t, 34, month.Len())

	week, err := g.WeekSpan(first)
	require.NoError(t, err)
	assert.Equal(t, first, week.Start)
	assert.Equal(t, model.NewDate(1, time.January, 6), week.Last())

	agenda, err := g.AgendaSpan(model.NewDate(9999, time.December, 25), 14)
	require.NoError(t, err)
	assert.Equal(t, 7, agenda.Len())
	assert.Equal(t, model.EndOfTime, agenda.End)

	for _, r := range []Range{month, week, agenda} {
		for _, d := range r.Days() {
			require.NoError(t, d.Validate(), "cell %s", d)
		}
		b, err := json.Marshal(r)
		require.NoError(t, err)
		var back Range
		require.NoError(t, json.Unmarshal(b, &back))
		assert.Equal(t, r, back)
	}
}

func TestRange_BoundsHalfOpen(t *testing.T) {
	loc := time.FixedZone("KST", 9*3600)
	r := Span(model.NewDate(2025, time.December, 1), model.NewDate(2025, time.December, 7))

	start, end := r.Bounds(loc)
	assert.Equal(t, time.Date(2025, 12, 1, 0, 0, 0, 0, loc), start)
	assert.Equal(t, time.Date(2025, 12, 8, 0, 0, 0, 0, loc), end)
	assert.True(t, r.Contains(model.NewDate(2025, time.December, 7)))
	assert.False(t, r.Contains(model.NewDate(2025, time.December, 8)))
}

func TestPredicates(t *testing.T) {
	g := fixedGrid(time.Sunday)

	assert.True(t, g.IsToday(model.NewDate(2025, time.December, 20)))
	assert.False(t, g.IsToday(model.NewDate(2025, time.December, 21)))
	assert.True(t, IsSameDay(model.NewDate(2025, 1, 1), model.NewDate(2025, 1, 1)))
	assert.False(t, IsWithinMonth(model.NewDate(2025, 11, 30), model.NewDate(2025, 12, 20)))
}

func TestClamp(t *testing.T) {
	assert.Equal(t, model.NewDate(2025, time.February, 28), Clamp(model.NewDate(2025, time.February, 31)))
	assert.Equal(t, model.NewDate(1, time.January, 1), Clamp(model.NewDate(0, time.May, 5)))
	assert.Equal(t, model.NewDate(9999, time.December, 31), Clamp(model.NewDate(12000, time.May, 5)))
	assert.Equal(t, model.NewDate(2025, time.December, 1), Clamp(model.NewDate(2025, 13, 0)))
}

func TestParseWeekStart(t *testing.T) {
	assert.Equal(t, time.Monday, ParseWeekStart("Monday"))
	assert.Equal(t, time.Sunday, ParseWeekStart("sunday"))
	assert.Equal(t, time.Sunday, ParseWeekStart("friday"))
}
