// Package index groups a flat event list by calendar day.
package index

import (
	"slices"
	"strings"
	"time"

	"calview/internal/model"
	"calview/internal/timegrid"
)

// Buckets maps a calendar day to its ordered events.
type Buckets map[model.Date][]model.Event

// Get returns the bucket for d (nil if empty).
func (b Buckets) Get(d model.Date) []model.Event {
	return b[d]
}

// Days returns the non-empty days in ascending order.
func (b Buckets) Days() []model.Date {
	days := make([]model.Date, 0, len(b))
	for d := range b {
		days = append(days, d)
	}
	slices.SortFunc(days, model.Date.Compare)
	return days
}

// Len is the total number of placements across all buckets.
func (b Buckets) Len() int {
	n := 0
	for _, evs := range b {
		n += len(evs)
	}
	return n
}

// Index buckets events by their local calendar day in loc and drops every
// placement outside r. Timed events belong to the day they start on. All-day
// events keep their own civil dates and appear on each day they cover.
//
// Within a bucket: all-day first, then start ascending, then id.
func Index(events []model.Event, r timegrid.Range, loc *time.Location) Buckets {
	if loc == nil {
		loc = time.Local
	}
	out := make(Buckets)
	for _, ev := range events {
		for _, d := range daysOf(ev, loc) {
			if !r.Contains(d) {
				continue
			}
			out[d] = append(out[d], ev)
		}
	}
	for d := range out {
		slices.SortStableFunc(out[d], compareEvents)
	}
	return out
}

func daysOf(ev model.Event, loc *time.Location) []model.Date {
	if !ev.AllDay {
		return []model.Date{model.DateOf(ev.Start.In(loc))}
	}
	first := model.DateOf(ev.Start)
	last := model.DateOf(ev.End)
	// End is exclusive for all-day events; a zero-length one still gets its day.
	n := first.DaysUntil(last)
	if n < 1 {
		n = 1
	}
	days := make([]model.Date, 0, n)
	for i := 0; i < n; i++ {
		days = append(days, first.AddDays(i))
	}
	return days
}

func compareEvents(a, b model.Event) int {
	if a.AllDay != b.AllDay {
		if a.AllDay {
			return -1
		}
		return 1
	}
	if c := a.Start.Compare(b.Start); c != 0 {
		return c
	}
	return strings.Compare(a.ID, b.ID)
}
