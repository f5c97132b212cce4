// Package marker positions the "current time" line on the timeline. It is a
// pure function of now; the host decides how often to call it.
package marker

import (
	"time"

	"calview/internal/layout"
	"calview/internal/model"
	"calview/internal/timegrid"
)

// Marker is the now-line for a visible range that includes today.
type Marker struct {
	Date   model.Date `json:"date"`
	Column int        `json:"column"`
	Offset float64    `json:"offset"`
}

// Compute returns ok=false when today (the date of now, in now's location)
// is not inside visible. Otherwise Offset is in [0, 24*pixelsPerHour).
func Compute(now time.Time, visible timegrid.Range, pixelsPerHour float64) (Marker, bool) {
	if pixelsPerHour <= 0 {
		pixelsPerHour = layout.DefaultPixelsPerHour
	}
	today := model.DateOf(now)
	if !visible.Contains(today) {
		return Marker{}, false
	}
	minutes := now.Hour()*60 + now.Minute()
	return Marker{
		Date:   today,
		Column: visible.Start.DaysUntil(today),
		Offset: float64(minutes) / 60 * pixelsPerHour,
	}, true
}

// Offset is Compute reduced to a nullable pixel value.
func Offset(now time.Time, visible timegrid.Range, pixelsPerHour float64) *float64 {
	m, ok := Compute(now, visible, pixelsPerHour)
	if !ok {
		return nil
	}
	return &m.Offset
}
