package layout

import (
	"calview/internal/index"
	"calview/internal/model"
	"calview/internal/timegrid"
)

const DefaultMaxEventsPerCell = 3

// MonthCell is one square of the month grid. Only the first few events are
// listed; More counts the rest ("+N more").
type MonthCell struct {
	Date    model.Date    `json:"date"`
	InMonth bool          `json:"in_month"`
	IsToday bool          `json:"is_today"`
	Events  []model.Event `json:"events"`
	More    int           `json:"more"`
}

// MonthCells classifies cells against anchor's month and today, and caps each
// bucket at limit events. limit <= 0 shows everything.
func MonthCells(cells []model.Date, buckets index.Buckets, anchor, today model.Date, limit int) []MonthCell {
	out := make([]MonthCell, 0, len(cells))
	for _, d := range cells {
		evs := buckets.Get(d)
		cell := MonthCell{
			Date:    d,
			InMonth: timegrid.IsWithinMonth(d, anchor),
			IsToday: timegrid.IsSameDay(d, today),
			Events:  evs,
		}
		if limit > 0 && len(evs) > limit {
			cell.Events = evs[:limit:limit]
			cell.More = len(evs) - limit
		}
		if cell.Events == nil {
			cell.Events = []model.Event{}
		}
		out = append(out, cell)
	}
	return out
}
