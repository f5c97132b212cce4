package calendar

import (
	"time"

	"calview/internal/index"
	"calview/internal/layout"
	"calview/internal/marker"
	"calview/internal/model"
	"calview/internal/timegrid"
	"calview/internal/view"
)

// RenderModel is everything the presentation layer needs for one view.
// Buckets and Layout are always non-nil; an empty range is not an error.
type RenderModel struct {
	State view.State     `json:"state"`
	Key   view.RangeKey  `json:"key"`
	Range timegrid.Range `json:"range"`
	Today model.Date     `json:"today"`

	Cells   []model.Date            `json:"cells"`
	Buckets index.Buckets           `json:"buckets"`
	Layout  map[string]layout.Block `json:"layout"`

	// Timeline modes only.
	Columns       []layout.DayLayout `json:"columns,omitempty"`
	PixelsPerHour float64            `json:"pixels_per_hour,omitempty"`
	DayHeight     float64            `json:"day_height,omitempty"`

	// Month mode only.
	MonthCells []layout.MonthCell `json:"month_cells,omitempty"`

	// Agenda mode only: non-empty days in order.
	Agenda []AgendaDay `json:"agenda,omitempty"`

	MarkerOffset *float64       `json:"marker_offset"`
	Marker       *marker.Marker `json:"marker,omitempty"`

	Loaded     bool   `json:"loaded"`
	FetchError string `json:"fetch_error,omitempty"`
	// FetchID is the ticket of the fetch shown, as logged by the engine.
	FetchID string `json:"fetch_id,omitempty"`
}

type AgendaDay struct {
	Date   model.Date    `json:"date"`
	Events []model.Event `json:"events"`
}

// buildInput is a snapshot of engine state taken under the lock.
type buildInput struct {
	state   view.State
	key     view.RangeKey
	events  []model.Event
	loaded  bool
	err     error
	fetchID string
	now     time.Time
}

// build is pure: the same input always yields the same model.
func build(opts Options, in buildInput) RenderModel {
	r := in.key.Range()
	rm := RenderModel{
		State:   in.state,
		Key:     in.key,
		Range:   r,
		Today:   model.DateOf(in.now),
		Cells:   r.Days(),
		Buckets: index.Index(in.events, r, opts.Location),
		Layout:  map[string]layout.Block{},
		Loaded:  in.loaded,
		FetchID: in.fetchID,
	}
	if in.err != nil {
		rm.FetchError = in.err.Error()
	}

	switch in.state.Mode {
	case view.ModeDay, view.ModeWeek:
		rm.Columns, rm.Layout = opts.Layout.Timeline(rm.Cells, rm.Buckets, opts.Location)
		rm.PixelsPerHour = opts.Layout.PixelsPerHour
		rm.DayHeight = opts.Layout.DayHeight()
		if m, ok := marker.Compute(in.now, r, opts.Layout.PixelsPerHour); ok {
			rm.Marker = &m
			rm.MarkerOffset = &m.Offset
		}
	case view.ModeMonth:
		rm.MonthCells = layout.MonthCells(rm.Cells, rm.Buckets, in.state.Anchor, rm.Today, opts.MaxEventsPerCell)
	case view.ModeAgenda:
		for _, d := range rm.Buckets.Days() {
			rm.Agenda = append(rm.Agenda, AgendaDay{Date: d, Events: rm.Buckets.Get(d)})
		}
	}
	return rm
}

// filterEvents drops invalid events and applies the type filter locally in
// case the collaborator ignored it.
func filterEvents(events []model.Event, f view.Filters) (kept []model.Event, dropped int) {
	kept = make([]model.Event, 0, len(events))
	for _, ev := range events {
		if err := ev.Validate(); err != nil {
			dropped++
			continue
		}
		if f.Type != "" && ev.Type != f.Type {
			continue
		}
		kept = append(kept, ev)
	}
	return kept, dropped
}
