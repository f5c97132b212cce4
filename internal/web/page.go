package web

import (
	"bytes"
	"embed"
	"fmt"
	"html/template"
	"net/http"
	"time"

	"calview/internal/calendar"
	"calview/internal/layout"
	appLog "calview/internal/log"
	"calview/internal/model"
	"calview/internal/view"
)

//go:embed templates/*.html
var templateFS embed.FS

var calendarTemplate = template.Must(template.New("calendar.html").Funcs(template.FuncMap{
	"px": func(v float64) string { return fmt.Sprintf("%.1f", v) },
	"pct": func(v float64) string { return fmt.Sprintf("%.3f", v) },
}).ParseFS(templateFS, "templates/calendar.html"))

// columnHeadHeight matches .col .head in calendar.html.
const columnHeadHeight = 25

// pageBlock is one positioned event box on the timeline.
type pageBlock struct {
	ID     string
	Title  string
	Time   string
	Color  string
	Top    float64
	Height float64
	Left   float64 // percent of the column width
	Width  float64
}

type pageColumn struct {
	Date    model.Date
	Label   string
	IsToday bool
	AllDay  []pageBlock
	Timed   []pageBlock
	Marker  *float64
}

type pageHour struct {
	Label string
	Top   float64
}

type pageAgendaItem struct {
	Time  string
	Title string
	Color string
}

type pageAgendaDay struct {
	Label string
	Items []pageAgendaItem
}

type pageData struct {
	Title      string
	Mode       view.Mode
	Timeline   bool
	Error      string
	DayHeight  float64
	AllDay     float64
	GutterTop  float64
	Hours      []pageHour
	Columns    []pageColumn
	MonthRows  [][]layout.MonthCell
	Agenda     []pageAgendaDay
	Weekdays   []string
	EventCount int
}

// GET /calendar renders the current view as a self-contained HTML page.
// The root element carries data-ready="true" once events are laid out so
// headless capture can wait for it.
func (s *Server) handleCalendarPage(w http.ResponseWriter, r *http.Request) {
	rm := s.render(r.Context(), r.URL.Query().Get("refresh") == "1")
	opts := s.engine.Options()

	var buf bytes.Buffer
	if err := s.page.Execute(&buf, buildPage(rm, opts)); err != nil {
		appLog.Error("calendar page render failed", err)
		http.Error(w, "failed to render calendar", http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.Header().Set("Cache-Control", "no-store")
	_, _ = buf.WriteTo(w)
}

func buildPage(rm calendar.RenderModel, opts calendar.Options) pageData {
	loc := opts.Location
	byID := make(map[string]model.Event)
	for _, evs := range rm.Buckets {
		for _, ev := range evs {
			byID[ev.ID] = ev
		}
	}

	p := pageData{
		Title:      pageTitle(rm),
		Mode:       rm.State.Mode,
		Timeline:   rm.State.Mode.IsTimeline(),
		Error:      rm.FetchError,
		EventCount: len(byID),
	}

	switch {
	case p.Timeline:
		p.DayHeight = rm.DayHeight
		p.AllDay = opts.Layout.AllDayLaneHeight
		for h := 0; h < 24; h++ {
			p.Hours = append(p.Hours, pageHour{
				Label: fmt.Sprintf("%02d:00", h),
				Top:   float64(h) * rm.PixelsPerHour,
			})
		}
		for i, col := range rm.Columns {
			pc := pageColumn{
				Date:    col.Date,
				Label:   col.Date.In(loc).Format("Mon 1/2"),
				IsToday: col.Date == rm.Today,
			}
			for _, b := range col.AllDay {
				ev := byID[b.EventID]
				pc.AllDay = append(pc.AllDay, pageBlock{
					ID: ev.ID, Title: ev.Title, Color: ev.ColorTag(),
					Top: b.Top, Height: b.Height, Width: 100,
				})
				if bottom := b.Top + b.Height; bottom > p.AllDay {
					p.AllDay = bottom
				}
			}
			for _, b := range col.Timed {
				ev := byID[b.EventID]
				lanes := b.Lanes
				if lanes < 1 {
					lanes = 1
				}
				pc.Timed = append(pc.Timed, pageBlock{
					ID:     ev.ID,
					Title:  ev.Title,
					Time:   ev.Start.In(loc).Format("15:04"),
					Color:  ev.ColorTag(),
					Top:    b.Top,
					Height: b.Height,
					Left:   100 * float64(b.Lane) / float64(lanes),
					Width:  100 / float64(lanes),
				})
			}
			if rm.Marker != nil && rm.Marker.Column == i {
				off := rm.Marker.Offset
				pc.Marker = &off
			}
			p.Columns = append(p.Columns, pc)
		}
		p.GutterTop = columnHeadHeight + p.AllDay

	case rm.State.Mode == view.ModeMonth:
		for i := 0; i < len(rm.MonthCells); i += 7 {
			end := i + 7
			if end > len(rm.MonthCells) {
				end = len(rm.MonthCells)
			}
			p.MonthRows = append(p.MonthRows, rm.MonthCells[i:end])
		}
		for i := 0; i < 7 && i < len(rm.Cells); i++ {
			p.Weekdays = append(p.Weekdays, rm.Cells[i].Weekday().String()[:3])
		}

	case rm.State.Mode == view.ModeAgenda:
		for _, day := range rm.Agenda {
			ad := pageAgendaDay{Label: day.Date.In(loc).Format("Monday, January 2")}
			for _, ev := range day.Events {
				item := pageAgendaItem{Title: ev.Title, Color: ev.ColorTag(), Time: "All day"}
				if !ev.AllDay {
					item.Time = ev.Start.In(loc).Format("15:04") + "-" + ev.End.In(loc).Format("15:04")
				}
				ad.Items = append(ad.Items, item)
			}
			p.Agenda = append(p.Agenda, ad)
		}
	}
	return p
}

func pageTitle(rm calendar.RenderModel) string {
	a := rm.State.Anchor.In(time.UTC)
	switch rm.State.Mode {
	case view.ModeDay:
		return a.Format("Monday, January 2, 2006")
	case view.ModeWeek, view.ModeAgenda:
		first := rm.Range.Start.In(time.UTC)
		last := rm.Range.Last().In(time.UTC)
		return first.Format("Jan 2") + " - " + last.Format("Jan 2, 2006")
	default:
		return a.Format("January 2006")
	}
}
