// Package layout turns day buckets into pixel geometry for the day/week
// timeline, the all-day lane and the month cells.
package layout

import (
	"math"
	"slices"
	"strings"
	"time"

	"calview/internal/index"
	"calview/internal/model"
)

const (
	DefaultPixelsPerHour      = 80
	DefaultMinimumBlockHeight = 40
	DefaultAllDayLaneHeight   = 24

	hoursPerDay   = 24
	minutesPerDay = hoursPerDay * 60
)

// OverlapMode decides how concurrent timed events share a day column.
type OverlapMode string

const (
	// OverlapStack draws every block at full width, on top of each other.
	OverlapStack OverlapMode = "stack"
	// OverlapColumns packs overlapping blocks into side-by-side lanes.
	OverlapColumns OverlapMode = "columns"
)

type Config struct {
	PixelsPerHour      float64
	MinimumBlockHeight float64
	AllDayLaneHeight   float64
	Overlap            OverlapMode
}

func DefaultConfig() Config {
	return Config{
		PixelsPerHour:      DefaultPixelsPerHour,
		MinimumBlockHeight: DefaultMinimumBlockHeight,
		AllDayLaneHeight:   DefaultAllDayLaneHeight,
		Overlap:            OverlapStack,
	}
}

// withDefaults replaces non-positive values so layout stays total.
func (c Config) withDefaults() Config {
	if c.PixelsPerHour <= 0 {
		c.PixelsPerHour = DefaultPixelsPerHour
	}
	if c.MinimumBlockHeight <= 0 {
		c.MinimumBlockHeight = DefaultMinimumBlockHeight
	}
	if c.AllDayLaneHeight <= 0 {
		c.AllDayLaneHeight = DefaultAllDayLaneHeight
	}
	if c.Overlap != OverlapColumns {
		c.Overlap = OverlapStack
	}
	return c
}

// DayHeight is the full 24h column height in pixels.
func (c Config) DayHeight() float64 {
	return hoursPerDay * c.withDefaults().PixelsPerHour
}

// Block is the render geometry of one timed event inside its day column.
// Lane/Lanes describe the horizontal slot; with OverlapStack they are 0/1.
type Block struct {
	EventID string     `json:"event_id"`
	Date    model.Date `json:"date"`
	Top     float64    `json:"top"`
	Height  float64    `json:"height"`
	Lane    int        `json:"lane"`
	Lanes   int        `json:"lanes"`
}

func (b Block) Bottom() float64 {
	return b.Top + b.Height
}

// AllDayBlock is one fixed-height row in a day's all-day lane.
type AllDayBlock struct {
	EventID string     `json:"event_id"`
	Date    model.Date `json:"date"`
	Row     int        `json:"row"`
	Top     float64    `json:"top"`
	Height  float64    `json:"height"`
}

// Position computes top/height for a timed event in loc. All-day events
// report ok=false; they belong to the all-day lane.
//
// The height never drops below MinimumBlockHeight, so very short events
// visually extend past their real end. Events running past midnight are
// cut at the bottom of their start day. A block that would then hang below
// the column is moved up so its bottom sits on DayHeight.
func (c Config) Position(ev model.Event, loc *time.Location) (Block, bool) {
	if ev.AllDay {
		return Block{}, false
	}
	c = c.withDefaults()
	if loc == nil {
		loc = time.Local
	}

	start := ev.Start.In(loc)
	startMin := minutesSinceMidnight(start)
	durMin := math.Max(0, ev.End.Sub(ev.Start).Minutes())
	durMin = math.Min(durMin, minutesPerDay-startMin)

	height := math.Max(c.MinimumBlockHeight, durMin/60*c.PixelsPerHour)
	top := startMin / 60 * c.PixelsPerHour
	top = math.Max(0, math.Min(top, c.DayHeight()-height))

	return Block{
		EventID: ev.ID,
		Date:    model.DateOf(start),
		Top:     top,
		Height:  height,
		Lane:    0,
		Lanes:   1,
	}, true
}

func minutesSinceMidnight(t time.Time) float64 {
	return float64(t.Hour()*60+t.Minute()) + float64(t.Second())/60
}

// AllDayLane lays out the all-day events of one bucket, one row each, in
// bucket order.
func (c Config) AllDayLane(d model.Date, bucket []model.Event) []AllDayBlock {
	c = c.withDefaults()
	var out []AllDayBlock
	for _, ev := range bucket {
		if !ev.AllDay {
			continue
		}
		row := len(out)
		out = append(out, AllDayBlock{
			EventID: ev.ID,
			Date:    d,
			Row:     row,
			Top:     float64(row) * c.AllDayLaneHeight,
			Height:  c.AllDayLaneHeight,
		})
	}
	return out
}

// DayLayout is everything drawn in a single day column.
type DayLayout struct {
	Date   model.Date    `json:"date"`
	AllDay []AllDayBlock `json:"all_day"`
	Timed  []Block       `json:"timed"`
}

// Day lays out one bucket. Timed blocks come back sorted by top, then id.
func (c Config) Day(d model.Date, bucket []model.Event, loc *time.Location) DayLayout {
	c = c.withDefaults()
	out := DayLayout{Date: d, AllDay: c.AllDayLane(d, bucket)}
	for _, ev := range bucket {
		b, ok := c.Position(ev, loc)
		if !ok {
			continue
		}
		b.Date = d
		out.Timed = append(out.Timed, b)
	}
	slices.SortStableFunc(out.Timed, func(a, b Block) int {
		if a.Top != b.Top {
			if a.Top < b.Top {
				return -1
			}
			return 1
		}
		return strings.Compare(a.EventID, b.EventID)
	})
	if c.Overlap == OverlapColumns {
		assignLanes(out.Timed)
	}
	return out
}

// Timeline lays out every day column of a day/week view. The flat block map
// is keyed by event id; each timed event lives in exactly one column.
func (c Config) Timeline(days []model.Date, buckets index.Buckets, loc *time.Location) ([]DayLayout, map[string]Block) {
	columns := make([]DayLayout, 0, len(days))
	blocks := make(map[string]Block)
	for _, d := range days {
		day := c.Day(d, buckets.Get(d), loc)
		for _, b := range day.Timed {
			blocks[b.EventID] = b
		}
		columns = append(columns, day)
	}
	return columns, blocks
}
