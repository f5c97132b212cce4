// Package view holds the calendar's view state machine: anchor date, mode
// and filters, plus the navigation rules that move the anchor.
package view

import (
	"errors"
	"fmt"
	"strings"

	"calview/internal/model"
	"calview/internal/timegrid"
)

var (
	ErrUnknownMode      = errors.New("unknown view mode")
	ErrUnknownDirection = errors.New("unknown navigation direction")
	ErrUnknownFilter    = errors.New("unknown filter")
)

type Mode string

const (
	ModeDay    Mode = "day"
	ModeWeek   Mode = "week"
	ModeMonth  Mode = "month"
	ModeAgenda Mode = "agenda"
)

func ParseMode(s string) (Mode, error) {
	switch m := Mode(strings.ToLower(strings.TrimSpace(s))); m {
	case ModeDay, ModeWeek, ModeMonth, ModeAgenda:
		return m, nil
	default:
		return "", fmt.Errorf("%w: %q", ErrUnknownMode, s)
	}
}

// IsTimeline reports whether the mode draws an hourly timeline.
func (m Mode) IsTimeline() bool {
	return m == ModeDay || m == ModeWeek
}

type Direction string

const (
	DirPrev  Direction = "prev"
	DirNext  Direction = "next"
	DirToday Direction = "today"
)

func ParseDirection(s string) (Direction, error) {
	switch d := Direction(strings.ToLower(strings.TrimSpace(s))); d {
	case DirPrev, DirNext, DirToday:
		return d, nil
	default:
		return "", fmt.Errorf("%w: %q", ErrUnknownDirection, s)
	}
}

type FilterKind string

const (
	FilterMember FilterKind = "member"
	FilterType   FilterKind = "type"
)

// Filters narrow what the fetch collaborator returns. Zero values mean "all".
type Filters struct {
	Member string          `json:"member,omitempty"`
	Type   model.EventType `json:"type,omitempty"`
}

// State is the calendar screen's view state. Transitions return a new
// value; the receiver is never modified.
type State struct {
	Anchor  model.Date `json:"anchor"`
	Mode    Mode       `json:"mode"`
	Filters Filters    `json:"filters"`
}

// Initial is the state on screen mount: today, month view, no filters.
func Initial(today model.Date) State {
	return State{Anchor: timegrid.Clamp(today), Mode: ModeMonth}
}

// WithMode switches mode. The anchor keeps its calendar day; only the
// derived range changes.
func (s State) WithMode(m Mode) State {
	s.Mode = m
	return s
}

// WithAnchor jumps to d, clamped into the supported date range.
func (s State) WithAnchor(d model.Date) State {
	s.Anchor = timegrid.Clamp(d)
	return s
}

// Navigate steps the anchor by the current mode's unit.
func (s State) Navigate(nav Navigator, dir Direction) State {
	s.Anchor = nav.Step(s.Anchor, s.Mode, dir)
	return s
}

// WithFilter replaces one filter. An empty value clears it.
func (s State) WithFilter(kind FilterKind, value string) (State, error) {
	value = strings.TrimSpace(value)
	switch kind {
	case FilterMember:
		s.Filters.Member = value
	case FilterType:
		if value == "" {
			s.Filters.Type = ""
			break
		}
		t := model.EventType(strings.ToLower(value))
		if !knownType(t) {
			return s, fmt.Errorf("%w: type %q", ErrUnknownFilter, value)
		}
		s.Filters.Type = t
	default:
		return s, fmt.Errorf("%w: %q", ErrUnknownFilter, kind)
	}
	return s, nil
}

func knownType(t model.EventType) bool {
	for _, k := range model.EventTypes {
		if k == t {
			return true
		}
	}
	return false
}

// Range is the visible date range for the current mode.
func (s State) Range(g timegrid.Grid, agendaDays int) (timegrid.Range, error) {
	switch s.Mode {
	case ModeDay:
		return g.DaySpan(s.Anchor)
	case ModeWeek:
		return g.WeekSpan(s.Anchor)
	case ModeAgenda:
		if agendaDays < 1 {
			agendaDays = DefaultAgendaDays
		}
		return g.AgendaSpan(s.Anchor, agendaDays)
	default:
		return g.MonthRange(s.Anchor)
	}
}

// RangeKey identifies a fetch: the range it covers plus the filters.
type RangeKey struct {
	Start  model.Date      `json:"start"`
	End    model.Date      `json:"end"`
	Member string          `json:"member,omitempty"`
	Type   model.EventType `json:"type,omitempty"`
}

func (k RangeKey) Range() timegrid.Range {
	return timegrid.Range{Start: k.Start, End: k.End}
}

func (k RangeKey) String() string {
	return fmt.Sprintf("%s/%s?member=%s&type=%s", k.Start, k.End, k.Member, k.Type)
}

// Key derives the fetch key for the current state.
func (s State) Key(g timegrid.Grid, agendaDays int) (RangeKey, error) {
	r, err := s.Range(g, agendaDays)
	if err != nil {
		return RangeKey{}, err
	}
	return RangeKey{Start: r.Start, End: r.End, Member: s.Filters.Member, Type: s.Filters.Type}, nil
}
