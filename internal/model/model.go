package model

import (
	"errors"
	"fmt"
	"strings"
	"time"
)

// ErrInvalidEvent is returned by Event.Validate.
var ErrInvalidEvent = errors.New("invalid event")

// EventType classifies an event; it drives the color tag.
type EventType string

const (
	TypeMeeting  EventType = "meeting"
	TypeDeadline EventType = "deadline"
	TypeHoliday  EventType = "holiday"
	TypeTask     EventType = "task"
	TypeReminder EventType = "reminder"
	TypeOther    EventType = "other"
)

// EventTypes lists every known type in display order.
var EventTypes = []EventType{TypeMeeting, TypeDeadline, TypeHoliday, TypeTask, TypeReminder, TypeOther}

// ParseEventType maps a free-form label (e.g. an ICS CATEGORIES value) to
// an EventType. Unknown labels become TypeOther.
func ParseEventType(s string) EventType {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "meeting", "meetings", "call":
		return TypeMeeting
	case "deadline", "due":
		return TypeDeadline
	case "holiday", "holidays", "vacation", "leave":
		return TypeHoliday
	case "task", "tasks", "todo":
		return TypeTask
	case "reminder", "reminders":
		return TypeReminder
	default:
		return TypeOther
	}
}

// ColorTag is derived from the type and never stored.
func (t EventType) ColorTag() string {
	switch t {
	case TypeMeeting:
		return "blue"
	case TypeDeadline:
		return "red"
	case TypeHoliday:
		return "green"
	case TypeTask:
		return "orange"
	case TypeReminder:
		return "purple"
	default:
		return "gray"
	}
}

// Event is an immutable, already-fetched calendar entry.
type Event struct {
	ID     string    `json:"id"`
	Title  string    `json:"title"`
	Start  time.Time `json:"start"`
	End    time.Time `json:"end"`
	AllDay bool      `json:"all_day"`
	Type   EventType `json:"type"`

	Location      string `json:"location,omitempty"`
	AttendeeCount int    `json:"attendee_count,omitempty"`
}

func (e Event) ColorTag() string {
	return e.Type.ColorTag()
}

// Duration is End-Start.
func (e Event) Duration() time.Duration {
	return e.End.Sub(e.Start)
}

// Validate checks end >= start and day alignment of all-day events.
func (e Event) Validate() error {
	if e.ID == "" {
		return fmt.Errorf("%w: empty id", ErrInvalidEvent)
	}
	if e.Start.IsZero() || e.End.IsZero() {
		return fmt.Errorf("%w: %s: zero start or end", ErrInvalidEvent, e.ID)
	}
	if e.End.Before(e.Start) {
		return fmt.Errorf("%w: %s: end before start", ErrInvalidEvent, e.ID)
	}
	if e.AllDay && (!isMidnight(e.Start) || !isMidnight(e.End)) {
		return fmt.Errorf("%w: %s: all-day event not day-aligned", ErrInvalidEvent, e.ID)
	}
	return nil
}

func isMidnight(t time.Time) bool {
	return t.Hour() == 0 && t.Minute() == 0 && t.Second() == 0 && t.Nanosecond() == 0
}
