package ics

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"calview/internal/config"
	appLog "calview/internal/log"
	"calview/internal/model"
	"calview/internal/view"
)

// ErrNoSources is returned by Provider.FetchEvents when nothing is configured.
var ErrNoSources = errors.New("no ics sources configured")

// Provider fetches, parses and expands ICS feeds into calendar events for a
// half-open range. It satisfies the calendar engine's fetch collaborator.
type Provider struct {
	fetcher *Fetcher
	sources []Source
	loc     *time.Location
}

func NewProvider(f *Fetcher, sources []Source, loc *time.Location) *Provider {
	if loc == nil {
		loc = time.Local
	}
	return &Provider{fetcher: f, sources: sources, loc: loc}
}

// SourcesFromConfig converts configured subscriptions, skipping entries
// without a URL and defaulting the ID to the URL.
func SourcesFromConfig(cfgs []config.ICSConfig) []Source {
	sources := make([]Source, 0, len(cfgs))
	for _, c := range cfgs {
		if c.URL == "" {
			continue
		}
		id := c.ID
		if id == "" {
			id = c.URL
		}
		sources = append(sources, Source{ID: id, URL: c.URL})
	}
	return sources
}

// FetchEvents returns every occurrence overlapping [start, end) that passes
// filters. A source that fails is logged and skipped; the call only fails
// when no source produced a payload.
func (p *Provider) FetchEvents(ctx context.Context, start, end time.Time, filters view.Filters) ([]model.Event, error) {
	if len(p.sources) == 0 {
		return nil, ErrNoSources
	}

	results, errs := p.fetcher.FetchAll(ctx, p.sources)
	if len(results) == 0 && len(errs) > 0 {
		return nil, errors.Join(errs...)
	}

	parsed := make([]ParsedEvent, 0)
	for _, res := range results {
		evs, err := ParseICS(res.Source, res.Body)
		if err != nil {
			continue
		}
		parsed = append(parsed, evs...)
	}

	expanded, err := ExpandOccurrences(parsed, ExpandConfig{
		DisplayLocation: p.loc,
		RangeStart:      start,
		RangeEnd:        end,
	})
	if err != nil {
		return nil, fmt.Errorf("expand: %w", err)
	}

	events := make([]model.Event, 0, len(expanded.Occurrences))
	for _, occ := range expanded.Occurrences {
		ev := toEvent(occ)
		if err := ev.Validate(); err != nil {
			appLog.Warn("ics provider dropped event", "id", ev.ID, "err", err)
			continue
		}
		if filters.Type != "" && ev.Type != filters.Type {
			continue
		}
		if filters.Member != "" && !hasMember(occ.Attendees, filters.Member) {
			continue
		}
		events = append(events, ev)
	}

	appLog.Debug("ics provider fetched",
		"start", start.Format(time.RFC3339),
		"end", end.Format(time.RFC3339),
		"sources", len(results),
		"events", len(events),
	)
	return events, nil
}

func toEvent(occ Occurrence) model.Event {
	return model.Event{
		ID:            occ.ID(),
		Title:         occ.Summary,
		Start:         occ.Start,
		End:           occ.End,
		AllDay:        occ.AllDay,
		Type:          eventType(occ.Categories),
		Location:      occ.Location,
		AttendeeCount: countAttendees(occ.Attendees),
	}
}

// eventType picks the first category that maps to a known type.
func eventType(categories []string) model.EventType {
	for _, c := range categories {
		if t := model.ParseEventType(c); t != model.TypeOther {
			return t
		}
	}
	return model.TypeOther
}

// countAttendees counts e-mail keys; CN values are aliases of the same person.
func countAttendees(keys []string) int {
	n := 0
	for _, k := range keys {
		if strings.Contains(k, "@") {
			n++
		}
	}
	return n
}

func hasMember(keys []string, member string) bool {
	member = strings.ToLower(strings.TrimSpace(member))
	for _, k := range keys {
		if strings.Contains(k, member) {
			return true
		}
	}
	return false
}
