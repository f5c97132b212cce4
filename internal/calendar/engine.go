// Package calendar hosts the view computation engine for one calendar
// screen: it owns the view state, issues range fetches to the event
// collaborator, guards against stale responses and builds render models.
package calendar

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"

	"calview/internal/clock"
	"calview/internal/config"
	"calview/internal/layout"
	appLog "calview/internal/log"
	"calview/internal/marker"
	"calview/internal/model"
	"calview/internal/notify"
	"calview/internal/timegrid"
	"calview/internal/view"
)

var (
	// ErrFetchFailed wraps any error returned by the Fetcher.
	ErrFetchFailed = errors.New("fetch failed")
	// ErrStale is returned by Refresh when its response was discarded
	// because the view moved on while the fetch was in flight.
	ErrStale = errors.New("stale fetch response discarded")
)

// Fetcher is the event-fetch collaborator. [start, end) is half-open.
// Timeouts and retries are its own business.
type Fetcher interface {
	FetchEvents(ctx context.Context, start, end time.Time, filters view.Filters) ([]model.Event, error)
}

type FetcherFunc func(ctx context.Context, start, end time.Time, filters view.Filters) ([]model.Event, error)

func (f FetcherFunc) FetchEvents(ctx context.Context, start, end time.Time, filters view.Filters) ([]model.Event, error) {
	return f(ctx, start, end, filters)
}

// Notifier delivers "event mutated" signals; see notify.Hub.
type Notifier interface {
	Subscribe(fn func(notify.Mutation)) (cancel func())
}

type Options struct {
	// Location is the user's local zone for day bucketing and the marker.
	Location         *time.Location
	WeekStart        time.Weekday
	AgendaDays       int
	MaxEventsPerCell int
	Layout           layout.Config
}

func (o Options) withDefaults() Options {
	if o.Location == nil {
		o.Location = time.Local
	}
	if o.AgendaDays < 1 {
		o.AgendaDays = view.DefaultAgendaDays
	}
	if o.MaxEventsPerCell == 0 {
		o.MaxEventsPerCell = layout.DefaultMaxEventsPerCell
	}
	d := layout.DefaultConfig()
	if o.Layout.PixelsPerHour <= 0 {
		o.Layout.PixelsPerHour = d.PixelsPerHour
	}
	if o.Layout.MinimumBlockHeight <= 0 {
		o.Layout.MinimumBlockHeight = d.MinimumBlockHeight
	}
	if o.Layout.AllDayLaneHeight <= 0 {
		o.Layout.AllDayLaneHeight = d.AllDayLaneHeight
	}
	if o.Layout.Overlap == "" {
		o.Layout.Overlap = d.Overlap
	}
	return o
}

// OptionsFromConfig maps the configuration file onto engine options.
func OptionsFromConfig(cfg *config.Config, loc *time.Location) Options {
	return Options{
		Location:         loc,
		WeekStart:        timegrid.ParseWeekStart(cfg.WeekStart),
		AgendaDays:       cfg.AgendaDays,
		MaxEventsPerCell: cfg.Month.MaxEventsPerCell,
		Layout: layout.Config{
			PixelsPerHour:      cfg.Timeline.PixelsPerHour,
			MinimumBlockHeight: cfg.Timeline.MinimumBlockHeight,
			AllDayLaneHeight:   cfg.Timeline.AllDayLaneHeight,
			Overlap:            layout.OverlapMode(cfg.Timeline.Overlap),
		},
	}
}

type Engine struct {
	opts    Options
	clock   clock.Clock
	grid    timegrid.Grid
	nav     view.Navigator
	fetcher Fetcher

	mu    sync.Mutex
	state view.State
	key   view.RangeKey

	// issued numbers every fetch; appliedSeq is the newest one applied and
	// appliedID its ticket, which also tags the fetch's log lines.
	issued     uint64
	appliedSeq uint64
	appliedID  string

	// Last-known-good events and the key they were fetched for.
	events    []model.Event
	loadedKey view.RangeKey
	loaded    bool
	lastErr   error

	marker *marker.Marker
}

// New creates an engine in the mount state {today, month}. The clock should
// already report time in opts.Location.
func New(opts Options, fetcher Fetcher, clk clock.Clock) *Engine {
	opts = opts.withDefaults()
	if clk == nil {
		clk = clock.System(opts.Location)
	}
	e := &Engine{
		opts:    opts,
		clock:   clk,
		grid:    timegrid.New(opts.WeekStart, clk),
		nav:     view.Navigator{Clock: clk, AgendaDays: opts.AgendaDays},
		fetcher: fetcher,
	}
	e.setStateLocked(view.Initial(e.today()))
	return e
}

func (e *Engine) today() model.Date {
	return model.DateOf(e.clock.Now().In(e.opts.Location))
}

func (e *Engine) Options() Options {
	return e.opts
}

func (e *Engine) State() view.State {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.state
}

// Key is the range key of the current state.
func (e *Engine) Key() view.RangeKey {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.key
}

// setStateLocked installs s and recomputes the key. The anchor is always
// valid (clamped) so the key computation cannot fail.
func (e *Engine) setStateLocked(s view.State) {
	key, err := s.Key(e.grid, e.opts.AgendaDays)
	if err != nil {
		s = s.WithAnchor(timegrid.Clamp(s.Anchor))
		key, _ = s.Key(e.grid, e.opts.AgendaDays)
	}
	e.state = s
	e.key = key
}

func (e *Engine) transition(fn func(view.State) (view.State, error)) (view.State, error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	next, err := fn(e.state)
	if err != nil {
		return e.state, err
	}
	prev := e.key
	e.setStateLocked(next)
	if prev != e.key {
		appLog.Debug("calendar view changed", "mode", e.state.Mode, "anchor", e.state.Anchor, "key", e.key)
	}
	return e.state, nil
}

// Reset returns to the mount state.
func (e *Engine) Reset() view.State {
	s, _ := e.transition(func(view.State) (view.State, error) {
		return view.Initial(e.today()), nil
	})
	return s
}

func (e *Engine) SetMode(m view.Mode) view.State {
	s, _ := e.transition(func(s view.State) (view.State, error) {
		return s.WithMode(m), nil
	})
	return s
}

func (e *Engine) Navigate(dir view.Direction) view.State {
	s, _ := e.transition(func(s view.State) (view.State, error) {
		return s.Navigate(e.nav, dir), nil
	})
	return s
}

// SetAnchor jumps to d. Malformed dates fail with model.ErrInvalidDate and
// never fall back to today.
func (e *Engine) SetAnchor(d model.Date) (view.State, error) {
	if err := d.Validate(); err != nil {
		return e.State(), err
	}
	return e.transition(func(s view.State) (view.State, error) {
		return s.WithAnchor(d), nil
	})
}

func (e *Engine) SetFilter(kind view.FilterKind, value string) (view.State, error) {
	return e.transition(func(s view.State) (view.State, error) {
		return s.WithFilter(kind, value)
	})
}

// Refresh fetches events for the current range key and applies them unless
// the view changed while the fetch was in flight (ErrStale). Collaborator
// errors come back wrapped in ErrFetchFailed; the engine keeps rendering.
func (e *Engine) Refresh(ctx context.Context) error {
	e.mu.Lock()
	key := e.key
	filters := e.state.Filters
	e.issued++
	seq := e.issued
	e.mu.Unlock()

	ticket := uuid.NewString()
	start, end := key.Range().Bounds(e.opts.Location)
	appLog.Debug("calendar fetch issued", "ticket", ticket, "seq", seq, "key", key)

	var (
		events []model.Event
		err    error
	)
	if e.fetcher != nil {
		events, err = e.fetcher.FetchEvents(ctx, start, end, filters)
	}
	return e.apply(ticket, seq, key, events, err)
}

func (e *Engine) apply(ticket string, seq uint64, key view.RangeKey, events []model.Event, fetchErr error) error {
	e.mu.Lock()
	defer e.mu.Unlock()

	if key != e.key || seq < e.appliedSeq {
		appLog.Debug("calendar fetch discarded", "ticket", ticket, "seq", seq, "key", key, "current", e.key)
		return ErrStale
	}
	e.appliedSeq = seq
	e.appliedID = ticket

	if fetchErr != nil {
		if e.loadedKey != key {
			// Nothing known-good for this range: render it empty.
			e.events = nil
			e.loadedKey = key
		}
		e.loaded = true
		e.lastErr = fetchErr
		appLog.Error("calendar fetch failed", fetchErr, "ticket", ticket, "key", key)
		return fmt.Errorf("%w: %w", ErrFetchFailed, fetchErr)
	}

	kept, dropped := filterEvents(events, e.state.Filters)
	if dropped > 0 {
		appLog.Warn("calendar dropped invalid events", "ticket", ticket, "dropped", dropped)
	}
	e.events = kept
	e.loadedKey = key
	e.loaded = true
	e.lastErr = nil
	appLog.Debug("calendar fetch applied", "ticket", ticket, "seq", seq, "events", len(kept))
	return nil
}

// RefreshAsync runs Refresh on its own goroutine; the result is logged.
func (e *Engine) RefreshAsync(ctx context.Context) {
	go func() {
		if err := e.Refresh(ctx); err != nil && !errors.Is(err, ErrStale) && !errors.Is(err, ErrFetchFailed) {
			appLog.Error("calendar refresh failed", err)
		}
	}()
}

// Watch re-fetches the current range on every mutation delivered by n.
func (e *Engine) Watch(ctx context.Context, n Notifier) (cancel func()) {
	return n.Subscribe(func(m notify.Mutation) {
		appLog.Info("calendar mutation received", "kind", m.Kind, "event_id", m.EventID, "source", m.Source)
		e.RefreshAsync(ctx)
	})
}

// Render builds the render model for the current state. Events only show
// when they were fetched for the current key; otherwise the grid is empty.
func (e *Engine) Render() RenderModel {
	e.mu.Lock()
	in := buildInput{
		state: e.state,
		key:   e.key,
		now:   e.clock.Now().In(e.opts.Location),
	}
	if e.loaded && e.loadedKey == e.key {
		in.events = e.events
		in.loaded = true
		in.err = e.lastErr
		in.fetchID = e.appliedID
	}
	e.mu.Unlock()

	return build(e.opts, in)
}

// Tick recomputes the current-time marker. The host calls it on a fixed
// schedule; it returns nil outside timeline modes or when today is not
// visible.
func (e *Engine) Tick() *marker.Marker {
	now := e.clock.Now().In(e.opts.Location)

	e.mu.Lock()
	defer e.mu.Unlock()

	var next *marker.Marker
	if e.state.Mode.IsTimeline() {
		if m, ok := marker.Compute(now, e.key.Range(), e.opts.Layout.PixelsPerHour); ok {
			next = &m
		}
	}
	if (e.marker == nil) != (next == nil) {
		appLog.Debug("calendar marker visibility changed", "visible", next != nil)
	}
	e.marker = next
	if next == nil {
		return nil
	}
	m := *next
	return &m
}

// Marker returns the value computed by the last Tick.
func (e *Engine) Marker() *marker.Marker {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.marker == nil {
		return nil
	}
	m := *e.marker
	return &m
}
