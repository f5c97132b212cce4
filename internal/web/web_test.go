package web

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"calview/internal/calendar"
	"calview/internal/clock"
	"calview/internal/config"
	"calview/internal/model"
	"calview/internal/notify"
	"calview/internal/view"
)

var now = time.Date(2025, time.December, 20, 14, 30, 0, 0, time.UTC)

func fixtureEvents() []model.Event {
	at := func(day, hour int) time.Time { return time.Date(2025, time.December, day, hour, 0, 0, 0, time.UTC) }
	return []model.Event{
		{ID: "standup", Title: "Standup", Start: at(20, 9), End: at(20, 10), Type: model.TypeMeeting},
		{ID: "review", Title: "Review", Start: at(20, 9), End: at(20, 11), Type: model.TypeTask},
		{ID: "xmas", Title: "Christmas", Start: at(25, 0), End: at(26, 0), AllDay: true, Type: model.TypeHoliday},
	}
}

type testServer struct {
	srv     *Server
	engine  *calendar.Engine
	hub     *notify.Hub
	fetches *atomic.Int32
}

func newTestServer(t *testing.T, mutate func(*config.Config), fetchErr error) *testServer {
	t.Helper()
	cfg := config.DefaultConfig()
	cfg.Timezone = "UTC"
	cfg.Snapshot.Output = filepath.Join(t.TempDir(), "preview.png")
	if mutate != nil {
		mutate(cfg)
	}

	var fetches atomic.Int32
	fetcher := calendar.FetcherFunc(func(_ context.Context, start, end time.Time, f view.Filters) ([]model.Event, error) {
		fetches.Add(1)
		if fetchErr != nil {
			return nil, fetchErr
		}
		var out []model.Event
		for _, ev := range fixtureEvents() {
			if ev.Start.Before(end) && ev.End.After(start) {
				out = append(out, ev)
			}
		}
		return out, nil
	})

	engine := calendar.New(calendar.OptionsFromConfig(cfg, time.UTC), fetcher, clock.Fixed(now))
	hub := notify.NewHub()
	return &testServer{srv: NewServer(cfg, engine, hub), engine: engine, hub: hub, fetches: &fetches}
}

func (ts *testServer) do(t *testing.T, method, target string) *httptest.ResponseRecorder {
	t.Helper()
	rec := httptest.NewRecorder()
	ts.srv.Handler().ServeHTTP(rec, httptest.NewRequest(method, target, nil))
	return rec
}

func decode[T any](t *testing.T, rec *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &v))
	return v
}

func TestHealth(t *testing.T) {
	ts := newTestServer(t, nil, nil)
	rec := ts.do(t, http.MethodGet, "/health")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "OK", rec.Body.String())
}

func TestView_MountState(t *testing.T) {
	ts := newTestServer(t, nil, nil)
	rec := ts.do(t, http.MethodGet, "/api/view")
	require.Equal(t, http.StatusOK, rec.Code)

	got := decode[viewResponse](t, rec)
	assert.Equal(t, view.ModeMonth, got.State.Mode)
	assert.Equal(t, model.NewDate(2025, time.December, 20), got.State.Anchor)
	assert.Equal(t, model.NewDate(2025, time.November, 30), got.Key.Start)
	assert.Equal(t, model.NewDate(2026, time.January, 4), got.Key.End)
}

func TestSetMode_WeekRendersLayoutAndMarker(t *testing.T) {
	ts := newTestServer(t, nil, nil)
	rec := ts.do(t, http.MethodPost, "/api/view/mode?mode=week")
	require.Equal(t, http.StatusOK, rec.Code)

	rm := decode[calendar.RenderModel](t, rec)
	assert.Equal(t, view.ModeWeek, rm.State.Mode)
	assert.True(t, rm.Loaded)
	require.Contains(t, rm.Layout, "standup")
	assert.Equal(t, 720.0, rm.Layout["standup"].Top)
	assert.Equal(t, 80.0, rm.Layout["standup"].Height)
	require.NotNil(t, rm.MarkerOffset)
	assert.Equal(t, 14.5*80, *rm.MarkerOffset)
}

func TestBadInputsAre400(t *testing.T) {
	ts := newTestServer(t, nil, nil)
	for _, target := range []string{
		"/api/view/mode?mode=year",
		"/api/view/navigate?dir=sideways",
		"/api/view/filter?kind=color&value=red",
		"/api/view/filter?kind=type&value=party",
		"/api/view/anchor?date=2025-02-30",
		"/api/view/anchor?date=",
	} {
		rec := ts.do(t, http.MethodPost, target)
		assert.Equal(t, http.StatusBadRequest, rec.Code, target)
		assert.Contains(t, rec.Body.String(), `"error"`, target)
	}
	assert.Equal(t, model.NewDate(2025, time.December, 20), ts.engine.State().Anchor)
}

func TestNavigateAndAnchor(t *testing.T) {
	ts := newTestServer(t, nil, nil)

	rec := ts.do(t, http.MethodPost, "/api/view/navigate?dir=next")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, model.NewDate(2026, time.January, 20), ts.engine.State().Anchor)

	rec = ts.do(t, http.MethodPost, "/api/view/anchor?date=2025-03-31")
	require.Equal(t, http.StatusOK, rec.Code)
	rm := decode[calendar.RenderModel](t, rec)
	assert.Equal(t, model.NewDate(2025, time.March, 31), rm.State.Anchor)
	assert.Nil(t, rm.MarkerOffset)

	rec = ts.do(t, http.MethodPost, "/api/view/reset")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, view.Initial(model.NewDate(2025, time.December, 20)), ts.engine.State())
}

func TestFilter_TypeAppliedToRender(t *testing.T) {
	ts := newTestServer(t, nil, nil)
	rec := ts.do(t, http.MethodPost, "/api/view/filter?kind=type&value=holiday")
	require.Equal(t, http.StatusOK, rec.Code)

	rm := decode[calendar.RenderModel](t, rec)
	assert.Equal(t, model.TypeHoliday, rm.Key.Type)
	assert.Equal(t, 1, rm.Buckets.Len())
	assert.Len(t, rm.Buckets.Get(model.NewDate(2025, time.December, 25)), 1)
}

func TestRender_FetchFailureStillRenders(t *testing.T) {
	ts := newTestServer(t, nil, errors.New("backend down"))
	rec := ts.do(t, http.MethodGet, "/api/render")
	require.Equal(t, http.StatusOK, rec.Code)

	rm := decode[calendar.RenderModel](t, rec)
	assert.True(t, rm.Loaded)
	assert.Contains(t, rm.FetchError, "backend down")
	assert.Len(t, rm.Cells, 35)
	assert.Zero(t, rm.Buckets.Len())
}

func TestRender_CachedUntilForced(t *testing.T) {
	ts := newTestServer(t, nil, nil)
	ts.do(t, http.MethodGet, "/api/render")
	ts.do(t, http.MethodGet, "/api/render")
	assert.Equal(t, int32(1), ts.fetches.Load())

	ts.do(t, http.MethodGet, "/api/render?refresh=1")
	assert.Equal(t, int32(2), ts.fetches.Load())
}

func TestMarker(t *testing.T) {
	ts := newTestServer(t, nil, nil)

	rec := ts.do(t, http.MethodGet, "/api/marker")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Nil(t, decode[markerResponse](t, rec).Marker, "month view has no marker")

	ts.engine.SetMode(view.ModeDay)
	rec = ts.do(t, http.MethodGet, "/api/marker")
	m := decode[markerResponse](t, rec).Marker
	require.NotNil(t, m)
	assert.Equal(t, 0, m.Column)
	assert.Equal(t, 1160.0, m.Offset)
}

func TestMutated_PublishesToHub(t *testing.T) {
	ts := newTestServer(t, nil, nil)
	var got []notify.Mutation
	ts.hub.Subscribe(func(m notify.Mutation) { got = append(got, m) })

	rec := ts.do(t, http.MethodPost, "/api/events/mutated?kind=deleted&id=standup")
	require.Equal(t, http.StatusAccepted, rec.Code)
	require.Len(t, got, 1)
	assert.Equal(t, notify.Deleted, got[0].Kind)
	assert.Equal(t, "standup", got[0].EventID)
}

func TestCalendarPage(t *testing.T) {
	ts := newTestServer(t, nil, nil)

	rec := ts.do(t, http.MethodGet, "/calendar")
	require.Equal(t, http.StatusOK, rec.Code)
	body := rec.Body.String()
	assert.Contains(t, body, `data-ready="true"`)
	assert.Contains(t, body, "December 2025")
	assert.Contains(t, body, "Christmas")

	ts.engine.SetMode(view.ModeWeek)
	body = ts.do(t, http.MethodGet, "/calendar").Body.String()
	assert.Contains(t, body, `class="marker"`)
	assert.Contains(t, body, `data-event="standup"`)
	assert.Contains(t, body, "top: 720.0px")

	ts.engine.SetMode(view.ModeAgenda)
	body = ts.do(t, http.MethodGet, "/calendar").Body.String()
	assert.Contains(t, body, "Saturday, December 20")
	assert.Contains(t, body, "09:00-10:00")
}

func TestCalendarPage_ColumnsOverlap(t *testing.T) {
	ts := newTestServer(t, func(c *config.Config) { c.Timeline.Overlap = "columns" }, nil)
	ts.engine.SetMode(view.ModeDay)

	body := ts.do(t, http.MethodGet, "/calendar").Body.String()
	assert.Contains(t, body, "width: 50.000%")
	assert.Contains(t, body, "left: 50.000%")
}

func TestPreview(t *testing.T) {
	ts := newTestServer(t, nil, nil)
	assert.Equal(t, http.StatusNotFound, ts.do(t, http.MethodGet, "/preview.png").Code)

	require.NoError(t, os.WriteFile(ts.srv.cfg.Snapshot.Output, []byte("\x89PNG\r\n\x1a\n"), 0o600))
	rec := ts.do(t, http.MethodGet, "/preview.png")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "image/png", rec.Header().Get("Content-Type"))
}

func TestBasicAuth(t *testing.T) {
	ts := newTestServer(t, func(c *config.Config) {
		c.BasicAuth = &config.BasicAuthConfig{Username: "admin", Password: "secret"}
	}, nil)

	assert.Equal(t, http.StatusOK, ts.do(t, http.MethodGet, "/health").Code)

	rec := ts.do(t, http.MethodGet, "/api/view")
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.True(t, strings.HasPrefix(rec.Header().Get("WWW-Authenticate"), "Basic"))

	req := httptest.NewRequest(http.MethodGet, "/api/view", nil)
	req.SetBasicAuth("admin", "secret")
	rec = httptest.NewRecorder()
	ts.srv.Handler().ServeHTTP(rec, req)
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestMethodNotAllowed(t *testing.T) {
	ts := newTestServer(t, nil, nil)
	assert.Equal(t, http.StatusMethodNotAllowed, ts.do(t, http.MethodGet, "/api/view/mode?mode=day").Code)
}
