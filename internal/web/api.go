package web

import (
	"errors"
	"net/http"
	"strings"

	appLog "calview/internal/log"
	"calview/internal/marker"
	"calview/internal/model"
	"calview/internal/notify"
	"calview/internal/view"
)

type viewResponse struct {
	State view.State    `json:"state"`
	Key   view.RangeKey `json:"key"`
}

type markerResponse struct {
	Marker *marker.Marker `json:"marker"`
}

// GET /api/view
func (s *Server) handleView(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, viewResponse{State: s.engine.State(), Key: s.engine.Key()})
}

// POST /api/view/mode?mode=day|week|month|agenda
func (s *Server) handleSetMode(w http.ResponseWriter, r *http.Request) {
	m, err := view.ParseMode(r.URL.Query().Get("mode"))
	if err != nil {
		writeBadRequest(w, err)
		return
	}
	s.engine.SetMode(m)
	writeJSON(w, http.StatusOK, s.render(r.Context(), false))
}

// POST /api/view/navigate?dir=prev|next|today
func (s *Server) handleNavigate(w http.ResponseWriter, r *http.Request) {
	d, err := view.ParseDirection(r.URL.Query().Get("dir"))
	if err != nil {
		writeBadRequest(w, err)
		return
	}
	s.engine.Navigate(d)
	writeJSON(w, http.StatusOK, s.render(r.Context(), false))
}

// POST /api/view/filter?kind=member|type&value=
func (s *Server) handleSetFilter(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	kind := view.FilterKind(strings.ToLower(q.Get("kind")))
	if _, err := s.engine.SetFilter(kind, q.Get("value")); err != nil {
		writeBadRequest(w, err)
		return
	}
	writeJSON(w, http.StatusOK, s.render(r.Context(), false))
}

// POST /api/view/anchor?date=YYYY-MM-DD
func (s *Server) handleSetAnchor(w http.ResponseWriter, r *http.Request) {
	d, err := model.ParseDate(r.URL.Query().Get("date"))
	if err == nil {
		_, err = s.engine.SetAnchor(d)
	}
	if err != nil {
		writeBadRequest(w, err)
		return
	}
	writeJSON(w, http.StatusOK, s.render(r.Context(), false))
}

// POST /api/view/reset
func (s *Server) handleReset(w http.ResponseWriter, r *http.Request) {
	s.engine.Reset()
	writeJSON(w, http.StatusOK, s.render(r.Context(), false))
}

// GET /api/render[?refresh=1]
func (s *Server) handleRender(w http.ResponseWriter, r *http.Request) {
	force := r.URL.Query().Get("refresh") == "1"
	writeJSON(w, http.StatusOK, s.render(r.Context(), force))
}

// GET /api/marker recomputes the marker for the current view.
func (s *Server) handleMarker(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, markerResponse{Marker: s.engine.Tick()})
}

// POST /api/events/mutated?kind=created|updated|deleted&id=
//
// External systems that change events call this so every watcher
// re-fetches its current range.
func (s *Server) handleMutated(w http.ResponseWriter, r *http.Request) {
	if s.hub == nil {
		writeError(w, http.StatusServiceUnavailable, "mutation notifications are not enabled")
		return
	}
	q := r.URL.Query()
	m := notify.Mutation{
		Kind:    notify.ParseKind(q.Get("kind")),
		EventID: q.Get("id"),
		Source:  "api",
	}
	appLog.Info("api event mutation", "kind", m.Kind, "event_id", m.EventID)
	s.hub.Publish(m)
	writeJSON(w, http.StatusAccepted, m)
}

// writeBadRequest maps input errors to 400; anything else is a 500.
func writeBadRequest(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, model.ErrInvalidDate),
		errors.Is(err, view.ErrUnknownMode),
		errors.Is(err, view.ErrUnknownDirection),
		errors.Is(err, view.ErrUnknownFilter):
		writeError(w, http.StatusBadRequest, err.Error())
	default:
		appLog.Error("api request failed", err)
		writeError(w, http.StatusInternalServerError, "internal error")
	}
}
