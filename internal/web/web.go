package web

import (
	"context"
	"crypto/subtle"
	"encoding/json"
	"errors"
	"html/template"
	"net/http"

	"calview/internal/calendar"
	"calview/internal/config"
	appLog "calview/internal/log"
	"calview/internal/notify"
)

// Server exposes the calendar engine over HTTP: a JSON API for view state
// and render models, an HTML page for browsers and snapshot capture, and
// the last captured PNG.
type Server struct {
	cfg    *config.Config
	engine *calendar.Engine
	hub    *notify.Hub
	mux    *http.ServeMux
	page   *template.Template
}

// NewServer constructs a new Server. hub may be nil, in which case
// /api/events/mutated is answered with 503.
func NewServer(cfg *config.Config, engine *calendar.Engine, hub *notify.Hub) *Server {
	s := &Server{
		cfg:    cfg,
		engine: engine,
		hub:    hub,
		mux:    http.NewServeMux(),
		page:   calendarTemplate,
	}
	s.registerRoutes()
	return s
}

// Handler returns the underlying http.Handler for this server.
func (s *Server) Handler() http.Handler {
	h := http.Handler(s.mux)
	if s.basicAuthEnabled() {
		appLog.Info("HTTP basic auth enabled", "listen", "http://"+s.cfg.Listen)
		return s.basicAuthMiddleware(h)
	}
	return h
}

func (s *Server) basicAuthEnabled() bool {
	if s.cfg == nil || s.cfg.BasicAuth == nil {
		return false
	}
	// Empty username or password disables auth.
	return s.cfg.BasicAuth.Username != "" && s.cfg.BasicAuth.Password != ""
}

// basicAuthMiddleware wraps all handlers except /health with HTTP Basic Auth.
func (s *Server) basicAuthMiddleware(next http.Handler) http.Handler {
	username := s.cfg.BasicAuth.Username
	password := s.cfg.BasicAuth.Password

	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/health" {
			next.ServeHTTP(w, r)
			return
		}

		u, p, ok := r.BasicAuth()
		if !ok || !secureCompare(u, username) || !secureCompare(p, password) {
			w.Header().Set("WWW-Authenticate", `Basic realm="calview", charset="UTF-8"`)
			http.Error(w, "Unauthorized", http.StatusUnauthorized)
			return
		}
		next.ServeHTTP(w, r)
	})
}

// secureCompare compares two strings in constant time.
func secureCompare(a, b string) bool {
	if len(a) != len(b) {
		return false
	}
	return subtle.ConstantTimeCompare([]byte(a), []byte(b)) == 1
}

func (s *Server) registerRoutes() {
	s.mux.HandleFunc("GET /health", s.handleHealth)

	s.mux.HandleFunc("GET /api/view", s.handleView)
	s.mux.HandleFunc("POST /api/view/mode", s.handleSetMode)
	s.mux.HandleFunc("POST /api/view/navigate", s.handleNavigate)
	s.mux.HandleFunc("POST /api/view/filter", s.handleSetFilter)
	s.mux.HandleFunc("POST /api/view/anchor", s.handleSetAnchor)
	s.mux.HandleFunc("POST /api/view/reset", s.handleReset)
	s.mux.HandleFunc("GET /api/render", s.handleRender)
	s.mux.HandleFunc("GET /api/marker", s.handleMarker)
	s.mux.HandleFunc("POST /api/events/mutated", s.handleMutated)

	s.mux.HandleFunc("GET /calendar", s.handleCalendarPage)
	s.mux.HandleFunc("GET /preview.png", s.handlePreview)
	s.mux.Handle("GET /{$}", http.RedirectHandler("/calendar", http.StatusFound))
}

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("OK"))
}

// handlePreview serves the last captured PNG snapshot from disk.
func (s *Server) handlePreview(w http.ResponseWriter, r *http.Request) {
	// http.ServeFile answers 404 for a missing file.
	http.ServeFile(w, r, s.cfg.Snapshot.Output)
}

// render refreshes the current range unless it is already loaded and
// returns the render model. Fetch failures are reported inside the model.
func (s *Server) render(ctx context.Context, force bool) calendar.RenderModel {
	if !force {
		if rm := s.engine.Render(); rm.Loaded {
			return rm
		}
	}
	if err := s.engine.Refresh(ctx); err != nil && !errors.Is(err, calendar.ErrStale) && !errors.Is(err, calendar.ErrFetchFailed) {
		appLog.Error("web refresh failed", err)
	}
	return s.engine.Render()
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		appLog.Error("failed to write JSON response", err)
	}
}

func writeError(w http.ResponseWriter, status int, msg string) {
	type errResp struct {
		Error string `json:"error"`
	}
	writeJSON(w, status, errResp{Error: msg})
}
