// Package web serves the calendar page, the event dialog, the assistant
// panel and a JSON API over the same store.
package web

import (
	"context"
	"crypto/subtle"
	"embed"
	"encoding/json"
	"errors"
	"html/template"
	"net/http"
	"time"

	"github.com/google/uuid"

	"gridcal/internal/assistant"
	"gridcal/internal/config"
	"gridcal/internal/form"
	"gridcal/internal/grid"
	appLog "gridcal/internal/log"
	"gridcal/internal/model"
	"gridcal/internal/store"
)

//go:embed templates/*.html
var templateFS embed.FS

// Options injects collaborators; zero values pick production defaults.
type Options struct {
	Now      func() time.Time
	NewID    func() string
	Location *time.Location
	// Assistant defaults to a session using cfg.AssistantDelay.
	Assistant *assistant.Session
}

// Server provides the HTML UI and the JSON API for one calendar.
type Server struct {
	cfg       *config.Config
	store     *store.Store
	assistant *assistant.Session
	loc       *time.Location
	grid      grid.Options
	now       func() time.Time
	newID     func() string

	mux  *http.ServeMux
	tmpl *template.Template
}

// NewServer constructs a Server over st.
func NewServer(cfg *config.Config, st *store.Store, opts Options) *Server {
	s := &Server{
		cfg:   cfg,
		store: st,
		loc:   opts.Location,
		now:   opts.Now,
		newID: opts.NewID,
		mux:   http.NewServeMux(),
	}
	if s.now == nil {
		s.now = time.Now
	}
	if s.newID == nil {
		s.newID = uuid.NewString
	}
	if s.loc == nil {
		loc, err := cfg.Location()
		if err != nil {
			appLog.Error("failed to load timezone; falling back to local", err, "name", cfg.Timezone)
		}
		s.loc = loc
	}
	s.grid = grid.Options{
		WeekStart:   cfg.WeekStartDay(),
		FirstHour:   cfg.FirstHour,
		LastHour:    cfg.LastHour,
		MaxPerCell:  grid.DefaultMaxPerCell,
		SortByStart: cfg.SortByStart,
	}
	s.assistant = opts.Assistant
	if s.assistant == nil {
		s.assistant = assistant.NewSession(assistant.Options{
			Delay: cfg.AssistantDelay,
			Now:   s.localNow,
			NewID: s.newID,
		})
	}
	s.tmpl = template.Must(template.New("").Funcs(s.templateFuncs()).ParseFS(templateFS, "templates/*.html"))
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

// ListenAndServe runs the server on cfg.Listen until ctx is cancelled, then
// shuts down gracefully.
func (s *Server) ListenAndServe(ctx context.Context) error {
	srv := &http.Server{
		Addr:              s.cfg.Listen,
		Handler:           s.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		appLog.Info("starting HTTP server", "listen", "http://"+s.cfg.Listen)
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	appLog.Info("shutting down HTTP server")
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return err
	}
	if err := <-errCh; !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

func (s *Server) localNow() time.Time {
	return s.now().In(s.loc)
}

func (s *Server) basicAuthEnabled() bool {
	if s.cfg == nil || s.cfg.BasicAuth == nil {
		return false
	}
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
			w.Header().Set("WWW-Authenticate", `Basic realm="gridcal", charset="UTF-8"`)
			http.Error(w, "Unauthorized", http.StatusUnauthorized)
			return
		}
		next.ServeHTTP(w, r)
	})
}

func secureCompare(a, b string) bool {
	if len(a) != len(b) {
		return false
	}
	return subtle.ConstantTimeCompare([]byte(a), []byte(b)) == 1
}

func (s *Server) registerRoutes() {
	s.mux.HandleFunc("GET /health", s.handleHealth)
	s.mux.HandleFunc("GET /preview.png", s.handlePreview)
	s.mux.HandleFunc("GET /calendar.ics", s.handleExport)

	s.mux.HandleFunc("GET /{$}", s.handleCalendar)
	s.mux.HandleFunc("GET /events/new", s.handleNewForm)
	s.mux.HandleFunc("GET /events/{id}/edit", s.handleEditForm)
	s.mux.HandleFunc("POST /events", s.handleCreate)
	s.mux.HandleFunc("POST /events/{id}", s.handleUpdate)
	s.mux.HandleFunc("POST /events/{id}/delete", s.handleDelete)
	s.mux.HandleFunc("POST /assistant", s.handleAssistant)

	s.mux.HandleFunc("GET /api/events", s.apiListEvents)
	s.mux.HandleFunc("POST /api/events", s.apiCreateEvent)
	s.mux.HandleFunc("GET /api/events/{id}", s.apiGetEvent)
	s.mux.HandleFunc("PUT /api/events/{id}", s.apiUpdateEvent)
	s.mux.HandleFunc("DELETE /api/events/{id}", s.apiDeleteEvent)
	s.mux.HandleFunc("GET /api/grid", s.apiGrid)
	s.mux.HandleFunc("GET /api/assistant/messages", s.apiMessages)
	s.mux.HandleFunc("POST /api/assistant/messages", s.apiSendMessage)
	s.mux.HandleFunc("POST /api/import", s.apiImport)
}

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("OK"))
}

// handlePreview serves the last captured PNG snapshot from disk.
func (s *Server) handlePreview(w http.ResponseWriter, r *http.Request) {
	http.ServeFile(w, r, s.cfg.SnapshotPath)
}

// statusFor maps domain errors onto HTTP status codes.
func statusFor(err error) int {
	switch {
	case errors.Is(err, store.ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, store.ErrDuplicateID):
		return http.StatusConflict
	case errors.Is(err, store.ErrEmptyID),
		errors.Is(err, model.ErrEmptyTitle),
		errors.Is(err, model.ErrEndBeforeStart),
		errors.Is(err, form.ErrIncomplete),
		errors.Is(err, form.ErrInvalid):
		return http.StatusUnprocessableEntity
	default:
		return http.StatusInternalServerError
	}
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
