package web

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"time"

	"gridcal/internal/assistant"
	"gridcal/internal/grid"
	"gridcal/internal/ics"
	appLog "gridcal/internal/log"
	"gridcal/internal/model"
	"gridcal/internal/nav"
)

const maxImportBytes = 5 << 20

// apiListEvents returns every event, or only those starting on ?date=.
func (s *Server) apiListEvents(w http.ResponseWriter, r *http.Request) {
	events := s.store.List()
	if d := r.URL.Query().Get("date"); d != "" {
		day, err := time.ParseInLocation(nav.DateLayout, d, s.loc)
		if err != nil {
			writeError(w, http.StatusBadRequest, "date must be YYYY-MM-DD")
			return
		}
		events = grid.EventsOn(events, day)
	}
	writeJSON(w, http.StatusOK, events)
}

func (s *Server) apiGetEvent(w http.ResponseWriter, r *http.Request) {
	ev, ok := s.store.Get(r.PathValue("id"))
	if !ok {
		writeError(w, http.StatusNotFound, "event not found")
		return
	}
	writeJSON(w, http.StatusOK, ev)
}

// apiCreateEvent adds the posted event. A missing id is generated.
func (s *Server) apiCreateEvent(w http.ResponseWriter, r *http.Request) {
	var ev model.Event
	if err := json.NewDecoder(r.Body).Decode(&ev); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}
	if ev.ID == "" {
		ev.ID = s.newID()
	}
	if err := s.store.Add(ev); err != nil {
		writeError(w, statusFor(err), err.Error())
		return
	}
	ev, _ = s.store.Get(ev.ID)
	writeJSON(w, http.StatusCreated, ev)
}

// apiUpdateEvent replaces the event at the path id; the body id is ignored.
func (s *Server) apiUpdateEvent(w http.ResponseWriter, r *http.Request) {
	var ev model.Event
	if err := json.NewDecoder(r.Body).Decode(&ev); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}
	ev.ID = r.PathValue("id")
	if err := s.store.Update(ev); err != nil {
		writeError(w, statusFor(err), err.Error())
		return
	}
	ev, _ = s.store.Get(ev.ID)
	writeJSON(w, http.StatusOK, ev)
}

func (s *Server) apiDeleteEvent(w http.ResponseWriter, r *http.Request) {
	if err := s.store.Remove(r.PathValue("id")); err != nil {
		writeError(w, statusFor(err), err.Error())
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

type gridResponse struct {
	View      model.View      `json:"view"`
	Date      string          `json:"date"`
	Title     string          `json:"title"`
	WeekStart string          `json:"week_start"`
	Month     *grid.MonthGrid `json:"month,omitempty"`
	Time      *grid.TimeGrid  `json:"time,omitempty"`
}

// apiGrid returns the grid for ?view= and ?date=, the same one the page
// renders.
func (s *Server) apiGrid(w http.ResponseWriter, r *http.Request) {
	p := s.page(s.state(r.URL.Query()))
	writeJSON(w, http.StatusOK, gridResponse{
		View:      p.State.View,
		Date:      p.State.Date.Format(nav.DateLayout),
		Title:     p.Title,
		WeekStart: s.grid.WeekStart.String(),
		Month:     p.Month,
		Time:      p.Time,
	})
}

func (s *Server) apiMessages(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, s.assistant.Messages())
}

type messageRequest struct {
	Message string `json:"message"`
}

type messageResponse struct {
	Reply    assistant.Reply `json:"reply"`
	Messages []model.Message `json:"messages"`
}

func (s *Server) apiSendMessage(w http.ResponseWriter, r *http.Request) {
	var req messageRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}

	rep, err := s.assistant.Send(r.Context(), req.Message, s.store)
	switch {
	case errors.Is(err, assistant.ErrEmptyInput):
		writeError(w, http.StatusBadRequest, err.Error())
		return
	case err != nil:
		appLog.Debug("assistant request abandoned", "reason", err)
		return
	}
	s.addProposed(rep)
	writeJSON(w, http.StatusOK, messageResponse{Reply: rep, Messages: s.assistant.Messages()})
}

// handleExport serves the whole store as an iCalendar feed.
func (s *Server) handleExport(w http.ResponseWriter, _ *http.Request) {
	body := ics.Encode(s.store.List(), s.now())
	w.Header().Set("Content-Type", "text/calendar; charset=utf-8")
	w.Header().Set("Content-Disposition", `attachment; filename="calendar.ics"`)
	_, _ = w.Write(body)
}

type importResponse struct {
	Added   int `json:"added"`
	Updated int `json:"updated"`
	Skipped int `json:"skipped"`
}

// apiImport merges an uploaded ICS body into the store. ?source= prefixes
// the imported ids; importing the same feed again updates in place.
func (s *Server) apiImport(w http.ResponseWriter, r *http.Request) {
	body, err := io.ReadAll(http.MaxBytesReader(w, r.Body, maxImportBytes))
	if err != nil {
		writeError(w, http.StatusRequestEntityTooLarge, "import body too large")
		return
	}
	events, err := ics.Decode(ics.Source{ID: r.URL.Query().Get("source")}, body)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid ICS: "+err.Error())
		return
	}

	resp := s.merge(events)
	appLog.Info("ics import completed", "added", resp.Added, "updated", resp.Updated, "skipped", resp.Skipped)
	writeJSON(w, http.StatusOK, resp)
}

// merge adds new events and replaces ones whose id is already stored.
func (s *Server) merge(events []model.Event) importResponse {
	var resp importResponse
	for _, ev := range events {
		added, err := s.store.Upsert(ev)
		switch {
		case err != nil:
			appLog.Warn("imported event skipped", "id", ev.ID, "reason", err)
			resp.Skipped++
		case added:
			resp.Added++
		default:
			resp.Updated++
		}
	}
	return resp
}
