package web

import (
	"bytes"
	"errors"
	"html/template"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"gridcal/internal/assistant"
	"gridcal/internal/form"
	"gridcal/internal/grid"
	appLog "gridcal/internal/log"
	"gridcal/internal/model"
	"gridcal/internal/nav"
)

// templateFuncs formats times in the calendar's display location, the same
// one the grids bucket by.
func (s *Server) templateFuncs() template.FuncMap {
	return template.FuncMap{
		"clock": func(t time.Time) string { return t.In(s.loc).Format("3:04 PM") },
		"hour": func(h int) string {
			return time.Date(2000, 1, 1, h, 0, 0, 0, time.UTC).Format("3 PM")
		},
	}
}

type viewLink struct {
	Label  string
	URL    string
	Active bool
}

// dialog is the open event form, if any.
type dialog struct {
	Form       *form.Form
	Editing    bool
	Action     string
	DeleteURL  string
	CancelURL  string
	Error      string
	Ready      bool
	Categories []model.Category
}

type pageData struct {
	State        nav.State
	Title        string
	PrevURL      string
	NextURL      string
	TodayURL     string
	AssistantURL string
	MessageURL   string
	Views        []viewLink
	Weekdays     []string
	Month        *grid.MonthGrid
	Time         *grid.TimeGrid
	Messages     []model.Message
	Dialog       *dialog
}

// NewURL opens a create dialog for day; hour < 0 means the whole day.
func (p pageData) NewURL(day time.Time, hour int) string {
	q := url.Values{}
	q.Set("view", string(p.State.View))
	q.Set("date", day.Format(nav.DateLayout))
	if hour >= 0 {
		q.Set("hour", strconv.Itoa(hour))
	}
	if p.State.AssistantOpen {
		q.Set("assistant", "1")
	}
	return "/events/new?" + q.Encode()
}

func (p pageData) EditURL(id string) string {
	return "/events/" + url.PathEscape(id) + "/edit?" + p.State.Query().Encode()
}

func (s *Server) state(q url.Values) nav.State {
	return nav.FromQuery(q, s.now(), s.loc)
}

func (s *Server) page(state nav.State) pageData {
	p := pageData{
		State:        state,
		Title:        state.Title(s.grid.WeekStart),
		PrevURL:      state.Prev().URL("/"),
		NextURL:      state.Next().URL("/"),
		TodayURL:     state.Today(s.now()).URL("/"),
		AssistantURL: state.ToggleAssistant().URL("/"),
		MessageURL:   state.URL("/assistant"),
	}
	for _, v := range []model.View{model.ViewMonth, model.ViewWeek, model.ViewDay} {
		p.Views = append(p.Views, viewLink{
			Label:  string(v),
			URL:    state.WithView(v).URL("/"),
			Active: v == state.View,
		})
	}

	events, now := s.store.List(), s.localNow()
	switch state.View {
	case model.ViewWeek:
		g := grid.Week(events, state.Date, now, s.grid)
		p.Time = &g
	case model.ViewDay:
		g := grid.Day(events, state.Date, now, s.grid)
		p.Time = &g
	default:
		g := grid.Month(events, state.Date, now, s.grid)
		p.Month = &g
		for i := 0; i < 7; i++ {
			p.Weekdays = append(p.Weekdays, time.Weekday((int(s.grid.WeekStart)+i)%7).String()[:3])
		}
	}
	if state.AssistantOpen {
		p.Messages = s.assistant.Messages()
	}
	return p
}

func (s *Server) dialogFor(state nav.State, f *form.Form, err error) *dialog {
	d := &dialog{
		Form:       f,
		Editing:    f.Mode == form.ModeEdit,
		Action:     state.URL("/events"),
		CancelURL:  state.URL("/"),
		Ready:      f.Ready(),
		Categories: model.Categories,
	}
	if d.Editing {
		base := "/events/" + url.PathEscape(f.ID)
		d.Action = state.URL(base)
		d.DeleteURL = state.URL(base + "/delete")
	}
	if err != nil {
		d.Error = err.Error()
	}
	return d
}

func (s *Server) render(w http.ResponseWriter, status int, p pageData) {
	var buf bytes.Buffer
	if err := s.tmpl.ExecuteTemplate(&buf, "calendar.html", p); err != nil {
		appLog.Error("template render failed", err)
		http.Error(w, "render failed", http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(status)
	_, _ = buf.WriteTo(w)
}

func (s *Server) renderDialog(w http.ResponseWriter, status int, state nav.State, f *form.Form, err error) {
	p := s.page(state)
	p.Dialog = s.dialogFor(state, f, err)
	s.render(w, status, p)
}

func (s *Server) handleCalendar(w http.ResponseWriter, r *http.Request) {
	s.render(w, http.StatusOK, s.page(s.state(r.URL.Query())))
}

func (s *Server) handleNewForm(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	state := s.state(q)
	hour := -1
	if h, err := strconv.Atoi(q.Get("hour")); err == nil {
		hour = h
	}
	s.renderDialog(w, http.StatusOK, state, form.NewCreate(state.Date, hour), nil)
}

func (s *Server) handleEditForm(w http.ResponseWriter, r *http.Request) {
	ev, ok := s.store.Get(r.PathValue("id"))
	if !ok {
		http.Error(w, "event not found", http.StatusNotFound)
		return
	}
	q := r.URL.Query()
	state := s.state(q)
	if q.Get("date") == "" {
		state.Date = grid.StartOfDay(ev.Start.In(s.loc))
	}
	s.renderDialog(w, http.StatusOK, state, form.NewEdit(ev, s.loc), nil)
}

func (s *Server) handleCreate(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseForm(); err != nil {
		http.Error(w, "bad form", http.StatusBadRequest)
		return
	}
	state := s.state(r.URL.Query())
	f := form.NewCreate(state.Date, -1)
	f.Apply(r.PostForm)
	s.submit(w, r, state, f)
}

func (s *Server) handleUpdate(w http.ResponseWriter, r *http.Request) {
	ev, ok := s.store.Get(r.PathValue("id"))
	if !ok {
		http.Error(w, "event not found", http.StatusNotFound)
		return
	}
	if err := r.ParseForm(); err != nil {
		http.Error(w, "bad form", http.StatusBadRequest)
		return
	}
	f := form.NewEdit(ev, s.loc)
	f.Apply(r.PostForm)
	s.submit(w, r, s.state(r.URL.Query()), f)
}

// submit applies a create or update dialog. Rejected input re-renders the
// dialog with 422 and leaves the store untouched.
func (s *Server) submit(w http.ResponseWriter, r *http.Request, state nav.State, f *form.Form) {
	res, err := f.Submit(s.loc, s.newID)
	if err == nil {
		if res.Action == form.ActionUpdate {
			err = s.store.Update(res.Event)
		} else {
			err = s.store.Add(res.Event)
		}
	}
	if err != nil {
		status := statusFor(err)
		if status != http.StatusUnprocessableEntity {
			http.Error(w, err.Error(), status)
			return
		}
		s.renderDialog(w, status, state, f, err)
		return
	}

	appLog.Info("event saved", "action", res.Action, "id", res.Event.ID)
	http.Redirect(w, r, state.URL("/"), http.StatusSeeOther)
}

func (s *Server) handleDelete(w http.ResponseWriter, r *http.Request) {
	ev, ok := s.store.Get(r.PathValue("id"))
	if !ok {
		http.Error(w, "event not found", http.StatusNotFound)
		return
	}
	res, err := form.NewEdit(ev, s.loc).Delete()
	if err == nil {
		err = s.store.Remove(res.ID)
	}
	if err != nil {
		http.Error(w, err.Error(), statusFor(err))
		return
	}
	appLog.Info("event deleted", "id", res.ID)
	http.Redirect(w, r, s.state(r.URL.Query()).URL("/"), http.StatusSeeOther)
}

func (s *Server) handleAssistant(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseForm(); err != nil {
		http.Error(w, "bad form", http.StatusBadRequest)
		return
	}
	state := s.state(r.URL.Query())
	state.AssistantOpen = true

	rep, err := s.assistant.Send(r.Context(), r.PostFormValue("message"), s.store)
	switch {
	case errors.Is(err, assistant.ErrEmptyInput):
	case err != nil:
		// The client went away during the reply delay.
		return
	default:
		s.addProposed(rep)
	}
	http.Redirect(w, r, state.URL("/"), http.StatusSeeOther)
}

// addProposed stores the event an assistant reply suggests, if any.
func (s *Server) addProposed(rep assistant.Reply) {
	if rep.Event == nil {
		return
	}
	if err := s.store.Add(*rep.Event); err != nil {
		appLog.Error("assistant event rejected", err, "id", rep.Event.ID)
		return
	}
	appLog.Info("assistant created event", "id", rep.Event.ID, "title", rep.Event.Title)
}
