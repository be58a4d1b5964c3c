// Package nav holds the header state: which period is visible and whether
// the assistant panel is open. State is a plain value; every transition
// returns a new State.
package nav

import (
	"fmt"
	"net/url"
	"time"

	"gridcal/internal/grid"
	"gridcal/internal/model"
)

// DateLayout is the wire format of the reference date in URLs and forms.
const DateLayout = "2006-01-02"

type State struct {
	Date          time.Time
	View          model.View
	AssistantOpen bool
}

// New returns the initial state: today, month view, assistant closed.
func New(now time.Time) State {
	return State{Date: grid.StartOfDay(now), View: model.ViewMonth}
}

// Next advances by one unit of the active view.
func (s State) Next() State { return s.step(1) }

// Prev retreats by one unit of the active view.
func (s State) Prev() State { return s.step(-1) }

func (s State) step(n int) State {
	switch s.View {
	case model.ViewWeek:
		s.Date = s.Date.AddDate(0, 0, 7*n)
	case model.ViewDay:
		s.Date = s.Date.AddDate(0, 0, n)
	default:
		s.Date = AddMonths(s.Date, n)
	}
	return s
}

func (s State) Today(now time.Time) State {
	s.Date = grid.StartOfDay(now.In(s.location()))
	return s
}

func (s State) WithView(v model.View) State {
	s.View = v
	return s
}

func (s State) ToggleAssistant() State {
	s.AssistantOpen = !s.AssistantOpen
	return s
}

func (s State) location() *time.Location {
	if s.Date.IsZero() {
		return time.Local
	}
	return s.Date.Location()
}

// Title is the header label for the visible period.
func (s State) Title(weekStart time.Weekday) string {
	switch s.View {
	case model.ViewWeek:
		start := grid.StartOfWeek(s.Date, weekStart)
		end := start.AddDate(0, 0, 6)
		if start.Month() == end.Month() {
			return fmt.Sprintf("%s %d - %d, %d", start.Format("Jan"), start.Day(), end.Day(), end.Year())
		}
		return fmt.Sprintf("%s %d - %s %d, %d", start.Format("Jan"), start.Day(), end.Format("Jan"), end.Day(), end.Year())
	case model.ViewDay:
		return s.Date.Format("Monday, January 2, 2006")
	default:
		return s.Date.Format("January 2006")
	}
}

// Query encodes the state for links.
func (s State) Query() url.Values {
	q := url.Values{}
	q.Set("view", string(s.View))
	q.Set("date", s.Date.Format(DateLayout))
	if s.AssistantOpen {
		q.Set("assistant", "1")
	}
	return q
}

// URL is path with the state's query attached.
func (s State) URL(path string) string {
	return path + "?" + s.Query().Encode()
}

// FromQuery decodes a state from q. Missing or malformed values fall back
// to today and month view.
func FromQuery(q url.Values, now time.Time, loc *time.Location) State {
	if loc == nil {
		loc = time.Local
	}
	s := New(now.In(loc))
	s.View = model.ParseView(q.Get("view"))
	if d, err := time.ParseInLocation(DateLayout, q.Get("date"), loc); err == nil {
		s.Date = d
	}
	switch q.Get("assistant") {
	case "1", "true", "on":
		s.AssistantOpen = true
	}
	return s
}

// AddMonths moves t by n months, clamping the day to the last day of the
// target month (Jan 31 + 1 month = Feb 28).
func AddMonths(t time.Time, n int) time.Time {
	first := time.Date(t.Year(), t.Month()+time.Month(n), 1, t.Hour(), t.Minute(), t.Second(), t.Nanosecond(), t.Location())
	lastDay := first.AddDate(0, 1, -1).Day()
	day := t.Day()
	if day > lastDay {
		day = lastDay
	}
	return first.AddDate(0, 0, day-1)
}
