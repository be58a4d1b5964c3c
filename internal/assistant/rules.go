package assistant

import (
	"fmt"
	"strings"
	"time"

	"gridcal/internal/grid"
	"gridcal/internal/model"
)

const (
	WelcomeMessage  = "Hello! I'm your calendar assistant. How can I help you manage your schedule today?"
	NoEventsMessage = "You don't have any events scheduled for today."
	HelpMessage     = "I can help you manage your calendar! Try asking me things like:\n" +
		"- Schedule a meeting\n" +
		"- What events do I have today?\n" +
		"- Help me organize my day\n" +
		"- Create a new appointment"
	FallbackMessage = "I'm here to help with your calendar. You can ask me to schedule events, check your availability, or help organize your day."

	createdDescription = "Created by calendar assistant"
)

// Reply is the outcome of one user message. Event is non-nil only when the
// assistant proposes a new event; the caller adds it to the store.
type Reply struct {
	Rule    string       `json:"rule"`
	Message string       `json:"message"`
	Event   *model.Event `json:"event,omitempty"`
}

// Input carries everything a rule may look at.
type Input struct {
	Text   string // lower-cased
	Events []model.Event
	Now    time.Time
	NewID  func() string
}

type rule struct {
	name  string
	match func(text string) bool
	reply func(in Input) Reply
}

// rules are evaluated in order; the first match wins.
var rules = []rule{
	{
		name:  "create",
		match: containsAny("schedule", "create", "add event"),
		reply: createEvent,
	},
	{
		name:  "today",
		match: containsAll("event", "today"),
		reply: listToday,
	},
	{
		name:  "help",
		match: containsAny("help"),
		reply: func(Input) Reply { return Reply{Message: HelpMessage} },
	},
}

// eventTitles picks a title for a created event; first keyword found wins.
var eventTitles = []struct{ keyword, title string }{
	{"meeting", "Meeting"},
	{"appointment", "Appointment"},
	{"call", "Call"},
}

// Respond applies the rule table to input. It never fails: text matching no
// rule gets the fallback message.
func Respond(input string, events []model.Event, now time.Time, newID func() string) Reply {
	in := Input{
		Text:   strings.ToLower(input),
		Events: events,
		Now:    now,
		NewID:  newID,
	}
	for _, r := range rules {
		if r.match(in.Text) {
			rep := r.reply(in)
			rep.Rule = r.name
			return rep
		}
	}
	return Reply{Rule: "fallback", Message: FallbackMessage}
}

func createEvent(in Input) Reply {
	title := "New Event"
	for _, t := range eventTitles {
		if strings.Contains(in.Text, t.keyword) {
			title = t.title
			break
		}
	}

	y, m, d := in.Now.Date()
	loc := in.Now.Location()
	ev := model.Event{
		ID:          in.NewID(),
		Title:       title,
		Start:       time.Date(y, m, d, 12, 0, 0, 0, loc),
		End:         time.Date(y, m, d, 13, 0, 0, 0, loc),
		Description: createdDescription,
		Category:    model.CategoryDefault,
	}
	return Reply{
		Message: fmt.Sprintf("I've created a new event titled %q for today at 12:00 PM. You can edit the details as needed.", title),
		Event:   &ev,
	}
}

func listToday(in Input) Reply {
	today := grid.EventsOn(in.Events, in.Now)
	if len(today) == 0 {
		return Reply{Message: NoEventsMessage}
	}
	return Reply{Message: fmt.Sprintf("You have %d event(s) today:\n%s", len(today), FormatAgenda(today, in.Now.Location()))}
}

// FormatAgenda renders one "- <title> at <h:mm AM/PM>" line per event.
func FormatAgenda(events []model.Event, loc *time.Location) string {
	lines := make([]string, 0, len(events))
	for _, ev := range events {
		lines = append(lines, fmt.Sprintf("- %s at %s", ev.Title, ev.Start.In(loc).Format("3:04 PM")))
	}
	return strings.Join(lines, "\n")
}

func containsAny(words ...string) func(string) bool {
	return func(text string) bool {
		for _, w := range words {
			if strings.Contains(text, w) {
				return true
			}
		}
		return false
	}
}

func containsAll(words ...string) func(string) bool {
	return func(text string) bool {
		for _, w := range words {
			if !strings.Contains(text, w) {
				return false
			}
		}
		return true
	}
}
