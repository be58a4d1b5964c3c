package assistant

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"testing"
	"time"

	"gridcal/internal/model"
)

var testNow = time.Date(2026, 10, 15, 9, 30, 0, 0, time.UTC)

func counter() func() string {
	n := 0
	return func() string {
		n++
		return fmt.Sprintf("id-%d", n)
	}
}

type listFunc func() []model.Event

func (f listFunc) List() []model.Event { return f() }

func TestRespondScheduleMeeting(t *testing.T) {
	rep := Respond("Please SCHEDULE a meeting", nil, testNow, counter())
	if rep.Rule != "create" || rep.Event == nil {
		t.Fatalf("expected created event, got %+v", rep)
	}
	ev := rep.Event
	if ev.Title != "Meeting" {
		t.Fatalf("title = %q", ev.Title)
	}
	if !ev.Start.Equal(time.Date(2026, 10, 15, 12, 0, 0, 0, time.UTC)) || !ev.End.Equal(time.Date(2026, 10, 15, 13, 0, 0, 0, time.UTC)) {
		t.Fatalf("window = %s - %s", ev.Start, ev.End)
	}
	if ev.Category != model.CategoryDefault || ev.ID != "id-1" {
		t.Fatalf("unexpected event: %+v", ev)
	}
	if !strings.Contains(rep.Message, "Meeting") {
		t.Fatalf("confirmation should name the title: %q", rep.Message)
	}
}

func TestRespondTitlePriority(t *testing.T) {
	cases := map[string]string{
		"create an appointment":            "Appointment",
		"schedule a call":                  "Call",
		"add event":                        "New Event",
		"schedule a call about a meeting":  "Meeting",
		"create a call for my appointment": "Appointment",
	}
	for in, want := range cases {
		rep := Respond(in, nil, testNow, counter())
		if rep.Event == nil || rep.Event.Title != want {
			t.Errorf("%q: got %+v, want title %q", in, rep.Event, want)
		}
	}
}

func TestRespondTodayEmpty(t *testing.T) {
	rep := Respond("what events do I have today", nil, testNow, counter())
	if rep.Rule != "today" || rep.Message != NoEventsMessage || rep.Event != nil {
		t.Fatalf("got %+v", rep)
	}
}

func TestRespondTodayListsOnlyToday(t *testing.T) {
	events := []model.Event{
		{ID: "1", Title: "Team Meeting", Start: time.Date(2026, 10, 15, 10, 5, 0, 0, time.UTC)},
		{ID: "2", Title: "Tomorrow", Start: time.Date(2026, 10, 16, 10, 0, 0, 0, time.UTC)},
		{ID: "3", Title: "Dinner", Start: time.Date(2026, 10, 15, 19, 0, 0, 0, time.UTC)},
	}
	rep := Respond("Any EVENTS today?", events, testNow, counter())
	want := "You have 2 event(s) today:\n- Team Meeting at 10:05 AM\n- Dinner at 7:00 PM"
	if rep.Message != want {
		t.Fatalf("got %q\nwant %q", rep.Message, want)
	}
}

func TestRespondHelpAndFallback(t *testing.T) {
	if rep := Respond("help me", nil, testNow, counter()); rep.Message != HelpMessage || rep.Event != nil {
		t.Fatalf("help: %+v", rep)
	}
	if rep := Respond("xyz", nil, testNow, counter()); rep.Message != FallbackMessage || rep.Rule != "fallback" {
		t.Fatalf("fallback: %+v", rep)
	}
	// "event" alone does not trigger the today rule.
	if rep := Respond("an event tomorrow", nil, testNow, counter()); rep.Rule != "fallback" {
		t.Fatalf("expected fallback, got %s", rep.Rule)
	}
	// Create outranks help.
	if rep := Respond("help me schedule", nil, testNow, counter()); rep.Rule != "create" {
		t.Fatalf("expected create, got %s", rep.Rule)
	}
}

func TestSessionTranscript(t *testing.T) {
	s := NewSession(Options{Now: func() time.Time { return testNow }, NewID: counter()})

	msgs := s.Messages()
	if len(msgs) != 1 || msgs[0].IsUser || msgs[0].Content != WelcomeMessage {
		t.Fatalf("expected welcome message, got %+v", msgs)
	}

	rep, err := s.Send(context.Background(), "please schedule a meeting", nil)
	if err != nil {
		t.Fatalf("Send: %v", err)
	}
	if rep.Event == nil {
		t.Fatalf("expected proposed event")
	}

	msgs = s.Messages()
	if len(msgs) != 3 {
		t.Fatalf("transcript length = %d", len(msgs))
	}
	if !msgs[1].IsUser || msgs[1].Content != "please schedule a meeting" {
		t.Fatalf("user message not echoed: %+v", msgs[1])
	}
	if msgs[2].IsUser || msgs[2].Content != rep.Message {
		t.Fatalf("reply not appended: %+v", msgs[2])
	}
}

func TestSessionReadsEventsAfterDelay(t *testing.T) {
	s := NewSession(Options{Now: func() time.Time { return testNow }, Delay: time.Millisecond})
	calls := 0
	src := listFunc(func() []model.Event {
		calls++
		return []model.Event{{ID: "1", Title: "Standup", Start: testNow}}
	})
	rep, err := s.Send(context.Background(), "events today", src)
	if err != nil {
		t.Fatalf("Send: %v", err)
	}
	if calls != 1 || !strings.Contains(rep.Message, "Standup") {
		t.Fatalf("calls=%d reply=%q", calls, rep.Message)
	}
}

func TestSessionCancelDropsReply(t *testing.T) {
	s := NewSession(Options{Delay: time.Hour})
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := s.Send(ctx, "help", nil)
	if !errors.Is(err, context.Canceled) {
		t.Fatalf("expected context.Canceled, got %v", err)
	}
	msgs := s.Messages()
	if len(msgs) != 2 || !msgs[1].IsUser {
		t.Fatalf("expected welcome + user message only, got %+v", msgs)
	}
}

func TestSessionRejectsEmptyInput(t *testing.T) {
	s := NewSession(Options{})
	if _, err := s.Send(context.Background(), "   ", nil); !errors.Is(err, ErrEmptyInput) {
		t.Fatalf("expected ErrEmptyInput, got %v", err)
	}
	if len(s.Messages()) != 1 {
		t.Fatalf("empty input should not be recorded")
	}
}
