package ics

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"gridcal/internal/model"
)

func crlf(s string) []byte {
	return []byte(strings.ReplaceAll(strings.TrimLeft(s, "\n"), "\n", "\r\n"))
}

const feed = `
BEGIN:VCALENDAR
VERSION:2.0
PRODID:-//test//EN
BEGIN:VEVENT
UID:standup
DTSTAMP:20261001T000000Z
DTSTART:20261015T090000Z
DTEND:20261015T093000Z
SUMMARY:Standup
LOCATION:Room 4
CATEGORIES:WORK,DAILY
RRULE:FREQ=DAILY
END:VEVENT
BEGIN:VEVENT
UID:offsite
DTSTAMP:20261001T000000Z
DTSTART;VALUE=DATE:20261020
END:VEVENT
BEGIN:VEVENT
DTSTAMP:20261001T000000Z
DTSTART:20261016T090000Z
SUMMARY:No uid
END:VEVENT
END:VCALENDAR
`

func TestDecodeFeed(t *testing.T) {
	events, err := Decode(Source{ID: "team"}, crlf(feed))
	if err != nil {
		t.Fatalf("Decode: %v", err)
	}
	if len(events) != 2 {
		t.Fatalf("got %d events, want 2: %+v", len(events), events)
	}

	standup := events[0]
	if standup.ID != "team:standup" || standup.Title != "Standup" || standup.Location != "Room 4" {
		t.Fatalf("standup = %+v", standup)
	}
	if standup.Category != model.CategoryWork {
		t.Fatalf("category = %q", standup.Category)
	}
	if !standup.Start.Equal(time.Date(2026, 10, 15, 9, 0, 0, 0, time.UTC)) || standup.End.Sub(standup.Start) != 30*time.Minute {
		t.Fatalf("standup window %s - %s", standup.Start, standup.End)
	}

	offsite := events[1]
	if offsite.Title != untitled {
		t.Fatalf("missing summary should become %q, got %q", untitled, offsite.Title)
	}
	if offsite.End.Sub(offsite.Start) != 24*time.Hour {
		t.Fatalf("all-day event should span a day, got %s", offsite.End.Sub(offsite.Start))
	}
	if err := offsite.Validate(); err != nil {
		t.Fatalf("imported event invalid: %v", err)
	}
}

func TestDecodeRejectsEmptyBody(t *testing.T) {
	if _, err := Decode(Source{}, []byte("  \n")); err == nil {
		t.Fatalf("expected error")
	}
}

func TestEncodeDecode(t *testing.T) {
	in := []model.Event{
		{
			ID:          "1",
			Title:       "Team Meeting",
			Start:       time.Date(2026, 10, 15, 10, 0, 0, 0, time.UTC),
			End:         time.Date(2026, 10, 15, 11, 0, 0, 0, time.UTC),
			Description: "Weekly sync",
			Location:    "Conference Room A",
			Category:    model.CategoryImportant,
		},
		{
			ID:    "2",
			Title: "Lunch",
			Start: time.Date(2026, 10, 16, 12, 0, 0, 0, time.UTC),
			End:   time.Date(2026, 10, 16, 13, 0, 0, 0, time.UTC),
		},
	}

	body := Encode(in, time.Date(2026, 10, 15, 0, 0, 0, 0, time.UTC))
	if !strings.Contains(string(body), "PRODID:"+productID) {
		t.Fatalf("missing product id:\n%s", body)
	}

	out, err := Decode(Source{}, body)
	if err != nil {
		t.Fatalf("Decode: %v", err)
	}
	if len(out) != len(in) {
		t.Fatalf("got %d events", len(out))
	}
	for i := range in {
		a, b := in[i], out[i]
		if a.ID != b.ID || a.Title != b.Title || a.Description != b.Description || a.Location != b.Location {
			t.Fatalf("event %d differs:\n in %+v\nout %+v", i, a, b)
		}
		if !a.Start.Equal(b.Start) || !a.End.Equal(b.End) {
			t.Fatalf("event %d times differ: %s-%s vs %s-%s", i, a.Start, a.End, b.Start, b.End)
		}
		if b.Category != a.Normalized().Category {
			t.Fatalf("event %d category %q", i, b.Category)
		}
	}
}

func TestFetcherUsesConditionalCache(t *testing.T) {
	var hits, notModified atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hits.Add(1)
		if r.Header.Get("If-None-Match") == `"v1"` {
			notModified.Add(1)
			w.WriteHeader(http.StatusNotModified)
			return
		}
		w.Header().Set("ETag", `"v1"`)
		_, _ = w.Write(crlf(feed))
	}))
	defer srv.Close()

	f := NewFetcher(t.TempDir(), srv.Client())
	src := Source{ID: "team", URL: srv.URL + "/private.ics?token=secret"}

	body, fromCache, err := f.Fetch(context.Background(), src)
	if err != nil || fromCache || len(body) == 0 {
		t.Fatalf("first fetch: cache=%v len=%d err=%v", fromCache, len(body), err)
	}

	again, fromCache, err := f.Fetch(context.Background(), src)
	if err != nil || !fromCache || string(again) != string(body) {
		t.Fatalf("second fetch: cache=%v err=%v", fromCache, err)
	}
	if hits.Load() != 2 || notModified.Load() != 1 {
		t.Fatalf("hits=%d notModified=%d", hits.Load(), notModified.Load())
	}
}

func TestFetcherFallsBackOnServerError(t *testing.T) {
	var fail atomic.Bool
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if fail.Load() {
			http.Error(w, "down", http.StatusBadGateway)
			return
		}
		_, _ = w.Write(crlf(feed))
	}))
	defer srv.Close()

	f := NewFetcher(t.TempDir(), srv.Client())
	src := Source{ID: "team", URL: srv.URL + "/cal.ics"}
	if _, _, err := f.Fetch(context.Background(), src); err != nil {
		t.Fatalf("prime: %v", err)
	}

	fail.Store(true)
	events, errs := f.Import(context.Background(), []Source{src, {ID: "empty"}})
	if len(events) != 2 {
		t.Fatalf("expected cached events, got %d", len(events))
	}
	if len(errs) != 1 {
		t.Fatalf("expected one error for the empty source, got %v", errs)
	}
}

func TestRedactURL(t *testing.T) {
	got := redactURL("https://calendar.example.com/private/abc.ics?token=xyz")
	if got != "https://calendar.example.com/...(redacted)" {
		t.Fatalf("got %q", got)
	}
	if redactURL("not a url") != "ics://...(redacted)" {
		t.Fatalf("unparseable url should be fully redacted")
	}
}
