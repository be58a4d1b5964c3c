// Package ics exchanges calendar events as iCalendar (RFC 5545) data:
// exporting the store, importing uploaded files and pulling subscribed feeds.
package ics

import (
	"bytes"
	"errors"
	"strings"
	"time"

	ical "github.com/arran4/golang-ical"

	appLog "gridcal/internal/log"
	"gridcal/internal/model"
)

const productID = "-//gridcal//calendar//EN"

// untitled replaces an empty SUMMARY so imported events stay valid.
const untitled = "Untitled event"

// Encode serializes events as a VCALENDAR. now is used for DTSTAMP.
func Encode(events []model.Event, now time.Time) []byte {
	cal := ical.NewCalendar()
	cal.SetMethod(ical.MethodPublish)
	cal.SetProductId(productID)

	for _, ev := range events {
		ve := cal.AddEvent(ev.ID)
		ve.SetDtStampTime(now)
		ve.SetStartAt(ev.Start)
		ve.SetEndAt(ev.End)
		ve.SetSummary(ev.Title)
		if ev.Description != "" {
			ve.SetDescription(ev.Description)
		}
		if ev.Location != "" {
			ve.SetLocation(ev.Location)
		}
		ve.SetProperty(ical.ComponentPropertyCategories, string(ev.Normalized().Category))
	}

	return []byte(cal.Serialize())
}

// Decode parses an ICS payload into events. Event IDs are the VEVENT UIDs,
// prefixed with src.ID and ":" when src.ID is set. Recurrence rules are
// ignored: a recurring VEVENT yields only its first occurrence. VEVENTs
// without a usable UID or start time are skipped and logged.
func Decode(src Source, body []byte) ([]model.Event, error) {
	if len(bytes.TrimSpace(body)) == 0 {
		return nil, errors.New("empty ICS body")
	}

	cal, err := ical.ParseCalendar(bytes.NewReader(body))
	if err != nil {
		return nil, err
	}

	events := make([]model.Event, 0)
	for _, ve := range cal.Events() {
		ev, err := decodeEvent(src, ve)
		if err != nil {
			appLog.Warn("ics vevent skipped", "id", src.ID, "url", redactURL(src.URL), "reason", err)
			continue
		}
		events = append(events, ev)
	}

	appLog.Info("ics decode completed", "id", src.ID, "event_count", len(events))
	return events, nil
}

func decodeEvent(src Source, ve *ical.VEvent) (model.Event, error) {
	var ev model.Event

	uid := propValue(ve, ical.ComponentPropertyUniqueId)
	if uid == "" {
		return ev, errors.New("missing UID")
	}
	ev.ID = uid
	if src.ID != "" {
		ev.ID = src.ID + ":" + uid
	}

	start, err := ve.GetStartAt()
	if err != nil {
		return ev, err
	}
	end, err := ve.GetEndAt()
	if err != nil || end.Before(start) {
		end = start
	}
	if allDay(ve) && end.Equal(start) {
		end = start.Add(24 * time.Hour)
	}
	ev.Start, ev.End = start, end

	ev.Title = strings.TrimSpace(propValue(ve, ical.ComponentPropertySummary))
	if ev.Title == "" {
		ev.Title = untitled
	}
	ev.Description = propValue(ve, ical.ComponentPropertyDescription)
	ev.Location = propValue(ve, ical.ComponentPropertyLocation)

	ev.Category = model.CategoryDefault
	if cats := propValue(ve, ical.ComponentPropertyCategories); cats != "" {
		ev.Category = model.ParseCategory(strings.Split(cats, ",")[0])
	}

	if propValue(ve, ical.ComponentPropertyRrule) != "" {
		appLog.Debug("ics recurrence ignored", "uid", uid)
	}
	return ev, nil
}

func propValue(ve *ical.VEvent, p ical.ComponentProperty) string {
	if prop := ve.GetProperty(p); prop != nil {
		return prop.Value
	}
	return ""
}

// allDay reports whether DTSTART is a DATE rather than a DATE-TIME.
func allDay(ve *ical.VEvent) bool {
	prop := ve.GetProperty(ical.ComponentPropertyDtStart)
	if prop == nil {
		return false
	}
	if vs, ok := prop.ICalParameters["VALUE"]; ok && len(vs) > 0 && strings.EqualFold(vs[0], "DATE") {
		return true
	}
	return !strings.Contains(prop.Value, "T")
}
