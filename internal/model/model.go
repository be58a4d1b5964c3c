package model

import (
	"errors"
	"strings"
	"time"
)

var (
	ErrEmptyTitle     = errors.New("event title is empty")
	ErrEndBeforeStart = errors.New("event ends before it starts")
)

// Category is the coloring bucket of an event.
type Category string

const (
	CategoryDefault   Category = "default"
	CategoryWork      Category = "work"
	CategoryPersonal  Category = "personal"
	CategoryImportant Category = "important"
)

// Categories lists every known category in display order.
var Categories = []Category{CategoryDefault, CategoryWork, CategoryPersonal, CategoryImportant}

// ParseCategory maps s onto a known category. Unknown or empty values
// become CategoryDefault.
func ParseCategory(s string) Category {
	switch c := Category(strings.ToLower(strings.TrimSpace(s))); c {
	case CategoryWork, CategoryPersonal, CategoryImportant:
		return c
	default:
		return CategoryDefault
	}
}

// Event is a titled time interval tracked on the calendar.
//
// Events are values: editing an event means replacing it with a new value
// that shares the same ID.
type Event struct {
	ID          string    `json:"id"`
	Title       string    `json:"title"`
	Start       time.Time `json:"start"`
	End         time.Time `json:"end"`
	Description string    `json:"description,omitempty"`
	Location    string    `json:"location,omitempty"`
	Category    Category  `json:"category"`
}

// Validate reports whether ev can be placed on the calendar.
func (ev Event) Validate() error {
	if strings.TrimSpace(ev.Title) == "" {
		return ErrEmptyTitle
	}
	if ev.End.Before(ev.Start) {
		return ErrEndBeforeStart
	}
	return nil
}

// Normalized returns ev with an unset category replaced by the default.
func (ev Event) Normalized() Event {
	if ev.Category == "" {
		ev.Category = CategoryDefault
	}
	return ev
}

// Message is one entry of the assistant transcript.
type Message struct {
	ID        string    `json:"id"`
	Content   string    `json:"content"`
	Timestamp time.Time `json:"timestamp"`
	IsUser    bool      `json:"is_user"`
}

// View selects the calendar layout.
type View string

const (
	ViewMonth View = "month"
	ViewWeek  View = "week"
	ViewDay   View = "day"
)

// ParseView maps s onto a view, falling back to ViewMonth.
func ParseView(s string) View {
	switch v := View(strings.ToLower(strings.TrimSpace(s))); v {
	case ViewWeek, ViewDay:
		return v
	default:
		return ViewMonth
	}
}
