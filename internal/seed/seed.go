// Package seed provides the sample events loaded at startup.
package seed

import (
	"time"

	"gridcal/internal/model"
)

// Events returns five sample events positioned relative to now. Each start
// keeps now's minute and drops seconds.
func Events(now time.Time) []model.Event {
	rel := func(days, hours int) time.Time {
		y, m, d := now.Date()
		return time.Date(y, m, d+days, now.Hour()+hours, now.Minute(), 0, 0, now.Location())
	}

	return []model.Event{
		{
			ID:          "1",
			Title:       "Team Meeting",
			Start:       rel(0, 1),
			End:         rel(0, 2),
			Description: "Weekly team sync to discuss project progress",
			Category:    model.CategoryWork,
			Location:    "Conference Room A",
		},
		{
			ID:          "2",
			Title:       "Lunch with Alex",
			Start:       rel(1, 0),
			End:         rel(1, 1),
			Description: "Catching up over lunch",
			Category:    model.CategoryPersonal,
			Location:    "Cafe Downtown",
		},
		{
			ID:          "3",
			Title:       "Project Deadline",
			Start:       rel(3, -1),
			End:         rel(3, 0),
			Description: "Final submission of the quarterly project",
			Category:    model.CategoryImportant,
			Location:    "Office",
		},
		{
			ID:          "4",
			Title:       "Doctor's Appointment",
			Start:       rel(5, 2),
			End:         rel(5, 3),
			Description: "Annual checkup",
			Category:    model.CategoryPersonal,
			Location:    "Medical Center",
		},
		{
			ID:          "5",
			Title:       "Client Presentation",
			Start:       rel(2, -2),
			End:         rel(2, 0),
			Description: "Presenting new product features to the client",
			Category:    model.CategoryWork,
			Location:    "Client Office",
		},
	}
}
