// Package grid computes the cells of the month, week and day views and
// buckets events into them.
//
// Every function here is pure: the result depends only on the events, the
// reference date, the "now" instant used for today highlighting, and the
// options. Calendar-day comparisons happen in the location of the reference
// date; time-of-day is ignored when bucketing by day.
package grid

import (
	"slices"
	"time"

	"gridcal/internal/model"
)

const (
	DefaultFirstHour  = 8
	DefaultLastHour   = 20
	DefaultMaxPerCell = 3
)

// Options tunes grid construction. The zero value means: Sunday-first weeks,
// hours 8 through 20, at most 3 events per month cell, insertion order.
type Options struct {
	WeekStart time.Weekday

	// FirstHour and LastHour bound the hour rows of week/day grids, inclusive.
	FirstHour int
	LastHour  int

	// MaxPerCell caps events displayed directly in a month cell.
	MaxPerCell int

	// SortByStart orders events within a cell by start time instead of
	// insertion order. Ties keep insertion order.
	SortByStart bool
}

// DefaultOptions returns the standard layout.
func DefaultOptions() Options {
	return Options{
		WeekStart:  time.Sunday,
		FirstHour:  DefaultFirstHour,
		LastHour:   DefaultLastHour,
		MaxPerCell: DefaultMaxPerCell,
	}
}

func (o Options) normalized() Options {
	if o.FirstHour == 0 && o.LastHour == 0 {
		o.FirstHour, o.LastHour = DefaultFirstHour, DefaultLastHour
	}
	if o.FirstHour < 0 || o.LastHour > 23 || o.FirstHour > o.LastHour {
		o.FirstHour, o.LastHour = DefaultFirstHour, DefaultLastHour
	}
	if o.MaxPerCell <= 0 {
		o.MaxPerCell = DefaultMaxPerCell
	}
	if o.WeekStart < time.Sunday || o.WeekStart > time.Saturday {
		o.WeekStart = time.Sunday
	}
	return o
}

// Hours returns the hour rows shown by week and day grids.
func (o Options) Hours() []int {
	o = o.normalized()
	hours := make([]int, 0, o.LastHour-o.FirstHour+1)
	for h := o.FirstHour; h <= o.LastHour; h++ {
		hours = append(hours, h)
	}
	return hours
}

// Cell is one day of the month grid.
type Cell struct {
	Date           time.Time     `json:"date"`
	IsCurrentMonth bool          `json:"is_current_month"`
	IsToday        bool          `json:"is_today"`
	Events         []model.Event `json:"events"`
	// More counts events that fall on this day but are not in Events.
	More int `json:"more"`
}

// MonthGrid is the full month view: Leading filler days, the days of the
// month, then Trailing filler days, always a whole number of weeks.
type MonthGrid struct {
	Month    time.Time `json:"month"`
	Leading  int       `json:"leading"`
	Trailing int       `json:"trailing"`
	Cells    []Cell    `json:"cells"`
}

// Weeks splits the cells into rows of seven.
func (g MonthGrid) Weeks() [][]Cell {
	rows := make([][]Cell, 0, len(g.Cells)/7)
	for i := 0; i+7 <= len(g.Cells); i += 7 {
		rows = append(rows, g.Cells[i:i+7])
	}
	return rows
}

// Slot is one (day, hour) cell of a week or day grid.
type Slot struct {
	Hour   int           `json:"hour"`
	Events []model.Event `json:"events"`
}

// Column is one day of a week or day grid.
type Column struct {
	Date    time.Time `json:"date"`
	IsToday bool      `json:"is_today"`
	Slots   []Slot    `json:"slots"`
	// Hidden counts events on this day whose start hour has no row.
	Hidden int `json:"hidden"`
}

// TimeGrid is the week or day view: hour rows by day columns.
type TimeGrid struct {
	Hours   []int    `json:"hours"`
	Columns []Column `json:"columns"`
}

// Month builds the month grid for the month containing ref.
func Month(events []model.Event, ref, now time.Time, opts Options) MonthGrid {
	opts = opts.normalized()

	first := StartOfMonth(ref)
	last := first.AddDate(0, 1, -1)
	leading := column(first.Weekday(), opts.WeekStart)
	trailing := 6 - column(last.Weekday(), opts.WeekStart)
	total := leading + last.Day() + trailing

	start := first.AddDate(0, 0, -leading)
	cells := make([]Cell, 0, total)
	for i := 0; i < total; i++ {
		day := start.AddDate(0, 0, i)
		evs := EventsOn(events, day)
		if opts.SortByStart {
			sortByStart(evs)
		}

		c := Cell{
			Date:           day,
			IsCurrentMonth: day.Year() == first.Year() && day.Month() == first.Month(),
			IsToday:        SameDay(day, now),
		}
		if len(evs) > opts.MaxPerCell {
			c.More = len(evs) - opts.MaxPerCell
			evs = evs[:opts.MaxPerCell]
		}
		c.Events = evs
		cells = append(cells, c)
	}

	return MonthGrid{
		Month:    first,
		Leading:  leading,
		Trailing: trailing,
		Cells:    cells,
	}
}

// Week builds seven day columns starting at the week start containing ref.
func Week(events []model.Event, ref, now time.Time, opts Options) TimeGrid {
	opts = opts.normalized()
	start := StartOfWeek(ref, opts.WeekStart)

	g := TimeGrid{Hours: opts.Hours(), Columns: make([]Column, 0, 7)}
	for i := 0; i < 7; i++ {
		g.Columns = append(g.Columns, dayColumn(events, start.AddDate(0, 0, i), now, opts))
	}
	return g
}

// Day builds a single column for ref.
func Day(events []model.Event, ref, now time.Time, opts Options) TimeGrid {
	opts = opts.normalized()
	return TimeGrid{
		Hours:   opts.Hours(),
		Columns: []Column{dayColumn(events, StartOfDay(ref), now, opts)},
	}
}

func dayColumn(events []model.Event, day, now time.Time, opts Options) Column {
	evs := EventsOn(events, day)
	if opts.SortByStart {
		sortByStart(evs)
	}

	col := Column{
		Date:    day,
		IsToday: SameDay(day, now),
		Slots:   make([]Slot, 0, opts.LastHour-opts.FirstHour+1),
	}
	for h := opts.FirstHour; h <= opts.LastHour; h++ {
		col.Slots = append(col.Slots, Slot{Hour: h, Events: EventsAt(evs, day, h)})
	}
	for _, ev := range evs {
		if h := ev.Start.In(day.Location()).Hour(); h < opts.FirstHour || h > opts.LastHour {
			col.Hidden++
		}
	}
	return col
}

// EventsOn returns the events whose start falls on day's calendar date, in
// the order given. The result never aliases events.
func EventsOn(events []model.Event, day time.Time) []model.Event {
	out := make([]model.Event, 0)
	for _, ev := range events {
		if SameDay(day, ev.Start) {
			out = append(out, ev)
		}
	}
	return out
}

// EventsAt returns the events starting on day during the given hour.
// Minutes are not modeled; an event only ever lands in its start hour.
func EventsAt(events []model.Event, day time.Time, hour int) []model.Event {
	out := make([]model.Event, 0)
	for _, ev := range events {
		start := ev.Start.In(day.Location())
		if SameDay(day, start) && start.Hour() == hour {
			out = append(out, ev)
		}
	}
	return out
}

// SameDay reports whether b falls on a's calendar date, judged in a's location.
func SameDay(a, b time.Time) bool {
	b = b.In(a.Location())
	ay, am, ad := a.Date()
	by, bm, bd := b.Date()
	return ay == by && am == bm && ad == bd
}

func StartOfDay(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, t.Location())
}

func StartOfMonth(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), 1, 0, 0, 0, 0, t.Location())
}

// StartOfWeek returns midnight of the weekStart day on or before t.
func StartOfWeek(t time.Time, weekStart time.Weekday) time.Time {
	d := StartOfDay(t)
	return d.AddDate(0, 0, -column(d.Weekday(), weekStart))
}

// column is the 0-based position of wd in a week beginning on weekStart.
func column(wd, weekStart time.Weekday) int {
	return (int(wd) - int(weekStart) + 7) % 7
}

func sortByStart(evs []model.Event) {
	slices.SortStableFunc(evs, func(a, b model.Event) int {
		return a.Start.Compare(b.Start)
	})
}
