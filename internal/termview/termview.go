// Package termview prints the calendar grids to a terminal.
package termview

import (
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/fatih/color"
	"github.com/gosuri/uitable"

	"gridcal/internal/grid"
	"gridcal/internal/model"
	"gridcal/internal/nav"
)

const maxColWidth = 24

var (
	titleStyle = color.New(color.Bold, color.Underline)
	todayStyle = color.New(color.Bold, color.FgHiYellow)
	fillStyle  = color.New(color.Faint)
	moreStyle  = color.New(color.Italic, color.FgCyan)
)

var categoryStyles = map[model.Category]*color.Color{
	model.CategoryWork:      color.New(color.FgBlue),
	model.CategoryPersonal:  color.New(color.FgGreen),
	model.CategoryImportant: color.New(color.FgRed, color.Bold),
}

// Render writes the view selected by state.
func Render(w io.Writer, state nav.State, events []model.Event, now time.Time, opts grid.Options) {
	fmt.Fprintln(w, titleStyle.Sprint(state.Title(opts.WeekStart)))
	switch state.View {
	case model.ViewWeek:
		renderTime(w, grid.Week(events, state.Date, now, opts))
	case model.ViewDay:
		renderTime(w, grid.Day(events, state.Date, now, opts))
	default:
		renderMonth(w, grid.Month(events, state.Date, now, opts), opts.WeekStart)
	}
}

func weekdayHeader(weekStart time.Weekday) []interface{} {
	row := make([]interface{}, 7)
	for i := range row {
		row[i] = time.Weekday((int(weekStart) + i) % 7).String()[:3]
	}
	return row
}

func renderMonth(w io.Writer, g grid.MonthGrid, weekStart time.Weekday) {
	tbl := uitable.New()
	tbl.Separator = "  "
	tbl.AddRow(weekdayHeader(weekStart)...)
	for _, week := range g.Weeks() {
		row := make([]interface{}, len(week))
		for i, c := range week {
			row[i] = dayLabel(c)
		}
		tbl.AddRow(row...)
	}
	fmt.Fprintln(w, tbl)

	list := uitable.New()
	list.MaxColWidth = maxColWidth * 2
	list.Wrap = true
	for _, c := range g.Cells {
		if !c.IsCurrentMonth || (len(c.Events) == 0 && c.More == 0) {
			continue
		}
		date := c.Date.Format("Mon Jan 2")
		for _, ev := range c.Events {
			list.AddRow(date, ev.Start.In(c.Date.Location()).Format("3:04 PM"), eventLabel(ev))
			date = ""
		}
		if c.More > 0 {
			list.AddRow(date, "", moreStyle.Sprintf("+%d more", c.More))
		}
	}
	if len(list.Rows) > 0 {
		fmt.Fprintln(w)
		fmt.Fprintln(w, list)
	}
}

func dayLabel(c grid.Cell) string {
	label := fmt.Sprintf("%2d", c.Date.Day())
	if n := len(c.Events) + c.More; n > 0 && c.IsCurrentMonth {
		label += fmt.Sprintf("·%d", n)
	}
	switch {
	case c.IsToday:
		return todayStyle.Sprint(label)
	case !c.IsCurrentMonth:
		return fillStyle.Sprint(label)
	}
	return label
}

func renderTime(w io.Writer, g grid.TimeGrid) {
	tbl := uitable.New()
	tbl.MaxColWidth = maxColWidth
	tbl.Wrap = true
	tbl.Separator = " | "

	header := []interface{}{""}
	for _, col := range g.Columns {
		h := col.Date.Format("Mon 1/2")
		if col.IsToday {
			h = todayStyle.Sprint(h)
		}
		header = append(header, h)
	}
	tbl.AddRow(header...)

	for i, hour := range g.Hours {
		row := []interface{}{hourLabel(hour)}
		for _, col := range g.Columns {
			titles := make([]string, 0, len(col.Slots[i].Events))
			for _, ev := range col.Slots[i].Events {
				titles = append(titles, eventLabel(ev))
			}
			row = append(row, strings.Join(titles, ", "))
		}
		tbl.AddRow(row...)
	}

	hidden := []interface{}{""}
	hasHidden := false
	for _, col := range g.Columns {
		if col.Hidden > 0 {
			hasHidden = true
			hidden = append(hidden, moreStyle.Sprintf("+%d outside hours", col.Hidden))
		} else {
			hidden = append(hidden, "")
		}
	}
	if hasHidden {
		tbl.AddRow(hidden...)
	}
	fmt.Fprintln(w, tbl)
}

func hourLabel(h int) string {
	return time.Date(2000, 1, 1, h, 0, 0, 0, time.UTC).Format("3 PM")
}

func eventLabel(ev model.Event) string {
	if st, ok := categoryStyles[ev.Category]; ok {
		return st.Sprint(ev.Title)
	}
	return ev.Title
}
