// Package form implements the event dialog: pre-filling it for a new or an
// existing event and turning a submission into a store mutation.
package form

import (
	"errors"
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"

	"gridcal/internal/model"
)

const (
	DateLayout = "2006-01-02"
	TimeLayout = "15:04"
)

var (
	// ErrIncomplete means a required field is missing; the dialog stays open.
	ErrIncomplete = errors.New("form is incomplete")
	// ErrInvalid means a field is present but malformed or inconsistent.
	ErrInvalid = errors.New("form is invalid")
	// ErrNotEditing is returned by Delete on a create dialog.
	ErrNotEditing = errors.New("delete is only available when editing")
)

type Mode int

const (
	ModeCreate Mode = iota
	ModeEdit
)

type Action int

const (
	ActionCancel Action = iota
	ActionCreate
	ActionUpdate
	ActionDelete
)

func (a Action) String() string {
	switch a {
	case ActionCreate:
		return "create"
	case ActionUpdate:
		return "update"
	case ActionDelete:
		return "delete"
	default:
		return "cancel"
	}
}

// Result is the single outcome of a dialog. Event is set for create and
// update; ID is set for update and delete.
type Result struct {
	Action Action
	Event  model.Event
	ID     string
}

// Form holds the dialog fields as the browser sends them.
type Form struct {
	Mode Mode   `validate:"-"`
	ID   string `validate:"-"`

	Title       string `validate:"required"`
	StartDate   string `validate:"required,datetime=2006-01-02"`
	StartTime   string `validate:"required,datetime=15:04"`
	EndDate     string `validate:"required,datetime=2006-01-02"`
	EndTime     string `validate:"required,datetime=15:04"`
	Description string `validate:"-"`
	Location    string `validate:"-"`
	Category    string `validate:"omitempty,oneof=default work personal important"`
}

var validate = validator.New()

// NewCreate pre-fills a create dialog for a clicked date. With hour < 0 only
// the date is known and the window defaults to 12:00-13:00; otherwise it is
// the hour clicked plus one.
func NewCreate(date time.Time, hour int) *Form {
	startH, endH := 12, 13
	if hour >= 0 && hour <= 23 {
		startH, endH = hour, hour+1
	}
	endTime := fmt.Sprintf("%02d:00", endH)
	if endH > 23 {
		endTime = "23:59"
	}
	d := date.Format(DateLayout)
	return &Form{
		Mode:      ModeCreate,
		StartDate: d,
		EndDate:   d,
		StartTime: fmt.Sprintf("%02d:00", startH),
		EndTime:   endTime,
		Category:  string(model.CategoryDefault),
	}
}

// NewEdit pre-fills an edit dialog from ev, shown in loc.
func NewEdit(ev model.Event, loc *time.Location) *Form {
	if loc == nil {
		loc = time.Local
	}
	start, end := ev.Start.In(loc), ev.End.In(loc)
	return &Form{
		Mode:        ModeEdit,
		ID:          ev.ID,
		Title:       ev.Title,
		StartDate:   start.Format(DateLayout),
		StartTime:   start.Format(TimeLayout),
		EndDate:     end.Format(DateLayout),
		EndTime:     end.Format(TimeLayout),
		Description: ev.Description,
		Location:    ev.Location,
		Category:    string(ev.Normalized().Category),
	}
}

// Apply overwrites the editable fields with posted values. Mode and ID are
// never taken from the request.
func (f *Form) Apply(v url.Values) {
	f.Title = v.Get("title")
	f.StartDate = v.Get("start_date")
	f.StartTime = v.Get("start_time")
	f.EndDate = v.Get("end_date")
	f.EndTime = v.Get("end_time")
	f.Description = v.Get("description")
	f.Location = v.Get("location")
	f.Category = v.Get("category")
}

// Ready reports whether the submit button should be enabled.
func (f *Form) Ready() bool {
	return strings.TrimSpace(f.Title) != "" && f.StartDate != "" && f.EndDate != ""
}

// Submit validates the fields and composes the event. newID supplies the
// identity of a created event. On error nothing should be mutated and the
// dialog stays open.
func (f *Form) Submit(loc *time.Location, newID func() string) (Result, error) {
	if loc == nil {
		loc = time.Local
	}
	f.Title = strings.TrimSpace(f.Title)
	if f.StartTime == "" {
		f.StartTime = "12:00"
	}
	if f.EndTime == "" {
		f.EndTime = "13:00"
	}

	if err := validate.Struct(f); err != nil {
		return Result{}, classify(err)
	}

	start, err := time.ParseInLocation(DateLayout+" "+TimeLayout, f.StartDate+" "+f.StartTime, loc)
	if err != nil {
		return Result{}, fmt.Errorf("%w: start: %v", ErrInvalid, err)
	}
	end, err := time.ParseInLocation(DateLayout+" "+TimeLayout, f.EndDate+" "+f.EndTime, loc)
	if err != nil {
		return Result{}, fmt.Errorf("%w: end: %v", ErrInvalid, err)
	}

	ev := model.Event{
		Title:       f.Title,
		Start:       start,
		End:         end,
		Description: f.Description,
		Location:    f.Location,
		Category:    model.ParseCategory(f.Category),
	}
	if err := ev.Validate(); err != nil {
		return Result{}, fmt.Errorf("%w: %v", ErrInvalid, err)
	}

	if f.Mode == ModeEdit {
		ev.ID = f.ID
		return Result{Action: ActionUpdate, Event: ev, ID: f.ID}, nil
	}
	ev.ID = newID()
	return Result{Action: ActionCreate, Event: ev}, nil
}

// Delete is only offered in edit mode.
func (f *Form) Delete() (Result, error) {
	if f.Mode != ModeEdit {
		return Result{}, ErrNotEditing
	}
	return Result{Action: ActionDelete, ID: f.ID}, nil
}

// Cancel discards the dialog.
func (f *Form) Cancel() Result {
	return Result{Action: ActionCancel}
}

// classify maps validator failures onto ErrIncomplete (a required field is
// empty) or ErrInvalid (anything else), naming the fields involved.
func classify(err error) error {
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return fmt.Errorf("%w: %v", ErrInvalid, err)
	}
	kind := ErrInvalid
	fields := make([]string, 0, len(verrs))
	for _, fe := range verrs {
		if fe.Tag() == "required" {
			kind = ErrIncomplete
		}
		fields = append(fields, fe.Field())
	}
	return fmt.Errorf("%w: %s", kind, strings.Join(fields, ", "))
}
