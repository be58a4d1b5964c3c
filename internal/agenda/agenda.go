// Package agenda logs a digest of the day's events on a cron schedule.
package agenda

import (
	"fmt"
	"time"

	"github.com/robfig/cron/v3"

	"gridcal/internal/assistant"
	"gridcal/internal/grid"
	appLog "gridcal/internal/log"
	"gridcal/internal/model"
)

// EventSource gives the digest read access to the calendar.
type EventSource interface {
	List() []model.Event
}

// Digest summarizes the events starting on now's calendar day.
func Digest(events []model.Event, now time.Time) string {
	today := grid.EventsOn(events, now)
	if len(today) == 0 {
		return fmt.Sprintf("%s: nothing scheduled", now.Format("Mon Jan 2"))
	}
	return fmt.Sprintf("%s: %d event(s)\n%s", now.Format("Mon Jan 2"), len(today), assistant.FormatAgenda(today, now.Location()))
}

// Scheduler runs the digest job.
type Scheduler struct {
	cron   *cron.Cron
	events EventSource
	now    func() time.Time
	loc    *time.Location
	notify func(string)
}

// New builds a scheduler evaluating the cron schedule in loc. notify receives each
// digest; nil logs it.
func New(schedule string, loc *time.Location, events EventSource, notify func(string)) (*Scheduler, error) {
	if loc == nil {
		loc = time.Local
	}
	s := &Scheduler{
		cron:   cron.New(cron.WithLocation(loc)),
		events: events,
		now:    time.Now,
		loc:    loc,
		notify: notify,
	}
	if s.notify == nil {
		s.notify = func(d string) { appLog.Info("agenda digest", "digest", d) }
	}
	if _, err := s.cron.AddFunc(schedule, s.Run); err != nil {
		return nil, fmt.Errorf("agenda: invalid schedule %q: %w", schedule, err)
	}
	return s, nil
}

// Run emits one digest immediately.
func (s *Scheduler) Run() {
	s.notify(Digest(s.events.List(), s.now().In(s.loc)))
}

func (s *Scheduler) Start() {
	s.cron.Start()
	for _, e := range s.cron.Entries() {
		appLog.Info("agenda scheduler started", "next", e.Next.Format(time.RFC3339))
	}
}

// Stop waits for a running job to finish.
func (s *Scheduler) Stop() {
	<-s.cron.Stop().Done()
	appLog.Info("agenda scheduler stopped")
}
