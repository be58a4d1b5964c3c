// Package assistant is the scripted chat panel: a fixed, ordered keyword
// rule table over lower-cased input plus an append-only transcript.
package assistant

import (
	"context"
	"errors"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	appLog "gridcal/internal/log"
	"gridcal/internal/model"
)

var ErrEmptyInput = errors.New("assistant: empty message")

// EventSource gives the assistant read access to the calendar.
type EventSource interface {
	List() []model.Event
}

// Options configures a Session. Zero values pick wall-clock time, random
// UUIDs and no delay.
type Options struct {
	// Delay is the visible "thinking" pause before a reply is appended.
	Delay time.Duration
	Now   func() time.Time
	NewID func() string
}

// Session owns the transcript for one calendar.
type Session struct {
	delay time.Duration
	now   func() time.Time
	newID func() string

	mu       sync.Mutex
	messages []model.Message
}

func NewSession(opts Options) *Session {
	s := &Session{
		delay: opts.Delay,
		now:   opts.Now,
		newID: opts.NewID,
	}
	if s.now == nil {
		s.now = time.Now
	}
	if s.newID == nil {
		s.newID = uuid.NewString
	}
	s.append(WelcomeMessage, false)
	return s
}

// Send echoes input into the transcript, waits for the configured delay and
// then appends the reply computed against the current events.
//
// The wait is bound to ctx: when ctx ends first the reply is dropped and
// ctx.Err() is returned, so a reply never lands after its caller is gone.
// The user message stays in the transcript either way.
func (s *Session) Send(ctx context.Context, input string, events EventSource) (Reply, error) {
	if strings.TrimSpace(input) == "" {
		return Reply{}, ErrEmptyInput
	}
	s.append(input, true)

	if s.delay > 0 {
		timer := time.NewTimer(s.delay)
		defer timer.Stop()
		select {
		case <-ctx.Done():
			appLog.Debug("assistant reply dropped", "reason", ctx.Err())
			return Reply{}, ctx.Err()
		case <-timer.C:
		}
	} else if err := ctx.Err(); err != nil {
		return Reply{}, err
	}

	var list []model.Event
	if events != nil {
		list = events.List()
	}
	rep := Respond(input, list, s.now(), s.newID)
	s.append(rep.Message, false)

	appLog.Debug("assistant replied", "rule", rep.Rule, "proposed_event", rep.Event != nil)
	return rep, nil
}

// Messages returns a copy of the transcript, oldest first.
func (s *Session) Messages() []model.Message {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]model.Message, len(s.messages))
	copy(out, s.messages)
	return out
}

func (s *Session) append(content string, isUser bool) {
	msg := model.Message{
		ID:        s.newID(),
		Content:   content,
		Timestamp: s.now(),
		IsUser:    isUser,
	}
	s.mu.Lock()
	s.messages = append(s.messages, msg)
	s.mu.Unlock()
}
