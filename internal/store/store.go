// Package store holds the in-memory event collection. It is the only
// authoritative copy of the calendar; views derive filtered copies per render.
package store

import (
	"errors"
	"fmt"
	"sync"

	"gridcal/internal/model"
)

var (
	ErrNotFound    = errors.New("event not found")
	ErrDuplicateID = errors.New("event id already exists")
	ErrEmptyID     = errors.New("event id is empty")
)

// Store is an ordered, concurrency-safe collection of events.
// Insertion order is preserved and is the default display order.
type Store struct {
	mu     sync.RWMutex
	events []model.Event
}

// New returns a store pre-filled with seed. Invalid seed events are rejected.
func New(seed ...model.Event) (*Store, error) {
	s := &Store{}
	for _, ev := range seed {
		if err := s.Add(ev); err != nil {
			return nil, fmt.Errorf("seed %q: %w", ev.ID, err)
		}
	}
	return s, nil
}

// Add appends ev. The caller supplies a fresh unique ID.
func (s *Store) Add(ev model.Event) error {
	if err := check(ev); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.indexOf(ev.ID) >= 0 {
		return fmt.Errorf("%w: %s", ErrDuplicateID, ev.ID)
	}
	s.events = append(s.events, ev.Normalized())
	return nil
}

// Update replaces the event sharing ev.ID, keeping its position.
func (s *Store) Update(ev model.Event) error {
	if err := check(ev); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	i := s.indexOf(ev.ID)
	if i < 0 {
		return fmt.Errorf("%w: %s", ErrNotFound, ev.ID)
	}
	s.events[i] = ev.Normalized()
	return nil
}

// Upsert updates the event sharing ev.ID in place or appends it. It reports
// whether ev was appended.
func (s *Store) Upsert(ev model.Event) (bool, error) {
	if err := check(ev); err != nil {
		return false, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if i := s.indexOf(ev.ID); i >= 0 {
		s.events[i] = ev.Normalized()
		return false, nil
	}
	s.events = append(s.events, ev.Normalized())
	return true, nil
}

// Remove deletes the event with the given id.
func (s *Store) Remove(id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	i := s.indexOf(id)
	if i < 0 {
		return fmt.Errorf("%w: %s", ErrNotFound, id)
	}
	s.events = append(s.events[:i], s.events[i+1:]...)
	return nil
}

// Get looks up a single event.
func (s *Store) Get(id string) (model.Event, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	i := s.indexOf(id)
	if i < 0 {
		return model.Event{}, false
	}
	return s.events[i], true
}

// List returns a copy of all events in insertion order.
func (s *Store) List() []model.Event {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]model.Event, len(s.events))
	copy(out, s.events)
	return out
}

func (s *Store) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.events)
}

// indexOf must be called with mu held.
func (s *Store) indexOf(id string) int {
	for i := range s.events {
		if s.events[i].ID == id {
			return i
		}
	}
	return -1
}

func check(ev model.Event) error {
	if ev.ID == "" {
		return ErrEmptyID
	}
	return ev.Validate()
}
