// Package store owns the list of calendar events. Every mutation replaces
// the in-memory list, re-persists the whole list into a single key-value
// entry and then notifies subscribers.
package store

import (
	"encoding/json"
	"errors"
	"fmt"
	"sync"

	"github.com/google/uuid"

	"monthcal/internal/kv"
	appLog "monthcal/internal/log"
	"monthcal/internal/model"
)

// DefaultKey is the key-value entry holding the serialized event list.
const DefaultKey = "EVENTS"

// Store is the single owner of the event list. Readers get copies.
type Store struct {
	mu     sync.RWMutex
	kv     kv.Store
	key    string
	events []model.Event
	newID  func() string

	subsMu  sync.Mutex
	subs    map[int]func([]model.Event)
	nextSub int
}

type Option func(*Store)

// WithKey overrides the key-value entry name.
func WithKey(key string) Option {
	return func(s *Store) {
		if key != "" {
			s.key = key
		}
	}
}

// WithIDGenerator replaces the UUID generator, mainly for tests.
func WithIDGenerator(f func() string) Option {
	return func(s *Store) {
		if f != nil {
			s.newID = f
		}
	}
}

// Open loads the persisted list. A missing entry yields an empty store; an
// entry that does not parse is discarded with a warning and the store
// starts empty. Only a failing backend read is returned as an error.
func Open(backend kv.Store, opts ...Option) (*Store, error) {
	s := &Store{
		kv:    backend,
		key:   DefaultKey,
		newID: uuid.NewString,
		subs:  make(map[int]func([]model.Event)),
	}
	for _, opt := range opts {
		opt(s)
	}

	data, err := backend.Get(s.key)
	switch {
	case errors.Is(err, kv.ErrNotFound):
		s.events = []model.Event{}
		return s, nil
	case err != nil:
		return nil, fmt.Errorf("store: loading %s: %w", s.key, err)
	}

	var events []model.Event
	if err := json.Unmarshal(data, &events); err != nil {
		appLog.Warn("store: discarding unreadable persisted events", "key", s.key, "err", err)
		events = nil
	}
	if events == nil {
		events = []model.Event{}
	}
	s.events = events

	appLog.Debug("store: loaded events", "key", s.key, "count", len(events))
	return s, nil
}

// Events returns a copy of the current list in insertion order.
func (s *Store) Events() []model.Event {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return clone(s.events)
}

// Get looks up a single event.
func (s *Store) Get(id string) (model.Event, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, ev := range s.events {
		if ev.ID == id {
			return ev, true
		}
	}
	return model.Event{}, false
}

// Add assigns a fresh id, appends the event and persists.
func (s *Store) Add(in model.EventInput) (model.Event, error) {
	var added model.Event
	err := s.mutate("add", func(events []model.Event) []model.Event {
		added = normalize(in).WithID(s.uniqueID(events))
		return append(events, added)
	})
	return added, err
}

// Edit replaces the event with the given id, keeping the id. An unknown id
// leaves the list unchanged.
func (s *Store) Edit(id string, in model.EventInput) error {
	return s.mutate("edit", func(events []model.Event) []model.Event {
		for i := range events {
			if events[i].ID == id {
				events[i] = normalize(in).WithID(id)
			}
		}
		return events
	})
}

// Remove drops the event with the given id. An unknown id leaves the list
// unchanged.
func (s *Store) Remove(id string) error {
	return s.mutate("remove", func(events []model.Event) []model.Event {
		out := events[:0]
		for _, ev := range events {
			if ev.ID != id {
				out = append(out, ev)
			}
		}
		return out
	})
}

// Replace swaps in a whole new list, used by imports. Ids are kept when
// present and assigned when empty.
func (s *Store) Replace(events []model.Event) error {
	return s.mutate("replace", func([]model.Event) []model.Event {
		out := make([]model.Event, 0, len(events))
		for _, ev := range events {
			if ev.ID == "" {
				ev.ID = s.uniqueID(out)
			}
			ev.Timing = normalize(ev.Input()).Timing
			out = append(out, ev)
		}
		return out
	})
}

// Subscribe registers fn to receive the new list after every mutation.
// The returned function unregisters it.
func (s *Store) Subscribe(fn func([]model.Event)) (cancel func()) {
	s.subsMu.Lock()
	defer s.subsMu.Unlock()
	id := s.nextSub
	s.nextSub++
	s.subs[id] = fn
	return func() {
		s.subsMu.Lock()
		defer s.subsMu.Unlock()
		delete(s.subs, id)
	}
}

// mutate applies fn to a private copy, installs the result and persists the
// full list. The in-memory list is replaced even when the write fails; the
// next mutation writes everything again.
func (s *Store) mutate(op string, fn func([]model.Event) []model.Event) error {
	s.mu.Lock()
	next := fn(clone(s.events))
	s.events = next
	err := s.persistLocked()
	snapshot := clone(next)
	s.mu.Unlock()

	if err != nil {
		appLog.Error("store: persist failed", err, "op", op, "key", s.key)
	} else {
		appLog.Debug("store: persisted", "op", op, "count", len(snapshot))
	}

	s.notify(snapshot)
	return err
}

func (s *Store) persistLocked() error {
	data, err := json.Marshal(s.events)
	if err != nil {
		return fmt.Errorf("store: encoding events: %w", err)
	}
	if err := s.kv.Set(s.key, data); err != nil {
		return fmt.Errorf("store: writing %s: %w", s.key, err)
	}
	return nil
}

func (s *Store) notify(events []model.Event) {
	s.subsMu.Lock()
	fns := make([]func([]model.Event), 0, len(s.subs))
	for _, fn := range s.subs {
		fns = append(fns, fn)
	}
	s.subsMu.Unlock()

	for _, fn := range fns {
		fn(clone(events))
	}
}

func (s *Store) uniqueID(existing []model.Event) string {
	for {
		id := s.newID()
		taken := false
		for _, ev := range existing {
			if ev.ID == id {
				taken = true
				break
			}
		}
		if !taken {
			return id
		}
	}
}

func normalize(in model.EventInput) model.EventInput {
	if in.Timing == nil {
		in.Timing = model.AllDay{}
	}
	return in
}

func clone(events []model.Event) []model.Event {
	out := make([]model.Event, len(events))
	copy(out, events)
	return out
}
