package changefeed

import (
	"sync/atomic"

	"github.com/google/uuid"
)

// Subscription receives every event published after it was created.
type Subscription struct {
	id      uuid.UUID
	events  chan *Event
	dropped atomic.Uint64
	feed    *Manager
}

// Subscribe registers a new subscriber. The channel of a subscription made after Stop is
// already closed.
func (m *Manager) Subscribe() *Subscription {
	sub := &Subscription{
		id:     uuid.New(),
		events: make(chan *Event, m.bufferSize),
		feed:   m,
	}

	m.subsMux.Lock()
	defer m.subsMux.Unlock()
	if m.stopped.Load() {
		close(sub.events)
		return sub
	}
	m.subs[sub.id] = sub
	return sub
}

func (s *Subscription) ID() uuid.UUID {
	return s.id
}

// Events is closed when the subscription or the feed is closed.
func (s *Subscription) Events() <-chan *Event {
	return s.events
}

// Dropped is the number of events this subscriber missed.
func (s *Subscription) Dropped() uint64 {
	return s.dropped.Load()
}

// Close unregisters the subscription. It is safe to call more than once.
func (s *Subscription) Close() {
	s.feed.subsMux.Lock()
	defer s.feed.subsMux.Unlock()
	if _, ok := s.feed.subs[s.id]; !ok {
		return
	}
	delete(s.feed.subs, s.id)
	close(s.events)
}
