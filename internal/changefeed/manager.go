// Package changefeed fans applied mutation batches out to in-process subscribers.
//
// Publishing never waits on a subscriber: events are queued and a dispatcher copies them to
// each subscriber's buffered channel, dropping (and counting) events for subscribers that
// fall behind.
package changefeed

import (
	"errors"
	"fmt"
	"sync"
	"sync/atomic"

	"github.com/alphadose/zenq/v2"
	"github.com/google/uuid"
	"github.com/litetable/litetable-embedded/internal/litetable"
	"github.com/rs/zerolog/log"
)

const (
	defaultQueueSize  = 1 << 12
	defaultBufferSize = 256
)

// Event is one applied batch.
type Event struct {
	Table     string               `json:"table"`
	LSN       uint64               `json:"lsn"`
	Row       []byte               `json:"row"`
	Mutations []litetable.Mutation `json:"mutations"`
}

type Config struct {
	// QueueSize bounds the events waiting for the dispatcher.
	QueueSize int
	// BufferSize is the channel capacity of each subscriber.
	BufferSize int
}

func (c *Config) validate() error {
	var errGrp []error
	if c.QueueSize < 0 {
		errGrp = append(errGrp, fmt.Errorf("invalid queue size: %d", c.QueueSize))
	}
	if c.BufferSize < 0 {
		errGrp = append(errGrp, fmt.Errorf("invalid buffer size: %d", c.BufferSize))
	}
	return errors.Join(errGrp...)
}

type Manager struct {
	queue      *zenq.ZenQ[*Event]
	bufferSize int

	subs    map[uuid.UUID]*Subscription
	subsMux sync.Mutex

	published atomic.Uint64
	dropped   atomic.Uint64

	started atomic.Bool
	stopped atomic.Bool
	done    chan struct{}
}

func New(cfg *Config) (*Manager, error) {
	if err := cfg.validate(); err != nil {
		return nil, err
	}

	queueSize := cfg.QueueSize
	if queueSize == 0 {
		queueSize = defaultQueueSize
	}
	bufferSize := cfg.BufferSize
	if bufferSize == 0 {
		bufferSize = defaultBufferSize
	}

	return &Manager{
		queue:      zenq.New[*Event](uint32(queueSize)),
		bufferSize: bufferSize,
		subs:       make(map[uuid.UUID]*Subscription),
		done:       make(chan struct{}),
	}, nil
}

// Start runs the dispatcher.
func (m *Manager) Start() error {
	if !m.started.CompareAndSwap(false, true) {
		return errors.New("change feed already started")
	}
	go m.dispatch()
	return nil
}

// Stop drains queued events to subscribers, then closes every subscription.
func (m *Manager) Stop() error {
	if !m.stopped.CompareAndSwap(false, true) {
		return nil
	}
	m.queue.Close()
	if m.started.Load() {
		<-m.done
	}

	m.subsMux.Lock()
	defer m.subsMux.Unlock()
	for id, sub := range m.subs {
		close(sub.events)
		delete(m.subs, id)
	}

	log.Debug().Uint64("published", m.published.Load()).Uint64("dropped", m.dropped.Load()).
		Msg("change feed stopped")
	return nil
}

func (m *Manager) Name() string {
	return "Change Feed"
}

// Publish queues an event. Events published before Start or after Stop are discarded;
// those before Start are counted as dropped, since nothing drains the queue yet.
func (m *Manager) Publish(e *Event) {
	if m.stopped.Load() {
		return
	}
	if !m.started.Load() {
		m.dropped.Add(1)
		return
	}
	if closed := m.queue.Write(e); closed {
		return
	}
	m.published.Add(1)
}

// Published is the number of events accepted by Publish.
func (m *Manager) Published() uint64 {
	return m.published.Load()
}

// Dropped is the number of events discarded before Start plus the deliveries skipped because
// a subscriber's buffer was full.
func (m *Manager) Dropped() uint64 {
	return m.dropped.Load()
}

func (m *Manager) dispatch() {
	defer close(m.done)
	for {
		e, open := m.queue.Read()
		if !open {
			return
		}
		m.fanOut(e)
	}
}

func (m *Manager) fanOut(e *Event) {
	m.subsMux.Lock()
	defer m.subsMux.Unlock()

	for _, sub := range m.subs {
		select {
		case sub.events <- e:
		default:
			sub.dropped.Add(1)
			m.dropped.Add(1)
		}
	}
}
