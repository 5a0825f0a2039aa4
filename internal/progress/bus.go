// Package progress fans job progress events out to per-job subscribers.
//
// Publish never blocks. Each subscription owns a bounded buffer; when it is
// full the oldest pending event is discarded to make room for the newest, so
// a slow client always converges on the latest job state.
package progress

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"

	"github.com/timmy/surrogates/internal/domain"
	"github.com/timmy/surrogates/internal/logger"
)

// DefaultBufferSize is used when New receives a non-positive size.
const DefaultBufferSize = 32

var (
	// ErrBusClosed is returned when subscribing to a closed bus.
	ErrBusClosed = errors.New("progress bus is closed")
)

// Stats is a snapshot of bus counters.
type Stats struct {
	Published   uint64
	Sent        uint64
	Dropped     uint64
	Subscribers int
}

// Bus distributes progress events to subscribers keyed by job id.
type Bus struct {
	mu         sync.RWMutex
	subs       map[string]map[uint64]*Subscription
	nextID     uint64
	bufferSize int
	closed     bool

	published atomic.Uint64
	sent      atomic.Uint64
	dropped   atomic.Uint64
}

// Subscription receives the events of one job until closed.
type Subscription struct {
	id    uint64
	jobID string
	ch    chan domain.ProgressEvent
	bus   *Bus
	once  sync.Once
}

// New creates a bus whose subscriptions buffer up to bufferSize events.
func New(bufferSize int) *Bus {
	if bufferSize <= 0 {
		bufferSize = DefaultBufferSize
	}
	return &Bus{
		subs:       make(map[string]map[uint64]*Subscription),
		bufferSize: bufferSize,
	}
}

// Subscribe registers a new subscription for jobID.
func (b *Bus) Subscribe(jobID string) (*Subscription, error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.closed {
		return nil, ErrBusClosed
	}

	b.nextID++
	sub := &Subscription{
		id:    b.nextID,
		jobID: jobID,
		ch:    make(chan domain.ProgressEvent, b.bufferSize),
		bus:   b,
	}
	if b.subs[jobID] == nil {
		b.subs[jobID] = make(map[uint64]*Subscription)
	}
	b.subs[jobID][sub.id] = sub
	return sub, nil
}

// Publish delivers event to every current subscriber of jobID.
func (b *Bus) Publish(ctx context.Context, jobID string, event domain.ProgressEvent) {
	b.published.Add(1)

	b.mu.RLock()
	defer b.mu.RUnlock()

	if b.closed {
		return
	}
	subs := b.subs[jobID]
	if len(subs) == 0 {
		logger.CtxDebug(ctx, "No subscribers for job %s, event dropped", jobID)
		return
	}
	for _, sub := range subs {
		b.deliver(sub, event)
	}
}

// deliver must be called with at least the read lock held.
func (b *Bus) deliver(sub *Subscription, event domain.ProgressEvent) {
	select {
	case sub.ch <- event:
		b.sent.Add(1)
		return
	default:
	}

	// Buffer full: discard the oldest pending event and retry once.
	select {
	case <-sub.ch:
		b.dropped.Add(1)
	default:
	}
	select {
	case sub.ch <- event:
		b.sent.Add(1)
	default:
		b.dropped.Add(1)
	}
}

// Stats returns a snapshot of the bus counters.
func (b *Bus) Stats() Stats {
	b.mu.RLock()
	n := 0
	for _, subs := range b.subs {
		n += len(subs)
	}
	b.mu.RUnlock()

	return Stats{
		Published:   b.published.Load(),
		Sent:        b.sent.Load(),
		Dropped:     b.dropped.Load(),
		Subscribers: n,
	}
}

// SubscriberCount returns the number of live subscriptions for jobID.
func (b *Bus) SubscriberCount(jobID string) int {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return len(b.subs[jobID])
}

// Close closes every subscription. It is safe to call more than once.
func (b *Bus) Close() error {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.closed {
		return nil
	}
	b.closed = true
	for jobID, subs := range b.subs {
		for _, sub := range subs {
			sub.once.Do(func() { close(sub.ch) })
		}
		delete(b.subs, jobID)
	}
	return nil
}

func (b *Bus) remove(sub *Subscription) {
	b.mu.Lock()
	defer b.mu.Unlock()

	if subs, ok := b.subs[sub.jobID]; ok {
		delete(subs, sub.id)
		if len(subs) == 0 {
			delete(b.subs, sub.jobID)
		}
	}
	sub.once.Do(func() { close(sub.ch) })
}

// Events returns the channel of delivered events. It is closed when the
// subscription or the bus is closed.
func (s *Subscription) Events() <-chan domain.ProgressEvent {
	return s.ch
}

// JobID returns the job this subscription follows.
func (s *Subscription) JobID() string {
	return s.jobID
}

// Close unregisters the subscription. It is safe to call more than once.
func (s *Subscription) Close() {
	s.bus.remove(s)
}
