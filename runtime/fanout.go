// Package runtime handles live event propagation between posters and
// currently-attached subscribers. It orchestrates fan-out without
// containing business logic or domain rules.
package runtime

import (
	"context"
	"sync"

	"chat-relay/domain"
	"chat-relay/errors"
)

// DefaultFanoutCapacity is the number of pending events the shared ring
// retains for slow subscribers before the oldest are overwritten.
const DefaultFanoutCapacity = 16

// Fanout is the live pipe of a single room: a bounded multi-producer,
// multi-consumer broadcast ring. Publishing never blocks; a subscriber
// that falls behind by more than the capacity loses the oldest events
// and is handed an explicit lag signal on its next read.
//
// Fanout is safe for concurrent use by multiple goroutines.
type Fanout struct {
	mu        sync.Mutex
	buf       []domain.ChatEvent
	next      uint64 // sequence assigned to the next published event
	receivers int
	notify    chan struct{} // closed and replaced on every publish
}

func newFanout(capacity int) *Fanout {
	if capacity <= 0 {
		capacity = DefaultFanoutCapacity
	}
	return &Fanout{
		buf:    make([]domain.ChatEvent, capacity),
		notify: make(chan struct{}),
	}
}

// publish appends the event to the ring, overwriting the oldest retained
// entry when full, and wakes every blocked subscriber.
func (f *Fanout) publish(event domain.ChatEvent) {
	f.mu.Lock()
	f.buf[f.next%uint64(len(f.buf))] = event
	f.next++
	wake := f.notify
	f.notify = make(chan struct{})
	f.mu.Unlock()

	close(wake)
}

// oldest returns the sequence of the oldest event still retained.
// Callers must hold f.mu.
func (f *Fanout) oldest() uint64 {
	capacity := uint64(len(f.buf))
	if f.next >= capacity {
		return f.next - capacity
	}
	return 0
}

// attach registers a new subscription starting at the current head, so
// it only observes events published after the attach. Callers must
// guarantee the fanout is still reachable from the registry (see
// Registry.Subscribe).
func (f *Fanout) attach(room domain.RoomID, detached func(domain.RoomID)) *Subscription {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.receivers++
	return &Subscription{
		fanout:   f,
		room:     room,
		pos:      f.next,
		closed:   make(chan struct{}),
		detached: detached,
	}
}

// receiverCount reports how many subscriptions are currently attached.
func (f *Fanout) receiverCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.receivers
}

// Subscription is one attachment to a room's fanout. It must be closed
// when the caller stops consuming it; Close also requests the
// best-effort teardown of the room's fanout, so no separate leave call
// is needed on the happy path.
type Subscription struct {
	fanout    *Fanout
	room      domain.RoomID
	pos       uint64
	closeOnce sync.Once
	closed    chan struct{}
	detached  func(domain.RoomID)
}

// Room is the room this subscription is attached to.
func (s *Subscription) Room() domain.RoomID {
	return s.room
}

// Next blocks until the next live event, a lag signal, ctx cancellation,
// or Close. When the subscriber has fallen behind the ring, Next returns
// a LagError once, skips to the oldest retained event, and subsequent
// calls resume normal delivery. Next must not be called from multiple
// goroutines at once.
func (s *Subscription) Next(ctx context.Context) (domain.ChatEvent, error) {
	select {
	case <-s.closed:
		return domain.ChatEvent{}, errors.ErrSubClosed
	default:
	}

	f := s.fanout
	for {
		f.mu.Lock()
		if oldest := f.oldest(); s.pos < oldest {
			skipped := oldest - s.pos
			s.pos = oldest
			f.mu.Unlock()
			return domain.ChatEvent{}, errors.LagError{Skipped: skipped}
		}
		if s.pos < f.next {
			event := f.buf[s.pos%uint64(len(f.buf))]
			s.pos++
			f.mu.Unlock()
			return event, nil
		}
		wake := f.notify
		f.mu.Unlock()

		select {
		case <-ctx.Done():
			return domain.ChatEvent{}, ctx.Err()
		case <-s.closed:
			return domain.ChatEvent{}, errors.ErrSubClosed
		case <-wake:
		}
	}
}

// TryNext is the non-blocking variant of Next. The boolean reports
// whether an event or lag signal was available.
func (s *Subscription) TryNext() (domain.ChatEvent, bool, error) {
	select {
	case <-s.closed:
		return domain.ChatEvent{}, false, errors.ErrSubClosed
	default:
	}

	f := s.fanout
	f.mu.Lock()
	defer f.mu.Unlock()
	if oldest := f.oldest(); s.pos < oldest {
		skipped := oldest - s.pos
		s.pos = oldest
		return domain.ChatEvent{}, true, errors.LagError{Skipped: skipped}
	}
	if s.pos < f.next {
		event := f.buf[s.pos%uint64(len(f.buf))]
		s.pos++
		return event, true, nil
	}
	return domain.ChatEvent{}, false, nil
}

// Close detaches the subscription, wakes a blocked Next, and requests
// the best-effort teardown of the room's fanout. Close is idempotent.
func (s *Subscription) Close() {
	s.closeOnce.Do(func() {
		close(s.closed)

		f := s.fanout
		f.mu.Lock()
		f.receivers--
		f.mu.Unlock()

		if s.detached != nil {
			s.detached(s.room)
		}
	})
}
