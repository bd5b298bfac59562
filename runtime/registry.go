package runtime

import (
	"log/slog"
	"sync"

	"chat-relay/domain"
)

// Registry owns the per-room fanouts. A fanout exists only while at
// least one subscriber is attached (modulo the deliberately best-effort
// teardown window, see Unsubscribe). Creation is race-free: the map is
// only touched inside the registry mutex, so exactly one fanout ever
// wins for a room even under concurrent first subscribes.
type Registry struct {
	mu       sync.Mutex
	fanouts  map[domain.RoomID]*Fanout
	capacity int
	log      *slog.Logger
}

func NewRegistry(log *slog.Logger, capacity int) *Registry {
	return &Registry{
		fanouts:  make(map[domain.RoomID]*Fanout),
		capacity: capacity,
		log:      log,
	}
}

// Subscribe attaches to the room's fanout, creating it on first use.
// The attach happens inside the registry critical section so a
// concurrent Unsubscribe can never observe the fanout with a zero
// receiver count between creation and attachment.
func (r *Registry) Subscribe(roomID domain.RoomID) *Subscription {
	r.mu.Lock()
	defer r.mu.Unlock()

	fanout, ok := r.fanouts[roomID]
	if !ok {
		fanout = newFanout(r.capacity)
		r.fanouts[roomID] = fanout
		r.log.Debug("Fanout created", "room", roomID.String())
	}
	return fanout.attach(roomID, r.Unsubscribe)
}

// Publish pushes the event into the room's fanout if one exists. With
// no current subscribers the event is silently dropped from the live
// feed; history still has it. Publish never blocks and never fails the
// poster.
func (r *Registry) Publish(roomID domain.RoomID, event domain.ChatEvent) {
	r.mu.Lock()
	fanout, ok := r.fanouts[roomID]
	r.mu.Unlock()
	if ok {
		fanout.publish(event)
	}
}

// Unsubscribe removes the room's fanout only if the receiver count is
// exactly zero at the instant of the check. A subscriber attaching
// concurrently keeps the fanout alive; this is deliberate best-effort
// cleanup, bounding steady-state growth without coupling handle release
// and teardown atomically.
func (r *Registry) Unsubscribe(roomID domain.RoomID) {
	r.mu.Lock()
	defer r.mu.Unlock()

	fanout, ok := r.fanouts[roomID]
	if ok && fanout.receiverCount() == 0 {
		delete(r.fanouts, roomID)
		r.log.Debug("Fanout removed", "room", roomID.String())
	}
}

// Rooms reports how many rooms currently have a live fanout.
func (r *Registry) Rooms() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.fanouts)
}
