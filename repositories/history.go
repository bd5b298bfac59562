//go:generate go run go.uber.org/mock/mockgen -source=history.go -destination=../mocks/mock_history_repository.go -package=mocks
package repositories

import (
	"log/slog"
	"sync"

	"chat-relay/domain"
	"chat-relay/errors"
)

type IHistoryRepository interface {
	Append(event domain.ChatEvent) error
	Snapshot(roomID domain.RoomID) ([]domain.ChatEvent, error)
	Touch(roomID domain.RoomID)
	Rooms() int
}

// roomLog is the append-only event log of a single room.
// Each room carries its own mutex so two rooms never contend on append
// or snapshot, only on the brief top-level map access.
type roomLog struct {
	mu     sync.Mutex
	events []domain.ChatEvent
}

// HistoryRepository keeps the full ordered event log of every room that
// has ever been referenced, for the lifetime of the process. Logs grow
// without bound and entries are never removed.
type HistoryRepository struct {
	mu    sync.RWMutex
	rooms map[domain.RoomID]*roomLog
	log   *slog.Logger
}

func NewHistoryRepository(log *slog.Logger) *HistoryRepository {
	return &HistoryRepository{
		rooms: make(map[domain.RoomID]*roomLog),
		log:   log,
	}
}

// getOrCreate returns the room's log, creating it if absent.
// The map lock is only held for the lookup/insert, never while a room
// log is being written or copied.
func (r *HistoryRepository) getOrCreate(roomID domain.RoomID) *roomLog {
	r.mu.RLock()
	rl, ok := r.rooms[roomID]
	r.mu.RUnlock()
	if ok {
		return rl
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	// Someone may have created the log while we upgraded the lock.
	if rl, ok = r.rooms[roomID]; ok {
		return rl
	}
	rl = &roomLog{}
	r.rooms[roomID] = rl
	r.log.Debug("Room created", "room", roomID.String())
	return rl
}

// Append adds an event to its room's log, creating the room if needed.
// Appends for the same room are totally ordered by the room mutex;
// history order is append-completion order. The in-memory
// implementation never fails, the error return belongs to the
// repository contract.
func (r *HistoryRepository) Append(event domain.ChatEvent) error {
	rl := r.getOrCreate(event.RoomID)
	rl.mu.Lock()
	defer rl.mu.Unlock()
	rl.events = append(rl.events, event)
	return nil
}

// Snapshot returns a copy of the room's full ordered log.
func (r *HistoryRepository) Snapshot(roomID domain.RoomID) ([]domain.ChatEvent, error) {
	r.mu.RLock()
	rl, ok := r.rooms[roomID]
	r.mu.RUnlock()
	if !ok {
		return nil, errors.RoomNotFoundError{RoomID: roomID}
	}

	rl.mu.Lock()
	defer rl.mu.Unlock()
	return append([]domain.ChatEvent(nil), rl.events...), nil
}

// Touch makes the room exist with an empty log, so a join alone is
// enough for a later history read to succeed.
func (r *HistoryRepository) Touch(roomID domain.RoomID) {
	r.getOrCreate(roomID)
}

// Rooms reports how many rooms have ever been referenced.
func (r *HistoryRepository) Rooms() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.rooms)
}
