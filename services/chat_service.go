package services

import (
	"log/slog"

	"chat-relay/domain"
	"chat-relay/repositories"
	"chat-relay/runtime"
)

// ChatService composes the history repository and the subscription
// registry behind the four room operations. Posting appends to history
// first and then publishes to the live feed as two independent steps:
// concurrent posts to the same room may land in history in one order
// and be observed live in another. Merging the two under one room lock
// would be required to strengthen that, and nothing here relies on it.
type ChatService struct {
	history  repositories.IHistoryRepository
	registry *runtime.Registry
	log      *slog.Logger
}

func NewChatService(history repositories.IHistoryRepository, registry *runtime.Registry, log *slog.Logger) *ChatService {
	return &ChatService{history: history, registry: registry, log: log}
}

// PostEvent records the event durably for the process lifetime, then
// hands it to whoever is currently attached. The room is created
// implicitly on first reference.
func (s *ChatService) PostEvent(event domain.ChatEvent) error {
	if err := s.history.Append(event); err != nil {
		return err
	}
	s.registry.Publish(event.RoomID, event)
	return nil
}

// JoinRoom returns a live subscription for the room, creating the room
// and its fanout if absent. Closing the subscription is mandatory; the
// handle runs the best-effort teardown itself, so LeaveRoom is only
// needed by callers managing handles they did not open.
func (s *ChatService) JoinRoom(roomID domain.RoomID) *runtime.Subscription {
	// A join alone makes the room exist for history reads.
	s.history.Touch(roomID)
	return s.registry.Subscribe(roomID)
}

// LeaveRoom requests the best-effort removal of the room's fanout. It
// only takes effect when no subscriber is attached at the instant of
// the check.
func (s *ChatService) LeaveRoom(roomID domain.RoomID) {
	s.registry.Unsubscribe(roomID)
}

// GetHistory returns an ordered snapshot of every event ever posted to
// the room.
func (s *ChatService) GetHistory(roomID domain.RoomID) ([]domain.ChatEvent, error) {
	return s.history.Snapshot(roomID)
}
