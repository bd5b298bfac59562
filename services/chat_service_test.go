package services

import (
	"log/slog"
	"sync"
	"testing"

	"github.com/mama165/sdk-go/logs"
	"github.com/samber/lo"
	"github.com/stretchr/testify/require"

	"chat-relay/domain"
	"chat-relay/errors"
	"chat-relay/repositories"
	"chat-relay/runtime"
)

func newTestService() *ChatService {
	log := logs.GetLoggerFromLevel(slog.LevelDebug)
	history := repositories.NewHistoryRepository(log)
	registry := runtime.NewRegistry(log, runtime.DefaultFanoutCapacity)
	return NewChatService(history, registry, log)
}

func testEvent(roomID domain.RoomID, userID domain.UserID, eventID domain.EventID) domain.ChatEvent {
	return domain.ChatEvent{
		EventID:     eventID,
		Timestamp:   domain.Epoch(),
		RoomID:      roomID,
		UserID:      userID,
		DisplayName: domain.DisplayName(userID.String()),
		Body:        domain.MessageBody(userID.String()),
	}
}

func Test_History_Of_An_Unknown_Room_Fails_With_The_Room_ID(t *testing.T) {
	req := require.New(t)
	sut := newTestService()
	roomID := domain.NewRandomRoomID()

	_, err := sut.GetHistory(roomID)

	req.ErrorIs(err, errors.ErrRoomNotFound)
	var notFound errors.RoomNotFoundError
	req.ErrorAs(err, &notFound)
	req.Equal(roomID, notFound.RoomID)
}

func Test_Posting_To_An_Unknown_Room_Creates_It(t *testing.T) {
	req := require.New(t)
	sut := newTestService()
	roomID := domain.NewRandomRoomID()
	event := testEvent(roomID, domain.NewRandomUserID(), domain.NewRandomEventID())

	req.NoError(sut.PostEvent(event))

	history, err := sut.GetHistory(roomID)
	req.NoError(err)
	req.Len(history, 1)
	req.Equal(event, history[0])
}

func Test_Joining_An_Unknown_Room_Creates_It_With_An_Empty_History(t *testing.T) {
	req := require.New(t)
	sut := newTestService()
	roomID := domain.NewRandomRoomID()

	sub := sut.JoinRoom(roomID)
	defer sub.Close()

	history, err := sut.GetHistory(roomID)
	req.NoError(err)
	req.Empty(history)
}

func Test_Subscriber_Receives_A_Posted_Event_Exactly_Once(t *testing.T) {
	req := require.New(t)
	sut := newTestService()
	roomID := domain.NewRandomRoomID()
	event := testEvent(roomID, domain.NewRandomUserID(), domain.NewRandomEventID())

	sub := sut.JoinRoom(roomID)
	defer sub.Close()
	req.NoError(sut.PostEvent(event))

	received, ok, err := sub.TryNext()
	req.NoError(err)
	req.True(ok, "the posted event should be delivered")
	req.Equal(event.EventID, received.EventID)

	_, ok, err = sub.TryNext()
	req.NoError(err)
	req.False(ok, "only one event was posted, nothing else may arrive")
}

func Test_Concurrent_Posts_To_Two_Rooms_Never_Leak_Across(t *testing.T) {
	req := require.New(t)
	sut := newTestService()

	user1 := domain.NewRandomUserID()
	user2 := domain.NewRandomUserID()
	room1 := domain.NewRandomRoomID()
	room2 := domain.NewRandomRoomID()

	subRoom1 := sut.JoinRoom(room1)
	defer subRoom1.Close()
	subRoom2 := sut.JoinRoom(room2)
	defer subRoom2.Close()

	event1Room1 := domain.NewRandomEventID()
	event2Room1 := domain.NewRandomEventID()
	event1Room2 := domain.NewRandomEventID()
	event2Room2 := domain.NewRandomEventID()

	posts := []domain.ChatEvent{
		testEvent(room1, user1, event1Room1),
		testEvent(room2, user2, event1Room2),
		testEvent(room2, user1, event2Room2),
		testEvent(room1, user2, event2Room1),
	}

	start := make(chan struct{})
	var wg sync.WaitGroup
	for _, event := range posts {
		wg.Add(1)
		go func(event domain.ChatEvent) {
			defer wg.Done()
			<-start
			_ = sut.PostEvent(event)
		}(event)
	}
	close(start)
	wg.Wait()

	room1IDs := []domain.EventID{event1Room1, event2Room1}
	room2IDs := []domain.EventID{event1Room2, event2Room2}

	// Each subscriber sees exactly the 2 events of its own room,
	// whatever the interleaving was.
	for i := 0; i < 2; i++ {
		received, ok, err := subRoom1.TryNext()
		req.NoError(err)
		req.True(ok)
		req.Contains(room1IDs, received.EventID, "wrong event id received on room1: %s", received)
	}
	for i := 0; i < 2; i++ {
		received, ok, err := subRoom2.TryNext()
		req.NoError(err)
		req.True(ok)
		req.Contains(room2IDs, received.EventID, "wrong event id received on room2: %s", received)
	}
	_, ok, _ := subRoom1.TryNext()
	req.False(ok, "more than 2 events delivered to room1")
	_, ok, _ = subRoom2.TryNext()
	req.False(ok, "more than 2 events delivered to room2")

	// Histories hold the same 2 events per room.
	history1, err := sut.GetHistory(room1)
	req.NoError(err)
	req.Len(history1, 2)
	req.ElementsMatch(room1IDs, lo.Map(history1, func(e domain.ChatEvent, _ int) domain.EventID {
		return e.EventID
	}))

	history2, err := sut.GetHistory(room2)
	req.NoError(err)
	req.Len(history2, 2)
	req.ElementsMatch(room2IDs, lo.Map(history2, func(e domain.ChatEvent, _ int) domain.EventID {
		return e.EventID
	}))
}

func Test_Leave_Room_Is_Best_Effort(t *testing.T) {
	req := require.New(t)
	sut := newTestService()
	roomID := domain.NewRandomRoomID()

	sub := sut.JoinRoom(roomID)

	// A leave request while someone is attached must not tear anything
	// down; the subscription keeps working.
	sut.LeaveRoom(roomID)

	event := testEvent(roomID, domain.NewRandomUserID(), domain.NewRandomEventID())
	req.NoError(sut.PostEvent(event))

	received, ok, err := sub.TryNext()
	req.NoError(err)
	req.True(ok)
	req.Equal(event.EventID, received.EventID)

	sub.Close()
	sut.LeaveRoom(roomID)
}

func Test_Events_Posted_While_Nobody_Listens_Still_Reach_History(t *testing.T) {
	req := require.New(t)
	sut := newTestService()
	roomID := domain.NewRandomRoomID()

	event := testEvent(roomID, domain.NewRandomUserID(), domain.NewRandomEventID())
	req.NoError(sut.PostEvent(event))

	// Joining afterwards replays nothing live...
	sub := sut.JoinRoom(roomID)
	defer sub.Close()
	_, ok, err := sub.TryNext()
	req.NoError(err)
	req.False(ok)

	// ...but the history has it.
	history, err := sut.GetHistory(roomID)
	req.NoError(err)
	req.Len(history, 1)
	req.Equal(event.EventID, history[0].EventID)
}
