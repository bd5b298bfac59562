package runtime

import (
	"context"
	"fmt"
	"log/slog"
	"testing"
	"time"

	"github.com/mama165/sdk-go/logs"
	"github.com/stretchr/testify/require"

	"chat-relay/domain"
	"chat-relay/errors"
)

func testEvent(roomID domain.RoomID) domain.ChatEvent {
	userID := domain.NewRandomUserID()
	return domain.ChatEvent{
		EventID:     domain.NewRandomEventID(),
		Timestamp:   domain.Epoch(),
		RoomID:      roomID,
		UserID:      userID,
		DisplayName: domain.DisplayName(userID.String()),
		Body:        domain.MessageBody(userID.String()),
	}
}

func Test_Subscriber_Receives_Published_Event_Exactly_Once(t *testing.T) {
	req := require.New(t)
	registry := NewRegistry(logs.GetLoggerFromLevel(slog.LevelDebug), DefaultFanoutCapacity)
	roomID := domain.NewRandomRoomID()

	sub := registry.Subscribe(roomID)
	defer sub.Close()

	event := testEvent(roomID)
	registry.Publish(roomID, event)

	received, ok, err := sub.TryNext()
	req.NoError(err)
	req.True(ok, "the published event should be available")
	req.Equal(event.EventID, received.EventID)

	// Only one event was published, nothing more may be delivered.
	_, ok, err = sub.TryNext()
	req.NoError(err)
	req.False(ok)
}

func Test_Subscriber_Only_Sees_Events_Published_After_Attach(t *testing.T) {
	req := require.New(t)
	registry := NewRegistry(logs.GetLoggerFromLevel(slog.LevelDebug), DefaultFanoutCapacity)
	roomID := domain.NewRandomRoomID()

	early := registry.Subscribe(roomID)
	defer early.Close()
	registry.Publish(roomID, testEvent(roomID))

	late := registry.Subscribe(roomID)
	defer late.Close()

	_, ok, err := late.TryNext()
	req.NoError(err)
	req.False(ok, "a late subscriber must not replay earlier events")
}

func Test_Next_Blocks_Until_Publish(t *testing.T) {
	req := require.New(t)
	registry := NewRegistry(logs.GetLoggerFromLevel(slog.LevelDebug), DefaultFanoutCapacity)
	roomID := domain.NewRandomRoomID()

	sub := registry.Subscribe(roomID)
	defer sub.Close()

	event := testEvent(roomID)
	done := make(chan domain.ChatEvent, 1)
	go func() {
		received, err := sub.Next(context.Background())
		if err == nil {
			done <- received
		}
	}()

	// Give the reader a moment to block before publishing.
	time.Sleep(10 * time.Millisecond)
	registry.Publish(roomID, event)

	select {
	case received := <-done:
		req.Equal(event.EventID, received.EventID)
	case <-time.After(time.Second):
		req.Fail("Next did not wake up after publish")
	}
}

func Test_Slow_Subscriber_Gets_A_Lag_Signal_Then_Resumes(t *testing.T) {
	req := require.New(t)
	capacity := 4
	registry := NewRegistry(logs.GetLoggerFromLevel(slog.LevelDebug), capacity)
	roomID := domain.NewRandomRoomID()

	sub := registry.Subscribe(roomID)
	defer sub.Close()

	// Publish more than the ring holds while the subscriber reads nothing.
	overflow := 3
	var published []domain.ChatEvent
	for i := 0; i < capacity+overflow; i++ {
		event := testEvent(roomID)
		event.Body = domain.MessageBody(fmt.Sprintf("message %d", i))
		registry.Publish(roomID, event)
		published = append(published, event)
	}

	// The next read surfaces the gap instead of silently resuming.
	_, err := sub.Next(context.Background())
	lag, ok := errors.AsLag(err)
	req.True(ok, "expected a lag signal, got %v", err)
	req.ErrorIs(err, errors.ErrSlowConsumer)
	req.Equal(uint64(overflow), lag.Skipped)

	// After the signal the retained events flow in order.
	for i := overflow; i < capacity+overflow; i++ {
		received, err := sub.Next(context.Background())
		req.NoError(err)
		req.Equal(published[i].EventID, received.EventID)
	}

	// And live delivery continues normally afterwards.
	event := testEvent(roomID)
	registry.Publish(roomID, event)
	received, err := sub.Next(context.Background())
	req.NoError(err)
	req.Equal(event.EventID, received.EventID)
}

func Test_Publishers_Are_Never_Blocked_By_A_Stuck_Subscriber(t *testing.T) {
	req := require.New(t)
	capacity := 2
	registry := NewRegistry(logs.GetLoggerFromLevel(slog.LevelDebug), capacity)
	roomID := domain.NewRandomRoomID()

	sub := registry.Subscribe(roomID)
	defer sub.Close()

	done := make(chan struct{})
	go func() {
		defer close(done)
		for i := 0; i < 1000; i++ {
			registry.Publish(roomID, testEvent(roomID))
		}
	}()

	select {
	case <-done:
	case <-time.After(5 * time.Second):
		req.Fail("publishing stalled on a subscriber that never reads")
	}
}

func Test_Close_Wakes_A_Blocked_Next(t *testing.T) {
	req := require.New(t)
	registry := NewRegistry(logs.GetLoggerFromLevel(slog.LevelDebug), DefaultFanoutCapacity)
	roomID := domain.NewRandomRoomID()

	sub := registry.Subscribe(roomID)

	result := make(chan error, 1)
	go func() {
		_, err := sub.Next(context.Background())
		result <- err
	}()

	time.Sleep(10 * time.Millisecond)
	sub.Close()

	select {
	case err := <-result:
		req.ErrorIs(err, errors.ErrSubClosed)
	case <-time.After(time.Second):
		req.Fail("Next did not return after Close")
	}
}

func Test_Next_Honours_Context_Cancellation(t *testing.T) {
	req := require.New(t)
	registry := NewRegistry(logs.GetLoggerFromLevel(slog.LevelDebug), DefaultFanoutCapacity)
	roomID := domain.NewRandomRoomID()

	sub := registry.Subscribe(roomID)
	defer sub.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()

	_, err := sub.Next(ctx)
	req.ErrorIs(err, context.DeadlineExceeded)
}

func Test_Close_Is_Idempotent(t *testing.T) {
	req := require.New(t)
	registry := NewRegistry(logs.GetLoggerFromLevel(slog.LevelDebug), DefaultFanoutCapacity)
	roomID := domain.NewRandomRoomID()

	sub := registry.Subscribe(roomID)
	sub.Close()
	sub.Close()

	_, _, err := sub.TryNext()
	req.ErrorIs(err, errors.ErrSubClosed)
	req.Equal(0, registry.Rooms())
}
