package errors

import (
	"errors"
	"fmt"

	"chat-relay/domain"
)

var (
	ErrRoomNotFound = fmt.Errorf("room not found")
	ErrSlowConsumer = fmt.Errorf("events were skipped")
	ErrSubClosed    = fmt.Errorf("subscription closed")
	ErrWorkerPanic  = fmt.Errorf("worker panic")
)

// RoomNotFoundError reports a history read for a room that has never
// been referenced by a post or a join. It carries the room id so the
// transport can echo it back to the caller.
type RoomNotFoundError struct {
	RoomID domain.RoomID
}

func (e RoomNotFoundError) Error() string {
	return fmt.Sprintf("room %s not found", e.RoomID)
}

func (e RoomNotFoundError) Is(target error) bool {
	return target == ErrRoomNotFound
}

// LagError is the lag signal delivered through a subscription when a
// slow consumer missed buffered events. It is not a hard failure: the
// stream continues normally once it has been observed.
type LagError struct {
	Skipped uint64
}

func (e LagError) Error() string {
	return fmt.Sprintf("subscriber lagged, %d events skipped", e.Skipped)
}

func (e LagError) Is(target error) bool {
	return target == ErrSlowConsumer
}

// AsLag extracts a LagError from err, if any.
func AsLag(err error) (LagError, bool) {
	var lag LagError
	ok := errors.As(err, &lag)
	return lag, ok
}
