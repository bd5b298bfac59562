// Package domain contains core concepts of the chat relay.
// This file defines the immutable ChatEvent record and its value types.
// Events are never mutated after construction; they may be copied freely
// across subscribers.
package domain

import (
	"fmt"
	"time"
)

// DisplayName is the name a user chose to be shown as. It carries no
// identity; two users may share a display name.
type DisplayName string

// MessageBody is the text of a chat message. The domain enforces no
// length or emptiness rules.
type MessageBody string

// EventTimestamp is a UTC instant with whole-second display precision.
type EventTimestamp struct {
	t time.Time
}

// Now returns the current UTC instant.
// The monotonic clock reading is dropped so timestamps compare by wall
// time only.
func Now() EventTimestamp {
	return EventTimestamp{t: time.Now().UTC().Round(0)}
}

// Epoch returns the Unix epoch, used as a fixed timestamp in tests.
func Epoch() EventTimestamp {
	return EventTimestamp{t: time.Unix(0, 0).UTC()}
}

// TimestampAt wraps an arbitrary instant, normalized to UTC.
func TimestampAt(t time.Time) EventTimestamp {
	return EventTimestamp{t: t.UTC().Round(0)}
}

// Time exposes the underlying instant.
func (ts EventTimestamp) Time() time.Time {
	return ts.t
}

func (ts EventTimestamp) String() string {
	return ts.t.Truncate(time.Second).Format(time.RFC3339)
}

// ChatEvent is a single immutable message event in one room.
type ChatEvent struct {
	EventID     EventID
	Timestamp   EventTimestamp
	RoomID      RoomID
	UserID      UserID
	DisplayName DisplayName
	Body        MessageBody
}

func (e ChatEvent) String() string {
	return fmt.Sprintf("%s: Room %s Event %s User %s DisplayName %s: %s",
		e.Timestamp, e.RoomID, e.EventID, e.UserID, e.DisplayName, e.Body)
}
