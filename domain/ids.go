// Package domain contains core concepts of the chat relay.
// This file defines the opaque identifiers used across the system.
// No runtime, network, or UI logic should be added here.
package domain

import (
	"github.com/google/uuid"
)

// RoomID identifies a chat room. Rooms exist implicitly: the first post
// or join for an id creates the room.
type RoomID uuid.UUID

// NewRandomRoomID returns a fresh random room identifier.
// Identifiers are always generated by callers, never by the core.
func NewRandomRoomID() RoomID {
	return RoomID(uuid.New())
}

// ParseRoomID parses the canonical textual form of a RoomID.
func ParseRoomID(s string) (RoomID, error) {
	id, err := uuid.Parse(s)
	return RoomID(id), err
}

func (id RoomID) String() string {
	return uuid.UUID(id).String()
}

// UserID identifies the author of an event.
type UserID uuid.UUID

func NewRandomUserID() UserID {
	return UserID(uuid.New())
}

func ParseUserID(s string) (UserID, error) {
	id, err := uuid.Parse(s)
	return UserID(id), err
}

func (id UserID) String() string {
	return uuid.UUID(id).String()
}

// EventID identifies a single chat event.
type EventID uuid.UUID

func NewRandomEventID() EventID {
	return EventID(uuid.New())
}

func ParseEventID(s string) (EventID, error) {
	id, err := uuid.Parse(s)
	return EventID(id), err
}

func (id EventID) String() string {
	return uuid.UUID(id).String()
}
