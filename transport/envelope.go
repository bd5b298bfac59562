// Package transport exposes the chat relay over HTTP and WebSocket.
// It owns wire encoding, routing, and connection lifecycles; every room
// operation goes through the contract.IChatService facade.
package transport

import (
	"github.com/samber/lo"

	"chat-relay/domain"
)

const (
	OutboundEvent  = "event"
	OutboundLagged = "lagged"
	OutboundError  = "error"
)

// EventPayload is the wire form of a domain.ChatEvent.
type EventPayload struct {
	EventID     string `json:"event_id"`
	Timestamp   string `json:"timestamp"`
	RoomID      string `json:"room_id"`
	UserID      string `json:"user_id"`
	DisplayName string `json:"display_name"`
	Message     string `json:"message"`
}

// PostRequest is the body of POST /rooms/{roomID}/messages. The event
// id and timestamp are assigned server-side.
type PostRequest struct {
	UserID      string `json:"user_id" validate:"required,uuid"`
	DisplayName string `json:"display_name" validate:"required"`
	Message     string `json:"message"`
}

// ErrorPayload describes a request failure on the wire.
type ErrorPayload struct {
	Code string `json:"code"`
	Msg  string `json:"msg"`
}

// Outbound is the envelope pushed over a live WebSocket feed. Exactly
// one of Event, Skipped, or Error is set, discriminated by Type. A
// "lagged" envelope tells the client it read too slowly and Skipped
// events were dropped; the feed continues afterwards.
type Outbound struct {
	Type    string        `json:"type"`
	Event   *EventPayload `json:"event,omitempty"`
	Skipped *uint64       `json:"skipped,omitempty"`
	Error   *ErrorPayload `json:"error,omitempty"`
}

func fromDomain(event domain.ChatEvent) EventPayload {
	return EventPayload{
		EventID:     event.EventID.String(),
		Timestamp:   event.Timestamp.String(),
		RoomID:      event.RoomID.String(),
		UserID:      event.UserID.String(),
		DisplayName: string(event.DisplayName),
		Message:     string(event.Body),
	}
}

func fromDomainAll(events []domain.ChatEvent) []EventPayload {
	return lo.Map(events, func(event domain.ChatEvent, _ int) EventPayload {
		return fromDomain(event)
	})
}
