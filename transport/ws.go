package transport

import (
	stderrors "errors"
	"net/http"

	"github.com/coder/websocket"
	"github.com/coder/websocket/wsjson"
	"github.com/samber/lo"

	"chat-relay/errors"
)

// handleSubscribe upgrades the connection and streams the room's live
// feed until the client disconnects. The subscription handle is closed
// on the way out, which also runs the registry's best-effort teardown.
func (s *Server) handleSubscribe(w http.ResponseWriter, r *http.Request) {
	roomID, ok := s.roomID(w, r)
	if !ok {
		return
	}

	conn, err := websocket.Accept(w, r, &websocket.AcceptOptions{
		OriginPatterns: []string{"*"},
	})
	if err != nil {
		s.log.Debug("WebSocket accept failed", "room", roomID.String(), "error", err)
		return
	}
	defer conn.Close(websocket.StatusInternalError, "stream aborted")

	sub := s.service.JoinRoom(roomID)
	defer sub.Close()

	// We never expect inbound frames; CloseRead cancels the context as
	// soon as the peer goes away.
	ctx := conn.CloseRead(r.Context())

	s.log.Debug("Subscriber attached", "room", roomID.String())
	for {
		event, err := sub.Next(ctx)
		var outbound Outbound
		switch {
		case err == nil:
			outbound = Outbound{Type: OutboundEvent, Event: lo.ToPtr(fromDomain(event))}
		case stderrors.Is(err, errors.ErrSlowConsumer):
			lag, _ := errors.AsLag(err)
			outbound = Outbound{Type: OutboundLagged, Skipped: lo.ToPtr(lag.Skipped)}
		default:
			// Context cancelled or subscription closed: the feed ends.
			s.log.Debug("Subscriber detached", "room", roomID.String())
			_ = conn.Close(websocket.StatusNormalClosure, "feed closed")
			return
		}

		if err := wsjson.Write(ctx, conn, outbound); err != nil {
			s.log.Debug("Subscriber write failed", "room", roomID.String(), "error", err)
			return
		}
	}
}
