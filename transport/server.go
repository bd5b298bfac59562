package transport

import (
	"encoding/json"
	stderrors "errors"
	"log/slog"
	"net"
	"net/http"
	"sync"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"
	"golang.org/x/time/rate"

	"chat-relay/contract"
	"chat-relay/domain"
	"chat-relay/errors"
)

// Server is the HTTP/WebSocket collaborator in front of the chat core.
type Server struct {
	service  contract.IChatService
	log      *slog.Logger
	validate *validator.Validate
	router   chi.Router

	// Per-client post slowmode. Limiters are kept per remote host and
	// never expire; connection churn is bounded by client count.
	limiterMu sync.Mutex
	limiters  map[string]*rate.Limiter
	postRate  rate.Limit
	postBurst int
}

func NewServer(service contract.IChatService, log *slog.Logger, postRate float64, postBurst int) *Server {
	s := &Server{
		service:   service,
		log:       log,
		validate:  validator.New(),
		limiters:  make(map[string]*rate.Limiter),
		postRate:  rate.Limit(postRate),
		postBurst: postBurst,
	}

	r := chi.NewRouter()
	r.Use(permissiveCORS)
	r.Get("/", s.handleHello)
	r.Route("/rooms/{roomID}", func(r chi.Router) {
		r.Post("/messages", s.handlePostMessage)
		r.Get("/history", s.handleHistory)
		r.Get("/ws", s.handleSubscribe)
	})
	s.router = r
	return s
}

// Handler exposes the routed handler for the HTTP server worker.
func (s *Server) Handler() http.Handler {
	return s.router
}

// permissiveCORS mirrors the permissive policy the relay always ran
// with: any origin may call any route.
func permissiveCORS(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", "*")
		w.Header().Set("Access-Control-Allow-Methods", "GET, POST, OPTIONS")
		w.Header().Set("Access-Control-Allow-Headers", "Content-Type")
		if r.Method == http.MethodOptions {
			w.WriteHeader(http.StatusNoContent)
			return
		}
		next.ServeHTTP(w, r)
	})
}

func (s *Server) handleHello(w http.ResponseWriter, _ *http.Request) {
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	_, _ = w.Write([]byte("Hello World!"))
}

func (s *Server) handlePostMessage(w http.ResponseWriter, r *http.Request) {
	roomID, ok := s.roomID(w, r)
	if !ok {
		return
	}

	if !s.allowPost(r) {
		writeError(w, http.StatusTooManyRequests, "slow_down", "posting too fast, retry later")
		return
	}

	var body PostRequest
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		writeError(w, http.StatusBadRequest, "bad_request", "malformed JSON body")
		return
	}
	if err := s.validate.Struct(body); err != nil {
		writeError(w, http.StatusBadRequest, "bad_request", err.Error())
		return
	}
	userID, err := domain.ParseUserID(body.UserID)
	if err != nil {
		writeError(w, http.StatusBadRequest, "bad_request", "user_id is not a valid id")
		return
	}

	event := domain.ChatEvent{
		EventID:     domain.NewRandomEventID(),
		Timestamp:   domain.Now(),
		RoomID:      roomID,
		UserID:      userID,
		DisplayName: domain.DisplayName(body.DisplayName),
		Body:        domain.MessageBody(body.Message),
	}
	if err := s.service.PostEvent(event); err != nil {
		s.log.Error("Posting event failed", "room", roomID.String(), "error", err)
		writeError(w, http.StatusInternalServerError, "internal_error", "could not post the event")
		return
	}

	writeJSON(w, http.StatusCreated, fromDomain(event))
}

func (s *Server) handleHistory(w http.ResponseWriter, r *http.Request) {
	roomID, ok := s.roomID(w, r)
	if !ok {
		return
	}

	events, err := s.service.GetHistory(roomID)
	if err != nil {
		if stderrors.Is(err, errors.ErrRoomNotFound) {
			writeError(w, http.StatusNotFound, "room_not_found", err.Error())
			return
		}
		s.log.Error("Reading history failed", "room", roomID.String(), "error", err)
		writeError(w, http.StatusInternalServerError, "internal_error", "could not read the history")
		return
	}

	writeJSON(w, http.StatusOK, fromDomainAll(events))
}

func (s *Server) roomID(w http.ResponseWriter, r *http.Request) (domain.RoomID, bool) {
	roomID, err := domain.ParseRoomID(chi.URLParam(r, "roomID"))
	if err != nil {
		writeError(w, http.StatusBadRequest, "bad_request", "roomID is not a valid id")
		return domain.RoomID{}, false
	}
	return roomID, true
}

// allowPost applies the per-client slowmode. Clients we cannot
// attribute (unparsable remote address) share one limiter bucket.
func (s *Server) allowPost(r *http.Request) bool {
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		host = r.RemoteAddr
	}

	s.limiterMu.Lock()
	limiter, ok := s.limiters[host]
	if !ok {
		limiter = rate.NewLimiter(s.postRate, s.postBurst)
		s.limiters[host] = limiter
	}
	s.limiterMu.Unlock()

	return limiter.Allow()
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, code, msg string) {
	writeJSON(w, status, Outbound{
		Type:  OutboundError,
		Error: &ErrorPayload{Code: code, Msg: msg},
	})
}
