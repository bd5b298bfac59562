package main

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/Netflix/go-env"
	"github.com/coder/websocket"
	"github.com/coder/websocket/wsjson"
	"github.com/mama165/sdk-go/logs"

	"chat-relay/domain"
	"chat-relay/transport"
)

// Exit codes for the client application.
const (
	exitOK      = 0
	exitRuntime = 1
	exitConfig  = 2
)

// Config defines the client-side environment variables.
type Config struct {
	ServerAddress string `env:"CHAT_SERVER_ADDR,default=localhost:8080"`
	RoomID        string `env:"CHAT_ROOM_ID"`
	DisplayName   string `env:"CHAT_DISPLAY_NAME,default=anonymous"`
	Message       string `env:"CHAT_MESSAGE"`
	LogLevel      string `env:"LOG_LEVEL,default=info"`
}

func main() {
	// The main function manages the OS exit code based on run()'s return.
	code, err := run()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Client error: %v\n", err)
	}
	os.Exit(code)
}

// run attaches to a room's live feed, optionally posts one message, and
// prints every event until interrupted. Identifiers are generated here:
// the relay never creates user or event ids on behalf of a client.
func run() (int, error) {
	// 1. Load configuration from environment variables.
	var config Config
	if _, err := env.UnmarshalFromEnviron(&config); err != nil {
		return exitConfig, fmt.Errorf("config error: %w", err)
	}
	log := logs.GetLoggerFromString(config.LogLevel)

	roomID := domain.NewRandomRoomID()
	if config.RoomID != "" {
		parsed, err := domain.ParseRoomID(config.RoomID)
		if err != nil {
			return exitConfig, fmt.Errorf("CHAT_ROOM_ID is not a valid room id: %w", err)
		}
		roomID = parsed
	}
	userID := domain.NewRandomUserID()

	// 2. Setup context to handle termination signals (Ctrl+C).
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// 3. Attach to the live feed before posting so our own message
	// comes back through it.
	wsURL := fmt.Sprintf("ws://%s/rooms/%s/ws", config.ServerAddress, roomID)
	conn, _, err := websocket.Dial(ctx, wsURL, nil)
	if err != nil {
		return exitRuntime, fmt.Errorf("could not subscribe to %s: %w", wsURL, err)
	}
	defer conn.Close(websocket.StatusNormalClosure, "client exiting")
	log.Info("Subscribed", "room", roomID.String(), "user", userID.String())

	if config.Message != "" {
		if err := post(ctx, config, roomID, userID); err != nil {
			return exitRuntime, err
		}
	}

	// 4. Print the feed until the context is canceled.
	for {
		var outbound transport.Outbound
		if err := wsjson.Read(ctx, conn, &outbound); err != nil {
			if ctx.Err() != nil {
				return exitOK, nil
			}
			return exitRuntime, fmt.Errorf("feed ended: %w", err)
		}
		switch outbound.Type {
		case transport.OutboundEvent:
			fmt.Printf("[%s] %s: %s\n",
				outbound.Event.Timestamp, outbound.Event.DisplayName, outbound.Event.Message)
		case transport.OutboundLagged:
			fmt.Printf("-- reading too slowly, %d events skipped --\n", *outbound.Skipped)
		}
	}
}

func post(ctx context.Context, config Config, roomID domain.RoomID, userID domain.UserID) error {
	body, err := json.Marshal(transport.PostRequest{
		UserID:      userID.String(),
		DisplayName: config.DisplayName,
		Message:     config.Message,
	})
	if err != nil {
		return err
	}

	url := fmt.Sprintf("http://%s/rooms/%s/messages", config.ServerAddress, roomID)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")

	client := &http.Client{Timeout: 10 * time.Second}
	resp, err := client.Do(req)
	if err != nil {
		return fmt.Errorf("could not post to %s: %w", url, err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusCreated {
		return fmt.Errorf("posting failed with status %d", resp.StatusCode)
	}
	return nil
}
