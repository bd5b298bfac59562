package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/Netflix/go-env"
	"github.com/joho/godotenv"
	"github.com/mama165/sdk-go/logs"

	"chat-relay/internal"
	"chat-relay/repositories"
	"chat-relay/runtime"
	"chat-relay/runtime/workers"
	"chat-relay/services"
	"chat-relay/transport"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "Fatal error: %v\n", err)
		os.Exit(1)
	}
}

// run initializes all components, manages the server lifecycle, and centralizes error reporting.
// This pattern is preferred over calling os.Exit or panic directly because:
// 1. It ensures all 'defer' statements are executed before the program exits.
// 2. It improves testability by decoupling the initialization logic from the main entry point.
// 3. It provides a structured way to handle graceful shutdowns for the server and background workers.
func run() error {
	// 1. Configuration & Logger
	// A local .env is optional, real environments set variables directly.
	_ = godotenv.Load()
	var config internal.Config
	if _, err := env.UnmarshalFromEnviron(&config); err != nil {
		return fmt.Errorf("config error: %w", err)
	}
	if err := config.Validate(); err != nil {
		return err
	}
	log := logs.GetLoggerFromString(config.LogLevel)

	// 2. Core: history + live fan-out behind the chat service facade.
	// Both maps live for the whole process and are shared by every
	// connection through the facade, never through globals.
	history := repositories.NewHistoryRepository(log)
	registry := runtime.NewRegistry(log, config.FanoutCapacity)
	chatService := services.NewChatService(history, registry, log)

	// 3. Transport & supervised workers
	server := transport.NewServer(chatService, log, config.PostRateLimit, config.PostRateBurst)
	sup := workers.NewSupervisor(log, config.RestartInterval)
	sup.Add(
		workers.NewServerWorker(log, config.Addr(), server.Handler(), config.ShutdownTimeout),
		workers.NewReporterWorker(log, config.ReportInterval, history, registry),
	)

	// 4. Run until SIGINT/SIGTERM
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	log.Info("Starting chat relay", "addr", config.Addr())
	sup.Run(ctx)
	log.Info("Chat relay stopped")
	return nil
}
