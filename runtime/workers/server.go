package workers

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"
)

// ServerWorker runs the HTTP/WebSocket server under supervision and
// shuts it down gracefully when the context is canceled.
type ServerWorker struct {
	log             *slog.Logger
	addr            string
	handler         http.Handler
	shutdownTimeout time.Duration
}

func NewServerWorker(log *slog.Logger, addr string, handler http.Handler, shutdownTimeout time.Duration) *ServerWorker {
	return &ServerWorker{log: log, addr: addr, handler: handler, shutdownTimeout: shutdownTimeout}
}

func (w *ServerWorker) Run(ctx context.Context) error {
	server := &http.Server{Addr: w.addr, Handler: w.handler}

	failed := make(chan error, 1)
	go func() {
		w.log.Info(fmt.Sprintf("Listening on %s", w.addr))
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			failed <- err
		}
	}()

	select {
	case err := <-failed:
		return err
	case <-ctx.Done():
	}

	// Let in-flight requests drain; WebSocket feeds end with their
	// request contexts.
	shutdownCtx, cancel := context.WithTimeout(context.Background(), w.shutdownTimeout)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		w.log.Warn("Forcing server close", "error", err)
		_ = server.Close()
	}
	w.log.Info("Server stopped")
	return nil
}
