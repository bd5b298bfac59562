package workers

import (
	"context"
	"log/slog"
	"time"
)

// RoomCounter reports how many rooms a store currently tracks.
type RoomCounter interface {
	Rooms() int
}

// ReporterWorker periodically logs how many rooms exist and how many of
// them have a live fanout. It is observability only; nothing reads its
// output programmatically.
type ReporterWorker struct {
	log      *slog.Logger
	interval time.Duration
	history  RoomCounter
	registry RoomCounter
}

func NewReporterWorker(log *slog.Logger, interval time.Duration, history, registry RoomCounter) *ReporterWorker {
	return &ReporterWorker{log: log, interval: interval, history: history, registry: registry}
}

func (w *ReporterWorker) Run(ctx context.Context) error {
	ticker := time.NewTicker(w.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			w.report()
			return ctx.Err()
		case <-ticker.C:
			w.report()
		}
	}
}

func (w *ReporterWorker) report() {
	w.log.Info("Relay stats",
		"rooms", w.history.Rooms(),
		"live_fanouts", w.registry.Rooms(),
	)
}
