package worker

import (
	"context"
	"log/slog"
	"time"
)

// AutoSaver records an auto-save snapshot for every online owner.
type AutoSaver interface {
	AutoSaveAll() (int, error)
}

// AutosaveWorker captures auto-save snapshots on a fixed interval.
type AutosaveWorker struct {
	tracker  AutoSaver
	interval time.Duration
}

// NewAutosaveWorker creates a worker with the given tracker and interval.
func NewAutosaveWorker(tracker AutoSaver, interval time.Duration) *AutosaveWorker {
	return &AutosaveWorker{
		tracker:  tracker,
		interval: interval,
	}
}

// Run captures on each interval until ctx is cancelled.
func (w *AutosaveWorker) Run(ctx context.Context) {
	slog.Info("worker started",
		"component", "worker",
		"worker", "autosave",
		"interval", w.interval.String(),
	)

	ticker := time.NewTicker(w.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			slog.Info("worker stopped",
				"component", "worker",
				"worker", "autosave",
				"reason", "context_cancelled",
			)
			return
		case <-ticker.C:
			w.captureAll()
		}
	}
}

func (w *AutosaveWorker) captureAll() {
	recorded, err := w.tracker.AutoSaveAll()
	if err != nil {
		slog.Warn("auto-save incomplete",
			"component", "worker",
			"worker", "autosave",
			"action", "autosave_failed",
			"recorded", recorded,
			"error", err,
		)
		return
	}
	if recorded > 0 {
		slog.Info("auto-save cycle completed",
			"component", "worker",
			"worker", "autosave",
			"action", "cycle_complete",
			"recorded", recorded,
		)
	}
}
