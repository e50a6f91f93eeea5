package worker

import (
	"context"
	"log/slog"
	"time"

	"github.com/hyperengineering/invrestore/internal/backup"
)

// Saver defines the store operations needed by the save worker.
type Saver interface {
	Save(ctx context.Context) error
	Location() string
}

// SaveWorker persists the store periodically. Retention limits are applied
// by every save.
type SaveWorker struct {
	store    Saver
	uploader backup.Uploader
	interval time.Duration
}

// NewSaveWorker creates a worker with the given store and interval.
// The uploader parameter is optional; if nil, no backup upload is attempted.
func NewSaveWorker(store Saver, interval time.Duration, uploader backup.Uploader) *SaveWorker {
	return &SaveWorker{
		store:    store,
		uploader: uploader,
		interval: interval,
	}
}

// Run saves on each interval until ctx is cancelled. The final save on
// shutdown belongs to the caller.
func (w *SaveWorker) Run(ctx context.Context) {
	slog.Info("worker started",
		"component", "worker",
		"worker", "save",
		"interval", w.interval.String(),
	)

	ticker := time.NewTicker(w.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			slog.Info("worker stopped",
				"component", "worker",
				"worker", "save",
				"reason", "context_cancelled",
			)
			return
		case <-ticker.C:
			w.SaveOnce(ctx)
		}
	}
}

// SaveOnce saves the store and uploads a backup. It reports whether the
// save succeeded; upload failures do not count as save failures.
func (w *SaveWorker) SaveOnce(ctx context.Context) bool {
	if err := w.store.Save(ctx); err != nil {
		if ctx.Err() != nil {
			return false
		}
		slog.Warn("periodic save failed",
			"component", "worker",
			"worker", "save",
			"action", "save_failed",
			"error", err,
		)
		return false
	}

	if w.uploader != nil {
		w.upload(ctx)
	}
	return true
}

// upload copies the saved file to backup storage.
// Upload failures are logged as warnings; the local file remains valid.
func (w *SaveWorker) upload(ctx context.Context) {
	if err := w.uploader.Upload(ctx, w.store.Location()); err != nil {
		slog.Warn("backup upload failed",
			"component", "worker",
			"worker", "save",
			"action", "backup_upload_failed",
			"path", w.store.Location(),
			"error", err,
		)
		return
	}
	slog.Debug("backup uploaded",
		"component", "worker",
		"worker", "save",
		"action", "backup_uploaded",
		"path", w.store.Location(),
	)
}
