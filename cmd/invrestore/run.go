package main

import (
	"context"
	"errors"
	"log/slog"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/hyperengineering/invrestore/internal/backup"
	"github.com/hyperengineering/invrestore/internal/hostfeed"
	"github.com/hyperengineering/invrestore/internal/snapshot"
	"github.com/hyperengineering/invrestore/internal/store"
	"github.com/hyperengineering/invrestore/internal/tracker"
	"github.com/hyperengineering/invrestore/internal/worker"
)

// shutdownTimeout bounds the final save and backup upload.
const shutdownTimeout = 30 * time.Second

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Record snapshots from the host feed on stdin",
	Long: "Read JSON-lines host notifications from stdin and record a snapshot for every " +
		"join, disconnect, death and level change. The database is saved periodically " +
		"and once more when stdin closes or the process is signalled.",
	Args: cobra.NoArgs,
	RunE: run,
}

type feedResult struct {
	stats hostfeed.Stats
	err   error
}

// feedHandler records lifecycle events through the tracker and applies
// preference changes to the store. Changes reach disk with the next save.
type feedHandler struct {
	*tracker.Tracker
	st *store.Store
}

func (h feedHandler) SetTimezone(owner snapshot.Owner, zone string) error {
	err := h.st.UpdatePreferences(owner.ID(), func(p store.Preferences) store.Preferences {
		p.Timezone = zone
		return p
	})
	if err != nil {
		slog.Error("couldn't update preferences", "action", "set_timezone", "player", owner.Name(), "error", err)
		return err
	}
	slog.Info("timezone preference updated", "action", "set_timezone", "player", owner.Name(), "timezone", zone)
	return nil
}

func run(cmd *cobra.Command, args []string) error {
	// 1. Signal handling
	ctx, cancel := signal.NotifyContext(cmd.Context(), syscall.SIGTERM, syscall.SIGINT)
	defer cancel()

	// 2. Load configuration and install the logger
	cfg, err := loadConfig(cmd.ErrOrStderr())
	if err != nil {
		return err
	}
	slog.Info("configuration loaded", "version", Version)

	// 3. Own the database for the lifetime of the process, then open and
	// load the store. A load failure leaves the store unloaded:
	// capture keeps running and every append fails fast.
	lock, err := store.AcquireLock(cfg.Database.Path)
	if err != nil {
		return err
	}
	defer lock.Release()

	backend, err := store.OpenBackend(cfg.Database.Backend, cfg.Database.Path)
	if err != nil {
		return err
	}
	st := store.New(backend, storeLimits(cfg), store.WithLogger(slog.Default()))
	if err := st.Load(ctx); err != nil {
		var loadErr *store.LoadError
		if errors.As(err, &loadErr) {
			slog.Error("database unavailable, snapshots will not be recorded", "path", st.Location())
		}
	}
	slog.Info("store initialized", "path", st.Location(), "backend", cfg.Database.Backend, "loaded", st.Loaded())

	// 4. Capture pipeline
	newID, err := snapshot.GeneratorFor(cfg.Snapshots.IDFormat)
	if err != nil {
		st.Close()
		return err
	}
	trk := tracker.New(snapshot.NewCapturer(newID), st, slog.Default())

	uploader, err := backup.NewUploader(cfg.Backup)
	if err != nil {
		st.Close()
		return err
	}

	// 5. Workers
	workerCtx, stopWorkers := context.WithCancel(ctx)
	defer stopWorkers()
	g, gctx := errgroup.WithContext(workerCtx)

	saver := worker.NewSaveWorker(st, time.Duration(cfg.Worker.SaveInterval), uploader)
	startWorker(gctx, g, saver.Run)
	if cfg.Worker.AutosaveInterval > 0 {
		startWorker(gctx, g, worker.NewAutosaveWorker(trk, time.Duration(cfg.Worker.AutosaveInterval)).Run)
	}

	// 6. Host feed. Reading stdin may block past cancellation, so the feed
	// is not part of the worker group.
	feedDone := make(chan feedResult, 1)
	go func() {
		stats, err := hostfeed.Run(ctx, cmd.InOrStdin(), feedHandler{Tracker: trk, st: st}, slog.Default())
		feedDone <- feedResult{stats: stats, err: err}
	}()
	slog.Info("host feed started")

	// 7. Block until a signal arrives or the feed ends
	select {
	case <-ctx.Done():
		slog.Info("shutdown initiated", "reason", "signal")
	case res := <-feedDone:
		if res.err != nil && !errors.Is(res.err, context.Canceled) {
			slog.Error("host feed failed", "error", res.err)
		}
		slog.Info("shutdown initiated", "reason", "feed_closed",
			"dispatched", res.stats.Dispatched, "skipped", res.stats.Skipped)
	}

	// 8. Graceful shutdown: stop workers, then save once more and close
	stopWorkers()
	_ = g.Wait()

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer shutdownCancel()

	if st.Loaded() {
		if saver.SaveOnce(shutdownCtx) {
			slog.Info("final save complete", "path", st.Location(), "snapshots", st.Len())
		}
	}
	if err := st.Close(); err != nil {
		slog.Error("store close error", "error", err)
	}

	slog.Info("shutdown complete")
	return nil
}

// startWorker runs fn in g until ctx is cancelled. Workers log their own
// start and stop.
func startWorker(ctx context.Context, g *errgroup.Group, fn func(ctx context.Context)) {
	g.Go(func() error {
		fn(ctx)
		return nil
	})
}
