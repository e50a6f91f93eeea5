package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"text/tabwriter"

	"github.com/goccy/go-json"
	"github.com/spf13/cobra"

	"github.com/hyperengineering/invrestore/internal/config"
	"github.com/hyperengineering/invrestore/internal/store"
)

// Version is set at build time via ldflags: -ldflags "-X main.Version=1.0.0"
var Version = "dev"

var (
	configPath string
	jsonOutput bool
)

var rootCmd = &cobra.Command{
	Use:           "invrestore",
	Short:         "InvRestore - player inventory snapshots",
	Long:          "Record player inventory snapshots from a host feed and inspect them afterwards.",
	Version:       Version,
	SilenceUsage:  true,
	SilenceErrors: true,
}

func init() {
	rootCmd.PersistentFlags().StringVar(&configPath, "config", "",
		"Config file path (overrides INVRESTORE_CONFIG_PATH)")
	rootCmd.PersistentFlags().BoolVar(&jsonOutput, "json", false,
		"Output in JSON format")

	rootCmd.AddCommand(runCmd)
	rootCmd.AddCommand(listCmd)
	rootCmd.AddCommand(viewCmd)
	rootCmd.AddCommand(playersCmd)
	rootCmd.AddCommand(timezoneCmd)
	rootCmd.AddCommand(compactCmd)
	rootCmd.AddCommand(infoCmd)
	rootCmd.AddCommand(configCmd)
	rootCmd.AddCommand(backupURLCmd)
}

// loadConfig loads configuration from --config, INVRESTORE_CONFIG_PATH or the
// default path, and installs the configured logger writing to w.
func loadConfig(w io.Writer) (*config.Config, error) {
	cfg, err := config.Load(configPath)
	if err != nil {
		return nil, fmt.Errorf("load config: %w", err)
	}
	slog.SetDefault(newLogger(cfg.Log, w))
	return cfg, nil
}

// newLogger builds the process logger from the log section.
func newLogger(cfg config.LogConfig, w io.Writer) *slog.Logger {
	opts := &slog.HandlerOptions{Level: parseLogLevel(cfg.Level)}
	if cfg.Format == "text" {
		return slog.New(slog.NewTextHandler(w, opts))
	}
	return slog.New(slog.NewJSONHandler(w, opts))
}

func parseLogLevel(level string) slog.Level {
	switch level {
	case "debug":
		return slog.LevelDebug
	case "warn":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

// reportedError is an error whose message was already shown to the user.
type reportedError struct {
	err error
}

func (e *reportedError) Error() string { return e.err.Error() }
func (e *reportedError) Unwrap() error { return e.err }

// report writes msg to the command's error stream and returns err marked
// as reported, so main does not print it again.
func report(cmd *cobra.Command, msg string, err error) error {
	fmt.Fprintln(cmd.ErrOrStderr(), msg)
	return &reportedError{err: err}
}

// lockDatabase takes the database lock for a command that writes the
// database. It fails with store.ErrLocked while run owns it.
func lockDatabase(cmd *cobra.Command, cfg *config.Config) (*store.Lock, error) {
	lock, err := store.AcquireLock(cfg.Database.Path)
	if errors.Is(err, store.ErrLocked) {
		return nil, report(cmd,
			"The database is in use by a running recorder. Stop it first, or send the change through its host feed.",
			err)
	}
	return lock, err
}

// openStore opens the configured backend and loads the database. A missing
// database is created. The caller closes the returned store.
func openStore(ctx context.Context, cfg *config.Config) (*store.Store, error) {
	backend, err := store.OpenBackend(cfg.Database.Backend, cfg.Database.Path)
	if err != nil {
		return nil, err
	}
	st := store.New(backend, storeLimits(cfg), store.WithLogger(slog.Default()))
	if err := st.Load(ctx); err != nil {
		if st.Loaded() {
			// The new database exists in memory; only its first write failed.
			slog.Warn("database not yet persisted", "path", st.Location(), "error", err)
			return st, nil
		}
		st.Close()
		return nil, err
	}
	return st, nil
}

func storeLimits(cfg *config.Config) store.Limits {
	return store.Limits{
		MaxPerOwner: cfg.StoreLimits.MaxPerPlayer,
		MaxTotal:    cfg.StoreLimits.MaxTotal,
	}
}

// printJSON marshals v to JSON and writes to the given writer.
func printJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

// newTabWriter returns a configured tabwriter for aligned columns.
func newTabWriter(w io.Writer) *tabwriter.Writer {
	return tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		var reported *reportedError
		if !errors.As(err, &reported) {
			fmt.Fprintln(os.Stderr, "Error:", err)
		}
		os.Exit(1)
	}
}
