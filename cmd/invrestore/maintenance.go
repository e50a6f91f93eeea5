package main

import (
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/hyperengineering/invrestore/internal/backup"
	"github.com/hyperengineering/invrestore/internal/config"
	"github.com/hyperengineering/invrestore/internal/store"
)

var (
	writeDefault bool
	forceWrite   bool
)

var compactCmd = &cobra.Command{
	Use:   "compact",
	Short: "Apply the retention limits and save the database",
	Args:  cobra.NoArgs,
	RunE:  runCompact,
}

var infoCmd = &cobra.Command{
	Use:   "info",
	Short: "Show database location, size and contents",
	Args:  cobra.NoArgs,
	RunE:  runInfo,
}

var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Print the effective configuration",
	Long: "Print the configuration after defaults, the YAML file and INVRESTORE_* environment " +
		"variables are applied. With --write-default, write the default configuration to the " +
		"config path instead.",
	Args: cobra.NoArgs,
	RunE: runConfig,
}

var backupURLCmd = &cobra.Command{
	Use:   "backup-url",
	Short: "Print a pre-signed download URL for the latest backup",
	Args:  cobra.NoArgs,
	RunE:  runBackupURL,
}

func init() {
	configCmd.Flags().BoolVar(&writeDefault, "write-default", false,
		"Write the default configuration to the config path")
	configCmd.Flags().BoolVar(&forceWrite, "force", false,
		"Overwrite an existing config file with --write-default")
}

func runCompact(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig(cmd.ErrOrStderr())
	if err != nil {
		return err
	}
	lock, err := lockDatabase(cmd, cfg)
	if err != nil {
		return err
	}
	defer lock.Release()

	st, err := openStore(cmd.Context(), cfg)
	if err != nil {
		return err
	}

	before := st.Len()
	if err := st.Flush(cmd.Context()); err != nil {
		return err
	}
	after := st.Len()

	out := cmd.OutOrStdout()
	if jsonOutput {
		return printJSON(out, map[string]any{
			"path":      st.Location(),
			"evicted":   before - after,
			"snapshots": after,
		})
	}
	fmt.Fprintf(out, "Evicted %d snapshots, %d remain in %s\n", before-after, after, st.Location())
	return nil
}

func runInfo(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig(cmd.ErrOrStderr())
	if err != nil {
		return err
	}
	st, err := openStore(cmd.Context(), cfg)
	if err != nil {
		return err
	}
	defer st.Close()

	var sizeBytes int64
	if fi, statErr := os.Stat(st.Location()); statErr == nil {
		sizeBytes = fi.Size()
	}
	stats := st.Stats()

	out := cmd.OutOrStdout()
	if jsonOutput {
		info := map[string]any{
			"path":           st.Location(),
			"backend":        cfg.Database.Backend,
			"format_version": store.FormatVersion,
			"size_bytes":     sizeBytes,
			"snapshots":      stats.Snapshots,
			"players":        stats.Owners,
			"preferences":    stats.Preferences,
			"max_per_player": cfg.StoreLimits.MaxPerPlayer,
			"max_total":      cfg.StoreLimits.MaxTotal,
		}
		if stats.Snapshots > 0 {
			info["oldest"] = stats.Oldest
			info["newest"] = stats.Newest
		}
		return printJSON(out, info)
	}

	tw := newTabWriter(out)
	fmt.Fprintf(tw, "Path:\t%s\n", st.Location())
	fmt.Fprintf(tw, "Backend:\t%s\n", cfg.Database.Backend)
	fmt.Fprintf(tw, "Format:\tv%d\n", store.FormatVersion)
	fmt.Fprintf(tw, "Size:\t%s\n", humanize.IBytes(uint64(sizeBytes)))
	fmt.Fprintf(tw, "Snapshots:\t%s of %s\n",
		humanize.Comma(int64(stats.Snapshots)), humanize.Comma(int64(cfg.StoreLimits.MaxTotal)))
	fmt.Fprintf(tw, "Players:\t%d (up to %d snapshots each)\n", stats.Owners, cfg.StoreLimits.MaxPerPlayer)
	fmt.Fprintf(tw, "Preferences:\t%d\n", stats.Preferences)
	if stats.Snapshots > 0 {
		at := now()
		fmt.Fprintf(tw, "Oldest:\t%s (%s)\n", stats.Oldest.Format(time.RFC3339), humanize.RelTime(stats.Oldest, at, "ago", "from now"))
		fmt.Fprintf(tw, "Newest:\t%s (%s)\n", stats.Newest.Format(time.RFC3339), humanize.RelTime(stats.Newest, at, "ago", "from now"))
	}
	return tw.Flush()
}

func runConfig(cmd *cobra.Command, args []string) error {
	out := cmd.OutOrStdout()

	if writeDefault {
		path := resolvedConfigPath()
		if _, err := os.Stat(path); err == nil && !forceWrite {
			return fmt.Errorf("config file %s already exists (use --force to overwrite)", path)
		}
		if err := config.Defaults().Save(path); err != nil {
			return err
		}
		fmt.Fprintf(out, "Wrote default configuration to %s\n", path)
		return nil
	}

	cfg, err := loadConfig(cmd.ErrOrStderr())
	if err != nil {
		return err
	}
	// Both renderings go through YAML so env-only secrets are never shown.
	data, err := yaml.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("marshal config: %w", err)
	}
	if jsonOutput {
		var doc map[string]any
		if err := yaml.Unmarshal(data, &doc); err != nil {
			return fmt.Errorf("convert config: %w", err)
		}
		return printJSON(out, doc)
	}
	_, err = out.Write(data)
	return err
}

// resolvedConfigPath mirrors the lookup order of config.Load.
func resolvedConfigPath() string {
	if configPath != "" {
		return configPath
	}
	if p := os.Getenv("INVRESTORE_CONFIG_PATH"); p != "" {
		return p
	}
	return config.DefaultPath
}

func runBackupURL(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig(cmd.ErrOrStderr())
	if err != nil {
		return err
	}
	uploader, err := backup.NewUploader(cfg.Backup)
	if err != nil {
		return err
	}

	url, expiry, err := uploader.PresignedURL(cmd.Context())
	if errors.Is(err, backup.ErrNotConfigured) {
		return fmt.Errorf("%w: set backup.bucket or INVRESTORE_BACKUP_BUCKET", err)
	}
	if err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	if jsonOutput {
		return printJSON(out, map[string]any{
			"url":        url,
			"expires_at": expiry,
		})
	}
	fmt.Fprintln(out, url)
	fmt.Fprintf(out, "Expires %s (%s)\n", expiry.Format(time.RFC3339), humanize.Time(expiry))
	return nil
}
