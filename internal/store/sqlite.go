package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"github.com/goccy/go-json"
	"github.com/google/uuid"
	_ "modernc.org/sqlite"

	"github.com/hyperengineering/invrestore/internal/snapshot"
)

// SQLiteBackend persists the database into a SQLite file. A Write replaces
// every row inside one transaction, so readers see either the previous or
// the new database.
type SQLiteBackend struct {
	path string
	db   *sql.DB
}

// NewSQLiteBackend opens (creating if needed) the SQLite file at dbPath.
// It initializes the database with WAL mode, applies pragmas, and runs migrations.
func NewSQLiteBackend(dbPath string) (*SQLiteBackend, error) {
	// Ensure parent directory exists
	if dir := filepath.Dir(dbPath); dir != "." && dir != "" {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return nil, fmt.Errorf("create database directory: %w", err)
		}
	}

	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}

	if err := enablePragmas(db); err != nil {
		db.Close()
		return nil, fmt.Errorf("enable pragmas: %w", err)
	}

	if err := RunMigrations(context.Background(), db); err != nil {
		db.Close()
		return nil, fmt.Errorf("run migrations: %w", err)
	}

	return &SQLiteBackend{path: dbPath, db: db}, nil
}

// enablePragmas sets SQLite pragmas for performance and safety.
func enablePragmas(db *sql.DB) error {
	pragmas := []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA busy_timeout=5000",
		"PRAGMA synchronous=NORMAL",
	}

	for _, pragma := range pragmas {
		if _, err := db.Exec(pragma); err != nil {
			return fmt.Errorf("execute %s: %w", pragma, err)
		}
	}

	return nil
}

// Location returns the database file path.
func (b *SQLiteBackend) Location() string {
	return b.path
}

// Close closes the database connection
func (b *SQLiteBackend) Close() error {
	return b.db.Close()
}

// Read loads every row. A database that has never been written has no
// format_version and reports ErrDatabaseAbsent.
func (b *SQLiteBackend) Read(ctx context.Context) (*Database, error) {
	var raw string
	err := b.db.QueryRowContext(ctx, `SELECT value FROM meta WHERE key = 'format_version'`).Scan(&raw)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrDatabaseAbsent
	}
	if err != nil {
		return nil, fmt.Errorf("read format version: %w", err)
	}
	version, err := strconv.Atoi(raw)
	if err != nil || version < 1 || version > FormatVersion {
		return nil, corruptf("unsupported format_version %q", raw)
	}

	db := NewDatabase()
	db.Format = version

	rows, err := b.db.QueryContext(ctx, `SELECT id, record FROM snapshots ORDER BY seq`)
	if err != nil {
		return nil, fmt.Errorf("query snapshots: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var id, record string
		if err := rows.Scan(&id, &record); err != nil {
			return nil, fmt.Errorf("scan snapshot: %w", err)
		}
		var s snapshot.Snapshot
		if err := json.Unmarshal([]byte(record), &s); err != nil {
			return nil, corruptf("snapshot %s: %v", id, err)
		}
		db.Snapshots = append(db.Snapshots, s)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate snapshots: %w", err)
	}

	prefRows, err := b.db.QueryContext(ctx, `SELECT player_uuid, record FROM player_preferences`)
	if err != nil {
		return nil, fmt.Errorf("query preferences: %w", err)
	}
	defer prefRows.Close()

	for prefRows.Next() {
		var key, record string
		if err := prefRows.Scan(&key, &record); err != nil {
			return nil, fmt.Errorf("scan preferences: %w", err)
		}
		id, err := uuid.Parse(key)
		if err != nil {
			return nil, corruptf("preferences key %q: %v", key, err)
		}
		var p Preferences
		if err := json.Unmarshal([]byte(record), &p); err != nil {
			return nil, corruptf("preferences %s: %v", key, err)
		}
		if p.Timezone != "" {
			if _, err := time.LoadLocation(p.Timezone); err != nil {
				return nil, corruptf("preferences %s: timezone: %v", key, err)
			}
		}
		db.Preferences[id] = p
	}
	if err := prefRows.Err(); err != nil {
		return nil, fmt.Errorf("iterate preferences: %w", err)
	}

	return db, nil
}

// Write replaces the stored database in a single transaction.
func (b *SQLiteBackend) Write(ctx context.Context, db *Database) error {
	tx, err := b.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, `DELETE FROM snapshots`); err != nil {
		return fmt.Errorf("clear snapshots: %w", err)
	}
	if _, err := tx.ExecContext(ctx, `DELETE FROM player_preferences`); err != nil {
		return fmt.Errorf("clear preferences: %w", err)
	}

	insertSnapshot, err := tx.PrepareContext(ctx, `
		INSERT INTO snapshots (seq, id, player_uuid, player_name, event_type, time, record)
		VALUES (?, ?, ?, ?, ?, ?, ?)
	`)
	if err != nil {
		return fmt.Errorf("prepare snapshot insert: %w", err)
	}
	defer insertSnapshot.Close()

	for i, s := range db.Snapshots {
		record, err := json.Marshal(s)
		if err != nil {
			return fmt.Errorf("encode snapshot %s: %w", s.ID, err)
		}
		if _, err := insertSnapshot.ExecContext(ctx, i, s.ID, s.OwnerID.String(), s.OwnerName,
			string(s.Event.Type()), s.Time.UTC().Format(time.RFC3339Nano), string(record)); err != nil {
			return fmt.Errorf("insert snapshot %s: %w", s.ID, err)
		}
	}

	for id, p := range db.Preferences {
		record, err := json.Marshal(p)
		if err != nil {
			return fmt.Errorf("encode preferences %s: %w", id, err)
		}
		if _, err := tx.ExecContext(ctx,
			`INSERT INTO player_preferences (player_uuid, record) VALUES (?, ?)`,
			id.String(), string(record)); err != nil {
			return fmt.Errorf("insert preferences %s: %w", id, err)
		}
	}

	if _, err := tx.ExecContext(ctx, `
		INSERT INTO meta (key, value) VALUES ('format_version', ?)
		ON CONFLICT(key) DO UPDATE SET value = excluded.value
	`, strconv.Itoa(db.Format)); err != nil {
		return fmt.Errorf("write format version: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit: %w", err)
	}

	// Fold the WAL into the main file: backups copy that file alone.
	if _, err := b.db.ExecContext(ctx, `PRAGMA wal_checkpoint(TRUNCATE)`); err != nil {
		return fmt.Errorf("checkpoint: %w", err)
	}
	return nil
}
