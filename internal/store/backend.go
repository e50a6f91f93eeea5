package store

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/goccy/go-json"
	"github.com/klauspost/compress/gzip"
)

// Backend persists a Database. Read returns ErrDatabaseAbsent when nothing
// has been written yet and an error matching ErrCorrupt when the stored
// bytes cannot be decoded.
type Backend interface {
	Read(ctx context.Context) (*Database, error)
	Write(ctx context.Context, db *Database) error
	Location() string
	Close() error
}

// FileBackend stores the database as a single gzip-compressed JSON file.
// Writes go to a temporary file in the same directory that is renamed over
// the previous file, so a crash mid-write leaves the old file intact.
type FileBackend struct {
	path string
}

// NewFileBackend returns a backend for the file at path.
func NewFileBackend(path string) *FileBackend {
	return &FileBackend{path: path}
}

// Location returns the file path.
func (b *FileBackend) Location() string {
	return b.path
}

// Read decodes the database file.
func (b *FileBackend) Read(ctx context.Context) (*Database, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	f, err := os.Open(b.path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, ErrDatabaseAbsent
		}
		return nil, fmt.Errorf("open: %w", err)
	}
	defer f.Close()

	zr, err := gzip.NewReader(f)
	if err != nil {
		return nil, corruptf("gzip header: %v", err)
	}
	defer zr.Close()

	data, err := io.ReadAll(zr)
	if err != nil {
		return nil, corruptf("decompress: %v", err)
	}

	var db Database
	if err := json.Unmarshal(data, &db); err != nil {
		return nil, corruptf("decode: %v", err)
	}
	return &db, nil
}

// Write replaces the database file.
func (b *FileBackend) Write(ctx context.Context, db *Database) (err error) {
	if err := ctx.Err(); err != nil {
		return err
	}

	data, err := json.Marshal(db)
	if err != nil {
		return fmt.Errorf("encode: %w", err)
	}

	dir := filepath.Dir(b.path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("create database directory: %w", err)
	}

	tmp, err := os.CreateTemp(dir, "."+filepath.Base(b.path)+".*.tmp")
	if err != nil {
		return fmt.Errorf("create temp file: %w", err)
	}
	defer func() {
		if err != nil {
			tmp.Close()
			os.Remove(tmp.Name())
		}
	}()

	zw := gzip.NewWriter(tmp)
	if _, err = zw.Write(data); err != nil {
		return fmt.Errorf("write: %w", err)
	}
	if err = zw.Close(); err != nil {
		return fmt.Errorf("flush: %w", err)
	}
	if err = tmp.Sync(); err != nil {
		return fmt.Errorf("sync: %w", err)
	}
	if err = tmp.Close(); err != nil {
		return fmt.Errorf("close temp file: %w", err)
	}
	if err = os.Rename(tmp.Name(), b.path); err != nil {
		return fmt.Errorf("replace: %w", err)
	}
	return nil
}

// Close is a no-op; the file is only open during Read and Write.
func (b *FileBackend) Close() error {
	return nil
}

// Backend kinds accepted by OpenBackend.
const (
	KindFile   = "file"
	KindSQLite = "sqlite"
)

// OpenBackend returns the backend of the given kind for path.
func OpenBackend(kind, path string) (Backend, error) {
	switch kind {
	case KindFile, "":
		return NewFileBackend(path), nil
	case KindSQLite:
		return NewSQLiteBackend(path)
	default:
		return nil, fmt.Errorf("unknown database backend %q", kind)
	}
}
