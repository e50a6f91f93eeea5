package store

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/hyperengineering/invrestore/internal/event"
	"github.com/hyperengineering/invrestore/internal/item"
	"github.com/hyperengineering/invrestore/internal/snapshot"
)

var (
	alice = uuid.MustParse("0f5b9f62-7a7e-4c8e-9d3b-2a1f6c0e8d11")
	bob   = uuid.MustParse("6a1c4e0b-3f2d-4b8a-a9c7-5d2e1f0b7c33")
	carol = uuid.MustParse("b3e7d9a1-8c4f-4e2b-9a6d-1f0c7e5b3a22")

	baseTime = time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)
)

func names(id uuid.UUID) string {
	switch id {
	case alice:
		return "Alice"
	case bob:
		return "Bob"
	case carol:
		return "Carol"
	}
	return "Unknown"
}

// snap builds a snapshot for owner at baseTime plus offset.
func snap(id string, owner uuid.UUID, offset time.Duration, ev event.Event) snapshot.Snapshot {
	var c item.Contents
	c.Inventory[0] = item.NewStack("minecraft:stone", 64)
	c.Armor[3] = item.NewStack("minecraft:iron_helmet", 1)
	return snapshot.Snapshot{
		ID:        id,
		Event:     ev,
		OwnerID:   owner,
		OwnerName: names(owner),
		Time:      baseTime.Add(offset),
		Zone:      event.Overworld,
		Position:  snapshot.Position{X: 10.5, Y: 64, Z: -3.25},
		Contents:  c,
	}
}

// series returns n snapshots for owner one minute apart, oldest first.
func series(prefix string, owner uuid.UUID, n int, start time.Duration) []snapshot.Snapshot {
	out := make([]snapshot.Snapshot, n)
	for i := range out {
		out[i] = snap(fmt.Sprintf("%s%d", prefix, i), owner, start+time.Duration(i)*time.Minute, event.AutoSave{})
	}
	return out
}

func ids(snaps []snapshot.Snapshot) []string {
	out := make([]string, len(snaps))
	for i, s := range snaps {
		out[i] = s.ID
	}
	return out
}

// memoryBackend is a Backend held in memory with injectable failures.
type memoryBackend struct {
	mu       sync.Mutex
	db       *Database
	readErr  error
	writeErr error
	writes   int
	closed   bool
}

func (m *memoryBackend) Read(ctx context.Context) (*Database, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.readErr != nil {
		return nil, m.readErr
	}
	if m.db == nil {
		return nil, ErrDatabaseAbsent
	}
	return m.db.Clone(), nil
}

func (m *memoryBackend) Write(ctx context.Context, db *Database) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.writeErr != nil {
		return m.writeErr
	}
	m.writes++
	m.db = db.Clone()
	return nil
}

func (m *memoryBackend) Location() string { return "memory" }

func (m *memoryBackend) Close() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.closed = true
	return nil
}

func (m *memoryBackend) setWriteErr(err error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.writeErr = err
}

func (m *memoryBackend) stored() *Database {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.db
}

var errDiskFull = errors.New("disk full")
