// Package store holds the snapshot database: the in-memory collection,
// owner preferences, retention and persistence.
package store

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"slices"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/multierr"

	"github.com/hyperengineering/invrestore/internal/event"
	"github.com/hyperengineering/invrestore/internal/snapshot"
)

// Limits bounds retention. Both values are applied at every save.
type Limits struct {
	MaxPerOwner int
	MaxTotal    int
}

// Store owns the single Database instance of a process. All methods are
// safe for concurrent use; reads never observe a partially applied write.
type Store struct {
	backend Backend
	limits  Limits
	logger  *slog.Logger

	mu sync.RWMutex
	db *Database // nil until Load succeeds

	saveMu sync.Mutex
}

// Option configures a Store.
type Option func(*Store)

// WithLogger sets the logger; the default is slog.Default().
func WithLogger(l *slog.Logger) Option {
	return func(s *Store) {
		s.logger = l
	}
}

// New returns an unloaded Store. Mutations fail with ErrNotLoaded until Load
// succeeds.
func New(backend Backend, limits Limits, opts ...Option) *Store {
	s := &Store{
		backend: backend,
		limits:  limits,
		logger:  slog.Default(),
	}
	for _, opt := range opts {
		opt(s)
	}
	s.logger = s.logger.With("component", "store")
	return s
}

// Location describes where the database is persisted.
func (s *Store) Location() string {
	return s.backend.Location()
}

// Load reads the persisted database. When none exists an empty database is
// created and written immediately; a failure of that first write is returned
// as a *SaveError but leaves the store loaded. An unreadable or corrupt
// database yields a *LoadError and the store stays unloaded.
func (s *Store) Load(ctx context.Context) error {
	db, err := s.backend.Read(ctx)
	switch {
	case errors.Is(err, ErrDatabaseAbsent):
		s.logger.Info("creating new database", "action", "load", "path", s.Location())
		s.mu.Lock()
		s.db = NewDatabase()
		s.mu.Unlock()
		return s.Save(ctx)
	case err != nil:
		s.logger.Error("couldn't load database", "action", "load", "path", s.Location(), "error", err)
		return &LoadError{Path: s.Location(), Err: err}
	}

	s.mu.Lock()
	s.db = db
	s.mu.Unlock()

	s.logger.Info("database loaded", "action", "load", "path", s.Location(), "snapshots", len(db.Snapshots))
	return nil
}

// Loaded reports whether Load has completed.
func (s *Store) Loaded() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.db != nil
}

// Append adds a snapshot. Retention is not applied until the next Save.
// A snapshot that could not be read back is rejected with ErrInvalid, since
// persisting it would make the whole database fail to load.
func (s *Store) Append(snap snapshot.Snapshot) error {
	if err := snap.Validate(); err != nil {
		s.logger.Error("couldn't save snapshot", "action", "append", "snapshot_id", snap.ID,
			"player", snap.OwnerName, "error", err)
		return fmt.Errorf("%w: %w", ErrInvalid, err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if s.db == nil {
		s.logger.Error("couldn't save snapshot", "action", "append", "snapshot_id", snap.ID,
			"player", snap.OwnerName, "error", ErrNotLoaded)
		return ErrNotLoaded
	}
	s.db.Snapshots = append(s.db.Snapshots, snap)
	return nil
}

// Save applies the retention limits and persists the database. On failure
// the in-memory database is kept so that a later Save can succeed.
func (s *Store) Save(ctx context.Context) error {
	s.saveMu.Lock()
	defer s.saveMu.Unlock()

	s.mu.Lock()
	if s.db == nil {
		s.mu.Unlock()
		return ErrNotLoaded
	}
	evicted := s.db.EnforceLimits(s.limits.MaxPerOwner, s.limits.MaxTotal)
	frozen := s.db.Clone()
	s.mu.Unlock()

	start := time.Now()
	if err := s.backend.Write(ctx, frozen); err != nil {
		s.logger.Error("couldn't save database", "action", "save", "path", s.Location(), "error", err)
		return &SaveError{Path: s.Location(), Err: err}
	}

	s.logger.Debug("database saved",
		"action", "save",
		"path", s.Location(),
		"snapshots", len(frozen.Snapshots),
		"evicted", evicted,
		"duration_ms", time.Since(start).Milliseconds(),
	)
	return nil
}

// Close releases the backend. It does not save.
func (s *Store) Close() error {
	s.saveMu.Lock()
	defer s.saveMu.Unlock()
	return s.backend.Close()
}

// Flush saves and closes, reporting both failures.
func (s *Store) Flush(ctx context.Context) error {
	var err error
	if s.Loaded() {
		err = s.Save(ctx)
	}
	return multierr.Append(err, s.Close())
}

// Len returns the number of snapshots currently held in memory.
func (s *Store) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.db == nil {
		return 0
	}
	return len(s.db.Snapshots)
}

// FindSnapshots returns the snapshots matching keep, newest first.
func (s *Store) FindSnapshots(keep func(snapshot.Snapshot) bool) []snapshot.Snapshot {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.db == nil {
		return nil
	}

	var out []snapshot.Snapshot
	for _, snap := range s.db.Snapshots {
		if keep(snap) {
			out = append(out, snap)
		}
	}
	snapshot.SortNewestFirst(out)
	return out
}

// FindByOwnerAndType returns the snapshots of the named owner, newest first.
// An empty typ matches every event type.
func (s *Store) FindByOwnerAndType(name string, typ event.Type) []snapshot.Snapshot {
	return s.FindSnapshots(func(snap snapshot.Snapshot) bool {
		return snap.OwnerName == name && (typ == "" || snap.Event.Type() == typ)
	})
}

// DistinctOwnerNames lists every owner name once, most recently seen first.
func (s *Store) DistinctOwnerNames() []string {
	all := s.FindSnapshots(func(snapshot.Snapshot) bool { return true })

	seen := make(map[string]struct{}, len(all))
	var names []string
	for _, snap := range all {
		if _, ok := seen[snap.OwnerName]; ok {
			continue
		}
		seen[snap.OwnerName] = struct{}{}
		names = append(names, snap.OwnerName)
	}
	return names
}

// AllIDs returns the id of every snapshot in collection order.
func (s *Store) AllIDs() []string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.db == nil {
		return nil
	}

	ids := make([]string, len(s.db.Snapshots))
	for i, snap := range s.db.Snapshots {
		ids[i] = snap.ID
	}
	return ids
}

// FindByID returns the snapshot with the given id or ErrNotFound.
func (s *Store) FindByID(id string) (snapshot.Snapshot, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.db != nil {
		i := slices.IndexFunc(s.db.Snapshots, func(snap snapshot.Snapshot) bool { return snap.ID == id })
		if i >= 0 {
			return s.db.Snapshots[i], nil
		}
	}
	return snapshot.Snapshot{}, ErrNotFound
}

// Preferences returns the stored preferences of an owner, or the zero value.
func (s *Store) Preferences(owner uuid.UUID) Preferences {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.db == nil {
		return Preferences{}
	}
	return s.db.Preferences[owner]
}

// UpdatePreferences applies update to the owner's current preferences and
// stores the result.
func (s *Store) UpdatePreferences(owner uuid.UUID, update func(Preferences) Preferences) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.db == nil {
		return ErrNotLoaded
	}
	s.db.Preferences[owner] = update(s.db.Preferences[owner])
	return nil
}

// Stats summarizes the in-memory database.
type Stats struct {
	Snapshots   int
	Owners      int
	Preferences int
	Oldest      time.Time
	Newest      time.Time
}

// Stats returns counts and the time range of held snapshots.
func (s *Store) Stats() Stats {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.db == nil {
		return Stats{}
	}

	owners := make(map[uuid.UUID]struct{})
	st := Stats{Snapshots: len(s.db.Snapshots), Preferences: len(s.db.Preferences)}
	for _, snap := range s.db.Snapshots {
		owners[snap.OwnerID] = struct{}{}
		if st.Oldest.IsZero() || snap.Time.Before(st.Oldest) {
			st.Oldest = snap.Time
		}
		if snap.Time.After(st.Newest) {
			st.Newest = snap.Time
		}
	}
	st.Owners = len(owners)
	return st
}
