// Package tracker turns host lifecycle notifications into snapshots.
package tracker

import (
	"log/slog"
	"slices"
	"strings"
	"sync"

	"github.com/google/uuid"
	"go.uber.org/multierr"

	"github.com/hyperengineering/invrestore/internal/event"
	"github.com/hyperengineering/invrestore/internal/snapshot"
)

// Sink receives captured snapshots. *store.Store satisfies it.
type Sink interface {
	Append(snapshot.Snapshot) error
}

// Tracker captures a snapshot for every lifecycle event and keeps the
// roster of owners currently online for auto-saves.
type Tracker struct {
	capturer *snapshot.Capturer
	sink     Sink
	logger   *slog.Logger

	mu     sync.Mutex
	online map[uuid.UUID]snapshot.Owner
}

// New returns a Tracker appending to sink.
func New(capturer *snapshot.Capturer, sink Sink, logger *slog.Logger) *Tracker {
	if logger == nil {
		logger = slog.Default()
	}
	return &Tracker{
		capturer: capturer,
		sink:     sink,
		logger:   logger.With("component", "tracker"),
		online:   make(map[uuid.UUID]snapshot.Owner),
	}
}

// OnLifecycleEvent captures owner under ev and appends the snapshot.
func (t *Tracker) OnLifecycleEvent(owner snapshot.Owner, ev event.Event) error {
	snap, err := t.capturer.Capture(owner, ev)
	if err == nil {
		err = t.sink.Append(snap)
	}
	if err != nil {
		t.logger.Error("couldn't record snapshot",
			"action", string(ev.Type()),
			"player", owner.Name(),
			"error", err,
		)
		return err
	}

	t.logger.Debug("snapshot recorded",
		"action", string(ev.Type()),
		"player", owner.Name(),
		"snapshot_id", snap.ID,
	)
	return nil
}

// OnJoin marks the owner online and records a join.
func (t *Tracker) OnJoin(owner snapshot.Owner) error {
	t.Update(owner)
	return t.OnLifecycleEvent(owner, event.Join{})
}

// OnDisconnect records a disconnect and removes the owner from the roster.
func (t *Tracker) OnDisconnect(owner snapshot.Owner) error {
	t.mu.Lock()
	delete(t.online, owner.ID())
	t.mu.Unlock()
	return t.OnLifecycleEvent(owner, event.Disconnect{})
}

// OnDeath records a death with the host's death message. The snapshot is
// taken before the host drops the owner's items.
func (t *Tracker) OnDeath(owner snapshot.Owner, message string) error {
	t.Update(owner)
	return t.OnLifecycleEvent(owner, event.Death{Message: message})
}

// OnLevelChange records a move from origin into the owner's current zone.
func (t *Tracker) OnLevelChange(owner snapshot.Owner, origin event.Zone) error {
	t.Update(owner)
	return t.OnLifecycleEvent(owner, event.LevelChange{Origin: origin, Destination: owner.Zone()})
}

// Update replaces the last known state of an online owner without recording
// anything. Owners not yet online are added.
func (t *Tracker) Update(owner snapshot.Owner) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.online[owner.ID()] = owner
}

// Online returns the owners currently online ordered by name.
func (t *Tracker) Online() []snapshot.Owner {
	t.mu.Lock()
	owners := make([]snapshot.Owner, 0, len(t.online))
	for _, o := range t.online {
		owners = append(owners, o)
	}
	t.mu.Unlock()

	slices.SortFunc(owners, func(a, b snapshot.Owner) int {
		if c := strings.Compare(a.Name(), b.Name()); c != 0 {
			return c
		}
		return strings.Compare(a.ID().String(), b.ID().String())
	})
	return owners
}

// AutoSaveAll records an auto-save for every online owner. It returns how
// many were recorded and every failure.
func (t *Tracker) AutoSaveAll() (int, error) {
	var (
		recorded int
		errs     error
	)
	for _, owner := range t.Online() {
		if err := t.OnLifecycleEvent(owner, event.AutoSave{}); err != nil {
			errs = multierr.Append(errs, err)
			continue
		}
		recorded++
	}
	return recorded, errs
}
