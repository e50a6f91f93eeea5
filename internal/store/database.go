package store

import (
	"fmt"
	"maps"
	"slices"
	"time"

	"github.com/goccy/go-json"
	"github.com/google/uuid"

	"github.com/hyperengineering/invrestore/internal/snapshot"
)

// FormatVersion is written to every persisted database.
const FormatVersion = 1

// Preferences are per-owner display settings.
type Preferences struct {
	Timezone string `json:"timezone,omitempty"`
}

// Location resolves the preferred zone, or fallback when none is set.
func (p Preferences) Location(fallback *time.Location) *time.Location {
	if p.Timezone == "" {
		return fallback
	}
	loc, err := time.LoadLocation(p.Timezone)
	if err != nil {
		return fallback
	}
	return loc
}

// Database is the persisted aggregate: every retained snapshot plus owner
// preferences. It is not safe for concurrent use; Store guards it.
type Database struct {
	Format      int
	Snapshots   []snapshot.Snapshot
	Preferences map[uuid.UUID]Preferences
}

// NewDatabase returns an empty database at the current format version.
func NewDatabase() *Database {
	return &Database{
		Format:      FormatVersion,
		Preferences: make(map[uuid.UUID]Preferences),
	}
}

// Clone copies the collection and the preference map. Snapshots themselves
// are immutable and shared.
func (d *Database) Clone() *Database {
	return &Database{
		Format:      d.Format,
		Snapshots:   slices.Clone(d.Snapshots),
		Preferences: maps.Clone(d.Preferences),
	}
}

// EnforceLimits keeps at most maxPerOwner most recent snapshots per owner,
// then at most maxTotal most recent overall. The collection is left sorted
// oldest first. It returns the number of evicted snapshots.
func (d *Database) EnforceLimits(maxPerOwner, maxTotal int) int {
	before := len(d.Snapshots)

	groups := make(map[uuid.UUID][]snapshot.Snapshot)
	var owners []uuid.UUID
	for _, s := range d.Snapshots {
		if _, ok := groups[s.OwnerID]; !ok {
			owners = append(owners, s.OwnerID)
		}
		groups[s.OwnerID] = append(groups[s.OwnerID], s)
	}

	kept := make([]snapshot.Snapshot, 0, len(d.Snapshots))
	for _, owner := range owners {
		g := groups[owner]
		slices.SortStableFunc(g, snapshot.CompareOldestFirst)
		if excess := len(g) - max(maxPerOwner, 0); excess > 0 {
			g = g[excess:]
		}
		kept = append(kept, g...)
	}

	slices.SortStableFunc(kept, snapshot.CompareOldestFirst)
	if excess := len(kept) - max(maxTotal, 0); excess > 0 {
		kept = kept[excess:]
	}

	d.Snapshots = kept
	return before - len(kept)
}

type databaseRecord struct {
	FormatVersion     *int                   `json:"format_version"`
	Snapshots         []snapshot.Snapshot    `json:"snapshots"`
	PlayerPreferences map[string]Preferences `json:"player_preferences"`
}

// MarshalJSON writes the persisted record.
func (d *Database) MarshalJSON() ([]byte, error) {
	version := d.Format
	rec := databaseRecord{
		FormatVersion:     &version,
		Snapshots:         d.Snapshots,
		PlayerPreferences: make(map[string]Preferences, len(d.Preferences)),
	}
	if rec.Snapshots == nil {
		rec.Snapshots = []snapshot.Snapshot{}
	}
	for id, p := range d.Preferences {
		rec.PlayerPreferences[id.String()] = p
	}
	return json.Marshal(rec)
}

// UnmarshalJSON reads the persisted record. format_version is required;
// missing collections decode as empty.
func (d *Database) UnmarshalJSON(data []byte) error {
	var rec databaseRecord
	if err := json.Unmarshal(data, &rec); err != nil {
		return err
	}
	if rec.FormatVersion == nil {
		return fmt.Errorf("missing format_version")
	}
	if *rec.FormatVersion < 1 || *rec.FormatVersion > FormatVersion {
		return fmt.Errorf("unsupported format_version %d", *rec.FormatVersion)
	}

	prefs := make(map[uuid.UUID]Preferences, len(rec.PlayerPreferences))
	for key, p := range rec.PlayerPreferences {
		id, err := uuid.Parse(key)
		if err != nil {
			return fmt.Errorf("player_preferences: key %q: %w", key, err)
		}
		if p.Timezone != "" {
			if _, err := time.LoadLocation(p.Timezone); err != nil {
				return fmt.Errorf("player_preferences %s: timezone: %w", key, err)
			}
		}
		prefs[id] = p
	}

	*d = Database{
		Format:      *rec.FormatVersion,
		Snapshots:   rec.Snapshots,
		Preferences: prefs,
	}
	return nil
}
