// Package snapshot defines the immutable point-in-time record captured
// whenever a tracked lifecycle event fires.
package snapshot

import (
	"fmt"
	"time"

	"github.com/goccy/go-json"
	"github.com/google/uuid"

	"github.com/hyperengineering/invrestore/internal/event"
	"github.com/hyperengineering/invrestore/internal/item"
)

// Position is an owner's location within a zone.
type Position struct {
	X, Y, Z float64
}

// MarshalJSON writes the position as a three-element array.
func (p Position) MarshalJSON() ([]byte, error) {
	return json.Marshal([3]float64{p.X, p.Y, p.Z})
}

// UnmarshalJSON reads a three-element array.
func (p *Position) UnmarshalJSON(data []byte) error {
	var v []float64
	if err := json.Unmarshal(data, &v); err != nil {
		return err
	}
	if len(v) != 3 {
		return fmt.Errorf("position has %d coordinates, want 3", len(v))
	}
	*p = Position{X: v[0], Y: v[1], Z: v[2]}
	return nil
}

// Snapshot is a captured owner state. Once created it is never modified;
// the store only adds and evicts whole snapshots.
type Snapshot struct {
	ID        string
	Event     event.Event
	OwnerID   uuid.UUID
	OwnerName string
	Time      time.Time
	Zone      event.Zone
	Position  Position
	Contents  item.Contents
}

// Validate reports whether s can be persisted and read back.
func (s Snapshot) Validate() error {
	if s.ID == "" {
		return fmt.Errorf("snapshot: missing id")
	}
	if _, err := event.ParseZone(string(s.Zone)); err != nil {
		return fmt.Errorf("snapshot %s: zone: %w", s.ID, err)
	}
	if _, err := event.Canonical(s.Event); err != nil {
		return fmt.Errorf("snapshot %s: %w", s.ID, err)
	}
	return nil
}

// record is the persisted shape of a Snapshot.
type record struct {
	ID         string          `json:"id"`
	Event      json.RawMessage `json:"event"`
	PlayerUUID string          `json:"player_uuid"`
	PlayerName string          `json:"player_name"`
	Time       string          `json:"time"`
	Dimension  string          `json:"dimension"`
	Position   Position        `json:"position"`
	Contents   item.Contents   `json:"contents"`
}

// MarshalJSON encodes the snapshot record with its time normalized to UTC.
func (s Snapshot) MarshalJSON() ([]byte, error) {
	ev, err := event.Marshal(s.Event)
	if err != nil {
		return nil, fmt.Errorf("snapshot %s: %w", s.ID, err)
	}
	return json.Marshal(record{
		ID:         s.ID,
		Event:      ev,
		PlayerUUID: s.OwnerID.String(),
		PlayerName: s.OwnerName,
		Time:       s.Time.UTC().Format(time.RFC3339Nano),
		Dimension:  string(s.Zone),
		Position:   s.Position,
		Contents:   s.Contents,
	})
}

// UnmarshalJSON decodes a snapshot record. Every field is required except
// the individual slot arrays inside contents.
func (s *Snapshot) UnmarshalJSON(data []byte) error {
	var rec struct {
		ID         string          `json:"id"`
		Event      json.RawMessage `json:"event"`
		PlayerUUID string          `json:"player_uuid"`
		PlayerName string          `json:"player_name"`
		Time       string          `json:"time"`
		Dimension  string          `json:"dimension"`
		Position   *Position       `json:"position"`
		Contents   *item.Contents  `json:"contents"`
	}
	if err := json.Unmarshal(data, &rec); err != nil {
		return err
	}
	if rec.ID == "" {
		return fmt.Errorf("snapshot: missing id")
	}
	if len(rec.Event) == 0 {
		return fmt.Errorf("snapshot %s: missing event", rec.ID)
	}
	ev, err := event.Unmarshal(rec.Event)
	if err != nil {
		return fmt.Errorf("snapshot %s: %w", rec.ID, err)
	}
	owner, err := uuid.Parse(rec.PlayerUUID)
	if err != nil {
		return fmt.Errorf("snapshot %s: player_uuid: %w", rec.ID, err)
	}
	at, err := time.Parse(time.RFC3339Nano, rec.Time)
	if err != nil {
		return fmt.Errorf("snapshot %s: time: %w", rec.ID, err)
	}
	zone, err := event.ParseZone(rec.Dimension)
	if err != nil {
		return fmt.Errorf("snapshot %s: dimension: %w", rec.ID, err)
	}
	if rec.Position == nil {
		return fmt.Errorf("snapshot %s: missing position", rec.ID)
	}
	if rec.Contents == nil {
		return fmt.Errorf("snapshot %s: missing contents", rec.ID)
	}
	*s = Snapshot{
		ID:        rec.ID,
		Event:     ev,
		OwnerID:   owner,
		OwnerName: rec.PlayerName,
		Time:      at.UTC(),
		Zone:      zone,
		Position:  *rec.Position,
		Contents:  *rec.Contents,
	}
	return nil
}
