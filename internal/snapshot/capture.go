package snapshot

import (
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/hyperengineering/invrestore/internal/event"
	"github.com/hyperengineering/invrestore/internal/item"
)

// Owner is the live state of a tracked entity as exposed by the host.
// Items returns the live slot arrays; Capture copies them and never keeps
// the pointer.
type Owner interface {
	ID() uuid.UUID
	Name() string
	Zone() event.Zone
	Position() Position
	Items() *item.Contents
}

// Capturer produces snapshots from live owner state.
type Capturer struct {
	newID IDGenerator
	now   func() time.Time
}

// CapturerOption configures a Capturer.
type CapturerOption func(*Capturer)

// WithClock overrides the capture time source.
func WithClock(now func() time.Time) CapturerOption {
	return func(c *Capturer) {
		c.now = now
	}
}

// NewCapturer creates a Capturer drawing ids from newID.
func NewCapturer(newID IDGenerator, opts ...CapturerOption) *Capturer {
	c := &Capturer{
		newID: newID,
		now:   time.Now,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Capture records the owner's current state under the given event. The
// captured contents are a deep copy: later changes to the owner's live
// inventory do not reach the snapshot. The zone and the event are stored in
// canonical form and must be readable back.
func (c *Capturer) Capture(owner Owner, ev event.Event) (Snapshot, error) {
	zone, err := event.ParseZone(string(owner.Zone()))
	if err != nil {
		return Snapshot{}, fmt.Errorf("capture %s: zone: %w", owner.Name(), err)
	}
	ev, err = event.Canonical(ev)
	if err != nil {
		return Snapshot{}, fmt.Errorf("capture %s: %w", owner.Name(), err)
	}
	id, err := c.newID()
	if err != nil {
		return Snapshot{}, fmt.Errorf("generate snapshot id: %w", err)
	}
	var contents item.Contents
	if live := owner.Items(); live != nil {
		contents = live.Clone()
	}
	return Snapshot{
		ID:        id,
		Event:     ev,
		OwnerID:   owner.ID(),
		OwnerName: owner.Name(),
		Time:      c.now().UTC(),
		Zone:      zone,
		Position:  owner.Position(),
		Contents:  contents,
	}, nil
}
