package snapshot

import (
	"github.com/google/uuid"

	"github.com/hyperengineering/invrestore/internal/event"
	"github.com/hyperengineering/invrestore/internal/item"
)

// liveOwner is a mutable owner whose inventory tests change after capture.
type liveOwner struct {
	id    uuid.UUID
	name  string
	zone  event.Zone
	pos   Position
	items item.Contents
}

func (o *liveOwner) ID() uuid.UUID         { return o.id }
func (o *liveOwner) Name() string          { return o.name }
func (o *liveOwner) Zone() event.Zone      { return o.zone }
func (o *liveOwner) Position() Position    { return o.pos }
func (o *liveOwner) Items() *item.Contents { return &o.items }

func newLiveOwner() *liveOwner {
	o := &liveOwner{
		id:   uuid.MustParse("0f5b9f62-7a7e-4c8e-9d3b-2a1f6c0e8d11"),
		name: "Alice",
		zone: event.Overworld,
		pos:  Position{X: 10.5, Y: 64, Z: -3.25},
	}
	o.items.Inventory[0] = item.NewStack("minecraft:diamond_pickaxe", 1)
	o.items.Armor[2] = item.NewStack("minecraft:iron_chestplate", 1)
	o.items.EnderChest[4] = item.Stack{ID: "minecraft:book", Count: 3, Components: []byte(`{"title":"notes"}`)}
	return o
}
