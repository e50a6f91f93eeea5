package item

import (
	"errors"

	"github.com/goccy/go-json"
)

// Slot array capacities of a captured inventory.
const (
	InventorySize  = 36
	ArmorSize      = 4
	OffhandSize    = 1
	EnderChestSize = 27
)

// Contents holds the four slot arrays captured from an owner. The arrays
// are values, so assigning a Contents copies every slot; only component
// data needs Clone to be fully detached.
type Contents struct {
	Inventory  [InventorySize]Stack
	Armor      [ArmorSize]Stack
	Offhand    [OffhandSize]Stack
	EnderChest [EnderChestSize]Stack
}

// Clone returns a deep copy of c.
func (c *Contents) Clone() Contents {
	var out Contents
	cloneInto(out.Inventory[:], c.Inventory[:])
	cloneInto(out.Armor[:], c.Armor[:])
	cloneInto(out.Offhand[:], c.Offhand[:])
	cloneInto(out.EnderChest[:], c.EnderChest[:])
	return out
}

func cloneInto(dst, src []Stack) {
	for i, st := range src {
		dst[i] = st.Clone()
	}
}

// StackCount returns the number of occupied slots across all four arrays.
func (c *Contents) StackCount() int {
	n := 0
	for _, st := range c.All() {
		if !st.IsEmpty() {
			n++
		}
	}
	return n
}

// All returns every slot in inventory, armor, offhand, ender chest order.
func (c *Contents) All() []Stack {
	all := make([]Stack, 0, InventorySize+ArmorSize+OffhandSize+EnderChestSize)
	all = append(all, c.Inventory[:]...)
	all = append(all, c.Armor[:]...)
	all = append(all, c.Offhand[:]...)
	all = append(all, c.EnderChest[:]...)
	return all
}

// Equal reports whether both contents hold equal stacks in every slot.
func (c *Contents) Equal(o *Contents) bool {
	a, b := c.All(), o.All()
	for i := range a {
		if !a[i].Equal(b[i]) {
			return false
		}
	}
	return true
}

type contentsRecord struct {
	Inventory  []Slot `json:"inventory"`
	Armor      []Slot `json:"armor"`
	Offhand    []Slot `json:"offhand"`
	EnderChest []Slot `json:"ender_chest"`
}

// MarshalJSON writes each array as a sparse slot list.
func (c Contents) MarshalJSON() ([]byte, error) {
	return json.Marshal(contentsRecord{
		Inventory:  EncodeSlots(c.Inventory[:]),
		Armor:      EncodeSlots(c.Armor[:]),
		Offhand:    EncodeSlots(c.Offhand[:]),
		EnderChest: EncodeSlots(c.EnderChest[:]),
	})
}

// UnmarshalJSON reads the sparse form. A missing array decodes as empty.
func (c *Contents) UnmarshalJSON(data []byte) error {
	var rec contentsRecord
	if err := json.Unmarshal(data, &rec); err != nil {
		return wrapField("contents", err)
	}
	var out Contents
	fields := []struct {
		name   string
		sparse []Slot
		dst    []Stack
	}{
		{"inventory", rec.Inventory, out.Inventory[:]},
		{"armor", rec.Armor, out.Armor[:]},
		{"offhand", rec.Offhand, out.Offhand[:]},
		{"ender_chest", rec.EnderChest, out.EnderChest[:]},
	}
	for _, f := range fields {
		slots, err := DecodeSlots(f.sparse, len(f.dst))
		if err != nil {
			return wrapField(f.name, err)
		}
		copy(f.dst, slots)
	}
	*c = out
	return nil
}

// wrapField prefixes a FormatError's field path, or turns any other decode
// error into a FormatError for that field.
func wrapField(field string, err error) error {
	var fe *FormatError
	if errors.As(err, &fe) {
		if fe.Field == "" {
			return &FormatError{Field: field, Message: fe.Message}
		}
		return &FormatError{Field: field + joinPath(fe.Field), Message: fe.Message}
	}
	return &FormatError{Field: field, Message: err.Error()}
}

func joinPath(field string) string {
	if len(field) > 0 && field[0] == '[' {
		return field
	}
	return "." + field
}
