package item

import (
	"errors"
	"strings"
	"testing"

	"github.com/goccy/go-json"
)

func sampleContents() Contents {
	var c Contents
	c.Inventory[0] = NewStack("minecraft:diamond_sword", 1)
	c.Inventory[5] = NewStack("minecraft:bread", 16)
	c.Armor[3] = NewStack("minecraft:iron_helmet", 1)
	c.Offhand[0] = Stack{ID: "minecraft:shield", Count: 1, Components: json.RawMessage(`{"damage":3}`)}
	c.EnderChest[26] = NewStack("minecraft:elytra", 1)
	return c
}

func TestContents_StackCount(t *testing.T) {
	c := sampleContents()
	if got := c.StackCount(); got != 5 {
		t.Errorf("StackCount() = %d, want 5", got)
	}

	var empty Contents
	if got := empty.StackCount(); got != 0 {
		t.Errorf("empty StackCount() = %d, want 0", got)
	}
}

func TestContents_CloneIsDetached(t *testing.T) {
	c := sampleContents()
	clone := c.Clone()

	c.Inventory[0] = NewStack("minecraft:dirt", 1)
	c.Offhand[0].Components[2] = 'X'

	if clone.Inventory[0].ID != "minecraft:diamond_sword" {
		t.Errorf("clone inventory changed to %q", clone.Inventory[0].ID)
	}
	if string(clone.Offhand[0].Components) != `{"damage":3}` {
		t.Errorf("clone components changed to %s", clone.Offhand[0].Components)
	}
}

func TestContents_JSONRoundTrip(t *testing.T) {
	c := sampleContents()

	data, err := json.Marshal(c)
	if err != nil {
		t.Fatalf("Marshal() error = %v", err)
	}
	if strings.Contains(string(data), "minecraft:air") {
		t.Errorf("encoded contents contain empty marker: %s", data)
	}

	var decoded Contents
	if err := json.Unmarshal(data, &decoded); err != nil {
		t.Fatalf("Unmarshal() error = %v", err)
	}
	if !decoded.Equal(&c) {
		t.Errorf("decoded contents differ: %s", data)
	}
}

func TestContents_UnmarshalMissingArrays(t *testing.T) {
	var c Contents
	if err := json.Unmarshal([]byte(`{"inventory":[{"slot":2,"item":{"id":"minecraft:stick","count":4}}]}`), &c); err != nil {
		t.Fatalf("Unmarshal() error = %v", err)
	}
	if c.Inventory[2].Count != 4 {
		t.Errorf("Inventory[2].Count = %d, want 4", c.Inventory[2].Count)
	}
	if c.StackCount() != 1 {
		t.Errorf("StackCount() = %d, want 1", c.StackCount())
	}
}

func TestContents_UnmarshalBadIndex(t *testing.T) {
	var c Contents
	err := json.Unmarshal([]byte(`{"offhand":[{"slot":1,"item":{"id":"minecraft:shield"}}]}`), &c)
	if !errors.Is(err, ErrFormat) {
		t.Fatalf("Unmarshal() error = %v, want ErrFormat", err)
	}
}
