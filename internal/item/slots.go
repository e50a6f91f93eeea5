package item

import "fmt"

// Slot is one entry of a sparse slot list: an occupied index and its stack.
type Slot struct {
	Index int   `json:"slot"`
	Item  Stack `json:"item"`
}

// EncodeSlots converts a fixed-size slot array into its sparse form,
// omitting empty slots. Entries are ordered by index.
func EncodeSlots(slots []Stack) []Slot {
	sparse := make([]Slot, 0)
	for i, st := range slots {
		if st.IsEmpty() {
			continue
		}
		sparse = append(sparse, Slot{Index: i, Item: st})
	}
	return sparse
}

// DecodeSlots expands a sparse slot list into a slot array of the given
// capacity. Every slot starts empty; listed indices overwrite it, later
// entries winning over earlier ones for a repeated index.
func DecodeSlots(sparse []Slot, capacity int) ([]Stack, error) {
	slots := make([]Stack, capacity)
	for i, sl := range sparse {
		if sl.Index < 0 || sl.Index >= capacity {
			return nil, formatErrorf(fmt.Sprintf("[%d].slot", i), "index %d outside [0, %d)", sl.Index, capacity)
		}
		if sl.Item.IsEmpty() {
			return nil, formatErrorf(fmt.Sprintf("[%d].item", i), "empty item stored for slot %d", sl.Index)
		}
		slots[sl.Index] = sl.Item
	}
	return slots, nil
}
