// Package item models captured item stacks and the sparse slot encoding
// used to persist fixed-capacity slot arrays.
package item

import (
	"bytes"

	"github.com/goccy/go-json"
)

// Air is the identifier hosts use for an empty slot.
const Air = "minecraft:air"

// Stack is a single item stack. The zero value is the empty stack.
// Components carries the host's opaque per-item data and is kept verbatim.
type Stack struct {
	ID         string          `json:"id"`
	Count      int             `json:"count"`
	Components json.RawMessage `json:"components,omitempty"`
}

// NewStack returns a stack of count items with no component data.
func NewStack(id string, count int) Stack {
	return Stack{ID: id, Count: count}
}

// IsEmpty reports whether the stack occupies no slot.
func (s Stack) IsEmpty() bool {
	return s.ID == "" || s.ID == Air || s.Count <= 0
}

// Clone returns a stack that shares no memory with s.
func (s Stack) Clone() Stack {
	if s.IsEmpty() {
		return Stack{}
	}
	c := s
	if s.Components != nil {
		c.Components = bytes.Clone(s.Components)
	}
	return c
}

// Equal reports whether two stacks describe the same item. All empty
// stacks are equal to each other.
func (s Stack) Equal(o Stack) bool {
	if s.IsEmpty() || o.IsEmpty() {
		return s.IsEmpty() == o.IsEmpty()
	}
	return s.ID == o.ID && s.Count == o.Count && bytes.Equal(compact(s.Components), compact(o.Components))
}

// UnmarshalJSON decodes the persisted item format. Count defaults to 1 when
// absent; an empty item is rejected because empty slots are stored by omission.
func (s *Stack) UnmarshalJSON(data []byte) error {
	var raw struct {
		ID         string          `json:"id"`
		Count      *int            `json:"count"`
		Components json.RawMessage `json:"components"`
	}
	if err := json.Unmarshal(data, &raw); err != nil {
		return formatErrorf("item", "%v", err)
	}
	if raw.ID == "" {
		return formatErrorf("item.id", "missing item id")
	}
	count := 1
	if raw.Count != nil {
		count = *raw.Count
	}
	st := Stack{ID: raw.ID, Count: count}
	if len(raw.Components) > 0 && !bytes.Equal(raw.Components, []byte("null")) {
		st.Components = bytes.Clone(raw.Components)
	}
	if st.IsEmpty() {
		return formatErrorf("item", "empty item %q with count %d", raw.ID, count)
	}
	*s = st
	return nil
}

func compact(raw json.RawMessage) []byte {
	if len(raw) == 0 {
		return nil
	}
	var buf bytes.Buffer
	if err := json.Compact(&buf, raw); err != nil {
		return raw
	}
	return buf.Bytes()
}
