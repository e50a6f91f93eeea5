package event

import (
	"fmt"
	"slices"

	"github.com/goccy/go-json"
)

// decoder builds an event from the payload fields of its tagged object.
type decoder func(payload []byte) (Event, error)

// registry maps each tag to its decoder. The set is fixed at compile time.
var registry = map[Type]decoder{
	TypeJoin:       unit(Join{}),
	TypeDisconnect: unit(Disconnect{}),
	TypeAutoSave:   unit(AutoSave{}),
	TypeDeath: func(payload []byte) (Event, error) {
		var e Death
		if err := json.Unmarshal(payload, &e); err != nil {
			return nil, fmt.Errorf("%w: death: %v", ErrMalformedEvent, err)
		}
		return e, nil
	},
	TypeLevelChange: func(payload []byte) (Event, error) {
		var raw struct {
			Origin      string `json:"origin"`
			Destination string `json:"destination"`
		}
		if err := json.Unmarshal(payload, &raw); err != nil {
			return nil, fmt.Errorf("%w: level_change: %v", ErrMalformedEvent, err)
		}
		origin, err := ParseZone(raw.Origin)
		if err != nil {
			return nil, fmt.Errorf("%w: level_change origin: %w", ErrMalformedEvent, err)
		}
		dest, err := ParseZone(raw.Destination)
		if err != nil {
			return nil, fmt.Errorf("%w: level_change destination: %w", ErrMalformedEvent, err)
		}
		return LevelChange{Origin: origin, Destination: dest}, nil
	},
}

// unit returns a decoder for payload-free variants.
func unit(e Event) decoder {
	return func([]byte) (Event, error) { return e, nil }
}

// Lookup validates a tag, as typed by a user filtering by event type.
func Lookup(tag string) (Type, error) {
	t := Type(tag)
	if _, ok := registry[t]; !ok {
		return "", fmt.Errorf("%w: %q", ErrUnknownEventType, tag)
	}
	return t, nil
}

// Types returns every registered tag in sorted order.
func Types() []Type {
	types := make([]Type, 0, len(registry))
	for t := range registry {
		types = append(types, t)
	}
	slices.Sort(types)
	return types
}

// Marshal encodes e as a tagged object: {"type": tag, ...payload}.
func Marshal(e Event) ([]byte, error) {
	if e == nil {
		return nil, fmt.Errorf("%w: nil event", ErrMalformedEvent)
	}
	if _, ok := registry[e.Type()]; !ok {
		return nil, fmt.Errorf("%w: %q", ErrUnknownEventType, e.Type())
	}
	fields := map[string]any{}
	payload, err := json.Marshal(e)
	if err != nil {
		return nil, fmt.Errorf("marshal %s event: %w", e.Type(), err)
	}
	if err := json.Unmarshal(payload, &fields); err != nil {
		return nil, fmt.Errorf("marshal %s event: %w", e.Type(), err)
	}
	fields["type"] = string(e.Type())
	return json.Marshal(fields)
}

// Canonical returns e as it reads back after Marshal and Unmarshal. It
// fails for events that could be written but not read, such as a level
// change with a malformed zone.
func Canonical(e Event) (Event, error) {
	data, err := Marshal(e)
	if err != nil {
		return nil, err
	}
	return Unmarshal(data)
}

// Unmarshal decodes a tagged object, dispatching on its "type" field.
// An unregistered tag fails with ErrUnknownEventType.
func Unmarshal(data []byte) (Event, error) {
	var head struct {
		Type *string `json:"type"`
	}
	if err := json.Unmarshal(data, &head); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformedEvent, err)
	}
	if head.Type == nil {
		return nil, fmt.Errorf("%w: missing type", ErrMalformedEvent)
	}
	decode, ok := registry[Type(*head.Type)]
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrUnknownEventType, *head.Type)
	}
	return decode(data)
}
