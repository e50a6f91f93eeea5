// Package event defines the closed set of lifecycle events that trigger a
// snapshot, and the tag registry used to encode, decode and filter them.
package event

// Type is the stable tag of an event variant. It is written to the
// persisted file and accepted as a filter by the query commands.
type Type string

// Registered event types.
const (
	TypeJoin        Type = "join"
	TypeDisconnect  Type = "disconnect"
	TypeDeath       Type = "death"
	TypeLevelChange Type = "level_change"
	TypeAutoSave    Type = "auto_save"
)

// Event is one variant of the snapshot trigger taxonomy.
type Event interface {
	// Type returns the variant's registry tag.
	Type() Type
	// Icon returns a short glyph for list rendering.
	Icon() string
	// Verb returns the phrase shown after the owner's name.
	Verb() string
	// Detail returns variant-specific text for hover or detail views,
	// or "" when the variant carries no payload.
	Detail() string
}

// Join is recorded when an owner enters a session.
type Join struct{}

// Disconnect is recorded when an owner leaves a session.
type Disconnect struct{}

// AutoSave is recorded by the periodic auto-save capture.
type AutoSave struct{}

// Death is recorded when an owner dies.
type Death struct {
	Message string `json:"death_message"`
}

// LevelChange is recorded after an owner moves between zones.
type LevelChange struct {
	Origin      Zone `json:"origin"`
	Destination Zone `json:"destination"`
}

func (Join) Type() Type     { return TypeJoin }
func (Join) Icon() string   { return "▶" }
func (Join) Verb() string   { return "joined" }
func (Join) Detail() string { return "" }

func (Disconnect) Type() Type     { return TypeDisconnect }
func (Disconnect) Icon() string   { return "◀" }
func (Disconnect) Verb() string   { return "left" }
func (Disconnect) Detail() string { return "" }

func (AutoSave) Type() Type     { return TypeAutoSave }
func (AutoSave) Icon() string   { return "⌚" }
func (AutoSave) Verb() string   { return "auto-saved" }
func (AutoSave) Detail() string { return "" }

func (Death) Type() Type       { return TypeDeath }
func (Death) Icon() string     { return "☠" }
func (Death) Verb() string     { return "died" }
func (e Death) Detail() string { return e.Message }

func (LevelChange) Type() Type   { return TypeLevelChange }
func (LevelChange) Icon() string { return "🔀" }
func (LevelChange) Verb() string { return "traveled" }

// Detail renders the transition as "origin ➡ destination".
func (e LevelChange) Detail() string {
	return e.Origin.Display() + " ➡ " + e.Destination.Display()
}
