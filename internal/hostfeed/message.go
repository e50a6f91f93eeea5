// Package hostfeed reads host lifecycle notifications as JSON lines and
// dispatches them to a Handler.
package hostfeed

import (
	"errors"
	"fmt"

	"github.com/google/uuid"

	"github.com/hyperengineering/invrestore/internal/event"
	"github.com/hyperengineering/invrestore/internal/item"
	"github.com/hyperengineering/invrestore/internal/snapshot"
	"github.com/hyperengineering/invrestore/internal/validation"
)

// Message kinds.
const (
	KindJoin        = "join"
	KindDisconnect  = "disconnect"
	KindDeath       = "death"
	KindLevelChange = "level_change"
	KindUpdate      = "update"
	KindSetTimezone = "set_timezone"
)

var kinds = []string{KindJoin, KindDisconnect, KindDeath, KindLevelChange, KindUpdate, KindSetTimezone}

// ErrInvalidMessage marks a line that decoded but failed validation.
var ErrInvalidMessage = errors.New("invalid host message")

// Message is one line of the feed.
type Message struct {
	Kind         string       `json:"kind"`
	Player       PlayerRecord `json:"player"`
	DeathMessage string       `json:"death_message,omitempty"`
	Origin       string       `json:"origin,omitempty"`
	Timezone     string       `json:"timezone,omitempty"`
}

// PlayerRecord is the owner state carried by every message.
type PlayerRecord struct {
	UUID      string            `json:"uuid"`
	Name      string            `json:"name"`
	Dimension string            `json:"dimension"`
	Position  snapshot.Position `json:"position"`
	Contents  item.Contents     `json:"contents"`
}

// Player is a validated PlayerRecord. It implements snapshot.Owner.
type Player struct {
	id       uuid.UUID
	name     string
	zone     event.Zone
	position snapshot.Position
	contents item.Contents
}

func (p *Player) ID() uuid.UUID               { return p.id }
func (p *Player) Name() string                { return p.name }
func (p *Player) Zone() event.Zone            { return p.zone }
func (p *Player) Position() snapshot.Position { return p.position }
func (p *Player) Items() *item.Contents       { return &p.contents }

// validate checks every field and resolves the player and the origin zone.
func (m *Message) validate() (*Player, event.Zone, error) {
	var c validation.Collector
	c.Add(validation.ValidateEnum("kind", m.Kind, kinds))
	c.Add(validation.ValidateUUID("player.uuid", m.Player.UUID))
	c.Add(validation.ValidatePlayerName("player.name", m.Player.Name))
	if m.Kind == KindDeath {
		c.Add(validation.ValidateNoNullBytes("death_message", m.DeathMessage))
		c.Add(validation.ValidateUTF8("death_message", m.DeathMessage))
	}
	if m.Kind == KindSetTimezone {
		c.Add(validation.ValidateTimezone("timezone", m.Timezone))
	}
	if c.HasErrors() {
		return nil, "", fmt.Errorf("%w: %w", ErrInvalidMessage, c.Err())
	}

	zone, err := event.ParseZone(m.Player.Dimension)
	if err != nil {
		return nil, "", fmt.Errorf("%w: player.dimension: %w", ErrInvalidMessage, err)
	}
	var origin event.Zone
	if m.Kind == KindLevelChange {
		if origin, err = event.ParseZone(m.Origin); err != nil {
			return nil, "", fmt.Errorf("%w: origin: %w", ErrInvalidMessage, err)
		}
	}

	return &Player{
		id:       uuid.MustParse(m.Player.UUID),
		name:     m.Player.Name,
		zone:     zone,
		position: m.Player.Position,
		contents: m.Player.Contents,
	}, origin, nil
}
