package game

import (
	"github.com/google/uuid"

	"github.com/stevehill1981/rachel-sub001/engine"
)

// EventType labels a game-channel broadcast.
type EventType string

const (
	EventStateUpdated       EventType = "state_updated"
	EventGameStarted        EventType = "game_started"
	EventCardsPlayed        EventType = "cards_played"
	EventCardsDrawn         EventType = "cards_drawn"
	EventSuitNominated      EventType = "suit_nominated"
	EventPlayerDisconnected EventType = "player_disconnected"
	EventPlayerReconnected  EventType = "player_reconnected"
	EventPlayerWon          EventType = "player_won"
)

// Event is the unit of broadcast on a game's channel. Fields beyond Type are
// populated per event kind; State rides along on state_updated only.
type Event struct {
	Type       EventType     `json:"type"`
	GameID     uuid.UUID     `json:"gameId"`
	PlayerID   string        `json:"playerId,omitempty"`
	PlayerName string        `json:"playerName,omitempty"`
	Cards      []engine.Card `json:"cards,omitempty"`
	Count      int           `json:"count,omitempty"`    // cards_drawn
	Suit       string        `json:"suit,omitempty"`     // suit_nominated
	Position   int           `json:"position,omitempty"` // player_won finish place, 1-based
	State      *Snapshot     `json:"state,omitempty"`
}

// Publisher delivers events to a game's subscribers. Delivery is
// fire-and-forget: implementations must never block the caller, and a slow or
// absent subscriber never affects game correctness.
type Publisher interface {
	Publish(gameID uuid.UUID, ev Event)
}

// PublisherFunc adapts a function to the Publisher interface.
type PublisherFunc func(gameID uuid.UUID, ev Event)

func (f PublisherFunc) Publish(gameID uuid.UUID, ev Event) { f(gameID, ev) }
