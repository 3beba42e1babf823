package game

import (
	"github.com/google/uuid"

	"github.com/stevehill1981/rachel-sub001/engine"
)

// PlayerView is the publicly visible state of one seat: hand contents are
// reduced to a count.
type PlayerView struct {
	ID        string `json:"id"`
	Name      string `json:"name"`
	HandSize  int    `json:"handSize"`
	IsAI      bool   `json:"isAI"`
	Connected bool   `json:"connected"`
	Finished  bool   `json:"finished"`
}

// Snapshot is a read-only view of a game, tailored to one observer: only the
// requesting player's own hand is revealed. Spectators and broadcast events
// get the fully obfuscated form.
type Snapshot struct {
	GameID            uuid.UUID     `json:"gameId"`
	Status            string        `json:"status"`
	Players           []PlayerView  `json:"players"`
	CurrentPlayerID   string        `json:"currentPlayerId,omitempty"`
	Direction         string        `json:"direction"`
	CurrentCard       *engine.Card  `json:"currentCard,omitempty"`
	NominatedSuit     string        `json:"nominatedSuit,omitempty"`
	NominationPending bool          `json:"nominationPending,omitempty"`
	PendingPickups    int           `json:"pendingPickups"`
	PendingSkips      int           `json:"pendingSkips"`
	DrawPileSize      int           `json:"drawPileSize"`
	DiscardPileSize   int           `json:"discardPileSize"`
	Winners           []string      `json:"winners"`
	Hand              []engine.Card `json:"hand,omitempty"` // observer's own hand
}

// buildSnapshot renders the state for forPlayer ("" for a spectator or a
// public broadcast). Assumes the session lock is held.
func buildSnapshot(gameID uuid.UUID, g *engine.GameState, forPlayer string) *Snapshot {
	snap := &Snapshot{
		GameID:            gameID,
		Status:            string(g.Status),
		PendingPickups:    g.PendingPickups,
		PendingSkips:      g.PendingSkips,
		NominationPending: g.Nomination == engine.NominationPending,
		Winners:           append([]string(nil), g.Winners...),
	}

	if g.Direction == engine.Counterclockwise {
		snap.Direction = "counterclockwise"
	} else {
		snap.Direction = "clockwise"
	}
	if cur, ok := g.CurrentPlayer(); ok && g.Status == engine.StatusPlaying {
		snap.CurrentPlayerID = cur.ID
	}
	if c, ok := g.CurrentCard(); ok {
		card := c
		snap.CurrentCard = &card
	}
	if g.Nomination == engine.NominationActive {
		snap.NominatedSuit = g.NominatedSuit.String()
	}
	if g.Deck != nil {
		snap.DrawPileSize = len(g.Deck.DrawPile)
		snap.DiscardPileSize = len(g.Deck.DiscardPile)
	}

	for _, p := range g.Players {
		snap.Players = append(snap.Players, PlayerView{
			ID:        p.ID,
			Name:      p.Name,
			HandSize:  len(p.Hand),
			IsAI:      p.IsAI,
			Connected: p.Connected,
			Finished:  finished(g, p.ID),
		})
		if p.ID == forPlayer {
			snap.Hand = append([]engine.Card(nil), p.Hand...)
		}
	}
	return snap
}

func finished(g *engine.GameState, id string) bool {
	for _, w := range g.Winners {
		if w == id {
			return true
		}
	}
	return false
}
