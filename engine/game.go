// Package engine implements the Rachel card game rules.
//
// Rachel is a shedding game in the Crazy Eights family: players race to empty
// their hands onto a shared discard pile, matching the current card by suit
// or rank. Twos and black jacks build forced-pickup stacks, sevens skip,
// eights and queens reverse, red jacks cancel black-jack stacks and aces
// nominate a suit.
//
// The engine is pure: transitions are synchronous, deterministic for a given
// seed, and atomic — a failed transition returns a typed error and leaves the
// state untouched. All concurrency lives in the session layer that owns a
// GameState value.
package engine

import (
	"math/rand"
	"time"
)

const (
	// MaxPlayers caps the table size.
	MaxPlayers = 8
	// StartingHandSize is the number of cards dealt to each player.
	StartingHandSize = 7
)

// Status is the lifecycle phase of a game.
type Status string

const (
	StatusWaiting  Status = "waiting"
	StatusPlaying  Status = "playing"
	StatusFinished Status = "finished"
)

// Direction is the turn rotation sense. Its value is the index step applied
// when advancing the turn.
type Direction int8

const (
	Clockwise        Direction = 1
	Counterclockwise Direction = -1
)

// Reversed returns the opposite rotation.
func (d Direction) Reversed() Direction { return -d }

// PickupType tags the kind of forced-pickup stack currently pending.
type PickupType uint8

const (
	PickupNone PickupType = iota
	PickupTwos
	PickupBlackJacks
)

// NominationState tracks the ace suit-nomination flow.
type NominationState uint8

const (
	// NominationNone: no nomination in effect.
	NominationNone NominationState = iota
	// NominationPending: an ace was just played; the acting player must
	// nominate a suit before play continues.
	NominationPending
	// NominationActive: a concrete suit constrains legal plays.
	NominationActive
)

// Player is one seat at the table. The hand is exclusively owned by this
// record; cards move between hand and deck only through engine transitions.
type Player struct {
	ID        string `json:"id"`
	Name      string `json:"name"`
	Hand      []Card `json:"hand"`
	IsAI      bool   `json:"isAI"`
	Connected bool   `json:"connected"`
}

// HasWon reports whether the player has shed every card.
func (p *Player) HasWon() bool { return len(p.Hand) == 0 }

// GameState is the aggregate root for a single Rachel game. It is not safe
// for concurrent use; the owning session serializes access.
type GameState struct {
	Players            []*Player       `json:"players"`
	CurrentPlayerIndex int             `json:"currentPlayerIndex"`
	Direction          Direction       `json:"direction"`
	Deck               *Deck           `json:"deck"`
	Nomination         NominationState `json:"nomination"`
	NominatedSuit      Suit            `json:"nominatedSuit"`
	PendingPickups     int             `json:"pendingPickups"`
	PendingPickupType  PickupType      `json:"pendingPickupType"`
	PendingSkips       int             `json:"pendingSkips"`
	Winners            []string        `json:"winners"`
	Status             Status          `json:"status"`

	rng *rand.Rand
}

// NewGame creates an empty waiting game seeded from the clock.
func NewGame() *GameState {
	return NewGameWithSeed(time.Now().UnixNano())
}

// NewGameWithSeed creates an empty waiting game with a deterministic shuffle
// seed, for reproducible deals in tests.
func NewGameWithSeed(seed int64) *GameState {
	return &GameState{
		Direction: Clockwise,
		Status:    StatusWaiting,
		rng:       rand.New(rand.NewSource(seed)),
	}
}

// AddPlayer seats a new player. Legal only while the game is waiting.
func (g *GameState) AddPlayer(id, name string, isAI bool) error {
	if g.Status != StatusWaiting {
		return ErrGameAlreadyStarted
	}
	if len(g.Players) >= MaxPlayers {
		return ErrGameFull
	}
	g.Players = append(g.Players, &Player{
		ID:        id,
		Name:      name,
		IsAI:      isAI,
		Connected: true,
	})
	return nil
}

// Start deals hands from a fresh shuffled deck, flips the first discard and
// begins play with the first-seated player, rotating clockwise.
func (g *GameState) Start() error {
	if g.Status != StatusWaiting {
		return ErrGameAlreadyStarted
	}
	if len(g.Players) < 2 {
		return ErrNotEnoughPlayers
	}

	deck := NewDeck(g.rng)
	for _, p := range g.Players {
		p.Hand = deck.Draw(StartingHandSize, g.rng)
	}
	// The flipped card starts the discard pile with no special effect.
	deck.AddToDiscard(deck.Draw(1, g.rng))

	g.Deck = deck
	g.Status = StatusPlaying
	g.CurrentPlayerIndex = 0
	g.Direction = Clockwise
	return nil
}

// CurrentCard returns the active card plays must match. The second return is
// false before the game has started or on a corrupted state with an empty
// discard pile.
func (g *GameState) CurrentCard() (Card, bool) {
	if g.Deck == nil || len(g.Deck.DiscardPile) == 0 {
		return Card{}, false
	}
	return g.Deck.DiscardPile[0], true
}

// CurrentPlayer returns the player whose turn it is. Defensive: returns
// (nil, false) rather than panicking when the index or state is inconsistent,
// so it stays total over corrupted states.
func (g *GameState) CurrentPlayer() (*Player, bool) {
	if g.CurrentPlayerIndex < 0 || g.CurrentPlayerIndex >= len(g.Players) {
		return nil, false
	}
	return g.Players[g.CurrentPlayerIndex], true
}

// FindPlayer returns the seated player with the given id.
func (g *GameState) FindPlayer(id string) (*Player, bool) {
	for _, p := range g.Players {
		if p.ID == id {
			return p, true
		}
	}
	return nil, false
}

// activeCount is the number of seated players who have not yet finished.
func (g *GameState) activeCount() int {
	n := 0
	for _, p := range g.Players {
		if !g.hasFinished(p.ID) {
			n++
		}
	}
	return n
}

// hasFinished reports whether the player id is already in the winners list.
func (g *GameState) hasFinished(id string) bool {
	for _, w := range g.Winners {
		if w == id {
			return true
		}
	}
	return false
}

// Clone returns a deep copy of the game state. Snapshots handed to observers
// and to the AI are clones; only the owning session mutates the original.
func (g *GameState) Clone() *GameState {
	cp := *g
	cp.Players = make([]*Player, len(g.Players))
	for i, p := range g.Players {
		pc := *p
		pc.Hand = make([]Card, len(p.Hand))
		copy(pc.Hand, p.Hand)
		cp.Players[i] = &pc
	}
	if g.Deck != nil {
		cp.Deck = g.Deck.clone()
	}
	cp.Winners = make([]string, len(g.Winners))
	copy(cp.Winners, g.Winners)
	return &cp
}
