// Package ai implements the heuristic move selector for computer-controlled
// Rachel players. It is a pure function of (state, player): the same inputs
// always produce the same move, which also makes it usable as a hint engine
// for human players.
package ai

import (
	"errors"

	"github.com/stevehill1981/rachel-sub001/engine"
)

// ErrNotAITurn is returned when the engine is asked to move for a player who
// is not the current player.
var ErrNotAITurn = errors.New("not this player's turn")

// MoveType discriminates the kinds of move the engine can choose.
type MoveType uint8

const (
	MovePlay MoveType = iota
	MoveDraw
	MoveNominate
)

// Move is the action chosen for the acting player.
type Move struct {
	Type      MoveType
	HandIndex int         // valid for MovePlay
	Suit      engine.Suit // valid for MoveNominate
}

// Play priorities. Every legal play is scored and the highest score wins,
// ties broken by the lowest hand index. Aces are held back unless nothing
// else is legal; punishing cards are promoted when every opponent is close
// enough to going out that the punishment bites.
const (
	priorityAce        = 10
	priorityLowJack    = 30
	priorityDefault    = 50
	priorityTactical   = 65
	priorityAggressive = 70
)

// pressureHandSize is the opponent hand size above which punishing cards are
// considered worthwhile.
const pressureHandSize = 3

// ChooseMove selects a move for playerID. Returns ErrNotAITurn unless
// playerID is the current player.
func ChooseMove(g *engine.GameState, playerID string) (Move, error) {
	cur, ok := g.CurrentPlayer()
	if !ok || cur.ID != playerID {
		return Move{}, ErrNotAITurn
	}

	if g.Nomination == engine.NominationPending {
		return Move{Type: MoveNominate, Suit: nominateSuit(cur.Hand)}, nil
	}

	plays := g.ValidPlays(playerID)
	if len(plays) == 0 {
		return Move{Type: MoveDraw}, nil
	}

	pressure := allOpponentsPressured(g, playerID)
	best := plays[0]
	bestScore := scorePlay(g, plays[0].Card, pressure)
	for _, vp := range plays[1:] {
		if s := scorePlay(g, vp.Card, pressure); s > bestScore {
			best, bestScore = vp, s
		}
	}
	return Move{Type: MovePlay, HandIndex: best.Index}, nil
}

// scorePlay assigns the heuristic priority for leading with c.
func scorePlay(g *engine.GameState, c engine.Card, pressure bool) int {
	switch {
	case c.Rank == engine.RankAce:
		return priorityAce
	case c.IsRedJack():
		return priorityLowJack
	case c.IsBlackJack():
		if pressure {
			return priorityAggressive
		}
		return priorityLowJack
	case c.Rank == engine.RankTwo:
		if pressure {
			return priorityAggressive
		}
		return priorityDefault
	case c.Rank == engine.RankSeven:
		if pressure {
			return priorityTactical
		}
		return priorityDefault
	case c.Rank == engine.RankEight:
		// A reverse only has tactical value with three or more players.
		if activePlayers(g) > 2 {
			return priorityTactical
		}
		return priorityDefault
	case c.Rank == engine.RankQueen:
		return priorityTactical
	}
	return priorityDefault
}

// allOpponentsPressured reports whether every unfinished opponent holds more
// than pressureHandSize cards, i.e. a forced pickup or skip hurts all of them.
func allOpponentsPressured(g *engine.GameState, playerID string) bool {
	for _, p := range g.Players {
		if p.ID == playerID || p.HasWon() {
			continue
		}
		if len(p.Hand) <= pressureHandSize {
			return false
		}
	}
	return true
}

// activePlayers counts seated players still holding cards.
func activePlayers(g *engine.GameState) int {
	n := 0
	for _, p := range g.Players {
		if !p.HasWon() {
			n++
		}
	}
	return n
}

// nominateSuit picks the suit most frequent in the hand, breaking ties by the
// fixed suit precedence order. An empty hand nominates the first suit.
func nominateSuit(hand []engine.Card) engine.Suit {
	var counts [engine.NumSuits]int
	for _, c := range hand {
		counts[c.Suit]++
	}
	best := engine.Suits[0]
	for _, s := range engine.Suits[1:] {
		if counts[s] > counts[best] {
			best = s
		}
	}
	return best
}
