package engine

import (
	"errors"
	"fmt"
	"testing"
)

// fixture builds a mid-game state with explicit hands and current card,
// bypassing the deal. Player ids are p0, p1, ...
func fixture(current Card, hands ...[]Card) *GameState {
	g := NewGameWithSeed(1)
	for i, h := range hands {
		hand := make([]Card, len(h))
		copy(hand, h)
		g.Players = append(g.Players, &Player{
			ID:        fmt.Sprintf("p%d", i),
			Name:      fmt.Sprintf("Player %d", i),
			Hand:      hand,
			Connected: true,
		})
	}
	g.Status = StatusPlaying
	g.Deck = &Deck{DiscardPile: []Card{current}}
	return g
}

func TestAddPlayer(t *testing.T) {
	g := NewGameWithSeed(1)
	if err := g.AddPlayer("a", "Alice", false); err != nil {
		t.Fatalf("AddPlayer: %v", err)
	}
	if err := g.AddPlayer("b", "Bot", true); err != nil {
		t.Fatalf("AddPlayer: %v", err)
	}
	if len(g.Players) != 2 {
		t.Fatalf("players = %d, want 2", len(g.Players))
	}
	if !g.Players[1].IsAI {
		t.Error("second player should be AI")
	}
	if len(g.Players[0].Hand) != 0 {
		t.Error("players join with empty hands")
	}
}

func TestAddPlayerAfterStart(t *testing.T) {
	g := NewGameWithSeed(1)
	g.AddPlayer("a", "A", false)
	g.AddPlayer("b", "B", false)
	if err := g.Start(); err != nil {
		t.Fatalf("Start: %v", err)
	}
	if err := g.AddPlayer("c", "C", false); !errors.Is(err, ErrGameAlreadyStarted) {
		t.Errorf("AddPlayer after start = %v, want ErrGameAlreadyStarted", err)
	}
}

func TestAddPlayerGameFull(t *testing.T) {
	g := NewGameWithSeed(1)
	for i := 0; i < MaxPlayers; i++ {
		if err := g.AddPlayer(fmt.Sprintf("p%d", i), "P", false); err != nil {
			t.Fatalf("AddPlayer %d: %v", i, err)
		}
	}
	if err := g.AddPlayer("extra", "X", false); !errors.Is(err, ErrGameFull) {
		t.Errorf("AddPlayer at capacity = %v, want ErrGameFull", err)
	}
}

func TestStartNotEnoughPlayers(t *testing.T) {
	g := NewGameWithSeed(1)
	g.AddPlayer("a", "A", false)
	if err := g.Start(); !errors.Is(err, ErrNotEnoughPlayers) {
		t.Errorf("Start with 1 player = %v, want ErrNotEnoughPlayers", err)
	}
}

func TestStartDeals(t *testing.T) {
	g := NewGameWithSeed(99)
	g.AddPlayer("a", "A", false)
	g.AddPlayer("b", "B", false)
	g.AddPlayer("c", "C", false)
	if err := g.Start(); err != nil {
		t.Fatalf("Start: %v", err)
	}

	if g.Status != StatusPlaying {
		t.Errorf("Status = %s, want playing", g.Status)
	}
	if g.CurrentPlayerIndex != 0 {
		t.Errorf("CurrentPlayerIndex = %d, want 0", g.CurrentPlayerIndex)
	}
	if g.Direction != Clockwise {
		t.Errorf("Direction = %d, want clockwise", g.Direction)
	}
	for _, p := range g.Players {
		if len(p.Hand) != StartingHandSize {
			t.Errorf("player %s hand = %d cards, want %d", p.ID, len(p.Hand), StartingHandSize)
		}
	}
	if len(g.Deck.DiscardPile) != 1 {
		t.Errorf("discard pile = %d cards, want 1", len(g.Deck.DiscardPile))
	}
	if _, ok := g.CurrentCard(); !ok {
		t.Error("no current card after start")
	}
	assertConservation(t, g)
}

// assertConservation checks the 52-card invariant: hands + draw pile +
// discard pile partition the full deck with no duplicates.
func assertConservation(t *testing.T, g *GameState) {
	t.Helper()
	seen := make(map[Card]int)
	total := 0
	add := func(cs []Card) {
		for _, c := range cs {
			seen[c]++
			total++
		}
	}
	for _, p := range g.Players {
		add(p.Hand)
	}
	add(g.Deck.DrawPile)
	add(g.Deck.DiscardPile)

	if total != DeckSize {
		t.Errorf("cards in circulation = %d, want %d", total, DeckSize)
	}
	for c, n := range seen {
		if n > 1 {
			t.Errorf("card %v appears %d times", c, n)
		}
	}
}

func TestCardConservationThroughPlay(t *testing.T) {
	g := NewGameWithSeed(3)
	g.AddPlayer("a", "A", false)
	g.AddPlayer("b", "B", false)
	if err := g.Start(); err != nil {
		t.Fatalf("Start: %v", err)
	}

	// Drive a handful of turns: play the first valid card or draw.
	for i := 0; i < 20 && g.Status == StatusPlaying; i++ {
		cur, ok := g.CurrentPlayer()
		if !ok {
			t.Fatal("no current player in playing state")
		}
		if g.Nomination == NominationPending {
			if err := g.NominateSuit(cur.ID, SuitHearts); err != nil {
				t.Fatalf("turn %d: NominateSuit: %v", i, err)
			}
		} else if plays := g.ValidPlays(cur.ID); len(plays) > 0 {
			if err := g.PlayCard(cur.ID, []int{plays[0].Index}); err != nil {
				t.Fatalf("turn %d: PlayCard: %v", i, err)
			}
		} else if err := g.DrawCard(cur.ID); err != nil {
			t.Fatalf("turn %d: DrawCard: %v", i, err)
		}
		assertConservation(t, g)
	}
}

func TestCurrentPlayerDefensive(t *testing.T) {
	g := NewGameWithSeed(1)
	if _, ok := g.CurrentPlayer(); ok {
		t.Error("CurrentPlayer on empty game should report not found")
	}

	g = fixture(Card{SuitHearts, RankFive}, []Card{}, []Card{})
	g.CurrentPlayerIndex = 17
	if _, ok := g.CurrentPlayer(); ok {
		t.Error("CurrentPlayer with out-of-range index should report not found")
	}
}

func TestCurrentCardDefensive(t *testing.T) {
	g := NewGameWithSeed(1)
	if _, ok := g.CurrentCard(); ok {
		t.Error("CurrentCard before start should report not found")
	}
}

func TestCloneIndependence(t *testing.T) {
	g := fixture(Card{SuitHearts, RankFive},
		[]Card{{SuitHearts, RankNine}},
		[]Card{{SuitClubs, RankFour}})
	cp := g.Clone()

	cp.Players[0].Hand[0] = Card{SuitSpades, RankTwo}
	cp.Winners = append(cp.Winners, "p0")
	cp.Deck.DiscardPile[0] = Card{SuitDiamonds, RankKing}

	if g.Players[0].Hand[0] != (Card{SuitHearts, RankNine}) {
		t.Error("clone shares player hands with original")
	}
	if len(g.Winners) != 0 {
		t.Error("clone shares winners with original")
	}
	if g.Deck.DiscardPile[0] != (Card{SuitHearts, RankFive}) {
		t.Error("clone shares deck with original")
	}
}
