package engine

import "math/rand"

// DeckSize is the number of cards in play: 4 suits x 13 ranks, no jokers.
const DeckSize = 52

// Deck owns card circulation: a face-down draw pile and a face-up discard
// pile ordered most-recent-first. DiscardPile[0] is always the active current
// card while a game is in progress and is never reshuffled away.
type Deck struct {
	DrawPile    []Card `json:"drawPile"`
	DiscardPile []Card `json:"discardPile"`
}

// NewDeck builds the full 52-card set and permutes it with rng.
func NewDeck(rng *rand.Rand) *Deck {
	cards := make([]Card, 0, DeckSize)
	for _, s := range Suits {
		for r := RankTwo; r <= RankAce; r++ {
			cards = append(cards, Card{Suit: s, Rank: r})
		}
	}
	rng.Shuffle(len(cards), func(i, j int) {
		cards[i], cards[j] = cards[j], cards[i]
	})
	return &Deck{DrawPile: cards}
}

// Draw removes up to n cards from the front of the draw pile. When the draw
// pile runs short it reshuffles every discard except the most recent one back
// into the draw pile and keeps going. If no reshuffle is possible the result
// is simply shorter than requested; exhaustion is a normal end-of-round
// condition, not an error.
func (d *Deck) Draw(n int, rng *rand.Rand) []Card {
	drawn := make([]Card, 0, n)
	for len(drawn) < n {
		if len(d.DrawPile) == 0 && !d.reshuffle(rng) {
			break
		}
		drawn = append(drawn, d.DrawPile[0])
		d.DrawPile = d.DrawPile[1:]
	}
	return drawn
}

// AddToDiscard prepends cards to the discard pile, most recent first.
func (d *Deck) AddToDiscard(cards []Card) {
	d.DiscardPile = append(cards, d.DiscardPile...)
}

// reshuffle folds DiscardPile[1:] back into the draw pile. Returns false when
// the discard pile holds at most the single active card and nothing can move.
func (d *Deck) reshuffle(rng *rand.Rand) bool {
	if len(d.DiscardPile) <= 1 {
		return false
	}
	recycled := make([]Card, len(d.DiscardPile)-1)
	copy(recycled, d.DiscardPile[1:])
	rng.Shuffle(len(recycled), func(i, j int) {
		recycled[i], recycled[j] = recycled[j], recycled[i]
	})
	d.DrawPile = append(d.DrawPile, recycled...)
	d.DiscardPile = d.DiscardPile[:1]
	return true
}

// clone returns a deep copy of the deck.
func (d *Deck) clone() *Deck {
	cp := &Deck{
		DrawPile:    make([]Card, len(d.DrawPile)),
		DiscardPile: make([]Card, len(d.DiscardPile)),
	}
	copy(cp.DrawPile, d.DrawPile)
	copy(cp.DiscardPile, d.DiscardPile)
	return cp
}
