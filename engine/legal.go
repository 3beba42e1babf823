package engine

// ValidPlay pairs a playable card with its position in the hand.
type ValidPlay struct {
	Card  Card
	Index int
}

// isLegalPlay reports whether c may be played on the current card under the
// active constraints. Pickup stacks override everything: while twos are
// pending only a two counters, while black jacks are pending only a jack
// (black stacks, red cancels) is playable. An active nomination restricts
// plays to the nominated suit, except aces, which are always legal outside a
// pickup stack.
func (g *GameState) isLegalPlay(c Card) bool {
	switch g.PendingPickupType {
	case PickupTwos:
		return c.Rank == RankTwo
	case PickupBlackJacks:
		return c.Rank == RankJack
	}
	if c.Rank == RankAce {
		return true
	}
	if g.Nomination == NominationActive {
		return c.Suit == g.NominatedSuit
	}
	cur, ok := g.CurrentCard()
	if !ok {
		return false
	}
	return c.Suit == cur.Suit || c.Rank == cur.Rank
}

// ValidPlays returns every (card, hand-index) pair the player could legally
// lead with right now, in hand order. Unknown players yield nil.
func (g *GameState) ValidPlays(playerID string) []ValidPlay {
	p, ok := g.FindPlayer(playerID)
	if !ok {
		return nil
	}
	var plays []ValidPlay
	for i, c := range p.Hand {
		if g.isLegalPlay(c) {
			plays = append(plays, ValidPlay{Card: c, Index: i})
		}
	}
	return plays
}

// HasValidPlay reports whether the player holds at least one legal play.
func (g *GameState) HasValidPlay(playerID string) bool {
	p, ok := g.FindPlayer(playerID)
	if !ok {
		return false
	}
	for _, c := range p.Hand {
		if g.isLegalPlay(c) {
			return true
		}
	}
	return false
}
