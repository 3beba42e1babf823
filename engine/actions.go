package engine

// checkTurn validates that the game is in progress and playerID is the
// current player.
func (g *GameState) checkTurn(playerID string) error {
	switch g.Status {
	case StatusWaiting:
		return ErrGameNotStarted
	case StatusFinished:
		return ErrGameOver
	}
	cur, ok := g.CurrentPlayer()
	if !ok || cur.ID != playerID {
		return ErrNotYourTurn
	}
	return nil
}

// PlayCard plays one or more cards from the current player's hand, identified
// by hand positions. A multi-card play must be rank-homogeneous and only its
// first card is checked for legality against the current card; special
// effects resolve from the last card played, stacking by count.
//
// Validation is complete before any mutation, so a failed play leaves the
// state untouched.
func (g *GameState) PlayCard(playerID string, indices []int) error {
	if err := g.checkTurn(playerID); err != nil {
		return err
	}
	if g.Nomination == NominationPending {
		return ErrNominationPending
	}
	player, _ := g.CurrentPlayer()

	if len(indices) == 0 {
		return ErrInvalidCardIndex
	}
	seen := make(map[int]bool, len(indices))
	for _, idx := range indices {
		if idx < 0 || idx >= len(player.Hand) || seen[idx] {
			return ErrInvalidCardIndex
		}
		seen[idx] = true
	}

	cards := make([]Card, len(indices))
	for i, idx := range indices {
		cards[i] = player.Hand[idx]
	}
	for _, c := range cards[1:] {
		if c.Rank != cards[0].Rank {
			return ErrInvalidMove
		}
	}
	if !g.isLegalPlay(cards[0]) {
		return ErrInvalidMove
	}

	// Remove played cards from the hand, highest index first so earlier
	// positions stay valid.
	removed := make([]int, len(indices))
	copy(removed, indices)
	for i := 0; i < len(removed); i++ {
		for j := i + 1; j < len(removed); j++ {
			if removed[j] > removed[i] {
				removed[i], removed[j] = removed[j], removed[i]
			}
		}
	}
	for _, idx := range removed {
		player.Hand = append(player.Hand[:idx], player.Hand[idx+1:]...)
	}

	// Discard in play order, last card on top as the new current card.
	discarded := make([]Card, len(cards))
	for i, c := range cards {
		discarded[len(cards)-1-i] = c
	}
	g.Deck.AddToDiscard(discarded)

	g.applyCardEffects(cards)

	if player.HasWon() {
		g.Winners = append(g.Winners, player.ID)
		if g.activeCount() <= 1 {
			g.Status = StatusFinished
			return nil
		}
	}

	if g.Nomination != NominationPending {
		g.advanceTurn()
	}
	return nil
}

// applyCardEffects resolves the special effect of a play. Only the last card
// played determines the effect; repeated cards of the triggering rank stack
// it by count.
func (g *GameState) applyCardEffects(played []Card) {
	last := played[len(played)-1]
	count := len(played)

	if last.Rank != RankAce {
		g.Nomination = NominationNone
	}

	switch {
	case last.Rank == RankTwo:
		g.PendingPickups += 2 * count
		g.PendingPickupType = PickupTwos
	case last.Rank == RankSeven:
		g.PendingSkips += count
	case last.Rank == RankEight:
		// Reversing is a no-op on direction in a two-player game; the eight
		// still consumes the turn like any other card.
		if g.activeCount() > 2 {
			g.reverse(count)
		}
	case last.Rank == RankQueen:
		g.reverse(count)
	case last.IsBlackJack():
		black := 0
		for _, c := range played {
			if c.IsBlackJack() {
				black++
			}
		}
		g.PendingPickups += 5 * black
		g.PendingPickupType = PickupBlackJacks
	case last.IsRedJack():
		if g.PendingPickupType == PickupBlackJacks {
			g.PendingPickups = 0
			g.PendingPickupType = PickupNone
		}
	case last.Rank == RankAce:
		g.Nomination = NominationPending
	}
}

// reverse flips the rotation once per card played.
func (g *GameState) reverse(count int) {
	if count%2 == 1 {
		g.Direction = g.Direction.Reversed()
	}
}

// DrawCard makes the current player draw. With a pickup stack pending the
// player absorbs the whole stack; otherwise they draw a single card. Drawing
// always ends the turn, even when the deck could not supply every card.
func (g *GameState) DrawCard(playerID string) error {
	if err := g.checkTurn(playerID); err != nil {
		return err
	}
	if g.Nomination == NominationPending {
		return ErrNominationPending
	}
	player, _ := g.CurrentPlayer()

	n := 1
	if g.PendingPickups > 0 {
		n = g.PendingPickups
	}
	player.Hand = append(player.Hand, g.Deck.Draw(n, g.rng)...)
	g.PendingPickups = 0
	g.PendingPickupType = PickupNone

	g.advanceTurn()
	return nil
}

// NominateSuit resolves a pending ace nomination. Only the player who played
// the ace may nominate, and only while the nomination is pending.
func (g *GameState) NominateSuit(playerID string, suit Suit) error {
	switch g.Status {
	case StatusWaiting:
		return ErrGameNotStarted
	case StatusFinished:
		return ErrGameOver
	}
	if g.Nomination != NominationPending {
		return ErrNoNominationPending
	}
	cur, ok := g.CurrentPlayer()
	if !ok || cur.ID != playerID {
		return ErrNotYourTurn
	}
	g.Nomination = NominationActive
	g.NominatedSuit = suit
	g.advanceTurn()
	return nil
}

// advanceTurn steps to the next unfinished player in the current direction,
// then consumes pending skips one extra step at a time. Safe to call in any
// state: each skip strictly decrements the counter and winners only grow, so
// the walk always terminates.
func (g *GameState) advanceTurn() {
	if g.activeCount() == 0 {
		return
	}
	g.CurrentPlayerIndex = g.nextActiveIndex(g.CurrentPlayerIndex)
	for g.PendingSkips > 0 {
		g.PendingSkips--
		g.CurrentPlayerIndex = g.nextActiveIndex(g.CurrentPlayerIndex)
	}
}

// nextActiveIndex returns the index of the next player in direction order who
// has not finished, wrapping around the table. Returns from unchanged when no
// other active player exists.
func (g *GameState) nextActiveIndex(from int) int {
	n := len(g.Players)
	if n == 0 {
		return from
	}
	idx := from
	for i := 0; i < n; i++ {
		idx = (idx + int(g.Direction) + n) % n
		if !g.hasFinished(g.Players[idx].ID) {
			return idx
		}
	}
	return from
}
