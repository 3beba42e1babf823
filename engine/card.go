package engine

import "fmt"

// Suit identifies one of the four card suits.
type Suit uint8

const (
	SuitHearts Suit = iota
	SuitDiamonds
	SuitClubs
	SuitSpades
)

// NumSuits is the number of distinct suits in the deck.
const NumSuits = 4

// Suits lists every suit in precedence order (used for deterministic
// tie-breaking when the AI nominates a suit).
var Suits = [NumSuits]Suit{SuitHearts, SuitDiamonds, SuitClubs, SuitSpades}

func (s Suit) String() string {
	switch s {
	case SuitHearts:
		return "hearts"
	case SuitDiamonds:
		return "diamonds"
	case SuitClubs:
		return "clubs"
	case SuitSpades:
		return "spades"
	}
	return fmt.Sprintf("suit(%d)", uint8(s))
}

// ParseSuit maps a suit name back to its Suit.
func ParseSuit(name string) (Suit, bool) {
	for _, s := range Suits {
		if s.String() == name {
			return s, true
		}
	}
	return 0, false
}

func (s Suit) MarshalText() ([]byte, error) { return []byte(s.String()), nil }

func (s *Suit) UnmarshalText(text []byte) error {
	parsed, ok := ParseSuit(string(text))
	if !ok {
		return fmt.Errorf("unknown suit %q", text)
	}
	*s = parsed
	return nil
}

// IsRed reports whether the suit is hearts or diamonds.
func (s Suit) IsRed() bool { return s == SuitHearts || s == SuitDiamonds }

// Rank identifies a card rank. Numeric ranks carry their face value so that
// Rank(2) through Rank(10) read naturally.
type Rank uint8

const (
	RankTwo   Rank = 2
	RankThree Rank = 3
	RankFour  Rank = 4
	RankFive  Rank = 5
	RankSix   Rank = 6
	RankSeven Rank = 7
	RankEight Rank = 8
	RankNine  Rank = 9
	RankTen   Rank = 10
	RankJack  Rank = 11
	RankQueen Rank = 12
	RankKing  Rank = 13
	RankAce   Rank = 14
)

func (r Rank) String() string {
	switch r {
	case RankJack:
		return "jack"
	case RankQueen:
		return "queen"
	case RankKing:
		return "king"
	case RankAce:
		return "ace"
	}
	if r >= RankTwo && r <= RankTen {
		return fmt.Sprintf("%d", uint8(r))
	}
	return fmt.Sprintf("rank(%d)", uint8(r))
}

// ParseRank maps a rank name ("2".."10", "jack".."ace") back to its Rank.
func ParseRank(name string) (Rank, bool) {
	for r := RankTwo; r <= RankAce; r++ {
		if r.String() == name {
			return r, true
		}
	}
	return 0, false
}

func (r Rank) MarshalText() ([]byte, error) { return []byte(r.String()), nil }

func (r *Rank) UnmarshalText(text []byte) error {
	parsed, ok := ParseRank(string(text))
	if !ok {
		return fmt.Errorf("unknown rank %q", text)
	}
	*r = parsed
	return nil
}

// Card is an immutable card value. Equality is structural; two Cards are the
// same card exactly when suit and rank both match.
type Card struct {
	Suit Suit `json:"suit"`
	Rank Rank `json:"rank"`
}

func (c Card) String() string {
	return fmt.Sprintf("%s of %s", c.Rank, c.Suit)
}

// IsBlackJack reports whether the card is the jack of clubs or spades, the
// aggressive five-card pickup jack.
func (c Card) IsBlackJack() bool {
	return c.Rank == RankJack && !c.Suit.IsRed()
}

// IsRedJack reports whether the card is the jack of hearts or diamonds, which
// cancels a pending black-jack pickup stack.
func (c Card) IsRedJack() bool {
	return c.Rank == RankJack && c.Suit.IsRed()
}
