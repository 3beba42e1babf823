package engine

import "errors"

// Rule and lifecycle errors returned by the engine. All are recoverable: a
// failed transition leaves the game state untouched.
var (
	ErrNotYourTurn         = errors.New("not your turn")
	ErrInvalidCardIndex    = errors.New("invalid card index")
	ErrInvalidMove         = errors.New("card cannot be played on the current card")
	ErrNoNominationPending = errors.New("no suit nomination pending")
	ErrNominationPending   = errors.New("suit nomination must be resolved first")
	ErrGameAlreadyStarted  = errors.New("game has already started")
	ErrGameNotStarted      = errors.New("game has not started")
	ErrGameOver            = errors.New("game is already finished")
	ErrNotEnoughPlayers    = errors.New("at least two players are required")
	ErrGameFull            = errors.New("game is full")
	ErrPlayerNotFound      = errors.New("player not found")
)
