// Package game hosts the per-game session actor. A Session owns the
// canonical engine.GameState for one game id: every command locks the
// session, applies a pure engine transition, broadcasts the resulting events
// and, while the player on turn is AI-controlled, synchronously drives AI
// moves until a human is up or the game finishes. The Store maps game ids to
// live sessions.
package game

import (
	"errors"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"github.com/stevehill1981/rachel-sub001/engine"
	"github.com/stevehill1981/rachel-sub001/engine/ai"
)

// Session-level errors. Engine rule errors pass through verbatim.
var (
	ErrSessionClosed = errors.New("game session has ended")
	ErrInternal      = errors.New("internal game error")
)

// maxAISteps caps a single AI cascade. A full all-AI game finishes in far
// fewer moves; the cap only guards against a wedged heuristic.
const maxAISteps = 10000

// GameRecord summarizes a finished game for persistence.
type GameRecord struct {
	GameID     uuid.UUID    `json:"gameId"`
	Players    []PlayerView `json:"players"`
	Winners    []string     `json:"winners"`
	FinishedAt time.Time    `json:"finishedAt"`
}

// OnGameEndFunc is invoked once when a session's game finishes. It runs under
// the session lock and must not call back into the session.
type OnGameEndFunc func(rec GameRecord)

// Options configures a Session.
type Options struct {
	// IdleTimeout evicts the session after a period with no inbound
	// commands. Zero means DefaultIdleTimeout.
	IdleTimeout time.Duration
	// AIDelay pauses between AI moves so humans can follow the cascade.
	AIDelay time.Duration
	// Seed fixes the deck shuffle for reproducible games; zero seeds from
	// the clock.
	Seed      int64
	Publisher Publisher
	OnGameEnd OnGameEndFunc
	// OnEvict runs after the session closes itself, for deregistration.
	OnEvict func(gameID uuid.UUID)
	Logger   logrus.FieldLogger
}

// DefaultIdleTimeout is applied when Options.IdleTimeout is zero.
const DefaultIdleTimeout = 10 * time.Minute

// Session serializes all access to one game. Commands are mutually exclusive
// per game id; the published state after each command reflects exactly the
// commands applied so far, in order.
type Session struct {
	ID uuid.UUID

	mu         sync.Mutex
	state      *engine.GameState
	spectators map[string]string // spectator id -> display name
	closed     bool
	ended      bool

	idleTimeout time.Duration
	idleTimer   *time.Timer
	aiDelay     time.Duration

	publisher Publisher
	onGameEnd OnGameEndFunc
	onEvict   func(uuid.UUID)
	log       logrus.FieldLogger
}

// NewSession creates a waiting game and arms its idle-eviction timer.
func NewSession(id uuid.UUID, opts Options) *Session {
	if opts.IdleTimeout <= 0 {
		opts.IdleTimeout = DefaultIdleTimeout
	}
	if opts.Logger == nil {
		opts.Logger = logrus.StandardLogger()
	}

	var state *engine.GameState
	if opts.Seed != 0 {
		state = engine.NewGameWithSeed(opts.Seed)
	} else {
		state = engine.NewGame()
	}

	s := &Session{
		ID:          id,
		state:       state,
		spectators:  make(map[string]string),
		idleTimeout: opts.IdleTimeout,
		aiDelay:     opts.AIDelay,
		publisher:   opts.Publisher,
		onGameEnd:   opts.OnGameEnd,
		onEvict:     opts.OnEvict,
		log:         opts.Logger.WithField("game_id", id),
	}
	s.idleTimer = time.AfterFunc(s.idleTimeout, s.expire)
	return s
}

// guard recovers a panicking command at the actor boundary, so no input can
// take the session down.
func (s *Session) guard(err *error) {
	if r := recover(); r != nil {
		s.log.WithField("panic", r).Error("game command panicked")
		*err = ErrInternal
	}
}

// touch re-arms the idle timer. Timers are advisory between commands only;
// they never interrupt a command in progress. Assumes lock held.
func (s *Session) touch() {
	if !s.closed {
		s.idleTimer.Reset(s.idleTimeout)
	}
}

// expire closes an idle session and deregisters it.
func (s *Session) expire() {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return
	}
	s.closed = true
	s.mu.Unlock()

	s.log.Info("session idle timeout, evicting")
	if s.onEvict != nil {
		s.onEvict(s.ID)
	}
}

// Close shuts the session down deliberately (server shutdown, tests).
func (s *Session) Close() {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return
	}
	s.closed = true
	s.idleTimer.Stop()
	s.mu.Unlock()

	if s.onEvict != nil {
		s.onEvict(s.ID)
	}
}

// Closed reports whether the session has been evicted or shut down.
func (s *Session) Closed() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.closed
}

func (s *Session) publish(ev Event) {
	if s.publisher == nil {
		return
	}
	ev.GameID = s.ID
	s.publisher.Publish(s.ID, ev)
}

func (s *Session) publishState() {
	s.publish(Event{
		Type:  EventStateUpdated,
		State: buildSnapshot(s.ID, s.state, ""),
	})
}

// Join seats a human player. Fails once the game has started or the table is
// full.
func (s *Session) Join(playerID, name string) (snap *Snapshot, err error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	defer s.guard(&err)
	if s.closed {
		return nil, ErrSessionClosed
	}
	s.touch()

	if err := s.state.AddPlayer(playerID, name, false); err != nil {
		return nil, err
	}
	s.log.WithFields(logrus.Fields{"player_id": playerID, "name": name}).Info("player joined")
	s.publishState()
	return buildSnapshot(s.ID, s.state, playerID), nil
}

// AddAI seats a computer player and returns its generated id. AI ids carry an
// "ai-" prefix so callers can tell them apart.
func (s *Session) AddAI(name string) (id string, err error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	defer s.guard(&err)
	if s.closed {
		return "", ErrSessionClosed
	}
	s.touch()

	id = "ai-" + uuid.NewString()
	if err := s.state.AddPlayer(id, name, true); err != nil {
		return "", err
	}
	s.log.WithFields(logrus.Fields{"player_id": id, "name": name}).Info("AI player added")
	s.publishState()
	return id, nil
}

// JoinSpectator registers a read-only observer. Spectators never appear in
// the player list and may join in any phase.
func (s *Session) JoinSpectator(spectatorID, name string) (snap *Snapshot, err error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	defer s.guard(&err)
	if s.closed {
		return nil, ErrSessionClosed
	}
	s.touch()

	s.spectators[spectatorID] = name
	s.log.WithFields(logrus.Fields{"spectator_id": spectatorID, "name": name}).Info("spectator joined")
	return buildSnapshot(s.ID, s.state, ""), nil
}

// Start begins play. The requester must be seated.
func (s *Session) Start(requesterID string) (snap *Snapshot, err error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	defer s.guard(&err)
	if s.closed {
		return nil, ErrSessionClosed
	}
	s.touch()

	if _, ok := s.state.FindPlayer(requesterID); !ok {
		return nil, engine.ErrPlayerNotFound
	}
	if err := s.state.Start(); err != nil {
		return nil, err
	}
	s.log.WithField("players", len(s.state.Players)).Info("game started")
	s.publish(Event{Type: EventGameStarted})
	s.publishState()
	s.driveAI()
	return buildSnapshot(s.ID, s.state, requesterID), nil
}

// Play applies a card play for playerID. On failure nothing is mutated and
// nothing is broadcast; the engine error is returned verbatim.
func (s *Session) Play(playerID string, indices []int) (snap *Snapshot, err error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	defer s.guard(&err)
	if s.closed {
		return nil, ErrSessionClosed
	}
	s.touch()

	if err := s.applyPlay(playerID, indices); err != nil {
		return nil, err
	}
	s.driveAI()
	return buildSnapshot(s.ID, s.state, playerID), nil
}

// Draw makes playerID draw (absorbing any pending pickup stack).
func (s *Session) Draw(playerID string) (snap *Snapshot, err error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	defer s.guard(&err)
	if s.closed {
		return nil, ErrSessionClosed
	}
	s.touch()

	if err := s.applyDraw(playerID); err != nil {
		return nil, err
	}
	s.driveAI()
	return buildSnapshot(s.ID, s.state, playerID), nil
}

// Nominate resolves a pending ace nomination.
func (s *Session) Nominate(playerID string, suit engine.Suit) (snap *Snapshot, err error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	defer s.guard(&err)
	if s.closed {
		return nil, ErrSessionClosed
	}
	s.touch()

	if err := s.applyNominate(playerID, suit); err != nil {
		return nil, err
	}
	s.driveAI()
	return buildSnapshot(s.ID, s.state, playerID), nil
}

// Disconnect marks a player as disconnected. Unknown players are a no-op, not
// an error.
func (s *Session) Disconnect(playerID string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return
	}
	s.touch()

	p, ok := s.state.FindPlayer(playerID)
	if !ok || !p.Connected {
		return
	}
	p.Connected = false
	s.log.WithField("player_id", playerID).Info("player disconnected")
	s.publish(Event{Type: EventPlayerDisconnected, PlayerID: p.ID, PlayerName: p.Name})
	s.publishState()
}

// Reconnect marks a player as connected again. Unknown players are a no-op.
func (s *Session) Reconnect(playerID string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return
	}
	s.touch()

	p, ok := s.state.FindPlayer(playerID)
	if !ok || p.Connected {
		return
	}
	p.Connected = true
	s.log.WithField("player_id", playerID).Info("player reconnected")
	s.publish(Event{Type: EventPlayerReconnected, PlayerID: p.ID, PlayerName: p.Name})
	s.publishState()
}

// State returns a snapshot from forPlayer's perspective ("" for spectators).
func (s *Session) State(forPlayer string) *Snapshot {
	s.mu.Lock()
	defer s.mu.Unlock()
	return buildSnapshot(s.ID, s.state, forPlayer)
}

// ---------------------------------------------------------------------------
// Transition helpers. All assume the lock is held.
// ---------------------------------------------------------------------------

// applyPlay runs a play transition and broadcasts its events.
func (s *Session) applyPlay(playerID string, indices []int) error {
	winnersBefore := len(s.state.Winners)
	if err := s.state.PlayCard(playerID, indices); err != nil {
		return err
	}
	p, _ := s.state.FindPlayer(playerID)

	// The just-played cards sit on top of the discard pile, most recent
	// first; restore play order for the event.
	n := len(indices)
	played := make([]engine.Card, n)
	for i := 0; i < n; i++ {
		played[n-1-i] = s.state.Deck.DiscardPile[i]
	}

	s.publish(Event{Type: EventCardsPlayed, PlayerID: p.ID, PlayerName: p.Name, Cards: played})
	s.afterTransition(p, winnersBefore)
	return nil
}

func (s *Session) applyDraw(playerID string) error {
	p, ok := s.state.FindPlayer(playerID)
	var before int
	if ok {
		before = len(p.Hand)
	}
	if err := s.state.DrawCard(playerID); err != nil {
		return err
	}
	s.publish(Event{Type: EventCardsDrawn, PlayerID: p.ID, PlayerName: p.Name, Count: len(p.Hand) - before})
	s.afterTransition(p, len(s.state.Winners))
	return nil
}

func (s *Session) applyNominate(playerID string, suit engine.Suit) error {
	if err := s.state.NominateSuit(playerID, suit); err != nil {
		return err
	}
	p, _ := s.state.FindPlayer(playerID)
	s.publish(Event{Type: EventSuitNominated, PlayerID: p.ID, PlayerName: p.Name, Suit: suit.String()})
	s.afterTransition(p, len(s.state.Winners))
	return nil
}

// afterTransition publishes win/finish events and the updated state after a
// successful transition by player p.
func (s *Session) afterTransition(p *engine.Player, winnersBefore int) {
	if len(s.state.Winners) > winnersBefore {
		s.publish(Event{
			Type:       EventPlayerWon,
			PlayerID:   p.ID,
			PlayerName: p.Name,
			Position:   len(s.state.Winners),
		})
		s.log.WithFields(logrus.Fields{"player_id": p.ID, "position": len(s.state.Winners)}).Info("player finished")
	}
	s.publishState()

	if s.state.Status == engine.StatusFinished && !s.ended {
		s.ended = true
		s.log.WithField("winners", s.state.Winners).Info("game finished")
		if s.onGameEnd != nil {
			s.onGameEnd(GameRecord{
				GameID:     s.ID,
				Players:    buildSnapshot(s.ID, s.state, "").Players,
				Winners:    append([]string(nil), s.state.Winners...),
				FinishedAt: time.Now(),
			})
		}
	}
}

// driveAI synchronously plays out AI turns until a human is on turn or the
// game finishes. It runs as a loop inside the current command slot rather
// than re-entering the session's own command surface, so the single-writer
// lock is never contended against itself.
func (s *Session) driveAI() {
	for steps := 0; steps < maxAISteps; steps++ {
		if s.state.Status != engine.StatusPlaying {
			return
		}
		cur, ok := s.state.CurrentPlayer()
		if !ok || !cur.IsAI {
			return
		}
		if s.aiDelay > 0 {
			time.Sleep(s.aiDelay)
		}

		mv, err := ai.ChooseMove(s.state, cur.ID)
		if err != nil {
			s.log.WithError(err).WithField("player_id", cur.ID).Error("AI move selection failed")
			return
		}

		switch mv.Type {
		case ai.MovePlay:
			err = s.applyPlay(cur.ID, []int{mv.HandIndex})
		case ai.MoveDraw:
			err = s.applyDraw(cur.ID)
		case ai.MoveNominate:
			err = s.applyNominate(cur.ID, mv.Suit)
		}
		if err != nil {
			s.log.WithError(err).WithField("player_id", cur.ID).Error("AI move rejected by engine")
			return
		}
	}
	s.log.Warn("AI cascade exceeded step cap, yielding")
}
