package game

import (
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/stevehill1981/rachel-sub001/engine"
)

// eventRecorder captures published events for assertions.
type eventRecorder struct {
	mu     sync.Mutex
	events []Event
}

func (r *eventRecorder) Publish(_ uuid.UUID, ev Event) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, ev)
}

func (r *eventRecorder) count() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.events)
}

func (r *eventRecorder) byType(t EventType) []Event {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []Event
	for _, ev := range r.events {
		if ev.Type == t {
			out = append(out, ev)
		}
	}
	return out
}

func newTestSession(t *testing.T, opts Options) (*Session, *eventRecorder) {
	t.Helper()
	rec := &eventRecorder{}
	opts.Publisher = rec
	if opts.Seed == 0 {
		opts.Seed = 42
	}
	s := NewSession(uuid.New(), opts)
	t.Cleanup(s.Close)
	return s, rec
}

func TestJoinAndStart(t *testing.T) {
	s, rec := newTestSession(t, Options{})

	snap, err := s.Join("alice", "Alice")
	require.NoError(t, err)
	assert.Equal(t, "waiting", snap.Status)

	_, err = s.Join("bob", "Bob")
	require.NoError(t, err)

	snap, err = s.Start("alice")
	require.NoError(t, err)
	assert.Equal(t, "playing", snap.Status)
	assert.Len(t, snap.Players, 2)
	assert.Len(t, snap.Hand, engine.StartingHandSize)

	require.Len(t, rec.byType(EventGameStarted), 1)
	assert.NotEmpty(t, rec.byType(EventStateUpdated))
}

func TestStartRequiresSeatedRequester(t *testing.T) {
	s, _ := newTestSession(t, Options{})
	_, err := s.Join("alice", "Alice")
	require.NoError(t, err)
	_, err = s.Join("bob", "Bob")
	require.NoError(t, err)

	_, err = s.Start("mallory")
	assert.ErrorIs(t, err, engine.ErrPlayerNotFound)
}

func TestJoinAfterStartRejected(t *testing.T) {
	s, rec := newTestSession(t, Options{})
	_, err := s.Join("alice", "Alice")
	require.NoError(t, err)
	_, err = s.Join("bob", "Bob")
	require.NoError(t, err)
	_, err = s.Start("alice")
	require.NoError(t, err)

	before := rec.count()
	_, err = s.Join("carol", "Carol")
	assert.ErrorIs(t, err, engine.ErrGameAlreadyStarted)
	assert.Equal(t, before, rec.count(), "failed command must not broadcast")
}

func TestJoinGameFull(t *testing.T) {
	s, _ := newTestSession(t, Options{})
	for i := 0; i < engine.MaxPlayers; i++ {
		_, err := s.Join(uuid.NewString(), "P")
		require.NoError(t, err)
	}
	_, err := s.Join("late", "Late")
	assert.ErrorIs(t, err, engine.ErrGameFull)
}

func TestAddAIGeneratesPrefixedID(t *testing.T) {
	s, _ := newTestSession(t, Options{})
	id, err := s.AddAI("Robo")
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(id, "ai-"), "AI id %q should carry the ai- prefix", id)

	snap := s.State("")
	require.Len(t, snap.Players, 1)
	assert.True(t, snap.Players[0].IsAI)
}

func TestErrorsForwardedVerbatim(t *testing.T) {
	s, rec := newTestSession(t, Options{})
	_, err := s.Join("alice", "Alice")
	require.NoError(t, err)
	_, err = s.Join("bob", "Bob")
	require.NoError(t, err)
	_, err = s.Start("alice")
	require.NoError(t, err)

	snap := s.State("")
	waiting := "alice"
	if snap.CurrentPlayerID == "alice" {
		waiting = "bob"
	}

	before := rec.count()
	_, err = s.Play(waiting, []int{0})
	assert.ErrorIs(t, err, engine.ErrNotYourTurn)
	_, err = s.Draw(waiting)
	assert.ErrorIs(t, err, engine.ErrNotYourTurn)
	_, err = s.Play(snap.CurrentPlayerID, []int{99})
	assert.ErrorIs(t, err, engine.ErrInvalidCardIndex)
	assert.Equal(t, before, rec.count(), "failed commands must not broadcast")
}

// TestAICascadeReturnsToHuman drives a human move and verifies the session
// synchronously plays out AI turns before returning.
func TestAICascadeReturnsToHuman(t *testing.T) {
	s, rec := newTestSession(t, Options{Seed: 7})
	_, err := s.Join("human", "Human")
	require.NoError(t, err)
	_, err = s.AddAI("Robo 1")
	require.NoError(t, err)
	_, err = s.AddAI("Robo 2")
	require.NoError(t, err)

	snap, err := s.Start("human")
	require.NoError(t, err)

	// Advance until a few human commands have round-tripped.
	for i := 0; i < 5 && snap.Status == "playing"; i++ {
		require.Equal(t, "human", snap.CurrentPlayerID,
			"after a command returns, either the human is on turn or the game is over")
		if snap.NominationPending {
			snap, err = s.Nominate("human", engine.SuitHearts)
		} else {
			snap, err = s.Draw("human")
		}
		require.NoError(t, err)
	}

	aiActed := false
	for _, ev := range append(rec.byType(EventCardsPlayed), rec.byType(EventCardsDrawn)...) {
		if strings.HasPrefix(ev.PlayerID, "ai-") {
			aiActed = true
		}
	}
	assert.True(t, aiActed, "AI players should have acted inside the command slot")
}

// TestAllAIGameRunsToCompletion starts a table of two AIs: the start command
// itself must drive the game to the finished state.
func TestAllAIGameRunsToCompletion(t *testing.T) {
	ended := make(chan GameRecord, 1)
	s, rec := newTestSession(t, Options{
		Seed:      99,
		OnGameEnd: func(rec GameRecord) { ended <- rec },
	})
	first, err := s.AddAI("Robo 1")
	require.NoError(t, err)
	_, err = s.AddAI("Robo 2")
	require.NoError(t, err)

	snap, err := s.Start(first)
	require.NoError(t, err)
	require.Equal(t, "finished", snap.Status)

	select {
	case record := <-ended:
		assert.NotEmpty(t, record.Winners)
	default:
		t.Fatal("OnGameEnd was not invoked")
	}

	wins := rec.byType(EventPlayerWon)
	require.NotEmpty(t, wins)
	assert.Equal(t, 1, wins[0].Position)
}

func TestDisconnectReconnect(t *testing.T) {
	s, rec := newTestSession(t, Options{})
	_, err := s.Join("alice", "Alice")
	require.NoError(t, err)

	s.Disconnect("alice")
	require.Len(t, rec.byType(EventPlayerDisconnected), 1)
	snap := s.State("")
	assert.False(t, snap.Players[0].Connected)

	// Double disconnect is a no-op.
	s.Disconnect("alice")
	assert.Len(t, rec.byType(EventPlayerDisconnected), 1)

	s.Reconnect("alice")
	require.Len(t, rec.byType(EventPlayerReconnected), 1)
	assert.True(t, s.State("").Players[0].Connected)
}

func TestDisconnectUnknownPlayerIsNoop(t *testing.T) {
	s, rec := newTestSession(t, Options{})
	before := rec.count()
	s.Disconnect("ghost")
	s.Reconnect("ghost")
	assert.Equal(t, before, rec.count())
}

func TestSpectatorView(t *testing.T) {
	s, _ := newTestSession(t, Options{})
	_, err := s.Join("alice", "Alice")
	require.NoError(t, err)
	_, err = s.Join("bob", "Bob")
	require.NoError(t, err)
	_, err = s.Start("alice")
	require.NoError(t, err)

	snap, err := s.JoinSpectator("watcher", "Watcher")
	require.NoError(t, err)
	assert.Len(t, snap.Players, 2, "spectator must not appear in the player list")
	assert.Empty(t, snap.Hand, "spectators see no hand")
	for _, pv := range snap.Players {
		assert.Positive(t, pv.HandSize)
	}
}

func TestSnapshotHidesOtherHands(t *testing.T) {
	s, _ := newTestSession(t, Options{})
	_, err := s.Join("alice", "Alice")
	require.NoError(t, err)
	_, err = s.Join("bob", "Bob")
	require.NoError(t, err)
	_, err = s.Start("alice")
	require.NoError(t, err)

	snap := s.State("alice")
	assert.Len(t, snap.Hand, engine.StartingHandSize)
	for _, pv := range snap.Players {
		assert.Equal(t, engine.StartingHandSize, pv.HandSize)
	}
}

func TestIdleEviction(t *testing.T) {
	evicted := make(chan uuid.UUID, 1)
	rec := &eventRecorder{}
	s := NewSession(uuid.New(), Options{
		IdleTimeout: 50 * time.Millisecond,
		Publisher:   rec,
		OnEvict:     func(id uuid.UUID) { evicted <- id },
	})
	defer s.Close()

	select {
	case id := <-evicted:
		assert.Equal(t, s.ID, id)
	case <-time.After(2 * time.Second):
		t.Fatal("session was not evicted after idle timeout")
	}
	assert.True(t, s.Closed())

	_, err := s.Join("late", "Late")
	assert.ErrorIs(t, err, ErrSessionClosed)
}

func TestCommandsResetIdleTimer(t *testing.T) {
	evicted := make(chan uuid.UUID, 1)
	rec := &eventRecorder{}
	s := NewSession(uuid.New(), Options{
		IdleTimeout: 120 * time.Millisecond,
		Publisher:   rec,
		OnEvict:     func(id uuid.UUID) { evicted <- id },
	})
	defer s.Close()

	// Keep the session busy past the original deadline.
	for i := 0; i < 4; i++ {
		time.Sleep(60 * time.Millisecond)
		_, err := s.Join(uuid.NewString(), "P")
		require.NoError(t, err)
	}
	select {
	case <-evicted:
		t.Fatal("active session must not be evicted")
	default:
	}

	select {
	case <-evicted:
	case <-time.After(2 * time.Second):
		t.Fatal("session was not evicted once commands stopped")
	}
}

// TestCommandSerialization hammers a session from many goroutines; the
// per-command lock plus engine invariants should keep the state coherent.
func TestCommandSerialization(t *testing.T) {
	s, _ := newTestSession(t, Options{})
	_, err := s.Join("alice", "Alice")
	require.NoError(t, err)
	_, err = s.Join("bob", "Bob")
	require.NoError(t, err)
	_, err = s.Start("alice")
	require.NoError(t, err)

	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := 0; j < 50; j++ {
				snap := s.State("")
				if snap.Status != "playing" {
					return
				}
				cur := snap.CurrentPlayerID
				if snap.NominationPending {
					s.Nominate(cur, engine.SuitClubs)
				} else {
					s.Draw(cur)
				}
			}
		}()
	}
	wg.Wait()

	snap := s.State("")
	total := snap.DrawPileSize + snap.DiscardPileSize
	for _, pv := range snap.Players {
		total += pv.HandSize
	}
	assert.Equal(t, engine.DeckSize, total, "card conservation must survive concurrent access")
}
