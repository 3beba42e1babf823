package game

import (
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
)

// Store is the session registry: an explicit map from game id to live
// session. Sessions deregister themselves on idle eviction; a background
// sweeper additionally drops any session that closed without deregistering.
type Store struct {
	mu       sync.RWMutex
	sessions map[uuid.UUID]*Session

	defaults Options
	log      logrus.FieldLogger

	stopSweeper chan struct{}
	sweeperOnce sync.Once
}

// NewStore creates a registry whose sessions inherit defaults. The
// per-session OnEvict is always the store's own deregistration.
func NewStore(defaults Options) *Store {
	if defaults.Logger == nil {
		defaults.Logger = logrus.StandardLogger()
	}
	return &Store{
		sessions:    make(map[uuid.UUID]*Session),
		defaults:    defaults,
		log:         defaults.Logger,
		stopSweeper: make(chan struct{}),
	}
}

// Create registers a new session under a fresh game id.
func (st *Store) Create() *Session {
	id := uuid.New()

	opts := st.defaults
	opts.OnEvict = st.Remove

	s := NewSession(id, opts)
	st.mu.Lock()
	st.sessions[id] = s
	st.mu.Unlock()

	st.log.WithField("game_id", id).Info("game session created")
	return s
}

// Get looks up a session by game id.
func (st *Store) Get(id uuid.UUID) (*Session, bool) {
	st.mu.RLock()
	defer st.mu.RUnlock()
	s, ok := st.sessions[id]
	return s, ok
}

// Remove deregisters a session. Unknown ids are a no-op.
func (st *Store) Remove(id uuid.UUID) {
	st.mu.Lock()
	_, ok := st.sessions[id]
	delete(st.sessions, id)
	st.mu.Unlock()
	if ok {
		st.log.WithField("game_id", id).Info("game session removed")
	}
}

// Len returns the number of registered sessions.
func (st *Store) Len() int {
	st.mu.RLock()
	defer st.mu.RUnlock()
	return len(st.sessions)
}

// StartSweeper launches a janitor that periodically drops closed sessions.
func (st *Store) StartSweeper(interval time.Duration) {
	go func() {
		ticker := time.NewTicker(interval)
		defer ticker.Stop()
		for {
			select {
			case <-ticker.C:
				if n := st.sweep(); n > 0 {
					st.log.WithField("count", n).Info("swept closed game sessions")
				}
			case <-st.stopSweeper:
				return
			}
		}
	}()
}

// StopSweeper halts the janitor. Safe to call more than once.
func (st *Store) StopSweeper() {
	st.sweeperOnce.Do(func() { close(st.stopSweeper) })
}

func (st *Store) sweep() int {
	st.mu.Lock()
	defer st.mu.Unlock()
	n := 0
	for id, s := range st.sessions {
		if s.Closed() {
			delete(st.sessions, id)
			n++
		}
	}
	return n
}

// Shutdown closes every session and stops the sweeper.
func (st *Store) Shutdown() {
	st.StopSweeper()
	st.mu.Lock()
	open := make([]*Session, 0, len(st.sessions))
	for _, s := range st.sessions {
		open = append(open, s)
	}
	st.sessions = make(map[uuid.UUID]*Session)
	st.mu.Unlock()

	for _, s := range open {
		s.Close()
	}
}
