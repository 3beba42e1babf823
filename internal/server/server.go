// Package server exposes the game store over HTTP and WebSocket. HTTP
// endpoints create and join games and drive moves; a WebSocket per client
// streams the event feed.
package server

import (
	"encoding/json"
	"errors"
	"net/http"
	"sync"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"github.com/stevehill1981/rachel-sub001/engine"
	"github.com/stevehill1981/rachel-sub001/internal/auth"
	"github.com/stevehill1981/rachel-sub001/internal/game"
	"github.com/stevehill1981/rachel-sub001/internal/stats"
)

// Server routes HTTP and WebSocket traffic to game sessions.
type Server struct {
	store  *game.Store
	broker *Broker
	issuer *auth.Issuer
	stats  *stats.Recorder // nil when Redis is not configured
	log    logrus.FieldLogger
	mux    *http.ServeMux

	mu        sync.RWMutex
	passwords map[uuid.UUID][]byte // per-game join password hashes
}

func New(store *game.Store, broker *Broker, issuer *auth.Issuer, rec *stats.Recorder, log logrus.FieldLogger) *Server {
	if log == nil {
		log = logrus.StandardLogger()
	}
	s := &Server{
		store:     store,
		broker:    broker,
		issuer:    issuer,
		stats:     rec,
		log:       log,
		mux:       http.NewServeMux(),
		passwords: make(map[uuid.UUID][]byte),
	}
	s.routes()
	return s
}

// Handler returns the root HTTP handler.
func (s *Server) Handler() http.Handler { return s.mux }

func (s *Server) routes() {
	s.mux.HandleFunc("GET /health", s.handleHealth)
	s.mux.HandleFunc("POST /games", s.handleCreateGame)
	s.mux.HandleFunc("POST /games/{id}/join", s.handleJoin)
	s.mux.HandleFunc("POST /games/{id}/spectate", s.handleSpectate)
	s.mux.HandleFunc("POST /games/{id}/ai", s.handleAddAI)
	s.mux.HandleFunc("POST /games/{id}/start", s.handleStart)
	s.mux.HandleFunc("POST /games/{id}/play", s.handlePlay)
	s.mux.HandleFunc("POST /games/{id}/draw", s.handleDraw)
	s.mux.HandleFunc("POST /games/{id}/nominate", s.handleNominate)
	s.mux.HandleFunc("GET /games/{id}", s.handleState)
	s.mux.HandleFunc("GET /games/{id}/ws", s.handleWebSocket)
	s.mux.HandleFunc("GET /stats", s.handleStats)
}

type errorResponse struct {
	Error string `json:"error"`
}

func writeJSON(w http.ResponseWriter, code int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, code int, err error) {
	writeJSON(w, code, errorResponse{Error: err.Error()})
}

// writeGameError maps engine and session errors onto HTTP status codes.
func writeGameError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, game.ErrSessionClosed):
		writeError(w, http.StatusGone, err)
	case errors.Is(err, engine.ErrGameFull),
		errors.Is(err, engine.ErrGameAlreadyStarted),
		errors.Is(err, engine.ErrGameNotStarted),
		errors.Is(err, engine.ErrGameOver),
		errors.Is(err, engine.ErrNotEnoughPlayers):
		writeError(w, http.StatusConflict, err)
	case errors.Is(err, engine.ErrPlayerNotFound):
		writeError(w, http.StatusNotFound, err)
	case errors.Is(err, engine.ErrNotYourTurn),
		errors.Is(err, engine.ErrInvalidCardIndex),
		errors.Is(err, engine.ErrInvalidMove),
		errors.Is(err, engine.ErrNoNominationPending),
		errors.Is(err, engine.ErrNominationPending):
		writeError(w, http.StatusUnprocessableEntity, err)
	case errors.Is(err, auth.ErrBadPassword):
		writeError(w, http.StatusForbidden, err)
	default:
		writeError(w, http.StatusInternalServerError, err)
	}
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// session resolves the {id} path segment to a live session.
func (s *Server) session(w http.ResponseWriter, r *http.Request) (*game.Session, uuid.UUID, bool) {
	id, err := uuid.Parse(r.PathValue("id"))
	if err != nil {
		writeError(w, http.StatusBadRequest, errors.New("invalid game id"))
		return nil, uuid.Nil, false
	}
	sess, ok := s.store.Get(id)
	if !ok {
		writeError(w, http.StatusNotFound, errors.New("game not found"))
		return nil, uuid.Nil, false
	}
	return sess, id, true
}

// authorize verifies the bearer token (or ?token=) against gameID.
func (s *Server) authorize(w http.ResponseWriter, r *http.Request, gameID uuid.UUID) (*auth.Claims, bool) {
	token := r.URL.Query().Get("token")
	if token == "" {
		const prefix = "Bearer "
		h := r.Header.Get("Authorization")
		if len(h) > len(prefix) && h[:len(prefix)] == prefix {
			token = h[len(prefix):]
		}
	}
	if token == "" {
		writeError(w, http.StatusUnauthorized, errors.New("missing token"))
		return nil, false
	}
	claims, err := s.issuer.Verify(token, gameID)
	if err != nil {
		writeError(w, http.StatusUnauthorized, err)
		return nil, false
	}
	return claims, true
}

// authorizePlayer is authorize restricted to seated players.
func (s *Server) authorizePlayer(w http.ResponseWriter, r *http.Request, gameID uuid.UUID) (*auth.Claims, bool) {
	claims, ok := s.authorize(w, r, gameID)
	if !ok {
		return nil, false
	}
	if claims.Spectator {
		writeError(w, http.StatusForbidden, errors.New("spectators cannot act"))
		return nil, false
	}
	return claims, true
}

func (s *Server) checkPassword(w http.ResponseWriter, gameID uuid.UUID, password string) bool {
	s.mu.RLock()
	hash := s.passwords[gameID]
	s.mu.RUnlock()
	if hash == nil {
		return true
	}
	if err := auth.CheckPassword(hash, password); err != nil {
		writeGameError(w, err)
		return false
	}
	return true
}

type createGameRequest struct {
	PlayerName string `json:"playerName"`
	Password   string `json:"password,omitempty"`
}

type joinResponse struct {
	GameID   uuid.UUID      `json:"gameId"`
	PlayerID string         `json:"playerId"`
	Token    string         `json:"token"`
	State    *game.Snapshot `json:"state"`
}

func (s *Server) handleCreateGame(w http.ResponseWriter, r *http.Request) {
	var req createGameRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, errors.New("invalid request body"))
		return
	}
	if req.PlayerName == "" {
		writeError(w, http.StatusBadRequest, errors.New("playerName is required"))
		return
	}

	sess := s.store.Create()

	if req.Password != "" {
		hash, err := auth.HashPassword(req.Password)
		if err != nil {
			s.store.Remove(sess.ID)
			sess.Close()
			writeError(w, http.StatusInternalServerError, err)
			return
		}
		s.mu.Lock()
		s.passwords[sess.ID] = hash
		s.mu.Unlock()
	}

	playerID := uuid.NewString()
	snap, err := sess.Join(playerID, req.PlayerName)
	if err != nil {
		writeGameError(w, err)
		return
	}
	token, err := s.issuer.Issue(sess.ID, playerID, false)
	if err != nil {
		writeError(w, http.StatusInternalServerError, err)
		return
	}
	writeJSON(w, http.StatusCreated, joinResponse{
		GameID:   sess.ID,
		PlayerID: playerID,
		Token:    token,
		State:    snap,
	})
}

func (s *Server) handleJoin(w http.ResponseWriter, r *http.Request) {
	sess, gameID, ok := s.session(w, r)
	if !ok {
		return
	}
	var req createGameRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, errors.New("invalid request body"))
		return
	}
	if req.PlayerName == "" {
		writeError(w, http.StatusBadRequest, errors.New("playerName is required"))
		return
	}
	if !s.checkPassword(w, gameID, req.Password) {
		return
	}

	playerID := uuid.NewString()
	snap, err := sess.Join(playerID, req.PlayerName)
	if err != nil {
		writeGameError(w, err)
		return
	}
	token, err := s.issuer.Issue(gameID, playerID, false)
	if err != nil {
		writeError(w, http.StatusInternalServerError, err)
		return
	}
	writeJSON(w, http.StatusOK, joinResponse{
		GameID:   gameID,
		PlayerID: playerID,
		Token:    token,
		State:    snap,
	})
}

func (s *Server) handleSpectate(w http.ResponseWriter, r *http.Request) {
	sess, gameID, ok := s.session(w, r)
	if !ok {
		return
	}
	var req createGameRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, errors.New("invalid request body"))
		return
	}
	if !s.checkPassword(w, gameID, req.Password) {
		return
	}

	spectatorID := uuid.NewString()
	name := req.PlayerName
	if name == "" {
		name = "spectator"
	}
	snap, err := sess.JoinSpectator(spectatorID, name)
	if err != nil {
		writeGameError(w, err)
		return
	}
	token, err := s.issuer.Issue(gameID, spectatorID, true)
	if err != nil {
		writeError(w, http.StatusInternalServerError, err)
		return
	}
	writeJSON(w, http.StatusOK, joinResponse{
		GameID:   gameID,
		PlayerID: spectatorID,
		Token:    token,
		State:    snap,
	})
}

func (s *Server) handleAddAI(w http.ResponseWriter, r *http.Request) {
	sess, gameID, ok := s.session(w, r)
	if !ok {
		return
	}
	if _, ok := s.authorizePlayer(w, r, gameID); !ok {
		return
	}
	var req struct {
		Name string `json:"name"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, errors.New("invalid request body"))
		return
	}
	if req.Name == "" {
		req.Name = "Computer"
	}

	aiID, err := sess.AddAI(req.Name)
	if err != nil {
		writeGameError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"playerId": aiID,
		"state":    sess.State(""),
	})
}

func (s *Server) handleStart(w http.ResponseWriter, r *http.Request) {
	sess, gameID, ok := s.session(w, r)
	if !ok {
		return
	}
	claims, ok := s.authorizePlayer(w, r, gameID)
	if !ok {
		return
	}
	snap, err := sess.Start(claims.PlayerID)
	if err != nil {
		writeGameError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, snap)
}

func (s *Server) handlePlay(w http.ResponseWriter, r *http.Request) {
	sess, gameID, ok := s.session(w, r)
	if !ok {
		return
	}
	claims, ok := s.authorizePlayer(w, r, gameID)
	if !ok {
		return
	}
	var req struct {
		Indices []int `json:"indices"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, errors.New("invalid request body"))
		return
	}
	snap, err := sess.Play(claims.PlayerID, req.Indices)
	if err != nil {
		writeGameError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, snap)
}

func (s *Server) handleDraw(w http.ResponseWriter, r *http.Request) {
	sess, gameID, ok := s.session(w, r)
	if !ok {
		return
	}
	claims, ok := s.authorizePlayer(w, r, gameID)
	if !ok {
		return
	}
	snap, err := sess.Draw(claims.PlayerID)
	if err != nil {
		writeGameError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, snap)
}

func (s *Server) handleNominate(w http.ResponseWriter, r *http.Request) {
	sess, gameID, ok := s.session(w, r)
	if !ok {
		return
	}
	claims, ok := s.authorizePlayer(w, r, gameID)
	if !ok {
		return
	}
	var req struct {
		Suit string `json:"suit"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, errors.New("invalid request body"))
		return
	}
	suit, ok := engine.ParseSuit(req.Suit)
	if !ok {
		writeError(w, http.StatusBadRequest, errors.New("unknown suit"))
		return
	}
	snap, err := sess.Nominate(claims.PlayerID, suit)
	if err != nil {
		writeGameError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, snap)
}

// handleState serves the caller's view of the game. With a valid token the
// snapshot includes that player's hand; without one it is the public view.
func (s *Server) handleState(w http.ResponseWriter, r *http.Request) {
	sess, gameID, ok := s.session(w, r)
	if !ok {
		return
	}
	forPlayer := ""
	if token := r.URL.Query().Get("token"); token != "" {
		claims, err := s.issuer.Verify(token, gameID)
		if err != nil {
			writeError(w, http.StatusUnauthorized, err)
			return
		}
		if !claims.Spectator {
			forPlayer = claims.PlayerID
		}
	}
	writeJSON(w, http.StatusOK, sess.State(forPlayer))
}

func (s *Server) handleStats(w http.ResponseWriter, r *http.Request) {
	if s.stats == nil {
		writeError(w, http.StatusNotFound, errors.New("statistics are not enabled"))
		return
	}
	rep, err := s.stats.Report(r.Context())
	if err != nil {
		writeError(w, http.StatusInternalServerError, err)
		return
	}
	writeJSON(w, http.StatusOK, rep)
}
