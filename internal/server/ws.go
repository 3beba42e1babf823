package server

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"

	"github.com/coder/websocket"
	"github.com/sirupsen/logrus"

	"github.com/stevehill1981/rachel-sub001/engine"
	"github.com/stevehill1981/rachel-sub001/internal/game"
)

// clientCommand is one inbound websocket message.
type clientCommand struct {
	Type    string `json:"type"` // start, play, draw, nominate, state
	Indices []int  `json:"indices,omitempty"`
	Suit    string `json:"suit,omitempty"`
}

// serverMessage is one outbound websocket message. Exactly one of Event,
// State, or Error is set.
type serverMessage struct {
	Type  string         `json:"type"` // event, state, error
	Event *game.Event    `json:"event,omitempty"`
	State *game.Snapshot `json:"state,omitempty"`
	Error string         `json:"error,omitempty"`
}

func (s *Server) handleWebSocket(w http.ResponseWriter, r *http.Request) {
	sess, gameID, ok := s.session(w, r)
	if !ok {
		return
	}
	claims, ok := s.authorize(w, r, gameID)
	if !ok {
		return
	}

	conn, err := websocket.Accept(w, r, &websocket.AcceptOptions{
		InsecureSkipVerify: true,
	})
	if err != nil {
		s.log.WithError(err).Warn("websocket accept failed")
		return
	}
	defer conn.CloseNow()

	log := s.log.WithFields(logrus.Fields{
		"game_id":   gameID,
		"player_id": claims.PlayerID,
	})
	log.Info("websocket connected")

	ctx, cancel := context.WithCancel(r.Context())
	defer cancel()

	if !claims.Spectator {
		sess.Reconnect(claims.PlayerID)
		defer sess.Disconnect(claims.PlayerID)
	}

	events := s.broker.Subscribe(gameID)
	defer s.broker.Unsubscribe(gameID, events)

	// Initial snapshot so the client can render without waiting for an event.
	forPlayer := claims.PlayerID
	if claims.Spectator {
		forPlayer = ""
	}
	if err := writeWS(ctx, conn, serverMessage{Type: "state", State: sess.State(forPlayer)}); err != nil {
		return
	}

	// Event pump: broker -> client.
	go func() {
		defer cancel()
		for {
			select {
			case ev, ok := <-events:
				if !ok {
					return
				}
				if err := writeWS(ctx, conn, serverMessage{Type: "event", Event: &ev}); err != nil {
					return
				}
			case <-ctx.Done():
				return
			}
		}
	}()

	// Command loop: client -> session.
	for {
		_, data, err := conn.Read(ctx)
		if err != nil {
			log.WithError(err).Debug("websocket closed")
			return
		}
		var cmd clientCommand
		if err := json.Unmarshal(data, &cmd); err != nil {
			if werr := writeWS(ctx, conn, serverMessage{Type: "error", Error: "invalid message"}); werr != nil {
				return
			}
			continue
		}
		if err := s.dispatch(ctx, conn, sess, claims.PlayerID, claims.Spectator, forPlayer, cmd); err != nil {
			return
		}
	}
}

// dispatch applies one client command and reports command-level failures back
// over the socket. A non-nil return means the socket itself is broken.
func (s *Server) dispatch(ctx context.Context, conn *websocket.Conn, sess *game.Session, playerID string, spectator bool, forPlayer string, cmd clientCommand) error {
	if cmd.Type == "state" {
		return writeWS(ctx, conn, serverMessage{Type: "state", State: sess.State(forPlayer)})
	}
	if spectator {
		return writeWS(ctx, conn, serverMessage{Type: "error", Error: "spectators cannot act"})
	}

	var err error
	switch cmd.Type {
	case "start":
		_, err = sess.Start(playerID)
	case "play":
		_, err = sess.Play(playerID, cmd.Indices)
	case "draw":
		_, err = sess.Draw(playerID)
	case "nominate":
		suit, ok := engine.ParseSuit(cmd.Suit)
		if !ok {
			err = errors.New("unknown suit")
			break
		}
		_, err = sess.Nominate(playerID, suit)
	default:
		err = errors.New("unknown command type")
	}
	if err != nil {
		return writeWS(ctx, conn, serverMessage{Type: "error", Error: err.Error()})
	}
	// Success is visible through the event feed; no direct reply needed.
	return nil
}

func writeWS(ctx context.Context, conn *websocket.Conn, msg serverMessage) error {
	data, err := json.Marshal(msg)
	if err != nil {
		return err
	}
	return conn.Write(ctx, websocket.MessageText, data)
}
