// Package stats aggregates game statistics in Redis. The recorder consumes
// the same event stream the websocket subscribers see, so game code never
// knows Redis exists.
package stats

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus"

	"github.com/stevehill1981/rachel-sub001/internal/game"
)

const (
	keyGamesStarted  = "rachel:stats:games_started"
	keyGamesFinished = "rachel:stats:games_finished"
	keyCardsPlayed   = "rachel:stats:cards_played"
	keyCardsDrawn    = "rachel:stats:cards_drawn"
	keyNominations   = "rachel:stats:nominations"
	keyWins          = "rachel:stats:wins"
	keyFinishedSet   = "rachel:stats:finished_games"

	eventLogPrefix = "rachel:stats:events:"
	eventLogCap    = 1000

	recordTimeout = 2 * time.Second
)

// Recorder writes statistics to Redis. It implements game.Publisher; writes
// happen on their own goroutine so a slow Redis never stalls a game.
type Recorder struct {
	rdb *redis.Client
	log logrus.FieldLogger
}

func NewRecorder(rdb *redis.Client, log logrus.FieldLogger) *Recorder {
	if log == nil {
		log = logrus.StandardLogger()
	}
	return &Recorder{rdb: rdb, log: log}
}

// actionRecord is the per-game event log entry.
type actionRecord struct {
	Type      string `json:"type"`
	PlayerID  string `json:"playerId,omitempty"`
	Count     int    `json:"count,omitempty"`
	Suit      string `json:"suit,omitempty"`
	Position  int    `json:"position,omitempty"`
	Timestamp int64  `json:"ts"`
}

// Publish implements game.Publisher. A nil Recorder, or one without a
// Redis client, drops the event.
func (r *Recorder) Publish(gameID uuid.UUID, ev game.Event) {
	if r == nil || r.rdb == nil {
		return
	}
	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), recordTimeout)
		defer cancel()
		if err := r.record(ctx, gameID, ev); err != nil {
			r.log.WithError(err).WithFields(logrus.Fields{
				"game_id": gameID,
				"type":    ev.Type,
			}).Warn("failed to record game statistics")
		}
	}()
}

func (r *Recorder) record(ctx context.Context, gameID uuid.UUID, ev game.Event) error {
	switch ev.Type {
	case game.EventGameStarted:
		if err := r.rdb.Incr(ctx, keyGamesStarted).Err(); err != nil {
			return err
		}
	case game.EventCardsPlayed:
		if err := r.rdb.IncrBy(ctx, keyCardsPlayed, int64(len(ev.Cards))).Err(); err != nil {
			return err
		}
	case game.EventCardsDrawn:
		if err := r.rdb.IncrBy(ctx, keyCardsDrawn, int64(ev.Count)).Err(); err != nil {
			return err
		}
	case game.EventSuitNominated:
		if err := r.rdb.Incr(ctx, keyNominations).Err(); err != nil {
			return err
		}
	case game.EventPlayerWon:
		if ev.Position == 1 {
			if err := r.rdb.ZIncrBy(ctx, keyWins, 1, ev.PlayerID).Err(); err != nil {
				return err
			}
		}
	case game.EventStateUpdated:
		if ev.State != nil && ev.State.Status == "finished" {
			added, err := r.rdb.SAdd(ctx, keyFinishedSet, gameID.String()).Result()
			if err != nil {
				return err
			}
			if added > 0 {
				if err := r.rdb.Incr(ctx, keyGamesFinished).Err(); err != nil {
					return err
				}
			}
		}
		// Full snapshots are not worth an event log entry.
		return nil
	}
	return r.appendEventLog(ctx, gameID, ev)
}

// appendEventLog keeps a capped per-game action history.
func (r *Recorder) appendEventLog(ctx context.Context, gameID uuid.UUID, ev game.Event) error {
	rec := actionRecord{
		Type:      string(ev.Type),
		PlayerID:  ev.PlayerID,
		Count:     ev.Count,
		Suit:      ev.Suit,
		Position:  ev.Position,
		Timestamp: time.Now().UnixMilli(),
	}
	data, err := json.Marshal(rec)
	if err != nil {
		return fmt.Errorf("marshal action record: %w", err)
	}

	key := eventLogPrefix + gameID.String()
	pipe := r.rdb.Pipeline()
	pipe.LPush(ctx, key, data)
	pipe.LTrim(ctx, key, 0, eventLogCap-1)
	_, err = pipe.Exec(ctx)
	return err
}

// WinCount is one leaderboard row.
type WinCount struct {
	PlayerID string `json:"playerId"`
	Wins     int64  `json:"wins"`
}

// Report is a point-in-time view of the aggregate counters.
type Report struct {
	GamesStarted  int64      `json:"gamesStarted"`
	GamesFinished int64      `json:"gamesFinished"`
	CardsPlayed   int64      `json:"cardsPlayed"`
	CardsDrawn    int64      `json:"cardsDrawn"`
	Nominations   int64      `json:"nominations"`
	TopWinners    []WinCount `json:"topWinners"`
}

// Report reads the aggregate counters and the top of the leaderboard.
func (r *Recorder) Report(ctx context.Context) (*Report, error) {
	rep := &Report{}

	counters := []struct {
		key string
		dst *int64
	}{
		{keyGamesStarted, &rep.GamesStarted},
		{keyGamesFinished, &rep.GamesFinished},
		{keyCardsPlayed, &rep.CardsPlayed},
		{keyCardsDrawn, &rep.CardsDrawn},
		{keyNominations, &rep.Nominations},
	}
	for _, c := range counters {
		v, err := r.rdb.Get(ctx, c.key).Int64()
		if err != nil && err != redis.Nil {
			return nil, fmt.Errorf("read %s: %w", c.key, err)
		}
		*c.dst = v
	}

	rows, err := r.rdb.ZRevRangeWithScores(ctx, keyWins, 0, 9).Result()
	if err != nil {
		return nil, fmt.Errorf("read leaderboard: %w", err)
	}
	for _, row := range rows {
		id, _ := row.Member.(string)
		rep.TopWinners = append(rep.TopWinners, WinCount{PlayerID: id, Wins: int64(row.Score)})
	}
	return rep, nil
}
