// Package database persists finished-game records in PostgreSQL.
package database

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/sirupsen/logrus"

	"github.com/stevehill1981/rachel-sub001/internal/game"
)

// DB wraps a pgx connection pool.
type DB struct {
	pool *pgxpool.Pool
	log  logrus.FieldLogger
}

// Connect opens a pool against url and verifies it with a ping.
func Connect(ctx context.Context, url string, log logrus.FieldLogger) (*DB, error) {
	if log == nil {
		log = logrus.StandardLogger()
	}
	pool, err := pgxpool.New(ctx, url)
	if err != nil {
		return nil, fmt.Errorf("connect postgres: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("ping postgres: %w", err)
	}
	return &DB{pool: pool, log: log}, nil
}

func (d *DB) Close() {
	d.pool.Close()
}

// EnsureSchema creates the games table if it does not exist.
func (d *DB) EnsureSchema(ctx context.Context) error {
	_, err := d.pool.Exec(ctx, `
		CREATE TABLE IF NOT EXISTS games (
			id          UUID PRIMARY KEY,
			players     JSONB NOT NULL,
			winners     TEXT[] NOT NULL,
			finished_at TIMESTAMPTZ NOT NULL
		)`)
	if err != nil {
		return fmt.Errorf("ensure schema: %w", err)
	}
	return nil
}

// SaveGameRecord stores one finished game. Replays of the same game id
// overwrite the earlier row.
func (d *DB) SaveGameRecord(ctx context.Context, rec game.GameRecord) error {
	_, err := d.pool.Exec(ctx, `
		INSERT INTO games (id, players, winners, finished_at)
		VALUES ($1, $2, $3, $4)
		ON CONFLICT (id) DO UPDATE
		SET players = EXCLUDED.players,
		    winners = EXCLUDED.winners,
		    finished_at = EXCLUDED.finished_at`,
		rec.GameID, rec.Players, rec.Winners, rec.FinishedAt)
	if err != nil {
		return fmt.Errorf("save game %s: %w", rec.GameID, err)
	}
	return nil
}

// RecentGames returns up to limit finished games, most recent first.
func (d *DB) RecentGames(ctx context.Context, limit int) ([]game.GameRecord, error) {
	rows, err := d.pool.Query(ctx, `
		SELECT id, players, winners, finished_at
		FROM games
		ORDER BY finished_at DESC
		LIMIT $1`, limit)
	if err != nil {
		return nil, fmt.Errorf("query recent games: %w", err)
	}
	defer rows.Close()

	var out []game.GameRecord
	for rows.Next() {
		var rec game.GameRecord
		if err := rows.Scan(&rec.GameID, &rec.Players, &rec.Winners, &rec.FinishedAt); err != nil {
			return nil, fmt.Errorf("scan game row: %w", err)
		}
		out = append(out, rec)
	}
	return out, rows.Err()
}
