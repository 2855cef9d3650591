package storage

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/lib/pq"

	"Carte/internal/game/engine"
)

const resultsSchema = `
CREATE TABLE IF NOT EXISTS game_results (
	id          BIGSERIAL PRIMARY KEY,
	game_type   TEXT        NOT NULL,
	game_id     TEXT        NOT NULL,
	winner_seat INTEGER     NOT NULL,
	players     TEXT[]      NOT NULL,
	scores      INTEGER[]   NOT NULL,
	ended_at    TIMESTAMPTZ NOT NULL
)`

// PostgresResults appends one row per finished game.
type PostgresResults struct {
	db *sql.DB
}

func NewPostgresResults(db *sql.DB) *PostgresResults {
	return &PostgresResults{db: db}
}

// EnsureSchema creates the results table when missing.
func (r *PostgresResults) EnsureSchema(ctx context.Context) error {
	if _, err := r.db.ExecContext(ctx, resultsSchema); err != nil {
		return fmt.Errorf("create game_results: %w", err)
	}
	return nil
}

func (r *PostgresResults) Record(ctx context.Context, res engine.Result) error {
	scores := make([]int64, len(res.Scores))
	for i, s := range res.Scores {
		scores[i] = int64(s)
	}
	_, err := r.db.ExecContext(ctx,
		`INSERT INTO game_results (game_type, game_id, winner_seat, players, scores, ended_at)
		 VALUES ($1, $2, $3, $4, $5, $6)`,
		res.GameType, res.GameID, res.Winner, pq.Array(res.Players), pq.Array(scores), res.EndedAt,
	)
	if err != nil {
		return fmt.Errorf("insert result %s/%s: %w", res.GameType, res.GameID, err)
	}
	return nil
}

// Recent returns the latest results of a game type, newest first.
func (r *PostgresResults) Recent(ctx context.Context, gameType string, limit int) ([]engine.Result, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT game_type, game_id, winner_seat, players, scores, ended_at
		 FROM game_results WHERE game_type = $1 ORDER BY ended_at DESC LIMIT $2`,
		gameType, limit,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []engine.Result
	for rows.Next() {
		var (
			res    engine.Result
			scores []int64
		)
		if err := rows.Scan(&res.GameType, &res.GameID, &res.Winner, pq.Array(&res.Players), pq.Array(&scores), &res.EndedAt); err != nil {
			return nil, err
		}
		for _, s := range scores {
			res.Scores = append(res.Scores, int(s))
		}
		out = append(out, res)
	}
	return out, rows.Err()
}
