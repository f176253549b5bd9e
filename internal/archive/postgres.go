package archive

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	_ "github.com/lib/pq"
)

const schema = `
CREATE TABLE IF NOT EXISTS boardsync_games (
	session_id        TEXT PRIMARY KEY,
	user_side         TEXT NOT NULL,
	difficulty        TEXT NOT NULL,
	result            TEXT NOT NULL,
	start_fen         TEXT NOT NULL,
	final_fen         TEXT NOT NULL,
	eco               TEXT NOT NULL DEFAULT '',
	opening           TEXT NOT NULL DEFAULT '',
	moves             JSONB NOT NULL,
	notation          JSONB NOT NULL,
	captured_by_white JSONB NOT NULL,
	captured_by_black JSONB NOT NULL,
	pgn               TEXT NOT NULL,
	saved_at          TIMESTAMPTZ NOT NULL
);
CREATE INDEX IF NOT EXISTS boardsync_games_saved_at_idx ON boardsync_games (saved_at DESC);`

const selectColumns = `
	session_id,
	user_side,
	difficulty,
	result,
	start_fen,
	final_fen,
	eco,
	opening,
	moves,
	notation,
	captured_by_white,
	captured_by_black,
	pgn,
	saved_at`

type Postgres struct {
	db *sql.DB
}

// OpenPostgres connects, pings and creates the table if needed.
func OpenPostgres(ctx context.Context, databaseURL string) (*Postgres, error) {
	if strings.TrimSpace(databaseURL) == "" {
		return nil, errors.New("DATABASE_URL is required")
	}
	db, err := sql.Open("postgres", databaseURL)
	if err != nil {
		return nil, err
	}
	db.SetMaxOpenConns(16)
	db.SetMaxIdleConns(8)
	db.SetConnMaxLifetime(30 * time.Minute)

	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := db.PingContext(pingCtx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("postgres ping: %w", err)
	}
	if _, err := db.ExecContext(ctx, schema); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("create boardsync_games: %w", err)
	}
	return &Postgres{db: db}, nil
}

func (r *Postgres) Close() error {
	if r == nil || r.db == nil {
		return nil
	}
	return r.db.Close()
}

func (r *Postgres) SaveGame(ctx context.Context, g *Game) error {
	if g == nil || strings.TrimSpace(g.SessionID) == "" {
		return ErrInvalidGame
	}
	enc := func(name string, v any) ([]byte, error) {
		raw, err := json.Marshal(v)
		if err != nil {
			return nil, fmt.Errorf("marshal %s: %w", name, err)
		}
		return raw, nil
	}
	moves, err := enc("moves", nonNil(g.Moves))
	if err != nil {
		return err
	}
	notation, err := enc("notation", nonNil(g.Notation))
	if err != nil {
		return err
	}
	byWhite, err := enc("captured_by_white", g.CapturedByWhite)
	if err != nil {
		return err
	}
	byBlack, err := enc("captured_by_black", g.CapturedByBlack)
	if err != nil {
		return err
	}

	const q = `
		INSERT INTO boardsync_games (
			session_id, user_side, difficulty, result, start_fen, final_fen, eco, opening,
			moves, notation, captured_by_white, captured_by_black, pgn, saved_at
		) VALUES (
			$1, $2, $3, $4, $5, $6, $7, $8, $9::jsonb, $10::jsonb, $11::jsonb, $12::jsonb, $13, $14
		) ON CONFLICT (session_id) DO UPDATE SET
			user_side=EXCLUDED.user_side,
			difficulty=EXCLUDED.difficulty,
			result=EXCLUDED.result,
			start_fen=EXCLUDED.start_fen,
			final_fen=EXCLUDED.final_fen,
			eco=EXCLUDED.eco,
			opening=EXCLUDED.opening,
			moves=EXCLUDED.moves,
			notation=EXCLUDED.notation,
			captured_by_white=EXCLUDED.captured_by_white,
			captured_by_black=EXCLUDED.captured_by_black,
			pgn=EXCLUDED.pgn,
			saved_at=EXCLUDED.saved_at`

	_, err = r.db.ExecContext(ctx, q,
		strings.TrimSpace(g.SessionID),
		g.UserSide.String(), g.Difficulty.String(), g.Result,
		g.StartFEN, g.FinalFEN, g.ECO, g.Opening,
		moves, notation, byWhite, byBlack,
		g.PGN, g.SavedAt,
	)
	if err != nil {
		return fmt.Errorf("upsert boardsync game: %w", err)
	}
	return nil
}

func (r *Postgres) GetGame(ctx context.Context, sessionID string) (*Game, error) {
	q := `SELECT` + selectColumns + ` FROM boardsync_games WHERE session_id = $1`
	g, err := scanGame(r.db.QueryRowContext(ctx, q, strings.TrimSpace(sessionID)))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("select boardsync game: %w", err)
	}
	return g, nil
}

func (r *Postgres) RecentGames(ctx context.Context, limit int) ([]*Game, error) {
	if limit <= 0 {
		limit = defaultRecentLimit
	}
	q := `SELECT` + selectColumns + ` FROM boardsync_games ORDER BY saved_at DESC, session_id LIMIT $1`
	rows, err := r.db.QueryContext(ctx, q, limit)
	if err != nil {
		return nil, fmt.Errorf("select boardsync games: %w", err)
	}
	defer rows.Close()

	games := make([]*Game, 0, limit)
	for rows.Next() {
		g, err := scanGame(rows)
		if err != nil {
			return nil, fmt.Errorf("scan boardsync game: %w", err)
		}
		games = append(games, g)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate boardsync games: %w", err)
	}
	return games, nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanGame(row rowScanner) (*Game, error) {
	var (
		g                        Game
		side, level              string
		moves, notation          []byte
		byWhiteJSON, byBlackJSON []byte
	)
	if err := row.Scan(
		&g.SessionID,
		&side,
		&level,
		&g.Result,
		&g.StartFEN,
		&g.FinalFEN,
		&g.ECO,
		&g.Opening,
		&moves,
		&notation,
		&byWhiteJSON,
		&byBlackJSON,
		&g.PGN,
		&g.SavedAt,
	); err != nil {
		return nil, err
	}
	if err := g.UserSide.UnmarshalText([]byte(side)); err != nil {
		return nil, err
	}
	if err := g.Difficulty.UnmarshalText([]byte(level)); err != nil {
		return nil, err
	}
	for _, f := range []struct {
		name string
		raw  []byte
		dst  any
	}{
		{"moves", moves, &g.Moves},
		{"notation", notation, &g.Notation},
		{"captured_by_white", byWhiteJSON, &g.CapturedByWhite},
		{"captured_by_black", byBlackJSON, &g.CapturedByBlack},
	} {
		if err := json.Unmarshal(f.raw, f.dst); err != nil {
			return nil, fmt.Errorf("unmarshal %s: %w", f.name, err)
		}
	}
	return &g, nil
}

func nonNil(s []string) []string {
	if s == nil {
		return []string{}
	}
	return s
}
