// Package archive keeps finished or explicitly saved sessions for later
// retrieval as PGN.
package archive

import (
	"context"
	"errors"
	"time"

	"github.com/park285/boardsync/internal/board"
	"github.com/park285/boardsync/internal/chess"
	"github.com/park285/boardsync/internal/chess/openingbook"
	"github.com/park285/boardsync/internal/game"
	"github.com/park285/boardsync/internal/pgn"
)

var ErrInvalidGame = errors.New("archive: game requires a session id")

// Game is one archived session.
type Game struct {
	SessionID       string
	UserSide        board.Side
	Difficulty      chess.Level
	Result          string
	StartFEN        string
	FinalFEN        string
	ECO             string
	Opening         string
	Moves           []string
	Notation        []string
	CapturedByWhite []board.Kind
	CapturedByBlack []board.Kind
	PGN             string
	SavedAt         time.Time
}

// Repository stores archived games. Saving the same session again replaces
// the earlier record. GetGame returns nil, nil when nothing is stored.
type Repository interface {
	SaveGame(ctx context.Context, g *Game) error
	GetGame(ctx context.Context, sessionID string) (*Game, error)
	RecentGames(ctx context.Context, limit int) ([]*Game, error)
}

const defaultRecentLimit = 10

// FromSession builds an archive record from a live session.
func FromSession(sessionID string, g *game.Game, now time.Time) *Game {
	moves := g.Moves()
	notation := g.History()
	_, result, err := pgn.Replay(g.StartPosition(), moves)
	if err != nil {
		result = "*"
	}
	opening, _ := openingbook.Classify(g.StartPosition(), moves)
	text := pgn.Build(pgn.Record{
		Tags:     g.Tags(),
		StartFEN: g.StartPosition(),
		Moves:    moves,
		Notation: notation,
		Result:   result,
		ECO:      true,
	})
	return &Game{
		SessionID:       sessionID,
		UserSide:        g.UserSide(),
		Difficulty:      g.Difficulty(),
		Result:          result,
		StartFEN:        g.StartPosition(),
		FinalFEN:        g.CurrentPosition(),
		ECO:             opening.Code,
		Opening:         opening.Title,
		Moves:           moves,
		Notation:        notation,
		CapturedByWhite: g.Captured(board.White),
		CapturedByBlack: g.Captured(board.Black),
		PGN:             text,
		SavedAt:         now.UTC(),
	}
}

func (g *Game) clone() *Game {
	c := *g
	c.Moves = append([]string(nil), g.Moves...)
	c.Notation = append([]string(nil), g.Notation...)
	c.CapturedByWhite = append([]board.Kind(nil), g.CapturedByWhite...)
	c.CapturedByBlack = append([]board.Kind(nil), g.CapturedByBlack...)
	return &c
}
