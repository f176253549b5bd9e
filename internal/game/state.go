package game

import (
	"context"
	"fmt"
	"maps"

	"go.uber.org/zap"

	"github.com/park285/boardsync/internal/board"
	"github.com/park285/boardsync/internal/chess"
)

// State is the persistable form of a Game.
type State struct {
	FEN           string            `json:"fen"`
	PreviousFEN   string            `json:"previous_fen,omitempty"`
	StartFEN      string            `json:"start_fen"`
	UserSide      board.Side        `json:"user_side"`
	Difficulty    chess.Level       `json:"difficulty"`
	History       []string          `json:"history,omitempty"`
	Moves         []string          `json:"moves,omitempty"`
	Tags          map[string]string `json:"tags,omitempty"`
	CapturedWhite []board.Kind      `json:"captured_by_white,omitempty"`
	CapturedBlack []board.Kind      `json:"captured_by_black,omitempty"`
	Started       bool              `json:"started"`
}

// Snapshot captures the session so Restore can rebuild it exactly,
// including capture order.
func (g *Game) Snapshot() State {
	l := g.tracker.Ledger()
	return State{
		FEN:           g.current,
		PreviousFEN:   g.previous,
		StartFEN:      g.start,
		UserSide:      g.userSide,
		Difficulty:    g.difficulty,
		History:       g.History(),
		Moves:         g.Moves(),
		Tags:          maps.Clone(g.tags),
		CapturedWhite: l.Captured(board.White),
		CapturedBlack: l.Captured(board.Black),
		Started:       g.started,
	}
}

// Restore replaces the session with st. The engine is reloaded at st.FEN.
func (g *Game) Restore(ctx context.Context, st State) error {
	pos, err := board.Decode(st.FEN)
	if err != nil {
		return err
	}
	if st.PreviousFEN != "" {
		if _, err := board.Decode(st.PreviousFEN); err != nil {
			return fmt.Errorf("previous position: %w", err)
		}
	}
	if err := g.engine.LoadPosition(ctx, st.FEN); err != nil {
		g.resync(ctx)
		return fmt.Errorf("%w: restore position: %v", ErrEngine, err)
	}

	g.tracker.Restore(pos, board.NewLedger(st.CapturedWhite, st.CapturedBlack))
	g.current = st.FEN
	g.previous = st.PreviousFEN
	g.start = st.StartFEN
	if g.start == "" {
		g.start = board.StartFEN
	}
	g.history = append([]string(nil), st.History...)
	g.moves = append([]string(nil), st.Moves...)
	g.started = st.Started
	if st.UserSide == board.White || st.UserSide == board.Black {
		g.userSide = st.UserSide
	}
	g.difficulty = st.Difficulty
	if ls, ok := g.engine.(levelSetter); ok {
		ls.SetLevel(g.difficulty)
	}
	g.tags = maps.Clone(st.Tags)
	if g.tags == nil {
		g.tags = g.freshTags()
	}
	g.tags[TagFEN] = g.current

	g.log.Info("game_restored", zap.String("fen", g.current), zap.Int("plies", len(g.history)))
	g.emit(Event{Kind: EventRestore, FEN: g.current, PreviousFEN: g.previous})
	return nil
}
