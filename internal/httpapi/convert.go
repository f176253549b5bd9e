package httpapi

import (
	"github.com/park285/boardsync/internal/archive"
	"github.com/park285/boardsync/internal/board"
	"github.com/park285/boardsync/internal/game"
	"github.com/park285/boardsync/pkg/boarddto"
)

func sessionState(id string, g *game.Game) *boarddto.SessionState {
	pieces := g.Pieces()
	onBoard := pieces.OnBoard()
	out := &boarddto.SessionState{
		SessionID:   id,
		FEN:         g.CurrentPosition(),
		PreviousFEN: g.PreviousPosition(),
		StartFEN:    g.StartPosition(),
		SideToMove:  g.SideToMove().String(),
		UserSide:    g.UserSide().String(),
		UserToMove:  g.UserToMove(),
		Difficulty:  g.Difficulty().String(),
		Started:     g.Started(),
		History:     nonNil(g.History()),
		Moves:       nonNil(g.Moves()),
		Tags:        g.Tags(),
		Captured: boarddto.CapturedPieces{
			White:       kindNames(g.Captured(board.White)),
			Black:       kindNames(g.Captured(board.Black)),
			WhiteGlyphs: g.RenderCaptured(board.White),
			BlackGlyphs: g.RenderCaptured(board.Black),
		},
		Material: boarddto.MaterialScore{
			White: g.MaterialTaken(board.White),
			Black: g.MaterialTaken(board.Black),
		},
		Pieces: make([]boarddto.Piece, 0, len(onBoard)),
	}
	if moves := g.Moves(); len(moves) > 0 {
		out.LastMove = moves[len(moves)-1]
	}
	for _, p := range onBoard {
		out.Pieces = append(out.Pieces, boarddto.Piece{Kind: p.Kind.String(), Side: p.Side.String(), Square: p.Square.String()})
	}
	return out
}

func moveSummary(id string, g *game.Game, res game.MoveResult) *boarddto.MoveSummary {
	out := &boarddto.MoveSummary{Status: res.Status.String(), State: sessionState(id, g)}
	if res.Status != game.StatusApplied {
		return out
	}
	c := res.Classification
	out.Move = res.Move
	out.Kind = c.Kind.String()
	out.Notation = c.Notation
	if c.Kind.IsCapture() {
		out.Captured = c.Captured.Kind.String()
	}
	return out
}

func gameRecord(g *archive.Game) *boarddto.GameRecord {
	return &boarddto.GameRecord{
		SessionID:       g.SessionID,
		UserSide:        g.UserSide.String(),
		Difficulty:      g.Difficulty.String(),
		Result:          g.Result,
		StartFEN:        g.StartFEN,
		FinalFEN:        g.FinalFEN,
		ECO:             g.ECO,
		Opening:         g.Opening,
		Moves:           nonNil(g.Moves),
		Notation:        nonNil(g.Notation),
		CapturedByWhite: kindNames(g.CapturedByWhite),
		CapturedByBlack: kindNames(g.CapturedByBlack),
		PGN:             g.PGN,
		SavedAt:         g.SavedAt,
	}
}

func kindNames(kinds []board.Kind) []string {
	out := make([]string, 0, len(kinds))
	for _, k := range kinds {
		out = append(out, k.String())
	}
	return out
}

func nonNil(s []string) []string {
	if s == nil {
		return []string{}
	}
	return s
}
