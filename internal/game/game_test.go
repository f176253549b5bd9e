package game

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"

	"github.com/park285/boardsync/internal/board"
	"github.com/park285/boardsync/internal/chess"
)

// scriptedEngine answers from fixed tables instead of computing chess rules.
type scriptedEngine struct {
	fen     string
	legal   map[string]string
	replies []string
	// after overrides CurrentPosition once a move is accepted.
	after   string
	loads   []string
	loadErr error
	level   chess.Level
	timeout time.Duration
}

func (s *scriptedEngine) AttemptMove(_ context.Context, move string) (bool, error) {
	next, ok := s.legal[move]
	if !ok {
		return false, nil
	}
	s.fen = next
	if s.after != "" {
		s.fen = s.after
	}
	return true, nil
}

func (s *scriptedEngine) RequestMove(_ context.Context, timeout time.Duration) (string, error) {
	s.timeout = timeout
	if len(s.replies) == 0 {
		return chess.NoMove, nil
	}
	mv := s.replies[0]
	s.replies = s.replies[1:]
	if next, ok := s.legal[mv]; ok {
		s.fen = next
	}
	return mv, nil
}

func (s *scriptedEngine) CurrentPosition(context.Context) (string, error) { return s.fen, nil }

func (s *scriptedEngine) LoadPosition(_ context.Context, fen string) error {
	if s.loadErr != nil {
		return s.loadErr
	}
	s.loads = append(s.loads, fen)
	s.fen = fen
	return nil
}

func (s *scriptedEngine) SetLevel(l chess.Level) { s.level = l }

var fixedNow = func() time.Time { return time.Date(2026, 10, 19, 12, 0, 0, 0, time.UTC) }

func newScripted(t *testing.T, eng *scriptedEngine) *Game {
	t.Helper()
	g, err := New(context.Background(), eng, Options{Now: fixedNow})
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	return g
}

func newReal(t *testing.T) *Game {
	t.Helper()
	g, err := New(context.Background(), chess.NewEngine(chess.WithRandomSeed(3)), Options{Now: fixedNow})
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	return g
}

func play(t *testing.T, g *Game, moves ...string) {
	t.Helper()
	for _, mv := range moves {
		from, to, err := board.ParseMove(mv)
		if err != nil {
			t.Fatalf("ParseMove(%q): %v", mv, err)
		}
		res, err := g.Move(context.Background(), from, to)
		if err != nil {
			t.Fatalf("Move(%s): %v", mv, err)
		}
		if res.Status != StatusApplied {
			t.Fatalf("Move(%s) status = %v", mv, res.Status)
		}
	}
}

func TestNewGameDefaults(t *testing.T) {
	g := newReal(t)
	if g.CurrentPosition() != board.StartFEN || g.PreviousPosition() != "" {
		t.Fatalf("positions = %q / %q", g.CurrentPosition(), g.PreviousPosition())
	}
	tags := g.Tags()
	want := map[string]string{
		TagEvent: "Casual Game",
		TagSite:  "?",
		TagDate:  "2026.10.19",
		TagRound: "-",
		TagWhite: PlayerUser,
		TagBlack: PlayerCPU,
		TagFEN:   board.StartFEN,
	}
	if diff := cmp.Diff(want, tags); diff != "" {
		t.Fatalf("tags (-want +got):\n%s", diff)
	}
	if g.Started() || g.UserSide() != board.White || g.Difficulty() != chess.Easy {
		t.Fatalf("started=%v side=%v level=%v", g.Started(), g.UserSide(), g.Difficulty())
	}
	pieces := g.Pieces()
	if pieces.Count() != 32 {
		t.Fatalf("pieces = %d", pieces.Count())
	}
}

func TestMoveRejectedIsNotAnError(t *testing.T) {
	g := newReal(t)
	before := g.Snapshot()
	res, err := g.Move(context.Background(), board.MustSquare("e2"), board.MustSquare("e5"))
	if err != nil {
		t.Fatalf("Move: %v", err)
	}
	if res.Status != StatusRejected {
		t.Fatalf("status = %v", res.Status)
	}
	if diff := cmp.Diff(before, g.Snapshot()); diff != "" {
		t.Fatalf("state changed (-before +after):\n%s", diff)
	}
}

func TestMoveCaptureUpdatesLedgerAndHistory(t *testing.T) {
	g := newReal(t)
	play(t, g, "e2e4", "d7d5")
	prev := g.CurrentPosition()
	play(t, g, "e4d5")

	if diff := cmp.Diff([]string{"e2e4", "d7d5", "e4xd5"}, g.History()); diff != "" {
		t.Fatalf("history (-want +got):\n%s", diff)
	}
	if diff := cmp.Diff([]board.Kind{board.Pawn}, g.Captured(board.White)); diff != "" {
		t.Fatalf("white ledger (-want +got):\n%s", diff)
	}
	if g.RenderCaptured(board.White) != "♟" || g.RenderCaptured(board.Black) != "" {
		t.Fatalf("ledgers = %q / %q", g.RenderCaptured(board.White), g.RenderCaptured(board.Black))
	}
	if g.PreviousPosition() != prev {
		t.Fatalf("previous = %q, want %q", g.PreviousPosition(), prev)
	}
	if g.Tags()[TagFEN] != g.CurrentPosition() {
		t.Fatalf("FEN tag not refreshed")
	}
	if !g.Started() || g.SideToMove() != board.Black {
		t.Fatalf("started=%v side=%v", g.Started(), g.SideToMove())
	}
	from, to, ok := g.LastMove()
	if !ok || from.String() != "e4" || to.String() != "d5" {
		t.Fatalf("last move = %v %v %v", from, to, ok)
	}
}

func TestEnPassantThroughEngine(t *testing.T) {
	g := newReal(t)
	play(t, g, "e2e4", "a7a6", "e4e5", "d7d5", "e5d6")
	hist := g.History()
	if hist[len(hist)-1] != "e5xd6" {
		t.Fatalf("history = %v", hist)
	}
	pieces := g.Pieces()
	if _, ok := pieces.At(board.MustSquare("d5")); ok {
		t.Fatalf("captured pawn still on d5")
	}
	if g.MaterialTaken(board.White) != 1 {
		t.Fatalf("white material = %d", g.MaterialTaken(board.White))
	}
}

func TestCastlingThroughEngine(t *testing.T) {
	g := newReal(t)
	if err := g.LoadPosition(context.Background(), "r3k2r/pppppppp/8/8/8/8/PPPPPPPP/R3K2R w KQkq - 0 1"); err != nil {
		t.Fatalf("LoadPosition: %v", err)
	}
	play(t, g, "e1g1")
	if diff := cmp.Diff([]string{"O-O"}, g.History()); diff != "" {
		t.Fatalf("history (-want +got):\n%s", diff)
	}
	play(t, g, "e8c8")
	if diff := cmp.Diff([]string{"O-O", "O-O-O"}, g.History()); diff != "" {
		t.Fatalf("history (-want +got):\n%s", diff)
	}
}

func TestEngineMoveCastles(t *testing.T) {
	start := "r3k2r/pppppppp/8/8/8/8/PPPPPPPP/R3K2R b KQkq - 0 1"
	eng := &scriptedEngine{
		legal:   map[string]string{"e8g8": "r4rk1/pppppppp/8/8/8/8/PPPPPPPP/R3K2R w KQ - 1 2"},
		replies: []string{"e8g8"},
	}
	g := newScripted(t, eng)
	if err := g.LoadPosition(context.Background(), start); err != nil {
		t.Fatalf("LoadPosition: %v", err)
	}
	g.SetDifficulty(chess.Hard)
	res, err := g.EngineMove(context.Background())
	if err != nil {
		t.Fatalf("EngineMove: %v", err)
	}
	if res.Status != StatusApplied || res.Classification.Kind != board.CastleKingside || res.Classification.Notation != "O-O" {
		t.Fatalf("result = %+v", res)
	}
	if eng.timeout != 200*time.Millisecond || eng.level != chess.Hard {
		t.Fatalf("timeout=%s level=%v", eng.timeout, eng.level)
	}
}

func TestEngineMoveNoMove(t *testing.T) {
	eng := &scriptedEngine{}
	g := newScripted(t, eng)
	res, err := g.EngineMove(context.Background())
	if err != nil || res.Status != StatusNoMove {
		t.Fatalf("EngineMove = %+v, %v", res, err)
	}
	if len(g.History()) != 0 || g.PreviousPosition() != "" {
		t.Fatalf("no-move mutated state")
	}
	if eng.timeout != 5*time.Millisecond {
		t.Fatalf("easy timeout = %s", eng.timeout)
	}
}

func TestMalformedEnginePositionResyncs(t *testing.T) {
	eng := &scriptedEngine{
		legal: map[string]string{"e2e4": "ignored"},
		after: "rnbqkbnr/pppppppp/8/8/4P3/8/PPPP1PPP/RNBQKBNR b KQkq e3 0",
	}
	g := newScripted(t, eng)
	before := g.Snapshot()
	_, err := g.Move(context.Background(), board.MustSquare("e2"), board.MustSquare("e4"))
	if !errors.Is(err, board.ErrMalformedPosition) {
		t.Fatalf("err = %v, want malformed", err)
	}
	if diff := cmp.Diff(before, g.Snapshot()); diff != "" {
		t.Fatalf("state changed (-before +after):\n%s", diff)
	}
	if len(eng.loads) != 2 || eng.loads[1] != board.StartFEN {
		t.Fatalf("engine not resynced, loads = %q", eng.loads)
	}
}

func TestEngineErrorIsWrapped(t *testing.T) {
	eng := &scriptedEngine{}
	g := newScripted(t, eng)
	eng.loadErr = errors.New("pipe closed")
	err := g.NewGame(context.Background())
	if !errors.Is(err, ErrEngine) {
		t.Fatalf("err = %v, want ErrEngine", err)
	}
}

func TestLoadPositionInfersLedgers(t *testing.T) {
	g := newReal(t)
	play(t, g, "e2e4")
	fen := "rnb1kbnr/pppppppp/8/8/8/8/PPPPPPPP/RNBQKBNR w KQkq - 0 1"
	if err := g.LoadPosition(context.Background(), fen); err != nil {
		t.Fatalf("LoadPosition: %v", err)
	}
	if g.RenderCaptured(board.White) != "♛" {
		t.Fatalf("white ledger = %q", g.RenderCaptured(board.White))
	}
	if len(g.History()) != 0 || g.PreviousPosition() != "" {
		t.Fatalf("history=%v previous=%q", g.History(), g.PreviousPosition())
	}
	tags := g.Tags()
	if tags[TagFEN] != fen || tags[TagSetUp] != "1" || g.StartPosition() != fen {
		t.Fatalf("tags = %v start=%q", tags, g.StartPosition())
	}
}

func TestLoadPositionMalformedChangesNothing(t *testing.T) {
	eng := &scriptedEngine{}
	g := newScripted(t, eng)
	loads := len(eng.loads)
	before := g.Snapshot()
	err := g.LoadPosition(context.Background(), "8/8/8/8/8/8/8/9 w - - 0 1")
	if !errors.Is(err, board.ErrMalformedPosition) {
		t.Fatalf("err = %v", err)
	}
	if len(eng.loads) != loads {
		t.Fatalf("engine was called for a malformed position")
	}
	if diff := cmp.Diff(before, g.Snapshot()); diff != "" {
		t.Fatalf("state changed (-before +after):\n%s", diff)
	}
}

func TestSetUserSideUpdatesTags(t *testing.T) {
	g := newReal(t)
	if err := g.SetUserSide(board.Black); err != nil {
		t.Fatalf("SetUserSide: %v", err)
	}
	tags := g.Tags()
	if tags[TagWhite] != PlayerCPU || tags[TagBlack] != PlayerUser {
		t.Fatalf("tags = %v", tags)
	}
	if g.UserToMove() {
		t.Fatalf("black user should not be to move at start")
	}
	if err := g.SetUserSide(board.NoSide); err == nil {
		t.Fatalf("NoSide accepted")
	}
	if err := g.NewGame(context.Background()); err != nil {
		t.Fatalf("NewGame: %v", err)
	}
	if g.UserSide() != board.Black || g.Tags()[TagBlack] != PlayerUser {
		t.Fatalf("user side not kept across NewGame")
	}
}

func TestSubscribe(t *testing.T) {
	g := newReal(t)
	var got []EventKind
	var notations []string
	unsubscribe := g.Subscribe(func(ev Event) {
		got = append(got, ev.Kind)
		if ev.Classification != nil {
			notations = append(notations, ev.Classification.Notation)
		}
	})
	play(t, g, "g1f3")
	g.SetDifficulty(chess.Medium)
	unsubscribe()
	play(t, g, "g8f6")

	if diff := cmp.Diff([]EventKind{EventMove, EventSettings}, got); diff != "" {
		t.Fatalf("events (-want +got):\n%s", diff)
	}
	if diff := cmp.Diff([]string{"g1f3"}, notations); diff != "" {
		t.Fatalf("notations (-want +got):\n%s", diff)
	}
}

func TestSnapshotRestoreKeepsCaptureOrder(t *testing.T) {
	g := newReal(t)
	play(t, g, "e2e4", "d7d5", "e4d5", "d8d5", "b1c3", "d5a2", "a1a2")
	st := g.Snapshot()
	if diff := cmp.Diff([]board.Kind{board.Pawn, board.Queen}, st.CapturedWhite); diff != "" {
		t.Fatalf("white ledger (-want +got):\n%s", diff)
	}

	other := newReal(t)
	if err := other.Restore(context.Background(), st); err != nil {
		t.Fatalf("Restore: %v", err)
	}
	if diff := cmp.Diff(st, other.Snapshot()); diff != "" {
		t.Fatalf("restored state (-want +got):\n%s", diff)
	}
	play(t, other, "e7e5")
	if other.PreviousPosition() != st.FEN {
		t.Fatalf("restored game did not continue from snapshot")
	}
}
