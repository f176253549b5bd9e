package chess

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"
)

type fixedSearcher struct {
	move  string
	err   error
	calls int
	level Level
}

func (f *fixedSearcher) BestMove(_ context.Context, _ string, level Level, _ time.Duration) (string, error) {
	f.calls++
	f.level = level
	return f.move, f.err
}

type mapBook map[string]string

func (b mapBook) Move(fen string) (string, bool) {
	mv, ok := b[fen]
	return mv, ok
}

func TestEngineRequestMovePrefersBook(t *testing.T) {
	ctx := context.Background()
	s := &fixedSearcher{move: "g8f6"}
	start := "rnbqkbnr/pppppppp/8/8/8/8/PPPPPPPP/RNBQKBNR w KQkq - 0 1"
	e := NewEngine(WithSearcher(s), WithBook(mapBook{start: "d2d4"}))
	mv, err := e.RequestMove(ctx, MoveTime(Easy))
	if err != nil || mv != "d2d4" {
		t.Fatalf("RequestMove = %q, %v", mv, err)
	}
	if s.calls != 0 {
		t.Fatalf("searcher consulted despite book hit")
	}
	mv, err = e.RequestMove(ctx, MoveTime(Easy))
	if err != nil || mv != "g8f6" {
		t.Fatalf("out of book RequestMove = %q, %v", mv, err)
	}
}

func TestEngineAttemptMove(t *testing.T) {
	ctx := context.Background()
	e := NewEngine()
	ok, err := e.AttemptMove(ctx, "e2e4")
	if err != nil || !ok {
		t.Fatalf("AttemptMove(e2e4) = %v, %v", ok, err)
	}
	fen, _ := e.CurrentPosition(ctx)
	if !strings.HasPrefix(fen, "rnbqkbnr/pppppppp/8/8/4P3/8/PPPP1PPP/RNBQKBNR b") {
		t.Fatalf("fen = %q", fen)
	}
	ok, err = e.AttemptMove(ctx, "e2e4")
	if err != nil || ok {
		t.Fatalf("second e2e4 = %v, %v; want rejected", ok, err)
	}
	after, _ := e.CurrentPosition(ctx)
	if after != fen {
		t.Fatalf("rejected move changed position: %q", after)
	}
}

func TestEngineAutoPromotesToQueen(t *testing.T) {
	ctx := context.Background()
	e := NewEngine()
	if err := e.LoadPosition(ctx, "8/4P1k1/8/8/8/8/8/4K3 w - - 0 1"); err != nil {
		t.Fatalf("LoadPosition: %v", err)
	}
	ok, err := e.AttemptMove(ctx, "e7e8")
	if err != nil || !ok {
		t.Fatalf("AttemptMove(e7e8) = %v, %v", ok, err)
	}
	fen, _ := e.CurrentPosition(ctx)
	if !strings.HasPrefix(fen, "4Q3/") {
		t.Fatalf("fen = %q", fen)
	}
}

func TestEngineLoadPositionRejectsGarbage(t *testing.T) {
	e := NewEngine()
	err := e.LoadPosition(context.Background(), "not a fen")
	if !errors.Is(err, ErrIllegalPosition) {
		t.Fatalf("err = %v", err)
	}
}

func TestEngineRequestMoveFallback(t *testing.T) {
	ctx := context.Background()
	e := NewEngine(WithRandomSeed(7))
	before, _ := e.CurrentPosition(ctx)
	mv, err := e.RequestMove(ctx, 5*time.Millisecond)
	if err != nil {
		t.Fatalf("RequestMove: %v", err)
	}
	if mv == NoMove || len(mv) < 4 {
		t.Fatalf("move = %q", mv)
	}
	after, _ := e.CurrentPosition(ctx)
	if after == before {
		t.Fatalf("position unchanged after engine move")
	}
}

func TestEngineRequestMoveUsesSearcher(t *testing.T) {
	ctx := context.Background()
	s := &fixedSearcher{move: "g1f3"}
	e := NewEngine(WithSearcher(s))
	e.SetLevel(Hard)
	mv, err := e.RequestMove(ctx, MoveTime(Hard))
	if err != nil || mv != "g1f3" {
		t.Fatalf("RequestMove = %q, %v", mv, err)
	}
	if s.calls != 1 || s.level != Hard {
		t.Fatalf("searcher calls=%d level=%v", s.calls, s.level)
	}
}

func TestEngineRequestMoveSearcherFailureFallsBack(t *testing.T) {
	ctx := context.Background()
	e := NewEngine(WithSearcher(&fixedSearcher{err: errors.New("boom")}), WithRandomSeed(1))
	mv, err := e.RequestMove(ctx, time.Millisecond)
	if err != nil || mv == NoMove {
		t.Fatalf("RequestMove = %q, %v", mv, err)
	}
}

func TestEngineRequestMoveNoneWhenMated(t *testing.T) {
	ctx := context.Background()
	e := NewEngine()
	// fool's mate, white to move
	if err := e.LoadPosition(ctx, "rnb1kbnr/pppp1ppp/8/4p3/6Pq/5P2/PPPPP2P/RNBQKBNR w KQkq - 1 3"); err != nil {
		t.Fatalf("LoadPosition: %v", err)
	}
	mv, err := e.RequestMove(ctx, time.Millisecond)
	if err != nil || mv != NoMove {
		t.Fatalf("RequestMove = %q, %v; want %q", mv, err, NoMove)
	}
}

func TestEngineSearcherNoMove(t *testing.T) {
	e := NewEngine(WithSearcher(&fixedSearcher{move: NoMove}))
	mv, err := e.RequestMove(context.Background(), time.Millisecond)
	if err != nil || mv != NoMove {
		t.Fatalf("RequestMove = %q, %v", mv, err)
	}
}
