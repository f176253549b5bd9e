package openingbook

import (
	"bytes"
	"encoding/binary"
	"testing"

	chesslib "github.com/corentings/chess/v2"

	"github.com/park285/boardsync/internal/board"
)

// polyglotEntry encodes one 16-byte book record.
func polyglotEntry(t *testing.T, fen string, fromFile, fromRank, toFile, toRank int, weight uint16) []byte {
	t.Helper()
	hashStr, err := chesslib.NewZobristHasher().HashPosition(fen)
	if err != nil {
		t.Fatalf("hash: %v", err)
	}
	move := uint16(toFile | toRank<<3 | fromFile<<6 | fromRank<<9)
	buf := make([]byte, 16)
	binary.BigEndian.PutUint64(buf[0:8], chesslib.ZobristHashToUint64(hashStr))
	binary.BigEndian.PutUint16(buf[8:10], move)
	binary.BigEndian.PutUint16(buf[10:12], weight)
	return buf
}

func TestBookMove(t *testing.T) {
	raw := polyglotEntry(t, board.StartFEN, 4, 1, 4, 3, 100)
	b, err := Load(bytes.NewReader(raw))
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	mv, ok := b.Move(board.StartFEN)
	if !ok || mv != "e2e4" {
		t.Fatalf("Move = %q, %v", mv, ok)
	}
	if _, ok := b.Move("8/8/8/8/8/8/8/K6k w - - 0 1"); ok {
		t.Fatalf("unexpected book hit")
	}
	var nilBook *Book
	if _, ok := nilBook.Move(board.StartFEN); ok {
		t.Fatalf("nil book answered")
	}
}

func TestCastleFromPolyglot(t *testing.T) {
	cases := map[string]string{"e1h1": "e1g1", "e8a8": "e8c8", "e2e4": "e2e4"}
	for in, want := range cases {
		if got := castleFromPolyglot(in); got != want {
			t.Fatalf("castleFromPolyglot(%s) = %s, want %s", in, got, want)
		}
	}
}

func TestOpenRequiresPath(t *testing.T) {
	if _, err := Open(" "); err == nil {
		t.Fatalf("empty path accepted")
	}
}

func TestClassify(t *testing.T) {
	o, ok := Classify("", []string{"e2e4", "e7e5", "g1f3", "b8c6", "f1b5"})
	if !ok || o.Code == "" || o.Title == "" || o.Code[0] != 'C' {
		t.Fatalf("Classify = %+v, %v", o, ok)
	}
	if _, ok := Classify("r3k2r/pppppppp/8/8/8/8/PPPPPPPP/R3K2R w KQkq - 0 1", []string{"e1g1"}); ok {
		t.Fatalf("set-up position classified")
	}
	if _, ok := Classify(board.StartFEN, nil); ok {
		t.Fatalf("empty game classified")
	}
}
