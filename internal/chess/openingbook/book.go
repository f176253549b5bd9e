// Package openingbook answers opening questions for a position: which move a
// Polyglot book suggests, and which ECO opening a move sequence reached.
package openingbook

import (
	"fmt"
	"io"
	"os"
	"strings"

	chesslib "github.com/corentings/chess/v2"
)

// Book is a loaded Polyglot opening book. Safe for concurrent reads.
type Book struct {
	book   *chesslib.PolyglotBook
	hasher *chesslib.ZobristHasher
}

// Open loads the Polyglot file at path.
func Open(path string) (*Book, error) {
	if strings.TrimSpace(path) == "" {
		return nil, fmt.Errorf("polyglot book path required")
	}
	file, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open polyglot book %q: %w", path, err)
	}
	defer file.Close()
	return Load(file)
}

// Load reads a Polyglot book from r.
func Load(r io.Reader) (*Book, error) {
	book, err := chesslib.LoadFromReader(r)
	if err != nil {
		return nil, fmt.Errorf("load polyglot book: %w", err)
	}
	return &Book{book: book, hasher: chesslib.NewZobristHasher()}, nil
}

// Move returns the highest-weighted book move for fen in coordinate form.
// ok is false when the position is not in the book or every entry is
// illegal there.
func (b *Book) Move(fen string) (move string, ok bool) {
	if b == nil || b.book == nil {
		return "", false
	}
	hashStr, err := b.hasher.HashPosition(fen)
	if err != nil {
		return "", false
	}
	entries := b.book.FindMoves(chesslib.ZobristHashToUint64(hashStr))
	if len(entries) == 0 {
		return "", false
	}
	option, err := chesslib.FEN(fen)
	if err != nil {
		return "", false
	}
	for _, entry := range entries {
		decoded := chesslib.DecodeMove(entry.Move).ToMove()
		raw := decoded.String()
		for _, mv := range []string{castleFromPolyglot(raw), raw} {
			if legal(option, mv) {
				return mv, true
			}
		}
	}
	return "", false
}

// castleFromPolyglot rewrites Polyglot's king-takes-rook castling to the
// king's destination square.
func castleFromPolyglot(mv string) string {
	switch mv {
	case "e1h1":
		return "e1g1"
	case "e1a1":
		return "e1c1"
	case "e8h8":
		return "e8g8"
	case "e8a8":
		return "e8c8"
	}
	return mv
}

func legal(option func(*chesslib.Game), mv string) bool {
	g := chesslib.NewGame(option)
	return g.PushNotationMove(mv, chesslib.UCINotation{}, nil) == nil
}
