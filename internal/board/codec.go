package board

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
)

// StartFEN is the standard initial position.
const StartFEN = "rnbqkbnr/pppppppp/8/8/8/8/PPPPPPPP/RNBQKBNR w KQkq - 0 1"

// ErrMalformedPosition is matched by every decode failure.
var ErrMalformedPosition = errors.New("malformed position")

// MalformedPositionError describes why a position string was rejected.
type MalformedPositionError struct {
	FEN    string
	Field  string
	Reason string
}

func (e *MalformedPositionError) Error() string {
	return fmt.Sprintf("malformed position %q: %s: %s", e.FEN, e.Field, e.Reason)
}

func (e *MalformedPositionError) Unwrap() error { return ErrMalformedPosition }

func malformed(fen, field, format string, args ...any) error {
	return &MalformedPositionError{FEN: fen, Field: field, Reason: fmt.Sprintf(format, args...)}
}

// Castling is a set of remaining castling rights.
type Castling uint8

const (
	WhiteKingside Castling = 1 << iota
	WhiteQueenside
	BlackKingside
	BlackQueenside
)

var castlingLetters = []struct {
	flag Castling
	c    byte
}{
	{WhiteKingside, 'K'},
	{WhiteQueenside, 'Q'},
	{BlackKingside, 'k'},
	{BlackQueenside, 'q'},
}

func (c Castling) String() string {
	if c == 0 {
		return "-"
	}
	var b strings.Builder
	for _, l := range castlingLetters {
		if c&l.flag != 0 {
			b.WriteByte(l.c)
		}
	}
	return b.String()
}

func parseCastling(fen, s string) (Castling, error) {
	if s == "-" {
		return 0, nil
	}
	var out Castling
	for i := 0; i < len(s); i++ {
		found := false
		for _, l := range castlingLetters {
			if s[i] == l.c {
				if out&l.flag != 0 {
					return 0, malformed(fen, "castling", "duplicate %q", s[i])
				}
				out |= l.flag
				found = true
				break
			}
		}
		if !found {
			return 0, malformed(fen, "castling", "unknown right %q", s[i])
		}
	}
	return out, nil
}

// Position is a decoded position string.
type Position struct {
	Pieces     Set
	Placement  string
	SideToMove Side
	Castling   Castling
	EnPassant  Square
	Halfmove   int
	Fullmove   int
}

// HasEnPassant reports whether an en-passant target is set.
func (p Position) HasEnPassant() bool { return p.EnPassant.Valid() }

// String re-encodes the position from its pieces and fields.
func (p Position) String() string {
	var grid [8][8]byte
	for _, pc := range p.Pieces.OnBoard() {
		grid[pc.Square.Rank][pc.Square.File] = pc.Symbol()
	}
	var b strings.Builder
	for r := 7; r >= 0; r-- {
		empty := 0
		for f := 0; f < 8; f++ {
			if grid[r][f] == 0 {
				empty++
				continue
			}
			if empty > 0 {
				b.WriteByte(byte('0' + empty))
				empty = 0
			}
			b.WriteByte(grid[r][f])
		}
		if empty > 0 {
			b.WriteByte(byte('0' + empty))
		}
		if r > 0 {
			b.WriteByte('/')
		}
	}
	stm := "w"
	if p.SideToMove == Black {
		stm = "b"
	}
	return fmt.Sprintf("%s %s %s %s %d %d", b.String(), stm, p.Castling, p.EnPassant, p.Halfmove, p.Fullmove)
}

// Decode parses a six-field position string. Pieces are stored rank 8 to
// rank 1, files a to h within a rank.
func Decode(fen string) (Position, error) {
	pos := Position{Pieces: NewSet(), EnPassant: Offboard}
	fields := strings.Fields(fen)
	if len(fields) != 6 {
		return pos, malformed(fen, "fields", "want 6, got %d", len(fields))
	}

	if err := decodePlacement(fen, fields[0], &pos.Pieces); err != nil {
		return pos, err
	}
	pos.Placement = fields[0]

	switch fields[1] {
	case "w":
		pos.SideToMove = White
	case "b":
		pos.SideToMove = Black
	default:
		return pos, malformed(fen, "side", "want w or b, got %q", fields[1])
	}

	c, err := parseCastling(fen, fields[2])
	if err != nil {
		return pos, err
	}
	pos.Castling = c

	if fields[3] != "-" {
		sq, err := ParseSquare(fields[3])
		if err != nil || (sq.Rank != 2 && sq.Rank != 5) {
			return pos, malformed(fen, "en passant", "bad target %q", fields[3])
		}
		pos.EnPassant = sq
	}

	if pos.Halfmove, err = strconv.Atoi(fields[4]); err != nil || pos.Halfmove < 0 {
		return pos, malformed(fen, "halfmove", "bad clock %q", fields[4])
	}
	if pos.Fullmove, err = strconv.Atoi(fields[5]); err != nil || pos.Fullmove < 1 {
		return pos, malformed(fen, "fullmove", "bad number %q", fields[5])
	}
	return pos, nil
}

func decodePlacement(fen, placement string, set *Set) error {
	ranks := strings.Split(placement, "/")
	if len(ranks) != 8 {
		return malformed(fen, "placement", "want 8 ranks, got %d", len(ranks))
	}
	for i, row := range ranks {
		rank := 7 - i
		file := 0
		for j := 0; j < len(row); j++ {
			c := row[j]
			if c >= '1' && c <= '8' {
				file += int(c - '0')
				if file > 8 {
					break
				}
				continue
			}
			kind := kindFromLetter(c)
			if kind == NoKind {
				return malformed(fen, "placement", "unknown symbol %q on rank %d", c, rank+1)
			}
			if file >= 8 {
				file++
				break
			}
			side := Black
			if c < 'a' {
				side = White
			}
			if !set.add(Piece{Kind: kind, Side: side, Square: Square{Rank: rank, File: file}}) {
				return malformed(fen, "placement", "more than %d pieces", MaxPieces)
			}
			file++
		}
		if file != 8 {
			return malformed(fen, "placement", "rank %d spans %d files", rank+1, file)
		}
	}
	return nil
}
