package board

import "fmt"

// Kind identifies a chess piece type.
type Kind uint8

const (
	NoKind Kind = iota
	King
	Queen
	Rook
	Bishop
	Knight
	Pawn
)

var kindNames = [...]string{
	NoKind: "none",
	King:   "king",
	Queen:  "queen",
	Rook:   "rook",
	Bishop: "bishop",
	Knight: "knight",
	Pawn:   "pawn",
}

// glyphs are the solid chess symbols used for ledger labels regardless of side.
var glyphs = [...]string{
	NoKind: "",
	King:   "♚",
	Queen:  "♛",
	Rook:   "♜",
	Bishop: "♝",
	Knight: "♞",
	Pawn:   "♟",
}

// material values for ledger totals. King is not counted.
var values = [...]int{NoKind: 0, King: 0, Queen: 9, Rook: 5, Bishop: 3, Knight: 3, Pawn: 1}

func (k Kind) String() string {
	if int(k) < len(kindNames) {
		return kindNames[k]
	}
	return fmt.Sprintf("kind(%d)", k)
}

// Glyph returns the Unicode label for the kind.
func (k Kind) Glyph() string {
	if int(k) < len(glyphs) {
		return glyphs[k]
	}
	return ""
}

// Value returns the conventional material value.
func (k Kind) Value() int {
	if int(k) < len(values) {
		return values[k]
	}
	return 0
}

// Letter returns the lowercase FEN letter of the kind.
func (k Kind) Letter() byte {
	switch k {
	case King:
		return 'k'
	case Queen:
		return 'q'
	case Rook:
		return 'r'
	case Bishop:
		return 'b'
	case Knight:
		return 'n'
	case Pawn:
		return 'p'
	}
	return 0
}

func kindFromLetter(c byte) Kind {
	switch c | 0x20 {
	case 'k':
		return King
	case 'q':
		return Queen
	case 'r':
		return Rook
	case 'b':
		return Bishop
	case 'n':
		return Knight
	case 'p':
		return Pawn
	}
	return NoKind
}

// Side is a player colour.
type Side uint8

const (
	NoSide Side = iota
	White
	Black
)

func (s Side) String() string {
	switch s {
	case White:
		return "white"
	case Black:
		return "black"
	}
	return "none"
}

// Opponent returns the other side. NoSide maps to itself.
func (s Side) Opponent() Side {
	switch s {
	case White:
		return Black
	case Black:
		return White
	}
	return NoSide
}

// ParseSide accepts "white"/"w" and "black"/"b".
func ParseSide(s string) (Side, error) {
	switch s {
	case "white", "w", "White", "WHITE":
		return White, nil
	case "black", "b", "Black", "BLACK":
		return Black, nil
	}
	return NoSide, fmt.Errorf("unknown side %q", s)
}

// Square is a board coordinate. Rank and File are 0-based; rank 0 is White's
// back rank and file 0 is the a-file.
type Square struct {
	Rank int
	File int
}

// Offboard marks a captured piece or an absent square.
var Offboard = Square{Rank: -1, File: -1}

// Valid reports whether the square lies on the board.
func (sq Square) Valid() bool {
	return sq.Rank >= 0 && sq.Rank < 8 && sq.File >= 0 && sq.File < 8
}

// String renders the square in algebraic form ("e4"), or "-" when off board.
func (sq Square) String() string {
	if !sq.Valid() {
		return "-"
	}
	return string([]byte{byte('a' + sq.File), byte('1' + sq.Rank)})
}

// ParseSquare parses an algebraic square such as "e4".
func ParseSquare(s string) (Square, error) {
	if len(s) != 2 {
		return Offboard, fmt.Errorf("invalid square %q", s)
	}
	f, r := s[0], s[1]
	if f < 'a' || f > 'h' || r < '1' || r > '8' {
		return Offboard, fmt.Errorf("invalid square %q", s)
	}
	return Square{Rank: int(r - '1'), File: int(f - 'a')}, nil
}

// MustSquare is ParseSquare for literals; it panics on bad input.
func MustSquare(s string) Square {
	sq, err := ParseSquare(s)
	if err != nil {
		panic(err)
	}
	return sq
}

// ParseMove splits a coordinate move ("e2e4", "e7e8q") into its squares.
// A trailing promotion letter is accepted and ignored.
func ParseMove(s string) (from, to Square, err error) {
	if len(s) != 4 && len(s) != 5 {
		return Offboard, Offboard, fmt.Errorf("invalid move %q", s)
	}
	if from, err = ParseSquare(s[:2]); err != nil {
		return Offboard, Offboard, err
	}
	if to, err = ParseSquare(s[2:4]); err != nil {
		return Offboard, Offboard, err
	}
	if len(s) == 5 && kindFromLetter(s[4]) == NoKind {
		return Offboard, Offboard, fmt.Errorf("invalid promotion in %q", s)
	}
	return from, to, nil
}

// Piece is one entry of the piece model.
type Piece struct {
	Kind   Kind
	Side   Side
	Square Square
}

// EmptyPiece fills unused slots of a Set.
var EmptyPiece = Piece{Kind: NoKind, Side: NoSide, Square: Offboard}

// IsEmpty reports whether p is the unused-slot sentinel.
func (p Piece) IsEmpty() bool { return p.Kind == NoKind }

// OnBoard reports whether p occupies a square.
func (p Piece) OnBoard() bool { return p.Kind != NoKind && p.Square.Valid() }

// Symbol returns the FEN letter, uppercase for White.
func (p Piece) Symbol() byte {
	c := p.Kind.Letter()
	if p.Side == White && c != 0 {
		c -= 0x20
	}
	return c
}

func (p Piece) String() string {
	if p.IsEmpty() {
		return "empty"
	}
	return fmt.Sprintf("%s %s@%s", p.Side, p.Kind, p.Square)
}

func (k Kind) MarshalText() ([]byte, error) { return []byte(k.String()), nil }

func (k *Kind) UnmarshalText(b []byte) error {
	for i, name := range kindNames {
		if name == string(b) {
			*k = Kind(i)
			return nil
		}
	}
	return fmt.Errorf("unknown piece kind %q", b)
}

func (s Side) MarshalText() ([]byte, error) { return []byte(s.String()), nil }

func (s *Side) UnmarshalText(b []byte) error {
	if string(b) == "none" || len(b) == 0 {
		*s = NoSide
		return nil
	}
	v, err := ParseSide(string(b))
	if err != nil {
		return err
	}
	*s = v
	return nil
}
