package board

// MoveKind is the result of diffing two consecutive positions.
type MoveKind uint8

const (
	Ordinary MoveKind = iota
	Capture
	EnPassant
	CastleKingside
	CastleQueenside
)

func (k MoveKind) String() string {
	switch k {
	case Capture:
		return "capture"
	case EnPassant:
		return "en_passant"
	case CastleKingside:
		return "castle_kingside"
	case CastleQueenside:
		return "castle_queenside"
	}
	return "ordinary"
}

// IsCapture reports whether a piece left the board.
func (k MoveKind) IsCapture() bool { return k == Capture || k == EnPassant }

// IsCastle reports whether the move was castling.
func (k MoveKind) IsCastle() bool { return k == CastleKingside || k == CastleQueenside }

// Classification describes one applied move.
type Classification struct {
	Kind     MoveKind
	From     Square
	To       Square
	Mover    Piece
	Captured Piece
	// VictimSquare is where the captured piece stood; it differs from To only
	// for en passant.
	VictimSquare Square
	Notation     string
}

var (
	sqE1 = Square{Rank: 0, File: 4}
	sqE8 = Square{Rank: 7, File: 4}
)

// Classify decides what kind of move from->to was, given the piece model as
// it stood before the move and the positions on either side of it. Rules are
// tried in order: direct capture, en passant, castling, ordinary.
func Classify(pieces *Set, prev, next Position, from, to Square) Classification {
	c := Classification{
		Kind:         Ordinary,
		From:         from,
		To:           to,
		Captured:     EmptyPiece,
		VictimSquare: Offboard,
	}
	mover, ok := pieces.At(from)
	if !ok {
		mover = Piece{Kind: NoKind, Side: prev.SideToMove, Square: from}
	}
	c.Mover = mover

	switch {
	case captureAt(pieces, mover.Side, to, &c):
		c.Kind = Capture
	case mover.Kind == Pawn && prev.HasEnPassant() && prev.EnPassant == to &&
		captureAt(pieces, mover.Side, enPassantVictim(mover.Side, to), &c):
		c.Kind = EnPassant
	case mover.Kind == King && (from == sqE1 || from == sqE8) &&
		prev.Castling != next.Castling && to.Rank == from.Rank:
		switch to.File {
		case 6:
			c.Kind = CastleKingside
		case 2:
			c.Kind = CastleQueenside
		}
	}
	c.Notation = notation(c)
	return c
}

func captureAt(pieces *Set, mover Side, sq Square, c *Classification) bool {
	victim, ok := pieces.At(sq)
	if !ok || victim.Side == mover {
		return false
	}
	c.Captured = victim
	c.VictimSquare = sq
	return true
}

func enPassantVictim(mover Side, to Square) Square {
	if mover == Black {
		return Square{Rank: to.Rank + 1, File: to.File}
	}
	return Square{Rank: to.Rank - 1, File: to.File}
}

func notation(c Classification) string {
	switch c.Kind {
	case CastleKingside:
		return "O-O"
	case CastleQueenside:
		return "O-O-O"
	case Capture, EnPassant:
		return c.From.String() + "x" + c.To.String()
	}
	return c.From.String() + c.To.String()
}
