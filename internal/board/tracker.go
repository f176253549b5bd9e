package board

import "fmt"

// Tracker mirrors an engine's position into a piece model and capture ledger.
// It is not safe for concurrent use.
type Tracker struct {
	pieces Set
	ledger Ledger
	pos    Position
}

// NewTracker returns a tracker set to the standard initial position.
func NewTracker() *Tracker {
	t := &Tracker{}
	pos, _ := Decode(StartFEN)
	t.pieces = pos.Pieces
	t.pos = pos
	return t
}

// Pieces returns a copy of the piece model.
func (t *Tracker) Pieces() Set { return t.pieces }

// Ledger returns a copy of the capture ledger.
func (t *Tracker) Ledger() Ledger { return t.ledger.Clone() }

// Position returns the last committed decoded position.
func (t *Tracker) Position() Position { return t.pos }

// Apply classifies the move from->to between prev and next, records any
// capture, and rebuilds the piece model from next. Nothing is committed
// unless both positions decode.
func (t *Tracker) Apply(prev, next string, from, to Square) (Classification, error) {
	prevPos, err := Decode(prev)
	if err != nil {
		return Classification{}, fmt.Errorf("decode previous: %w", err)
	}
	nextPos, err := Decode(next)
	if err != nil {
		return Classification{}, fmt.Errorf("decode next: %w", err)
	}

	scratch := t.pieces
	ledger := t.ledger.Clone()
	c := Classify(&scratch, prevPos, nextPos, from, to)
	if c.Kind.IsCapture() {
		if i, ok := scratch.FindAt(c.VictimSquare); ok {
			ledger.Take(scratch.MarkCaptured(i))
		}
	}

	t.pieces.ReplaceAll(nextPos.Pieces)
	t.ledger = ledger
	t.pos = nextPos
	return c, nil
}

// Reset returns the tracker to the initial position with empty ledgers.
func (t *Tracker) Reset() {
	*t = *NewTracker()
}

// Restore installs a decoded position and ledger verbatim.
func (t *Tracker) Restore(pos Position, ledger Ledger) {
	t.pieces.ReplaceAll(pos.Pieces)
	t.ledger = ledger.Clone()
	t.pos = pos
}
